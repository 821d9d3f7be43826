// Package dispatch turns a routing decision into an answer: it classifies
// the query, picks the pathway (code generation, search, direct answer),
// runs tools where needed, and synthesizes the final response with the LLM.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/torq-ai/torq/internal/learning"
	"github.com/torq-ai/torq/internal/mcp"
	"github.com/torq-ai/torq/internal/permission"
	"github.com/torq-ai/torq/internal/provider"
	"github.com/torq-ai/torq/internal/router"
	"github.com/torq-ai/torq/internal/session"
	"github.com/torq-ai/torq/internal/tools"
)

const (
	codeGenSystemPrompt = `You are an expert software engineer. Produce complete,
runnable code for the user's request. Use fenced code blocks with a language tag,
and explain key decisions briefly after the code.`

	synthesizeSystemPrompt = `You are a helpful assistant. Answer the user's question
using the tool output below. Cite URLs from the output where relevant. If the output
does not answer the question, say so instead of guessing.`

	researchSystemPrompt = `You are a research assistant. Using the tool output below,
write a structured summary of the topic: key findings first, then supporting detail,
with source URLs. Note conflicting information explicitly.`

	directSystemPrompt = `You are a helpful assistant. Answer concisely and directly.`

	defaultMaxTokens = 4096
)

// Meta describes how a query was routed and answered.
type Meta struct {
	Intent     router.IntentCategory `json:"intent"`
	Confidence float64               `json:"confidence"`
	Reasoning  string                `json:"reasoning"`
	Tool       string                `json:"tool,omitempty"`
	Usage      *provider.Usage       `json:"-"`
}

// Result is the outcome of dispatching one query.
type Result struct {
	Response string `json:"response"`
	Meta     Meta   `json:"meta"`
}

// Options configures a Dispatcher.
type Options struct {
	Classifier *router.Classifier
	Provider   provider.Provider
	Registry   *tools.Registry
	Policy     permission.Policy
	Store      learning.Store
	EventLog   *learning.EventLogger // optional
	MaxTokens  int

	// SystemPrompt replaces the built-in direct-answer prompt when set.
	SystemPrompt string

	// Stream receives text deltas as the LLM produces them. Optional.
	Stream func(delta string)

	// Confirm is asked when the policy returns NeedConfirmation.
	// A nil Confirm treats confirmation as denial (non-interactive contexts).
	Confirm func(toolName string, params json.RawMessage) bool
}

// Dispatcher routes classified queries to their answer pathway.
type Dispatcher struct {
	opts Options
}

// New creates a Dispatcher. Classifier and Provider are required; a nil
// Registry disables tool pathways, a nil Store disables learning.
func New(opts Options) *Dispatcher {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.Policy == nil {
		opts.Policy = permission.AllowAllPolicy{}
	}
	if opts.Store == nil {
		opts.Store = learning.NullStore{}
	}
	return &Dispatcher{opts: opts}
}

// Handle classifies the query, runs the matching pathway, and records the
// interaction. The session's history is extended with the user query and
// the assistant's response.
func (d *Dispatcher) Handle(ctx context.Context, sess *session.Session, query string) (*Result, error) {
	decision, err := d.opts.Classifier.Classify(query)
	if err != nil {
		return nil, err
	}

	d.logEvent(learning.EventRouteDecision, map[string]any{
		"intent":     string(decision.Category),
		"confidence": decision.Confidence,
		"reasoning":  decision.Reasoning,
	})

	var result *Result
	switch {
	case decision.Category == router.IntentCodeGeneration:
		result, err = d.answer(ctx, sess, query, codeGenSystemPrompt, decision, "")
	case decision.Category.IsSearch():
		result, err = d.searchAndSynthesize(ctx, sess, query, decision)
	default:
		result, err = d.answer(ctx, sess, query, d.directPrompt(), decision, "")
	}
	if err != nil {
		d.logEvent(learning.EventError, err.Error())
		return nil, err
	}

	d.record(query, result)
	return result, nil
}

// searchAndSynthesize resolves the search tool, executes it, and asks the
// LLM to answer from the tool output.
func (d *Dispatcher) searchAndSynthesize(ctx context.Context, sess *session.Session, query string, decision router.RoutingDecision) (*Result, error) {
	tool, toolName := d.resolveSearchTool(query, decision)
	if tool == nil {
		// No search tool available; fall back to a direct answer and say so
		// in the reasoning rather than failing the query.
		decision.Reasoning += "; no search tool available, answering directly"
		return d.answer(ctx, sess, query, d.directPrompt(), decision, "")
	}

	params, _ := json.Marshal(map[string]any{"query": query})

	switch d.opts.Policy.Check(toolName, params) {
	case permission.Deny:
		return nil, fmt.Errorf("tool %q denied by permission policy", toolName)
	case permission.NeedConfirmation:
		if d.opts.Confirm == nil || !d.opts.Confirm(toolName, params) {
			return nil, fmt.Errorf("tool %q not confirmed", toolName)
		}
	}

	d.logEvent(learning.EventToolCall, map[string]any{"tool": toolName})
	toolResult, err := tool.Execute(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("execute %s: %w", toolName, err)
	}
	d.logEvent(learning.EventToolResult, map[string]any{"tool": toolName, "error": toolResult.IsError})

	if toolResult.IsError {
		// Surface the tool failure to the LLM so the answer can explain it.
		toolResult.Content = "Tool error: " + toolResult.Content
	}

	sysPrompt := synthesizeSystemPrompt
	if decision.Category == router.IntentResearch {
		sysPrompt = researchSystemPrompt
	}
	sysPrompt = sysPrompt + "\n\nTool output:\n" + toolResult.Content

	result, err := d.answer(ctx, sess, query, sysPrompt, decision, toolName)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (d *Dispatcher) directPrompt() string {
	if d.opts.SystemPrompt != "" {
		return d.opts.SystemPrompt
	}
	return directSystemPrompt
}

// resolveSearchTool picks the tool for a search-flavored intent.
// Tool-based searches try the named MCP server first, then a built-in tool
// whose name matches the target, then web_search.
func (d *Dispatcher) resolveSearchTool(query string, decision router.RoutingDecision) (tools.Tool, string) {
	if d.opts.Registry == nil {
		return nil, ""
	}

	if decision.Category == router.IntentToolBasedSearch {
		target := router.ExtractToolTarget(query)
		if t, ok := mcp.FindServerTool(d.opts.Registry, target); ok {
			return t, t.Name()
		}
		// A built-in tool named like the target also satisfies the request.
		normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(target)), " ", "_")
		if t, ok := d.opts.Registry.Get(normalized); ok {
			return t, t.Name()
		}
	}

	if t, ok := d.opts.Registry.Get("web_search"); ok {
		return t, t.Name()
	}
	return nil, ""
}

// answer runs one LLM call with the session history plus the new query.
func (d *Dispatcher) answer(ctx context.Context, sess *session.Session, query, systemPrompt string, decision router.RoutingDecision, toolName string) (*Result, error) {
	messages := make([]provider.Message, 0, len(sess.Messages)+1)
	messages = append(messages, sess.Messages...)
	messages = append(messages, provider.TextMessage(provider.RoleUser, query))

	events, err := d.opts.Provider.Chat(ctx, &provider.ChatRequest{
		Messages:     messages,
		SystemPrompt: systemPrompt,
		MaxTokens:    d.opts.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("chat request: %w", err)
	}

	text, usage, err := d.collect(ctx, events)
	if err != nil {
		return nil, err
	}

	sess.AddMessage(provider.TextMessage(provider.RoleUser, query))
	sess.AddMessage(provider.TextMessage(provider.RoleAssistant, text))
	sess.RecordUsage(usage)

	return &Result{
		Response: text,
		Meta: Meta{
			Intent:     decision.Category,
			Confidence: decision.Confidence,
			Reasoning:  decision.Reasoning,
			Tool:       toolName,
			Usage:      usage,
		},
	}, nil
}

// collect drains the event stream, forwarding text deltas to the Stream
// callback when one is set.
func (d *Dispatcher) collect(ctx context.Context, events <-chan provider.Event) (string, *provider.Usage, error) {
	if d.opts.Stream == nil {
		return provider.CollectText(ctx, events)
	}

	var sb strings.Builder
	var usage *provider.Usage
	for ev := range events {
		select {
		case <-ctx.Done():
			return sb.String(), usage, ctx.Err()
		default:
		}
		switch ev.Type {
		case provider.EventTextDelta:
			sb.WriteString(ev.TextDelta)
			d.opts.Stream(ev.TextDelta)
		case provider.EventDone:
			usage = ev.Usage
		case provider.EventError:
			return sb.String(), usage, ev.Error
		}
	}
	return sb.String(), usage, nil
}

func (d *Dispatcher) record(query string, result *Result) {
	err := d.opts.Store.Record(&learning.Interaction{
		Query:      query,
		Intent:     string(result.Meta.Intent),
		Confidence: result.Meta.Confidence,
		Reasoning:  result.Meta.Reasoning,
		Tool:       result.Meta.Tool,
		Response:   result.Response,
	})
	if err != nil {
		d.logEvent(learning.EventError, fmt.Sprintf("record interaction: %v", err))
	}
}

func (d *Dispatcher) logEvent(t learning.EventType, data any) {
	if d.opts.EventLog != nil {
		d.opts.EventLog.Log(t, data)
	}
}
