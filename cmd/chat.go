package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/torq-ai/torq/internal/dispatch"
	"github.com/torq-ai/torq/internal/learning"
	"github.com/torq-ai/torq/internal/session"
)

// runChat starts the interactive chat (REPL) mode.
func runChat() error {
	cfg := initConfig()

	rt, err := buildRuntime(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer rt.Close()

	sess := session.New()

	if el, err := learning.NewEventLogger(sess.ID); err == nil {
		rt.opts.EventLog = el
		el.Log(learning.EventSessionStart, map[string]any{
			"provider": cfg.Provider,
			"model":    cfg.Model,
		})
		defer el.Log(learning.EventSessionEnd, nil)
	}

	reader := bufio.NewReader(os.Stdin)
	interactive := term.IsTerminal(int(os.Stdin.Fd()))

	rt.opts.Stream = func(delta string) { fmt.Print(delta) }
	rt.opts.Confirm = func(toolName string, params json.RawMessage) bool {
		return promptConfirm(reader, rt, toolName, params)
	}
	d := dispatch.New(rt.opts)

	if interactive {
		fmt.Printf("torq %s — %s / %s\n", displayVersion(), cfg.Provider, cfg.Model)
		fmt.Println("Type a query, /help for commands, /quit to exit.")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for {
		if interactive {
			fmt.Print("> ")
		}
		line, err := reader.ReadString('\n')
		if err != nil {
			// EOF: piped input exhausted or terminal closed.
			if interactive {
				fmt.Println()
			}
			return nil
		}
		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if quit := handleSlashCommand(input, sess, rt); quit {
				return nil
			}
			continue
		}

		result, err := d.Handle(ctx, sess, input)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		fmt.Println()
		if cfg.Routing.Debug {
			printMeta(result.Meta)
		}
	}
}

// promptConfirm asks the user to approve a tool execution.
// "a" approves and remembers the approval for the rest of the session.
func promptConfirm(reader *bufio.Reader, rt *runtime, toolName string, params json.RawMessage) bool {
	fmt.Printf("\nAllow %s with %s? [y/N/a]: ", toolName, summarizeParams(params))
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	case "a", "always":
		rt.policy.RememberApproval(toolName, params)
		return true
	default:
		return false
	}
}

func summarizeParams(params json.RawMessage) string {
	s := string(params)
	if len(s) > 120 {
		s = s[:120] + "..."
	}
	return s
}

func printMeta(meta dispatch.Meta) {
	fmt.Printf("[routing] intent=%s confidence=%.2f", meta.Intent, meta.Confidence)
	if meta.Tool != "" {
		fmt.Printf(" tool=%s", meta.Tool)
	}
	fmt.Printf("\n[routing] %s\n", meta.Reasoning)
}

// handleSlashCommand processes REPL commands. Returns true to exit.
func handleSlashCommand(input string, sess *session.Session, rt *runtime) bool {
	switch cmd := strings.Fields(input)[0]; cmd {
	case "/quit", "/exit":
		return true
	case "/help":
		fmt.Println(`Commands:
  /clear      clear conversation history
  /stats      show session token usage
  /tools      list available tools
  /mcp        show MCP server status
  /approvals  show remembered tool approvals
  /reset      forget remembered tool approvals
  /history    show recent routing decisions for this session
  /quit       exit`)
	case "/clear":
		sess.Clear()
		fmt.Println("History cleared.")
	case "/stats":
		fmt.Printf("Session %s: %d messages, %d tokens used (last call: %d prompt / %d completion)\n",
			sess.ID, len(sess.Messages), sess.TokensUsed, sess.PromptTokens, sess.CompletionTokens)
	case "/tools":
		for _, name := range rt.opts.Registry.Names() {
			t, _ := rt.opts.Registry.Get(name)
			fmt.Printf("  %-24s %s\n", name, firstLine(t.Description()))
		}
	case "/mcp":
		if rt.mcpMgr == nil {
			fmt.Println("No MCP servers configured.")
			break
		}
		status := rt.mcpMgr.Status()
		names := make([]string, 0, len(status))
		for name := range status {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("  %-20s %s\n", name, status[name])
		}
	case "/approvals":
		fmt.Println(rt.policy.Approvals())
	case "/reset":
		rt.policy.ResetApprovals()
		fmt.Println("Session approvals cleared.")
	case "/history":
		if rt.opts.EventLog == nil {
			fmt.Println("Event log unavailable.")
			break
		}
		events, err := rt.opts.EventLog.ReadRecent(20)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read events: %v\n", err)
			break
		}
		fmt.Print(learning.FormatEvents(events, "Recent events"))
	default:
		fmt.Printf("Unknown command %s (try /help)\n", cmd)
	}
	return false
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
