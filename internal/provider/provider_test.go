package provider

import (
	"context"
	"errors"
	"testing"
)

func TestOpenAIContextWindow(t *testing.T) {
	tests := []struct {
		model string
		want  int
	}{
		{"gpt-4o-mini", 128000},
		{"gpt-4o", 128000},
		{"o1-preview", 200000},
		{"o3-mini", 200000},
		{"deepseek-chat", 64000},
		{"llama-3.3-70b-versatile", 128000},
	}

	for _, tt := range tests {
		p := &OpenAIProvider{model: tt.model}
		if got := p.ContextWindow(); got != tt.want {
			t.Fatalf("ContextWindow(%s) = %d, want %d", tt.model, got, tt.want)
		}
	}
}

func TestAnthropicContextWindow(t *testing.T) {
	p := &AnthropicProvider{model: "claude-sonnet-4-20250514"}
	if got := p.ContextWindow(); got != 200000 {
		t.Fatalf("ContextWindow() = %d, want 200000", got)
	}
}

func TestOpenAIProviderNameDetection(t *testing.T) {
	tests := []struct {
		baseURL string
		want    string
	}{
		{"", "openai"},
		{"https://api.deepseek.com/v1", "deepseek"},
		{"https://api.moonshot.cn/v1", "kimi"},
		{"https://open.bigmodel.cn/api/paas/v4", "glm"},
		{"https://api.groq.com/openai/v1", "groq"},
		{"https://example.com/v1", "openai"},
	}

	for _, tt := range tests {
		p := NewOpenAIProvider("sk-test", tt.baseURL, "gpt-4o-mini")
		if got := p.Name(); got != tt.want {
			t.Fatalf("Name() for baseURL %q = %q, want %q", tt.baseURL, got, tt.want)
		}
	}
}

func TestOpenAIDefaultModelFallback(t *testing.T) {
	p := NewOpenAIProvider("sk-test", "", "")
	if p.DefaultModel() != "gpt-4o-mini" {
		t.Fatalf("DefaultModel() = %q, want gpt-4o-mini", p.DefaultModel())
	}
}

func TestExtractReasoningContent(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"present", `{"reasoning_content":"thinking..."}`, "thinking..."},
		{"absent", `{"content":"hello"}`, ""},
		{"invalid json", `{broken`, ""},
		{"empty", `{}`, ""},
	}

	for _, tt := range tests {
		if got := extractReasoningContent(tt.raw); got != tt.want {
			t.Fatalf("%s: extractReasoningContent(%q) = %q, want %q", tt.name, tt.raw, got, tt.want)
		}
	}
}

func TestTextMessage(t *testing.T) {
	msg := TextMessage(RoleUser, "hello")
	if msg.Role != RoleUser {
		t.Fatalf("role = %q, want user", msg.Role)
	}
	if len(msg.Content) != 1 || msg.Content[0].Type != ContentTypeText || msg.Content[0].Text != "hello" {
		t.Fatalf("unexpected content: %+v", msg.Content)
	}
}

func TestCollectText(t *testing.T) {
	ch := make(chan Event, 4)
	ch <- Event{Type: EventTextDelta, TextDelta: "hello, "}
	ch <- Event{Type: EventTextDelta, TextDelta: "world"}
	ch <- Event{Type: EventDone, Usage: &Usage{InputTokens: 10, OutputTokens: 2}}
	close(ch)

	text, usage, err := CollectText(context.Background(), ch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "hello, world" {
		t.Fatalf("text = %q, want %q", text, "hello, world")
	}
	if usage == nil || usage.InputTokens != 10 || usage.OutputTokens != 2 {
		t.Fatalf("unexpected usage: %+v", usage)
	}
}

func TestCollectTextStopsOnError(t *testing.T) {
	wantErr := errors.New("stream broke")
	ch := make(chan Event, 3)
	ch <- Event{Type: EventTextDelta, TextDelta: "partial"}
	ch <- Event{Type: EventError, Error: wantErr}
	close(ch)

	text, _, err := CollectText(context.Background(), ch)
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected stream error, got %v", err)
	}
	if text != "partial" {
		t.Fatalf("text = %q, want partial output preserved", text)
	}
}

func TestOpenAIBuildMessagesToolRoundTrip(t *testing.T) {
	p := NewOpenAIProvider("sk-test", "", "gpt-4o-mini")
	req := &ChatRequest{
		SystemPrompt: "you are helpful",
		Messages: []Message{
			TextMessage(RoleUser, "search for go releases"),
			{
				Role: RoleAssistant,
				Content: []Content{
					{Type: ContentTypeToolUse, ToolUseID: "call_1", ToolName: "web_search", ToolInput: []byte(`{"query":"go releases"}`)},
				},
			},
			{
				Role: RoleUser,
				Content: []Content{
					{Type: ContentTypeToolResult, ToolUseID: "call_1", ToolResult: "Go 1.24 released"},
				},
			},
		},
	}

	msgs := p.buildMessages(req)
	// system + user + assistant + tool result
	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(msgs))
	}
}

func TestOpenAIBuildTools(t *testing.T) {
	p := NewOpenAIProvider("sk-test", "", "gpt-4o-mini")
	tools := p.buildTools([]ToolSchema{
		{Name: "web_search", Description: "search the web", Parameters: map[string]any{
			"query": map[string]any{"type": "string"},
		}},
	})
	if len(tools) != 1 {
		t.Fatalf("expected 1 tool, got %d", len(tools))
	}
	if tools[0].Function.Name != "web_search" {
		t.Fatalf("tool name = %q, want web_search", tools[0].Function.Name)
	}
}
