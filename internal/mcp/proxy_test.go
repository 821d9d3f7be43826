package mcp

import (
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/torq-ai/torq/internal/tools"
)

func TestExtractProperties(t *testing.T) {
	cases := []struct {
		name   string
		schema any
		want   int
	}{
		{"nil schema", nil, 0},
		{"not a map", "string", 0},
		{"no properties", map[string]any{"type": "object"}, 0},
		{"with properties", map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{"type": "string"},
				"limit": map[string]any{"type": "integer"},
			},
		}, 2},
	}

	for _, tc := range cases {
		got := extractProperties(tc.schema)
		if len(got) != tc.want {
			t.Errorf("%s: got %d properties, want %d", tc.name, len(got), tc.want)
		}
	}
}

func TestFindServerTool(t *testing.T) {
	registry := tools.NewRegistry()
	registry.Register(&ProxyTool{
		serverName: "perplexity",
		tool:       &mcpsdk.Tool{Name: "search"},
		fullName:   "mcp__perplexity__search",
	})
	registry.Register(tools.NewWebSearchTool("jina", ""))

	cases := []struct {
		target string
		found  bool
	}{
		{"perplexity", true},
		{"the perplexity server", true},
		{"Perplexity", true},
		{"google", false},
		{"", false},
	}

	for _, tc := range cases {
		tool, ok := FindServerTool(registry, tc.target)
		if ok != tc.found {
			t.Errorf("FindServerTool(%q) found = %v, want %v", tc.target, ok, tc.found)
			continue
		}
		if ok && tool.Name() != "mcp__perplexity__search" {
			t.Errorf("FindServerTool(%q) = %q, want mcp__perplexity__search", tc.target, tool.Name())
		}
	}
}

func TestProxyToolNameAndDescription(t *testing.T) {
	p := &ProxyTool{
		serverName: "docs",
		tool:       &mcpsdk.Tool{Name: "lookup", Description: "Look up documentation"},
		fullName:   "mcp__docs__lookup",
	}

	if p.Name() != "mcp__docs__lookup" {
		t.Fatalf("Name() = %q", p.Name())
	}
	if p.Description() != "[MCP: docs] Look up documentation" {
		t.Fatalf("Description() = %q", p.Description())
	}
}
