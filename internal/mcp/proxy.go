package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/torq-ai/torq/internal/tools"
)

// ProxyTool wraps a single MCP tool as a tools.Tool so the dispatcher can
// call it like any built-in tool.
//
// Tool name format: mcp__<server>__<tool>
// Example: mcp__perplexity__search
type ProxyTool struct {
	serverName string
	tool       *mcpsdk.Tool
	manager    *Manager
	fullName   string
}

var _ tools.Tool = (*ProxyTool)(nil)

func (p *ProxyTool) Name() string { return p.fullName }

// ServerName returns the MCP server this tool belongs to.
func (p *ProxyTool) ServerName() string { return p.serverName }

func (p *ProxyTool) Description() string {
	desc := p.tool.Description
	if desc == "" {
		desc = p.tool.Name
	}
	return fmt.Sprintf("[MCP: %s] %s", p.serverName, desc)
}

// Parameters extracts the properties object from the tool's InputSchema.
func (p *ProxyTool) Parameters() map[string]any {
	return extractProperties(p.tool.InputSchema)
}

func (p *ProxyTool) Execute(ctx context.Context, params json.RawMessage) (tools.ToolResult, error) {
	var args map[string]any
	if len(params) > 0 {
		if err := json.Unmarshal(params, &args); err != nil {
			return tools.ToolResult{
				Content: fmt.Sprintf("invalid params: %v", err),
				IsError: true,
			}, nil
		}
	}
	if args == nil {
		args = map[string]any{}
	}

	output, isError, err := p.manager.CallTool(ctx, p.serverName, p.tool.Name, args)
	if err != nil {
		return tools.ToolResult{
			Content: fmt.Sprintf("mcp tool error: %v", err),
			IsError: true,
		}, nil
	}

	return tools.ToolResult{Content: output, IsError: isError}, nil
}

// IsReadOnly returns false; MCP tools are not read-only by default.
func (p *ProxyTool) IsReadOnly() bool { return false }

// PermissionLevel returns PermissionExecute; MCP tools require confirmation
// unless auto-approved by policy.
func (p *ProxyTool) PermissionLevel() tools.PermissionLevel {
	return tools.PermissionExecute
}

// RegisterTools registers all connected servers' tools into the registry.
// Returns the total number of tools registered.
func RegisterTools(manager *Manager, registry *tools.Registry) int {
	count := 0
	for serverName, serverTools := range manager.AllTools() {
		for _, t := range serverTools {
			registry.Register(&ProxyTool{
				serverName: serverName,
				tool:       t,
				manager:    manager,
				fullName:   fmt.Sprintf("mcp__%s__%s", serverName, t.Name),
			})
			count++
		}
	}
	return count
}

// FindServerTool looks up a registered MCP proxy tool whose server name
// matches the given target (case-insensitive substring match either way).
// Used by the dispatcher to resolve "use <target> to search ..." queries.
func FindServerTool(registry *tools.Registry, target string) (tools.Tool, bool) {
	target = strings.ToLower(strings.TrimSpace(target))
	if target == "" {
		return nil, false
	}
	for _, t := range registry.All() {
		proxy, ok := t.(*ProxyTool)
		if !ok {
			continue
		}
		server := strings.ToLower(proxy.serverName)
		if strings.Contains(server, target) || strings.Contains(target, server) {
			return proxy, true
		}
	}
	return nil, false
}

// extractProperties extracts JSON Schema properties from an MCP
// Tool.InputSchema, which arrives as a JSON-deserialized map with the
// structure {"type":"object","properties":{...},...}.
func extractProperties(schema any) map[string]any {
	if schema == nil {
		return map[string]any{}
	}

	m, ok := schema.(map[string]any)
	if !ok {
		return map[string]any{}
	}

	props, ok := m["properties"].(map[string]any)
	if !ok {
		return map[string]any{}
	}

	return props
}
