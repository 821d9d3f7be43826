// Package tools defines the tool interface and shared types, and provides
// the tool registry used by the dispatch layer.
package tools

import (
	"context"
	"encoding/json"
)

// PermissionLevel classifies how sensitive a tool's operation is.
type PermissionLevel int

const (
	PermissionRead      PermissionLevel = iota // read-only: auto-approved
	PermissionExecute                          // executes commands: ask by default
	PermissionDangerous                        // destructive: always confirm
)

// ToolResult is the outcome of a tool execution.
type ToolResult struct {
	Content   string // primary output
	IsError   bool   // whether this is an error result
	Truncated bool   // whether the content was truncated
}

// Tool is the unified interface for everything the dispatcher can invoke.
type Tool interface {
	// Name returns the tool's snake_case identifier, e.g. "web_search".
	// This is the name used in LLM tool calls and must be unique.
	Name() string

	// Description returns the tool description shown to the LLM.
	Description() string

	// Parameters returns the JSON Schema properties for the tool's input.
	Parameters() map[string]any

	// Execute runs the tool. ctx comes from the dispatch layer and is
	// cancelled on user interrupt or request timeout.
	Execute(ctx context.Context, params json.RawMessage) (ToolResult, error)

	// IsReadOnly reports whether the tool has no side effects.
	IsReadOnly() bool

	// PermissionLevel returns the permission level required to run the tool.
	PermissionLevel() PermissionLevel
}
