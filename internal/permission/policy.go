package permission

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/torq-ai/torq/internal/config"
)

// shellMetaChars mark compound commands that must never match an allow prefix.
var shellMetaChars = []string{";", "&&", "||", "$(", "`", "|"}

// DefaultPolicy implements Policy using the configured permission mode plus
// allow/deny lists and in-session approvals.
//
// Check order:
//  1. denied commands (always win, even in yolo mode)
//  2. auto-approved tool names
//  3. allowed command prefixes
//  4. approvals remembered this session
//  5. mode default: yolo allows, auto-approve allows non-terminal tools,
//     interactive asks
type DefaultPolicy struct {
	cfg *config.PermissionConfig

	mu       sync.Mutex
	approved map[string]bool
}

// NewDefaultPolicy creates a DefaultPolicy from config.
func NewDefaultPolicy(cfg *config.PermissionConfig) *DefaultPolicy {
	return &DefaultPolicy{
		cfg:      cfg,
		approved: make(map[string]bool),
	}
}

func (p *DefaultPolicy) Check(toolName string, params json.RawMessage) Decision {
	command := extractParam(params, "command")

	// Denied commands override everything.
	if command != "" {
		lower := strings.ToLower(command)
		for _, denied := range p.cfg.DeniedCommands {
			if denied != "" && strings.Contains(lower, strings.ToLower(denied)) {
				return Deny
			}
		}
	}

	for _, name := range p.cfg.AutoApproveTools {
		if name == toolName {
			return Allow
		}
	}

	if command != "" && commandAllowed(command, p.cfg.AllowedCommands) {
		return Allow
	}

	p.mu.Lock()
	approved := p.approved[approvalKey(toolName, params)]
	p.mu.Unlock()
	if approved {
		return Allow
	}

	switch p.cfg.Mode {
	case "yolo":
		return Allow
	case "auto-approve":
		// Command execution still asks; everything else is approved.
		if command != "" {
			return NeedConfirmation
		}
		return Allow
	default: // interactive
		return NeedConfirmation
	}
}

// RememberApproval records a user approval for the rest of the session.
// Terminal commands are remembered by their first word, so approving
// "npm install" also approves "npm run build".
func (p *DefaultPolicy) RememberApproval(toolName string, params json.RawMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.approved[approvalKey(toolName, params)] = true
}

// ResetApprovals clears all session approvals.
func (p *DefaultPolicy) ResetApprovals() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.approved = make(map[string]bool)
}

// Approvals returns a human-readable summary of session approvals,
// or "" when none exist.
func (p *DefaultPolicy) Approvals() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.approved) == 0 {
		return ""
	}

	keys := make([]string, 0, len(p.approved))
	for k := range p.approved {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Session approvals (%d):\n", len(keys))
	for _, k := range keys {
		fmt.Fprintf(&sb, "  - %s\n", k)
	}
	return sb.String()
}

// approvalKey builds the session-approval key for a tool call.
// Commands are keyed by their first word, URL-ish tools by their target.
func approvalKey(toolName string, params json.RawMessage) string {
	if cmd := extractParam(params, "command"); cmd != "" {
		fields := strings.Fields(cmd)
		if len(fields) > 0 {
			return toolName + ":" + fields[0]
		}
	}
	if u := extractParam(params, "url"); u != "" {
		return toolName + ":" + u
	}
	return toolName
}

// commandAllowed reports whether cmd matches an allowed prefix on a word
// boundary. Compound commands (pipes, chaining, substitution) never match,
// so an allow entry cannot be abused for injection.
func commandAllowed(cmd string, allowed []string) bool {
	cmd = strings.TrimSpace(cmd)
	if cmd == "" || len(allowed) == 0 {
		return false
	}
	for _, meta := range shellMetaChars {
		if strings.Contains(cmd, meta) {
			return false
		}
	}
	for _, prefix := range allowed {
		prefix = strings.TrimSpace(prefix)
		if prefix == "" {
			continue
		}
		if cmd == prefix || strings.HasPrefix(cmd, prefix+" ") {
			return true
		}
	}
	return false
}

// extractParam pulls a single string field out of raw tool params.
func extractParam(params json.RawMessage, field string) string {
	if len(params) == 0 {
		return ""
	}
	var m map[string]any
	if err := json.Unmarshal(params, &m); err != nil {
		return ""
	}
	if v, ok := m[field].(string); ok {
		return v
	}
	return ""
}
