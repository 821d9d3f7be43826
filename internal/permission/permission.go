// Package permission decides whether tool calls are allowed to run,
// based on the configured mode, allow/deny lists, and session approvals.
package permission

import "encoding/json"

// Decision represents the outcome of a permission check.
type Decision int

const (
	Allow            Decision = iota // automatically allowed
	Deny                             // denied
	NeedConfirmation                 // requires user confirmation
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	default:
		return "confirm"
	}
}

// Policy checks whether a tool call should be allowed.
type Policy interface {
	Check(toolName string, params json.RawMessage) Decision
}

// AllowAllPolicy allows all tool calls without confirmation.
// Used by the HTTP server where there is no interactive prompt.
type AllowAllPolicy struct{}

func (AllowAllPolicy) Check(_ string, _ json.RawMessage) Decision {
	return Allow
}
