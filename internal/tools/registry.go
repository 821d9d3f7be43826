package tools

import "sort"

// Registry manages all registered tools.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool to the registry, replacing any previous tool with
// the same name.
func (r *Registry) Register(t Tool) {
	r.tools[t.Name()] = t
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// All returns all registered tools sorted by name.
func (r *Registry) All() []Tool {
	result := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name() < result[j].Name()
	})
	return result
}

// Names returns the sorted names of all registered tools.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Filtered returns a new registry containing only the named tools.
// Unknown names are ignored.
func (r *Registry) Filtered(names []string) *Registry {
	out := NewRegistry()
	for _, name := range names {
		if t, ok := r.tools[name]; ok {
			out.Register(t)
		}
	}
	return out
}

// WebToolsConfig holds configuration for web-related tools.
type WebToolsConfig struct {
	SearchProvider string // "tavily", "exa", or "jina"
	SearchAPIKey   string
}

// TerminalToolConfig holds configuration for terminal command execution.
type TerminalToolConfig struct {
	WorkDir  string // working directory for commands
	AuditLog string // path for logging executed commands, empty disables
}

// DefaultRegistry creates a registry with all built-in tools.
func DefaultRegistry(webCfg *WebToolsConfig, termCfg *TerminalToolConfig) *Registry {
	r := NewRegistry()
	if webCfg != nil {
		r.Register(NewWebSearchTool(webCfg.SearchProvider, webCfg.SearchAPIKey))
	} else {
		r.Register(NewWebSearchTool("", ""))
	}
	r.Register(&WebFetchTool{})
	term := &TerminalTool{}
	if termCfg != nil {
		term.WorkDir = termCfg.WorkDir
		term.AuditLog = termCfg.AuditLog
	}
	r.Register(term)
	return r
}
