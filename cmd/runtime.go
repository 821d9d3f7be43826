package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/torq-ai/torq/internal/config"
	"github.com/torq-ai/torq/internal/dispatch"
	"github.com/torq-ai/torq/internal/learning"
	"github.com/torq-ai/torq/internal/mcp"
	"github.com/torq-ai/torq/internal/permission"
	"github.com/torq-ai/torq/internal/router"
	"github.com/torq-ai/torq/internal/tools"
)

// runtime bundles everything a dispatching command needs: the configured
// dispatcher options plus the resources that must be closed on exit.
type runtime struct {
	cfg    *config.Config
	opts   dispatch.Options
	policy *permission.DefaultPolicy
	mcpMgr *mcp.Manager
	store  learning.Store
}

// buildRuntime wires provider, tools, MCP servers, permissions and the
// learning store from config. Callers must Close() it.
func buildRuntime(cfg *config.Config) (*runtime, error) {
	p, err := buildProvider(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Model == "" {
		cfg.Model = p.DefaultModel()
	}

	cwd, _ := os.Getwd()
	registry := tools.DefaultRegistry(&tools.WebToolsConfig{
		SearchProvider: cfg.Web.SearchProvider,
		SearchAPIKey:   cfg.Web.SearchAPIKey,
	}, &tools.TerminalToolConfig{
		WorkDir: cwd,
	})
	policy := permission.NewDefaultPolicy(&cfg.Permissions)

	// MCP: load config, connect all servers, register proxy tools
	var mcpMgr *mcp.Manager
	mcpCfg, _ := mcp.LoadMCPConfig(cwd)
	if mcpCfg != nil && len(mcpCfg.MCPServers) > 0 {
		mcpMgr = mcp.NewManager(mcpCfg)
		initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
		errs := mcpMgr.ConnectAll(initCtx)
		initCancel()
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "[mcp] warning: %v\n", e)
		}
		n := mcp.RegisterTools(mcpMgr, registry)
		if n > 0 {
			fmt.Fprintf(os.Stderr, "[mcp] registered %d tool(s)\n", n)
		}
	}

	var store learning.Store = learning.NullStore{}
	if !cfg.Learning.Disabled {
		s, err := learning.Open(learningDataDir(cfg))
		if err != nil {
			fmt.Fprintf(os.Stderr, "[learning] warning: %v (recording disabled)\n", err)
		} else {
			store = s
		}
	}

	return &runtime{
		cfg:    cfg,
		policy: policy,
		mcpMgr: mcpMgr,
		store:  store,
		opts: dispatch.Options{
			Classifier:   router.New(router.DefaultRuleSet()),
			Provider:     p,
			Registry:     registry,
			Policy:       policy,
			Store:        store,
			MaxTokens:    cfg.MaxTokens,
			SystemPrompt: cfg.SystemPrompt,
		},
	}, nil
}

func (rt *runtime) Close() {
	if rt.mcpMgr != nil {
		rt.mcpMgr.Close()
	}
	if c, ok := rt.store.(interface{ Close() error }); ok {
		c.Close()
	}
	if rt.opts.EventLog != nil {
		rt.opts.EventLog.Close()
	}
}
