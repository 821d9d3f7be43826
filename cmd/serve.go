package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/torq-ai/torq/internal/server"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve chat requests over HTTP",
		Long: "Starts an HTTP server exposing POST /chat, GET /tools and GET /healthz.\n" +
			"Each request runs as an independent single-shot session.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := initConfig()
			if addr != "" {
				cfg.Server.Addr = addr
			}

			// There is no human to confirm tool runs over HTTP, so the
			// interactive default would deny every tool. Promote it.
			if cfg.Permissions.Mode == "" || cfg.Permissions.Mode == "interactive" {
				cfg.Permissions.Mode = "auto-approve"
			}

			rt, err := buildRuntime(cfg)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			defer rt.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := server.New(cfg.Server.Addr, cfg.Server.RequestTimeoutSec, rt.opts)
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, e.g. :8080)")

	return cmd
}
