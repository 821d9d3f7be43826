package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/torq-ai/torq/internal/dispatch"
	"github.com/torq-ai/torq/internal/session"
)

func newRunCmd() *cobra.Command {
	var prompt string

	cmd := &cobra.Command{
		Use:   "run [query]",
		Short: "Answer a single query non-interactively",
		Example: `  torq run "search for the latest go release"
  torq run -P "write code for a rate limiter"
  echo "what is a goroutine" | torq run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			query := prompt
			if query == "" && len(args) > 0 {
				query = strings.Join(args, " ")
			}
			if query == "" {
				// Fall back to stdin so the command composes in pipelines.
				data, err := io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				query = strings.TrimSpace(string(data))
			}
			if query == "" {
				return fmt.Errorf("no query given: pass it as an argument, via -P, or on stdin")
			}
			return runOnce(query)
		},
	}

	cmd.Flags().StringVarP(&prompt, "prompt", "P", "", "the query to answer")

	return cmd
}

// runOnce answers a single query and exits.
func runOnce(query string) error {
	cfg := initConfig()

	rt, err := buildRuntime(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer rt.Close()

	// Non-interactive: stream to stdout, auto-confirm nothing. Tools that
	// need confirmation are denied unless the policy allows them outright.
	rt.opts.Stream = func(delta string) { fmt.Print(delta) }
	d := dispatch.New(rt.opts)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := d.Handle(ctx, session.New(), query)
	if err != nil {
		return err
	}
	fmt.Println()
	if cfg.Routing.Debug {
		printMeta(result.Meta)
	}
	return nil
}
