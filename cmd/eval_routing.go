package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/torq-ai/torq/internal/router"
)

func newEvalRoutingCmd() *cobra.Command {
	var (
		datasetPath string
		jsonOutput  bool
		strict      bool
	)

	cmd := &cobra.Command{
		Use:   "eval-routing",
		Short: "Evaluate intent routing quality on an offline dataset",
		Long:  "Runs the query classifier on a labeled dataset and reports intent accuracy and confidence hit rate.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := initConfig()
			if datasetPath == "" {
				datasetPath = cfg.Routing.EvalDataset
			}

			ds, err := router.LoadEvalDataset(datasetPath)
			if err != nil {
				return err
			}

			classifier := router.New(router.DefaultRuleSet())
			summary, results := router.EvaluateDataset(classifier, ds)

			if jsonOutput {
				payload := map[string]any{
					"dataset": datasetPath,
					"version": ds.Version,
					"summary": summary,
					"results": results,
				}
				b, _ := json.MarshalIndent(payload, "", "  ")
				fmt.Println(string(b))
			} else {
				printEvalSummary(datasetPath, ds.Version, summary)
				printEvalFailures(results, 12)
			}

			if strict {
				if summary.Fail > 0 {
					return fmt.Errorf("routing evaluation failed: %d/%d cases failed", summary.Fail, summary.Total)
				}
				if summary.IntentAccuracy() < cfg.Routing.MinEvalAccuracy {
					return fmt.Errorf("routing evaluation failed: intent accuracy %.1f%% below floor %.1f%%",
						100*summary.IntentAccuracy(), 100*cfg.Routing.MinEvalAccuracy)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&datasetPath, "dataset", "", "path to evaluation dataset json (default from config)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print JSON output")
	cmd.Flags().BoolVar(&strict, "strict", false, "return non-zero on any failure or accuracy below the configured floor")
	return cmd
}

func printEvalSummary(datasetPath, version string, s router.EvalSummary) {
	fmt.Printf("Intent Routing Evaluation\n")
	fmt.Printf("Dataset: %s (version=%s)\n", datasetPath, version)
	fmt.Printf("Total: %d  Pass: %d  Fail: %d\n", s.Total, s.Pass, s.Fail)
	fmt.Printf("Intent:     %d/%d (%.1f%%)\n", s.IntentCorrect, s.IntentChecks, 100*s.IntentAccuracy())
	fmt.Printf("Confidence: %d/%d (%.1f%%)\n", s.ConfidenceCorrect, s.ConfidenceChecks, 100*s.ConfidenceHitRate())
}

func printEvalFailures(results []router.EvalCaseResult, maxLines int) {
	failed := make([]router.EvalCaseResult, 0, len(results))
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	if len(failed) == 0 {
		fmt.Println("Failures: 0")
		return
	}

	fmt.Printf("Failures: %d\n", len(failed))
	for i, r := range failed {
		if i >= maxLines {
			fmt.Printf("... and %d more failures\n", len(failed)-maxLines)
			return
		}
		fmt.Printf("- %s\n", r.ID)
		fmt.Printf("  expected intent: %s, actual: %s (confidence %.2f)\n", r.ExpectedIntent, r.ActualIntent, r.Confidence)
		fmt.Printf("  reasoning: %s\n", r.Reasoning)
		for _, fail := range r.Failures {
			fmt.Printf("  reason: %s\n", fail)
		}
	}
}
