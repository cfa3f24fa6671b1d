package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/benchmark"
)

// NewBenchmarkCmd creates the 'benchmark' command for routing accuracy.
func NewBenchmarkCmd(o *options) *cobra.Command {
	var (
		jsonOutput  bool
		suiteFile   string
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Measure intent and route accuracy on a labelled query suite",
		Long: `Answer a labelled query suite and report how often the assistant
picked the expected intent and route, with latency per route.

The built-in suite covers arithmetic, statistics, store lookups, analytics,
help and web search. Pass --suite to use a JSON array of cases:

  [{"query": "ortalama maaş", "role": "admin", "wantIntent": "statistics", "wantRoute": "math"}]

Benchmark runs never write to the learning store.`,
		Example: `  barcin benchmark
  barcin benchmark --json
  barcin benchmark --suite cases.json -n 8`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cases := benchmark.DefaultSuite()
			if suiteFile != "" {
				var err error
				if cases, err = loadSuite(suiteFile); err != nil {
					return err
				}
			}

			// learned overrides would hide what the detector does on its own
			cfg := *o.cfg
			settings := *cfg.Settings
			settings.LearningEnabled = false
			cfg.Settings = &settings

			rt, err := newRuntime(contextOf(cmd), &cfg, runtimeOptions{})
			if err != nil {
				return err
			}
			defer rt.Close()

			return runBenchmark(contextOf(cmd), rt.assistant, cases, concurrency, jsonOutput, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")
	cmd.Flags().StringVar(&suiteFile, "suite", "", "JSON file with benchmark cases")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "n", benchmark.DefaultConcurrency, "Cases answered in parallel")
	return cmd
}

func loadSuite(path string) ([]benchmark.Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read suite: %w", err)
	}
	var cases []benchmark.Case
	if err := json.Unmarshal(data, &cases); err != nil {
		return nil, fmt.Errorf("invalid suite %s: %w", path, err)
	}
	if len(cases) == 0 {
		return nil, fmt.Errorf("suite %s has no cases", path)
	}
	return cases, nil
}

// runBenchmark executes the suite and prints the result.
func runBenchmark(ctx context.Context, a benchmark.Asker, cases []benchmark.Case, concurrency int, jsonOutput bool, w io.Writer) error {
	result, err := benchmark.Run(ctx, a, cases, concurrency)
	if err != nil {
		return err
	}
	if jsonOutput {
		out, err := formatJSON(result)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, out)
		return nil
	}
	fmt.Fprintln(w)
	fmt.Fprint(w, benchmark.FormatResult(result))
	return nil
}
