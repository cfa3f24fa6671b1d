package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/learning"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/storage"
)

// withStore opens the learning store for the duration of fn.
func withStore(o *options, fn func(st *storage.SQLiteStorage, store *learning.Store) error) error {
	st, store, err := requireStore(o.cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st, store)
}

// newLearningStatusCmd shows learning row counts.
func newLearningStatusCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show learning statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(o, func(st *storage.SQLiteStorage, store *learning.Store) error {
				stats, err := store.Stats(contextOf(cmd))
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				fmt.Fprintln(w, "Learning Status")
				fmt.Fprintln(w, "===============")
				fmt.Fprintf(w, "Database:      %s\n", st.Path())
				fmt.Fprintf(w, "Retention:     %d days\n", o.cfg.Settings.RetentionDays)
				fmt.Fprintf(w, "Interactions:  %s\n", humanize.Comma(int64(stats.Interactions)))
				fmt.Fprintf(w, "Patterns:      %s\n", humanize.Comma(int64(stats.Patterns)))
				fmt.Fprintf(w, "Preferences:   %s\n", humanize.Comma(int64(stats.Preferences)))
				if fi, err := os.Stat(st.Path()); err == nil {
					fmt.Fprintf(w, "Size on disk:  %s\n", humanize.Bytes(uint64(fi.Size())))
				}
				return nil
			})
		},
	}
}

// newLearningReportCmd prints the performance report.
func newLearningReportCmd(o *options) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show the learning performance report",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(o, func(_ *storage.SQLiteStorage, store *learning.Store) error {
				rep, err := store.Report(contextOf(cmd))
				if err != nil {
					return err
				}
				if jsonOutput {
					out, err := formatJSON(rep)
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), out)
					return nil
				}
				printReport(cmd.OutOrStdout(), rep)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")
	return cmd
}

func printReport(w io.Writer, rep learning.Report) {
	fmt.Fprintf(w, "Learning Report (%s)\n", rep.GeneratedAt.Local().Format(time.DateTime))
	fmt.Fprintln(w, "==========================================")
	fmt.Fprintf(w, "Queries:            %s\n", humanize.Comma(int64(rep.Summary.TotalQueries)))
	fmt.Fprintf(w, "Success rate:       %.1f%%\n", rep.Summary.SuccessRate*100)
	fmt.Fprintf(w, "Avg response time:  %.3fs\n", rep.Summary.AvgResponseTime)
	fmt.Fprintf(w, "Learned patterns:   %d\n", rep.Summary.LearnedPatterns)
	fmt.Fprintf(w, "Trend:              %s (%+.3f)\n", rep.Progress.Trend, rep.Progress.Improvement)

	printCounts(w, "Top intents", rep.TopIntents)
	printCounts(w, "Error patterns", rep.ErrorPatterns)
	printCounts(w, "Low confidence intents", rep.LowConfidence)

	if len(rep.Recommendations) > 0 {
		fmt.Fprintln(w, "\nRecommendations:")
		for _, r := range rep.Recommendations {
			fmt.Fprintf(w, "  - %s\n", r)
		}
	}
}

func printCounts(w io.Writer, title string, counts []learning.Count) {
	if len(counts) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s:\n", title)
	for _, c := range counts {
		fmt.Fprintf(w, "  %-24s %d\n", c.Name, c.Count)
	}
}

// newLearningExportCmd exports learning state as JSON.
func newLearningExportCmd(o *options) *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export learning state as JSON",
		Example: `  barcin learning export
  barcin learning export -o backup.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(o, func(_ *storage.SQLiteStorage, store *learning.Store) error {
				var buf bytes.Buffer
				if err := store.Export(contextOf(cmd), &buf); err != nil {
					return err
				}
				if outputFile == "" {
					_, err := buf.WriteTo(cmd.OutOrStdout())
					return err
				}
				if err := os.WriteFile(outputFile, buf.Bytes(), 0600); err != nil {
					return fmt.Errorf("failed to write %s: %w", outputFile, err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "✓ Exported learning data to %s (%s)\n", outputFile, humanize.Bytes(uint64(buf.Len())))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	return cmd
}

// newLearningImportCmd loads a previous export.
func newLearningImportCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import learning state from a JSON export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[0], err)
			}
			defer f.Close()

			return withStore(o, func(_ *storage.SQLiteStorage, store *learning.Store) error {
				stats, err := store.Import(contextOf(cmd), f)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Imported %d interactions, %d patterns, %d preferences\n",
					stats.Interactions, stats.Patterns, stats.Preferences)
				return nil
			})
		},
	}
}

// newLearningEvictCmd applies the retention window once.
func newLearningEvictCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "evict",
		Short: "Remove learning data older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(o, func(_ *storage.SQLiteStorage, store *learning.Store) error {
				stats, err := store.Evict(contextOf(cmd), time.Now())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Evicted %d interactions, %d patterns, %d preferences older than %d days\n",
					stats.Interactions, stats.Patterns, stats.Preferences, o.cfg.Settings.RetentionDays)
				return nil
			})
		},
	}
}

// newLearningClearCmd deletes all learning data.
func newLearningClearCmd(o *options) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all learning data",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes && !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), "This will delete all learning data. Continue?") {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
				return nil
			}
			return withStore(o, func(_ *storage.SQLiteStorage, store *learning.Store) error {
				if err := store.Clear(contextOf(cmd)); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Learning data cleared successfully")
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

// newLearningSuggestCmd shows the store's suggestion for a query.
func newLearningSuggestCmd(o *options) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "suggest <query>",
		Short: "Show the learned suggestion for a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(o, func(_ *storage.SQLiteStorage, store *learning.Store) error {
				return runSuggest(contextOf(cmd), store, strings.Join(args, " "), userID, cmd.OutOrStdout())
			})
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "user", "User id for preference lookup")
	return cmd
}

func runSuggest(ctx context.Context, store *learning.Store, query, userID string, w io.Writer) error {
	s := store.Suggest(ctx, query, userID)
	out, err := formatJSON(s)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, out)
	return nil
}
