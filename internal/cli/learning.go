package cli

import (
	"github.com/spf13/cobra"
)

// NewLearningCmd creates the learning command group.
func NewLearningCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "learning",
		Short: "Inspect and manage the learning store",
		Long: `The learning store records every answered query, learns query and
context patterns, and keeps per-user preferences. Patterns with a high
success rate override intent detection for similar queries.

Data lives in settings.dbPath (default ~/.barcin/learning.db) and is
evicted after settings.retentionDays.

Commands:
  status   Show row counts and storage settings
  report   Show the learning performance report
  export   Export learning state as JSON
  import   Import learning state from a JSON export
  evict    Remove data older than the retention window
  clear    Delete all learning data
  suggest  Show what the store would suggest for a query`,
	}

	cmd.AddCommand(newLearningStatusCmd(o))
	cmd.AddCommand(newLearningReportCmd(o))
	cmd.AddCommand(newLearningExportCmd(o))
	cmd.AddCommand(newLearningImportCmd(o))
	cmd.AddCommand(newLearningEvictCmd(o))
	cmd.AddCommand(newLearningClearCmd(o))
	cmd.AddCommand(newLearningSuggestCmd(o))

	return cmd
}
