package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/analytics"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/config"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/dataset"
)

var validFocus = map[string]analytics.Focus{
	string(analytics.FocusComprehensive):   analytics.FocusComprehensive,
	string(analytics.FocusAnomaly):         analytics.FocusAnomaly,
	string(analytics.FocusTrend):           analytics.FocusTrend,
	string(analytics.FocusRecommendations): analytics.FocusRecommendations,
}

// NewAnalyzeCmd creates the 'analyze' command that prints a dataset report.
func NewAnalyzeCmd(o *options) *cobra.Command {
	var (
		focus      string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "analyze <dataset>",
		Short: "Print the analytics report of a dataset",
		Long: `Run the analytics engine over one dataset: basic statistics, IQR
outliers, data quality, correlations, revenue growth, department salary
spread and recommendations.`,
		Example: `  barcin analyze magazalar.csv
  barcin analyze calisanlar.csv --focus anomaly
  barcin analyze magazalar.csv --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, ok := validFocus[focus]
			if !ok {
				return fmt.Errorf("unknown focus %q (want comprehensive, anomaly, trend or recommendations)", focus)
			}
			reg, err := dataset.LoadDir(contextOf(cmd), config.ExpandPath(o.cfg.Settings.DataDir))
			if err != nil {
				return err
			}
			return runAnalyze(reg, args[0], f, jsonOutput, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&focus, "focus", "f", string(analytics.FocusComprehensive), "Report section: comprehensive, anomaly, trend, recommendations")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output the full report as JSON")
	return cmd
}

func runAnalyze(reg *dataset.Registry, name string, focus analytics.Focus, jsonOutput bool, w io.Writer) error {
	ds, ok := reg.Get(name)
	if !ok {
		var names []string
		for _, d := range reg.Datasets() {
			names = append(names, d.Name)
		}
		return fmt.Errorf("dataset '%s' not found (available: %s)", name, strings.Join(names, ", "))
	}

	report := analytics.New().Analyze(ds)
	if jsonOutput {
		out, err := formatJSON(report)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, out)
		return nil
	}
	fmt.Fprintln(w, analytics.Respond(report, focus).Text)
	return nil
}
