package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/config"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/dataset"
)

// NewDatasetsCmd creates the 'datasets' command listing loaded data.
func NewDatasetsCmd(o *options) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "datasets",
		Aliases: []string{"ls"},
		Short:   "List loaded datasets and their column roles",
		Example: `  barcin datasets
  barcin datasets --data-dir ./data --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := config.ExpandPath(o.cfg.Settings.DataDir)
			reg, err := dataset.LoadDir(contextOf(cmd), dir)
			if err != nil {
				return err
			}
			return runDatasets(reg, jsonOutput, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")
	return cmd
}

type datasetSummary struct {
	Name    string            `json:"name"`
	Rows    int               `json:"rows"`
	Columns []string          `json:"columns"`
	Roles   map[string]string `json:"roles"`
}

func runDatasets(reg *dataset.Registry, jsonOutput bool, w io.Writer) error {
	if jsonOutput {
		out := struct {
			Datasets  []datasetSummary `json:"datasets"`
			Documents []string         `json:"documents"`
		}{Datasets: []datasetSummary{}, Documents: []string{}}
		for _, ds := range reg.Datasets() {
			roles := make(map[string]string, len(ds.Roles))
			for r, c := range ds.Roles {
				roles[string(r)] = c
			}
			out.Datasets = append(out.Datasets, datasetSummary{Name: ds.Name, Rows: len(ds.Rows), Columns: ds.Columns, Roles: roles})
		}
		for _, doc := range reg.Documents() {
			out.Documents = append(out.Documents, doc.Name)
		}
		s, err := formatJSON(out)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, s)
		return nil
	}

	if reg.Empty() {
		fmt.Fprintln(w, "No datasets loaded.")
		fmt.Fprintln(w, "Put CSV files in the data directory or pass --data-dir.")
		return nil
	}

	fmt.Fprintf(w, "Datasets (%d):\n\n", len(reg.Datasets()))
	for _, ds := range reg.Datasets() {
		fmt.Fprintf(w, "  %s\n", ds.Name)
		fmt.Fprintf(w, "    Rows:    %s\n", humanize.Comma(int64(len(ds.Rows))))
		fmt.Fprintf(w, "    Columns: %s\n", strings.Join(ds.Columns, ", "))
		var roles []string
		for _, r := range dataset.AllRoles {
			if col, ok := ds.Roles[r]; ok {
				roles = append(roles, fmt.Sprintf("%s=%s", r, col))
			}
		}
		if len(roles) > 0 {
			fmt.Fprintf(w, "    Roles:   %s\n", strings.Join(roles, ", "))
		}
		fmt.Fprintln(w)
	}

	if docs := reg.Documents(); len(docs) > 0 {
		fmt.Fprintf(w, "Documents (%d):\n", len(docs))
		for _, doc := range docs {
			fmt.Fprintf(w, "  %s (%s)\n", doc.Name, humanize.Bytes(uint64(len(doc.Text))))
		}
	}
	return nil
}
