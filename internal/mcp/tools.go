package mcp

import (
	"fmt"
	"strings"
)

// tools returns the tool definitions with descriptions that list the
// loaded datasets, so the client model knows what it can ask about.
func (s *Server) tools() []map[string]any {
	names := s.datasetNames()
	catalog := "none"
	if len(names) > 0 {
		catalog = strings.Join(names, ", ")
	}

	return []map[string]any{
		{
			"name": "barcin_ask",
			"description": fmt.Sprintf(`Answer a question (Turkish or English) about company data.
WHEN TO USE: arithmetic, salary and revenue statistics, store or employee lookups,
department counts, document questions and general web questions.
AVAILABLE DATASETS: %s
Examples: "ortalama maaş", "Kadıköy mağazası bilgileri", "500 * 12 kaç eder?"`, catalog),
			"inputSchema": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "The question, at most 1000 characters",
					},
					"session_id": map[string]any{
						"type":        "string",
						"description": "Optional session id to group related questions",
					},
				},
				"required": []string{"query"},
			},
		},
		{
			"name":        "barcin_datasets",
			"description": "List loaded datasets with row counts and columns, and loaded text documents.",
			"inputSchema": map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
		{
			"name": "barcin_analyze",
			"description": `Run the analytics engine over one dataset: statistics, outliers,
data quality, correlations, growth and recommendations.`,
			"inputSchema": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"dataset": map[string]any{
						"type":        "string",
						"description": "Dataset name",
						"enum":        names,
					},
					"focus": map[string]any{
						"type":        "string",
						"description": "Report section",
						"enum":        []string{"comprehensive", "anomaly", "trend", "recommendations"},
					},
				},
				"required": []string{"dataset"},
			},
		},
		{
			"name":        "barcin_feedback",
			"description": "Rate the latest answer to a query so the assistant can learn from it.",
			"inputSchema": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "The query that was answered",
					},
					"feedback": map[string]any{
						"type": "string",
						"enum": []string{"positive", "negative", "helpful"},
					},
				},
				"required": []string{"query", "feedback"},
			},
		},
		{
			"name":        "barcin_learning_report",
			"description": "Learning performance report: success rate, top intents, error patterns and recommendations.",
			"inputSchema": map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
	}
}

func (s *Server) datasetNames() []string {
	names := []string{}
	for _, ds := range s.assistant.Registry().Datasets() {
		names = append(names, ds.Name)
	}
	return names
}
