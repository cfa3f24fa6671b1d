package intent

import (
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/extract"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/textnorm"
)

var actions = map[Intent]string{
	Arithmetic:               "execute_calculation",
	Statistics:               "compute_statistics",
	Comparison:               "compare_entities",
	Percentage:               "execute_calculation",
	DepartmentAnalysis:       "aggregate_data",
	EmployeeCount:            "aggregate_data",
	StoreQuery:               "fetch_data",
	IndividualSalary:         "fetch_employee_data",
	SalaryAnalysis:           "generate_report",
	ListAllEmployees:         "fetch_data",
	CountDepartmentEmployees: "aggregate_data",
	DataAnalysis:             "generate_report",
	TrendAnalysis:            "analyze_trends",
	Help:                     "provide_help",
	WebSearch:                "search_web",
	ContextSummary:           "general_query",
}

func suggestAction(it Intent, ent extract.Entities, confidence float64) string {
	if confidence < ClarifyThreshold && it != WebSearch && it != ContextSummary {
		return "clarify_intent"
	}
	switch {
	case it == Arithmetic && len(ent.Numbers) >= 2:
		return "execute_arithmetic"
	case it == Comparison && len(ent.Employees) > 0:
		return "compare_employees"
	}
	if a, ok := actions[it]; ok {
		return a
	}
	return "general_query"
}

// contextNeeded lists the pieces of information the query is missing for
// the chosen intent.
func contextNeeded(it Intent, ent extract.Entities, normalized string) []string {
	needed := []string{}
	switch it {
	case Arithmetic:
		if len(ent.Numbers) == 0 {
			needed = append(needed, "numbers")
		}
		if len(ent.Operators) == 0 && !ent.Has(extract.Calculation) && !ent.Has(extract.Statistics) {
			needed = append(needed, "operation_type")
		}
	case Comparison:
		if !textnorm.ContainsAny(normalized, "maaş", "satış", "ciro", "performans") {
			needed = append(needed, "comparison_metric")
		}
	case DataAnalysis, TrendAnalysis:
		if len(ent.Named()) == 0 && len(ent.Variables) == 0 {
			needed = append(needed, "data_source")
		}
	case CountDepartmentEmployees, DepartmentAnalysis:
		if len(ent.Departments) == 0 {
			needed = append(needed, "department")
		}
	}
	return needed
}
