// Package intent defines the closed set of query intents and the scoring
// classifier that picks one of them.
package intent

import (
	"fmt"
	"strings"
)

// Intent is the classified purpose of a query.
type Intent int

// The zero value is Unknown and never produced by Classify.
const (
	Unknown Intent = iota
	Arithmetic
	Statistics
	Comparison
	Percentage
	DepartmentAnalysis
	EmployeeCount
	StoreQuery
	IndividualSalary
	SalaryAnalysis
	ListAllEmployees
	CountDepartmentEmployees
	DataAnalysis
	TrendAnalysis
	Help
	WebSearch
	ContextSummary
)

var names = [...]string{
	Unknown:                  "unknown",
	Arithmetic:               "arithmetic",
	Statistics:               "statistics",
	Comparison:               "comparison",
	Percentage:               "percentage",
	DepartmentAnalysis:       "department_analysis",
	EmployeeCount:            "employee_count",
	StoreQuery:               "store_query",
	IndividualSalary:         "individual_salary",
	SalaryAnalysis:           "salary_analysis",
	ListAllEmployees:         "list_all_employees",
	CountDepartmentEmployees: "count_department_employees",
	DataAnalysis:             "data_analysis",
	TrendAnalysis:            "trend_analysis",
	Help:                     "help",
	WebSearch:                "web_search",
	ContextSummary:           "context_summary",
}

// All returns every valid intent in declaration order.
func All() []Intent {
	out := make([]Intent, 0, len(names)-1)
	for i := Arithmetic; i <= ContextSummary; i++ {
		out = append(out, i)
	}
	return out
}

func (i Intent) String() string {
	if i < 0 || int(i) >= len(names) {
		return fmt.Sprintf("intent(%d)", int(i))
	}
	return names[i]
}

// Valid reports whether i is one of the declared intents.
func (i Intent) Valid() bool {
	return i >= Arithmetic && i <= ContextSummary
}

// Protected intents expose individual or aggregate salary data.
func (i Intent) Protected() bool {
	return i == IndividualSalary || i == SalaryAnalysis
}

// Computational intents are answered by the computation engine.
func (i Intent) Computational() bool {
	switch i {
	case Arithmetic, Statistics, Comparison, Percentage, DepartmentAnalysis, EmployeeCount:
		return true
	}
	return false
}

// ParseIntent converts a name back into an Intent.
func ParseIntent(s string) (Intent, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	for i := Arithmetic; i <= ContextSummary; i++ {
		if names[i] == s {
			return i, nil
		}
	}
	return Unknown, fmt.Errorf("unknown intent %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (i Intent) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *Intent) UnmarshalText(b []byte) error {
	parsed, err := ParseIntent(string(b))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}
