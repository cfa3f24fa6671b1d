/*
Package compute is the numeric engine behind arithmetic, statistics, ratio,
percentage, department and head-count questions.

Every handler returns a Result whose Details hold only JSON primitives
(float64, int, string, bool, slices and maps of those). NaN and infinities
never leave the package; the operations that would produce them return an
apperr.ComputationError instead.
*/
package compute

// Chart is a small, renderer-agnostic chart description.
type Chart struct {
	Type   string   `json:"type"`
	Title  string   `json:"title"`
	Labels []string `json:"labels"`
	Series []Series `json:"series"`
}

// Series is one labeled data series of a chart.
type Series struct {
	Name string    `json:"name"`
	Data []float64 `json:"data"`
}

// Result is the output of every computation handler.
type Result struct {
	Text    string         `json:"text"`
	Chart   *Chart         `json:"chart,omitempty"`
	Details map[string]any `json:"calculation_details,omitempty"`
}

func barChart(title, series string, labels []string, data []float64) *Chart {
	return &Chart{
		Type:   "bar",
		Title:  title,
		Labels: labels,
		Series: []Series{{Name: series, Data: data}},
	}
}
