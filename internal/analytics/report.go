// Package analytics produces the comprehensive dataset report: column
// statistics, data quality, IQR outliers, correlations, domain insights,
// revenue trend and forecast, and follow-up recommendations.
package analytics

import "time"

// Severity grades an insight or anomaly.
type Severity string

const (
	SeverityGood     Severity = "good"
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
)

// Report is the full analysis of one dataset.
type Report struct {
	Dataset         string           `json:"filename"`
	GeneratedAt     time.Time        `json:"timestamp"`
	Basic           BasicStats       `json:"basic_stats"`
	Insights        []Insight        `json:"business_insights"`
	Anomalies       []Anomaly        `json:"anomaly_detection"`
	Correlations    []Correlation    `json:"correlations"`
	Notes           []string         `json:"correlation_insights"`
	Trends          []Trend          `json:"trends"`
	Forecasts       []Forecast       `json:"forecasts"`
	Recommendations []Recommendation `json:"recommendations"`
}

// BasicStats describes the table as a whole.
type BasicStats struct {
	TotalRows      int                 `json:"total_rows"`
	TotalColumns   int                 `json:"total_columns"`
	MissingPercent float64             `json:"missing_data_percentage"`
	Numeric        []NumericColumn     `json:"numeric_columns"`
	Categorical    []CategoricalColumn `json:"categorical_columns"`
	QualityScore   float64             `json:"data_quality_score"`
}

type NumericColumn struct {
	Column   string  `json:"column"`
	Mean     float64 `json:"mean"`
	Median   float64 `json:"median"`
	Std      float64 `json:"std"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Outliers int     `json:"outlier_count"`
}

type CategoricalColumn struct {
	Column       string `json:"column"`
	UniqueCount  int    `json:"unique_count"`
	MostFrequent string `json:"most_frequent"`
	Frequency    int    `json:"frequency"`
}

// Insight is one business finding.
type Insight struct {
	Type        string   `json:"type"`
	Title       string   `json:"title"`
	Value       string   `json:"value"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
}

// Anomaly summarizes the IQR outliers of one numeric column.
type Anomaly struct {
	Column   string    `json:"column"`
	Count    int       `json:"count"`
	Percent  float64   `json:"percentage"`
	Values   []float64 `json:"values"`
	Severity Severity  `json:"severity"`
}

// Correlation is a moderate (|r| > 0.5) or strong (|r| > 0.8) pair.
type Correlation struct {
	Column1     string  `json:"column1"`
	Column2     string  `json:"column2"`
	Coefficient float64 `json:"correlation"`
	Strength    string  `json:"strength"`
}

type Trend struct {
	Metric        string  `json:"metric"`
	Direction     string  `json:"direction"`
	ChangeAmount  float64 `json:"change_amount"`
	ChangePercent float64 `json:"change_percentage"`
}

type Forecast struct {
	Metric     string  `json:"metric"`
	Current    float64 `json:"current_value"`
	Forecast   float64 `json:"forecast_value"`
	GrowthRate float64 `json:"growth_rate"`
	Method     string  `json:"method"`
}

// Recommendation is a follow-up action derived from the report.
type Recommendation struct {
	Category    string   `json:"category"`
	Priority    string   `json:"priority"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	ActionItems []string `json:"action_items"`
}
