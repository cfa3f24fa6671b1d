package analytics

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/compute"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/dataset"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/textnorm"
)

const (
	moderateCorrelation = 0.5
	strongCorrelation   = 0.8
	minOutlierSample    = 4
	qualityThreshold    = 80
	maxAnomalyValues    = 5
)

// Analyzer builds Reports. The zero value is not usable; call New.
type Analyzer struct {
	now func() time.Time
}

// New returns an Analyzer stamped with the wall clock.
func New() *Analyzer {
	return &Analyzer{now: time.Now}
}

// series is a parsed numeric column. present[i] is false for missing cells.
type series struct {
	name    string
	values  []float64
	present []bool
}

func (s series) clean() []float64 {
	out := make([]float64, 0, len(s.values))
	for i, v := range s.values {
		if s.present[i] {
			out = append(out, v)
		}
	}
	return out
}

// Analyze runs every analysis over ds.
func (a *Analyzer) Analyze(ds *dataset.Dataset) Report {
	numeric, categorical := splitColumns(ds)

	r := Report{
		Dataset:      ds.Name,
		GeneratedAt:  a.now(),
		Basic:        basicStats(ds, numeric, categorical),
		Anomalies:    detectAnomalies(numeric, len(ds.Rows)),
		Correlations: correlations(numeric),
	}
	r.Insights = businessInsights(ds, numeric, r.Basic.MissingPercent)
	if len(r.Correlations) > 0 {
		best := r.Correlations[0]
		for _, c := range r.Correlations[1:] {
			if math.Abs(c.Coefficient) > math.Abs(best.Coefficient) {
				best = c
			}
		}
		r.Notes = []string{fmt.Sprintf("En güçlü korelasyon: %s ve %s arasında (r=%.3f)", best.Column1, best.Column2, best.Coefficient)}
	}
	r.Trends, r.Forecasts = revenueTrend(numeric)
	r.Recommendations = recommendations(r)
	return r
}

// splitColumns parses every column; a column is numeric when it has at least
// one value and every present cell parses as a number.
func splitColumns(ds *dataset.Dataset) ([]series, []string) {
	var numeric []series
	var categorical []string
	for _, name := range ds.Columns {
		cells := ds.Column(name)
		s := series{name: name, values: make([]float64, len(cells)), present: make([]bool, len(cells))}
		isNumeric, seen := true, 0
		for i, c := range cells {
			if compute.IsMissing(c) {
				continue
			}
			v, ok := compute.ParseNumber(c)
			if !ok {
				isNumeric = false
				break
			}
			s.values[i], s.present[i] = v, true
			seen++
		}
		if isNumeric && seen > 0 {
			numeric = append(numeric, s)
		} else {
			categorical = append(categorical, name)
		}
	}
	return numeric, categorical
}

func basicStats(ds *dataset.Dataset, numeric []series, categorical []string) BasicStats {
	rows, cols := len(ds.Rows), len(ds.Columns)
	b := BasicStats{
		TotalRows:    rows,
		TotalColumns: cols,
		Numeric:      []NumericColumn{},
		Categorical:  []CategoricalColumn{},
	}
	if rows == 0 || cols == 0 {
		return b
	}

	missing := 0
	for _, row := range ds.Rows {
		for _, c := range row {
			if compute.IsMissing(c) {
				missing++
			}
		}
	}
	b.MissingPercent = float64(missing) / float64(rows*cols) * 100

	outliers := 0
	for _, s := range numeric {
		values := s.clean()
		sum := compute.Summarize(values)
		n := len(iqrOutliers(values))
		outliers += n
		b.Numeric = append(b.Numeric, NumericColumn{
			Column: s.name, Mean: sum.Mean, Median: sum.Median, Std: sum.Std,
			Min: sum.Min, Max: sum.Max, Outliers: n,
		})
	}

	for _, name := range categorical {
		b.Categorical = append(b.Categorical, categoricalStats(name, ds.Column(name)))
	}

	missingPenalty := b.MissingPercent / 100
	outlierPenalty := 0.0
	if len(numeric) > 0 {
		outlierPenalty = float64(outliers) / float64(rows)
	}
	b.QualityScore = math.Max(0, 100-missingPenalty*50-outlierPenalty*30)
	return b
}

// categoricalStats counts distinct values; the mode breaks ties by the
// lexicographically smallest value.
func categoricalStats(name string, cells []string) CategoricalColumn {
	counts := make(map[string]int)
	for _, c := range cells {
		if !compute.IsMissing(c) {
			counts[c]++
		}
	}
	col := CategoricalColumn{Column: name, UniqueCount: len(counts)}
	for v, n := range counts {
		if n > col.Frequency || (n == col.Frequency && v < col.MostFrequent) {
			col.MostFrequent, col.Frequency = v, n
		}
	}
	return col
}

// iqrOutliers returns the values outside [Q1-1.5*IQR, Q3+1.5*IQR], in input
// order. Samples smaller than four never have outliers.
func iqrOutliers(values []float64) []float64 {
	if len(values) < minOutlierSample {
		return nil
	}
	q1, q3 := compute.Quantile(values, 0.25), compute.Quantile(values, 0.75)
	iqr := q3 - q1
	lo, hi := q1-1.5*iqr, q3+1.5*iqr

	var out []float64
	for _, v := range values {
		if v < lo || v > hi {
			out = append(out, v)
		}
	}
	return out
}

func detectAnomalies(numeric []series, rows int) []Anomaly {
	anomalies := []Anomaly{}
	for _, s := range numeric {
		out := iqrOutliers(s.clean())
		if len(out) == 0 {
			continue
		}
		pct := float64(len(out)) / float64(rows) * 100
		sev := SeverityLow
		switch {
		case pct > 10:
			sev = SeverityHigh
		case pct > 5:
			sev = SeverityMedium
		}
		anomalies = append(anomalies, Anomaly{
			Column:   s.name,
			Count:    len(out),
			Percent:  pct,
			Values:   out[:min(len(out), maxAnomalyValues)],
			Severity: sev,
		})
	}
	return anomalies
}

// correlations computes Pearson r over the rows where both columns have a value.
func correlations(numeric []series) []Correlation {
	out := []Correlation{}
	for i := 0; i < len(numeric); i++ {
		for j := i + 1; j < len(numeric); j++ {
			a, b := numeric[i], numeric[j]
			var x, y []float64
			for k := range a.values {
				if a.present[k] && b.present[k] {
					x = append(x, a.values[k])
					y = append(y, b.values[k])
				}
			}
			r, ok := compute.Pearson(x, y)
			if !ok || math.Abs(r) <= moderateCorrelation {
				continue
			}
			strength := "moderate"
			if math.Abs(r) > strongCorrelation {
				strength = "strong"
			}
			out = append(out, Correlation{Column1: a.name, Column2: b.name, Coefficient: r, Strength: strength})
		}
	}
	return out
}

func columnsContaining(numeric []series, words ...string) []series {
	var out []series
	for _, s := range numeric {
		if textnorm.ContainsAny(textnorm.Fold(s.name), words...) {
			out = append(out, s)
		}
	}
	return out
}

// revenueTrend compares the first two revenue columns (e.g. "Ciro 2024" and
// "Ciro 2025") and projects the same growth one period ahead.
func revenueTrend(numeric []series) ([]Trend, []Forecast) {
	trends, forecasts := []Trend{}, []Forecast{}
	revenue := columnsContaining(numeric, "ciro")
	if len(revenue) < 2 {
		return trends, forecasts
	}
	prev, cur := compute.Sum(revenue[0].clean()), compute.Sum(revenue[1].clean())
	change := cur - prev
	direction := "stable"
	switch {
	case change > 0:
		direction = "upward"
	case change < 0:
		direction = "downward"
	}

	growth, err := compute.Growth(prev, cur)
	if err != nil {
		return trends, forecasts
	}
	trends = append(trends, Trend{Metric: "total_revenue", Direction: direction, ChangeAmount: change, ChangePercent: growth})
	forecasts = append(forecasts, Forecast{
		Metric:     "total_revenue",
		Current:    cur,
		Forecast:   cur * (1 + growth/100),
		GrowthRate: growth,
		Method:     "linear_trend",
	})
	return trends, forecasts
}

func businessInsights(ds *dataset.Dataset, numeric []series, missingPct float64) []Insight {
	insights := []Insight{}
	header := textnorm.Fold(strings.Join(ds.Columns, " "))
	switch {
	case textnorm.ContainsAny(header, "ciro", "satış", "sales", "revenue", "mağaza", "store"):
		insights = append(insights, salesInsights(ds, numeric)...)
	case textnorm.ContainsAny(header, "maaş", "salary", "çalışan", "employee", "departman"):
		insights = append(insights, hrInsights(ds, numeric)...)
	}
	return append(insights, qualityInsight(missingPct))
}

func salesInsights(ds *dataset.Dataset, numeric []series) []Insight {
	var insights []Insight

	if revenue := columnsContaining(numeric, "ciro"); len(revenue) >= 2 {
		a, b := revenue[0], revenue[1]
		prev, cur := compute.Sum(a.clean()), compute.Sum(b.clean())
		if growth, err := compute.Growth(prev, cur); err == nil {
			up, down := 0, 0
			best, worst := -1, -1
			for i := range a.values {
				if !a.present[i] || !b.present[i] {
					continue
				}
				d := b.values[i] - a.values[i]
				if d > 0 {
					up++
				} else if d < 0 {
					down++
				}
				if best < 0 || d > b.values[best]-a.values[best] {
					best = i
				}
				if worst < 0 || d < b.values[worst]-a.values[worst] {
					worst = i
				}
			}
			insights = append(insights, Insight{
				Type:        "sales_performance",
				Title:       "Genel Satış Performansı",
				Value:       compute.FormatPercent(growth),
				Description: fmt.Sprintf("Toplam ciro büyümesi %s. %d mağaza pozitif, %d mağaza negatif büyüme gösterdi.", compute.FormatPercent(growth), up, down),
				Severity:    growthSeverity(growth),
			})

			if storeCol, ok := ds.RoleColumn(dataset.RoleStore); ok && best >= 0 {
				si := ds.ColumnIndex(storeCol)
				top, bottom := ds.Rows[best][si], ds.Rows[worst][si]
				insights = append(insights, Insight{
					Type:  "performance_leaders",
					Title: "Performans Liderleri",
					Value: top,
					Description: fmt.Sprintf("En iyi: %s (%s TL), En kötü: %s (%s TL)",
						top, signed(b.values[best]-a.values[best]), bottom, signed(b.values[worst]-a.values[worst])),
					Severity: SeverityInfo,
				})
			}
		}
	}

	if growthCols := columnsContaining(numeric, "büyüme", "growth"); len(growthCols) > 0 {
		values := growthCols[0].clean()
		avg, std := compute.Mean(values), compute.StdDev(values)
		consistency := "Tutarlı"
		if std >= 10 {
			consistency = "Değişken"
		}
		insights = append(insights, Insight{
			Type:        "growth_analysis",
			Title:       "Büyüme Oranı Analizi",
			Value:       compute.FormatPercent(avg),
			Description: fmt.Sprintf("Ortalama büyüme %s (±%s). %s performans gösteriliyor.", compute.FormatPercent(avg), compute.FormatPercent(std), consistency),
			Severity:    growthSeverity(avg),
		})
	}
	return insights
}

func hrInsights(ds *dataset.Dataset, numeric []series) []Insight {
	salaries := columnsContaining(numeric, "maaş", "salary")
	deptCol, hasDept := ds.RoleColumn(dataset.RoleDepartment)
	if len(salaries) == 0 || !hasDept {
		return nil
	}
	sal := salaries[0]
	di := ds.ColumnIndex(deptCol)

	byDept := make(map[string][]float64)
	for i, row := range ds.Rows {
		if sal.present[i] && !compute.IsMissing(row[di]) {
			byDept[row[di]] = append(byDept[row[di]], sal.values[i])
		}
	}
	if len(byDept) == 0 {
		return nil
	}
	names := make([]string, 0, len(byDept))
	for d := range byDept {
		names = append(names, d)
	}
	sort.Strings(names)

	high, low := names[0], names[0]
	for _, d := range names[1:] {
		if compute.Mean(byDept[d]) > compute.Mean(byDept[high]) {
			high = d
		}
		if compute.Mean(byDept[d]) < compute.Mean(byDept[low]) {
			low = d
		}
	}
	insights := []Insight{{
		Type:  "salary_analysis",
		Title: "Departman Maaş Analizi",
		Value: high,
		Description: fmt.Sprintf("En yüksek ortalama: %s (%s), En düşük: %s (%s)",
			high, compute.FormatMoney(compute.Mean(byDept[high])), low, compute.FormatMoney(compute.Mean(byDept[low]))),
		Severity: SeverityInfo,
	}}

	values := sal.clean()
	if mean := compute.Mean(values); mean != 0 {
		cv := compute.StdDev(values) / mean * 100
		shape := "Heterojen"
		switch {
		case cv < 20:
			shape = "Homojen"
		case cv < 40:
			shape = "Orta"
		}
		sev := SeverityGood
		if cv > 50 {
			sev = SeverityWarning
		}
		insights = append(insights, Insight{
			Type:        "salary_distribution",
			Title:       "Maaş Dağılımı",
			Value:       compute.FormatPercent(cv),
			Description: fmt.Sprintf("Maaş çeşitliliği %s. %s dağılım.", compute.FormatPercent(cv), shape),
			Severity:    sev,
		})
	}
	return insights
}

func qualityInsight(missingPct float64) Insight {
	label := "Zayıf"
	switch {
	case missingPct < 1:
		label = "Mükemmel"
	case missingPct < 5:
		label = "İyi"
	case missingPct < 10:
		label = "Orta"
	}
	sev := SeverityCritical
	switch {
	case missingPct < 5:
		sev = SeverityGood
	case missingPct < 15:
		sev = SeverityWarning
	}
	complete := compute.FormatPercent(100 - missingPct)
	return Insight{
		Type:        "data_quality",
		Title:       "Veri Kalitesi",
		Value:       complete,
		Description: fmt.Sprintf("Veri bütünlüğü %s. %s kalite.", complete, label),
		Severity:    sev,
	}
}

func growthSeverity(g float64) Severity {
	switch {
	case g < -10:
		return SeverityCritical
	case g < 0:
		return SeverityWarning
	}
	return SeverityGood
}

func signed(v float64) string {
	if v > 0 {
		return "+" + compute.FormatNumber(math.Round(v))
	}
	return compute.FormatNumber(math.Round(v))
}

func recommendations(r Report) []Recommendation {
	recs := []Recommendation{}
	if r.Basic.QualityScore < qualityThreshold {
		recs = append(recs, Recommendation{
			Category:    "data_quality",
			Priority:    "high",
			Title:       "Veri Kalitesi İyileştirmesi",
			Description: "Eksik veri ve aykırı değerler analiz edilmeli",
			ActionItems: []string{
				"Eksik veri kaynaklarını belirle",
				"Aykırı değerleri incele",
				"Veri toplama süreçlerini gözden geçir",
			},
		})
	}

	var critical []string
	for _, in := range r.Insights {
		if in.Severity == SeverityCritical {
			critical = append(critical, in.Description)
		}
	}
	if len(critical) > 0 {
		recs = append(recs, Recommendation{
			Category:    "business_performance",
			Priority:    "high",
			Title:       "Kritik Performans Problemleri",
			Description: fmt.Sprintf("%d kritik alan tespit edildi", len(critical)),
			ActionItems: critical[:min(len(critical), 3)],
		})
	}

	var items []string
	for _, a := range r.Anomalies {
		if a.Severity == SeverityHigh {
			items = append(items, fmt.Sprintf("%s sütunundaki %d aykırı değeri incele", a.Column, a.Count))
		}
	}
	if len(items) > 0 {
		recs = append(recs, Recommendation{
			Category:    "anomaly_management",
			Priority:    "medium",
			Title:       "Aykırı Değer Yönetimi",
			Description: fmt.Sprintf("%d sütunda yüksek seviye anomali", len(items)),
			ActionItems: items,
		})
	}
	return recs
}
