package compute

import (
	"strings"

	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/apperr"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/dataset"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/textnorm"
)

// Statistic is the figure a statistics question asks for.
type Statistic string

const (
	StatMean    Statistic = "mean"
	StatMedian  Statistic = "median"
	StatMax     Statistic = "max"
	StatMin     Statistic = "min"
	StatSum     Statistic = "sum"
	StatCount   Statistic = "count"
	StatStd     Statistic = "std"
	StatSummary Statistic = "summary"
)

var statisticWords = []struct {
	stat  Statistic
	words []string
}{
	{StatMean, []string{"ortalama", "mean", "average"}},
	{StatMedian, []string{"medyan", "median"}},
	{StatMax, []string{"maksimum", "max", "en yüksek", "en büyük", "en fazla"}},
	{StatMin, []string{"minimum", "min", "en düşük", "en küçük", "en az"}},
	{StatSum, []string{"toplam", "sum", "total"}},
	{StatCount, []string{"sayı", "count", "kaç tane"}},
	{StatStd, []string{"standart sapma", "std", "sapma"}},
}

var statisticLabels = map[Statistic]string{
	StatMean:   "Ortalama",
	StatMedian: "Medyan",
	StatMax:    "En Yüksek",
	StatMin:    "En Düşük",
	StatSum:    "Toplam",
	StatCount:  "Kayıt Sayısı",
	StatStd:    "Standart Sapma",
}

// DetectStatistic picks the statistic named in the query, else StatSummary.
func DetectStatistic(query string) Statistic {
	tokens := textnorm.Tokens(query)
	for _, sw := range statisticWords {
		for _, w := range sw.words {
			if textnorm.HasWord(tokens, w) {
				return sw.stat
			}
		}
	}
	return StatSummary
}

// domain is a family of column names a query can refer to.
type domain struct {
	name      string
	triggers  []string
	columns   []string
	numeric   bool
	positives bool
}

var statDomains = []domain{
	{name: "maaş", triggers: []string{"maaş", "salary", "ücret"}, columns: []string{"maaş", "salary", "ücret", "gelir"}, numeric: true, positives: true},
	{name: "ciro", triggers: []string{"ciro", "satış", "sales", "revenue", "gelir"}, columns: []string{"ciro", "satış", "sales", "revenue", "gelir"}, numeric: true, positives: true},
	{name: "çalışan", triggers: []string{"çalışan", "personel", "employee"}, columns: []string{"ad soyad", "çalışan", "personel", "employee", "name"}},
}

var idMarkers = map[string]bool{"id": true, "index": true, "no": true, "sıra": true, "sira": true, "numara": true}

// column is a resolved data column.
type column struct {
	dataset *dataset.Dataset
	name    string
	values  []cleanValue
}

// Statistics answers a descriptive-statistics question over the first
// matching column of the loaded datasets.
func Statistics(query string, reg *dataset.Registry) (Result, error) {
	if reg.Empty() {
		return Result{}, apperr.NotFound("dataset", "", "Henüz yüklenmiş veri bulunmuyor.")
	}
	stat := DetectStatistic(query)

	col, ok := resolveStatColumn(query, reg, stat)
	if !ok {
		return Result{}, apperr.NotFound("column", "", "Sorgunuz için uygun sayısal veri sütunu bulunamadı.")
	}
	values := valuesOf(col.values)

	details := map[string]any{
		"statistic_type": string(stat),
		"column":         col.name,
		"filename":       col.dataset.Name,
		"data_count":     len(values),
	}

	if stat == StatSummary {
		s := Summarize(values)
		for k, v := range s.Map() {
			details[k] = v
		}
		var b strings.Builder
		b.WriteString("📊 **" + col.name + " İstatistiksel Özeti**\n\n")
		b.WriteString("• Kayıt sayısı: " + FormatCount(s.Count) + "\n")
		b.WriteString("• Ortalama: " + FormatNumber(round2(s.Mean)) + "\n")
		b.WriteString("• Medyan: " + FormatNumber(round2(s.Median)) + "\n")
		b.WriteString("• Standart sapma: " + FormatNumber(round2(s.Std)) + "\n")
		b.WriteString("• En düşük: " + FormatNumber(s.Min) + "\n")
		b.WriteString("• En yüksek: " + FormatNumber(s.Max) + "\n")
		b.WriteString("\n📁 Kaynak: " + col.dataset.Name)
		return Result{
			Text: b.String(),
			Chart: barChart(col.name+" Dağılımı", col.name,
				[]string{"Min", "Q1", "Medyan", "Q3", "Max"},
				[]float64{s.Min, s.Q25, s.Median, s.Q75, s.Max}),
			Details: details,
		}, nil
	}

	v := statisticValue(stat, values)
	details["result"] = v
	label := statisticLabels[stat]
	text := "📊 **" + col.name + " " + label + "**\n\n" +
		"**Sonuç:** " + FormatNumber(round2(v)) + "\n" +
		"**Veri sayısı:** " + FormatCount(len(values)) + "\n\n" +
		"📁 Kaynak: " + col.dataset.Name
	return Result{
		Text:    text,
		Chart:   barChart(col.name+" "+label, col.name, []string{label}, []float64{v}),
		Details: details,
	}, nil
}

func statisticValue(stat Statistic, values []float64) float64 {
	switch stat {
	case StatMean:
		return Mean(values)
	case StatMedian:
		return Median(values)
	case StatMax:
		return Summarize(values).Max
	case StatMin:
		return Summarize(values).Min
	case StatSum:
		return Sum(values)
	case StatCount:
		return float64(len(values))
	case StatStd:
		return StdDev(values)
	}
	return 0
}

// resolveStatColumn applies the domain keyword table first and falls back to
// the first numeric, non-identifier column.
func resolveStatColumn(query string, reg *dataset.Registry, stat Statistic) (column, bool) {
	tokens := textnorm.Tokens(query)
	for _, d := range statDomains {
		if !mentions(tokens, d.triggers) {
			continue
		}
		if !d.numeric && stat != StatCount {
			continue
		}
		if col, ok := domainColumn(reg, d); ok {
			return col, true
		}
	}

	for _, ds := range reg.Datasets() {
		for _, name := range ds.Columns {
			if isIdentifierColumn(name) {
				continue
			}
			cells := ds.Column(name)
			if numericShare(cells) < 0.5 {
				continue
			}
			values := cleanColumn(cells, isMoneyColumn(name))
			if len(values) > 0 {
				return column{dataset: ds, name: name, values: values}, true
			}
		}
	}
	return column{}, false
}

// domainColumn returns the first non-empty column named like d.
func domainColumn(reg *dataset.Registry, d domain) (column, bool) {
	for _, ds := range reg.Datasets() {
		for _, name := range ds.Columns {
			if !textnorm.ContainsAny(textnorm.Fold(name), d.columns...) {
				continue
			}
			var values []cleanValue
			if d.numeric {
				values = cleanColumn(ds.Column(name), d.positives)
			} else {
				values = presentCells(ds.Column(name))
			}
			if len(values) > 0 {
				return column{dataset: ds, name: name, values: values}, true
			}
		}
	}
	return column{}, false
}

func mentions(tokens []string, words []string) bool {
	for _, w := range words {
		if textnorm.HasWord(tokens, w) {
			return true
		}
	}
	return false
}

// presentCells turns a text column into countable entries.
func presentCells(cells []string) []cleanValue {
	out := make([]cleanValue, 0, len(cells))
	for i, c := range cells {
		if !IsMissing(c) {
			out = append(out, cleanValue{Row: i, Value: 1})
		}
	}
	return out
}

func isIdentifierColumn(name string) bool {
	for _, tok := range strings.FieldsFunc(textnorm.Fold(name), func(r rune) bool {
		return r == ' ' || r == '_' || r == '-' || r == '.'
	}) {
		if idMarkers[tok] {
			return true
		}
	}
	return false
}

func isMoneyColumn(name string) bool {
	folded := textnorm.Fold(name)
	for _, d := range statDomains {
		if d.positives && textnorm.ContainsAny(folded, d.columns...) {
			return true
		}
	}
	return false
}

func round2(v float64) float64 {
	return roundTo(v, 2)
}
