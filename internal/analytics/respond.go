package analytics

import (
	"fmt"
	"strings"

	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/compute"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/dataset"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/textnorm"
)

// DetectionKeywords route a query to the analytics report.
var DetectionKeywords = []string{
	"anomali", "aykırı", "trend", "tahmin", "segment", "korelasyon",
	"analiz", "rapor", "öneri", "aksiyon", "kapsamlı", "detaylı",
}

// Focus is the part of the report a query asks for.
type Focus string

const (
	FocusComprehensive   Focus = "comprehensive"
	FocusAnomaly         Focus = "anomaly"
	FocusTrend           Focus = "trend"
	FocusRecommendations Focus = "recommendations"
)

// Needs reports whether the query asks for an analytics report.
func Needs(query string) bool {
	tokens := textnorm.Tokens(query)
	for _, kw := range DetectionKeywords {
		if textnorm.HasWord(tokens, kw) {
			return true
		}
	}
	return false
}

// DetectFocus picks the report section the query asks for.
func DetectFocus(query string) Focus {
	tokens := textnorm.Tokens(query)
	switch {
	case textnorm.HasWord(tokens, "anomali") || textnorm.HasWord(tokens, "aykırı"):
		return FocusAnomaly
	case textnorm.HasWord(tokens, "trend") || textnorm.HasWord(tokens, "tahmin"):
		return FocusTrend
	case textnorm.HasWord(tokens, "öneri") || textnorm.HasWord(tokens, "aksiyon"):
		return FocusRecommendations
	}
	return FocusComprehensive
}

// PickDataset chooses the dataset a query is about: sales words prefer a
// revenue or store table, HR words a salary or employee table. Otherwise the
// largest table wins.
func PickDataset(query string, reg *dataset.Registry) (*dataset.Dataset, bool) {
	tokens := textnorm.Tokens(query)
	has := func(words ...string) bool {
		for _, w := range words {
			if textnorm.HasWord(tokens, w) {
				return true
			}
		}
		return false
	}

	var roles []dataset.Role
	switch {
	case has("ciro", "satış", "mağaza", "büyüme"):
		roles = []dataset.Role{dataset.RoleRevenue, dataset.RoleStore}
	case has("maaş", "çalışan", "departman", "personel"):
		roles = []dataset.Role{dataset.RoleSalary, dataset.RoleEmployee}
	}
	for _, role := range roles {
		if found := reg.WithRole(role); len(found) > 0 {
			return found[0], true
		}
	}

	var best *dataset.Dataset
	for _, ds := range reg.Datasets() {
		if best == nil || len(ds.Rows) > len(best.Rows) {
			best = ds
		}
	}
	return best, best != nil
}

// Respond renders the section of the report the query asks for.
func Respond(r Report, focus Focus) compute.Result {
	details := map[string]any{
		"filename":           r.Dataset,
		"focus":              string(focus),
		"data_quality_score": r.Basic.QualityScore,
		"anomaly_count":      len(r.Anomalies),
		"recommendations":    len(r.Recommendations),
	}

	switch focus {
	case FocusAnomaly:
		return compute.Result{Text: anomalyText(r), Chart: anomalyChart(r), Details: details}
	case FocusTrend:
		return compute.Result{Text: trendText(r), Chart: trendChart(r), Details: details}
	case FocusRecommendations:
		return compute.Result{Text: recommendationText(r), Details: details}
	}
	return compute.Result{Text: comprehensiveText(r), Chart: anomalyChart(r), Details: details}
}

func comprehensiveText(r Report) string {
	var b strings.Builder
	b.WriteString("🔍 **Kapsamlı Veri Analizi Raporu** (" + r.Dataset + ")\n\n")
	b.WriteString("📊 **Temel Metrikler:**\n")
	b.WriteString("- Veri Kalitesi: " + compute.FormatPercent(r.Basic.QualityScore) + "\n")
	b.WriteString("- Toplam Kayıt: " + compute.FormatCount(r.Basic.TotalRows) + "\n")
	b.WriteString("- Sayısal Sütun: " + compute.FormatCount(len(r.Basic.Numeric)) + "\n")

	var critical, warning []Insight
	for _, in := range r.Insights {
		switch in.Severity {
		case SeverityCritical:
			critical = append(critical, in)
		case SeverityWarning:
			warning = append(warning, in)
		}
	}
	if len(critical) > 0 {
		b.WriteString("\n🔴 **Kritik Durumlar:**\n")
		for _, in := range critical[:min(len(critical), 3)] {
			b.WriteString("- " + in.Title + ": " + in.Value + "\n  " + in.Description + "\n")
		}
	}
	if len(warning) > 0 {
		b.WriteString("\n🟡 **Dikkat Gereken Alanlar:**\n")
		for _, in := range warning[:min(len(warning), 2)] {
			b.WriteString("- " + in.Title + ": " + in.Value + "\n")
		}
	}

	b.WriteString("\n💡 **İçgörüler:**\n")
	for _, in := range r.Insights {
		b.WriteString("- " + in.Title + ": " + in.Description + "\n")
	}
	for _, n := range r.Notes {
		b.WriteString("- " + n + "\n")
	}

	if len(r.Anomalies) > 0 {
		b.WriteString("\n🔍 **Tespit Edilen Anomaliler:**\n")
		for _, a := range r.Anomalies[:min(len(r.Anomalies), 3)] {
			fmt.Fprintf(&b, "- %s: %d aykırı değer\n", a.Column, a.Count)
		}
	}
	if len(r.Forecasts) > 0 {
		b.WriteString("\n🔮 **Gelecek Projeksiyonları:**\n")
		for _, f := range r.Forecasts {
			b.WriteString("- " + f.Metric + ": " + signed(f.Forecast-f.Current) + " (" + compute.FormatPercent(f.GrowthRate) + ")\n")
		}
	}
	if len(r.Recommendations) > 0 {
		b.WriteString("\n🎯 **Aksiyon Önerileri:**\n")
		for _, rec := range r.Recommendations[:min(len(r.Recommendations), 3)] {
			b.WriteString("- " + rec.Title + ": " + rec.Description + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func anomalyText(r Report) string {
	if len(r.Anomalies) == 0 {
		return "✅ **" + r.Dataset + "** içinde aykırı değer tespit edilmedi."
	}
	var b strings.Builder
	b.WriteString("🔍 **Anomali Analizi** (" + r.Dataset + ")\n\n")
	for _, a := range r.Anomalies {
		values := make([]string, len(a.Values))
		for i, v := range a.Values {
			values[i] = compute.FormatNumber(v)
		}
		fmt.Fprintf(&b, "⚠️ **%s**: %d aykırı değer (%s, seviye: %s)\n   Örnekler: %s\n",
			a.Column, a.Count, compute.FormatPercent(a.Percent), a.Severity, strings.Join(values, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}

func trendText(r Report) string {
	if len(r.Trends) == 0 {
		return "📈 **" + r.Dataset + "** için karşılaştırılabilir dönem verisi (ör. iki ciro sütunu) bulunamadı."
	}
	var b strings.Builder
	b.WriteString("📈 **Trend ve Tahmin Analizi** (" + r.Dataset + ")\n\n")
	directions := map[string]string{"upward": "yükseliş", "downward": "düşüş", "stable": "sabit"}
	for _, t := range r.Trends {
		b.WriteString("- Toplam ciro: " + directions[t.Direction] + ", değişim " + signed(t.ChangeAmount) + " TL (" + compute.FormatPercent(t.ChangePercent) + ")\n")
	}
	for _, f := range r.Forecasts {
		b.WriteString("- Gelecek dönem tahmini: " + compute.FormatMoney(f.Forecast) + " (mevcut " + compute.FormatMoney(f.Current) + ")\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func recommendationText(r Report) string {
	if len(r.Recommendations) == 0 {
		return "🎯 **" + r.Dataset + "** için acil aksiyon gerektiren bir durum tespit edilmedi."
	}
	priority := map[string]string{"high": "🔴", "medium": "🟡", "low": "🟢"}
	var b strings.Builder
	b.WriteString("🎯 **Aksiyon Önerileri** (" + r.Dataset + ")\n\n")
	for _, rec := range r.Recommendations {
		b.WriteString(priority[rec.Priority] + " **" + rec.Title + "**: " + rec.Description + "\n")
		for _, item := range rec.ActionItems {
			b.WriteString("   • " + item + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func anomalyChart(r Report) *compute.Chart {
	if len(r.Anomalies) == 0 {
		return nil
	}
	labels := make([]string, len(r.Anomalies))
	data := make([]float64, len(r.Anomalies))
	for i, a := range r.Anomalies {
		labels[i], data[i] = a.Column, float64(a.Count)
	}
	return &compute.Chart{
		Type:   "bar",
		Title:  "Sütun Bazında Aykırı Değerler",
		Labels: labels,
		Series: []compute.Series{{Name: "Aykırı değer", Data: data}},
	}
}

func trendChart(r Report) *compute.Chart {
	if len(r.Forecasts) == 0 {
		return nil
	}
	f := r.Forecasts[0]
	prev := f.Current - r.Trends[0].ChangeAmount
	return &compute.Chart{
		Type:   "line",
		Title:  "Toplam Ciro",
		Labels: []string{"Önceki", "Mevcut", "Tahmin"},
		Series: []compute.Series{{Name: "Ciro", Data: []float64{prev, f.Current, f.Forecast}}},
	}
}
