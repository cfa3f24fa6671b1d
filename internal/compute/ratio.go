package compute

import (
	"fmt"

	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/apperr"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/dataset"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/textnorm"
)

var salaryColumnWords = []string{"maaş", "salary", "ücret"}

// salaryColumn finds the first dataset with a usable salary column.
func salaryColumn(reg *dataset.Registry) (column, bool) {
	for _, ds := range reg.Datasets() {
		name, ok := ds.RoleColumn(dataset.RoleSalary)
		if !ok {
			for _, c := range ds.Columns {
				if textnorm.ContainsAny(textnorm.Fold(c), salaryColumnWords...) {
					name, ok = c, true
					break
				}
			}
		}
		if !ok {
			continue
		}
		if values := cleanColumn(ds.Column(name), true); len(values) > 0 {
			return column{dataset: ds, name: name, values: values}, true
		}
	}
	return column{}, false
}

// ratioColumn resolves the column a ratio query names. Salary is the
// default; another numeric domain ("ciro") is used only when mentioned.
func ratioColumn(query string, reg *dataset.Registry) (column, bool, bool) {
	tokens := textnorm.Tokens(query)
	if !mentions(tokens, salaryColumnWords) {
		for _, d := range statDomains {
			if d.numeric && d.name != "maaş" && mentions(tokens, d.triggers) {
				col, ok := domainColumn(reg, d)
				return col, false, ok
			}
		}
	}
	col, ok := salaryColumn(reg)
	return col, true, ok
}

// Ratio answers "how many times the lowest value is the highest", over
// salaries unless the query names another money column. Ties resolve to the
// first row holding the extreme value.
func Ratio(query string, reg *dataset.Registry) (Result, error) {
	col, salary, ok := ratioColumn(query, reg)
	if !ok && !salary {
		return Result{}, apperr.NotFound("column", "", "Sorgunuz için uygun sayısal veri sütunu bulunamadı.")
	}
	if !ok {
		return Result{}, apperr.NotFound("column", "maaş", "Maaş verisi bulunamadı.")
	}
	if !salary {
		return valueRatio(col)
	}

	maxV, minV := extremes(col.values)
	if minV.Value == 0 {
		return Result{}, apperr.Computation("ratio", "en düşük maaş sıfır olduğu için oran hesaplanamaz")
	}
	ratio := maxV.Value / minV.Value

	maxName := employeeAt(col.dataset, maxV.Row)
	minName := employeeAt(col.dataset, minV.Row)

	text := "📊 **Maaş Oranı Analizi**\n\n" +
		"💰 **En yüksek maaş:** " + FormatMoney(maxV.Value) + withName(maxName) + "\n" +
		"💸 **En düşük maaş:** " + FormatMoney(minV.Value) + withName(minName) + "\n\n" +
		fmt.Sprintf("🔢 **Oran:** En yüksek maaş, en düşük maaşın **%s katı**\n\n", FormatNumber(roundTo(ratio, 2))) +
		"📈 **Değerlendirme:** " + ratioComment(ratio)

	return Result{
		Text: text,
		Chart: barChart("En Yüksek ve En Düşük Maaş", col.name,
			[]string{labelOr(maxName, "En Yüksek"), labelOr(minName, "En Düşük")},
			[]float64{maxV.Value, minV.Value}),
		Details: map[string]any{
			"max_salary":   maxV.Value,
			"min_salary":   minV.Value,
			"ratio":        ratio,
			"max_employee": maxName,
			"min_employee": minName,
			"data_count":   len(col.values),
			"column":       col.name,
			"filename":     col.dataset.Name,
		},
	}, nil
}

func valueRatio(col column) (Result, error) {
	maxV, minV := extremes(col.values)
	if minV.Value == 0 {
		return Result{}, apperr.Computation("ratio", "en düşük değer sıfır olduğu için oran hesaplanamaz")
	}
	ratio := maxV.Value / minV.Value
	maxName, minName := rowLabel(col.dataset, maxV.Row), rowLabel(col.dataset, minV.Row)

	text := fmt.Sprintf("📊 **%s Oranı Analizi**\n\n", col.name) +
		"🔺 **En yüksek:** " + FormatMoney(maxV.Value) + withName(maxName) + "\n" +
		"🔻 **En düşük:** " + FormatMoney(minV.Value) + withName(minName) + "\n\n" +
		fmt.Sprintf("🔢 **Oran:** En yüksek değer, en düşüğün **%s katı**", FormatNumber(roundTo(ratio, 2)))

	return Result{
		Text: text,
		Chart: barChart("En Yüksek ve En Düşük "+col.name, col.name,
			[]string{labelOr(maxName, "En Yüksek"), labelOr(minName, "En Düşük")},
			[]float64{maxV.Value, minV.Value}),
		Details: map[string]any{
			"max_value":  maxV.Value,
			"min_value":  minV.Value,
			"ratio":      ratio,
			"max_label":  maxName,
			"min_label":  minName,
			"data_count": len(col.values),
			"column":     col.name,
			"filename":   col.dataset.Name,
		},
	}, nil
}

// extremes returns the first rows holding the highest and lowest values.
func extremes(values []cleanValue) (maxV, minV cleanValue) {
	maxV, minV = values[0], values[0]
	for _, cv := range values[1:] {
		if cv.Value > maxV.Value {
			maxV = cv
		}
		if cv.Value < minV.Value {
			minV = cv
		}
	}
	return maxV, minV
}

func ratioComment(ratio float64) string {
	switch {
	case ratio < 5:
		return "Makul maaş farkı"
	case ratio < 10:
		return "Orta düzey maaş farkı"
	default:
		return "Yüksek maaş farkı"
	}
}

func employeeAt(ds *dataset.Dataset, row int) string {
	col, ok := ds.RoleColumn(dataset.RoleEmployee)
	if !ok {
		return ""
	}
	return ds.Rows[row][ds.ColumnIndex(col)]
}

// rowLabel names a row by its employee or store.
func rowLabel(ds *dataset.Dataset, row int) string {
	if name := employeeAt(ds, row); name != "" {
		return name
	}
	col, ok := ds.RoleColumn(dataset.RoleStore)
	if !ok {
		return ""
	}
	return ds.Rows[row][ds.ColumnIndex(col)]
}

func withName(name string) string {
	if name == "" {
		return ""
	}
	return " (" + name + ")"
}

func labelOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}
