package compute

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/apperr"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/dataset"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/textnorm"
)

// Alias maps a whole query token onto a department label.
type Alias struct {
	Token  string `json:"token" yaml:"token"`
	Target string `json:"target" yaml:"target"`
}

// DefaultAliases is the built-in department alias table.
var DefaultAliases = []Alias{
	{"bilgi", "Bilgi İşlem"},
	{"işlem", "Bilgi İşlem"},
	{"it", "Bilgi İşlem"},
	{"muhasebe", "Muhasebe"},
	{"mali", "Muhasebe"},
	{"yönetim", "Yönetim"},
	{"management", "Yönetim"},
	{"ürün", "Ürün Yönetimi"},
	{"product", "Ürün Yönetimi"},
	{"insan", "İnsan Kaynakları"},
	{"ik", "İnsan Kaynakları"},
	{"hr", "İnsan Kaynakları"},
	{"web", "Web"},
}

// Departments returns the distinct department labels of the registry, sorted.
func Departments(reg *dataset.Registry) []string {
	names := reg.Names(dataset.RoleDepartment)
	sort.Slice(names, func(i, j int) bool { return textnorm.Fold(names[i]) < textnorm.Fold(names[j]) })
	return names
}

// ResolveDepartment finds the department a query refers to. It tries, in
// order: a label contained in the query (longest first), a label word of
// more than two runes contained in the query, then the alias table by whole
// token. An alias only resolves when its target exists in departments.
func ResolveDepartment(query string, departments []string, aliases []Alias) (string, bool) {
	q := textnorm.Normalize(query)
	if q == "" || len(departments) == 0 {
		return "", false
	}

	byLength := append([]string(nil), departments...)
	sort.SliceStable(byLength, func(i, j int) bool {
		return utf8.RuneCountInString(byLength[i]) > utf8.RuneCountInString(byLength[j])
	})
	for _, d := range byLength {
		if nd := textnorm.Normalize(d); nd != "" && strings.Contains(q, nd) {
			return d, true
		}
	}

	for _, d := range departments {
		for _, word := range strings.Fields(textnorm.Normalize(d)) {
			if utf8.RuneCountInString(word) > 2 && strings.Contains(q, word) {
				return d, true
			}
		}
	}

	known := make(map[string]string, len(departments))
	for _, d := range departments {
		known[textnorm.Fold(d)] = d
	}
	for _, tok := range strings.Fields(q) {
		for _, a := range aliases {
			if tok != textnorm.Fold(a.Token) {
				continue
			}
			if d, ok := known[textnorm.Fold(a.Target)]; ok {
				return d, true
			}
		}
	}
	return "", false
}

// DepartmentAggregate compares a department's mean salary with the overall
// mean. When no department resolves it lists the known departments.
func DepartmentAggregate(query string, reg *dataset.Registry, aliases []Alias) (Result, error) {
	departments := Departments(reg)
	if len(departments) == 0 {
		return Result{}, apperr.NotFound("department", "", "Sistemde departman verisi bulunamadı.")
	}

	dept, ok := ResolveDepartment(query, departments, aliases)
	if !ok {
		return departmentList(departments), nil
	}

	want := textnorm.Fold(dept)
	var all, inDept []float64
	employees := []string{}
	for _, ds := range reg.Datasets() {
		deptCol, ok := ds.RoleColumn(dataset.RoleDepartment)
		if !ok {
			continue
		}
		salCol, ok := ds.RoleColumn(dataset.RoleSalary)
		if !ok {
			continue
		}
		di, si := ds.ColumnIndex(deptCol), ds.ColumnIndex(salCol)
		empCol, hasEmp := ds.RoleColumn(dataset.RoleEmployee)
		ei := ds.ColumnIndex(empCol)

		for _, row := range ds.Rows {
			v, ok := ParseNumber(row[si])
			if !ok || v <= 0 {
				continue
			}
			all = append(all, v)
			if textnorm.Fold(row[di]) != want {
				continue
			}
			inDept = append(inDept, v)
			if hasEmp && !IsMissing(row[ei]) {
				employees = append(employees, row[ei])
			}
		}
	}

	if len(inDept) == 0 {
		return Result{}, apperr.NotFound("department", dept, "**"+dept+"** departmanında maaş verisi bulunamadı.")
	}

	deptSum, overall := Summarize(inDept), Summarize(all)
	diff := deptSum.Mean - overall.Mean
	pct, err := PercentageOf(diff, overall.Mean)
	if err != nil {
		return Result{}, err
	}

	position := "üzerinde"
	if diff < 0 {
		position = "altında"
	}

	var b strings.Builder
	b.WriteString("🏢 **" + dept + " Departmanı Maaş Analizi**\n\n")
	b.WriteString("• Departman ortalaması: " + FormatMoney(deptSum.Mean) + "\n")
	b.WriteString("• Genel ortalama: " + FormatMoney(overall.Mean) + "\n")
	b.WriteString("• Fark: " + FormatMoney(diff) + " (" + FormatPercent(roundTo(pct, 1)) + ", genel ortalamanın " + position + ")\n")
	b.WriteString("• En düşük / en yüksek: " + FormatMoney(deptSum.Min) + " / " + FormatMoney(deptSum.Max) + "\n")
	b.WriteString("• Çalışan sayısı: " + FormatCount(deptSum.Count) + "\n")
	if len(employees) > 0 {
		b.WriteString("\n👥 **Çalışanlar:** " + strings.Join(employees, ", "))
	}

	return Result{
		Text:  b.String(),
		Chart: barChart(dept+" ve Genel Ortalama", "Ortalama Maaş", []string{dept, "Genel"}, []float64{deptSum.Mean, overall.Mean}),
		Details: map[string]any{
			"department":            dept,
			"department_mean":       deptSum.Mean,
			"overall_mean":          overall.Mean,
			"difference":            diff,
			"percentage_difference": pct,
			"department_min":        deptSum.Min,
			"department_max":        deptSum.Max,
			"department_count":      deptSum.Count,
			"overall_count":         overall.Count,
			"employees":             employees,
		},
	}, nil
}

func departmentList(departments []string) Result {
	var b strings.Builder
	b.WriteString("Hangi departman hakkında bilgi istediğinizi belirtmediniz.\n\n**Sistemde bulunan departmanlar:**\n")
	for _, d := range departments {
		b.WriteString("• " + d + "\n")
	}
	return Result{
		Text: strings.TrimRight(b.String(), "\n"),
		Details: map[string]any{
			"resolved":    false,
			"departments": departments,
		},
	}
}

// DepartmentHeadcount counts distinct employees in one department.
func DepartmentHeadcount(dept string, reg *dataset.Registry) (Result, error) {
	want := textnorm.Fold(strings.TrimSpace(dept))
	var names []string
	for _, ds := range reg.Datasets() {
		deptCol, ok := ds.RoleColumn(dataset.RoleDepartment)
		if !ok {
			continue
		}
		empCol, ok := ds.RoleColumn(dataset.RoleEmployee)
		if !ok {
			continue
		}
		di, ei := ds.ColumnIndex(deptCol), ds.ColumnIndex(empCol)
		for _, row := range ds.Rows {
			if strings.Contains(textnorm.Fold(row[di]), want) {
				names = append(names, row[ei])
			}
		}
	}

	unique := uniqueNames(names)
	if len(unique) == 0 {
		return Result{}, apperr.NotFound("department", dept, "**"+dept+"** departmanında çalışan bulunamadı.")
	}
	return Result{
		Text: "👥 **" + dept + "** departmanında **" + FormatCount(len(unique)) + "** çalışan bulunuyor.\n\n" +
			strings.Join(unique, ", "),
		Details: map[string]any{
			"department":     dept,
			"employee_count": len(unique),
			"employees":      unique,
		},
	}, nil
}
