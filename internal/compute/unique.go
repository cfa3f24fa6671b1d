package compute

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/apperr"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/dataset"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/textnorm"
)

const minNameRunes = 3

// uniqueNames trims, drops short and null-like values and deduplicates by
// Turkish case fold, keeping the first spelling seen.
func uniqueNames(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := []string{}
	for _, v := range values {
		v = strings.TrimSpace(v)
		if utf8.RuneCountInString(v) < minNameRunes || IsMissing(v) {
			continue
		}
		key := textnorm.Fold(v)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}

// UniqueCount counts distinct employees across every dataset that has an
// employee column.
func UniqueCount(reg *dataset.Registry) (Result, error) {
	var all []string
	totalRows := 0
	processed := []string{}
	for _, ds := range reg.WithRole(dataset.RoleEmployee) {
		values := ds.RoleValues(dataset.RoleEmployee)
		totalRows += len(values)
		valid := len(uniqueNames(values))
		processed = append(processed, ds.Name+": "+FormatCount(valid)+" geçerli kayıt")
		all = append(all, values...)
	}

	unique := uniqueNames(all)
	if len(unique) == 0 {
		return Result{}, apperr.NotFound("employee", "", "Sistemde çalışan verisi bulunamadı.")
	}

	display := append([]string(nil), unique...)
	sort.Slice(display, func(i, j int) bool { return textnorm.Fold(display[i]) < textnorm.Fold(display[j]) })

	var b strings.Builder
	b.WriteString("👥 **Toplam Çalışan Sayısı:** " + FormatCount(len(unique)) + "\n\n")
	b.WriteString("📁 **İşlenen dosyalar:**\n")
	for _, p := range processed {
		b.WriteString("• " + p + "\n")
	}

	return Result{
		Text: strings.TrimRight(b.String(), "\n"),
		Details: map[string]any{
			"employee_count":   len(unique),
			"total_rows":       totalRows,
			"unique_employees": display,
			"processed_files":  processed,
		},
	}, nil
}
