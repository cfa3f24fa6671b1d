package compute

import (
	"regexp"
	"strings"

	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/apperr"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/extract"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/textnorm"
)

// Growth returns the percentage change from old to new.
func Growth(oldV, newV float64) (float64, error) {
	if oldV == 0 {
		return 0, apperr.Computation("growth", "başlangıç değeri sıfır olduğu için büyüme oranı hesaplanamaz")
	}
	return (newV - oldV) / oldV * 100, nil
}

// PercentageOf returns part as a percentage of whole.
func PercentageOf(part, whole float64) (float64, error) {
	if whole == 0 {
		return 0, apperr.Computation("percentage", "bütün değeri sıfır olamaz")
	}
	return part / whole * 100, nil
}

var (
	growthWords = []string{"artış", "büyüme", "azalış", "düşüş", "değişim"}
	percentRate = regexp.MustCompile(`(?:yüzde\s*|%\s*)(\d+(?:[.,]\d+)?)`)
)

// Percentage answers growth ("100'den 120'ye artış"), share ("20 100'ün
// yüzde kaçı") and rate ("500'ün yüzde 20'si") questions.
func Percentage(query string, ents extract.Entities) (Result, error) {
	numbers := ents.Numbers
	if len(numbers) == 0 {
		numbers = extract.ExtractNumbers(query)
	}
	tokens := textnorm.Tokens(query)
	folded := textnorm.Fold(query)

	switch {
	case mentions(tokens, growthWords):
		if len(numbers) < 2 {
			return Result{}, apperr.Computation("growth", "Büyüme oranı için eski ve yeni değere ihtiyacım var. Örnek: '100'den 120'ye artış yüzde kaç?'")
		}
		g, err := Growth(numbers[0], numbers[1])
		if err != nil {
			return Result{}, err
		}
		direction := "artış"
		if g < 0 {
			direction = "azalış"
		}
		return Result{
			Text: "📈 **Büyüme Oranı**\n\n" +
				"**Eski değer:** " + FormatNumber(numbers[0]) + "\n" +
				"**Yeni değer:** " + FormatNumber(numbers[1]) + "\n" +
				"**Değişim:** " + FormatPercent(roundTo(g, 1)) + " " + direction,
			Chart: barChart("Değişim", "Değer", []string{"Eski", "Yeni"}, []float64{numbers[0], numbers[1]}),
			Details: map[string]any{
				"old_value":   numbers[0],
				"new_value":   numbers[1],
				"growth_rate": g,
			},
		}, nil

	case strings.Contains(folded, "yüzde kaç") || strings.Contains(folded, "% kaç"):
		if len(numbers) < 2 {
			return Result{}, apperr.Computation("percentage", "Yüzde hesabı için iki değere ihtiyacım var. Örnek: '25 100'ün yüzde kaçı?'")
		}
		part, whole := numbers[0], numbers[1]
		p, err := PercentageOf(part, whole)
		if err != nil {
			return Result{}, err
		}
		return Result{
			Text: "🔢 **Yüzde Hesabı**\n\n" +
				FormatNumber(part) + ", " + FormatNumber(whole) + " değerinin " + FormatPercent(roundTo(p, 1)) + "'i",
			Details: map[string]any{"part": part, "whole": whole, "percentage": p},
		}, nil

	case len(numbers) >= 2 && percentRate.MatchString(folded):
		m := percentRate.FindStringSubmatch(folded)
		rate := extract.ExtractNumbers(m[1])[0]
		base := numbers[0]
		if base == rate {
			base = numbers[1]
		}
		v := base * rate / 100
		return Result{
			Text: "🔢 **Yüzde Hesabı**\n\n" +
				FormatNumber(base) + " değerinin " + FormatPercent(rate) + " kadarı: **" + FormatNumber(roundTo(v, 2)) + "**",
			Details: map[string]any{"base": base, "rate": rate, "result": v},
		}, nil
	}

	return Result{}, apperr.Computation("percentage", "Yüzde hesaplaması için daha spesifik bilgi gerekli. Örnek: '100'den 120'ye artış yüzde kaç?'")
}
