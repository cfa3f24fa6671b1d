package compute

import (
	"strconv"
	"strings"

	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/textnorm"
)

var missingMarkers = map[string]bool{
	"": true, "-": true, "nan": true, "null": true, "none": true, "n/a": true, "yok": true,
}

// IsMissing reports whether a cell holds no value.
func IsMissing(cell string) bool {
	return missingMarkers[textnorm.Fold(strings.TrimSpace(cell))]
}

// ParseNumber reads a cell as a number. It accepts a trailing currency
// ("TL", "₺"), Turkish grouping ("15.000", "1.500.000", "1.500,75") and
// plain decimals.
func ParseNumber(cell string) (float64, bool) {
	s := strings.TrimSpace(cell)
	if IsMissing(s) {
		return 0, false
	}
	s = strings.TrimSuffix(s, "₺")
	s = strings.TrimSpace(s)
	if len(s) > 2 && strings.EqualFold(s[len(s)-2:], "tl") {
		s = strings.TrimSpace(s[:len(s)-2])
	}
	s = strings.ReplaceAll(s, " ", "")

	dots, commas := strings.Count(s, "."), strings.Count(s, ",")
	switch {
	case dots > 0 && commas > 0:
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case commas == 1:
		if frac := len(s) - strings.Index(s, ",") - 1; frac == 3 {
			s = strings.Replace(s, ",", "", 1)
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	case commas > 1:
		s = strings.ReplaceAll(s, ",", "")
	case dots > 1:
		s = strings.ReplaceAll(s, ".", "")
	case dots == 1 && thousandsDot(s):
		s = strings.Replace(s, ".", "", 1)
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// thousandsDot reports whether the single dot in s groups thousands
// ("15.000") rather than separating decimals ("0.125", "12.5").
func thousandsDot(s string) bool {
	i := strings.Index(s, ".")
	whole := strings.TrimPrefix(s[:i], "-")
	return len(s)-i-1 == 3 && whole != "" && len(whole) <= 3 && whole[0] != '0'
}

// cleanValue is a numeric cell and the row it came from.
type cleanValue struct {
	Row   int
	Value float64
}

// cleanColumn drops missing and non-numeric cells and, when positiveOnly is
// set, values <= 0.
func cleanColumn(values []string, positiveOnly bool) []cleanValue {
	out := make([]cleanValue, 0, len(values))
	for i, cell := range values {
		v, ok := ParseNumber(cell)
		if !ok || (positiveOnly && v <= 0) {
			continue
		}
		out = append(out, cleanValue{Row: i, Value: v})
	}
	return out
}

func valuesOf(cv []cleanValue) []float64 {
	out := make([]float64, len(cv))
	for i, c := range cv {
		out[i] = c.Value
	}
	return out
}

// numericShare is the fraction of non-missing cells that parse as numbers.
func numericShare(values []string) float64 {
	present, numeric := 0, 0
	for _, cell := range values {
		if IsMissing(cell) {
			continue
		}
		present++
		if _, ok := ParseNumber(cell); ok {
			numeric++
		}
	}
	if present == 0 {
		return 0
	}
	return float64(numeric) / float64(present)
}
