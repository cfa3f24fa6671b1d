package compute

import (
	"math"

	"github.com/dustin/go-humanize"
)

// Turkish number layout: "." groups thousands, "," separates decimals.
const (
	formatDecimal = "#.###,##"
	formatWhole   = "#.###,"
)

// FormatNumber renders v the Turkish way: 6000 -> "6.000", 1234.5 -> "1.234,50".
func FormatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return humanize.FormatFloat(formatWhole, v)
	}
	return humanize.FormatFloat(formatDecimal, v)
}

// FormatMoney renders a rounded amount with the TL suffix.
func FormatMoney(v float64) string {
	return humanize.FormatFloat(formatWhole, math.Round(v)) + " TL"
}

// FormatPercent renders v with one decimal and a leading percent sign.
func FormatPercent(v float64) string {
	return "%" + humanize.FormatFloat("#.###,#", v)
}

// FormatCount renders an integer count with thousands grouping.
func FormatCount(n int) string {
	return humanize.FormatInteger(formatWhole, n)
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
