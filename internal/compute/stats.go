package compute

import (
	"math"
	"sort"
)

// Summary is the descriptive summary of a numeric column.
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Q25    float64 `json:"q25"`
	Q75    float64 `json:"q75"`
}

// Summarize computes a Summary. An empty input yields the zero Summary.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	return Summary{
		Count:  len(sorted),
		Mean:   Mean(sorted),
		Median: quantileSorted(sorted, 0.5),
		Std:    StdDev(sorted),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Q25:    quantileSorted(sorted, 0.25),
		Q75:    quantileSorted(sorted, 0.75),
	}
}

// Map returns the summary as JSON-safe details.
func (s Summary) Map() map[string]any {
	return map[string]any{
		"count":  s.Count,
		"mean":   s.Mean,
		"median": s.Median,
		"std":    s.Std,
		"min":    s.Min,
		"max":    s.Max,
		"q25":    s.Q25,
		"q75":    s.Q75,
	}
}

func Sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return Sum(values) / float64(len(values))
}

// StdDev is the sample standard deviation (n-1). It is 0 for fewer than two values.
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := Mean(values)
	var ss float64
	for _, v := range values {
		ss += (v - m) * (v - m)
	}
	return math.Sqrt(ss / float64(len(values)-1))
}

// Quantile returns the q-th quantile with linear interpolation between
// closest ranks.
func Quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return quantileSorted(sorted, q)
}

func quantileSorted(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}

func Median(values []float64) float64 {
	return Quantile(values, 0.5)
}

// Pearson returns the correlation coefficient of two equal-length series and
// false when it is undefined.
func Pearson(x, y []float64) (float64, bool) {
	if len(x) != len(y) || len(x) < 2 {
		return 0, false
	}
	mx, my := Mean(x), Mean(y)
	var sxy, sxx, syy float64
	for i := range x {
		dx, dy := x[i]-mx, y[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return 0, false
	}
	return sxy / math.Sqrt(sxx*syy), true
}
