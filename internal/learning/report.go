package learning

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/storage"
)

// Learning progress trends.
const (
	TrendImproving    = "improving"
	TrendStable       = "stable"
	TrendDeclining    = "declining"
	TrendInsufficient = "insufficient_data"
	TrendNoData       = "no_data"
)

const (
	reportWindow    = 30 * 24 * time.Hour
	progressPeriod  = 10 * 24 * time.Hour
	progressEpsilon = 0.05
	feedbackSample  = 100
)

// Count is a named counter in a report.
type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Summary is the headline section of a report.
type Summary struct {
	TotalQueries    int     `json:"total_queries"`
	SuccessRate     float64 `json:"success_rate"`
	AvgResponseTime float64 `json:"avg_response_time_seconds"`
	LearnedPatterns int     `json:"learned_patterns"`
}

// Progress compares mean confidence of the last ten days with the ten before.
type Progress struct {
	Trend              string  `json:"trend"`
	Improvement        float64 `json:"improvement"`
	RecentConfidence   float64 `json:"recent_confidence,omitempty"`
	PreviousConfidence float64 `json:"previous_confidence,omitempty"`
}

// Report is the learning performance report.
type Report struct {
	GeneratedAt     time.Time `json:"generated_at"`
	Summary         Summary   `json:"summary"`
	TopIntents      []Count   `json:"top_intents"`
	ErrorPatterns   []Count   `json:"error_patterns"`
	LowConfidence   []Count   `json:"low_confidence_intents"`
	Progress        Progress  `json:"learning_progress"`
	Recommendations []string  `json:"recommendations"`
}

// Report builds the performance report over the last 30 days.
func (s *Store) Report(ctx context.Context) (Report, error) {
	now := s.now().UTC()
	rep := Report{
		GeneratedAt:     now,
		TopIntents:      []Count{},
		ErrorPatterns:   []Count{},
		LowConfidence:   []Count{},
		Recommendations: []string{},
	}

	window, err := s.storage.Interactions(ctx, storage.InteractionQuery{Since: now.Add(-reportWindow)})
	if err != nil {
		return rep, fmt.Errorf("failed to load interactions: %w", err)
	}
	patterns, err := s.storage.Patterns(ctx, "")
	if err != nil {
		return rep, fmt.Errorf("failed to load patterns: %w", err)
	}
	latest, err := s.storage.Interactions(ctx, storage.InteractionQuery{Limit: feedbackSample})
	if err != nil {
		return rep, fmt.Errorf("failed to load interactions: %w", err)
	}

	intents := map[string]int{}
	errs := map[string]int{}
	low := map[string]int{}
	var successes int
	var totalTime time.Duration
	for _, in := range window {
		intents[in.Intent]++
		if Successful(in) {
			successes++
		}
		if isError(in) {
			errs[in.Intent+":"+in.ResponseType]++
		}
		if in.Confidence < lowConfidence {
			low[in.Intent]++
		}
		totalTime += in.ResponseTime
	}

	rep.Summary = Summary{
		TotalQueries:    len(window),
		LearnedPatterns: len(patterns),
	}
	if n := len(window); n > 0 {
		rep.Summary.SuccessRate = float64(successes) / float64(n)
		rep.Summary.AvgResponseTime = totalTime.Seconds() / float64(n)
	}

	rep.TopIntents = top(sortedCounts(intents), 5)
	rep.ErrorPatterns = top(sortedCounts(errs), 3)
	rep.LowConfidence = sortedCounts(low)
	rep.Progress = progress(window, len(latest) > 0, now)
	rep.Recommendations = recommendations(rep, patterns, latest)
	return rep, nil
}

func progress(window []storage.Interaction, hasHistory bool, now time.Time) Progress {
	if !hasHistory {
		return Progress{Trend: TrendNoData}
	}

	recentStart := now.Add(-progressPeriod)
	olderStart := now.Add(-2 * progressPeriod)

	var recent, older []float64
	for _, in := range window {
		switch {
		case in.Timestamp.After(recentStart):
			recent = append(recent, in.Confidence)
		case in.Timestamp.After(olderStart):
			older = append(older, in.Confidence)
		}
	}
	if len(older) == 0 {
		return Progress{Trend: TrendInsufficient}
	}

	p := Progress{RecentConfidence: mean(recent), PreviousConfidence: mean(older)}
	p.Improvement = p.RecentConfidence - p.PreviousConfidence
	switch {
	case p.Improvement > progressEpsilon:
		p.Trend = TrendImproving
	case p.Improvement >= -progressEpsilon:
		p.Trend = TrendStable
	default:
		p.Trend = TrendDeclining
	}
	return p
}

func recommendations(rep Report, patterns []storage.Pattern, latest []storage.Interaction) []string {
	out := []string{}
	for _, e := range rep.ErrorPatterns {
		if e.Count > 5 {
			out = append(out, fmt.Sprintf("'%s' hatası %d kez tekrarlandı - intent tanıma iyileştirmesi gerekli", e.Name, e.Count))
		}
	}

	weak := 0
	for _, p := range patterns {
		if p.SuccessRate < 0.6 && p.Frequency > 3 {
			weak++
		}
	}
	if weak > 0 {
		out = append(out, fmt.Sprintf("%d pattern düşük başarı oranına sahip - eğitim verisi güncellenmeli", weak))
	}

	negatives := 0
	for _, in := range latest {
		if in.Feedback == storage.FeedbackNegative {
			negatives++
		}
	}
	if negatives > 10 {
		out = append(out, fmt.Sprintf("Son %d etkileşimde %d negatif feedback - kullanıcı deneyimi iyileştirmesi gerekli", feedbackSample, negatives))
	}

	if rep.Summary.AvgResponseTime > 5 {
		out = append(out, fmt.Sprintf("Ortalama yanıt süresi %.1fs - performans optimizasyonu gerekli", rep.Summary.AvgResponseTime))
	}
	return out
}

// sortedCounts orders counters by count descending, then name.
func sortedCounts(m map[string]int) []Count {
	out := make([]Count, 0, len(m))
	for k, v := range m {
		out = append(out, Count{Name: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return strings.Compare(out[i].Name, out[j].Name) < 0
	})
	return out
}

func top(c []Count, n int) []Count {
	if len(c) > n {
		return c[:n]
	}
	return c
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
