package learning

import (
	"context"
	"log/slog"
	"sort"

	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/storage"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/textnorm"
)

// Suggestion is the learned hint for a query.
type Suggestion struct {
	PrimaryIntent       string  `json:"primary_intent,omitempty"`
	PatternID           string  `json:"pattern_id,omitempty"`
	Similarity          float64 `json:"similarity"`
	SuccessRate         float64 `json:"success_rate"`
	Frequency           int     `json:"frequency"`
	ConfidenceBoost     float64 `json:"confidence_boost"`
	PreferredIntent     string  `json:"preferred_intent,omitempty"`
	UserPreferenceBonus float64 `json:"user_preference_bonus"`
}

// Suggest finds the stored query pattern most similar to query (above 0.7)
// and the user's preferred intent. When no pattern matches, the preferred
// intent becomes the primary one.
func (s *Store) Suggest(ctx context.Context, query, userID string) Suggestion {
	var sug Suggestion

	if p, sim, ok := s.bestPattern(ctx, query); ok {
		sug.PrimaryIntent = p.Payload.Intent
		sug.PatternID = p.ID
		sug.Similarity = sim
		sug.SuccessRate = p.SuccessRate
		sug.Frequency = p.Frequency
		sug.ConfidenceBoost = p.SuccessRate * boostWeight
	}

	if userID != "" {
		if top, ok := s.TopIntent(ctx, userID); ok {
			sug.PreferredIntent = top
			sug.UserPreferenceBonus = PreferenceBonus
			if sug.PrimaryIntent == "" {
				sug.PrimaryIntent = top
			}
		}
	}
	return sug
}

// LearnedIntent returns the intent and success rate of the best similar
// query pattern.
func (s *Store) LearnedIntent(ctx context.Context, query string) (string, float64, bool) {
	p, _, ok := s.bestPattern(ctx, query)
	if !ok || p.Payload.Intent == "" {
		return "", 0, false
	}
	return p.Payload.Intent, p.SuccessRate, true
}

func (s *Store) bestPattern(ctx context.Context, query string) (storage.Pattern, float64, bool) {
	patterns, err := s.storage.Patterns(ctx, storage.QueryPattern)
	if err != nil {
		slog.Warn("failed to load learned patterns", "err", err)
		return storage.Pattern{}, 0, false
	}

	key := textnorm.PatternKey(query)
	var (
		best    storage.Pattern
		bestSim float64
		found   bool
	)
	// patterns come ordered by id, so ties resolve the same way every time
	for _, p := range patterns {
		sim := textnorm.Ratio(key, p.Payload.NormalizedQuery)
		if sim > suggestThreshold && sim > bestSim {
			best, bestSim, found = p, sim, true
		}
	}
	return best, bestSim, found
}

// TopIntent returns the intent the user was most often confidently routed to.
// Ties go to the alphabetically first intent.
func (s *Store) TopIntent(ctx context.Context, userID string) (string, bool) {
	pref, ok, err := s.storage.GetPreference(ctx, userID, storage.IntentPreferences)
	if err != nil {
		slog.Warn("failed to load preferences", "user", userID, "err", err)
		return "", false
	}
	if !ok || len(pref.Counts) == 0 {
		return "", false
	}

	counts := sortedCounts(pref.Counts)
	return counts[0].Name, true
}

// SimilarQueries returns up to limit original queries of learned patterns
// whose similarity to query lies strictly between lo and hi, best first.
func (s *Store) SimilarQueries(ctx context.Context, query string, lo, hi float64, limit int) []string {
	patterns, err := s.storage.Patterns(ctx, storage.QueryPattern)
	if err != nil {
		slog.Warn("failed to load learned patterns", "err", err)
		return nil
	}

	type scored struct {
		query string
		sim   float64
	}
	key := textnorm.PatternKey(query)
	var hits []scored
	for _, p := range patterns {
		sim := textnorm.Ratio(key, p.Payload.NormalizedQuery)
		if sim > lo && sim < hi {
			hits = append(hits, scored{p.Payload.OriginalQuery, sim})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].sim > hits[j].sim })

	out := make([]string, 0, min(limit, len(hits)))
	for _, h := range hits {
		if len(out) == limit {
			break
		}
		out = append(out, h.query)
	}
	return out
}
