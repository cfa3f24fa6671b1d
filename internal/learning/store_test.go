package learning

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/storage"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/textnorm"
)

var now = time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC)

// ticking returns a clock that advances one minute per call.
func ticking(start time.Time) func() time.Time {
	var mu sync.Mutex
	cur := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		cur = cur.Add(time.Minute)
		return cur
	}
}

func newStore(opts ...Option) *Store {
	return NewStore(storage.NewMemoryStorage(), append([]Option{WithClock(func() time.Time { return now })}, opts...)...)
}

func TestEqualNormalizationSharesPattern(t *testing.T) {
	ctx := context.Background()
	s := newStore()

	for _, q := range []string{"Ortalama maaş?", "ortalama   MAAŞ", "ORTALAMA MAAŞ!"} {
		_, err := s.Record(ctx, Outcome{UserID: "ali", Query: q, Intent: "statistics", Confidence: 0.9})
		require.NoError(t, err)
	}

	patterns, err := s.Storage().Patterns(ctx, storage.QueryPattern)
	require.NoError(t, err)
	require.Len(t, patterns, 1)
	assert.Equal(t, textnorm.PatternID("ortalama maaş"), patterns[0].ID)
	assert.Equal(t, 3, patterns[0].Frequency)
	assert.Equal(t, "statistics", patterns[0].Payload.Intent)
	assert.Equal(t, "Ortalama maaş?", patterns[0].Payload.OriginalQuery)
}

func TestSuccessRateStaysBounded(t *testing.T) {
	ctx := context.Background()
	s := newStore()

	outcomes := []Outcome{
		{Confidence: 0.95},
		{Confidence: 0.2},
		{Confidence: 0.9, Feedback: storage.FeedbackNegative},
		{Confidence: 0.71, Feedback: storage.FeedbackHelpful},
		{Confidence: 0.7},
		{Confidence: 1.0, Feedback: storage.FeedbackPositive},
	}
	successes := 0
	for i, o := range outcomes {
		o.UserID, o.Query, o.Intent = "ali", "500 * 12 kaç eder", "arithmetic"
		in, err := s.Record(ctx, o)
		require.NoError(t, err)
		if Successful(in) {
			successes++
		}

		p, ok, err := s.Storage().GetPattern(ctx, textnorm.PatternID(o.Query))
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, i+1, p.Frequency)
		assert.GreaterOrEqual(t, p.SuccessRate, 0.0)
		assert.LessOrEqual(t, p.SuccessRate, 1.0)
	}

	p, _, _ := s.Storage().GetPattern(ctx, textnorm.PatternID("7 * 3 kaç eder"))
	assert.Equal(t, 3, successes)
	assert.InDelta(t, 0.5, p.SuccessRate, 1e-9)
}

func TestContextPatternIgnoresKeyOrder(t *testing.T) {
	ctx := context.Background()
	s := newStore()

	_, err := s.Record(ctx, Outcome{UserID: "ali", Query: "a", Intent: "statistics", Confidence: 0.9,
		Context: map[string]any{"method": "statistics", "data_sources": "maas.csv"}})
	require.NoError(t, err)
	_, err = s.Record(ctx, Outcome{UserID: "ali", Query: "b", Intent: "statistics", Confidence: 0.3,
		Context: map[string]any{"data_sources": "x", "method": "ratio"}})
	require.NoError(t, err)

	patterns, err := s.Storage().Patterns(ctx, storage.ContextPattern)
	require.NoError(t, err)
	require.Len(t, patterns, 1)
	assert.Equal(t, []string{"data_sources", "method"}, patterns[0].Payload.ContextKeys)
	assert.Equal(t, 2, patterns[0].Frequency)
	assert.InDelta(t, 0.5, patterns[0].SuccessRate, 1e-9)
}

func TestPreferences(t *testing.T) {
	ctx := context.Background()
	s := newStore()

	record := func(intent string, conf float64, feedback string) {
		_, err := s.Record(ctx, Outcome{UserID: "ali", Query: intent, Intent: intent, Confidence: conf,
			ResponseType: "computation", Feedback: feedback})
		require.NoError(t, err)
	}
	record("statistics", 0.9, "")
	record("statistics", 0.85, storage.FeedbackPositive)
	record("arithmetic", 0.8, "") // not above the preference threshold
	record("ratio", 0.95, "")

	pref, ok, err := s.Storage().GetPreference(ctx, "ali", storage.IntentPreferences)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, map[string]int{"statistics": 2, "ratio": 1}, pref.Counts)

	resp, ok, err := s.Storage().GetPreference(ctx, "ali", storage.ResponsePreferences)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, map[string]int{"computation": 1}, resp.Counts)

	top, ok := s.TopIntent(ctx, "ali")
	assert.True(t, ok)
	assert.Equal(t, "statistics", top)

	_, ok = s.TopIntent(ctx, "veli")
	assert.False(t, ok)
}

func TestTopIntentTieIsAlphabetical(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	require.NoError(t, s.Storage().UpsertPreference(ctx, storage.Preference{
		UserID: "ali", Type: storage.IntentPreferences,
		Counts: map[string]int{"store_query": 2, "arithmetic": 2, "help": 1},
	}))

	for i := 0; i < 5; i++ {
		top, ok := s.TopIntent(ctx, "ali")
		require.True(t, ok)
		assert.Equal(t, "arithmetic", top)
	}
}

func TestAddFeedback(t *testing.T) {
	ctx := context.Background()
	s := NewStore(storage.NewMemoryStorage(), WithClock(ticking(now)))

	_, err := s.Record(ctx, Outcome{UserID: "ali", Query: "Toplam ciro?", Intent: "statistics", Confidence: 0.9, ResponseType: "computation"})
	require.NoError(t, err)
	latest, err := s.Record(ctx, Outcome{UserID: "ali", Query: "toplam ciro", Intent: "statistics", Confidence: 0.9, ResponseType: "computation"})
	require.NoError(t, err)

	ok, err := s.AddFeedback(ctx, "ali", "TOPLAM CIRO", storage.FeedbackPositive)
	require.NoError(t, err)
	assert.True(t, ok)

	all, err := s.Storage().Interactions(ctx, storage.InteractionQuery{UserID: "ali"})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, latest.ID, all[0].ID)
	assert.Equal(t, storage.FeedbackPositive, all[0].Feedback)
	assert.Equal(t, storage.FeedbackNone, all[1].Feedback)

	resp, ok, _ := s.Storage().GetPreference(ctx, "ali", storage.ResponsePreferences)
	assert.True(t, ok)
	assert.Equal(t, 1, resp.Counts["computation"])

	ok, err = s.AddFeedback(ctx, "veli", "toplam ciro", storage.FeedbackNegative)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.AddFeedback(ctx, "ali", "toplam ciro", "great")
	assert.ErrorIs(t, err, ErrInvalidFeedback)
}

func TestSuggestAndLearnedIntent(t *testing.T) {
	ctx := context.Background()
	s := newStore()

	_, err := s.Record(ctx, Outcome{UserID: "ali", Query: "ortalama maaş", Intent: "statistics", Confidence: 0.9})
	require.NoError(t, err)

	name, rate, ok := s.LearnedIntent(ctx, "ortalama maaşı")
	require.True(t, ok)
	assert.Equal(t, "statistics", name)
	assert.Equal(t, 1.0, rate)

	sug := s.Suggest(ctx, "Ortalama maaşı", "ali")
	assert.Equal(t, "statistics", sug.PrimaryIntent)
	assert.InDelta(t, 0.2, sug.ConfidenceBoost, 1e-9)
	assert.Greater(t, sug.Similarity, 0.7)
	assert.Equal(t, "statistics", sug.PreferredIntent)
	assert.Equal(t, PreferenceBonus, sug.UserPreferenceBonus)

	// similar but below the boost threshold
	_, _, ok = s.LearnedIntent(ctx, "ortalama ciro")
	assert.False(t, ok)
	assert.Equal(t, []string{"ortalama maaş"}, s.SimilarQueries(ctx, "ortalama ciro", 0.3, 0.7, 3))

	// no pattern match: the preferred intent becomes primary
	sug = s.Suggest(ctx, "mağaza listesi", "ali")
	assert.Equal(t, "statistics", sug.PrimaryIntent)
	assert.Zero(t, sug.ConfidenceBoost)
}

func TestSimilarQueriesLimitAndOrder(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	for _, q := range []string{"ortalama maaş", "ortalama ciro nedir", "en yüksek maaş", "toplam çalışan"} {
		_, err := s.Record(ctx, Outcome{UserID: "ali", Query: q, Intent: "statistics", Confidence: 0.9})
		require.NoError(t, err)
	}

	got := s.SimilarQueries(ctx, "ortalama ciro", 0.3, 0.7, 1)
	assert.Len(t, got, 1)
	assert.Empty(t, s.SimilarQueries(ctx, "ortalama ciro", 0.99, 1, 3))
}

func TestReport(t *testing.T) {
	ctx := context.Background()
	s := newStore()

	record := func(q, intent string, conf float64, age time.Duration) {
		_, err := s.Record(ctx, Outcome{
			UserID: "ali", Query: q, Intent: intent, Confidence: conf,
			ResponseType: "computation", ResponseTime: 2 * time.Second,
			Timestamp: now.Add(-age),
		})
		require.NoError(t, err)
	}
	day := 24 * time.Hour
	record("ortalama maaş", "statistics", 0.9, 1*day)
	record("ortalama maaş", "statistics", 0.9, 2*day)
	record("5 + 3 kaç eder", "arithmetic", 0.4, 12*day)
	record("7 + 2 kaç eder", "arithmetic", 0.4, 15*day)
	record("toplam ciro", "statistics", 0.9, 40*day)

	rep, err := s.Report(ctx)
	require.NoError(t, err)

	assert.Equal(t, 4, rep.Summary.TotalQueries)
	assert.InDelta(t, 0.5, rep.Summary.SuccessRate, 1e-9)
	assert.InDelta(t, 2.0, rep.Summary.AvgResponseTime, 1e-9)
	assert.Equal(t, 3, rep.Summary.LearnedPatterns)
	assert.Equal(t, []Count{{"arithmetic", 2}, {"statistics", 2}}, rep.TopIntents)
	assert.Equal(t, []Count{{"arithmetic:computation", 2}}, rep.ErrorPatterns)
	assert.Equal(t, []Count{{"arithmetic", 2}}, rep.LowConfidence)
	assert.Equal(t, TrendImproving, rep.Progress.Trend)
	assert.InDelta(t, 0.5, rep.Progress.Improvement, 1e-9)
	assert.Empty(t, rep.Recommendations)
}

func TestReportProgressStates(t *testing.T) {
	ctx := context.Background()

	s := newStore()
	rep, err := s.Report(ctx)
	require.NoError(t, err)
	assert.Equal(t, TrendNoData, rep.Progress.Trend)
	assert.NotNil(t, rep.TopIntents)

	_, err = s.Record(ctx, Outcome{UserID: "ali", Query: "q", Intent: "help", Confidence: 0.9, Timestamp: now.Add(-time.Hour)})
	require.NoError(t, err)
	rep, err = s.Report(ctx)
	require.NoError(t, err)
	assert.Equal(t, TrendInsufficient, rep.Progress.Trend)

	_, err = s.Record(ctx, Outcome{UserID: "ali", Query: "q", Intent: "help", Confidence: 0.88, Timestamp: now.Add(-11 * 24 * time.Hour)})
	require.NoError(t, err)
	rep, err = s.Report(ctx)
	require.NoError(t, err)
	assert.Equal(t, TrendStable, rep.Progress.Trend)

	_, err = s.Record(ctx, Outcome{UserID: "ali", Query: "q", Intent: "help", Confidence: 0.1, Timestamp: now.Add(-2 * time.Hour)})
	require.NoError(t, err)
	rep, err = s.Report(ctx)
	require.NoError(t, err)
	assert.Equal(t, TrendDeclining, rep.Progress.Trend)
}

func TestReportRecommendations(t *testing.T) {
	ctx := context.Background()
	s := newStore()

	for i := 0; i < 12; i++ {
		_, err := s.Record(ctx, Outcome{
			UserID: "ali", Query: "maaş farkı", Intent: "comparison", Confidence: 0.3,
			ResponseType: "fallback", Feedback: storage.FeedbackNegative,
			ResponseTime: 6 * time.Second, Timestamp: now.Add(-time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}

	rep, err := s.Report(ctx)
	require.NoError(t, err)
	require.Len(t, rep.Recommendations, 4)
	assert.Contains(t, rep.Recommendations[0], "'comparison:fallback' hatası 12 kez")
	assert.Contains(t, rep.Recommendations[1], "1 pattern düşük başarı")
	assert.Contains(t, rep.Recommendations[2], "12 negatif feedback")
	assert.Contains(t, rep.Recommendations[3], "6.0s")
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := NewStore(storage.NewMemoryStorage(), WithClock(ticking(now)))

	for i, q := range []string{"ortalama maaş", "500 * 12 kaç eder", "Bilgi İşlem ortalama maaş", "ortalama maaş"} {
		_, err := src.Record(ctx, Outcome{
			UserID:       fmt.Sprintf("user-%d", i%2),
			Query:        q,
			Intent:       "statistics",
			Confidence:   0.55 + float64(i)*0.1,
			ResponseType: "computation",
			ResponseTime: time.Duration(i+1) * 1250 * time.Millisecond,
			SessionID:    "s-1",
			Context:      map[string]any{"method": "statistics"},
		})
		require.NoError(t, err)
	}
	_, err := src.AddFeedback(ctx, "user-1", "ortalama maaş", storage.FeedbackPositive)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, src.Export(ctx, &buf))

	dbStore := storage.NewStorage(filepath.Join(t.TempDir(), "learning.db"))
	require.NoError(t, dbStore.Init())
	defer dbStore.Close()

	for name, st := range map[string]storage.Storage{"memory": storage.NewMemoryStorage(), "sqlite": dbStore} {
		t.Run(name, func(t *testing.T) {
			dst := NewStore(st)
			stats, err := dst.Import(ctx, bytes.NewReader(buf.Bytes()))
			require.NoError(t, err)
			assert.Equal(t, storage.Stats{Interactions: 4, Patterns: 4, Preferences: 2}, stats)

			want, err := src.Snapshot(ctx)
			require.NoError(t, err)
			got, err := dst.Snapshot(ctx)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestImportRejectsBadDocuments(t *testing.T) {
	ctx := context.Background()
	s := newStore()

	_, err := s.Import(ctx, bytes.NewReader([]byte("not json")))
	assert.Error(t, err)

	_, err = s.Import(ctx, bytes.NewReader([]byte(`{"version": 99}`)))
	assert.ErrorContains(t, err, "unsupported")

	_, err = s.Import(ctx, bytes.NewReader([]byte(`{"version": 1, "learned_patterns": [{"pattern_id": "query_x", "success_rate": 1.5}]}`)))
	assert.ErrorContains(t, err, "outside [0,1]")
}

func TestEvict(t *testing.T) {
	ctx := context.Background()
	s := newStore()

	_, err := s.Record(ctx, Outcome{UserID: "ali", Query: "eski", Intent: "help", Confidence: 0.9, Timestamp: now.AddDate(0, 0, -40)})
	require.NoError(t, err)
	_, err = s.Record(ctx, Outcome{UserID: "ali", Query: "yeni", Intent: "help", Confidence: 0.9, Timestamp: now.AddDate(0, 0, -1)})
	require.NoError(t, err)

	removed, err := s.Evict(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed.Interactions)
	assert.Equal(t, int64(1), removed.Patterns)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Interactions)
	assert.Equal(t, 1, stats.Patterns)

	short := newStore(WithRetention(time.Hour))
	_, err = short.Record(ctx, Outcome{UserID: "ali", Query: "q", Intent: "help", Confidence: 0.9, Timestamp: now.Add(-2 * time.Hour)})
	require.NoError(t, err)
	removed, err = short.Evict(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed.Interactions)
}

func TestConcurrentRecordsKeepFrequency(t *testing.T) {
	ctx := context.Background()
	s := newStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			q := "ortalama maaş"
			if i%2 == 1 {
				q = "toplam ciro"
			}
			_, err := s.Record(ctx, Outcome{UserID: "ali", Query: q, Intent: "statistics", Confidence: 0.9})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	for _, q := range []string{"ortalama maaş", "toplam ciro"} {
		p, ok, err := s.Storage().GetPattern(ctx, textnorm.PatternID(q))
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 25, p.Frequency, q)
	}
	pref, _, _ := s.Storage().GetPreference(ctx, "ali", storage.IntentPreferences)
	assert.Equal(t, 50, pref.Counts["statistics"])
}
