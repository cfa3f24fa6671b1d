package learning

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/apperr"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/storage"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/textnorm"
)

const (
	// DefaultRetention is how long interactions and patterns are kept.
	DefaultRetention = 30 * 24 * time.Hour

	// suggestThreshold is the minimum similarity for a learned boost.
	suggestThreshold = 0.7

	// boostWeight scales a pattern's success rate into a confidence boost.
	boostWeight = 0.2

	// PreferenceBonus is the confidence added toward a user's preferred intent.
	PreferenceBonus = 0.1
)

// ErrInvalidFeedback is returned for feedback values outside the accepted set.
var ErrInvalidFeedback = errors.New("invalid feedback value")

// Store is the adaptive learning store. It is safe for concurrent use.
type Store struct {
	storage   storage.Storage
	locks     keyLock
	now       func() time.Time
	retention time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithRetention sets the eviction window. Non-positive values keep the default.
func WithRetention(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.retention = d
		}
	}
}

// NewStore creates a learning store over st.
func NewStore(st storage.Storage, opts ...Option) *Store {
	s := &Store{
		storage:   st,
		now:       time.Now,
		retention: DefaultRetention,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Storage returns the backing storage.
func (s *Store) Storage() storage.Storage {
	return s.storage
}

// Record appends the interaction and updates patterns and preferences.
// Failures are returned as *apperr.PersistenceWarning.
func (s *Store) Record(ctx context.Context, o Outcome) (storage.Interaction, error) {
	in := o.ToInteraction(s.now())

	if err := s.storage.AppendInteraction(ctx, in); err != nil {
		return in, &apperr.PersistenceWarning{Op: "record interaction", Err: err}
	}
	if err := s.learnQueryPattern(ctx, in); err != nil {
		return in, &apperr.PersistenceWarning{Op: "learn query pattern", Err: err}
	}
	if err := s.learnContextPattern(ctx, in); err != nil {
		return in, &apperr.PersistenceWarning{Op: "learn context pattern", Err: err}
	}
	if err := s.learnPreferences(ctx, in); err != nil {
		return in, &apperr.PersistenceWarning{Op: "learn preferences", Err: err}
	}
	return in, nil
}

// observe folds one observation into p.
func observe(p *storage.Pattern, success bool, confidence float64, at time.Time) {
	s := 0.0
	if success {
		s = 1.0
	}
	p.Frequency++
	p.SuccessRate = (p.SuccessRate*float64(p.Frequency-1) + s) / float64(p.Frequency)
	p.SuccessRate = min(1, max(0, p.SuccessRate))
	p.Confidence = confidence
	p.LastUpdated = at
}

func (s *Store) learnQueryPattern(ctx context.Context, in storage.Interaction) error {
	id := textnorm.PatternID(in.Query)
	defer s.locks.lock(id)()

	p, ok, err := s.storage.GetPattern(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		p = storage.Pattern{
			ID:   id,
			Type: storage.QueryPattern,
			Payload: storage.PatternPayload{
				NormalizedQuery: textnorm.PatternKey(in.Query),
				OriginalQuery:   in.Query,
				Intent:          in.Intent,
				WordCount:       len(strings.Fields(in.Query)),
				QueryLength:     len([]rune(in.Query)),
			},
		}
	}
	observe(&p, Successful(in), in.Confidence, in.Timestamp)
	return s.storage.UpsertPattern(ctx, p)
}

func (s *Store) learnContextPattern(ctx context.Context, in storage.Interaction) error {
	if len(in.Context) == 0 {
		return nil
	}
	keys := make([]string, 0, len(in.Context))
	for k := range in.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	id := textnorm.ContextPatternID(keys)
	defer s.locks.lock(id)()

	p, ok, err := s.storage.GetPattern(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		p = storage.Pattern{
			ID:   id,
			Type: storage.ContextPattern,
			Payload: storage.PatternPayload{
				ContextKeys:    keys,
				ExampleContext: in.Context,
				Intent:         in.Intent,
			},
		}
	}
	observe(&p, Successful(in), in.Confidence, in.Timestamp)
	return s.storage.UpsertPattern(ctx, p)
}

func (s *Store) learnPreferences(ctx context.Context, in storage.Interaction) error {
	if in.Confidence > preferenceConfidence {
		if err := s.bumpPreference(ctx, in.UserID, storage.IntentPreferences, in.Intent, in.Timestamp); err != nil {
			return err
		}
	}
	if in.Feedback == storage.FeedbackPositive {
		return s.bumpPreference(ctx, in.UserID, storage.ResponsePreferences, in.ResponseType, in.Timestamp)
	}
	return nil
}

func (s *Store) bumpPreference(ctx context.Context, userID, prefType, key string, at time.Time) error {
	defer s.locks.lock("pref:" + userID + ":" + prefType)()

	p, ok, err := s.storage.GetPreference(ctx, userID, prefType)
	if err != nil {
		return err
	}
	if !ok {
		p = storage.Preference{UserID: userID, Type: prefType, Counts: map[string]int{}}
	}
	if p.Counts == nil {
		p.Counts = map[string]int{}
	}
	p.Counts[key]++
	p.UpdatedAt = at
	return s.storage.UpsertPreference(ctx, p)
}

// AddFeedback attaches feedback to the user's most recent interaction with
// the same normalized query. Positive feedback also counts toward the user's
// response preferences.
func (s *Store) AddFeedback(ctx context.Context, userID, query, feedback string) (bool, error) {
	if !storage.ValidFeedback(feedback) {
		return false, fmt.Errorf("%w: %q", ErrInvalidFeedback, feedback)
	}
	normalized := textnorm.Normalize(query)
	ok, err := s.storage.SetFeedback(ctx, userID, normalized, feedback)
	if err != nil {
		return false, &apperr.PersistenceWarning{Op: "set feedback", Err: err}
	}
	if !ok || feedback != storage.FeedbackPositive {
		return ok, nil
	}

	recent, err := s.storage.Interactions(ctx, storage.InteractionQuery{UserID: userID, Limit: 50})
	if err != nil {
		return ok, &apperr.PersistenceWarning{Op: "set feedback", Err: err}
	}
	for _, in := range recent {
		if in.NormalizedQuery == normalized {
			if err := s.bumpPreference(ctx, userID, storage.ResponsePreferences, in.ResponseType, s.now().UTC()); err != nil {
				return ok, &apperr.PersistenceWarning{Op: "set feedback", Err: err}
			}
			break
		}
	}
	return ok, nil
}

// Evict removes everything older than the retention window.
func (s *Store) Evict(ctx context.Context, now time.Time) (storage.CleanupStats, error) {
	return s.storage.Cleanup(ctx, now.Add(-s.retention))
}

// Clear removes all learning state.
func (s *Store) Clear(ctx context.Context) error {
	return s.storage.Clear(ctx)
}

// Stats counts stored records.
func (s *Store) Stats(ctx context.Context) (storage.Stats, error) {
	return s.storage.Stats(ctx)
}
