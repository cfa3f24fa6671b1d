package storage

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStorage keeps learning state in process memory. It is used when no
// database path is configured and in tests.
type MemoryStorage struct {
	mu           sync.Mutex
	interactions []Interaction
	ids          map[string]bool
	patterns     map[string]Pattern
	preferences  map[prefKey]Preference
}

type prefKey struct {
	user, kind string
}

// NewMemoryStorage creates an empty in-memory store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		ids:         make(map[string]bool),
		patterns:    make(map[string]Pattern),
		preferences: make(map[prefKey]Preference),
	}
}

// Init is a no-op.
func (m *MemoryStorage) Init() error { return nil }

// Close is a no-op.
func (m *MemoryStorage) Close() error { return nil }

func (m *MemoryStorage) AppendInteraction(_ context.Context, in Interaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendLocked(in)
	return nil
}

func (m *MemoryStorage) appendLocked(in Interaction) {
	if m.ids[in.ID] {
		return
	}
	m.ids[in.ID] = true
	in.Timestamp = in.Timestamp.UTC()
	in.Context = cloneContext(in.Context)
	m.interactions = append(m.interactions, in)
}

func (m *MemoryStorage) Interactions(_ context.Context, q InteractionQuery) ([]Interaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []Interaction{}
	// newest first; later appends win ties like the seq column does
	for i := len(m.interactions) - 1; i >= 0; i-- {
		in := m.interactions[i]
		if q.UserID != "" && in.UserID != q.UserID {
			continue
		}
		if in.Timestamp.Before(q.Since) {
			continue
		}
		out = append(out, in)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	for i := range out {
		out[i].Context = cloneContext(out[i].Context)
	}
	return out, nil
}

func (m *MemoryStorage) SetFeedback(_ context.Context, userID, normalizedQuery, feedback string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	best := -1
	for i, in := range m.interactions {
		if in.UserID != userID || in.NormalizedQuery != normalizedQuery {
			continue
		}
		if best < 0 || !in.Timestamp.Before(m.interactions[best].Timestamp) {
			best = i
		}
	}
	if best < 0 {
		return false, nil
	}
	m.interactions[best].Feedback = feedback
	return true, nil
}

func (m *MemoryStorage) GetPattern(_ context.Context, id string) (Pattern, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.patterns[id]
	return p, ok, nil
}

func (m *MemoryStorage) UpsertPattern(_ context.Context, p Pattern) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.LastUpdated = p.LastUpdated.UTC()
	m.patterns[p.ID] = p
	return nil
}

func (m *MemoryStorage) Patterns(_ context.Context, patternType string) ([]Pattern, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []Pattern{}
	for _, p := range m.patterns {
		if patternType == "" || p.Type == patternType {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStorage) GetPreference(_ context.Context, userID, prefType string) (Preference, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.preferences[prefKey{userID, prefType}]
	if ok {
		p.Counts = cloneCounts(p.Counts)
	}
	return p, ok, nil
}

func (m *MemoryStorage) UpsertPreference(_ context.Context, p Preference) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putPreference(p)
	return nil
}

func (m *MemoryStorage) putPreference(p Preference) {
	p.Counts = cloneCounts(p.Counts)
	p.UpdatedAt = p.UpdatedAt.UTC()
	m.preferences[prefKey{p.UserID, p.Type}] = p
}

func (m *MemoryStorage) Preferences(_ context.Context) ([]Preference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Preference, 0, len(m.preferences))
	for _, p := range m.preferences {
		p.Counts = cloneCounts(p.Counts)
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		return out[i].Type < out[j].Type
	})
	return out, nil
}

func (m *MemoryStorage) Import(_ context.Context, snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, in := range snap.Interactions {
		m.appendLocked(in)
	}
	for _, p := range snap.Patterns {
		p.LastUpdated = p.LastUpdated.UTC()
		m.patterns[p.ID] = p
	}
	for _, p := range snap.Preferences {
		m.putPreference(p)
	}
	return nil
}

func (m *MemoryStorage) Cleanup(_ context.Context, cutoff time.Time) (CleanupStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var stats CleanupStats
	kept := m.interactions[:0]
	for _, in := range m.interactions {
		if in.Timestamp.Before(cutoff) {
			delete(m.ids, in.ID)
			stats.Interactions++
			continue
		}
		kept = append(kept, in)
	}
	m.interactions = kept

	for id, p := range m.patterns {
		if p.LastUpdated.Before(cutoff) {
			delete(m.patterns, id)
			stats.Patterns++
		}
	}
	for k, p := range m.preferences {
		if p.UpdatedAt.Before(cutoff) {
			delete(m.preferences, k)
			stats.Preferences++
		}
	}
	return stats, nil
}

func (m *MemoryStorage) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interactions = nil
	m.ids = make(map[string]bool)
	m.patterns = make(map[string]Pattern)
	m.preferences = make(map[prefKey]Preference)
	return nil
}

func (m *MemoryStorage) Stats(_ context.Context) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		Interactions: len(m.interactions),
		Patterns:     len(m.patterns),
		Preferences:  len(m.preferences),
	}, nil
}

func cloneContext(c map[string]any) map[string]any {
	if c == nil {
		return nil
	}
	out := make(map[string]any, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

func cloneCounts(c map[string]int) map[string]int {
	out := make(map[string]int, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

var (
	_ Storage = (*SQLiteStorage)(nil)
	_ Storage = (*MemoryStorage)(nil)
)
