package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Import merges a snapshot in one transaction. Existing interactions are
// kept; patterns and preferences are replaced by the imported rows.
func (s *SQLiteStorage) Import(ctx context.Context, snap Snapshot) error {
	if !s.enabled || s.db == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin import: %w", err)
	}
	defer tx.Rollback()

	for _, in := range snap.Interactions {
		if err := appendInteraction(ctx, tx, in); err != nil {
			return err
		}
	}
	for _, p := range snap.Patterns {
		if err := writePattern(ctx, tx, p); err != nil {
			return err
		}
	}
	for _, p := range snap.Preferences {
		if err := writePreference(ctx, tx, p); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit import: %w", err)
	}
	return nil
}

// Cleanup removes records older than cutoff.
func (s *SQLiteStorage) Cleanup(ctx context.Context, cutoff time.Time) (CleanupStats, error) {
	var stats CleanupStats
	if !s.enabled || s.db == nil {
		return stats, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return stats, fmt.Errorf("failed to begin cleanup: %w", err)
	}
	defer tx.Rollback()

	ts := formatTime(cutoff)
	steps := []struct {
		query string
		n     *int64
	}{
		{"DELETE FROM interactions WHERE timestamp < ?", &stats.Interactions},
		{"DELETE FROM learning_patterns WHERE last_updated < ?", &stats.Patterns},
		{"DELETE FROM user_preferences WHERE updated_at < ?", &stats.Preferences},
	}
	for _, step := range steps {
		res, err := tx.ExecContext(ctx, step.query, ts)
		if err != nil {
			return CleanupStats{}, fmt.Errorf("failed to cleanup: %w", err)
		}
		if *step.n, err = res.RowsAffected(); err != nil {
			return CleanupStats{}, fmt.Errorf("failed to cleanup: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return CleanupStats{}, fmt.Errorf("failed to commit cleanup: %w", err)
	}

	// Vacuum to reclaim space
	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		slog.Warn("failed to vacuum database", "err", err)
	}
	return stats, nil
}

// Clear removes all learning state.
func (s *SQLiteStorage) Clear(ctx context.Context) error {
	if !s.enabled || s.db == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin clear: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"interactions", "learning_patterns", "user_preferences"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit clear: %w", err)
	}
	return nil
}

// Stats counts stored records.
func (s *SQLiteStorage) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	if !s.enabled || s.db == nil {
		return st, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	counts := []struct {
		table string
		n     *int
	}{
		{"interactions", &st.Interactions},
		{"learning_patterns", &st.Patterns},
		{"user_preferences", &st.Preferences},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.table).Scan(c.n); err != nil {
			return Stats{}, fmt.Errorf("failed to count %s: %w", c.table, err)
		}
	}
	return st, nil
}
