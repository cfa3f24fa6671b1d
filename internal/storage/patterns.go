package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const upsertPattern = `
	INSERT INTO learning_patterns
	(pattern_id, pattern_type, pattern_data, frequency, success_rate, confidence, last_updated)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(pattern_id) DO UPDATE SET
		pattern_type = excluded.pattern_type,
		pattern_data = excluded.pattern_data,
		frequency = excluded.frequency,
		success_rate = excluded.success_rate,
		confidence = excluded.confidence,
		last_updated = excluded.last_updated
`

const upsertPreference = `
	INSERT INTO user_preferences (user_id, preference_type, preference_data, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(user_id, preference_type) DO UPDATE SET
		preference_data = excluded.preference_data,
		updated_at = excluded.updated_at
`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// GetPattern loads a pattern by id.
func (s *SQLiteStorage) GetPattern(ctx context.Context, id string) (Pattern, bool, error) {
	if !s.enabled || s.db == nil {
		return Pattern{}, false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT pattern_id, pattern_type, pattern_data, frequency, success_rate, confidence, last_updated
		FROM learning_patterns WHERE pattern_id = ?
	`, id)
	p, err := scanPattern(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Pattern{}, false, nil
	}
	if err != nil {
		return Pattern{}, false, err
	}
	return p, true, nil
}

// UpsertPattern inserts or replaces a pattern.
func (s *SQLiteStorage) UpsertPattern(ctx context.Context, p Pattern) error {
	if !s.enabled || s.db == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return writePattern(ctx, s.db, p)
}

func writePattern(ctx context.Context, db execer, p Pattern) error {
	data, err := toJSON(p.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode pattern %s: %w", p.ID, err)
	}
	if _, err := db.ExecContext(ctx, upsertPattern,
		p.ID, p.Type, data, p.Frequency, p.SuccessRate, p.Confidence, formatTime(p.LastUpdated),
	); err != nil {
		return fmt.Errorf("failed to upsert pattern %s: %w", p.ID, err)
	}
	return nil
}

// Patterns lists patterns of one type, or all when patternType is empty.
func (s *SQLiteStorage) Patterns(ctx context.Context, patternType string) ([]Pattern, error) {
	if !s.enabled || s.db == nil {
		return []Pattern{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT pattern_id, pattern_type, pattern_data, frequency, success_rate, confidence, last_updated
		FROM learning_patterns
		WHERE ? = '' OR pattern_type = ?
		ORDER BY pattern_id
	`, patternType, patternType)
	if err != nil {
		return nil, fmt.Errorf("failed to query patterns: %w", err)
	}
	defer rows.Close()

	out := []Pattern{}
	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPattern(row rowScanner) (Pattern, error) {
	var p Pattern
	var data, ts string
	if err := row.Scan(&p.ID, &p.Type, &data, &p.Frequency, &p.SuccessRate, &p.Confidence, &ts); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Pattern{}, err
		}
		return Pattern{}, fmt.Errorf("failed to scan pattern: %w", err)
	}
	if err := fromJSON(data, &p.Payload); err != nil {
		return Pattern{}, fmt.Errorf("failed to decode pattern %s: %w", p.ID, err)
	}
	var err error
	if p.LastUpdated, err = parseTime(ts); err != nil {
		return Pattern{}, fmt.Errorf("failed to parse pattern timestamp: %w", err)
	}
	return p, nil
}

// GetPreference loads one preference row.
func (s *SQLiteStorage) GetPreference(ctx context.Context, userID, prefType string) (Preference, bool, error) {
	if !s.enabled || s.db == nil {
		return Preference{}, false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, preference_type, preference_data, updated_at
		FROM user_preferences WHERE user_id = ? AND preference_type = ?
	`, userID, prefType)
	p, err := scanPreference(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Preference{}, false, nil
	}
	if err != nil {
		return Preference{}, false, err
	}
	return p, true, nil
}

// UpsertPreference inserts or replaces a preference row.
func (s *SQLiteStorage) UpsertPreference(ctx context.Context, p Preference) error {
	if !s.enabled || s.db == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return writePreference(ctx, s.db, p)
}

func writePreference(ctx context.Context, db execer, p Preference) error {
	data, err := toJSON(p.Counts)
	if err != nil {
		return fmt.Errorf("failed to encode preference: %w", err)
	}
	if _, err := db.ExecContext(ctx, upsertPreference, p.UserID, p.Type, data, formatTime(p.UpdatedAt)); err != nil {
		return fmt.Errorf("failed to upsert preference %s/%s: %w", p.UserID, p.Type, err)
	}
	return nil
}

// Preferences lists every preference row.
func (s *SQLiteStorage) Preferences(ctx context.Context) ([]Preference, error) {
	if !s.enabled || s.db == nil {
		return []Preference{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, preference_type, preference_data, updated_at
		FROM user_preferences ORDER BY user_id, preference_type
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query preferences: %w", err)
	}
	defer rows.Close()

	out := []Preference{}
	for rows.Next() {
		p, err := scanPreference(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPreference(row rowScanner) (Preference, error) {
	var p Preference
	var data, ts string
	if err := row.Scan(&p.UserID, &p.Type, &data, &ts); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Preference{}, err
		}
		return Preference{}, fmt.Errorf("failed to scan preference: %w", err)
	}
	p.Counts = map[string]int{}
	if err := fromJSON(data, &p.Counts); err != nil {
		return Preference{}, fmt.Errorf("failed to decode preference: %w", err)
	}
	var err error
	if p.UpdatedAt, err = parseTime(ts); err != nil {
		return Preference{}, fmt.Errorf("failed to parse preference timestamp: %w", err)
	}
	return p, nil
}
