/*
Package storage provides SQLite database migrations and helper functions.

This file contains schema definitions, migration logic, and the JSON and
timestamp encoding used by the storage layer.
*/
package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// timeLayout is fixed-width so that text timestamps sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// runMigrations executes database schema migrations.
func (s *SQLiteStorage) runMigrations() error {
	if !s.enabled || s.db == nil {
		return nil
	}

	if err := s.createMigrationsTable(); err != nil {
		return err
	}

	version, err := s.getCurrentMigrationVersion()
	if err != nil {
		return err
	}

	// Run migrations in order
	migrations := []migration{
		{version: 1, name: "initial_schema", up: s.migration001InitialSchema},
		{version: 2, name: "feedback_lookup_index", up: s.migration002FeedbackIndex},
	}

	for _, m := range migrations {
		if version < m.version {
			slog.Debug("running migration", "version", m.version, "name", m.name)
			if err := m.up(); err != nil {
				return fmt.Errorf("migration %d failed: %w", m.version, err)
			}
			if err := s.setMigrationVersion(m.version, m.name); err != nil {
				return err
			}
		}
	}

	return nil
}

// migration represents a single database migration.
type migration struct {
	version int
	name    string
	up      func() error
}

// createMigrationsTable creates the schema_migrations table.
func (s *SQLiteStorage) createMigrationsTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`
	_, err := s.db.Exec(query)
	return err
}

// getCurrentMigrationVersion returns the highest applied migration version.
func (s *SQLiteStorage) getCurrentMigrationVersion() (int, error) {
	query := "SELECT COALESCE(MAX(version), 0) FROM schema_migrations"
	row := s.db.QueryRow(query)

	var version int
	if err := row.Scan(&version); err != nil {
		return 0, err
	}

	return version, nil
}

// setMigrationVersion records a migration as applied.
func (s *SQLiteStorage) setMigrationVersion(version int, name string) error {
	query := "INSERT INTO schema_migrations (version, name) VALUES (?, ?)"
	_, err := s.db.Exec(query, version, name)
	return err
}

// migration001InitialSchema creates the initial database schema.
func (s *SQLiteStorage) migration001InitialSchema() error {
	// seq preserves insertion order for interactions recorded in the same instant
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS interactions (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			user_id TEXT NOT NULL,
			query TEXT NOT NULL,
			normalized_query TEXT NOT NULL,
			intent TEXT NOT NULL,
			confidence REAL NOT NULL,
			response_type TEXT NOT NULL,
			user_feedback TEXT NOT NULL DEFAULT '',
			response_time_ns INTEGER NOT NULL DEFAULT 0,
			timestamp TEXT NOT NULL,
			session_id TEXT NOT NULL DEFAULT '',
			context TEXT
		)
	`); err != nil {
		return fmt.Errorf("failed to create interactions table: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_interactions_timestamp
		ON interactions(timestamp DESC)
	`); err != nil {
		return fmt.Errorf("failed to create interactions timestamp index: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS learning_patterns (
			pattern_id TEXT PRIMARY KEY,
			pattern_type TEXT NOT NULL,
			pattern_data TEXT NOT NULL,
			frequency INTEGER NOT NULL,
			success_rate REAL NOT NULL,
			confidence REAL NOT NULL,
			last_updated TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to create learning_patterns table: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_learning_patterns_type
		ON learning_patterns(pattern_type)
	`); err != nil {
		return fmt.Errorf("failed to create learning_patterns type index: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS user_preferences (
			user_id TEXT NOT NULL,
			preference_type TEXT NOT NULL,
			preference_data TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (user_id, preference_type)
		)
	`); err != nil {
		return fmt.Errorf("failed to create user_preferences table: %w", err)
	}

	return nil
}

// migration002FeedbackIndex speeds up feedback attachment.
func (s *SQLiteStorage) migration002FeedbackIndex() error {
	if _, err := s.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_interactions_user_query
		ON interactions(user_id, normalized_query)
	`); err != nil {
		return fmt.Errorf("failed to create interactions user/query index: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		// rows written by other tools may use plain RFC3339
		t, err = time.Parse(time.RFC3339, s)
	}
	return t.UTC(), err
}

// toJSON encodes v for a TEXT column.
func toJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal: %w", err)
	}
	return string(data), nil
}

// fromJSON decodes a TEXT column; empty and NULL columns leave v untouched.
func fromJSON(s string, v any) error {
	if s == "" || s == "null" {
		return nil
	}
	if err := json.Unmarshal([]byte(s), v); err != nil {
		return fmt.Errorf("failed to unmarshal: %w", err)
	}
	return nil
}
