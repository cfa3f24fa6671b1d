/*
Package storage implements the persistent storage layer of the learning store.

This package provides SQLite-based storage for the interaction log, learned
patterns and user preferences with graceful degradation if the database is
unavailable, plus an in-memory implementation with the same semantics.

The database defaults to ~/.barcin/learning.db and uses modernc.org/sqlite
(a pure Go, CGo-free implementation).
*/
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Storage defines the interface for persistent learning state.
type Storage interface {
	// Init initializes the backing store and runs migrations.
	Init() error

	// AppendInteraction adds an interaction to the append-only log.
	// An interaction whose ID already exists is ignored.
	AppendInteraction(ctx context.Context, in Interaction) error

	// Interactions lists interactions newest first.
	Interactions(ctx context.Context, q InteractionQuery) ([]Interaction, error)

	// SetFeedback attaches feedback to the most recent interaction of the user
	// with the given normalized query. It reports whether one was found.
	SetFeedback(ctx context.Context, userID, normalizedQuery, feedback string) (bool, error)

	// GetPattern loads a pattern by id.
	GetPattern(ctx context.Context, id string) (Pattern, bool, error)

	// UpsertPattern inserts or replaces a pattern.
	UpsertPattern(ctx context.Context, p Pattern) error

	// Patterns lists patterns of the given type ("" for all) ordered by id.
	Patterns(ctx context.Context, patternType string) ([]Pattern, error)

	// GetPreference loads the preference counters of a user.
	GetPreference(ctx context.Context, userID, prefType string) (Preference, bool, error)

	// UpsertPreference inserts or replaces a preference row.
	UpsertPreference(ctx context.Context, p Preference) error

	// Preferences lists every preference row ordered by user and type.
	Preferences(ctx context.Context) ([]Preference, error)

	// Import merges a snapshot in a single transaction.
	Import(ctx context.Context, snap Snapshot) error

	// Cleanup removes records last touched before cutoff.
	Cleanup(ctx context.Context, cutoff time.Time) (CleanupStats, error)

	// Clear removes all learning state.
	Clear(ctx context.Context) error

	// Stats counts stored records.
	Stats(ctx context.Context) (Stats, error)

	// Close releases the backing store.
	Close() error
}

// SQLiteStorage implements the Storage interface using SQLite.
type SQLiteStorage struct {
	db       *sql.DB
	dbPath   string
	enabled  bool
	mu       sync.Mutex
	initOnce sync.Once
}

// DefaultPath returns ~/.barcin/learning.db.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".barcin", "learning.db"), nil
}

// NewStorage creates a new SQLite storage instance at dbPath. An empty path
// selects DefaultPath.
//
// If the database cannot be opened, the storage will be disabled but
// operations will not fail.
func NewStorage(dbPath string) *SQLiteStorage {
	if dbPath == "" {
		p, err := DefaultPath()
		if err != nil {
			slog.Warn("learning storage disabled", "err", err)
			return &SQLiteStorage{enabled: false}
		}
		dbPath = p
	}

	return &SQLiteStorage{
		dbPath:  dbPath,
		enabled: true,
	}
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string {
	return s.dbPath
}

// Enabled reports whether the database is usable.
func (s *SQLiteStorage) Enabled() bool {
	return s.enabled && s.db != nil
}

// Init initializes the database and runs migrations.
//
// If initialization fails, storage is disabled and subsequent operations
// become no-ops (graceful degradation).
func (s *SQLiteStorage) Init() error {
	if !s.enabled {
		return nil
	}

	var initErr error
	s.initOnce.Do(func() {
		// Ensure directory exists
		dbDir := filepath.Dir(s.dbPath)
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			initErr = fmt.Errorf("failed to create db directory: %w", err)
			s.enabled = false
			return
		}

		db, err := sql.Open("sqlite", s.dbPath)
		if err != nil {
			initErr = fmt.Errorf("failed to open database: %w", err)
			s.enabled = false
			slog.Warn("learning storage disabled", "err", initErr)
			return
		}
		// A single connection serializes writers inside the process.
		db.SetMaxOpenConns(1)
		s.db = db

		if err := db.Ping(); err != nil {
			initErr = fmt.Errorf("failed to ping database: %w", err)
			s.enabled = false
			slog.Warn("learning storage disabled", "err", initErr)
			return
		}

		if err := s.runMigrations(); err != nil {
			initErr = fmt.Errorf("failed to run migrations: %w", err)
			s.enabled = false
			slog.Warn("learning storage disabled", "err", initErr)
			return
		}
	})

	return initErr
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	if !s.enabled || s.db == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	s.db = nil
	return nil
}
