package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const insertInteraction = `
	INSERT OR IGNORE INTO interactions
	(id, user_id, query, normalized_query, intent, confidence, response_type,
	 user_feedback, response_time_ns, timestamp, session_id, context)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// AppendInteraction adds an interaction to the log.
func (s *SQLiteStorage) AppendInteraction(ctx context.Context, in Interaction) error {
	if !s.enabled || s.db == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return appendInteraction(ctx, s.db, in)
}

func appendInteraction(ctx context.Context, db execer, in Interaction) error {
	var contextJSON sql.NullString
	if len(in.Context) > 0 {
		data, err := toJSON(in.Context)
		if err != nil {
			return fmt.Errorf("failed to encode interaction context: %w", err)
		}
		contextJSON = sql.NullString{String: data, Valid: true}
	}

	if _, err := db.ExecContext(ctx, insertInteraction,
		in.ID,
		in.UserID,
		in.Query,
		in.NormalizedQuery,
		in.Intent,
		in.Confidence,
		in.ResponseType,
		in.Feedback,
		int64(in.ResponseTime),
		formatTime(in.Timestamp),
		in.SessionID,
		contextJSON,
	); err != nil {
		return fmt.Errorf("failed to record interaction: %w", err)
	}
	return nil
}

// Interactions lists interactions newest first.
func (s *SQLiteStorage) Interactions(ctx context.Context, q InteractionQuery) ([]Interaction, error) {
	if !s.enabled || s.db == nil {
		return []Interaction{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		SELECT id, user_id, query, normalized_query, intent, confidence, response_type,
		       user_feedback, response_time_ns, timestamp, session_id, context
		FROM interactions
		WHERE (? = '' OR user_id = ?) AND timestamp >= ?
		ORDER BY timestamp DESC, seq DESC
	`
	args := []any{q.UserID, q.UserID, formatTime(q.Since)}
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query interactions: %w", err)
	}
	defer rows.Close()

	out := []Interaction{}
	for rows.Next() {
		var in Interaction
		var nanos int64
		var ts string
		var contextJSON sql.NullString

		if err := rows.Scan(
			&in.ID,
			&in.UserID,
			&in.Query,
			&in.NormalizedQuery,
			&in.Intent,
			&in.Confidence,
			&in.ResponseType,
			&in.Feedback,
			&nanos,
			&ts,
			&in.SessionID,
			&contextJSON,
		); err != nil {
			return nil, fmt.Errorf("failed to scan interaction: %w", err)
		}

		in.ResponseTime = time.Duration(nanos)
		if in.Timestamp, err = parseTime(ts); err != nil {
			return nil, fmt.Errorf("failed to parse interaction timestamp: %w", err)
		}
		if err := fromJSON(contextJSON.String, &in.Context); err != nil {
			return nil, fmt.Errorf("failed to decode interaction context: %w", err)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// SetFeedback updates the most recent matching interaction.
func (s *SQLiteStorage) SetFeedback(ctx context.Context, userID, normalizedQuery, feedback string) (bool, error) {
	if !s.enabled || s.db == nil {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE interactions SET user_feedback = ?
		WHERE seq = (
			SELECT seq FROM interactions
			WHERE user_id = ? AND normalized_query = ?
			ORDER BY timestamp DESC, seq DESC
			LIMIT 1
		)
	`, feedback, userID, normalizedQuery)
	if err != nil {
		return false, fmt.Errorf("failed to set feedback: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to set feedback: %w", err)
	}
	return n > 0, nil
}
