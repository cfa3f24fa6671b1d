package learning

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/storage"
)

// exportVersion is bumped when the document layout changes.
const exportVersion = 1

// Document is the export/import file layout.
type Document struct {
	Version    int       `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	storage.Snapshot
}

// Snapshot reads the complete learning state.
func (s *Store) Snapshot(ctx context.Context) (storage.Snapshot, error) {
	var snap storage.Snapshot
	var err error
	if snap.Interactions, err = s.storage.Interactions(ctx, storage.InteractionQuery{}); err != nil {
		return snap, fmt.Errorf("failed to read interactions: %w", err)
	}
	if snap.Patterns, err = s.storage.Patterns(ctx, ""); err != nil {
		return snap, fmt.Errorf("failed to read patterns: %w", err)
	}
	if snap.Preferences, err = s.storage.Preferences(ctx); err != nil {
		return snap, fmt.Errorf("failed to read preferences: %w", err)
	}
	// oldest first so a re-import keeps insertion order
	for i, j := 0, len(snap.Interactions)-1; i < j; i, j = i+1, j-1 {
		snap.Interactions[i], snap.Interactions[j] = snap.Interactions[j], snap.Interactions[i]
	}
	return snap, nil
}

// Export writes the learning state as an indented JSON document.
func (s *Store) Export(ctx context.Context, w io.Writer) error {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Document{Version: exportVersion, ExportedAt: s.now().UTC(), Snapshot: snap}); err != nil {
		return fmt.Errorf("failed to encode learning data: %w", err)
	}
	return nil
}

// Import merges an exported document. Interactions already present are
// kept; patterns and preferences are replaced.
func (s *Store) Import(ctx context.Context, r io.Reader) (storage.Stats, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return storage.Stats{}, fmt.Errorf("failed to decode learning data: %w", err)
	}
	if doc.Version > exportVersion {
		return storage.Stats{}, fmt.Errorf("unsupported learning data version %d", doc.Version)
	}
	for _, p := range doc.Patterns {
		if p.SuccessRate < 0 || p.SuccessRate > 1 {
			return storage.Stats{}, fmt.Errorf("pattern %s has success rate %v outside [0,1]", p.ID, p.SuccessRate)
		}
	}
	if err := s.storage.Import(ctx, doc.Snapshot); err != nil {
		return storage.Stats{}, fmt.Errorf("failed to import learning data: %w", err)
	}
	return storage.Stats{
		Interactions: len(doc.Interactions),
		Patterns:     len(doc.Patterns),
		Preferences:  len(doc.Preferences),
	}, nil
}
