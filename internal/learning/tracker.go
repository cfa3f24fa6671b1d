package learning

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/storage"
)

const (
	// eventQueueSize is the buffer size for the outcome queue.
	// If full, outcomes are dropped (non-blocking).
	eventQueueSize = 1000

	// batchFlushSize is the number of outcomes that triggers an immediate flush.
	batchFlushSize = 10

	// flushInterval is how often pending outcomes are flushed.
	flushInterval = 50 * time.Millisecond
)

// Recorder persists one outcome. *Store implements it.
type Recorder interface {
	Record(ctx context.Context, o Outcome) (storage.Interaction, error)
}

// Tracker records outcomes in the background with non-blocking writes.
type Tracker struct {
	recorder   Recorder
	eventQueue chan Outcome
	stopChan   chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
	enabled    bool
	dropped    int
	mu         sync.RWMutex
}

// NewTracker creates a tracker with background processing.
func NewTracker(r Recorder) *Tracker {
	t := &Tracker{
		recorder:   r,
		eventQueue: make(chan Outcome, eventQueueSize),
		stopChan:   make(chan struct{}),
		enabled:    r != nil,
	}

	t.wg.Add(1)
	go t.processEvents()

	return t
}

// Track queues an outcome (non-blocking).
// If the queue is full, the outcome is dropped and a warning is logged.
func (t *Tracker) Track(o Outcome) {
	if !t.IsEnabled() {
		return
	}
	if o.Timestamp.IsZero() {
		o.Timestamp = time.Now()
	}

	select {
	case t.eventQueue <- o:
	default:
		t.mu.Lock()
		t.dropped++
		t.mu.Unlock()
		slog.Warn("learning queue full, dropping outcome", "intent", o.Intent)
	}
}

// Stop gracefully shuts down the tracker, flushing queued outcomes.
func (t *Tracker) Stop() {
	t.stopOnce.Do(func() {
		close(t.stopChan)
		t.wg.Wait()
	})
}

// Disable disables tracking (outcomes are ignored).
func (t *Tracker) Disable() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = false
}

// Enable enables tracking.
func (t *Tracker) Enable() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = t.recorder != nil
}

// IsEnabled returns whether tracking is enabled.
func (t *Tracker) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// Dropped returns how many outcomes were dropped because the queue was full.
func (t *Tracker) Dropped() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.dropped
}

// QueueSize returns the current number of queued outcomes.
func (t *Tracker) QueueSize() int {
	return len(t.eventQueue)
}

// processEvents runs in the background, batching and flushing outcomes.
func (t *Tracker) processEvents() {
	defer t.wg.Done()

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]Outcome, 0, batchFlushSize)

	for {
		select {
		case o := <-t.eventQueue:
			batch = append(batch, o)
			if len(batch) >= batchFlushSize {
				t.flush(batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			if len(batch) > 0 {
				t.flush(batch)
				batch = batch[:0]
			}

		case <-t.stopChan:
			// drain whatever is still queued, then exit
			for {
				select {
				case o := <-t.eventQueue:
					batch = append(batch, o)
					if len(batch) >= batchFlushSize {
						t.flush(batch)
						batch = batch[:0]
					}
				default:
					t.flush(batch)
					return
				}
			}
		}
	}
}

// flush records a batch of outcomes.
func (t *Tracker) flush(batch []Outcome) {
	for _, o := range batch {
		if _, err := t.recorder.Record(context.Background(), o); err != nil {
			slog.Warn("failed to record outcome", "intent", o.Intent, "err", err)
		}
	}
}
