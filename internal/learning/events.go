/*
Package learning implements the adaptive learning store.

It records answered queries, folds them into content-addressed query and
context patterns, keeps per-user preference counters and turns that history
into classification boosts, optimizer suggestions and performance reports.
Recording can run synchronously or through the non-blocking Tracker.
*/
package learning

import (
	"time"

	"github.com/google/uuid"

	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/storage"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/textnorm"
)

const (
	// successConfidence is the confidence an answer needs to count as a success.
	successConfidence = 0.7

	// preferenceConfidence is the confidence needed to count toward the user's
	// intent preferences.
	preferenceConfidence = 0.8

	// lowConfidence marks queries tracked for intent improvement.
	lowConfidence = 0.6

	// errorConfidence marks answers counted as error patterns.
	errorConfidence = 0.5
)

// Outcome is one answered query as reported by the pipeline.
type Outcome struct {
	UserID       string
	Query        string
	Intent       string
	Confidence   float64
	ResponseType string
	Feedback     string
	ResponseTime time.Duration
	SessionID    string
	Context      map[string]any

	// Timestamp defaults to the store clock when zero.
	Timestamp time.Time
}

// ToInteraction converts the outcome to its storage record.
func (o Outcome) ToInteraction(now time.Time) storage.Interaction {
	ts := o.Timestamp
	if ts.IsZero() {
		ts = now
	}
	return storage.Interaction{
		ID:              uuid.NewString(),
		UserID:          o.UserID,
		Query:           o.Query,
		NormalizedQuery: textnorm.Normalize(o.Query),
		Intent:          o.Intent,
		Confidence:      o.Confidence,
		ResponseType:    o.ResponseType,
		Feedback:        o.Feedback,
		ResponseTime:    o.ResponseTime,
		Timestamp:       ts.UTC(),
		SessionID:       o.SessionID,
		Context:         o.Context,
	}
}

// Successful reports whether an interaction counts as a success: confident
// enough and not rated negatively.
func Successful(in storage.Interaction) bool {
	if in.Confidence <= successConfidence {
		return false
	}
	switch in.Feedback {
	case storage.FeedbackNone, storage.FeedbackPositive, storage.FeedbackHelpful:
		return true
	}
	return false
}

func isError(in storage.Interaction) bool {
	return in.Confidence < errorConfidence || in.Feedback == storage.FeedbackNegative
}
