/*
Package storage provides data models for the learning store.

These models represent recorded interactions, learned query/context patterns
and per-user preference counters.
*/
package storage

import "time"

// Pattern types.
const (
	QueryPattern   = "query_pattern"
	ContextPattern = "context_pattern"
)

// Preference types.
const (
	IntentPreferences   = "intent_preferences"
	ResponsePreferences = "response_preferences"
)

// Feedback values.
const (
	FeedbackNone     = ""
	FeedbackPositive = "positive"
	FeedbackNegative = "negative"
	FeedbackHelpful  = "helpful"
)

// ValidFeedback reports whether f is an accepted feedback value.
func ValidFeedback(f string) bool {
	switch f {
	case FeedbackNone, FeedbackPositive, FeedbackNegative, FeedbackHelpful:
		return true
	}
	return false
}

// Interaction is one answered query. It is immutable except Feedback.
type Interaction struct {
	// ID is a UUID assigned when the interaction is recorded.
	ID string `json:"id"`

	UserID          string `json:"user_id"`
	Query           string `json:"query"`
	NormalizedQuery string `json:"normalized_query"`

	// Intent is the intent name the query was routed with.
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`

	// ResponseType names the handler path that produced the answer.
	ResponseType string `json:"response_type"`

	Feedback     string         `json:"user_feedback,omitempty"`
	ResponseTime time.Duration  `json:"response_time"`
	Timestamp    time.Time      `json:"timestamp"`
	SessionID    string         `json:"session_id,omitempty"`
	Context      map[string]any `json:"context,omitempty"`
}

// PatternPayload is the pattern-type specific data of a Pattern.
type PatternPayload struct {
	NormalizedQuery string         `json:"normalized_query,omitempty"`
	OriginalQuery   string         `json:"original_query,omitempty"`
	Intent          string         `json:"best_intent,omitempty"`
	WordCount       int            `json:"word_count,omitempty"`
	QueryLength     int            `json:"query_length,omitempty"`
	ContextKeys     []string       `json:"context_keys,omitempty"`
	ExampleContext  map[string]any `json:"example_context,omitempty"`
}

// Pattern is a learned query or context pattern.
type Pattern struct {
	// ID is content-addressed: "query_<md5[:8]>" or "context_<md5[:8]>".
	ID      string         `json:"pattern_id"`
	Type    string         `json:"pattern_type"`
	Payload PatternPayload `json:"pattern_data"`

	// Frequency is the number of observations folded into the pattern.
	Frequency int `json:"frequency"`

	// SuccessRate is the running mean of successful observations, in [0,1].
	SuccessRate float64   `json:"success_rate"`
	Confidence  float64   `json:"confidence"`
	LastUpdated time.Time `json:"last_updated"`
}

// Preference holds per-user counters of one preference type.
type Preference struct {
	UserID    string         `json:"user_id"`
	Type      string         `json:"preference_type"`
	Counts    map[string]int `json:"preference_data"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// InteractionQuery filters Interactions. Zero fields do not filter.
type InteractionQuery struct {
	UserID string
	Since  time.Time
	Limit  int
}

// Snapshot is the complete persisted state.
type Snapshot struct {
	Interactions []Interaction `json:"interactions"`
	Patterns     []Pattern     `json:"learned_patterns"`
	Preferences  []Preference  `json:"user_preferences"`
}

// Stats counts the rows of each table.
type Stats struct {
	Interactions int `json:"interactions"`
	Patterns     int `json:"learned_patterns"`
	Preferences  int `json:"user_preferences"`
}

// CleanupStats reports what a retention sweep removed.
type CleanupStats struct {
	Interactions int64 `json:"interactions"`
	Patterns     int64 `json:"patterns"`
	Preferences  int64 `json:"preferences"`
}
