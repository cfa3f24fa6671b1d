/*
Package assistant runs the query pipeline end to end.

A query is validated, optimized, mined for entities and classified, then
routed with a fixed precedence:

 1. learning override: a reliable learned pattern decides the intent
 2. math detection: the computation engine answers directly
 3. analytics detection: the dataset report
 4. intent dispatch through the handler table
 5. context summary, web search and apology, via the dispatcher fallback

Every answered query is recorded in the learning store.
*/
package assistant

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/analytics"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/apperr"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/compute"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/dataset"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/dispatch"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/extract"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/intent"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/learning"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/optimizer"
)

// Routes name the precedence step that answered a query.
const (
	RouteLearned   = "learned"
	RouteMath      = "math"
	RouteAnalytics = "analytics"
	RouteDispatch  = "dispatch"
	RouteFallback  = "fallback"
	RouteRejected  = "rejected"
	RouteFailed    = "failed"
)

const (
	// a learned pattern takes over routing only when it is this reliable
	overrideSimilarity = 0.9
	overrideSuccess    = 0.8
	overrideFrequency  = 3

	// confidence reported for rule-detected routes
	detectedConfidence = 0.9

	// failed answers are recorded below the error threshold
	failedConfidence = 0.4
)

// Request is one question from one user.
type Request struct {
	Query     string          `json:"query"`
	User      dispatch.User   `json:"user"`
	SessionID string          `json:"session_id,omitempty"`
	Hints     optimizer.Hints `json:"hints"`
}

// Answer is the response plus routing metadata.
type Answer struct {
	dispatch.Response
	Intent          string   `json:"intent"`
	Confidence      float64  `json:"confidence"`
	Route           string   `json:"route"`
	SuggestedAction string   `json:"suggested_action,omitempty"`
	Suggestions     []string `json:"suggestions,omitempty"`
	SessionID       string   `json:"session_id,omitempty"`
	InteractionID   string   `json:"interaction_id,omitempty"`

	Elapsed time.Duration `json:"-"`
}

// Observer is told about every answer.
type Observer interface {
	ObserveAnswer(route, intent, responseType string, elapsed time.Duration)
}

// Assistant is safe for concurrent use; the dataset registry is read-only.
type Assistant struct {
	registry    *dataset.Registry
	extractor   *extract.Extractor
	optimizer   *optimizer.Optimizer
	classifier  *intent.Classifier
	dispatcher  *dispatch.Dispatcher
	store       *learning.Store
	tracker     *learning.Tracker
	observer    Observer
	tables      optimizer.Tables
	webTriggers []string
	now         func() time.Time
}

// Option configures an Assistant.
type Option func(*Assistant)

// WithStore enables learning: boosts, suggestions and synchronous recording.
func WithStore(s *learning.Store) Option {
	return func(a *Assistant) { a.store = s }
}

// WithTracker records outcomes in the background instead of inline.
func WithTracker(t *learning.Tracker) Option {
	return func(a *Assistant) { a.tracker = t }
}

// WithDispatcher replaces the default dispatcher.
func WithDispatcher(d *dispatch.Dispatcher) Option {
	return func(a *Assistant) { a.dispatcher = d }
}

// WithTables replaces the optimizer's spelling and synonym tables.
func WithTables(t optimizer.Tables) Option {
	return func(a *Assistant) { a.tables = t }
}

// WithWebTriggers replaces the classifier's web-search trigger words.
func WithWebTriggers(words []string) Option {
	return func(a *Assistant) { a.webTriggers = words }
}

// WithObserver reports every answer to o.
func WithObserver(o Observer) Option {
	return func(a *Assistant) { a.observer = o }
}

// WithClock replaces time.Now for response timing.
func WithClock(now func() time.Time) Option {
	return func(a *Assistant) { a.now = now }
}

// New builds the pipeline over a loaded registry.
func New(reg *dataset.Registry, opts ...Option) *Assistant {
	a := &Assistant{
		registry: reg,
		tables:   optimizer.DefaultTables(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	var history optimizer.History
	classifierOpts := []intent.Option{intent.WithWebTriggers(a.webTriggers)}
	if a.store != nil {
		history = a.store
		classifierOpts = append(classifierOpts, intent.WithLearner(a.store))
	}

	a.extractor = extract.New(extract.DictionaryFrom(reg))
	a.optimizer = optimizer.New(a.tables, history)
	a.classifier = intent.NewClassifier(classifierOpts...)
	if a.dispatcher == nil {
		a.dispatcher = dispatch.New()
	}
	return a
}

// Registry returns the loaded datasets.
func (a *Assistant) Registry() *dataset.Registry {
	return a.registry
}

// Store returns the learning store, or nil when learning is disabled.
func (a *Assistant) Store() *learning.Store {
	return a.store
}

// ErrLearningDisabled is returned by learning operations when no store is
// configured.
var ErrLearningDisabled = errors.New("learning is disabled")

// Feedback attaches a rating to the user's latest matching interaction.
// Interactions are stored spelling-corrected, so query is corrected first.
func (a *Assistant) Feedback(ctx context.Context, userID, query, feedback string) (bool, error) {
	if a.store == nil {
		return false, ErrLearningDisabled
	}
	return a.store.AddFeedback(ctx, userID, a.optimizer.Correct(query), feedback)
}

// Validate trims the query and rejects empty or oversized input.
func Validate(query string) (string, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return "", &apperr.InputError{Reason: "sorgu boş"}
	}
	if utf8.RuneCountInString(q) > apperr.MaxQueryRunes {
		return "", &apperr.InputError{Reason: "sorgu en fazla 1000 karakter olabilir"}
	}
	return q, nil
}

// Ask answers one query. It never fails: errors become explanatory text
// and a panic becomes the generic failure message.
func (a *Assistant) Ask(ctx context.Context, req Request) (ans Answer) {
	start := a.now()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic while answering query", "panic", r, "stack", string(debug.Stack()))
			ans = Answer{
				Response:  dispatch.Response{Text: apperr.GenericFailure, Type: dispatch.TypeError},
				Route:     RouteFailed,
				SessionID: req.SessionID,
			}
		}
		ans.Elapsed = a.now().Sub(start)
		if a.observer != nil {
			a.observer.ObserveAnswer(ans.Route, ans.Intent, ans.Type, ans.Elapsed)
		}
	}()

	query, err := Validate(req.Query)
	if err != nil {
		return Answer{Response: dispatch.Failure(err), Route: RouteRejected, SessionID: req.SessionID}
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	opt := a.optimizer.Optimize(ctx, query, req.User.ID, req.Hints)
	q := opt.Query
	ents := a.extractor.Extract(q)
	cls := a.classifier.Classify(ctx, intent.Input{
		Query:           q,
		Tokens:          opt.ExpandedTokens,
		Entities:        ents,
		UserID:          req.User.ID,
		PreferredIntent: opt.PreferredIntent,
	})

	dreq := dispatch.Request{Query: q, Entities: ents, Datasets: a.registry, User: req.User}
	rt := a.route(ctx, dreq, cls)

	ans = Answer{
		Response:        rt.resp,
		Intent:          rt.intent.String(),
		Confidence:      rt.confidence,
		Route:           rt.name,
		SuggestedAction: cls.SuggestedAction,
		Suggestions:     opt.Suggestions,
		SessionID:       req.SessionID,
	}

	recorded := rt.confidence
	var authErr *apperr.AuthorizationError
	if rt.err != nil && !errors.As(rt.err, &authErr) {
		recorded = min(recorded, failedConfidence)
	}
	ans.InteractionID = a.record(ctx, learning.Outcome{
		UserID:       req.User.ID,
		Query:        q,
		Intent:       ans.Intent,
		Confidence:   recorded,
		ResponseType: ans.Type,
		ResponseTime: a.now().Sub(start),
		SessionID:    req.SessionID,
		Context:      outcomeContext(rt.name, ents, opt, ans.Response),
	})
	return ans
}

type routed struct {
	name       string
	intent     intent.Intent
	confidence float64
	resp       dispatch.Response
	err        error
}

func (a *Assistant) route(ctx context.Context, req dispatch.Request, cls intent.Result) routed {
	if it, conf, ok := a.learnedOverride(ctx, req.Query, req.User.ID, cls); ok {
		resp, err := a.dispatcher.Dispatch(ctx, it, conf, req)
		return routed{RouteLearned, it, conf, resp, err}
	}

	if compute.IsMathQuery(req.Query) {
		qt := compute.DetectQueryType(req.Query)
		it := dispatch.IntentFor(qt)
		conf := max(cls.Confidence, detectedConfidence)
		if err := dispatch.Authorize(req.User, it, req.Query); err != nil {
			return routed{RouteMath, it, conf, dispatch.Failure(err), err}
		}
		res, err := a.dispatcher.Engine().Run(qt, req.Query, req.Entities, req.Datasets)
		if err != nil {
			return routed{RouteMath, it, conf, dispatch.Failure(err), err}
		}
		return routed{RouteMath, it, conf, dispatch.FromResult(res, dispatch.TypeCalculation), nil}
	}

	if analytics.Needs(req.Query) {
		it := intent.DataAnalysis
		if cls.Intent == intent.TrendAnalysis {
			it = intent.TrendAnalysis
		}
		conf := max(cls.Confidence, detectedConfidence)
		resp, err := a.dispatcher.Dispatch(ctx, it, conf, req)
		return routed{RouteAnalytics, it, conf, resp, err}
	}

	name := RouteDispatch
	if cls.Intent == intent.ContextSummary || (cls.Confidence < intent.ClarifyThreshold && cls.Intent != intent.WebSearch) {
		name = RouteFallback
	}
	resp, err := a.dispatcher.Dispatch(ctx, cls.Intent, cls.Confidence, req)
	return routed{name, cls.Intent, cls.Confidence, resp, err}
}

// learnedOverride returns the intent of a learned pattern that is close to
// the query and has answered it reliably several times.
func (a *Assistant) learnedOverride(ctx context.Context, query, userID string, cls intent.Result) (intent.Intent, float64, bool) {
	if a.store == nil {
		return intent.Unknown, 0, false
	}
	sug := a.store.Suggest(ctx, query, userID)
	if sug.PatternID == "" || sug.Similarity < overrideSimilarity ||
		sug.SuccessRate < overrideSuccess || sug.Frequency < overrideFrequency {
		return intent.Unknown, 0, false
	}
	it, err := intent.ParseIntent(sug.PrimaryIntent)
	if err != nil {
		return intent.Unknown, 0, false
	}
	conf := sug.SuccessRate
	if cls.Intent == it {
		conf = max(conf, cls.Confidence)
	}
	return it, conf, true
}

func (a *Assistant) record(ctx context.Context, o learning.Outcome) string {
	switch {
	case a.tracker != nil:
		a.tracker.Track(o)
	case a.store != nil:
		in, err := a.store.Record(context.WithoutCancel(ctx), o)
		if err != nil {
			slog.Warn("failed to record interaction", "user", o.UserID, "error", err)
			return ""
		}
		return in.ID
	}
	return ""
}

// outcomeContext is the context signature stored with an interaction. Its
// key set forms the context pattern.
func outcomeContext(route string, ents extract.Entities, opt optimizer.Result, resp dispatch.Response) map[string]any {
	c := map[string]any{"route": route}
	if named := ents.Named(); len(named) > 0 {
		c["entities"] = named
	}
	if len(ents.Numbers) > 0 {
		c["numbers"] = len(ents.Numbers)
	}
	if len(opt.Applied) > 0 {
		c["optimizations"] = opt.Applied
	}
	if opt.Original != opt.Query {
		c["original_query"] = opt.Original
	}
	if resp.Chart != nil {
		c["chart"] = resp.Chart.Type
	}
	return c
}
