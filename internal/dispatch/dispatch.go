/*
Package dispatch routes a classified query to its handler.

Every intent has exactly one handler registered at construction. Salary
data is guarded by role before any handler runs, and queries the table
cannot answer confidently go through the fallback chain: retrieval plus
generative summary, then web search, then a fixed apology.
*/
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/analytics"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/apperr"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/compute"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/dataset"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/extract"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/intent"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/textnorm"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/upstream"
)

// RoleAdmin is the only role allowed to see salary data.
const RoleAdmin = "admin"

// Response types recorded with each interaction.
const (
	TypeCalculation  = "calculation"
	TypeData         = "data"
	TypeAnalytics    = "analytics"
	TypeHelp         = "help"
	TypeContext      = "context_summary"
	TypeWeb          = "web_search"
	TypeFallback     = "fallback"
	TypeError        = "error"
	TypeUnauthorized = "unauthorized"
)

// User is the caller identity.
type User struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

// IsAdmin reports whether the user may read salary data.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Request is the input to a handler.
type Request struct {
	Query    string
	Entities extract.Entities
	Datasets *dataset.Registry
	User     User
}

// Response is what the caller renders. Text is always set.
type Response struct {
	Text    string         `json:"text"`
	Chart   *compute.Chart `json:"chart,omitempty"`
	Details map[string]any `json:"calculation_details,omitempty"`
	Type    string         `json:"response_type"`
}

// FromResult wraps a computation result.
func FromResult(r compute.Result, typ string) Response {
	return Response{Text: r.Text, Chart: r.Chart, Details: r.Details, Type: typ}
}

// Failure renders err as a plain-language response.
func Failure(err error) Response {
	typ := TypeError
	var authErr *apperr.AuthorizationError
	if errors.As(err, &authErr) {
		typ = TypeUnauthorized
	}
	return Response{Text: apperr.UserMessage(err), Type: typ}
}

// Handler answers one intent.
type Handler func(ctx context.Context, req Request) (Response, error)

// Retriever returns the k most relevant text chunks for a query.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]string, error)
}

// Generator produces a natural-language answer for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// WebSearcher looks a query up on the web.
type WebSearcher interface {
	Search(ctx context.Context, query string) ([]upstream.WebResult, error)
}

const (
	DefaultSimilarityK      = 8
	DefaultContextMaxLength = 4000
)

// Dispatcher holds the intent handler table and the fallback collaborators.
type Dispatcher struct {
	handlers   map[intent.Intent]Handler
	engine     *compute.Engine
	analyzer   *analytics.Analyzer
	retriever  Retriever
	generator  Generator
	web        WebSearcher
	k          int
	contextMax int
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithEngine replaces the computation engine (for custom department aliases).
func WithEngine(e *compute.Engine) Option {
	return func(d *Dispatcher) {
		if e != nil {
			d.engine = e
		}
	}
}

// WithRetriever sets the context retrieval collaborator.
func WithRetriever(r Retriever) Option {
	return func(d *Dispatcher) { d.retriever = r }
}

// WithGenerator sets the generative summary collaborator.
func WithGenerator(g Generator) Option {
	return func(d *Dispatcher) { d.generator = g }
}

// WithWebSearcher sets the web search collaborator.
func WithWebSearcher(w WebSearcher) Option {
	return func(d *Dispatcher) { d.web = w }
}

// WithSimilarityK sets how many chunks are retrieved for a summary.
func WithSimilarityK(k int) Option {
	return func(d *Dispatcher) {
		if k > 0 {
			d.k = k
		}
	}
}

// WithContextMaxLength caps the context passed to the generator, in runes.
func WithContextMaxLength(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.contextMax = n
		}
	}
}

// New builds a dispatcher with a handler for every intent.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		engine:     compute.New(),
		analyzer:   analytics.New(),
		k:          DefaultSimilarityK,
		contextMax: DefaultContextMaxLength,
	}
	for _, opt := range opts {
		opt(d)
	}

	d.handlers = map[intent.Intent]Handler{
		intent.Arithmetic:               d.computeAs(compute.QueryArithmetic),
		intent.Statistics:               d.computeAs(compute.QueryStatistics),
		intent.Comparison:               d.compare,
		intent.Percentage:               d.computeAs(compute.QueryPercentage),
		intent.DepartmentAnalysis:       d.computeAs(compute.QueryDepartment),
		intent.EmployeeCount:            d.computeAs(compute.QueryEmployeeCount),
		intent.StoreQuery:               d.storeData,
		intent.IndividualSalary:         d.employeeData,
		intent.SalaryAnalysis:           d.computeAs(compute.QueryStatistics),
		intent.ListAllEmployees:         d.listEmployees,
		intent.CountDepartmentEmployees: d.countDepartment,
		intent.DataAnalysis:             d.analyze,
		intent.TrendAnalysis:            d.analyze,
		intent.Help:                     help,
		intent.WebSearch:                d.webSearch,
		intent.ContextSummary:           d.summarize,
	}
	return d
}

// Engine returns the computation engine used by the handlers.
func (d *Dispatcher) Engine() *compute.Engine {
	return d.engine
}

// Handles reports whether an intent has a registered handler.
func (d *Dispatcher) Handles(it intent.Intent) bool {
	_, ok := d.handlers[it]
	return ok
}

// Dispatch authorizes the request and runs the handler for it. Unmapped
// intents and confidences under intent.ClarifyThreshold go through the
// fallback chain. The response always carries user-facing text; err reports
// the typed failure behind it, if any.
func (d *Dispatcher) Dispatch(ctx context.Context, it intent.Intent, confidence float64, req Request) (Response, error) {
	if err := Authorize(req.User, it, req.Query); err != nil {
		return Failure(err), err
	}

	h, ok := d.handlers[it]
	if !ok || (confidence < intent.ClarifyThreshold && it != intent.WebSearch) {
		return d.Fallback(ctx, req), nil
	}

	resp, err := h(ctx, req)
	if err != nil {
		slog.Debug("handler failed", "intent", it.String(), "error", err)
		return Failure(err), err
	}
	return resp, nil
}

// Authorize rejects non-admin users asking for salary data: protected
// intents always, and computational or analytics intents when the query
// mentions salary.
func Authorize(u User, it intent.Intent, query string) error {
	if u.IsAdmin() {
		return nil
	}
	scoped := it.Computational() || it == intent.DataAnalysis || it == intent.TrendAnalysis
	if it.Protected() || (scoped && MentionsSalary(query)) {
		return &apperr.AuthorizationError{UserID: u.ID, Role: u.Role, Intent: it.String()}
	}
	return nil
}

var salaryWords = []string{"maaş", "ücret", "salary", "bordro"}

// MentionsSalary reports whether the query talks about salaries.
func MentionsSalary(query string) bool {
	tokens := textnorm.Tokens(query)
	for _, w := range salaryWords {
		if textnorm.HasWord(tokens, w) {
			return true
		}
	}
	return false
}

// IntentFor maps a detected computation onto the intent it answers.
func IntentFor(qt compute.QueryType) intent.Intent {
	switch qt {
	case compute.QueryRatio:
		return intent.Comparison
	case compute.QueryDepartment:
		return intent.DepartmentAnalysis
	case compute.QueryEmployeeCount:
		return intent.EmployeeCount
	case compute.QueryStatistics:
		return intent.Statistics
	case compute.QueryPercentage:
		return intent.Percentage
	}
	return intent.Arithmetic
}

func (d *Dispatcher) computeAs(qt compute.QueryType) Handler {
	return func(ctx context.Context, req Request) (Response, error) {
		res, err := d.engine.Run(qt, req.Query, req.Entities, req.Datasets)
		if err != nil {
			return Response{}, err
		}
		return FromResult(res, TypeCalculation), nil
	}
}

// compare runs the salary ratio for "kaç kat" questions and the department
// comparison otherwise.
func (d *Dispatcher) compare(ctx context.Context, req Request) (Response, error) {
	qt := compute.DetectQueryType(req.Query)
	if qt != compute.QueryRatio && qt != compute.QueryDepartment {
		qt = compute.QueryDepartment
		if !strings.Contains(textnorm.Fold(req.Query), "departman") && len(req.Entities.Departments) == 0 {
			qt = compute.QueryRatio
		}
	}
	return d.computeAs(qt)(ctx, req)
}

func (d *Dispatcher) analyze(ctx context.Context, req Request) (Response, error) {
	ds, ok := analytics.PickDataset(req.Query, req.Datasets)
	if !ok {
		return Response{}, apperr.NotFound("dataset", "", "Analiz için yüklenmiş veri bulunamadı.")
	}
	report := d.analyzer.Analyze(ds)
	focus := analytics.DetectFocus(req.Query)
	if focus == analytics.FocusComprehensive && textnorm.HasWord(textnorm.Tokens(req.Query), "trend") {
		focus = analytics.FocusTrend
	}
	return FromResult(analytics.Respond(report, focus), TypeAnalytics), nil
}

const helpText = `Size şu konularda yardımcı olabilirim:

- **Hesaplama:** "500 * 12 kaç eder?", "1000'in yüzde 15'i"
- **İstatistik:** "ortalama maaş", "en yüksek ciro"
- **Departmanlar:** "Bilgi İşlem departmanında kaç çalışan var?"
- **Mağazalar:** "Kadıköy mağazasının cirosu"
- **Çalışanlar:** "tüm çalışanları listele"
- **Analiz:** "satış verilerini analiz et", "anomali raporu"`

func help(context.Context, Request) (Response, error) {
	return Response{Text: helpText, Type: TypeHelp}, nil
}
