/*
Package benchmark measures how well the assistant routes a labelled query
suite.

Each case names the query, the asking role, and the intent and route the
assistant is expected to pick. Run answers every case, compares the
outcome with the label and aggregates accuracy and latency per route.
*/
package benchmark

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/assistant"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/dispatch"
)

// DefaultConcurrency is the number of cases answered at once.
const DefaultConcurrency = 4

// Asker answers a request. *assistant.Assistant satisfies it.
type Asker interface {
	Ask(ctx context.Context, req assistant.Request) assistant.Answer
}

// Case is one labelled query.
type Case struct {
	Query      string `json:"query"`
	Role       string `json:"role"`
	WantIntent string `json:"wantIntent"`
	// WantRoute is optional; empty means any route is accepted
	WantRoute string `json:"wantRoute,omitempty"`
}

// CaseResult is the outcome of one case.
type CaseResult struct {
	Case
	Intent     string        `json:"intent"`
	Route      string        `json:"route"`
	Confidence float64       `json:"confidence"`
	IntentHit  bool          `json:"intentHit"`
	RouteHit   bool          `json:"routeHit"`
	Elapsed    time.Duration `json:"elapsedNs"`
}

// RouteStat aggregates latency for one route.
type RouteStat struct {
	Route string        `json:"route"`
	Count int           `json:"count"`
	Mean  time.Duration `json:"meanNs"`
	Max   time.Duration `json:"maxNs"`
}

// Result contains the suite outcome.
type Result struct {
	Cases          []CaseResult  `json:"cases"`
	Total          int           `json:"total"`
	IntentHits     int           `json:"intentHits"`
	RouteHits      int           `json:"routeHits"`
	IntentAccuracy float64       `json:"intentAccuracy"`
	RouteAccuracy  float64       `json:"routeAccuracy"`
	Routes         []RouteStat   `json:"routes"`
	Elapsed        time.Duration `json:"elapsedNs"`
}

// DefaultSuite covers every deterministic route.
func DefaultSuite() []Case {
	admin, user := dispatch.RoleAdmin, "user"
	return []Case{
		{Query: "500 * 12 kaç eder?", Role: user, WantIntent: "arithmetic", WantRoute: assistant.RouteMath},
		{Query: "(120 + 80) / 4 hesapla", Role: user, WantIntent: "arithmetic", WantRoute: assistant.RouteMath},
		{Query: "ortalama maaş", Role: admin, WantIntent: "statistics", WantRoute: assistant.RouteMath},
		{Query: "1000'in yüzde 15'i", Role: user, WantIntent: "percentage", WantRoute: assistant.RouteMath},
		{Query: "kaç çalışan var", Role: user, WantIntent: "employee_count", WantRoute: assistant.RouteMath},
		{Query: "Kadıköy mağazası bilgileri", Role: user, WantIntent: "store_query", WantRoute: assistant.RouteDispatch},
		{Query: "tüm çalışanları listele", Role: admin, WantIntent: "list_all_employees"},
		{Query: "veri analizi yap", Role: admin, WantIntent: "data_analysis", WantRoute: assistant.RouteAnalytics},
		{Query: "ciro trend analizi", Role: admin, WantIntent: "trend_analysis", WantRoute: assistant.RouteAnalytics},
		{Query: "yardım", Role: user, WantIntent: "help"},
		{Query: "bugün hava nasıl", Role: user, WantIntent: "web_search"},
	}
}

// Run answers every case with at most concurrency requests in flight.
// It only fails when ctx is cancelled.
func Run(ctx context.Context, a Asker, cases []Case, concurrency int) (*Result, error) {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	start := time.Now()
	results := make([]CaseResult, len(cases))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, c := range cases {
		i, c := i, c
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ans := a.Ask(gctx, assistant.Request{
				Query: c.Query,
				User:  dispatch.User{ID: "benchmark", Role: c.Role},
			})
			results[i] = CaseResult{
				Case:       c,
				Intent:     ans.Intent,
				Route:      ans.Route,
				Confidence: ans.Confidence,
				IntentHit:  ans.Intent == c.WantIntent,
				RouteHit:   c.WantRoute == "" || ans.Route == c.WantRoute,
				Elapsed:    ans.Elapsed,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return summarize(results, time.Since(start)), nil
}

func summarize(results []CaseResult, elapsed time.Duration) *Result {
	res := &Result{Cases: results, Total: len(results), Elapsed: elapsed}

	byRoute := map[string]*RouteStat{}
	for _, r := range results {
		if r.IntentHit {
			res.IntentHits++
		}
		if r.RouteHit {
			res.RouteHits++
		}
		st, ok := byRoute[r.Route]
		if !ok {
			st = &RouteStat{Route: r.Route}
			byRoute[r.Route] = st
		}
		st.Count++
		st.Mean += r.Elapsed
		st.Max = max(st.Max, r.Elapsed)
	}
	if res.Total > 0 {
		res.IntentAccuracy = float64(res.IntentHits) / float64(res.Total) * 100
		res.RouteAccuracy = float64(res.RouteHits) / float64(res.Total) * 100
	}

	for _, st := range byRoute {
		st.Mean /= time.Duration(st.Count)
		res.Routes = append(res.Routes, *st)
	}
	slices.SortFunc(res.Routes, func(a, b RouteStat) int { return strings.Compare(a.Route, b.Route) })
	return res
}

// Misses returns the cases whose intent or route differed from the label.
func (r *Result) Misses() []CaseResult {
	var out []CaseResult
	for _, c := range r.Cases {
		if !c.IntentHit || !c.RouteHit {
			out = append(out, c)
		}
	}
	return out
}

// FormatResult formats the benchmark result for display.
func FormatResult(result *Result) string {
	var sb strings.Builder

	sb.WriteString("╔══════════════════════════════════════════════════════════════╗\n")
	sb.WriteString("║              ROUTING BENCHMARK RESULTS                       ║\n")
	sb.WriteString("╠══════════════════════════════════════════════════════════════╣\n")
	sb.WriteString(fmt.Sprintf("║  Cases:            %-42d║\n", result.Total))
	sb.WriteString(fmt.Sprintf("║  Intent accuracy:  %-42s║\n", fmt.Sprintf("%.1f%% (%d/%d)", result.IntentAccuracy, result.IntentHits, result.Total)))
	sb.WriteString(fmt.Sprintf("║  Route accuracy:   %-42s║\n", fmt.Sprintf("%.1f%% (%d/%d)", result.RouteAccuracy, result.RouteHits, result.Total)))
	sb.WriteString(fmt.Sprintf("║  Wall time:        %-42s║\n", result.Elapsed.Round(time.Microsecond)))
	sb.WriteString("╠══════════════════════════════════════════════════════════════╣\n")
	for _, st := range result.Routes {
		line := fmt.Sprintf("%-10s %s answers, mean %s, max %s", st.Route,
			humanize.Comma(int64(st.Count)), st.Mean.Round(time.Microsecond), st.Max.Round(time.Microsecond))
		sb.WriteString(fmt.Sprintf("║  %-60s║\n", line))
	}
	sb.WriteString("╚══════════════════════════════════════════════════════════════╝\n")

	if misses := result.Misses(); len(misses) > 0 {
		sb.WriteString("\nMisses:\n")
		for _, m := range misses {
			sb.WriteString(fmt.Sprintf("  %q: got %s/%s, want %s/%s\n",
				m.Query, m.Intent, m.Route, m.WantIntent, orAny(m.WantRoute)))
		}
	}
	return sb.String()
}

func orAny(s string) string {
	if s == "" {
		return "*"
	}
	return s
}
