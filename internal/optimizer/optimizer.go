// Package optimizer rewrites a raw query before classification: spelling
// fixes, additive synonym expansion, context hints and user-preference
// disambiguation, in that order.
package optimizer

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/textnorm"
)

// Hint tag and token produced by the context stage.
const (
	AggregationHint = "aggregation"
	hintDataQuery   = "data_query"
)

// Tables holds the lexical tables used by the pipeline.
type Tables struct {
	// Spelling maps a misspelled token to its correct form.
	Spelling map[string]string
	// Synonyms maps a canonical word to the words that expand to it.
	Synonyms map[string][]string
}

// DefaultTables returns the built-in Turkish tables.
func DefaultTables() Tables {
	return Tables{
		Spelling: map[string]string{
			"maas":        "maaş",
			"magas":       "mağaza",
			"magaza":      "mağaza",
			"calisan":     "çalışan",
			"satis":       "satış",
			"goster":      "göster",
			"kac":         "kaç",
			"ortalamasi":  "ortalaması",
			"yuzde":       "yüzde",
			"karsilastir": "karşılaştır",
		},
		Synonyms: map[string][]string{
			"göster":      {"listele", "getir", "ver", "sırala"},
			"hesapla":     {"bul", "belirle", "calculate", "compute"},
			"karşılaştır": {"kıyasla", "mukayese"},
			"çalışan":     {"personel", "kişi", "employee"},
			"maaş":        {"ücret", "salary"},
			"mağaza":      {"şube", "store"},
			"satış":       {"ciro", "sales", "revenue"},
			"departman":   {"birim", "bölüm"},
			"ortalama":    {"average", "mean", "ort"},
			"toplam":      {"sum", "total"},
			"yüzde":       {"percent", "percentage"},
		},
	}
}

// Merge overlays other on t. Entries in other win.
func (t Tables) Merge(other Tables) Tables {
	out := Tables{Spelling: map[string]string{}, Synonyms: map[string][]string{}}
	for k, v := range t.Spelling {
		out.Spelling[k] = v
	}
	for k, v := range other.Spelling {
		out.Spelling[textnorm.Fold(k)] = v
	}
	for k, v := range t.Synonyms {
		out.Synonyms[k] = append([]string(nil), v...)
	}
	for k, v := range other.Synonyms {
		key := textnorm.Fold(k)
		out.Synonyms[key] = appendUnique(out.Synonyms[key], v...)
	}
	return out
}

// Hints carries per-request context.
type Hints struct {
	PreviousIntent string `json:"previous_intent,omitempty"`
}

// Result is the optimizer output.
type Result struct {
	Original string `json:"original_query"`
	// Query is the spelling-corrected text.
	Query string `json:"optimized_query"`
	// ExpandedTokens holds the query tokens plus every canonical word their
	// synonyms point to and any context hint tokens.
	ExpandedTokens  []string `json:"expanded_tokens"`
	Applied         []string `json:"optimizations_applied"`
	PreferredIntent string   `json:"preferred_intent,omitempty"`
	Suggestions     []string `json:"suggestions"`
}

// History is the learning-store view the optimizer needs.
type History interface {
	TopIntent(ctx context.Context, userID string) (string, bool)
	SimilarQueries(ctx context.Context, query string, lo, hi float64, limit int) []string
}

// Optimizer runs the fixed four-stage pipeline.
type Optimizer struct {
	tables  Tables
	reverse map[string][]string
	history History
}

// New creates an optimizer. history may be nil.
func New(tables Tables, history History) *Optimizer {
	o := &Optimizer{tables: tables, reverse: make(map[string][]string), history: history}
	for canonical, words := range tables.Synonyms {
		for _, w := range words {
			for _, tok := range strings.Fields(textnorm.Fold(w)) {
				o.reverse[tok] = appendUnique(o.reverse[tok], canonical)
			}
		}
	}
	for k := range o.reverse {
		sort.Strings(o.reverse[k])
	}
	return o
}

// Optimize runs spelling, synonym, context and disambiguation stages.
func (o *Optimizer) Optimize(ctx context.Context, query, userID string, hints Hints) Result {
	res := Result{
		Original:    query,
		Query:       query,
		Applied:     []string{},
		Suggestions: []string{},
	}

	tokens := o.correctSpelling(&res)
	res.ExpandedTokens = o.expandSynonyms(tokens, &res)
	o.applyContextHints(hints, tokens, &res)
	o.disambiguate(ctx, userID, &res)

	if o.history != nil {
		if s := o.history.SimilarQueries(ctx, res.Query, 0.3, 0.7, 3); s != nil {
			res.Suggestions = s
		}
	}
	return res
}

// Correct returns query with only the spelling stage applied.
func (o *Optimizer) Correct(query string) string {
	res := Result{Query: query}
	o.correctSpelling(&res)
	return res.Query
}

// correctSpelling rewrites whole tokens only, so "kacak" is left alone.
func (o *Optimizer) correctSpelling(res *Result) []string {
	words := strings.Fields(res.Query)
	tokens := textnorm.Tokens(res.Query)
	changed := false

	for i, w := range words {
		key := textnorm.Normalize(w)
		fix, ok := o.tables.Spelling[key]
		if !ok || fix == key {
			continue
		}
		words[i] = strings.Replace(textnorm.Fold(w), key, fix, 1)
		res.Applied = append(res.Applied, fmt.Sprintf("spelling_correction: %s -> %s", key, fix))
		changed = true
	}

	if changed {
		res.Query = strings.Join(words, " ")
		tokens = textnorm.Tokens(res.Query)
	}
	return tokens
}

func (o *Optimizer) expandSynonyms(tokens []string, res *Result) []string {
	expanded := append([]string{}, tokens...)
	have := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		have[t] = true
	}

	for _, t := range tokens {
		for _, canonical := range o.reverse[t] {
			if have[canonical] {
				continue
			}
			have[canonical] = true
			expanded = append(expanded, canonical)
			res.Applied = append(res.Applied, fmt.Sprintf("synonym_expansion: %s -> %s", t, canonical))
		}
	}
	return expanded
}

func (o *Optimizer) applyContextHints(hints Hints, tokens []string, res *Result) {
	if hints.PreviousIntent != hintDataQuery || textnorm.HasWord(tokens, "toplam") {
		return
	}
	res.Applied = append(res.Applied, "context_hint: data_aggregation_likely")
	res.ExpandedTokens = appendUnique(res.ExpandedTokens, AggregationHint)
}

func (o *Optimizer) disambiguate(ctx context.Context, userID string, res *Result) {
	if o.history == nil || userID == "" {
		return
	}
	top, ok := o.history.TopIntent(ctx, userID)
	if !ok || top == "" {
		return
	}
	res.PreferredIntent = top
	res.Applied = append(res.Applied, "user_preference: likely_"+top)
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		found := false
		for _, d := range dst {
			if d == v {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, v)
		}
	}
	return dst
}
