package intent

import (
	"context"
	"math"

	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/extract"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/textnorm"
)

// Learner supplies the learned-pattern boost. ok is false when no stored
// pattern is similar enough to the query.
type Learner interface {
	LearnedIntent(ctx context.Context, query string) (name string, successRate float64, ok bool)
}

// Input is everything Classify looks at.
type Input struct {
	Query string
	// Tokens is the expanded token set from the optimizer. When empty the
	// query's own tokens are used.
	Tokens          []string
	Entities        extract.Entities
	UserID          string
	PreferredIntent string
}

// Result is the classification outcome.
type Result struct {
	Intent          Intent             `json:"intent"`
	Confidence      float64            `json:"confidence"`
	Scores          map[string]float64 `json:"scores,omitempty"`
	MatchedPattern  []string           `json:"matched_pattern,omitempty"`
	LearnedBoost    float64            `json:"learned_boost,omitempty"`
	SuggestedAction string             `json:"suggested_action"`
	ContextNeeded   []string           `json:"context_needed"`
}

// Classifier scores every intent and picks the best. It holds no per-call
// state and is safe for concurrent use.
type Classifier struct {
	learner     Learner
	webTriggers []string
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithLearner enables learned-pattern boosts.
func WithLearner(l Learner) Option {
	return func(c *Classifier) { c.learner = l }
}

// WithWebTriggers replaces the web-search trigger words.
func WithWebTriggers(words []string) Option {
	return func(c *Classifier) {
		if len(words) > 0 {
			c.webTriggers = words
		}
	}
}

// NewClassifier creates a classifier.
func NewClassifier(opts ...Option) *Classifier {
	c := &Classifier{webTriggers: DefaultWebTriggers}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type candidate struct {
	intent      Intent
	score       float64
	confidence  float64
	specificity int
	pattern     []string
}

// Classify returns the best intent for in. Identical input and learned
// state always produce the same result.
func (c *Classifier) Classify(ctx context.Context, in Input) Result {
	tokens := in.Tokens
	if len(tokens) == 0 {
		tokens = textnorm.Tokens(in.Query)
	}
	normalized := textnorm.Normalize(in.Query)

	all := All()
	cands := make([]candidate, len(all))
	for i, it := range all {
		cands[i] = scoreRule(it, tokens)
	}

	c.applyEntityBonuses(cands, in.Entities)
	for _, o := range overrides {
		if o.re.MatchString(normalized) {
			cands[o.intent-Arithmetic].score += o.bonus
		}
	}

	// ranking uses the uncapped value; reported confidence is capped at 1
	for i := range cands {
		cands[i].confidence = cands[i].score / scoreScale
	}

	var (
		boost   float64
		learned Intent
	)
	if c.learner != nil {
		if name, rate, ok := c.learner.LearnedIntent(ctx, in.Query); ok {
			if it, err := ParseIntent(name); err == nil {
				learned = it
				boost = rate * learnedWeight
				idx := learned - Arithmetic
				cands[idx].confidence += boost
			}
		}
	}

	best, tied := pick(cands)
	allZero := cands[best].confidence == 0

	if pref, err := ParseIntent(in.PreferredIntent); err == nil && (tied || allZero) {
		idx := pref - Arithmetic
		cands[idx].confidence += preferenceBonus
		best, _ = pick(cands)
		allZero = false
	}

	res := Result{Scores: make(map[string]float64, len(cands))}
	for _, cd := range cands {
		if cd.score > 0 || cd.confidence > 0 {
			res.Scores[cd.intent.String()] = capped(cd.confidence)
		}
	}

	if allZero {
		res.Intent = ContextSummary
		for _, w := range c.webTriggers {
			if textnorm.HasWord(tokens, textnorm.Fold(w)) {
				res.Intent = WebSearch
				break
			}
		}
	} else {
		res.Intent = cands[best].intent
		res.Confidence = capped(cands[best].confidence)
		res.MatchedPattern = cands[best].pattern
		if learned == res.Intent {
			res.LearnedBoost = round(boost)
		}
	}

	res.SuggestedAction = suggestAction(res.Intent, in.Entities, res.Confidence)
	res.ContextNeeded = contextNeeded(res.Intent, in.Entities, normalized)
	return res
}

func scoreRule(it Intent, tokens []string) candidate {
	cd := candidate{intent: it}
	r := rules[it]
	for _, p := range r.patterns {
		if !allPresent(tokens, p) {
			continue
		}
		cd.score += patternWeight
		if len(p) > cd.specificity {
			cd.specificity = len(p)
			cd.pattern = p
		}
	}
	for _, kw := range r.keywords {
		if textnorm.HasWord(tokens, kw) {
			cd.score += keywordWeight
		}
	}
	return cd
}

func allPresent(tokens, words []string) bool {
	for _, w := range words {
		found := false
		for _, t := range tokens {
			if textnorm.MatchWord(t, w) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (c *Classifier) applyEntityBonuses(cands []candidate, ent extract.Entities) {
	at := func(it Intent) *candidate { return &cands[it-Arithmetic] }

	if len(ent.Numbers) > 0 && (len(ent.Operators) > 0 || ent.Has(extract.Calculation)) {
		at(Arithmetic).score += arithmeticBonus
	}
	if len(ent.Stores) >= 2 || len(ent.Employees) >= 2 || len(ent.Departments) >= 2 {
		at(Comparison).score += comparisonBonus
	}
	if len(ent.Stores) > 0 {
		at(StoreQuery).score += entityBonus
	}
	if len(ent.Employees) > 0 {
		at(IndividualSalary).score += entityBonus
	}
	if len(ent.Departments) > 0 && at(CountDepartmentEmployees).score > 0 {
		at(CountDepartmentEmployees).score += entityBonus
	}
}

// pick returns the index of the winner and whether the top two candidates
// tied on confidence before the specificity tie-break.
func pick(cands []candidate) (best int, tied bool) {
	for i := 1; i < len(cands); i++ {
		a, b := cands[i], cands[best]
		switch {
		case a.confidence > b.confidence+epsilon:
			best, tied = i, false
		case math.Abs(a.confidence-b.confidence) <= epsilon:
			if a.confidence > 0 {
				tied = true
			}
			if a.specificity > b.specificity {
				best = i
			}
		}
	}
	return best, tied
}

const epsilon = 1e-9

func round(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

func capped(v float64) float64 {
	return round(math.Min(1, v))
}
