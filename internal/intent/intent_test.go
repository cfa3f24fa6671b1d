package intent

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/extract"
)

type fakeLearner struct {
	name string
	rate float64
}

func (f fakeLearner) LearnedIntent(context.Context, string) (string, float64, bool) {
	return f.name, f.rate, f.name != ""
}

func extractor() *extract.Extractor {
	return extract.New(extract.Dictionary{
		Stores:      []string{"Kadıköy", "Beşiktaş"},
		Employees:   []string{"Ali Veli", "Ayşe Kaya"},
		Departments: []string{"Bilgi İşlem", "Muhasebe"},
	})
}

func classify(t *testing.T, c *Classifier, query string, mutate ...func(*Input)) Result {
	t.Helper()
	in := Input{Query: query, Entities: extractor().Extract(query)}
	for _, m := range mutate {
		m(&in)
	}
	return c.Classify(context.Background(), in)
}

func TestEnumRoundTrip(t *testing.T) {
	all := All()
	require.Len(t, all, 16)

	for _, it := range all {
		parsed, err := ParseIntent(it.String())
		require.NoError(t, err)
		assert.Equal(t, it, parsed)
		assert.True(t, it.Valid())
	}

	_, err := ParseIntent("mathematical_calculation")
	assert.Error(t, err)
	assert.False(t, Unknown.Valid())
}

func TestEveryIntentHasRules(t *testing.T) {
	for _, it := range All() {
		r, ok := rules[it]
		assert.True(t, ok, "no rule for %s", it)
		assert.NotEmpty(t, r.patterns, "no patterns for %s", it)
		assert.NotEmpty(t, actions[it], "no action for %s", it)
	}
}

func TestProtectedAndComputational(t *testing.T) {
	assert.True(t, IndividualSalary.Protected())
	assert.True(t, SalaryAnalysis.Protected())
	assert.False(t, Statistics.Protected())

	assert.True(t, Arithmetic.Computational())
	assert.True(t, EmployeeCount.Computational())
	assert.False(t, StoreQuery.Computational())
}

func TestIntentJSON(t *testing.T) {
	b, err := json.Marshal(map[string]Intent{"intent": DepartmentAnalysis})
	require.NoError(t, err)
	assert.JSONEq(t, `{"intent":"department_analysis"}`, string(b))

	var out struct{ Intent Intent }
	require.NoError(t, json.Unmarshal([]byte(`{"Intent":"web_search"}`), &out))
	assert.Equal(t, WebSearch, out.Intent)
}

func TestClassify(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		query      string
		want       Intent
		confidence float64
	}{
		{"500 * 12 kaç eder?", Arithmetic, 0.875},
		{"toplam çalışan sayısı", EmployeeCount, 1},
		{"Bilgi İşlem departmanında kaç çalışan var", CountDepartmentEmployees, 1},
		{"en yüksek maaş en düşük maaşın kaç katı", Comparison, 1},
		{"internetten dolar kuru", WebSearch, 1},
		{"merhaba", ContextSummary, 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			res := classify(t, c, tt.query)
			assert.Equal(t, tt.want, res.Intent)
			assert.InDelta(t, tt.confidence, res.Confidence, 1e-9)
		})
	}
}

func TestAllZeroUsesWebTriggers(t *testing.T) {
	c := NewClassifier(WithWebTriggers([]string{"borsa"}))
	assert.Equal(t, WebSearch, classify(t, c, "borsa bugün").Intent)
	assert.Equal(t, ContextSummary, classify(t, c, "merhaba").Intent)
}

func TestTieBrokenBySpecificity(t *testing.T) {
	c := NewClassifier()

	// store_query matches one word, trend_analysis matches a two-word pattern
	res := classify(t, c, "mağaza geçen yıl")
	assert.Equal(t, TrendAnalysis, res.Intent)
	assert.Equal(t, []string{"geçen", "yıl"}, res.MatchedPattern)
	assert.InDelta(t, 0.5, res.Scores["store_query"], 1e-9)
}

func TestPreferenceOnlyBreaksTies(t *testing.T) {
	c := NewClassifier()
	prefer := func(name string) func(*Input) {
		return func(in *Input) { in.PreferredIntent = name }
	}

	res := classify(t, c, "mağaza geçen yıl", prefer("store_query"))
	assert.Equal(t, StoreQuery, res.Intent)
	assert.InDelta(t, 0.6, res.Confidence, 1e-9)

	res = classify(t, c, "500 * 12 kaç eder?", prefer("statistics"))
	assert.Equal(t, Arithmetic, res.Intent)

	res = classify(t, c, "merhaba", prefer("help"))
	assert.Equal(t, Help, res.Intent)
	assert.InDelta(t, 0.1, res.Confidence, 1e-9)
}

func TestLearnedBoost(t *testing.T) {
	c := NewClassifier(WithLearner(fakeLearner{name: "store_query", rate: 0.5}))

	res := classify(t, c, "mağaza geçen yıl")
	assert.Equal(t, StoreQuery, res.Intent)
	assert.InDelta(t, 0.6, res.Confidence, 1e-9)
	assert.InDelta(t, 0.1, res.LearnedBoost, 1e-9)

	c = NewClassifier(WithLearner(fakeLearner{name: "not_an_intent", rate: 1}))
	assert.Equal(t, TrendAnalysis, classify(t, c, "mağaza geçen yıl").Intent)
}

func TestClassifyIsDeterministic(t *testing.T) {
	c := NewClassifier(WithLearner(fakeLearner{name: "statistics", rate: 0.8}))
	queries := []string{"ortalama maaş", "mağaza geçen yıl", "Ali Veli ile Ayşe Kaya karşılaştır", "merhaba"}

	for _, q := range queries {
		first := classify(t, c, q)
		for i := 0; i < 20; i++ {
			assert.Equal(t, first, classify(t, c, q), q)
		}
	}
}

func TestExpandedTokensAreUsed(t *testing.T) {
	c := NewClassifier()
	res := c.Classify(context.Background(), Input{
		Query:    "tüm personeli listele",
		Tokens:   []string{"tüm", "personeli", "listele", "göster", "çalışan"},
		Entities: extract.Empty(),
	})
	assert.Equal(t, ListAllEmployees, res.Intent)
}

func TestSuggestedActionAndContext(t *testing.T) {
	c := NewClassifier()

	res := classify(t, c, "500 * 12 kaç eder?")
	assert.Equal(t, "execute_arithmetic", res.SuggestedAction)
	assert.Empty(t, res.ContextNeeded)

	res = classify(t, c, "Ali Veli ile Ayşe Kaya karşılaştır")
	assert.Equal(t, Comparison, res.Intent)
	assert.Equal(t, "compare_employees", res.SuggestedAction)
	assert.Equal(t, []string{"comparison_metric"}, res.ContextNeeded)

	res = classify(t, c, "hesap")
	assert.NotNil(t, res.ContextNeeded)
}
