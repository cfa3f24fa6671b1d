package optimizer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeHistory struct {
	top     map[string]string
	similar []string
}

func (f *fakeHistory) TopIntent(_ context.Context, userID string) (string, bool) {
	v, ok := f.top[userID]
	return v, ok
}

func (f *fakeHistory) SimilarQueries(_ context.Context, _ string, _, _ float64, limit int) []string {
	if len(f.similar) > limit {
		return f.similar[:limit]
	}
	return f.similar
}

func TestSpellingCorrection(t *testing.T) {
	o := New(DefaultTables(), nil)
	res := o.Optimize(context.Background(), "ortalama maas kac?", "", Hints{})

	assert.Equal(t, "ortalama maaş kaç?", res.Query)
	assert.Contains(t, res.Applied, "spelling_correction: maas -> maaş")
	assert.Contains(t, res.Applied, "spelling_correction: kac -> kaç")
	assert.Contains(t, res.ExpandedTokens, "maaş")
}

func TestSpellingIsTokenLevel(t *testing.T) {
	o := New(DefaultTables(), nil)
	res := o.Optimize(context.Background(), "kacak maasçı", "", Hints{})
	assert.Equal(t, "kacak maasçı", res.Query)
	assert.Empty(t, res.Applied)
}

func TestSynonymExpansionIsAdditive(t *testing.T) {
	o := New(DefaultTables(), nil)
	res := o.Optimize(context.Background(), "tüm personeli listele", "", Hints{})

	assert.Equal(t, "tüm personeli listele", res.Query)
	assert.Equal(t, []string{"tüm", "personeli", "listele", "göster"}, res.ExpandedTokens)
	assert.Contains(t, res.Applied, "synonym_expansion: listele -> göster")
}

func TestOptimizeIsIdempotent(t *testing.T) {
	o := New(DefaultTables(), nil)
	first := o.Optimize(context.Background(), "calisan ücret listele", "", Hints{})
	second := o.Optimize(context.Background(), first.Query, "", Hints{})

	assert.Equal(t, first.Query, second.Query)
	assert.Equal(t, first.ExpandedTokens, second.ExpandedTokens)
}

func TestContextHint(t *testing.T) {
	o := New(DefaultTables(), nil)

	res := o.Optimize(context.Background(), "peki muhasebe", "", Hints{PreviousIntent: "data_query"})
	assert.Contains(t, res.Applied, "context_hint: data_aggregation_likely")
	assert.Contains(t, res.ExpandedTokens, AggregationHint)

	res = o.Optimize(context.Background(), "toplam ne kadar", "", Hints{PreviousIntent: "data_query"})
	assert.NotContains(t, res.Applied, "context_hint: data_aggregation_likely")

	res = o.Optimize(context.Background(), "peki muhasebe", "", Hints{})
	assert.NotContains(t, res.ExpandedTokens, AggregationHint)
}

func TestDisambiguationAndSuggestions(t *testing.T) {
	h := &fakeHistory{
		top:     map[string]string{"u1": "statistics"},
		similar: []string{"ortalama maaş nedir", "ortalama ciro", "en yüksek maaş", "medyan maaş"},
	}
	o := New(DefaultTables(), h)

	res := o.Optimize(context.Background(), "ortalama maaş", "u1", Hints{})
	assert.Equal(t, "statistics", res.PreferredIntent)
	assert.Contains(t, res.Applied, "user_preference: likely_statistics")
	assert.Len(t, res.Suggestions, 3)

	res = o.Optimize(context.Background(), "ortalama maaş", "u2", Hints{})
	assert.Empty(t, res.PreferredIntent)
}

func TestMergeOverridesTables(t *testing.T) {
	tables := DefaultTables().Merge(Tables{
		Spelling: map[string]string{"Depatman": "departman"},
		Synonyms: map[string][]string{"maaş": {"aylık"}},
	})
	o := New(tables, nil)

	res := o.Optimize(context.Background(), "depatman aylık", "", Hints{})
	assert.Equal(t, "departman aylık", res.Query)
	assert.Contains(t, res.ExpandedTokens, "maaş")
	assert.Contains(t, tables.Synonyms["maaş"], "ücret")
}
