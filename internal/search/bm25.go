package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
)

// DefaultLimit is used when a non-positive limit is given.
const DefaultLimit = 8

// SearchBM25 performs BM25 keyword search over the chunk text.
func (i *Indexer) SearchBM25(ctx context.Context, query string, limit int) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Result{}, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	match := bleve.NewMatchQuery(fold(query))
	match.SetField("text")

	req := bleve.NewSearchRequestOptions(match, limit, 0, false)
	req.Fields = []string{"display", "source", "kind"}

	results, err := i.bleveIndex.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("bleve search failed: %w", err)
	}
	return convertBleveResults(results), nil
}

// Search returns the text of the k best chunks for query.
func (i *Indexer) Search(ctx context.Context, query string, k int) ([]string, error) {
	results, err := i.SearchBM25(ctx, query, k)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(results))
	for n, r := range results {
		out[n] = r.Text
	}
	return out, nil
}

// convertBleveResults converts Bleve search results to Results.
func convertBleveResults(results *bleve.SearchResult) []Result {
	out := make([]Result, 0, len(results.Hits))
	for _, hit := range results.Hits {
		text, _ := hit.Fields["display"].(string)
		source, _ := hit.Fields["source"].(string)
		kind, _ := hit.Fields["kind"].(string)
		out = append(out, Result{
			ID:     hit.ID,
			Source: source,
			Kind:   kind,
			Text:   text,
			Score:  hit.Score,
		})
	}
	return out
}
