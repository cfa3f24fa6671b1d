package search

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/tr"
	"github.com/blevesearch/bleve/v2/index/scorch"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/dataset"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/textnorm"
)

// Indexer manages the retrieval index.
type Indexer struct {
	bleveIndex bleve.Index
	mu         sync.RWMutex
	indexPath  string
}

// NewIndexer creates a new indexer with an in-memory Bleve index.
func NewIndexer() (*Indexer, error) {
	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create bleve index: %w", err)
	}

	return &Indexer{bleveIndex: index}, nil
}

// NewIndexerWithPath creates a new indexer with persistent disk storage.
func NewIndexerWithPath(indexPath string) (*Indexer, error) {
	if err := os.MkdirAll(filepath.Dir(indexPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	// Open or create index with Scorch backend
	index, err := bleve.NewUsing(indexPath, buildIndexMapping(), scorch.Name, scorch.Name, nil)
	if err != nil {
		index, err = bleve.Open(indexPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open/create index: %w", err)
		}
	}

	return &Indexer{
		bleveIndex: index,
		indexPath:  indexPath,
	}, nil
}

// buildIndexMapping creates the Bleve index mapping.
func buildIndexMapping() mapping.IndexMapping {
	chunkMapping := bleve.NewDocumentMapping()

	// Text: searchable, stemmed with the Turkish analyzer
	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = tr.AnalyzerName
	textField.Store = false
	chunkMapping.AddFieldMappingsAt("text", textField)

	// Display: the original text, stored but not indexed
	displayField := bleve.NewTextFieldMapping()
	displayField.Index = false
	displayField.IncludeInAll = false
	chunkMapping.AddFieldMappingsAt("display", displayField)

	// Source and kind: exact values for filtering
	sourceField := bleve.NewTextFieldMapping()
	sourceField.Analyzer = keyword.Name
	sourceField.IncludeInAll = false
	chunkMapping.AddFieldMappingsAt("source", sourceField)

	kindField := bleve.NewTextFieldMapping()
	kindField.Analyzer = keyword.Name
	kindField.IncludeInAll = false
	chunkMapping.AddFieldMappingsAt("kind", kindField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = tr.AnalyzerName
	indexMapping.AddDocumentMapping("_default", chunkMapping)

	return indexMapping
}

// fold lowercases and maps dotless ı to i, so "KADIKÖY", "Kadıköy" and
// "kadiköy" index the same way.
func fold(s string) string {
	return strings.ReplaceAll(textnorm.Fold(s), "ı", "i")
}

// Index adds or replaces chunks.
func (i *Indexer) Index(chunks []Chunk) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	batch := i.bleveIndex.NewBatch()
	for _, c := range chunks {
		doc := map[string]interface{}{
			"text":    fold(c.Text),
			"display": c.Text,
			"source":  c.Source,
			"kind":    c.Kind,
		}
		if err := batch.Index(c.ID, doc); err != nil {
			slog.Warn("failed to index chunk", "id", c.ID, "err", err)
		}
	}

	if err := i.bleveIndex.Batch(batch); err != nil {
		return fmt.Errorf("failed to batch index chunks: %w", err)
	}
	return nil
}

// IndexRegistry indexes every dataset row and document chunk, replacing
// chunks previously indexed for the same source.
func (i *Indexer) IndexRegistry(reg *dataset.Registry) (int, error) {
	total := 0
	for _, ds := range reg.Datasets() {
		if err := i.RemoveSource(ds.Name); err != nil {
			return total, err
		}
		chunks := RowChunks(ds)
		if err := i.Index(chunks); err != nil {
			return total, fmt.Errorf("failed to index %s: %w", ds.Name, err)
		}
		total += len(chunks)
	}
	for _, doc := range reg.Documents() {
		if err := i.RemoveSource(doc.Name); err != nil {
			return total, err
		}
		chunks := DocumentChunks(doc)
		if err := i.Index(chunks); err != nil {
			return total, fmt.Errorf("failed to index %s: %w", doc.Name, err)
		}
		total += len(chunks)
	}
	return total, nil
}

// RemoveSource removes all chunks of a source (for reindexing).
func (i *Indexer) RemoveSource(source string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	q := bleve.NewTermQuery(source)
	q.SetField("source")

	batch := i.bleveIndex.NewBatch()
	for {
		req := bleve.NewSearchRequestOptions(q, 1000, 0, false)
		results, err := i.bleveIndex.Search(req)
		if err != nil {
			return fmt.Errorf("failed to find source chunks: %w", err)
		}
		if len(results.Hits) == 0 {
			break
		}
		for _, hit := range results.Hits {
			batch.Delete(hit.ID)
		}
		if err := i.bleveIndex.Batch(batch); err != nil {
			return fmt.Errorf("failed to batch delete: %w", err)
		}
		batch.Reset()
	}
	return nil
}

// Count returns the total number of indexed chunks.
func (i *Indexer) Count() (uint64, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	docCount, err := i.bleveIndex.DocCount()
	if err != nil {
		return 0, fmt.Errorf("failed to get doc count: %w", err)
	}
	return docCount, nil
}

// Path returns the on-disk location, or "" for an in-memory index.
func (i *Indexer) Path() string {
	return i.indexPath
}

// Close closes the index and releases resources.
func (i *Indexer) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.bleveIndex != nil {
		return i.bleveIndex.Close()
	}
	return nil
}

