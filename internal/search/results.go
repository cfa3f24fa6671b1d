/*
Package search implements the retrieval index used for context
summarization.

Dataset rows and text documents are split into chunks and indexed with
Bleve (BM25 scoring, Turkish analyzer). Search returns the best matching
chunk texts.
*/
package search

// Chunk kinds.
const (
	KindRow      = "row"
	KindDocument = "document"
)

// Chunk is one indexed unit of text.
type Chunk struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Kind   string `json:"kind"`
	Text   string `json:"text"`
}

// Result is a scored search hit.
type Result struct {
	ID     string  `json:"id"`
	Source string  `json:"source"`
	Kind   string  `json:"kind"`
	Text   string  `json:"text"`
	Score  float64 `json:"score"`
}
