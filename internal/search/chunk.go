package search

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/dataset"
)

// maxChunkRunes bounds the size of a document chunk.
const maxChunkRunes = 800

// RowChunks renders every dataset row as "Column: value" pairs.
func RowChunks(ds *dataset.Dataset) []Chunk {
	out := make([]Chunk, 0, len(ds.Rows))
	for i, row := range ds.Rows {
		parts := make([]string, 0, len(row))
		for j, v := range row {
			if v == "" {
				continue
			}
			parts = append(parts, ds.Columns[j]+": "+v)
		}
		if len(parts) == 0 {
			continue
		}
		out = append(out, Chunk{
			ID:     fmt.Sprintf("%s#row-%d", ds.Name, i),
			Source: ds.Name,
			Kind:   KindRow,
			Text:   strings.Join(parts, "; "),
		})
	}
	return out
}

// DocumentChunks splits a document on blank lines and packs paragraphs into
// chunks of at most maxChunkRunes. A longer paragraph is split on words.
func DocumentChunks(doc dataset.Document) []Chunk {
	var (
		out  []Chunk
		cur  strings.Builder
		size int
	)
	emit := func() {
		if text := strings.TrimSpace(cur.String()); text != "" {
			out = append(out, Chunk{
				ID:     fmt.Sprintf("%s#chunk-%d", doc.Name, len(out)),
				Source: doc.Name,
				Kind:   KindDocument,
				Text:   text,
			})
		}
		cur.Reset()
		size = 0
	}

	for _, para := range splitParagraphs(doc.Text) {
		for _, piece := range splitLong(para) {
			n := utf8.RuneCountInString(piece)
			if size > 0 && size+n+1 > maxChunkRunes {
				emit()
			}
			if size > 0 {
				cur.WriteString("\n")
				size++
			}
			cur.WriteString(piece)
			size += n
		}
	}
	emit()
	return out
}

func splitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func splitLong(para string) []string {
	if utf8.RuneCountInString(para) <= maxChunkRunes {
		return []string{para}
	}
	var (
		out  []string
		cur  []string
		size int
	)
	for _, w := range strings.Fields(para) {
		n := utf8.RuneCountInString(w)
		if size > 0 && size+n+1 > maxChunkRunes {
			out = append(out, strings.Join(cur, " "))
			cur, size = nil, 0
		}
		if size > 0 {
			size++
		}
		cur = append(cur, w)
		size += n
	}
	if len(cur) > 0 {
		out = append(out, strings.Join(cur, " "))
	}
	return out
}
