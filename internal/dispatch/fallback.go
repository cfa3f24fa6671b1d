package dispatch

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"
)

// Apology is the last stage of the fallback chain.
const Apology = "Üzgünüm, bu soruya şu anda bir cevap bulamadım. Lütfen sorunuzu farklı bir şekilde sormayı deneyin."

// BuildPrompt is the generative summary prompt.
func BuildPrompt(contextText, query string) string {
	return "Aşağıdaki bağlamı kullanarak soruya kısa ve net bir Türkçe cevap ver.\n\n" +
		"Bağlam:\n---\n" + contextText + "\n---\n\n" +
		"Soru: " + query + "\n\nCevap:"
}

// joinContext joins chunks with blank lines and keeps at most max runes.
func joinContext(chunks []string, max int) string {
	joined := strings.Join(chunks, "\n\n")
	if utf8.RuneCountInString(joined) <= max {
		return joined
	}
	return string([]rune(joined)[:max])
}

func (d *Dispatcher) summarize(ctx context.Context, req Request) (Response, error) {
	return d.Fallback(ctx, req), nil
}

// Fallback runs the chain for queries no handler answers confidently. Each
// stage that fails is logged and the next one is tried; it never fails.
func (d *Dispatcher) Fallback(ctx context.Context, req Request) Response {
	if resp, ok := d.contextAnswer(ctx, req.Query); ok {
		return resp
	}

	if d.web != nil {
		results, err := d.web.Search(ctx, req.Query)
		if err == nil && len(results) > 0 {
			return webResponse(results)
		}
		if err != nil {
			slog.Warn("failed to search the web", "error", err)
		}
	}

	return Response{Text: Apology, Type: TypeFallback}
}

func (d *Dispatcher) contextAnswer(ctx context.Context, query string) (Response, bool) {
	if d.retriever == nil || d.generator == nil {
		return Response{}, false
	}

	chunks, err := d.retriever.Search(ctx, query, d.k)
	if err != nil {
		slog.Warn("failed to retrieve context", "error", err)
		return Response{}, false
	}
	if len(chunks) == 0 {
		return Response{}, false
	}

	answer, err := d.generator.Generate(ctx, BuildPrompt(joinContext(chunks, d.contextMax), query))
	if err != nil {
		slog.Warn("failed to generate answer, falling back to web search", "error", err)
		return Response{}, false
	}
	return Response{
		Text:    answer,
		Type:    TypeContext,
		Details: map[string]any{"context_chunks": len(chunks)},
	}, true
}
