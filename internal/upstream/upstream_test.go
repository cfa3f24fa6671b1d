package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/apperr"
)

func upstreamKind(t *testing.T, err error) apperr.UpstreamKind {
	t.Helper()
	var up *apperr.UpstreamError
	require.True(t, errors.As(err, &up), "expected UpstreamError, got %v", err)
	return up.Kind
}

func TestGeminiGenerate(t *testing.T) {
	var got geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/test-model:generateContent", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-goog-api-key"))
		assert.True(t, strings.HasPrefix(r.Header.Get("User-Agent"), "barcin/"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"  Yıllık izin "},{"text":"14 gündür."}]},"finishReason":"STOP"}]}`))
	}))
	defer srv.Close()

	g := NewGeminiClient(GeminiConfig{APIKey: "secret", Model: "test-model", BaseURL: srv.URL})
	text, err := g.Generate(context.Background(), "izin kaç gün?")
	require.NoError(t, err)
	assert.Equal(t, "Yıllık izin 14 gündür.", text)
	require.Len(t, got.Contents, 1)
	assert.Equal(t, "izin kaç gün?", got.Contents[0].Parts[0].Text)
}

func TestGeminiMissingKey(t *testing.T) {
	g := NewGeminiClient(GeminiConfig{})
	assert.False(t, g.Configured())

	_, err := g.Generate(context.Background(), "soru")
	assert.Equal(t, apperr.UpstreamConfig, upstreamKind(t, err))
	assert.True(t, apperr.IsKind(err, apperr.UpstreamConfig))
}

func TestGeminiCustomURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k", r.URL.Query().Get("key"))
		assert.Empty(t, r.Header.Get("x-goog-api-key"))
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
	}))
	defer srv.Close()

	g := NewGeminiClient(GeminiConfig{URL: srv.URL + "/generate?key=k"})
	assert.True(t, g.Configured())
	text, err := g.Generate(context.Background(), "soru")
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
}

func TestGeminiFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   apperr.UpstreamKind
	}{
		{"server error", http.StatusInternalServerError, `boom`, apperr.UpstreamUnavailable},
		{"bad key", http.StatusForbidden, `{}`, apperr.UpstreamConfig},
		{"no candidates", http.StatusOK, `{"candidates":[]}`, apperr.UpstreamEmpty},
		{"empty text", http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"  "}]}}]}`, apperr.UpstreamEmpty},
		{"api error", http.StatusOK, `{"error":{"code":400,"message":"bad","status":"INVALID_ARGUMENT"}}`, apperr.UpstreamUnavailable},
		{"invalid json", http.StatusOK, `not json`, apperr.UpstreamUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			g := NewGeminiClient(GeminiConfig{APIKey: "k", BaseURL: srv.URL})
			_, err := g.Generate(context.Background(), "soru")
			assert.Equal(t, tt.want, upstreamKind(t, err))
		})
	}
}

func TestGeminiTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	g := NewGeminiClient(GeminiConfig{APIKey: "k", BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	start := time.Now()
	_, err := g.Generate(context.Background(), "soru")
	assert.Equal(t, apperr.UpstreamTimeout, upstreamKind(t, err))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestSerpSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "dolar kuru", q.Get("q"))
		assert.Equal(t, "key", q.Get("api_key"))
		assert.Equal(t, "tr", q.Get("hl"))
		assert.Equal(t, "tr", q.Get("gl"))
		w.Write([]byte(`{"organic_results":[
			{"title":"A","snippet":"a","link":"https://a"},
			{"title":"B","snippet":""},
			{"title":"C","snippet":"c"},
			{"title":"D","snippet":"d"},
			{"title":"E","snippet":"e"}
		]}`))
	}))
	defer srv.Close()

	s := NewSerpClient(SerpConfig{APIKey: "key", BaseURL: srv.URL})
	results, err := s.Search(context.Background(), "dolar kuru")
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, []string{"A", "C", "D"}, []string{results[0].Title, results[1].Title, results[2].Title})
	assert.Equal(t, "https://a", results[0].Link)

	text := FormatResults(results)
	assert.Contains(t, text, "İnternetten bulunan sonuçlar:")
	assert.Contains(t, text, "**A**\na")
}

func TestSerpFailures(t *testing.T) {
	s := NewSerpClient(SerpConfig{})
	_, err := s.Search(context.Background(), "q")
	assert.Equal(t, apperr.UpstreamConfig, upstreamKind(t, err))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"organic_results":[{"title":"no snippet"}]}`))
	}))
	defer srv.Close()

	s = NewSerpClient(SerpConfig{APIKey: "k", BaseURL: srv.URL})
	_, err = s.Search(context.Background(), "q")
	assert.Equal(t, apperr.UpstreamEmpty, upstreamKind(t, err))
}

func TestRateLimiterWaitsForToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"organic_results":[{"title":"t","snippet":"s"}]}`))
	}))
	defer srv.Close()

	s := NewSerpClient(SerpConfig{APIKey: "k", BaseURL: srv.URL, RatePerSecond: 10})
	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := s.Search(context.Background(), "q")
		require.NoError(t, err)
	}
	// burst of one: the 2nd and 3rd calls wait ~100ms each
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}
