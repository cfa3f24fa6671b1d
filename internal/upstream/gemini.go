package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/apperr"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel   = "gemini-1.5-flash-latest"
)

// GeminiConfig configures a GeminiClient.
type GeminiConfig struct {
	APIKey string
	Model  string
	// BaseURL is the API root. URL, when set, replaces the whole endpoint.
	BaseURL       string
	URL           string
	Timeout       time.Duration
	RatePerSecond float64
}

// GeminiClient calls the Gemini generateContent API.
// It is safe for concurrent use.
type GeminiClient struct {
	caller
	apiKey   string
	endpoint string
	// custom endpoints may carry the key in their query string
	custom bool
}

// NewGeminiClient creates a client. A client without key or URL still
// constructs; Generate then fails with a config error.
func NewGeminiClient(cfg GeminiConfig) *GeminiClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultGenerativeTimeout
	}
	endpoint := cfg.URL
	if endpoint == "" {
		if cfg.BaseURL == "" {
			cfg.BaseURL = defaultGeminiBaseURL
		}
		if cfg.Model == "" {
			cfg.Model = defaultGeminiModel
		}
		endpoint = fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(cfg.BaseURL, "/"), cfg.Model)
	}
	return &GeminiClient{
		caller:   newCaller("gemini", cfg.Timeout, cfg.RatePerSecond),
		apiKey:   cfg.APIKey,
		endpoint: endpoint,
		custom:   cfg.URL != "",
	}
}

// Configured reports whether Generate can be attempted.
func (g *GeminiClient) Configured() bool {
	return g.apiKey != "" || g.custom
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// Generate sends prompt as a single user turn and returns the first
// candidate's text.
func (g *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	if !g.Configured() {
		return "", g.fail(apperr.UpstreamConfig, fmt.Errorf("GEMINI_API_KEY is not set"))
	}

	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("gemini: marshaling request: %w", err)
	}

	raw, err := g.do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if g.apiKey != "" {
			req.Header.Set("x-goog-api-key", g.apiKey)
		}
		return req, nil
	})
	if err != nil {
		return "", err
	}

	var resp geminiResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", g.fail(apperr.UpstreamUnavailable, fmt.Errorf("parsing response JSON: %w", err))
	}
	if resp.Error != nil {
		return "", g.fail(apperr.UpstreamUnavailable, fmt.Errorf("api error [%d] %s: %s", resp.Error.Code, resp.Error.Status, resp.Error.Message))
	}
	if len(resp.Candidates) == 0 {
		return "", g.fail(apperr.UpstreamEmpty, fmt.Errorf("no candidates"))
	}

	var parts []string
	for _, p := range resp.Candidates[0].Content.Parts {
		if p.Text != "" {
			parts = append(parts, p.Text)
		}
	}
	text := strings.TrimSpace(strings.Join(parts, ""))
	if text == "" {
		return "", g.fail(apperr.UpstreamEmpty, fmt.Errorf("empty text content"))
	}

	slog.Debug("gemini response", "len", len(text), "finish_reason", resp.Candidates[0].FinishReason)
	return text, nil
}
