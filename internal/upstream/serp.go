package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/apperr"
)

const (
	defaultSerpURL = "https://serpapi.com/search"
	// DefaultWebResults is how many snippets a search returns.
	DefaultWebResults = 3
)

// WebResult is one organic search hit.
type WebResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link,omitempty"`
}

// SerpConfig configures a SerpClient.
type SerpConfig struct {
	APIKey        string
	BaseURL       string
	Timeout       time.Duration
	RatePerSecond float64
	MaxResults    int
}

// SerpClient queries SerpAPI with Turkish locale parameters.
type SerpClient struct {
	caller
	apiKey     string
	baseURL    string
	maxResults int
}

// NewSerpClient creates a client.
func NewSerpClient(cfg SerpConfig) *SerpClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultWebTimeout
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultSerpURL
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultWebResults
	}
	return &SerpClient{
		caller:     newCaller("serpapi", cfg.Timeout, cfg.RatePerSecond),
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		maxResults: cfg.MaxResults,
	}
}

// Configured reports whether Search can be attempted.
func (s *SerpClient) Configured() bool {
	return s.apiKey != ""
}

type serpResponse struct {
	OrganicResults []WebResult `json:"organic_results"`
	Error          string      `json:"error,omitempty"`
}

// Search returns up to MaxResults hits that carry a snippet.
func (s *SerpClient) Search(ctx context.Context, query string) ([]WebResult, error) {
	if !s.Configured() {
		return nil, s.fail(apperr.UpstreamConfig, fmt.Errorf("SERPAPI_KEY is not set"))
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("api_key", s.apiKey)
	params.Set("hl", "tr")
	params.Set("gl", "tr")
	endpoint := s.baseURL + "?" + params.Encode()

	raw, err := s.do(ctx, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	})
	if err != nil {
		return nil, err
	}

	var resp serpResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, s.fail(apperr.UpstreamUnavailable, fmt.Errorf("parsing response JSON: %w", err))
	}
	if resp.Error != "" {
		return nil, s.fail(apperr.UpstreamUnavailable, fmt.Errorf("api error: %s", resp.Error))
	}

	out := make([]WebResult, 0, s.maxResults)
	for _, r := range resp.OrganicResults {
		if strings.TrimSpace(r.Snippet) == "" {
			continue
		}
		out = append(out, r)
		if len(out) == s.maxResults {
			break
		}
	}
	if len(out) == 0 {
		return nil, s.fail(apperr.UpstreamEmpty, fmt.Errorf("no results for %q", query))
	}
	return out, nil
}

// FormatResults renders hits as bold titles followed by snippets.
func FormatResults(results []WebResult) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, fmt.Sprintf("**%s**\n%s", r.Title, r.Snippet))
	}
	return "İnternetten bulunan sonuçlar:\n\n" + strings.Join(parts, "\n\n")
}
