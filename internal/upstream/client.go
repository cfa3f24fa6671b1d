// Package upstream holds the HTTP clients for the generative-answer and
// web-search collaborators. Both clients are rate limited, apply an explicit
// per-call timeout and report failures as *apperr.UpstreamError.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/apperr"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/version"
)

const (
	// DefaultGenerativeTimeout bounds one generative call.
	DefaultGenerativeTimeout = 30 * time.Second
	// DefaultWebTimeout bounds one web-search call.
	DefaultWebTimeout = 10 * time.Second
	// DefaultRatePerSecond is the default request rate per client.
	DefaultRatePerSecond = 2.0

	maxBodyBytes = 4 << 20
)

// caller is the shared transport of both clients.
type caller struct {
	service    string
	httpClient *http.Client
	limiter    *rate.Limiter
	timeout    time.Duration
}

func newCaller(service string, timeout time.Duration, perSecond float64) caller {
	if timeout <= 0 {
		timeout = DefaultWebTimeout
	}
	if perSecond <= 0 {
		perSecond = DefaultRatePerSecond
	}
	return caller{
		service:    service,
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(rate.Limit(perSecond), 1),
		timeout:    timeout,
	}
}

// do waits for the limiter, sends req built by build under the call timeout
// and returns the response body of a 200 reply.
func (c caller) do(ctx context.Context, build func(ctx context.Context) (*http.Request, error)) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, c.fail(apperr.UpstreamTimeout, fmt.Errorf("rate limit wait: %w", err))
	}

	req, err := build(ctx)
	if err != nil {
		return nil, c.fail(apperr.UpstreamUnavailable, fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.fail(classify(ctx, err), fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, c.fail(classify(ctx, err), fmt.Errorf("reading response body: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, c.fail(apperr.UpstreamConfig, fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, c.fail(apperr.UpstreamUnavailable, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(body), 200)))
	}
	return body, nil
}

func (c caller) fail(kind apperr.UpstreamKind, err error) error {
	return &apperr.UpstreamError{Service: c.service, Kind: kind, Err: err}
}

func classify(ctx context.Context, err error) apperr.UpstreamKind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperr.UpstreamTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperr.UpstreamTimeout
	}
	return apperr.UpstreamUnavailable
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
