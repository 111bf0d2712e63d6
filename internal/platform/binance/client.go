// Package binance implements the read-only upstream clients for the alpha
// token universe, the futures exchange information, and the spot 24h ticker.
package binance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/alanyoungcy/alphatracker/internal/domain"
)

// userAgent is sent on every upstream request.
const userAgent = "alphatracker/1.0"

// Config holds the endpoints and resilience parameters of a Client.
type Config struct {
	SpotHost    string
	FuturesHost string
	AlphaHost   string

	RetryMaxAttempts  int
	RetryBaseDelay    time.Duration
	RateLimitCooldown time.Duration
	MinRequestGap     time.Duration

	UniverseTimeout time.Duration
	ListingTimeout  time.Duration
	TickerTimeout   time.Duration
}

// Client is the REST client for the upstream exchange. All operations are
// unauthenticated GETs with bounded retries and linear backoff. The client
// also enforces a minimum gap between consecutive listing lookups, so a
// single instance should be shared per process.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger

	mu          sync.Mutex
	lastRequest time.Time
}

// NewClient creates a new upstream client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.UniverseTimeout,
		},
		logger: logger.With(slog.String("component", "binance")),
	}
}

// doGet sends a GET request with retries. The backoff between attempts grows
// linearly (attempt number times the base delay); an HTTP 429 adds a fixed
// cooldown on top. Client errors other than 408/429 fail fast.
func (c *Client) doGet(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var lastErr error
	for attempt := 1; attempt <= c.cfg.RetryMaxAttempts; attempt++ {
		body, err := c.attempt(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrContextDone, ctx.Err())
		}
		if !isRetryable(err) || attempt == c.cfg.RetryMaxAttempts {
			break
		}

		wait := time.Duration(attempt) * c.cfg.RetryBaseDelay
		if errors.Is(err, domain.ErrRateLimited) {
			wait += c.cfg.RateLimitCooldown
		}
		c.logger.Warn("upstream request failed, retrying",
			slog.String("url", url),
			slog.Int("attempt", attempt),
			slog.Duration("wait", wait),
			slog.String("error", err.Error()),
		)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", domain.ErrContextDone, ctx.Err())
		case <-time.After(wait):
		}
	}

	return nil, lastErr
}

// attempt performs a single GET request and returns the raw body.
func (c *Client) attempt(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: http request: %v", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", domain.ErrUpstream, err)
	}

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}

	return body, nil
}

// waitTurn blocks until the minimum gap since the previous listing lookup has
// elapsed. Concurrent callers are serialized through the reserved slot in
// lastRequest.
func (c *Client) waitTurn(ctx context.Context) error {
	c.mu.Lock()
	now := time.Now()
	next := c.lastRequest.Add(c.cfg.MinRequestGap)
	if next.Before(now) {
		next = now
	}
	c.lastRequest = next
	c.mu.Unlock()

	wait := time.Until(next)
	if wait <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", domain.ErrContextDone, ctx.Err())
	case <-time.After(wait):
		return nil
	}
}

// statusError carries the HTTP status of a failed upstream call. It wraps a
// domain sentinel where one applies so callers can match with errors.Is.
type statusError struct {
	status   int
	body     string
	sentinel error
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.status, e.body)
}

func (e *statusError) Unwrap() error {
	return e.sentinel
}

// checkHTTPStatus maps non-2xx status codes to typed errors.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	e := &statusError{status: statusCode, body: string(body)}
	switch statusCode {
	case http.StatusNotFound:
		e.sentinel = domain.ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		e.sentinel = domain.ErrUnauthorized
	case http.StatusTooManyRequests:
		e.sentinel = domain.ErrRateLimited
	default:
		e.sentinel = domain.ErrUpstream
	}
	return e
}

// isRetryable reports whether an attempt error is worth retrying: transport
// failures and the transient status codes 408, 429 and 5xx. Other client
// errors (400, 401, 403, 404) fail fast.
func isRetryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		switch se.status {
		case http.StatusRequestTimeout,
			http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		default:
			return false
		}
	}
	// No status means the request never completed (transport failure).
	return errors.Is(err, domain.ErrUpstream)
}

// httpStatus extracts the HTTP status from an attempt error, or 0 when the
// request never completed.
func httpStatus(err error) int {
	var se *statusError
	if errors.As(err, &se) {
		return se.status
	}
	return 0
}
