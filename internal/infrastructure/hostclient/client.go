// Package hostclient reads document fields from the host ERP REST API.
// Calls are rate limited, retried with backoff on transient failures and
// guarded by a circuit breaker.
package hostclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/erp/pdfonsubmit/internal/domain/shared"
	"github.com/erp/pdfonsubmit/internal/infrastructure/config"
)

// maxResponseBytes caps the body read from the host.
const maxResponseBytes = 1 << 20

// ErrUnavailable is returned while the circuit breaker is open.
var ErrUnavailable = errors.New("host api unavailable")

// ErrInvalidResponse is returned when the host answers 2xx with a body that is
// not a resource document. Retrying would get the same body back.
var ErrInvalidResponse = errors.New("invalid host response")

// Options tunes a Client. Zero values fall back to defaults.
type Options struct {
	BaseURL    string
	APIKey     string
	APISecret  string
	Timeout    time.Duration // per request attempt
	RateLimit  float64       // requests per second, 0 disables limiting
	RateBurst  int
	MaxRetries int

	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
	BreakerFailures uint32        // consecutive failures that open the breaker
	BreakerTimeout  time.Duration // time the breaker stays open
	LookupTimeout   time.Duration // bound on one GetValue, retries included
}

// OptionsFromConfig maps the host config section onto Options.
func OptionsFromConfig(cfg config.HostConfig) Options {
	return Options{
		BaseURL:         cfg.BaseURL,
		APIKey:          cfg.APIKey,
		APISecret:       cfg.APISecret,
		Timeout:         cfg.Timeout,
		LookupTimeout:   cfg.LookupTimeout,
		RateLimit:       cfg.RateLimit,
		RateBurst:       cfg.RateBurst,
		MaxRetries:      cfg.MaxRetries,
		BreakerFailures: cfg.BreakerFailures,
		BreakerTimeout:  cfg.BreakerTimeout,
	}
}

func (o Options) normalize() Options {
	out := o
	out.BaseURL = strings.TrimRight(out.BaseURL, "/")
	if out.Timeout <= 0 {
		out.Timeout = 2 * time.Second
	}
	if out.LookupTimeout <= 0 {
		out.LookupTimeout = 3 * time.Second
	}
	if out.RateBurst <= 0 {
		out.RateBurst = 5
	}
	if out.MaxRetries <= 0 {
		out.MaxRetries = 3
	}
	if out.InitialBackoff <= 0 {
		out.InitialBackoff = 100 * time.Millisecond
	}
	if out.MaxBackoff < out.InitialBackoff {
		out.MaxBackoff = 2 * time.Second
		if out.MaxBackoff < out.InitialBackoff {
			out.MaxBackoff = out.InitialBackoff
		}
	}
	if out.BreakerFailures == 0 {
		out.BreakerFailures = 5
	}
	if out.BreakerTimeout <= 0 {
		out.BreakerTimeout = 30 * time.Second
	}
	return out
}

// Client is a host document client.
type Client struct {
	opts    Options
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[string]
	logger  *zap.Logger
}

// New creates a Client. httpClient may be nil.
func New(opts Options, httpClient *http.Client, logger *zap.Logger) (*Client, error) {
	opts = opts.normalize()
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("host base url is required")
	}
	if _, err := url.ParseRequestURI(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid host base url: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}

	c := &Client{
		opts:    opts,
		http:    httpClient,
		limiter: rate.NewLimiter(limit, opts.RateBurst),
		logger:  logger.Named("hostclient"),
	}
	c.breaker = gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:    "host_api",
		Timeout: opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.BreakerFailures
		},
		IsSuccessful: func(err error) bool {
			// a missing document is an answer, not a host failure
			return err == nil || errors.Is(err, shared.ErrNotFound) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return c, nil
}

// GetValue returns one field of a host document. A missing document or field
// yields shared.ErrNotFound. The lookup gives up after LookupTimeout.
func (c *Client) GetValue(ctx context.Context, docType, name, field string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.LookupTimeout)
	defer cancel()

	value, err := c.breaker.Execute(func() (string, error) {
		return c.getWithRetry(ctx, docType, name, field)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return value, err
}

func (c *Client) getWithRetry(ctx context.Context, docType, name, field string) (string, error) {
	backoff := c.opts.InitialBackoff
	var lastErr error

	for attempt := 1; attempt <= c.opts.MaxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}

		value, err := c.get(ctx, docType, name, field)
		if err == nil {
			return value, nil
		}
		lastErr = err
		if !isRetryable(err) || attempt == c.opts.MaxRetries || ctx.Err() != nil {
			break
		}

		c.logger.Warn("host request failed, retrying",
			zap.String("doctype", docType),
			zap.String("name", name),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err))

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", lastErr
		case <-timer.C:
		}
		backoff *= 2
		if backoff > c.opts.MaxBackoff {
			backoff = c.opts.MaxBackoff
		}
	}
	return "", lastErr
}

// statusError is a non-2xx answer from the host.
type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("host api returned %d: %s", e.Code, e.Body)
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, shared.ErrNotFound) || errors.Is(err, ErrInvalidResponse) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	// transport errors and timeouts
	return true
}

type resourceResponse struct {
	Data map[string]any `json:"data"`
}

func (c *Client) get(ctx context.Context, docType, name, field string) (string, error) {
	endpoint := fmt.Sprintf("%s/api/resource/%s/%s", c.opts.BaseURL, url.PathEscape(docType), url.PathEscape(name))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")
	if c.opts.APIKey != "" {
		req.Header.Set("Authorization", "token "+c.opts.APIKey+":"+c.opts.APISecret)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", err
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("%s %s: %w", docType, name, shared.ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return "", &statusError{Code: resp.StatusCode, Body: truncate(string(body), 200)}
	}

	var parsed resourceResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: %s %s: %v", ErrInvalidResponse, docType, name, err)
	}
	raw, ok := parsed.Data[field]
	if !ok || raw == nil {
		return "", fmt.Errorf("%s %s field %s: %w", docType, name, field, shared.ErrNotFound)
	}
	switch v := raw.(type) {
	case string:
		return v, nil
	default:
		return fmt.Sprint(v), nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
