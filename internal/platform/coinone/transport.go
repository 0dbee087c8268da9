package coinone

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/alanyoungcy/coinonebot/internal/domain"
)

const (
	// DefaultBaseURL is the Coinone REST API root.
	DefaultBaseURL = "https://api.coinone.co.kr"
	userAgent      = "coinone-skill"
)

// Observer receives per-request outcomes, typically for metrics.
type Observer interface {
	ObserveRequest(endpoint, outcome string, elapsed time.Duration)
}

// Options configures the REST clients.
type Options struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	BreakerFailures   uint32        // consecutive failures that open the breaker
	BreakerTimeout    time.Duration // how long the breaker stays open
	HTTPClient        *http.Client
	Observer          Observer
}

// transport is the shared request path for public and private clients:
// rate limit, circuit breaker, HTTP status mapping and envelope checking.
type transport struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	observer   Observer
}

func newTransport(name string, opts Options) *transport {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 10
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = 5
	}
	if opts.BreakerTimeout <= 0 {
		opts.BreakerTimeout = 30 * time.Second
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	failures := opts.BreakerFailures
	st := gobreaker.Settings{
		Name:     name,
		Interval: 60 * time.Second,
		Timeout:  opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: breakerSuccess,
	}

	return &transport{
		baseURL:    opts.BaseURL,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
		breaker:    gobreaker.NewCircuitBreaker(st),
		observer:   opts.Observer,
	}
}

// breakerSuccess counts exchange-level rejections as healthy round trips.
// Only transport failures, rate limiting and 5xx responses trip the breaker.
func breakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return true
	}
	return errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrUnauthorized) ||
		errors.Is(err, context.Canceled)
}

// do sends one request and returns the raw body. endpoint is a low
// cardinality label for the observer.
func (t *transport) do(ctx context.Context, method, path, endpoint string, body []byte, headers map[string]string) ([]byte, error) {
	start := time.Now()
	respBody, err := t.execute(ctx, method, path, body, headers)
	if t.observer != nil {
		t.observer.ObserveRequest(endpoint, outcome(err), time.Since(start))
	}
	return respBody, err
}

func (t *transport) execute(ctx context.Context, method, path string, body []byte, headers map[string]string) ([]byte, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	out, err := t.breaker.Execute(func() (interface{}, error) {
		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := t.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("http request: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		if err := checkHTTPStatus(resp.StatusCode, respBody); err != nil {
			return nil, err
		}
		if err := checkEnvelope(respBody); err != nil {
			return nil, err
		}
		return respBody, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", domain.ErrCircuitOpen, err)
		}
		return nil, err
	}
	return out.([]byte), nil
}

// checkEnvelope fails when the payload carries a result other than success.
func checkEnvelope(body []byte) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		// Non-object payloads carry no envelope.
		return nil
	}
	if env.failed() {
		return NewAPIError(env.code())
	}
	return nil
}

// checkHTTPStatus maps non-2xx status codes to appropriate domain errors.
// A JSON error envelope on a 4xx response is surfaced as an APIError.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, bodyStr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	}
	if statusCode < 500 {
		if err := checkEnvelope(body); err != nil {
			return err
		}
	}
	return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
}

func outcome(err error) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &apiErr):
		return "api_error"
	case errors.Is(err, domain.ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, domain.ErrRateLimited):
		return "rate_limited"
	default:
		return "error"
	}
}
