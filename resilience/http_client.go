package resilience

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"code.cloudfoundry.org/clock"
)

// StatusError is returned for provider responses with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the status is worth retrying.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// ResilientHTTPClient wraps an HTTP client with circuit breaker protection
// and linear-backoff retries.
type ResilientHTTPClient struct {
	client         *http.Client
	circuitBreaker *CircuitBreaker
	clock          clock.Clock
	retries        int
	retryDelay     time.Duration
}

// ResilientHTTPClientConfig configures a resilient HTTP client.
type ResilientHTTPClientConfig struct {
	// Name for the circuit breaker.
	Name string

	// Timeout for each HTTP attempt. Zero disables the per-attempt timeout.
	Timeout time.Duration

	// Retries is the number of retry attempts after the first.
	Retries int

	// RetryDelay is multiplied by the attempt number between retries.
	RetryDelay time.Duration

	// Clock drives retry backoff and the breaker. Defaults to the real clock.
	Clock clock.Clock

	// Transport overrides the HTTP transport (optional).
	Transport http.RoundTripper

	// CircuitBreaker config (optional, uses defaults if nil).
	CircuitBreakerConfig *CircuitBreakerConfig
}

// DefaultResilientHTTPClientConfig returns sensible defaults.
func DefaultResilientHTTPClientConfig(name string) ResilientHTTPClientConfig {
	return ResilientHTTPClientConfig{
		Name:       name,
		Timeout:    10 * time.Second,
		Retries:    2,
		RetryDelay: 100 * time.Millisecond,
	}
}

// NewResilientHTTPClient creates a new resilient HTTP client.
func NewResilientHTTPClient(config ResilientHTTPClientConfig) *ResilientHTTPClient {
	if config.Clock == nil {
		config.Clock = clock.NewClock()
	}

	var cbConfig CircuitBreakerConfig
	if config.CircuitBreakerConfig != nil {
		cbConfig = *config.CircuitBreakerConfig
	} else {
		cbConfig = DefaultCircuitBreakerConfig(config.Name)
	}
	if cbConfig.Clock == nil {
		cbConfig.Clock = config.Clock
	}

	return &ResilientHTTPClient{
		client: &http.Client{
			Timeout:   config.Timeout,
			Transport: config.Transport,
		},
		circuitBreaker: NewCircuitBreaker(cbConfig),
		clock:          config.Clock,
		retries:        config.Retries,
		retryDelay:     config.RetryDelay,
	}
}

// Do executes an HTTP request with circuit breaker and retry protection. Any
// non-2xx response is returned as a *StatusError; 4xx other than 429 is not
// retried.
func (c *ResilientHTTPClient) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	var lastErr error

	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, c.retryDelay*time.Duration(attempt)); err != nil {
				return nil, err
			}
		}

		var resp *http.Response
		var clientErr *StatusError
		err := c.circuitBreaker.Execute(ctx, func(ctx context.Context) error {
			r, err := c.client.Do(req.Clone(ctx))
			if err != nil {
				return err
			}

			if r.StatusCode < 200 || r.StatusCode >= 300 {
				body, _ := io.ReadAll(io.LimitReader(r.Body, 512))
				r.Body.Close()
				statusErr := &StatusError{StatusCode: r.StatusCode, Body: string(body)}
				if !statusErr.Retryable() {
					// The provider is healthy; the request was bad.
					clientErr = statusErr
					return nil
				}
				return statusErr
			}

			resp = r
			return nil
		})

		if err == nil {
			if clientErr != nil {
				return nil, clientErr
			}
			return resp, nil
		}

		lastErr = err

		if errors.Is(err, ErrCircuitOpen) {
			return nil, err
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w: %w", ErrTooManyRetries, lastErr)
}

func (c *ResilientHTTPClient) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := c.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C():
		return nil
	}
}

// Get performs an HTTP GET request.
func (c *ResilientHTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// CircuitBreaker returns the underlying circuit breaker.
func (c *ResilientHTTPClient) CircuitBreaker() *CircuitBreaker {
	return c.circuitBreaker
}

// Metrics returns circuit breaker metrics.
func (c *ResilientHTTPClient) Metrics() CircuitBreakerMetrics {
	return c.circuitBreaker.Metrics()
}
