// Package health provides liveness and readiness checks for the map service.
package health

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/gobusker/gobusker-map/resilience"
)

// Status represents the health status.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

// DefaultCheckTimeout bounds a single readiness check.
const DefaultCheckTimeout = 5 * time.Second

// CheckFunc is a function that performs a health check.
type CheckFunc func(ctx context.Context) error

// Check represents a single health check.
type Check struct {
	Name     string
	CheckFn  CheckFunc
	Critical bool // failure marks the service unhealthy instead of degraded
}

// CheckResult represents the result of a health check.
type CheckResult struct {
	Name    string  `json:"name"`
	Status  Status  `json:"status"`
	Message string  `json:"message,omitempty"`
	Latency float64 `json:"latency_ms"`
}

// Report is the body of the readiness endpoint.
type Report struct {
	Status    Status        `json:"status"`
	Timestamp string        `json:"timestamp"`
	Version   string        `json:"version,omitempty"`
	Checks    []CheckResult `json:"checks,omitempty"`
}

// Checker manages health checks.
type Checker struct {
	mu      sync.RWMutex
	checks  []Check
	version string
	clock   clock.Clock
}

// NewChecker creates a new health checker.
func NewChecker(version string, clk clock.Clock) *Checker {
	if clk == nil {
		clk = clock.NewClock()
	}
	return &Checker{
		version: version,
		clock:   clk,
	}
}

// AddCheck registers a health check.
func (c *Checker) AddCheck(name string, fn CheckFunc, critical bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.checks = append(c.checks, Check{Name: name, CheckFn: fn, Critical: critical})
}

// Check runs all health checks concurrently.
func (c *Checker) Check(ctx context.Context) Report {
	c.mu.RLock()
	checks := append([]Check(nil), c.checks...)
	c.mu.RUnlock()

	results := make([]CheckResult, len(checks))

	var wg sync.WaitGroup
	for i, check := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()

			start := c.clock.Now()
			err := check.CheckFn(ctx)

			result := CheckResult{
				Name:    check.Name,
				Status:  StatusHealthy,
				Latency: float64(c.clock.Since(start).Microseconds()) / 1000,
			}
			if err != nil {
				result.Status = StatusUnhealthy
				result.Message = err.Error()
			}
			results[i] = result
		}()
	}
	wg.Wait()

	overall := StatusHealthy
	for i, r := range results {
		if r.Status == StatusHealthy {
			continue
		}
		if checks[i].Critical {
			overall = StatusUnhealthy
			break
		}
		overall = StatusDegraded
	}

	return Report{
		Status:    overall,
		Timestamp: c.clock.Now().UTC().Format(time.RFC3339),
		Version:   c.version,
		Checks:    results,
	}
}

// LivenessHandler reports that the process is serving.
func (c *Checker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
	}
}

// ReadinessHandler runs the registered checks and returns 503 when a
// critical one fails.
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), DefaultCheckTimeout)
		defer cancel()

		report := c.Check(ctx)

		status := http.StatusOK
		if report.Status == StatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, report)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PostgresCheck pings the events database.
func PostgresCheck(db Pinger, timeout time.Duration) CheckFunc {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return db.Ping(ctx)
	}
}

// RedisCheck pings the provider response cache.
func RedisCheck(client redis.UniversalClient, timeout time.Duration) CheckFunc {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return client.Ping(ctx).Err()
	}
}

// CircuitCheck fails while the breaker is open.
func CircuitCheck(cb *resilience.CircuitBreaker) CheckFunc {
	return func(ctx context.Context) error {
		if state := cb.State(); state == resilience.StateOpen {
			return fmt.Errorf("circuit %s is %s", cb.Name(), state)
		}
		return nil
	}
}
