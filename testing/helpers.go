package testing

import (
	"context"
	"testing"
	"time"
)

// TestContext returns a context cancelled after 30 seconds or when the test ends.
func TestContext(t *testing.T) context.Context {
	return TestContextWithTimeout(t, 30*time.Second)
}

// TestContextWithTimeout returns a context cancelled after timeout or when the test ends.
func TestContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}
