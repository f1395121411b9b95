// Package debounce provides clock-driven trailing-edge debouncing and
// cancellable one-shot timers.
package debounce

import (
	"sync"
	"time"

	"code.cloudfoundry.org/clock"
)

// After runs fn on its own goroutine once d has elapsed on clk. Calling the
// returned stop func before then prevents fn from running.
func After(clk clock.Clock, d time.Duration, fn func()) (stop func()) {
	timer := clk.NewTimer(d)
	done := make(chan struct{})
	var once sync.Once

	go func() {
		select {
		case <-timer.C():
			fn()
		case <-done:
		}
	}()

	return func() {
		once.Do(func() {
			timer.Stop()
			close(done)
		})
	}
}

// Debouncer delays a call until Trigger has not been called for the
// configured delay. Only the most recent trigger fires.
type Debouncer struct {
	clock clock.Clock
	delay time.Duration

	mu   sync.Mutex
	gen  uint64
	stop func()
}

// New creates a Debouncer. A nil clk uses the real clock.
func New(clk clock.Clock, delay time.Duration) *Debouncer {
	if clk == nil {
		clk = clock.NewClock()
	}
	return &Debouncer{clock: clk, delay: delay}
}

// Delay returns the debounce interval.
func (d *Debouncer) Delay() time.Duration {
	return d.delay
}

// Trigger (re)starts the delay. fn runs after the delay unless Trigger or
// Stop is called again first.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stop != nil {
		d.stop()
	}
	d.gen++
	gen := d.gen

	d.stop = After(d.clock, d.delay, func() {
		d.mu.Lock()
		if d.gen != gen {
			d.mu.Unlock()
			return
		}
		d.stop = nil
		d.mu.Unlock()

		fn()
	})
}

// Pending reports whether a call is waiting to fire.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stop != nil
}

// Stop cancels a pending call. It returns true if one was cancelled.
func (d *Debouncer) Stop() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	if d.stop == nil {
		return false
	}
	d.stop()
	d.stop = nil
	return true
}
