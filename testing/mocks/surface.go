// Package mocks provides fakes for the map's collaborators.
package mocks

import (
	"sync"
	"time"

	"github.com/gobusker/gobusker-map/viewport"
)

// SurfaceCall is one recorded call on a Surface.
type SurfaceCall struct {
	Method   string
	Viewport viewport.Viewport
	Duration time.Duration
}

// Surface records what a viewport.Controller asks the map to do.
type Surface struct {
	mu    sync.Mutex
	calls []SurfaceCall
}

// NewSurface creates a recording surface.
func NewSurface() *Surface {
	return &Surface{}
}

// Jump records an immediate move.
func (s *Surface) Jump(v viewport.Viewport) {
	s.record(SurfaceCall{Method: "Jump", Viewport: v})
}

// FlyTo records an animated move.
func (s *Surface) FlyTo(v viewport.Viewport, d time.Duration) {
	s.record(SurfaceCall{Method: "FlyTo", Viewport: v, Duration: d})
}

// Resize records a resize.
func (s *Surface) Resize() {
	s.record(SurfaceCall{Method: "Resize"})
}

func (s *Surface) record(c SurfaceCall) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, c)
}

// Calls returns recorded calls, filtered by method when one is given.
func (s *Surface) Calls(method string) []SurfaceCall {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]SurfaceCall, 0, len(s.calls))
	for _, c := range s.calls {
		if method == "" || c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Last returns the most recent call for method and whether there was one.
func (s *Surface) Last(method string) (SurfaceCall, bool) {
	calls := s.Calls(method)
	if len(calls) == 0 {
		return SurfaceCall{}, false
	}
	return calls[len(calls)-1], true
}
