package events

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/gobusker/gobusker-map/geo"
)

// DefaultListLimit caps List results when no limit is given.
const DefaultListLimit = 500

// ListOptions filters a listing.
type ListOptions struct {
	// From drops events that started before it. Zero keeps everything.
	From time.Time
	// Bounds restricts markers to a box.
	Bounds *geo.BoundingBox
	// Limit caps the result size.
	Limit int
}

func (o ListOptions) limit() int {
	if o.Limit <= 0 {
		return DefaultListLimit
	}
	return o.Limit
}

// Source supplies event markers. Sources are read-only.
type Source interface {
	List(ctx context.Context, opts ListOptions) ([]Marker, error)
}

// MemorySource holds markers pushed by the host.
type MemorySource struct {
	mu      sync.RWMutex
	markers []Marker
}

// NewMemorySource creates a source holding markers.
func NewMemorySource(markers ...Marker) *MemorySource {
	s := &MemorySource{}
	s.Replace(markers)
	return s
}

// Replace swaps the whole marker list.
func (s *MemorySource) Replace(markers []Marker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markers = slices.Clone(markers)
}

// List returns matching markers ordered by start time. Markers with an
// unparsable start time are kept and sorted last.
func (s *MemorySource) List(ctx context.Context, opts ListOptions) ([]Marker, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Marker, 0, len(s.markers))
	for _, m := range s.markers {
		if m.IsUserLocation() {
			continue
		}
		if opts.Bounds != nil && !opts.Bounds.Contains(m.Coordinate) {
			continue
		}
		if !opts.From.IsZero() {
			if start, err := m.Start(); err == nil && start.Before(opts.From) {
				continue
			}
		}
		out = append(out, m)
	}

	slices.SortStableFunc(out, compareStart)
	if len(out) > opts.limit() {
		out = out[:opts.limit()]
	}
	return out, nil
}

func compareStart(a, b Marker) int {
	ta, errA := a.Start()
	tb, errB := b.Start()
	switch {
	case errA != nil && errB != nil:
		return 0
	case errA != nil:
		return 1
	case errB != nil:
		return -1
	}
	return ta.Compare(tb)
}
