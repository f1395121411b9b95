// Package theme holds the host's dark/light flag and maps it to a map style.
package theme

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gobusker/gobusker-map/config"
)

// Theme is the host color scheme.
type Theme string

const (
	Light Theme = "light"
	Dark  Theme = "dark"
)

// Parse converts "light" or "dark" (any case) to a Theme.
func Parse(s string) (Theme, error) {
	switch Theme(strings.ToLower(strings.TrimSpace(s))) {
	case Light:
		return Light, nil
	case Dark:
		return Dark, nil
	}
	return "", fmt.Errorf("unknown theme %q", s)
}

// Styles maps themes to map style URLs.
type Styles struct {
	Light string `json:"light"`
	Dark  string `json:"dark"`
}

// DefaultStyles are the provider's stock street styles.
var DefaultStyles = Styles{
	Light: "mapbox://styles/mapbox/streets-v12",
	Dark:  "mapbox://styles/mapbox/dark-v11",
}

// StylesFrom returns the configured map styles. Empty settings keep the
// stock style.
func StylesFrom(cfg *config.Config) Styles {
	s := DefaultStyles
	if cfg.MapStyleLight != "" {
		s.Light = cfg.MapStyleLight
	}
	if cfg.MapStyleDark != "" {
		s.Dark = cfg.MapStyleDark
	}
	return s
}

// URL returns the style for t. Unknown themes get the light style.
func (s Styles) URL(t Theme) string {
	if t == Dark {
		return s.Dark
	}
	return s.Light
}

// Signal is a published theme value. Subscribers are told about every
// change; setting the current value again notifies nobody.
type Signal struct {
	mu          sync.Mutex
	current     Theme
	subscribers map[int]func(Theme)
	nextID      int
}

// NewSignal creates a signal holding initial.
func NewSignal(initial Theme) *Signal {
	if initial != Dark {
		initial = Light
	}
	return &Signal{current: initial, subscribers: make(map[int]func(Theme))}
}

// Current returns the published theme.
func (s *Signal) Current() Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Set publishes t.
func (s *Signal) Set(t Theme) {
	s.mu.Lock()
	if t == s.current {
		s.mu.Unlock()
		return
	}
	s.current = t
	subs := make([]func(Theme), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(t)
	}
}

// Subscribe registers fn for future changes.
func (s *Signal) Subscribe(fn func(Theme)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.subscribers[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}
