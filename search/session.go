// Package search coordinates a single search box: debounced autocomplete,
// explicit search, quick-city shortcuts and marker reverse geocoding.
//
// State lives in a Session guarded by one mutex. Keystrokes only schedule
// work; suggestion and search fetches run on their own goroutines and are
// committed only if they still belong to the latest request.
package search

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"code.cloudfoundry.org/clock"
	"github.com/google/uuid"

	"github.com/gobusker/gobusker-map/config"
	"github.com/gobusker/gobusker-map/debounce"
	apperrors "github.com/gobusker/gobusker-map/errors"
	"github.com/gobusker/gobusker-map/geo"
	"github.com/gobusker/gobusker-map/logging"
	"github.com/gobusker/gobusker-map/places"
	"github.com/gobusker/gobusker-map/telemetry"
	"github.com/gobusker/gobusker-map/viewport"
)

const (
	DefaultDebounceDelay  = 300 * time.Millisecond
	DefaultCooldown       = 500 * time.Millisecond
	DefaultMinQueryLength = 2

	// GenericFailureMessage is shown when a forward search cannot reach the provider.
	GenericFailureMessage = "Search failed. Please try again."
)

// DefaultQuickCities are the shortcut buttons shown under the search box.
var DefaultQuickCities = []string{"Stockholm", "Göteborg", "Malmö", "Uppsala"}

// Places is the subset of places.Client a session needs.
type Places interface {
	Suggest(ctx context.Context, q places.Query) []places.PlaceFeature
	SearchTop(ctx context.Context, q places.Query) (*places.PlaceFeature, error)
	ReverseGeocode(ctx context.Context, c geo.Coordinate) string
}

// Viewport is the subset of viewport.Controller a session needs.
type Viewport interface {
	Viewport() viewport.Viewport
	FlyTo(center geo.Coordinate, zoom float64, duration time.Duration)
}

// Source says how a location was resolved.
type Source string

const (
	SourceSearch     Source = "search"
	SourceSuggestion Source = "suggestion"
	SourceQuickCity  Source = "quick_city"
	SourceDrag       Source = "drag"
	SourceMapClick   Source = "map_click"
)

// Location is a resolved search result handed to the host.
type Location struct {
	Coordinate  geo.Coordinate `json:"coordinate"`
	DisplayName string         `json:"display_name"`
	Source      Source         `json:"source"`
}

// AlertKind classifies a user-facing alert.
type AlertKind string

const (
	AlertNotFound AlertKind = "not_found"
	AlertFailure  AlertKind = "failure"
)

// Alert is a user-facing message raised by a failed search.
type Alert struct {
	Kind    AlertKind `json:"kind"`
	Message string    `json:"message"`
}

// Callbacks connect the session to its host. All are optional and are
// invoked without the session lock held.
type Callbacks struct {
	OnLocationSelect func(Location)
	OnAlert          func(Alert)
	OnChange         func(Snapshot)
}

// Config tunes a session.
type Config struct {
	DebounceDelay  time.Duration
	Cooldown       time.Duration
	MinQueryLength int
	FlyDuration    time.Duration

	// Country restricts results to ISO 3166 alpha-2 codes, comma separated.
	Country     string
	QuickCities []string
}

// DefaultConfig returns the production timings.
func DefaultConfig() Config {
	return Config{
		DebounceDelay:  DefaultDebounceDelay,
		Cooldown:       DefaultCooldown,
		MinQueryLength: DefaultMinQueryLength,
		FlyDuration:    viewport.DefaultFlyDuration,
		QuickCities:    DefaultQuickCities,
	}
}

// ConfigFrom applies the service timings, country and quick cities to the
// production defaults.
func ConfigFrom(cfg *config.Config) Config {
	c := DefaultConfig()
	c.DebounceDelay = cfg.SuggestDebounce
	c.Cooldown = cfg.SearchCooldown
	c.Country = cfg.PlacesCountry
	if len(cfg.QuickCities) > 0 {
		c.QuickCities = slices.Clone(cfg.QuickCities)
	}
	return c.withDefaults()
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.DebounceDelay <= 0 {
		c.DebounceDelay = d.DebounceDelay
	}
	if c.Cooldown <= 0 {
		c.Cooldown = d.Cooldown
	}
	if c.MinQueryLength <= 0 {
		c.MinQueryLength = d.MinQueryLength
	}
	if c.FlyDuration < 0 {
		c.FlyDuration = d.FlyDuration
	}
	if c.QuickCities == nil {
		c.QuickCities = d.QuickCities
	}
	return c
}

// Snapshot is an immutable copy of the session state.
type Snapshot struct {
	ID          string                `json:"id"`
	State       State                 `json:"state"`
	Mode        Mode                  `json:"mode"`
	Query       string                `json:"query"`
	Suggestions []places.PlaceFeature `json:"suggestions"`
	Marker      *geo.Coordinate       `json:"marker,omitempty"`
}

// Session is one search box. It is safe for concurrent use.
type Session struct {
	id        string
	config    Config
	places    Places
	view      Viewport
	clock     clock.Clock
	logger    *logging.Logger
	metrics   *telemetry.MapMetrics
	callbacks Callbacks
	debouncer *debounce.Debouncer

	mu            sync.Mutex
	state         State
	mode          Mode
	query         string
	suggestions   []places.PlaceFeature
	marker        *geo.Coordinate
	suggestGen    uint64
	cancelSuggest context.CancelFunc
	searchGen     uint64
	cancelSearch  context.CancelFunc
	cooldownGen   uint64
	stopCooldown  func()
	closed        bool
}

// NewSession creates an idle session. A nil clk uses the real clock and nil
// metrics record nothing.
func NewSession(config Config, p Places, view Viewport, clk clock.Clock, logger *logging.Logger, metrics *telemetry.MapMetrics, callbacks Callbacks) *Session {
	if clk == nil {
		clk = clock.NewClock()
	}
	config = config.withDefaults()
	id := uuid.NewString()

	return &Session{
		id:        id,
		config:    config,
		places:    p,
		view:      view,
		clock:     clk,
		logger:    logging.OrNop(logger).WithComponent("search").With("session_id", id),
		metrics:   metrics,
		callbacks: callbacks,
		debouncer: debounce.New(clk, config.DebounceDelay),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Mode returns the current input mode.
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Query returns the current query text.
func (s *Session) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// Suggestions returns a copy of the visible suggestions.
func (s *Session) Suggestions() []places.PlaceFeature {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]places.PlaceFeature(nil), s.suggestions...)
}

// Snapshot returns a copy of the whole session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:          s.id,
		State:       s.state,
		Mode:        s.mode,
		Query:       s.query,
		Suggestions: append([]places.PlaceFeature(nil), s.suggestions...),
	}
	if s.marker != nil {
		m := *s.marker
		snap.Marker = &m
	}
	return snap
}

// Type replaces the query text with text, as after a keystroke.
func (s *Session) Type(text string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	s.query = text
	event := EventKeystroke
	if utf8.RuneCountInString(strings.TrimSpace(text)) < s.config.MinQueryLength {
		event = EventShortKeystroke
	}
	s.applyLocked(event)
	s.finish()
}

// Submit runs an explicit forward search for the current query. Empty
// queries are ignored.
func (s *Session) Submit() {
	s.mu.Lock()
	if s.closed || strings.TrimSpace(s.query) == "" {
		s.mu.Unlock()
		return
	}
	s.startSearchLocked(strings.TrimSpace(s.query), SourceSearch)
	s.finish()
}

// QuickCity searches for one of the configured shortcut cities.
func (s *Session) QuickCity(name string) error {
	found := false
	for _, c := range s.config.QuickCities {
		if strings.EqualFold(c, name) {
			name = c
			found = true
			break
		}
	}
	if !found {
		return apperrors.Validation(fmt.Sprintf("unknown quick city %q", name))
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.query = name
	s.startSearchLocked(name, SourceQuickCity)
	s.finish()
	return nil
}

// SelectSuggestion settles on the suggestion at index i.
func (s *Session) SelectSuggestion(i int) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	if s.state != StateSuggestionsVisible || i < 0 || i >= len(s.suggestions) {
		n := len(s.suggestions)
		s.mu.Unlock()
		return apperrors.Validation(fmt.Sprintf("suggestion %d out of range (%d visible)", i, n))
	}

	place := s.suggestions[i]
	s.applyLocked(EventSuggestionPicked)
	s.supersedeSearchLocked()
	loc := s.settleLocked(place.Coordinate, place.DisplayName, SourceSuggestion)
	s.finish(s.flyCallback(place), s.selectCallback(loc))
	return nil
}

// DragMarker places the marker at c and reverse geocodes it.
func (s *Session) DragMarker(c geo.Coordinate) {
	s.reverse(c, SourceDrag)
}

// ClickMap places the marker at c and reverse geocodes it.
func (s *Session) ClickMap(c geo.Coordinate) {
	s.reverse(c, SourceMapClick)
}

// DismissSuggestions closes the suggestion popover, keeping the query text.
func (s *Session) DismissSuggestions() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.applyLocked(EventDismiss)
	s.finish()
}

// Close stops all timers and ignores in-flight results.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.debouncer.Stop()
	s.cancelSuggestLocked()
	s.supersedeSearchLocked()
	if s.stopCooldown != nil {
		s.stopCooldown()
		s.stopCooldown = nil
	}
}

// applyLocked runs the transition table and performs the requested effects.
func (s *Session) applyLocked(e Event) {
	t := Next(s.state, s.mode, e)
	if t.State != s.state || t.Mode != s.mode {
		s.logger.Debug("transition",
			"event", int(e),
			"from", s.state.String(),
			"to", t.State.String(),
			"mode", t.Mode.String())
	}
	s.state = t.State
	s.mode = t.Mode

	if t.Effect.CancelFetch {
		s.debouncer.Stop()
		s.cancelSuggestLocked()
	}
	if t.Effect.ClearSuggestions {
		s.suggestions = nil
	}
	if t.Effect.ScheduleFetch {
		s.cancelSuggestLocked()
		query := strings.TrimSpace(s.query)
		s.debouncer.Trigger(func() { s.fetchSuggestions(query) })
	}
	if t.Effect.StartCooldown {
		s.startCooldownLocked()
	}
}

func (s *Session) cancelSuggestLocked() {
	s.suggestGen++
	if s.cancelSuggest != nil {
		s.cancelSuggest()
		s.cancelSuggest = nil
	}
}

func (s *Session) supersedeSearchLocked() {
	s.searchGen++
	if s.cancelSearch != nil {
		s.cancelSearch()
		s.cancelSearch = nil
	}
}

func (s *Session) startCooldownLocked() {
	if s.stopCooldown != nil {
		s.stopCooldown()
	}
	s.cooldownGen++
	gen := s.cooldownGen
	s.stopCooldown = debounce.After(s.clock, s.config.Cooldown, func() {
		s.mu.Lock()
		if s.closed || gen != s.cooldownGen {
			s.mu.Unlock()
			return
		}
		s.stopCooldown = nil
		s.applyLocked(EventCooldownElapsed)
		s.finish()
	})
}

func (s *Session) bias() *geo.Coordinate {
	if s.view == nil {
		return nil
	}
	c := s.view.Viewport().Center
	return &c
}

func (s *Session) fetchSuggestions(query string) {
	s.mu.Lock()
	if s.closed || s.state != StateTyping {
		s.mu.Unlock()
		return
	}
	s.cancelSuggestLocked()
	gen := s.suggestGen
	ctx, cancel := context.WithCancel(context.Background())
	s.cancelSuggest = cancel
	s.mu.Unlock()

	defer cancel()
	q := places.Query{Text: query, Proximity: s.bias(), Country: s.config.Country}
	results := s.places.Suggest(ctx, q)
	s.metrics.RecordSuggestFetch(ctx, len(results))

	s.mu.Lock()
	if s.closed || gen != s.suggestGen {
		s.mu.Unlock()
		s.metrics.RecordStaleResult(context.Background(), "search.suggest")
		s.logger.Debug("discarding stale suggestions", "query", query)
		return
	}
	s.cancelSuggest = nil
	if len(results) == 0 {
		s.applyLocked(EventSuggestionsEmpty)
	} else {
		s.applyLocked(EventSuggestionsFetched)
		if s.state == StateSuggestionsVisible {
			s.suggestions = results
		}
	}
	s.finish()
}

func (s *Session) startSearchLocked(query string, source Source) {
	s.applyLocked(EventSubmit)
	s.supersedeSearchLocked()
	gen := s.searchGen
	ctx, cancel := context.WithCancel(context.Background())
	s.cancelSearch = cancel

	go s.runSearch(ctx, cancel, gen, query, source)
}

func (s *Session) runSearch(ctx context.Context, cancel context.CancelFunc, gen uint64, query string, source Source) {
	defer cancel()

	q := places.Query{Text: query, Proximity: s.bias(), Country: s.config.Country}
	place, err := s.places.SearchTop(ctx, q)

	s.mu.Lock()
	if s.closed || gen != s.searchGen {
		s.mu.Unlock()
		s.metrics.RecordStaleResult(context.Background(), "search.search")
		return
	}
	s.cancelSearch = nil

	switch {
	case err == nil && place != nil:
		s.applyLocked(EventResolved)
		loc := s.settleLocked(place.Coordinate, place.DisplayName, source)
		s.logger.Info("location resolved", "query", query, "place", place.DisplayName, "source", string(source))
		s.finish(s.flyCallback(*place), s.selectCallback(loc))

	case err == nil || apperrors.IsNotFound(err):
		s.applyLocked(EventNotFound)
		alert := Alert{Kind: AlertNotFound, Message: fmt.Sprintf("No location found for %q", query)}
		s.logger.Info("no location found", "query", query)
		s.finish(s.alertCallback(alert))

	case errors.Is(err, context.Canceled):
		s.mu.Unlock()

	default:
		s.applyLocked(EventFailed)
		s.logger.WithError(err).Warn("search failed", "query", query)
		s.finish(s.alertCallback(Alert{Kind: AlertFailure, Message: GenericFailureMessage}))
	}
}

func (s *Session) reverse(c geo.Coordinate, source Source) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	// The marker moves immediately; naming it is best-effort.
	marker := c
	s.marker = &marker
	s.applyLocked(EventReverseStart)
	s.supersedeSearchLocked()
	gen := s.searchGen
	ctx, cancel := context.WithCancel(context.Background())
	s.cancelSearch = cancel
	s.finish()

	go func() {
		defer cancel()
		name := s.places.ReverseGeocode(ctx, c)
		if name == "" {
			name = places.FallbackPlaceName
		}

		s.mu.Lock()
		if s.closed || gen != s.searchGen {
			s.mu.Unlock()
			s.metrics.RecordStaleResult(context.Background(), "search.reverse")
			return
		}
		s.cancelSearch = nil
		s.applyLocked(EventResolved)
		loc := s.settleLocked(c, name, source)
		s.finish(s.selectCallback(loc))
	}()
}

// settleLocked stores a resolved location. The display name replaces the
// query; the cooldown started by the transition keeps it from refetching.
func (s *Session) settleLocked(c geo.Coordinate, name string, source Source) Location {
	marker := c
	s.marker = &marker
	s.query = name
	return Location{Coordinate: c, DisplayName: name, Source: source}
}

func (s *Session) flyCallback(place places.PlaceFeature) func() {
	if s.view == nil {
		return nil
	}
	view, duration := s.view, s.config.FlyDuration
	return func() { view.FlyTo(place.Coordinate, float64(place.Zoom()), duration) }
}

func (s *Session) selectCallback(loc Location) func() {
	if s.callbacks.OnLocationSelect == nil {
		return nil
	}
	fn := s.callbacks.OnLocationSelect
	return func() { fn(loc) }
}

func (s *Session) alertCallback(a Alert) func() {
	if s.callbacks.OnAlert == nil {
		return nil
	}
	fn := s.callbacks.OnAlert
	return func() { fn(a) }
}

// finish releases the lock and then runs host callbacks, OnChange last.
func (s *Session) finish(callbacks ...func()) {
	snap := s.snapshotLocked()
	onChange := s.callbacks.OnChange
	s.mu.Unlock()

	for _, fn := range callbacks {
		if fn != nil {
			fn()
		}
	}
	if onChange != nil {
		onChange(snap)
	}
}
