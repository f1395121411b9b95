// Package eventmap presents event markers on the map: selection, the route
// to the selected event, its countdown and travel times, the details panel
// and the search-radius overlay.
package eventmap

import (
	"context"
	"slices"
	"sync"
	"time"

	"code.cloudfoundry.org/clock"

	"github.com/gobusker/gobusker-map/config"
	apperrors "github.com/gobusker/gobusker-map/errors"
	"github.com/gobusker/gobusker-map/events"
	"github.com/gobusker/gobusker-map/geo"
	"github.com/gobusker/gobusker-map/logging"
	"github.com/gobusker/gobusker-map/places"
	"github.com/gobusker/gobusker-map/telemetry"
	"github.com/gobusker/gobusker-map/theme"
	"github.com/gobusker/gobusker-map/viewport"
)

// CountdownInterval is how often the countdown is recomputed.
const CountdownInterval = time.Second

// RoutePlanner computes routes. places.Client implements it.
type RoutePlanner interface {
	Route(ctx context.Context, origin, destination geo.Coordinate) (*places.Route, error)
}

// Viewport is the subset of viewport.Controller the presenter needs.
type Viewport interface {
	FitBounds(bb geo.BoundingBox, padding float64, maxZoom int) viewport.Viewport
}

// IntentKind names a navigation request for the host.
type IntentKind string

const (
	IntentProfile     IntentKind = "profile"
	IntentEvent       IntentKind = "event"
	IntentCreateEvent IntentKind = "create_event"
)

// Intent asks the host to navigate. The presenter never routes itself.
type Intent struct {
	Kind     IntentKind `json:"kind"`
	TargetID string     `json:"target_id,omitempty"`
}

// Callbacks connect the presenter to its host. All are optional and are
// invoked without the presenter lock held.
type Callbacks struct {
	OnMarkerClick func(events.Marker)
	OnNavigate    func(Intent)
	OnChange      func(Snapshot)
}

// Config configures a Presenter.
type Config struct {
	Styles theme.Styles
	// IndexResolution sizes the H3 cells used for the search-area lookup.
	IndexResolution geo.H3Resolution
	// FitPadding and MaxFitZoom tune route auto-fit.
	FitPadding float64
	MaxFitZoom int
}

// DefaultConfig returns the stock styles and route auto-fit policy.
func DefaultConfig() Config {
	return Config{
		Styles:          theme.DefaultStyles,
		IndexResolution: geo.H3ResolutionNeighborhood,
		FitPadding:      geo.DefaultBoundsPadding,
		MaxFitZoom:      geo.MaxFitZoom,
	}
}

// ConfigFrom returns the default presenter config with the service's map
// styles.
func ConfigFrom(cfg *config.Config) Config {
	c := DefaultConfig()
	c.Styles = theme.StylesFrom(cfg)
	return c
}

// SearchArea is the search-radius overlay.
type SearchArea struct {
	Center   geo.Coordinate   `json:"center"`
	RadiusKm float64          `json:"radius_km"`
	Ring     []geo.Coordinate `json:"ring"`
}

// Snapshot is an immutable copy of the presenter state.
type Snapshot struct {
	Markers              []events.Marker  `json:"markers"`
	Origin               *geo.Coordinate  `json:"origin,omitempty"`
	SelectedID           string           `json:"selected_id,omitempty"`
	Selected             *events.Marker   `json:"selected,omitempty"`
	Route                []geo.Coordinate `json:"route,omitempty"`
	RouteDistanceMeters  float64          `json:"route_distance_meters,omitempty"`
	RouteDurationSeconds float64          `json:"route_duration_seconds,omitempty"`
	RoutePending         bool             `json:"route_pending"`
	DetailsExpanded      bool             `json:"details_expanded"`
	Countdown            *Countdown       `json:"countdown,omitempty"`
	SlotsLeft            *int             `json:"slots_left,omitempty"`
	TravelTimes          *geo.TravelTimes `json:"travel_times,omitempty"`
	SearchArea           *SearchArea      `json:"search_area,omitempty"`
	InSearchArea         []string         `json:"in_search_area,omitempty"`
	Theme                theme.Theme      `json:"theme"`
	StyleURL             string           `json:"style_url"`
}

// Presenter is the event map state. It is safe for concurrent use.
type Presenter struct {
	config    Config
	planner   RoutePlanner
	view      Viewport
	clock     clock.Clock
	logger    *logging.Logger
	metrics   *telemetry.MapMetrics
	callbacks Callbacks

	mu              sync.Mutex
	markers         []events.Marker
	index           *events.Index
	origin          *geo.Coordinate
	originMarker    bool // origin came from a user location marker
	selectedID      string
	route           *places.Route
	routePending    bool
	routeGen        uint64
	cancelRoute     context.CancelFunc
	lastFitID       string
	detailsExpanded bool
	countdown       *Countdown
	tickerGen       uint64
	stopTicker      func()
	travelTimes     *geo.TravelTimes
	searchArea      *SearchArea
	theme           theme.Theme
	unbindTheme     func()
	closed          bool
}

// NewPresenter creates a presenter with no markers. signal may be nil, in
// which case the light theme is used until SetTheme is called.
func NewPresenter(config Config, planner RoutePlanner, view Viewport, signal *theme.Signal, clk clock.Clock, logger *logging.Logger, metrics *telemetry.MapMetrics, callbacks Callbacks) *Presenter {
	if clk == nil {
		clk = clock.NewClock()
	}
	if config.Styles == (theme.Styles{}) {
		config.Styles = theme.DefaultStyles
	}
	if config.IndexResolution == 0 {
		config.IndexResolution = geo.H3ResolutionNeighborhood
	}
	if config.FitPadding <= 0 {
		config.FitPadding = geo.DefaultBoundsPadding
	}
	if config.MaxFitZoom <= 0 {
		config.MaxFitZoom = geo.MaxFitZoom
	}

	p := &Presenter{
		config:    config,
		planner:   planner,
		view:      view,
		clock:     clk,
		logger:    logging.OrNop(logger).WithComponent("eventmap"),
		metrics:   metrics,
		callbacks: callbacks,
		index:     events.NewIndex(config.IndexResolution, nil),
		theme:     theme.Light,
	}
	if signal != nil {
		p.theme = signal.Current()
		p.unbindTheme = signal.Subscribe(p.SetTheme)
	}
	return p
}

// Snapshot returns a copy of the presenter state.
func (p *Presenter) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Presenter) snapshotLocked() Snapshot {
	snap := Snapshot{
		Markers:         slices.Clone(p.markers),
		SelectedID:      p.selectedID,
		RoutePending:    p.routePending,
		DetailsExpanded: p.detailsExpanded,
		Theme:           p.theme,
		StyleURL:        p.config.Styles.URL(p.theme),
	}
	if p.origin != nil {
		o := *p.origin
		snap.Origin = &o
	}
	if m, ok := p.selectedLocked(); ok {
		snap.Selected = &m
		if left, capped := m.SlotsLeft(); capped {
			snap.SlotsLeft = &left
		}
	}
	if p.route != nil {
		snap.Route = slices.Clone(p.route.Geometry)
		snap.RouteDistanceMeters = p.route.DistanceMeters
		snap.RouteDurationSeconds = p.route.DurationSeconds
	}
	if p.countdown != nil {
		c := *p.countdown
		snap.Countdown = &c
	}
	if p.travelTimes != nil {
		tt := *p.travelTimes
		snap.TravelTimes = &tt
	}
	if p.searchArea != nil {
		area := *p.searchArea
		area.Ring = slices.Clone(area.Ring)
		snap.SearchArea = &area
		for _, n := range p.index.Nearby(area.Center, area.RadiusKm) {
			snap.InSearchArea = append(snap.InSearchArea, n.Marker.ID)
		}
	}
	return snap
}

func (p *Presenter) selectedLocked() (events.Marker, bool) {
	if p.selectedID == "" {
		return events.Marker{}, false
	}
	return events.Find(p.markers, p.selectedID)
}

// SelectMarker selects the event marker with id. The user location marker
// cannot be selected.
func (p *Presenter) SelectMarker(id string) error {
	if id == events.UserLocationID {
		return apperrors.Validation("the user location marker cannot be selected")
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	m, ok := events.Find(p.markers, id)
	if !ok {
		p.mu.Unlock()
		return apperrors.NotFound("marker")
	}
	if id == p.selectedID {
		p.mu.Unlock()
		return nil
	}

	p.selectedID = id
	p.route = nil
	p.recomputeRouteLocked()
	p.restartCountdownLocked()
	p.recomputeTravelTimesLocked()
	p.logger.Debug("marker selected", "event_id", id)

	var click func()
	if fn := p.callbacks.OnMarkerClick; fn != nil {
		click = func() { fn(m) }
	}
	p.finish(click)
	return nil
}

// ClickBackground clears the selection.
func (p *Presenter) ClickBackground() {
	p.clearSelection()
}

// CloseDetails clears the selection from the details panel close control.
func (p *Presenter) CloseDetails() {
	p.clearSelection()
}

func (p *Presenter) clearSelection() {
	p.mu.Lock()
	if p.closed || p.selectedID == "" {
		p.mu.Unlock()
		return
	}
	p.clearSelectionLocked()
	p.finish()
}

func (p *Presenter) clearSelectionLocked() {
	p.selectedID = ""
	p.lastFitID = ""
	p.route = nil
	p.recomputeRouteLocked()
	p.restartCountdownLocked()
	p.recomputeTravelTimesLocked()
}

// SetMarkers replaces the marker list. A selection whose marker is gone is
// cleared together with its route. A user location marker in the list
// becomes the route origin; when a later list drops it, that origin is
// forgotten. An origin given to SetOrigin is kept.
func (p *Presenter) SetMarkers(markers []events.Marker) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}

	p.markers = slices.Clone(markers)
	p.index = events.NewIndex(p.config.IndexResolution, p.markers)
	if me, ok := events.Find(p.markers, events.UserLocationID); ok {
		c := me.Coordinate
		p.origin = &c
		p.originMarker = true
	} else if p.originMarker {
		p.origin = nil
		p.originMarker = false
	}

	if _, ok := p.selectedLocked(); p.selectedID != "" && !ok {
		p.logger.Info("selected event disappeared", "event_id", p.selectedID)
		p.clearSelectionLocked()
	} else {
		p.recomputeRouteLocked()
		p.restartCountdownLocked()
		p.recomputeTravelTimesLocked()
	}
	p.finish()
}

// SetOrigin sets or, with nil, clears the viewer's location.
func (p *Presenter) SetOrigin(c *geo.Coordinate) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.originMarker = false
	if c == nil {
		p.origin = nil
	} else {
		o := *c
		p.origin = &o
	}
	p.recomputeRouteLocked()
	p.recomputeTravelTimesLocked()
	p.finish()
}

// ToggleDetails flips the details panel. Selection and route are untouched.
func (p *Presenter) ToggleDetails() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.detailsExpanded = !p.detailsExpanded
	p.finish()
}

// SetDetailsExpanded sets the details panel state.
func (p *Presenter) SetDetailsExpanded(expanded bool) {
	p.mu.Lock()
	if p.closed || p.detailsExpanded == expanded {
		p.mu.Unlock()
		return
	}
	p.detailsExpanded = expanded
	p.finish()
}

// SetSearchArea shows the search-radius overlay. A nil center or a
// non-positive radius hides it.
func (p *Presenter) SetSearchArea(center *geo.Coordinate, radiusKm float64) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	if center == nil || radiusKm <= 0 {
		p.searchArea = nil
	} else if p.searchArea == nil || p.searchArea.Center != *center || p.searchArea.RadiusKm != radiusKm {
		p.searchArea = &SearchArea{
			Center:   *center,
			RadiusKm: radiusKm,
			Ring:     geo.CirclePolygon(*center, radiusKm, geo.DefaultCirclePoints),
		}
	}
	p.finish()
}

// SetTheme switches the map style.
func (p *Presenter) SetTheme(t theme.Theme) {
	p.mu.Lock()
	if p.closed || p.theme == t {
		p.mu.Unlock()
		return
	}
	p.theme = t
	p.finish()
}

// StyleURL returns the map style for the current theme.
func (p *Presenter) StyleURL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.config.Styles.URL(p.theme)
}

// OpenOrganizerProfile asks the host to show the selected event's organizer.
func (p *Presenter) OpenOrganizerProfile() error {
	p.mu.Lock()
	m, ok := p.selectedLocked()
	p.mu.Unlock()
	if !ok {
		return apperrors.NotFound("selected event")
	}
	if m.Organizer == nil || m.Organizer.ID == "" {
		return apperrors.NotFound("organizer")
	}
	p.navigate(Intent{Kind: IntentProfile, TargetID: m.Organizer.ID})
	return nil
}

// OpenEvent asks the host to show the selected event.
func (p *Presenter) OpenEvent() error {
	p.mu.Lock()
	m, ok := p.selectedLocked()
	p.mu.Unlock()
	if !ok {
		return apperrors.NotFound("selected event")
	}
	p.navigate(Intent{Kind: IntentEvent, TargetID: m.ID})
	return nil
}

// CreateEvent asks the host to open the create-event flow.
func (p *Presenter) CreateEvent() {
	p.navigate(Intent{Kind: IntentCreateEvent})
}

func (p *Presenter) navigate(in Intent) {
	if p.callbacks.OnNavigate != nil {
		p.callbacks.OnNavigate(in)
	}
}

// Close stops the countdown and ignores in-flight route results.
func (p *Presenter) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	p.routeGen++
	if p.cancelRoute != nil {
		p.cancelRoute()
		p.cancelRoute = nil
	}
	p.stopCountdownLocked()
	if p.unbindTheme != nil {
		p.unbindTheme()
		p.unbindTheme = nil
	}
}

// recomputeRouteLocked supersedes any in-flight route and, when a selection
// and an origin are known, fetches a new one.
func (p *Presenter) recomputeRouteLocked() {
	p.routeGen++
	if p.cancelRoute != nil {
		p.cancelRoute()
		p.cancelRoute = nil
	}
	p.routePending = false

	dest, ok := p.selectedLocked()
	if !ok || p.origin == nil || p.planner == nil {
		p.route = nil
		return
	}

	gen := p.routeGen
	origin := *p.origin
	ctx, cancel := context.WithCancel(context.Background())
	p.cancelRoute = cancel
	p.routePending = true

	go p.fetchRoute(ctx, cancel, gen, origin, dest)
}

func (p *Presenter) fetchRoute(ctx context.Context, cancel context.CancelFunc, gen uint64, origin geo.Coordinate, dest events.Marker) {
	defer cancel()
	route, err := p.planner.Route(ctx, origin, dest.Coordinate)

	p.mu.Lock()
	if p.closed || gen != p.routeGen {
		p.mu.Unlock()
		p.metrics.RecordStaleResult(context.Background(), "eventmap.route")
		p.logger.Debug("discarding stale route", "event_id", dest.ID)
		return
	}
	p.cancelRoute = nil
	p.routePending = false

	if err != nil || route == nil {
		p.route = nil
		p.logger.Warn("route unavailable", "event_id", dest.ID, "error", err)
		p.finish()
		return
	}

	p.route = route

	var fit func()
	if p.view != nil && p.lastFitID != dest.ID {
		p.lastFitID = dest.ID
		bb := geo.BoundingBoxOf(origin, dest.Coordinate)
		view, padding, maxZoom := p.view, p.config.FitPadding, p.config.MaxFitZoom
		fit = func() { view.FitBounds(bb, padding, maxZoom) }
	}
	p.finish(fit)
}

func (p *Presenter) recomputeTravelTimesLocked() {
	dest, ok := p.selectedLocked()
	if !ok || p.origin == nil {
		p.travelTimes = nil
		return
	}
	tt := geo.EstimateTravelTimes(*p.origin, dest.Coordinate)
	p.travelTimes = &tt
}

// restartCountdownLocked recomputes the countdown now and, while an event is
// selected, every CountdownInterval.
func (p *Presenter) restartCountdownLocked() {
	p.stopCountdownLocked()

	m, ok := p.selectedLocked()
	if !ok {
		p.countdown = nil
		return
	}
	c := ComputeCountdown(m, p.clock.Now())
	p.countdown = &c

	p.tickerGen++
	gen := p.tickerGen
	ticker := p.clock.NewTicker(CountdownInterval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C():
				p.tick(gen)
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	p.stopTicker = func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}
}

func (p *Presenter) stopCountdownLocked() {
	p.tickerGen++
	if p.stopTicker != nil {
		p.stopTicker()
		p.stopTicker = nil
	}
}

func (p *Presenter) tick(gen uint64) {
	p.mu.Lock()
	if p.closed || gen != p.tickerGen {
		p.mu.Unlock()
		return
	}
	m, ok := p.selectedLocked()
	if !ok {
		p.mu.Unlock()
		return
	}
	c := ComputeCountdown(m, p.clock.Now())
	if p.countdown != nil && *p.countdown == c {
		p.mu.Unlock()
		return
	}
	p.countdown = &c
	p.finish()
}

// finish releases the lock and then runs host callbacks, OnChange last.
func (p *Presenter) finish(callbacks ...func()) {
	snap := p.snapshotLocked()
	onChange := p.callbacks.OnChange
	p.mu.Unlock()

	for _, fn := range callbacks {
		if fn != nil {
			fn()
		}
	}
	if onChange != nil {
		onChange(snap)
	}
}
