// Package api exposes the map BFF: provider lookups proxied with the
// server-side token, geometry helpers and nearby events.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	apperrors "github.com/gobusker/gobusker-map/errors"
	"github.com/gobusker/gobusker-map/events"
	"github.com/gobusker/gobusker-map/geo"
	httpx "github.com/gobusker/gobusker-map/http"
	"github.com/gobusker/gobusker-map/logging"
	"github.com/gobusker/gobusker-map/places"
	"github.com/gobusker/gobusker-map/search"
	"github.com/gobusker/gobusker-map/telemetry"
	"github.com/gobusker/gobusker-map/theme"
	"github.com/gobusker/gobusker-map/validation"
)

// Places is the provider surface the BFF proxies.
type Places interface {
	Suggest(ctx context.Context, q places.Query) []places.PlaceFeature
	SearchTop(ctx context.Context, q places.Query) (*places.PlaceFeature, error)
	Reverse(ctx context.Context, c geo.Coordinate) (*places.PlaceFeature, error)
	Route(ctx context.Context, origin, destination geo.Coordinate) (*places.Route, error)
}

// Handler serves the /v1 endpoints.
type Handler struct {
	places   Places
	events   events.Source
	logger   *logging.Logger
	insights *logging.Insights
	settings ClientSettings
}

// NewHandler creates a handler serving the default client settings.
// insights may be nil.
func NewHandler(p Places, source events.Source, logger *logging.Logger, insights *logging.Insights) *Handler {
	return &Handler{
		places:   p,
		events:   source,
		logger:   logging.OrNop(logger).WithComponent("api"),
		insights: insights,
		settings: NewClientSettings(search.DefaultConfig(), theme.DefaultStyles),
	}
}

// WithSettings replaces the settings served on /v1/config.
func (h *Handler) WithSettings(s ClientSettings) *Handler {
	h.settings = s
	return h
}

// ClientSettings is what the browser map needs to behave like the server:
// styles per theme, search timings and the quick-city shortcuts.
type ClientSettings struct {
	Styles            theme.Styles `json:"styles"`
	SuggestDebounceMs int64        `json:"suggest_debounce_ms"`
	SearchCooldownMs  int64        `json:"search_cooldown_ms"`
	MinQueryLength    int          `json:"min_query_length"`
	Country           string       `json:"country,omitempty"`
	QuickCities       []string     `json:"quick_cities"`
}

// NewClientSettings derives the client settings from a search config and
// the map styles.
func NewClientSettings(sc search.Config, styles theme.Styles) ClientSettings {
	return ClientSettings{
		Styles:            styles,
		SuggestDebounceMs: sc.DebounceDelay.Milliseconds(),
		SearchCooldownMs:  sc.Cooldown.Milliseconds(),
		MinQueryLength:    sc.MinQueryLength,
		Country:           sc.Country,
		QuickCities:       sc.QuickCities,
	}
}

// SearchResult is a resolved search with its fly-to zoom.
type SearchResult struct {
	Place places.PlaceFeature `json:"place"`
	Zoom  int                 `json:"zoom"`
}

// ReverseResult names a dropped marker.
type ReverseResult struct {
	Coordinate  geo.Coordinate `json:"coordinate"`
	DisplayName string         `json:"display_name"`
	Fallback    bool           `json:"fallback"`
}

// ZoomResult is the fly-to zoom for a place.
type ZoomResult struct {
	Zoom int `json:"zoom"`
}

// NearbyEvent is an event inside the search circle.
type NearbyEvent struct {
	events.Marker
	DistanceKm float64 `json:"distance_km"`
	// BearingDeg is the compass direction from the search center, 0 being north.
	BearingDeg  float64         `json:"bearing_deg"`
	SlotsLeft   *int            `json:"slots_left,omitempty"`
	TravelTimes geo.TravelTimes `json:"travel_times"`
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if apperrors.HTTPStatus(err) >= http.StatusInternalServerError {
		h.logger.Error("request failed", "path", r.URL.Path, "error", err)
		h.insights.TrackException(err)
	}
	apperrors.WriteError(w, err, telemetry.TraceID(r.Context()))
}

// Suggest handles GET /v1/places/suggest.
func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r.URL.Query())
	p := suggestParams{
		Text:      q.str("q"),
		Proximity: q.coordinate("lat", "lng", false),
		Country:   q.str("country"),
		Limit:     q.int("limit"),
	}
	if err := q.validate(&p); err != nil {
		h.fail(w, r, err)
		return
	}

	results := h.places.Suggest(r.Context(), places.Query{
		Text:      p.Text,
		Proximity: p.Proximity,
		Country:   p.Country,
		Limit:     p.Limit,
	})
	httpx.List(w, results)
}

// Search handles GET /v1/places/search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r.URL.Query())
	p := searchParams{
		Text:      q.str("q"),
		Proximity: q.coordinate("lat", "lng", false),
		Country:   q.str("country"),
	}
	if err := q.validate(&p); err != nil {
		h.fail(w, r, err)
		return
	}

	place, err := h.places.SearchTop(r.Context(), places.Query{
		Text:      p.Text,
		Proximity: p.Proximity,
		Country:   p.Country,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.insights.TrackEvent("location_searched", map[string]string{"place_type": string(place.PlaceType)})
	httpx.OK(w, SearchResult{Place: *place, Zoom: place.Zoom()})
}

// Reverse handles GET /v1/places/reverse. Provider failures still answer
// with the fallback name so a dropped marker is always labelled.
func (h *Handler) Reverse(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r.URL.Query())
	var p pointParams
	if c := q.coordinate("lat", "lng", true); c != nil {
		p.At = *c
	}
	if err := q.validate(&p); err != nil {
		h.fail(w, r, err)
		return
	}

	result := ReverseResult{Coordinate: p.At, DisplayName: places.FallbackPlaceName, Fallback: true}
	place, err := h.places.Reverse(r.Context(), p.At)
	switch {
	case err == nil && place != nil && place.DisplayName != "":
		result.DisplayName = place.DisplayName
		result.Fallback = false
	case err != nil && !apperrors.IsNotFound(err):
		h.logger.Warn("reverse geocode failed", "lat", p.At.Lat, "lng", p.At.Lng, "error", err)
	}
	httpx.OK(w, result)
}

// Route handles POST /v1/routes.
func (h *Handler) Route(w http.ResponseWriter, r *http.Request) {
	var req routeRequest
	if !validation.DecodeAndValidate(w, r, &req) {
		return
	}

	route, err := h.places.Route(r.Context(), req.Origin, req.Destination)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.insights.TrackEvent("route_computed", nil)

	if req.Format == "geojson" {
		line := make(orb.LineString, len(route.Geometry))
		for i, c := range route.Geometry {
			line[i] = orb.Point{c.Lng, c.Lat}
		}
		f := geojson.NewFeature(line)
		f.Properties["distance_meters"] = route.DistanceMeters
		f.Properties["duration_seconds"] = route.DurationSeconds
		httpx.GeoJSON(w, f)
		return
	}
	httpx.OK(w, route)
}

// Circle handles GET /v1/geo/circle.
func (h *Handler) Circle(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r.URL.Query())
	p := circleParams{
		RadiusKm: derefOr(q.float("radius_km"), 0),
		Points:   q.int("points"),
	}
	if c := q.coordinate("lat", "lng", true); c != nil {
		p.Center = *c
	}
	if err := q.validate(&p); err != nil {
		h.fail(w, r, err)
		return
	}

	poly := geo.NewPolygon(geo.CirclePolygon(p.Center, p.RadiusKm, p.Points))
	httpx.GeoJSON(w, poly.Feature(map[string]interface{}{
		"radius_km": p.RadiusKm,
		"center":    p.Center.LngLat(),
	}))
}

// Zoom handles GET /v1/geo/zoom.
func (h *Handler) Zoom(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r.URL.Query())
	p := zoomParams{
		PlaceType: q.str("place_type"),
		BBox:      q.bbox("bbox"),
	}
	if err := q.validate(&p); err != nil {
		h.fail(w, r, err)
		return
	}

	switch {
	case p.PlaceType != "":
		httpx.OK(w, ZoomResult{Zoom: geo.ZoomForPlaceType(geo.PlaceType(p.PlaceType), p.BBox)})
	case p.BBox != nil:
		httpx.OK(w, ZoomResult{Zoom: geo.ZoomForBounds(*p.BBox, geo.DefaultBoundsPadding, geo.MaxFitZoom)})
	default:
		h.fail(w, r, apperrors.ValidationWithDetails("invalid query parameters",
			map[string]string{"place_type": "place_type or bbox is required"}))
	}
}

// Settings handles GET /v1/config.
func (h *Handler) Settings(w http.ResponseWriter, r *http.Request) {
	httpx.OK(w, h.settings)
}

// Nearby handles GET /v1/events/nearby: events inside the search circle,
// nearest first, with straight-line travel estimates from the center.
func (h *Handler) Nearby(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r.URL.Query())
	p := nearbyParams{
		RadiusKm: derefOr(q.float("radius_km"), 0),
		From:     q.time("from"),
		Limit:    q.int("limit"),
	}
	if c := q.coordinate("lat", "lng", true); c != nil {
		p.Center = *c
	}
	if err := q.validate(&p); err != nil {
		h.fail(w, r, err)
		return
	}

	// The sampled circle sits slightly inside the haversine radius; the
	// padding keeps edge events in the prefilter. The index does the exact cut.
	bounds := geo.SearchCircle(p.Center, p.RadiusKm).BoundingBox().Pad(0.01)
	markers, err := h.events.List(r.Context(), events.ListOptions{From: p.From, Bounds: &bounds})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		h.fail(w, r, apperrors.Wrap(err, apperrors.CodeUnavailable, "events unavailable"))
		return
	}

	index := events.NewIndex(geo.H3ResolutionForRadius(p.RadiusKm), markers)
	found := index.Nearby(p.Center, p.RadiusKm)
	if p.Limit > 0 && len(found) > p.Limit {
		found = found[:p.Limit]
	}

	out := make([]NearbyEvent, len(found))
	for i, n := range found {
		out[i] = NearbyEvent{
			Marker:      n.Marker,
			DistanceKm:  n.DistanceKm,
			BearingDeg:  geo.Bearing(p.Center, n.Marker.Coordinate),
			TravelTimes: geo.EstimateTravelTimes(p.Center, n.Marker.Coordinate),
		}
		if left, ok := n.Marker.SlotsLeft(); ok {
			out[i].SlotsLeft = &left
		}
	}
	httpx.List(w, out)
}

func derefOr(f *float64, fallback float64) float64 {
	if f == nil {
		return fallback
	}
	return *f
}
