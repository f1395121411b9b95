package mocks

import (
	"context"
	"sync"

	apperrors "github.com/gobusker/gobusker-map/errors"
	"github.com/gobusker/gobusker-map/geo"
	"github.com/gobusker/gobusker-map/places"
)

// PlacesCall is one recorded provider call.
type PlacesCall struct {
	Method      string
	Query       string
	Coordinates []geo.Coordinate
}

// Places is a scriptable stand-in for places.Client. Unset funcs return
// empty results, NotFound, or the fallback place name.
type Places struct {
	SuggestFunc        func(ctx context.Context, q places.Query) []places.PlaceFeature
	SearchTopFunc      func(ctx context.Context, q places.Query) (*places.PlaceFeature, error)
	ReverseGeocodeFunc func(ctx context.Context, c geo.Coordinate) string
	ReverseFunc        func(ctx context.Context, c geo.Coordinate) (*places.PlaceFeature, error)
	RouteFunc          func(ctx context.Context, origin, destination geo.Coordinate) (*places.Route, error)

	mu    sync.Mutex
	calls []PlacesCall
}

// NewPlaces creates an unscripted fake.
func NewPlaces() *Places {
	return &Places{}
}

// Suggest records the call and delegates to SuggestFunc. The proximity
// bias, when set, is recorded as the call's coordinate.
func (p *Places) Suggest(ctx context.Context, q places.Query) []places.PlaceFeature {
	call := PlacesCall{Method: "Suggest", Query: q.Text}
	if q.Proximity != nil {
		call.Coordinates = []geo.Coordinate{*q.Proximity}
	}
	p.record(call)
	if p.SuggestFunc == nil {
		return []places.PlaceFeature{}
	}
	return p.SuggestFunc(ctx, q)
}

// SearchTop records the call and delegates to SearchTopFunc.
func (p *Places) SearchTop(ctx context.Context, q places.Query) (*places.PlaceFeature, error) {
	p.record(PlacesCall{Method: "SearchTop", Query: q.Text})
	if p.SearchTopFunc == nil {
		return nil, apperrors.NotFound("location")
	}
	return p.SearchTopFunc(ctx, q)
}

// ReverseGeocode records the call and delegates to ReverseGeocodeFunc.
func (p *Places) ReverseGeocode(ctx context.Context, c geo.Coordinate) string {
	p.record(PlacesCall{Method: "ReverseGeocode", Coordinates: []geo.Coordinate{c}})
	if p.ReverseGeocodeFunc == nil {
		return places.FallbackPlaceName
	}
	return p.ReverseGeocodeFunc(ctx, c)
}

// Reverse records the call and delegates to ReverseFunc.
func (p *Places) Reverse(ctx context.Context, c geo.Coordinate) (*places.PlaceFeature, error) {
	p.record(PlacesCall{Method: "Reverse", Coordinates: []geo.Coordinate{c}})
	if p.ReverseFunc == nil {
		return nil, apperrors.NotFound("place")
	}
	return p.ReverseFunc(ctx, c)
}

// Route records the call and delegates to RouteFunc.
func (p *Places) Route(ctx context.Context, origin, destination geo.Coordinate) (*places.Route, error) {
	p.record(PlacesCall{Method: "Route", Coordinates: []geo.Coordinate{origin, destination}})
	if p.RouteFunc == nil {
		return nil, places.ErrRouteNotFound
	}
	return p.RouteFunc(ctx, origin, destination)
}

func (p *Places) record(c PlacesCall) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, c)
}

// Calls returns recorded calls for method.
func (p *Places) Calls(method string) []PlacesCall {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]PlacesCall, 0, len(p.calls))
	for _, c := range p.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// StraightRoute returns a two-point route between origin and destination.
func StraightRoute(origin, destination geo.Coordinate) *places.Route {
	return &places.Route{
		Geometry:       []geo.Coordinate{origin, destination},
		DistanceMeters: geo.HaversineDistanceMeters(origin, destination),
	}
}
