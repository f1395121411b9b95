package places

import (
	"context"
	"errors"
	"net/url"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/gobusker/gobusker-map/geo"
)

type directionsResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Geometry *geojson.Geometry `json:"geometry"`
		Distance float64           `json:"distance"`
		Duration float64           `json:"duration"`
	} `json:"routes"`
}

// Route fetches a route from origin to destination. Every failure,
// including transport errors and malformed geometry, is logged and reported
// as ErrRouteNotFound.
func (c *Client) Route(ctx context.Context, origin, destination geo.Coordinate) (*Route, error) {
	ctx, span := c.tracer.StartSpan(ctx, "places.Route")
	defer span.End()

	route, err := c.route(ctx, origin, destination)
	c.metrics.RecordRoute(ctx, err == nil)
	if err != nil {
		span.RecordError(err)
		if !errors.Is(err, context.Canceled) {
			c.logger.Warn("route fetch failed",
				"origin", formatLngLat(origin),
				"destination", formatLngLat(destination),
				"error", err)
		}
		return nil, ErrRouteNotFound
	}

	span.SetAttributes(RouteAttributes(origin, destination, len(route.Geometry), route.DistanceMeters)...)
	return route, nil
}

func (c *Client) route(ctx context.Context, origin, destination geo.Coordinate) (*Route, error) {
	if !origin.IsValid() || !destination.IsValid() {
		return nil, errors.New("coordinate out of range")
	}

	params := url.Values{}
	params.Set("geometries", "geojson")
	params.Set("overview", "full")

	waypoints := formatLngLat(origin) + ";" + formatLngLat(destination)
	path := "/directions/v5/mapbox/" + c.config.Profile + "/" + waypoints
	cacheKey := "route:" + c.config.Profile + ":" +
		geo.Encode(origin, 9) + ":" + geo.Encode(destination, 9)

	var resp directionsResponse
	if err := c.getJSON(ctx, "route", path, params, cacheKey, &resp); err != nil {
		return nil, err
	}

	if len(resp.Routes) == 0 || resp.Routes[0].Geometry == nil {
		return nil, errors.New("no routes in response")
	}

	first := resp.Routes[0]
	line, ok := first.Geometry.Coordinates.(orb.LineString)
	if !ok || len(line) < 2 {
		return nil, errors.New("route geometry is not a line string")
	}

	return &Route{
		Geometry:        geo.LineFromOrb(line),
		DistanceMeters:  first.Distance,
		DurationSeconds: first.Duration,
	}, nil
}
