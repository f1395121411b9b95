package places

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"

	apperrors "github.com/gobusker/gobusker-map/errors"
	"github.com/gobusker/gobusker-map/geo"
)

// Query describes a forward geocode.
type Query struct {
	// Text is the free-form search text.
	Text string `json:"text" validate:"required,max=256"`

	// Proximity biases results toward a point (optional).
	Proximity *geo.Coordinate `json:"proximity,omitempty"`

	// Country overrides Config.Country when set.
	Country string `json:"country,omitempty"`

	// Types restricts feature types. Empty uses DefaultPlaceTypes.
	Types []geo.PlaceType `json:"types,omitempty"`

	// Limit caps the number of results.
	Limit int `json:"limit,omitempty"`
}

type featureCollection struct {
	Features []providerFeature `json:"features"`
}

type providerFeature struct {
	ID        string    `json:"id"`
	Center    []float64 `json:"center"`
	PlaceName string    `json:"place_name"`
	PlaceType []string  `json:"place_type"`
	BBox      []float64 `json:"bbox"`
}

func (f providerFeature) toPlace() (PlaceFeature, bool) {
	if len(f.Center) != 2 {
		return PlaceFeature{}, false
	}
	p := PlaceFeature{
		ID:          f.ID,
		Coordinate:  geo.NewCoordinate(f.Center[1], f.Center[0]),
		DisplayName: f.PlaceName,
		BoundingBox: geo.BoundingBoxFromSlice(f.BBox),
	}
	if len(f.PlaceType) > 0 {
		p.PlaceType = geo.PlaceType(f.PlaceType[0])
	}
	return p, true
}

func (fc featureCollection) places() []PlaceFeature {
	out := make([]PlaceFeature, 0, len(fc.Features))
	for _, f := range fc.Features {
		if p, ok := f.toPlace(); ok {
			out = append(out, p)
		}
	}
	return out
}

// Geocode runs a forward geocode and returns every result. Autocomplete
// enables prefix matching for partially typed queries.
func (c *Client) Geocode(ctx context.Context, q Query, autocomplete bool) ([]PlaceFeature, error) {
	ctx, span := c.tracer.StartSpan(ctx, "places.Geocode")
	defer span.End()

	text := strings.TrimSpace(q.Text)
	if text == "" {
		return nil, apperrors.Validation("query text is required")
	}

	params := url.Values{}
	params.Set("autocomplete", strconv.FormatBool(autocomplete))
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Proximity != nil {
		params.Set("proximity", formatLngLat(*q.Proximity))
	}
	country := q.Country
	if country == "" {
		country = c.config.Country
	}
	if country != "" {
		params.Set("country", country)
	}
	if c.config.Language != "" {
		params.Set("language", c.config.Language)
	}
	params.Set("types", joinTypes(q.Types))

	path := "/geocoding/v5/mapbox.places/" + url.PathEscape(text) + ".json"
	cacheKey := "geocode:" + strings.ToLower(text) + "?" + params.Encode()

	var fc featureCollection
	if err := c.getJSON(ctx, "geocode", path, params, cacheKey, &fc); err != nil {
		span.RecordError(err)
		return nil, err
	}

	results := fc.places()
	span.SetAttributes(GeocodeAttributes(text, autocomplete, len(results))...)

	c.logger.Debug("geocode completed",
		"query", text,
		"autocomplete", autocomplete,
		"results", len(results))

	return results, nil
}

// Suggest returns autocomplete suggestions for a partially typed query.
// Failures are logged and produce an empty list.
func (c *Client) Suggest(ctx context.Context, q Query) []PlaceFeature {
	if q.Limit <= 0 {
		q.Limit = c.config.SuggestLimit
	}

	results, err := c.Geocode(ctx, q, true)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			c.logger.Warn("suggestion fetch failed", "query", q.Text, "error", err)
		}
		return []PlaceFeature{}
	}
	return results
}

// SearchTop returns the best match for an explicit search. It returns a
// NotFound error when nothing matches and a Transport error when the
// provider cannot be reached.
func (c *Client) SearchTop(ctx context.Context, q Query) (*PlaceFeature, error) {
	q.Limit = 1

	results, err := c.Geocode(ctx, q, false)
	if err != nil {
		if apperrors.IsValidation(err) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		if !apperrors.IsTransport(err) {
			err = apperrors.Transport(err, "search failed")
		}
		return nil, err
	}
	if len(results) == 0 {
		return nil, apperrors.NotFound("location")
	}
	return &results[0], nil
}

// Reverse returns the closest feature to c.
func (c *Client) Reverse(ctx context.Context, coord geo.Coordinate) (*PlaceFeature, error) {
	ctx, span := c.tracer.StartSpan(ctx, "places.Reverse")
	defer span.End()

	if !coord.IsValid() {
		return nil, apperrors.Validation("coordinate out of range")
	}

	params := url.Values{}
	params.Set("limit", "1")
	if c.config.Language != "" {
		params.Set("language", c.config.Language)
	}

	path := "/geocoding/v5/mapbox.places/" + formatLngLat(coord) + ".json"
	cacheKey := "reverse:" + geo.Encode(coord, geo.ReverseGeocodePrecision)

	var fc featureCollection
	if err := c.getJSON(ctx, "reverse_geocode", path, params, cacheKey, &fc); err != nil {
		span.RecordError(err)
		return nil, err
	}

	results := fc.places()
	span.SetAttributes(ReverseAttributes(coord, len(results) > 0)...)
	if len(results) == 0 {
		return nil, apperrors.NotFound("place")
	}
	return &results[0], nil
}

// ReverseGeocode returns a display name for coord, falling back to
// FallbackPlaceName on any failure.
func (c *Client) ReverseGeocode(ctx context.Context, coord geo.Coordinate) string {
	place, err := c.Reverse(ctx, coord)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			c.logger.Warn("reverse geocode failed", "lat", coord.Lat, "lng", coord.Lng, "error", err)
		}
		return FallbackPlaceName
	}
	if place.DisplayName == "" {
		return FallbackPlaceName
	}
	return place.DisplayName
}

func joinTypes(types []geo.PlaceType) string {
	if len(types) == 0 {
		types = DefaultPlaceTypes
	}
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = string(t)
	}
	return strings.Join(parts, ",")
}
