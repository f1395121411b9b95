package api

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/gobusker/gobusker-map/errors"
	"github.com/gobusker/gobusker-map/geo"
	"github.com/gobusker/gobusker-map/validation"
)

// query collects parse failures so a request reports every bad parameter at once.
type query struct {
	values url.Values
	errs   map[string]string
}

func newQuery(values url.Values) *query {
	return &query{values: values, errs: map[string]string{}}
}

func (q *query) str(key string) string {
	return strings.TrimSpace(q.values.Get(key))
}

func (q *query) float(key string) *float64 {
	raw := q.str(key)
	if raw == "" {
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		q.errs[key] = "must be a number"
		return nil
	}
	return &f
}

func (q *query) int(key string) int {
	raw := q.str(key)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		q.errs[key] = "must be an integer"
	}
	return n
}

func (q *query) time(key string) time.Time {
	raw := q.str(key)
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		q.errs[key] = "must be an RFC 3339 timestamp"
	}
	return t
}

// coordinate reads a lat/lng pair. Both or neither must be present.
func (q *query) coordinate(latKey, lngKey string, required bool) *geo.Coordinate {
	lat, lng := q.float(latKey), q.float(lngKey)
	switch {
	case lat != nil && lng != nil:
		c := geo.NewCoordinate(*lat, *lng)
		return &c
	case lat == nil && lng == nil && !required:
		return nil
	}
	if _, bad := q.errs[latKey]; !bad && lat == nil {
		q.errs[latKey] = "is required"
	}
	if _, bad := q.errs[lngKey]; !bad && lng == nil {
		q.errs[lngKey] = "is required"
	}
	return nil
}

// bbox reads "minLng,minLat,maxLng,maxLat".
func (q *query) bbox(key string) *geo.BoundingBox {
	raw := q.str(key)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	v := make([]float64, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			q.errs[key] = "must be four comma separated numbers"
			return nil
		}
		v = append(v, f)
	}
	bb := geo.BoundingBoxFromSlice(v)
	if bb == nil {
		q.errs[key] = "must be four comma separated numbers"
	}
	return bb
}

// validate reports parse failures first, then struct tag violations on dst.
func (q *query) validate(dst any) error {
	if len(q.errs) > 0 {
		return apperrors.ValidationWithDetails("invalid query parameters", q.errs)
	}
	return validation.Check(dst)
}

type suggestParams struct {
	Text      string          `json:"q" validate:"required,min=2,max=256"`
	Proximity *geo.Coordinate `json:"proximity" validate:"omitempty"`
	Country   string          `json:"country" validate:"omitempty,country_codes"`
	Limit     int             `json:"limit" validate:"omitempty,min=1,max=10"`
}

type searchParams struct {
	Text      string          `json:"q" validate:"required,max=256"`
	Proximity *geo.Coordinate `json:"proximity" validate:"omitempty"`
	Country   string          `json:"country" validate:"omitempty,country_codes"`
}

type pointParams struct {
	At geo.Coordinate
}

type circleParams struct {
	Center   geo.Coordinate
	RadiusKm float64 `json:"radius_km" validate:"gt=0,lte=100"`
	Points   int     `json:"points" validate:"omitempty,min=8,max=360"`
}

type zoomParams struct {
	PlaceType string           `json:"place_type" validate:"omitempty,place_type"`
	BBox      *geo.BoundingBox `json:"bbox" validate:"omitempty"`
}

type nearbyParams struct {
	Center   geo.Coordinate
	RadiusKm float64   `json:"radius_km" validate:"gt=0,lte=100"`
	From     time.Time `validate:"-"`
	Limit    int       `json:"limit" validate:"omitempty,min=1,max=500"`
}

type routeRequest struct {
	Origin      geo.Coordinate `json:"origin"`
	Destination geo.Coordinate `json:"destination"`
	Format      string         `json:"format" validate:"omitempty,oneof=json geojson"`
}
