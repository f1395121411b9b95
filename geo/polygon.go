package geo

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Polygon is a single closed ring, typically a search circle.
type Polygon struct {
	Ring []Coordinate `json:"ring"`
}

// NewPolygon wraps ring. The ring is used as is; callers pass a closed ring.
func NewPolygon(ring []Coordinate) *Polygon {
	return &Polygon{Ring: ring}
}

// SearchCircle builds the polygon overlay for a search radius.
func SearchCircle(center Coordinate, radiusKm float64) *Polygon {
	return NewPolygon(CirclePolygon(center, radiusKm, DefaultCirclePoints))
}

// Closed reports whether the first and last vertices are identical.
func (p *Polygon) Closed() bool {
	n := len(p.Ring)
	return n >= 4 && p.Ring[0] == p.Ring[n-1]
}

// Contains reports whether point lies inside the ring (ray casting).
func (p *Polygon) Contains(point Coordinate) bool {
	if len(p.Ring) < 3 {
		return false
	}

	inside := false
	n := len(p.Ring)

	j := n - 1
	for i := 0; i < n; i++ {
		pi := p.Ring[i]
		pj := p.Ring[j]

		if ((pi.Lat > point.Lat) != (pj.Lat > point.Lat)) &&
			(point.Lng < (pj.Lng-pi.Lng)*(point.Lat-pi.Lat)/(pj.Lat-pi.Lat)+pi.Lng) {
			inside = !inside
		}
		j = i
	}

	return inside
}

// BoundingBox returns the bounding box of the ring.
func (p *Polygon) BoundingBox() BoundingBox {
	return BoundingBoxOf(p.Ring...)
}

// OrbRing converts the ring to orb's [lng, lat] representation.
func (p *Polygon) OrbRing() orb.Ring {
	ring := make(orb.Ring, len(p.Ring))
	for i, c := range p.Ring {
		ring[i] = orb.Point{c.Lng, c.Lat}
	}
	return ring
}

// Feature returns the polygon as a GeoJSON Feature with the given properties.
func (p *Polygon) Feature(properties map[string]interface{}) *geojson.Feature {
	f := geojson.NewFeature(orb.Polygon{p.OrbRing()})
	for k, v := range properties {
		f.Properties[k] = v
	}
	return f
}

// LineFromOrb converts an orb.LineString into coordinates.
func LineFromOrb(ls orb.LineString) []Coordinate {
	coords := make([]Coordinate, len(ls))
	for i, pt := range ls {
		coords[i] = Coordinate{Lat: pt.Lat(), Lng: pt.Lon()}
	}
	return coords
}
