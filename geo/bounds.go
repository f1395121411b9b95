package geo

// BoundingBox is an axis-aligned lat/lng rectangle.
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLng float64 `json:"max_lng"`
}

// BoundingBoxOf returns the smallest box containing all points. The zero box
// is returned for no points.
func BoundingBoxOf(points ...Coordinate) BoundingBox {
	if len(points) == 0 {
		return BoundingBox{}
	}

	bb := BoundingBox{
		MinLat: points[0].Lat,
		MaxLat: points[0].Lat,
		MinLng: points[0].Lng,
		MaxLng: points[0].Lng,
	}
	for _, p := range points[1:] {
		bb = bb.Extend(p)
	}
	return bb
}

// Extend returns the box grown to include p.
func (bb BoundingBox) Extend(p Coordinate) BoundingBox {
	if p.Lat < bb.MinLat {
		bb.MinLat = p.Lat
	}
	if p.Lat > bb.MaxLat {
		bb.MaxLat = p.Lat
	}
	if p.Lng < bb.MinLng {
		bb.MinLng = p.Lng
	}
	if p.Lng > bb.MaxLng {
		bb.MaxLng = p.Lng
	}
	return bb
}

// LatSpan returns the latitude extent in degrees.
func (bb BoundingBox) LatSpan() float64 {
	return bb.MaxLat - bb.MinLat
}

// LngSpan returns the longitude extent in degrees.
func (bb BoundingBox) LngSpan() float64 {
	return bb.MaxLng - bb.MinLng
}

// MaxSpan returns the larger of the two spans.
func (bb BoundingBox) MaxSpan() float64 {
	return max(bb.LatSpan(), bb.LngSpan())
}

// Pad grows the box symmetrically by fraction of its span on each axis.
func (bb BoundingBox) Pad(fraction float64) BoundingBox {
	latPad := bb.LatSpan() * fraction
	lngPad := bb.LngSpan() * fraction
	return BoundingBox{
		MinLat: bb.MinLat - latPad,
		MaxLat: bb.MaxLat + latPad,
		MinLng: bb.MinLng - lngPad,
		MaxLng: bb.MaxLng + lngPad,
	}
}

// Contains reports whether p lies inside the box, edges included.
func (bb BoundingBox) Contains(p Coordinate) bool {
	return p.Lat >= bb.MinLat && p.Lat <= bb.MaxLat &&
		p.Lng >= bb.MinLng && p.Lng <= bb.MaxLng
}

// Center returns the center point of the box.
func (bb BoundingBox) Center() Coordinate {
	return Coordinate{
		Lat: (bb.MinLat + bb.MaxLat) / 2,
		Lng: (bb.MinLng + bb.MaxLng) / 2,
	}
}

// BoundingBoxFromSlice parses a provider bbox in [minLng, minLat, maxLng, maxLat]
// order. It returns nil unless exactly four values are present.
func BoundingBoxFromSlice(v []float64) *BoundingBox {
	if len(v) != 4 {
		return nil
	}
	return &BoundingBox{
		MinLng: v[0],
		MinLat: v[1],
		MaxLng: v[2],
		MaxLat: v[3],
	}
}
