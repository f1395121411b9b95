package events

import (
	"slices"

	"github.com/uber/h3-go/v4"

	"github.com/gobusker/gobusker-map/geo"
)

// Nearby is a marker with its distance from a query point.
type Nearby struct {
	Marker     Marker  `json:"marker"`
	DistanceKm float64 `json:"distance_km"`
}

// Index buckets markers by H3 cell for radius lookups. It is immutable once
// built; rebuild it when the marker list changes.
type Index struct {
	cells   *geo.H3Index
	buckets map[h3.Cell][]Marker
	size    int
}

// NewIndex indexes the event markers in markers. The user location marker is
// skipped.
func NewIndex(resolution geo.H3Resolution, markers []Marker) *Index {
	ix := &Index{
		cells:   geo.NewH3Index(resolution),
		buckets: make(map[h3.Cell][]Marker),
	}
	for _, m := range WithoutUserLocation(markers) {
		if !m.Coordinate.IsValid() {
			continue
		}
		cell := ix.cells.Cell(m.Coordinate)
		ix.buckets[cell] = append(ix.buckets[cell], m)
		ix.size++
	}
	return ix
}

// Len returns the number of indexed markers.
func (ix *Index) Len() int {
	return ix.size
}

// Nearby returns markers within radiusKm of center, nearest first.
func (ix *Index) Nearby(center geo.Coordinate, radiusKm float64) []Nearby {
	if radiusKm <= 0 || ix.size == 0 {
		return []Nearby{}
	}

	out := []Nearby{}
	collect := func(bucket []Marker) {
		for _, m := range bucket {
			d := geo.HaversineDistance(center, m.Coordinate)
			if d <= radiusKm {
				out = append(out, Nearby{Marker: m, DistanceKm: d})
			}
		}
	}

	// Walking every bucket is cheaper than a disk with more cells than markers.
	if ix.cells.DiskSize(radiusKm) > ix.size {
		for _, bucket := range ix.buckets {
			collect(bucket)
		}
	} else {
		for _, cell := range ix.cells.CoverRadius(center, radiusKm) {
			collect(ix.buckets[cell])
		}
	}

	slices.SortFunc(out, func(a, b Nearby) int {
		switch {
		case a.DistanceKm < b.DistanceKm:
			return -1
		case a.DistanceKm > b.DistanceKm:
			return 1
		}
		return 0
	})
	return out
}
