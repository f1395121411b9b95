package geo

import (
	"math"
)

const (
	// DefaultCirclePoints is the number of vertices sampled for a search circle.
	DefaultCirclePoints = 64

	kmPerDegreeLat = 110.574
	kmPerDegreeLng = 111.32
)

// CirclePolygon approximates a circle of radiusKm around center as a closed
// ring: pointCount vertices evenly spaced over [0, 2π) followed by the first
// vertex again. pointCount <= 0 selects DefaultCirclePoints.
//
// The longitude offset diverges at the poles; callers must not pass centers
// with |lat| near 90.
func CirclePolygon(center Coordinate, radiusKm float64, pointCount int) []Coordinate {
	if pointCount <= 0 {
		pointCount = DefaultCirclePoints
	}

	latOffset := radiusKm / kmPerDegreeLat
	lngOffset := radiusKm / (kmPerDegreeLng * math.Cos(degreesToRadians(center.Lat)))

	ring := make([]Coordinate, 0, pointCount+1)
	for i := 0; i < pointCount; i++ {
		theta := float64(i) / float64(pointCount) * 2 * math.Pi
		ring = append(ring, Coordinate{
			Lat: center.Lat + latOffset*math.Sin(theta),
			Lng: center.Lng + lngOffset*math.Cos(theta),
		})
	}
	ring = append(ring, ring[0])

	return ring
}
