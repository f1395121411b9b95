// Package geo provides the pure geometry used by the map: distances, search
// circles, zoom levels and travel-time estimates.
package geo

import (
	"math"
)

const (
	// EarthRadiusKm is the mean Earth radius used by the Haversine formula.
	EarthRadiusKm = 6371.0
	// MetersPerKm converts kilometers to meters.
	MetersPerKm = 1000.0
)

// Coordinate is an immutable latitude/longitude pair in degrees.
type Coordinate struct {
	Lat float64 `json:"lat" validate:"latitude"`
	Lng float64 `json:"lng" validate:"longitude"`
}

// NewCoordinate creates a Coordinate.
func NewCoordinate(lat, lng float64) Coordinate {
	return Coordinate{Lat: lat, Lng: lng}
}

// IsValid reports whether lat is within [-90,90] and lng within [-180,180].
func (c Coordinate) IsValid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// LngLat returns the coordinate in GeoJSON axis order.
func (c Coordinate) LngLat() [2]float64 {
	return [2]float64{c.Lng, c.Lat}
}

// HaversineDistance returns the great-circle distance between a and b in kilometers.
func HaversineDistance(a, b Coordinate) float64 {
	lat1 := degreesToRadians(a.Lat)
	lat2 := degreesToRadians(b.Lat)
	deltaLat := degreesToRadians(b.Lat - a.Lat)
	deltaLng := degreesToRadians(b.Lng - a.Lng)

	h := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(deltaLng/2)*math.Sin(deltaLng/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusKm * c
}

// HaversineDistanceMeters returns distance in meters.
func HaversineDistanceMeters(a, b Coordinate) float64 {
	return HaversineDistance(a, b) * MetersPerKm
}

// Bearing returns the initial bearing from a to b in degrees [0,360), 0 being north.
func Bearing(a, b Coordinate) float64 {
	lat1 := degreesToRadians(a.Lat)
	lat2 := degreesToRadians(b.Lat)
	deltaLng := degreesToRadians(b.Lng - a.Lng)

	x := math.Sin(deltaLng) * math.Cos(lat2)
	y := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(deltaLng)

	return math.Mod(radiansToDegrees(math.Atan2(x, y))+360, 360)
}

func degreesToRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}

func radiansToDegrees(radians float64) float64 {
	return radians * 180 / math.Pi
}
