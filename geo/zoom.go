package geo

import (
	"math"
)

const (
	// DefaultBoundsPadding is the fraction of span added on each side before fitting.
	DefaultBoundsPadding = 0.15
	// MaxFitZoom caps the zoom used when fitting a route into view.
	MaxFitZoom = 18
)

// PlaceType is the provider's classification of a geocoded feature.
type PlaceType string

const (
	PlaceTypeCountry      PlaceType = "country"
	PlaceTypeRegion       PlaceType = "region"
	PlaceTypePlace        PlaceType = "place"
	PlaceTypeLocality     PlaceType = "locality"
	PlaceTypeNeighborhood PlaceType = "neighborhood"
	PlaceTypeAddress      PlaceType = "address"
	PlaceTypePOI          PlaceType = "poi"
)

// ZoomForBounds returns the integer zoom that fits bb after padding it by
// paddingFraction of its span on each axis:
//
//	floor(log2(360 / maxSpan / 2)) clamped to [0, maxZoom]
//
// This is a calibration formula rather than Web Mercator tile math; auto-fit
// behaviour depends on it staying as is. A zero-span box yields maxZoom.
func ZoomForBounds(bb BoundingBox, paddingFraction float64, maxZoom int) int {
	padded := bb.Pad(paddingFraction)
	maxSpan := padded.MaxSpan()
	if maxSpan <= 0 {
		return maxZoom
	}

	zoom := int(math.Floor(math.Log2(360 / maxSpan / 2)))
	if zoom < 0 {
		return 0
	}
	if zoom > maxZoom {
		return maxZoom
	}
	return zoom
}

// ZoomForPlaceType picks the fly-to zoom for a search result. Places and
// localities are sized by their bounding box when one is available.
func ZoomForPlaceType(placeType PlaceType, bbox *BoundingBox) int {
	switch placeType {
	case PlaceTypeCountry:
		return 5
	case PlaceTypeRegion:
		return 7
	case PlaceTypeNeighborhood:
		return 14
	case PlaceTypeAddress, PlaceTypePOI:
		return 15
	case PlaceTypePlace, PlaceTypeLocality:
		if bbox == nil {
			return 11
		}
		span := bbox.MaxSpan()
		switch {
		case span > 1:
			return 9
		case span > 0.5:
			return 10
		case span > 0.2:
			return 11
		case span > 0.1:
			return 12
		default:
			return 13
		}
	default:
		return 13
	}
}
