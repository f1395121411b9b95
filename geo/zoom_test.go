package geo

import (
	"testing"
)

func TestZoomForBounds_Monotonic(t *testing.T) {
	center := NewCoordinate(59.3293, 18.0686)
	prev := MaxFitZoom + 1

	for span := 0.0005; span < 400; span *= 1.5 {
		bb := BoundingBox{
			MinLat: center.Lat - span/2,
			MaxLat: center.Lat + span/2,
			MinLng: center.Lng - span/2,
			MaxLng: center.Lng + span/2,
		}
		zoom := ZoomForBounds(bb, DefaultBoundsPadding, MaxFitZoom)

		if zoom < 0 || zoom > MaxFitZoom {
			t.Fatalf("span %v: zoom %d outside [0, %d]", span, zoom, MaxFitZoom)
		}
		if zoom > prev {
			t.Fatalf("span %v: zoom %d increased from %d", span, zoom, prev)
		}
		prev = zoom
	}
}

func TestZoomForBounds(t *testing.T) {
	tests := []struct {
		name string
		bb   BoundingBox
		want int
	}{
		{"zero span", BoundingBox{MinLat: 59, MaxLat: 59, MinLng: 18, MaxLng: 18}, MaxFitZoom},
		// 1° padded to 1.3°: log2(360/1.3/2) = 7.11
		{"one degree", BoundingBox{MinLat: 59, MaxLat: 60, MinLng: 18, MaxLng: 18.5}, 7},
		// 0.1° padded to 0.13°: log2(1384.6) = 10.43
		{"tenth of a degree", BoundingBox{MinLat: 59.3, MaxLat: 59.4, MinLng: 18, MaxLng: 18.05}, 10},
		{"whole world", BoundingBox{MinLat: -90, MaxLat: 90, MinLng: -180, MaxLng: 180}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ZoomForBounds(tt.bb, DefaultBoundsPadding, MaxFitZoom); got != tt.want {
				t.Errorf("ZoomForBounds() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestZoomForPlaceType(t *testing.T) {
	bbox := func(span float64) *BoundingBox {
		return &BoundingBox{MinLat: 59, MaxLat: 59 + span, MinLng: 18, MaxLng: 18 + span/2}
	}

	tests := []struct {
		name      string
		placeType PlaceType
		bbox      *BoundingBox
		want      int
	}{
		{"country", PlaceTypeCountry, nil, 5},
		{"region", PlaceTypeRegion, nil, 7},
		{"neighborhood", PlaceTypeNeighborhood, nil, 14},
		{"address", PlaceTypeAddress, nil, 15},
		{"poi", PlaceTypePOI, nil, 15},
		{"unknown", PlaceType("postcode"), nil, 13},
		{"place without bbox", PlaceTypePlace, nil, 11},
		{"large place", PlaceTypePlace, bbox(1.2), 9},
		{"city", PlaceTypePlace, bbox(0.6), 10},
		{"town", PlaceTypeLocality, bbox(0.3), 11},
		{"village", PlaceTypeLocality, bbox(0.15), 12},
		{"hamlet", PlaceTypePlace, bbox(0.05), 13},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ZoomForPlaceType(tt.placeType, tt.bbox); got != tt.want {
				t.Errorf("ZoomForPlaceType() = %d, want %d", got, tt.want)
			}
		})
	}
}
