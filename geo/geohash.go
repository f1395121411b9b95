package geo

import (
	"strings"
)

const (
	base32              = "0123456789bcdefghjkmnpqrstuvwxyz"
	maxGeohashPrecision = 12
	bitsPerChar         = 5

	// ReverseGeocodePrecision buckets reverse geocode lookups into ~150m cells.
	ReverseGeocodePrecision = 7
)

// Encode encodes a coordinate to a geohash with the specified precision.
func Encode(c Coordinate, precision int) string {
	if precision < 1 {
		precision = 1
	}
	if precision > maxGeohashPrecision {
		precision = maxGeohashPrecision
	}

	minLat, maxLat := -90.0, 90.0
	minLng, maxLng := -180.0, 180.0

	var hash strings.Builder
	hash.Grow(precision)

	bit := 0
	ch := 0
	isLng := true

	for hash.Len() < precision {
		if isLng {
			mid := (minLng + maxLng) / 2
			if c.Lng >= mid {
				ch |= 1 << (4 - bit)
				minLng = mid
			} else {
				maxLng = mid
			}
		} else {
			mid := (minLat + maxLat) / 2
			if c.Lat >= mid {
				ch |= 1 << (4 - bit)
				minLat = mid
			} else {
				maxLat = mid
			}
		}

		isLng = !isLng
		bit++

		if bit == bitsPerChar {
			hash.WriteByte(base32[ch])
			bit = 0
			ch = 0
		}
	}

	return hash.String()
}

// DecodeBounds decodes a geohash to its cell. Invalid characters are skipped.
func DecodeBounds(hash string) BoundingBox {
	minLat, maxLat := -90.0, 90.0
	minLng, maxLng := -180.0, 180.0

	isLng := true

	for _, c := range strings.ToLower(hash) {
		idx := strings.IndexRune(base32, c)
		if idx == -1 {
			continue
		}

		for bit := 4; bit >= 0; bit-- {
			if isLng {
				mid := (minLng + maxLng) / 2
				if (idx>>bit)&1 == 1 {
					minLng = mid
				} else {
					maxLng = mid
				}
			} else {
				mid := (minLat + maxLat) / 2
				if (idx>>bit)&1 == 1 {
					minLat = mid
				} else {
					maxLat = mid
				}
			}
			isLng = !isLng
		}
	}

	return BoundingBox{
		MinLat: minLat,
		MaxLat: maxLat,
		MinLng: minLng,
		MaxLng: maxLng,
	}
}

// Decode returns the center of the geohash cell.
func Decode(hash string) Coordinate {
	return DecodeBounds(hash).Center()
}
