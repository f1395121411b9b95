package geo

import (
	"github.com/uber/h3-go/v4"
)

// H3Resolution selects the hexagon size of an H3Index.
type H3Resolution int

const (
	// H3ResolutionCity has ~1.22 km edges.
	H3ResolutionCity H3Resolution = 7
	// H3ResolutionNeighborhood has ~0.46 km edges.
	H3ResolutionNeighborhood H3Resolution = 8
	// H3ResolutionBlock has ~0.17 km edges.
	H3ResolutionBlock H3Resolution = 9
)

// H3Index maps coordinates to H3 cells at a fixed resolution.
type H3Index struct {
	resolution int
}

// NewH3Index creates an indexer for resolution.
func NewH3Index(resolution H3Resolution) *H3Index {
	return &H3Index{resolution: int(resolution)}
}

// H3ResolutionForRadius picks a resolution that keeps disk sizes small for the
// given search radius.
func H3ResolutionForRadius(radiusKm float64) H3Resolution {
	switch {
	case radiusKm > 10:
		return H3ResolutionCity
	case radiusKm > 2:
		return H3ResolutionNeighborhood
	default:
		return H3ResolutionBlock
	}
}

// Resolution returns the index resolution.
func (h *H3Index) Resolution() H3Resolution {
	return H3Resolution(h.resolution)
}

// Cell returns the cell containing c.
func (h *H3Index) Cell(c Coordinate) h3.Cell {
	return h3.LatLngToCell(h3.LatLng{Lat: c.Lat, Lng: c.Lng}, h.resolution)
}

// CoverRadius returns a disk of cells guaranteed to contain every point within
// radiusKm of center. Results still need an exact distance check.
func (h *H3Index) CoverRadius(center Coordinate, radiusKm float64) []h3.Cell {
	return h3.GridDisk(h.Cell(center), h.rings(radiusKm))
}

// DiskSize returns how many cells CoverRadius would return for radiusKm.
func (h *H3Index) DiskSize(radiusKm float64) int {
	k := h.rings(radiusKm)
	return 3*k*(k+1) + 1
}

func (h *H3Index) rings(radiusKm float64) int {
	return int(radiusKm/h.edgeLengthKm()) + 1
}

func (h *H3Index) edgeLengthKm() float64 {
	switch h.resolution {
	case 7:
		return 1.22
	case 8:
		return 0.46
	case 9:
		return 0.17
	case 10:
		return 0.065
	default:
		return 1.0
	}
}
