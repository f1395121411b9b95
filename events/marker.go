// Package events supplies the event markers shown on the map: the marker
// model, read-only sources and a proximity index.
package events

import (
	"time"

	apperrors "github.com/gobusker/gobusker-map/errors"
	"github.com/gobusker/gobusker-map/geo"
	"github.com/gobusker/gobusker-map/validation"
)

// UserLocationID is the reserved marker id for the viewer's own position.
const UserLocationID = "user-location"

// EventType classifies an event.
type EventType string

const (
	EventTypeSoloPerformance EventType = "solo_performance"
	EventTypeOpenMic         EventType = "open_mic"
	EventTypeVenueBooking    EventType = "venue_booking"
)

// ProfileRef identifies the organizer of an event.
type ProfileRef struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// Marker is an event, or the viewer, on the map.
type Marker struct {
	ID         string         `json:"id" validate:"required"`
	Coordinate geo.Coordinate `json:"coordinate"`
	Title      string         `json:"title" validate:"required,max=200"`

	// StartTime is kept as received so that an unparsable value can still
	// be shown as "Invalid date".
	StartTime string `json:"start_time"`

	LocationName      string      `json:"location_name,omitempty"`
	EventType         EventType   `json:"event_type" validate:"required,event_type"`
	MaxPerformers     *int        `json:"max_performers,omitempty" validate:"omitempty,gte=1"`
	AcceptedCount     *int        `json:"accepted_count,omitempty" validate:"omitempty,gte=0"`
	AcceptingRequests bool        `json:"accepting_requests"`
	Organizer         *ProfileRef `json:"organizer,omitempty"`
}

// UserLocation returns the marker for the viewer at c.
func UserLocation(c geo.Coordinate) Marker {
	return Marker{ID: UserLocationID, Coordinate: c, Title: "You are here"}
}

// IsUserLocation reports whether m is the viewer's own marker.
func (m Marker) IsUserLocation() bool {
	return m.ID == UserLocationID
}

// startTimeLayouts are tried in order by Start.
var startTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05-07",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
}

// Start parses StartTime. Values without a zone are read as local time.
func (m Marker) Start() (time.Time, error) {
	for _, layout := range startTimeLayouts {
		if t, err := time.ParseInLocation(layout, m.StartTime, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, apperrors.InvalidDate(m.StartTime, nil)
}

// SlotsLeft returns the open performer slots when the event has a cap.
func (m Marker) SlotsLeft() (int, bool) {
	if m.MaxPerformers == nil {
		return 0, false
	}
	accepted := 0
	if m.AcceptedCount != nil {
		accepted = *m.AcceptedCount
	}
	return max(*m.MaxPerformers-accepted, 0), true
}

// Validate checks the marker. The user location marker only needs a valid
// coordinate. An unparsable start time is not an error; it renders as
// "Invalid date".
func (m Marker) Validate() error {
	if m.IsUserLocation() {
		return validation.Check(m.Coordinate)
	}
	return validation.Check(m)
}

// WithoutUserLocation returns the event markers in markers.
func WithoutUserLocation(markers []Marker) []Marker {
	out := make([]Marker, 0, len(markers))
	for _, m := range markers {
		if !m.IsUserLocation() {
			out = append(out, m)
		}
	}
	return out
}

// Find returns the marker with id.
func Find(markers []Marker, id string) (Marker, bool) {
	for _, m := range markers {
		if m.ID == id {
			return m, true
		}
	}
	return Marker{}, false
}
