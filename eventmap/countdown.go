package eventmap

import (
	"fmt"
	"time"

	"github.com/gobusker/gobusker-map/events"
)

// Color is the countdown band.
type Color string

const (
	ColorRed    Color = "red"
	ColorOrange Color = "orange"
	ColorYellow Color = "yellow"
	ColorGreen  Color = "green"
	ColorGrey   Color = "grey"
)

const (
	TextStarted     = "Event has started"
	TextInvalidDate = "Invalid date"
)

// Countdown is the time-left label for the selected event.
type Countdown struct {
	Text  string `json:"text"`
	Color Color  `json:"color"`
}

// ComputeCountdown labels the time from now until m starts. Days are
// compared in now's location.
//
//	started                 grey   "Event has started"
//	unparsable start        grey   "Invalid date"
//	same day, <= 30 min     red    "<m> min left"
//	same day, <= 1 hour     orange "<h>h <m>m left"
//	same day, later         yellow "<h>h <m>m left"
//	another day             green  "<d>d <h>h left"
func ComputeCountdown(m events.Marker, now time.Time) Countdown {
	start, err := m.Start()
	if err != nil {
		return Countdown{Text: TextInvalidDate, Color: ColorGrey}
	}

	left := start.Sub(now)
	if left <= 0 {
		return Countdown{Text: TextStarted, Color: ColorGrey}
	}

	if sameDay(start.In(now.Location()), now) {
		hours := int(left / time.Hour)
		minutes := int(left % time.Hour / time.Minute)
		switch {
		case left <= 30*time.Minute:
			return Countdown{Text: fmt.Sprintf("%d min left", minutes), Color: ColorRed}
		case left <= time.Hour:
			return Countdown{Text: fmt.Sprintf("%dh %dm left", hours, minutes), Color: ColorOrange}
		default:
			return Countdown{Text: fmt.Sprintf("%dh %dm left", hours, minutes), Color: ColorYellow}
		}
	}

	days := int(left / (24 * time.Hour))
	hours := int(left % (24 * time.Hour) / time.Hour)
	return Countdown{Text: fmt.Sprintf("%dd %dh left", days, hours), Color: ColorGreen}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
