package geo

import (
	"fmt"
	"math"
)

// TravelMode selects the average speed used for travel-time estimates.
type TravelMode string

const (
	TravelModeWalk TravelMode = "walk"
	TravelModeBike TravelMode = "bike"
	TravelModeCar  TravelMode = "car"
)

// Average speeds in km/h.
var travelSpeeds = map[TravelMode]float64{
	TravelModeWalk: 5,
	TravelModeBike: 15,
	TravelModeCar:  40,
}

// TravelTimes holds a display label per travel mode.
type TravelTimes struct {
	Walk string `json:"walk"`
	Bike string `json:"bike"`
	Car  string `json:"car"`
}

// TravelMinutes returns the whole minutes needed to cover distanceKm in mode.
// Unknown modes fall back to walking speed.
func TravelMinutes(distanceKm float64, mode TravelMode) int {
	speed, ok := travelSpeeds[mode]
	if !ok {
		speed = travelSpeeds[TravelModeWalk]
	}
	// The epsilon keeps exact quotients such as 40km/40kmh from landing on 59.999.
	return int(math.Floor(distanceKm/speed*60 + 1e-9))
}

// TravelTimeLabel formats the estimate as "<m> min" below an hour, otherwise
// "<h>h <m>m", dropping the minutes term when it is zero.
func TravelTimeLabel(distanceKm float64, mode TravelMode) string {
	minutes := TravelMinutes(distanceKm, mode)
	if minutes < 60 {
		return fmt.Sprintf("%d min", minutes)
	}

	hours := minutes / 60
	remainder := minutes % 60
	if remainder == 0 {
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dh %dm", hours, remainder)
}

// EstimateTravelTimes labels the straight-line trip from origin to destination
// for every travel mode.
func EstimateTravelTimes(origin, destination Coordinate) TravelTimes {
	d := HaversineDistance(origin, destination)
	return TravelTimes{
		Walk: TravelTimeLabel(d, TravelModeWalk),
		Bike: TravelTimeLabel(d, TravelModeBike),
		Car:  TravelTimeLabel(d, TravelModeCar),
	}
}
