package eventmap

import (
	"testing"
	"time"

	"github.com/gobusker/gobusker-map/events"
)

func TestComputeCountdown(t *testing.T) {
	stockholm, err := time.LoadLocation("Europe/Stockholm")
	if err != nil {
		t.Skipf("no tzdata: %v", err)
	}
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, stockholm)

	at := func(d time.Duration) events.Marker {
		return events.Marker{StartTime: now.Add(d).Format(time.RFC3339)}
	}

	tests := []struct {
		name   string
		marker events.Marker
		want   Countdown
	}{
		{"twenty minutes", at(20 * time.Minute), Countdown{"20 min left", ColorRed}},
		{"exactly thirty minutes", at(30 * time.Minute), Countdown{"30 min left", ColorRed}},
		{"forty five minutes", at(45 * time.Minute), Countdown{"0h 45m left", ColorOrange}},
		{"exactly one hour", at(time.Hour), Countdown{"1h 0m left", ColorOrange}},
		{"later today", at(3*time.Hour + 10*time.Minute), Countdown{"3h 10m left", ColorYellow}},
		{"tomorrow", at(26 * time.Hour), Countdown{"1d 2h left", ColorGreen}},
		{"next week", at(7*24*time.Hour + 5*time.Hour), Countdown{"7d 5h left", ColorGreen}},
		{"five minutes ago", at(-5 * time.Minute), Countdown{TextStarted, ColorGrey}},
		{"right now", at(0), Countdown{TextStarted, ColorGrey}},
		{"unparsable", events.Marker{StartTime: "tomorrow-ish"}, Countdown{TextInvalidDate, ColorGrey}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeCountdown(tt.marker, now); got != tt.want {
				t.Errorf("ComputeCountdown() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestComputeCountdown_CrossesMidnight(t *testing.T) {
	now := time.Date(2026, 6, 1, 23, 50, 0, 0, time.UTC)
	m := events.Marker{StartTime: now.Add(20 * time.Minute).Format(time.RFC3339)}

	got := ComputeCountdown(m, now)
	if got.Color != ColorGreen || got.Text != "0d 0h left" {
		t.Errorf("ComputeCountdown() = %+v, want green 0d 0h left", got)
	}
}
