package viewport_test

import (
	"math"
	"sync"
	"testing"
	"time"

	"code.cloudfoundry.org/clock/fakeclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gobusker/gobusker-map/geo"
	"github.com/gobusker/gobusker-map/testing/mocks"
	"github.com/gobusker/gobusker-map/viewport"
)

var (
	stockholm = geo.NewCoordinate(59.3293, 18.0686)
	malmo     = geo.NewCoordinate(55.605, 13.0038)
)

func newController(t *testing.T) (*viewport.Controller, *mocks.Surface, *fakeclock.FakeClock) {
	t.Helper()
	clk := fakeclock.NewFakeClock(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))
	surface := mocks.NewSurface()
	c := viewport.NewController(viewport.Viewport{Center: stockholm, Zoom: 10}, surface, clk, nil)
	t.Cleanup(c.Close)
	return c, surface, clk
}

func TestViewport_Clamped(t *testing.T) {
	tests := []struct {
		zoom float64
		want float64
	}{
		{-3, 0},
		{0, 0},
		{12.5, 12.5},
		{22, 22},
		{30, 22},
	}
	for _, tt := range tests {
		got := viewport.Viewport{Zoom: tt.zoom}.Clamped().Zoom
		if got != tt.want {
			t.Errorf("Clamped(%v) = %v, want %v", tt.zoom, got, tt.want)
		}
	}
}

func TestController_SetViewport(t *testing.T) {
	c, surface, _ := newController(t)

	c.SetViewport(viewport.Viewport{Center: malmo, Zoom: 40})

	got := c.Viewport()
	assert.Equal(t, malmo, got.Center)
	assert.Equal(t, float64(viewport.MaxZoom), got.Zoom)
	assert.Empty(t, surface.Calls(""), "gestures are not pushed back to the surface")
}

func TestController_FlyToInterpolatesAndLands(t *testing.T) {
	c, surface, clk := newController(t)

	var mu sync.Mutex
	var settled []viewport.Viewport
	c.Subscribe(func(v viewport.Viewport) {
		mu.Lock()
		defer mu.Unlock()
		settled = append(settled, v)
	})

	c.FlyTo(malmo, 12, time.Second)

	call, ok := surface.Last("FlyTo")
	require.True(t, ok)
	assert.Equal(t, malmo, call.Viewport.Center)
	assert.Equal(t, time.Second, call.Duration)
	assert.True(t, c.Flying())

	clk.Increment(500 * time.Millisecond)
	mid := c.Viewport()
	assert.InDelta(t, (stockholm.Lat+malmo.Lat)/2, mid.Center.Lat, 1e-9)
	assert.InDelta(t, 11, mid.Zoom, 1e-9)

	clk.Increment(500 * time.Millisecond)
	require.Eventually(t, func() bool { return !c.Flying() }, time.Second, 5*time.Millisecond)

	assert.Equal(t, viewport.Viewport{Center: malmo, Zoom: 12}, c.Viewport())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, settled, 1)
	assert.Equal(t, malmo, settled[0].Center)
}

func TestController_LastWriteWins(t *testing.T) {
	c, surface, clk := newController(t)
	gothenburg := geo.NewCoordinate(57.7089, 11.9746)

	c.FlyTo(malmo, 12, time.Second)
	clk.Increment(200 * time.Millisecond)
	c.FlyTo(gothenburg, 13, time.Second)

	clk.Increment(time.Second)
	require.Eventually(t, func() bool { return !c.Flying() }, time.Second, 5*time.Millisecond)

	assert.Equal(t, gothenburg, c.Viewport().Center)
	assert.Len(t, surface.Calls("FlyTo"), 2)
}

func TestController_GestureCancelsFlight(t *testing.T) {
	c, _, clk := newController(t)
	manual := geo.NewCoordinate(59.0, 17.0)

	c.FlyTo(malmo, 12, time.Second)
	clk.Increment(100 * time.Millisecond)
	c.SetViewport(viewport.Viewport{Center: manual, Zoom: 9})

	assert.False(t, c.Flying())

	clk.Increment(2 * time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, manual, c.Viewport().Center, "cancelled flight must not land")
}

func TestController_FlyToZeroDurationJumps(t *testing.T) {
	c, surface, _ := newController(t)

	c.FlyTo(malmo, 14, 0)

	call, ok := surface.Last("Jump")
	require.True(t, ok)
	assert.Equal(t, malmo, call.Viewport.Center)
	assert.Equal(t, malmo, c.Viewport().Center)
}

func TestController_FitBounds(t *testing.T) {
	c, surface, _ := newController(t)

	bb := geo.BoundingBoxOf(stockholm, geo.NewCoordinate(59.3326, 18.0721))
	target := c.FitBounds(bb, geo.DefaultBoundsPadding, geo.MaxFitZoom)

	assert.Equal(t, float64(geo.ZoomForBounds(bb, geo.DefaultBoundsPadding, geo.MaxFitZoom)), target.Zoom)
	assert.LessOrEqual(t, target.Zoom, float64(geo.MaxFitZoom))
	assert.True(t, math.Abs(target.Center.Lat-bb.Center().Lat) < 1e-12)

	call, ok := surface.Last("FlyTo")
	require.True(t, ok)
	assert.Equal(t, viewport.DefaultFlyDuration, call.Duration)
}

func TestController_ResizeDebounced(t *testing.T) {
	c, surface, clk := newController(t)

	for i := 0; i < 5; i++ {
		c.RequestResize()
		clk.WaitForWatcherAndIncrement(10 * time.Millisecond)
	}
	assert.Empty(t, surface.Calls("Resize"))

	clk.Increment(viewport.ResizeSettleDelay)
	require.Eventually(t, func() bool { return len(surface.Calls("Resize")) == 1 }, time.Second, 5*time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	assert.Len(t, surface.Calls("Resize"), 1)
}

func TestController_Unsubscribe(t *testing.T) {
	c, _, _ := newController(t)

	calls := 0
	unsubscribe := c.Subscribe(func(viewport.Viewport) { calls++ })
	c.SetViewport(viewport.Viewport{Center: malmo, Zoom: 5})
	unsubscribe()
	c.SetViewport(viewport.Viewport{Center: stockholm, Zoom: 5})

	assert.Equal(t, 1, calls)
}

func TestController_CloseIgnoresLaterCalls(t *testing.T) {
	c, surface, clk := newController(t)

	c.FlyTo(malmo, 12, time.Second)
	c.Close()
	clk.Increment(2 * time.Second)

	c.JumpTo(viewport.Viewport{Center: malmo, Zoom: 3})
	c.RequestResize()
	clk.Increment(time.Second)
	time.Sleep(20 * time.Millisecond)

	assert.Empty(t, surface.Calls("Jump"))
	assert.Empty(t, surface.Calls("Resize"))
	assert.False(t, c.Flying())
}
