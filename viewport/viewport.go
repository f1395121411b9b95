// Package viewport owns the map's single viewport. Gestures, programmatic
// fly-to transitions and route auto-fit all go through a Controller so that
// the last request always wins.
package viewport

import (
	"sync"
	"time"

	"code.cloudfoundry.org/clock"

	"github.com/gobusker/gobusker-map/debounce"
	"github.com/gobusker/gobusker-map/geo"
	"github.com/gobusker/gobusker-map/logging"
)

const (
	MinZoom = 0
	MaxZoom = 22

	// DefaultFlyDuration is used by FitBounds and search results.
	DefaultFlyDuration = 1500 * time.Millisecond
	// ResizeSettleDelay lets layout settle before the surface is resized.
	ResizeSettleDelay = 50 * time.Millisecond
)

// Viewport is the map center and zoom.
type Viewport struct {
	Center geo.Coordinate `json:"center"`
	Zoom   float64        `json:"zoom"`
}

// Clamped returns v with zoom limited to [MinZoom, MaxZoom].
func (v Viewport) Clamped() Viewport {
	v.Zoom = min(max(v.Zoom, MinZoom), MaxZoom)
	return v
}

// Surface is the rendering surface driven by the controller. Methods are
// called with the controller lock held and must not call back into it.
type Surface interface {
	Jump(v Viewport)
	FlyTo(v Viewport, duration time.Duration)
	Resize()
}

type flight struct {
	from     Viewport
	to       Viewport
	start    time.Time
	duration time.Duration
	stop     func()
}

// Controller serializes every viewport change.
type Controller struct {
	clock   clock.Clock
	surface Surface
	logger  *logging.Logger
	resize  *debounce.Debouncer

	mu          sync.Mutex
	current     Viewport
	flight      *flight
	flightGen   uint64
	subscribers map[int]func(Viewport)
	nextSubID   int
	closed      bool
}

// NewController creates a controller starting at initial. A nil clk uses the
// real clock.
func NewController(initial Viewport, surface Surface, clk clock.Clock, logger *logging.Logger) *Controller {
	if clk == nil {
		clk = clock.NewClock()
	}
	return &Controller{
		clock:       clk,
		surface:     surface,
		logger:      logging.OrNop(logger).WithComponent("viewport"),
		resize:      debounce.New(clk, ResizeSettleDelay),
		current:     initial.Clamped(),
		subscribers: make(map[int]func(Viewport)),
	}
}

// Viewport returns the current viewport, interpolated while a fly-to is in
// progress.
func (c *Controller) Viewport() Viewport {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.positionLocked()
}

// Flying reports whether a transition is in progress.
func (c *Controller) Flying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flight != nil
}

func (c *Controller) positionLocked() Viewport {
	f := c.flight
	if f == nil {
		return c.current
	}

	progress := float64(c.clock.Since(f.start)) / float64(f.duration)
	if progress >= 1 {
		return f.to
	}
	if progress < 0 {
		progress = 0
	}
	return Viewport{
		Center: geo.Coordinate{
			Lat: f.from.Center.Lat + (f.to.Center.Lat-f.from.Center.Lat)*progress,
			Lng: f.from.Center.Lng + (f.to.Center.Lng-f.from.Center.Lng)*progress,
		},
		Zoom: f.from.Zoom + (f.to.Zoom-f.from.Zoom)*progress,
	}
}

// SetViewport records a user gesture. It cancels any transition and does
// not drive the surface, which already shows the gesture.
func (c *Controller) SetViewport(v Viewport) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.cancelFlightLocked()
	c.current = v.Clamped()
	v = c.current
	subs := c.subscribersLocked()
	c.mu.Unlock()

	notify(subs, v)
}

// JumpTo moves the surface immediately, cancelling any transition.
func (c *Controller) JumpTo(v Viewport) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.cancelFlightLocked()
	c.current = v.Clamped()
	v = c.current
	if c.surface != nil {
		c.surface.Jump(v)
	}
	subs := c.subscribersLocked()
	c.mu.Unlock()

	notify(subs, v)
}

// FlyTo animates to center and zoom over duration. A later FlyTo, JumpTo or
// SetViewport replaces it; requests are never queued.
func (c *Controller) FlyTo(center geo.Coordinate, zoom float64, duration time.Duration) {
	target := Viewport{Center: center, Zoom: zoom}.Clamped()
	if duration <= 0 {
		c.JumpTo(target)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	from := c.positionLocked()
	c.cancelFlightLocked()

	c.flightGen++
	gen := c.flightGen
	f := &flight{
		from:     from,
		to:       target,
		start:    c.clock.Now(),
		duration: duration,
	}
	f.stop = debounce.After(c.clock, duration, func() { c.land(gen) })
	c.flight = f

	if c.surface != nil {
		c.surface.FlyTo(target, duration)
	}
	c.logger.Debug("fly to",
		"lat", target.Center.Lat,
		"lng", target.Center.Lng,
		"zoom", target.Zoom,
		"duration", duration)
}

// FitBounds flies to the padded bounding box at a zoom from
// geo.ZoomForBounds and returns the target.
func (c *Controller) FitBounds(bb geo.BoundingBox, padding float64, maxZoom int) Viewport {
	target := Viewport{
		Center: bb.Center(),
		Zoom:   float64(geo.ZoomForBounds(bb, padding, maxZoom)),
	}
	c.FlyTo(target.Center, target.Zoom, DefaultFlyDuration)
	return target.Clamped()
}

func (c *Controller) land(gen uint64) {
	c.mu.Lock()
	if c.closed || c.flight == nil || c.flightGen != gen {
		c.mu.Unlock()
		return
	}
	c.current = c.flight.to
	c.flight = nil
	v := c.current
	subs := c.subscribersLocked()
	c.mu.Unlock()

	notify(subs, v)
}

func (c *Controller) cancelFlightLocked() {
	if c.flight == nil {
		return
	}
	c.current = c.positionLocked()
	c.flight.stop()
	c.flight = nil
	c.flightGen++
}

// RequestResize signals a layout change. The surface is resized once the
// signals stop for ResizeSettleDelay.
func (c *Controller) RequestResize() {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return
	}

	c.resize.Trigger(func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed || c.surface == nil {
			return
		}
		c.surface.Resize()
	})
}

// Subscribe registers fn for settled viewport changes. It returns a func
// that removes the subscription.
func (c *Controller) Subscribe(fn func(Viewport)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subscribers, id)
	}
}

func (c *Controller) subscribersLocked() []func(Viewport) {
	subs := make([]func(Viewport), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		subs = append(subs, fn)
	}
	return subs
}

func notify(subs []func(Viewport), v Viewport) {
	for _, fn := range subs {
		fn(v)
	}
}

// Close stops pending timers. Later calls are ignored.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.cancelFlightLocked()
	c.resize.Stop()
	c.closed = true
}
