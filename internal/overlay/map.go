// Package overlay provides in-memory implementations of the map-side
// collaborators the clusterer drives: a viewport with events, a render
// layer for individual features, a pane of cluster icons and a frame
// scheduler for deferred work.
package overlay

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/atlasmap-sc/clusterer/pkg/geo"
)

// Event is a viewport event name.
type Event string

const (
	EventZoomChanged Event = "zoom_changed"
	EventIdle        Event = "idle"
	EventTilesReady  Event = "tiles_ready_once"
)

type listener struct {
	id   int
	fn   func()
	once bool
}

// Map is a headless viewport: a center, a zoom and a size in pixels. It
// dispatches events synchronously and queues frame callbacks until
// RenderFrame is called.
type Map struct {
	center   orb.Point
	zoom     float64
	width    int
	height   int
	tileSize float64
	attached bool

	nextID    int
	listeners map[Event][]listener
	frames    []frameTask
	pane      *Pane
}

type frameTask struct {
	id int
	fn func()
}

// NewMap creates a map of width×height pixels. The map starts attached.
func NewMap(width, height int) *Map {
	return &Map{
		width:     width,
		height:    height,
		tileSize:  geo.DefaultTileSize,
		attached:  true,
		listeners: make(map[Event][]listener),
	}
}

// SetPane connects the icon pane redrawn on every frame.
func (m *Map) SetPane(p *Pane) { m.pane = p }

// SetAttached marks the map as showing (or not) an active viewport.
// A detached map has no projection and no bounds.
func (m *Map) SetAttached(attached bool) { m.attached = attached }

// SetView moves the viewport. It fires zoom_changed when the zoom
// differs from the current one.
func (m *Map) SetView(center orb.Point, zoom float64, width, height int) {
	if width > 0 {
		m.width = width
	}
	if height > 0 {
		m.height = height
	}
	m.center = center
	changed := zoom != m.zoom
	m.zoom = zoom
	if changed {
		m.Trigger(EventZoomChanged)
	}
}

// Settle fires the idle event, as a map does once panning has stopped.
func (m *Map) Settle() { m.Trigger(EventIdle) }

func (m *Map) Zoom() float64     { return m.zoom }
func (m *Map) Center() orb.Point { return m.center }
func (m *Map) Size() (int, int)  { return m.width, m.height }

// Projection returns the viewport pixel projection, nil while detached.
func (m *Map) Projection() geo.Projection {
	if !m.attached {
		return nil
	}
	return m.mercator()
}

func (m *Map) mercator() *geo.WebMercator {
	proj := &geo.WebMercator{Zoom: m.zoom, TileSize: m.tileSize}
	c := proj.ToPixel(m.center)
	proj.Origin = geo.Pixel{
		X: c.X - float64(m.width)/2,
		Y: c.Y - float64(m.height)/2,
	}
	return proj
}

// Bounds returns the visible rectangle. Views spanning the antimeridian
// produce wrapping bounds; views wider than the world cover every
// longitude.
func (m *Map) Bounds() (geo.Bounds, bool) {
	if !m.attached || m.width <= 0 || m.height <= 0 {
		return geo.Bounds{}, false
	}
	proj := m.mercator()
	sw := proj.ToPoint(geo.Pixel{X: 0, Y: float64(m.height)})
	ne := proj.ToPoint(geo.Pixel{X: float64(m.width), Y: 0})

	if float64(m.width) >= proj.WorldSize() {
		return geo.NewBounds(orb.Point{-180, sw.Lat()}, orb.Point{180, ne.Lat()}), true
	}
	return geo.NewBounds(
		orb.Point{wrapLng(sw.Lon()), sw.Lat()},
		orb.Point{wrapLng(ne.Lon()), ne.Lat()},
	), true
}

func wrapLng(lng float64) float64 {
	if lng >= -180 && lng <= 180 {
		return lng
	}
	return math.Mod(math.Mod(lng+180, 360)+360, 360) - 180
}

// On registers fn for ev. The returned func removes the listener.
func (m *Map) On(ev Event, fn func()) (remove func()) {
	return m.add(ev, fn, false)
}

// Once registers fn for the next ev only.
func (m *Map) Once(ev Event, fn func()) (remove func()) {
	return m.add(ev, fn, true)
}

func (m *Map) add(ev Event, fn func(), once bool) func() {
	m.nextID++
	id := m.nextID
	m.listeners[ev] = append(m.listeners[ev], listener{id: id, fn: fn, once: once})
	return func() { m.removeListener(ev, id) }
}

func (m *Map) removeListener(ev Event, id int) {
	ls := m.listeners[ev]
	for i, l := range ls {
		if l.id == id {
			m.listeners[ev] = append(ls[:i:i], ls[i+1:]...)
			return
		}
	}
}

// Trigger runs the listeners of ev in registration order.
func (m *Map) Trigger(ev Event) {
	ls := append([]listener(nil), m.listeners[ev]...)
	for _, l := range ls {
		if l.once {
			m.removeListener(ev, l.id)
		}
		l.fn()
	}
}

// ListenerCount returns the number of listeners registered for ev.
func (m *Map) ListenerCount(ev Event) int { return len(m.listeners[ev]) }

// RequestFrame queues fn for the next frame. The returned func cancels it.
func (m *Map) RequestFrame(fn func()) (cancel func()) {
	m.nextID++
	id := m.nextID
	m.frames = append(m.frames, frameTask{id: id, fn: fn})
	return func() {
		for i, t := range m.frames {
			if t.id == id {
				m.frames = append(m.frames[:i:i], m.frames[i+1:]...)
				return
			}
		}
	}
}

// PendingFrames returns the number of queued frame callbacks.
func (m *Map) PendingFrames() int { return len(m.frames) }

// RenderFrame draws the icon pane and then runs the callbacks queued
// before the frame started.
func (m *Map) RenderFrame() {
	if m.pane != nil {
		m.pane.Draw(m.Projection())
	}
	tasks := m.frames
	m.frames = nil
	for _, t := range tasks {
		t.fn()
	}
}
