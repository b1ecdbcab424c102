// Package drawing turns pointer events into field boundaries. A Session is
// the single owner of one drawing surface's state: the vertices being
// captured, the log of completed shapes and the hover position used for the
// rubber band preview. It is not safe for concurrent use; callers serialise
// events per session.
package drawing

import (
	"errors"
	"fmt"

	"field-geo/internal/geo"
	"field-geo/internal/geometry"
	"field-geo/internal/logger"
	"field-geo/internal/projector"
)

var (
	ErrOutOfBounds       = errors.New("point outside permitted territory")
	ErrProjectorNotReady = errors.New("projector not ready")
)

// WarnOutOfBounds is shown to the user when a click is rejected.
const WarnOutOfBounds = "Fields can only be drawn inside the permitted area."

type Mode int

const (
	Idle Mode = iota
	Capturing
)

func (m Mode) String() string {
	if m == Capturing {
		return "capturing"
	}
	return "idle"
}

func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *Mode) UnmarshalText(b []byte) error {
	switch string(b) {
	case "idle":
		*m = Idle
	case "capturing":
		*m = Capturing
	default:
		return fmt.Errorf("unknown mode %q", b)
	}
	return nil
}

// Action describes what a click did.
type Action int

const (
	Ignored Action = iota
	Started
	Extended
	Closed
	Rejected
)

var actionNames = [...]string{"ignored", "started", "extended", "closed", "rejected"}

func (a Action) String() string {
	if a < 0 || int(a) >= len(actionNames) {
		return "unknown"
	}
	return actionNames[a]
}

func (a Action) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *Action) UnmarshalText(b []byte) error {
	for i, n := range actionNames {
		if n == string(b) {
			*a = Action(i)
			return nil
		}
	}
	return fmt.Errorf("unknown action %q", b)
}

// Result reports a click outcome. Shape and ShapeIndex are set when the
// click closed a shape; Snapped when the placed vertex copied an existing one.
type Result struct {
	Action     Action        `json:"action"`
	Snapped    bool          `json:"snapped,omitempty"`
	Vertex     *geo.GeoPoint `json:"vertex,omitempty"`
	Shape      geo.Polygon   `json:"shape,omitempty"`
	ShapeIndex int           `json:"shapeIndex"`
	Warning    string        `json:"warning,omitempty"`
}

// Config tunes a session. A nil Territory leaves placement unconstrained; a
// non-positive tolerance falls back to geometry.DefaultSnapTolerancePx.
type Config struct {
	Territory   Territory
	TolerancePx float64
}

type Session struct {
	proj      projector.Projector
	territory Territory
	tolerance float64

	mode    Mode
	current []geo.GeoPoint
	shapes  ShapeLog
	hover   *geo.PixelPoint
	labels  geo.Labeler
}

func NewSession(p projector.Projector, cfg Config) *Session {
	tol := cfg.TolerancePx
	if tol <= 0 {
		tol = geometry.DefaultSnapTolerancePx
	}
	return &Session{proj: p, territory: cfg.Territory, tolerance: tol}
}

// Projector returns the projector the session converts pixels with.
func (s *Session) Projector() projector.Projector { return s.proj }

func (s *Session) Mode() Mode { return s.mode }

// Click applies one pointer click at px.
//
// Idle: start a shape with a copy of the vertex under the pointer, or with
// the projected point.
// Capturing: a hit on the shape's own first vertex closes it once it has at
// least three vertices. Any other hit, on the shape itself or on a completed
// shape, appends a copy and, from three vertices on, closes the shape onto
// that corner. Anything else appends the projected point.
//
// Only projected points are checked against the territory; snapped copies
// already lie on an accepted vertex. A rejected click changes nothing.
func (s *Session) Click(px geo.PixelPoint) (Result, error) {
	if s.proj == nil || !s.proj.Ready() {
		return Result{Action: Ignored}, ErrProjectorNotReady
	}
	hit, ok := geometry.NearestVertex(s.proj, px, s.current, s.shapes.indexed(), s.tolerance)

	if s.mode == Idle {
		var v geo.GeoPoint
		if ok {
			v = hit.Point.Copy()
		} else {
			var err error
			if v, err = s.project(px); err != nil {
				return Result{Action: Rejected, Warning: WarnOutOfBounds}, err
			}
		}
		s.labels.Reset()
		v.Name = s.labels.Next()
		s.current = []geo.GeoPoint{v}
		s.mode = Capturing
		return Result{Action: Started, Snapped: ok, Vertex: &v}, nil
	}

	n := len(s.current)
	if ok && hit.InCurrent() && hit.Index == 0 && n >= 3 {
		return s.close(), nil
	}
	if ok {
		v := hit.Point.Copy()
		v.Name = s.labels.Next()
		s.current = append(s.current, v)
		if n >= 3 {
			r := s.close()
			r.Snapped = true
			r.Vertex = &v
			return r, nil
		}
		return Result{Action: Extended, Snapped: true, Vertex: &v}, nil
	}
	v, err := s.project(px)
	if err != nil {
		return Result{Action: Rejected, Warning: WarnOutOfBounds}, err
	}
	v.Name = s.labels.Next()
	s.current = append(s.current, v)
	return Result{Action: Extended, Vertex: &v}, nil
}

// project converts px and applies the territory. The returned point has an
// id but no name yet.
func (s *Session) project(px geo.PixelPoint) (geo.GeoPoint, error) {
	g := s.proj.ToGeo(px.X, px.Y)
	if !g.Valid() || (s.territory != nil && !s.territory.Allows(g)) {
		logger.L().Debug("click_rejected", "lat", g.Lat, "lng", g.Lng)
		return geo.GeoPoint{}, ErrOutOfBounds
	}
	return geo.GeoPoint{Lat: g.Lat, Lng: g.Lng, ID: geo.NewID()}, nil
}

func (s *Session) close() Result {
	poly := geo.Polygon(s.current)
	idx := s.shapes.Append(poly)
	s.current = nil
	s.hover = nil
	s.mode = Idle
	logger.L().Debug("shape_closed", "index", idx, "vertices", len(poly))
	return Result{Action: Closed, Shape: poly.Clone(), ShapeIndex: idx}
}

// Move records the pointer position for the rubber band. It only has an
// effect while capturing.
func (s *Session) Move(px geo.PixelPoint) bool {
	if s.mode != Capturing {
		return false
	}
	s.hover = &px
	return true
}

// Leave forgets the hover position. Captured vertices are kept.
func (s *Session) Leave() { s.hover = nil }

// InvalidatePixels drops every cached pixel position. Register it as a
// viewport change listener.
func (s *Session) InvalidatePixels() { s.hover = nil }

// RubberBand returns the preview segment from the last placed vertex,
// projected against the current viewport, to the hover position.
func (s *Session) RubberBand() (from, to geo.PixelPoint, ok bool) {
	if s.mode != Capturing || s.hover == nil || len(s.current) == 0 || s.proj == nil || !s.proj.Ready() {
		return geo.PixelPoint{}, geo.PixelPoint{}, false
	}
	last := s.current[len(s.current)-1]
	return s.proj.ToPixel(last.Lat, last.Lng), *s.hover, true
}

// Clear drops the shape in progress and every completed shape.
func (s *Session) Clear() {
	s.current = nil
	s.shapes.Reset()
	s.hover = nil
	s.labels.Reset()
	s.mode = Idle
}

// ClearShape removes one completed shape by its log index.
func (s *Session) ClearShape(i int) bool { return s.shapes.ClearShape(i) }

// Current returns a copy of the vertices being captured.
func (s *Session) Current() []geo.GeoPoint {
	if len(s.current) == 0 {
		return nil
	}
	return append([]geo.GeoPoint(nil), s.current...)
}

// Shapes lists the live completed shapes.
func (s *Session) Shapes() []Entry { return s.shapes.Live() }

// Snapshot is a copy of the session state for rendering.
type Snapshot struct {
	Mode    Mode               `json:"mode"`
	Current []geo.GeoPoint     `json:"current"`
	Shapes  []Entry            `json:"shapes"`
	Hover   *geo.PixelPoint    `json:"hover,omitempty"`
	Band    *[2]geo.PixelPoint `json:"rubberBand,omitempty"`
}

func (s *Session) State() Snapshot {
	snap := Snapshot{Mode: s.mode, Current: s.Current(), Shapes: s.Shapes()}
	if s.hover != nil {
		h := *s.hover
		snap.Hover = &h
	}
	if from, to, ok := s.RubberBand(); ok {
		snap.Band = &[2]geo.PixelPoint{from, to}
	}
	return snap
}
