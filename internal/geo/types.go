// Package geo holds the plain data shared by the drawing core: geographic
// vertices, viewport pixels, field boundaries and declared side lengths.
package geo

import (
	"math"

	"github.com/google/uuid"
)

// GeoPoint is a WGS84 vertex. Name is the human label given at creation,
// ID an opaque identifier that survives viewport changes.
type GeoPoint struct {
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
	Name string  `json:"name,omitempty"`
	ID   string  `json:"id,omitempty"`
}

// Valid reports whether the point lies inside the WGS84 coordinate range.
func (p GeoPoint) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// SamePosition compares coordinates only; labels and ids are ignored.
func (p GeoPoint) SamePosition(o GeoPoint) bool {
	return p.Lat == o.Lat && p.Lng == o.Lng
}

// Copy returns an independent vertex at the same position carrying the
// source label and a fresh id.
func (p GeoPoint) Copy() GeoPoint {
	return GeoPoint{Lat: p.Lat, Lng: p.Lng, Name: p.Name, ID: NewID()}
}

// PixelPoint is a viewport-relative position. It is only meaningful for the
// viewport state it was computed from and must not be kept across frames.
type PixelPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance in pixels.
func (p PixelPoint) Distance(o PixelPoint) float64 {
	dx := p.X - o.X
	dy := p.Y - o.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Polygon is a field boundary: ordered vertices with an implicit closing edge
// from the last vertex back to the first. Simplicity is not validated.
type Polygon []GeoPoint

// Clone returns a deep copy so callers cannot alias the stored vertices.
func (p Polygon) Clone() Polygon {
	if p == nil {
		return nil
	}
	out := make(Polygon, len(p))
	copy(out, p)
	return out
}

// Edges returns the number of edges including the closing one.
func (p Polygon) Edges() int {
	if len(p) < 3 {
		return 0
	}
	return len(p)
}

// SideLength is an operator-declared edge length. It corresponds to the
// polygon edge with the same index but is never derived from it implicitly.
type SideLength struct {
	SegmentLabel string  `json:"segmentLabel"`
	LengthMeters float64 `json:"lengthMeters"`
}

// Lengths extracts the metre values in order.
func Lengths(sides []SideLength) []float64 {
	out := make([]float64, len(sides))
	for i, s := range sides {
		out[i] = s.LengthMeters
	}
	return out
}

// NewID returns a random opaque identifier.
func NewID() string { return uuid.NewString() }
