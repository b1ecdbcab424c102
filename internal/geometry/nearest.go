package geometry

import (
	"field-geo/internal/geo"
	"field-geo/internal/projector"
)

// DefaultSnapTolerancePx is the snapping radius for vertex reuse and closure.
const DefaultSnapTolerancePx = 10.0

// VertexHit locates a vertex found by NearestVertex. Shape is -1 for the
// in-progress vertex list, otherwise the position in the completed list.
type VertexHit struct {
	Point geo.GeoPoint
	Shape int
	Index int
}

// InCurrent reports whether the hit belongs to the shape being drawn.
func (h VertexHit) InCurrent() bool { return h.Shape < 0 }

// NearestVertex returns the first vertex whose projected pixel position is
// strictly closer than tolerance to px. In-progress vertices are checked
// before completed shapes, each in list order, so ties resolve to the earlier
// vertex rather than the closer one. Nothing is found while the projector is
// not ready.
func NearestVertex(p projector.Projector, px geo.PixelPoint, current []geo.GeoPoint, completed []geo.Polygon, tolerance float64) (VertexHit, bool) {
	if p == nil || !p.Ready() {
		return VertexHit{}, false
	}
	for i, v := range current {
		if p.ToPixel(v.Lat, v.Lng).Distance(px) < tolerance {
			return VertexHit{Point: v, Shape: -1, Index: i}, true
		}
	}
	for s, shape := range completed {
		for i, v := range shape {
			if p.ToPixel(v.Lat, v.Lng).Distance(px) < tolerance {
				return VertexHit{Point: v, Shape: s, Index: i}, true
			}
		}
	}
	return VertexHit{}, false
}
