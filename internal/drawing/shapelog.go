package drawing

import "field-geo/internal/geo"

// ShapeLog is the append-only list of completed shapes. Clearing one shape
// leaves a tombstone so the indices of the others never move.
type ShapeLog struct {
	shapes []geo.Polygon
}

// Entry is a live shape and its stable log index.
type Entry struct {
	Index    int         `json:"index"`
	Vertices geo.Polygon `json:"vertices"`
}

// Append stores a copy of p and returns its index.
func (l *ShapeLog) Append(p geo.Polygon) int {
	l.shapes = append(l.shapes, p.Clone())
	return len(l.shapes) - 1
}

// ClearShape tombstones shape i. It reports false for an unknown or already
// cleared index.
func (l *ShapeLog) ClearShape(i int) bool {
	if i < 0 || i >= len(l.shapes) || l.shapes[i] == nil {
		return false
	}
	l.shapes[i] = nil
	return true
}

// At returns a copy of a live shape.
func (l *ShapeLog) At(i int) (geo.Polygon, bool) {
	if i < 0 || i >= len(l.shapes) || l.shapes[i] == nil {
		return nil, false
	}
	return l.shapes[i].Clone(), true
}

// Live lists the shapes that have not been cleared, in append order.
func (l *ShapeLog) Live() []Entry {
	var out []Entry
	for i, s := range l.shapes {
		if s != nil {
			out = append(out, Entry{Index: i, Vertices: s.Clone()})
		}
	}
	return out
}

// Len counts all appended shapes, tombstones included.
func (l *ShapeLog) Len() int { return len(l.shapes) }

func (l *ShapeLog) Reset() { l.shapes = nil }

// indexed exposes the log with tombstones as nil polygons, so a position in
// the returned slice is the log index. Callers must not modify it.
func (l *ShapeLog) indexed() []geo.Polygon { return l.shapes }
