package geo

import "strconv"

// Labeler hands out sequential vertex names A, B, ... Z and wraps back to A.
// The zero value starts at A.
type Labeler struct {
	next int
}

// Next returns the next label.
func (l *Labeler) Next() string {
	s := string(rune('A' + l.next))
	l.next = (l.next + 1) % 26
	return s
}

// Reset restarts the sequence at A.
func (l *Labeler) Reset() { l.next = 0 }

// SegmentLabel names the edge between two vertices, e.g. "AB". Unnamed
// vertices fall back to their 1-based position.
func SegmentLabel(from, to GeoPoint, i, j int) string {
	a := from.Name
	if a == "" {
		a = strconv.Itoa(i + 1)
	}
	b := to.Name
	if b == "" {
		b = strconv.Itoa(j + 1)
	}
	return a + b
}
