// Package geometry holds the pure geometric functions of the field engine:
// area from declared side lengths, point-in-polygon classification and
// nearest-vertex search in pixel space.
package geometry

import (
	"errors"
	"math"

	"field-geo/internal/geo"
)

// SquareMetersPerHectare converts m² to hectares.
const SquareMetersPerHectare = 10000.0

// ErrDegenerate marks side lengths that cannot form a shape under the area
// formula (negative discriminant, negative or non-finite side).
var ErrDegenerate = errors.New("degenerate side lengths")

// AreaFromSides estimates a parcel area in hectares from operator-declared
// side lengths in metres, in polygon edge order.
//
//   - fewer than 3 sides: 0
//   - 3 sides: Heron's formula
//   - 4 sides: Brahmagupta, sqrt((s-a)(s-b)(s-c)(s-d)). Exact only for cyclic
//     quadrilaterals; for other quadrilaterals it over-estimates.
//   - 5+ sides: fan of pseudo-triangles (side[0], side[i], side[i+1]) for
//     i = 1..n-2, each measured with Heron. Side lengths alone do not fix the
//     interior angles, so this is an approximation, not a triangulation.
//
// Degenerate input yields 0, never NaN.
func AreaFromSides(sides []float64) float64 {
	a, err := AreaFromSidesChecked(sides)
	if err != nil {
		return 0
	}
	return a
}

// AreaFromSideLengths is AreaFromSides over SideLength entries.
func AreaFromSideLengths(sides []geo.SideLength) float64 {
	return AreaFromSides(geo.Lengths(sides))
}

// AreaFromSidesChecked is AreaFromSides reporting ErrDegenerate instead of
// silently returning 0. Fewer than 3 sides is not an error.
func AreaFromSidesChecked(sides []float64) (float64, error) {
	n := len(sides)
	if n < 3 {
		return 0, nil
	}
	for _, s := range sides {
		if s < 0 || math.IsNaN(s) || math.IsInf(s, 0) {
			return 0, ErrDegenerate
		}
	}
	var m2 float64
	switch n {
	case 3:
		a, ok := heron(sides[0], sides[1], sides[2])
		if !ok {
			return 0, ErrDegenerate
		}
		m2 = a
	case 4:
		a, ok := brahmagupta(sides[0], sides[1], sides[2], sides[3])
		if !ok {
			return 0, ErrDegenerate
		}
		m2 = a
	default:
		for i := 1; i <= n-2; i++ {
			a, ok := heron(sides[0], sides[i], sides[i+1])
			if !ok {
				return 0, ErrDegenerate
			}
			m2 += a
		}
	}
	return m2 / SquareMetersPerHectare, nil
}

// heron returns the triangle area in m² and false when the sides violate the
// triangle inequality.
func heron(a, b, c float64) (float64, bool) {
	s := (a + b + c) / 2
	d := s * (s - a) * (s - b) * (s - c)
	if d < 0 {
		return 0, false
	}
	return math.Sqrt(d), true
}

func brahmagupta(a, b, c, d float64) (float64, bool) {
	s := (a + b + c + d) / 2
	p := (s - a) * (s - b) * (s - c) * (s - d)
	if p < 0 {
		return 0, false
	}
	return math.Sqrt(p), true
}
