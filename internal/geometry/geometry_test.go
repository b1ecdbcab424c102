package geometry

import (
	"errors"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"field-geo/internal/geo"
	"field-geo/internal/projector"
)

func heronRef(a, b, c float64) float64 {
	s := (a + b + c) / 2
	return math.Sqrt(s * (s - a) * (s - b) * (s - c))
}

func TestAreaTriangleMatchesHeron(t *testing.T) {
	cases := [][3]float64{{3, 4, 5}, {10, 10, 10}, {120.5, 80.25, 60}, {1, 1, 1.999}}
	for _, c := range cases {
		got := AreaFromSides(c[:])
		assert.InDelta(t, heronRef(c[0], c[1], c[2])/10000, got, 1e-12, "sides %v", c)
	}
	assert.InDelta(t, 0.0006, AreaFromSides([]float64{3, 4, 5}), 1e-15)
}

func TestAreaTriangleInequalityViolationIsZero(t *testing.T) {
	for _, c := range [][]float64{{1, 2, 10}, {1, 1, 3}, {100, 1, 1}} {
		got := AreaFromSides(c)
		assert.Equal(t, 0.0, got)
		assert.False(t, math.IsNaN(got))
		_, err := AreaFromSidesChecked(c)
		assert.True(t, errors.Is(err, ErrDegenerate))
	}
}

func TestAreaFewerThanThreeSides(t *testing.T) {
	assert.Equal(t, 0.0, AreaFromSides(nil))
	assert.Equal(t, 0.0, AreaFromSides([]float64{5}))
	assert.Equal(t, 0.0, AreaFromSides([]float64{5, 5}))
	_, err := AreaFromSidesChecked([]float64{5, 5})
	assert.NoError(t, err)
}

func TestAreaQuadrilateralBrahmagupta(t *testing.T) {
	// square 100 m x 100 m = 1 ha
	assert.InDelta(t, 1.0, AreaFromSides([]float64{100, 100, 100, 100}), 1e-12)
	// rectangle 200 x 50
	assert.InDelta(t, 1.0, AreaFromSides([]float64{200, 50, 200, 50}), 1e-12)
	// one side longer than the other three combined
	assert.Equal(t, 0.0, AreaFromSides([]float64{1, 1, 1, 10}))
}

func TestAreaFanForFiveOrMoreSides(t *testing.T) {
	// five equal sides: three equilateral pseudo-triangles of side 10
	want := 3 * heronRef(10, 10, 10) / 10000
	assert.InDelta(t, want, AreaFromSides([]float64{10, 10, 10, 10, 10}), 1e-12)

	sides := []float64{30, 20, 25, 18, 22, 27}
	var sum float64
	for i := 1; i <= len(sides)-2; i++ {
		sum += heronRef(sides[0], sides[i], sides[i+1])
	}
	assert.InDelta(t, sum/10000, AreaFromSides(sides), 1e-12)
}

func TestAreaFanDegenerateTriangleZeroesResult(t *testing.T) {
	assert.Equal(t, 0.0, AreaFromSides([]float64{1, 1, 50, 1, 1}))
}

func TestAreaRejectsNegativeAndNonFinite(t *testing.T) {
	assert.Equal(t, 0.0, AreaFromSides([]float64{-3, 4, 5}))
	assert.Equal(t, 0.0, AreaFromSides([]float64{math.NaN(), 4, 5}))
	assert.Equal(t, 0.0, AreaFromSides([]float64{math.Inf(1), 4, 5}))
}

func TestAreaFromSideLengths(t *testing.T) {
	sides := []geo.SideLength{{SegmentLabel: "AB", LengthMeters: 3}, {SegmentLabel: "BC", LengthMeters: 4}, {SegmentLabel: "CA", LengthMeters: 5}}
	assert.InDelta(t, 0.0006, AreaFromSideLengths(sides), 1e-15)
}

func square(x0, y0, x1, y1 float64) Ring {
	return Ring{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0}}
}

func TestPointInPolygonDonut(t *testing.T) {
	rings := []Ring{square(0, 0, 10, 10), square(3, 3, 7, 7)}
	assert.False(t, PointInPolygon(5, 5, rings))
	assert.True(t, PointInPolygon(1, 1, rings))
	assert.True(t, PointInPolygon(9, 9, rings))
	assert.False(t, PointInPolygon(11, 5, rings))
	assert.False(t, PointInPolygon(-1, -1, rings))
}

func TestPointInPolygonConcave(t *testing.T) {
	// U shape opening to the north
	u := Ring{{0, 0}, {6, 0}, {6, 6}, {4, 6}, {4, 2}, {2, 2}, {2, 6}, {0, 6}}
	assert.True(t, PointInRing(1, 1, u))
	assert.True(t, PointInRing(5, 5, u))
	assert.False(t, PointInRing(4, 3, u))
}

func toOrb(rings []Ring) orb.Polygon {
	out := make(orb.Polygon, len(rings))
	for i, r := range rings {
		out[i] = make(orb.Ring, len(r))
		for j, p := range r {
			out[i][j] = orb.Point(p)
		}
	}
	return out
}

func TestPointInPolygonMatchesPlanar(t *testing.T) {
	u := Ring{{0, 0}, {6, 0}, {6, 6}, {4, 6}, {4, 2}, {2, 2}, {2, 6}, {0, 6}, {0, 0}}
	rings := []Ring{u, square(0.5, 0.5, 1.5, 1.5)}
	poly := toOrb(rings)
	for i := 0; i < 22; i++ {
		for j := 0; j < 22; j++ {
			lng := -0.555 + 0.333*float64(i)
			lat := -0.555 + 0.333*float64(j)
			want := planar.PolygonContains(poly, orb.Point{lng, lat})
			assert.Equal(t, want, PointInPolygon(lat, lng, rings), "lat=%v lng=%v", lat, lng)
		}
	}
}

func TestPointInPolygonDegenerateInput(t *testing.T) {
	assert.False(t, PointInPolygon(0, 0, nil))
	assert.False(t, PointInRing(0, 0, Ring{{0, 0}, {1, 1}}))
}

func TestRingsBBox(t *testing.T) {
	b := RingsBBox([]Ring{square(-2, 1, 4, 3)})
	assert.Equal(t, BBox{-2, 1, 4, 3}, b)
	assert.True(t, b.Contains(2, 0))
	assert.False(t, b.Contains(5, 0))
	assert.False(t, RingsBBox(nil).Contains(0, 0))
}

// 1000 px per degree, north up.
func testProjector() projector.Projector { return projector.NewAffine(1000, 0, 0, 0, -1000, 0) }

func TestNearestVertexToleranceIsExclusive(t *testing.T) {
	p := testProjector()
	current := []geo.GeoPoint{{Lat: 0, Lng: 0, Name: "A"}, {Lat: 0, Lng: 0.05, Name: "B"}}

	_, ok := NearestVertex(p, geo.PixelPoint{X: 10, Y: 0}, current, nil, DefaultSnapTolerancePx)
	assert.False(t, ok)

	hit, ok := NearestVertex(p, geo.PixelPoint{X: 9.999, Y: 0}, current, nil, DefaultSnapTolerancePx)
	require.True(t, ok)
	assert.Equal(t, "A", hit.Point.Name)
	assert.True(t, hit.InCurrent())
	assert.Equal(t, 0, hit.Index)
}

func TestNearestVertexNoneWhenAllFar(t *testing.T) {
	p := testProjector()
	current := []geo.GeoPoint{{Lat: 0.1, Lng: 0.1}}
	completed := []geo.Polygon{{{Lat: 0.2, Lng: 0.2}, {Lat: 0.3, Lng: 0.2}, {Lat: 0.3, Lng: 0.3}}}
	_, ok := NearestVertex(p, geo.PixelPoint{X: 0, Y: 0}, current, completed, DefaultSnapTolerancePx)
	assert.False(t, ok)
}

func TestNearestVertexPrefersCurrentThenListOrder(t *testing.T) {
	p := testProjector()
	current := []geo.GeoPoint{{Lat: 0, Lng: 0, Name: "cur"}}
	completed := []geo.Polygon{
		{{Lat: 0, Lng: 0.001, Name: "s0"}, {Lat: 1, Lng: 1}, {Lat: 2, Lng: 2}},
		{{Lat: 0, Lng: 0.001, Name: "s1"}, {Lat: 1, Lng: 1}, {Lat: 2, Lng: 2}},
	}
	// closer to the completed vertex but current is scanned first
	hit, ok := NearestVertex(p, geo.PixelPoint{X: 0.9, Y: 0}, current, completed, DefaultSnapTolerancePx)
	require.True(t, ok)
	assert.Equal(t, "cur", hit.Point.Name)

	hit, ok = NearestVertex(p, geo.PixelPoint{X: 0.9, Y: 0}, nil, completed, DefaultSnapTolerancePx)
	require.True(t, ok)
	assert.Equal(t, "s0", hit.Point.Name)
	assert.Equal(t, 0, hit.Shape)
}

func TestNearestVertexNotReadyProjector(t *testing.T) {
	_, ok := NearestVertex(projector.NewViewport(), geo.PixelPoint{}, []geo.GeoPoint{{}}, nil, DefaultSnapTolerancePx)
	assert.False(t, ok)
	_, ok = NearestVertex(nil, geo.PixelPoint{}, []geo.GeoPoint{{}}, nil, DefaultSnapTolerancePx)
	assert.False(t, ok)
}

func TestHaversineMeters(t *testing.T) {
	// one degree of latitude is ~111.19 km on the mean sphere
	d := HaversineMeters(geo.GeoPoint{Lat: 0, Lng: 0}, geo.GeoPoint{Lat: 1, Lng: 0})
	assert.InDelta(t, 111195, d, 1)
	assert.Equal(t, 0.0, HaversineMeters(geo.GeoPoint{Lat: 5, Lng: 5}, geo.GeoPoint{Lat: 5, Lng: 5}))
}

func TestCentroid(t *testing.T) {
	c, ok := Centroid(geo.Polygon{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 2}, {Lat: 2, Lng: 2}, {Lat: 2, Lng: 0}})
	require.True(t, ok)
	assert.Equal(t, 1.0, c.Lat)
	assert.Equal(t, 1.0, c.Lng)
	_, ok = Centroid(nil)
	assert.False(t, ok)
}
