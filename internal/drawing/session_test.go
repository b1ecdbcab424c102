package drawing

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"field-geo/internal/geo"
	"field-geo/internal/geometry"
	"field-geo/internal/projector"
	"field-geo/internal/region"
)

// 1000 px per degree, north up, latitude 1 at the top edge.
func testProjector() *projector.Affine { return projector.NewAffine(1000, 0, 0, 0, -1000, 1000) }

func px(x, y float64) geo.PixelPoint { return geo.PixelPoint{X: x, Y: y} }

func click(t *testing.T, s *Session, x, y float64) Result {
	t.Helper()
	r, err := s.Click(px(x, y))
	require.NoError(t, err)
	return r
}

// triangle P1 (0.1,0.1), P2 (0.1,0.3), P3 (0.3,0.3) as lat,lng
func drawTriangle(t *testing.T, s *Session) Result {
	t.Helper()
	assert.Equal(t, Started, click(t, s, 100, 900).Action)
	assert.Equal(t, Extended, click(t, s, 300, 900).Action)
	assert.Equal(t, Extended, click(t, s, 300, 700).Action)
	return click(t, s, 103, 902)
}

func TestClosureOnFirstVertex(t *testing.T) {
	s := NewSession(testProjector(), Config{})
	r := drawTriangle(t, s)

	assert.Equal(t, Closed, r.Action)
	assert.Equal(t, 0, r.ShapeIndex)
	require.Len(t, r.Shape, 3)
	assert.InDelta(t, 0.1, r.Shape[0].Lat, 1e-9)
	assert.InDelta(t, 0.1, r.Shape[0].Lng, 1e-9)
	assert.InDelta(t, 0.3, r.Shape[1].Lng, 1e-9)
	assert.InDelta(t, 0.3, r.Shape[2].Lat, 1e-9)
	assert.Equal(t, []string{"A", "B", "C"}, []string{r.Shape[0].Name, r.Shape[1].Name, r.Shape[2].Name})

	assert.Equal(t, Idle, s.Mode())
	assert.Empty(t, s.Current())
	shapes := s.Shapes()
	require.Len(t, shapes, 1)
	assert.Equal(t, r.Shape, shapes[0].Vertices)
}

func TestSnapToCompletedVertexCopies(t *testing.T) {
	s := NewSession(testProjector(), Config{})
	drawTriangle(t, s)
	p1 := s.Shapes()[0].Vertices[0]

	r := click(t, s, 101, 899)
	assert.Equal(t, Started, r.Action)
	assert.True(t, r.Snapped)

	cur := s.Current()
	require.Len(t, cur, 1)
	assert.Equal(t, p1.Lat, cur[0].Lat)
	assert.Equal(t, p1.Lng, cur[0].Lng)
	assert.NotEqual(t, p1.ID, cur[0].ID)

	// the stored shape is not aliased by the new vertex
	s.current[0].Lat = 42
	assert.Equal(t, p1.Lat, s.Shapes()[0].Vertices[0].Lat)
}

func TestSnapWhileBuildingKeepsCapturing(t *testing.T) {
	s := NewSession(testProjector(), Config{})
	drawTriangle(t, s)

	click(t, s, 500, 500)
	r := click(t, s, 300, 901)
	assert.Equal(t, Extended, r.Action)
	assert.True(t, r.Snapped)
	assert.Equal(t, Capturing, s.Mode())
	assert.Len(t, s.Current(), 2)
}

func TestCloseOntoNeighbourCorner(t *testing.T) {
	s := NewSession(testProjector(), Config{})
	drawTriangle(t, s)

	click(t, s, 600, 600)
	click(t, s, 800, 600)
	click(t, s, 800, 400)
	r := click(t, s, 298, 702)

	assert.Equal(t, Closed, r.Action)
	assert.True(t, r.Snapped)
	assert.Equal(t, 1, r.ShapeIndex)
	require.Len(t, r.Shape, 4)
	corner := s.Shapes()[0].Vertices[2]
	assert.True(t, r.Shape[3].SamePosition(corner))
	assert.Equal(t, "D", r.Shape[3].Name)
	assert.Equal(t, Idle, s.Mode())
}

func TestSnapToOwnVertexWhileShort(t *testing.T) {
	s := NewSession(testProjector(), Config{})
	click(t, s, 100, 900)
	click(t, s, 300, 900)

	// first vertex with fewer than three: a snapped copy, no closure
	r := click(t, s, 101, 900)
	assert.Equal(t, Extended, r.Action)
	assert.True(t, r.Snapped)
	cur := s.Current()
	require.Len(t, cur, 3)
	assert.True(t, cur[2].SamePosition(cur[0]))
	assert.NotEqual(t, cur[0].ID, cur[2].ID)
	assert.Equal(t, "C", cur[2].Name)
	assert.Equal(t, Capturing, s.Mode())
}

func TestCloseOntoOwnNonFirstVertex(t *testing.T) {
	s := NewSession(testProjector(), Config{})
	click(t, s, 100, 900)
	click(t, s, 300, 900)
	click(t, s, 300, 700)

	r := click(t, s, 301, 701)
	assert.Equal(t, Closed, r.Action)
	assert.True(t, r.Snapped)
	assert.Equal(t, 0, r.ShapeIndex)
	require.Len(t, r.Shape, 4)
	assert.True(t, r.Shape[3].SamePosition(r.Shape[2]))
	assert.Equal(t, "D", r.Shape[3].Name)
	assert.Equal(t, Idle, s.Mode())
	assert.Empty(t, s.Current())
	assert.Len(t, s.Shapes(), 1)
}

func TestTerritoryRejectsWithoutMutation(t *testing.T) {
	terr := BoundsTerritory{MinLat: 0, MinLng: 0, MaxLat: 0.5, MaxLng: 0.5}
	s := NewSession(testProjector(), Config{Territory: terr})

	r, err := s.Click(px(900, 100))
	assert.True(t, errors.Is(err, ErrOutOfBounds))
	assert.Equal(t, Rejected, r.Action)
	assert.Equal(t, WarnOutOfBounds, r.Warning)
	assert.Equal(t, Idle, s.Mode())

	click(t, s, 100, 900)
	before := s.State()
	_, err = s.Click(px(900, 900))
	assert.ErrorIs(t, err, ErrOutOfBounds)
	assert.Equal(t, before, s.State())

	// labels are not consumed by rejected clicks
	assert.Equal(t, "B", click(t, s, 200, 900).Vertex.Name)
}

func TestNotReadyProjectorIsGated(t *testing.T) {
	s := NewSession(projector.NewViewport(), Config{})
	r, err := s.Click(px(10, 10))
	assert.ErrorIs(t, err, ErrProjectorNotReady)
	assert.Equal(t, Ignored, r.Action)
	assert.Equal(t, Idle, s.Mode())

	s = NewSession(nil, Config{})
	_, err = s.Click(px(10, 10))
	assert.ErrorIs(t, err, ErrProjectorNotReady)
}

func TestHoverAndRubberBand(t *testing.T) {
	p := testProjector()
	s := NewSession(p, Config{})
	assert.False(t, s.Move(px(5, 5)), "idle ignores moves")
	_, _, ok := s.RubberBand()
	assert.False(t, ok)

	click(t, s, 100, 900)
	click(t, s, 300, 900)
	assert.True(t, s.Move(px(250, 800)))
	from, to, ok := s.RubberBand()
	require.True(t, ok)
	assert.InDelta(t, 300, from.X, 1e-6)
	assert.InDelta(t, 900, from.Y, 1e-6)
	assert.Equal(t, px(250, 800), to)
	assert.NotNil(t, s.State().Band)

	s.Leave()
	assert.Nil(t, s.State().Hover)
	assert.Len(t, s.Current(), 2, "leaving keeps vertices")

	s.Move(px(1, 1))
	click(t, s, 300, 700)
	click(t, s, 100, 900)
	assert.Nil(t, s.State().Hover, "closing clears hover")
}

func TestViewportChangeDropsHover(t *testing.T) {
	v := projector.NewViewport()
	v.Resize(800, 600)
	v.SetView(48.1, 11.5, 15)
	s := NewSession(v, Config{})
	v.OnChange(s.InvalidatePixels)

	click(t, s, 400, 300)
	s.Move(px(420, 310))
	require.NotNil(t, s.State().Hover)
	v.PanBy(15, 0)
	assert.Nil(t, s.State().Hover)
	assert.Len(t, s.Current(), 1)
}

func TestClearResetsEverything(t *testing.T) {
	s := NewSession(testProjector(), Config{})
	drawTriangle(t, s)
	click(t, s, 600, 600)
	s.Move(px(610, 610))

	s.Clear()
	st := s.State()
	assert.Equal(t, Idle, st.Mode)
	assert.Empty(t, st.Current)
	assert.Empty(t, st.Shapes)
	assert.Nil(t, st.Hover)
	assert.Equal(t, "A", click(t, s, 600, 600).Vertex.Name)
}

func TestClearShapeKeepsIndices(t *testing.T) {
	s := NewSession(testProjector(), Config{})
	drawTriangle(t, s)
	click(t, s, 600, 600)
	click(t, s, 800, 600)
	click(t, s, 800, 400)
	r := click(t, s, 601, 601)
	require.Equal(t, 1, r.ShapeIndex)

	assert.True(t, s.ClearShape(0))
	assert.False(t, s.ClearShape(0))
	assert.False(t, s.ClearShape(7))
	shapes := s.Shapes()
	require.Len(t, shapes, 1)
	assert.Equal(t, 1, shapes[0].Index)

	// vertices of a cleared shape no longer snap
	r = click(t, s, 101, 899)
	assert.False(t, r.Snapped)
}

func TestTerritories(t *testing.T) {
	b, err := ParseBounds("0, 0, 1, 2")
	require.NoError(t, err)
	assert.True(t, b.Allows(geo.GeoPoint{Lat: 0.5, Lng: 1.5}))
	assert.False(t, b.Allows(geo.GeoPoint{Lat: 1.5, Lng: 1.5}))
	_, err = ParseBounds("1,2,3")
	assert.Error(t, err)
	_, err = ParseBounds("2,0,1,1")
	assert.Error(t, err)

	ring := [][2]float64{{10, 10}, {11, 10}, {11, 11}, {10, 11}}
	rs := []region.RegionPolygon{square("in", ring), square("other", [][2]float64{{20, 20}, {21, 20}, {21, 21}, {20, 21}})}
	ix := region.NewIndex(rs)

	only := NewRegionTerritory(ix, "in")
	assert.True(t, only.Allows(geo.GeoPoint{Lat: 10.5, Lng: 10.5}))
	assert.False(t, only.Allows(geo.GeoPoint{Lat: 20.5, Lng: 20.5}))
	all := NewRegionTerritory(ix)
	assert.True(t, all.Allows(geo.GeoPoint{Lat: 20.5, Lng: 20.5}))
	assert.False(t, NewRegionTerritory(nil).Allows(geo.GeoPoint{}))

	either := AnyOf(b, only, nil)
	assert.True(t, either.Allows(geo.GeoPoint{Lat: 0.5, Lng: 0.5}))
	assert.True(t, either.Allows(geo.GeoPoint{Lat: 10.5, Lng: 10.5}))
	assert.False(t, either.Allows(geo.GeoPoint{Lat: 20.5, Lng: 20.5}))
	assert.Nil(t, AnyOf(nil))
	assert.Equal(t, Territory(b), AnyOf(b))
}

func square(id string, pts [][2]float64) region.RegionPolygon {
	ring := make(geometry.Ring, len(pts))
	for i, p := range pts {
		ring[i] = geometry.LngLat{p[0], p[1]}
	}
	rings := []geometry.Ring{ring}
	return region.RegionPolygon{ID: id, Name: id, Rings: rings, BBox: geometry.RingsBBox(rings)}
}

func TestSnapshotJSONRoundTrip(t *testing.T) {
	s := NewSession(testProjector(), Config{})
	click(t, s, 100, 900)
	s.Move(px(150, 880))
	b, err := json.Marshal(s.State())
	require.NoError(t, err)
	assert.Contains(t, string(b), `"mode":"capturing"`)

	var back Snapshot
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, Capturing, back.Mode)
	assert.Len(t, back.Current, 1)
	require.NotNil(t, back.Band)

	var a Action
	require.NoError(t, a.UnmarshalText([]byte("closed")))
	assert.Equal(t, Closed, a)
	assert.Error(t, a.UnmarshalText([]byte("exploded")))
	var m Mode
	assert.Error(t, m.UnmarshalText([]byte("drawing")))
}
