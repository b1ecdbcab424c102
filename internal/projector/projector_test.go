package projector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"field-geo/internal/geo"
)

func readyViewport() *Viewport {
	v := NewViewport()
	v.Resize(800, 600)
	v.SetView(48.85, 2.35, 15)
	return v
}

func TestViewportNotReadyReturnsSentinel(t *testing.T) {
	v := NewViewport()
	assert.False(t, v.Ready())
	assert.Equal(t, geo.PixelPoint{}, v.ToPixel(48, 2))
	assert.Equal(t, geo.GeoPoint{}, v.ToGeo(100, 100))
}

func TestViewportCenterProjectsToMiddle(t *testing.T) {
	v := readyViewport()
	px := v.ToPixel(48.85, 2.35)
	assert.InDelta(t, 400, px.X, 1e-6)
	assert.InDelta(t, 300, px.Y, 1e-6)
}

func TestViewportRoundTrip(t *testing.T) {
	v := readyViewport()
	cases := []geo.GeoPoint{{Lat: 48.85, Lng: 2.35}, {Lat: 48.851, Lng: 2.352}, {Lat: 48.84, Lng: 2.33}}
	for _, c := range cases {
		px := v.ToPixel(c.Lat, c.Lng)
		back := v.ToGeo(px.X, px.Y)
		assert.InDelta(t, c.Lat, back.Lat, 1e-9)
		assert.InDelta(t, c.Lng, back.Lng, 1e-9)
	}
}

func TestViewportPanInvalidatesPixels(t *testing.T) {
	v := readyViewport()
	before := v.ToGeo(120, 80)

	v.PanBy(50, -30)

	after := v.ToGeo(120, 80)
	assert.NotEqual(t, before.Lat, after.Lat)
	assert.NotEqual(t, before.Lng, after.Lng)

	// round trip still holds for the new state
	px := v.ToPixel(before.Lat, before.Lng)
	back := v.ToGeo(px.X, px.Y)
	assert.InDelta(t, before.Lat, back.Lat, 1e-9)
	assert.InDelta(t, before.Lng, back.Lng, 1e-9)
	// and the old point moved on screen by the pan offset
	assert.InDelta(t, 120-50, px.X, 1e-6)
	assert.InDelta(t, 80+30, px.Y, 1e-6)
}

func TestViewportZoomInvalidatesPixels(t *testing.T) {
	v := readyViewport()
	before := v.ToGeo(10, 10)
	v.ZoomTo(16)
	after := v.ToGeo(10, 10)
	assert.NotEqual(t, before, after)

	px := v.ToPixel(before.Lat, before.Lng)
	back := v.ToGeo(px.X, px.Y)
	assert.InDelta(t, before.Lat, back.Lat, 1e-9)
	assert.InDelta(t, before.Lng, back.Lng, 1e-9)
}

func TestViewportZoomAroundKeepsAnchor(t *testing.T) {
	v := readyViewport()
	anchor := geo.PixelPoint{X: 600, Y: 150}
	g := v.ToGeo(anchor.X, anchor.Y)
	v.ZoomAround(anchor, 17)
	px := v.ToPixel(g.Lat, g.Lng)
	assert.InDelta(t, anchor.X, px.X, 1e-6)
	assert.InDelta(t, anchor.Y, px.Y, 1e-6)
}

func TestViewportChangeNotifications(t *testing.T) {
	v := NewViewport()
	n := 0
	v.OnChange(func() { n++ })
	v.Resize(100, 100)
	v.SetView(0, 0, 3)
	v.PanBy(1, 1)
	v.ZoomTo(4)
	assert.Equal(t, 4, n)
}

func TestViewportClamps(t *testing.T) {
	v := NewViewport()
	v.SetView(89, 190, 40)
	c := v.Center()
	assert.InDelta(t, MaxLatitude, c.Lat, 1e-9)
	assert.InDelta(t, -170, c.Lng, 1e-9)
	assert.Equal(t, MaxZoom, v.Zoom())
}

func TestAffineRoundTrip(t *testing.T) {
	p := NewAffine(1000, 0, 50, 0, -1000, 900)
	require.True(t, p.Ready())
	px := p.ToPixel(0.3, 0.2)
	assert.InDelta(t, 250, px.X, 1e-9)
	assert.InDelta(t, 600, px.Y, 1e-9)
	g := p.ToGeo(px.X, px.Y)
	assert.InDelta(t, 0.3, g.Lat, 1e-12)
	assert.InDelta(t, 0.2, g.Lng, 1e-12)
}

func TestAffineSingularNeverReady(t *testing.T) {
	p := NewAffine(1, 2, 0, 2, 4, 0)
	assert.False(t, p.Ready())
	assert.Equal(t, geo.PixelPoint{}, p.ToPixel(1, 1))
	assert.Equal(t, geo.GeoPoint{}, p.ToGeo(1, 1))
}

func TestImplementations(t *testing.T) {
	var _ Projector = NewViewport()
	var _ Projector = NewAffine(1, 0, 0, 0, 1, 0)
}
