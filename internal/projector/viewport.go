package projector

import (
	"math"

	"field-geo/internal/geo"
)

const (
	tileSize = 256.0
	// MaxLatitude is the Web Mercator clipping latitude.
	MaxLatitude = 85.05112878
	MinZoom     = 0.0
	MaxZoom     = 22.0
)

// Viewport is a Web Mercator slippy-map view: a centre, a fractional zoom and
// a pixel size. It stays not ready until it has a non-zero size.
//
// Every mutation fires the OnChange listeners synchronously; listeners are
// expected to drop any PixelPoint they derived earlier.
type Viewport struct {
	centerLat float64
	centerLng float64
	zoom      float64
	width     float64
	height    float64
	listeners []func()
}

// NewViewport returns an uninitialised viewport centred on (0,0) at zoom 0.
func NewViewport() *Viewport { return &Viewport{} }

// Ready reports whether the widget has been laid out.
func (v *Viewport) Ready() bool { return v.width > 0 && v.height > 0 }

// OnChange registers a viewport-change listener.
func (v *Viewport) OnChange(fn func()) {
	if fn != nil {
		v.listeners = append(v.listeners, fn)
	}
}

func (v *Viewport) changed() {
	for _, fn := range v.listeners {
		fn()
	}
}

// Resize sets the widget size in pixels. Non-positive sizes make the
// viewport not ready again.
func (v *Viewport) Resize(width, height float64) {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	v.width, v.height = width, height
	v.changed()
}

// SetView moves the centre and zoom in one step.
func (v *Viewport) SetView(lat, lng, zoom float64) {
	v.centerLat = clampLat(lat)
	v.centerLng = wrapLng(lng)
	v.zoom = clampZoom(zoom)
	v.changed()
}

// PanBy shifts the centre by a screen offset, as a drag of (-dx,-dy) would.
func (v *Viewport) PanBy(dx, dy float64) {
	s := v.scale()
	cx, cy := project(v.centerLat, v.centerLng, s)
	lat, lng := unproject(cx+dx, cy+dy, s)
	v.centerLat = clampLat(lat)
	v.centerLng = wrapLng(lng)
	v.changed()
}

// ZoomTo changes the zoom keeping the centre.
func (v *Viewport) ZoomTo(zoom float64) {
	v.zoom = clampZoom(zoom)
	v.changed()
}

// ZoomAround changes the zoom keeping the geographic point under px fixed on
// screen, like a mouse-wheel zoom.
func (v *Viewport) ZoomAround(px geo.PixelPoint, zoom float64) {
	if !v.Ready() {
		v.ZoomTo(zoom)
		return
	}
	anchor := v.ToGeo(px.X, px.Y)
	v.zoom = clampZoom(zoom)
	s := v.scale()
	ax, ay := project(anchor.Lat, anchor.Lng, s)
	cx := ax - (px.X - v.width/2)
	cy := ay - (px.Y - v.height/2)
	lat, lng := unproject(cx, cy, s)
	v.centerLat = clampLat(lat)
	v.centerLng = wrapLng(lng)
	v.changed()
}

// Center returns the current centre.
func (v *Viewport) Center() geo.GeoPoint { return geo.GeoPoint{Lat: v.centerLat, Lng: v.centerLng} }

// Zoom returns the current zoom level.
func (v *Viewport) Zoom() float64 { return v.zoom }

// Size returns the widget size in pixels.
func (v *Viewport) Size() (float64, float64) { return v.width, v.height }

// ToPixel projects a coordinate into viewport pixels.
func (v *Viewport) ToPixel(lat, lng float64) geo.PixelPoint {
	if !v.Ready() {
		return geo.PixelPoint{}
	}
	s := v.scale()
	x, y := project(lat, lng, s)
	cx, cy := project(v.centerLat, v.centerLng, s)
	return geo.PixelPoint{X: x - cx + v.width/2, Y: y - cy + v.height/2}
}

// ToGeo converts viewport pixels back to a coordinate.
func (v *Viewport) ToGeo(x, y float64) geo.GeoPoint {
	if !v.Ready() {
		return geo.GeoPoint{}
	}
	s := v.scale()
	cx, cy := project(v.centerLat, v.centerLng, s)
	lat, lng := unproject(x-v.width/2+cx, y-v.height/2+cy, s)
	return geo.GeoPoint{Lat: lat, Lng: wrapLng(lng)}
}

func (v *Viewport) scale() float64 { return tileSize * math.Pow(2, v.zoom) }

// project returns world pixel coordinates at the given world size.
func project(lat, lng, scale float64) (float64, float64) {
	lat = clampLat(lat)
	siny := math.Sin(lat * math.Pi / 180)
	x := (lng + 180) / 360 * scale
	y := (0.5 - math.Log((1+siny)/(1-siny))/(4*math.Pi)) * scale
	return x, y
}

func unproject(x, y, scale float64) (float64, float64) {
	lng := x/scale*360 - 180
	n := math.Pi - 2*math.Pi*y/scale
	lat := 180 / math.Pi * math.Atan(math.Sinh(n))
	return lat, lng
}

func clampLat(lat float64) float64 {
	return math.Max(-MaxLatitude, math.Min(MaxLatitude, lat))
}

func clampZoom(z float64) float64 {
	return math.Max(MinZoom, math.Min(MaxZoom, z))
}

func wrapLng(lng float64) float64 {
	if lng >= -180 && lng <= 180 {
		return lng
	}
	return math.Mod(math.Mod(lng+180, 360)+360, 360) - 180
}
