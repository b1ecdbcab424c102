package projector

import (
	"math"

	"field-geo/internal/geo"
)

// Affine is a projector backed by a 2x3 affine matrix from (lng, lat) to
// pixels, used for georeferenced static imagery where the map is a plain
// raster.
//
//	[a b tx]   x = a*lng + b*lat + tx
//	[c d ty]   y = c*lng + d*lat + ty
type Affine struct {
	A, B, TX float64
	C, D, TY float64

	inv   [6]float64
	ready bool
}

// NewAffine builds the projector and its inverse. A singular matrix yields a
// projector that is never ready.
func NewAffine(a, b, tx, c, d, ty float64) *Affine {
	p := &Affine{A: a, B: b, TX: tx, C: c, D: d, TY: ty}
	det := a*d - b*c
	if math.Abs(det) < 1e-12 {
		return p
	}
	inv := 1.0 / det
	p.inv = [6]float64{
		d * inv, -b * inv, (b*ty - d*tx) * inv,
		-c * inv, a * inv, (c*tx - a*ty) * inv,
	}
	p.ready = true
	return p
}

// Ready reports whether the matrix is invertible.
func (p *Affine) Ready() bool { return p != nil && p.ready }

func (p *Affine) ToPixel(lat, lng float64) geo.PixelPoint {
	if !p.Ready() {
		return geo.PixelPoint{}
	}
	return geo.PixelPoint{
		X: p.A*lng + p.B*lat + p.TX,
		Y: p.C*lng + p.D*lat + p.TY,
	}
}

func (p *Affine) ToGeo(x, y float64) geo.GeoPoint {
	if !p.Ready() {
		return geo.GeoPoint{}
	}
	m := p.inv
	return geo.GeoPoint{
		Lng: m[0]*x + m[1]*y + m[2],
		Lat: m[3]*x + m[4]*y + m[5],
	}
}
