// Package projector maps between geographic coordinates and the pixel space of
// the current map viewport.
//
// Pixel values are tied to the viewport state that produced them. Any pan,
// zoom or resize invalidates them; only GeoPoint values may be retained.
package projector

import "field-geo/internal/geo"

// Projector is the contract consumed by the drawing core. Implementations
// must return the (0,0) sentinel from both conversions while Ready is false;
// callers gate interaction on Ready instead of trusting the sentinel.
type Projector interface {
	ToPixel(lat, lng float64) geo.PixelPoint
	ToGeo(x, y float64) geo.GeoPoint
	Ready() bool
}
