package geometry

import (
	"math"

	"field-geo/internal/geo"
)

// EarthRadiusMeters is the mean Earth radius.
const EarthRadiusMeters = 6371000.0

// HaversineMeters returns the great-circle distance between two points. It
// only seeds default side lengths; area never uses it.
func HaversineMeters(a, b geo.GeoPoint) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat*math.Pi/180)*math.Cos(b.Lat*math.Pi/180)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return EarthRadiusMeters * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Centroid returns the vertex mean, used as the classification point of a
// field. It is not the area centroid.
func Centroid(poly geo.Polygon) (geo.GeoPoint, bool) {
	if len(poly) == 0 {
		return geo.GeoPoint{}, false
	}
	var lat, lng float64
	for _, p := range poly {
		lat += p.Lat
		lng += p.Lng
	}
	n := float64(len(poly))
	return geo.GeoPoint{Lat: lat / n, Lng: lng / n}, true
}
