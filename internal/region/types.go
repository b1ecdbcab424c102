// Package region holds the administrative region dataset used to classify
// fields: GeoJSON loading and normalisation, containment lookup, a nearest
// region hint and per-session highlight state.
package region

import "field-geo/internal/geometry"

// UnknownName is the display name of a region whose properties carry no
// usable name.
const UnknownName = "unknown region"

// RegionPolygon is one polygon of a region. Rings[0] is the outer boundary,
// Rings[1:] are holes, vertices in [lng, lat] order. A MultiPolygon region is
// stored as several RegionPolygon values sharing ID and Name.
type RegionPolygon struct {
	ID    string
	Name  string
	Rings []geometry.Ring
	BBox  geometry.BBox
}

// Contains applies the bounding box prefilter and then ray casting.
func (r RegionPolygon) Contains(lat, lng float64) bool {
	if !r.BBox.Contains(lat, lng) {
		return false
	}
	return geometry.PointInPolygon(lat, lng, r.Rings)
}

// centroid is an outer-ring vertex mean indexed by the k-d tree.
type centroid struct {
	Lat float64
	Lng float64
	idx int
}
