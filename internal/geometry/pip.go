package geometry

// LngLat is a ring vertex in GeoJSON order: [lng, lat].
type LngLat [2]float64

func (p LngLat) Lng() float64 { return p[0] }
func (p LngLat) Lat() float64 { return p[1] }

// Ring is a closed or open sequence of vertices; the closing edge is implied.
type Ring []LngLat

// PointInPolygon classifies a point against a ring set: rings[0] is the outer
// boundary and rings[1:] are holes. Even-odd ray casting; a point inside any
// hole is outside. Membership of points exactly on an edge is undefined.
func PointInPolygon(lat, lng float64, rings []Ring) bool {
	if len(rings) == 0 {
		return false
	}
	if !PointInRing(lat, lng, rings[0]) {
		return false
	}
	for i := 1; i < len(rings); i++ {
		if PointInRing(lat, lng, rings[i]) {
			return false
		}
	}
	return true
}

// PointInRing casts a ray towards +lng and counts edge crossings.
func PointInRing(lat, lng float64, ring Ring) bool {
	n := len(ring)
	if n < 3 {
		return false
	}
	inside := false
	x, y := lng, lat
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := ring[i][0], ring[i][1]
		xj, yj := ring[j][0], ring[j][1]
		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

// BBox is minLng, minLat, maxLng, maxLat.
type BBox [4]float64

// RingsBBox computes the bounding box of all rings. An empty input yields an
// inverted box that contains nothing.
func RingsBBox(rings []Ring) BBox {
	b := BBox{180, 90, -180, -90}
	for _, r := range rings {
		for _, p := range r {
			if p[0] < b[0] {
				b[0] = p[0]
			}
			if p[1] < b[1] {
				b[1] = p[1]
			}
			if p[0] > b[2] {
				b[2] = p[0]
			}
			if p[1] > b[3] {
				b[3] = p[1]
			}
		}
	}
	return b
}

// Contains is the quick prefilter before ray casting.
func (b BBox) Contains(lat, lng float64) bool {
	return lng >= b[0] && lng <= b[2] && lat >= b[1] && lat <= b[3]
}
