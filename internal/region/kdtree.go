package region

import (
	"math"

	"field-geo/internal/geo"
	"field-geo/internal/geometry"
)

// 2-d tree over region centroids, split on lng then lat. Only answers the
// single nearest centroid.
type kdNode struct {
	c  centroid
	ax int // 0: lng, 1: lat
	l  *kdNode
	r  *kdNode
}

func buildKD(cs []centroid, depth int) *kdNode {
	if len(cs) == 0 {
		return nil
	}
	ax := depth % 2
	mid := len(cs) / 2
	selectNth(cs, mid, ax)
	node := &kdNode{c: cs[mid], ax: ax}
	node.l = buildKD(cs[:mid], depth+1)
	node.r = buildKD(cs[mid+1:], depth+1)
	return node
}

// in-place quickselect on the given axis
func selectNth(a []centroid, n int, ax int) {
	lo, hi := 0, len(a)-1
	for lo < hi {
		p := partition(a, lo, hi, (lo+hi)/2, ax)
		if p == n {
			return
		}
		if n < p {
			hi = p - 1
		} else {
			lo = p + 1
		}
	}
}

func partition(a []centroid, lo, hi, pivot, ax int) int {
	pv := a[pivot]
	a[pivot], a[hi] = a[hi], a[pivot]
	i := lo
	for j := lo; j < hi; j++ {
		if axisValue(a[j], ax) < axisValue(pv, ax) {
			a[i], a[j] = a[j], a[i]
			i++
		}
	}
	a[i], a[hi] = a[hi], a[i]
	return i
}

func axisValue(c centroid, ax int) float64 {
	if ax == 0 {
		return c.Lng
	}
	return c.Lat
}

// nearest returns the closest centroid and its distance in km.
func nearest(node *kdNode, lat, lng float64) (centroid, float64, bool) {
	best := centroid{}
	bestD := math.MaxFloat64
	found := false
	q := geo.GeoPoint{Lat: lat, Lng: lng}
	var dfs func(n *kdNode)
	dfs = func(n *kdNode) {
		if n == nil {
			return
		}
		d := geometry.HaversineMeters(q, geo.GeoPoint{Lat: n.c.Lat, Lng: n.c.Lng}) / 1000
		if d < bestD {
			bestD, best, found = d, n.c, true
		}
		var key, split float64
		if n.ax == 0 {
			key, split = lng, n.c.Lng
		} else {
			key, split = lat, n.c.Lat
		}
		first, second := n.l, n.r
		if key > split {
			first, second = n.r, n.l
		}
		dfs(first)
		if planeKm(n.ax, lat, key-split) < bestD {
			dfs(second)
		}
	}
	dfs(node)
	return best, bestD, found
}

// planeKm is the distance from the query to the split meridian or parallel.
func planeKm(ax int, lat, delta float64) float64 {
	const kmPerDegree = geometry.EarthRadiusMeters / 1000 * math.Pi / 180
	if ax == 1 {
		return math.Abs(delta) * kmPerDegree
	}
	d := math.Min(math.Abs(delta), 90) * math.Pi / 180
	return math.Asin(math.Sin(d)*math.Cos(lat*math.Pi/180)) * geometry.EarthRadiusMeters / 1000
}
