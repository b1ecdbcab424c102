package region

import (
	"os"
	"strconv"
	"time"

	"field-geo/internal/logger"
)

// Index answers containment queries over a read-only region dataset. The
// dataset is never mutated after construction; only the lookup cache is
// written, under its own lock. A nil *Index behaves as an empty dataset.
type Index struct {
	regions []RegionPolygon
	ids     map[string]bool
	kd      *kdNode
	cache   *LRU[int]
}

// NewIndex builds the index. Cache TTL comes from REGION_LRU_TTL_S (default
// 3600) and capacity from REGION_LRU_SIZE (default 4096).
func NewIndex(regions []RegionPolygon) *Index {
	ttl := 3600
	if s := os.Getenv("REGION_LRU_TTL_S"); s != "" {
		if n, e := strconv.Atoi(s); e == nil && n > 0 {
			ttl = n
		}
	}
	size := 4096
	if s := os.Getenv("REGION_LRU_SIZE"); s != "" {
		if n, e := strconv.Atoi(s); e == nil && n > 0 {
			size = n
		}
	}
	ix := &Index{
		regions: regions,
		ids:     make(map[string]bool, len(regions)),
		cache:   NewLRU[int](size, time.Duration(ttl)*time.Second),
	}
	var cs []centroid
	for i, r := range regions {
		ix.ids[r.ID] = true
		if len(r.Rings) == 0 || len(r.Rings[0]) == 0 {
			continue
		}
		var lat, lng float64
		for _, p := range r.Rings[0] {
			lng += p[0]
			lat += p[1]
		}
		n := float64(len(r.Rings[0]))
		cs = append(cs, centroid{Lat: lat / n, Lng: lng / n, idx: i})
	}
	ix.kd = buildKD(cs, 0)
	logger.L().Debug("region_index_built", "polygons", len(regions), "regions", len(ix.ids))
	return ix
}

// Len returns the number of polygons.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.regions)
}

// Has reports whether a region id exists.
func (ix *Index) Has(id string) bool {
	if ix == nil {
		return false
	}
	return ix.ids[id]
}

// Regions returns the polygons in dataset order. The slice is a copy; ring
// data is shared and must be treated as read-only.
func (ix *Index) Regions() []RegionPolygon {
	if ix == nil {
		return nil
	}
	out := make([]RegionPolygon, len(ix.regions))
	copy(out, ix.regions)
	return out
}

// FindRegionContaining scans the dataset in order and returns the first
// polygon containing the point. Not finding a region, including with no
// dataset loaded, is a normal outcome.
//
// Answers are cached per precision-12 geohash cell (about 4 cm by 2 cm), so
// two points in one cell that straddle a region edge share the first
// answer computed for that cell.
func (ix *Index) FindRegionContaining(lat, lng float64) (RegionPolygon, bool) {
	if ix == nil || len(ix.regions) == 0 {
		return RegionPolygon{}, false
	}
	key := encodeGeohash(lat, lng, cacheKeyPrecision)
	if i, ok := ix.cache.Get(key); ok {
		if i < 0 {
			return RegionPolygon{}, false
		}
		return ix.regions[i], true
	}
	for i := range ix.regions {
		if ix.regions[i].Contains(lat, lng) {
			ix.cache.Set(key, i)
			return ix.regions[i], true
		}
	}
	ix.cache.Set(key, -1)
	return RegionPolygon{}, false
}

// Nearest returns the region whose outer-ring centroid is closest to the
// point, if within maxKm. It is a hint for points outside every region and
// has no bearing on containment.
func (ix *Index) Nearest(lat, lng, maxKm float64) (RegionPolygon, float64, bool) {
	if ix == nil || ix.kd == nil {
		return RegionPolygon{}, 0, false
	}
	c, d, ok := nearest(ix.kd, lat, lng)
	if !ok || d > maxKm {
		return RegionPolygon{}, 0, false
	}
	return ix.regions[c.idx], d, true
}
