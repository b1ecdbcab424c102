package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"field-geo/internal/logger"
	"field-geo/internal/metrics"
	"field-geo/internal/region"
)

// nearestHintKm bounds the nearest-region hint of a lookup that found no
// containing region.
const nearestHintKm = 50.0

type NearestHint struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	DistanceKm float64 `json:"distanceKm"`
}

// RegionLookup is the answer for one coordinate. ID and Name are nil when no
// region contains the point.
type RegionLookup struct {
	Lat     float64      `json:"lat"`
	Lng     float64      `json:"lng"`
	ID      *string      `json:"id"`
	Name    *string      `json:"name"`
	Label   string       `json:"label"`
	Nearest *NearestHint `json:"nearest,omitempty"`
	Cached  bool         `json:"cached"`
}

func cacheKey(lat, lng float64) string {
	return "region:" + strconv.FormatFloat(lat, 'f', 5, 64) + ":" + strconv.FormatFloat(lng, 'f', 5, 64)
}

// cachedLookup decodes a cached answer. The entry is shared by every point
// that rounds to the same key, so the caller's coordinates are echoed.
func cachedLookup(b []byte, lat, lng float64) (RegionLookup, bool) {
	var out RegionLookup
	if json.Unmarshal(b, &out) != nil {
		return RegionLookup{}, false
	}
	out.Lat, out.Lng = lat, lng
	out.Cached = true
	return out, true
}

// LookupRegion classifies a point, answering from redis when configured.
// Redis failures degrade to a direct lookup.
func (s *Server) LookupRegion(ctx context.Context, lat, lng float64) RegionLookup {
	rc := s.opt.Redis
	key := cacheKey(lat, lng)
	if rc != nil {
		if b, err := rc.Get(ctx, key).Bytes(); err == nil {
			if out, ok := cachedLookup(b, lat, lng); ok {
				metrics.RedisHitsTotal.Inc()
				return out
			}
		}
		metrics.RedisMissesTotal.Inc()
	}
	out := RegionLookup{Lat: lat, Lng: lng, Label: region.UnknownName}
	if r, ok := s.opt.Regions.FindRegionContaining(lat, lng); ok {
		id, name := r.ID, r.Name
		out.ID, out.Name, out.Label = &id, &name, name
		metrics.RegionLookupsTotal.WithLabelValues("found").Inc()
	} else {
		metrics.RegionLookupsTotal.WithLabelValues("not_found").Inc()
		if n, km, ok := s.opt.Regions.Nearest(lat, lng, nearestHintKm); ok {
			out.Nearest = &NearestHint{ID: n.ID, Name: n.Name, DistanceKm: km}
		}
	}
	logger.L().Debug("region_lookup", "lat", lat, "lng", lng, "label", out.Label)
	if rc != nil {
		b, _ := json.Marshal(out)
		if err := rc.Set(ctx, key, b, s.opt.RegionCacheTTL).Err(); err != nil {
			logger.L().Debug("region_cache_set_fail", "err", err)
		}
	}
	return out
}

func (s *Server) regionLookup(w http.ResponseWriter, r *http.Request) {
	v, err := queryFloats(r, "lat", "lng")
	if err != nil {
		writeError(w, err)
		return
	}
	if v[0] < -90 || v[0] > 90 || v[1] < -180 || v[1] > 180 {
		writeError(w, fmt.Errorf("%w: coordinate out of range", errBadRequest))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	writeJSON(w, http.StatusOK, s.LookupRegion(ctx, v[0], v[1]))
}
