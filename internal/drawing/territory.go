package drawing

import (
	"fmt"
	"strconv"
	"strings"

	"field-geo/internal/geo"
	"field-geo/internal/region"
)

// Territory limits where freshly placed vertices may land.
type Territory interface {
	Allows(p geo.GeoPoint) bool
}

// BoundsTerritory is an inclusive lat/lng box.
type BoundsTerritory struct {
	MinLat, MinLng, MaxLat, MaxLng float64
}

func (b BoundsTerritory) Allows(p geo.GeoPoint) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat && p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}

// ParseBounds reads "minLat,minLng,maxLat,maxLng".
func ParseBounds(s string) (BoundsTerritory, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BoundsTerritory{}, fmt.Errorf("bounds %q: want minLat,minLng,maxLat,maxLng", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return BoundsTerritory{}, fmt.Errorf("bounds %q: %w", s, err)
		}
		v[i] = f
	}
	b := BoundsTerritory{MinLat: v[0], MinLng: v[1], MaxLat: v[2], MaxLng: v[3]}
	if b.MinLat > b.MaxLat || b.MinLng > b.MaxLng {
		return BoundsTerritory{}, fmt.Errorf("bounds %q: min exceeds max", s)
	}
	return b, nil
}

// RegionTerritory admits points inside any of the named regions. With no
// ids configured every region of the index counts.
type RegionTerritory struct {
	index *region.Index
	ids   map[string]bool
}

func NewRegionTerritory(ix *region.Index, ids ...string) *RegionTerritory {
	t := &RegionTerritory{index: ix}
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			if t.ids == nil {
				t.ids = make(map[string]bool)
			}
			t.ids[id] = true
		}
	}
	return t
}

func (t *RegionTerritory) Allows(p geo.GeoPoint) bool {
	for _, r := range t.index.Regions() {
		if t.ids != nil && !t.ids[r.ID] {
			continue
		}
		if r.Contains(p.Lat, p.Lng) {
			return true
		}
	}
	return false
}

type anyOf []Territory

func (a anyOf) Allows(p geo.GeoPoint) bool {
	for _, t := range a {
		if t.Allows(p) {
			return true
		}
	}
	return false
}

// AnyOf admits a point accepted by at least one territory. Nil entries are
// dropped; with none left the result is nil, meaning unconstrained.
func AnyOf(ts ...Territory) Territory {
	var out anyOf
	for _, t := range ts {
		if t != nil {
			out = append(out, t)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return out
}
