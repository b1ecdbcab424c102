package region

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"field-geo/internal/geometry"
	"field-geo/internal/logger"
)

// Property keys probed once at load time, in priority order. Downstream code
// only ever sees the normalised ID and Name.
var (
	nameKeys = []string{"region", "REGION", "region_name", "regionName", "name", "NAME", "NAME_1", "shapeName", "id", "ID"}
	idKeys   = []string{"id", "ID", "region_id", "regionId", "code", "CODE", "shapeID"}
)

// Load reads a dataset from a file or from every *.geojson / *.json file of a
// directory, in name order.
func Load(path string) ([]RegionPolygon, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("region dataset: %w", err)
	}
	if !st.IsDir() {
		return LoadFile(path)
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("region dataset: %w", err)
	}
	var names []string
	for _, ent := range entries {
		n := strings.ToLower(ent.Name())
		if !ent.IsDir() && (strings.HasSuffix(n, ".geojson") || strings.HasSuffix(n, ".json")) {
			names = append(names, ent.Name())
		}
	}
	sort.Strings(names)
	var out []RegionPolygon
	for _, n := range names {
		rs, err := LoadFile(filepath.Join(path, n))
		if err != nil {
			logger.L().Warn("region_file_skipped", "file", n, "err", err)
			continue
		}
		out = append(out, rs...)
	}
	return out, nil
}

// LoadFile decodes one dataset file.
func LoadFile(path string) ([]RegionPolygon, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("region dataset: %w", err)
	}
	defer f.Close()
	rs, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("region dataset %s: %w", filepath.Base(path), err)
	}
	return rs, nil
}

// Decode accepts a FeatureCollection, a single Feature or a bare JSON array
// of features. Polygon and MultiPolygon geometries are kept; everything else
// is skipped.
func Decode(r io.Reader) ([]RegionPolygon, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil, nil
	}
	var features []*geojson.Feature
	if b[0] == '[' {
		if err := json.Unmarshal(b, &features); err != nil {
			return nil, err
		}
	} else {
		var head struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(b, &head); err != nil {
			return nil, err
		}
		switch strings.ToLower(head.Type) {
		case "featurecollection":
			fc, err := geojson.UnmarshalFeatureCollection(b)
			if err != nil {
				return nil, err
			}
			features = fc.Features
		case "feature":
			f, err := geojson.UnmarshalFeature(b)
			if err != nil {
				return nil, err
			}
			features = []*geojson.Feature{f}
		default:
			return nil, fmt.Errorf("unsupported geojson type %q", head.Type)
		}
	}
	var out []RegionPolygon
	for i, f := range features {
		if f == nil {
			continue
		}
		out = append(out, normalize(f, i)...)
	}
	logger.L().Debug("region_decode_done", "features", len(features), "polygons", len(out))
	return out, nil
}

// normalize turns one feature into typed polygons.
func normalize(f *geojson.Feature, n int) []RegionPolygon {
	name := firstProp(f.Properties, nameKeys)
	if name == "" {
		name = UnknownName
	}
	id := firstProp(f.Properties, idKeys)
	if id == "" && f.ID != nil {
		id = scalarString(f.ID)
	}
	if id == "" {
		id = "region-" + strconv.Itoa(n)
	}
	var polys []orb.Polygon
	switch g := f.Geometry.(type) {
	case orb.Polygon:
		polys = []orb.Polygon{g}
	case orb.MultiPolygon:
		polys = g
	default:
		logger.L().Debug("region_geometry_skipped", "id", id, "type", geometryType(f.Geometry))
		return nil
	}
	out := make([]RegionPolygon, 0, len(polys))
	for _, p := range polys {
		rings := make([]geometry.Ring, 0, len(p))
		for _, r := range p {
			ring := make(geometry.Ring, len(r))
			for i, pt := range r {
				ring[i] = geometry.LngLat{pt[0], pt[1]}
			}
			rings = append(rings, ring)
		}
		if len(rings) == 0 {
			continue
		}
		out = append(out, RegionPolygon{ID: id, Name: name, Rings: rings, BBox: geometry.RingsBBox(rings)})
	}
	return out
}

func firstProp(props geojson.Properties, keys []string) string {
	for _, k := range keys {
		if v, ok := props[k]; ok {
			if s := scalarString(v); s != "" {
				return s
			}
		}
	}
	return ""
}

func scalarString(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case json.Number:
		return x.String()
	default:
		return ""
	}
}

func geometryType(g orb.Geometry) string {
	if g == nil {
		return "null"
	}
	return g.GeoJSONType()
}
