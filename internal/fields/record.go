// Package fields assembles completed field records: default side lengths,
// area, region classification and auxiliary data, and hands them to the
// persistence collaborator.
package fields

import (
	"errors"
	"math"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"field-geo/internal/enrich"
	"field-geo/internal/geo"
	"field-geo/internal/geometry"
	"field-geo/internal/logger"
	"field-geo/internal/metrics"
	"field-geo/internal/region"
)

var ErrNotFound = errors.New("field not found")

// Record is a completed field as handed to the editing and persistence
// layer. RegionName and RegionID are nil when no region contains the field.
type Record struct {
	ID           string           `json:"id"`
	SessionID    string           `json:"sessionId,omitempty"`
	Vertices     geo.Polygon      `json:"vertices"`
	SideLengths  []geo.SideLength `json:"sideLengths"`
	AreaHectares float64          `json:"areaHectares"`
	RegionName   *string          `json:"regionName"`
	RegionID     *string          `json:"regionId"`
	CreatedAt    time.Time        `json:"createdAt"`
	Enrichment   []enrich.Result  `json:"enrichment,omitempty"`
}

// RegionLabel is the region name for display.
func (r Record) RegionLabel() string {
	if r.RegionName == nil {
		return region.UnknownName
	}
	return *r.RegionName
}

// WithSideLengths replaces the declared sides and recomputes the area from
// them alone. Vertices are untouched.
func (r Record) WithSideLengths(sides []geo.SideLength) Record {
	r.SideLengths = append([]geo.SideLength(nil), sides...)
	r.AreaHectares = Area(r.SideLengths)
	return r
}

// Area is geometry.AreaFromSideLengths with degenerate input counted and
// logged.
func Area(sides []geo.SideLength) float64 {
	a, err := geometry.AreaFromSidesChecked(geo.Lengths(sides))
	if err != nil {
		metrics.DegenerateAreasTotal.Inc()
		logger.L().Debug("area_degenerate", "sides", len(sides))
		return 0
	}
	return a
}

// Builder turns closed polygons into records.
type Builder struct {
	Regions *region.Index
	now     func() time.Time
}

func NewBuilder(ix *region.Index) *Builder {
	return &Builder{Regions: ix, now: func() time.Time { return time.Now().UTC() }}
}

// Build creates a record with suggested side lengths: the great-circle
// length of each edge rounded to 0.1 m, labelled by the vertex names.
// The region is the one containing the vertex centroid.
func (b *Builder) Build(poly geo.Polygon) Record {
	rec := Record{
		ID:          geo.NewID(),
		Vertices:    poly.Clone(),
		SideLengths: DefaultSideLengths(poly),
		CreatedAt:   b.now(),
	}
	rec.AreaHectares = Area(rec.SideLengths)
	if c, ok := geometry.Centroid(poly); ok {
		if r, found := b.Regions.FindRegionContaining(c.Lat, c.Lng); found {
			name, id := r.Name, r.ID
			rec.RegionName, rec.RegionID = &name, &id
			metrics.RegionLookupsTotal.WithLabelValues("found").Inc()
		} else {
			metrics.RegionLookupsTotal.WithLabelValues("not_found").Inc()
		}
	}
	return rec
}

// DefaultSideLengths suggests one side per edge, closing edge last.
func DefaultSideLengths(poly geo.Polygon) []geo.SideLength {
	n := poly.Edges()
	out := make([]geo.SideLength, 0, n)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		d := geometry.HaversineMeters(poly[i], poly[j])
		out = append(out, geo.SideLength{
			SegmentLabel: geo.SegmentLabel(poly[i], poly[j], i, j),
			LengthMeters: math.Round(d*10) / 10,
		})
	}
	return out
}

// Feature exports the boundary as a closed GeoJSON polygon.
func (r Record) Feature() *geojson.Feature {
	ring := make(orb.Ring, 0, len(r.Vertices)+1)
	for _, v := range r.Vertices {
		ring = append(ring, orb.Point{v.Lng, v.Lat})
	}
	if len(ring) > 0 {
		ring = append(ring, ring[0])
	}
	f := geojson.NewFeature(orb.Polygon{ring})
	f.ID = r.ID
	f.Properties["areaHectares"] = r.AreaHectares
	f.Properties["region"] = r.RegionLabel()
	if r.RegionID != nil {
		f.Properties["regionId"] = *r.RegionID
	}
	f.Properties["sideLengths"] = r.SideLengths
	f.Properties["createdAt"] = r.CreatedAt.Format(time.RFC3339)
	return f
}

// FeatureCollection exports several records.
func FeatureCollection(recs []Record) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, r := range recs {
		fc.Append(r.Feature())
	}
	return fc
}
