package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"field-geo/internal/enrich"
	"field-geo/internal/fields"
	"field-geo/internal/geo"
	"field-geo/internal/migrate"
)

type rowStub struct {
	vals []any
	err  error
}

func (r rowStub) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = r.vals[i].(string)
		case *[]byte:
			if r.vals[i] != nil {
				*p = []byte(r.vals[i].(string))
			}
		case *float64:
			*p = r.vals[i].(float64)
		case *sql.NullString:
			if r.vals[i] != nil {
				*p = sql.NullString{String: r.vals[i].(string), Valid: true}
			}
		case *time.Time:
			*p = r.vals[i].(time.Time)
		}
	}
	return nil
}

func TestScanRecord(t *testing.T) {
	ts := time.Date(2024, 6, 1, 8, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	rec, err := scanRecord(rowStub{vals: []any{
		"f1", "s1",
		`[{"lat":1,"lng":2,"name":"A"},{"lat":1,"lng":3,"name":"B"},{"lat":2,"lng":3,"name":"C"}]`,
		`[{"segmentLabel":"AB","lengthMeters":3}]`,
		0.25, "Lowlands", nil,
		`[{"source":"soil","values":{"ph":6.5},"placeholder":true,"reason":"timeout"}]`,
		ts,
	}})
	require.NoError(t, err)
	assert.Equal(t, "f1", rec.ID)
	assert.Len(t, rec.Vertices, 3)
	assert.Equal(t, "B", rec.Vertices[1].Name)
	assert.Equal(t, []geo.SideLength{{SegmentLabel: "AB", LengthMeters: 3}}, rec.SideLengths)
	require.NotNil(t, rec.RegionName)
	assert.Equal(t, "Lowlands", *rec.RegionName)
	assert.Nil(t, rec.RegionID)
	require.Len(t, rec.Enrichment, 1)
	assert.Equal(t, enrich.ReasonTimeout, rec.Enrichment[0].Reason)
	assert.Equal(t, time.UTC, rec.CreatedAt.Location())
}

func TestScanRecordErrors(t *testing.T) {
	_, err := scanRecord(rowStub{err: sql.ErrNoRows})
	assert.True(t, errors.Is(err, sql.ErrNoRows))

	_, err = scanRecord(rowStub{vals: []any{"f1", "", "not json", "[]", 0.0, nil, nil, nil, time.Now()}})
	assert.Error(t, err)
}

func TestMarshalEnrichment(t *testing.T) {
	ns, err := marshalEnrichment(nil)
	require.NoError(t, err)
	assert.False(t, ns.Valid)
	ns, err = marshalEnrichment([]enrich.Result{{Source: "weather", Values: map[string]any{}}})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"source":"weather","values":{}}]`, ns.String)
}

// Runs against a real database when FIELDGEO_TEST_PG_DSN is set.
func TestStoreRoundTripPostgres(t *testing.T) {
	dsn := os.Getenv("FIELDGEO_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("FIELDGEO_TEST_PG_DSN not set")
	}
	s, err := Open(dsn)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, migrate.EnsureSchema(s.DB()))

	ctx := context.Background()
	name := "Lowlands"
	rec := fields.Record{
		ID:           geo.NewID(),
		SessionID:    "it",
		Vertices:     geo.Polygon{{Lat: 0, Lng: 0, Name: "A"}, {Lat: 0, Lng: 1, Name: "B"}, {Lat: 1, Lng: 1, Name: "C"}},
		SideLengths:  []geo.SideLength{{SegmentLabel: "AB", LengthMeters: 3}, {SegmentLabel: "BC", LengthMeters: 4}, {SegmentLabel: "CA", LengthMeters: 5}},
		AreaHectares: 0.0006,
		RegionName:   &name,
		CreatedAt:    time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, s.Save(ctx, rec))
	got, err := s.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Vertices, got.Vertices)
	assert.Equal(t, "Lowlands", *got.RegionName)

	require.NoError(t, s.UpdateSideLengths(ctx, rec.ID, rec.SideLengths[:2], 0))
	require.NoError(t, s.SetEnrichment(ctx, rec.ID, []enrich.Result{{Source: "soil", Values: map[string]any{"ph": 6.0}}}))
	got, err = s.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Len(t, got.SideLengths, 2)
	assert.Len(t, got.Enrichment, 1)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, fields.ErrNotFound)
	assert.ErrorIs(t, s.SetEnrichment(ctx, "missing", nil), fields.ErrNotFound)
}
