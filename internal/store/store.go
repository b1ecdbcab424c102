// Package store persists field records in PostgreSQL. Vertices, side lengths
// and enrichment are stored as JSONB next to the scalar columns used for
// listing.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"field-geo/internal/enrich"
	"field-geo/internal/fields"
	"field-geo/internal/geo"
	"field-geo/internal/logger"
)

// Store implements fields.Store over a database/sql pool.
type Store struct {
	db *sql.DB
}

var _ fields.Store = (*Store)(nil)

func AttachDB(db *sql.DB) *Store { return &Store{db: db} }

// Open opens a pool for the DSN with the default pool sizes.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

const selectCols = `id, session_id, vertices, side_lengths, area_hectares, region_name, region_id, enrichment, created_at`

func (s *Store) Save(ctx context.Context, r fields.Record) error {
	verts, err := json.Marshal(r.Vertices)
	if err != nil {
		return err
	}
	sides, err := json.Marshal(r.SideLengths)
	if err != nil {
		return err
	}
	enr, err := marshalEnrichment(r.Enrichment)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO _fields(id, session_id, vertices, side_lengths, area_hectares, region_name, region_id, enrichment, created_at)
        VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9)
        ON CONFLICT (id) DO UPDATE SET vertices=EXCLUDED.vertices, side_lengths=EXCLUDED.side_lengths, area_hectares=EXCLUDED.area_hectares,
            region_name=EXCLUDED.region_name, region_id=EXCLUDED.region_id, updated_at=now()`,
		r.ID, r.SessionID, string(verts), string(sides), r.AreaHectares, nullString(r.RegionName), nullString(r.RegionID), enr, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save field %s: %w", r.ID, err)
	}
	logger.L().Debug("db_field_saved", "id", r.ID)
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (fields.Record, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+selectCols+" FROM _fields WHERE id=$1", id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return fields.Record{}, fields.ErrNotFound
	}
	return r, err
}

// List returns the newest records first. limit <= 0 means 100.
func (s *Store) List(ctx context.Context, limit int) ([]fields.Record, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, "SELECT "+selectCols+" FROM _fields ORDER BY created_at DESC, id LIMIT $1", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []fields.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) UpdateSideLengths(ctx context.Context, id string, sides []geo.SideLength, area float64) error {
	b, err := json.Marshal(sides)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, "UPDATE _fields SET side_lengths=$2, area_hectares=$3, updated_at=now() WHERE id=$1", id, string(b), area)
	if err != nil {
		return err
	}
	return expectRow(res)
}

func (s *Store) SetEnrichment(ctx context.Context, id string, res []enrich.Result) error {
	b, err := marshalEnrichment(res)
	if err != nil {
		return err
	}
	r, err := s.db.ExecContext(ctx, "UPDATE _fields SET enrichment=$2, updated_at=now() WHERE id=$1", id, b)
	if err != nil {
		return err
	}
	return expectRow(r)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (fields.Record, error) {
	var (
		r                    fields.Record
		verts, sides, enr    []byte
		regionName, regionID sql.NullString
	)
	if err := sc.Scan(&r.ID, &r.SessionID, &verts, &sides, &r.AreaHectares, &regionName, &regionID, &enr, &r.CreatedAt); err != nil {
		return fields.Record{}, err
	}
	if err := json.Unmarshal(verts, &r.Vertices); err != nil {
		return fields.Record{}, fmt.Errorf("field %s vertices: %w", r.ID, err)
	}
	if err := json.Unmarshal(sides, &r.SideLengths); err != nil {
		return fields.Record{}, fmt.Errorf("field %s sides: %w", r.ID, err)
	}
	if len(enr) > 0 {
		if err := json.Unmarshal(enr, &r.Enrichment); err != nil {
			return fields.Record{}, fmt.Errorf("field %s enrichment: %w", r.ID, err)
		}
	}
	if regionName.Valid {
		r.RegionName = &regionName.String
	}
	if regionID.Valid {
		r.RegionID = &regionID.String
	}
	r.CreatedAt = r.CreatedAt.UTC()
	return r, nil
}

// JSON goes over the wire as text; lib/pq would send []byte as bytea.
func marshalEnrichment(res []enrich.Result) (sql.NullString, error) {
	if res == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(res)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fields.ErrNotFound
	}
	return nil
}
