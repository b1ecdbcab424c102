package migrate

import (
	"database/sql"

	"field-geo/internal/logger"
)

// EnsureSchema creates the field table and its indexes on first start.
// IF NOT EXISTS keeps it safe against an existing schema.
func EnsureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS _fields (
            id TEXT PRIMARY KEY,
            session_id TEXT NOT NULL DEFAULT '',
            vertices JSONB NOT NULL,
            side_lengths JSONB NOT NULL,
            area_hectares DOUBLE PRECISION NOT NULL DEFAULT 0,
            region_name TEXT,
            region_id TEXT,
            enrichment JSONB,
            created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )`,
		`CREATE INDEX IF NOT EXISTS idx_fields_created ON _fields(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_fields_region ON _fields(region_id)`,
		`CREATE INDEX IF NOT EXISTS idx_fields_session ON _fields(session_id)`,
	}
	for i, s := range stmts {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	logger.L().Debug("schema_done")
	return nil
}
