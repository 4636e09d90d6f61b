package database

import (
	"context"
	"fmt"

	"battery-platform/pkg/logging"
)

const postgresSchemaUp = `
CREATE TABLE IF NOT EXISTS validation_records (
	id          BIGSERIAL PRIMARY KEY,
	sample_id   TEXT NOT NULL,
	cycle       INTEGER NOT NULL CHECK (cycle > 0),
	capacity    DOUBLE PRECISION NOT NULL,
	kind        TEXT NOT NULL CHECK (kind IN ('history', 'prediction')),
	batch_id    TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	UNIQUE (sample_id, cycle, kind)
);

CREATE INDEX IF NOT EXISTS idx_validation_records_sample ON validation_records (sample_id, cycle);

CREATE TABLE IF NOT EXISTS lca_records (
	id                    BIGSERIAL PRIMARY KEY,
	binder_type           TEXT NOT NULL,
	solvent_type          TEXT NOT NULL,
	binder_amount_wt      DOUBLE PRECISION NOT NULL,
	graphite_wt           DOUBLE PRECISION NOT NULL,
	superp_wt             DOUBLE PRECISION NOT NULL,
	coating_thickness_mm  DOUBLE PRECISION NOT NULL,
	drying_temp_c         DOUBLE PRECISION NOT NULL,
	drying_time_min       DOUBLE PRECISION NOT NULL,
	areal_loading_g_m2    DOUBLE PRECISION NOT NULL,
	co2_kg_per_m2         DOUBLE PRECISION NOT NULL,
	energy_kwh_per_m2     DOUBLE PRECISION NOT NULL,
	voc_g_per_m2          DOUBLE PRECISION NOT NULL,
	batch_id              TEXT NOT NULL,
	created_at            TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_lca_records_recipe ON lca_records (
	binder_type, solvent_type,
	binder_amount_wt, graphite_wt, superp_wt, coating_thickness_mm,
	drying_temp_c, drying_time_min, areal_loading_g_m2
);
`

const sqliteSchemaUp = `
CREATE TABLE IF NOT EXISTS validation_records (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	sample_id   TEXT NOT NULL,
	cycle       INTEGER NOT NULL CHECK (cycle > 0),
	capacity    REAL NOT NULL,
	kind        TEXT NOT NULL CHECK (kind IN ('history', 'prediction')),
	batch_id    TEXT NOT NULL,
	created_at  TIMESTAMP NOT NULL,
	UNIQUE (sample_id, cycle, kind)
);

CREATE INDEX IF NOT EXISTS idx_validation_records_sample ON validation_records (sample_id, cycle);

CREATE TABLE IF NOT EXISTS lca_records (
	id                    INTEGER PRIMARY KEY AUTOINCREMENT,
	binder_type           TEXT NOT NULL,
	solvent_type          TEXT NOT NULL,
	binder_amount_wt      REAL NOT NULL,
	graphite_wt           REAL NOT NULL,
	superp_wt             REAL NOT NULL,
	coating_thickness_mm  REAL NOT NULL,
	drying_temp_c         REAL NOT NULL,
	drying_time_min       REAL NOT NULL,
	areal_loading_g_m2    REAL NOT NULL,
	co2_kg_per_m2         REAL NOT NULL,
	energy_kwh_per_m2     REAL NOT NULL,
	voc_g_per_m2          REAL NOT NULL,
	batch_id              TEXT NOT NULL,
	created_at            TIMESTAMP NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_lca_records_recipe ON lca_records (
	binder_type, solvent_type,
	binder_amount_wt, graphite_wt, superp_wt, coating_thickness_mm,
	drying_temp_c, drying_time_min, areal_loading_g_m2
);
`

const schemaDown = `
DROP INDEX IF EXISTS idx_lca_records_recipe;
DROP TABLE IF EXISTS lca_records;
DROP INDEX IF EXISTS idx_validation_records_sample;
DROP TABLE IF EXISTS validation_records;
`

// SchemaFor returns the DDL for the driver and direction ("up" or "down")
func SchemaFor(driver, direction string) (string, error) {
	switch direction {
	case "down":
		return schemaDown, nil
	case "up", "":
	default:
		return "", fmt.Errorf("unknown migration direction %q", direction)
	}

	switch driver {
	case DriverPostgres, "":
		return postgresSchemaUp, nil
	case DriverSQLite:
		return sqliteSchemaUp, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Migrate applies the schema in the given direction
func (p *DB) Migrate(ctx context.Context, direction string) error {
	ddl, err := SchemaFor(p.driver, direction)
	if err != nil {
		return err
	}

	if _, err := p.ExecContext(ctx, "migrate_"+direction, ddl); err != nil {
		return fmt.Errorf("failed to apply %s migration: %w", direction, err)
	}

	p.logger.Info(ctx, "[DB_MIGRATE] Schema migration applied", logging.Fields{
		"driver":    p.driver,
		"direction": direction,
	})

	return nil
}
