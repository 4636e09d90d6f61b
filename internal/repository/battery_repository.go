package repository

import (
	"context"
	"fmt"
	"time"

	"battery-platform/internal/models"
	"battery-platform/pkg/database"
	"battery-platform/pkg/logging"
	"battery-platform/pkg/metrics"
)

// BatteryRepository provides data access for experimental comparison data and the
// LCA training set
type BatteryRepository interface {
	// Validation data operations
	CreateValidationRecordsBatch(ctx context.Context, records []*models.ValidationRecord) error
	GetValidationRecords(ctx context.Context, sampleID string) ([]*models.ValidationRecord, error)
	ListSamples(ctx context.Context) ([]*models.SampleSummary, error)

	// LCA dataset operations
	CreateLCARecordsBatch(ctx context.Context, records []*models.LCARecord) error
	ListLCARecords(ctx context.Context) ([]models.LCARecord, error)

	// Utility operations
	HealthCheck(ctx context.Context) error
}

// batteryRepository implements BatteryRepository
type batteryRepository struct {
	db      *database.DB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewBatteryRepository creates a new battery repository
func NewBatteryRepository(db *database.DB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) BatteryRepository {
	return &batteryRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

const upsertValidationRecord = `
	INSERT INTO validation_records (sample_id, cycle, capacity, kind, batch_id, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT (sample_id, cycle, kind) DO UPDATE SET
		capacity = EXCLUDED.capacity,
		batch_id = EXCLUDED.batch_id,
		created_at = EXCLUDED.created_at
`

// CreateValidationRecordsBatch upserts comparison rows in a single transaction.
// A re-ingested (sample, cycle, kind) replaces the stored capacity.
func (r *batteryRepository) CreateValidationRecordsBatch(ctx context.Context, records []*models.ValidationRecord) error {
	if len(records) == 0 {
		return nil
	}

	timer := time.Now()
	defer func() {
		duration := time.Since(timer)
		r.metrics.IngestionBatchSize.Observe(float64(len(records)))
		r.logger.Debug(ctx, "[REPO_BATCH_INSERT] Validation batch insert completed", logging.Fields{
			"count":       len(records),
			"duration_ms": duration.Milliseconds(),
		})
	}()

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, r.db.Rebind(upsertValidationRecord))
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		_, err := stmt.ExecContext(ctx,
			rec.SampleID,
			rec.Cycle,
			rec.Capacity,
			rec.Kind,
			rec.BatchID,
			rec.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert validation record %s/%d: %w", rec.SampleID, rec.Cycle, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.metrics.IngestionRecordsTotal.WithLabelValues("validation").Add(float64(len(records)))

	return nil
}

// GetValidationRecords returns every row for a sample, history first, by cycle
func (r *batteryRepository) GetValidationRecords(ctx context.Context, sampleID string) ([]*models.ValidationRecord, error) {
	query := r.db.Rebind(`
		SELECT id, sample_id, cycle, capacity, kind, batch_id, created_at
		FROM validation_records
		WHERE sample_id = ?
		ORDER BY kind, cycle
	`)

	var records []*models.ValidationRecord
	if err := r.db.SelectContext(ctx, "get_validation_records", &records, query, sampleID); err != nil {
		return nil, fmt.Errorf("failed to get validation records: %w", err)
	}

	if len(records) == 0 {
		return nil, &NotFoundError{
			Resource: "validation_sample",
			ID:       sampleID,
		}
	}

	return records, nil
}

// ListSamples summarizes the stored samples
func (r *batteryRepository) ListSamples(ctx context.Context) ([]*models.SampleSummary, error) {
	query := `
		SELECT sample_id,
		       SUM(CASE WHEN kind = 'history' THEN 1 ELSE 0 END) AS history_points,
		       SUM(CASE WHEN kind = 'prediction' THEN 1 ELSE 0 END) AS prediction_points,
		       MAX(cycle) AS max_cycle
		FROM validation_records
		GROUP BY sample_id
		ORDER BY sample_id
	`

	var samples []*models.SampleSummary
	if err := r.db.SelectContext(ctx, "list_samples", &samples, query); err != nil {
		return nil, fmt.Errorf("failed to list samples: %w", err)
	}

	return samples, nil
}

const upsertLCARecord = `
	INSERT INTO lca_records (
		binder_type, solvent_type,
		binder_amount_wt, graphite_wt, superp_wt, coating_thickness_mm,
		drying_temp_c, drying_time_min, areal_loading_g_m2,
		co2_kg_per_m2, energy_kwh_per_m2, voc_g_per_m2,
		batch_id, created_at
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (
		binder_type, solvent_type,
		binder_amount_wt, graphite_wt, superp_wt, coating_thickness_mm,
		drying_temp_c, drying_time_min, areal_loading_g_m2
	) DO UPDATE SET
		co2_kg_per_m2 = EXCLUDED.co2_kg_per_m2,
		energy_kwh_per_m2 = EXCLUDED.energy_kwh_per_m2,
		voc_g_per_m2 = EXCLUDED.voc_g_per_m2,
		batch_id = EXCLUDED.batch_id,
		created_at = EXCLUDED.created_at
`

// CreateLCARecordsBatch upserts LCA rows in a single transaction. Rows are keyed by
// their recipe and process columns, so re-ingesting a file replaces the measured
// targets instead of duplicating the training set.
func (r *batteryRepository) CreateLCARecordsBatch(ctx context.Context, records []*models.LCARecord) error {
	if len(records) == 0 {
		return nil
	}

	timer := time.Now()
	defer func() {
		duration := time.Since(timer)
		r.metrics.IngestionBatchSize.Observe(float64(len(records)))
		r.logger.Debug(ctx, "[REPO_BATCH_INSERT] LCA batch insert completed", logging.Fields{
			"count":       len(records),
			"duration_ms": duration.Milliseconds(),
		})
	}()

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, r.db.Rebind(upsertLCARecord))
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		_, err := stmt.ExecContext(ctx,
			string(rec.Binder),
			string(rec.Solvent),
			rec.BinderAmountWt,
			rec.GraphiteWt,
			rec.SuperPWt,
			rec.CoatingThicknessMM,
			rec.DryingTempC,
			rec.DryingTimeMin,
			rec.ArealLoading,
			rec.CO2KgPerM2,
			rec.EnergyKWhPerM2,
			rec.VOCGPerM2,
			rec.BatchID,
			rec.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert LCA record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.metrics.IngestionRecordsTotal.WithLabelValues("lca").Add(float64(len(records)))

	return nil
}

// ListLCARecords returns the full training set in insertion order
func (r *batteryRepository) ListLCARecords(ctx context.Context) ([]models.LCARecord, error) {
	query := `
		SELECT id, binder_type, solvent_type,
		       binder_amount_wt, graphite_wt, superp_wt, coating_thickness_mm,
		       drying_temp_c, drying_time_min, areal_loading_g_m2,
		       co2_kg_per_m2, energy_kwh_per_m2, voc_g_per_m2,
		       batch_id, created_at
		FROM lca_records
		ORDER BY id
	`

	var records []models.LCARecord
	if err := r.db.SelectContext(ctx, "list_lca_records", &records, query); err != nil {
		return nil, fmt.Errorf("failed to list LCA records: %w", err)
	}

	return records, nil
}

// HealthCheck performs a repository health check
func (r *batteryRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) IsTransient() bool {
	return false
}
