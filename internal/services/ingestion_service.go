package services

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"battery-platform/internal/dataset"
	"battery-platform/internal/models"
	"battery-platform/internal/repository"
	"battery-platform/pkg/logging"
	"battery-platform/pkg/metrics"
)

// Dataset kinds accepted by the ingester
const (
	DatasetValidation = "validation"
	DatasetLCA        = "lca"
)

// IngestionService loads CSV datasets into the repository
type IngestionService struct {
	repo    repository.BatteryRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// IngestionResult contains ingestion statistics
type IngestionResult struct {
	TotalFiles        int
	TotalRecords      int
	SuccessfulRecords int
	FailedRecords     int
	BatchIDs          []string
	Duration          time.Duration
	Errors            []string
}

// FileIngestionResult contains per-file ingestion statistics
type FileIngestionResult struct {
	Dataset           string
	BatchID           string
	TotalRecords      int
	SuccessfulRecords int
	FailedRecords     int
}

// NewIngestionService creates a new ingestion service
func NewIngestionService(repo repository.BatteryRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *IngestionService {
	return &IngestionService{
		repo:    repo,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// IngestDirectory ingests every CSV file in dataDir, detecting the dataset per file
func (s *IngestionService) IngestDirectory(ctx context.Context, dataDir string, batchSize int) (*IngestionResult, error) {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no data files found in %s", dataDir)
	}

	return s.IngestFiles(ctx, files, batchSize)
}

// IngestFiles ingests the given files. A failing file is recorded and skipped.
func (s *IngestionService) IngestFiles(ctx context.Context, files []string, batchSize int) (*IngestionResult, error) {
	if batchSize <= 0 {
		return nil, &models.InvalidArgumentError{Field: "batch_size", Value: fmt.Sprint(batchSize), Message: "must be positive"}
	}

	startTime := time.Now()

	s.logger.Info(ctx, "[INGEST_START] Starting data ingestion", logging.Fields{
		"file_count": len(files),
		"batch_size": batchSize,
		"stage":      "INITIALIZATION",
	})

	result := &IngestionResult{
		TotalFiles: len(files),
		Errors:     make([]string, 0),
	}

	for _, filePath := range files {
		fileResult, err := s.IngestFile(ctx, filePath, batchSize)
		if fileResult != nil {
			result.TotalRecords += fileResult.TotalRecords
			result.SuccessfulRecords += fileResult.SuccessfulRecords
			result.FailedRecords += fileResult.FailedRecords
			if fileResult.SuccessfulRecords > 0 {
				result.BatchIDs = append(result.BatchIDs, fileResult.BatchID)
			}
		}
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to ingest %s: %v", filePath, err))
			s.logger.Error(ctx, "[INGEST_FILE_ERROR] File ingestion failed", logging.Fields{
				"file_path": filePath,
				"stage":     "FILE_PROCESSING",
			}, err)
			s.metrics.RecordIngestionError("file_error")
			continue
		}

		s.logger.Info(ctx, "[INGEST_FILE_SUCCESS] File ingested successfully", logging.Fields{
			"file_path":          filePath,
			"dataset":            fileResult.Dataset,
			"batch_id":           fileResult.BatchID,
			"total_records":      fileResult.TotalRecords,
			"successful_records": fileResult.SuccessfulRecords,
			"failed_records":     fileResult.FailedRecords,
			"stage":              "FILE_COMPLETE",
		})
	}

	result.Duration = time.Since(startTime)
	s.metrics.IngestionDuration.Observe(result.Duration.Seconds())

	s.logger.Info(ctx, "[INGEST_COMPLETE] Data ingestion completed", logging.Fields{
		"total_files":        result.TotalFiles,
		"total_records":      result.TotalRecords,
		"successful_records": result.SuccessfulRecords,
		"failed_records":     result.FailedRecords,
		"duration_seconds":   result.Duration.Seconds(),
		"error_count":        len(result.Errors),
		"stage":              "COMPLETE",
	})

	return result, nil
}

// IngestFile ingests a single CSV file under a fresh batch ID. Rows that cannot be
// converted are skipped and counted as failed. When a batch insert fails, the result
// still reports the rows committed by earlier batches alongside the error.
func (s *IngestionService) IngestFile(ctx context.Context, filePath string, batchSize int) (*FileIngestionResult, error) {
	kind, err := DetectDataset(filePath)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	result := &FileIngestionResult{
		Dataset: kind,
		BatchID: uuid.NewString(),
	}
	now := time.Now().UTC()

	var (
		rowErrs   []dataset.RowError
		converted int
		insertErr error
	)
	switch kind {
	case DatasetLCA:
		records, errs, err := dataset.ScanLCACSV(file)
		if err != nil {
			s.metrics.RecordIngestionError("parse_error")
			return nil, err
		}
		batch := make([]*models.LCARecord, len(records))
		for i := range records {
			records[i].BatchID = result.BatchID
			records[i].CreatedAt = now
			batch[i] = &records[i]
		}
		rowErrs, converted = errs, len(batch)
		result.SuccessfulRecords, insertErr = insertBatches(ctx, batch, batchSize, s.repo.CreateLCARecordsBatch)

	default:
		records, errs, err := dataset.ReadValidationCSV(file)
		if err != nil {
			s.metrics.RecordIngestionError("parse_error")
			return nil, err
		}
		batch := make([]*models.ValidationRecord, len(records))
		for i := range records {
			records[i].BatchID = result.BatchID
			records[i].CreatedAt = now
			batch[i] = &records[i]
		}
		rowErrs, converted = errs, len(batch)
		result.SuccessfulRecords, insertErr = insertBatches(ctx, batch, batchSize, s.repo.CreateValidationRecordsBatch)
	}

	for _, rowErr := range rowErrs {
		s.metrics.RecordIngestionError("conversion_error")
		s.logger.Debug(ctx, "[INGEST_ROW_SKIPPED] Row skipped", logging.Fields{
			"file_path": filePath,
			"dataset":   kind,
			"line":      rowErr.Line,
			"error":     rowErr.Err.Error(),
		})
	}

	result.TotalRecords = converted + len(rowErrs)
	result.FailedRecords = result.TotalRecords - result.SuccessfulRecords
	if insertErr != nil {
		s.metrics.RecordIngestionError("insert_error")
		return result, insertErr
	}
	return result, nil
}

// insertBatches hands records to insert in chunks of batchSize and reports how many
// were committed before the first failure
func insertBatches[T any](ctx context.Context, records []*T, batchSize int, insert func(context.Context, []*T) error) (int, error) {
	inserted := 0
	for start := 0; start < len(records); start += batchSize {
		end := min(start+batchSize, len(records))
		if err := insert(ctx, records[start:end]); err != nil {
			return inserted, fmt.Errorf("failed to insert batch of rows %d-%d: %w", start+1, end, err)
		}
		inserted = end
	}
	return inserted, nil
}

// SeedValidation ingests the validation CSV at path when the repository holds no
// samples yet. An empty path or a missing file leaves the repository empty and is
// not an error.
func (s *IngestionService) SeedValidation(ctx context.Context, path string, batchSize int) (*FileIngestionResult, error) {
	if path == "" {
		return nil, nil
	}

	samples, err := s.repo.ListSamples(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing samples: %w", err)
	}
	if len(samples) > 0 {
		s.logger.Debug(ctx, "[INGEST_SEED_SKIPPED] Validation data already present", logging.Fields{
			"sample_count": len(samples),
		})
		return nil, nil
	}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn(ctx, "[INGEST_SEED_MISSING] Validation file not found, comparison endpoints will report no data", logging.Fields{
			"file_path": path,
		})
		return nil, nil
	}

	kind, err := DetectDataset(path)
	if err != nil {
		return nil, err
	}
	if kind != DatasetValidation {
		return nil, fmt.Errorf("%s holds %s data, expected %s", path, kind, DatasetValidation)
	}

	result, err := s.IngestFile(ctx, path, batchSize)
	if result != nil {
		s.logger.Info(ctx, "[INGEST_SEED] Validation data seeded", logging.Fields{
			"file_path":          path,
			"batch_id":           result.BatchID,
			"successful_records": result.SuccessfulRecords,
			"failed_records":     result.FailedRecords,
		})
	}
	return result, err
}

// DetectDataset reads the header line of a CSV file and reports which dataset it
// holds. Files carrying a binder column are LCA data; everything else is treated as
// validation data.
func DetectDataset(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("error reading file: %w", err)
		}
		return "", fmt.Errorf("empty file: %s", filePath)
	}

	header := strings.ToLower(scanner.Text())
	if strings.Contains(header, strings.ToLower(dataset.ColBinderType)) {
		return DatasetLCA, nil
	}
	return DatasetValidation, nil
}
