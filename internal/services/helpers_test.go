package services

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"battery-platform/internal/models"
	"battery-platform/internal/repository"
	"battery-platform/pkg/logging"
	"battery-platform/pkg/metrics"
)

func newTestObservability(t *testing.T) (*logging.StructuredLogger, *metrics.Collector) {
	t.Helper()
	logger := logging.NewStructuredLogger("battery-test", "test", logging.ErrorLevel)
	logger.SetOutput(io.Discard)
	return logger, metrics.NewCollectorWithRegistry("battery_test", prometheus.NewRegistry())
}

// memoryRepository is an in-process BatteryRepository
type memoryRepository struct {
	mu         sync.Mutex
	validation []*models.ValidationRecord
	lca        []models.LCARecord
	failWith   error

	// batches counts batch inserts; the failOnBatch-th one fails when set
	batches     int
	failOnBatch int
}

var errBatchRejected = errors.New("batch rejected")

func (m *memoryRepository) nextBatch() error {
	m.batches++
	if m.failOnBatch > 0 && m.batches == m.failOnBatch {
		return errBatchRejected
	}
	return nil
}

var _ repository.BatteryRepository = (*memoryRepository)(nil)

func (m *memoryRepository) CreateValidationRecordsBatch(_ context.Context, records []*models.ValidationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	if err := m.nextBatch(); err != nil {
		return err
	}
	m.validation = append(m.validation, records...)
	return nil
}

func (m *memoryRepository) GetValidationRecords(_ context.Context, sampleID string) ([]*models.ValidationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.ValidationRecord
	for _, r := range m.validation {
		if r.SampleID == sampleID {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nil, &repository.NotFoundError{Resource: "validation_sample", ID: sampleID}
	}
	return out, nil
}

func (m *memoryRepository) ListSamples(_ context.Context) ([]*models.SampleSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	bySample := map[string]*models.SampleSummary{}
	for _, r := range m.validation {
		s, ok := bySample[r.SampleID]
		if !ok {
			s = &models.SampleSummary{SampleID: r.SampleID}
			bySample[r.SampleID] = s
		}
		if r.Kind == models.KindHistory {
			s.HistoryPoints++
		} else {
			s.PredictionPoints++
		}
		s.MaxCycle = max(s.MaxCycle, r.Cycle)
	}
	out := make([]*models.SampleSummary, 0, len(bySample))
	for _, s := range bySample {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SampleID < out[j].SampleID })
	return out, nil
}

func (m *memoryRepository) CreateLCARecordsBatch(_ context.Context, records []*models.LCARecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	if err := m.nextBatch(); err != nil {
		return err
	}
	for _, r := range records {
		m.lca = append(m.lca, *r)
	}
	return nil
}

func (m *memoryRepository) ListLCARecords(_ context.Context) ([]models.LCARecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	return append([]models.LCARecord(nil), m.lca...), nil
}

func (m *memoryRepository) HealthCheck(_ context.Context) error {
	return m.failWith
}
