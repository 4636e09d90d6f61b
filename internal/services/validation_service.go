package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"battery-platform/internal/models"
	"battery-platform/internal/repository"
	"battery-platform/pkg/logging"
	"battery-platform/pkg/metrics"
)

// CapacityPoint is one (cycle, capacity) pair
type CapacityPoint struct {
	Cycle    int     `json:"cycle"`
	Capacity float64 `json:"capacity"`
}

// ComparisonPoint aligns measured and predicted capacity on a cycle
type ComparisonPoint struct {
	Cycle     int      `json:"cycle"`
	Measured  *float64 `json:"measured"`
	Predicted *float64 `json:"predicted"`
	Residual  *float64 `json:"residual"`
}

// SampleComparison is the history vs prediction view for one sample
type SampleComparison struct {
	SampleID      string            `json:"sample_id"`
	History       []CapacityPoint   `json:"history"`
	Prediction    []CapacityPoint   `json:"prediction"`
	Points        []ComparisonPoint `json:"points"`
	MatchedCycles int               `json:"matched_cycles"`
	RMSE          *float64          `json:"rmse"`
	MaxAbsError   *float64          `json:"max_abs_error"`
}

// ValidationService serves the experimental comparison data
type ValidationService struct {
	repo    repository.BatteryRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewValidationService creates a new validation service
func NewValidationService(repo repository.BatteryRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *ValidationService {
	return &ValidationService{
		repo:    repo,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// ListSamples returns the stored samples, or ErrNoData when nothing was ingested
func (s *ValidationService) ListSamples(ctx context.Context) ([]*models.SampleSummary, error) {
	samples, err := s.repo.ListSamples(ctx)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, models.ErrNoData
	}
	return samples, nil
}

// Compare builds the comparison for a sample. Unknown samples yield ErrNoData.
func (s *ValidationService) Compare(ctx context.Context, sampleID string) (*SampleComparison, error) {
	records, err := s.repo.GetValidationRecords(ctx, sampleID)
	var notFound *repository.NotFoundError
	if errors.As(err, &notFound) {
		return nil, fmt.Errorf("%w for sample %s", models.ErrNoData, sampleID)
	}
	if err != nil {
		return nil, err
	}

	comparison := compareRecords(sampleID, records)

	s.logger.Debug(ctx, "[VALIDATION_COMPARE] Sample comparison built", logging.Fields{
		"sample_id":      sampleID,
		"history":        len(comparison.History),
		"prediction":     len(comparison.Prediction),
		"matched_cycles": comparison.MatchedCycles,
	})

	return comparison, nil
}

func compareRecords(sampleID string, records []*models.ValidationRecord) *SampleComparison {
	c := &SampleComparison{
		SampleID:   sampleID,
		History:    []CapacityPoint{},
		Prediction: []CapacityPoint{},
	}

	byCycle := map[int]*ComparisonPoint{}
	for _, r := range records {
		point, ok := byCycle[r.Cycle]
		if !ok {
			point = &ComparisonPoint{Cycle: r.Cycle}
			byCycle[r.Cycle] = point
		}
		capacity := r.Capacity
		switch r.Kind {
		case models.KindHistory:
			c.History = append(c.History, CapacityPoint{Cycle: r.Cycle, Capacity: capacity})
			point.Measured = &capacity
		case models.KindPrediction:
			c.Prediction = append(c.Prediction, CapacityPoint{Cycle: r.Cycle, Capacity: capacity})
			point.Predicted = &capacity
		}
	}

	sort.Slice(c.History, func(i, j int) bool { return c.History[i].Cycle < c.History[j].Cycle })
	sort.Slice(c.Prediction, func(i, j int) bool { return c.Prediction[i].Cycle < c.Prediction[j].Cycle })

	var measured, predicted []float64
	c.Points = make([]ComparisonPoint, 0, len(byCycle))
	for _, p := range byCycle {
		if p.Measured != nil && p.Predicted != nil {
			residual := *p.Predicted - *p.Measured
			p.Residual = &residual
			measured = append(measured, *p.Measured)
			predicted = append(predicted, *p.Predicted)
		}
		c.Points = append(c.Points, *p)
	}
	sort.Slice(c.Points, func(i, j int) bool { return c.Points[i].Cycle < c.Points[j].Cycle })

	c.MatchedCycles = len(measured)
	if c.MatchedCycles > 0 {
		rmse := floats.Distance(predicted, measured, 2) / math.Sqrt(float64(c.MatchedCycles))
		maxAbs := floats.Distance(predicted, measured, math.Inf(1))
		c.RMSE = &rmse
		c.MaxAbsError = &maxAbs
	}

	return c
}
