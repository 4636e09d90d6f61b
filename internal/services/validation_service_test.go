package services

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"battery-platform/internal/models"
)

func record(sample string, cycle int, capacity float64, kind string) *models.ValidationRecord {
	return &models.ValidationRecord{SampleID: sample, Cycle: cycle, Capacity: capacity, Kind: kind}
}

func TestValidationService_NoData(t *testing.T) {
	logger, collector := newTestObservability(t)
	svc := NewValidationService(&memoryRepository{}, logger, collector)

	_, err := svc.ListSamples(context.Background())
	assert.ErrorIs(t, err, models.ErrNoData)

	_, err = svc.Compare(context.Background(), "A")
	assert.ErrorIs(t, err, models.ErrNoData)
	assert.Contains(t, err.Error(), "no data available")
}

func TestValidationService_RepositoryFailure(t *testing.T) {
	logger, collector := newTestObservability(t)
	boom := errors.New("connection refused")
	svc := NewValidationService(&memoryRepository{failWith: boom}, logger, collector)

	_, err := svc.ListSamples(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, models.ErrNoData)
}

func TestValidationService_Compare(t *testing.T) {
	logger, collector := newTestObservability(t)
	repo := &memoryRepository{validation: []*models.ValidationRecord{
		record("A", 3, 0.96, models.KindHistory),
		record("A", 1, 1.00, models.KindHistory),
		record("A", 2, 0.98, models.KindHistory),
		record("A", 1, 1.01, models.KindPrediction),
		record("A", 2, 0.95, models.KindPrediction),
		record("A", 4, 0.93, models.KindPrediction),
		record("B", 1, 0.90, models.KindHistory),
	}}
	svc := NewValidationService(repo, logger, collector)

	cmp, err := svc.Compare(context.Background(), "A")
	require.NoError(t, err)

	assert.Equal(t, "A", cmp.SampleID)
	assert.Equal(t, []CapacityPoint{{1, 1.00}, {2, 0.98}, {3, 0.96}}, cmp.History)
	assert.Equal(t, []CapacityPoint{{1, 1.01}, {2, 0.95}, {4, 0.93}}, cmp.Prediction)

	require.Len(t, cmp.Points, 4)
	assert.Equal(t, []int{1, 2, 3, 4}, []int{cmp.Points[0].Cycle, cmp.Points[1].Cycle, cmp.Points[2].Cycle, cmp.Points[3].Cycle})
	assert.Nil(t, cmp.Points[2].Predicted)
	assert.Nil(t, cmp.Points[3].Measured)
	require.NotNil(t, cmp.Points[1].Residual)
	assert.InDelta(t, -0.03, *cmp.Points[1].Residual, 1e-12)

	assert.Equal(t, 2, cmp.MatchedCycles)
	require.NotNil(t, cmp.RMSE)
	assert.InDelta(t, math.Sqrt((0.01*0.01+0.03*0.03)/2), *cmp.RMSE, 1e-12)
	assert.InDelta(t, 0.03, *cmp.MaxAbsError, 1e-12)

	samples, err := svc.ListSamples(context.Background())
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, 3, samples[0].HistoryPoints)
}

func TestValidationService_HistoryOnly(t *testing.T) {
	logger, collector := newTestObservability(t)
	repo := &memoryRepository{validation: []*models.ValidationRecord{
		record("C", 1, 1.0, models.KindHistory),
	}}
	svc := NewValidationService(repo, logger, collector)

	cmp, err := svc.Compare(context.Background(), "C")
	require.NoError(t, err)
	assert.Empty(t, cmp.Prediction)
	assert.Equal(t, 0, cmp.MatchedCycles)
	assert.Nil(t, cmp.RMSE)
}
