package services

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"battery-platform/internal/models"
	"battery-platform/internal/simulation"
)

func newCycleLifeService(t *testing.T) (*CycleLifeService, *simulation.CycleLifeModel) {
	t.Helper()
	logger, collector := newTestObservability(t)
	model := simulation.NewCycleLifeModel(simulation.CurrentEfficiencyRule())
	return NewCycleLifeService(model, DefaultCycleLifeOptions(), logger, collector), model
}

func ptr[T any](v T) *T { return &v }

func TestCycleLifeService_Defaults(t *testing.T) {
	svc, _ := newCycleLifeService(t)

	report, err := svc.Simulate(context.Background(), CycleLifeRequest{Seed: ptr(uint64(42))})
	require.NoError(t, err)

	assert.Equal(t, DefaultProfile, report.Profile)
	assert.Equal(t, "Normal (PVDF)", report.Label)
	assert.Equal(t, 1000, report.Prediction.Len())
	assert.Equal(t, 2.5, report.Prediction.DecayRate)
	assert.Equal(t, 1.0, report.Prediction.InitialCapacity)
	assert.Equal(t, 100, report.InputCycles)
	assert.Equal(t, uint64(42), report.Seed)
	assert.Equal(t, simulation.RuleCurrent, report.EfficiencyRule)
	assert.InDelta(t, 0.8, report.EndOfLife.Threshold, 1e-12)
	assert.NotEmpty(t, report.Message)

	assert.Equal(t, 1.0, testutil.ToFloat64(svc.metrics.SimulationsTotal.WithLabelValues(DefaultProfile)))
}

func TestCycleLifeService_SeedReproducesCurve(t *testing.T) {
	svc, _ := newCycleLifeService(t)
	ctx := context.Background()

	first, err := svc.Simulate(ctx, CycleLifeRequest{Profile: "poor"})
	require.NoError(t, err)

	again, err := svc.Simulate(ctx, CycleLifeRequest{Profile: "poor", Seed: ptr(first.Seed)})
	require.NoError(t, err)

	assert.Equal(t, first.Prediction, again.Prediction)
	assert.Equal(t, first.Summary, again.Summary)
}

func TestCycleLifeService_ProfileEOL(t *testing.T) {
	svc, _ := newCycleLifeService(t)
	ctx := context.Background()

	// Noise is far smaller than the gap between these fade curves and the threshold.
	// The excellent sample stays near 0.85 at cycle 1000.
	excellent, err := svc.Simulate(ctx, CycleLifeRequest{Profile: "A", Seed: ptr(uint64(1))})
	require.NoError(t, err)
	assert.Equal(t, "excellent", excellent.Profile)
	assert.False(t, excellent.EndOfLife.Reached)
	assert.Equal(t, "no EOL reached within the simulated horizon of 1000 cycles", excellent.Message)

	extended, err := svc.Simulate(ctx, CycleLifeRequest{Profile: "A", Cycles: 2000, Seed: ptr(uint64(1))})
	require.NoError(t, err)
	assert.True(t, extended.EndOfLife.Reached)
	assert.Greater(t, extended.EndOfLife.Cycle, 1000)

	poor, err := svc.Simulate(ctx, CycleLifeRequest{Profile: "unstable", Seed: ptr(uint64(1))})
	require.NoError(t, err)
	assert.True(t, poor.EndOfLife.Reached)
	assert.Less(t, poor.EndOfLife.Cycle, 300)
	assert.Equal(t, poor.EndOfLife.Index+1, poor.EndOfLife.Cycle)
	assert.Less(t, poor.Summary.FinalRetentionPct, excellent.Summary.FinalRetentionPct)
}

func TestCycleLifeService_ExplicitDecayRate(t *testing.T) {
	svc, _ := newCycleLifeService(t)

	report, err := svc.Simulate(context.Background(), CycleLifeRequest{
		Profile:         "poor",
		DecayRate:       ptr(0.5),
		InitialCapacity: ptr(160.0),
		Cycles:          200,
		Seed:            ptr(uint64(9)),
	})
	require.NoError(t, err)

	assert.Equal(t, "custom", report.Profile)
	assert.Equal(t, 0.5, report.Prediction.DecayRate)
	assert.Equal(t, 200, report.Prediction.Len())
	assert.False(t, report.EndOfLife.Reached)
	assert.Contains(t, report.Message, "200")
	assert.InDelta(t, 128.0, report.EndOfLife.Threshold, 1e-9)
	assert.Greater(t, report.Summary.EfficiencyMean, 99.9)
	assert.LessOrEqual(t, report.Summary.EfficiencyMin, report.Summary.EfficiencyMean)
}

func TestCycleLifeService_InputWindowShorterThanRun(t *testing.T) {
	svc, _ := newCycleLifeService(t)

	report, err := svc.Simulate(context.Background(), CycleLifeRequest{Cycles: 40, Seed: ptr(uint64(2))})
	require.NoError(t, err)
	assert.Equal(t, 40, report.InputCycles)
}

func TestCycleLifeService_RejectsBadRequests(t *testing.T) {
	svc, _ := newCycleLifeService(t)

	tests := []struct {
		name      string
		req       CycleLifeRequest
		wantField string
	}{
		{"unknown profile", CycleLifeRequest{Profile: "mediocre"}, "profile"},
		{"negative cycles", CycleLifeRequest{Cycles: -5}, "cycles"},
		{"too many cycles", CycleLifeRequest{Cycles: 1_000_000}, "cycles"},
		{"zero decay", CycleLifeRequest{DecayRate: ptr(0.0)}, "decay_rate"},
		{"negative capacity", CycleLifeRequest{InitialCapacity: ptr(-1.0)}, "initial_capacity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Simulate(context.Background(), tt.req)
			var argErr *models.InvalidArgumentError
			require.ErrorAs(t, err, &argErr)
			assert.Equal(t, tt.wantField, argErr.Field)
		})
	}
}

func TestCycleLifeService_Profiles(t *testing.T) {
	svc, _ := newCycleLifeService(t)
	profiles := svc.Profiles()
	require.Len(t, profiles, 3)
	assert.Equal(t, []float64{1.0, 2.5, 5.0}, []float64{profiles[0].DecayRate, profiles[1].DecayRate, profiles[2].DecayRate})
}
