package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	yaml "go.yaml.in/yaml/v3"

	"battery-platform/internal/models"
	"battery-platform/internal/services"
	"battery-platform/internal/simulation"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("BATTERY_CONFIG", "")
	t.Setenv("BATTERY_DATA_LCA_PATH", filepath.Join(t.TempDir(), "absent.csv"))

	var out bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(io.Discard)
	err := root.Execute()
	return out.String(), err
}

func TestProfilesCommand(t *testing.T) {
	out, err := run(t, "profiles")
	require.NoError(t, err)

	var profiles []models.DegradationProfile
	require.NoError(t, json.Unmarshal([]byte(out), &profiles))
	require.Len(t, profiles, 3)
	assert.Equal(t, "normal", profiles[1].Name)
	assert.Equal(t, 2.5, profiles[1].DecayRate)
}

func TestSimulateCommand(t *testing.T) {
	args := []string{"simulate", "--profile", "poor", "--cycles", "500", "--seed", "42", "--summary"}

	out, err := run(t, args...)
	require.NoError(t, err)

	var digest simulationDigest
	require.NoError(t, json.Unmarshal([]byte(out), &digest))
	assert.Equal(t, "poor", digest.Profile)
	assert.Equal(t, uint64(42), digest.Seed)
	assert.Equal(t, 500, digest.Cycles)
	assert.Equal(t, 100, digest.InputCycles)
	assert.True(t, digest.EndOfLife.Reached)
	assert.Less(t, digest.EndOfLife.Cycle, 300)

	again, err := run(t, args...)
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestSimulateCommand_FullReport(t *testing.T) {
	out, err := run(t, "simulate", "--decay-rate", "1.8", "--cycles", "50", "--seed", "9")
	require.NoError(t, err)

	var report services.CycleLifeReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "custom", report.Profile)
	require.NotNil(t, report.Prediction)
	assert.Len(t, report.Prediction.Capacity, 50)
	assert.Len(t, report.Prediction.CoulombicEfficiency, 50)
	assert.False(t, report.EndOfLife.Reached)
}

func TestSimulateCommand_YAML(t *testing.T) {
	out, err := run(t, "simulate", "-o", "yaml", "--summary", "--seed", "1")
	require.NoError(t, err)

	var digest map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(out), &digest))
	assert.Equal(t, services.DefaultProfile, digest["profile"])
	assert.Equal(t, 1000, digest["cycles"])
	assert.Contains(t, digest, "end_of_life")
}

func TestSimulateCommand_RequestFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "request.yaml")
	require.NoError(t, os.WriteFile(path, []byte("profile: excellent\ncycles: 200\nseed: 3\n"), 0o600))

	out, err := run(t, "simulate", "--from", path, "--summary")
	require.NoError(t, err)
	var digest simulationDigest
	require.NoError(t, json.Unmarshal([]byte(out), &digest))
	assert.Equal(t, "excellent", digest.Profile)
	assert.Equal(t, 200, digest.Cycles)
	assert.Equal(t, uint64(3), digest.Seed)

	out, err = run(t, "simulate", "--from", path, "--cycles", "120", "--summary")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &digest))
	assert.Equal(t, 120, digest.Cycles)

	jsonPath := filepath.Join(dir, "request.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"decay_rate": 4.0, "cycles": 80}`), 0o600))
	out, err = run(t, "simulate", "--from", jsonPath, "--summary")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &digest))
	assert.Equal(t, "custom", digest.Profile)
	assert.Equal(t, 4.0, digest.DecayRate)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("profile: poor\nnoise: 3\n"), 0o600))
	_, err = run(t, "simulate", "--from", bad)
	assert.Error(t, err)

	_, err = run(t, "simulate", "--from", filepath.Join(dir, "absent.yaml"))
	assert.Error(t, err)
}

func TestSimulateCommand_InvalidArguments(t *testing.T) {
	var argErr *models.InvalidArgumentError

	_, err := run(t, "simulate", "--profile", "legendary")
	require.ErrorAs(t, err, &argErr)
	assert.Equal(t, "profile", argErr.Field)

	_, err = run(t, "simulate", "--cycles", "-5")
	require.ErrorAs(t, err, &argErr)
	assert.Equal(t, "cycles", argErr.Field)

	_, err = run(t, "simulate", "--decay-rate", "0")
	assert.ErrorAs(t, err, &argErr)
}

func TestEstimateCommand(t *testing.T) {
	out, err := run(t, "estimate", "--binder", "pvdf", "--solvent", "NMP", "--temp", "130", "--time", "60", "--loading", "20", "--data-seed", "5")
	require.NoError(t, err)

	var report services.ImpactReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.NotNil(t, report.Estimate)
	assert.Equal(t, models.BinderPVDF, report.Condition.Binder)
	assert.InDelta(t, 0.45, report.Estimate.CO2KgPerM2, 1e-9)
	assert.InDelta(t, 6.0, report.Estimate.VOCGPerM2, 1e-9)
	assert.InDelta(t, 0.315, report.Estimate.EnergyKWhPerM2, 1e-9)
	assert.Equal(t, simulation.MethodRules, report.Estimate.Method)
	assert.Equal(t, services.BaselineDataset, report.Baseline.Source)
}

func TestEstimateCommand_Surrogate(t *testing.T) {
	out, err := run(t, "estimate", "-b", "CMC", "-s", "Water", "--method", "surrogate", "--data-seed", "5", "-o", "yaml")
	require.NoError(t, err)

	var report map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(out), &report))
	estimate, ok := report["estimate"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, simulation.MethodSurrogate, estimate["method"])
	assert.Contains(t, estimate, "co2_kg_per_m2")
	assert.Equal(t, "Low (Bio-based Polymer)", estimate["co2_level"])
}

func TestEstimateCommand_Errors(t *testing.T) {
	var incompatible *models.IncompatibleMaterialsError
	_, err := run(t, "estimate", "--binder", "CMGG", "--solvent", "NMP")
	require.ErrorAs(t, err, &incompatible)
	assert.Equal(t, models.ReasonWaterBasedInOrganic, incompatible.Reason)

	var argErr *models.InvalidArgumentError
	_, err = run(t, "estimate", "--binder", "CMC", "--solvent", "acetone")
	require.ErrorAs(t, err, &argErr)
	assert.Equal(t, "solvent_type", argErr.Field)

	_, err = run(t, "estimate", "--binder", "CMC", "--solvent", "Water", "--method", "forest")
	require.ErrorAs(t, err, &argErr)
	assert.Equal(t, "method", argErr.Field)

	_, err = run(t, "estimate", "--binder", "CMC")
	assert.Error(t, err)
}

func TestRootCommand_InvalidOutput(t *testing.T) {
	_, err := run(t, "profiles", "-o", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --output")
}
