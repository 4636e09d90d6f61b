package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"battery-platform/internal/services"
	"battery-platform/internal/simulation"
	"battery-platform/pkg/database"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BATTERY_CONFIG", "")

	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, database.DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, simulation.RuleCurrent, cfg.Simulation.EfficiencyRule)
	assert.Equal(t, 1000, cfg.Simulation.DefaultCycles)
	assert.Equal(t, 100, cfg.Simulation.InputCycles)
	assert.Equal(t, 0.8, cfg.Simulation.EOLFraction)
	assert.Equal(t, 1.0, cfg.Simulation.DefaultInitialCapacity)
	assert.Equal(t, "data/validation.csv", cfg.Data.ValidationPath)

	assert.Equal(t, services.DefaultCycleLifeOptions(), cfg.CycleLifeOptions())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("BATTERY_CONFIG", "")
	t.Setenv("BATTERY_SERVER_PORT", "9090")
	t.Setenv("BATTERY_DATABASE_DRIVER", "postgres")
	t.Setenv("BATTERY_SIMULATION_EFFICIENCY_RULE", "legacy")
	t.Setenv("BATTERY_SERVER_WRITE_TIMEOUT", "45s")

	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, database.DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, 45*time.Second, cfg.Server.WriteTimeout)

	model, err := cfg.CycleLifeModel()
	require.NoError(t, err)
	assert.Equal(t, simulation.RuleLegacy, model.Efficiency.Name)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "battery.yaml")
	yaml := `
server:
  port: 7000
database:
  driver: sqlite
  path: ":memory:"
simulation:
  capacity_noise_std: 0
  max_cycles: 5000
data:
  lca_path: /srv/lca.csv
  validation_path: /srv/cells.csv
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, ":memory:", cfg.DatabaseOptions().Path)
	assert.Equal(t, 5000, cfg.Simulation.MaxCycles)
	assert.Equal(t, "/srv/lca.csv", cfg.Data.LCAPath)
	assert.Equal(t, "/srv/cells.csv", cfg.Data.ValidationPath)

	model, err := cfg.CycleLifeModel()
	require.NoError(t, err)
	assert.Equal(t, 0.0, model.CapacityNoise)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Setenv("BATTERY_CONFIG", "")

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"sqlite without path", func(c *Config) { c.Database.Path = "" }},
		{"postgres without host", func(c *Config) { c.Database.Driver = database.DriverPostgres; c.Database.Host = "" }},
		{"unknown rule", func(c *Config) { c.Simulation.EfficiencyRule = "v9" }},
		{"negative noise", func(c *Config) { c.Simulation.CapacityNoiseStd = -0.1 }},
		{"max below default", func(c *Config) { c.Simulation.MaxCycles = 10 }},
		{"eol fraction", func(c *Config) { c.Simulation.EOLFraction = 1.2 }},
		{"initial capacity", func(c *Config) { c.Simulation.DefaultInitialCapacity = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
