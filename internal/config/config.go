// Package config loads service configuration from defaults, an optional YAML file
// and BATTERY_ environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"battery-platform/internal/services"
	"battery-platform/internal/simulation"
	"battery-platform/pkg/database"
)

// EnvPrefix is prepended to every environment override, e.g. BATTERY_SERVER_PORT
const EnvPrefix = "BATTERY"

// Config is the full service configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Data       DataConfig       `mapstructure:"data"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig configures the record store
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// LoggingConfig configures the structured logger
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// SimulationConfig holds the calculator defaults and limits
type SimulationConfig struct {
	EfficiencyRule         string  `mapstructure:"efficiency_rule"`
	CapacityNoiseStd       float64 `mapstructure:"capacity_noise_std"`
	DefaultCycles          int     `mapstructure:"default_cycles"`
	MaxCycles              int     `mapstructure:"max_cycles"`
	DefaultInitialCapacity float64 `mapstructure:"default_initial_capacity"`
	InputCycles            int     `mapstructure:"input_cycles"`
	EOLFraction            float64 `mapstructure:"eol_fraction"`
	SurrogateRidge         float64 `mapstructure:"surrogate_ridge"`
}

// DataConfig points at the optional CSV inputs. ValidationPath is ingested by the
// server on startup when the database holds no comparison samples.
type DataConfig struct {
	LCAPath        string `mapstructure:"lca_path"`
	ValidationPath string `mapstructure:"validation_path"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)

	v.SetDefault("database.driver", database.DriverSQLite)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "battery")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "battery_platform")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.path", "battery.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.conn_max_idle_time", 5*time.Minute)

	v.SetDefault("logging.level", "info")

	v.SetDefault("simulation.efficiency_rule", simulation.RuleCurrent)
	v.SetDefault("simulation.capacity_noise_std", 0.0015)
	v.SetDefault("simulation.default_cycles", 1000)
	v.SetDefault("simulation.max_cycles", 20000)
	v.SetDefault("simulation.default_initial_capacity", 1.0)
	v.SetDefault("simulation.input_cycles", 100)
	v.SetDefault("simulation.eol_fraction", 0.8)
	v.SetDefault("simulation.surrogate_ridge", simulation.DefaultRidge)

	v.SetDefault("data.lca_path", "data/lca_dataset.csv")
	v.SetDefault("data.validation_path", "data/validation.csv")
}

// Load reads configuration. path may be empty, in which case the file named by
// BATTERY_CONFIG is used if set; a missing default file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("battery")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		err := v.ReadInConfig()
		notFound := viper.ConfigFileNotFoundError{}
		if err != nil && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail later at startup
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}

	switch c.Database.Driver {
	case database.DriverPostgres:
		if c.Database.Host == "" || c.Database.Database == "" {
			return errors.New("database.host and database.database are required for postgres")
		}
	case database.DriverSQLite:
		if c.Database.Path == "" {
			return errors.New("database.path is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}

	if _, err := simulation.EfficiencyRuleByName(c.Simulation.EfficiencyRule); err != nil {
		return err
	}
	s := c.Simulation
	if s.CapacityNoiseStd < 0 {
		return errors.New("simulation.capacity_noise_std must be non-negative")
	}
	if s.DefaultCycles < 1 || s.MaxCycles < s.DefaultCycles {
		return fmt.Errorf("simulation cycle limits invalid: default %d, max %d", s.DefaultCycles, s.MaxCycles)
	}
	if s.DefaultInitialCapacity <= 0 {
		return errors.New("simulation.default_initial_capacity must be positive")
	}
	if s.InputCycles < 0 {
		return errors.New("simulation.input_cycles must be non-negative")
	}
	if s.EOLFraction <= 0 || s.EOLFraction >= 1 {
		return fmt.Errorf("simulation.eol_fraction must be in (0, 1), got %v", s.EOLFraction)
	}
	if s.SurrogateRidge < 0 {
		return errors.New("simulation.surrogate_ridge must be non-negative")
	}
	return nil
}

// DatabaseOptions converts the section into the database package config
func (c *Config) DatabaseOptions() *database.Config {
	return &database.Config{
		Driver:          c.Database.Driver,
		Host:            c.Database.Host,
		Port:            c.Database.Port,
		User:            c.Database.User,
		Password:        c.Database.Password,
		Database:        c.Database.Database,
		SSLMode:         c.Database.SSLMode,
		Path:            c.Database.Path,
		MaxOpenConns:    c.Database.MaxOpenConns,
		MaxIdleConns:    c.Database.MaxIdleConns,
		ConnMaxLifetime: c.Database.ConnMaxLifetime,
		ConnMaxIdleTime: c.Database.ConnMaxIdleTime,
	}
}

// CycleLifeModel builds the generator configured by the simulation section
func (c *Config) CycleLifeModel() (*simulation.CycleLifeModel, error) {
	rule, err := simulation.EfficiencyRuleByName(c.Simulation.EfficiencyRule)
	if err != nil {
		return nil, err
	}
	model := simulation.NewCycleLifeModel(rule)
	model.CapacityNoise = c.Simulation.CapacityNoiseStd
	return model, nil
}

// CycleLifeOptions converts the simulation section into service defaults
func (c *Config) CycleLifeOptions() services.CycleLifeOptions {
	return services.CycleLifeOptions{
		DefaultCycles:          c.Simulation.DefaultCycles,
		MaxCycles:              c.Simulation.MaxCycles,
		DefaultInitialCapacity: c.Simulation.DefaultInitialCapacity,
		InputCycles:            c.Simulation.InputCycles,
		EOLFraction:            c.Simulation.EOLFraction,
	}
}
