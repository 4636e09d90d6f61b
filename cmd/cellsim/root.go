package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	yaml "go.yaml.in/yaml/v3"

	"battery-platform/internal/config"
	"battery-platform/pkg/logging"
	"battery-platform/pkg/metrics"
)

// app carries the state shared by every subcommand once the root has initialised
type app struct {
	cfgFile  string
	output   string
	logLevel string

	cfg     *config.Config
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "cellsim",
		Short: "Offline battery cycle life and process impact calculators",
		Long: "cellsim runs the cycle life generator and the electrode process impact estimator\n" +
			"without a server or database. Results are printed as JSON or YAML.",
		Version:      Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is ./battery.yaml or $BATTERY_CONFIG)")
	root.PersistentFlags().StringVarP(&a.output, "output", "o", "json", "Output format: json|yaml")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level override: debug|info|warn|error")

	root.AddCommand(a.profilesCmd(), a.simulateCmd(), a.estimateCmd())
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	a.output = strings.ToLower(strings.TrimSpace(a.output))
	switch a.output {
	case "json", "yaml":
	default:
		return fmt.Errorf("invalid --output %q (expected json|yaml)", a.output)
	}

	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.cfg = cfg

	level := cfg.Logging.Level
	if a.logLevel != "" {
		level = a.logLevel
	}
	// Logs go to stderr so stdout stays machine readable
	a.logger = logging.NewStructuredLogger("cellsim", Version, logging.ParseLevel(level))
	a.logger.SetOutput(cmd.ErrOrStderr())
	a.metrics = metrics.NewCollectorWithRegistry("cellsim", prometheus.NewRegistry())
	return nil
}

// write renders v to the command's stdout in the selected format
func (a *app) write(cmd *cobra.Command, v interface{}) error {
	return encode(cmd.OutOrStdout(), a.output, v)
}

func encode(w io.Writer, format string, v interface{}) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
