package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"battery-platform/internal/config"
	"battery-platform/pkg/database"
	"battery-platform/pkg/logging"
	"battery-platform/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	direction := flag.String("direction", "up", "Migration direction: up or down")
	printOnly := flag.Bool("print", false, "Print the DDL for the configured driver instead of applying it")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	if *printOnly {
		ddl, err := database.SchemaFor(cfg.Database.Driver, *direction)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render schema: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(ddl)
		return
	}

	logger := logging.NewStructuredLogger("battery-migrate", "1.0.0", logging.ParseLevel(cfg.Logging.Level))
	defer logger.Sync()

	db, err := database.Open(cfg.DatabaseOptions(), logger, metrics.NewCollector("battery_migrate"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	fmt.Printf("Connected to %s database successfully\n", db.Driver())
	fmt.Printf("Running migration: %s\n", *direction)

	if err := db.Migrate(context.Background(), *direction); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to execute migration: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Migration completed successfully")
}
