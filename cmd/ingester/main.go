package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"battery-platform/internal/config"
	"battery-platform/internal/repository"
	"battery-platform/internal/services"
	"battery-platform/pkg/database"
	"battery-platform/pkg/logging"
	"battery-platform/pkg/metrics"
)

const version = "1.0.0"

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "", "Path to a YAML config file")
	dataDir := flag.String("data-dir", "./data", "Directory containing validation and LCA CSV files")
	batchSize := flag.Int("batch-size", 1000, "Number of records to insert in each batch")
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

	logger := logging.NewStructuredLogger("battery-ingester", version, logging.ParseLevel(cfg.Logging.Level))
	defer logger.Sync()

	// Positional arguments name individual files and take precedence over -data-dir
	files := flag.Args()

	ctx := context.Background()
	logger.Info(ctx, "[INGESTER_START] Starting battery data ingestion", logging.Fields{
		"version":    version,
		"data_dir":   *dataDir,
		"files":      len(files),
		"batch_size": *batchSize,
		"db_driver":  cfg.Database.Driver,
	})

	metricsCollector := metrics.NewCollector("battery_ingester")

	db, err := database.Open(cfg.DatabaseOptions(), logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[INGESTER_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	if err := db.Migrate(ctx, "up"); err != nil {
		logger.Fatal(ctx, "[INGESTER_ERROR] Failed to apply schema", logging.Fields{}, err)
	}

	batteryRepo := repository.NewBatteryRepository(db, logger, metricsCollector)
	ingestionService := services.NewIngestionService(batteryRepo, logger, metricsCollector)

	var result *services.IngestionResult
	if len(files) > 0 {
		result, err = ingestionService.IngestFiles(ctx, files, *batchSize)
	} else {
		result, err = ingestionService.IngestDirectory(ctx, *dataDir, *batchSize)
	}
	if err != nil {
		logger.Fatal(ctx, "[INGESTION_ERROR] Ingestion failed", logging.Fields{}, err)
	}

	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("INGESTION COMPLETE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Total Files:        %d\n", result.TotalFiles)
	fmt.Printf("Total Records:      %d\n", result.TotalRecords)
	fmt.Printf("Successful Records: %d\n", result.SuccessfulRecords)
	fmt.Printf("Failed Records:     %d\n", result.FailedRecords)
	fmt.Printf("Duration:           %v\n", result.Duration)
	if seconds := result.Duration.Seconds(); seconds > 0 {
		fmt.Printf("Records/Second:     %.2f\n", float64(result.SuccessfulRecords)/seconds)
	}
	for _, id := range result.BatchIDs {
		fmt.Printf("Batch:              %s\n", id)
	}

	if len(result.Errors) > 0 {
		fmt.Printf("\nErrors (%d):\n", len(result.Errors))
		for i, errMsg := range result.Errors {
			if i < 10 {
				fmt.Printf("  - %s\n", errMsg)
			}
		}
		if len(result.Errors) > 10 {
			fmt.Printf("  ... and %d more errors\n", len(result.Errors)-10)
		}
	}

	logger.Info(ctx, "[INGESTER_COMPLETE] Ingestion completed", logging.Fields{
		"total_records":      result.TotalRecords,
		"successful_records": result.SuccessfulRecords,
		"failed_records":     result.FailedRecords,
		"duration_seconds":   result.Duration.Seconds(),
	})
}
