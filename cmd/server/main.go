package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"battery-platform/internal/config"
	"battery-platform/internal/handlers"
	"battery-platform/internal/repository"
	"battery-platform/internal/services"
	"battery-platform/internal/simulation"
	"battery-platform/pkg/database"
	"battery-platform/pkg/logging"
	"battery-platform/pkg/metrics"
)

const (
	version       = "1.0.0"
	seedBatchSize = 1000
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file (default: ./battery.yaml or $BATTERY_CONFIG)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("battery-api", version, logging.ParseLevel(cfg.Logging.Level))
	defer logger.Sync()

	ctx := context.Background()
	logger.Info(ctx, "[STARTUP] Starting battery platform API server", logging.Fields{
		"version":         version,
		"server_host":     cfg.Server.Host,
		"server_port":     cfg.Server.Port,
		"db_driver":       cfg.Database.Driver,
		"efficiency_rule": cfg.Simulation.EfficiencyRule,
	})

	metricsCollector := metrics.NewCollector("battery_platform")

	// Initialize database
	db, err := database.Open(cfg.DatabaseOptions(), logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	if err := db.Migrate(ctx, "up"); err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to apply schema", logging.Fields{}, err)
	}

	batteryRepo := repository.NewBatteryRepository(db, logger, metricsCollector)

	// An empty database picks up the comparison data from the configured CSV
	ingestionService := services.NewIngestionService(batteryRepo, logger, metricsCollector)
	if _, err := ingestionService.SeedValidation(ctx, cfg.Data.ValidationPath, seedBatchSize); err != nil {
		logger.Warn(ctx, "[STARTUP_WARNING] Validation data not seeded", logging.Fields{
			"path":  cfg.Data.ValidationPath,
			"error": err.Error(),
		})
	}

	// Build the impact estimators once; requests only read them
	trainingSet, err := services.LoadTrainingSet(ctx, batteryRepo, cfg.Data.LCAPath, nil, logger)
	if err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to load LCA dataset", logging.Fields{
			"path": cfg.Data.LCAPath,
		}, err)
	}

	var surrogate simulation.Estimator
	if model, err := services.FitSurrogate(ctx, trainingSet, cfg.Simulation.SurrogateRidge, logger, metricsCollector); err != nil {
		logger.Warn(ctx, "[STARTUP_WARNING] Surrogate estimator disabled", logging.Fields{
			"error": err.Error(),
		})
	} else {
		surrogate = model
	}

	baseline := services.NMPBaseline(trainingSet.Records)
	logger.Info(ctx, "[BASELINE] NMP baseline selected", logging.Fields{
		"source":     baseline.Source,
		"co2":        baseline.CO2KgPerM2,
		"energy":     baseline.EnergyKWhPerM2,
		"voc":        baseline.VOCGPerM2,
		"train_rows": len(trainingSet.Records),
	})

	cycleLifeModel, err := cfg.CycleLifeModel()
	if err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Invalid cycle life model", logging.Fields{}, err)
	}

	// Initialize services
	cycleLifeService := services.NewCycleLifeService(cycleLifeModel, cfg.CycleLifeOptions(), logger, metricsCollector)
	impactService := services.NewImpactService(simulation.NewImpactModel(), surrogate, baseline, logger, metricsCollector)
	validationService := services.NewValidationService(batteryRepo, logger, metricsCollector)

	batteryHandler := handlers.NewBatteryHandler(
		cycleLifeService,
		impactService,
		validationService,
		batteryRepo,
		logger,
		metricsCollector,
	)

	// Setup router
	router := mux.NewRouter()
	router.Use(handlers.RequestID(), handlers.AccessLog(logger))

	batteryHandler.RegisterRoutes(router)

	// Prometheus metrics endpoint
	router.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info(ctx, "[SERVER_START] HTTP server listening", logging.Fields{
			"address": server.Addr,
		})

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "[SERVER_ERROR] Server failed", logging.Fields{}, err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "[SHUTDOWN] Shutting down server...", logging.Fields{})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "[SHUTDOWN_ERROR] Server forced to shutdown", logging.Fields{}, err)
	}

	logger.Info(ctx, "[SHUTDOWN_COMPLETE] Server stopped", logging.Fields{})
}
