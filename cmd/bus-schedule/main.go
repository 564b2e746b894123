// Command bus-schedule runs the scripted transit demo against a fresh store
// and prints the roster after each step.
package main

import (
	"context"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/bus-schedule/internal/demo"
	"github.com/noah-isme/bus-schedule/internal/repository"
	"github.com/noah-isme/bus-schedule/internal/service"
	"github.com/noah-isme/bus-schedule/pkg/config"
	"github.com/noah-isme/bus-schedule/pkg/database"
	"github.com/noah-isme/bus-schedule/pkg/logger"
	"github.com/noah-isme/bus-schedule/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Error("demo failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	db, err := database.Open(cfg.Database, logger.NewQueryLog(cfg.Database.QueryLog))
	if err != nil {
		return err
	}
	defer db.Close()

	if !cfg.Database.Ephemeral() {
		logr.Warn("demo is running against a persistent store", zap.String("driver", cfg.Database.Driver))
	}
	if _, err := database.Migrate(db); err != nil {
		return err
	}

	transitSvc := service.NewTransitService(service.TransitRepositories{
		Stops:     repository.NewBusStopRepository(db),
		Routes:    repository.NewRouteRepository(db),
		Lines:     repository.NewBusLineRepository(db),
		Schedules: repository.NewScheduleRepository(db),
		Buses:     repository.NewBusRepository(db),
	}, validator.New(), logr)

	seed := cfg.Demo.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	runID := uuid.NewString()
	logr.Info("demo starting", zap.String("run_id", runID), zap.Int64("seed", seed))

	opts := demo.Options{
		Rand:   rand.New(rand.NewSource(seed)),
		Out:    os.Stdout,
		Logger: logr,
		RunID:  runID,
	}
	if cfg.Demo.ExportDir != "" {
		store, err := storage.NewLocalStorage(cfg.Demo.ExportDir)
		if err != nil {
			return err
		}
		opts.Export = &demo.Export{
			Service: service.NewExportService(transitSvc, logr),
			Storage: store,
			Formats: cfg.Demo.ExportFormats,
		}
	}

	res, err := demo.NewDriver(transitSvc, opts).Run(ctx)
	if err != nil {
		return err
	}
	for _, path := range res.ExportPaths {
		logr.Info("roster exported", zap.String("path", path))
	}
	return nil
}
