package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ardata-lab/ardata/internal/aggcache"
	"github.com/ardata-lab/ardata/internal/config"
	"github.com/ardata-lab/ardata/internal/core/calendar"
	"github.com/ardata-lab/ardata/internal/core/pipeline"
	"github.com/ardata-lab/ardata/internal/core/storage/postgres"
	"github.com/ardata-lab/ardata/internal/metrics"
	"github.com/ardata-lab/ardata/internal/migrations"
	"github.com/ardata-lab/ardata/internal/report"
	"github.com/ardata-lab/ardata/internal/server"
)

func main() {
	configPath := flag.String("config", "ardata.yaml", "Path to configuration file")
	runOnce := flag.Bool("once", false, "Run a single report and exit")
	flag.Parse()

	// 0. Initialize Logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 1. Load Configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	interval, err := time.ParseDuration(cfg.Report.EffectiveInterval())
	if err != nil {
		slog.Error("Invalid report schedule interval", "value", cfg.Report.EffectiveInterval(), "error", err)
		os.Exit(1)
	}

	// 2. Reporting Calendar
	year, err := calendar.NewSchoolYear(cfg.Calendar)
	if err != nil {
		slog.Error("Invalid calendar configuration", "error", err)
		os.Exit(1)
	}

	// 3. Sheet Catalog
	catalog, err := pipeline.NewCatalog(cfg.Report.CatalogDir)
	if err != nil {
		slog.Error("Failed to load sheet catalog", "dir", cfg.Report.CatalogDir, "error", err)
		os.Exit(1)
	}
	slog.Info("Sheet catalog loaded", "dir", cfg.Report.CatalogDir, "sheets", catalog.Len())

	// 4. Storage (PostgreSQL)
	dbAdapter, err := postgres.NewAdapter(
		cfg.Database.DSN,
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
	)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer dbAdapter.Close()

	if err := migrations.Apply(dbAdapter.DB(), cfg.Database.AutoMigrate); err != nil {
		slog.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}

	// 5. Metrics, aggregation cache, report engine
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	cacheStats := report.NewCacheStats(m)

	executor := report.NewStoreExecutor(dbAdapter, year.Start, year.End)
	cache, err := aggcache.New(executor, cacheStats)
	if err != nil {
		slog.Error("Failed to initialize aggregation cache", "error", err)
		os.Exit(1)
	}

	builder := report.NewBuilder(cache, year, m)
	exporter := report.NewExporter(cfg.Report.OutputDir)
	engine := report.NewEngine(catalog, builder, dbAdapter, exporter, m, cacheStats)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *runOnce {
		run, err := engine.Run(ctx)
		if err != nil {
			slog.Error("Report run failed", "error", err)
			os.Exit(1)
		}
		slog.Info("Report run finished", "run_id", run.ID, "output", run.OutputPath)
		return
	}

	// 6. Background refresh
	if cfg.Report.ScheduleEnabled {
		scheduler := report.NewScheduler(interval, engine)
		go func() {
			if err := scheduler.Start(ctx); err != nil {
				slog.Error("Scheduler stopped with error", "error", err)
			}
		}()
	} else {
		slog.Info("Report scheduler disabled by config")
	}

	// 7. HTTP server
	srv := server.New(cfg.Server.Addr(), dbAdapter, dbAdapter, engine, registry, cfg.Server.Mode)

	// Signal handler triggers the shutdown sequence below.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Signal received, shutting down...")
		cancel()
	}()

	// HTTP server blocks until ctx is cancelled.
	if err := srv.Run(ctx); err != nil {
		slog.Error("Server stopped with error", "error", err)
	}

	slog.Info("Shutdown complete")
}
