package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"autovitrine/precos/internal/config"
	"autovitrine/precos/internal/db"
	"autovitrine/precos/internal/db/repositories"
	"autovitrine/precos/internal/jobs"
	"autovitrine/precos/internal/logging"
	"autovitrine/precos/internal/metrics"
	"autovitrine/precos/internal/services"
)

// Loads one monthly export into the raw buffer.
//
//	fipe_import -file precos-2024-06.csv -month 2024-06 -normalize
func main() {
	file := flag.String("file", "", "path to the export (json, csv or xlsx)")
	month := flag.String("month", "", "reference month, YYYY-MM")
	format := flag.String("format", "", "file format; defaults to the file extension")
	normalize := flag.Bool("normalize", false, "run an incremental normalization after the import")
	rebuild := flag.Bool("rebuild", false, "with -normalize, rebuild the catalog from the whole buffer")
	flag.Parse()

	if *file == "" || *month == "" {
		flag.Usage()
		os.Exit(2)
	}
	if *format == "" {
		*format = strings.TrimPrefix(strings.ToLower(filepath.Ext(*file)), ".")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if err := logging.Init(cfg.Env, logging.Options{FilePath: cfg.LogFile}); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logging.Close()

	if err := cfg.ValidateDB(); err != nil {
		logging.Fatal("Database configuration invalid", "error", err.Error())
	}

	sqlxDB, err := db.ConnectPostgres(cfg.DB.DSN())
	if err != nil {
		logging.Fatal("Failed to connect to Postgres", "error", err.Error())
	}
	defer sqlxDB.Close()
	if err := db.RunMigrations(sqlxDB.DB); err != nil {
		logging.Fatal("Failed to run migrations", "error", err.Error())
	}
	gormDB, err := db.OpenORM(sqlxDB)
	if err != nil {
		logging.Fatal("Failed to open GORM", "error", err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	m := metrics.NewMetricsRegistry(prometheus.NewRegistry())

	f, err := os.Open(*file)
	if err != nil {
		logging.Fatal("Failed to open export", "file", *file, "error", err.Error())
	}
	defer f.Close()

	importer := services.NewImportService(repositories.NewRawPriceRepo(gormDB), cfg.Fipe.ImportBatchSize, m)
	report, err := importer.ImportFile(ctx, *month, *format, f)
	if err != nil {
		logging.Fatal("Import failed", "file", *file, "error", err.Error())
	}
	logging.Info("Import finished",
		"import_batch", report.ImportBatch,
		"received", report.Received,
		"inserted", report.Inserted,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"success_rate", report.SuccessRate)

	if !*normalize {
		return
	}

	job := jobs.NewNormalizeJob(gormDB, jobs.NormalizeConfig{
		BatchSize: cfg.Fipe.NormalizeBatchSize,
		Workers:   cfg.Fipe.NormalizeWorkers,
	}, m)
	run := job.Run
	if *rebuild {
		run = job.Rebuild
	}
	rec, err := run(ctx)
	if err != nil {
		logging.Fatal("Normalization failed", "error", err.Error())
	}
	logging.Info("Normalization finished",
		"run_id", rec.ID,
		"status", rec.Status,
		"rows_processed", rec.RowsProcessed)
}
