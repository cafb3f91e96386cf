package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"autovitrine/precos/internal/api"
	"autovitrine/precos/internal/config"
	"autovitrine/precos/internal/db"
	"autovitrine/precos/internal/logging"
	"autovitrine/precos/internal/routes"
)

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}

	// Initialize structured logging
	if err := logging.Init(cfg.Env, logging.Options{FilePath: cfg.LogFile}); err != nil {
		log.Fatalf("❌ Failed to initialize logger: %v", err)
	}
	defer logging.Close()

	logging.Info("Precos starting up",
		"environment", cfg.Env,
		"timestamp", time.Now().Format(time.RFC3339),
	)

	if err := cfg.ValidateDB(); err != nil {
		logging.Fatal("Database configuration invalid", "error", err.Error())
	}

	// Connect to DB with sqlx
	sqlxDB, err := db.ConnectPostgres(cfg.DB.DSN())
	if err != nil {
		logging.Fatal("Failed to connect to Postgres (sqlx)", "error", err.Error())
	}
	defer sqlxDB.Close()
	logging.Info("Connected to Postgres (sqlx)")

	if err := db.RunMigrations(sqlxDB.DB); err != nil {
		logging.Fatal("Failed to run migrations", "error", err.Error())
	}

	// GORM shares the sqlx pool
	gormDB, err := db.OpenORM(sqlxDB)
	if err != nil {
		logging.Fatal("Failed to open Postgres (GORM)", "error", err.Error())
	}
	logging.Info("Connected to Postgres (GORM)")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := api.InitDependencies(ctx, cfg, sqlxDB, gormDB, prometheus.DefaultRegisterer)
	if err != nil {
		logging.Fatal("Failed to initialize dependencies", "error", err.Error())
	}
	defer deps.Services.Cache.Close()

	upSince := time.Now()
	router := routes.RegisterRoutes(cfg, deps, prometheus.DefaultGatherer, upSince)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Info("Server starting", "port", cfg.Port, "environment", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal("Server failed", "error", err.Error())
		}
	}()

	<-ctx.Done()
	logging.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error("Graceful shutdown failed", "error", err.Error())
	}
}
