package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aadjones/kent-repertory-etl/internal/api"
	"github.com/aadjones/kent-repertory-etl/internal/config"
	"github.com/aadjones/kent-repertory-etl/internal/db"
	"github.com/aadjones/kent-repertory-etl/internal/fetch"
	"github.com/aadjones/kent-repertory-etl/internal/pipeline"
	"github.com/aadjones/kent-repertory-etl/internal/store"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.New(cfg.OutputDir)
	if err != nil {
		log.Error("output dir unavailable", "error", err)
		os.Exit(1)
	}

	var database *db.DB
	if cfg.DatabaseURL != "" {
		database, err = db.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("database unavailable", "error", err)
			os.Exit(1)
		}
		if err := database.Initialize(ctx); err != nil {
			log.Error("schema setup failed", "error", err)
			os.Exit(1)
		}
	}

	var fetcher *fetch.Client
	if cfg.ArchiveURL != "" {
		fetcher = fetch.NewClient(cfg.ArchiveURL, cfg.FetchTimeout, cfg.MaxUploadBytes)
	}

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, st, database, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, fetcher, database, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		if fetcher != nil {
			fetcher.Close()
		}
		if database != nil {
			database.Close()
		}
	}()

	log.Info("starting repertoryd", "port", cfg.Port, "output_dir", cfg.OutputDir)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
