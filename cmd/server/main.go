package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/typstgest/internal/api"
	"github.com/dgallion1/typstgest/internal/config"
	"github.com/dgallion1/typstgest/internal/convert"
	"github.com/dgallion1/typstgest/internal/parser"
	"github.com/dgallion1/typstgest/internal/pipeline"
	"github.com/dgallion1/typstgest/internal/stats"
	"github.com/dgallion1/typstgest/internal/store"
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

	conv := convert.New(parser.Options{
		Strict:       cfg.StrictMath,
		MaxMathDepth: cfg.MaxMathDepth,
		PDFFallback:  cfg.PDFFallbackPdftotext,
	})

	// The store is optional; without it results live in the job registry.
	var docs pipeline.DocumentStore
	var storeClient *store.Client
	if cfg.StoreEnabled() {
		storeClient = store.NewClient(cfg.StoreURL, cfg.StoreAPIKey)
		docs = storeClient
	}

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, conv, docs, stats.NewRecorder(cfg.StatsWindow), log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown. HTTP goes first so no handler submits to a
	// stopped pipeline.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()
		if storeClient != nil {
			storeClient.Close()
		}
	}()

	log.Info("starting typstgest",
		"port", cfg.Port,
		"workers", cfg.WorkerCount,
		"store_enabled", cfg.StoreEnabled(),
		"strict_math", cfg.StrictMath,
	)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
