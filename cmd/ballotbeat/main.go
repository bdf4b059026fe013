package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/ballotbeat/backend/internal/cache"
	"github.com/ballotbeat/backend/internal/config"
	"github.com/ballotbeat/backend/internal/fetcher"
	"github.com/ballotbeat/backend/internal/pipeline"
	"github.com/ballotbeat/backend/internal/scheduler"
	"github.com/ballotbeat/backend/internal/server"
	"github.com/ballotbeat/backend/internal/store"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := db.PingContext(ctx); err != nil {
		slog.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	cancel()

	pgStore := store.NewPostgres(db)
	if err := pgStore.Migrate(context.Background()); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	src := fetcher.New(cfg.ResultsCSVURL, cfg.SkipBadRows)
	p := pipeline.New(pgStore, src)
	c := cache.New(pgStore, cfg.CacheTTL)

	// Run one ingestion cycle immediately on startup
	slog.Info("running initial ingestion cycle")
	if err := p.Run(context.Background()); err != nil {
		slog.Error("initial ingestion cycle failed", "error", err)
		// Non-fatal: serve whatever the store already holds
	}

	// Start scheduler
	sched := scheduler.New(p, cfg.RefreshInterval)
	go sched.Start(context.Background())

	srv := server.New(cfg, c, pgStore)
	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	slog.Info("shutting down")

	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
}
