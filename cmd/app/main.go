package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/denizblog/blog/internal/auth"
	"github.com/denizblog/blog/internal/config"
	"github.com/denizblog/blog/internal/db"
	"github.com/denizblog/blog/internal/log"
	"github.com/denizblog/blog/internal/metrics"
	"github.com/denizblog/blog/internal/server"
	"github.com/denizblog/blog/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := log.NewSugar(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Infow("Starting blog server",
		"env", cfg.Env,
		"addr", cfg.HTTPAddr,
		"db_driver", cfg.Database.Driver,
		"session_backend", cfg.Session.Backend,
	)

	m, metricsHandler, err := metrics.Setup("blog")
	if err != nil {
		logger.Fatalw("Failed to setup metrics", "error", err)
	}

	database, err := db.Open(cfg.Database.Driver, cfg.Database.DSN, db.LogLevelFor(cfg.Env))
	if err != nil {
		logger.Fatalw("Failed to open database", "error", err)
	}
	defer database.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = database.Migrate(ctx, logger)
	cancel()
	if err != nil {
		logger.Fatalw("Failed to migrate database", "error", err)
	}
	logger.Infow("Database initialized")

	store, err := session.NewStore(cfg.Session.Backend, cfg.Session.RedisAddr, logger)
	if err != nil {
		logger.Fatalw("Failed to setup session store", "error", err)
	}
	defer store.Close()

	sessions := session.NewManager(store, cfg.Session.SignKey, cfg.Session.TTL, cfg.IsProd())
	hasher := auth.NewHasher(cfg.Security.PBKDF2Iterations, cfg.Security.SaltLength)

	srv := server.New(cfg, database, sessions, hasher, logger, m, metricsHandler)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Infow("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalw("Server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Infow("Shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("Server shutdown error", "error", err)
	}
	logger.Infow("Server gracefully stopped")
}
