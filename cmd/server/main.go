// Command server runs the costbook HTTP API.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"costbook/internal/domain/ledger"
	"costbook/internal/domain/reports"
	v1 "costbook/internal/infrastructure/http/v1"
	"costbook/internal/infrastructure/storage/postgres"
	"costbook/internal/infrastructure/storage/postgres/journal_repo"
	"costbook/internal/infrastructure/storage/postgres/ledger_repo"
	"costbook/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "production") == "development",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	dsn := mustEnv(log, "DATABASE_URL")

	ctx := context.Background()

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dsn))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool)

	audit, err := postgres.NewAuditService(txManager)
	if err != nil {
		log.Fatalw("failed to init audit service", "error", err)
	}

	ledgerRepo := ledger_repo.NewLedgerRepo(txManager)
	journal := journal_repo.NewJournalRepo(txManager)

	ledgerService := ledger.NewService(ledgerRepo, txManager, journal, audit)
	reportsService := reports.NewService(ledgerRepo, txManager)

	router := v1.NewRouter(v1.RouterConfig{
		Pool:           pool,
		Logger:         log,
		LedgerService:  ledgerService,
		ReportsService: reportsService,
		AuditService:   audit,
	})

	port := getEnv("PORT", "8080")
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func mustEnv(log *logger.Logger, key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalw("required environment variable not set", "key", key)
	}
	return v
}
