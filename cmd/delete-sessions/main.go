package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"evtracker/internal/config"
	"evtracker/internal/db"
	"evtracker/internal/logging"
	"evtracker/internal/repository"
)

// Batch entrypoint that removes imported sessions older than a cutoff
// civil date. Manual sessions are never touched.
func main() {
	before := flag.String("before", "", "delete imported sessions dated before this day (YYYY-MM-DD)")
	flag.Parse()

	logger, err := logging.NewLogger("delete-sessions")
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if *before == "" {
		logger.Fatal("missing required -before flag")
	}
	if _, err := time.Parse("2006-01-02", *before); err != nil {
		logger.Fatal("invalid -before date, want YYYY-MM-DD", zap.String("before", *before))
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	sqlDB, err := db.NewPostgres(cfg.Database.DSN)
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer sqlDB.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo := repository.NewSessionRepository(sqlDB)
	deleted, err := repo.DeleteImportedBefore(ctx, *before)
	if err != nil {
		logger.Error("delete failed", zap.Error(err))
		sqlDB.Close()
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("deleted imported sessions", zap.Int64("count", deleted), zap.String("before", *before))
}
