package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"evtracker/internal/app"
	"evtracker/internal/config"
	"evtracker/internal/logging"
)

// Batch entrypoint for cron: imports the trailing dispatch window and
// exits non-zero when the run failed.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := logging.NewLogger("import-daily")
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}
	defer application.Close()

	runCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	summary, err := application.Importer().RunDaily(runCtx)
	if err != nil {
		logger.Error("daily import failed", zap.Error(err))
		application.Close()
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("daily import finished",
		zap.Int("detected", summary.Detected),
		zap.Int("inserted", summary.Inserted),
		zap.Int("updated", summary.Updated),
		zap.Int("skipped", summary.Skipped),
	)
}
