// Command scrape runs one schedule sync and exits. It fails only when the
// merged cache cannot be written; upstream fetch failures are logged and
// reported but leave the exit code at zero.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/riskibarqy/football-schedules/internal/app"
	"github.com/riskibarqy/football-schedules/internal/config"
	"github.com/riskibarqy/football-schedules/internal/platform/logging"
	"github.com/riskibarqy/football-schedules/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.NewJSON(cfg.LogLevel).With("service", cfg.ServiceName, "env", cfg.AppEnv)
	logging.SetDefault(logger)

	os.Exit(run(cfg, logger))
}

func run(cfg config.Config, logger *logging.Logger) int {
	defer func() { _ = logger.Sync() }()

	container, err := app.Build(cfg, logger)
	if err != nil {
		logger.Error("build app", "error", err)
		return 1
	}
	defer func() { _ = container.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := container.RunOnce(ctx)
	if err != nil {
		logger.Error("schedule sync failed", "run_id", report.RunID, "error", err)
		if errors.Is(err, usecase.ErrPersistFailed) {
			return 1
		}
		return 0
	}

	logger.Info("schedule sync finished",
		"run_id", report.RunID,
		"total_matches", report.TotalMatches,
		"fetched", report.FetchedCount,
		"failed_dates", report.FailedDates,
	)
	return 0
}
