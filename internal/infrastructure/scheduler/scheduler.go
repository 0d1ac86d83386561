package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/riskibarqy/football-schedules/internal/platform/logging"
	"github.com/riskibarqy/football-schedules/internal/usecase"
	"github.com/robfig/cron/v3"
)

const (
	DefaultSpec       = "0 */6 * * *"
	DefaultRunTimeout = 30 * time.Minute
)

// SyncRunner is satisfied by usecase.ScheduleSyncService.
type SyncRunner interface {
	Run(ctx context.Context) (usecase.SyncReport, error)
}

type Config struct {
	Spec       string
	RunTimeout time.Duration
	RunOnStart bool
	Location   *time.Location
}

// Scheduler runs the schedule sync on a cron spec. Overlapping ticks are skipped.
type Scheduler struct {
	runner SyncRunner
	logger *logging.Logger
	cfg    Config
	cron   *cron.Cron
	entry  cron.EntryID

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func New(runner SyncRunner, logger *logging.Logger, cfg Config) (*Scheduler, error) {
	if runner == nil {
		return nil, fmt.Errorf("scheduler: sync runner is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	logger = logger.Named("scheduler")

	cfg.Spec = strings.TrimSpace(cfg.Spec)
	if cfg.Spec == "" {
		cfg.Spec = DefaultSpec
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = DefaultRunTimeout
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	cronLogger := cronLogAdapter{logger: logger}
	c := cron.New(
		cron.WithLocation(cfg.Location),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	baseCtx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		runner:  runner,
		logger:  logger,
		cfg:     cfg,
		cron:    c,
		baseCtx: baseCtx,
		cancel:  cancel,
	}

	entry, err := c.AddFunc(cfg.Spec, func() { s.runOnce("cron") })
	if err != nil {
		cancel()
		return nil, fmt.Errorf("scheduler: invalid cron spec %q: %w", cfg.Spec, err)
	}
	s.entry = entry

	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("schedule sync scheduler started", "spec", s.cfg.Spec, "next_run", s.Next())

	if s.cfg.RunOnStart {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.runOnce("startup")
		}()
	}
}

// Next returns the next scheduled tick, zero before Start.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entry).Next
}

// Stop cancels in-flight runs and waits for them until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	cronDone := s.cron.Stop()

	startupDone := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(startupDone)
	}()

	select {
	case <-cronDone.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-startupDone:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.logger.Info("schedule sync scheduler stopped")
	return nil
}

func (s *Scheduler) runOnce(trigger string) {
	if s.baseCtx.Err() != nil {
		return
	}

	ctx, cancel := context.WithTimeout(s.baseCtx, s.cfg.RunTimeout)
	defer cancel()

	report, err := s.runner.Run(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "scheduled schedule sync failed", "trigger", trigger, "run_id", report.RunID, "error", err)
		return
	}

	s.logger.InfoContext(ctx, "scheduled schedule sync completed",
		"trigger", trigger,
		"run_id", report.RunID,
		"total_matches", report.TotalMatches,
		"failed_dates", len(report.FailedDates),
	)
}

type cronLogAdapter struct {
	logger *logging.Logger
}

func (a cronLogAdapter) Info(msg string, keysAndValues ...any) {
	a.logger.Debug(msg, keysAndValues...)
}

func (a cronLogAdapter) Error(err error, msg string, keysAndValues ...any) {
	a.logger.Error(msg, append(keysAndValues, "error", err)...)
}
