package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/football-schedules/internal/domain/match"
	"github.com/riskibarqy/football-schedules/internal/platform/id"
	"github.com/riskibarqy/football-schedules/internal/platform/logging"
	"github.com/riskibarqy/football-schedules/internal/platform/resilience"
	"github.com/sourcegraph/conc/panics"
)

const (
	DefaultSyncWindowDays = 30
	DefaultSyncRunTimeout = 30 * time.Minute
	scheduleSyncFlightKey = "schedule-sync"
	syncPersistGrace      = 30 * time.Second
)

type ScheduleSyncConfig struct {
	// WindowDays is the number of consecutive dates fetched, starting today (UTC).
	WindowDays int
	// FetchWorkers > 1 fetches dates concurrently. Results keep date order.
	FetchWorkers int
	// RunTimeout bounds a shared run independently of any caller.
	RunTimeout time.Duration
}

// SyncReport summarises one schedule sync run.
type SyncReport struct {
	RunID         string    `json:"run_id"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	WindowStart   string    `json:"window_start"`
	WindowEnd     string    `json:"window_end"`
	DateCount     int       `json:"date_count"`
	FetchedCount  int       `json:"fetched_count"`
	FailedDates   []string  `json:"failed_dates"`
	EmptyDates    []string  `json:"empty_dates"`
	PreviousCount int       `json:"previous_count"`
	TotalMatches  int       `json:"total_matches"`
}

type ScheduleSyncService struct {
	fetcher ScheduleFetcher
	repo    match.Repository
	ids     id.Generator
	logger  *logging.Logger
	cfg     ScheduleSyncConfig
	now     func() time.Time

	flight resilience.SingleFlight[SyncReport]

	mu          sync.RWMutex
	last        SyncReport
	hasLast     bool
	onCompleted []func(ctx context.Context, report SyncReport)
}

func NewScheduleSyncService(
	fetcher ScheduleFetcher,
	repo match.Repository,
	ids id.Generator,
	logger *logging.Logger,
	cfg ScheduleSyncConfig,
) *ScheduleSyncService {
	if cfg.WindowDays < 1 {
		cfg.WindowDays = DefaultSyncWindowDays
	}
	if cfg.FetchWorkers < 1 {
		cfg.FetchWorkers = 1
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = DefaultSyncRunTimeout
	}
	if ids == nil {
		ids = id.NewUUIDGenerator()
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &ScheduleSyncService{
		fetcher: fetcher,
		repo:    repo,
		ids:     ids,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
}

// OnCompleted registers a hook that runs after every successful run.
func (s *ScheduleSyncService) OnCompleted(fn func(ctx context.Context, report SyncReport)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.onCompleted = append(s.onCompleted, fn)
	s.mu.Unlock()
}

// LastReport returns the report of the latest successful run.
func (s *ScheduleSyncService) LastReport() (SyncReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.hasLast
}

// Run fetches the whole window, merges it into the cache and persists the
// result. Concurrent callers share the run already in flight. The run is
// detached from the caller: a caller whose ctx ends gets ctx.Err() while the
// run carries on for the others. Only a failed write fails the run; fetch
// failures are reported per date.
func (s *ScheduleSyncService) Run(ctx context.Context) (SyncReport, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ScheduleSyncService.Run")
	defer span.End()

	if err := ctx.Err(); err != nil {
		return SyncReport{}, fmt.Errorf("schedule sync not started: %w", err)
	}

	detached := context.WithoutCancel(ctx)
	flight := s.flight.DoChan(scheduleSyncFlightKey, func() (SyncReport, error) {
		runCtx, cancel := context.WithTimeout(detached, s.cfg.RunTimeout)
		defer cancel()
		return s.run(runCtx)
	})

	select {
	case res := <-flight:
		if res.Shared {
			s.logger.InfoContext(ctx, "schedule sync shared with concurrent callers", "run_id", res.Val.RunID)
		}
		return res.Val, res.Err
	case <-ctx.Done():
		s.logger.WarnContext(ctx, "stopped waiting for schedule sync, run continues", "error", ctx.Err())
		return SyncReport{}, ctx.Err()
	}
}

func (s *ScheduleSyncService) run(ctx context.Context) (SyncReport, error) {
	if s.fetcher == nil || s.repo == nil {
		return SyncReport{}, fmt.Errorf("%w: schedule sync is not configured", ErrDependencyUnavailable)
	}

	runID, err := s.ids.NewID()
	if err != nil {
		return SyncReport{}, fmt.Errorf("generate sync run id: %w", err)
	}

	logger := s.logger.With("run_id", runID)
	startedAt := s.now().UTC()
	dates := ScheduleWindow(startedAt, s.cfg.WindowDays)
	report := SyncReport{
		RunID:       runID,
		StartedAt:   startedAt,
		WindowStart: dates[0].Format(ScheduleDateLayout),
		WindowEnd:   dates[len(dates)-1].Format(ScheduleDateLayout),
		DateCount:   len(dates),
		FailedDates: []string{},
		EmptyDates:  []string{},
	}
	logger.InfoContext(ctx, "schedule sync started",
		"window_start", report.WindowStart,
		"window_end", report.WindowEnd,
		"workers", s.cfg.FetchWorkers,
	)

	results := s.fetchAll(ctx, logger, dates)

	fetched := make([]match.Match, 0, len(results)*32)
	for _, result := range results {
		switch result.Status() {
		case FetchStatusFailed:
			report.FailedDates = append(report.FailedDates, result.Date)
		case FetchStatusEmpty:
			report.EmptyDates = append(report.EmptyDates, result.Date)
		}
		fetched = append(fetched, result.Matches...)
	}
	report.FetchedCount = len(fetched)

	persistCtx := ctx
	if ctx.Err() != nil {
		logger.WarnContext(ctx, "schedule sync deadline reached, persisting fetched matches", "error", ctx.Err())
		var cancel context.CancelFunc
		persistCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), syncPersistGrace)
		defer cancel()
	}

	err = s.repo.Update(persistCtx, func(current []match.Match) ([]match.Match, error) {
		report.PreviousCount = len(current)
		merged := match.Merge(current, fetched)
		report.TotalMatches = len(merged)
		return merged, nil
	})
	if err != nil {
		logger.ErrorContext(ctx, "persist match cache failed", "error", err)
		return report, fmt.Errorf("%w: %w", ErrPersistFailed, err)
	}

	report.FinishedAt = s.now().UTC()
	s.complete(persistCtx, report)

	logger.InfoContext(ctx, "cached matches",
		"count", report.TotalMatches,
		"at", report.FinishedAt.Format(time.RFC3339Nano),
		"fetched", report.FetchedCount,
		"failed_dates", len(report.FailedDates),
		"empty_dates", len(report.EmptyDates),
	)
	return report, nil
}

func (s *ScheduleSyncService) complete(ctx context.Context, report SyncReport) {
	s.mu.Lock()
	s.last = report
	s.hasLast = true
	hooks := append([]func(context.Context, SyncReport){}, s.onCompleted...)
	s.mu.Unlock()

	for _, hook := range hooks {
		hook(ctx, report)
	}
}

// fetchAll returns one result per date, in date order.
func (s *ScheduleSyncService) fetchAll(ctx context.Context, logger *logging.Logger, dates []time.Time) []FetchResult {
	results := make([]FetchResult, len(dates))
	if s.cfg.FetchWorkers <= 1 || len(dates) == 1 {
		for i, date := range dates {
			results[i] = s.fetchOne(ctx, logger, date)
		}
		return results
	}

	pool, err := ants.NewPool(min(s.cfg.FetchWorkers, len(dates)))
	if err != nil {
		logger.WarnContext(ctx, "create fetch worker pool failed, fetching sequentially", "error", err)
		for i, date := range dates {
			results[i] = s.fetchOne(ctx, logger, date)
		}
		return results
	}
	defer pool.Release()

	var workers sync.WaitGroup
	for i, date := range dates {
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()
			results[i] = s.fetchOne(ctx, logger, date)
		}); err != nil {
			workers.Done()
			logger.WarnContext(ctx, "submit fetch to worker pool failed, fetching inline", "date", date.Format(ScheduleDateLayout), "error", err)
			results[i] = s.fetchOne(ctx, logger, date)
		}
	}
	workers.Wait()

	return results
}

// fetchOne never panics; a panicking fetcher becomes a failed result.
func (s *ScheduleSyncService) fetchOne(ctx context.Context, logger *logging.Logger, date time.Time) FetchResult {
	day := date.Format(ScheduleDateLayout)
	logger.InfoContext(ctx, "fetching matches", "date", day)

	var result FetchResult
	var catcher panics.Catcher
	catcher.Try(func() {
		result = s.fetcher.Fetch(ctx, date)
	})
	if recovered := catcher.Recovered(); recovered != nil {
		logger.ErrorContext(ctx, "fetch panicked", "date", day, "panic", recovered.Value)
		return FetchResult{Date: day, Err: recovered.AsError()}
	}

	if result.Date == "" {
		result.Date = day
	}
	if result.Err != nil {
		result.Matches = nil
	}
	return result
}

// ScheduleWindow returns days consecutive UTC calendar dates starting at the
// date of now.
func ScheduleWindow(now time.Time, days int) []time.Time {
	if days < 1 {
		days = 1
	}
	y, m, d := now.UTC().Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	out := make([]time.Time, 0, days)
	for i := 0; i < days; i++ {
		out = append(out, start.AddDate(0, 0, i))
	}
	return out
}
