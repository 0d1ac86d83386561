package usecase

import (
	"context"
	"time"

	"github.com/riskibarqy/football-schedules/internal/domain/match"
	"github.com/riskibarqy/football-schedules/internal/platform/cache"
	"github.com/riskibarqy/football-schedules/internal/platform/logging"
)

const scheduleCacheKey = "schedules:all"

type ScheduleServiceConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// ScheduleService serves the cached match list to readers.
type ScheduleService struct {
	repo   match.Repository
	logger *logging.Logger
	cache  *cache.Store[[]match.Match]
}

func NewScheduleService(repo match.Repository, logger *logging.Logger, cfg ScheduleServiceConfig) *ScheduleService {
	if logger == nil {
		logger = logging.Default()
	}

	s := &ScheduleService{
		repo:   repo,
		logger: logger,
	}
	if cfg.CacheEnabled {
		s.cache = cache.NewStore[[]match.Match](cfg.CacheTTL)
	}
	return s
}

// List returns the persisted cache. An unreadable cache is served as empty,
// the same way a sync run treats it.
func (s *ScheduleService) List(ctx context.Context) ([]match.Match, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ScheduleService.List")
	defer span.End()

	var (
		items []match.Match
		err   error
	)
	if s.cache != nil {
		items, err = s.cache.GetOrLoad(ctx, scheduleCacheKey, s.repo.Load)
	} else {
		items, err = s.repo.Load(ctx)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "load match cache failed, serving empty list", "error", err)
		return []match.Match{}, nil
	}
	if items == nil {
		return []match.Match{}, nil
	}

	return items, nil
}

// Invalidate drops the memoised list. It is registered as a sync hook.
func (s *ScheduleService) Invalidate(ctx context.Context, report SyncReport) {
	if s.cache == nil {
		return
	}
	s.cache.Delete(ctx, scheduleCacheKey)
	s.logger.DebugContext(ctx, "schedule cache invalidated", "run_id", report.RunID)
}
