package app

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/football-schedules/external/sofascore"
	"github.com/riskibarqy/football-schedules/internal/config"
	"github.com/riskibarqy/football-schedules/internal/domain/match"
	"github.com/riskibarqy/football-schedules/internal/infrastructure/repository/file"
	"github.com/riskibarqy/football-schedules/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/football-schedules/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/football-schedules/internal/infrastructure/scheduler"
	"github.com/riskibarqy/football-schedules/internal/interfaces/httpapi"
	idgen "github.com/riskibarqy/football-schedules/internal/platform/id"
	"github.com/riskibarqy/football-schedules/internal/platform/logging"
	"github.com/riskibarqy/football-schedules/internal/platform/resilience"
	"github.com/riskibarqy/football-schedules/internal/usecase"
)

// Container holds the wired services shared by cmd/api and cmd/scrape.
type Container struct {
	Config    config.Config
	Logger    *logging.Logger
	DB        *sqlx.DB
	Store     match.Repository
	Sync      *usecase.ScheduleSyncService
	Schedules *usecase.ScheduleService
}

func Build(cfg config.Config, logger *logging.Logger) (*Container, error) {
	if logger == nil {
		logger = logging.Default()
	}

	c := &Container{Config: cfg, Logger: logger}

	store, err := c.buildStore()
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	c.Store = store

	fetcher, err := buildFetcher(cfg, logger)
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	c.Sync = usecase.NewScheduleSyncService(
		fetcher,
		store,
		idgen.NewUUIDGenerator(),
		logger.Named("sync"),
		usecase.ScheduleSyncConfig{
			WindowDays:   cfg.SyncWindowDays,
			FetchWorkers: cfg.SyncFetchWorkers,
			RunTimeout:   cfg.SyncRunTimeout,
		},
	)
	c.Schedules = usecase.NewScheduleService(store, logger, usecase.ScheduleServiceConfig{
		CacheEnabled: cfg.CacheEnabled,
		CacheTTL:     cfg.CacheTTL,
	})
	c.Sync.OnCompleted(c.Schedules.Invalidate)

	return c, nil
}

func (c *Container) buildStore() (match.Repository, error) {
	switch c.Config.StoreBackend {
	case config.StoreBackendMemory:
		c.Logger.Info("match store selected", "backend", config.StoreBackendMemory)
		return memory.NewMatchRepository(nil), nil
	case config.StoreBackendPostgres:
		db, err := openDB(c.Config)
		if err != nil {
			return nil, err
		}
		c.DB = db
		c.Logger.Info("match store selected", "backend", config.StoreBackendPostgres, "db_name", dbNameFromURL(c.Config.DBURL))
		return postgres.NewMatchRepository(db, c.Logger), nil
	case config.StoreBackendFile, "":
		repo := file.NewMatchRepository(c.Config.CacheFile, c.Logger)
		c.Logger.Info("match store selected", "backend", config.StoreBackendFile, "path", repo.Path())
		return repo, nil
	default:
		return nil, fmt.Errorf("unsupported store backend %q", c.Config.StoreBackend)
	}
}

func buildFetcher(cfg config.Config, logger *logging.Logger) (*sofascore.Client, error) {
	var transport sofascore.Transport
	switch cfg.SofaScoreTransport {
	case config.TransportHTTP:
		transport = sofascore.NewHTTPTransport(sofascore.HTTPTransportConfig{
			UserAgent: cfg.BrowserUserAgent,
		})
	default:
		transport = sofascore.NewBrowserTransport(sofascore.BrowserTransportConfig{
			ExecPath:  cfg.BrowserExecPath,
			UserAgent: cfg.BrowserUserAgent,
			OriginURL: cfg.BrowserOriginURL,
		})
	}

	client, err := sofascore.NewClient(sofascore.ClientConfig{
		Transport:   transport,
		URLTemplate: cfg.SofaScoreURLTemplate,
		Timeout:     cfg.SofaScoreTimeout,
		Logger:      logger.Named("sofascore"),
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.SofaScoreCircuitEnabled,
			FailureThreshold: cfg.SofaScoreCircuitFailureCount,
			OpenTimeout:      cfg.SofaScoreCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.SofaScoreCircuitHalfOpenMaxReq,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("build sofascore client: %w", err)
	}

	logger.Info("sofascore fetcher configured", "transport", cfg.SofaScoreTransport, "timeout", cfg.SofaScoreTimeout.String())
	return client, nil
}

func (c *Container) Close() error {
	if c.DB == nil {
		return nil
	}
	return c.DB.Close()
}

func NewHTTPServer(c *Container) (*http.Server, error) {
	handler := httpapi.NewHandler(c.Schedules, c.Sync, c.Logger.Named("http"))
	router := httpapi.NewRouter(handler, c.Logger, c.Config.CORSAllowedOrigins, c.Config.InternalJobToken)

	server := &http.Server{
		Addr:         c.Config.HTTPAddr,
		Handler:      router,
		ReadTimeout:  c.Config.ReadTimeout,
		WriteTimeout: c.Config.WriteTimeout,
	}

	if server.Addr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	return server, nil
}

// NewScheduler returns nil when SYNC_ENABLED=false.
func NewScheduler(c *Container) (*scheduler.Scheduler, error) {
	if !c.Config.SyncEnabled {
		c.Logger.Info("schedule sync scheduler disabled", "reason", "SYNC_ENABLED=false")
		return nil, nil
	}

	return scheduler.New(c.Sync, c.Logger, scheduler.Config{
		Spec:       c.Config.SyncCron,
		RunTimeout: c.Config.SyncRunTimeout,
		RunOnStart: c.Config.SyncOnStartup,
	})
}

// RunOnce performs a single sync, used by cmd/scrape. The run is bounded by
// SYNC_RUN_TIMEOUT inside the sync service.
func (c *Container) RunOnce(ctx context.Context) (usecase.SyncReport, error) {
	return c.Sync.Run(ctx)
}

// ImportCache replaces the configured store with the contents of a cache
// file, e.g. when moving from the file backend to postgres.
func (c *Container) ImportCache(ctx context.Context, path string) (int, error) {
	if _, err := os.Stat(path); err != nil {
		return 0, fmt.Errorf("stat cache file: %w", err)
	}

	matches, err := file.NewMatchRepository(path, c.Logger).Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("read cache file %s: %w", path, err)
	}
	if err := c.Store.Save(ctx, matches); err != nil {
		return 0, fmt.Errorf("save imported cache: %w", err)
	}
	c.Schedules.Invalidate(ctx, usecase.SyncReport{})

	c.Logger.InfoContext(ctx, "match cache imported", "path", path, "count", len(matches))
	return len(matches), nil
}
