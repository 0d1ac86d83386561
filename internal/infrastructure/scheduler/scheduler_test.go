package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riskibarqy/football-schedules/internal/platform/logging"
	"github.com/riskibarqy/football-schedules/internal/usecase"
)

type runnerFunc func(ctx context.Context) (usecase.SyncReport, error)

func (f runnerFunc) Run(ctx context.Context) (usecase.SyncReport, error) {
	return f(ctx)
}

func TestNew_RejectsInvalidSpec(t *testing.T) {
	runner := runnerFunc(func(context.Context) (usecase.SyncReport, error) { return usecase.SyncReport{}, nil })

	if _, err := New(runner, logging.NewNop(), Config{Spec: "every now and then"}); err == nil {
		t.Fatalf("expected invalid spec error")
	}
}

func TestNew_RequiresRunner(t *testing.T) {
	if _, err := New(nil, logging.NewNop(), Config{}); err == nil {
		t.Fatalf("expected missing runner error")
	}
}

func TestNew_AppliesDefaults(t *testing.T) {
	runner := runnerFunc(func(context.Context) (usecase.SyncReport, error) { return usecase.SyncReport{}, nil })

	s, err := New(runner, nil, Config{})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if s.cfg.Spec != DefaultSpec || s.cfg.RunTimeout != DefaultRunTimeout || s.cfg.Location != time.UTC {
		t.Fatalf("unexpected defaults: %+v", s.cfg)
	}
}

func TestScheduler_RunsOnStartWithTimeout(t *testing.T) {
	done := make(chan time.Duration, 1)
	runner := runnerFunc(func(ctx context.Context) (usecase.SyncReport, error) {
		deadline, ok := ctx.Deadline()
		if !ok {
			done <- 0
		} else {
			done <- time.Until(deadline)
		}
		return usecase.SyncReport{RunID: "run-1"}, nil
	})

	s, err := New(runner, logging.NewNop(), Config{Spec: "@every 1h", RunTimeout: time.Minute, RunOnStart: true})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	s.Start()
	defer func() { _ = s.Stop(context.Background()) }()

	select {
	case remaining := <-done:
		if remaining <= 0 || remaining > time.Minute {
			t.Fatalf("expected run deadline within a minute, got %s", remaining)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("startup run did not happen")
	}

	if next := s.Next(); next.IsZero() {
		t.Fatalf("expected next run to be scheduled")
	}
}

func TestScheduler_NoStartupRunWhenDisabled(t *testing.T) {
	var calls atomic.Int32
	runner := runnerFunc(func(context.Context) (usecase.SyncReport, error) {
		calls.Add(1)
		return usecase.SyncReport{}, nil
	})

	s, err := New(runner, logging.NewNop(), Config{Spec: "@every 1h"})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	s.Start()
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop error: %v", err)
	}
	if calls.Load() != 0 {
		t.Fatalf("expected no runs, got %d", calls.Load())
	}
}

func TestScheduler_StopCancelsInFlightRun(t *testing.T) {
	started := make(chan struct{})
	var cancelled atomic.Bool
	runner := runnerFunc(func(ctx context.Context) (usecase.SyncReport, error) {
		close(started)
		<-ctx.Done()
		cancelled.Store(errors.Is(ctx.Err(), context.Canceled))
		return usecase.SyncReport{}, ctx.Err()
	})

	s, err := New(runner, logging.NewNop(), Config{Spec: "@every 1h", RunOnStart: true})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	s.Start()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatalf("startup run did not begin")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop error: %v", err)
	}
	if !cancelled.Load() {
		t.Fatalf("expected in-flight run to observe cancellation")
	}
}

func TestScheduler_RunOnceSkippedAfterStop(t *testing.T) {
	var calls atomic.Int32
	runner := runnerFunc(func(context.Context) (usecase.SyncReport, error) {
		calls.Add(1)
		return usecase.SyncReport{}, nil
	})

	s, err := New(runner, logging.NewNop(), Config{Spec: "@every 1h"})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	s.Start()
	_ = s.Stop(context.Background())

	s.runOnce("cron")
	if calls.Load() != 0 {
		t.Fatalf("expected run to be skipped after stop")
	}
}
