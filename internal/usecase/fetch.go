package usecase

import (
	"context"
	"time"

	"github.com/riskibarqy/football-schedules/internal/domain/match"
)

// ScheduleDateLayout is the calendar date format used in upstream URLs and reports.
const ScheduleDateLayout = "2006-01-02"

const (
	FetchStatusOK     = "ok"
	FetchStatusEmpty  = "empty"
	FetchStatusFailed = "failed"
)

// FetchResult is the outcome of fetching one date. A failed fetch carries Err
// and no matches; it is never a panic or an aborted run.
type FetchResult struct {
	Date    string
	Matches []match.Match
	Err     error
}

func (r FetchResult) Status() string {
	switch {
	case r.Err != nil:
		return FetchStatusFailed
	case len(r.Matches) == 0:
		return FetchStatusEmpty
	default:
		return FetchStatusOK
	}
}

// ScheduleFetcher fetches the scheduled events of one calendar date.
type ScheduleFetcher interface {
	Fetch(ctx context.Context, date time.Time) FetchResult
}

// ScheduleFetcherFunc adapts a function to ScheduleFetcher.
type ScheduleFetcherFunc func(ctx context.Context, date time.Time) FetchResult

func (f ScheduleFetcherFunc) Fetch(ctx context.Context, date time.Time) FetchResult {
	return f(ctx, date)
}
