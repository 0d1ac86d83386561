package memory

import (
	"context"
	"sync"

	"github.com/riskibarqy/football-schedules/internal/domain/match"
)

// MatchRepository keeps the match cache in process memory.
type MatchRepository struct {
	mu      sync.Mutex
	matches []match.Match
}

func NewMatchRepository(seed []match.Match) *MatchRepository {
	return &MatchRepository{matches: cloneMatches(seed)}
}

func (r *MatchRepository) Load(_ context.Context) ([]match.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return cloneMatches(r.matches), nil
}

func (r *MatchRepository) Save(_ context.Context, matches []match.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.matches = cloneMatches(matches)
	return nil
}

func (r *MatchRepository) Update(_ context.Context, fn match.UpdateFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next, err := fn(cloneMatches(r.matches))
	if err != nil {
		return err
	}

	r.matches = cloneMatches(next)
	return nil
}

func cloneMatches(items []match.Match) []match.Match {
	out := make([]match.Match, 0, len(items))
	for _, item := range items {
		out = append(out, item.Clone())
	}
	return out
}
