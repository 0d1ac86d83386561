package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/riskibarqy/football-schedules/internal/domain/match"
	"github.com/riskibarqy/football-schedules/internal/platform/logging"
	"github.com/valyala/bytebufferpool"
)

const DefaultPath = "./data/matches.json"

// MatchRepository stores the match cache as one indented JSON array on disk.
type MatchRepository struct {
	path   string
	logger *logging.Logger
	mu     sync.Mutex
}

func NewMatchRepository(path string, logger *logging.Logger) *MatchRepository {
	if path == "" {
		path = DefaultPath
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &MatchRepository{
		path:   path,
		logger: logger,
	}
}

func (r *MatchRepository) Path() string {
	return r.path
}

// Load reads the cache file. A missing file is an empty cache.
func (r *MatchRepository) Load(_ context.Context) ([]match.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.read()
}

func (r *MatchRepository) Save(_ context.Context, matches []match.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.write(matches)
}

func (r *MatchRepository) Update(ctx context.Context, fn match.UpdateFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.read()
	if err != nil {
		r.logger.WarnContext(ctx, "read match cache failed, starting from empty cache", "path", r.path, "error", err)
		current = []match.Match{}
	}

	next, err := fn(current)
	if err != nil {
		return err
	}

	return r.write(next)
}

func (r *MatchRepository) read() ([]match.Match, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []match.Match{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read match cache %s: %w", r.path, err)
	}

	matches, err := match.ParseList(data)
	if err != nil {
		return nil, fmt.Errorf("parse match cache %s: %w", r.path, err)
	}

	return matches, nil
}

func (r *MatchRepository) write(matches []match.Match) error {
	if matches == nil {
		matches = []match.Match{}
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	enc := sonic.ConfigDefault.NewEncoder(buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(matches); err != nil {
		return fmt.Errorf("encode match cache: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create match cache dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".matches-*.json")
	if err != nil {
		return fmt.Errorf("create temp match cache: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(buf.B); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp match cache: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp match cache: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp match cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp match cache: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		return fmt.Errorf("replace match cache %s: %w", r.path, err)
	}

	return nil
}
