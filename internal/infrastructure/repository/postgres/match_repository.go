package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/football-schedules/internal/domain/match"
	"github.com/riskibarqy/football-schedules/internal/platform/logging"
	qb "github.com/riskibarqy/football-schedules/internal/platform/querybuilder"
)

// matchCacheLockKey serialises writers across processes sharing the database.
const matchCacheLockKey int64 = 0x6d617463685f6361

// Keeps each INSERT below the 65535 bind parameter limit.
const insertBatchSize = 1000

var errCorruptPayload = errors.New("corrupt match payload")

type MatchRepository struct {
	db     *sqlx.DB
	logger *logging.Logger
	now    func() time.Time
}

func NewMatchRepository(db *sqlx.DB, logger *logging.Logger) *MatchRepository {
	if logger == nil {
		logger = logging.Default()
	}

	return &MatchRepository{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

func (r *MatchRepository) Load(ctx context.Context) ([]match.Match, error) {
	return r.load(ctx, r.db)
}

func (r *MatchRepository) Save(ctx context.Context, matches []match.Match) error {
	return r.inTx(ctx, "save match cache", func(tx *sqlx.Tx) error {
		if err := lockMatchCache(ctx, tx); err != nil {
			return err
		}
		return r.replace(ctx, tx, matches)
	})
}

// Update holds a transaction scoped advisory lock for the whole
// read-modify-write. Rows that fail to decode are treated as an empty cache.
func (r *MatchRepository) Update(ctx context.Context, fn match.UpdateFunc) error {
	return r.inTx(ctx, "update match cache", func(tx *sqlx.Tx) error {
		if err := lockMatchCache(ctx, tx); err != nil {
			return err
		}

		current, err := r.load(ctx, tx)
		if err != nil {
			if !errors.Is(err, errCorruptPayload) {
				return err
			}
			r.logger.WarnContext(ctx, "read match cache failed, starting from empty cache", "error", err)
			current = []match.Match{}
		}

		next, err := fn(current)
		if err != nil {
			return err
		}

		return r.replace(ctx, tx, next)
	})
}

func (r *MatchRepository) inTx(ctx context.Context, op string, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx %s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx %s: %w", op, err)
	}

	return nil
}

func (r *MatchRepository) load(ctx context.Context, q sqlx.QueryerContext) ([]match.Match, error) {
	query, args, err := qb.Select("match_key", "position", "payload").
		From(matchCacheTable).
		OrderBy("position").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select match cache query: %w", err)
	}

	var rows []matchCacheRow
	if err := sqlx.SelectContext(ctx, q, &rows, query, args...); err != nil {
		if isUndefinedTable(err) {
			return nil, fmt.Errorf("select match cache: table %s missing, run migrations: %w", matchCacheTable, err)
		}
		return nil, fmt.Errorf("select match cache: %w", err)
	}

	out := make([]match.Match, 0, len(rows))
	for _, row := range rows {
		m, err := match.Parse(row.Payload)
		if err != nil {
			return nil, fmt.Errorf("%w: key=%s position=%d: %v", errCorruptPayload, row.MatchKey, row.Position, err)
		}
		out = append(out, m)
	}

	return out, nil
}

func (r *MatchRepository) replace(ctx context.Context, tx *sqlx.Tx, matches []match.Match) error {
	query, args, err := qb.DeleteFrom(matchCacheTable).ToSQL()
	if err != nil {
		return fmt.Errorf("build delete match cache query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("clear match cache: %w", err)
	}

	models, err := buildInsertModels(matches, r.now().UTC())
	if err != nil {
		return err
	}

	for _, batch := range chunk(models, insertBatchSize) {
		query, args, err := qb.InsertModels(matchCacheTable, batch, "")
		if err != nil {
			return fmt.Errorf("build insert match cache query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert match cache batch size=%d: %w", len(batch), err)
		}
	}

	return nil
}

func buildInsertModels(matches []match.Match, now time.Time) ([]matchCacheInsertModel, error) {
	out := make([]matchCacheInsertModel, 0, len(matches))
	for i, m := range matches {
		payload, err := m.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("encode match key=%s: %w", m.Key(), err)
		}
		out = append(out, matchCacheInsertModel{
			MatchKey:  m.Key(),
			Position:  i,
			Payload:   string(payload),
			UpdatedAt: now,
		})
	}
	return out, nil
}

func lockMatchCache(ctx context.Context, tx *sqlx.Tx) error {
	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", matchCacheLockKey); err != nil {
		return fmt.Errorf("lock match cache: %w", err)
	}
	return nil
}
