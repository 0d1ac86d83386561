package postgres

import "time"

const matchCacheTable = "match_cache"

type matchCacheRow struct {
	MatchKey string `db:"match_key"`
	Position int    `db:"position"`
	Payload  []byte `db:"payload"`
}

type matchCacheInsertModel struct {
	MatchKey  string    `db:"match_key"`
	Position  int       `db:"position"`
	Payload   string    `db:"payload"`
	UpdatedAt time.Time `db:"updated_at"`
}
