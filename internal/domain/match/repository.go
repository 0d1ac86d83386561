package match

import "context"

// UpdateFunc receives the current cache and returns the state to persist.
type UpdateFunc func(current []Match) ([]Match, error)

// Repository persists the match cache as one ordered list.
type Repository interface {
	Load(ctx context.Context) ([]Match, error)
	Save(ctx context.Context, matches []Match) error
	// Update runs a serialised read-modify-write. A failed read is handed to
	// fn as an empty cache; a failed write is returned.
	Update(ctx context.Context, fn UpdateFunc) error
}
