package session

import "context"

// Store loads and saves values by session id. Get reports a missing id as
// ok == false with a nil error.
type Store[T any] interface {
	Get(ctx context.Context, id string) (T, bool, error)
	Put(ctx context.Context, id string, v T) error
	NewID() string
}
