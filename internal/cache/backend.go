package cache

import (
	"context"
	"errors"
)

// ErrMiss is returned by a Backend when the key does not exist.
var ErrMiss = errors.New("cache: miss")

// Backend is a process-wide key-value store. Implementations must be safe
// for concurrent use; no cross-process locking is expected.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
