package ports

import (
	"context"
	"time"
)

// Cache is the capability the services use for derived, rebuildable data.
// Implementations live in internal/adapter/cache.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping() error
	Close() error
}
