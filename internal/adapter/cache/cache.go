package cache

import (
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/sigec-posto/internal/ports"
)

const (
	BackendLocal = "local"
	BackendRedis = "redis"
)

type Options struct {
	Backend         string
	CleanupInterval time.Duration
	MaxEntries      int
	Redis           RedisOptions
}

// New builds the configured backend. A Redis backend that cannot be reached
// at startup degrades to the local cache instead of failing the process.
func New(opts Options, log *zap.Logger) ports.Cache {
	if opts.Backend == BackendRedis {
		rc, err := NewRedisCache(opts.Redis, log)
		if err == nil {
			return rc
		}
		log.Warn("Redis unavailable, falling back to local cache", zap.Error(err))
	}
	return NewLocalCache(opts.CleanupInterval, opts.MaxEntries, log)
}
