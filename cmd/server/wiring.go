package main

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/seu-repo/sigec-posto/internal/adapter/cache"
	"github.com/seu-repo/sigec-posto/internal/adapter/queue"
	"github.com/seu-repo/sigec-posto/internal/adapter/storage/memory"
	"github.com/seu-repo/sigec-posto/internal/adapter/storage/postgres"
	"github.com/seu-repo/sigec-posto/internal/infrastructure/circuitbreaker"
	"github.com/seu-repo/sigec-posto/internal/ports"
	"github.com/seu-repo/sigec-posto/internal/service/health"
	"github.com/seu-repo/sigec-posto/pkg/config"
)

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zc := zap.NewProductionConfig()
	if strings.EqualFold(cfg.Format, "console") {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

type repositories struct {
	shifts   ports.ShiftRepository
	audit    ports.AuditRepository
	offloads ports.OffloadRepository
	topology ports.TopologyRepository
	close    func()
}

// openStorage uses PostgreSQL when a database URL is configured and keeps
// everything in memory otherwise.
func openStorage(cfg *config.Config, logger *zap.Logger, hs *health.Service) (*repositories, error) {
	if cfg.Database.URL == "" {
		logger.Warn("No database configured, using in-memory storage")
		return &repositories{
			shifts:   memory.NewShiftRepository(),
			audit:    memory.NewAuditRepository(),
			offloads: memory.NewOffloadRepository(),
			topology: memory.NewTopologyRepository(),
			close:    func() {},
		}, nil
	}

	db, err := postgres.NewConnection(postgres.Options{
		URL:             cfg.Database.URL,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogLevel:        cfg.Database.LogLevel,
	}, logger)
	if err != nil {
		return nil, err
	}
	if cfg.Database.AutoMigrate {
		if err := postgres.RunMigrations(db); err != nil {
			return nil, err
		}
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	hs.RegisterChecker("database", health.PingChecker("database", health.StatusUnhealthy, sqlDB.PingContext, logger))

	return &repositories{
		shifts:   postgres.NewShiftRepository(db, logger),
		audit:    postgres.NewAuditRepository(db, logger),
		offloads: postgres.NewOffloadRepository(db, logger),
		topology: postgres.NewTopologyRepository(db, logger),
		close: func() {
			if err := postgres.Close(db); err != nil {
				logger.Error("Failed to close database", zap.Error(err))
			}
		},
	}, nil
}

func openCache(cfg *config.Config, logger *zap.Logger, hs *health.Service) ports.Cache {
	c := cache.New(cache.Options{
		Backend:         cfg.Cache.Backend,
		CleanupInterval: cfg.Cache.CleanupInterval,
		MaxEntries:      cfg.Cache.MaxEntries,
		Redis: cache.RedisOptions{
			URL:          cfg.Redis.URL,
			PoolSize:     cfg.Redis.PoolSize,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
			KeyPrefix:    cfg.Redis.KeyPrefix,
		},
	}, logger)
	hs.RegisterChecker("cache", health.PingChecker("cache", health.StatusDegraded,
		func(ctx context.Context) error { return c.Ping() }, logger))
	return c
}

// openQueue connects the configured broker. Events are notifications, so a
// broker that cannot be reached leaves the server running without them.
func openQueue(cfg *config.Config, logger *zap.Logger, hs *health.Service) queue.MessageQueue {
	var (
		mq  queue.MessageQueue
		err error
	)
	switch cfg.Queue.Driver {
	case "nats":
		mq, err = queue.NewNATSQueue(cfg.NATS.URL, cfg.NATS.MaxReconnects, cfg.NATS.ReconnectWait, logger)
	case "rabbitmq":
		mq, err = queue.NewRabbitMQQueue(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, cfg.RabbitMQ.ReconnectWait, logger)
	default:
		logger.Info("Event publishing disabled")
		return nil
	}
	if err != nil {
		logger.Warn("Message queue unavailable, events disabled", zap.String("driver", cfg.Queue.Driver), zap.Error(err))
		return nil
	}
	if !cfg.CircuitBreaker.Enabled {
		return mq
	}
	pq := circuitbreaker.NewProtectedQueue(mq, breakerSettings(cfg.CircuitBreaker, "message-queue"), logger)
	hs.RegisterChecker("queue", health.BreakerChecker("queue", pq.State))
	return pq
}

func breakerSettings(cfg config.CircuitBreakerConfig, name string) circuitbreaker.Settings {
	return circuitbreaker.Settings{
		Name:         name,
		MaxRequests:  uint32(cfg.MaxRequests),
		Interval:     cfg.Interval,
		Timeout:      cfg.Timeout,
		MinRequests:  uint32(cfg.MinRequests),
		FailureRatio: cfg.FailureThreshold,
	}
}
