package postgres

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/seu-repo/sigec-posto/internal/domain"
)

// Options configures the PostgreSQL connection pool.
type Options struct {
	URL             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	LogLevel        string // silent, error, warn, info
}

// NewConnection initializes a new PostgreSQL connection using GORM
func NewConnection(opts Options, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(opts.URL), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel(opts.LogLevel)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	log.Info("Successfully connected to PostgreSQL",
		zap.Int("max_idle_conns", opts.MaxIdleConns),
		zap.Int("max_open_conns", opts.MaxOpenConns),
	)
	return db, nil
}

// RunMigrations creates or updates the tables behind every repository in
// this package.
func RunMigrations(db *gorm.DB) error {
	err := db.AutoMigrate(
		&domain.Asset{},
		&domain.Connection{},
		&domain.Shift{},
		&domain.IslandAssignment{},
		&domain.MeterReading{},
		&domain.DipReading{},
		&domain.AuditEntry{},
		&domain.Offload{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func logLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
