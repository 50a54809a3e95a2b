package postgres

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/seu-repo/sigec-posto/internal/domain"
	"github.com/seu-repo/sigec-posto/internal/ports"
)

type AuditRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewAuditRepository(db *gorm.DB, log *zap.Logger) *AuditRepository {
	return &AuditRepository{db: db, log: log}
}

func (r *AuditRepository) Append(ctx context.Context, entry domain.AuditEntry) error {
	if err := r.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

func (r *AuditRepository) ListByStation(ctx context.Context, stationID string) ([]domain.AuditEntry, error) {
	entries := []domain.AuditEntry{}
	err := r.db.WithContext(ctx).Where("station_id = ?", stationID).Order("at, id").Find(&entries).Error
	return entries, err
}

var _ ports.AuditRepository = (*AuditRepository)(nil)
