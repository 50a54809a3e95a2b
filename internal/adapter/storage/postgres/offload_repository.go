package postgres

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/seu-repo/sigec-posto/internal/domain"
	"github.com/seu-repo/sigec-posto/internal/ports"
)

type OffloadRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewOffloadRepository(db *gorm.DB, log *zap.Logger) *OffloadRepository {
	return &OffloadRepository{db: db, log: log}
}

func (r *OffloadRepository) Save(ctx context.Context, offload *domain.Offload) error {
	if err := r.db.WithContext(ctx).Save(offload).Error; err != nil {
		return fmt.Errorf("failed to save offload: %w", err)
	}
	return nil
}

func (r *OffloadRepository) FindByID(ctx context.Context, id string) (*domain.Offload, error) {
	var offload domain.Offload
	err := r.db.WithContext(ctx).First(&offload, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &offload, nil
}

func (r *OffloadRepository) FindByShift(ctx context.Context, shiftID string) ([]domain.Offload, error) {
	offloads := []domain.Offload{}
	err := r.db.WithContext(ctx).Where("shift_id = ?", shiftID).Order("recorded_at").Find(&offloads).Error
	return offloads, err
}

var _ ports.OffloadRepository = (*OffloadRepository)(nil)
