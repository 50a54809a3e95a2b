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

type ShiftRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewShiftRepository(db *gorm.DB, log *zap.Logger) *ShiftRepository {
	return &ShiftRepository{
		db:  db,
		log: log,
	}
}

// Save upserts the shift together with its island assignments.
func (r *ShiftRepository) Save(ctx context.Context, shift *domain.Shift) error {
	err := r.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(shift).Error
	if err != nil {
		return fmt.Errorf("failed to save shift: %w", err)
	}
	return nil
}

func (r *ShiftRepository) FindByID(ctx context.Context, id string) (*domain.Shift, error) {
	var shift domain.Shift
	err := r.db.WithContext(ctx).Preload("Assignments").First(&shift, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &shift, nil
}

func (r *ShiftRepository) FindOpenByStation(ctx context.Context, stationID string) (*domain.Shift, error) {
	var shift domain.Shift
	err := r.db.WithContext(ctx).
		Preload("Assignments").
		Where("station_id = ? AND status = ?", stationID, domain.ShiftStatusOpen).
		First(&shift).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &shift, nil
}

func (r *ShiftRepository) LastShiftNumber(ctx context.Context, stationID string) (int, error) {
	var last int
	err := r.db.WithContext(ctx).
		Model(&domain.Shift{}).
		Where("station_id = ?", stationID).
		Select("COALESCE(MAX(shift_number), 0)").
		Scan(&last).Error
	return last, err
}

// SaveReadings replaces every stored reading of the shift in one transaction.
func (r *ShiftRepository) SaveReadings(ctx context.Context, readings domain.ShiftReadings) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("shift_id = ?", readings.ShiftID).Delete(&domain.MeterReading{}).Error; err != nil {
			return fmt.Errorf("failed to clear meter readings: %w", err)
		}
		if err := tx.Where("shift_id = ?", readings.ShiftID).Delete(&domain.DipReading{}).Error; err != nil {
			return fmt.Errorf("failed to clear dip readings: %w", err)
		}
		if len(readings.Pumps) > 0 {
			if err := tx.Create(&readings.Pumps).Error; err != nil {
				return fmt.Errorf("failed to save meter readings: %w", err)
			}
		}
		if len(readings.Tanks) > 0 {
			if err := tx.Create(&readings.Tanks).Error; err != nil {
				return fmt.Errorf("failed to save dip readings: %w", err)
			}
		}
		return nil
	})
}

// FindReadings returns the persisted readings of a shift, START before END
// for each asset.
func (r *ShiftRepository) FindReadings(ctx context.Context, shiftID string) (domain.ShiftReadings, error) {
	out := domain.ShiftReadings{ShiftID: shiftID, Pumps: []domain.MeterReading{}, Tanks: []domain.DipReading{}}
	db := r.db.WithContext(ctx)
	if err := db.Where("shift_id = ?", shiftID).Order("pump_id, reading_type DESC").Find(&out.Pumps).Error; err != nil {
		return out, err
	}
	if err := db.Where("shift_id = ?", shiftID).Order("tank_id, reading_type DESC").Find(&out.Tanks).Error; err != nil {
		return out, err
	}
	return out, nil
}

var _ ports.ShiftRepository = (*ShiftRepository)(nil)
