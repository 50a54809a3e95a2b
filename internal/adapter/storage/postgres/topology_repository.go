package postgres

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/seu-repo/sigec-posto/internal/domain"
	"github.com/seu-repo/sigec-posto/internal/ports"
)

// TopologyRepository reads station assets and stores connections. Assets are
// owned by the asset registry; this repository never writes them.
type TopologyRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewTopologyRepository(db *gorm.DB, log *zap.Logger) *TopologyRepository {
	return &TopologyRepository{db: db, log: log}
}

// LoadStation returns (nil, nil) when the station has no registered assets.
func (r *TopologyRepository) LoadStation(ctx context.Context, stationID string) (*domain.StationSnapshot, error) {
	db := r.db.WithContext(ctx)

	var assets []domain.Asset
	if err := db.Where("station_id = ?", stationID).Order("id").Find(&assets).Error; err != nil {
		return nil, fmt.Errorf("failed to load assets: %w", err)
	}
	if len(assets) == 0 {
		return nil, nil
	}

	connections := []domain.Connection{}
	if err := db.Where("station_id = ?", stationID).Order("created_at, id").Find(&connections).Error; err != nil {
		return nil, fmt.Errorf("failed to load connections: %w", err)
	}

	r.log.Debug("Station topology loaded",
		zap.String("station_id", stationID),
		zap.Int("assets", len(assets)),
		zap.Int("connections", len(connections)),
	)
	return &domain.StationSnapshot{
		StationID:   stationID,
		Assets:      assets,
		Connections: connections,
	}, nil
}

func (r *TopologyRepository) SaveConnection(ctx context.Context, conn *domain.Connection) error {
	if err := r.db.WithContext(ctx).Save(conn).Error; err != nil {
		return fmt.Errorf("failed to save connection: %w", err)
	}
	return nil
}

func (r *TopologyRepository) DeleteConnection(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Delete(&domain.Connection{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete connection: %w", err)
	}
	return nil
}

// SaveAssets upserts station assets. Used for seeding.
func (r *TopologyRepository) SaveAssets(ctx context.Context, assets []domain.Asset) error {
	if len(assets) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Save(&assets).Error
}

var _ ports.TopologyRepository = (*TopologyRepository)(nil)
