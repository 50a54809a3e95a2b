package topology

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/seu-repo/sigec-posto/internal/domain"
	"github.com/seu-repo/sigec-posto/internal/ports"
)

// Persistent puts a repository in front of a Manager: stations are loaded on
// first use and connection changes are stored under the station lock, before
// the Manager publishes them.
type Persistent struct {
	*Manager
	repo  ports.TopologyRepository
	loads singleflight.Group
	log   *zap.Logger
}

func NewPersistent(m *Manager, repo ports.TopologyRepository, log *zap.Logger) *Persistent {
	m.useStore(repo)
	return &Persistent{Manager: m, repo: repo, log: log}
}

// ensureLoaded loads a station at most once. Concurrent first requests share
// one load, and a load that finds the station already present does nothing,
// so an older snapshot never replaces a graph that has taken writes.
func (p *Persistent) ensureLoaded(ctx context.Context, stationID string) error {
	if p.Manager.HasStation(stationID) {
		return nil
	}
	_, err, _ := p.loads.Do(stationID, func() (interface{}, error) {
		if p.Manager.HasStation(stationID) {
			return nil, nil
		}
		snapshot, err := p.repo.LoadStation(ctx, stationID)
		if err != nil {
			return nil, fmt.Errorf("load station %s: %w", stationID, err)
		}
		if snapshot == nil {
			return nil, domain.NotFound("station %s not found", stationID)
		}
		if _, err := p.Manager.LoadStation(ctx, *snapshot); err != nil {
			return nil, err
		}
		p.log.Debug("Station loaded from storage", zap.String("station_id", stationID))
		return nil, nil
	})
	return err
}

func (p *Persistent) CreateConnection(ctx context.Context, req domain.ConnectionRequest) (*domain.ConnectionResult, error) {
	if err := p.ensureLoaded(ctx, req.StationID); err != nil {
		return nil, err
	}
	return p.Manager.CreateConnection(ctx, req)
}

func (p *Persistent) DeleteConnection(ctx context.Context, stationID, connectionID, actorID string) (*domain.DeleteResult, error) {
	if err := p.ensureLoaded(ctx, stationID); err != nil {
		return nil, err
	}
	return p.Manager.DeleteConnection(ctx, stationID, connectionID, actorID)
}

func (p *Persistent) BulkConnect(ctx context.Context, req domain.BulkConnectRequest) (*domain.BulkResult, error) {
	if err := p.ensureLoaded(ctx, req.StationID); err != nil {
		return nil, err
	}
	return p.Manager.BulkConnect(ctx, req)
}

func (p *Persistent) VerifyConnection(ctx context.Context, req domain.ConnectionRequest) (domain.Verification, error) {
	if err := p.ensureLoaded(ctx, req.StationID); err != nil {
		return domain.Verification{}, err
	}
	return p.Manager.VerifyConnection(ctx, req)
}

func (p *Persistent) ConnectionsOf(ctx context.Context, stationID, assetID string) ([]domain.Connection, error) {
	if err := p.ensureLoaded(ctx, stationID); err != nil {
		return nil, err
	}
	return p.Manager.ConnectionsOf(ctx, stationID, assetID)
}

func (p *Persistent) UnattachedAssets(ctx context.Context, stationID string) ([]domain.Asset, error) {
	if err := p.ensureLoaded(ctx, stationID); err != nil {
		return nil, err
	}
	return p.Manager.UnattachedAssets(ctx, stationID)
}

func (p *Persistent) AssetTopology(ctx context.Context, stationID string) ([]domain.AssetNode, error) {
	if err := p.ensureLoaded(ctx, stationID); err != nil {
		return nil, err
	}
	return p.Manager.AssetTopology(ctx, stationID)
}

func (p *Persistent) Summary(ctx context.Context, stationID string) (domain.TopologySummary, error) {
	if err := p.ensureLoaded(ctx, stationID); err != nil {
		return domain.TopologySummary{}, err
	}
	return p.Manager.Summary(ctx, stationID)
}

func (p *Persistent) Asset(ctx context.Context, stationID, assetID string) (domain.Asset, error) {
	if err := p.ensureLoaded(ctx, stationID); err != nil {
		return domain.Asset{}, err
	}
	return p.Manager.Asset(ctx, stationID, assetID)
}

var (
	_ ports.TopologyService = (*Manager)(nil)
	_ ports.TopologyService = (*Persistent)(nil)
	_ ports.AssetLookup     = (*Persistent)(nil)
)
