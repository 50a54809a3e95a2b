package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/seu-repo/sigec-posto/internal/domain"
	"github.com/seu-repo/sigec-posto/internal/ports"
)

// TopologyRepository serves station snapshots seeded at startup or by tests.
type TopologyRepository struct {
	mu          sync.RWMutex
	assets      map[string][]domain.Asset
	connections map[string]domain.Connection
}

func NewTopologyRepository() *TopologyRepository {
	return &TopologyRepository{
		assets:      make(map[string][]domain.Asset),
		connections: make(map[string]domain.Connection),
	}
}

// Seed replaces the station's assets and connections.
func (r *TopologyRepository) Seed(snapshot domain.StationSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assets[snapshot.StationID] = append([]domain.Asset(nil), snapshot.Assets...)
	for id, c := range r.connections {
		if c.StationID == snapshot.StationID {
			delete(r.connections, id)
		}
	}
	for _, c := range snapshot.Connections {
		r.connections[c.ID] = c
	}
}

func (r *TopologyRepository) LoadStation(ctx context.Context, stationID string) (*domain.StationSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	assets, ok := r.assets[stationID]
	if !ok {
		return nil, nil
	}
	snap := &domain.StationSnapshot{
		StationID:   stationID,
		Assets:      append([]domain.Asset(nil), assets...),
		Connections: []domain.Connection{},
	}
	for _, c := range r.connections {
		if c.StationID == stationID {
			snap.Connections = append(snap.Connections, c)
		}
	}
	sortConnections(snap.Connections)
	return snap, nil
}

func (r *TopologyRepository) SaveConnection(ctx context.Context, conn *domain.Connection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connections[conn.ID] = *conn
	return nil
}

func (r *TopologyRepository) DeleteConnection(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.connections, id)
	return nil
}

func sortConnections(conns []domain.Connection) {
	sort.Slice(conns, func(i, j int) bool {
		if !conns[i].CreatedAt.Equal(conns[j].CreatedAt) {
			return conns[i].CreatedAt.Before(conns[j].CreatedAt)
		}
		return conns[i].ID < conns[j].ID
	})
}

var _ ports.TopologyRepository = (*TopologyRepository)(nil)
