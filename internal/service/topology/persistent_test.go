package topology

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/seu-repo/sigec-posto/internal/adapter/queue"
	"github.com/seu-repo/sigec-posto/internal/adapter/storage/memory"
	"github.com/seu-repo/sigec-posto/internal/domain"
	"github.com/seu-repo/sigec-posto/internal/mocks"
)

func newPersistent(repo *memory.TopologyRepository) *Persistent {
	m := NewManager(memory.NewAuditRepository(), mocks.NewMockCache(), nil, zap.NewNop())
	return NewPersistent(m, repo, newTestLogger())
}

func TestPersistent_LoadsLazilyAndStores(t *testing.T) {
	// Arrange
	repo := memory.NewTopologyRepository()
	repo.Seed(domain.StationSnapshot{StationID: st1, Assets: testAssets()})
	p := newPersistent(repo)
	ctx := context.Background()

	// Act
	res, err := p.CreateConnection(ctx, connect(domain.ConnectionTankToPump, "T1", "P1"))

	// Assert
	require.NoError(t, err)
	snap, err := repo.LoadStation(ctx, st1)
	require.NoError(t, err)
	require.Len(t, snap.Connections, 1)
	assert.Equal(t, res.Connection.ID, snap.Connections[0].ID)

	// a fresh manager sees the stored connection
	fresh := newPersistent(repo)
	conns, err := fresh.ConnectionsOf(ctx, st1, "P1")
	require.NoError(t, err)
	assert.Len(t, conns, 1)

	_, err = fresh.DeleteConnection(ctx, st1, res.Connection.ID, "user-1")
	require.NoError(t, err)
	snap, _ = repo.LoadStation(ctx, st1)
	assert.Empty(t, snap.Connections)
}

func TestPersistent_UnknownStation(t *testing.T) {
	p := newPersistent(memory.NewTopologyRepository())

	_, err := p.Summary(context.Background(), "nowhere")

	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestPersistent_SaveFailureRollsBack(t *testing.T) {
	// Arrange
	seed := memory.NewTopologyRepository()
	seed.Seed(domain.StationSnapshot{StationID: st1, Assets: testAssets()})
	repo := &mocks.MockTopologyRepository{
		LoadStationFunc: seed.LoadStation,
		SaveConnectionFunc: func(ctx context.Context, c *domain.Connection) error {
			if c.AssetBID == "P2" {
				return errors.New("write failed")
			}
			return nil
		},
	}
	m := NewManager(memory.NewAuditRepository(), nil, nil, zap.NewNop())
	p := NewPersistent(m, repo, newTestLogger())
	ctx := context.Background()

	// Act
	_, createErr := p.CreateConnection(ctx, connect(domain.ConnectionTankToPump, "T1", "P2"))
	bulk, bulkErr := p.BulkConnect(ctx, domain.BulkConnectRequest{
		StationID:      st1,
		Type:           domain.ConnectionTankToPump,
		TargetAssetID:  "T1",
		SourceAssetIDs: []string{"P1", "P2"},
	})

	// Assert
	require.Error(t, createErr)
	require.NoError(t, bulkErr)
	assert.Equal(t, 1, bulk.Successful)
	assert.Equal(t, 1, bulk.Failed)
	assert.Equal(t, "persist_failed", bulk.Outcomes[1].Error.Reason)
	conns, _ := p.ConnectionsOf(ctx, st1, "P2")
	assert.Empty(t, conns)
}

func TestPersistent_ConcurrentFirstRequestsLoadOnce(t *testing.T) {
	// Arrange
	seed := memory.NewTopologyRepository()
	seed.Seed(domain.StationSnapshot{StationID: st1, Assets: testAssets()})
	var loads int32
	repo := &mocks.MockTopologyRepository{
		LoadStationFunc: func(ctx context.Context, stationID string) (*domain.StationSnapshot, error) {
			atomic.AddInt32(&loads, 1)
			time.Sleep(20 * time.Millisecond)
			return seed.LoadStation(ctx, stationID)
		},
	}
	p := NewPersistent(NewManager(memory.NewAuditRepository(), nil, nil, zap.NewNop()), repo, newTestLogger())
	ctx := context.Background()

	// Act
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.ConnectionsOf(ctx, st1, "P1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	_, err := p.CreateConnection(ctx, connect(domain.ConnectionTankToPump, "T1", "P1"))
	require.NoError(t, err)
	_, err = p.Summary(ctx, st1)
	require.NoError(t, err)

	// Assert
	assert.Equal(t, int32(1), atomic.LoadInt32(&loads))
	conns, err := p.ConnectionsOf(ctx, st1, "P1")
	require.NoError(t, err)
	assert.Len(t, conns, 1, "a later load must not replace the graph")
}

func TestPersistent_DeleteFailureKeepsConnection(t *testing.T) {
	// Arrange
	seed := memory.NewTopologyRepository()
	seed.Seed(domain.StationSnapshot{StationID: st1, Assets: testAssets()})
	ctx := context.Background()
	res, err := newPersistent(seed).CreateConnection(ctx, connect(domain.ConnectionTankToPump, "T1", "P1"))
	require.NoError(t, err)

	repo := &mocks.MockTopologyRepository{
		LoadStationFunc: seed.LoadStation,
		DeleteConnectionFunc: func(ctx context.Context, id string) error {
			return errors.New("write failed")
		},
	}
	audit := &mocks.MockAuditRepository{}
	mq := mocks.NewMockMessageQueue()
	p := NewPersistent(NewManager(audit, nil, mq, zap.NewNop()), repo, newTestLogger())

	// Act
	_, err = p.DeleteConnection(ctx, st1, res.Connection.ID, "user-1")

	// Assert
	require.Error(t, err)
	conns, err := p.ConnectionsOf(ctx, st1, "P1")
	require.NoError(t, err)
	require.Len(t, conns, 1)
	assert.Equal(t, res.Connection.ID, conns[0].ID)
	assert.Empty(t, mq.GetPublishedMessages(queue.SubjectConnectionDeleted))
	for _, e := range audit.Entries {
		assert.NotEqual(t, domain.AuditConnectionDeleted, e.Action)
	}
}

func TestPersistent_SaveFailurePublishesNothing(t *testing.T) {
	// Arrange
	seed := memory.NewTopologyRepository()
	seed.Seed(domain.StationSnapshot{StationID: st1, Assets: testAssets()})
	repo := &mocks.MockTopologyRepository{
		LoadStationFunc: seed.LoadStation,
		SaveConnectionFunc: func(ctx context.Context, c *domain.Connection) error {
			return errors.New("write failed")
		},
	}
	audit := &mocks.MockAuditRepository{}
	mq := mocks.NewMockMessageQueue()
	p := NewPersistent(NewManager(audit, nil, mq, zap.NewNop()), repo, newTestLogger())

	// Act
	_, err := p.CreateConnection(context.Background(), connect(domain.ConnectionTankToPump, "T1", "P1"))

	// Assert
	require.Error(t, err)
	assert.Empty(t, mq.GetPublishedMessages(queue.SubjectConnectionCreated))
	for _, e := range audit.Entries {
		assert.NotEqual(t, domain.AuditConnectionCreated, e.Action)
	}
}
