package topology

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seu-repo/sigec-posto/internal/domain"
)

const st1 = "st-1"

func tank(id string) domain.Asset {
	return domain.Asset{ID: id, Type: domain.AssetTypeStorageTank, StationID: st1, Status: domain.AssetStatusActive, ProductID: "diesel"}
}

func pump(id string) domain.Asset {
	return domain.Asset{ID: id, Type: domain.AssetTypeFuelPump, StationID: st1, Status: domain.AssetStatusActive}
}

func island(id string) domain.Asset {
	return domain.Asset{ID: id, Type: domain.AssetTypeIsland, StationID: st1, Status: domain.AssetStatusActive}
}

func testAssets() []domain.Asset {
	return []domain.Asset{
		tank("T1"), tank("T2"),
		pump("P1"), pump("P2"), pump("P3"),
		island("I1"), island("I2"),
		{ID: "W1", Type: domain.AssetTypeWarehouse, StationID: st1},
		{ID: "X1", Type: domain.AssetTypeFuelPump, StationID: "st-2"},
		{ID: "U1", Type: domain.AssetTypeFuelPump},
	}
}

func reasonOf(t *testing.T, err error) string {
	t.Helper()
	de, ok := domain.AsError(err)
	require.True(t, ok, "expected domain error, got %v", err)
	return de.Reason
}

func TestAddConnection_ValidPairsSucceedOnce(t *testing.T) {
	tests := []struct {
		name   string
		ct     domain.ConnectionType
		a, b   string
		reason string
	}{
		{"tank to pump", domain.ConnectionTankToPump, "T1", "P1", domain.ReasonPumpHasTank},
		{"tank to island", domain.ConnectionTankToIsland, "T1", "I1", domain.ReasonTankHasIsland},
		{"pump to island", domain.ConnectionPumpToIsland, "P1", "I1", domain.ReasonPumpHasIsland},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			g := NewGraph(st1, testAssets())

			// Act
			conn, err := g.AddConnection(tt.ct, tt.a, tt.b, st1)
			_, again := g.AddConnection(tt.ct, tt.a, tt.b, st1)

			// Assert
			require.NoError(t, err)
			assert.NotEmpty(t, conn.ID)
			assert.Equal(t, tt.a, conn.AssetAID)
			require.Error(t, again)
			assert.True(t, errors.Is(again, domain.ErrInvalidConnection))
			assert.Equal(t, tt.reason, reasonOf(t, again))
		})
	}
}

func TestAddConnection_Rules(t *testing.T) {
	tests := []struct {
		name   string
		ct     domain.ConnectionType
		a, b   string
		reason string
	}{
		{"unknown type", "PUMP_TO_TANK", "P1", "T1", domain.ReasonUnknownType},
		{"self connection", domain.ConnectionTankToPump, "T1", "T1", domain.ReasonSelfConnection},
		{"missing asset", domain.ConnectionTankToPump, "T1", "nope", domain.ReasonAssetNotFound},
		{"foreign asset", domain.ConnectionPumpToIsland, "X1", "I1", domain.ReasonForeignStation},
		{"unattached asset", domain.ConnectionPumpToIsland, "U1", "I1", domain.ReasonForeignStation},
		{"reversed sides", domain.ConnectionTankToPump, "P1", "T1", domain.ReasonTypeMismatch},
		{"warehouse", domain.ConnectionTankToIsland, "T1", "W1", domain.ReasonTypeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGraph(st1, testAssets())

			_, err := g.AddConnection(tt.ct, tt.a, tt.b, st1)

			require.Error(t, err)
			assert.Equal(t, tt.reason, reasonOf(t, err))
			assert.Empty(t, g.Connections())
		})
	}
}

func TestAddConnection_TankFeedsManyPumpsIslandTakesMany(t *testing.T) {
	g := NewGraph(st1, testAssets())

	for _, p := range []string{"P1", "P2", "P3"} {
		_, err := g.AddConnection(domain.ConnectionTankToPump, "T1", p, st1)
		require.NoError(t, err)
		_, err = g.AddConnection(domain.ConnectionPumpToIsland, p, "I1", st1)
		require.NoError(t, err)
	}

	assert.Len(t, g.ConnectionsOf("T1"), 3)
	assert.Len(t, g.ConnectionsOf("I1"), 3)
	assert.Len(t, g.ConnectionsOf("P2"), 2)
}

func TestRemoveConnection(t *testing.T) {
	// Arrange
	g := NewGraph(st1, testAssets())
	conn, err := g.AddConnection(domain.ConnectionTankToPump, "T1", "P1", st1)
	require.NoError(t, err)

	// Act
	removed, err := g.RemoveConnection(conn.ID)
	_, stale := g.RemoveConnection(conn.ID)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, conn.ID, removed.ID)
	assert.Empty(t, g.ConnectionsOf("T1"))
	assert.True(t, errors.Is(stale, domain.ErrNotFound))
	_, err = g.AddConnection(domain.ConnectionTankToPump, "T2", "P1", st1)
	assert.NoError(t, err, "pump is free again after removal")
}

func TestUnattachedAssets(t *testing.T) {
	g := NewGraph(st1, testAssets())
	_, err := g.AddConnection(domain.ConnectionTankToPump, "T1", "P1", st1)
	require.NoError(t, err)
	_, err = g.AddConnection(domain.ConnectionPumpToIsland, "P2", "I1", st1)
	require.NoError(t, err)
	_, err = g.AddConnection(domain.ConnectionTankToIsland, "T2", "I2", st1)
	require.NoError(t, err)

	var ids []string
	for _, a := range g.UnattachedAssets() {
		ids = append(ids, a.ID)
	}

	// T1 feeds a pump but sits on no island; P3 has nothing.
	assert.Equal(t, []string{"T1", "P3"}, ids)
}

func TestHealthScore(t *testing.T) {
	t.Run("empty station", func(t *testing.T) {
		assert.Equal(t, 100, NewGraph(st1, nil).HealthScore())
	})

	t.Run("islands only", func(t *testing.T) {
		assert.Equal(t, 100, NewGraph(st1, []domain.Asset{island("I1")}).HealthScore())
	})

	t.Run("100 iff nothing unattached", func(t *testing.T) {
		g := NewGraph(st1, []domain.Asset{tank("T1"), pump("P1"), island("I1")})
		_, err := g.AddConnection(domain.ConnectionTankToPump, "T1", "P1", st1)
		require.NoError(t, err)
		assert.Less(t, g.HealthScore(), 100)

		_, err = g.AddConnection(domain.ConnectionTankToIsland, "T1", "I1", st1)
		require.NoError(t, err)
		assert.Empty(t, g.UnattachedAssets())
		assert.Equal(t, 100, g.HealthScore())
	})

	t.Run("never rounds up to 100", func(t *testing.T) {
		assert.Equal(t, 99, healthScore(500, 1))
		assert.Equal(t, 50, healthScore(1, 1))
		assert.Equal(t, 0, healthScore(0, 3))
	})
}

func TestCheck_Warnings(t *testing.T) {
	assets := []domain.Asset{
		{ID: "T1", Type: domain.AssetTypeStorageTank, StationID: st1, Status: domain.AssetStatusMaintenance},
		{ID: "P1", Type: domain.AssetTypeFuelPump, StationID: st1, Status: domain.AssetStatusInactive},
	}
	g := NewGraph(st1, assets)

	errs, warnings := g.Check(domain.ConnectionTankToPump, "T1", "P1", st1)

	assert.Empty(t, errs)
	var reasons []string
	for _, w := range warnings {
		reasons = append(reasons, w.Reason)
	}
	assert.ElementsMatch(t, []string{domain.WarnAssetMaintenance, domain.WarnTankWithoutProduct, domain.WarnAssetInactive}, reasons)
	assert.Empty(t, g.Connections(), "check never mutates")
}

func TestRestore_KeepsIDAndRevalidates(t *testing.T) {
	g := NewGraph(st1, testAssets())

	err := g.restore(domain.Connection{ID: "c-1", Type: domain.ConnectionTankToPump, AssetAID: "T1", AssetBID: "P1", StationID: st1})
	require.NoError(t, err)
	assert.Equal(t, "c-1", g.ConnectionsOf("P1")[0].ID)

	err = g.restore(domain.Connection{ID: "c-2", Type: domain.ConnectionTankToPump, AssetAID: "T2", AssetBID: "P1", StationID: st1})
	assert.Equal(t, domain.ReasonPumpHasTank, reasonOf(t, err))

	err = g.restore(domain.Connection{ID: "c-1", Type: domain.ConnectionPumpToIsland, AssetAID: "P2", AssetBID: "I1", StationID: st1})
	assert.Error(t, err)
}
