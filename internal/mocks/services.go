package mocks

import (
	"context"

	"github.com/seu-repo/sigec-posto/internal/domain"
)

// MockAssetLookup resolves assets from the Assets map unless AssetFunc is
// set. Assets of another station are reported as not found.
type MockAssetLookup struct {
	Assets    map[string]domain.Asset
	AssetFunc func(ctx context.Context, stationID, assetID string) (domain.Asset, error)
}

func NewMockAssetLookup(assets ...domain.Asset) *MockAssetLookup {
	m := &MockAssetLookup{Assets: make(map[string]domain.Asset)}
	for _, a := range assets {
		m.Assets[a.ID] = a
	}
	return m
}

func (m *MockAssetLookup) Asset(ctx context.Context, stationID, assetID string) (domain.Asset, error) {
	if m.AssetFunc != nil {
		return m.AssetFunc(ctx, stationID, assetID)
	}
	a, ok := m.Assets[assetID]
	if !ok || a.StationID != stationID {
		return domain.Asset{}, domain.NotFound("asset %s not found in station %s", assetID, stationID)
	}
	return a, nil
}

// MockOpenShiftLookup is a mock implementation of OpenShiftLookup
type MockOpenShiftLookup struct {
	OpenShiftAssetsFunc func(ctx context.Context, stationID string) ([]string, error)
}

func (m *MockOpenShiftLookup) OpenShiftAssets(ctx context.Context, stationID string) ([]string, error) {
	if m.OpenShiftAssetsFunc != nil {
		return m.OpenShiftAssetsFunc(ctx, stationID)
	}
	return nil, nil
}
