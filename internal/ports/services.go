package ports

import (
	"context"

	"github.com/seu-repo/sigec-posto/internal/domain"
)

// TopologyService validates and mutates station asset wiring.
type TopologyService interface {
	LoadStation(ctx context.Context, snapshot domain.StationSnapshot) (domain.TopologySummary, error)
	CreateConnection(ctx context.Context, req domain.ConnectionRequest) (*domain.ConnectionResult, error)
	DeleteConnection(ctx context.Context, stationID, connectionID, actorID string) (*domain.DeleteResult, error)
	BulkConnect(ctx context.Context, req domain.BulkConnectRequest) (*domain.BulkResult, error)
	VerifyConnection(ctx context.Context, req domain.ConnectionRequest) (domain.Verification, error)
	ConnectionsOf(ctx context.Context, stationID, assetID string) ([]domain.Connection, error)
	UnattachedAssets(ctx context.Context, stationID string) ([]domain.Asset, error)
	AssetTopology(ctx context.Context, stationID string) ([]domain.AssetNode, error)
	Summary(ctx context.Context, stationID string) (domain.TopologySummary, error)
	InvalidateSummary(ctx context.Context, stationID string) error
	AuditLog(ctx context.Context, stationID string) ([]domain.AuditEntry, error)
}

// AssetLookup resolves a station asset. Implementations return a
// domain NotFound error when the asset is unknown to the station.
type AssetLookup interface {
	Asset(ctx context.Context, stationID, assetID string) (domain.Asset, error)
}

// OpenShiftLookup reports which assets are referenced by the station's
// currently open shift.
type OpenShiftLookup interface {
	OpenShiftAssets(ctx context.Context, stationID string) ([]string, error)
}

type ShiftService interface {
	Create(ctx context.Context, stationID, supervisorID string) (*domain.Shift, error)
	AssignAttendant(ctx context.Context, shiftID string, assignment domain.IslandAssignment) (*domain.Shift, error)
	RecordReading(ctx context.Context, shiftID string, reading domain.Reading) (domain.Reading, error)
	Open(ctx context.Context, shiftID string, req domain.OpenShiftRequest) (*domain.Shift, error)
	Close(ctx context.Context, shiftID string, req domain.CloseShiftRequest) (*domain.Shift, *domain.ReconciliationReport, error)
	Get(ctx context.Context, shiftID string) (*domain.Shift, error)
	Readings(ctx context.Context, shiftID string) (domain.ShiftReadings, error)
	Report(ctx context.Context, shiftID string) (*domain.ReconciliationReport, error)
	OpenShift(ctx context.Context, stationID string) (*domain.Shift, error)
}

type OffloadService interface {
	Preview(ctx context.Context, offload domain.Offload) (*domain.OffloadSummary, error)
	Record(ctx context.Context, offload domain.Offload) (*domain.Offload, *domain.OffloadSummary, error)
	ListByShift(ctx context.Context, shiftID string) ([]domain.Offload, error)
}
