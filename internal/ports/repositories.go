package ports

import (
	"context"

	"github.com/seu-repo/sigec-posto/internal/domain"
)

// ShiftRepository persists shift records and their readings. FindByID and
// FindOpenByStation return (nil, nil) when nothing matches; FindReadings
// returns empty slices.
type ShiftRepository interface {
	Save(ctx context.Context, shift *domain.Shift) error
	FindByID(ctx context.Context, id string) (*domain.Shift, error)
	FindOpenByStation(ctx context.Context, stationID string) (*domain.Shift, error)
	LastShiftNumber(ctx context.Context, stationID string) (int, error)
	SaveReadings(ctx context.Context, readings domain.ShiftReadings) error
	FindReadings(ctx context.Context, shiftID string) (domain.ShiftReadings, error)
}

// AuditRepository is append-only.
type AuditRepository interface {
	Append(ctx context.Context, entry domain.AuditEntry) error
	ListByStation(ctx context.Context, stationID string) ([]domain.AuditEntry, error)
}

type OffloadRepository interface {
	Save(ctx context.Context, offload *domain.Offload) error
	FindByID(ctx context.Context, id string) (*domain.Offload, error)
	FindByShift(ctx context.Context, shiftID string) ([]domain.Offload, error)
}

// TopologyRepository loads raw station data and stores accepted connection
// changes. Validation never happens here.
type TopologyRepository interface {
	LoadStation(ctx context.Context, stationID string) (*domain.StationSnapshot, error)
	SaveConnection(ctx context.Context, conn *domain.Connection) error
	DeleteConnection(ctx context.Context, id string) error
}
