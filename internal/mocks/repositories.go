package mocks

import (
	"context"
	"sync"

	"github.com/seu-repo/sigec-posto/internal/domain"
)

// MockShiftRepository is a mock implementation of ShiftRepository
type MockShiftRepository struct {
	SaveFunc              func(ctx context.Context, shift *domain.Shift) error
	FindByIDFunc          func(ctx context.Context, id string) (*domain.Shift, error)
	FindOpenByStationFunc func(ctx context.Context, stationID string) (*domain.Shift, error)
	LastShiftNumberFunc   func(ctx context.Context, stationID string) (int, error)
	SaveReadingsFunc      func(ctx context.Context, readings domain.ShiftReadings) error
	FindReadingsFunc      func(ctx context.Context, shiftID string) (domain.ShiftReadings, error)
}

func (m *MockShiftRepository) Save(ctx context.Context, shift *domain.Shift) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, shift)
	}
	return nil
}

func (m *MockShiftRepository) FindByID(ctx context.Context, id string) (*domain.Shift, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockShiftRepository) FindOpenByStation(ctx context.Context, stationID string) (*domain.Shift, error) {
	if m.FindOpenByStationFunc != nil {
		return m.FindOpenByStationFunc(ctx, stationID)
	}
	return nil, nil
}

func (m *MockShiftRepository) LastShiftNumber(ctx context.Context, stationID string) (int, error) {
	if m.LastShiftNumberFunc != nil {
		return m.LastShiftNumberFunc(ctx, stationID)
	}
	return 0, nil
}

func (m *MockShiftRepository) SaveReadings(ctx context.Context, readings domain.ShiftReadings) error {
	if m.SaveReadingsFunc != nil {
		return m.SaveReadingsFunc(ctx, readings)
	}
	return nil
}

func (m *MockShiftRepository) FindReadings(ctx context.Context, shiftID string) (domain.ShiftReadings, error) {
	if m.FindReadingsFunc != nil {
		return m.FindReadingsFunc(ctx, shiftID)
	}
	return domain.ShiftReadings{ShiftID: shiftID, Pumps: []domain.MeterReading{}, Tanks: []domain.DipReading{}}, nil
}

// MockAuditRepository is a mock implementation of AuditRepository. Without
// an AppendFunc it keeps appended entries in Entries.
type MockAuditRepository struct {
	mu                sync.Mutex
	Entries           []domain.AuditEntry
	AppendFunc        func(ctx context.Context, entry domain.AuditEntry) error
	ListByStationFunc func(ctx context.Context, stationID string) ([]domain.AuditEntry, error)
}

func (m *MockAuditRepository) Append(ctx context.Context, entry domain.AuditEntry) error {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = append(m.Entries, entry)
	return nil
}

func (m *MockAuditRepository) ListByStation(ctx context.Context, stationID string) ([]domain.AuditEntry, error) {
	if m.ListByStationFunc != nil {
		return m.ListByStationFunc(ctx, stationID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.AuditEntry
	for _, e := range m.Entries {
		if e.StationID == stationID {
			out = append(out, e)
		}
	}
	return out, nil
}

// MockOffloadRepository is a mock implementation of OffloadRepository
type MockOffloadRepository struct {
	SaveFunc        func(ctx context.Context, offload *domain.Offload) error
	FindByIDFunc    func(ctx context.Context, id string) (*domain.Offload, error)
	FindByShiftFunc func(ctx context.Context, shiftID string) ([]domain.Offload, error)
}

func (m *MockOffloadRepository) Save(ctx context.Context, offload *domain.Offload) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, offload)
	}
	return nil
}

func (m *MockOffloadRepository) FindByID(ctx context.Context, id string) (*domain.Offload, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockOffloadRepository) FindByShift(ctx context.Context, shiftID string) ([]domain.Offload, error) {
	if m.FindByShiftFunc != nil {
		return m.FindByShiftFunc(ctx, shiftID)
	}
	return []domain.Offload{}, nil
}

// MockTopologyRepository is a mock implementation of TopologyRepository
type MockTopologyRepository struct {
	LoadStationFunc      func(ctx context.Context, stationID string) (*domain.StationSnapshot, error)
	SaveConnectionFunc   func(ctx context.Context, conn *domain.Connection) error
	DeleteConnectionFunc func(ctx context.Context, id string) error
}

func (m *MockTopologyRepository) LoadStation(ctx context.Context, stationID string) (*domain.StationSnapshot, error) {
	if m.LoadStationFunc != nil {
		return m.LoadStationFunc(ctx, stationID)
	}
	return nil, nil
}

func (m *MockTopologyRepository) SaveConnection(ctx context.Context, conn *domain.Connection) error {
	if m.SaveConnectionFunc != nil {
		return m.SaveConnectionFunc(ctx, conn)
	}
	return nil
}

func (m *MockTopologyRepository) DeleteConnection(ctx context.Context, id string) error {
	if m.DeleteConnectionFunc != nil {
		return m.DeleteConnectionFunc(ctx, id)
	}
	return nil
}
