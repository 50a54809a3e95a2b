package memory

import (
	"context"
	"sync"

	"github.com/seu-repo/sigec-posto/internal/domain"
	"github.com/seu-repo/sigec-posto/internal/ports"
)

// ShiftRepository is the default store when no database is configured.
type ShiftRepository struct {
	mu       sync.RWMutex
	shifts   map[string]domain.Shift
	readings map[string]domain.ShiftReadings
}

func NewShiftRepository() *ShiftRepository {
	return &ShiftRepository{
		shifts:   make(map[string]domain.Shift),
		readings: make(map[string]domain.ShiftReadings),
	}
}

func (r *ShiftRepository) Save(ctx context.Context, shift *domain.Shift) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shifts[shift.ID] = copyShift(*shift)
	return nil
}

func (r *ShiftRepository) FindByID(ctx context.Context, id string) (*domain.Shift, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.shifts[id]
	if !ok {
		return nil, nil
	}
	out := copyShift(s)
	return &out, nil
}

func (r *ShiftRepository) FindOpenByStation(ctx context.Context, stationID string) (*domain.Shift, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.shifts {
		if s.StationID == stationID && s.Status == domain.ShiftStatusOpen {
			out := copyShift(s)
			return &out, nil
		}
	}
	return nil, nil
}

func (r *ShiftRepository) LastShiftNumber(ctx context.Context, stationID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	last := 0
	for _, s := range r.shifts {
		if s.StationID == stationID && s.ShiftNumber > last {
			last = s.ShiftNumber
		}
	}
	return last, nil
}

func (r *ShiftRepository) SaveReadings(ctx context.Context, readings domain.ShiftReadings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.readings[readings.ShiftID] = domain.ShiftReadings{
		ShiftID: readings.ShiftID,
		Pumps:   append([]domain.MeterReading(nil), readings.Pumps...),
		Tanks:   append([]domain.DipReading(nil), readings.Tanks...),
	}
	return nil
}

// FindReadings returns what SaveReadings last stored for the shift.
func (r *ShiftRepository) FindReadings(ctx context.Context, shiftID string) (domain.ShiftReadings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := domain.ShiftReadings{ShiftID: shiftID, Pumps: []domain.MeterReading{}, Tanks: []domain.DipReading{}}
	if rd, ok := r.readings[shiftID]; ok {
		out.Pumps = append(out.Pumps, rd.Pumps...)
		out.Tanks = append(out.Tanks, rd.Tanks...)
	}
	return out, nil
}

func copyShift(s domain.Shift) domain.Shift {
	s.Assignments = append([]domain.IslandAssignment(nil), s.Assignments...)
	if s.EndTime != nil {
		t := *s.EndTime
		s.EndTime = &t
	}
	return s
}

var _ ports.ShiftRepository = (*ShiftRepository)(nil)
