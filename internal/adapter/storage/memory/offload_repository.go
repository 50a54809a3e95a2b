package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/seu-repo/sigec-posto/internal/domain"
	"github.com/seu-repo/sigec-posto/internal/ports"
)

type OffloadRepository struct {
	mu       sync.RWMutex
	offloads map[string]domain.Offload
}

func NewOffloadRepository() *OffloadRepository {
	return &OffloadRepository{offloads: make(map[string]domain.Offload)}
}

func (r *OffloadRepository) Save(ctx context.Context, offload *domain.Offload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.offloads[offload.ID] = copyOffload(*offload)
	return nil
}

func (r *OffloadRepository) FindByID(ctx context.Context, id string) (*domain.Offload, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.offloads[id]
	if !ok {
		return nil, nil
	}
	out := copyOffload(o)
	return &out, nil
}

func (r *OffloadRepository) FindByShift(ctx context.Context, shiftID string) ([]domain.Offload, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.Offload{}
	for _, o := range r.offloads {
		if o.ShiftID == shiftID {
			out = append(out, copyOffload(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordedAt.Before(out[j].RecordedAt) })
	return out, nil
}

func copyOffload(o domain.Offload) domain.Offload {
	o.Tanks = append([]domain.TankOffload(nil), o.Tanks...)
	o.PumpSales = append([]domain.PumpSale(nil), o.PumpSales...)
	return o
}

var _ ports.OffloadRepository = (*OffloadRepository)(nil)
