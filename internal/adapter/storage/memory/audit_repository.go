package memory

import (
	"context"
	"sync"

	"github.com/seu-repo/sigec-posto/internal/domain"
	"github.com/seu-repo/sigec-posto/internal/ports"
)

// AuditRepository keeps audit entries in append order. Entries are copied on
// the way in and out, so callers can never edit history.
type AuditRepository struct {
	mu      sync.RWMutex
	entries []domain.AuditEntry
}

func NewAuditRepository() *AuditRepository {
	return &AuditRepository{}
}

func (r *AuditRepository) Append(ctx context.Context, entry domain.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry.Connection != nil {
		c := *entry.Connection
		entry.Connection = &c
	}
	r.entries = append(r.entries, entry)
	return nil
}

func (r *AuditRepository) ListByStation(ctx context.Context, stationID string) ([]domain.AuditEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.AuditEntry{}
	for _, e := range r.entries {
		if e.StationID != stationID {
			continue
		}
		if e.Connection != nil {
			c := *e.Connection
			e.Connection = &c
		}
		out = append(out, e)
	}
	return out, nil
}

var _ ports.AuditRepository = (*AuditRepository)(nil)
