package reading

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seu-repo/sigec-posto/internal/domain"
	"github.com/seu-repo/sigec-posto/internal/observability/telemetry"
)

type key struct {
	kind    domain.ReadingKind
	assetID string
	rt      domain.ReadingType
}

type shiftReadings struct {
	mu       sync.RWMutex
	readings map[key]domain.Reading
}

// Store keeps readings per shift. A (kind, asset, reading type) slot is
// written once; replacing a reading requires an explicit Delete.
type Store struct {
	mu     sync.Mutex
	shifts map[string]*shiftReadings
	now    func() time.Time
	log    *zap.Logger
}

// NewStore creates a new reading store
func NewStore(log *zap.Logger) *Store {
	return &Store{
		shifts: make(map[string]*shiftReadings),
		now:    time.Now,
		log:    log,
	}
}

func (s *Store) shift(shiftID string, create bool) *shiftReadings {
	s.mu.Lock()
	defer s.mu.Unlock()
	sr, ok := s.shifts[shiftID]
	if !ok && create {
		sr = &shiftReadings{readings: make(map[key]domain.Reading)}
		s.shifts[shiftID] = sr
	}
	return sr
}

// ValidateReading checks the structure of a reading: the union is
// consistent, the reading type is START or END and no meter or volume is
// negative.
func ValidateReading(r domain.Reading) error {
	switch r.Kind {
	case domain.ReadingKindPump:
		if r.Meter == nil || r.Dip != nil {
			return domain.Validation("invalid_reading", "pump reading must carry meter values only")
		}
		if err := domain.Validate(r.Meter); err != nil {
			return err
		}
	case domain.ReadingKindTank:
		if r.Dip == nil || r.Meter != nil {
			return domain.Validation("invalid_reading", "tank reading must carry dip values only")
		}
		if err := domain.Validate(r.Dip); err != nil {
			return err
		}
	default:
		return domain.Validation("invalid_reading", "unknown reading kind %q", r.Kind)
	}
	if !r.Type().Valid() {
		return domain.Validation("invalid_reading", "reading type must be START or END, got %q", r.Type())
	}
	return nil
}

// Record stores a copy of r for the shift and returns it with id, shift id
// and timestamp filled in.
func (s *Store) Record(shiftID string, r domain.Reading) (domain.Reading, error) {
	if err := ValidateReading(r); err != nil {
		return domain.Reading{}, err
	}
	r = clone(r)
	k := key{kind: r.Kind, assetID: r.AssetID(), rt: r.Type()}

	sr := s.shift(shiftID, true)
	sr.mu.Lock()
	defer sr.mu.Unlock()

	if _, exists := sr.readings[k]; exists {
		return domain.Reading{}, domain.NewError(domain.KindDuplicateReading, "",
			"%s reading %s already recorded for %s in shift %s", k.kind, k.rt, k.assetID, shiftID)
	}

	now := s.now()
	switch r.Kind {
	case domain.ReadingKindPump:
		if r.Meter.ID == "" {
			r.Meter.ID = uuid.New().String()
		}
		r.Meter.ShiftID = shiftID
		if r.Meter.RecordedAt.IsZero() {
			r.Meter.RecordedAt = now
		}
	case domain.ReadingKindTank:
		if r.Dip.ID == "" {
			r.Dip.ID = uuid.New().String()
		}
		r.Dip.ShiftID = shiftID
		if r.Dip.RecordedAt.IsZero() {
			r.Dip.RecordedAt = now
		}
	}
	sr.readings[k] = r

	telemetry.ReadingsRecordedTotal.WithLabelValues(string(k.kind), string(k.rt)).Inc()
	s.log.Debug("Reading recorded",
		zap.String("shift_id", shiftID),
		zap.String("kind", string(k.kind)),
		zap.String("asset_id", k.assetID),
		zap.String("reading_type", string(k.rt)),
	)
	return clone(r), nil
}

// Restore puts persisted readings back into the store. Slots that already
// hold a reading are left alone. It returns how many readings were added.
func (s *Store) Restore(rd domain.ShiftReadings) int {
	batch := make([]domain.Reading, 0, len(rd.Pumps)+len(rd.Tanks))
	for _, m := range rd.Pumps {
		batch = append(batch, domain.PumpReading(m))
	}
	for _, d := range rd.Tanks {
		batch = append(batch, domain.TankReading(d))
	}
	if len(batch) == 0 {
		return 0
	}

	sr := s.shift(rd.ShiftID, true)
	sr.mu.Lock()
	defer sr.mu.Unlock()
	added := 0
	for _, r := range batch {
		if ValidateReading(r) != nil {
			s.log.Warn("Skipping invalid persisted reading",
				zap.String("shift_id", rd.ShiftID),
				zap.String("asset_id", r.AssetID()),
			)
			continue
		}
		k := key{kind: r.Kind, assetID: r.AssetID(), rt: r.Type()}
		if _, exists := sr.readings[k]; exists {
			continue
		}
		sr.readings[k] = clone(r)
		added++
	}
	return added
}

func (s *Store) Get(shiftID string, kind domain.ReadingKind, assetID string, rt domain.ReadingType) (domain.Reading, bool) {
	sr := s.shift(shiftID, false)
	if sr == nil {
		return domain.Reading{}, false
	}
	sr.mu.RLock()
	defer sr.mu.RUnlock()
	r, ok := sr.readings[key{kind: kind, assetID: assetID, rt: rt}]
	if !ok {
		return domain.Reading{}, false
	}
	return clone(r), true
}

// Delete removes a reading so it can be recorded again.
func (s *Store) Delete(shiftID string, kind domain.ReadingKind, assetID string, rt domain.ReadingType) error {
	sr := s.shift(shiftID, false)
	if sr == nil {
		return domain.NotFound("no readings for shift %s", shiftID)
	}
	sr.mu.Lock()
	defer sr.mu.Unlock()
	k := key{kind: kind, assetID: assetID, rt: rt}
	if _, ok := sr.readings[k]; !ok {
		return domain.NotFound("%s reading %s for %s not found in shift %s", kind, rt, assetID, shiftID)
	}
	delete(sr.readings, k)
	return nil
}

// AllFor returns every reading of the shift ordered by asset id, START
// before END.
func (s *Store) AllFor(shiftID string) domain.ShiftReadings {
	out := domain.ShiftReadings{
		ShiftID: shiftID,
		Pumps:   []domain.MeterReading{},
		Tanks:   []domain.DipReading{},
	}
	sr := s.shift(shiftID, false)
	if sr == nil {
		return out
	}
	sr.mu.RLock()
	for _, r := range sr.readings {
		switch r.Kind {
		case domain.ReadingKindPump:
			out.Pumps = append(out.Pumps, *r.Meter)
		case domain.ReadingKindTank:
			out.Tanks = append(out.Tanks, *r.Dip)
		}
	}
	sr.mu.RUnlock()

	sort.Slice(out.Pumps, func(i, j int) bool {
		a, b := out.Pumps[i], out.Pumps[j]
		if a.PumpID != b.PumpID {
			return a.PumpID < b.PumpID
		}
		return typeOrder(a.ReadingType) < typeOrder(b.ReadingType)
	})
	sort.Slice(out.Tanks, func(i, j int) bool {
		a, b := out.Tanks[i], out.Tanks[j]
		if a.TankID != b.TankID {
			return a.TankID < b.TankID
		}
		return typeOrder(a.ReadingType) < typeOrder(b.ReadingType)
	})
	return out
}

func typeOrder(t domain.ReadingType) int {
	if t == domain.ReadingStart {
		return 0
	}
	return 1
}

func clone(r domain.Reading) domain.Reading {
	if r.Meter != nil {
		m := *r.Meter
		r.Meter = &m
	}
	if r.Dip != nil {
		d := *r.Dip
		r.Dip = &d
	}
	return r
}
