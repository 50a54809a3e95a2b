package shift

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/seu-repo/sigec-posto/internal/adapter/queue"
	"github.com/seu-repo/sigec-posto/internal/domain"
	"github.com/seu-repo/sigec-posto/internal/observability/telemetry"
	"github.com/seu-repo/sigec-posto/internal/ports"
	"github.com/seu-repo/sigec-posto/internal/service/reading"
)

var tracer = telemetry.Tracer("shift")

// Lifecycle drives shifts through PLANNED -> OPEN -> CLOSED. Every operation
// on a station's shifts runs under that station's lock, so the "one open
// shift per station" check and the write that depends on it cannot
// interleave with another request.
type Lifecycle struct {
	mu     sync.Mutex
	locks  map[string]*sync.Mutex
	loaded map[string]struct{}

	repo     ports.ShiftRepository
	readings *reading.Store
	assets   ports.AssetLookup
	mq       queue.MessageQueue
	now      func() time.Time
	log      *zap.Logger
}

type Option func(*Lifecycle)

func WithClock(now func() time.Time) Option {
	return func(l *Lifecycle) { l.now = now }
}

// NewLifecycle creates a new shift lifecycle
func NewLifecycle(
	repo ports.ShiftRepository,
	readings *reading.Store,
	assets ports.AssetLookup,
	mq queue.MessageQueue,
	log *zap.Logger,
	opts ...Option,
) *Lifecycle {
	l := &Lifecycle{
		locks:    make(map[string]*sync.Mutex),
		loaded:   make(map[string]struct{}),
		repo:     repo,
		readings: readings,
		assets:   assets,
		mq:       mq,
		now:      time.Now,
		log:      log,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Lifecycle) lockStation(stationID string) func() {
	l.mu.Lock()
	m, ok := l.locks[stationID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[stationID] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock
}

func (l *Lifecycle) find(ctx context.Context, shiftID string) (*domain.Shift, error) {
	s, err := l.repo.FindByID(ctx, shiftID)
	if err != nil {
		return nil, fmt.Errorf("failed to find shift: %w", err)
	}
	if s == nil {
		return nil, domain.NotFound("shift %s not found", shiftID)
	}
	return s, nil
}

// hydrate loads the stored readings of a shift this process has not seen
// yet. Without it a restart would forget START readings and let Close pass
// with nothing to check.
func (l *Lifecycle) hydrate(ctx context.Context, shiftID string) error {
	l.mu.Lock()
	_, done := l.loaded[shiftID]
	l.mu.Unlock()
	if done {
		return nil
	}

	rd, err := l.repo.FindReadings(ctx, shiftID)
	if err != nil {
		return fmt.Errorf("failed to load readings: %w", err)
	}
	rd.ShiftID = shiftID
	if n := l.readings.Restore(rd); n > 0 {
		l.log.Info("Readings restored", zap.String("shift_id", shiftID), zap.Int("count", n))
	}

	l.mu.Lock()
	l.loaded[shiftID] = struct{}{}
	l.mu.Unlock()
	return nil
}

func (l *Lifecycle) markLoaded(shiftID string) {
	l.mu.Lock()
	l.loaded[shiftID] = struct{}{}
	l.mu.Unlock()
}

// withShift runs fn with the shift's station locked and a fresh copy of the
// shift read under that lock.
func (l *Lifecycle) withShift(ctx context.Context, shiftID string, fn func(s *domain.Shift) error) error {
	s, err := l.find(ctx, shiftID)
	if err != nil {
		return err
	}
	unlock := l.lockStation(s.StationID)
	defer unlock()
	s, err = l.find(ctx, shiftID)
	if err != nil {
		return err
	}
	if err := l.hydrate(ctx, s.ID); err != nil {
		return err
	}
	return fn(s)
}

// Create plans a new shift for the station with the next shift number.
func (l *Lifecycle) Create(ctx context.Context, stationID, supervisorID string) (*domain.Shift, error) {
	ctx, span := tracer.Start(ctx, "shift.Create")
	defer span.End()
	span.SetAttributes(attribute.String("station_id", stationID))

	if stationID == "" || supervisorID == "" {
		return nil, domain.Validation("invalid_input", "station id and supervisor id are required")
	}

	unlock := l.lockStation(stationID)
	defer unlock()

	open, err := l.repo.FindOpenByStation(ctx, stationID)
	if err != nil {
		return nil, fmt.Errorf("failed to check open shift: %w", err)
	}
	if open != nil {
		return nil, stationBusy(stationID, open)
	}

	last, err := l.repo.LastShiftNumber(ctx, stationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get last shift number: %w", err)
	}

	now := l.now()
	s := &domain.Shift{
		ID:           uuid.New().String(),
		StationID:    stationID,
		SupervisorID: supervisorID,
		ShiftNumber:  last + 1,
		StartTime:    now,
		Status:       domain.ShiftStatusPlanned,
		Assignments:  []domain.IslandAssignment{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := l.repo.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to save shift: %w", err)
	}
	l.markLoaded(s.ID)

	queue.Emit(l.mq, l.log, queue.Event{Subject: queue.SubjectShiftCreated, StationID: stationID, ActorID: supervisorID, Payload: s})
	l.log.Info("Shift created",
		zap.String("shift_id", s.ID),
		zap.String("station_id", stationID),
		zap.Int("shift_number", s.ShiftNumber),
	)
	return s, nil
}

// AssignAttendant adds an island assignment to a planned or open shift.
func (l *Lifecycle) AssignAttendant(ctx context.Context, shiftID string, a domain.IslandAssignment) (*domain.Shift, error) {
	var out *domain.Shift
	err := l.withShift(ctx, shiftID, func(s *domain.Shift) error {
		if s.Status == domain.ShiftStatusClosed {
			return terminal(s)
		}
		if err := l.addAssignments(ctx, s, []domain.IslandAssignment{a}); err != nil {
			return err
		}
		s.UpdatedAt = l.now()
		if err := l.repo.Save(ctx, s); err != nil {
			return fmt.Errorf("failed to save shift: %w", err)
		}
		out = s
		return nil
	})
	return out, err
}

// RecordReading stores one reading ahead of a transition: START readings
// while the shift is planned, END readings while it is open.
func (l *Lifecycle) RecordReading(ctx context.Context, shiftID string, r domain.Reading) (domain.Reading, error) {
	var out domain.Reading
	err := l.withShift(ctx, shiftID, func(s *domain.Shift) error {
		var want domain.ReadingType
		switch s.Status {
		case domain.ShiftStatusClosed:
			return terminal(s)
		case domain.ShiftStatusPlanned:
			want = domain.ReadingStart
		default:
			want = domain.ReadingEnd
		}
		if err := reading.ValidateReading(r); err != nil {
			return err
		}
		if r.Type() != want {
			return domain.Validation("reading_out_of_phase",
				"shift %s is %s and only accepts %s readings", s.ID, s.Status, want)
		}
		if err := l.checkAsset(ctx, s.StationID, r); err != nil {
			return err
		}
		if want == domain.ReadingEnd {
			if _, ok := l.readings.Get(s.ID, r.Kind, r.AssetID(), domain.ReadingStart); !ok {
				return endWithoutStart([]string{r.AssetID()})
			}
		}
		rec, err := l.readings.Record(s.ID, r)
		if err != nil {
			return err
		}
		l.persistReadings(ctx, s.ID)
		out = rec
		return nil
	})
	return out, err
}

func (l *Lifecycle) Get(ctx context.Context, shiftID string) (*domain.Shift, error) {
	return l.find(ctx, shiftID)
}

func (l *Lifecycle) Readings(ctx context.Context, shiftID string) (domain.ShiftReadings, error) {
	if _, err := l.find(ctx, shiftID); err != nil {
		return domain.ShiftReadings{}, err
	}
	if err := l.hydrate(ctx, shiftID); err != nil {
		return domain.ShiftReadings{}, err
	}
	return l.readings.AllFor(shiftID), nil
}

// Report returns the reconciliation report of a closed shift.
func (l *Lifecycle) Report(ctx context.Context, shiftID string) (*domain.ReconciliationReport, error) {
	s, err := l.find(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	if s.Report == nil {
		return nil, domain.NotFound("shift %s has no report (status %s)", shiftID, s.Status)
	}
	return s.Report, nil
}

func (l *Lifecycle) OpenShift(ctx context.Context, stationID string) (*domain.Shift, error) {
	s, err := l.repo.FindOpenByStation(ctx, stationID)
	if err != nil {
		return nil, fmt.Errorf("failed to find open shift: %w", err)
	}
	if s == nil {
		return nil, domain.NotFound("station %s has no open shift", stationID)
	}
	return s, nil
}

// OpenShiftAssets lists the pumps, tanks and islands the station's open
// shift is using. It is empty when no shift is open.
func (l *Lifecycle) OpenShiftAssets(ctx context.Context, stationID string) ([]string, error) {
	s, err := l.repo.FindOpenByStation(ctx, stationID)
	if err != nil {
		return nil, fmt.Errorf("failed to find open shift: %w", err)
	}
	if s == nil {
		return nil, nil
	}
	if err := l.hydrate(ctx, s.ID); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	all := l.readings.AllFor(s.ID)
	for _, m := range all.Pumps {
		seen[m.PumpID] = struct{}{}
	}
	for _, d := range all.Tanks {
		seen[d.TankID] = struct{}{}
	}
	for _, a := range s.Assignments {
		seen[a.IslandID] = struct{}{}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (l *Lifecycle) addAssignments(ctx context.Context, s *domain.Shift, assignments []domain.IslandAssignment) error {
	for _, a := range assignments {
		if a.AssignmentType == "" {
			a.AssignmentType = domain.AssignmentPrimary
		}
		if err := domain.Validate(a); err != nil {
			return err
		}
		if a.AssignmentType != domain.AssignmentPrimary && a.AssignmentType != domain.AssignmentRelief {
			return domain.Validation("invalid_input", "unknown assignment type %q", a.AssignmentType)
		}
		asset, err := l.assets.Asset(ctx, s.StationID, a.IslandID)
		if err != nil {
			return err
		}
		if !asset.IsIsland() {
			return wrongType(a.IslandID, domain.AssetTypeIsland, asset.Type)
		}
		for _, existing := range s.Assignments {
			if existing.IslandID == a.IslandID && existing.AttendantID == a.AttendantID {
				return &domain.Error{
					Kind:     domain.KindValidation,
					Reason:   "duplicate_assignment",
					Message:  fmt.Sprintf("attendant %s already assigned to island %s", a.AttendantID, a.IslandID),
					AssetIDs: []string{a.IslandID},
				}
			}
			if existing.AttendantID == a.AttendantID {
				l.log.Warn("Attendant assigned to more than one island",
					zap.String("shift_id", s.ID),
					zap.String("attendant_id", a.AttendantID),
					zap.String("reason", domain.WarnAttendantMultiIsland),
					zap.Strings("islands", []string{existing.IslandID, a.IslandID}),
				)
			}
		}
		a.ShiftID = s.ID
		s.Assignments = append(s.Assignments, a)
	}
	return nil
}

// checkAsset makes sure the reading points at a pump or tank of the station.
func (l *Lifecycle) checkAsset(ctx context.Context, stationID string, r domain.Reading) error {
	asset, err := l.assets.Asset(ctx, stationID, r.AssetID())
	if err != nil {
		return err
	}
	switch r.Kind {
	case domain.ReadingKindPump:
		if !asset.IsPump() {
			return wrongType(asset.ID, domain.AssetTypeFuelPump, asset.Type)
		}
	case domain.ReadingKindTank:
		if !asset.IsTank() {
			return wrongType(asset.ID, domain.AssetTypeStorageTank, asset.Type)
		}
	}
	return nil
}

func (l *Lifecycle) persistReadings(ctx context.Context, shiftID string) {
	if err := l.repo.SaveReadings(ctx, l.readings.AllFor(shiftID)); err != nil {
		l.log.Error("Failed to persist readings", zap.String("shift_id", shiftID), zap.Error(err))
	}
}

func stationBusy(stationID string, open *domain.Shift) error {
	return domain.NewError(domain.KindStationBusy, "",
		"station %s already has open shift %d (%s)", stationID, open.ShiftNumber, open.ID)
}

func terminal(s *domain.Shift) error {
	return domain.NewError(domain.KindTerminalState, "", "shift %s is closed", s.ID)
}

func wrongType(assetID string, want, got domain.AssetType) error {
	return &domain.Error{
		Kind:     domain.KindValidation,
		Reason:   "wrong_asset_type",
		Message:  fmt.Sprintf("asset %s is %s, expected %s", assetID, got, want),
		AssetIDs: []string{assetID},
	}
}

func endWithoutStart(ids []string) error {
	return &domain.Error{
		Kind:     domain.KindValidation,
		Reason:   "end_without_start",
		Message:  "END reading supplied for asset(s) without a START reading",
		AssetIDs: ids,
	}
}

var (
	_ ports.ShiftService    = (*Lifecycle)(nil)
	_ ports.OpenShiftLookup = (*Lifecycle)(nil)
)
