package shift

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/seu-repo/sigec-posto/internal/adapter/queue"
	"github.com/seu-repo/sigec-posto/internal/domain"
	"github.com/seu-repo/sigec-posto/internal/observability/telemetry"
	"github.com/seu-repo/sigec-posto/internal/service/reading"
	"github.com/seu-repo/sigec-posto/internal/service/reconciliation"
)

// Open moves a planned shift to OPEN, recording the supplied assignments and
// START readings. Nothing is kept if any part of the request is rejected.
func (l *Lifecycle) Open(ctx context.Context, shiftID string, req domain.OpenShiftRequest) (*domain.Shift, error) {
	ctx, span := tracer.Start(ctx, "shift.Open")
	defer span.End()
	span.SetAttributes(attribute.String("shift_id", shiftID))

	var out *domain.Shift
	err := l.withShift(ctx, shiftID, func(s *domain.Shift) error {
		switch s.Status {
		case domain.ShiftStatusClosed:
			return terminal(s)
		case domain.ShiftStatusOpen:
			return domain.NewError(domain.KindInvalidTransition, "", "shift %s is already open", s.ID)
		}

		open, err := l.repo.FindOpenByStation(ctx, s.StationID)
		if err != nil {
			return fmt.Errorf("failed to check open shift: %w", err)
		}
		if open != nil && open.ID != s.ID {
			return stationBusy(s.StationID, open)
		}

		batch, err := l.prepare(ctx, s.StationID, domain.ReadingStart, req.PumpReadings, req.TankReadings)
		if err != nil {
			return err
		}
		if err := l.addAssignments(ctx, s, req.IslandAssignments); err != nil {
			return err
		}
		rollback, err := l.recordAll(s.ID, batch)
		if err != nil {
			return err
		}

		s.Status = domain.ShiftStatusOpen
		s.UpdatedAt = l.now()
		if err := l.repo.Save(ctx, s); err != nil {
			rollback()
			return fmt.Errorf("failed to save shift: %w", err)
		}
		l.persistReadings(ctx, s.ID)

		telemetry.OpenShifts.Inc()
		queue.Emit(l.mq, l.log, queue.Event{Subject: queue.SubjectShiftOpened, StationID: s.StationID, ActorID: req.ActorID, Payload: s})
		l.log.Info("Shift opened",
			zap.String("shift_id", s.ID),
			zap.String("station_id", s.StationID),
			zap.Int("assignments", len(s.Assignments)),
			zap.Int("readings", len(batch)),
		)
		out = s
		return nil
	})
	return out, err
}

// Close records the END readings, reconciles the shift and moves it to
// CLOSED. Every asset that has a START reading needs an END reading, either
// recorded earlier or supplied here.
func (l *Lifecycle) Close(ctx context.Context, shiftID string, req domain.CloseShiftRequest) (*domain.Shift, *domain.ReconciliationReport, error) {
	ctx, span := tracer.Start(ctx, "shift.Close")
	defer span.End()
	span.SetAttributes(attribute.String("shift_id", shiftID))

	var (
		out    *domain.Shift
		report *domain.ReconciliationReport
	)
	err := l.withShift(ctx, shiftID, func(s *domain.Shift) error {
		switch s.Status {
		case domain.ShiftStatusClosed:
			return terminal(s)
		case domain.ShiftStatusPlanned:
			return domain.NewError(domain.KindInvalidTransition, "", "shift %s is not open", s.ID)
		}

		batch, err := l.prepare(ctx, s.StationID, domain.ReadingEnd, req.PumpReadings, req.TankReadings)
		if err != nil {
			return err
		}
		if err := l.checkComplete(s.ID, batch); err != nil {
			return err
		}
		rollback, err := l.recordAll(s.ID, batch)
		if err != nil {
			return err
		}

		now := l.now()
		rep, err := l.reconcile(s, now)
		if err != nil {
			rollback()
			return err
		}

		s.Status = domain.ShiftStatusClosed
		s.EndTime = &now
		s.Report = rep
		s.UpdatedAt = now
		if err := l.repo.Save(ctx, s); err != nil {
			rollback()
			return fmt.Errorf("failed to save shift: %w", err)
		}
		l.persistReadings(ctx, s.ID)

		telemetry.OpenShifts.Dec()
		telemetry.ShiftsClosedTotal.Inc()
		telemetry.ShiftVarianceLiters.Observe(rep.Totals.Volume.Variance)
		queue.Emit(l.mq, l.log, queue.Event{Subject: queue.SubjectShiftClosed, StationID: s.StationID, ActorID: req.ActorID, Payload: rep})
		l.log.Info("Shift closed",
			zap.String("shift_id", s.ID),
			zap.String("station_id", s.StationID),
			zap.Float64("sales_total", rep.Totals.Sales.Total),
			zap.Float64("variance_liters", rep.Totals.Volume.Variance),
			zap.Int("anomalies", len(rep.Anomalies)),
		)
		out, report = s, rep
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return out, report, nil
}

// prepare turns request readings into validated Reading values of the given
// type. A missing reading type defaults to rt; any other type is rejected.
func (l *Lifecycle) prepare(ctx context.Context, stationID string, rt domain.ReadingType, pumps []domain.MeterReading, tanks []domain.DipReading) ([]domain.Reading, error) {
	batch := make([]domain.Reading, 0, len(pumps)+len(tanks))
	for _, m := range pumps {
		if m.ReadingType == "" {
			m.ReadingType = rt
		}
		batch = append(batch, domain.PumpReading(m))
	}
	for _, d := range tanks {
		if d.ReadingType == "" {
			d.ReadingType = rt
		}
		batch = append(batch, domain.TankReading(d))
	}

	seen := make(map[string]struct{}, len(batch))
	for _, r := range batch {
		if err := reading.ValidateReading(r); err != nil {
			return nil, err
		}
		if r.Type() != rt {
			return nil, domain.Validation("reading_out_of_phase", "%s reading for %s where %s was expected", r.Type(), r.AssetID(), rt)
		}
		k := string(r.Kind) + "/" + r.AssetID()
		if _, dup := seen[k]; dup {
			return nil, domain.NewError(domain.KindDuplicateReading, "", "%s %s appears twice in the request", r.Kind, r.AssetID())
		}
		seen[k] = struct{}{}
		if err := l.checkAsset(ctx, stationID, r); err != nil {
			return nil, err
		}
	}
	return batch, nil
}

// checkComplete verifies END readings against START readings before anything
// is written.
func (l *Lifecycle) checkComplete(shiftID string, batch []domain.Reading) error {
	ends := make(map[string]struct{}, len(batch))
	var orphans []string
	for _, r := range batch {
		if _, ok := l.readings.Get(shiftID, r.Kind, r.AssetID(), domain.ReadingStart); !ok {
			orphans = append(orphans, r.AssetID())
		}
		ends[string(r.Kind)+"/"+r.AssetID()] = struct{}{}
	}
	if len(orphans) > 0 {
		sort.Strings(orphans)
		return endWithoutStart(orphans)
	}

	all := l.readings.AllFor(shiftID)
	var missingIDs []string
	check := func(kind domain.ReadingKind, id string) {
		if _, ok := ends[string(kind)+"/"+id]; ok {
			return
		}
		if _, ok := l.readings.Get(shiftID, kind, id, domain.ReadingEnd); ok {
			return
		}
		missingIDs = append(missingIDs, id)
	}
	for _, m := range all.Pumps {
		if m.ReadingType == domain.ReadingStart {
			check(domain.ReadingKindPump, m.PumpID)
		}
	}
	for _, d := range all.Tanks {
		if d.ReadingType == domain.ReadingStart {
			check(domain.ReadingKindTank, d.TankID)
		}
	}
	if len(missingIDs) > 0 {
		sort.Strings(missingIDs)
		return domain.IncompleteReadings(missingIDs)
	}
	return nil
}

// recordAll stores the batch and returns a func that removes it again.
func (l *Lifecycle) recordAll(shiftID string, batch []domain.Reading) (func(), error) {
	done := make([]domain.Reading, 0, len(batch))
	rollback := func() {
		for _, r := range done {
			if err := l.readings.Delete(shiftID, r.Kind, r.AssetID(), r.Type()); err != nil {
				l.log.Error("Failed to roll back reading", zap.String("shift_id", shiftID), zap.String("asset_id", r.AssetID()), zap.Error(err))
			}
		}
	}
	for _, r := range batch {
		if _, err := l.readings.Record(shiftID, r); err != nil {
			rollback()
			return nil, err
		}
		done = append(done, r)
	}
	return rollback, nil
}

func (l *Lifecycle) reconcile(s *domain.Shift, now time.Time) (*domain.ReconciliationReport, error) {
	engine := reconciliation.NewEngine(l.readings.AllFor(s.ID))
	pumps, err := engine.Pumps()
	if err != nil {
		return nil, err
	}
	tanks, err := engine.Tanks()
	if err != nil {
		return nil, err
	}

	rep := &domain.ReconciliationReport{
		ShiftID:     s.ID,
		StationID:   s.StationID,
		ShiftNumber: s.ShiftNumber,
		GeneratedAt: now,
		Totals:      reconciliation.Totals(pumps, tanks),
		Pumps:       pumps,
		Tanks:       tanks,
	}
	for _, p := range pumps {
		if p.SalesDelta < 0 || p.LitersDelta < 0 || p.CashDelta < 0 {
			rep.Anomalies = append(rep.Anomalies, fmt.Sprintf("pump %s meters went backwards", p.PumpID))
		}
	}
	for _, t := range tanks {
		if t.Usage < 0 {
			rep.Anomalies = append(rep.Anomalies,
				fmt.Sprintf("tank %s gained %.2f L during the shift; record the delivery as an offload", t.TankID, -t.Usage))
		}
	}
	return rep, nil
}
