package offload

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seu-repo/sigec-posto/internal/adapter/queue"
	"github.com/seu-repo/sigec-posto/internal/domain"
	"github.com/seu-repo/sigec-posto/internal/observability/telemetry"
	"github.com/seu-repo/sigec-posto/internal/ports"
	"github.com/seu-repo/sigec-posto/internal/service/reconciliation"
)

// Service accounts for fuel deliveries. Offload volumes are kept apart from
// shift totals; a shift that saw a delivery reports it as negative tank usage.
type Service struct {
	repo   ports.OffloadRepository
	assets ports.AssetLookup
	mq     queue.MessageQueue
	now    func() time.Time
	log    *zap.Logger
}

// NewService creates a new offload service
func NewService(repo ports.OffloadRepository, assets ports.AssetLookup, mq queue.MessageQueue, log *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		assets: assets,
		mq:     mq,
		now:    time.Now,
		log:    log,
	}
}

// Preview runs the accounting without storing anything.
func (s *Service) Preview(ctx context.Context, o domain.Offload) (*domain.OffloadSummary, error) {
	o = normalize(o)
	if err := validateStructure(o); err != nil {
		return nil, err
	}
	return reconciliation.ReconcileOffload(o)
}

func (s *Service) Record(ctx context.Context, o domain.Offload) (*domain.Offload, *domain.OffloadSummary, error) {
	o = normalize(o)
	if err := validateStructure(o); err != nil {
		return nil, nil, err
	}
	if err := s.checkAssets(ctx, o); err != nil {
		return nil, nil, err
	}

	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	if o.RecordedAt.IsZero() {
		o.RecordedAt = s.now()
	}

	summary, err := reconciliation.ReconcileOffload(o)
	if err != nil {
		return nil, nil, err
	}
	o.Tanks = summary.Tanks
	o.PumpSales = summary.PumpSales

	if err := s.repo.Save(ctx, &o); err != nil {
		return nil, nil, fmt.Errorf("failed to save offload: %w", err)
	}

	telemetry.OffloadVolumeLiters.Add(summary.AdjustedVolume)
	queue.Emit(s.mq, s.log, queue.Event{
		Subject:   queue.SubjectOffloadRecorded,
		StationID: o.StationID,
		ActorID:   o.RecordedByID,
		Payload:   summary,
	})
	s.log.Info("Offload recorded",
		zap.String("offload_id", o.ID),
		zap.String("station_id", o.StationID),
		zap.String("purchase_id", o.PurchaseID),
		zap.Float64("actual_volume", summary.ActualVolume),
		zap.Float64("variance", summary.Variance),
	)
	return &o, summary, nil
}

func (s *Service) ListByShift(ctx context.Context, shiftID string) ([]domain.Offload, error) {
	offloads, err := s.repo.FindByShift(ctx, shiftID)
	if err != nil {
		return nil, fmt.Errorf("failed to list offloads: %w", err)
	}
	return offloads, nil
}

func (s *Service) checkAssets(ctx context.Context, o domain.Offload) error {
	for _, t := range o.Tanks {
		a, err := s.assets.Asset(ctx, o.StationID, t.TankID)
		if err != nil {
			return err
		}
		if !a.IsTank() {
			return assetTypeError(t.TankID, domain.AssetTypeStorageTank, a.Type)
		}
	}
	for _, p := range o.PumpSales {
		a, err := s.assets.Asset(ctx, o.StationID, p.PumpID)
		if err != nil {
			return err
		}
		if !a.IsPump() {
			return assetTypeError(p.PumpID, domain.AssetTypeFuelPump, a.Type)
		}
	}
	return nil
}

// normalize copies the tank id onto both dips so callers need not repeat it.
func normalize(o domain.Offload) domain.Offload {
	tanks := make([]domain.TankOffload, len(o.Tanks))
	for i, t := range o.Tanks {
		if t.DipBefore.TankID == "" {
			t.DipBefore.TankID = t.TankID
		}
		if t.DipAfter.TankID == "" {
			t.DipAfter.TankID = t.TankID
		}
		tanks[i] = t
	}
	o.Tanks = tanks
	o.PumpSales = append([]domain.PumpSale(nil), o.PumpSales...)
	return o
}

func validateStructure(o domain.Offload) error {
	if err := domain.Validate(o); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(o.Tanks))
	for _, t := range o.Tanks {
		if t.DipBefore.TankID != t.TankID || t.DipAfter.TankID != t.TankID {
			return &domain.Error{
				Kind:     domain.KindValidation,
				Reason:   "dip_tank_mismatch",
				Message:  fmt.Sprintf("dip readings for tank %s name another tank", t.TankID),
				AssetIDs: []string{t.TankID},
			}
		}
		if _, dup := seen[t.TankID]; dup {
			return &domain.Error{
				Kind:     domain.KindValidation,
				Reason:   "duplicate_tank",
				Message:  fmt.Sprintf("tank %s listed twice", t.TankID),
				AssetIDs: []string{t.TankID},
			}
		}
		seen[t.TankID] = struct{}{}
	}
	return nil
}

func assetTypeError(assetID string, want, got domain.AssetType) error {
	return &domain.Error{
		Kind:     domain.KindValidation,
		Reason:   "wrong_asset_type",
		Message:  fmt.Sprintf("asset %s is %s, expected %s", assetID, got, want),
		AssetIDs: []string{assetID},
	}
}

var _ ports.OffloadService = (*Service)(nil)
