package reconciliation

import (
	"github.com/shopspring/decimal"

	"github.com/seu-repo/sigec-posto/internal/domain"
)

// OffloadTankDelta is the volume a delivery added to a tank. When a delivery
// is expected the after dip must be above the before dip; a reversed pair is
// almost always readings entered in the wrong order.
func OffloadTankDelta(before, after domain.DipReading, expectedVolume float64) (float64, error) {
	if expectedVolume > 0 && after.Volume <= before.Volume {
		return 0, &domain.Error{
			Kind:     domain.KindInvalidDipSequence,
			Message:  "dip after delivery must be above dip before delivery",
			AssetIDs: nonEmpty(after.TankID, before.TankID),
		}
	}
	delta := decimal.NewFromFloat(after.Volume).Sub(decimal.NewFromFloat(before.Volume))
	if delta.IsNegative() {
		return 0, nil
	}
	return delta.InexactFloat64(), nil
}

// PumpSaleLiters converts a sale amount to liters. An unpriced pump yields 0.
func PumpSaleLiters(salesValue, unitPrice float64) float64 {
	if unitPrice <= 0 {
		return 0
	}
	return decimal.NewFromFloat(salesValue).Div(decimal.NewFromFloat(unitPrice)).InexactFloat64()
}

// ReconcileOffload fills in actual tank volumes and pump-sale liters and
// totals them. The input is not modified.
func ReconcileOffload(o domain.Offload) (*domain.OffloadSummary, error) {
	sum := &domain.OffloadSummary{
		OffloadID: o.ID,
		Tanks:     make([]domain.TankOffload, 0, len(o.Tanks)),
		PumpSales: make([]domain.PumpSale, 0, len(o.PumpSales)),
	}
	expected, actual, pumpLiters := decimal.Zero, decimal.Zero, decimal.Zero

	for _, t := range o.Tanks {
		delta, err := OffloadTankDelta(t.DipBefore, t.DipAfter, t.ExpectedVolume)
		if err != nil {
			if de, ok := domain.AsError(err); ok && len(de.AssetIDs) == 0 {
				de.AssetIDs = []string{t.TankID}
			}
			return nil, err
		}
		t.ActualVolume = delta
		sum.Tanks = append(sum.Tanks, t)
		expected = expected.Add(decimal.NewFromFloat(t.ExpectedVolume))
		actual = actual.Add(decimal.NewFromFloat(delta))
	}

	for _, p := range o.PumpSales {
		p.LitersDispensed = PumpSaleLiters(p.SalesValue, p.UnitPrice)
		sum.PumpSales = append(sum.PumpSales, p)
		pumpLiters = pumpLiters.Add(decimal.NewFromFloat(p.LitersDispensed))
	}

	adjusted := actual.Add(pumpLiters)
	sum.ExpectedVolume = expected.InexactFloat64()
	sum.ActualVolume = actual.InexactFloat64()
	sum.PumpLiters = pumpLiters.InexactFloat64()
	sum.AdjustedVolume = adjusted.InexactFloat64()
	sum.Variance = adjusted.Sub(expected).InexactFloat64()
	return sum, nil
}

func nonEmpty(ids ...string) []string {
	for _, id := range ids {
		if id != "" {
			return []string{id}
		}
	}
	return nil
}
