package reconciliation

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/seu-repo/sigec-posto/internal/domain"
)

// Engine derives shift figures from a pair of START/END reading sets. It
// never mutates the readings it was built from.
type Engine struct {
	pumpStart map[string]domain.MeterReading
	pumpEnd   map[string]domain.MeterReading
	tankStart map[string]domain.DipReading
	tankEnd   map[string]domain.DipReading
}

func NewEngine(readings domain.ShiftReadings) *Engine {
	e := &Engine{
		pumpStart: make(map[string]domain.MeterReading),
		pumpEnd:   make(map[string]domain.MeterReading),
		tankStart: make(map[string]domain.DipReading),
		tankEnd:   make(map[string]domain.DipReading),
	}
	for _, m := range readings.Pumps {
		switch m.ReadingType {
		case domain.ReadingStart:
			e.pumpStart[m.PumpID] = m
		case domain.ReadingEnd:
			e.pumpEnd[m.PumpID] = m
		}
	}
	for _, d := range readings.Tanks {
		switch d.ReadingType {
		case domain.ReadingStart:
			e.tankStart[d.TankID] = d
		case domain.ReadingEnd:
			e.tankEnd[d.TankID] = d
		}
	}
	return e
}

func missing(kind, id string, rt domain.ReadingType) error {
	return &domain.Error{
		Kind:     domain.KindMissingReading,
		Message:  fmt.Sprintf("%s %s has no %s reading", kind, id, rt),
		AssetIDs: []string{id},
	}
}

// PumpDelta is end minus start for sales, liters and the cash meter.
func (e *Engine) PumpDelta(pumpID string) (domain.PumpDelta, error) {
	start, ok := e.pumpStart[pumpID]
	if !ok {
		return domain.PumpDelta{}, missing("pump", pumpID, domain.ReadingStart)
	}
	end, ok := e.pumpEnd[pumpID]
	if !ok {
		return domain.PumpDelta{}, missing("pump", pumpID, domain.ReadingEnd)
	}
	return domain.PumpDelta{
		PumpID:      pumpID,
		SalesDelta:  sub(end.SalesValue, start.SalesValue),
		LitersDelta: sub(end.LitersDispensed, start.LitersDispensed),
		CashDelta:   sub(end.CashMeter, start.CashMeter),
	}, nil
}

// TankUsage is start volume minus end volume. A negative value is returned
// as is; it means fuel came in during the shift.
func (e *Engine) TankUsage(tankID string) (domain.TankUsage, error) {
	start, ok := e.tankStart[tankID]
	if !ok {
		return domain.TankUsage{}, missing("tank", tankID, domain.ReadingStart)
	}
	end, ok := e.tankEnd[tankID]
	if !ok {
		return domain.TankUsage{}, missing("tank", tankID, domain.ReadingEnd)
	}
	return domain.TankUsage{TankID: tankID, Usage: sub(start.Volume, end.Volume)}, nil
}

// Pumps returns the delta of every pump with a START reading, by pump id.
func (e *Engine) Pumps() ([]domain.PumpDelta, error) {
	out := make([]domain.PumpDelta, 0, len(e.pumpStart))
	for _, id := range sortedKeys(e.pumpStart) {
		d, err := e.PumpDelta(id)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// Tanks returns the usage of every tank with a START reading, by tank id.
func (e *Engine) Tanks() ([]domain.TankUsage, error) {
	out := make([]domain.TankUsage, 0, len(e.tankStart))
	for _, id := range sortedKeys(e.tankStart) {
		u, err := e.TankUsage(id)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

func (e *Engine) ShiftTotals() (domain.ShiftTotals, error) {
	pumps, err := e.Pumps()
	if err != nil {
		return domain.ShiftTotals{}, err
	}
	tanks, err := e.Tanks()
	if err != nil {
		return domain.ShiftTotals{}, err
	}
	return Totals(pumps, tanks), nil
}

// Totals sums already computed deltas.
func Totals(pumps []domain.PumpDelta, tanks []domain.TankUsage) domain.ShiftTotals {
	total, cash, dispensed, usage := decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero
	for _, p := range pumps {
		total = total.Add(decimal.NewFromFloat(p.SalesDelta))
		cash = cash.Add(decimal.NewFromFloat(p.CashDelta))
		dispensed = dispensed.Add(decimal.NewFromFloat(p.LitersDelta))
	}
	for _, t := range tanks {
		usage = usage.Add(decimal.NewFromFloat(t.Usage))
	}

	hundred := decimal.NewFromInt(100)
	perLiter, cashPct := decimal.Zero, decimal.Zero
	if dispensed.IsPositive() {
		perLiter = total.Div(dispensed)
	}
	if total.IsPositive() {
		cashPct = cash.Div(total).Mul(hundred)
	}

	return domain.ShiftTotals{
		Sales: domain.SalesTotals{
			Total:      total.InexactFloat64(),
			Cash:       cash.InexactFloat64(),
			Electronic: total.Sub(cash).InexactFloat64(),
		},
		Volume: domain.VolumeTotals{
			Dispensed: dispensed.InexactFloat64(),
			TankUsage: usage.InexactFloat64(),
			Variance:  dispensed.Sub(usage).InexactFloat64(),
		},
		Efficiency: domain.Efficiency{
			SalesPerLiter:  perLiter.InexactFloat64(),
			CashPercentage: cashPct.InexactFloat64(),
		},
	}
}

func sub(a, b float64) float64 {
	return decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).InexactFloat64()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
