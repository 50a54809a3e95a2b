package reconciliation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seu-repo/sigec-posto/internal/domain"
)

func meter(pumpID string, rt domain.ReadingType, sales, liters, cash float64) domain.MeterReading {
	return domain.MeterReading{PumpID: pumpID, ReadingType: rt, SalesValue: sales, LitersDispensed: liters, CashMeter: cash}
}

func dip(tankID string, rt domain.ReadingType, volume float64) domain.DipReading {
	return domain.DipReading{TankID: tankID, ReadingType: rt, Volume: volume}
}

func TestPumpDelta_RoundTrip(t *testing.T) {
	// Arrange
	engine := NewEngine(domain.ShiftReadings{Pumps: []domain.MeterReading{
		meter("P", domain.ReadingStart, 1000, 50, 300),
		meter("P", domain.ReadingEnd, 1800, 90, 500),
	}})

	// Act
	d, err := engine.PumpDelta("P")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 800.0, d.SalesDelta)
	assert.Equal(t, 40.0, d.LitersDelta)
	assert.Equal(t, 200.0, d.CashDelta)
}

func TestPumpDelta_MissingReading(t *testing.T) {
	engine := NewEngine(domain.ShiftReadings{Pumps: []domain.MeterReading{
		meter("P", domain.ReadingStart, 1000, 50, 0),
	}})

	_, err := engine.PumpDelta("P")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMissingReading))

	_, err = engine.PumpDelta("unknown")
	assert.True(t, errors.Is(err, domain.ErrMissingReading))
}

func TestTankUsage_NegativeIsKept(t *testing.T) {
	engine := NewEngine(domain.ShiftReadings{Tanks: []domain.DipReading{
		dip("T", domain.ReadingStart, 5000),
		dip("T", domain.ReadingEnd, 9000),
	}})

	u, err := engine.TankUsage("T")

	require.NoError(t, err)
	assert.Equal(t, -4000.0, u.Usage)
}

func TestShiftTotals(t *testing.T) {
	// Arrange
	engine := NewEngine(domain.ShiftReadings{
		Pumps: []domain.MeterReading{
			meter("P1", domain.ReadingStart, 1000, 50, 100),
			meter("P1", domain.ReadingEnd, 1800, 90, 300),
			meter("P2", domain.ReadingStart, 0, 0, 0),
			meter("P2", domain.ReadingEnd, 200, 10, 0),
		},
		Tanks: []domain.DipReading{
			dip("T1", domain.ReadingStart, 10000),
			dip("T1", domain.ReadingEnd, 9955),
		},
	})

	// Act
	totals, err := engine.ShiftTotals()

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1000.0, totals.Sales.Total)
	assert.Equal(t, 200.0, totals.Sales.Cash)
	assert.Equal(t, 800.0, totals.Sales.Electronic)
	assert.Equal(t, 50.0, totals.Volume.Dispensed)
	assert.Equal(t, 45.0, totals.Volume.TankUsage)
	assert.Equal(t, 5.0, totals.Volume.Variance)
	assert.Equal(t, 20.0, totals.Efficiency.SalesPerLiter)
	assert.Equal(t, 20.0, totals.Efficiency.CashPercentage)
}

func TestShiftTotals_ZeroGuards(t *testing.T) {
	engine := NewEngine(domain.ShiftReadings{})

	totals, err := engine.ShiftTotals()

	require.NoError(t, err)
	assert.Equal(t, domain.ShiftTotals{}, totals)
}

func TestShiftTotals_DecimalSums(t *testing.T) {
	engine := NewEngine(domain.ShiftReadings{Pumps: []domain.MeterReading{
		meter("P1", domain.ReadingStart, 0.1, 0, 0),
		meter("P1", domain.ReadingEnd, 0.3, 0, 0),
		meter("P2", domain.ReadingStart, 0, 0, 0),
		meter("P2", domain.ReadingEnd, 0.1, 0, 0),
	}})

	totals, err := engine.ShiftTotals()

	require.NoError(t, err)
	assert.Equal(t, 0.3, totals.Sales.Total)
}

func TestShiftTotals_MissingEnd(t *testing.T) {
	engine := NewEngine(domain.ShiftReadings{Tanks: []domain.DipReading{
		dip("T1", domain.ReadingStart, 100),
	}})

	_, err := engine.ShiftTotals()

	assert.Equal(t, domain.KindMissingReading, domain.KindOf(err))
}
