package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIs_MatchesKindAndOptionalReason(t *testing.T) {
	err := fmt.Errorf("create: %w", InvalidConnection(ReasonPumpHasTank, "pump %s already draws from a tank", "P1"))

	assert.True(t, errors.Is(err, ErrInvalidConnection))
	assert.True(t, errors.Is(err, &Error{Kind: KindInvalidConnection, Reason: ReasonPumpHasTank}))
	assert.False(t, errors.Is(err, &Error{Kind: KindInvalidConnection, Reason: ReasonSelfConnection}))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, KindInvalidConnection, KindOf(err))
}

func TestErrorString(t *testing.T) {
	err := IncompleteReadings([]string{"T1", "T2"})

	assert.Equal(t, "INCOMPLETE_READINGS: 2 asset(s) missing END reading [T1, T2]", err.Error())
	assert.Equal(t, "NOT_FOUND: shift x", NotFound("shift %s", "x").Error())
	assert.Equal(t, "VALIDATION(bad): oops", Validation("bad", "oops").Error())
}

func TestKindOf_NonDomain(t *testing.T) {
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))
	_, ok := AsError(errors.New("plain"))
	assert.False(t, ok)
}

func TestValidate_ReportsFields(t *testing.T) {
	err := Validate(MeterReading{PumpID: "P1", ReadingType: ReadingStart, CashMeter: -1})

	de, ok := AsError(err)
	if assert.True(t, ok) {
		assert.Equal(t, KindValidation, de.Kind)
		assert.Contains(t, de.Message, "CashMeter")
	}
	assert.NoError(t, Validate(MeterReading{PumpID: "P1", ReadingType: ReadingEnd}))
}

func TestConnectionTypeEndpoints(t *testing.T) {
	a, b, ok := ConnectionTankToPump.Endpoints()
	assert.True(t, ok)
	assert.Equal(t, AssetTypeStorageTank, a)
	assert.Equal(t, AssetTypeFuelPump, b)

	_, _, ok = ConnectionType("PUMP_TO_TANK").Endpoints()
	assert.False(t, ok)
	assert.Len(t, ConnectionTypes(), 3)
}
