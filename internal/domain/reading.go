package domain

import "time"

type ReadingType string

const (
	ReadingStart ReadingType = "START"
	ReadingEnd   ReadingType = "END"
)

func (t ReadingType) Valid() bool { return t == ReadingStart || t == ReadingEnd }

type ReadingKind string

const (
	ReadingKindPump ReadingKind = "pump"
	ReadingKindTank ReadingKind = "tank"
)

// MeterReading is a pump totalizer snapshot.
type MeterReading struct {
	ID              string      `json:"id" gorm:"primaryKey"`
	ShiftID         string      `json:"shift_id" gorm:"index"`
	PumpID          string      `json:"pump_id" validate:"required"`
	ReadingType     ReadingType `json:"reading_type" validate:"required,oneof=START END"`
	ElectricMeter   float64     `json:"electric_meter" validate:"gte=0"`
	ManualMeter     float64     `json:"manual_meter" validate:"gte=0"`
	CashMeter       float64     `json:"cash_meter" validate:"gte=0"`
	LitersDispensed float64     `json:"liters_dispensed" validate:"gte=0"`
	SalesValue      float64     `json:"sales_value" validate:"gte=0"`
	UnitPrice       float64     `json:"unit_price" validate:"gte=0"`
	RecordedByID    string      `json:"recorded_by_id,omitempty"`
	RecordedAt      time.Time   `json:"recorded_at"`
}

// DipReading is a manual tank measurement already converted to volume.
type DipReading struct {
	ID           string      `json:"id" gorm:"primaryKey"`
	ShiftID      string      `json:"shift_id,omitempty" gorm:"index"`
	TankID       string      `json:"tank_id" validate:"required"`
	ReadingType  ReadingType `json:"reading_type" validate:"omitempty,oneof=START END"`
	DipValue     float64     `json:"dip_value" validate:"gte=0"` // meters
	Volume       float64     `json:"volume" validate:"gte=0"`    // liters
	Temperature  float64     `json:"temperature"`
	WaterLevel   float64     `json:"water_level" validate:"gte=0"`
	Density      float64     `json:"density" validate:"gte=0"`
	Notes        string      `json:"notes,omitempty"`
	RecordedByID string      `json:"recorded_by_id,omitempty"`
	RecordedAt   time.Time   `json:"recorded_at"`
}

// Reading is either a pump meter reading or a tank dip reading. Exactly one
// of Meter and Dip is set, matching Kind.
type Reading struct {
	Kind  ReadingKind   `json:"kind"`
	Meter *MeterReading `json:"meter,omitempty"`
	Dip   *DipReading   `json:"dip,omitempty"`
}

func PumpReading(m MeterReading) Reading { return Reading{Kind: ReadingKindPump, Meter: &m} }
func TankReading(d DipReading) Reading   { return Reading{Kind: ReadingKindTank, Dip: &d} }

func (r Reading) AssetID() string {
	switch {
	case r.Kind == ReadingKindPump && r.Meter != nil:
		return r.Meter.PumpID
	case r.Kind == ReadingKindTank && r.Dip != nil:
		return r.Dip.TankID
	}
	return ""
}

func (r Reading) Type() ReadingType {
	switch {
	case r.Kind == ReadingKindPump && r.Meter != nil:
		return r.Meter.ReadingType
	case r.Kind == ReadingKindTank && r.Dip != nil:
		return r.Dip.ReadingType
	}
	return ""
}

// ShiftReadings is every reading captured for one shift.
type ShiftReadings struct {
	ShiftID string         `json:"shift_id"`
	Pumps   []MeterReading `json:"pumps"`
	Tanks   []DipReading   `json:"tanks"`
}
