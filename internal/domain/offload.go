package domain

import "time"

// Offload is a fuel delivery pumped into one or more station tanks.
type Offload struct {
	ID           string        `json:"id" gorm:"primaryKey"`
	PurchaseID   string        `json:"purchase_id" gorm:"index" validate:"required"`
	StationID    string        `json:"station_id" gorm:"index" validate:"required"`
	ShiftID      string        `json:"shift_id,omitempty" gorm:"index"`
	Tanks        []TankOffload `json:"tanks" gorm:"serializer:json" validate:"required,min=1,dive"`
	PumpSales    []PumpSale    `json:"pump_sales" gorm:"serializer:json" validate:"dive"`
	RecordedByID string        `json:"recorded_by_id,omitempty"`
	RecordedAt   time.Time     `json:"recorded_at"`
}

type TankOffload struct {
	TankID         string     `json:"tank_id" validate:"required"`
	DipBefore      DipReading `json:"dip_before"`
	DipAfter       DipReading `json:"dip_after"`
	ExpectedVolume float64    `json:"expected_volume" validate:"gte=0"`
	ActualVolume   float64    `json:"actual_volume"`
}

// PumpSale is fuel sold from a pump while the delivery was in progress.
type PumpSale struct {
	PumpID          string  `json:"pump_id" validate:"required"`
	SalesValue      float64 `json:"sales_value" validate:"gte=0"`
	UnitPrice       float64 `json:"unit_price" validate:"gte=0"`
	LitersDispensed float64 `json:"liters_dispensed"`
}

type OffloadSummary struct {
	OffloadID      string        `json:"offload_id,omitempty"`
	Tanks          []TankOffload `json:"tanks"`
	PumpSales      []PumpSale    `json:"pump_sales"`
	ExpectedVolume float64       `json:"expected_volume"`
	ActualVolume   float64       `json:"actual_volume"`
	PumpLiters     float64       `json:"pump_liters"`
	AdjustedVolume float64       `json:"adjusted_volume"` // actual + liters sold during the delivery
	Variance       float64       `json:"variance"`        // adjusted - expected
}
