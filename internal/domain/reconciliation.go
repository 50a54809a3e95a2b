package domain

import "time"

type PumpDelta struct {
	PumpID      string  `json:"pump_id"`
	SalesDelta  float64 `json:"sales_delta"`
	LitersDelta float64 `json:"liters_delta"`
	CashDelta   float64 `json:"cash_delta"`
}

type TankUsage struct {
	TankID string  `json:"tank_id"`
	Usage  float64 `json:"usage"` // liters; negative after an unaccounted delivery
}

type SalesTotals struct {
	Total      float64 `json:"total"`
	Cash       float64 `json:"cash"`
	Electronic float64 `json:"electronic"`
}

type VolumeTotals struct {
	Dispensed float64 `json:"dispensed"`
	TankUsage float64 `json:"tank_usage"`
	Variance  float64 `json:"variance"`
}

type Efficiency struct {
	SalesPerLiter  float64 `json:"sales_per_liter"`
	CashPercentage float64 `json:"cash_percentage"`
}

type ShiftTotals struct {
	Sales      SalesTotals  `json:"sales"`
	Volume     VolumeTotals `json:"volume"`
	Efficiency Efficiency   `json:"efficiency"`
}

// ReconciliationReport is produced once, when a shift closes.
type ReconciliationReport struct {
	ShiftID     string      `json:"shift_id"`
	StationID   string      `json:"station_id"`
	ShiftNumber int         `json:"shift_number"`
	GeneratedAt time.Time   `json:"generated_at"`
	Totals      ShiftTotals `json:"totals"`
	Pumps       []PumpDelta `json:"pumps"`
	Tanks       []TankUsage `json:"tanks"`
	Anomalies   []string    `json:"anomalies,omitempty"`
}
