package domain

import "time"

// AssetType identifies the kind of physical equipment
type AssetType string

const (
	AssetTypeStorageTank AssetType = "STORAGE_TANK"
	AssetTypeFuelPump    AssetType = "FUEL_PUMP"
	AssetTypeIsland      AssetType = "ISLAND"
	AssetTypeWarehouse   AssetType = "WAREHOUSE"
)

type AssetStatus string

const (
	AssetStatusRegistered  AssetStatus = "REGISTERED"
	AssetStatusAssigned    AssetStatus = "ASSIGNED"
	AssetStatusActive      AssetStatus = "ACTIVE"
	AssetStatusInactive    AssetStatus = "INACTIVE"
	AssetStatusMaintenance AssetStatus = "MAINTENANCE"
)

// Asset is a piece of station equipment. An empty StationID means the asset
// is registered to the company but not attached to any station.
type Asset struct {
	ID            string      `json:"id" gorm:"primaryKey"`
	Type          AssetType   `json:"type" gorm:"index"`
	StationID     string      `json:"station_id,omitempty" gorm:"index"`
	CompanyID     string      `json:"company_id" gorm:"index"`
	Status        AssetStatus `json:"status"`
	StationLabel  string      `json:"station_label,omitempty"`
	Capacity      float64     `json:"capacity,omitempty"`       // liters, tanks only
	CurrentVolume float64     `json:"current_volume,omitempty"` // liters, tanks only
	ProductID     string      `json:"product_id,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

func (a Asset) IsTank() bool   { return a.Type == AssetTypeStorageTank }
func (a Asset) IsPump() bool   { return a.Type == AssetTypeFuelPump }
func (a Asset) IsIsland() bool { return a.Type == AssetTypeIsland }

// Label returns the station-local name when set, the id otherwise.
func (a Asset) Label() string {
	if a.StationLabel != "" {
		return a.StationLabel
	}
	return a.ID
}
