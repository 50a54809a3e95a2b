package domain

import "time"

// ConnectionType names an ordered (A, B) asset pairing
type ConnectionType string

const (
	ConnectionTankToPump   ConnectionType = "TANK_TO_PUMP"
	ConnectionTankToIsland ConnectionType = "TANK_TO_ISLAND"
	ConnectionPumpToIsland ConnectionType = "PUMP_TO_ISLAND"
)

var connectionEndpoints = map[ConnectionType][2]AssetType{
	ConnectionTankToPump:   {AssetTypeStorageTank, AssetTypeFuelPump},
	ConnectionTankToIsland: {AssetTypeStorageTank, AssetTypeIsland},
	ConnectionPumpToIsland: {AssetTypeFuelPump, AssetTypeIsland},
}

// ConnectionTypes lists every supported connection type in a stable order.
func ConnectionTypes() []ConnectionType {
	return []ConnectionType{ConnectionTankToPump, ConnectionTankToIsland, ConnectionPumpToIsland}
}

// Endpoints returns the asset types required on side A and side B.
func (t ConnectionType) Endpoints() (a AssetType, b AssetType, ok bool) {
	pair, ok := connectionEndpoints[t]
	if !ok {
		return "", "", false
	}
	return pair[0], pair[1], true
}

func (t ConnectionType) Valid() bool {
	_, ok := connectionEndpoints[t]
	return ok
}

type Connection struct {
	ID        string         `json:"id" gorm:"primaryKey"`
	Type      ConnectionType `json:"type" gorm:"index"`
	AssetAID  string         `json:"asset_a_id" gorm:"index"`
	AssetBID  string         `json:"asset_b_id" gorm:"index"`
	StationID string         `json:"station_id" gorm:"index"`
	CreatedBy string         `json:"created_by,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Touches reports whether the asset sits on either side of the connection.
func (c Connection) Touches(assetID string) bool {
	return c.AssetAID == assetID || c.AssetBID == assetID
}

// Other returns the id on the opposite side of assetID.
func (c Connection) Other(assetID string) string {
	if c.AssetAID == assetID {
		return c.AssetBID
	}
	return c.AssetAID
}

// ConnectionRequest is the input of a single create or verify call.
type ConnectionRequest struct {
	StationID string         `json:"station_id" validate:"required"`
	Type      ConnectionType `json:"type" validate:"required"`
	AssetAID  string         `json:"asset_a_id" validate:"required"`
	AssetBID  string         `json:"asset_b_id" validate:"required"`
	ActorID   string         `json:"actor_id,omitempty"`
}

type BulkConnectRequest struct {
	StationID      string         `json:"station_id" validate:"required"`
	Type           ConnectionType `json:"type" validate:"required"`
	TargetAssetID  string         `json:"target_asset_id" validate:"required"`
	SourceAssetIDs []string       `json:"source_asset_ids" validate:"required,min=1"`
	ActorID        string         `json:"actor_id,omitempty"`
}

// BulkOutcome is the per-source result of a bulk connect.
type BulkOutcome struct {
	AssetID    string      `json:"asset_id"`
	Success    bool        `json:"success"`
	Connection *Connection `json:"connection,omitempty"`
	Error      *Error      `json:"error,omitempty"`
}

type BulkResult struct {
	Outcomes   []BulkOutcome   `json:"outcomes"`
	Successful int             `json:"successful"`
	Failed     int             `json:"failed"`
	Summary    TopologySummary `json:"summary"`
}

// ValidationIssue is a single rule hit reported by a dry run.
type ValidationIssue struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

type Verification struct {
	Valid    bool              `json:"valid"`
	Errors   []ValidationIssue `json:"errors"`
	Warnings []ValidationIssue `json:"warnings"`
}

type ConnectionResult struct {
	Connection Connection        `json:"connection"`
	Warnings   []ValidationIssue `json:"warnings,omitempty"`
	Unattached []Asset           `json:"unattached"`
	Summary    TopologySummary   `json:"summary"`
}

type DeleteResult struct {
	Deleted  Connection        `json:"deleted"`
	Warnings []ValidationIssue `json:"warnings,omitempty"`
	Summary  TopologySummary   `json:"summary"`
}
