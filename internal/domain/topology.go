package domain

import "time"

type TopologySummary struct {
	StationID        string `json:"station_id,omitempty"`
	TotalConnections int    `json:"total_connections"`
	UnattachedAssets int    `json:"unattached_assets"`
	ConnectionHealth int    `json:"connection_health"`
}

// Attachment tells how an asset participates in the station topology.
type Attachment string

const (
	AttachmentAttached      Attachment = "ATTACHED"
	AttachmentUnattached    Attachment = "UNATTACHED"
	AttachmentNotApplicable Attachment = "NOT_APPLICABLE" // islands and warehouses
)

// AssetNode is the uniform shape returned by topology queries: the asset
// itself, every connection touching it and its attachment state.
type AssetNode struct {
	Asset       Asset        `json:"asset"`
	Connections []Connection `json:"connections"`
	Attachment  Attachment   `json:"attachment"`
}

// StationSnapshot is raw station data as loaded by the caller.
type StationSnapshot struct {
	StationID   string       `json:"station_id" validate:"required"`
	Assets      []Asset      `json:"assets"`
	Connections []Connection `json:"connections"`
}

// ProcessedTopology is the output of a side-effect free topology pass.
type ProcessedTopology struct {
	Connections []Connection    `json:"connections"`
	Unattached  []Asset         `json:"unattached"`
	Summary     TopologySummary `json:"summary"`
}

type AuditAction string

const (
	AuditConnectionCreated AuditAction = "CONNECTION_CREATED"
	AuditConnectionDeleted AuditAction = "CONNECTION_DELETED"
	AuditStationLoaded     AuditAction = "STATION_LOADED"
)

// AuditEntry records one topology mutation. Entries are only ever appended.
type AuditEntry struct {
	ID           string          `json:"id" gorm:"primaryKey"`
	StationID    string          `json:"station_id" gorm:"index"`
	ActorID      string          `json:"actor_id"`
	Action       AuditAction     `json:"action"`
	ConnectionID string          `json:"connection_id,omitempty"`
	Connection   *Connection     `json:"connection,omitempty" gorm:"serializer:json"`
	Before       TopologySummary `json:"before" gorm:"serializer:json"`
	After        TopologySummary `json:"after" gorm:"serializer:json"`
	At           time.Time       `json:"at" gorm:"index"`
}
