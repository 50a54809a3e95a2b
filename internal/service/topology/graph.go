package topology

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/seu-repo/sigec-posto/internal/domain"
)

// Graph holds the assets and connections of one station and enforces the
// wiring rules. It is not safe for concurrent use; Manager serializes
// access per station.
type Graph struct {
	stationID string

	assets     map[string]domain.Asset
	assetOrder []string

	connections map[string]domain.Connection
	connOrder   []string
	byAsset     map[string][]string // asset id -> connection ids

	newID func() string
	now   func() time.Time
}

// NewGraph builds an empty-wired graph. Assets belonging to another station
// (or to none) are kept so that rule checks can tell "foreign" from "unknown".
func NewGraph(stationID string, assets []domain.Asset) *Graph {
	g := &Graph{
		stationID:   stationID,
		assets:      make(map[string]domain.Asset, len(assets)),
		connections: make(map[string]domain.Connection),
		byAsset:     make(map[string][]string),
		newID:       uuid.NewString,
		now:         time.Now,
	}
	for _, a := range assets {
		if _, dup := g.assets[a.ID]; !dup {
			g.assetOrder = append(g.assetOrder, a.ID)
		}
		g.assets[a.ID] = a
	}
	return g
}

func (g *Graph) StationID() string { return g.stationID }

func (g *Graph) Asset(id string) (domain.Asset, bool) {
	a, ok := g.assets[id]
	return a, ok
}

// Assets returns the assets attached to this station in load order.
func (g *Graph) Assets() []domain.Asset {
	out := make([]domain.Asset, 0, len(g.assetOrder))
	for _, id := range g.assetOrder {
		if a := g.assets[id]; a.StationID == g.stationID {
			out = append(out, a)
		}
	}
	return out
}

func (g *Graph) Connections() []domain.Connection {
	out := make([]domain.Connection, 0, len(g.connOrder))
	for _, id := range g.connOrder {
		out = append(out, g.connections[id])
	}
	return out
}

// Check runs every wiring rule against a proposed connection without
// touching the graph. Both AddConnection and dry-run verification go
// through here.
func (g *Graph) Check(t domain.ConnectionType, assetAID, assetBID, stationID string) ([]*domain.Error, []domain.ValidationIssue) {
	var errs []*domain.Error
	var warnings []domain.ValidationIssue

	wantA, wantB, ok := t.Endpoints()
	if !ok {
		return append(errs, domain.InvalidConnection(domain.ReasonUnknownType, "unknown connection type %q", t)), nil
	}

	if assetAID == assetBID {
		errs = append(errs, domain.InvalidConnection(domain.ReasonSelfConnection, "asset %s cannot connect to itself", assetAID))
	}

	a, okA := g.assets[assetAID]
	b, okB := g.assets[assetBID]
	if !okA {
		errs = append(errs, domain.InvalidConnection(domain.ReasonAssetNotFound, "asset %s not found", assetAID))
	}
	if !okB && assetBID != assetAID {
		errs = append(errs, domain.InvalidConnection(domain.ReasonAssetNotFound, "asset %s not found", assetBID))
	}
	if !okA || !okB {
		return errs, warnings
	}

	if stationID != g.stationID {
		errs = append(errs, domain.InvalidConnection(domain.ReasonForeignStation, "station %s is not loaded here (graph station %s)", stationID, g.stationID))
	}
	for _, asset := range []domain.Asset{a, b} {
		if asset.StationID != stationID {
			errs = append(errs, domain.InvalidConnection(domain.ReasonForeignStation, "asset %s does not belong to station %s", asset.ID, stationID))
		}
	}
	if assetAID == assetBID {
		return errs, warnings
	}

	if a.Type != wantA || b.Type != wantB {
		errs = append(errs, domain.InvalidConnection(domain.ReasonTypeMismatch,
			"%s requires %s -> %s, got %s -> %s", t, wantA, wantB, a.Type, b.Type))
		return errs, warnings
	}

	switch t {
	case domain.ConnectionTankToPump:
		if g.count(b.ID, domain.ConnectionTankToPump) > 0 {
			errs = append(errs, domain.InvalidConnection(domain.ReasonPumpHasTank, "pump %s already draws from a tank", b.Label()))
		}
	case domain.ConnectionPumpToIsland:
		if g.count(a.ID, domain.ConnectionPumpToIsland) > 0 {
			errs = append(errs, domain.InvalidConnection(domain.ReasonPumpHasIsland, "pump %s is already on an island", a.Label()))
		}
	case domain.ConnectionTankToIsland:
		if g.count(a.ID, domain.ConnectionTankToIsland) > 0 {
			errs = append(errs, domain.InvalidConnection(domain.ReasonTankHasIsland, "tank %s is already on an island", a.Label()))
		}
	}

	for _, asset := range []domain.Asset{a, b} {
		switch asset.Status {
		case domain.AssetStatusInactive:
			warnings = append(warnings, domain.ValidationIssue{Reason: domain.WarnAssetInactive, Message: "asset " + asset.Label() + " is inactive"})
		case domain.AssetStatusMaintenance:
			warnings = append(warnings, domain.ValidationIssue{Reason: domain.WarnAssetMaintenance, Message: "asset " + asset.Label() + " is under maintenance"})
		}
		if asset.IsTank() && asset.ProductID == "" {
			warnings = append(warnings, domain.ValidationIssue{Reason: domain.WarnTankWithoutProduct, Message: "tank " + asset.Label() + " has no product assigned"})
		}
	}

	return errs, warnings
}

// AddConnection validates and stores a new connection. It fails with the
// first violated rule and leaves the graph unchanged.
func (g *Graph) AddConnection(t domain.ConnectionType, assetAID, assetBID, stationID string) (domain.Connection, error) {
	if errs, _ := g.Check(t, assetAID, assetBID, stationID); len(errs) > 0 {
		return domain.Connection{}, errs[0]
	}
	conn := domain.Connection{
		ID:        g.newID(),
		Type:      t,
		AssetAID:  assetAID,
		AssetBID:  assetBID,
		StationID: stationID,
		CreatedAt: g.now(),
	}
	g.insert(conn)
	return conn, nil
}

// restore re-adds a previously persisted connection, keeping its id.
func (g *Graph) restore(conn domain.Connection) error {
	if _, dup := g.connections[conn.ID]; dup || conn.ID == "" {
		return domain.InvalidConnection("duplicate_id", "connection id %q is empty or already loaded", conn.ID)
	}
	if errs, _ := g.Check(conn.Type, conn.AssetAID, conn.AssetBID, conn.StationID); len(errs) > 0 {
		return errs[0]
	}
	g.insert(conn)
	return nil
}

func (g *Graph) insert(conn domain.Connection) {
	g.connections[conn.ID] = conn
	g.connOrder = append(g.connOrder, conn.ID)
	g.byAsset[conn.AssetAID] = append(g.byAsset[conn.AssetAID], conn.ID)
	g.byAsset[conn.AssetBID] = append(g.byAsset[conn.AssetBID], conn.ID)
}

func (g *Graph) RemoveConnection(id string) (domain.Connection, error) {
	conn, ok := g.connections[id]
	if !ok {
		return domain.Connection{}, domain.NotFound("connection %s not found", id)
	}
	delete(g.connections, id)
	g.connOrder = without(g.connOrder, id)
	g.byAsset[conn.AssetAID] = without(g.byAsset[conn.AssetAID], id)
	g.byAsset[conn.AssetBID] = without(g.byAsset[conn.AssetBID], id)
	return conn, nil
}

// ConnectionsOf returns every connection touching the asset, on either side.
func (g *Graph) ConnectionsOf(assetID string) []domain.Connection {
	ids := g.byAsset[assetID]
	out := make([]domain.Connection, 0, len(ids))
	for _, id := range ids {
		out = append(out, g.connections[id])
	}
	return out
}

func (g *Graph) count(assetID string, t domain.ConnectionType) int {
	n := 0
	for _, id := range g.byAsset[assetID] {
		if g.connections[id].Type == t {
			n++
		}
	}
	return n
}

// Attachment classifies an asset. A pump is unattached with neither a tank
// nor an island, a tank with no island. Islands and warehouses never are.
func (g *Graph) Attachment(a domain.Asset) domain.Attachment {
	switch a.Type {
	case domain.AssetTypeFuelPump:
		if g.count(a.ID, domain.ConnectionTankToPump)+g.count(a.ID, domain.ConnectionPumpToIsland) == 0 {
			return domain.AttachmentUnattached
		}
		return domain.AttachmentAttached
	case domain.AssetTypeStorageTank:
		if g.count(a.ID, domain.ConnectionTankToIsland) == 0 {
			return domain.AttachmentUnattached
		}
		return domain.AttachmentAttached
	default:
		return domain.AttachmentNotApplicable
	}
}

func (g *Graph) UnattachedAssets() []domain.Asset {
	var out []domain.Asset
	for _, a := range g.Assets() {
		if g.Attachment(a) == domain.AttachmentUnattached {
			out = append(out, a)
		}
	}
	return out
}

func (g *Graph) Nodes() []domain.AssetNode {
	assets := g.Assets()
	nodes := make([]domain.AssetNode, 0, len(assets))
	for _, a := range assets {
		nodes = append(nodes, domain.AssetNode{
			Asset:       a,
			Connections: g.ConnectionsOf(a.ID),
			Attachment:  g.Attachment(a),
		})
	}
	return nodes
}

func (g *Graph) HealthScore() int {
	return healthScore(len(g.connections), len(g.UnattachedAssets()))
}

func (g *Graph) Summary() domain.TopologySummary {
	unattached := len(g.UnattachedAssets())
	return domain.TopologySummary{
		StationID:        g.stationID,
		TotalConnections: len(g.connections),
		UnattachedAssets: unattached,
		ConnectionHealth: healthScore(len(g.connections), unattached),
	}
}

// healthScore is round(100*c/(c+u)), 100 for an empty station. A station
// with any unattached asset never reports a perfect score.
func healthScore(connections, unattached int) int {
	if connections+unattached == 0 {
		return 100
	}
	score := int(math.Round(100 * float64(connections) / float64(connections+unattached)))
	if unattached > 0 && score > 99 {
		return 99
	}
	return score
}

func without(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
