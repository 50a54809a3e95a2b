package topology

import "github.com/seu-repo/sigec-posto/internal/domain"

// ProcessTopology derives the connection list, unattached assets and summary
// from raw station data. It has no side effects. Connections referencing an
// asset missing from the snapshot are dropped; stored connections are not
// re-validated against the wiring rules.
func ProcessTopology(raw domain.StationSnapshot) domain.ProcessedTopology {
	g := NewGraph(raw.StationID, raw.Assets)
	for _, conn := range raw.Connections {
		if _, ok := g.Asset(conn.AssetAID); !ok {
			continue
		}
		if _, ok := g.Asset(conn.AssetBID); !ok {
			continue
		}
		if _, dup := g.connections[conn.ID]; dup {
			continue
		}
		g.insert(conn)
	}

	unattached := g.UnattachedAssets()
	if unattached == nil {
		unattached = []domain.Asset{}
	}
	return domain.ProcessedTopology{
		Connections: g.Connections(),
		Unattached:  unattached,
		Summary:     g.Summary(),
	}
}
