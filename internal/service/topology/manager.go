package topology

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/seu-repo/sigec-posto/internal/adapter/queue"
	"github.com/seu-repo/sigec-posto/internal/domain"
	"github.com/seu-repo/sigec-posto/internal/observability/telemetry"
	"github.com/seu-repo/sigec-posto/internal/ports"
)

const summaryKeyPrefix = "topology:summary:"

var tracer = telemetry.Tracer("topology")

type station struct {
	mu    sync.RWMutex
	graph *Graph
}

// Manager owns one graph per station. Mutations on a station hold its write
// lock for the whole operation, bulk batches included; queries take the
// read lock.
type Manager struct {
	mu       sync.RWMutex
	stations map[string]*station

	audit      ports.AuditRepository
	store      ports.TopologyRepository
	cache      ports.Cache
	mq         queue.MessageQueue
	openShifts ports.OpenShiftLookup
	summaryTTL time.Duration
	now        func() time.Time
	log        *zap.Logger
}

type Option func(*Manager)

func WithSummaryTTL(ttl time.Duration) Option {
	return func(m *Manager) { m.summaryTTL = ttl }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(audit ports.AuditRepository, cache ports.Cache, mq queue.MessageQueue, log *zap.Logger, opts ...Option) *Manager {
	m := &Manager{
		stations:   make(map[string]*station),
		audit:      audit,
		cache:      cache,
		mq:         mq,
		summaryTTL: 5 * time.Minute,
		now:        time.Now,
		log:        log,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// UseOpenShiftLookup lets deletions warn about pumps referenced by an open
// shift. It is set after construction because the shift lifecycle itself
// depends on the manager for asset lookups.
func (m *Manager) UseOpenShiftLookup(l ports.OpenShiftLookup) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openShifts = l
}

// useStore makes every accepted connection change go to storage while the
// station lock is held, before any event is published. A storage error
// undoes the change in memory.
func (m *Manager) useStore(repo ports.TopologyRepository) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store = repo
}

func (m *Manager) connectionStore() ports.TopologyRepository {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.store
}

func (m *Manager) station(stationID string) (*station, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.stations[stationID]
	if !ok {
		return nil, domain.NotFound("station %s not loaded", stationID)
	}
	return st, nil
}

// HasStation reports whether the station graph is loaded.
func (m *Manager) HasStation(stationID string) bool {
	_, err := m.station(stationID)
	return err == nil
}

// LoadStation replaces the station graph with the given snapshot. Every
// stored connection is re-validated; one bad connection rejects the load and
// leaves any previously loaded graph in place.
func (m *Manager) LoadStation(ctx context.Context, snapshot domain.StationSnapshot) (domain.TopologySummary, error) {
	ctx, span := tracer.Start(ctx, "topology.LoadStation")
	defer span.End()
	span.SetAttributes(attribute.String("station_id", snapshot.StationID))

	if err := domain.Validate(snapshot); err != nil {
		return domain.TopologySummary{}, err
	}

	g := NewGraph(snapshot.StationID, snapshot.Assets)
	g.now = m.now
	for _, conn := range snapshot.Connections {
		if err := g.restore(conn); err != nil {
			return domain.TopologySummary{}, fmt.Errorf("load station %s: connection %s: %w", snapshot.StationID, conn.ID, err)
		}
	}

	m.mu.Lock()
	st, ok := m.stations[snapshot.StationID]
	if !ok {
		st = &station{}
		m.stations[snapshot.StationID] = st
	}
	m.mu.Unlock()

	st.mu.Lock()
	var before domain.TopologySummary
	if st.graph != nil {
		before = st.graph.Summary()
	}
	st.graph = g
	after := g.Summary()
	st.mu.Unlock()

	if err := m.appendAudit(ctx, domain.AuditEntry{
		StationID: snapshot.StationID,
		Action:    domain.AuditStationLoaded,
		Before:    before,
		After:     after,
	}); err != nil {
		m.log.Warn("Failed to audit station load", zap.String("station_id", snapshot.StationID), zap.Error(err))
	}
	m.afterMutation(ctx, snapshot.StationID, after)

	queue.Emit(m.mq, m.log, queue.Event{Subject: queue.SubjectStationLoaded, StationID: snapshot.StationID, Payload: after})
	m.log.Info("Station topology loaded",
		zap.String("station_id", snapshot.StationID),
		zap.Int("assets", len(snapshot.Assets)),
		zap.Int("connections", after.TotalConnections),
		zap.Int("health", after.ConnectionHealth),
	)
	return after, nil
}

func (m *Manager) CreateConnection(ctx context.Context, req domain.ConnectionRequest) (*domain.ConnectionResult, error) {
	ctx, span := tracer.Start(ctx, "topology.CreateConnection")
	defer span.End()
	span.SetAttributes(
		attribute.String("station_id", req.StationID),
		attribute.String("connection_type", string(req.Type)),
	)

	if err := domain.Validate(req); err != nil {
		return nil, err
	}
	st, err := m.station(req.StationID)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	before := st.graph.Summary()
	conn, warnings, err := m.connectLocked(ctx, st.graph, req.Type, req.AssetAID, req.AssetBID, req.StationID, req.ActorID, before)
	after := st.graph.Summary()
	unattached := st.graph.UnattachedAssets()
	st.mu.Unlock()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	m.afterMutation(ctx, req.StationID, after)
	queue.Emit(m.mq, m.log, queue.Event{
		Subject:   queue.SubjectConnectionCreated,
		StationID: req.StationID,
		ActorID:   req.ActorID,
		Payload:   conn,
	})

	return &domain.ConnectionResult{Connection: conn, Warnings: warnings, Unattached: unattached, Summary: after}, nil
}

// connectLocked validates, adds, stores and audits one connection. The
// caller holds the station write lock. A failed store write or audit append
// removes the connection again.
func (m *Manager) connectLocked(ctx context.Context, g *Graph, t domain.ConnectionType, a, b, stationID, actorID string, before domain.TopologySummary) (domain.Connection, []domain.ValidationIssue, error) {
	errs, warnings := g.Check(t, a, b, stationID)
	if len(errs) > 0 {
		telemetry.ConnectionsTotal.WithLabelValues(string(t), "rejected").Inc()
		telemetry.ConnectionRejections.WithLabelValues(errs[0].Reason).Inc()
		m.log.Info("Connection rejected",
			zap.String("station_id", stationID),
			zap.String("type", string(t)),
			zap.String("asset_a", a),
			zap.String("asset_b", b),
			zap.String("reason", errs[0].Reason),
		)
		return domain.Connection{}, nil, errs[0]
	}

	conn, err := g.AddConnection(t, a, b, stationID)
	if err != nil {
		return domain.Connection{}, nil, err
	}
	conn.CreatedBy = actorID
	store := m.connectionStore()
	if store != nil {
		if err := store.SaveConnection(ctx, &conn); err != nil {
			if _, rmErr := g.RemoveConnection(conn.ID); rmErr != nil {
				m.log.Error("Failed to roll back unsaved connection", zap.String("connection_id", conn.ID), zap.Error(rmErr))
			}
			return domain.Connection{}, nil, fmt.Errorf("save connection %s: %w", conn.ID, err)
		}
	}
	g.connections[conn.ID] = conn

	entry := domain.AuditEntry{
		StationID:    stationID,
		ActorID:      actorID,
		Action:       domain.AuditConnectionCreated,
		ConnectionID: conn.ID,
		Connection:   &conn,
		Before:       before,
		After:        g.Summary(),
	}
	if err := m.appendAudit(ctx, entry); err != nil {
		if _, rmErr := g.RemoveConnection(conn.ID); rmErr != nil {
			m.log.Error("Failed to roll back unaudited connection", zap.String("connection_id", conn.ID), zap.Error(rmErr))
		}
		if store != nil {
			if delErr := store.DeleteConnection(ctx, conn.ID); delErr != nil {
				m.log.Error("Failed to remove unaudited connection from storage", zap.String("connection_id", conn.ID), zap.Error(delErr))
			}
		}
		return domain.Connection{}, nil, fmt.Errorf("audit connection %s: %w", conn.ID, err)
	}

	telemetry.ConnectionsTotal.WithLabelValues(string(t), "created").Inc()
	for _, w := range warnings {
		m.log.Warn("Connection created with warning",
			zap.String("connection_id", conn.ID),
			zap.String("reason", w.Reason),
			zap.String("message", w.Message),
		)
	}
	return conn, warnings, nil
}

func (m *Manager) DeleteConnection(ctx context.Context, stationID, connectionID, actorID string) (*domain.DeleteResult, error) {
	ctx, span := tracer.Start(ctx, "topology.DeleteConnection")
	defer span.End()

	st, err := m.station(stationID)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	before := st.graph.Summary()
	conn, err := st.graph.RemoveConnection(connectionID)
	if err != nil {
		st.mu.Unlock()
		return nil, err
	}
	store := m.connectionStore()
	if store != nil {
		if err := store.DeleteConnection(ctx, conn.ID); err != nil {
			st.graph.insert(conn)
			st.mu.Unlock()
			return nil, fmt.Errorf("delete connection %s: %w", conn.ID, err)
		}
	}
	after := st.graph.Summary()
	entry := domain.AuditEntry{
		StationID:    stationID,
		ActorID:      actorID,
		Action:       domain.AuditConnectionDeleted,
		ConnectionID: conn.ID,
		Connection:   &conn,
		Before:       before,
		After:        after,
	}
	if err := m.appendAudit(ctx, entry); err != nil {
		st.graph.insert(conn)
		if store != nil {
			if saveErr := store.SaveConnection(ctx, &conn); saveErr != nil {
				m.log.Error("Failed to restore unaudited deletion in storage", zap.String("connection_id", conn.ID), zap.Error(saveErr))
			}
		}
		st.mu.Unlock()
		return nil, fmt.Errorf("audit connection %s: %w", conn.ID, err)
	}
	st.mu.Unlock()

	warnings := m.openShiftWarnings(ctx, stationID, conn)

	m.afterMutation(ctx, stationID, after)
	queue.Emit(m.mq, m.log, queue.Event{
		Subject:   queue.SubjectConnectionDeleted,
		StationID: stationID,
		ActorID:   actorID,
		Payload:   conn,
	})

	return &domain.DeleteResult{Deleted: conn, Warnings: warnings, Summary: after}, nil
}

func (m *Manager) openShiftWarnings(ctx context.Context, stationID string, conn domain.Connection) []domain.ValidationIssue {
	m.mu.RLock()
	lookup := m.openShifts
	m.mu.RUnlock()
	if lookup == nil {
		return nil
	}

	ids, err := lookup.OpenShiftAssets(ctx, stationID)
	if err != nil {
		m.log.Warn("Open shift lookup failed", zap.String("station_id", stationID), zap.Error(err))
		return nil
	}
	var warnings []domain.ValidationIssue
	for _, id := range ids {
		if conn.Touches(id) {
			warnings = append(warnings, domain.ValidationIssue{
				Reason:  domain.WarnPumpInOpenShift,
				Message: fmt.Sprintf("asset %s is in use by the open shift", id),
			})
		}
	}
	return warnings
}

// BulkConnect wires every source asset to one target. Each pairing is
// validated on its own, so one failure does not undo the others, but the
// whole batch runs under a single station lock.
func (m *Manager) BulkConnect(ctx context.Context, req domain.BulkConnectRequest) (*domain.BulkResult, error) {
	ctx, span := tracer.Start(ctx, "topology.BulkConnect")
	defer span.End()
	span.SetAttributes(
		attribute.String("station_id", req.StationID),
		attribute.Int("sources", len(req.SourceAssetIDs)),
	)

	if err := domain.Validate(req); err != nil {
		return nil, err
	}
	st, err := m.station(req.StationID)
	if err != nil {
		return nil, err
	}

	result := &domain.BulkResult{Outcomes: make([]domain.BulkOutcome, 0, len(req.SourceAssetIDs))}
	var created []domain.Connection

	st.mu.Lock()
	target, targetKnown := st.graph.Asset(req.TargetAssetID)
	for _, sourceID := range req.SourceAssetIDs {
		a, b := sourceID, req.TargetAssetID
		if wantA, _, ok := req.Type.Endpoints(); ok && targetKnown && target.Type == wantA {
			a, b = req.TargetAssetID, sourceID
		}

		before := st.graph.Summary()
		conn, _, err := m.connectLocked(ctx, st.graph, req.Type, a, b, req.StationID, req.ActorID, before)
		if err != nil {
			de, ok := domain.AsError(err)
			if !ok {
				m.log.Error("Bulk connection not stored", zap.String("asset_id", sourceID), zap.Error(err))
				de = &domain.Error{Kind: domain.KindInvalidConnection, Reason: "persist_failed", Message: err.Error()}
			}
			result.Outcomes = append(result.Outcomes, domain.BulkOutcome{AssetID: sourceID, Error: de})
			result.Failed++
			continue
		}
		c := conn
		result.Outcomes = append(result.Outcomes, domain.BulkOutcome{AssetID: sourceID, Success: true, Connection: &c})
		result.Successful++
		created = append(created, conn)
	}
	result.Summary = st.graph.Summary()
	st.mu.Unlock()

	if len(created) > 0 {
		m.afterMutation(ctx, req.StationID, result.Summary)
		for _, conn := range created {
			queue.Emit(m.mq, m.log, queue.Event{
				Subject:   queue.SubjectConnectionCreated,
				StationID: req.StationID,
				ActorID:   req.ActorID,
				Payload:   conn,
			})
		}
	}

	m.log.Info("Bulk connect finished",
		zap.String("station_id", req.StationID),
		zap.String("target", req.TargetAssetID),
		zap.Int("successful", result.Successful),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// VerifyConnection is a dry run of CreateConnection against the current graph.
func (m *Manager) VerifyConnection(ctx context.Context, req domain.ConnectionRequest) (domain.Verification, error) {
	if err := domain.Validate(req); err != nil {
		de, _ := domain.AsError(err)
		return domain.Verification{
			Errors:   []domain.ValidationIssue{{Reason: de.Reason, Message: de.Message}},
			Warnings: []domain.ValidationIssue{},
		}, nil
	}
	st, err := m.station(req.StationID)
	if err != nil {
		return domain.Verification{}, err
	}

	st.mu.RLock()
	errs, warnings := st.graph.Check(req.Type, req.AssetAID, req.AssetBID, req.StationID)
	st.mu.RUnlock()

	v := domain.Verification{
		Valid:    len(errs) == 0,
		Errors:   make([]domain.ValidationIssue, 0, len(errs)),
		Warnings: warnings,
	}
	if v.Warnings == nil {
		v.Warnings = []domain.ValidationIssue{}
	}
	for _, e := range errs {
		v.Errors = append(v.Errors, domain.ValidationIssue{Reason: e.Reason, Message: e.Message})
	}
	return v, nil
}

func (m *Manager) ConnectionsOf(ctx context.Context, stationID, assetID string) ([]domain.Connection, error) {
	st, err := m.station(stationID)
	if err != nil {
		return nil, err
	}
	st.mu.RLock()
	defer st.mu.RUnlock()
	if _, ok := st.graph.Asset(assetID); !ok {
		return nil, domain.NotFound("asset %s not found in station %s", assetID, stationID)
	}
	return st.graph.ConnectionsOf(assetID), nil
}

func (m *Manager) UnattachedAssets(ctx context.Context, stationID string) ([]domain.Asset, error) {
	st, err := m.station(stationID)
	if err != nil {
		return nil, err
	}
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.graph.UnattachedAssets(), nil
}

func (m *Manager) HealthScore(ctx context.Context, stationID string) (int, error) {
	st, err := m.station(stationID)
	if err != nil {
		return 0, err
	}
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.graph.HealthScore(), nil
}

func (m *Manager) AssetTopology(ctx context.Context, stationID string) ([]domain.AssetNode, error) {
	st, err := m.station(stationID)
	if err != nil {
		return nil, err
	}
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.graph.Nodes(), nil
}

// Asset implements ports.AssetLookup for the shift and offload services.
func (m *Manager) Asset(ctx context.Context, stationID, assetID string) (domain.Asset, error) {
	st, err := m.station(stationID)
	if err != nil {
		return domain.Asset{}, err
	}
	st.mu.RLock()
	defer st.mu.RUnlock()
	a, ok := st.graph.Asset(assetID)
	if !ok || a.StationID != stationID {
		return domain.Asset{}, domain.NotFound("asset %s not found in station %s", assetID, stationID)
	}
	return a, nil
}

// Summary serves the station summary from cache when possible.
func (m *Manager) Summary(ctx context.Context, stationID string) (domain.TopologySummary, error) {
	key := summaryKeyPrefix + stationID
	if m.cache != nil {
		if raw, err := m.cache.Get(ctx, key); err == nil && raw != "" {
			var cached domain.TopologySummary
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				telemetry.CacheLookups.WithLabelValues("hit").Inc()
				return cached, nil
			}
		}
		telemetry.CacheLookups.WithLabelValues("miss").Inc()
	}

	st, err := m.station(stationID)
	if err != nil {
		return domain.TopologySummary{}, err
	}
	// Cache under the read lock: a mutation invalidates only after it
	// releases the write lock, so it cannot be overtaken by this write.
	st.mu.RLock()
	defer st.mu.RUnlock()
	summary := st.graph.Summary()
	m.storeSummary(ctx, summary)
	return summary, nil
}

func (m *Manager) InvalidateSummary(ctx context.Context, stationID string) error {
	if m.cache == nil {
		return nil
	}
	if err := m.cache.Delete(ctx, summaryKeyPrefix+stationID); err != nil {
		return fmt.Errorf("invalidate summary %s: %w", stationID, err)
	}
	return nil
}

func (m *Manager) AuditLog(ctx context.Context, stationID string) ([]domain.AuditEntry, error) {
	if m.audit == nil {
		return []domain.AuditEntry{}, nil
	}
	return m.audit.ListByStation(ctx, stationID)
}

func (m *Manager) storeSummary(ctx context.Context, summary domain.TopologySummary) {
	if m.cache == nil {
		return
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := m.cache.Set(ctx, summaryKeyPrefix+summary.StationID, string(data), m.summaryTTL); err != nil {
		m.log.Debug("Failed to cache topology summary", zap.String("station_id", summary.StationID), zap.Error(err))
	}
}

func (m *Manager) afterMutation(ctx context.Context, stationID string, summary domain.TopologySummary) {
	if err := m.InvalidateSummary(ctx, stationID); err != nil {
		m.log.Warn("Failed to invalidate topology summary", zap.String("station_id", stationID), zap.Error(err))
	}
	telemetry.ConnectionHealth.WithLabelValues(stationID).Set(float64(summary.ConnectionHealth))
}

func (m *Manager) appendAudit(ctx context.Context, entry domain.AuditEntry) error {
	if m.audit == nil {
		return nil
	}
	entry.ID = uuid.NewString()
	entry.At = m.now()
	return m.audit.Append(ctx, entry)
}
