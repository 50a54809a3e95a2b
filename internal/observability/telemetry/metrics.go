package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Topology
	ConnectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "posto_topology_connections_total",
		Help: "Connection create attempts by type and result",
	}, []string{"type", "result"})

	ConnectionRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "posto_topology_connection_rejections_total",
		Help: "Rejected connections by rule",
	}, []string{"reason"})

	ConnectionHealth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "posto_topology_connection_health",
		Help: "Connection health score (0-100) per station",
	}, []string{"station_id"})

	// Shifts
	OpenShifts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "posto_open_shifts",
		Help: "Number of shifts currently open",
	})

	ShiftsClosedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "posto_shifts_closed_total",
		Help: "Total shifts closed with a reconciliation report",
	})

	ShiftVarianceLiters = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "posto_shift_variance_liters",
		Help:    "Dispensed minus tank usage at shift close",
		Buckets: []float64{-500, -100, -50, -10, -1, 0, 1, 10, 50, 100, 500},
	})

	ReadingsRecordedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "posto_readings_recorded_total",
		Help: "Meter and dip readings recorded",
	}, []string{"kind", "reading_type"})

	// Offloads
	OffloadVolumeLiters = promauto.NewCounter(prometheus.CounterOpts{
		Name: "posto_offload_volume_liters_total",
		Help: "Adjusted volume delivered by recorded offloads",
	})

	// Infrastructure
	EventPublishFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "posto_event_publish_failures_total",
		Help: "Domain events that could not be published",
	}, []string{"subject"})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "posto_cache_lookups_total",
		Help: "Topology summary cache lookups by result",
	}, []string{"result"})
)
