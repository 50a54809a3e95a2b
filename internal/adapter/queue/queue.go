package queue

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/sigec-posto/internal/observability/telemetry"
)

// MessageQueue defines the interface for a message queue adapter
type MessageQueue interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, handler func(data []byte) error) error
	Close() error
}

const DefaultExchange = "posto.events"

// Domain event subjects.
const (
	SubjectConnectionCreated = "topology.connection.created"
	SubjectConnectionDeleted = "topology.connection.deleted"
	SubjectStationLoaded     = "topology.station.loaded"
	SubjectShiftCreated      = "shift.created"
	SubjectShiftOpened       = "shift.opened"
	SubjectShiftClosed       = "shift.closed"
	SubjectOffloadRecorded   = "offload.recorded"
)

// Event is the envelope every domain event is published in.
type Event struct {
	Subject   string      `json:"subject"`
	StationID string      `json:"station_id"`
	ActorID   string      `json:"actor_id,omitempty"`
	At        time.Time   `json:"at"`
	Payload   interface{} `json:"payload"`
}

// Emit publishes an event and only logs on failure. Events are notifications
// about state the core already committed, so a broker outage must not undo it.
func Emit(mq MessageQueue, log *zap.Logger, evt Event) {
	if mq == nil {
		return
	}
	if evt.At.IsZero() {
		evt.At = time.Now()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		log.Error("Failed to encode event", zap.String("subject", evt.Subject), zap.Error(err))
		telemetry.EventPublishFailures.WithLabelValues(evt.Subject).Inc()
		return
	}
	if err := mq.Publish(evt.Subject, data); err != nil {
		log.Warn("Failed to publish event",
			zap.String("subject", evt.Subject),
			zap.String("station_id", evt.StationID),
			zap.Error(err),
		)
		telemetry.EventPublishFailures.WithLabelValues(evt.Subject).Inc()
	}
}
