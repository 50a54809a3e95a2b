package circuitbreaker

import (
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/seu-repo/sigec-posto/internal/adapter/queue"
)

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Settings configures a breaker. Zero values fall back to the defaults below.
type Settings struct {
	Name         string
	MaxRequests  uint32        // allowed through while half-open
	Interval     time.Duration // closed-state counter reset period
	Timeout      time.Duration // open-state duration before half-open
	MinRequests  uint32
	FailureRatio float64
}

func (s Settings) withDefaults() Settings {
	if s.MaxRequests == 0 {
		s.MaxRequests = 3
	}
	if s.Interval <= 0 {
		s.Interval = time.Minute
	}
	if s.Timeout <= 0 {
		s.Timeout = 30 * time.Second
	}
	if s.MinRequests == 0 {
		s.MinRequests = 3
	}
	if s.FailureRatio <= 0 {
		s.FailureRatio = 0.6
	}
	return s
}

// New creates a gobreaker instance that trips once at least MinRequests
// were seen and the failure ratio reaches FailureRatio.
func New(settings Settings, log *zap.Logger) *gobreaker.CircuitBreaker {
	s := settings.withDefaults()
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= s.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}

// ProtectedQueue guards broker publishes with a breaker so an unreachable
// broker fails fast instead of stalling every mutation that emits an event.
type ProtectedQueue struct {
	queue.MessageQueue
	cb  *gobreaker.CircuitBreaker
	log *zap.Logger
}

func NewProtectedQueue(mq queue.MessageQueue, settings Settings, log *zap.Logger) *ProtectedQueue {
	if settings.Name == "" {
		settings.Name = "message-queue"
	}
	return &ProtectedQueue{
		MessageQueue: mq,
		cb:           New(settings, log),
		log:          log,
	}
}

func (q *ProtectedQueue) Publish(subject string, data []byte) error {
	_, err := q.cb.Execute(func() (interface{}, error) {
		return nil, q.MessageQueue.Publish(subject, data)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrCircuitOpen
	}
	return err
}

// State reports the breaker state, for health checks.
func (q *ProtectedQueue) State() gobreaker.State {
	return q.cb.State()
}

var _ queue.MessageQueue = (*ProtectedQueue)(nil)
