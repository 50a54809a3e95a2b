package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Status represents the health status
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

// CheckResult represents the result of a health check
type CheckResult struct {
	Name      string        `json:"name"`
	Status    Status        `json:"status"`
	Message   string        `json:"message,omitempty"`
	Duration  time.Duration `json:"duration_ms"`
	Timestamp time.Time     `json:"timestamp"`
}

type HealthResponse struct {
	Status    Status    `json:"status"`
	Version   string    `json:"version,omitempty"`
	Uptime    string    `json:"uptime,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type ReadyResponse struct {
	Ready     bool                   `json:"ready"`
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks"`
}

// Checker defines a health check function
type Checker func(ctx context.Context) CheckResult

// Service aggregates dependency checks for the readiness probe.
type Service struct {
	startTime time.Time
	version   string
	timeout   time.Duration
	checkers  map[string]Checker
	log       *zap.Logger
	mu        sync.RWMutex
}

func NewService(version string, log *zap.Logger) *Service {
	return &Service{
		startTime: time.Now(),
		version:   version,
		timeout:   5 * time.Second,
		checkers:  make(map[string]Checker),
		log:       log,
	}
}

func (s *Service) RegisterChecker(name string, checker Checker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkers[name] = checker
	s.log.Info("Registered health checker", zap.String("name", name))
}

// Health performs a basic liveness check
func (s *Service) Health(ctx context.Context) *HealthResponse {
	return &HealthResponse{
		Status:    StatusHealthy,
		Version:   s.version,
		Uptime:    time.Since(s.startTime).String(),
		Timestamp: time.Now(),
	}
}

// Ready runs every registered check concurrently. Degraded checks keep the
// service ready; a single unhealthy one does not.
func (s *Service) Ready(ctx context.Context) *ReadyResponse {
	s.mu.RLock()
	checkers := make(map[string]Checker, len(s.checkers))
	for k, v := range s.checkers {
		checkers[k] = v
	}
	s.mu.RUnlock()

	results := make(map[string]CheckResult)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for name, checker := range checkers {
		wg.Add(1)
		go func(name string, checker Checker) {
			defer wg.Done()

			checkCtx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()

			result := checker(checkCtx)

			mu.Lock()
			results[name] = result
			mu.Unlock()
		}(name, checker)
	}

	wg.Wait()

	overallStatus := StatusHealthy
	allReady := true

	for _, result := range results {
		if result.Status == StatusUnhealthy {
			overallStatus = StatusUnhealthy
			allReady = false
		} else if result.Status == StatusDegraded && overallStatus != StatusUnhealthy {
			overallStatus = StatusDegraded
		}
	}

	return &ReadyResponse{
		Ready:     allReady,
		Status:    overallStatus,
		Timestamp: time.Now(),
		Checks:    results,
	}
}

// PingChecker reports unhealthy when ping fails. failStatus lets optional
// dependencies (the cache) degrade instead of failing readiness.
func PingChecker(name string, failStatus Status, ping func(ctx context.Context) error, log *zap.Logger) Checker {
	return func(ctx context.Context) CheckResult {
		start := time.Now()
		result := CheckResult{Name: name, Timestamp: start}

		err := ping(ctx)
		result.Duration = time.Since(start)
		if err != nil {
			result.Status = failStatus
			result.Message = fmt.Sprintf("ping failed: %v", err)
			log.Warn("Health check failed", zap.String("name", name), zap.Error(err))
			return result
		}
		result.Status = StatusHealthy
		result.Message = "connection ok"
		return result
	}
}

// BreakerChecker reports degraded while the breaker is not closed. Events are
// best-effort, so an open breaker never fails readiness.
func BreakerChecker(name string, state func() gobreaker.State) Checker {
	return func(ctx context.Context) CheckResult {
		st := state()
		result := CheckResult{Name: name, Timestamp: time.Now(), Message: st.String()}
		if st == gobreaker.StateClosed {
			result.Status = StatusHealthy
		} else {
			result.Status = StatusDegraded
		}
		return result
	}
}
