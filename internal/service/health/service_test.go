package health

import (
	"context"
	"errors"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestReady(t *testing.T) {
	ok := func(ctx context.Context) error { return nil }
	down := func(ctx context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name      string
		checkers  map[string]Checker
		wantReady bool
		want      Status
	}{
		{"no checks", nil, true, StatusHealthy},
		{"all healthy", map[string]Checker{
			"database": PingChecker("database", StatusUnhealthy, ok, zap.NewNop()),
		}, true, StatusHealthy},
		{"cache down degrades", map[string]Checker{
			"database": PingChecker("database", StatusUnhealthy, ok, zap.NewNop()),
			"cache":    PingChecker("cache", StatusDegraded, down, zap.NewNop()),
		}, true, StatusDegraded},
		{"database down fails", map[string]Checker{
			"database": PingChecker("database", StatusUnhealthy, down, zap.NewNop()),
			"cache":    PingChecker("cache", StatusDegraded, down, zap.NewNop()),
		}, false, StatusUnhealthy},
		{"open breaker degrades", map[string]Checker{
			"queue": BreakerChecker("queue", func() gobreaker.State { return gobreaker.StateOpen }),
		}, true, StatusDegraded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewService("test", zap.NewNop())
			for name, c := range tt.checkers {
				s.RegisterChecker(name, c)
			}

			resp := s.Ready(context.Background())

			assert.Equal(t, tt.wantReady, resp.Ready)
			assert.Equal(t, tt.want, resp.Status)
			assert.Len(t, resp.Checks, len(tt.checkers))
		})
	}
}

func TestHealth(t *testing.T) {
	s := NewService("1.2.3", zap.NewNop())

	resp := s.Health(context.Background())

	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
}
