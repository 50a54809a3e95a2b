package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/seu-repo/sigec-posto/internal/domain"
	"github.com/seu-repo/sigec-posto/internal/infrastructure/circuitbreaker"
)

// CircuitBreaker sheds load while handlers keep failing with server errors.
// Domain errors are client mistakes and count as successes.
func CircuitBreaker(settings circuitbreaker.Settings, log *zap.Logger) fiber.Handler {
	if settings.Name == "" {
		settings.Name = "sigec-posto-api"
	}
	cb := circuitbreaker.New(settings, log)

	return func(c *fiber.Ctx) error {
		var handlerErr error
		_, err := cb.Execute(func() (interface{}, error) {
			handlerErr = c.Next()
			if handlerErr == nil {
				return nil, nil
			}
			if _, ok := domain.AsError(handlerErr); ok {
				return nil, nil
			}
			var fe *fiber.Error
			if errors.As(handlerErr, &fe) && fe.Code < fiber.StatusInternalServerError {
				return nil, nil
			}
			return nil, handlerErr
		})

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "Service temporarily unavailable",
			})
		}
		return handlerErr
	}
}
