package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/sigec-posto/internal/domain"
)

// StatusFor maps a domain error kind to its HTTP status.
func StatusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return fiber.StatusBadRequest
	case domain.KindNotFound:
		return fiber.StatusNotFound
	case domain.KindStationBusy, domain.KindDuplicateReading, domain.KindTerminalState, domain.KindInvalidTransition:
		return fiber.StatusConflict
	case domain.KindInvalidConnection, domain.KindInvalidDipSequence, domain.KindIncompleteReadings, domain.KindMissingReading:
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandler renders every error as {error, kind, reason, asset_ids}.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		body := fiber.Map{"error": err.Error()}

		var fe *fiber.Error
		if de, ok := domain.AsError(err); ok {
			code = StatusFor(de.Kind)
			body["error"] = de.Message
			body["kind"] = de.Kind
			if de.Reason != "" {
				body["reason"] = de.Reason
			}
			if len(de.AssetIDs) > 0 {
				body["asset_ids"] = de.AssetIDs
			}
		} else if errors.As(err, &fe) {
			code = fe.Code
		}

		if code == fiber.StatusInternalServerError {
			log.Error("Internal Server Error", zap.Error(err), zap.String("path", c.Path()))
			body["error"] = "internal server error"
		}

		return c.Status(code).JSON(body)
	}
}
