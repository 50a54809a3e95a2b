package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/sigec-posto/internal/adapter/http/fiber/middleware"
	"github.com/seu-repo/sigec-posto/internal/domain"
	"github.com/seu-repo/sigec-posto/internal/ports"
)

type OffloadHandler struct {
	service ports.OffloadService
	log     *zap.Logger
}

func NewOffloadHandler(service ports.OffloadService, log *zap.Logger) *OffloadHandler {
	return &OffloadHandler{
		service: service,
		log:     log,
	}
}

type RecordOffloadResponse struct {
	Offload *domain.Offload        `json:"offload"`
	Summary *domain.OffloadSummary `json:"summary"`
}

func (h *OffloadHandler) parse(c *fiber.Ctx) (domain.Offload, error) {
	var o domain.Offload
	if err := c.BodyParser(&o); err != nil {
		return o, invalidBody(err)
	}
	o.StationID = c.Params("stationId")
	if o.RecordedByID == "" {
		o.RecordedByID = middleware.Actor(c)
	}
	return o, nil
}

func (h *OffloadHandler) Preview(c *fiber.Ctx) error {
	o, err := h.parse(c)
	if err != nil {
		return err
	}
	summary, err := h.service.Preview(c.Context(), o)
	if err != nil {
		return err
	}
	return c.JSON(summary)
}

func (h *OffloadHandler) Record(c *fiber.Ctx) error {
	o, err := h.parse(c)
	if err != nil {
		return err
	}
	stored, summary, err := h.service.Record(c.Context(), o)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(RecordOffloadResponse{Offload: stored, Summary: summary})
}

func (h *OffloadHandler) ListByShift(c *fiber.Ctx) error {
	offloads, err := h.service.ListByShift(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(offloads)
}
