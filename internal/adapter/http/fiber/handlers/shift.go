package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/sigec-posto/internal/adapter/http/fiber/middleware"
	"github.com/seu-repo/sigec-posto/internal/domain"
	"github.com/seu-repo/sigec-posto/internal/ports"
)

type ShiftHandler struct {
	service ports.ShiftService
	log     *zap.Logger
}

func NewShiftHandler(service ports.ShiftService, log *zap.Logger) *ShiftHandler {
	return &ShiftHandler{
		service: service,
		log:     log,
	}
}

type CreateShiftRequest struct {
	SupervisorID string `json:"supervisor_id"` // defaults to the actor
}

type CloseShiftResponse struct {
	Shift  *domain.Shift                `json:"shift"`
	Report *domain.ReconciliationReport `json:"report"`
}

func (h *ShiftHandler) Create(c *fiber.Ctx) error {
	var req CreateShiftRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return invalidBody(err)
		}
	}
	if req.SupervisorID == "" {
		req.SupervisorID = middleware.Actor(c)
	}

	shift, err := h.service.Create(c.Context(), c.Params("stationId"), req.SupervisorID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(shift)
}

func (h *ShiftHandler) Get(c *fiber.Ctx) error {
	shift, err := h.service.Get(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(shift)
}

func (h *ShiftHandler) OpenShift(c *fiber.Ctx) error {
	shift, err := h.service.OpenShift(c.Context(), c.Params("stationId"))
	if err != nil {
		return err
	}
	return c.JSON(shift)
}

func (h *ShiftHandler) Assign(c *fiber.Ctx) error {
	var a domain.IslandAssignment
	if err := c.BodyParser(&a); err != nil {
		return invalidBody(err)
	}
	shift, err := h.service.AssignAttendant(c.Context(), c.Params("id"), a)
	if err != nil {
		return err
	}
	return c.JSON(shift)
}

func (h *ShiftHandler) RecordReading(c *fiber.Ctx) error {
	var r domain.Reading
	if err := c.BodyParser(&r); err != nil {
		return invalidBody(err)
	}
	actor := middleware.Actor(c)
	if r.Meter != nil && r.Meter.RecordedByID == "" {
		r.Meter.RecordedByID = actor
	}
	if r.Dip != nil && r.Dip.RecordedByID == "" {
		r.Dip.RecordedByID = actor
	}

	stored, err := h.service.RecordReading(c.Context(), c.Params("id"), r)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(stored)
}

func (h *ShiftHandler) Open(c *fiber.Ctx) error {
	var req domain.OpenShiftRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(err)
	}
	req.ActorID = middleware.Actor(c)

	shift, err := h.service.Open(c.Context(), c.Params("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(shift)
}

func (h *ShiftHandler) Close(c *fiber.Ctx) error {
	var req domain.CloseShiftRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(err)
	}
	req.ActorID = middleware.Actor(c)

	shift, report, err := h.service.Close(c.Context(), c.Params("id"), req)
	if err != nil {
		return err
	}
	h.log.Info("Shift closed via API",
		zap.String("shift_id", shift.ID),
		zap.String("actor_id", req.ActorID),
	)
	return c.JSON(CloseShiftResponse{Shift: shift, Report: report})
}

func (h *ShiftHandler) Readings(c *fiber.Ctx) error {
	readings, err := h.service.Readings(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(readings)
}

func (h *ShiftHandler) Report(c *fiber.Ctx) error {
	report, err := h.service.Report(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(report)
}
