package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/sigec-posto/internal/adapter/http/fiber/middleware"
	"github.com/seu-repo/sigec-posto/internal/domain"
	"github.com/seu-repo/sigec-posto/internal/ports"
	"github.com/seu-repo/sigec-posto/internal/service/topology"
)

type TopologyHandler struct {
	service ports.TopologyService
	log     *zap.Logger
}

func NewTopologyHandler(service ports.TopologyService, log *zap.Logger) *TopologyHandler {
	return &TopologyHandler{
		service: service,
		log:     log,
	}
}

func invalidBody(err error) error {
	return domain.Validation("invalid_body", "invalid request body: %v", err)
}

// Load replaces the station graph with the posted snapshot.
func (h *TopologyHandler) Load(c *fiber.Ctx) error {
	var snapshot domain.StationSnapshot
	if err := c.BodyParser(&snapshot); err != nil {
		return invalidBody(err)
	}
	snapshot.StationID = c.Params("stationId")

	summary, err := h.service.LoadStation(c.Context(), snapshot)
	if err != nil {
		return err
	}
	return c.JSON(summary)
}

// Process runs the side-effect free topology pass over raw station data.
func (h *TopologyHandler) Process(c *fiber.Ctx) error {
	var snapshot domain.StationSnapshot
	if err := c.BodyParser(&snapshot); err != nil {
		return invalidBody(err)
	}
	return c.JSON(topology.ProcessTopology(snapshot))
}

func (h *TopologyHandler) Summary(c *fiber.Ctx) error {
	summary, err := h.service.Summary(c.Context(), c.Params("stationId"))
	if err != nil {
		return err
	}
	return c.JSON(summary)
}

func (h *TopologyHandler) Assets(c *fiber.Ctx) error {
	nodes, err := h.service.AssetTopology(c.Context(), c.Params("stationId"))
	if err != nil {
		return err
	}
	return c.JSON(nodes)
}

func (h *TopologyHandler) Unattached(c *fiber.Ctx) error {
	assets, err := h.service.UnattachedAssets(c.Context(), c.Params("stationId"))
	if err != nil {
		return err
	}
	return c.JSON(assets)
}

func (h *TopologyHandler) ConnectionsOf(c *fiber.Ctx) error {
	conns, err := h.service.ConnectionsOf(c.Context(), c.Params("stationId"), c.Params("assetId"))
	if err != nil {
		return err
	}
	return c.JSON(conns)
}

func (h *TopologyHandler) connectionRequest(c *fiber.Ctx) (domain.ConnectionRequest, error) {
	var req domain.ConnectionRequest
	if err := c.BodyParser(&req); err != nil {
		return req, invalidBody(err)
	}
	req.StationID = c.Params("stationId")
	req.ActorID = middleware.Actor(c)
	return req, nil
}

func (h *TopologyHandler) Create(c *fiber.Ctx) error {
	req, err := h.connectionRequest(c)
	if err != nil {
		return err
	}
	res, err := h.service.CreateConnection(c.Context(), req)
	if err != nil {
		return err
	}
	h.log.Info("Connection created",
		zap.String("station_id", req.StationID),
		zap.String("connection_id", res.Connection.ID),
		zap.String("actor_id", req.ActorID),
	)
	return c.Status(fiber.StatusCreated).JSON(res)
}

func (h *TopologyHandler) Verify(c *fiber.Ctx) error {
	req, err := h.connectionRequest(c)
	if err != nil {
		return err
	}
	v, err := h.service.VerifyConnection(c.Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(v)
}

func (h *TopologyHandler) Bulk(c *fiber.Ctx) error {
	var req domain.BulkConnectRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(err)
	}
	req.StationID = c.Params("stationId")
	req.ActorID = middleware.Actor(c)

	res, err := h.service.BulkConnect(c.Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (h *TopologyHandler) Delete(c *fiber.Ctx) error {
	res, err := h.service.DeleteConnection(c.Context(), c.Params("stationId"), c.Params("connectionId"), middleware.Actor(c))
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (h *TopologyHandler) Audit(c *fiber.Ctx) error {
	entries, err := h.service.AuditLog(c.Context(), c.Params("stationId"))
	if err != nil {
		return err
	}
	return c.JSON(entries)
}
