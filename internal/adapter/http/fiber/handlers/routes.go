package handlers

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes mounts the station, shift and offload endpoints on r.
func RegisterRoutes(r fiber.Router, t *TopologyHandler, s *ShiftHandler, o *OffloadHandler) {
	r.Post("/topology/process", t.Process)

	st := r.Group("/stations/:stationId")
	st.Post("/topology", t.Load)
	st.Get("/topology", t.Summary)
	st.Get("/topology/assets", t.Assets)
	st.Get("/topology/unattached", t.Unattached)
	st.Get("/topology/audit", t.Audit)
	st.Get("/assets/:assetId/connections", t.ConnectionsOf)
	st.Post("/connections", t.Create)
	st.Post("/connections/verify", t.Verify)
	st.Post("/connections/bulk", t.Bulk)
	st.Delete("/connections/:connectionId", t.Delete)

	st.Post("/shifts", s.Create)
	st.Get("/shifts/open", s.OpenShift)
	st.Post("/offloads", o.Record)
	st.Post("/offloads/preview", o.Preview)

	sh := r.Group("/shifts/:id")
	sh.Get("", s.Get)
	sh.Post("/assignments", s.Assign)
	sh.Post("/readings", s.RecordReading)
	sh.Get("/readings", s.Readings)
	sh.Post("/open", s.Open)
	sh.Post("/close", s.Close)
	sh.Get("/report", s.Report)
	sh.Get("/offloads", o.ListByShift)
}
