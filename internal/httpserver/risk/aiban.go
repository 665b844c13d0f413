package risk

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/james-6-23/new-api-tools-sub000/internal/aiban"
	"github.com/james-6-23/new-api-tools-sub000/internal/app"
	"github.com/james-6-23/new-api-tools-sub000/internal/httpserver/httputil"
	"github.com/james-6-23/new-api-tools-sub000/internal/models"
)

func registerAIScanRoutes(router fiber.Router, container *app.Container) {
	handler := &aiScanHandler{container: container, service: container.AIBan}
	group := router.Group("/ai")
	group.Get("/suspicious", handler.suspicious)
	group.Post("/assess", handler.assess)
	group.Post("/scan", handler.scan)
	group.Get("/config", handler.getConfig)
	group.Put("/config", handler.saveConfig)
	group.Post("/config/test", handler.testConfig)
	group.Get("/audit-logs", handler.auditLogs)
}

type aiScanHandler struct {
	container *app.Container
	service   *aiban.Service
}

func (h *aiScanHandler) suspicious(c *fiber.Ctx) error {
	session(c, h.container)
	window := models.Window(c.Query("window", string(models.Window24h)))
	if !models.ValidWindow(window) {
		return httputil.WriteError(c, fiber.StatusBadRequest, "unknown window")
	}
	users, err := h.service.ListSuspicious(c.UserContext(), window)
	if err != nil {
		return httputil.WriteDomainError(c, err)
	}
	return c.JSON(fiber.Map{"users": users})
}

type assessRequest struct {
	UserID int64  `json:"user_id"`
	Window string `json:"window"`
}

func (h *aiScanHandler) assess(c *fiber.Ctx) error {
	session(c, h.container)
	var req assessRequest
	if err := c.BodyParser(&req); err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.UserID <= 0 {
		return httputil.WriteError(c, fiber.StatusBadRequest, "user_id required")
	}
	window := models.Window(req.Window)
	if req.Window == "" {
		window = models.Window24h
	}
	if !models.ValidWindow(window) {
		return httputil.WriteError(c, fiber.StatusBadRequest, "unknown window")
	}
	assessment, err := h.service.Assess(c.UserContext(), req.UserID, window)
	if err != nil {
		return httputil.WriteDomainError(c, err)
	}
	return c.JSON(assessment)
}

type scanRequest struct {
	Window string `json:"window"`
	Limit  int    `json:"limit"`
}

func (h *aiScanHandler) scan(c *fiber.Ctx) error {
	session(c, h.container)
	var req scanRequest
	if err := c.BodyParser(&req); err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, "invalid request body")
	}
	window := models.Window(req.Window)
	if req.Window == "" {
		window = models.Window24h
	}
	if !models.ValidWindow(window) {
		return httputil.WriteError(c, fiber.StatusBadRequest, "unknown window")
	}

	result, err := h.service.RunScan(c.UserContext(), window, req.Limit)
	if err != nil {
		if errors.Is(err, aiban.ErrScanInFlight) {
			return httputil.WriteError(c, fiber.StatusConflict, err.Error())
		}
		return httputil.WriteDomainError(c, err)
	}
	return c.JSON(result)
}

func (h *aiScanHandler) getConfig(c *fiber.Ctx) error {
	session(c, h.container)
	reveal := c.Query("reveal") == "true"
	cfg, err := h.service.Config(c.UserContext(), reveal)
	if err != nil {
		return httputil.WriteDomainError(c, err)
	}
	return c.JSON(cfg)
}

func (h *aiScanHandler) saveConfig(c *fiber.Ctx) error {
	session(c, h.container)
	var cfg models.ScannerConfig
	if err := c.BodyParser(&cfg); err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.service.SaveConfig(c.UserContext(), cfg); err != nil {
		if errors.Is(err, aiban.ErrKeyRequired) {
			return httputil.WriteError(c, fiber.StatusBadRequest, err.Error())
		}
		return httputil.WriteDomainError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

// testConfig probes the candidate scanner settings with a single round-trip.
// Nothing is persisted; the probe reports latency and the model's reply.
func (h *aiScanHandler) testConfig(c *fiber.Ctx) error {
	session(c, h.container)
	var cfg models.ScannerConfig
	if err := c.BodyParser(&cfg); err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, "invalid request body")
	}
	return c.JSON(h.service.TestConfig(c.UserContext(), cfg))
}

func (h *aiScanHandler) auditLogs(c *fiber.Ctx) error {
	session(c, h.container)
	page := parsePositiveQuery(c, "page", 1)
	pageSize := parsePositiveQuery(c, "page_size", 20)
	logs, err := h.service.AuditLogs(c.UserContext(), page, pageSize)
	if err != nil {
		return httputil.WriteDomainError(c, err)
	}
	return c.JSON(logs)
}
