package risk

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/james-6-23/new-api-tools-sub000/internal/app"
	"github.com/james-6-23/new-api-tools-sub000/internal/httpserver/httputil"
	"github.com/james-6-23/new-api-tools-sub000/internal/models"
	"github.com/james-6-23/new-api-tools-sub000/internal/view"
)

func registerLeaderboardRoutes(router fiber.Router, container *app.Container) {
	handler := &leaderboardHandler{container: container}

	group := router.Group("/leaderboards")
	group.Get("/", handler.list)
	group.Post("/refresh", handler.refresh)
	group.Post("/windows/:window/refresh", handler.refreshWindow)
	group.Put("/sort", handler.setSort)
	group.Get("/export", handler.exportCSV)

	router.Get("/ip-usage", handler.ipUsage)
	router.Get("/activity-stats", handler.activityStats)
	router.Get("/refresh-config/:view", handler.countdown)
	router.Put("/refresh-config/:view", handler.setRefreshInterval)
	router.Get("/countdown/:view", handler.countdown)
}

type leaderboardHandler struct {
	container *app.Container
}

func (h *leaderboardHandler) list(c *fiber.Ctx) error {
	sess := session(c, h.container)
	noCache := strings.EqualFold(c.Query("no_cache"), "true")
	windows := sess.Leaderboards(noCache)
	return c.JSON(fiber.Map{
		"windows": windows,
		"sort_by": sess.SortBy(),
	})
}

func (h *leaderboardHandler) refresh(c *fiber.Ctx) error {
	sess := session(c, h.container)
	sess.ManualRefresh()
	return c.JSON(fiber.Map{"ok": true})
}

func (h *leaderboardHandler) refreshWindow(c *fiber.Ctx) error {
	sess := session(c, h.container)
	window := models.Window(c.Params("window"))
	if err := sess.RefreshWindow(window); err != nil {
		return httputil.WriteDomainError(c, err)
	}
	entries, _ := sess.WindowEntries(window)
	return c.JSON(fiber.Map{
		"window":  window,
		"entries": entries,
	})
}

type setSortRequest struct {
	SortBy string `json:"sort_by"`
}

func (h *leaderboardHandler) setSort(c *fiber.Ctx) error {
	var req setSortRequest
	if err := c.BodyParser(&req); err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, "invalid request body")
	}
	sess := session(c, h.container)
	if err := sess.SetSortBy(req.SortBy); err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, err.Error())
	}
	return c.JSON(fiber.Map{"sort_by": sess.SortBy()})
}

func (h *leaderboardHandler) ipUsage(c *fiber.Ctx) error {
	sess := session(c, h.container)
	return c.JSON(fiber.Map{"entries": sess.IPUsage()})
}

func (h *leaderboardHandler) activityStats(c *fiber.Ctx) error {
	sess := session(c, h.container)
	stats := sess.ActivityStats()
	if stats == nil {
		return httputil.WriteError(c, fiber.StatusBadGateway, "activity stats unavailable")
	}
	return c.JSON(stats)
}

type setRefreshRequest struct {
	Seconds int `json:"seconds"`
}

// setRefreshInterval stores an explicit interval choice. Zero disables auto
// refresh for the view; the stored preference survives reconnects.
func (h *leaderboardHandler) setRefreshInterval(c *fiber.Ctx) error {
	var req setRefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.Seconds < 0 {
		return httputil.WriteError(c, fiber.StatusBadRequest, "seconds must be >= 0")
	}
	sess := session(c, h.container)
	v := view.View(c.Params("view"))
	if err := sess.SetRefreshInterval(c.UserContext(), v, req.Seconds); err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, err.Error())
	}
	return c.JSON(fiber.Map{"view": v, "seconds": req.Seconds})
}

func (h *leaderboardHandler) countdown(c *fiber.Ctx) error {
	sess := session(c, h.container)
	v := view.View(c.Params("view"))
	remaining, interval, err := sess.Countdown(v)
	if err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, err.Error())
	}
	return c.JSON(fiber.Map{
		"view":      v,
		"remaining": remaining,
		"interval":  interval,
	})
}

func parsePositiveQuery(c *fiber.Ctx, name string, fallback int) int {
	if v := strings.TrimSpace(c.Query(name)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
