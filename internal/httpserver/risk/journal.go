package risk

import (
	"github.com/gofiber/fiber/v2"

	"github.com/james-6-23/new-api-tools-sub000/internal/app"
	"github.com/james-6-23/new-api-tools-sub000/internal/httpserver/httputil"
)

func registerJournalRoutes(router fiber.Router, container *app.Container) {
	handler := &journalHandler{container: container}
	router.Get("/journal", handler.list)
}

type journalHandler struct {
	container *app.Container
}

// list returns the local action journal newest-first. Deployments without a
// database have no journal and report 404.
func (h *journalHandler) list(c *fiber.Ctx) error {
	session(c, h.container)
	if h.container.Journal == nil || !h.container.Journal.Enabled() {
		return httputil.WriteError(c, fiber.StatusNotFound, "action journal not configured")
	}
	page := parsePositiveQuery(c, "page", 1)
	pageSize := parsePositiveQuery(c, "page_size", 20)

	entries, err := h.container.Journal.List(c.UserContext(), page, pageSize)
	if err != nil {
		return httputil.WriteError(c, fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(entries)
}
