package risk

import (
	"github.com/gofiber/fiber/v2"

	"github.com/james-6-23/new-api-tools-sub000/internal/app"
	"github.com/james-6-23/new-api-tools-sub000/internal/httpserver/httputil"
)

func registerModerationRoutes(router fiber.Router, container *app.Container) {
	handler := &moderationHandler{container: container}
	router.Get("/banned", handler.bannedUsers)
	router.Get("/ban-records", handler.banRecords)
}

type moderationHandler struct {
	container *app.Container
}

// bannedUsers lists banned accounts one server-side page at a time.
func (h *moderationHandler) bannedUsers(c *fiber.Ctx) error {
	session(c, h.container)
	page := parsePositiveQuery(c, "page", 1)
	pageSize := parsePositiveQuery(c, "page_size", 20)

	result, err := h.container.Upstream.BannedUsers(c.UserContext(), page, pageSize)
	if err != nil {
		return httputil.WriteDomainError(c, err)
	}
	return c.JSON(result)
}

func (h *moderationHandler) banRecords(c *fiber.Ctx) error {
	session(c, h.container)
	page := parsePositiveQuery(c, "page", 1)
	pageSize := parsePositiveQuery(c, "page_size", 20)

	result, err := h.container.Upstream.BanRecords(c.UserContext(), page, pageSize)
	if err != nil {
		return httputil.WriteDomainError(c, err)
	}
	return c.JSON(result)
}
