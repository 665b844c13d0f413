package risk

import (
	"github.com/gofiber/fiber/v2"

	"github.com/james-6-23/new-api-tools-sub000/internal/app"
	"github.com/james-6-23/new-api-tools-sub000/internal/httpserver/httputil"
	"github.com/james-6-23/new-api-tools-sub000/internal/view"
)

func registerViewRoutes(router fiber.Router, container *app.Container) {
	handler := &viewHandler{container: container}
	group := router.Group("/views")
	group.Get("/", handler.current)
	group.Post("/resolve", handler.resolve)
	group.Post("/select", handler.selectView)
	group.Post("/navigate", handler.navigate)
}

type viewHandler struct {
	container *app.Container
}

type resolveRequest struct {
	Path string `json:"path"`
	Hash string `json:"hash"`
}

type selectViewRequest struct {
	View string `json:"view"`
}

type navigateRequest struct {
	Path string `json:"path"`
}

type resolutionResponse struct {
	View     string `json:"view"`
	Path     string `json:"path"`
	Migrated bool   `json:"migrated,omitempty"`
}

func mapResolution(res view.Resolution) resolutionResponse {
	return resolutionResponse{
		View:     string(res.View),
		Path:     res.CanonicalPath,
		Migrated: res.Migrated,
	}
}

func (h *viewHandler) current(c *fiber.Ctx) error {
	sess := session(c, h.container)
	active := sess.CurrentView()
	return c.JSON(resolutionResponse{View: string(active), Path: view.PathFor(active)})
}

// resolve maps the screen's initial address onto a view. A legacy hash
// address is honored once and rewritten to the canonical path.
func (h *viewHandler) resolve(c *fiber.Ctx) error {
	var req resolveRequest
	if err := c.BodyParser(&req); err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, "invalid request body")
	}
	sess := h.container.Sessions.Session(operatorEmail(c), req.Path, req.Hash)
	res := sess.ResolveInitial(req.Path, req.Hash)
	return c.JSON(mapResolution(res))
}

func (h *viewHandler) selectView(c *fiber.Ctx) error {
	var req selectViewRequest
	if err := c.BodyParser(&req); err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, "invalid request body")
	}
	v := view.View(req.View)
	if !view.Valid(v) {
		return httputil.WriteError(c, fiber.StatusBadRequest, "unknown view")
	}
	sess := session(c, h.container)
	return c.JSON(mapResolution(sess.SetView(v)))
}

func (h *viewHandler) navigate(c *fiber.Ctx) error {
	var req navigateRequest
	if err := c.BodyParser(&req); err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, "invalid request body")
	}
	sess := session(c, h.container)
	return c.JSON(mapResolution(sess.Navigate(req.Path)))
}
