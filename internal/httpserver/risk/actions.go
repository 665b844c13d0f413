package risk

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/james-6-23/new-api-tools-sub000/internal/app"
	"github.com/james-6-23/new-api-tools-sub000/internal/httpserver/httputil"
	"github.com/james-6-23/new-api-tools-sub000/internal/workflow"
)

func registerActionRoutes(router fiber.Router, container *app.Container) {
	handler := &actionHandler{container: container}
	group := router.Group("/actions")
	group.Post("/", handler.begin)
	group.Get("/:actionID", handler.get)
	group.Post("/:actionID/confirm", handler.confirm)
	group.Post("/:actionID/cancel", handler.cancel)
}

type actionHandler struct {
	container *app.Container
}

// beginActionRequest is a tagged union: Kind selects the variant and only
// that variant's fields are read.
type beginActionRequest struct {
	Kind          string `json:"kind"`
	ActivityLevel string `json:"activity_level"`
	UserID        int64  `json:"user_id"`
	Username      string `json:"username"`
	Reason        string `json:"reason"`
	HardDelete    bool   `json:"hard_delete"`
	DisableTokens bool   `json:"disable_tokens"`
	EnableTokens  bool   `json:"enable_tokens"`
	Context       string `json:"context"`
}

func (r beginActionRequest) toAction() (workflow.Action, error) {
	switch workflow.Kind(r.Kind) {
	case workflow.KindBatchDelete:
		if strings.TrimSpace(r.ActivityLevel) == "" {
			return nil, fiber.NewError(fiber.StatusBadRequest, "activity_level required")
		}
		return workflow.BatchDelete{ActivityLevel: r.ActivityLevel, HardDelete: r.HardDelete}, nil
	case workflow.KindUserDelete:
		if r.UserID <= 0 {
			return nil, fiber.NewError(fiber.StatusBadRequest, "user_id required")
		}
		return workflow.UserDelete{UserID: r.UserID, Username: r.Username, HardDelete: r.HardDelete}, nil
	case workflow.KindBan:
		if r.UserID <= 0 {
			return nil, fiber.NewError(fiber.StatusBadRequest, "user_id required")
		}
		return workflow.Ban{
			UserID:        r.UserID,
			Username:      r.Username,
			Reason:        r.Reason,
			DisableTokens: r.DisableTokens,
			Context:       r.Context,
		}, nil
	case workflow.KindUnban:
		if r.UserID <= 0 {
			return nil, fiber.NewError(fiber.StatusBadRequest, "user_id required")
		}
		return workflow.Unban{
			UserID:       r.UserID,
			Username:     r.Username,
			Reason:       r.Reason,
			EnableTokens: r.EnableTokens,
			Context:      r.Context,
		}, nil
	case workflow.KindPurgeLogs:
		return workflow.PurgeLogs{}, nil
	default:
		return nil, fiber.NewError(fiber.StatusBadRequest, "unknown action kind")
	}
}

// begin opens a confirmation workflow. The response is immediately renderable;
// the affected-entity preview fills in asynchronously and is picked up by
// polling get.
func (h *actionHandler) begin(c *fiber.Ctx) error {
	var req beginActionRequest
	if err := c.BodyParser(&req); err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, "invalid request body")
	}
	action, err := req.toAction()
	if err != nil {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return httputil.WriteError(c, fe.Code, fe.Message)
		}
		return httputil.WriteError(c, fiber.StatusBadRequest, err.Error())
	}

	sess := session(c, h.container)
	snap := sess.Workflows().Begin(c.UserContext(), action)
	return c.Status(fiber.StatusAccepted).JSON(snap)
}

func (h *actionHandler) get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("actionID"))
	if err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, "invalid action id")
	}
	sess := session(c, h.container)
	snap, err := sess.Workflows().Get(id)
	if err != nil {
		return httputil.WriteDomainError(c, err)
	}
	return c.JSON(snap)
}

type confirmRequest struct {
	Phrase string `json:"phrase"`
}

func (h *actionHandler) confirm(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("actionID"))
	if err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, "invalid action id")
	}
	var req confirmRequest
	if err := c.BodyParser(&req); err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, "invalid request body")
	}

	sess := session(c, h.container)
	snap, err := sess.Workflows().Confirm(c.UserContext(), id, req.Phrase)
	if err != nil {
		return httputil.WriteDomainError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(snap)
}

func (h *actionHandler) cancel(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("actionID"))
	if err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, "invalid action id")
	}
	sess := session(c, h.container)
	snap, err := sess.Workflows().Cancel(id)
	if err != nil {
		return httputil.WriteDomainError(c, err)
	}
	return c.JSON(snap)
}
