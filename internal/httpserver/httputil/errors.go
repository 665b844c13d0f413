package httputil

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/james-6-23/new-api-tools-sub000/internal/upstream"
	"github.com/james-6-23/new-api-tools-sub000/internal/workflow"
)

// WriteError standardizes JSON error responses across the console API.
func WriteError(c *fiber.Ctx, status int, msg string) error {
	if msg == "" {
		msg = http.StatusText(status)
		if msg == "" {
			msg = "unknown error"
		}
	}
	return c.Status(status).JSON(fiber.Map{
		"error": msg,
	})
}

// WriteDomainError maps known domain errors onto HTTP statuses. Upstream API
// failures keep their original status so the operator sees what the backend
// said.
func WriteDomainError(c *fiber.Ctx, err error) error {
	var apiErr *upstream.APIError
	if errors.As(err, &apiErr) {
		status := apiErr.Status
		if status < 400 || status > 599 {
			status = fiber.StatusBadGateway
		}
		return WriteError(c, status, apiErr.Message)
	}

	switch {
	case errors.Is(err, workflow.ErrNotFound):
		return WriteError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, workflow.ErrPhraseMismatch),
		errors.Is(err, workflow.ErrNotConfirmable),
		errors.Is(err, workflow.ErrAlreadyFinished):
		return WriteError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, workflow.ErrExecuteInFlight):
		return WriteError(c, fiber.StatusTooManyRequests, err.Error())
	default:
		return WriteError(c, fiber.StatusInternalServerError, err.Error())
	}
}
