package risk

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/james-6-23/new-api-tools-sub000/internal/app"
	"github.com/james-6-23/new-api-tools-sub000/internal/auth"
	"github.com/james-6-23/new-api-tools-sub000/internal/httpserver/httputil"
)

func registerAuthRoutes(router fiber.Router, container *app.Container) {
	handler := &authHandler{container: container}
	router.Post("/login", handler.login)
	router.Post("/logout", handler.logout)
	router.Get("/me", sessionAuthMiddleware(container), handler.me)
}

type authHandler struct {
	container *app.Container
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *authHandler) login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return httputil.WriteError(c, fiber.StatusBadRequest, "email and password required")
	}

	token, expiresAt, err := h.container.Auth.Login(c.UserContext(), req.Email, req.Password, c.IP())
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrTooManyAttempts):
			return httputil.WriteError(c, fiber.StatusTooManyRequests, err.Error())
		case errors.Is(err, auth.ErrInvalidCredentials):
			return httputil.WriteError(c, fiber.StatusUnauthorized, err.Error())
		default:
			return httputil.WriteError(c, fiber.StatusInternalServerError, "login failed")
		}
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.container.Config.Auth.CookieName,
		Value:    token,
		Expires:  expiresAt,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.JSON(fiber.Map{
		"token":      token,
		"expires_at": expiresAt,
	})
}

func (h *authHandler) logout(c *fiber.Ctx) error {
	email := strings.TrimSpace(operatorEmail(c))
	if email == "" {
		// The route is unauthenticated so a bad token still clears the cookie.
		if raw := requestToken(c, h.container.Config.Auth.CookieName); raw != "" {
			if op, err := h.container.Auth.Authenticate(raw); err == nil {
				email = op.Email
			}
		}
	}
	if email != "" {
		h.container.Sessions.Evict(email)
	}
	c.Cookie(&fiber.Cookie{
		Name:     h.container.Config.Auth.CookieName,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.JSON(fiber.Map{"ok": true})
}

func (h *authHandler) me(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"email": operatorEmail(c),
	})
}
