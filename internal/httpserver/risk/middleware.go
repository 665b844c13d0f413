package risk

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/james-6-23/new-api-tools-sub000/internal/app"
	"github.com/james-6-23/new-api-tools-sub000/internal/console"
	"github.com/james-6-23/new-api-tools-sub000/internal/httpserver/httputil"
	"github.com/james-6-23/new-api-tools-sub000/internal/requestctx"
	"github.com/james-6-23/new-api-tools-sub000/internal/view"
)

const (
	authHeaderPrefix  = "bearer "
	authorizationName = "Authorization"
)

// requestToken extracts the session token from the Authorization header or,
// failing that, the session cookie.
func requestToken(c *fiber.Ctx, cookieName string) string {
	raw := strings.TrimSpace(c.Get(authorizationName))
	if raw != "" && strings.HasPrefix(strings.ToLower(raw), authHeaderPrefix) {
		return strings.TrimSpace(raw[len(authHeaderPrefix):])
	}
	return strings.TrimSpace(c.Cookies(cookieName))
}

func sessionAuthMiddleware(container *app.Container) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := requestToken(c, container.Config.Auth.CookieName)
		if token == "" {
			return httputil.WriteError(c, fiber.StatusUnauthorized, "authorization required")
		}

		op, err := container.Auth.Authenticate(token)
		if err != nil {
			return httputil.WriteError(c, fiber.StatusUnauthorized, "invalid or expired token")
		}

		ctx := requestctx.WithContext(c.UserContext(), &requestctx.Context{
			Email: op.Email,
			Name:  op.Name,
		})
		c.SetUserContext(ctx)
		c.Locals(requestctx.FiberLocalsKey(), op.Email)
		return c.Next()
	}
}

func operatorEmail(c *fiber.Ctx) string {
	if email, ok := c.Locals(requestctx.FiberLocalsKey()).(string); ok {
		return email
	}
	return ""
}

// session returns the operator's console session, creating one at the default
// view when the operator has none yet.
func session(c *fiber.Ctx, container *app.Container) *console.Session {
	return container.Sessions.Session(operatorEmail(c), view.PathFor(view.Default), "")
}
