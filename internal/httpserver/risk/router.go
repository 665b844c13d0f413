package risk

import (
	"github.com/gofiber/fiber/v2"

	"github.com/james-6-23/new-api-tools-sub000/internal/app"
)

// Register wires the /api/auth routes and the session-protected /api/risk
// surface.
func Register(app *fiber.App, container *app.Container) {
	authGroup := app.Group("/api/auth")
	registerAuthRoutes(authGroup, container)

	protected := app.Group("/api/risk", sessionAuthMiddleware(container))
	registerViewRoutes(protected, container)
	registerLeaderboardRoutes(protected, container)
	registerModerationRoutes(protected, container)
	registerActionRoutes(protected, container)
	registerAIScanRoutes(protected, container)
	registerJournalRoutes(protected, container)
}
