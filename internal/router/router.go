package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/edulive/classroom-api/internal/config"
	"github.com/edulive/classroom-api/internal/handler"
	"github.com/edulive/classroom-api/internal/middleware"
	"github.com/edulive/classroom-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	SessionHandler *handler.SessionHandler
	JWTMiddleware  fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.SessionHandler != nil {
		sessions := api.Group("/sessions", jwtMiddleware, middleware.RateLimit("sessions", 30, time.Minute))
		deps.SessionHandler.Register(sessions)
	}
}
