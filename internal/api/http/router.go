package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/provisioning-engine/internal/api/http/handlers"
	"github.com/spec-kit/provisioning-engine/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tenants        *handlers.TenantsHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes. Everything below /tenants requires an
// authenticated operator.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/login", cfg.Auth.Login)

	tenants := app.Group("/tenants", cfg.AuthMiddleware.Handle)
	tenants.Get("", cfg.Tenants.List)
	tenants.Post("", cfg.Tenants.Create)
	tenants.Get("/:name", cfg.Tenants.Get)
	tenants.Delete("/:name", cfg.Tenants.Delete)
	tenants.Post("/:name/suspend", cfg.Tenants.Suspend)
	tenants.Post("/:name/resume", cfg.Tenants.Resume)
	tenants.Post("/:name/seed-admin", cfg.Tenants.SeedAdmin)
	tenants.Get("/:name/logs", cfg.Tenants.Logs)
}
