package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/case-service/internal/api/http/handlers"
	"github.com/spec-kit/case-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health    *handlers.HealthHandler
	Cases     *handlers.CasesHandler
	History   *handlers.HistoryHandler
	Metrics   *observability.Metrics
	StaticDir string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	app.Get("/cases", cfg.Cases.ListCases)
	app.Post("/cases", cfg.Cases.CreateCase)
	app.Get("/cases/:id", cfg.Cases.GetCase)
	app.Put("/cases/:id", cfg.Cases.UpdateCase)
	app.Delete("/cases/:id", cfg.Cases.DeleteCase)
	app.Get("/categories", cfg.Cases.ListCategories)
	app.Get("/history", cfg.History.ListHistory)

	if cfg.StaticDir != "" {
		app.Static("/", cfg.StaticDir, fiber.Static{Index: "index.html"})
	}
}
