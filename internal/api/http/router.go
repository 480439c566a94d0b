package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/qaboard/qa-service/internal/api/http/handlers"
	"github.com/qaboard/qa-service/internal/auth"
	"github.com/qaboard/qa-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Questions      *handlers.QuestionsHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes. Reads are public; every question mutation goes
// through the auth gate.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	app.Post("/users", cfg.Users.Create)
	app.Post("/login", cfg.Users.Login)

	gate := cfg.AuthMiddleware.Handle
	app.Get("/questions", cfg.Questions.List)
	app.Post("/questions", gate, cfg.Questions.Create)
	app.Get("/questions/:id", cfg.Questions.Get)
	app.Put("/questions/:id", gate, cfg.Questions.Update)
	app.Delete("/questions/:id", gate, cfg.Questions.Delete)
}
