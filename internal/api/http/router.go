package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/registration-service/internal/api/http/handlers"
	"github.com/spec-kit/registration-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Events         *handlers.EventsHandler
	Tickets        *handlers.TicketsHandler
	AdminTickets   *handlers.AdminTicketsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)
	authGroup.Post("/verify", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated(), cfg.Users.Verify)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated(), cfg.Users.Me)

	eventsGroup := app.Group("/events")
	eventsGroup.Get("/", cfg.Events.List)
	eventsGroup.Get("/:id", cfg.Events.Get)
	eventsGroup.Post("/", cfg.AuthMiddleware.Handle, auth.RequireAdmin(), cfg.Events.Create)
	eventsGroup.Patch("/:id", cfg.AuthMiddleware.Handle, auth.RequireAdmin(), cfg.Events.Update)
	eventsGroup.Post("/:id/book", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated(), cfg.Tickets.BookEvent)

	ticketsGroup := app.Group("/tickets", cfg.AuthMiddleware.Handle)
	ticketsGroup.Get("/admin/all", auth.RequireAdmin(), cfg.AdminTickets.ListAll)
	ticketsGroup.Get("/admin/stats", auth.RequireAdmin(), cfg.AdminTickets.Stats)
	ticketsGroup.Get("/export", auth.RequireAdmin(), cfg.AdminTickets.Export)
	ticketsGroup.Get("/", auth.RequireAuthenticated(), cfg.Tickets.ListOwn)
	ticketsGroup.Get("/:id/history", auth.RequireAdmin(), cfg.AdminTickets.History)
	ticketsGroup.Post("/:id/cancel", auth.RequireAuthenticated(), cfg.Tickets.Cancel)
	ticketsGroup.Patch("/:id/phase2", auth.RequireAuthenticated(), cfg.Tickets.SubmitPhaseTwo)
	ticketsGroup.Patch("/:id", auth.RequireAdmin(), cfg.AdminTickets.UpdateStatus)
}
