package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sla-governance/internal/api/http/handlers"
	"github.com/spec-kit/sla-governance/internal/auth"
	"github.com/spec-kit/sla-governance/internal/domain"
	"github.com/spec-kit/sla-governance/internal/lifecycle"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Governance     *handlers.GovernanceHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)

	protected := app.Group("", cfg.AuthMiddleware.Handle)

	protected.Get("/health/metrics", auth.RequireRole(domain.RoleAdmin), cfg.Health.Metrics)

	protected.Get("/users/me", cfg.Users.Me)
	protected.Get("/users", auth.RequireRole(domain.RoleAdmin, domain.RoleManager), cfg.Users.List)

	tickets := protected.Group("/tickets")
	tickets.Post("/", auth.RequirePermission(lifecycle.ActionCreate), cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/queue", cfg.Tickets.Queue)
	tickets.Get("/mine", cfg.Tickets.MyActive)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/claim", cfg.Tickets.Claim)
	tickets.Post("/:id/status", cfg.Tickets.UpdateStatus)
	tickets.Post("/:id/assign", cfg.Tickets.Assign)

	gov := protected.Group("/governance")
	gov.Get("/report", cfg.Governance.Report)
	gov.Get("/technicians/:id", cfg.Governance.TechnicianPerformance)
}
