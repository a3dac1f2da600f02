package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/grievance-service/internal/api/http/handlers"
	"github.com/spec-kit/grievance-service/internal/auth"
	"github.com/spec-kit/grievance-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Staff          *handlers.StaffHandler
	Tickets        *handlers.TicketsHandler
	StaffTickets   *handlers.StaffTicketsHandler
	Notifications  *handlers.NotificationsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/users/register", cfg.Users.Register)
	authGroup.Post("/users/login", cfg.Users.Login)
	authGroup.Post("/staff/login", cfg.Staff.Login)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle, auth.RequireConsumer())
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/feedback", cfg.Tickets.AttachFeedback)

	staff := app.Group("/staff/tickets", cfg.AuthMiddleware.Handle, auth.RequireOperatorRole())
	staff.Get("", cfg.StaffTickets.ListTickets)
	staff.Get("/:id", cfg.StaffTickets.GetTicket)
	staff.Patch("/:id/status", cfg.StaffTickets.UpdateStatus)

	review := app.Group("/staff/tickets", cfg.AuthMiddleware.Handle,
		auth.RequireOperatorRole(domain.RoleDepartmentHead))
	review.Post("/:id/approve", cfg.StaffTickets.ApproveEscalated)
	review.Post("/:id/reject", cfg.StaffTickets.RejectEscalated)

	notifications := app.Group("/notifications", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	notifications.Get("", cfg.Notifications.List)
	notifications.Post("/:id/read", cfg.Notifications.MarkRead)
}
