package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/qss-platform/resident-service/internal/api/http/handlers"
	"github.com/qss-platform/resident-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health    *handlers.HealthHandler
	Auth      *handlers.AuthHandler
	Identity  *handlers.IdentityHandler
	Tickets   *handlers.TicketsHandler
	Dashboard *handlers.DashboardHandler
	Tokens    *auth.TokenManager
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	v1 := app.Group("/v1")

	v1.Post("/auth/login", cfg.Auth.Login)

	identity := v1.Group("/identity")
	identity.Get("/:telegram_id", cfg.Identity.Resolve)
	identity.Post("/enroll", cfg.Identity.Enroll)
	identity.Post("/language", cfg.Identity.SetLanguage)

	tickets := v1.Group("/tickets")
	tickets.Get("/", cfg.Tickets.List)
	tickets.Post("/", cfg.Tickets.Create)
	tickets.Get("/code/:code", cfg.Tickets.GetByCode)
	tickets.Get("/:id", cfg.Tickets.Get)
	tickets.Get("/:id/history", cfg.Tickets.History)
	tickets.Post("/:id/accept", cfg.Tickets.Accept)
	tickets.Post("/:id/complete", cfg.Tickets.Complete)
	tickets.Post("/:id/rate", cfg.Tickets.Rate)
	tickets.Post("/:id/review/master", cfg.Tickets.ReviewMaster)
	tickets.Post("/:id/review/admin", cfg.Tickets.ReviewAdmin)
	tickets.Post("/:id/reassign", cfg.Tickets.Reassign)

	v1.Get("/owners/:telegram_id/tickets", cfg.Tickets.OwnerTickets)
	v1.Get("/masters/:id/tickets", cfg.Tickets.MasterQueue)
	v1.Get("/masters/:telegram_id/available", cfg.Tickets.AvailableTickets)

	dashboard := v1.Group("/dashboard", auth.RequireToken(cfg.Tokens))
	dashboard.Get("/tickets", cfg.Dashboard.ListTickets)
	dashboard.Get("/owners", cfg.Dashboard.ListOwners)
	dashboard.Post("/owners", cfg.Dashboard.CreateOwner)
	dashboard.Get("/owners/:id", cfg.Dashboard.GetOwner)
	dashboard.Put("/owners/:id", cfg.Dashboard.UpdateOwner)
	dashboard.Delete("/owners/:id", cfg.Dashboard.DeactivateOwner)
	dashboard.Get("/masters", cfg.Dashboard.ListMasters)
	dashboard.Get("/masters/active", cfg.Dashboard.ListActiveMasters)
	dashboard.Post("/masters", cfg.Dashboard.CreateMaster)
	dashboard.Put("/masters/:id", cfg.Dashboard.UpdateMaster)
	dashboard.Delete("/masters/:id", cfg.Dashboard.DeactivateMaster)
	dashboard.Get("/texts", cfg.Dashboard.ListTexts)
	dashboard.Put("/texts", cfg.Dashboard.UpsertText)
}
