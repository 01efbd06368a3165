package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/clinic-service/internal/api/http/handlers"
	"github.com/spec-kit/clinic-service/internal/auth"
	"github.com/spec-kit/clinic-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Patients       *handlers.PatientsHandler
	Consultations  *handlers.ConsultationsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health", cfg.Health.Live)
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	app.Post("/register", cfg.Users.Register)
	app.Post("/login", cfg.Users.Login)

	authenticated := []fiber.Handler{cfg.AuthMiddleware.Handle, auth.RequireAnyRole()}
	app.Get("/users", append(authenticated, cfg.Users.List)...)

	patients := app.Group("/patients", authenticated...)
	patients.Post("/create", cfg.Patients.Create)
	patients.Get("/list", cfg.Patients.List)
	patients.Post("/assign", cfg.Patients.Assign)

	consultations := app.Group("/consultations", append(authenticated, auth.RequireRole(domain.RoleSales, domain.RoleDoctor))...)
	consultations.Post("/schedule", cfg.Consultations.Schedule)
	consultations.Get("/list", cfg.Consultations.List)
	consultations.Post("/share-message", cfg.Consultations.ShareMessage)
	consultations.Post("/whatsapp-link", cfg.Consultations.WhatsAppLink)
	consultations.Post("/send-whatsapp", cfg.Consultations.SendWhatsApp)
	consultations.Patch("/update", cfg.Consultations.Update)
}
