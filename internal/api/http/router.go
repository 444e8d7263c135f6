package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/gas-service-portal/internal/api/http/handlers"
	"github.com/spec-kit/gas-service-portal/internal/auth"
	"github.com/spec-kit/gas-service-portal/internal/domain"
	"github.com/spec-kit/gas-service-portal/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health          *handlers.HealthHandler
	Auth            *handlers.AuthHandler
	Users           *handlers.UsersHandler
	ServiceRequests *handlers.ServiceRequestsHandler
	AuthMiddleware  *auth.AuthMiddleware
	Metrics         *observability.Metrics
	MetricsPath     string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	if cfg.Health != nil {
		app.Get("/health/live", cfg.Health.Live)
		app.Get("/health/ready", cfg.Health.Ready)
	}
	if cfg.Metrics != nil && cfg.MetricsPath != "" {
		app.Get(cfg.MetricsPath, adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	authenticated := cfg.AuthMiddleware.Handle

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/logout", authenticated, cfg.Auth.Logout)

	requests := app.Group("/service-requests", authenticated)
	requests.Post("/", auth.RequireCapability(domain.CapRequestCreate), cfg.ServiceRequests.Create)
	requests.Get("/all", auth.RequireCapability(domain.CapRequestListAll), cfg.ServiceRequests.ListAll)
	requests.Get("/my-requests", auth.RequireCapability(domain.CapRequestListOwn), cfg.ServiceRequests.ListOwn)
	requests.Get("/:id", auth.RequireCapability(domain.CapRequestView), cfg.ServiceRequests.Get)
	requests.Get("/:id/history", auth.RequireCapability(domain.CapRequestViewHistory), cfg.ServiceRequests.History)
	requests.Patch("/:id/status", auth.RequireCapability(domain.CapRequestSetStatus), cfg.ServiceRequests.UpdateStatus)
	requests.Patch("/:id/assign", auth.RequireCapability(domain.CapRequestAssign), cfg.ServiceRequests.Assign)
	requests.Post("/:id/comments", auth.RequireCapability(domain.CapRequestComment), cfg.ServiceRequests.AddComment)

	users := app.Group("/users", authenticated)
	users.Get("/", auth.RequireRole(domain.RoleAdmin), cfg.Users.List)
	users.Patch("/profile", auth.RequireCapability(domain.CapProfileUpdate), cfg.Users.UpdateProfile)
	users.Get("/:id", auth.RequireCapability(domain.CapUserView), cfg.Users.Get)
}
