package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tableflow/order-service/internal/api/http/handlers"
	"github.com/tableflow/order-service/internal/auth"
	"github.com/tableflow/order-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Access         *handlers.AccessHandler
	Orders         *handlers.OrdersHandler
	Invoices       *handlers.InvoicesHandler
	Push           *handlers.PushHandler
	AuthMiddleware *auth.AuthMiddleware
	Gate           *auth.Gatekeeper
	LoginLimiter   *auth.LoginLimiter
}

// RegisterRoutes wires HTTP routes. Every request is identified first; the
// gate then applies each route's declared requirement.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authenticated := cfg.Gate.RequireAuthenticated()

	authGroup := app.Group("/auth", cfg.AuthMiddleware.Identify)
	authGroup.Post("/signup", cfg.Auth.SignUp)
	authGroup.Post("/verify", cfg.Auth.Verify)
	authGroup.Post("/login", cfg.LoginLimiter.Handler(), cfg.Auth.Login)
	authGroup.Post("/logout", authenticated, cfg.Auth.Logout)
	authGroup.Post("/password/reset/request", cfg.Auth.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", cfg.Auth.ConfirmPasswordReset)
	authGroup.Post("/password/change", authenticated, cfg.Auth.ChangePassword)

	api := app.Group("/api", cfg.AuthMiddleware.Identify)
	api.Get("/me", authenticated, cfg.Auth.Me)
	api.Get("/access", cfg.Access.Check)
	api.Get("/access/watch", cfg.Access.Watch)

	api.Post("/users", cfg.Gate.RequireRoles(domain.RoleAdmin), cfg.Auth.CreateUser)

	api.Post("/orders", cfg.Gate.RequireRoles(domain.RoleCustomer, domain.RoleSeller), cfg.Orders.Create)
	api.Get("/orders", authenticated, cfg.Orders.List)
	api.Get("/orders/:id", authenticated, cfg.Orders.Get)
	api.Post("/orders/:id/status",
		cfg.Gate.RequireRoles(domain.RoleAdmin, domain.RoleManager, domain.RoleDelivery, domain.RoleCustomer),
		cfg.Orders.UpdateStatus)
	api.Post("/orders/:id/assign", cfg.Gate.RequireRoles(domain.RoleAdmin, domain.RoleManager), cfg.Orders.Assign)

	billers := cfg.Gate.RequireRoles(domain.RoleAdmin, domain.RoleManager, domain.RoleSeller)
	api.Post("/invoices", billers, cfg.Invoices.Build)
	api.Post("/invoices/html", billers, cfg.Invoices.HTML)
	api.Post("/invoices/pdf", billers, cfg.Invoices.PDF)

	api.Get("/push/vapid-key", cfg.Push.VAPIDKey)
	api.Put("/push/subscriptions", authenticated, cfg.Push.Subscribe)
	api.Delete("/push/subscriptions", authenticated, cfg.Push.Unsubscribe)
	api.Post("/push/resubscribe", authenticated, cfg.Push.Resubscribe)
}
