package routes

import (
	"time"

	"paydesk/internal/adapters/http/handlers"
	"paydesk/internal/adapters/http/middleware"
	"paydesk/internal/adapters/persistence/repositories"
	"paydesk/internal/config"
	"paydesk/internal/core/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
)

// Deps are the collaborators built by main
type Deps struct {
	Config   *config.Config
	API      services.PayrollAPI
	Cipher   services.Cipher
	Registry *services.SessionRegistry
	Health   repositories.HealthChecker
}

// Setup configures all routes for the application
func Setup(app *fiber.App, deps *Deps) {
	cfg := deps.Config

	// Initialize services
	authService := services.NewAuthService(deps.API, deps.Registry, cfg)
	loanService := services.NewLoanService(deps.API, cfg)

	// Initialize handlers
	cookies := middleware.NewSessionCookie(cfg, deps.Cipher)
	errorResponder := handlers.NewErrorResponder(authService, cookies)

	healthHandler := handlers.NewHealthHandler(deps.Health, cfg)
	authHandler := handlers.NewAuthHandler(authService, cookies, errorResponder)
	loanHandler := handlers.NewLoanHandler(loanService, errorResponder)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API v1 group
	apiV1 := app.Group("/api/v1", middleware.DeviceMiddleware(cookies))
	requireSession := middleware.SessionMiddleware(cookies, deps.Registry)

	// Auth routes
	auth := apiV1.Group("/auth")
	auth.Post("/login", middleware.AuthRateLimiter(), authHandler.Login)
	auth.Get("/remembered", middleware.NoCacheHeaders(), authHandler.Remembered)
	auth.Delete("/remembered", authHandler.Forget)
	auth.Post("/logout", requireSession, authHandler.Logout)
	auth.Get("/me", requireSession, middleware.NoCacheHeaders(), authHandler.Me)

	// Loan routes
	loans := apiV1.Group("/loans", requireSession)
	loans.Get("/", middleware.NoCacheHeaders(), loanHandler.ListLoans)
	loans.Get("/options", middleware.PrivateCacheHeaders(5*time.Minute), loanHandler.Options)
	loans.Get("/:id/installments", middleware.NoCacheHeaders(), loanHandler.Installments)
	loans.Post("/:id/installments/:itemId/pay", loanHandler.PayInstallment)
	loans.Post("/:id/delete-intent", loanHandler.RequestDelete)
	loans.Delete("/:id/delete-intent", loanHandler.CancelDelete)
	loans.Delete("/:id", loanHandler.ConfirmDelete)

	// Advance routes
	advances := apiV1.Group("/advances", requireSession)
	advances.Get("/:id/payments", middleware.NoCacheHeaders(), loanHandler.AdvancePayments)
	advances.Post("/:id/payments", loanHandler.AddAdvancePayment)
}
