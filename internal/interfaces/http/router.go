package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/autoplanner-api/internal/application/account"
	"github.com/jhoicas/autoplanner-api/internal/application/auth"
	"github.com/jhoicas/autoplanner-api/internal/application/billing"
	"github.com/jhoicas/autoplanner-api/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Accounts      *account.Service
	AuthUC        *auth.AuthUseCase
	Checkout      *billing.CheckoutUseCase
	Reconcile     *billing.ReconcileUseCase
	JWTSecret     string
	WebhookSecret string
	// AuthRateLimit peticiones por minuto e IP en rutas de credenciales; 0 = sin límite.
	AuthRateLimit int
	Log           *logger.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	api := app.Group("/api")
	requireSession := AuthMiddleware(deps.JWTSecret)
	limited := RateLimit(deps.AuthRateLimit, time.Minute)

	userHandler := NewUserHandler(deps.Accounts, log)
	authHandler := NewAuthHandler(deps.AuthUC, log)
	billingHandler := NewBillingHandler(deps.Checkout, deps.Reconcile, deps.WebhookSecret, log)

	// Registro (público) y perfil propio (protegido)
	api.Post("/user", limited, userHandler.Signup)
	api.Get("/user", requireSession, userHandler.Get)

	// Auth (público salvo /session)
	authGroup := api.Group("/auth")
	authGroup.Get("/verify-email", userHandler.VerifyEmail)
	authGroup.Post("/verify-email", limited, userHandler.ResendVerification)
	authGroup.Post("/signin", limited, authHandler.SignIn)
	authGroup.Post("/google", limited, authHandler.Google)
	authGroup.Post("/session", requireSession, authHandler.Session)
	authGroup.Post("/password/forgot", limited, userHandler.ForgotPassword)
	authGroup.Post("/password/reset", limited, userHandler.ResetPassword)

	// Facturación: el webhook se autentica por firma, no por sesión
	api.Post("/checkout-stipe", requireSession, billingHandler.Checkout)
	api.Post("/webhooks", billingHandler.Webhook)

	// Dashboard (sesión + suscripción vigente)
	dashboard := api.Group("/dashboard", requireSession, RequireDashboardAccess(deps.AuthUC, log))
	dashboard.Get("/access", authHandler.DashboardAccess)
}
