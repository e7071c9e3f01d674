package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/autoplanner-api/internal/application/account"
	"github.com/jhoicas/autoplanner-api/internal/application/auth"
	"github.com/jhoicas/autoplanner-api/internal/application/billing"
	"github.com/jhoicas/autoplanner-api/internal/infrastructure/google"
	"github.com/jhoicas/autoplanner-api/internal/infrastructure/postgres"
	"github.com/jhoicas/autoplanner-api/internal/infrastructure/resend"
	infrastripe "github.com/jhoicas/autoplanner-api/internal/infrastructure/stripe"
	httpRouter "github.com/jhoicas/autoplanner-api/internal/interfaces/http"
	"github.com/jhoicas/autoplanner-api/pkg/config"
	"github.com/jhoicas/autoplanner-api/pkg/logger"
	"github.com/jhoicas/autoplanner-api/pkg/password"
	"github.com/jhoicas/autoplanner-api/pkg/token"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("migraciones")
	}

	opTimeout := cfg.DB.OperationTimeout
	userRepo := postgres.NewUserRepository(pool, opTimeout)
	businessRepo := postgres.NewBusinessRepository(pool, opTimeout)
	txRunner := postgres.NewTxRunner(pool, opTimeout)

	if cfg.Stripe.SecretKey == "" {
		log.Warn().Msg("STRIPE_SECRET_KEY vacío: las llamadas a Stripe fallarán")
	}
	billingGateway := infrastripe.NewGateway(infrastripe.Options{
		SecretKey: cfg.Stripe.SecretKey,
		Timeout:   cfg.Stripe.Timeout,
		Plans:     cfg.Plans,
	}, log)
	notifier := resend.NewNotifier(cfg.Email, cfg.App.BaseURL, log)
	if cfg.Google.ClientID == "" {
		log.Warn().Msg("GOOGLE_CLIENT_ID vacío: el inicio de sesión con Google queda deshabilitado")
	}
	verifier := google.NewVerifier(cfg.Google.ClientID, cfg.Google.JWKSURL)
	hasher := password.NewBcryptHasher(password.DefaultCost)

	accountSvc := account.NewService(account.Deps{
		Users:              userRepo,
		Tx:                 txRunner,
		Billing:            billingGateway,
		Notifier:           notifier,
		Hasher:             hasher,
		VerificationTokens: token.NewIssuer(cfg.Tokens.VerificationTTL),
		ResetTokens:        token.NewIssuer(cfg.Tokens.PasswordResetTTL),
		Log:                log,
	})
	authUC := auth.NewAuthUseCase(userRepo, accountSvc, hasher, verifier, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	}, log)
	checkoutUC := billing.NewCheckoutUseCase(userRepo, businessRepo, billingGateway, cfg.App.BaseURL, []string{
		cfg.Plans.FreePriceID,
		cfg.Plans.BasicPriceID,
		cfg.Plans.ProPriceID,
		cfg.Plans.EnterprisePriceID,
	}, log)
	reconcileUC := billing.NewReconcileUseCase(txRunner, billingGateway, log)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
		ErrorHandler: httpRouter.ErrorHandler(log),
	})
	app.Use(httpRouter.RequestID())
	app.Use(httpRouter.Recover(log))
	app.Use(httpRouter.RequestLogger(log))

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "AutoPlanner API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Accounts:      accountSvc,
		AuthUC:        authUC,
		Checkout:      checkoutUC,
		Reconcile:     reconcileUC,
		JWTSecret:     cfg.JWT.Secret,
		WebhookSecret: cfg.WebhookSecret(),
		AuthRateLimit: cfg.HTTP.AuthRateLimit,
		Log:           log,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
