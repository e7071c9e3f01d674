// repair completa el aprovisionamiento de cuentas que quedaron a medias
// (usuario sin negocio o marcado con provisioning_incomplete).
//
// Uso: go run ./cmd/repair [-limit 100] [-every 5m]
// Sin -every corre una sola pasada y termina.
package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"github.com/jhoicas/autoplanner-api/internal/application/account"
	"github.com/jhoicas/autoplanner-api/internal/infrastructure/postgres"
	"github.com/jhoicas/autoplanner-api/internal/infrastructure/resend"
	infrastripe "github.com/jhoicas/autoplanner-api/internal/infrastructure/stripe"
	"github.com/jhoicas/autoplanner-api/pkg/config"
	"github.com/jhoicas/autoplanner-api/pkg/logger"
	"github.com/jhoicas/autoplanner-api/pkg/password"
	"github.com/jhoicas/autoplanner-api/pkg/token"
)

func main() {
	limit := flag.Int("limit", 100, "máximo de cuentas por pasada")
	every := flag.Duration("every", 0, "intervalo entre pasadas (0 = una sola)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: "autoplanner-repair"})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	opTimeout := cfg.DB.OperationTimeout
	svc := account.NewService(account.Deps{
		Users: postgres.NewUserRepository(pool, opTimeout),
		Tx:    postgres.NewTxRunner(pool, opTimeout),
		Billing: infrastripe.NewGateway(infrastripe.Options{
			SecretKey: cfg.Stripe.SecretKey,
			Timeout:   cfg.Stripe.Timeout,
			Plans:     cfg.Plans,
		}, log),
		Notifier:           resend.NewNotifier(cfg.Email, cfg.App.BaseURL, log),
		Hasher:             password.NewBcryptHasher(password.DefaultCost),
		VerificationTokens: token.NewIssuer(cfg.Tokens.VerificationTTL),
		ResetTokens:        token.NewIssuer(cfg.Tokens.PasswordResetTTL),
		Log:                log,
	})

	run := func() {
		n, err := svc.ResumeIncomplete(ctx, *limit)
		if err != nil {
			log.Error().Err(err).Int("repaired", n).Msg("pasada de reparación interrumpida")
			return
		}
		log.Info().Int("repaired", n).Msg("pasada de reparación terminada")
	}

	run()
	if *every <= 0 {
		return
	}

	ticker := time.NewTicker(*every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("reparación detenida")
			return
		case <-ticker.C:
			run()
		}
	}
}
