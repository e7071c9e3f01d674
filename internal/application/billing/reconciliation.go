package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/autoplanner-api/internal/application/ports"
	"github.com/jhoicas/autoplanner-api/internal/domain"
	"github.com/jhoicas/autoplanner-api/internal/domain/entity"
	"github.com/jhoicas/autoplanner-api/internal/domain/repository"
	"github.com/jhoicas/autoplanner-api/pkg/logger"
)

// ReconcileUseCase aplica los eventos de facturación al snapshot de suscripción
// del usuario y de su negocio. Las escrituras son asignaciones absolutas: reentregar
// un evento converge al mismo estado.
type ReconcileUseCase struct {
	tx      repository.AccountTxRunner
	billing ports.BillingGateway
	log     *logger.Logger
}

// NewReconcileUseCase construye el caso de uso.
func NewReconcileUseCase(tx repository.AccountTxRunner, billing ports.BillingGateway, log *logger.Logger) *ReconcileUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &ReconcileUseCase{tx: tx, billing: billing, log: log.Component("reconcile")}
}

// transition estado resultante de un evento.
type transition struct {
	status    entity.SubscriptionStatus
	plan      *entity.Plan // nil: se conserva el plan actual
	access    bool
	periodEnd *time.Time
	amount    *decimal.Decimal
	// detail campos propios del evento para la línea de log final.
	detail    func(*zerolog.Event)
}

// HandleWebhook verifica la firma y aplica el evento. Sin firma válida no hay ninguna escritura.
func (uc *ReconcileUseCase) HandleWebhook(ctx context.Context, payload []byte, signatureHeader, secret string) error {
	ev, err := uc.billing.ParseWebhook(payload, signatureHeader, secret)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidSignature) {
			return err
		}
		return fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}
	return uc.Apply(ctx, ev)
}

// Apply despacha el evento ya verificado.
func (uc *ReconcileUseCase) Apply(ctx context.Context, ev entity.BillingEvent) error {
	switch e := ev.(type) {
	case entity.CheckoutCompleted:
		plan := uc.resolvePlan(ctx, e.SubscriptionID)
		return uc.apply(ctx, e.EventMeta, e.CustomerID, transition{
			status: entity.SubscriptionStatus(e.Status),
			plan:   &plan,
			access: true,
			detail: func(ev *zerolog.Event) {
				ev.Str("session_id", e.SessionID).Str("payment_status", e.PaymentStatus)
			},
		})

	case entity.InvoicePaymentSucceeded:
		plan := uc.resolvePlan(ctx, e.SubscriptionID)
		amount := e.AmountPaid
		return uc.apply(ctx, e.EventMeta, e.CustomerID, transition{
			status:    entity.StatusActive,
			plan:      &plan,
			access:    true,
			periodEnd: e.PeriodEnd,
			amount:    &amount,
			detail: func(ev *zerolog.Event) {
				ev.Str("invoice_id", e.InvoiceID).Str("amount_paid", amount.String())
			},
		})

	case entity.InvoicePaymentFailed:
		plan := uc.resolvePlan(ctx, e.SubscriptionID)
		return uc.apply(ctx, e.EventMeta, e.CustomerID, transition{
			status: entity.StatusPastDue,
			plan:   &plan,
			access: false,
			detail: func(ev *zerolog.Event) {
				ev.Str("invoice_id", e.InvoiceID).
					Str("amount_due", e.AmountDue.String()).
					Int64("attempt_count", e.AttemptCount)
			},
		})

	case entity.SubscriptionDeleted:
		none := entity.PlanNone
		return uc.apply(ctx, e.EventMeta, e.CustomerID, transition{
			status: entity.StatusCanceled,
			plan:   &none,
			access: false,
			detail: func(ev *zerolog.Event) {
				if e.CanceledAt != nil {
					ev.Time("canceled_at", *e.CanceledAt)
				}
			},
		})

	case entity.UnhandledEvent:
		uc.log.Debug().Str("event_id", e.ID).Str("type", e.Type).Msg("evento ignorado")
		return nil

	default:
		return domain.Internal("conciliar evento", fmt.Errorf("tipo de evento no soportado %T", ev))
	}
}

// resolvePlan nunca falla: ante error del proveedor el plan es free.
func (uc *ReconcileUseCase) resolvePlan(ctx context.Context, subscriptionID string) entity.Plan {
	if subscriptionID == "" {
		return entity.PlanFree
	}
	plan, err := uc.billing.ResolvePlan(ctx, subscriptionID)
	if err != nil {
		uc.log.Warn().Err(err).Str("subscription_id", subscriptionID).Msg("no se pudo resolver el plan, se usa free")
		return entity.PlanFree
	}
	return plan
}

func (uc *ReconcileUseCase) apply(ctx context.Context, meta entity.EventMeta, customerID string, t transition) error {
	log := uc.log.With().Str("event_id", meta.ID).Str("type", meta.Type).Str("customer_id", customerID).Logger()
	if customerID == "" {
		log.Warn().Msg("evento sin customer id, se ignora")
		return nil
	}

	var userID, businessID string
	err := uc.tx.Run(ctx, func(users repository.UserRepository, businesses repository.BusinessRepository) error {
		user, err := users.GetByCustomerID(ctx, customerID)
		if err != nil {
			return err
		}
		if user == nil {
			return nil
		}
		userID = user.ID

		sub := user.Subscription
		sub.CustomerID = customerID
		sub.Status = t.status
		if t.plan != nil {
			sub.Plan = *t.plan
		}
		access := t.access
		if err := users.Update(ctx, user.ID, entity.UserPatch{Subscription: &sub, DashboardAccess: &access}); err != nil {
			return err
		}

		if !user.HasBusiness() {
			return nil
		}
		business, err := businesses.GetByID(ctx, user.BusinessID)
		if err != nil {
			return err
		}
		if business == nil {
			return nil
		}
		businessID = business.ID
		bsub := business.Subscription
		bsub.CustomerID = customerID
		bsub.Status = t.status
		if t.plan != nil {
			bsub.Plan = *t.plan
		}
		if t.periodEnd != nil {
			bsub.CurrentPeriodEnd = t.periodEnd
		}
		if t.amount != nil {
			bsub.LastPaymentAmount = t.amount
		}
		return businesses.UpdateSubscription(ctx, business.ID, bsub)
	})
	if err != nil {
		return domain.Internal("conciliar suscripción", err)
	}
	if userID == "" {
		log.Warn().Msg("customer id sin usuario asociado, se ignora")
		return nil
	}
	ev := log.Info().
		Str("user_id", userID).
		Str("business_id", businessID).
		Str("status", string(t.status)).
		Bool("dashboard_access", t.access)
	if t.plan != nil {
		ev.Str("plan", string(*t.plan))
	}
	if t.detail != nil {
		t.detail(ev)
	}
	ev.Msg("suscripción conciliada")
	return nil
}
