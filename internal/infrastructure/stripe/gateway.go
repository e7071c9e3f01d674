// Package stripe adaptador del puerto BillingGateway sobre la API de Stripe.
package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	stripego "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/jhoicas/autoplanner-api/internal/application/ports"
	"github.com/jhoicas/autoplanner-api/internal/domain"
	"github.com/jhoicas/autoplanner-api/internal/domain/entity"
	"github.com/jhoicas/autoplanner-api/pkg/config"
	"github.com/jhoicas/autoplanner-api/pkg/logger"
)

var _ ports.BillingGateway = (*Gateway)(nil)

// Tipos de evento que se concilian; el resto se ignora.
const (
	eventCheckoutCompleted    = "checkout.session.completed"
	eventInvoicePaid          = "invoice.payment_succeeded"
	eventInvoicePaymentFailed = "invoice.payment_failed"
	eventSubscriptionDeleted  = "customer.subscription.deleted"
	defaultTimeout            = 30 * time.Second
)

// Options configuración del gateway. APIURL solo se usa en tests (servidor falso).
type Options struct {
	SecretKey string
	Timeout   time.Duration
	Plans     config.PlanConfig
	APIURL    string
}

// Gateway cliente de Stripe sin reintentos automáticos: un timeout se propaga como error.
type Gateway struct {
	sc    *client.API
	plans map[string]entity.Plan
	log   *logger.Logger
}

// NewGateway construye el cliente con su propio http.Client acotado por Timeout.
func NewGateway(opts Options, log *logger.Logger) *Gateway {
	if log == nil {
		log = logger.Nop()
	}
	log = log.Component("stripe")
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	backendCfg := &stripego.BackendConfig{
		HTTPClient:        &http.Client{Timeout: timeout},
		MaxNetworkRetries: stripego.Int64(0),
		LeveledLogger:     leveledLogger{log: log},
	}
	if opts.APIURL != "" {
		backendCfg.URL = stripego.String(opts.APIURL)
	}
	api := stripego.GetBackendWithConfig(stripego.APIBackend, backendCfg)
	backends := &stripego.Backends{API: api, Connect: api, Uploads: api}

	return &Gateway{
		sc:    client.New(opts.SecretKey, backends),
		plans: planTable(opts.Plans),
		log:   log,
	}
}

func planTable(p config.PlanConfig) map[string]entity.Plan {
	table := make(map[string]entity.Plan, 4)
	for id, plan := range map[string]entity.Plan{
		p.FreePriceID:       entity.PlanFree,
		p.BasicPriceID:      entity.PlanBasic,
		p.ProPriceID:        entity.PlanPro,
		p.EnterprisePriceID: entity.PlanEnterprise,
	} {
		if id != "" {
			table[id] = plan
		}
	}
	return table
}

// CreateCustomer crea el cliente de facturación para email/nombre.
func (g *Gateway) CreateCustomer(ctx context.Context, email, name string) (string, error) {
	params := &stripego.CustomerParams{
		Email: stripego.String(email),
		Name:  stripego.String(name),
	}
	params.Context = ctx
	c, err := g.sc.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe crear cliente: %w", err)
	}
	return c.ID, nil
}

// DeleteCustomer elimina el cliente (compensación de un alta fallida).
func (g *Gateway) DeleteCustomer(ctx context.Context, customerID string) error {
	params := &stripego.CustomerParams{}
	params.Context = ctx
	if _, err := g.sc.Customers.Del(customerID, params); err != nil {
		return fmt.Errorf("stripe eliminar cliente %s: %w", customerID, err)
	}
	return nil
}

// CreateCheckoutSession sesión de suscripción, pago con tarjeta, cantidad 1.
func (g *Gateway) CreateCheckoutSession(ctx context.Context, in ports.CheckoutSession) (string, error) {
	params := &stripego.CheckoutSessionParams{
		Customer:           stripego.String(in.CustomerID),
		Mode:               stripego.String(string(stripego.CheckoutSessionModeSubscription)),
		PaymentMethodTypes: stripego.StringSlice([]string{"card"}),
		LineItems: []*stripego.CheckoutSessionLineItemParams{
			{Price: stripego.String(in.PriceID), Quantity: stripego.Int64(1)},
		},
		SuccessURL: stripego.String(in.SuccessURL),
		CancelURL:  stripego.String(in.CancelURL),
	}
	params.Context = ctx
	s, err := g.sc.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe crear checkout: %w", err)
	}
	return s.URL, nil
}

// ResolvePlan busca el precio del primer ítem de la suscripción. Precio desconocido → free.
// Ante un error de Stripe también devuelve free, junto con el error para que el caller lo registre.
func (g *Gateway) ResolvePlan(ctx context.Context, subscriptionID string) (entity.Plan, error) {
	params := &stripego.SubscriptionParams{}
	params.Context = ctx
	sub, err := g.sc.Subscriptions.Get(subscriptionID, params)
	if err != nil {
		return entity.PlanFree, fmt.Errorf("stripe obtener suscripción %s: %w", subscriptionID, err)
	}
	if sub.Items == nil || len(sub.Items.Data) == 0 || sub.Items.Data[0].Price == nil {
		return entity.PlanFree, nil
	}
	if plan, ok := g.plans[sub.Items.Data[0].Price.ID]; ok {
		return plan, nil
	}
	g.log.Warn().Str("price_id", sub.Items.Data[0].Price.ID).Msg("precio sin plan configurado, se usa free")
	return entity.PlanFree, nil
}

// ParseWebhook verifica la firma (Stripe-Signature) y traduce el evento a la unión de dominio.
func (g *Gateway) ParseWebhook(payload []byte, signatureHeader, secret string) (entity.BillingEvent, error) {
	if secret == "" || signatureHeader == "" {
		return nil, domain.ErrInvalidSignature
	}
	ev, err := webhook.ConstructEventWithOptions(payload, signatureHeader, secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}
	if ev.Data == nil {
		return nil, fmt.Errorf("%w: evento sin data", domain.ErrInvalidSignature)
	}
	meta := entity.EventMeta{ID: ev.ID, Type: string(ev.Type)}

	switch string(ev.Type) {
	case eventCheckoutCompleted:
		var s stripego.CheckoutSession
		if err := json.Unmarshal(ev.Data.Raw, &s); err != nil {
			return nil, fmt.Errorf("decodificar %s: %w", ev.Type, err)
		}
		return entity.CheckoutCompleted{
			EventMeta:      meta,
			SessionID:      s.ID,
			CustomerID:     customerID(s.Customer),
			SubscriptionID: subscriptionID(s.Subscription),
			Status:         string(s.Status),
			PaymentStatus:  string(s.PaymentStatus),
		}, nil

	case eventInvoicePaid:
		var inv stripego.Invoice
		if err := json.Unmarshal(ev.Data.Raw, &inv); err != nil {
			return nil, fmt.Errorf("decodificar %s: %w", ev.Type, err)
		}
		return entity.InvoicePaymentSucceeded{
			EventMeta:      meta,
			InvoiceID:      inv.ID,
			CustomerID:     customerID(inv.Customer),
			SubscriptionID: subscriptionID(inv.Subscription),
			AmountPaid:     MinorUnits(inv.AmountPaid, string(inv.Currency)),
			PeriodEnd:      invoicePeriodEnd(&inv),
		}, nil

	case eventInvoicePaymentFailed:
		var inv stripego.Invoice
		if err := json.Unmarshal(ev.Data.Raw, &inv); err != nil {
			return nil, fmt.Errorf("decodificar %s: %w", ev.Type, err)
		}
		return entity.InvoicePaymentFailed{
			EventMeta:      meta,
			InvoiceID:      inv.ID,
			CustomerID:     customerID(inv.Customer),
			SubscriptionID: subscriptionID(inv.Subscription),
			AmountDue:      MinorUnits(inv.AmountDue, string(inv.Currency)),
			AttemptCount:   inv.AttemptCount,
		}, nil

	case eventSubscriptionDeleted:
		var sub stripego.Subscription
		if err := json.Unmarshal(ev.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("decodificar %s: %w", ev.Type, err)
		}
		return entity.SubscriptionDeleted{
			EventMeta:      meta,
			SubscriptionID: sub.ID,
			CustomerID:     customerID(sub.Customer),
			CanceledAt:     unixTime(sub.CanceledAt),
		}, nil

	default:
		return entity.UnhandledEvent{EventMeta: meta}, nil
	}
}

func customerID(c *stripego.Customer) string {
	if c == nil {
		return ""
	}
	return c.ID
}

func subscriptionID(s *stripego.Subscription) string {
	if s == nil {
		return ""
	}
	return s.ID
}

func invoicePeriodEnd(inv *stripego.Invoice) *time.Time {
	if inv.Lines != nil && len(inv.Lines.Data) > 0 && inv.Lines.Data[0].Period != nil {
		return unixTime(inv.Lines.Data[0].Period.End)
	}
	return unixTime(inv.PeriodEnd)
}

func unixTime(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}

// Monedas sin subunidad: el importe de Stripe ya está en unidades.
var zeroDecimalCurrencies = map[string]bool{
	"bif": true, "clp": true, "djf": true, "gnf": true, "jpy": true, "kmf": true, "krw": true,
	"mga": true, "pyg": true, "rwf": true, "ugx": true, "vnd": true, "vuv": true, "xaf": true,
	"xof": true, "xpf": true,
}

// MinorUnits convierte un importe de Stripe (unidades menores) a decimal.
func MinorUnits(amount int64, currency string) decimal.Decimal {
	if zeroDecimalCurrencies[strings.ToLower(currency)] {
		return decimal.NewFromInt(amount)
	}
	return decimal.New(amount, -2)
}

// leveledLogger redirige los logs internos de stripe-go a zerolog.
type leveledLogger struct {
	log *logger.Logger
}

func (l leveledLogger) Debugf(format string, v ...interface{}) {
	l.log.Debug().Msgf(format, v...)
}

func (l leveledLogger) Infof(format string, v ...interface{}) {
	l.log.Debug().Msgf(format, v...)
}

func (l leveledLogger) Warnf(format string, v ...interface{}) {
	l.log.Warn().Msgf(format, v...)
}

func (l leveledLogger) Errorf(format string, v ...interface{}) {
	l.log.Error().Msgf(format, v...)
}
