package ports

import (
	"context"

	"github.com/jhoicas/autoplanner-api/internal/domain/entity"
)

// CheckoutSession parámetros para abrir una sesión de checkout de suscripción.
type CheckoutSession struct {
	CustomerID string
	PriceID    string
	SuccessURL string
	CancelURL  string
}

// BillingGateway define el puerto de salida hacia el proveedor de pagos.
// Las llamadas de red deben respetar el timeout del contexto; un timeout es un error interno.
type BillingGateway interface {
	CreateCustomer(ctx context.Context, email, name string) (customerID string, err error)
	// DeleteCustomer compensa CreateCustomer cuando el aprovisionamiento falla.
	DeleteCustomer(ctx context.Context, customerID string) error
	CreateCheckoutSession(ctx context.Context, in CheckoutSession) (checkoutURL string, err error)
	// ParseWebhook verifica la firma y traduce el evento. Firma inválida → domain.ErrInvalidSignature.
	ParseWebhook(payload []byte, signatureHeader, secret string) (entity.BillingEvent, error)
	// ResolvePlan traduce la suscripción a un plan conocido; precio desconocido → PlanFree.
	ResolvePlan(ctx context.Context, subscriptionID string) (entity.Plan, error)
}
