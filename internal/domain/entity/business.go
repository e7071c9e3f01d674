package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Business negocio propiedad de un usuario (1:1 por ahora; modelado como referencia).
type Business struct {
	ID           string
	Name         string
	OwnerID      string
	Subscription BusinessSubscription
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// BusinessSubscription espejo del snapshot de facturación del dueño.
// CustomerID debe coincidir con User.Subscription.CustomerID.
type BusinessSubscription struct {
	CustomerID        string
	Status            SubscriptionStatus
	Plan              Plan
	CurrentPeriodEnd  *time.Time
	LastPaymentAmount *decimal.Decimal
}
