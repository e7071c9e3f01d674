package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillingEvent unión cerrada de eventos de facturación ya verificados.
// Solo los tipos de este paquete la implementan (método no exportado);
// los consumidores hacen un type switch sobre todos los casos.
type BillingEvent interface {
	EventID() string
	billingEvent()
}

// EventMeta campos comunes a todos los eventos.
type EventMeta struct {
	ID   string
	Type string
}

func (m EventMeta) EventID() string { return m.ID }

// CheckoutCompleted checkout.session.completed
type CheckoutCompleted struct {
	EventMeta
	SessionID      string
	CustomerID     string
	SubscriptionID string
	Status         string // estado de la sesión según el proveedor
	PaymentStatus  string
}

// InvoicePaymentSucceeded invoice.payment_succeeded
type InvoicePaymentSucceeded struct {
	EventMeta
	InvoiceID      string
	CustomerID     string
	SubscriptionID string
	AmountPaid     decimal.Decimal
	PeriodEnd      *time.Time
}

// InvoicePaymentFailed invoice.payment_failed
type InvoicePaymentFailed struct {
	EventMeta
	InvoiceID      string
	CustomerID     string
	SubscriptionID string
	AmountDue      decimal.Decimal
	AttemptCount   int64
}

// SubscriptionDeleted customer.subscription.deleted
type SubscriptionDeleted struct {
	EventMeta
	SubscriptionID string
	CustomerID     string
	CanceledAt     *time.Time
}

// UnhandledEvent cualquier otro tipo: se reconoce (200) y se ignora.
type UnhandledEvent struct {
	EventMeta
}

func (CheckoutCompleted) billingEvent()       {}
func (InvoicePaymentSucceeded) billingEvent() {}
func (InvoicePaymentFailed) billingEvent()    {}
func (SubscriptionDeleted) billingEvent()     {}
func (UnhandledEvent) billingEvent()          {}

// OAuthProfile identidad verificada devuelta por un proveedor OAuth.
type OAuthProfile struct {
	Provider      string
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}
