package entity

// SubscriptionStatus estado de suscripción. Además de los valores propios puede
// contener el estado que reporta el proveedor (ej. "complete" de una sesión de checkout).
type SubscriptionStatus string

const (
	StatusUnsubscribed SubscriptionStatus = "unsubscribed"
	StatusActive       SubscriptionStatus = "active"
	StatusPastDue      SubscriptionStatus = "past_due"
	StatusCanceled     SubscriptionStatus = "canceled"
)

// Plan plan contratado.
type Plan string

const (
	PlanNone       Plan = ""
	PlanFree       Plan = "free"
	PlanBasic      Plan = "basic"
	PlanPro        Plan = "pro"
	PlanEnterprise Plan = "enterprise"
)
