package ports

import "context"

// Notifier define el puerto de salida para emails transaccionales.
// Los métodos no devuelven error: un fallo de envío se registra y nunca
// interrumpe el flujo que lo invoca.
type Notifier interface {
	SendVerificationEmail(ctx context.Context, to, recipientName, token string)
	SendPasswordReset(ctx context.Context, to, recipientName, token string)
	SendEmployeeInvite(ctx context.Context, to, inviterName, businessName, token string)
}
