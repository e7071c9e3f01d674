// Package account contiene los flujos de aprovisionamiento de cuentas,
// verificación de email y reseteo de contraseña.
package account

import (
	"context"
	"strings"
	"time"

	"github.com/jhoicas/autoplanner-api/internal/application/dto"
	"github.com/jhoicas/autoplanner-api/internal/application/ports"
	"github.com/jhoicas/autoplanner-api/internal/domain"
	"github.com/jhoicas/autoplanner-api/internal/domain/repository"
	"github.com/jhoicas/autoplanner-api/pkg/logger"
)

// Deps dependencias del servicio. Now es opcional (tests).
type Deps struct {
	Users              repository.UserRepository
	Tx                 repository.AccountTxRunner
	Billing            ports.BillingGateway
	Notifier           ports.Notifier
	Hasher             ports.PasswordHasher
	VerificationTokens ports.TokenIssuer
	ResetTokens        ports.TokenIssuer
	Log                *logger.Logger
	Now                func() time.Time
}

// Service casos de uso de cuentas.
type Service struct {
	users              repository.UserRepository
	tx                 repository.AccountTxRunner
	billing            ports.BillingGateway
	notifier           ports.Notifier
	hasher             ports.PasswordHasher
	verificationTokens ports.TokenIssuer
	resetTokens        ports.TokenIssuer
	log                *logger.Logger
	now                func() time.Time
}

// NewService construye el servicio de cuentas.
func NewService(d Deps) *Service {
	log := d.Log
	if log == nil {
		log = logger.Nop()
	}
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		users:              d.Users,
		tx:                 d.Tx,
		billing:            d.Billing,
		notifier:           d.Notifier,
		hasher:             d.Hasher,
		verificationTokens: d.VerificationTokens,
		resetTokens:        d.ResetTokens,
		log:                log.Component("account"),
		now:                now,
	}
}

// GetUser devuelve el usuario redactado.
func (s *Service) GetUser(ctx context.Context, id string) (*dto.UserResponse, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.NewValidationError(MsgUserIDRequired)
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, domain.Internal("buscar usuario", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return ToUserResponse(user), nil
}
