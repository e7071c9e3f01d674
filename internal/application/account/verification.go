package account

import (
	"context"
	"errors"
	"strings"

	"github.com/jhoicas/autoplanner-api/internal/domain"
	"github.com/jhoicas/autoplanner-api/internal/domain/entity"
	"github.com/jhoicas/autoplanner-api/pkg/token"
)

// VerifyEmail consume el token de verificación (un solo uso, vencimiento incluido).
func (s *Service) VerifyEmail(ctx context.Context, rawToken string) error {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return domain.NewValidationError(MsgTokenRequired)
	}
	user, err := s.users.ConsumeVerificationToken(ctx, token.Digest(rawToken), s.now())
	if err != nil {
		if errors.Is(err, domain.ErrInvalidToken) {
			return domain.ErrInvalidToken
		}
		return domain.Internal("consumir token de verificación", err)
	}
	if user == nil {
		return domain.ErrInvalidToken
	}
	s.log.Info().Str("user_id", user.ID).Msg("email verificado")
	return nil
}

// ResendVerification emite un token nuevo (invalida el anterior) y reenvía el email.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		return domain.NewValidationError(MsgEmailRequired)
	}
	user, err := s.users.GetByEmail(ctx, entity.NormalizeEmail(email))
	if err != nil {
		return domain.Internal("buscar usuario por email", err)
	}
	if user == nil {
		return domain.ErrUserNotFound
	}
	if user.EmailVerified {
		return domain.ErrAlreadyVerified
	}

	tok, err := s.verificationTokens.Issue()
	if err != nil {
		return domain.Internal("emitir token de verificación", err)
	}
	patch := entity.UserPatch{Verification: &entity.TokenDigest{Digest: tok.Digest, ExpiresAt: tok.ExpiresAt}}
	if err := s.users.Update(ctx, user.ID, patch); err != nil {
		return domain.Internal("guardar token de verificación", err)
	}
	s.notifier.SendVerificationEmail(ctx, user.Email, user.Name, tok.Value)
	return nil
}
