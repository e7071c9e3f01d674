package account

import (
	"context"
	"errors"
	"strings"

	"github.com/jhoicas/autoplanner-api/internal/domain"
	"github.com/jhoicas/autoplanner-api/internal/domain/entity"
	"github.com/jhoicas/autoplanner-api/pkg/password"
	"github.com/jhoicas/autoplanner-api/pkg/token"
)

// RequestPasswordReset emite un token de reseteo y lo envía por email.
// Para no revelar qué emails están registrados, un email desconocido o una cuenta
// solo-Google terminan sin error y sin envío.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		return domain.NewValidationError(MsgEmailRequired)
	}
	user, err := s.users.GetByEmail(ctx, entity.NormalizeEmail(email))
	if err != nil {
		return domain.Internal("buscar usuario por email", err)
	}
	if user == nil {
		s.log.Debug().Msg("reseteo solicitado para email desconocido")
		return nil
	}
	if password.IsOAuthSentinel(user.PasswordHash) {
		s.log.Debug().Str("user_id", user.ID).Msg("reseteo solicitado para cuenta Google")
		return nil
	}

	tok, err := s.resetTokens.Issue()
	if err != nil {
		return domain.Internal("emitir token de reseteo", err)
	}
	patch := entity.UserPatch{PasswordReset: &entity.TokenDigest{Digest: tok.Digest, ExpiresAt: tok.ExpiresAt}}
	if err := s.users.Update(ctx, user.ID, patch); err != nil {
		return domain.Internal("guardar token de reseteo", err)
	}
	s.notifier.SendPasswordReset(ctx, user.Email, user.Name, tok.Value)
	return nil
}

// ResetPassword consume el token de reseteo y reemplaza la contraseña en la misma operación.
func (s *Service) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return domain.NewValidationError(MsgResetTokenNeeded)
	}
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return domain.Internal("hashear contraseña", err)
	}
	user, err := s.users.ConsumePasswordResetToken(ctx, token.Digest(rawToken), s.now(), hash)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidToken) {
			return domain.ErrInvalidToken
		}
		return domain.Internal("consumir token de reseteo", err)
	}
	if user == nil {
		return domain.ErrInvalidToken
	}
	s.log.Info().Str("user_id", user.ID).Msg("contraseña actualizada")
	return nil
}
