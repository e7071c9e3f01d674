package account

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/jhoicas/autoplanner-api/internal/application/dto"
	"github.com/jhoicas/autoplanner-api/internal/domain"
	"github.com/jhoicas/autoplanner-api/internal/domain/entity"
	"github.com/jhoicas/autoplanner-api/internal/domain/repository"
)

// Register registra un usuario por credenciales y le aprovisiona cliente de facturación y negocio.
// Pasos en orden estricto: validar, unicidad, hash, token, crear usuario, email,
// cliente de facturación, negocio + vínculo (misma transacción).
// Si falla algo después de crear el usuario, se compensa en orden inverso; si una
// compensación falla el usuario queda marcado para el job de reparación.
func (s *Service) Register(ctx context.Context, in dto.SignupRequest) (*dto.UserResponse, error) {
	if err := ValidateSignup(in); err != nil {
		return nil, err
	}
	email := entity.NormalizeEmail(in.Email)

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, domain.Internal("buscar usuario por email", err)
	}
	if existing != nil {
		return nil, domain.ErrEmailAlreadyExists
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, domain.Internal("hashear contraseña", err)
	}
	tok, err := s.verificationTokens.Issue()
	if err != nil {
		return nil, domain.Internal("emitir token de verificación", err)
	}

	now := s.now()
	expires := tok.ExpiresAt
	user := &entity.User{
		ID:                      uuid.New().String(),
		Name:                    strings.TrimSpace(in.Name),
		Email:                   email,
		PhoneNumber:             strings.TrimSpace(in.PhoneNumber),
		PasswordHash:            hash,
		VerificationTokenDigest: tok.Digest,
		VerificationExpiresAt:   &expires,
		DashboardAccess:         false,
		Subscription:            entity.UserSubscription{Status: entity.StatusUnsubscribed},
		CreatedAt:               now,
		UpdatedAt:               now,
	}
	outcome, err := s.users.Create(ctx, user)
	if err != nil {
		return nil, domain.Internal("crear usuario", err)
	}
	if outcome == entity.AlreadyExists {
		// Otro signup concurrente ganó la carrera por el índice único.
		return nil, domain.ErrEmailAlreadyExists
	}
	log := s.log.With().Str("user_id", user.ID).Logger()
	log.Info().Msg("usuario creado")

	var sg saga
	sg.add("eliminar usuario", func(ctx context.Context) error {
		return s.users.Delete(ctx, user.ID)
	})

	s.notifier.SendVerificationEmail(ctx, user.Email, user.Name, tok.Value)

	if err := s.provision(ctx, user, &sg); err != nil {
		if cerr := sg.rollback(ctx); cerr != nil {
			log.Error().Err(cerr).Msg("compensación incompleta, se marca el usuario para reparación")
			s.markIncomplete(ctx, user.ID)
		} else {
			log.Warn().Err(err).Msg("aprovisionamiento revertido")
		}
		return nil, err
	}
	log.Info().Str("business_id", user.BusinessID).Msg("cuenta aprovisionada")
	return ToUserResponse(user), nil
}

// CompleteProvisioning ejecuta los pasos de facturación y negocio para un usuario ya creado
// (alta por Google o reparación). Es idempotente: reutiliza el cliente de facturación y el
// negocio si ya existen. En caso de error solo compensa lo que creó en esta llamada.
func (s *Service) CompleteProvisioning(ctx context.Context, user *entity.User) error {
	var sg saga
	if err := s.provision(ctx, user, &sg); err != nil {
		if cerr := sg.rollback(ctx); cerr != nil {
			s.log.Error().Err(cerr).Str("user_id", user.ID).Msg("compensación incompleta")
		}
		s.markIncomplete(ctx, user.ID)
		return err
	}
	return nil
}

// provision pasos 7 a 9. Actualiza user con el negocio y el cliente vinculados.
func (s *Service) provision(ctx context.Context, user *entity.User, sg *saga) error {
	customerID := user.Subscription.CustomerID
	if customerID == "" {
		id, err := s.billing.CreateCustomer(ctx, user.Email, user.Name)
		if err != nil {
			return domain.Internal("crear cliente de facturación", err)
		}
		customerID = id
		sg.add("eliminar cliente de facturación", func(ctx context.Context) error {
			return s.billing.DeleteCustomer(ctx, id)
		})
	}

	var business *entity.Business
	err := s.tx.Run(ctx, func(users repository.UserRepository, businesses repository.BusinessRepository) error {
		b, err := businesses.GetByOwner(ctx, user.ID)
		if err != nil {
			return err
		}
		if b == nil {
			now := s.now()
			b = &entity.Business{
				ID:      uuid.New().String(),
				Name:    user.Name,
				OwnerID: user.ID,
				Subscription: entity.BusinessSubscription{
					CustomerID: customerID,
					Status:     entity.StatusUnsubscribed,
				},
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := businesses.Create(ctx, b); err != nil {
				return err
			}
		}
		business = b
		return users.LinkBusiness(ctx, user.ID, b.ID, customerID)
	})
	if err != nil {
		return domain.Internal("crear negocio", err)
	}

	user.BusinessID = business.ID
	user.Subscription.CustomerID = customerID
	if user.Subscription.Status == "" {
		user.Subscription.Status = entity.StatusUnsubscribed
	}
	user.ProvisioningIncomplete = false
	return nil
}

func (s *Service) markIncomplete(ctx context.Context, userID string) {
	ctx = context.WithoutCancel(ctx)
	flag := true
	if err := s.users.Update(ctx, userID, entity.UserPatch{ProvisioningIncomplete: &flag}); err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Msg("no se pudo marcar el usuario para reparación")
	}
}

// ResumeIncomplete completa el aprovisionamiento de hasta limit usuarios marcados
// o sin negocio. Devuelve cuántos quedaron reparados; los fallos individuales se registran.
func (s *Service) ResumeIncomplete(ctx context.Context, limit int) (int, error) {
	pending, err := s.users.ListIncompleteProvisioning(ctx, limit)
	if err != nil {
		return 0, domain.Internal("listar aprovisionamientos incompletos", err)
	}
	repaired := 0
	for _, u := range pending {
		if err := ctx.Err(); err != nil {
			return repaired, err
		}
		if err := s.CompleteProvisioning(ctx, u); err != nil {
			s.log.Warn().Err(err).Str("user_id", u.ID).Msg("reparación fallida")
			continue
		}
		repaired++
		s.log.Info().Str("user_id", u.ID).Str("business_id", u.BusinessID).Msg("aprovisionamiento reparado")
	}
	return repaired, nil
}
