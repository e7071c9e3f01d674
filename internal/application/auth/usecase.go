package auth

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/autoplanner-api/internal/application/account"
	"github.com/jhoicas/autoplanner-api/internal/application/dto"
	"github.com/jhoicas/autoplanner-api/internal/application/ports"
	"github.com/jhoicas/autoplanner-api/internal/domain"
	"github.com/jhoicas/autoplanner-api/internal/domain/entity"
	"github.com/jhoicas/autoplanner-api/internal/domain/repository"
	"github.com/jhoicas/autoplanner-api/pkg/jwt"
	"github.com/jhoicas/autoplanner-api/pkg/logger"
	"github.com/jhoicas/autoplanner-api/pkg/password"
)

// JWTConfig configuración para generación de tokens.
type JWTConfig struct {
	Secret     string
	ExpMinutes int
	Issuer     string
}

// Provisioner completa cliente de facturación y negocio de un usuario recién creado.
type Provisioner interface {
	CompleteProvisioning(ctx context.Context, user *entity.User) error
}

// AuthUseCase casos de uso de autenticación: credenciales, Google y refresco de sesión.
type AuthUseCase struct {
	users    repository.UserRepository
	accounts Provisioner
	hasher   ports.PasswordHasher
	verifier ports.IDTokenVerifier
	jwtCfg   JWTConfig
	log      *logger.Logger
}

// NewAuthUseCase construye el caso de uso de auth.
func NewAuthUseCase(
	users repository.UserRepository,
	accounts Provisioner,
	hasher ports.PasswordHasher,
	verifier ports.IDTokenVerifier,
	jwtCfg JWTConfig,
	log *logger.Logger,
) *AuthUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &AuthUseCase{
		users:    users,
		accounts: accounts,
		hasher:   hasher,
		verifier: verifier,
		jwtCfg:   jwtCfg,
		log:      log.Component("auth"),
	}
}

// SignInWithCredentials email + contraseña.
// Orden de rechazo: usuario inexistente, cuenta solo-Google, contraseña incorrecta.
func (uc *AuthUseCase) SignInWithCredentials(ctx context.Context, in dto.SignInRequest) (*dto.SessionResponse, error) {
	if strings.TrimSpace(in.Email) == "" {
		return nil, domain.NewValidationError(account.MsgEmailRequired)
	}
	user, err := uc.users.GetByEmail(ctx, entity.NormalizeEmail(in.Email))
	if err != nil {
		return nil, domain.Internal("buscar usuario por email", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	if password.IsOAuthSentinel(user.PasswordHash) {
		return nil, domain.ErrOAuthOnlyAccount
	}
	if !uc.hasher.Verify(in.Password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}
	return uc.issue(user)
}

// SignInWithGoogle valida el ID token y crea la cuenta en el primer ingreso.
// Si dos ingresos concurrentes crean el mismo email, el perdedor usa el registro del ganador.
func (uc *AuthUseCase) SignInWithGoogle(ctx context.Context, idToken string) (*dto.SessionResponse, error) {
	if strings.TrimSpace(idToken) == "" {
		return nil, domain.NewValidationError("ID token is required")
	}
	profile, err := uc.verifier.VerifyIDToken(ctx, idToken)
	if err != nil {
		uc.log.Warn().Err(err).Msg("ID token de Google rechazado")
		return nil, domain.ErrUnauthorized
	}
	if profile.Email == "" || !profile.EmailVerified {
		return nil, domain.ErrUnauthorized
	}
	email := entity.NormalizeEmail(profile.Email)

	user, err := uc.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, domain.Internal("buscar usuario por email", err)
	}
	if user != nil {
		return uc.returningGoogleUser(ctx, user, profile)
	}

	sentinel, err := password.NewOAuthSentinel()
	if err != nil {
		return nil, domain.Internal("generar credencial OAuth", err)
	}
	now := time.Now()
	user = &entity.User{
		ID:            uuid.New().String(),
		Name:          displayName(profile),
		Email:         email,
		Image:         profile.Picture,
		PasswordHash:  sentinel,
		EmailVerified: true,
		Subscription:  entity.UserSubscription{Status: entity.StatusUnsubscribed},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	outcome, err := uc.users.Create(ctx, user)
	if err != nil {
		return nil, domain.Internal("crear usuario", err)
	}
	if outcome == entity.AlreadyExists {
		winner, err := uc.users.GetByEmail(ctx, email)
		if err != nil {
			return nil, domain.Internal("releer usuario", err)
		}
		if winner == nil {
			return nil, domain.Internal("releer usuario", domain.ErrUserNotFound)
		}
		uc.log.Info().Str("user_id", winner.ID).Msg("alta concurrente con Google, se usa el registro existente")
		return uc.issue(winner)
	}

	uc.log.Info().Str("user_id", user.ID).Msg("usuario creado con Google")
	if err := uc.accounts.CompleteProvisioning(ctx, user); err != nil {
		return nil, err
	}
	return uc.issue(user)
}

func (uc *AuthUseCase) returningGoogleUser(ctx context.Context, user *entity.User, profile *entity.OAuthProfile) (*dto.SessionResponse, error) {
	if profile.Picture != "" && profile.Picture != user.Image {
		img := profile.Picture
		if err := uc.users.Update(ctx, user.ID, entity.UserPatch{Image: &img}); err != nil {
			return nil, domain.Internal("actualizar imagen", err)
		}
		user.Image = img
	}
	if user.ProvisioningIncomplete {
		if err := uc.accounts.CompleteProvisioning(ctx, user); err != nil {
			// Queda marcado; el job de reparación lo reintenta. El ingreso no se bloquea.
			uc.log.Warn().Err(err).Str("user_id", user.ID).Msg("aprovisionamiento pendiente")
		}
	}
	return uc.issue(user)
}

// RefreshSession vuelve a leer dashboardAccess y businessId del repositorio y firma un token nuevo.
func (uc *AuthUseCase) RefreshSession(ctx context.Context, userID string) (*dto.SessionResponse, error) {
	user, err := uc.users.GetByID(ctx, userID)
	if err != nil {
		return nil, domain.Internal("buscar usuario", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return uc.issue(user)
}

// DashboardAccess estado de acceso vigente según el repositorio (no según el token,
// que puede ser anterior al último webhook).
func (uc *AuthUseCase) DashboardAccess(ctx context.Context, userID string) (*dto.DashboardAccessResponse, error) {
	user, err := uc.users.GetByID(ctx, userID)
	if err != nil {
		return nil, domain.Internal("buscar usuario", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return &dto.DashboardAccessResponse{
		UserID:          user.ID,
		BusinessID:      user.BusinessID,
		DashboardAccess: user.DashboardAccess,
	}, nil
}

func (uc *AuthUseCase) issue(user *entity.User) (*dto.SessionResponse, error) {
	token, err := jwt.Generate(uc.jwtCfg.Secret, jwt.Session{
		UserID:          user.ID,
		Email:           user.Email,
		BusinessID:      user.BusinessID,
		DashboardAccess: user.DashboardAccess,
	}, uc.jwtCfg.Issuer, uc.jwtCfg.ExpMinutes)
	if err != nil {
		return nil, domain.Internal("firmar sesión", err)
	}
	return &dto.SessionResponse{
		Token:           token,
		ExpiresIn:       uc.jwtCfg.ExpMinutes * 60,
		DashboardAccess: user.DashboardAccess,
		BusinessID:      user.BusinessID,
		User:            *account.ToUserResponse(user),
	}, nil
}

func displayName(p *entity.OAuthProfile) string {
	if name := strings.TrimSpace(p.Name); name != "" {
		return name
	}
	local, _, _ := strings.Cut(p.Email, "@")
	return local
}
