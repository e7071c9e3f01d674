package repository

import (
	"context"
	"time"

	"github.com/jhoicas/autoplanner-api/internal/domain/entity"
)

// UserRepository define el puerto de persistencia para User (DIP).
// Los Get* devuelven (nil, nil) cuando no hay registro.
type UserRepository interface {
	// Create inserta el usuario. Un email duplicado (incluida la carrera entre
	// dos altas concurrentes) devuelve AlreadyExists sin error.
	Create(ctx context.Context, user *entity.User) (entity.CreateOutcome, error)
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByCustomerID(ctx context.Context, customerID string) (*entity.User, error)
	Update(ctx context.Context, id string, patch entity.UserPatch) error
	// LinkBusiness vincula el negocio y fija el customer de facturación del usuario.
	LinkBusiness(ctx context.Context, userID, businessID, customerID string) error
	// ConsumeVerificationToken marca el email como verificado y borra el token en una
	// sola operación si digest coincide y now < vencimiento. Devuelve ErrInvalidToken si no.
	ConsumeVerificationToken(ctx context.Context, digest string, now time.Time) (*entity.User, error)
	// ConsumePasswordResetToken reemplaza el hash de contraseña y borra el token (uso único).
	ConsumePasswordResetToken(ctx context.Context, digest string, now time.Time, passwordHash string) (*entity.User, error)
	// ListIncompleteProvisioning usuarios marcados o sin negocio vinculado.
	ListIncompleteProvisioning(ctx context.Context, limit int) ([]*entity.User, error)
	Delete(ctx context.Context, id string) error
}
