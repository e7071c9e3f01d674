package ports

import (
	"context"

	"github.com/jhoicas/autoplanner-api/internal/domain/entity"
	"github.com/jhoicas/autoplanner-api/pkg/token"
)

// PasswordHasher hash unidireccional de contraseñas.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	// Verify nunca falla: ante cualquier entrada inválida devuelve false.
	Verify(plain, hash string) bool
}

// TokenIssuer emite tokens opacos con vencimiento.
type TokenIssuer interface {
	Issue() (token.Issued, error)
}

// IDTokenVerifier valida un ID token de un proveedor OAuth y devuelve el perfil.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, rawToken string) (*entity.OAuthProfile, error)
}
