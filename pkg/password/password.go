// Package password implementa el hasher de credenciales (bcrypt) y el
// centinela que marca una cuenta como solo-OAuth.
package password

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost factor de trabajo para cuentas reales.
const DefaultCost = 12

// oauthPrefix nunca aparece al inicio de un hash bcrypt ("$2a$", "$2b$"...).
const oauthPrefix = "!oauth:"

// BcryptHasher hashea y verifica contraseñas con bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher construye el hasher. cost <= 0 usa DefaultCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost <= 0 {
		cost = DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash devuelve el hash bcrypt de plain.
func (h *BcryptHasher) Hash(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(hash), nil
}

// Verify compara plain con hash. Nunca falla: ante centinela, hash vacío o malformado devuelve false.
func (h *BcryptHasher) Verify(plain, hash string) bool {
	if hash == "" || IsOAuthSentinel(hash) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// NewOAuthSentinel genera una credencial inutilizable para login por contraseña.
func NewOAuthSentinel() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return oauthPrefix + hex.EncodeToString(b), nil
}

// IsOAuthSentinel indica si la credencial almacenada es el centinela OAuth.
func IsOAuthSentinel(hash string) bool {
	return strings.HasPrefix(hash, oauthPrefix)
}
