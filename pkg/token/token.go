// Package token emite tokens opacos con vencimiento (verificación de email, reseteo de contraseña).
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"
)

// ByteLength 256 bits de entropía.
const ByteLength = 32

// Issued token recién emitido. Value viaja al usuario; solo Digest se persiste.
type Issued struct {
	Value     string
	Digest    string
	ExpiresAt time.Time
}

// Issuer genera tokens con una vigencia fija.
type Issuer struct {
	ttl time.Duration
	now func() time.Time
}

// NewIssuer construye el emisor con la vigencia indicada.
func NewIssuer(ttl time.Duration) *Issuer {
	return &Issuer{ttl: ttl, now: time.Now}
}

// WithClock reemplaza el reloj (tests).
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

// Issue genera un token aleatorio y su vencimiento (now + ttl).
func (i *Issuer) Issue() (Issued, error) {
	b := make([]byte, ByteLength)
	if _, err := rand.Read(b); err != nil {
		return Issued{}, fmt.Errorf("generar token: %w", err)
	}
	value := base64.RawURLEncoding.EncodeToString(b)
	return Issued{
		Value:     value,
		Digest:    Digest(value),
		ExpiresAt: i.now().Add(i.ttl),
	}, nil
}

// Digest devuelve el SHA-256 hex del token; es lo que se guarda y se busca en la DB.
func Digest(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
