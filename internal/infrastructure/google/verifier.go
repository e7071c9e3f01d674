// Package google verifica ID tokens de Google Identity Services contra las claves públicas (JWKS).
package google

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jhoicas/autoplanner-api/internal/application/ports"
	"github.com/jhoicas/autoplanner-api/internal/domain/entity"
)

var _ ports.IDTokenVerifier = (*Verifier)(nil)

// DefaultJWKSURL claves públicas de Google.
const DefaultJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"

// Google emite ambos valores de iss.
var validIssuers = map[string]bool{
	"accounts.google.com":         true,
	"https://accounts.google.com": true,
}

const keysTTL = time.Hour

// minRefreshInterval separación mínima entre descargas del JWKS.
const minRefreshInterval = time.Minute

var (
	ErrUnknownKey     = errors.New("google: kid desconocido")
	ErrInvalidIssuer  = errors.New("google: issuer inválido")
	ErrNoClientID     = errors.New("google: GOOGLE_CLIENT_ID no configurado")
	errNoKeysInJWKSet = errors.New("google: JWKS sin claves RSA")
)

type jwkSet struct {
	Keys []jwk `json:"keys"`
}

type jwk struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// idTokenClaims claims de un ID token de Google.
type idTokenClaims struct {
	jwt.RegisteredClaims
	Email         string   `json:"email"`
	EmailVerified flexBool `json:"email_verified"`
	Name          string   `json:"name"`
	Picture       string   `json:"picture"`
}

// flexBool acepta true o "true": algunos tokens antiguos traen email_verified como string.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case "true", `"true"`:
		*b = true
	case "false", `"false"`, "null":
		*b = false
	default:
		return fmt.Errorf("email_verified inválido: %s", data)
	}
	return nil
}

// Verifier valida firma RS256, audiencia, issuer y expiración. Las claves se cachean una hora
// y se refrescan antes si llega un kid desconocido (rotación), como mucho una vez por minRefresh.
type Verifier struct {
	clientID   string
	jwksURL    string
	httpClient *http.Client
	minRefresh time.Duration

	refreshMu sync.Mutex // serializa descargas
	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetched   time.Time
}

// NewVerifier construye el verificador. jwksURL vacío usa DefaultJWKSURL.
func NewVerifier(clientID, jwksURL string) *Verifier {
	if jwksURL == "" {
		jwksURL = DefaultJWKSURL
	}
	return &Verifier{
		clientID:   clientID,
		jwksURL:    jwksURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		minRefresh: minRefreshInterval,
		keys:       make(map[string]*rsa.PublicKey),
	}
}

// VerifyIDToken devuelve el perfil del token si es válido para este cliente.
func (v *Verifier) VerifyIDToken(ctx context.Context, raw string) (*entity.OAuthProfile, error) {
	if v.clientID == "" {
		return nil, ErrNoClientID
	}
	claims := &idTokenClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		return v.key(ctx, kid)
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.clientID),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("google: ID token inválido: %w", err)
	}
	if !validIssuers[claims.Issuer] {
		return nil, ErrInvalidIssuer
	}
	return &entity.OAuthProfile{
		Provider:      "google",
		Subject:       claims.Subject,
		Email:         claims.Email,
		EmailVerified: bool(claims.EmailVerified),
		Name:          claims.Name,
		Picture:       claims.Picture,
	}, nil
}

func (v *Verifier) key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.RLock()
	key, ok := v.keys[kid]
	fresh := time.Since(v.fetched) < keysTTL
	v.mu.RUnlock()
	if ok && fresh {
		return key, nil
	}
	if err := v.refreshThrottled(ctx); err != nil {
		return nil, err
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	if key, ok := v.keys[kid]; ok {
		return key, nil
	}
	return nil, ErrUnknownKey
}

// refreshThrottled descarga el JWKS salvo que otra llamada lo haya hecho hace menos de minRefresh.
func (v *Verifier) refreshThrottled(ctx context.Context) error {
	v.refreshMu.Lock()
	defer v.refreshMu.Unlock()

	v.mu.RLock()
	recent := !v.fetched.IsZero() && time.Since(v.fetched) < v.minRefresh
	v.mu.RUnlock()
	if recent {
		return nil
	}
	return v.refresh(ctx)
}

func (v *Verifier) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.jwksURL, nil)
	if err != nil {
		return err
	}
	resp, err := v.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("google: descargar JWKS: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("google: JWKS status %d", resp.StatusCode)
	}

	var set jwkSet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("google: decodificar JWKS: %w", err)
	}
	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Kty != "RSA" {
			continue
		}
		pub, err := rsaKeyFromJWK(k)
		if err != nil {
			continue
		}
		keys[k.Kid] = pub
	}
	if len(keys) == 0 {
		return errNoKeysInJWKSet
	}

	v.mu.Lock()
	v.keys = keys
	v.fetched = time.Now()
	v.mu.Unlock()
	return nil
}

func rsaKeyFromJWK(k jwk) (*rsa.PublicKey, error) {
	n, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, err
	}
	e, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, err
	}
	exp := 0
	for _, b := range e {
		exp = exp<<8 | int(b)
	}
	if exp == 0 {
		return nil, errors.New("exponente inválido")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(n), E: exp}, nil
}
