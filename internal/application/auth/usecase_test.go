package auth_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/autoplanner-api/internal/application/account"
	"github.com/jhoicas/autoplanner-api/internal/application/auth"
	"github.com/jhoicas/autoplanner-api/internal/application/dto"
	"github.com/jhoicas/autoplanner-api/internal/domain"
	"github.com/jhoicas/autoplanner-api/internal/domain/entity"
	"github.com/jhoicas/autoplanner-api/internal/domain/repository"
	"github.com/jhoicas/autoplanner-api/internal/testutil"
	pkgjwt "github.com/jhoicas/autoplanner-api/pkg/jwt"
	"github.com/jhoicas/autoplanner-api/pkg/password"
	"github.com/jhoicas/autoplanner-api/pkg/token"
)

var jwtCfg = auth.JWTConfig{Secret: "test-secret", ExpMinutes: 60, Issuer: "autoplanner-test"}

type fixture struct {
	uc       *auth.AuthUseCase
	store    *testutil.Store
	billing  *testutil.FakeBilling
	hasher   *password.BcryptHasher
	verifier *testutil.FakeVerifier
}

func newFixture(t *testing.T, users repository.UserRepository) *fixture {
	t.Helper()
	f := &fixture{
		store:    testutil.NewStore(),
		billing:  testutil.NewFakeBilling(),
		hasher:   password.NewBcryptHasher(bcrypt.MinCost),
		verifier: &testutil.FakeVerifier{Profiles: map[string]*entity.OAuthProfile{}},
	}
	if users == nil {
		users = f.store.Users()
	}
	accounts := account.NewService(account.Deps{
		Users:              f.store.Users(),
		Tx:                 f.store,
		Billing:            f.billing,
		Notifier:           &testutil.FakeNotifier{},
		Hasher:             f.hasher,
		VerificationTokens: token.NewIssuer(24 * time.Hour),
		ResetTokens:        token.NewIssuer(time.Hour),
	})
	f.uc = auth.NewAuthUseCase(users, accounts, f.hasher, f.verifier, jwtCfg, nil)
	return f
}

func (f *fixture) putCredentialUser(t *testing.T, id, email, plain string) {
	t.Helper()
	hash, err := f.hasher.Hash(plain)
	require.NoError(t, err)
	f.store.PutUser(&entity.User{ID: id, Name: "Jane", Email: email, PasswordHash: hash, BusinessID: "b-" + id})
}

// ─────────────────────────────────────────────────────────────────────────────
// Credenciales
// ─────────────────────────────────────────────────────────────────────────────

func TestSignInWithCredentials_OK(t *testing.T) {
	f := newFixture(t, nil)
	f.putCredentialUser(t, "u-1", "jane@x.com", "secret1")

	out, err := f.uc.SignInWithCredentials(context.Background(), dto.SignInRequest{Email: "Jane@X.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "u-1", out.User.ID)
	assert.Equal(t, "b-u-1", out.BusinessID)
	assert.Equal(t, 3600, out.ExpiresIn)

	claims, err := pkgjwt.Parse(jwtCfg.Secret, out.Token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.False(t, claims.DashboardAccess)
}

func TestSignInWithCredentials_PasswordIncorrecto(t *testing.T) {
	f := newFixture(t, nil)
	f.putCredentialUser(t, "u-1", "jane@x.com", "secret1")

	_, err := f.uc.SignInWithCredentials(context.Background(), dto.SignInRequest{Email: "jane@x.com", Password: "nope"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestSignInWithCredentials_UsuarioInexistente(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.uc.SignInWithCredentials(context.Background(), dto.SignInRequest{Email: "nadie@x.com", Password: "secret1"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSignInWithCredentials_CuentaGoogle_SinImportarPassword(t *testing.T) {
	f := newFixture(t, nil)
	sentinel, err := password.NewOAuthSentinel()
	require.NoError(t, err)
	f.store.PutUser(&entity.User{ID: "u-g", Email: "g@x.com", PasswordHash: sentinel})

	for _, pw := range []string{"", "secret1", sentinel} {
		_, err := f.uc.SignInWithCredentials(context.Background(), dto.SignInRequest{Email: "g@x.com", Password: pw})
		assert.ErrorIs(t, err, domain.ErrOAuthOnlyAccount)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Google
// ─────────────────────────────────────────────────────────────────────────────

func TestSignInWithGoogle_PrimerIngreso_CreaYAprovisiona(t *testing.T) {
	f := newFixture(t, nil)
	f.verifier.Profiles["tok"] = &entity.OAuthProfile{
		Provider: "google", Subject: "123", Email: "Ana@Gmail.com", EmailVerified: true,
		Name: "Ana", Picture: "https://img/ana.png",
	}

	out, err := f.uc.SignInWithGoogle(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "ana@gmail.com", out.User.Email)
	assert.NotEmpty(t, out.BusinessID)

	u := f.store.User(out.User.ID)
	require.NotNil(t, u)
	assert.True(t, password.IsOAuthSentinel(u.PasswordHash))
	assert.True(t, u.EmailVerified)
	assert.Equal(t, "https://img/ana.png", u.Image)
	assert.Equal(t, 1, f.store.BusinessCount())
	assert.Equal(t, 1, f.billing.CustomerCount())
}

func TestSignInWithGoogle_Recurrente_ActualizaImagenSinTocarCredencial(t *testing.T) {
	f := newFixture(t, nil)
	f.store.PutUser(&entity.User{ID: "u-1", Email: "ana@gmail.com", PasswordHash: "!oauth:abc", Image: "old", BusinessID: "b-1"})
	f.verifier.Profiles["tok"] = &entity.OAuthProfile{Email: "ana@gmail.com", EmailVerified: true, Picture: "new"}

	out, err := f.uc.SignInWithGoogle(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "u-1", out.User.ID)

	u := f.store.User("u-1")
	assert.Equal(t, "new", u.Image)
	assert.Equal(t, "!oauth:abc", u.PasswordHash)
	assert.Equal(t, 0, f.billing.CustomerCount())
}

// racingUsers simula que otro ingreso creó el usuario entre la búsqueda y el insert.
type racingUsers struct {
	*testutil.UserRepo
	lookups atomic.Int32
}

func (r *racingUsers) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	if r.lookups.Add(1) == 1 {
		return nil, nil
	}
	return r.UserRepo.GetByEmail(ctx, email)
}

func TestSignInWithGoogle_CarreraDeAlta_DevuelveGanador(t *testing.T) {
	store := testutil.NewStore()
	racing := &racingUsers{UserRepo: store.Users()}
	f := newFixture(t, racing)
	// newFixture crea su propio store: el ganador se inserta en el mismo que usa racing.
	store.PutUser(&entity.User{ID: "winner", Email: "ana@gmail.com", PasswordHash: "!oauth:w", BusinessID: "b-w"})
	f.verifier.Profiles["tok"] = &entity.OAuthProfile{Email: "ana@gmail.com", EmailVerified: true}

	out, err := f.uc.SignInWithGoogle(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "winner", out.User.ID)
	assert.Equal(t, 1, store.UserCount())
	assert.Equal(t, 0, f.billing.CustomerCount())
}

func TestSignInWithGoogle_TokenInvalidoOEmailSinVerificar(t *testing.T) {
	f := newFixture(t, nil)
	f.verifier.Profiles["unverified"] = &entity.OAuthProfile{Email: "ana@gmail.com", EmailVerified: false}

	_, err := f.uc.SignInWithGoogle(context.Background(), "desconocido")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = f.uc.SignInWithGoogle(context.Background(), "unverified")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = f.uc.SignInWithGoogle(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 0, f.store.UserCount())
}

// ─────────────────────────────────────────────────────────────────────────────
// Sesión
// ─────────────────────────────────────────────────────────────────────────────

func TestRefreshSession_ReflejaCambioDeAcceso(t *testing.T) {
	f := newFixture(t, nil)
	f.putCredentialUser(t, "u-1", "jane@x.com", "secret1")

	first, err := f.uc.RefreshSession(context.Background(), "u-1")
	require.NoError(t, err)
	assert.False(t, first.DashboardAccess)

	access := true
	require.NoError(t, f.store.Users().Update(context.Background(), "u-1", entity.UserPatch{DashboardAccess: &access}))

	second, err := f.uc.RefreshSession(context.Background(), "u-1")
	require.NoError(t, err)
	assert.True(t, second.DashboardAccess)
	claims, err := pkgjwt.Parse(jwtCfg.Secret, second.Token)
	require.NoError(t, err)
	assert.True(t, claims.DashboardAccess)

	_, err = f.uc.RefreshSession(context.Background(), "u-x")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
