package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/autoplanner-api/internal/application/dto"
	"github.com/jhoicas/autoplanner-api/internal/domain"
	apphttp "github.com/jhoicas/autoplanner-api/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/autoplanner-api/pkg/jwt"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const (
	testJWTSecret  = "test-secret-key-for-unit-tests"
	testUserID     = "00000000-0000-0000-0000-000000000001"
	testBusinessID = "00000000-0000-0000-0000-000000000002"
	testIssuer     = "autoplanner-test"
	testExpMin     = 60
)

// stubChecker respuesta fija del repositorio de acceso.
type stubChecker struct {
	access bool
	err    error
}

func (s stubChecker) DashboardAccess(_ context.Context, userID string) (*dto.DashboardAccessResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &dto.DashboardAccessResponse{UserID: userID, BusinessID: testBusinessID, DashboardAccess: s.access}, nil
}

// buildGateApp construye una aplicación Fiber mínima con:
//   - AuthMiddleware para parsear el JWT y cargar locals
//   - RequireDashboardAccess con el checker indicado
//   - Un handler dummy que devuelve 200 si pasa los middlewares
func buildGateApp(checker stubChecker) *fiber.App {
	app := fiber.New()
	app.Get("/protected",
		apphttp.AuthMiddleware(testJWTSecret),
		apphttp.RequireDashboardAccess(checker, nil),
		func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{
				"ok":          true,
				"business_id": apphttp.GetBusinessID(c),
			})
		},
	)
	return app
}

// bearer genera un JWT de sesión con el acceso indicado.
func bearer(t *testing.T, access bool) string {
	t.Helper()
	tok, err := pkgjwt.Generate(testJWTSecret, pkgjwt.Session{
		UserID:          testUserID,
		Email:           "jane@x.com",
		BusinessID:      testBusinessID,
		DashboardAccess: access,
	}, testIssuer, testExpMin)
	require.NoError(t, err, "debe generarse un token JWT válido")
	return "Bearer " + tok
}

// doRequest lanza una petición GET /protected y devuelve la respuesta.
func doRequest(t *testing.T, app *fiber.App, authHeader string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests RequireDashboardAccess
// ──────────────────────────────────────────────────────────────────────────────

// Caso 1: suscripción vigente → HTTP 200.
func TestRequireDashboardAccess_ConAcceso(t *testing.T) {
	app := buildGateApp(stubChecker{access: true})
	resp := doRequest(t, app, bearer(t, true))
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, testBusinessID, body["business_id"])
}

// Caso 2: el token dice acceso pero un webhook ya lo revocó → HTTP 403.
func TestRequireDashboardAccess_TokenViejoNoAlcanza(t *testing.T) {
	app := buildGateApp(stubChecker{access: false})
	resp := doRequest(t, app, bearer(t, true))
	defer resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "DASHBOARD_LOCKED")
}

// Caso 3: el token no tiene acceso pero la DB sí (pago recién confirmado) → HTTP 200.
func TestRequireDashboardAccess_PagoRecienteHabilita(t *testing.T) {
	app := buildGateApp(stubChecker{access: true})
	resp := doRequest(t, app, bearer(t, false))
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// Caso 4: usuario borrado → HTTP 401.
func TestRequireDashboardAccess_UsuarioInexistente(t *testing.T) {
	app := buildGateApp(stubChecker{err: domain.ErrUserNotFound})
	resp := doRequest(t, app, bearer(t, true))
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// Caso 5: fallo de DB → HTTP 503.
func TestRequireDashboardAccess_FalloInfraestructura(t *testing.T) {
	app := buildGateApp(stubChecker{err: domain.Internal("buscar usuario", errors.New("timeout"))})
	resp := doRequest(t, app, bearer(t, true))
	defer resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests AuthMiddleware
// ──────────────────────────────────────────────────────────────────────────────

func TestAuthMiddleware_SinAuthHeader_Retorna401(t *testing.T) {
	app := buildGateApp(stubChecker{access: true})
	resp := doRequest(t, app, "")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "MISSING_TOKEN")
}

func TestAuthMiddleware_FormatoInvalido_Retorna401(t *testing.T) {
	app := buildGateApp(stubChecker{access: true})
	resp := doRequest(t, app, "Basic dXNlcjpwYXNz")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "INVALID_TOKEN")
}

func TestAuthMiddleware_TokenInvalido_Retorna401(t *testing.T) {
	app := buildGateApp(stubChecker{access: true})
	resp := doRequest(t, app, "Bearer token.invalido.aqui")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthMiddleware_TokenExpirado_Retorna401(t *testing.T) {
	tok, err := pkgjwt.Generate(testJWTSecret, pkgjwt.Session{UserID: testUserID}, testIssuer, -1)
	require.NoError(t, err)

	app := buildGateApp(stubChecker{access: true})
	resp := doRequest(t, app, "Bearer "+tok)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthMiddleware_ExtraeClaims(t *testing.T) {
	app := fiber.New()
	app.Get("/me", apphttp.AuthMiddleware(testJWTSecret), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"user_id":          apphttp.GetUserID(c),
			"business_id":      apphttp.GetBusinessID(c),
			"dashboard_access": apphttp.GetDashboardAccess(c),
		})
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", bearer(t, true))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, testUserID, body["user_id"])
	assert.Equal(t, testBusinessID, body["business_id"])
	assert.Equal(t, true, body["dashboard_access"])
}
