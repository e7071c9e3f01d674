package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/autoplanner-api/internal/application/auth"
	"github.com/jhoicas/autoplanner-api/internal/application/dto"
	"github.com/jhoicas/autoplanner-api/pkg/logger"
)

// AuthHandler maneja inicio de sesión y refresco de sesión.
type AuthHandler struct {
	uc  *auth.AuthUseCase
	log *logger.Logger
}

// NewAuthHandler construye el handler de auth.
func NewAuthHandler(uc *auth.AuthUseCase, log *logger.Logger) *AuthHandler {
	return &AuthHandler{uc: uc, log: log}
}

// SignIn godoc
// @Summary      Iniciar sesión con email y contraseña
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      dto.SignInRequest  true  "email, password"
// @Success      200   {object}  dto.Response{data=dto.SessionResponse}
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/auth/signin [post]
func (h *AuthHandler) SignIn(c *fiber.Ctx) error {
	var in dto.SignInRequest
	if err := c.BodyParser(&in); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "INVALID_BODY", MsgInvalidBody)
	}
	out, err := h.uc.SignInWithCredentials(c.UserContext(), in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.Response{Success: true, Data: out})
}

// Google godoc
// @Summary      Iniciar sesión con Google
// @Description  Verifica el ID token de Google; crea y aprovisiona la cuenta en el primer ingreso.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      dto.GoogleSignInRequest  true  "idToken"
// @Success      200   {object}  dto.Response{data=dto.SessionResponse}
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Router       /api/auth/google [post]
func (h *AuthHandler) Google(c *fiber.Ctx) error {
	var in dto.GoogleSignInRequest
	if err := c.BodyParser(&in); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "INVALID_BODY", MsgInvalidBody)
	}
	if in.IDToken == "" {
		return errorJSON(c, fiber.StatusBadRequest, "VALIDATION", "idToken is required")
	}
	out, err := h.uc.SignInWithGoogle(c.UserContext(), in.IDToken)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.Response{Success: true, Data: out})
}

// Session godoc
// @Summary      Refrescar sesión
// @Description  Firma un token nuevo con dashboardAccess y businessId releídos de la DB.
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  dto.Response{data=dto.SessionResponse}
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/auth/session [post]
func (h *AuthHandler) Session(c *fiber.Ctx) error {
	out, err := h.uc.RefreshSession(c.UserContext(), GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.Response{Success: true, Data: out})
}

// DashboardAccess godoc
// @Summary      Estado de acceso al dashboard
// @Tags         dashboard
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  dto.Response{data=dto.DashboardAccessResponse}
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/dashboard/access [get]
func (h *AuthHandler) DashboardAccess(c *fiber.Ctx) error {
	return c.JSON(dto.Response{Success: true, Data: dto.DashboardAccessResponse{
		UserID:          GetUserID(c),
		BusinessID:      GetBusinessID(c),
		DashboardAccess: GetDashboardAccess(c),
	}})
}
