package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/autoplanner-api/internal/application/account"
	"github.com/jhoicas/autoplanner-api/internal/application/dto"
	"github.com/jhoicas/autoplanner-api/internal/domain"
	"github.com/jhoicas/autoplanner-api/pkg/logger"
)

// Mensajes de éxito de los flujos de cuenta.
const (
	MsgEmailVerified     = "Email verified successfully! You can now sign in to your account."
	MsgVerificationSent  = "Verification email sent successfully! Please check your email."
	MsgResetRequested    = "If an account exists for this email, a password reset link has been sent."
	MsgPasswordResetDone = "Password updated successfully! You can now sign in with your new password."
	MsgInvalidResetToken = "Invalid or expired reset token"
)

// UserHandler maneja registro, verificación de email y reseteo de contraseña.
type UserHandler struct {
	svc *account.Service
	log *logger.Logger
}

// NewUserHandler construye el handler de cuentas.
func NewUserHandler(svc *account.Service, log *logger.Logger) *UserHandler {
	return &UserHandler{svc: svc, log: log}
}

// Signup godoc
// @Summary      Registrar usuario
// @Description  Crea usuario, cliente de Stripe y negocio; envía el email de verificación.
// @Tags         user
// @Accept       json
// @Produce      json
// @Param        body  body      dto.SignupRequest  true  "name, email, phoneNumber, password"
// @Success      201   {object}  dto.Response{data=dto.UserResponse}
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      500   {object}  dto.ErrorResponse
// @Router       /api/user [post]
func (h *UserHandler) Signup(c *fiber.Ctx) error {
	var in dto.SignupRequest
	if err := c.BodyParser(&in); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "INVALID_BODY", MsgInvalidBody)
	}
	user, err := h.svc.Register(c.UserContext(), in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.Response{Success: true, Data: user})
}

// Get godoc
// @Summary      Obtener usuario
// @Description  Solo el propio usuario de la sesión; sin id se devuelve el de la sesión.
// @Tags         user
// @Produce      json
// @Security     BearerAuth
// @Param        id   query     string  false  "ID de usuario"
// @Success      200  {object}  dto.Response{data=dto.UserResponse}
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/user [get]
func (h *UserHandler) Get(c *fiber.Ctx) error {
	sessionID := GetUserID(c)
	id := c.Query("id", sessionID)
	if id != sessionID {
		return errorJSON(c, fiber.StatusForbidden, "FORBIDDEN", "Cannot read another user's profile")
	}
	user, err := h.svc.GetUser(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.Response{Success: true, Data: user})
}

// VerifyEmail godoc
// @Summary      Verificar email
// @Tags         auth
// @Produce      json
// @Param        token  query     string  true  "token de verificación"
// @Success      200    {object}  dto.MessageResponse
// @Failure      400    {object}  dto.ErrorResponse
// @Router       /api/auth/verify-email [get]
func (h *UserHandler) VerifyEmail(c *fiber.Ctx) error {
	if err := h.svc.VerifyEmail(c.UserContext(), c.Query("token")); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.MessageResponse{Success: true, Message: MsgEmailVerified})
}

// ResendVerification godoc
// @Summary      Reenviar email de verificación
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      dto.ResendVerificationRequest  true  "email"
// @Success      200   {object}  dto.MessageResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/auth/verify-email [post]
func (h *UserHandler) ResendVerification(c *fiber.Ctx) error {
	var in dto.ResendVerificationRequest
	if err := c.BodyParser(&in); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "INVALID_BODY", MsgInvalidBody)
	}
	if err := h.svc.ResendVerification(c.UserContext(), in.Email); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.MessageResponse{Success: true, Message: MsgVerificationSent})
}

// ForgotPassword godoc
// @Summary      Solicitar reseteo de contraseña
// @Description  Responde igual exista o no la cuenta.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      dto.ForgotPasswordRequest  true  "email"
// @Success      200   {object}  dto.MessageResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/auth/password/forgot [post]
func (h *UserHandler) ForgotPassword(c *fiber.Ctx) error {
	var in dto.ForgotPasswordRequest
	if err := c.BodyParser(&in); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "INVALID_BODY", MsgInvalidBody)
	}
	if err := h.svc.RequestPasswordReset(c.UserContext(), in.Email); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.MessageResponse{Success: true, Message: MsgResetRequested})
}

// ResetPassword godoc
// @Summary      Resetear contraseña
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      dto.ResetPasswordRequest  true  "token, password"
// @Success      200   {object}  dto.MessageResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/auth/password/reset [post]
func (h *UserHandler) ResetPassword(c *fiber.Ctx) error {
	var in dto.ResetPasswordRequest
	if err := c.BodyParser(&in); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "INVALID_BODY", MsgInvalidBody)
	}
	if err := h.svc.ResetPassword(c.UserContext(), in.Token, in.Password); err != nil {
		if errors.Is(err, domain.ErrInvalidToken) {
			return errorJSON(c, fiber.StatusBadRequest, "INVALID_TOKEN", MsgInvalidResetToken)
		}
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.MessageResponse{Success: true, Message: MsgPasswordResetDone})
}
