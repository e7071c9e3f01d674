package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/autoplanner-api/internal/application/dto"
	"github.com/jhoicas/autoplanner-api/internal/domain"
	"github.com/jhoicas/autoplanner-api/pkg/logger"
)

// Mensajes expuestos al cliente.
const (
	MsgInvalidBody        = "Invalid request body"
	MsgUserExists         = "User with this email already exists"
	MsgUserNotFound       = "User not found"
	MsgBusinessNotFound   = "Business not found"
	MsgCustomerNotFound   = "Business customerId not found"
	MsgInvalidToken       = "Invalid or expired verification token"
	MsgAlreadyVerified    = "Email is already verified"
	MsgInvalidCredentials = "Invalid email or password"
	MsgOAuthOnly          = "This account uses Google sign-in"
	MsgUnauthorized       = "Unauthorized"
	MsgInternal           = "Internal server error"
)

func errorJSON(c *fiber.Ctx, status int, code, msg string) error {
	return c.Status(status).JSON(dto.ErrorResponse{Success: false, Code: code, Error: msg})
}

// respondError traduce errores de dominio a HTTP. Lo no mapeado es 500 genérico
// y el detalle solo queda en el log.
func respondError(c *fiber.Ctx, log *logger.Logger, err error) error {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		return errorJSON(c, fiber.StatusBadRequest, "VALIDATION", ve.Message)
	case errors.Is(err, domain.ErrEmailAlreadyExists):
		return errorJSON(c, fiber.StatusConflict, "EMAIL_EXISTS", MsgUserExists)
	case errors.Is(err, domain.ErrInvalidToken):
		return errorJSON(c, fiber.StatusBadRequest, "INVALID_TOKEN", MsgInvalidToken)
	case errors.Is(err, domain.ErrAlreadyVerified):
		return errorJSON(c, fiber.StatusBadRequest, "ALREADY_VERIFIED", MsgAlreadyVerified)
	case errors.Is(err, domain.ErrUserNotFound):
		return errorJSON(c, fiber.StatusNotFound, "USER_NOT_FOUND", MsgUserNotFound)
	case errors.Is(err, domain.ErrBusinessNotFound):
		return errorJSON(c, fiber.StatusNotFound, "BUSINESS_NOT_FOUND", MsgBusinessNotFound)
	case errors.Is(err, domain.ErrCustomerNotFound):
		return errorJSON(c, fiber.StatusNotFound, "CUSTOMER_NOT_FOUND", MsgCustomerNotFound)
	case errors.Is(err, domain.ErrInvalidCredentials):
		return errorJSON(c, fiber.StatusUnauthorized, "INVALID_CREDENTIALS", MsgInvalidCredentials)
	case errors.Is(err, domain.ErrOAuthOnlyAccount):
		return errorJSON(c, fiber.StatusUnauthorized, "OAUTH_ACCOUNT", MsgOAuthOnly)
	case errors.Is(err, domain.ErrUnauthorized):
		return errorJSON(c, fiber.StatusUnauthorized, "UNAUTHORIZED", MsgUnauthorized)
	case errors.Is(err, domain.ErrInvalidSignature):
		return errorJSON(c, fiber.StatusBadRequest, "INVALID_SIGNATURE", "Webhook Error: "+err.Error())
	}

	log.Error().Err(err).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Str("request_id", requestID(c)).
		Msg("error interno")
	return errorJSON(c, fiber.StatusInternalServerError, "INTERNAL", MsgInternal)
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrUserNotFound)
}
