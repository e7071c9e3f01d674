package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/autoplanner-api/internal/application/dto"
	"github.com/jhoicas/autoplanner-api/pkg/logger"
)

// accessChecker es el contrato mínimo que necesita el middleware para verificar el acceso.
// Lo implementa *auth.AuthUseCase.
type accessChecker interface {
	DashboardAccess(ctx context.Context, userID string) (*dto.DashboardAccessResponse, error)
}

// RequireDashboardAccess devuelve un middleware Fiber que exige suscripción vigente.
// Debe usarse DESPUÉS de AuthMiddleware. El acceso se relee del repositorio: el token
// puede haberse firmado antes de un webhook que lo revocó.
//
// Comportamiento:
//   - 401 → no hay user_id en el contexto o el usuario ya no existe.
//   - 503 → fallo de infraestructura al consultar la DB.
//   - 403 → usuario sin acceso al dashboard.
func RequireDashboardAccess(checker accessChecker, log *logger.Logger) fiber.Handler {
	if log == nil {
		log = logger.Nop()
	}
	return func(c *fiber.Ctx) error {
		userID := GetUserID(c)
		if userID == "" {
			return errorJSON(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "user_id missing from session")
		}

		access, err := checker.DashboardAccess(c.UserContext(), userID)
		if err != nil {
			if isNotFound(err) {
				return errorJSON(c, fiber.StatusUnauthorized, "UNAUTHORIZED", MsgUserNotFound)
			}
			log.Error().Err(err).Str("user_id", userID).Msg("no se pudo verificar acceso al dashboard")
			return errorJSON(c, fiber.StatusServiceUnavailable, "ACCESS_CHECK_FAILED", "Could not verify dashboard access, try again later")
		}

		if !access.DashboardAccess {
			return errorJSON(c, fiber.StatusForbidden, "DASHBOARD_LOCKED", "An active subscription is required to access the dashboard")
		}

		c.Locals(LocalDashboardAccess, true)
		c.Locals(LocalBusinessID, access.BusinessID)
		return c.Next()
	}
}
