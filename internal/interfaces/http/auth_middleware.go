package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/autoplanner-api/pkg/jwt"
)

// Locals keys para los datos de sesión en Fiber.
const (
	LocalUserID          = "user_id"
	LocalBusinessID      = "business_id"
	LocalDashboardAccess = "dashboard_access"
)

// AuthMiddleware valida el Bearer Token JWT y deja los claims de sesión en c.Locals.
func AuthMiddleware(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return errorJSON(c, fiber.StatusUnauthorized, "MISSING_TOKEN", "Authorization header is required")
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return errorJSON(c, fiber.StatusUnauthorized, "INVALID_TOKEN", "Expected format: Bearer <token>")
		}
		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			return errorJSON(c, fiber.StatusUnauthorized, "MISSING_TOKEN", "Empty token")
		}
		claims, err := jwt.Parse(jwtSecret, tokenString)
		if err != nil {
			return errorJSON(c, fiber.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired session")
		}
		c.Locals(LocalUserID, claims.UserID)
		c.Locals(LocalBusinessID, claims.BusinessID)
		c.Locals(LocalDashboardAccess, claims.DashboardAccess)
		return c.Next()
	}
}

// GetUserID devuelve el UserID del contexto (después del middleware de auth).
func GetUserID(c *fiber.Ctx) string {
	s, _ := c.Locals(LocalUserID).(string)
	return s
}

// GetBusinessID devuelve el BusinessID firmado en la sesión.
func GetBusinessID(c *fiber.Ctx) string {
	s, _ := c.Locals(LocalBusinessID).(string)
	return s
}

// GetDashboardAccess acceso al dashboard según el token (puede estar desactualizado).
func GetDashboardAccess(c *fiber.Ctx) bool {
	b, _ := c.Locals(LocalDashboardAccess).(bool)
	return b
}
