package dto

// SignInRequest entrada de login por credenciales.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// GoogleSignInRequest ID token emitido por Google Identity Services.
type GoogleSignInRequest struct {
	IDToken string `json:"idToken"`
}

// SessionResponse token de sesión más el estado que lleva firmado.
type SessionResponse struct {
	Token           string       `json:"token"`
	ExpiresIn       int          `json:"expiresIn"` // segundos
	DashboardAccess bool         `json:"dashboardAccess"`
	BusinessID      string       `json:"businessId,omitempty"`
	User            UserResponse `json:"user"`
}

// DashboardAccessResponse salida de GET /api/dashboard/access.
type DashboardAccessResponse struct {
	UserID          string `json:"userId"`
	BusinessID      string `json:"businessId,omitempty"`
	DashboardAccess bool   `json:"dashboardAccess"`
}
