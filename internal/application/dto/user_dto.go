package dto

import "time"

// SignupRequest entrada de POST /api/user (password en texto, se hashea en el use case).
type SignupRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	Password    string `json:"password"`
}

// UserResponse salida de un usuario: nunca incluye hash ni tokens.
type UserResponse struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Email              string    `json:"email"`
	PhoneNumber        string    `json:"phoneNumber,omitempty"`
	Image              string    `json:"image,omitempty"`
	EmailVerified      bool      `json:"emailVerified"`
	DashboardAccess    bool      `json:"dashboardAccess"`
	BusinessID         string    `json:"businessId,omitempty"`
	SubscriptionStatus string    `json:"subscriptionStatus"`
	SubscriptionPlan   string    `json:"subscriptionPlan,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
}

// ResendVerificationRequest entrada de POST /api/auth/verify-email.
type ResendVerificationRequest struct {
	Email string `json:"email"`
}

// ForgotPasswordRequest entrada de POST /api/auth/password/forgot.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest entrada de POST /api/auth/password/reset.
type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}
