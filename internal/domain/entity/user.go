package entity

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// User representa una cuenta de la plataforma (credenciales o Google).
type User struct {
	ID            string
	Name          string
	Email         string // normalizado con NormalizeEmail
	PhoneNumber   string
	Image         string
	PasswordHash  string // hash bcrypt o centinela OAuth, nunca texto plano
	EmailVerified bool

	// Solo se guarda el digest SHA-256 de los tokens.
	VerificationTokenDigest  string
	VerificationExpiresAt    *time.Time
	PasswordResetTokenDigest string
	PasswordResetExpiresAt   *time.Time

	DashboardAccess bool
	Subscription    UserSubscription
	BusinessID      string // vacío mientras no se haya vinculado un negocio

	// ProvisioningIncomplete marca cuentas que el job de reparación debe completar.
	ProvisioningIncomplete bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserSubscription snapshot de facturación del usuario.
type UserSubscription struct {
	CustomerID string
	Status     SubscriptionStatus
	Plan       Plan // vacío = sin plan
}

// HasBusiness indica si el aprovisionamiento vinculó un negocio.
func (u *User) HasBusiness() bool {
	return u.BusinessID != ""
}

// UserPatch actualización parcial. Los campos nil no se tocan.
type UserPatch struct {
	Name                   *string
	Image                  *string
	PasswordHash           *string
	EmailVerified          *bool
	Verification           *TokenDigest // reemplaza digest + vencimiento
	PasswordReset          *TokenDigest
	DashboardAccess        *bool
	Subscription           *UserSubscription
	ProvisioningIncomplete *bool
}

// TokenDigest par digest/vencimiento persistido.
type TokenDigest struct {
	Digest    string
	ExpiresAt time.Time
}

// CreateOutcome resultado de crear un usuario con email único.
type CreateOutcome int

const (
	// Created el registro se insertó.
	Created CreateOutcome = iota + 1
	// AlreadyExists otro registro con el mismo email ya existía (o ganó la carrera).
	AlreadyExists
)

func (o CreateOutcome) String() string {
	switch o {
	case Created:
		return "created"
	case AlreadyExists:
		return "already_exists"
	default:
		return "unknown"
	}
}

var emailFolder = cases.Fold()

// NormalizeEmail recorta espacios y aplica case folding Unicode.
func NormalizeEmail(email string) string {
	return emailFolder.String(strings.TrimSpace(email))
}
