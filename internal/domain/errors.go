package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrUserNotFound       = fmt.Errorf("usuario no encontrado: %w", ErrNotFound)
	ErrBusinessNotFound   = fmt.Errorf("negocio no encontrado: %w", ErrNotFound)
	ErrCustomerNotFound   = fmt.Errorf("cliente de facturación no encontrado: %w", ErrNotFound)
	ErrInvalidToken       = fmt.Errorf("token inválido o expirado: %w", ErrNotFound)
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrConflict           = errors.New("conflicto con el estado actual")
	ErrEmailAlreadyExists = fmt.Errorf("el email ya está registrado: %w", ErrConflict)
	ErrAlreadyVerified    = errors.New("el email ya está verificado")
	ErrInvalidCredentials = errors.New("credenciales inválidas")
	ErrOAuthOnlyAccount   = errors.New("la cuenta usa inicio de sesión con Google")
	ErrInvalidSignature   = errors.New("firma de webhook inválida")
	ErrUnauthorized       = errors.New("no autorizado")
	ErrInternal           = errors.New("error interno")
)

// ValidationError error de validación con mensaje apto para el cliente.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Is permite errors.Is(err, ErrInvalidInput).
func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// NewValidationError construye un ValidationError.
func NewValidationError(msg string) error {
	return &ValidationError{Message: msg}
}

// InternalError envuelve un fallo inesperado (hash, repositorio, gateway).
// El detalle se registra en el servidor; al cliente solo llega un 500 genérico.
type InternalError struct {
	Op  string
	Err error
}

func (e *InternalError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *InternalError) Unwrap() error { return e.Err }

// Is permite errors.Is(err, ErrInternal).
func (e *InternalError) Is(target error) bool { return target == ErrInternal }

// Internal envuelve err como InternalError. Devuelve nil si err es nil.
func Internal(op string, err error) error {
	if err == nil {
		return nil
	}
	return &InternalError{Op: op, Err: err}
}
