package account

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/jhoicas/autoplanner-api/internal/application/dto"
	"github.com/jhoicas/autoplanner-api/internal/domain"
)

// Política de credenciales, compartida por signup y reseteo de contraseña.
const (
	MinNameLength     = 3
	MaxNameLength     = 30
	MinPasswordLength = 6
	MaxPasswordBytes  = 72 // límite de entrada de bcrypt
)

// Mensajes de validación devueltos tal cual al cliente.
const (
	MsgNameRequired     = "Name is required"
	MsgNameLength       = "Name must be between 3 and 30 characters"
	MsgEmailRequired    = "Email is required"
	MsgPhoneRequired    = "Phone number is required"
	MsgPasswordTooShort = "Password must be at least 6 characters"
	MsgPasswordTooLong  = "Password must be at most 72 bytes"
	MsgInvalidEmail     = "Invalid email format"
	MsgTokenRequired    = "Verification token is required"
	MsgResetTokenNeeded = "Reset token is required"
	MsgUserIDRequired   = "User ID is required"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidateSignup aplica las reglas de entrada del registro por credenciales.
// Devuelve el primer error encontrado, en el mismo orden en que se muestran en el formulario.
func ValidateSignup(in dto.SignupRequest) error {
	name := strings.TrimSpace(in.Name)
	email := strings.TrimSpace(in.Email)
	switch {
	case name == "":
		return domain.NewValidationError(MsgNameRequired)
	case email == "":
		return domain.NewValidationError(MsgEmailRequired)
	case strings.TrimSpace(in.PhoneNumber) == "":
		return domain.NewValidationError(MsgPhoneRequired)
	}
	if err := ValidatePassword(in.Password); err != nil {
		return err
	}
	if err := ValidateEmail(email); err != nil {
		return err
	}
	if n := utf8.RuneCountInString(name); n < MinNameLength || n > MaxNameLength {
		return domain.NewValidationError(MsgNameLength)
	}
	return nil
}

// ValidateEmail valida el formato básico local@dominio.tld.
func ValidateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return domain.NewValidationError(MsgInvalidEmail)
	}
	return nil
}

// ValidatePassword mínimo contado en caracteres; máximo en bytes.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return domain.NewValidationError(MsgPasswordTooShort)
	}
	if len([]byte(password)) > MaxPasswordBytes {
		return domain.NewValidationError(MsgPasswordTooLong)
	}
	return nil
}
