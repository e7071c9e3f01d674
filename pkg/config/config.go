package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config agrupa la configuración de la aplicación (lectura vía Viper desde env y opcionalmente archivo).
// Se construye una sola vez en el arranque y se inyecta en gateways y casos de uso.
type Config struct {
	App    AppConfig
	DB     DBConfig
	JWT    JWTConfig
	HTTP   HTTPConfig
	Stripe StripeConfig
	Plans  PlanConfig
	Email  EmailConfig
	Google GoogleConfig
	Tokens TokenConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env      string // development, staging, production
	Name     string
	BaseURL  string // URL pública del front (enlaces en emails y redirecciones de checkout)
	LogLevel string
}

// IsDevelopment indica si la app corre en modo desarrollo.
func (c AppConfig) IsDevelopment() bool {
	return c.Env == "development"
}

// DBConfig configuración de PostgreSQL.
// Si DatabaseURL no está vacío, se usa como connection string completo.
type DBConfig struct {
	DatabaseURL      string
	Host             string
	Port             int
	User             string
	Password         string
	DBName           string
	SSLMode          string
	ConnectTimeout   time.Duration // establecimiento de conexión (30s)
	OperationTimeout time.Duration // límite por operación de repositorio (45s)
	MinConns         int32
	MaxConns         int32
	MaxConnIdleTime  time.Duration
}

// ConnectionString devuelve el DSN a usar: DATABASE_URL si está definido, si no el construido con DSN().
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN devuelve el connection string para PostgreSQL con URL encoding para caracteres especiales.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// JWTConfig configuración de JWT de sesión.
type JWTConfig struct {
	Secret     string
	Expiration int // minutos
	Issuer     string
}

// HTTPConfig configuración del servidor HTTP.
type HTTPConfig struct {
	Host          string
	Port          int
	AuthRateLimit int // peticiones por minuto e IP en rutas de credenciales; 0 = sin límite
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StripeConfig credenciales del proveedor de pagos.
type StripeConfig struct {
	SecretKey        string
	WebhookSecret    string
	DevWebhookSecret string
	Timeout          time.Duration
}

// PlanConfig identificadores de precio de Stripe por plan.
type PlanConfig struct {
	FreePriceID       string
	BasicPriceID      string
	ProPriceID        string
	EnterprisePriceID string
}

// EmailConfig proveedor de email transaccional (Resend).
type EmailConfig struct {
	ResendAPIKey string
	From         string
}

// GoogleConfig cliente OAuth de Google (verificación de ID tokens).
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	JWKSURL      string
}

// TokenConfig vigencia de los tokens de verificación y de reseteo de contraseña.
type TokenConfig struct {
	VerificationTTL  time.Duration
	PasswordResetTTL time.Duration
}

// WebhookSecret devuelve el secreto de webhooks según el entorno (dev o prod).
func (c *Config) WebhookSecret() string {
	if c.App.IsDevelopment() {
		return c.Stripe.DevWebhookSecret
	}
	return c.Stripe.WebhookSecret
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad. Devuelve error si la configuración no pasa Validate.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		App: AppConfig{
			Env:      getString(v, "APP_ENV", "development"),
			Name:     getString(v, "APP_NAME", "autoplanner-api"),
			BaseURL:  strings.TrimRight(getString(v, "APP_BASE_URL", "http://localhost:3000"), "/"),
			LogLevel: getString(v, "LOG_LEVEL", "info"),
		},
		DB: DBConfig{
			DatabaseURL:      getString(v, "DATABASE_URL", ""),
			Host:             getString(v, "DB_HOST", "localhost"),
			Port:             getInt(v, "DB_PORT", 5432),
			User:             getString(v, "DB_USER", "postgres"),
			Password:         getString(v, "DB_PASSWORD", ""),
			DBName:           getString(v, "DB_NAME", "autoplanner"),
			SSLMode:          getString(v, "DB_SSLMODE", "disable"),
			ConnectTimeout:   time.Duration(getInt(v, "DB_CONNECT_TIMEOUT_SECONDS", 30)) * time.Second,
			OperationTimeout: time.Duration(getInt(v, "DB_OPERATION_TIMEOUT_SECONDS", 45)) * time.Second,
			MinConns:         int32(getInt(v, "DB_MIN_CONNS", 2)),
			MaxConns:         int32(getInt(v, "DB_MAX_CONNS", 25)),
			MaxConnIdleTime:  time.Duration(getInt(v, "DB_MAX_CONN_IDLE_SECONDS", 30)) * time.Second,
		},
		JWT: JWTConfig{
			Secret:     getString(v, "JWT_SECRET", ""),
			Expiration: getInt(v, "JWT_EXPIRATION_MINUTES", 60),
			Issuer:     getString(v, "JWT_ISSUER", "autoplanner"),
		},
		HTTP: HTTPConfig{
			Host:          getString(v, "HTTP_HOST", "0.0.0.0"),
			Port:          getInt(v, "HTTP_PORT", 8080),
			AuthRateLimit: getInt(v, "HTTP_AUTH_RATE_LIMIT", 20),
		},
		Stripe: StripeConfig{
			SecretKey:        getString(v, "STRIPE_SECRET_KEY", ""),
			WebhookSecret:    getString(v, "STRIPE_WEBHOOK_SECRET", ""),
			DevWebhookSecret: getString(v, "STRIPE_DEV_WEBHOOK_SECRET", ""),
			Timeout:          time.Duration(getInt(v, "STRIPE_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		Plans: PlanConfig{
			FreePriceID:       getString(v, "PLAN_PRICE_FREE", ""),
			BasicPriceID:      getString(v, "PLAN_PRICE_BASIC", ""),
			ProPriceID:        getString(v, "PLAN_PRICE_PRO", ""),
			EnterprisePriceID: getString(v, "PLAN_PRICE_ENTERPRISE", ""),
		},
		Email: EmailConfig{
			ResendAPIKey: getString(v, "RESEND_API_KEY", ""),
			From:         getString(v, "EMAIL_FROM", "noreply@autoplanner.pro"),
		},
		Google: GoogleConfig{
			ClientID:     getString(v, "GOOGLE_CLIENT_ID", ""),
			ClientSecret: getString(v, "GOOGLE_CLIENT_SECRET", ""),
			JWKSURL:      getString(v, "GOOGLE_JWKS_URL", "https://www.googleapis.com/oauth2/v3/certs"),
		},
		Tokens: TokenConfig{
			VerificationTTL:  time.Duration(getInt(v, "VERIFICATION_TOKEN_TTL_HOURS", 24)) * time.Hour,
			PasswordResetTTL: time.Duration(getInt(v, "PASSWORD_RESET_TTL_MINUTES", 60)) * time.Minute,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate comprueba los valores críticos. En producción Stripe es obligatorio;
// el email y Google pueden faltar (los gateways degradan a no-op con un warning).
func (c *Config) Validate() error {
	var errs []error
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET es obligatorio"))
	}
	if c.JWT.Expiration <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRATION_MINUTES debe ser positivo"))
	}
	if _, err := url.ParseRequestURI(c.App.BaseURL); err != nil {
		errs = append(errs, fmt.Errorf("APP_BASE_URL inválida: %w", err))
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("HTTP_PORT fuera de rango: %d", c.HTTP.Port))
	}
	if c.DB.ConnectTimeout <= 0 || c.DB.OperationTimeout <= 0 {
		errs = append(errs, errors.New("los timeouts de base de datos deben ser positivos"))
	}
	if c.Tokens.VerificationTTL <= 0 || c.Tokens.PasswordResetTTL <= 0 {
		errs = append(errs, errors.New("la vigencia de los tokens debe ser positiva"))
	}
	if c.App.Env == "production" {
		if c.Stripe.SecretKey == "" {
			errs = append(errs, errors.New("STRIPE_SECRET_KEY es obligatorio en producción"))
		}
		if c.Stripe.WebhookSecret == "" {
			errs = append(errs, errors.New("STRIPE_WEBHOOK_SECRET es obligatorio en producción"))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("configuración inválida: %w", errors.Join(errs...))
	}
	return nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, err := strconv.Atoi(v.GetString(key))
			if err != nil {
				return def
			}
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}
