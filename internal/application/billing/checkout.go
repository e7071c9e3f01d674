package billing

import (
	"context"
	"slices"
	"strings"

	"golang.org/x/text/language"

	"github.com/jhoicas/autoplanner-api/internal/application/dto"
	"github.com/jhoicas/autoplanner-api/internal/application/ports"
	"github.com/jhoicas/autoplanner-api/internal/domain"
	"github.com/jhoicas/autoplanner-api/internal/domain/repository"
	"github.com/jhoicas/autoplanner-api/pkg/logger"
)

// Idiomas con páginas de retorno de checkout. El primero es el default.
var checkoutLanguages = []language.Tag{language.English, language.French}

var checkoutLangMatcher = language.NewMatcher(checkoutLanguages)

// CheckoutUseCase abre sesiones de checkout de suscripción para el negocio del usuario.
type CheckoutUseCase struct {
	users      repository.UserRepository
	businesses repository.BusinessRepository
	billing    ports.BillingGateway
	baseURL    string
	priceIDs   []string // vacío = se acepta cualquier priceId
	log        *logger.Logger
}

// NewCheckoutUseCase priceIDs son los precios configurados por plan.
func NewCheckoutUseCase(
	users repository.UserRepository,
	businesses repository.BusinessRepository,
	billing ports.BillingGateway,
	baseURL string,
	priceIDs []string,
	log *logger.Logger,
) *CheckoutUseCase {
	if log == nil {
		log = logger.Nop()
	}
	allowed := make([]string, 0, len(priceIDs))
	for _, id := range priceIDs {
		if id != "" {
			allowed = append(allowed, id)
		}
	}
	return &CheckoutUseCase{
		users:      users,
		businesses: businesses,
		billing:    billing,
		baseURL:    strings.TrimRight(baseURL, "/"),
		priceIDs:   allowed,
		log:        log.Component("checkout"),
	}
}

// CreateCheckout crea la sesión usando el cliente de facturación del negocio del usuario.
func (uc *CheckoutUseCase) CreateCheckout(ctx context.Context, userID string, in dto.CheckoutRequest) (*dto.CheckoutResponse, error) {
	priceID := strings.TrimSpace(in.PriceID)
	if priceID == "" {
		return nil, domain.NewValidationError("PriceId is required")
	}
	if len(uc.priceIDs) > 0 && !slices.Contains(uc.priceIDs, priceID) {
		return nil, domain.NewValidationError("Unknown priceId")
	}
	if userID == "" {
		return nil, domain.ErrUnauthorized
	}

	user, err := uc.users.GetByID(ctx, userID)
	if err != nil {
		return nil, domain.Internal("buscar usuario", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	business, err := uc.businesses.GetByOwner(ctx, user.ID)
	if err != nil {
		return nil, domain.Internal("buscar negocio", err)
	}
	if business == nil {
		return nil, domain.ErrBusinessNotFound
	}
	customerID := business.Subscription.CustomerID
	if customerID == "" {
		return nil, domain.ErrCustomerNotFound
	}

	lang := NegotiateLanguage(in.Lang)
	url, err := uc.billing.CreateCheckoutSession(ctx, ports.CheckoutSession{
		CustomerID: customerID,
		PriceID:    priceID,
		SuccessURL: uc.baseURL + "/" + lang + "/success-checkout",
		CancelURL:  uc.baseURL + "/" + lang + "/cancel-checkout",
	})
	if err != nil {
		return nil, domain.Internal("crear sesión de checkout", err)
	}
	uc.log.Info().
		Str("user_id", user.ID).
		Str("business_id", business.ID).
		Str("price_id", priceID).
		Msg("sesión de checkout creada")
	return &dto.CheckoutResponse{URL: url}, nil
}

// NegotiateLanguage acepta un código simple ("fr") o un Accept-Language completo
// y devuelve el idioma base soportado más cercano ("en" si no hay coincidencia).
func NegotiateLanguage(raw string) string {
	fallback, _ := checkoutLanguages[0].Base()
	tags, _, err := language.ParseAcceptLanguage(raw)
	if err != nil || len(tags) == 0 {
		return fallback.String()
	}
	_, idx, conf := checkoutLangMatcher.Match(tags...)
	if conf == language.No {
		return fallback.String()
	}
	base, _ := checkoutLanguages[idx].Base()
	return base.String()
}
