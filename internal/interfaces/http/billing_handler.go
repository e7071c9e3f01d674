package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/autoplanner-api/internal/application/billing"
	"github.com/jhoicas/autoplanner-api/internal/application/dto"
	"github.com/jhoicas/autoplanner-api/pkg/logger"
)

// HeaderStripeSignature cabecera con la firma del webhook.
const HeaderStripeSignature = "Stripe-Signature"

// BillingHandler maneja checkout de suscripciones y webhooks del proveedor de pagos.
type BillingHandler struct {
	checkout      *billing.CheckoutUseCase
	reconcile     *billing.ReconcileUseCase
	webhookSecret string
	log           *logger.Logger
}

// NewBillingHandler webhookSecret es el secreto del endpoint activo para el entorno.
func NewBillingHandler(checkout *billing.CheckoutUseCase, reconcile *billing.ReconcileUseCase, webhookSecret string, log *logger.Logger) *BillingHandler {
	return &BillingHandler{checkout: checkout, reconcile: reconcile, webhookSecret: webhookSecret, log: log}
}

// Checkout godoc
// @Summary      Crear sesión de checkout
// @Tags         billing
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      dto.CheckoutRequest  true  "priceId, lang"
// @Success      200   {object}  dto.CheckoutResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      500   {object}  dto.ErrorResponse
// @Router       /api/checkout-stipe [post]
func (h *BillingHandler) Checkout(c *fiber.Ctx) error {
	var in dto.CheckoutRequest
	if err := c.BodyParser(&in); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "INVALID_BODY", MsgInvalidBody)
	}
	if in.Lang == "" {
		in.Lang = c.Get(fiber.HeaderAcceptLanguage)
	}
	out, err := h.checkout.CreateCheckout(c.UserContext(), GetUserID(c), in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(out)
}

// Webhook godoc
// @Summary      Webhook de Stripe
// @Description  Verifica la firma sobre el body crudo y concilia la suscripción. Eventos desconocidos se ignoran con 200.
// @Tags         billing
// @Accept       json
// @Produce      json
// @Param        Stripe-Signature  header    string  true  "firma del evento"
// @Success      200               {object}  dto.MessageResponse
// @Failure      400               {object}  dto.ErrorResponse
// @Failure      500               {object}  dto.ErrorResponse
// @Router       /api/webhooks [post]
func (h *BillingHandler) Webhook(c *fiber.Ctx) error {
	signature := c.Get(HeaderStripeSignature)
	if signature == "" || h.webhookSecret == "" {
		return errorJSON(c, fiber.StatusBadRequest, "MISSING_SIGNATURE", "Missing signature or endpoint secret")
	}
	// Body() apunta a un buffer reutilizado por fasthttp.
	payload := append([]byte(nil), c.Body()...)
	if len(payload) == 0 {
		return errorJSON(c, fiber.StatusBadRequest, "EMPTY_BODY", "Empty request body")
	}
	if err := h.reconcile.HandleWebhook(c.UserContext(), payload, signature, h.webhookSecret); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.MessageResponse{Success: true, Message: "Webhook processed successfully"})
}
