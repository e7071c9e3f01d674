package dto

// CheckoutRequest entrada de POST /api/checkout-stipe.
type CheckoutRequest struct {
	PriceID string `json:"priceId"`
	Lang    string `json:"lang"`
}

// CheckoutResponse URL de la sesión de checkout del proveedor.
type CheckoutResponse struct {
	URL string `json:"url"`
}
