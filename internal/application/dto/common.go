package dto

// Response sobre común de todas las respuestas JSON de la API.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// ErrorResponse cuerpo de error HTTP.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Error   string `json:"error"`
}

// MessageResponse respuesta de éxito con solo un mensaje.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
