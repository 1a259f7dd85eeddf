package wire

import (
	"cinema-booking/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

// wirePayment mounts the provider callback. It is authenticated by the
// body signature, not by a bearer token.
func wirePayment(r chi.Router, paymentHandler *adaptor.PaymentHandler) {
	r.Post("/api/payments/webhook", paymentHandler.Webhook)
}
