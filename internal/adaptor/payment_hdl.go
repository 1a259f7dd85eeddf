package adaptor

import (
	"io"
	"net/http"

	"cinema-booking/internal/payment"
	"cinema-booking/internal/usecase"
	"cinema-booking/pkg/utils"

	"go.uber.org/zap"
)

const maxWebhookBody = 1 << 20

type PaymentHandler struct {
	checkout usecase.CheckoutService
	log      *zap.Logger
}

func NewPaymentHandler(checkout usecase.CheckoutService, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		checkout: checkout,
		log:      log.With(zap.String("handler", "payment")),
	}
}

// Webhook handles POST /api/payments/webhook. The raw body is verified
// before it is parsed.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.checkout.HandleWebhook(r.Context(), body, r.Header.Get(payment.SignatureHeader))
	if err != nil {
		handleServiceError(h.log, w, err, "handle payment webhook")
		return
	}

	utils.ResponseSuccess(w, "success", result)
}
