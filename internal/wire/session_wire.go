package wire

import (
	"cinema-booking/internal/adaptor"
	"cinema-booking/pkg/middleware"
	"cinema-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireSession(
	r chi.Router,
	sessionHandler *adaptor.SessionHandler,
	config *utils.Config,
	log *zap.Logger,
) {
	r.Route("/api/sessions", func(r chi.Router) {
		// Anonymous callers may browse and hold seats; checkout needs an identity.
		r.Use(middleware.Identity(config.JWT.Secret, log))

		r.Post("/", sessionHandler.Create)
		r.Get("/{id}", sessionHandler.Get)

		r.Post("/{id}/seats/lock", sessionHandler.LockSeats)
		r.Post("/{id}/seats/release", sessionHandler.ReleaseSeats)
		r.Put("/{id}/seats", sessionHandler.ReplaceSeats)
		r.Get("/{id}/seats/validate", sessionHandler.ValidateSeats)

		r.Put("/{id}/combos/{comboId}", sessionHandler.SetCombo)
		r.Delete("/{id}/combos/{comboId}", sessionHandler.RemoveCombo)
		r.Put("/{id}/voucher", sessionHandler.SetVoucher)
		r.Delete("/{id}/voucher", sessionHandler.RemoveVoucher)
		r.Get("/{id}/pricing", sessionHandler.Pricing)

		r.Post("/{id}/checkout", sessionHandler.Checkout)
		r.Post("/{id}/cancel", sessionHandler.Cancel)
	})
}
