package wire

import (
	"cinema-booking/internal/adaptor"
	"cinema-booking/pkg/middleware"
	"cinema-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireShowtime(
	r chi.Router,
	showtimeHandler *adaptor.ShowtimeHandler,
	sessionHandler *adaptor.SessionHandler,
	config *utils.Config,
	log *zap.Logger,
) {
	r.Route("/api/showtimes/{id}/seats", func(r chi.Router) {
		r.Get("/", showtimeHandler.Seats)
		r.Get("/events", showtimeHandler.Events)

		r.With(middleware.Identity(config.JWT.Secret, log)).Post("/lock", sessionHandler.LockSeatsForShowtime)
	})
}
