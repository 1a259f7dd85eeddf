package adaptor

import (
	"cinema-booking/internal/realtime"
	"cinema-booking/internal/usecase"

	"go.uber.org/zap"
)

type Handler struct {
	Session  *SessionHandler
	Showtime *ShowtimeHandler
	Payment  *PaymentHandler
	Health   *HealthHandler
}

func NewHandler(service *usecase.Service, seats realtime.SnapshotSource, gateway *realtime.Gateway, log *zap.Logger) *Handler {
	return &Handler{
		Session:  NewSessionHandler(service.Session, service.Checkout, log),
		Showtime: NewShowtimeHandler(seats, gateway, log),
		Payment:  NewPaymentHandler(service.Checkout, log),
		Health:   NewHealthHandler(gateway, service.Core),
	}
}
