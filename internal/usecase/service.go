package usecase

import (
	"cinema-booking/pkg/utils"

	"go.uber.org/zap"
)

type Service struct {
	Session  SessionService
	Checkout CheckoutService
	// Core is exposed for the background sweeper.
	Core *SessionCore
}

// Dependencies are the collaborators the booking flow drives. Timeouts may be nil.
type Dependencies struct {
	Seats    SeatInventory
	Pricing  PricingEngine
	Gateway  PaymentGateway
	Verifier SignatureVerifier
	Bookings BookingWriter
	Events   EventPublisher
	Timeouts TimeoutScheduler
	Clock    utils.Clock
}

func NewService(deps Dependencies, config *utils.Config, log *zap.Logger) *Service {
	core := NewSessionCore(NewSessionStore(), deps.Seats, deps.Pricing, config.Booking, deps.Clock, log)
	return &Service{
		Session:  NewSessionService(core, log),
		Checkout: NewCheckoutService(core, deps.Gateway, deps.Verifier, deps.Bookings, deps.Events, deps.Timeouts, log),
		Core:     core,
	}
}
