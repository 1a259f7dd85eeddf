package usecase

import (
	"context"
	"time"

	"cinema-booking/internal/data/entity"
	"cinema-booking/internal/inventory"
	"cinema-booking/internal/pricing"
)

// SeatInventory is the seat lock table the sessions drive.
type SeatInventory interface {
	TryLock(ctx context.Context, showtimeID string, seatIDs []string, sessionID string, ttl time.Duration) (*inventory.LockResult, error)
	Release(ctx context.Context, showtimeID string, seatIDs []string, sessionID string) ([]string, error)
	Replace(ctx context.Context, showtimeID string, seatIDs []string, sessionID string, ttl time.Duration, allOrNothing bool) (*inventory.ReplaceResult, error)
	Extend(ctx context.Context, showtimeID string, seatIDs []string, sessionID string, ttl time.Duration) (held, lost []string, err error)
	HeldBy(ctx context.Context, showtimeID string, seatIDs []string, sessionID string) (held, lost []string, err error)
	MarkSold(ctx context.Context, showtimeID string, seatIDs []string, sessionID string) ([]string, error)
	Snapshot(ctx context.Context, showtimeID string) (*inventory.Snapshot, error)
	Lookup(ctx context.Context, showtimeID string, seatIDs []string) ([]entity.Seat, error)
}

type PricingEngine interface {
	Compute(ctx context.Context, in pricing.Input) (entity.PricingSnapshot, error)
	CheckVoucher(ctx context.Context, code string, customerID *string) (*entity.Voucher, error)
	CheckCombo(ctx context.Context, comboID string) (*entity.Combo, error)
}

type PaymentGateway interface {
	CreateOrder(ctx context.Context, amount int64, currency string, metadata map[string]string) (*entity.PaymentOrder, error)
}

type SignatureVerifier interface {
	Verify(body []byte, signature string) bool
}

// BookingWriter persists finalized bookings.
type BookingWriter interface {
	SaveBooking(ctx context.Context, booking *entity.Booking, seats []entity.BookingSeat) error
}

// EventPublisher carries paid bookings downstream and anomalies to operators.
type EventPublisher interface {
	PublishPaid(ctx context.Context, ev entity.BookingPaid) error
	ReportAnomaly(ctx context.Context, a entity.Anomaly) error
}

// TimeoutScheduler arranges a HandlePaymentTimeout call at a given time.
type TimeoutScheduler interface {
	SchedulePaymentTimeout(ctx context.Context, sessionID, orderRef string, at time.Time) error
}
