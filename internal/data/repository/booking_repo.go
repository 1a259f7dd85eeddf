package repository

import (
	"context"
	"fmt"

	"cinema-booking/internal/data/entity"
	"cinema-booking/pkg/database"

	"go.uber.org/zap"
)

type BookingRepository interface {
	// SaveBooking writes a paid booking and its seats in one transaction.
	// A second save for the same order_ref is a no-op.
	SaveBooking(ctx context.Context, booking *entity.Booking, seats []entity.BookingSeat) error
}

type bookingRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewBookingRepository(db database.PgxIface, log *zap.Logger) BookingRepository {
	return &bookingRepository{
		db:  db,
		log: log.With(zap.String("repository", "booking")),
	}
}

func (r *bookingRepository) SaveBooking(ctx context.Context, booking *entity.Booking, seats []entity.BookingSeat) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin booking tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		INSERT INTO bookings (id, order_ref, session_id, customer_id, showtime_id, total_seats,
		                      total_amount, currency, voucher_code, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (order_ref) DO NOTHING
	`

	tag, err := tx.Exec(ctx, query,
		booking.ID,
		booking.OrderRef,
		booking.SessionID,
		booking.CustomerID,
		booking.ShowtimeID,
		booking.TotalSeats,
		booking.TotalAmount,
		booking.Currency,
		booking.VoucherCode,
		booking.Status,
		booking.CreatedAt,
		booking.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create booking",
			zap.Error(err),
			zap.String("order_ref", booking.OrderRef),
		)
		return fmt.Errorf("create booking %s: %w", booking.OrderRef, err)
	}
	if tag.RowsAffected() == 0 {
		r.log.Info("Booking already recorded", zap.String("order_ref", booking.OrderRef))
		return nil
	}

	seatQuery := `
		INSERT INTO booking_seats (id, booking_id, showtime_id, seat_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, bs := range seats {
		if _, err := tx.Exec(ctx, seatQuery, bs.ID, bs.BookingID, bs.ShowtimeID, bs.SeatID, bs.CreatedAt); err != nil {
			r.log.Error("Failed to create booking seat",
				zap.Error(err),
				zap.String("booking_id", booking.ID.String()),
				zap.String("seat_id", bs.SeatID),
			)
			return fmt.Errorf("create booking seat %s for booking %s: %w", bs.SeatID, booking.ID.String(), err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit booking %s: %w", booking.OrderRef, err)
	}

	r.log.Info("Booking saved",
		zap.String("booking_id", booking.ID.String()),
		zap.String("order_ref", booking.OrderRef),
		zap.Int("seats", len(seats)),
	)
	return nil
}
