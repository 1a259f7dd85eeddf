package entity

import (
	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusPaid BookingStatus = "paid"
)

// Booking is the durable record written once a session is PAID.
type Booking struct {
	BaseNoDelete
	OrderRef    string        `db:"order_ref"`
	SessionID   string        `db:"session_id"`
	CustomerID  *string       `db:"customer_id"`
	ShowtimeID  string        `db:"showtime_id"`
	TotalSeats  int           `db:"total_seats"`
	TotalAmount int64         `db:"total_amount"`
	Currency    string        `db:"currency"`
	VoucherCode *string       `db:"voucher_code"`
	Status      BookingStatus `db:"status"`
}

type BookingSeat struct {
	BaseSimple
	BookingID  uuid.UUID `db:"booking_id"`
	ShowtimeID string    `db:"showtime_id"`
	SeatID     string    `db:"seat_id"`
}
