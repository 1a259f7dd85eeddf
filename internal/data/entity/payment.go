package entity

import "time"

type PaymentStatus string

const (
	PaymentSuccess  PaymentStatus = "success"
	PaymentFailed   PaymentStatus = "failed"
	PaymentExpired  PaymentStatus = "expired"
	PaymentCanceled PaymentStatus = "canceled"
)

// PaymentOrder is what the provider returns for a created order.
type PaymentOrder struct {
	OrderRef    string
	CheckoutURL string
}

// PaymentNotice is a verified webhook payload.
type PaymentNotice struct {
	OrderRef string        `json:"order_ref"`
	Status   PaymentStatus `json:"status"`
	Amount   int64         `json:"amount"`
}

// BookingPaid is published downstream once a session is finalized.
type BookingPaid struct {
	BookingID  string    `json:"booking_id"`
	SessionID  string    `json:"session_id"`
	OrderRef   string    `json:"order_ref"`
	ShowtimeID string    `json:"showtime_id"`
	CustomerID *string   `json:"customer_id,omitempty"`
	SeatIDs    []string  `json:"seat_ids"`
	Total      int64     `json:"total"`
	Currency   string    `json:"currency"`
	PaidAt     time.Time `json:"paid_at"`
}

type AnomalyKind string

const (
	AnomalyPartialSale    AnomalyKind = "partial_sale"
	AnomalyAmountMismatch AnomalyKind = "amount_mismatch"
	AnomalyPaidAfterClose AnomalyKind = "paid_after_close"
	AnomalyPersistFailed  AnomalyKind = "booking_persist_failed"
)

// Anomaly needs an operator: money moved but the booking did not complete cleanly.
type Anomaly struct {
	Kind       AnomalyKind `json:"kind"`
	SessionID  string      `json:"session_id"`
	OrderRef   string      `json:"order_ref"`
	ShowtimeID string      `json:"showtime_id"`
	SoldSeats  []string    `json:"sold_seats,omitempty"`
	LostSeats  []string    `json:"lost_seats,omitempty"`
	Amount     int64       `json:"amount"`
	Expected   int64       `json:"expected"`
	Detail     string      `json:"detail,omitempty"`
	DetectedAt time.Time   `json:"detected_at"`
}
