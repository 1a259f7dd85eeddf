package entity

import "time"

type SessionState string

const (
	SessionDraft          SessionState = "DRAFT"
	SessionSeatsLocked    SessionState = "SEATS_LOCKED"
	SessionPendingPayment SessionState = "PENDING_PAYMENT"
	SessionPaid           SessionState = "PAID"
	SessionCanceled       SessionState = "CANCELED"
	SessionExpired        SessionState = "EXPIRED"
	SessionFailed         SessionState = "FAILED"
)

func (s SessionState) Terminal() bool {
	switch s {
	case SessionPaid, SessionCanceled, SessionExpired, SessionFailed:
		return true
	}
	return false
}

// BookingSession is a customer's in-progress cart for one showtime.
type BookingSession struct {
	ID            string
	ShowtimeID    string
	CustomerID    *string
	State         SessionState
	SeatIDs       []string
	Combos        map[string]int
	VoucherCode   string
	Pricing       PricingSnapshot
	ExpiresAt     time.Time
	Version       int64
	OrderRef      string
	PaymentURL    string
	FailureReason string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ClosedAt      *time.Time
}

// HasSeat reports whether seatID is in the session's seat set.
func (s *BookingSession) HasSeat(seatID string) bool {
	for _, id := range s.SeatIDs {
		if id == seatID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy safe to hand out of the session lock.
func (s *BookingSession) Clone() *BookingSession {
	cp := *s
	cp.SeatIDs = append([]string(nil), s.SeatIDs...)
	cp.Combos = make(map[string]int, len(s.Combos))
	for k, v := range s.Combos {
		cp.Combos[k] = v
	}
	if s.CustomerID != nil {
		id := *s.CustomerID
		cp.CustomerID = &id
	}
	if s.ClosedAt != nil {
		t := *s.ClosedAt
		cp.ClosedAt = &t
	}
	return &cp
}
