package entity

import (
	"fmt"
	"time"
)

type SeatStatus string

const (
	SeatAvailable SeatStatus = "AVAILABLE"
	SeatLocked    SeatStatus = "LOCKED"
	SeatSold      SeatStatus = "SOLD"
	SeatBlocked   SeatStatus = "BLOCKED"
)

// Seat is one physical seat of one showtime.
type Seat struct {
	ID          string     `db:"seat_id" json:"seat_id"`
	ShowtimeID  string     `db:"showtime_id" json:"showtime_id"`
	Row         string     `db:"seat_row" json:"row"`
	Number      int        `db:"seat_number" json:"number"`
	SeatTypeID  string     `db:"seat_type_id" json:"seat_type_id"`
	Status      SeatStatus `json:"status"`
	LockedUntil *time.Time `json:"locked_until,omitempty"`
	LockedBy    string     `json:"-"`
}

// Label returns the printed seat label, e.g. "C7".
func (s Seat) Label() string {
	return fmt.Sprintf("%s%d", s.Row, s.Number)
}

// Occupied reports whether the seat cannot be taken by another customer.
func (s Seat) Occupied() bool {
	return s.Status != SeatAvailable
}
