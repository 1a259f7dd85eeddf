package entity

import "time"

type SeatEventKind string

const (
	SeatEventLocked   SeatEventKind = "Locked"
	SeatEventReleased SeatEventKind = "Released"
	SeatEventSold     SeatEventKind = "Sold"
)

// SeatEvent is streamed to viewers of a showtime and never persisted.
// Seq increases monotonically per showtime.
type SeatEvent struct {
	ShowtimeID  string        `json:"showtime_id"`
	SeatID      string        `json:"seat_id"`
	Kind        SeatEventKind `json:"kind"`
	LockedUntil *time.Time    `json:"locked_until,omitempty"`
	Seq         uint64        `json:"seq"`
	OccurredAt  time.Time     `json:"occurred_at"`
}
