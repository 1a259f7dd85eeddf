package usecase

import (
	"context"
	"time"

	"cinema-booking/internal/apperr"
	"cinema-booking/internal/data/entity"
	"cinema-booking/internal/pricing"
	"cinema-booking/pkg/utils"

	"go.uber.org/zap"
)

const (
	ReasonPaymentTimeout = "payment_timeout"
	ReasonCanceled       = "canceled_by_customer"
	ReasonSeatLockLost   = "seat_lock_lost"
	ReasonAmountMismatch = "amount_mismatch"
)

// SessionCore holds what the session and checkout services share: the
// store, the seat inventory and the pricing engine, plus the transitions
// both of them apply.
type SessionCore struct {
	store   *SessionStore
	seats   SeatInventory
	pricing PricingEngine
	cfg     utils.BookingConfig
	clock   utils.Clock
	log     *zap.Logger
}

func NewSessionCore(store *SessionStore, seats SeatInventory, engine PricingEngine, cfg utils.BookingConfig, clock utils.Clock, log *zap.Logger) *SessionCore {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &SessionCore{
		store:   store,
		seats:   seats,
		pricing: engine,
		cfg:     cfg,
		clock:   clock,
		log:     log.With(zap.String("service", "session")),
	}
}

// withSession runs fn with the session locked and lazy expiry applied.
func (c *SessionCore) withSession(ctx context.Context, id string, fn func(s *entity.BookingSession, now time.Time) error) error {
	e, err := c.store.entry(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	now := c.clock.Now()
	c.expire(ctx, e.session, now)
	return fn(e.session, now)
}

// expire closes a session whose deadline passed. Caller holds the session lock.
func (c *SessionCore) expire(ctx context.Context, s *entity.BookingSession, now time.Time) bool {
	if s.State.Terminal() || s.ExpiresAt.After(now) {
		return false
	}
	if s.State == entity.SessionPendingPayment {
		c.finish(ctx, s, entity.SessionFailed, ReasonPaymentTimeout, now)
	} else {
		c.finish(ctx, s, entity.SessionExpired, "", now)
	}
	return true
}

// finish moves s to a terminal state. Seats still held are released
// unless the session was paid.
func (c *SessionCore) finish(ctx context.Context, s *entity.BookingSession, state entity.SessionState, reason string, now time.Time) {
	if state != entity.SessionPaid && len(s.SeatIDs) > 0 {
		released, err := c.seats.Release(ctx, s.ShowtimeID, s.SeatIDs, s.ID)
		if err != nil {
			// locks still lapse on their own TTL
			c.log.Error("Failed to release seats of closed session",
				zap.String("session_id", s.ID),
				zap.Error(err),
			)
		} else if len(released) > 0 {
			c.log.Debug("Seats released", zap.String("session_id", s.ID), zap.Strings("seat_ids", released))
		}
	}

	from := s.State
	s.State = state
	s.FailureReason = reason
	s.ClosedAt = &now
	s.UpdatedAt = now
	s.Version++

	c.log.Info("Session closed",
		zap.String("session_id", s.ID),
		zap.String("showtime_id", s.ShowtimeID),
		zap.String("from", string(from)),
		zap.String("to", string(state)),
		zap.String("reason", reason),
	)
}

func checkWritable(s *entity.BookingSession, version int64) error {
	switch {
	case s.State == entity.SessionExpired:
		return apperr.ErrSessionExpired
	case s.State == entity.SessionFailed && s.FailureReason == ReasonPaymentTimeout:
		return apperr.ErrSessionExpired
	case s.State.Terminal():
		return apperr.ErrSessionClosed.WithDetails(map[string]any{"state": s.State})
	case version != 0 && version != s.Version:
		return apperr.ErrVersionMismatch.WithDetails(map[string]int64{"current_version": s.Version})
	}
	return nil
}

func checkEditable(s *entity.BookingSession) error {
	if s.State == entity.SessionPendingPayment {
		return apperr.New(apperr.Conflict, "checkout in progress, session can no longer be edited")
	}
	return nil
}

// setSeats replaces the seat list and derives DRAFT or SEATS_LOCKED from it.
func setSeats(s *entity.BookingSession, seats []string) {
	s.SeatIDs = seats
	if len(seats) > 0 {
		s.State = entity.SessionSeatsLocked
	} else {
		s.State = entity.SessionDraft
	}
}

// commit finishes a mutation: locks are extended to the new deadline,
// seats whose lock lapsed are dropped, the version moves on and the price
// is recomputed.
func (c *SessionCore) commit(ctx context.Context, s *entity.BookingSession, now time.Time) error {
	if len(s.SeatIDs) > 0 {
		held, lost, err := c.seats.Extend(ctx, s.ShowtimeID, s.SeatIDs, s.ID, c.cfg.HoldTTL)
		if err != nil {
			return err
		}
		if len(lost) > 0 {
			c.log.Info("Dropping seats whose lock lapsed",
				zap.String("session_id", s.ID),
				zap.Strings("seat_ids", lost),
			)
		}
		setSeats(s, held)
	} else {
		setSeats(s, nil)
	}

	s.Version++
	s.UpdatedAt = now
	s.ExpiresAt = now.Add(c.cfg.HoldTTL)
	return c.reprice(ctx, s)
}

func (c *SessionCore) reprice(ctx context.Context, s *entity.BookingSession) error {
	var seats []entity.Seat
	if len(s.SeatIDs) > 0 {
		var err error
		seats, err = c.seats.Lookup(ctx, s.ShowtimeID, s.SeatIDs)
		if err != nil {
			return err
		}
	}
	snap, err := c.pricing.Compute(ctx, pricing.Input{
		ShowtimeID:  s.ShowtimeID,
		Seats:       seats,
		Combos:      s.Combos,
		VoucherCode: s.VoucherCode,
		CustomerID:  s.CustomerID,
	})
	if err != nil {
		return err
	}
	s.Pricing = snap
	return nil
}

// ExpireSessions closes every session past its deadline. Sessions locked by
// a request in flight are skipped; that request applies expiry itself and
// the next sweep retries them.
func (c *SessionCore) ExpireSessions(ctx context.Context, now time.Time) int {
	closed := 0
	for _, e := range c.store.entries() {
		if !e.mu.TryLock() {
			continue
		}
		if c.expire(ctx, e.session, now) {
			closed++
		}
		e.mu.Unlock()
	}
	return closed
}

// Purge forgets terminal sessions older than the retention window.
func (c *SessionCore) Purge(now time.Time) int {
	return c.store.purge(now.Add(-c.cfg.TerminalRetention))
}

// Sessions reports how many sessions are held in memory, terminal ones included.
func (c *SessionCore) Sessions() int {
	return c.store.Len()
}
