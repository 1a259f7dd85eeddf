package usecase

import (
	"context"
	"time"

	"cinema-booking/internal/apperr"
	"cinema-booking/internal/data/entity"
	"cinema-booking/internal/dto/request"
	"cinema-booking/internal/dto/response"
	"cinema-booking/internal/inventory"
	"cinema-booking/internal/seatrules"
	"cinema-booking/pkg/utils"

	"go.uber.org/zap"
)

type SessionService interface {
	Create(ctx context.Context, req *request.CreateSessionRequest) (*response.SessionResponse, error)
	Get(ctx context.Context, sessionID string) (*response.SessionResponse, error)

	// Seats
	LockSeats(ctx context.Context, sessionID string, req *request.SeatsRequest) (*response.SeatChangeResponse, error)
	LockSeatsForShowtime(ctx context.Context, showtimeID string, req *request.SeatsRequest) (*response.SeatChangeResponse, error)
	ReleaseSeats(ctx context.Context, sessionID string, req *request.SeatsRequest) (*response.SeatChangeResponse, error)
	ReplaceSeats(ctx context.Context, sessionID string, req *request.ReplaceSeatsRequest) (*response.SeatChangeResponse, error)
	ValidateSeats(ctx context.Context, sessionID string) (*response.SeatValidationResponse, error)

	// Cart
	SetCombo(ctx context.Context, sessionID, comboID string, req *request.ComboRequest) (*response.SessionResponse, error)
	RemoveCombo(ctx context.Context, sessionID, comboID string, version int64) (*response.SessionResponse, error)
	SetVoucher(ctx context.Context, sessionID string, req *request.VoucherRequest) (*response.SessionResponse, error)
	RemoveVoucher(ctx context.Context, sessionID string, version int64) (*response.SessionResponse, error)
	Pricing(ctx context.Context, sessionID string) (*response.PricingResponse, error)

	Cancel(ctx context.Context, sessionID string, version int64) (*response.SessionResponse, error)
}

type sessionService struct {
	*SessionCore
	log *zap.Logger
}

func NewSessionService(core *SessionCore, log *zap.Logger) SessionService {
	return &sessionService{
		SessionCore: core,
		log:         log.With(zap.String("service", "session")),
	}
}

func validationError(errs map[string]string) error {
	return apperr.New(apperr.Validation, "validation failed: %s", utils.FormatValidationErrors(errs)).WithDetails(errs)
}

// mutate applies fn to a writable session and commits it. The returned
// session is a copy taken after the commit.
func (s *sessionService) mutate(ctx context.Context, id string, version int64, fn func(sess *entity.BookingSession, now time.Time) error) (*entity.BookingSession, error) {
	var out *entity.BookingSession
	err := s.withSession(ctx, id, func(sess *entity.BookingSession, now time.Time) error {
		if err := checkWritable(sess, version); err != nil {
			return err
		}
		if err := checkEditable(sess); err != nil {
			return err
		}
		if err := fn(sess, now); err != nil {
			return err
		}
		if err := s.commit(ctx, sess, now); err != nil {
			return err
		}
		out = sess.Clone()
		return nil
	})
	return out, err
}

func (s *sessionService) Create(ctx context.Context, req *request.CreateSessionRequest) (*response.SessionResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create session validation failed", zap.Any("errors", errs))
		return nil, validationError(errs)
	}
	sess, err := s.create(ctx, req.ShowtimeID)
	if err != nil {
		return nil, err
	}
	resp := response.SessionToResponse(sess)
	return &resp, nil
}

func (s *sessionService) create(ctx context.Context, showtimeID string) (*entity.BookingSession, error) {
	// loads the layout and rejects unknown showtimes
	if _, err := s.seats.Lookup(ctx, showtimeID, nil); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	sess := &entity.BookingSession{
		ID:         utils.GenerateSessionID(),
		ShowtimeID: showtimeID,
		CustomerID: utils.GetCustomerIDFromContext(ctx),
		State:      entity.SessionDraft,
		Combos:     make(map[string]int),
		ExpiresAt:  now.Add(s.cfg.HoldTTL),
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.reprice(ctx, sess); err != nil {
		return nil, err
	}
	s.store.add(sess)

	s.log.Info("Session created",
		zap.String("session_id", sess.ID),
		zap.String("showtime_id", showtimeID),
		zap.Bool("anonymous", sess.CustomerID == nil),
	)
	return sess.Clone(), nil
}

func (s *sessionService) Get(ctx context.Context, sessionID string) (*response.SessionResponse, error) {
	var resp response.SessionResponse
	err := s.withSession(ctx, sessionID, func(sess *entity.BookingSession, _ time.Time) error {
		resp = response.SessionToResponse(sess.Clone())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func failedToStrings(failed map[string]inventory.FailReason) map[string]string {
	out := make(map[string]string, len(failed))
	for id, reason := range failed {
		out[id] = string(reason)
	}
	return out
}

func (s *sessionService) checkSeatLimit(count int) error {
	if count <= s.cfg.MaxSeatsPerSession {
		return nil
	}
	return apperr.New(apperr.RuleViolation, "at most %d seats per booking", s.cfg.MaxSeatsPerSession).
		WithDetails([]seatrules.Violation{{Rule: seatrules.RuleMaxSeats, Seats: []string{}, Message: "too many seats"}})
}

func (s *sessionService) LockSeats(ctx context.Context, sessionID string, req *request.SeatsRequest) (*response.SeatChangeResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(errs)
	}

	var result *inventory.LockResult
	sess, err := s.mutate(ctx, sessionID, req.Version, func(sess *entity.BookingSession, _ time.Time) error {
		wanted := utils.Dedupe(append(append([]string{}, sess.SeatIDs...), req.SeatIDs...))
		if err := s.checkSeatLimit(len(wanted)); err != nil {
			return err
		}

		var err error
		result, err = s.seats.TryLock(ctx, sess.ShowtimeID, req.SeatIDs, sess.ID, s.cfg.HoldTTL)
		if err != nil {
			return err
		}
		setSeats(sess, utils.Dedupe(append(sess.SeatIDs, result.Succeeded...)))
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(result.Failed) > 0 {
		s.log.Info("Some seats could not be locked",
			zap.String("session_id", sessionID),
			zap.Any("failed", result.Failed),
		)
	}
	return &response.SeatChangeResponse{
		SessionResponse: response.SessionToResponse(sess),
		Succeeded:       result.Succeeded,
		Failed:          failedToStrings(result.Failed),
	}, nil
}

// LockSeatsForShowtime opens a session on the first lock attempt.
func (s *sessionService) LockSeatsForShowtime(ctx context.Context, showtimeID string, req *request.SeatsRequest) (*response.SeatChangeResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(errs)
	}
	if err := s.checkSeatLimit(len(req.SeatIDs)); err != nil {
		return nil, err
	}
	sess, err := s.create(ctx, showtimeID)
	if err != nil {
		return nil, err
	}
	return s.LockSeats(ctx, sess.ID, &request.SeatsRequest{SeatIDs: req.SeatIDs})
}

func (s *sessionService) ReleaseSeats(ctx context.Context, sessionID string, req *request.SeatsRequest) (*response.SeatChangeResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(errs)
	}

	var released []string
	sess, err := s.mutate(ctx, sessionID, req.Version, func(sess *entity.BookingSession, _ time.Time) error {
		var err error
		released, err = s.seats.Release(ctx, sess.ShowtimeID, req.SeatIDs, sess.ID)
		if err != nil {
			return err
		}
		setSeats(sess, utils.Difference(sess.SeatIDs, req.SeatIDs))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &response.SeatChangeResponse{
		SessionResponse: response.SessionToResponse(sess),
		Succeeded:       released,
		Failed:          map[string]string{},
		Released:        released,
	}, nil
}

func (s *sessionService) ReplaceSeats(ctx context.Context, sessionID string, req *request.ReplaceSeatsRequest) (*response.SeatChangeResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(errs)
	}
	if err := s.checkSeatLimit(len(req.SeatIDs)); err != nil {
		return nil, err
	}
	atomic := s.cfg.AtomicReplace
	if req.AllOrNothing != nil {
		atomic = *req.AllOrNothing
	}

	var result *inventory.ReplaceResult
	sess, err := s.mutate(ctx, sessionID, req.Version, func(sess *entity.BookingSession, _ time.Time) error {
		var err error
		result, err = s.seats.Replace(ctx, sess.ShowtimeID, req.SeatIDs, sess.ID, s.cfg.HoldTTL, atomic)
		if err != nil {
			return err
		}
		setSeats(sess, result.Succeeded)
		return nil
	})
	if err != nil {
		return nil, err
	}

	applied := result.Applied
	return &response.SeatChangeResponse{
		SessionResponse: response.SessionToResponse(sess),
		Succeeded:       result.Succeeded,
		Failed:          failedToStrings(result.Failed),
		Released:        result.Released,
		Applied:         &applied,
	}, nil
}

// ValidateSeats is read-only: no version bump and no deadline change.
func (s *sessionService) ValidateSeats(ctx context.Context, sessionID string) (*response.SeatValidationResponse, error) {
	var resp response.SeatValidationResponse
	err := s.withSession(ctx, sessionID, func(sess *entity.BookingSession, _ time.Time) error {
		res, err := s.validate(ctx, sess)
		if err != nil {
			return err
		}
		resp = response.SeatValidationResponse{SessionID: sess.ID, Version: sess.Version, Result: res}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *SessionCore) validate(ctx context.Context, sess *entity.BookingSession) (seatrules.Result, error) {
	snap, err := c.seats.Snapshot(ctx, sess.ShowtimeID)
	if err != nil {
		return seatrules.Result{}, err
	}
	return seatrules.Validate(snap.Seats, sess.SeatIDs, c.cfg.MaxSeatsPerSession), nil
}

func (s *sessionService) SetCombo(ctx context.Context, sessionID, comboID string, req *request.ComboRequest) (*response.SessionResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(errs)
	}
	if _, err := s.pricing.CheckCombo(ctx, comboID); err != nil {
		return nil, err
	}
	sess, err := s.mutate(ctx, sessionID, req.Version, func(sess *entity.BookingSession, _ time.Time) error {
		sess.Combos[comboID] = req.Quantity
		return nil
	})
	if err != nil {
		return nil, err
	}
	resp := response.SessionToResponse(sess)
	return &resp, nil
}

func (s *sessionService) RemoveCombo(ctx context.Context, sessionID, comboID string, version int64) (*response.SessionResponse, error) {
	sess, err := s.mutate(ctx, sessionID, version, func(sess *entity.BookingSession, _ time.Time) error {
		delete(sess.Combos, comboID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	resp := response.SessionToResponse(sess)
	return &resp, nil
}

func (s *sessionService) SetVoucher(ctx context.Context, sessionID string, req *request.VoucherRequest) (*response.SessionResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(errs)
	}
	sess, err := s.mutate(ctx, sessionID, req.Version, func(sess *entity.BookingSession, _ time.Time) error {
		if sess.CustomerID == nil {
			sess.CustomerID = utils.GetCustomerIDFromContext(ctx)
		}
		if _, err := s.pricing.CheckVoucher(ctx, req.Code, sess.CustomerID); err != nil {
			return err
		}
		sess.VoucherCode = req.Code
		return nil
	})
	if err != nil {
		return nil, err
	}
	resp := response.SessionToResponse(sess)
	return &resp, nil
}

func (s *sessionService) RemoveVoucher(ctx context.Context, sessionID string, version int64) (*response.SessionResponse, error) {
	sess, err := s.mutate(ctx, sessionID, version, func(sess *entity.BookingSession, _ time.Time) error {
		sess.VoucherCode = ""
		return nil
	})
	if err != nil {
		return nil, err
	}
	resp := response.SessionToResponse(sess)
	return &resp, nil
}

// Pricing recomputes the snapshot so voucher validity is current. Closed
// sessions return the last stored snapshot.
func (s *sessionService) Pricing(ctx context.Context, sessionID string) (*response.PricingResponse, error) {
	var resp response.PricingResponse
	err := s.withSession(ctx, sessionID, func(sess *entity.BookingSession, _ time.Time) error {
		if !sess.State.Terminal() {
			if err := s.reprice(ctx, sess); err != nil {
				return err
			}
		}
		resp = response.PricingResponse{SessionID: sess.ID, Version: sess.Version, PricingSnapshot: sess.Pricing}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *sessionService) Cancel(ctx context.Context, sessionID string, version int64) (*response.SessionResponse, error) {
	var resp response.SessionResponse
	err := s.withSession(ctx, sessionID, func(sess *entity.BookingSession, now time.Time) error {
		if err := checkWritable(sess, version); err != nil {
			return err
		}
		s.finish(ctx, sess, entity.SessionCanceled, ReasonCanceled, now)
		resp = response.SessionToResponse(sess.Clone())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
