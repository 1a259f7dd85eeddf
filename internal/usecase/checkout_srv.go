package usecase

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"cinema-booking/internal/apperr"
	"cinema-booking/internal/data/entity"
	"cinema-booking/internal/dto/request"
	"cinema-booking/internal/dto/response"
	"cinema-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CheckoutService interface {
	Checkout(ctx context.Context, sessionID string, version int64) (*response.CheckoutResponse, error)
	HandleWebhook(ctx context.Context, body []byte, signature string) (*response.WebhookResponse, error)
	HandlePaymentTimeout(ctx context.Context, sessionID, orderRef string) error
}

type checkoutService struct {
	*SessionCore
	gateway  PaymentGateway
	verifier SignatureVerifier
	bookings BookingWriter
	events   EventPublisher
	timeouts TimeoutScheduler
	log      *zap.Logger
}

// NewCheckoutService wires the orchestrator. timeouts may be nil, in which
// case pending sessions are only failed by the sweeper and lazy expiry.
func NewCheckoutService(core *SessionCore, gateway PaymentGateway, verifier SignatureVerifier, bookings BookingWriter, events EventPublisher, timeouts TimeoutScheduler, log *zap.Logger) CheckoutService {
	return &checkoutService{
		SessionCore: core,
		gateway:     gateway,
		verifier:    verifier,
		bookings:    bookings,
		events:      events,
		timeouts:    timeouts,
		log:         log.With(zap.String("service", "checkout")),
	}
}

func (s *checkoutService) Checkout(ctx context.Context, sessionID string, version int64) (*response.CheckoutResponse, error) {
	var resp *response.CheckoutResponse
	var deadline time.Time
	var orderRef string

	err := s.withSession(ctx, sessionID, func(sess *entity.BookingSession, now time.Time) error {
		if err := checkWritable(sess, version); err != nil {
			return err
		}
		switch sess.State {
		case entity.SessionDraft:
			return apperr.ErrNoSeats
		case entity.SessionPendingPayment:
			return apperr.New(apperr.Conflict, "checkout already started").
				WithDetails(map[string]string{"order_ref": sess.OrderRef, "payment_url": sess.PaymentURL})
		}

		caller := utils.GetCustomerIDFromContext(ctx)
		switch {
		case sess.CustomerID == nil && caller == nil:
			return apperr.New(apperr.Validation, "customer identity is required for checkout")
		case sess.CustomerID == nil:
			sess.CustomerID = caller
		case caller != nil && *caller != *sess.CustomerID:
			return apperr.New(apperr.Conflict, "session belongs to another customer")
		}

		if err := s.confirmHeld(ctx, sess, now); err != nil {
			return err
		}

		rules, err := s.validate(ctx, sess)
		if err != nil {
			return err
		}
		if !rules.IsValid {
			return apperr.New(apperr.RuleViolation, "seat selection breaks layout rules").WithDetails(rules.Violations)
		}

		if err := s.reprice(ctx, sess); err != nil {
			return err
		}
		if sess.VoucherCode != "" && !sess.Pricing.VoucherApplied {
			return apperr.New(apperr.Conflict, "voucher %s no longer applies", sess.VoucherCode).
				WithDetails(map[string]string{"voucher": sess.Pricing.VoucherReason})
		}

		// locks must outlive the payment window
		deadline = now.Add(s.cfg.PaymentTimeout)
		_, lost, err := s.seats.Extend(ctx, sess.ShowtimeID, sess.SeatIDs, sess.ID, s.cfg.PaymentTimeout)
		if err != nil {
			return err
		}
		if len(lost) > 0 {
			return s.dropLost(ctx, sess, lost, now)
		}

		order, err := s.gateway.CreateOrder(ctx, sess.Pricing.Total, sess.Pricing.Currency, map[string]string{
			"session_id":   sess.ID,
			"showtime_id":  sess.ShowtimeID,
			"customer_id":  *sess.CustomerID,
			"merchant_ref": utils.GenerateMerchantRef(now),
			"seat_ids":     strings.Join(sess.SeatIDs, ","),
		})
		if err != nil {
			s.log.Error("Failed to create payment order",
				zap.String("session_id", sess.ID),
				zap.Int64("amount", sess.Pricing.Total),
				zap.Error(err),
			)
			if apperr.IsKind(err, apperr.Gateway) {
				return err
			}
			return apperr.Wrap(apperr.Gateway, err, "create payment order")
		}

		sess.State = entity.SessionPendingPayment
		sess.OrderRef = order.OrderRef
		sess.PaymentURL = order.CheckoutURL
		sess.ExpiresAt = deadline
		sess.UpdatedAt = now
		sess.Version++
		s.store.indexOrder(order.OrderRef, sess.ID)
		orderRef = order.OrderRef

		s.log.Info("Checkout started",
			zap.String("session_id", sess.ID),
			zap.String("order_ref", order.OrderRef),
			zap.Int64("total", sess.Pricing.Total),
			zap.Time("deadline", deadline),
		)
		resp = &response.CheckoutResponse{
			SessionID:  sess.ID,
			Version:    sess.Version,
			ExpiresAt:  sess.ExpiresAt,
			OrderRef:   sess.OrderRef,
			PaymentURL: sess.PaymentURL,
			Total:      sess.Pricing.Total,
			Currency:   sess.Pricing.Currency,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.timeouts != nil {
		if err := s.timeouts.SchedulePaymentTimeout(ctx, sessionID, orderRef, deadline); err != nil {
			s.log.Warn("Failed to schedule payment timeout, relying on sweeper",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
		}
	}
	return resp, nil
}

// confirmHeld re-reads lock ownership right before checkout.
func (s *checkoutService) confirmHeld(ctx context.Context, sess *entity.BookingSession, now time.Time) error {
	_, lost, err := s.seats.HeldBy(ctx, sess.ShowtimeID, sess.SeatIDs, sess.ID)
	if err != nil {
		return err
	}
	if len(lost) > 0 {
		return s.dropLost(ctx, sess, lost, now)
	}
	return nil
}

// dropLost removes seats the session no longer holds, commits, and reports
// them. Seats that simply lapsed back to AVAILABLE are an expiry; seats
// taken by someone else are a conflict.
func (s *checkoutService) dropLost(ctx context.Context, sess *entity.BookingSession, lost []string, now time.Time) error {
	current, err := s.seats.Lookup(ctx, sess.ShowtimeID, lost)
	if err != nil {
		return err
	}
	lapsed := true
	for _, seat := range current {
		if seat.Status != entity.SeatAvailable {
			lapsed = false
			break
		}
	}

	setSeats(sess, utils.Difference(sess.SeatIDs, lost))
	if err := s.commit(ctx, sess, now); err != nil {
		return err
	}
	details := map[string]any{"lost_seats": lost, "current_version": sess.Version}
	if lapsed {
		return apperr.ErrLockExpired.WithDetails(details)
	}
	return apperr.ErrLockMismatch.WithDetails(details)
}

// outcome collects what must happen after the session lock is released.
type outcome struct {
	booking  *entity.Booking
	seats    []entity.BookingSeat
	paid     *entity.BookingPaid
	anomaly  *entity.Anomaly
	response response.WebhookResponse
}

func (s *checkoutService) HandleWebhook(ctx context.Context, body []byte, signature string) (*response.WebhookResponse, error) {
	if !s.verifier.Verify(body, signature) {
		s.log.Warn("Rejected webhook with invalid signature",
			zap.Int("body_bytes", len(body)),
			zap.Bool("signature_present", signature != ""),
		)
		return nil, apperr.ErrInvalidSignature
	}

	var req request.WebhookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, apperr.Wrap(apperr.Validation, err, "malformed webhook payload")
	}
	if errs := utils.ValidateStruct(&req); len(errs) > 0 {
		s.log.Warn("Webhook validation failed", zap.Any("errors", errs))
		return nil, validationError(errs)
	}
	notice := entity.PaymentNotice{
		OrderRef: req.OrderRef,
		Status:   entity.PaymentStatus(req.Status),
		Amount:   req.Amount,
	}

	e, ok := s.store.byOrderRef(notice.OrderRef)
	if !ok {
		s.log.Warn("Webhook for unknown order acknowledged",
			zap.String("order_ref", notice.OrderRef),
			zap.String("status", string(notice.Status)),
		)
		return &response.WebhookResponse{OrderRef: notice.OrderRef, Note: "unknown order"}, nil
	}

	e.mu.Lock()
	out := s.reconcile(ctx, e.session, notice)
	e.mu.Unlock()

	s.afterReconcile(ctx, out)
	return &out.response, nil
}

// reconcile applies a verified notice. Caller holds the session lock.
func (s *checkoutService) reconcile(ctx context.Context, sess *entity.BookingSession, notice entity.PaymentNotice) outcome {
	now := s.clock.Now()
	s.expire(ctx, sess, now)

	out := outcome{response: response.WebhookResponse{OrderRef: notice.OrderRef, State: sess.State}}
	log := s.log.With(
		zap.String("session_id", sess.ID),
		zap.String("order_ref", notice.OrderRef),
		zap.String("status", string(notice.Status)),
	)

	if sess.State.Terminal() {
		out.response.Note = "already final"
		if notice.Status == entity.PaymentSuccess && sess.State != entity.SessionPaid {
			log.Warn("Payment succeeded for a closed session", zap.String("state", string(sess.State)))
			out.anomaly = s.anomaly(sess, entity.AnomalyPaidAfterClose, notice, now)
		} else {
			log.Info("Duplicate webhook ignored", zap.String("state", string(sess.State)))
		}
		return out
	}
	if sess.State != entity.SessionPendingPayment {
		log.Warn("Webhook for a session without checkout ignored", zap.String("state", string(sess.State)))
		out.response.Note = "no pending checkout"
		return out
	}

	out.response.Handled = true
	switch notice.Status {
	case entity.PaymentSuccess:
		if notice.Amount != sess.Pricing.Total {
			log.Error("Paid amount does not match order total",
				zap.Int64("amount", notice.Amount),
				zap.Int64("expected", sess.Pricing.Total),
			)
			out.anomaly = s.anomaly(sess, entity.AnomalyAmountMismatch, notice, now)
			s.finish(ctx, sess, entity.SessionFailed, ReasonAmountMismatch, now)
			break
		}

		sold, err := s.seats.MarkSold(ctx, sess.ShowtimeID, sess.SeatIDs, sess.ID)
		if err != nil {
			log.Error("Seats could not be sold after payment",
				zap.Strings("sold", sold),
				zap.Error(err),
			)
			out.anomaly = s.anomaly(sess, entity.AnomalyPartialSale, notice, now)
			out.anomaly.SoldSeats = sold
			out.anomaly.LostSeats = utils.Difference(sess.SeatIDs, sold)
			out.anomaly.Detail = err.Error()
			s.finish(ctx, sess, entity.SessionFailed, ReasonSeatLockLost, now)
			break
		}

		s.finish(ctx, sess, entity.SessionPaid, "", now)
		out.booking, out.seats = s.bookingRecord(sess, now)
		out.paid = &entity.BookingPaid{
			BookingID:  out.booking.ID.String(),
			SessionID:  sess.ID,
			OrderRef:   sess.OrderRef,
			ShowtimeID: sess.ShowtimeID,
			CustomerID: sess.CustomerID,
			SeatIDs:    append([]string(nil), sess.SeatIDs...),
			Total:      sess.Pricing.Total,
			Currency:   sess.Pricing.Currency,
			PaidAt:     now,
		}
	default:
		s.finish(ctx, sess, entity.SessionFailed, "payment_"+string(notice.Status), now)
	}

	out.response.State = sess.State
	return out
}

func (s *checkoutService) anomaly(sess *entity.BookingSession, kind entity.AnomalyKind, notice entity.PaymentNotice, now time.Time) *entity.Anomaly {
	return &entity.Anomaly{
		Kind:       kind,
		SessionID:  sess.ID,
		OrderRef:   notice.OrderRef,
		ShowtimeID: sess.ShowtimeID,
		Amount:     notice.Amount,
		Expected:   sess.Pricing.Total,
		DetectedAt: now,
	}
}

func (s *checkoutService) bookingRecord(sess *entity.BookingSession, now time.Time) (*entity.Booking, []entity.BookingSeat) {
	booking := &entity.Booking{
		BaseNoDelete: entity.BaseNoDelete{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		OrderRef:    sess.OrderRef,
		SessionID:   sess.ID,
		CustomerID:  sess.CustomerID,
		ShowtimeID:  sess.ShowtimeID,
		TotalSeats:  len(sess.SeatIDs),
		TotalAmount: sess.Pricing.Total,
		Currency:    sess.Pricing.Currency,
		Status:      entity.BookingStatusPaid,
	}
	if sess.VoucherCode != "" {
		code := sess.VoucherCode
		booking.VoucherCode = &code
	}

	seats := make([]entity.BookingSeat, 0, len(sess.SeatIDs))
	for _, id := range sess.SeatIDs {
		seats = append(seats, entity.BookingSeat{
			BaseSimple: entity.BaseSimple{ID: uuid.New(), CreatedAt: now},
			BookingID:  booking.ID,
			ShowtimeID: sess.ShowtimeID,
			SeatID:     id,
		})
	}
	return booking, seats
}

// afterReconcile does the I/O that must not run under the session lock.
func (s *checkoutService) afterReconcile(ctx context.Context, out outcome) {
	if out.booking != nil {
		if err := s.bookings.SaveBooking(ctx, out.booking, out.seats); err != nil {
			s.log.Error("Failed to persist paid booking",
				zap.String("order_ref", out.booking.OrderRef),
				zap.Error(err),
			)
			out.anomaly = &entity.Anomaly{
				Kind:       entity.AnomalyPersistFailed,
				SessionID:  out.booking.SessionID,
				OrderRef:   out.booking.OrderRef,
				ShowtimeID: out.booking.ShowtimeID,
				SoldSeats:  out.paid.SeatIDs,
				Amount:     out.booking.TotalAmount,
				Expected:   out.booking.TotalAmount,
				Detail:     err.Error(),
				DetectedAt: out.booking.CreatedAt,
			}
		}
	}
	if out.paid != nil {
		if err := s.events.PublishPaid(ctx, *out.paid); err != nil {
			s.log.Error("Failed to publish paid booking", zap.String("order_ref", out.paid.OrderRef), zap.Error(err))
		}
	}
	if out.anomaly != nil {
		if err := s.events.ReportAnomaly(ctx, *out.anomaly); err != nil {
			s.log.Error("Failed to report reconciliation anomaly",
				zap.String("kind", string(out.anomaly.Kind)),
				zap.String("order_ref", out.anomaly.OrderRef),
				zap.Error(err),
			)
		}
	}
}

// HandlePaymentTimeout fails a pending session whose payment window closed.
// Calls for other orders, early calls and unknown sessions are no-ops.
func (s *checkoutService) HandlePaymentTimeout(ctx context.Context, sessionID, orderRef string) error {
	err := s.withSession(ctx, sessionID, func(sess *entity.BookingSession, _ time.Time) error {
		if sess.OrderRef != orderRef {
			return nil
		}
		s.log.Debug("Payment timeout checked",
			zap.String("session_id", sessionID),
			zap.String("state", string(sess.State)),
		)
		return nil
	})
	if apperr.IsKind(err, apperr.NotFound) {
		return nil
	}
	return err
}
