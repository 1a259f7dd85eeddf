package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"cinema-booking/internal/apperr"
	"cinema-booking/internal/data/entity"
	"cinema-booking/internal/dto/request"
	"cinema-booking/internal/dto/response"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func hasSeat(ids []string, id string) bool {
	for _, s := range ids {
		if s == id {
			return true
		}
	}
	return false
}

// checkout locks seats for cust-1 and starts checkout against order ord-1.
func (f *fixture) checkout(t *testing.T, seats ...string) *response.CheckoutResponse {
	t.Helper()
	ctx := customerCtx()
	res, err := f.svc.Session.LockSeatsForShowtime(ctx, testShow, &request.SeatsRequest{SeatIDs: seats})
	require.NoError(t, err)

	f.gateway.On("CreateOrder", mock.Anything, res.Pricing.Total, "IDR", mock.MatchedBy(func(m map[string]string) bool {
		return m["session_id"] == res.SessionID && m["customer_id"] == "cust-1"
	})).Return(&entity.PaymentOrder{OrderRef: "ord-1", CheckoutURL: "https://pay.example/ord-1"}, nil).Once()
	f.timeouts.On("SchedulePaymentTimeout", mock.Anything, res.SessionID, "ord-1", f.clock.Now().Add(15*time.Minute)).Return(nil).Once()

	out, err := f.svc.Checkout.Checkout(ctx, res.SessionID, res.Version)
	require.NoError(t, err)
	return out
}

func TestCheckout_ThenSuccessWebhook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	co := f.checkout(t, "101", "102")
	assert.Equal(t, "ord-1", co.OrderRef)
	assert.Equal(t, "https://pay.example/ord-1", co.PaymentURL)
	assert.Equal(t, int64(100000), co.Total)
	assert.Equal(t, t0.Add(15*time.Minute), co.ExpiresAt)

	pending, err := f.svc.Session.Get(ctx, co.SessionID)
	require.NoError(t, err)
	assert.Equal(t, entity.SessionPendingPayment, pending.State)

	f.bookings.On("SaveBooking", mock.Anything, mock.MatchedBy(func(b *entity.Booking) bool {
		return b.OrderRef == "ord-1" && b.TotalSeats == 2 && b.TotalAmount == 100000
	}), mock.MatchedBy(func(s []entity.BookingSeat) bool { return len(s) == 2 })).Return(nil).Once()
	f.outbox.On("PublishPaid", mock.Anything, mock.MatchedBy(func(ev entity.BookingPaid) bool {
		return ev.SessionID == co.SessionID && len(ev.SeatIDs) == 2
	})).Return(nil).Once()

	body := webhookBody("ord-1", "success", 100000)
	ack, err := f.svc.Checkout.HandleWebhook(ctx, body, "valid")
	require.NoError(t, err)
	assert.True(t, ack.Handled)
	assert.Equal(t, entity.SessionPaid, ack.State)

	paid, err := f.svc.Session.Get(ctx, co.SessionID)
	require.NoError(t, err)
	assert.Equal(t, entity.SessionPaid, paid.State)
	assert.Equal(t, []entity.SeatStatus{entity.SeatSold, entity.SeatSold}, f.seatStatus(t, "101", "102"))
	assert.Equal(t, 2, f.events.count(entity.SeatEventSold))

	// replay is acknowledged without touching anything
	replay, err := f.svc.Checkout.HandleWebhook(ctx, body, "valid")
	require.NoError(t, err)
	assert.False(t, replay.Handled)
	assert.Equal(t, entity.SessionPaid, replay.State)
	assert.Equal(t, 2, f.events.count(entity.SeatEventSold))

	again, err := f.svc.Session.Get(ctx, co.SessionID)
	require.NoError(t, err)
	assert.Equal(t, paid.Version, again.Version)
}

func TestCheckout_FailedWebhookReleasesSeats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	co := f.checkout(t, "101", "102")

	ack, err := f.svc.Checkout.HandleWebhook(ctx, webhookBody("ord-1", "failed", 0), "valid")
	require.NoError(t, err)
	assert.True(t, ack.Handled)
	assert.Equal(t, entity.SessionFailed, ack.State)

	got, err := f.svc.Session.Get(ctx, co.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "payment_failed", got.FailureReason)
	assert.Equal(t, []entity.SeatStatus{entity.SeatAvailable, entity.SeatAvailable}, f.seatStatus(t, "101", "102"))
}

func TestCheckout_InvalidSignatureRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	co := f.checkout(t, "101")

	_, err := f.svc.Checkout.HandleWebhook(ctx, webhookBody("ord-1", "success", 50000), "forged")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrInvalidSignature))

	got, err := f.svc.Session.Get(ctx, co.SessionID)
	require.NoError(t, err)
	assert.Equal(t, entity.SessionPendingPayment, got.State)
}

func TestCheckout_MalformedWebhook(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Checkout.HandleWebhook(context.Background(), []byte(`{"order_ref":`), "valid")
	assert.True(t, apperr.IsKind(err, apperr.Validation))

	_, err = f.svc.Checkout.HandleWebhook(context.Background(), webhookBody("ord-1", "refunded", 1), "valid")
	assert.True(t, apperr.IsKind(err, apperr.Validation))
}

func TestCheckout_UnknownOrderAcknowledged(t *testing.T) {
	f := newFixture(t)

	ack, err := f.svc.Checkout.HandleWebhook(context.Background(), webhookBody("ord-404", "success", 1), "valid")
	require.NoError(t, err)
	assert.False(t, ack.Handled)
	assert.Equal(t, "unknown order", ack.Note)
}

func TestCheckout_AmountMismatchFailsAndReports(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	co := f.checkout(t, "101")

	f.outbox.On("ReportAnomaly", mock.Anything, mock.MatchedBy(func(a entity.Anomaly) bool {
		return a.Kind == entity.AnomalyAmountMismatch && a.Amount == 1 && a.Expected == 50000
	})).Return(nil).Once()

	ack, err := f.svc.Checkout.HandleWebhook(ctx, webhookBody("ord-1", "success", 1), "valid")
	require.NoError(t, err)
	assert.Equal(t, entity.SessionFailed, ack.State)

	got, err := f.svc.Session.Get(ctx, co.SessionID)
	require.NoError(t, err)
	assert.Equal(t, ReasonAmountMismatch, got.FailureReason)
	assert.Equal(t, entity.SeatAvailable, f.seatStatus(t, "101")[0])
}

func TestCheckout_PaymentTimeout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	co := f.checkout(t, "101")

	f.clock.Advance(14 * time.Minute)
	require.NoError(t, f.svc.Checkout.HandlePaymentTimeout(ctx, co.SessionID, co.OrderRef))
	got, err := f.svc.Session.Get(ctx, co.SessionID)
	require.NoError(t, err)
	assert.Equal(t, entity.SessionPendingPayment, got.State)

	f.clock.Advance(time.Minute)
	require.NoError(t, f.svc.Checkout.HandlePaymentTimeout(ctx, co.SessionID, co.OrderRef))
	got, err = f.svc.Session.Get(ctx, co.SessionID)
	require.NoError(t, err)
	assert.Equal(t, entity.SessionFailed, got.State)
	assert.Equal(t, ReasonPaymentTimeout, got.FailureReason)
	assert.Equal(t, entity.SeatAvailable, f.seatStatus(t, "101")[0])

	assert.NoError(t, f.svc.Checkout.HandlePaymentTimeout(ctx, "gone", "ord-x"))
}

func TestCheckout_PaymentAfterTimeoutIsAnomaly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	co := f.checkout(t, "101")

	f.clock.Advance(16 * time.Minute)
	f.outbox.On("ReportAnomaly", mock.Anything, mock.MatchedBy(func(a entity.Anomaly) bool {
		return a.Kind == entity.AnomalyPaidAfterClose && a.SessionID == co.SessionID
	})).Return(nil).Once()

	ack, err := f.svc.Checkout.HandleWebhook(ctx, webhookBody("ord-1", "success", 50000), "valid")
	require.NoError(t, err)
	assert.False(t, ack.Handled)
	assert.Equal(t, entity.SessionFailed, ack.State)
	assert.Equal(t, entity.SeatAvailable, f.seatStatus(t, "101")[0])
}

func TestCheckout_GatewayFailureKeepsSession(t *testing.T) {
	f := newFixture(t)
	ctx := customerCtx()

	res, err := f.svc.Session.LockSeatsForShowtime(ctx, testShow, &request.SeatsRequest{SeatIDs: []string{"101"}})
	require.NoError(t, err)
	f.gateway.On("CreateOrder", mock.Anything, int64(50000), "IDR", mock.Anything).
		Return(nil, errors.New("connection reset")).Once()

	_, err = f.svc.Checkout.Checkout(ctx, res.SessionID, 0)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.Gateway))

	got, err := f.svc.Session.Get(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, entity.SessionSeatsLocked, got.State)
	assert.Empty(t, got.OrderRef)
}

func TestCheckout_Preconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	draft, err := f.svc.Session.Create(customerCtx(), &request.CreateSessionRequest{ShowtimeID: testShow})
	require.NoError(t, err)
	_, err = f.svc.Checkout.Checkout(ctx, draft.SessionID, 0)
	assert.True(t, errors.Is(err, apperr.ErrNoSeats))

	anon, err := f.svc.Session.LockSeatsForShowtime(ctx, testShow, &request.SeatsRequest{SeatIDs: []string{"101"}})
	require.NoError(t, err)
	_, err = f.svc.Checkout.Checkout(ctx, anon.SessionID, 0)
	assert.True(t, apperr.IsKind(err, apperr.Validation))

	gap, err := f.svc.Session.LockSeatsForShowtime(customerCtx(), testShow, &request.SeatsRequest{SeatIDs: []string{"104", "105"}})
	require.NoError(t, err)
	// 103 would be stranded between 102 and 104
	_, err = f.svc.Session.LockSeatsForShowtime(customerCtx(), testShow, &request.SeatsRequest{SeatIDs: []string{"102"}})
	require.NoError(t, err)
	_, err = f.svc.Checkout.Checkout(customerCtx(), gap.SessionID, 0)
	assert.True(t, apperr.IsKind(err, apperr.RuleViolation))

	_, err = f.svc.Checkout.Checkout(customerCtx(), "missing", 0)
	assert.True(t, errors.Is(err, apperr.ErrSessionNotFound))
}

func TestCheckout_LostSeatIsDropped(t *testing.T) {
	f := newFixture(t)
	ctx := customerCtx()

	res, err := f.svc.Session.LockSeatsForShowtime(ctx, testShow, &request.SeatsRequest{SeatIDs: []string{"104", "105"}})
	require.NoError(t, err)
	// another path released one seat behind the session's back
	_, err = f.inv.Release(ctx, testShow, []string{"105"}, res.SessionID)
	require.NoError(t, err)

	_, err = f.svc.Checkout.Checkout(ctx, res.SessionID, res.Version)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrLockExpired))
	assert.True(t, apperr.IsKind(err, apperr.Expired))

	got, err := f.svc.Session.Get(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, []string{"104"}, got.SeatIDs)
	assert.Greater(t, got.Version, res.Version)
}

func TestCheckout_SeatTakenByOtherSessionConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := customerCtx()

	res, err := f.svc.Session.LockSeatsForShowtime(ctx, testShow, &request.SeatsRequest{SeatIDs: []string{"104", "105"}})
	require.NoError(t, err)
	_, err = f.inv.Release(ctx, testShow, []string{"105"}, res.SessionID)
	require.NoError(t, err)
	_, err = f.svc.Session.LockSeatsForShowtime(ctx, testShow, &request.SeatsRequest{SeatIDs: []string{"105"}})
	require.NoError(t, err)

	_, err = f.svc.Checkout.Checkout(ctx, res.SessionID, res.Version)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrLockMismatch))

	got, err := f.svc.Session.Get(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, []string{"104"}, got.SeatIDs)
}

func TestCheckout_LostLockAfterCheckoutIsPartialSale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	co := f.checkout(t, "101", "102")

	// the lock on 102 disappears while payment is in flight
	_, err := f.inv.Release(ctx, testShow, []string{"102"}, co.SessionID)
	require.NoError(t, err)

	f.outbox.On("ReportAnomaly", mock.Anything, mock.MatchedBy(func(a entity.Anomaly) bool {
		return a.Kind == entity.AnomalyPartialSale &&
			a.SessionID == co.SessionID &&
			a.OrderRef == "ord-1" &&
			len(a.LostSeats) == 2 && hasSeat(a.LostSeats, "102")
	})).Return(nil).Once()

	ack, err := f.svc.Checkout.HandleWebhook(ctx, webhookBody("ord-1", "success", 100000), "valid")
	require.NoError(t, err)
	assert.True(t, ack.Handled)
	assert.Equal(t, entity.SessionFailed, ack.State)

	got, err := f.svc.Session.Get(ctx, co.SessionID)
	require.NoError(t, err)
	assert.Equal(t, entity.SessionFailed, got.State)
	assert.Equal(t, ReasonSeatLockLost, got.FailureReason)
	assert.Equal(t, []entity.SeatStatus{entity.SeatAvailable, entity.SeatAvailable}, f.seatStatus(t, "101", "102"))
	assert.Zero(t, f.events.count(entity.SeatEventSold))
}

func TestCheckout_PersistFailureIsReported(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	co := f.checkout(t, "101")

	f.bookings.On("SaveBooking", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("connection refused")).Once()
	f.outbox.On("PublishPaid", mock.Anything, mock.Anything).Return(nil).Once()
	f.outbox.On("ReportAnomaly", mock.Anything, mock.MatchedBy(func(a entity.Anomaly) bool {
		return a.Kind == entity.AnomalyPersistFailed &&
			a.SessionID == co.SessionID &&
			a.Detail == "connection refused" &&
			assert.ObjectsAreEqual([]string{"101"}, a.SoldSeats)
	})).Return(nil).Once()

	ack, err := f.svc.Checkout.HandleWebhook(ctx, webhookBody("ord-1", "success", 50000), "valid")
	require.NoError(t, err)
	assert.Equal(t, entity.SessionPaid, ack.State)
	assert.Equal(t, entity.SeatSold, f.seatStatus(t, "101")[0])
}

func TestCheckout_SweepSkipsSessionInCheckout(t *testing.T) {
	f := newFixture(t)
	ctx := customerCtx()

	idle, err := f.svc.Session.LockSeatsForShowtime(ctx, testShow, &request.SeatsRequest{SeatIDs: []string{"108"}})
	require.NoError(t, err)
	busy, err := f.svc.Session.LockSeatsForShowtime(ctx, testShow, &request.SeatsRequest{SeatIDs: []string{"101"}})
	require.NoError(t, err)

	entered := make(chan struct{})
	release := make(chan struct{})
	f.gateway.On("CreateOrder", mock.Anything, int64(50000), "IDR", mock.Anything).
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(&entity.PaymentOrder{OrderRef: "ord-1", CheckoutURL: "https://pay.example/ord-1"}, nil).Once()
	f.timeouts.On("SchedulePaymentTimeout", mock.Anything, busy.SessionID, "ord-1", mock.Anything).Return(nil).Maybe()

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.Checkout.Checkout(ctx, busy.SessionID, 0)
		done <- err
	}()
	<-entered

	f.clock.Advance(11 * time.Minute)
	swept := make(chan int, 1)
	go func() { swept <- f.svc.Core.ExpireSessions(context.Background(), f.clock.Now()) }()

	select {
	case n := <-swept:
		assert.Equal(t, 1, n)
	case <-time.After(2 * time.Second):
		close(release)
		t.Fatal("sweep blocked behind the payment provider call")
	}
	assert.Equal(t, entity.SeatAvailable, f.seatStatus(t, "108")[0])

	close(release)
	require.NoError(t, <-done)

	got, err := f.svc.Session.Get(ctx, idle.SessionID)
	require.NoError(t, err)
	assert.Equal(t, entity.SessionExpired, got.State)
}
