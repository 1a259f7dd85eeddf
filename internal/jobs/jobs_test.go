package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"cinema-booking/pkg/utils"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var t0 = time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)

type fakeLocks struct{ calls []time.Time }

func (f *fakeLocks) ExpireLocks(now time.Time) int {
	f.calls = append(f.calls, now)
	return 2
}

type fakeSessions struct {
	order []string
	at    time.Time
}

func (f *fakeSessions) ExpireSessions(_ context.Context, now time.Time) int {
	f.order = append(f.order, "expire")
	f.at = now
	return 1
}

func (f *fakeSessions) Purge(time.Time) int {
	f.order = append(f.order, "purge")
	return 0
}

func TestSweeper_Tick(t *testing.T) {
	locks := &fakeLocks{}
	sessions := &fakeSessions{}
	s := NewSweeper(locks, sessions, utils.NewManualClock(t0), time.Second, zap.NewNop())

	s.tick(context.Background())

	assert.Equal(t, []time.Time{t0}, locks.calls)
	assert.Equal(t, t0, sessions.at)
	assert.Equal(t, []string{"expire", "purge"}, sessions.order)
}

func TestSweeper_StartStopsOnCancel(t *testing.T) {
	locks := &fakeLocks{}
	s := NewSweeper(locks, &fakeSessions{}, utils.NewManualClock(t0), time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

type fakeEnqueuer struct {
	task *asynq.Task
	opts []asynq.Option
	err  error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.task = task
	f.opts = opts
	return &asynq.TaskInfo{ID: "task-1"}, nil
}

func optionValue(opts []asynq.Option, typ asynq.OptionType) any {
	for _, o := range opts {
		if o.Type() == typ {
			return o.Value()
		}
	}
	return nil
}

func TestTimeoutQueue_Schedule(t *testing.T) {
	enq := &fakeEnqueuer{}
	q := NewTimeoutQueue(enq, zap.NewNop())

	at := t0.Add(15 * time.Minute)
	require.NoError(t, q.SchedulePaymentTimeout(context.Background(), "sess-1", "ord-1", at))

	require.NotNil(t, enq.task)
	assert.Equal(t, TypePaymentTimeout, enq.task.Type())

	var payload PaymentTimeoutPayload
	require.NoError(t, json.Unmarshal(enq.task.Payload(), &payload))
	assert.Equal(t, PaymentTimeoutPayload{SessionID: "sess-1", OrderRef: "ord-1"}, payload)

	assert.Equal(t, at, optionValue(enq.opts, asynq.ProcessAtOpt))
	assert.Equal(t, "payment-timeout:ord-1", optionValue(enq.opts, asynq.TaskIDOpt))
}

func TestTimeoutQueue_DuplicateIsNotAnError(t *testing.T) {
	q := NewTimeoutQueue(&fakeEnqueuer{err: asynq.ErrTaskIDConflict}, zap.NewNop())
	assert.NoError(t, q.SchedulePaymentTimeout(context.Background(), "sess-1", "ord-1", t0))
}

func TestTimeoutQueue_EnqueueFailure(t *testing.T) {
	q := NewTimeoutQueue(&fakeEnqueuer{err: errors.New("redis down")}, zap.NewNop())
	assert.Error(t, q.SchedulePaymentTimeout(context.Background(), "sess-1", "ord-1", t0))
}

type fakeCheckout struct {
	sessionID, orderRef string
	err                 error
}

func (f *fakeCheckout) HandlePaymentTimeout(_ context.Context, sessionID, orderRef string) error {
	f.sessionID, f.orderRef = sessionID, orderRef
	return f.err
}

func TestHandlers_PaymentTimeout(t *testing.T) {
	co := &fakeCheckout{}
	h := NewHandlers(co, zap.NewNop())

	task, err := NewPaymentTimeoutTask("sess-1", "ord-1")
	require.NoError(t, err)
	require.NoError(t, h.HandlePaymentTimeout(context.Background(), task))
	assert.Equal(t, "sess-1", co.sessionID)
	assert.Equal(t, "ord-1", co.orderRef)

	co.err = errors.New("boom")
	assert.Error(t, h.HandlePaymentTimeout(context.Background(), task))
}

func TestHandlers_BadPayloadSkipsRetry(t *testing.T) {
	h := NewHandlers(&fakeCheckout{}, zap.NewNop())
	err := h.HandlePaymentTimeout(context.Background(), asynq.NewTask(TypePaymentTimeout, []byte("{")))
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
