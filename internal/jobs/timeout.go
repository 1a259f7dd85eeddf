package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const TypePaymentTimeout = "payment:timeout"

type PaymentTimeoutPayload struct {
	SessionID string `json:"session_id"`
	OrderRef  string `json:"order_ref"`
}

func NewPaymentTimeoutTask(sessionID, orderRef string) (*asynq.Task, error) {
	payload, err := json.Marshal(PaymentTimeoutPayload{SessionID: sessionID, OrderRef: orderRef})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypePaymentTimeout, payload), nil
}

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// TimeoutQueue schedules payment timeout tasks on Redis.
type TimeoutQueue struct {
	client enqueuer
	log    *zap.Logger
}

func NewTimeoutQueue(client enqueuer, log *zap.Logger) *TimeoutQueue {
	return &TimeoutQueue{client: client, log: log.With(zap.String("job", "payment_timeout"))}
}

func (q *TimeoutQueue) SchedulePaymentTimeout(ctx context.Context, sessionID, orderRef string, at time.Time) error {
	task, err := NewPaymentTimeoutTask(sessionID, orderRef)
	if err != nil {
		return fmt.Errorf("build timeout task: %w", err)
	}

	info, err := q.client.EnqueueContext(ctx, task,
		asynq.ProcessAt(at),
		asynq.TaskID(timeoutTaskID(orderRef)),
		asynq.Queue("critical"),
		asynq.MaxRetry(5),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("enqueue timeout task: %w", err)
	}

	q.log.Debug("Payment timeout scheduled",
		zap.String("task_id", info.ID),
		zap.String("session_id", sessionID),
		zap.Time("process_at", at),
	)
	return nil
}

func timeoutTaskID(orderRef string) string {
	return "payment-timeout:" + orderRef
}

type timeoutHandler interface {
	HandlePaymentTimeout(ctx context.Context, sessionID, orderRef string) error
}

// Handlers serves tasks pulled by the asynq server.
type Handlers struct {
	checkout timeoutHandler
	log      *zap.Logger
}

func NewHandlers(checkout timeoutHandler, log *zap.Logger) *Handlers {
	return &Handlers{checkout: checkout, log: log.With(zap.String("job", "payment_timeout"))}
}

func (h *Handlers) HandlePaymentTimeout(ctx context.Context, t *asynq.Task) error {
	var payload PaymentTimeoutPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode %s: %v: %w", TypePaymentTimeout, err, asynq.SkipRetry)
	}

	if err := h.checkout.HandlePaymentTimeout(ctx, payload.SessionID, payload.OrderRef); err != nil {
		h.log.Warn("Payment timeout failed", zap.String("session_id", payload.SessionID), zap.Error(err))
		return err
	}
	return nil
}

// Mux routes task types to their handlers.
func (h *Handlers) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypePaymentTimeout, h.HandlePaymentTimeout)
	return mux
}

func NewServer(redisOpt asynq.RedisClientOpt, log *zap.Logger) *asynq.Server {
	return asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 10,
		Queues: map[string]int{
			"critical": 6,
			"default":  3,
		},
		Logger: log.With(zap.String("component", "asynq")).Sugar(),
	})
}
