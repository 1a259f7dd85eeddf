package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"cinema-booking/internal/data/entity"
	"cinema-booking/pkg/utils"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	RoutingPaid    = "booking.paid"
	RoutingAnomaly = "booking.anomaly"
)

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher sends booking events as persistent JSON messages.
// With an empty exchange the routing key doubles as the queue name.
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       channel
	exchange string
	clock    utils.Clock
	log      *zap.Logger
}

// Dial connects, declares the exchange and binds a durable queue per routing key.
func Dial(cfg utils.AMQPConfig, clock utils.Clock, log *zap.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}

	if err := declare(ch, cfg.Exchange); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	p := newAMQPPublisher(ch, cfg.Exchange, clock, log)
	p.conn = conn
	return p, nil
}

func declare(ch *amqp.Channel, exchange string) error {
	if exchange != "" {
		if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
			return fmt.Errorf("amqp exchange declare: %w", err)
		}
	}
	for _, key := range []string{RoutingPaid, RoutingAnomaly} {
		if _, err := ch.QueueDeclare(key, true, false, false, false, nil); err != nil {
			return fmt.Errorf("amqp queue declare %s: %w", key, err)
		}
		if exchange == "" {
			continue
		}
		if err := ch.QueueBind(key, key, exchange, false, nil); err != nil {
			return fmt.Errorf("amqp queue bind %s: %w", key, err)
		}
	}
	return nil
}

func newAMQPPublisher(ch channel, exchange string, clock utils.Clock, log *zap.Logger) *AMQPPublisher {
	return &AMQPPublisher{
		ch:       ch,
		exchange: exchange,
		clock:    clock,
		log:      log.With(zap.String("component", "amqp_publisher")),
	}
}

func (p *AMQPPublisher) PublishPaid(ctx context.Context, ev entity.BookingPaid) error {
	return p.publish(ctx, RoutingPaid, ev.SessionID, ev)
}

func (p *AMQPPublisher) ReportAnomaly(ctx context.Context, a entity.Anomaly) error {
	// Operators rely on the log line even when the broker is down.
	p.log.Error("booking anomaly",
		zap.String("kind", string(a.Kind)),
		zap.String("session_id", a.SessionID),
		zap.String("order_ref", a.OrderRef),
		zap.Strings("lost_seats", a.LostSeats),
	)
	return p.publish(ctx, RoutingAnomaly, a.SessionID, a)
}

func (p *AMQPPublisher) publish(ctx context.Context, key, messageID string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    messageID,
		Timestamp:    p.clock.Now().UTC(),
		Type:         key,
		Body:         body,
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	p.mu.Lock()
	err = p.ch.PublishWithContext(ctx, p.exchange, key, false, false, msg)
	p.mu.Unlock()
	if err != nil {
		p.log.Error("Publish failed", zap.String("routing_key", key), zap.Error(err))
		return fmt.Errorf("publish %s: %w", key, err)
	}

	p.log.Debug("Event published", zap.String("routing_key", key), zap.String("message_id", messageID))
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
