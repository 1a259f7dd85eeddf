package broker

import (
	"context"

	"cinema-booking/internal/data/entity"

	"go.uber.org/zap"
)

// LogPublisher writes booking events to the log when no broker is configured.
type LogPublisher struct {
	log *zap.Logger
}

func NewLogPublisher(log *zap.Logger) *LogPublisher {
	return &LogPublisher{log: log.With(zap.String("component", "event_log"))}
}

func (p *LogPublisher) PublishPaid(_ context.Context, ev entity.BookingPaid) error {
	p.log.Info("booking paid",
		zap.String("booking_id", ev.BookingID),
		zap.String("session_id", ev.SessionID),
		zap.String("order_ref", ev.OrderRef),
		zap.String("showtime_id", ev.ShowtimeID),
		zap.Strings("seat_ids", ev.SeatIDs),
		zap.Int64("total", ev.Total),
		zap.String("currency", ev.Currency),
	)
	return nil
}

func (p *LogPublisher) ReportAnomaly(_ context.Context, a entity.Anomaly) error {
	p.log.Error("booking anomaly",
		zap.String("kind", string(a.Kind)),
		zap.String("session_id", a.SessionID),
		zap.String("order_ref", a.OrderRef),
		zap.String("showtime_id", a.ShowtimeID),
		zap.Strings("sold_seats", a.SoldSeats),
		zap.Strings("lost_seats", a.LostSeats),
		zap.Int64("amount", a.Amount),
		zap.Int64("expected", a.Expected),
		zap.String("detail", a.Detail),
	)
	return nil
}
