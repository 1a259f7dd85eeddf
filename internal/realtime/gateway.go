package realtime

import (
	"context"
	"sync/atomic"
	"time"

	"cinema-booking/internal/data/entity"
	"cinema-booking/internal/inventory"
	"cinema-booking/internal/seatbus"

	"go.uber.org/zap"
)

const DefaultHeartbeat = 15 * time.Second

// Conn is one long-lived client connection. Any error returned ends the
// attachment and frees its bus subscription.
type Conn interface {
	SendSnapshot(ctx context.Context, snap *inventory.Snapshot) error
	SendEvent(ctx context.Context, ev entity.SeatEvent) error
	Heartbeat(ctx context.Context) error
}

// SnapshotSource is the read side of the seat inventory.
type SnapshotSource interface {
	Snapshot(ctx context.Context, showtimeID string) (*inventory.Snapshot, error)
}

// Gateway maps seat bus subscriptions onto client connections, one topic per showtime.
type Gateway struct {
	bus       *seatbus.Bus
	seats     SnapshotSource
	heartbeat time.Duration
	log       *zap.Logger
	active    atomic.Int64
}

func NewGateway(bus *seatbus.Bus, seats SnapshotSource, heartbeat time.Duration, log *zap.Logger) *Gateway {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	return &Gateway{
		bus:       bus,
		seats:     seats,
		heartbeat: heartbeat,
		log:       log.With(zap.String("component", "realtime_gateway")),
	}
}

// Attach streams events of showtimeID to conn until ctx ends or a write
// fails. The subscription is opened before the snapshot is read, so with
// withSnapshot the client can drop any event whose seq is not greater than
// the snapshot's.
func (g *Gateway) Attach(ctx context.Context, showtimeID string, conn Conn, withSnapshot bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sub := g.bus.Subscribe(ctx, showtimeID)
	defer sub.Close()

	// also rejects unknown showtimes before anything is written
	snap, err := g.seats.Snapshot(ctx, showtimeID)
	if err != nil {
		return err
	}

	g.active.Add(1)
	defer g.active.Add(-1)
	log := g.log.With(zap.String("showtime_id", showtimeID))
	log.Debug("Client attached")

	if withSnapshot {
		err = conn.SendSnapshot(ctx, snap)
	} else {
		err = conn.Heartbeat(ctx)
	}
	if err != nil {
		log.Debug("Client dropped before streaming", zap.Error(err))
		return nil
	}

	ticker := time.NewTicker(g.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug("Client detached")
			return nil
		case ev, ok := <-sub.Events():
			if !ok {
				return nil
			}
			if err := conn.SendEvent(ctx, ev); err != nil {
				log.Debug("Client write failed, pruning", zap.Error(err))
				return nil
			}
		case <-ticker.C:
			if err := conn.Heartbeat(ctx); err != nil {
				log.Debug("Client heartbeat failed, pruning", zap.Error(err))
				return nil
			}
		}
	}
}

// Active reports currently attached clients across all showtimes.
func (g *Gateway) Active() int64 {
	return g.active.Load()
}
