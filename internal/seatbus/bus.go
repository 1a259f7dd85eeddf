package seatbus

import (
	"context"
	"sync"
	"sync/atomic"

	"cinema-booking/internal/data/entity"

	"go.uber.org/zap"
)

const DefaultBufferSize = 256

// Bus fans seat events out to subscribers of one showtime. Each subscriber
// has a bounded buffer; when it is full the oldest pending event is dropped
// so publishers never wait on a slow reader.
type Bus struct {
	mu         sync.RWMutex
	topics     map[string]map[uint64]*Subscription
	nextID     atomic.Uint64
	bufferSize int
	log        *zap.Logger
}

func New(bufferSize int, log *zap.Logger) *Bus {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Bus{
		topics:     make(map[string]map[uint64]*Subscription),
		bufferSize: bufferSize,
		log:        log.With(zap.String("component", "seat_event_bus")),
	}
}

// Subscription is a live, cancellable stream of events for one showtime.
type Subscription struct {
	id         uint64
	showtimeID string
	ch         chan entity.SeatEvent
	done       chan struct{}
	once       sync.Once
	bus        *Bus
	dropped    atomic.Uint64
}

// Publish delivers ev to every current subscriber of its showtime. It never blocks.
func (b *Bus) Publish(ev entity.SeatEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.topics[ev.ShowtimeID] {
		sub.deliver(ev)
	}
}

func (s *Subscription) deliver(ev entity.SeatEvent) {
	for attempt := 0; attempt < 2; attempt++ {
		select {
		case s.ch <- ev:
			return
		default:
		}
		select {
		case <-s.ch:
			s.noteDrop()
		default:
		}
	}
	s.noteDrop()
}

func (s *Subscription) noteDrop() {
	n := s.dropped.Add(1)
	if n == 1 || n%100 == 0 {
		s.bus.log.Warn("Slow subscriber, dropping seat events",
			zap.String("showtime_id", s.showtimeID),
			zap.Uint64("subscription_id", s.id),
			zap.Uint64("dropped_total", n),
		)
	}
}

// Subscribe registers a subscriber for showtimeID. The subscription ends when
// ctx is cancelled or Close is called; either way it is removed from the bus.
// Only events published after Subscribe returns are delivered.
func (b *Bus) Subscribe(ctx context.Context, showtimeID string) *Subscription {
	sub := &Subscription{
		id:         b.nextID.Add(1),
		showtimeID: showtimeID,
		ch:         make(chan entity.SeatEvent, b.bufferSize),
		done:       make(chan struct{}),
		bus:        b,
	}

	b.mu.Lock()
	subs, ok := b.topics[showtimeID]
	if !ok {
		subs = make(map[uint64]*Subscription)
		b.topics[showtimeID] = subs
	}
	subs[sub.id] = sub
	b.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.done:
		}
	}()

	b.log.Debug("Subscriber joined",
		zap.String("showtime_id", showtimeID),
		zap.Uint64("subscription_id", sub.id),
	)
	return sub
}

func (b *Bus) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if subs, ok := b.topics[sub.showtimeID]; ok {
		delete(subs, sub.id)
		if len(subs) == 0 {
			delete(b.topics, sub.showtimeID)
		}
	}
	// no publisher can be inside deliver while we hold the write lock
	close(sub.ch)
}

// SubscriberCount reports live subscribers of showtimeID.
func (b *Bus) SubscriberCount(showtimeID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[showtimeID])
}

// TopicCount reports showtimes with at least one subscriber.
func (b *Bus) TopicCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics)
}

// Events is closed once the subscription ends.
func (s *Subscription) Events() <-chan entity.SeatEvent { return s.ch }

func (s *Subscription) Done() <-chan struct{} { return s.done }

func (s *Subscription) ShowtimeID() string { return s.showtimeID }

func (s *Subscription) Dropped() uint64 { return s.dropped.Load() }

// Next blocks for the next event. ok is false once the subscription or ctx ends.
func (s *Subscription) Next(ctx context.Context) (ev entity.SeatEvent, ok bool) {
	select {
	case ev, ok = <-s.ch:
		return ev, ok
	case <-ctx.Done():
		return entity.SeatEvent{}, false
	}
}

// Close unsubscribes. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.remove(s)
		close(s.done)
		s.bus.log.Debug("Subscriber left",
			zap.String("showtime_id", s.showtimeID),
			zap.Uint64("subscription_id", s.id),
			zap.Uint64("dropped", s.dropped.Load()),
		)
	})
}
