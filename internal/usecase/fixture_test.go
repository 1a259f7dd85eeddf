package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"cinema-booking/internal/data/entity"
	"cinema-booking/internal/inventory"
	"cinema-booking/internal/pricing"
	"cinema-booking/pkg/utils"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

const testShow = "show-1"

var t0 = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

type mockGateway struct{ mock.Mock }

func (m *mockGateway) CreateOrder(ctx context.Context, amount int64, currency string, metadata map[string]string) (*entity.PaymentOrder, error) {
	args := m.Called(ctx, amount, currency, metadata)
	order, _ := args.Get(0).(*entity.PaymentOrder)
	return order, args.Error(1)
}

type mockBookings struct{ mock.Mock }

func (m *mockBookings) SaveBooking(ctx context.Context, booking *entity.Booking, seats []entity.BookingSeat) error {
	return m.Called(ctx, booking, seats).Error(0)
}

type mockEvents struct{ mock.Mock }

func (m *mockEvents) PublishPaid(ctx context.Context, ev entity.BookingPaid) error {
	return m.Called(ctx, ev).Error(0)
}

func (m *mockEvents) ReportAnomaly(ctx context.Context, a entity.Anomaly) error {
	return m.Called(ctx, a).Error(0)
}

type mockTimeouts struct{ mock.Mock }

func (m *mockTimeouts) SchedulePaymentTimeout(ctx context.Context, sessionID, orderRef string, at time.Time) error {
	return m.Called(ctx, sessionID, orderRef, at).Error(0)
}

// verifier accepts the literal signature "valid".
type verifier struct{}

func (verifier) Verify(_ []byte, signature string) bool { return signature == "valid" }

type seatEvents struct {
	mu     sync.Mutex
	events []entity.SeatEvent
}

func (r *seatEvents) Publish(ev entity.SeatEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *seatEvents) count(kind entity.SeatEventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

type fixture struct {
	clock    *utils.ManualClock
	inv      *inventory.Inventory
	catalog  *pricing.StaticCatalog
	events   *seatEvents
	gateway  *mockGateway
	bookings *mockBookings
	outbox   *mockEvents
	timeouts *mockTimeouts
	svc      *Service
	cfg      *utils.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		clock:    utils.NewManualClock(t0),
		catalog:  pricing.NewStaticCatalog(),
		events:   &seatEvents{},
		gateway:  &mockGateway{},
		bookings: &mockBookings{},
		outbox:   &mockEvents{},
		timeouts: &mockTimeouts{},
	}
	t.Cleanup(func() {
		f.gateway.AssertExpectations(t)
		f.bookings.AssertExpectations(t)
		f.outbox.AssertExpectations(t)
	})

	log := zap.NewNop()
	f.inv = inventory.New(nil, f.events, f.clock, log)
	seats := make([]entity.Seat, 0, 10)
	for n := 1; n <= 10; n++ {
		seats = append(seats, entity.Seat{ID: fmt.Sprintf("1%02d", n), Row: "A", Number: n, SeatTypeID: "standard"})
	}
	f.inv.Register(testShow, seats)

	f.catalog.PutShowtime(entity.Showtime{ID: testShow, BasePrice: 50000, Currency: "IDR"})
	f.catalog.PutSeatType(entity.SeatType{ID: "standard"})
	f.catalog.PutCombo(entity.Combo{ID: "popcorn", Price: 30000, IsActive: true})
	f.catalog.PutVoucher(entity.Voucher{
		Code: "HALF", DiscountType: entity.DiscountPercent, DiscountValue: 50,
		ValidUntil: t0.Add(20 * time.Minute), IsActive: true,
	})

	f.cfg = &utils.Config{Booking: utils.BookingConfig{
		HoldTTL:            10 * time.Minute,
		PaymentTimeout:     15 * time.Minute,
		TerminalRetention:  time.Hour,
		MaxSeatsPerSession: 4,
		Currency:           "IDR",
	}}
	f.svc = NewService(Dependencies{
		Seats:    f.inv,
		Pricing:  pricing.NewEngine(f.catalog, f.clock, 0, "IDR"),
		Gateway:  f.gateway,
		Verifier: verifier{},
		Bookings: f.bookings,
		Events:   f.outbox,
		Timeouts: f.timeouts,
		Clock:    f.clock,
	}, f.cfg, log)
	return f
}

func customerCtx() context.Context {
	return utils.SetCustomerContext(context.Background(), "cust-1")
}

func (f *fixture) seatStatus(t *testing.T, ids ...string) []entity.SeatStatus {
	t.Helper()
	seats, err := f.inv.Lookup(context.Background(), testShow, ids)
	if err != nil {
		t.Fatalf("lookup seats: %v", err)
	}
	out := make([]entity.SeatStatus, 0, len(seats))
	for _, s := range seats {
		out = append(out, s.Status)
	}
	return out
}

func webhookBody(orderRef, status string, amount int64) []byte {
	return []byte(fmt.Sprintf(`{"order_ref":%q,"status":%q,"amount":%d}`, orderRef, status, amount))
}
