package wire

import (
	"cinema-booking/internal/adaptor"
	"cinema-booking/internal/broker"
	"cinema-booking/internal/data/cache"
	"cinema-booking/internal/data/repository"
	"cinema-booking/internal/inventory"
	"cinema-booking/internal/jobs"
	"cinema-booking/internal/payment"
	"cinema-booking/internal/pricing"
	"cinema-booking/internal/realtime"
	"cinema-booking/internal/seatbus"
	"cinema-booking/internal/usecase"
	"cinema-booking/pkg/middleware"
	"cinema-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Backends are the optional outside systems. Any nil field falls back to
// an in-process implementation.
type Backends struct {
	Repo     *repository.Repository
	Redis    *redis.Client
	Events   usecase.EventPublisher
	Timeouts usecase.TimeoutScheduler
	Gateway  usecase.PaymentGateway
	Clock    utils.Clock
}

type App struct {
	Router    *chi.Mux
	Service   *usecase.Service
	Inventory *inventory.Inventory
	Bus       *seatbus.Bus
	Sweeper   *jobs.Sweeper
	Jobs      *jobs.Handlers
}

// Wiring builds the booking core and its HTTP surface.
func Wiring(b Backends, config *utils.Config, logger *zap.Logger) *App {
	clock := b.Clock
	if clock == nil {
		clock = utils.SystemClock{}
	}

	bus := seatbus.New(config.Booking.SubscriberBuffer, logger)

	var (
		loader  inventory.LayoutLoader
		catalog pricing.Catalog
	)
	if b.Repo != nil {
		loader = b.Repo.Seat
		catalog = b.Repo.Catalog
	}

	inv := inventory.New(loader, bus, clock, logger)
	if catalog == nil {
		logger.Warn("No database configured, serving the demo showtime from memory")
		catalog = seedDemo(inv, config.Booking.Currency)
	}
	if b.Redis != nil {
		catalog = cache.NewCatalog(catalog, cache.NewRedisStore(b.Redis), config.Redis.CacheTTL, logger)
	}

	gateway := b.Gateway
	if gateway == nil {
		if config.Payment.BaseURL != "" {
			gateway = payment.NewClient(config.Payment, logger)
		} else {
			logger.Warn("PAYMENT_BASE_URL not set, using the payment sandbox")
			gateway = payment.NewSandbox(config.Payment.ReturnURL, logger)
		}
	}

	events := b.Events
	if events == nil {
		events = broker.NewLogPublisher(logger)
	}

	var bookings usecase.BookingWriter = discardBookings{log: logger}
	if b.Repo != nil {
		bookings = b.Repo.Booking
	}

	service := usecase.NewService(usecase.Dependencies{
		Seats:    inv,
		Pricing:  pricing.NewEngine(catalog, clock, config.Booking.ServiceFee, config.Booking.Currency),
		Gateway:  gateway,
		Verifier: payment.NewHMACVerifier(config.Payment.WebhookSecret),
		Bookings: bookings,
		Events:   events,
		Timeouts: b.Timeouts,
		Clock:    clock,
	}, config, logger)

	streams := realtime.NewGateway(bus, inv, config.Booking.HeartbeatInterval, logger)
	handler := adaptor.NewHandler(service, inv, streams, logger)

	return &App{
		Router:    setupRouter(handler, config, logger),
		Service:   service,
		Inventory: inv,
		Bus:       bus,
		Sweeper:   jobs.NewSweeper(inv, service.Core, clock, config.Booking.SweepInterval, logger),
		Jobs:      jobs.NewHandlers(service.Checkout, logger),
	}
}

func setupRouter(handler *adaptor.Handler, config *utils.Config, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS())

	wireSession(r, handler.Session, config, logger)
	wireShowtime(r, handler.Showtime, handler.Session, config, logger)
	wirePayment(r, handler.Payment)

	r.Get("/health", handler.Health.Health)

	return r
}
