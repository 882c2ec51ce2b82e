package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/lecture-room-booking/internal/application"
	"github.com/example/lecture-room-booking/internal/events"
	"github.com/example/lecture-room-booking/internal/persistence"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Logger      *slog.Logger
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// WithLogger sets the logger passed to every service.
func WithLogger(logger *slog.Logger) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Logger = logger
	}
}

// Repositories groups the four repositories shared by the services.
type Repositories struct {
	Halls    persistence.HallRepository
	Rooms    persistence.RoomRepository
	Bookings persistence.BookingRepository
	Periods  persistence.UnavailabilityRepository
}

// Repositories returns the harness repositories as a group.
func (h *SQLiteHarness) Repositories() Repositories {
	return Repositories{Halls: h.Halls, Rooms: h.Rooms, Bookings: h.Bookings, Periods: h.Periods}
}

// NewCatalogService builds a catalog service over repos.
func (f *ServiceFactory) NewCatalogService(repos Repositories) *application.CatalogService {
	return application.NewCatalogServiceWithLogger(
		repos.Halls,
		repos.Rooms,
		repos.Bookings,
		repos.Periods,
		f.IDGenerator.NextFunc(),
		f.Clock.NowFunc(),
		f.Logger,
	)
}

// NewBookingService builds a booking service over repos. A nil publisher
// discards events.
func (f *ServiceFactory) NewBookingService(repos Repositories, publisher events.Publisher) *application.BookingService {
	return application.NewBookingServiceWithLogger(
		application.BookingServiceDeps{
			Bookings:  repos.Bookings,
			Periods:   repos.Periods,
			Rooms:     repos.Rooms,
			Halls:     repos.Halls,
			Publisher: publisher,
		},
		f.IDGenerator.NextFunc(),
		f.Clock.NowFunc(),
		f.Logger,
	)
}

// NewUnavailabilityService builds an unavailability service over repos.
func (f *ServiceFactory) NewUnavailabilityService(repos Repositories) *application.UnavailabilityService {
	return application.NewUnavailabilityServiceWithLogger(
		repos.Periods,
		repos.Rooms,
		f.IDGenerator.NextFunc(),
		f.Clock.NowFunc(),
		f.Logger,
	)
}

// NewAvailabilityService builds an availability service over repos.
func (f *ServiceFactory) NewAvailabilityService(repos Repositories, opts application.AvailabilityOptions) *application.AvailabilityService {
	return application.NewAvailabilityServiceWithLogger(
		repos.Halls,
		repos.Rooms,
		repos.Bookings,
		repos.Periods,
		opts,
		f.Clock.NowFunc(),
		f.Logger,
	)
}
