package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/example/lecture-room-booking/internal/application"
	"github.com/example/lecture-room-booking/internal/config"
	"github.com/example/lecture-room-booking/internal/events"
	httptransport "github.com/example/lecture-room-booking/internal/http"
	"github.com/example/lecture-room-booking/internal/jobs"
	"github.com/example/lecture-room-booking/internal/persistence/cache"
	"github.com/example/lecture-room-booking/internal/persistence/sqlite"
	"github.com/example/lecture-room-booking/internal/persistence/sqlite/migration"
	"github.com/example/lecture-room-booking/internal/recurrence"
	"github.com/example/lecture-room-booking/internal/telemetry"
)

const (
	serviceName    = "roombooking"
	serviceVersion = "1.0.0"
	cacheEntries   = 512
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("room booking service stopped with error", "error", err)
		os.Exit(1)
	}
}

// run serves until ctx is cancelled, then shuts everything down in reverse
// start order.
func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:        cfg.OTelEnabled,
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
		OTLPEndpoint:   cfg.OTelEndpoint,
		SampleRatio:    cfg.OTelSamplingRatio,
	})
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Error("failed to flush traces", "error", err)
		}
	}()

	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.close()

	app.cron.Start()
	defer func() {
		<-app.cron.Stop().Done()
	}()

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("room booking API listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", "error", err)
	}
	logger.Info("room booking API stopped")
	return nil
}

// app holds the wired service graph.
type app struct {
	handler   http.Handler
	cron      *cron.Cron
	store     *sqlite.Store
	redis     *redis.Client
	publisher events.Publisher
	logger    *slog.Logger
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	store, err := sqlite.Open(migration.DefaultSQLiteConfig(cfg.SQLiteDSN), logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	a := &app{store: store, logger: logger}

	var cacheStore cache.Store
	if cfg.RedisAddr != "" {
		a.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		redisStore := cache.NewRedisStore(a.redis, cfg.CacheTTL, serviceName)
		if err := redisStore.Ping(ctx); err != nil {
			logger.Warn("redis unreachable, catalog reads fall through to sqlite", "addr", cfg.RedisAddr, "error", err)
		}
		cacheStore = redisStore
	} else {
		cacheStore = cache.NewMemoryStore(cfg.CacheTTL, cacheEntries, time.Now)
	}
	catalog := cache.NewCatalog(store.Halls, store.Rooms, cacheStore, logger)

	if len(cfg.KafkaBrokers) > 0 {
		a.publisher = events.NewKafkaPublisher(events.KafkaConfig{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic}, logger)
		logger.Info("publishing booking events", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		a.publisher = events.NopPublisher{}
	}

	idGenerator := uuid.NewString
	now := time.Now

	catalogService := application.NewCatalogServiceWithLogger(catalog, catalog, store.Bookings, store.Periods, idGenerator, now, logger)
	bookingService := application.NewBookingServiceWithLogger(application.BookingServiceDeps{
		Bookings:  store.Bookings,
		Periods:   store.Periods,
		Rooms:     catalog,
		Halls:     catalog,
		Publisher: a.publisher,
	}, idGenerator, now, logger)
	unavailabilityService := application.NewUnavailabilityServiceWithLogger(store.Periods, catalog, idGenerator, now, logger)
	availabilityService := application.NewAvailabilityServiceWithLogger(catalog, catalog, store.Bookings, store.Periods, application.AvailabilityOptions{
		Resolver:       recurrence.NewResolver(cfg.Location),
		Window:         cfg.Window,
		FreeRoomsLimit: cfg.FreeRoomsLimit,
	}, now, logger)

	sweeper := jobs.NewOrphanSweeper(store.Rooms, store.Bookings, store.Periods, now, logger)
	a.cron, err = jobs.NewScheduler(sweeper, cfg.SweepSchedule, cfg.Location, logger)
	if err != nil {
		a.close()
		return nil, err
	}

	limiter := httptransport.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, logger)
	a.handler = httptransport.NewRouter(httptransport.RouterConfig{
		Halls:          httptransport.NewHallHandler(catalogService, logger),
		Rooms:          httptransport.NewRoomHandler(catalogService, logger),
		Bookings:       httptransport.NewBookingHandler(bookingService, logger),
		Unavailability: httptransport.NewUnavailabilityHandler(unavailabilityService, logger),
		Schedules:      httptransport.NewScheduleHandler(availabilityService, logger),
		Logger:         logger,
		Middleware: []func(http.Handler) http.Handler{
			httptransport.Tracing(serviceName),
			httptransport.RequestLogger(logger),
			httptransport.CORS(cfg.CORSOrigins),
			httptransport.SecurityHeaders,
			limiter.Middleware,
		},
	})
	return a, nil
}

// close releases the publisher, cache client and storage.
func (a *app) close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Error("failed to close event publisher", "error", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("failed to close redis client", "error", err)
		}
	}
	if err := a.store.Close(); err != nil {
		a.logger.Error("failed to close storage", "error", err)
	}
}
