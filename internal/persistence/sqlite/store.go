// Package sqlite implements the persistence repositories on SQLite.
package sqlite

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"github.com/example/lecture-room-booking/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store bundles the repositories sharing one connection pool.
type Store struct {
	pool   *ConnectionPool
	logger *slog.Logger

	Halls    *HallRepository
	Rooms    *RoomRepository
	Bookings *BookingRepository
	Periods  *UnavailabilityRepository
}

// Open opens the database described by cfg. Call Migrate before use.
func Open(cfg migration.SQLiteConfig, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := NewConnectionPool(cfg)
	if err != nil {
		return nil, err
	}
	return &Store{
		pool:     pool,
		logger:   logger,
		Halls:    NewHallRepository(pool),
		Rooms:    NewRoomRepository(pool),
		Bookings: NewBookingRepositoryWithLogger(pool, logger),
		Periods:  NewUnavailabilityRepositoryWithLogger(pool, logger),
	}, nil
}

// Migrate applies the embedded schema migrations.
func (s *Store) Migrate(ctx context.Context) error {
	manager := migration.NewManager(
		migration.NewScanner(migrationsFS, "migrations"),
		migration.NewSQLiteExecutor(s.pool.DB()),
		s.logger,
	)
	if err := manager.Run(ctx); err != nil {
		return fmt.Errorf("migrate sqlite store: %w", err)
	}
	return nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.pool.Close()
}
