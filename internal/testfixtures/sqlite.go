package testfixtures

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/example/lecture-room-booking/internal/persistence"
	"github.com/example/lecture-room-booking/internal/persistence/sqlite"
	"github.com/example/lecture-room-booking/internal/persistence/sqlite/migration"
)

// SQLiteHarness provides repository access backed by a temporary SQLite storage
// instance for integration-style persistence tests.
type SQLiteHarness struct {
	Halls    persistence.HallRepository
	Rooms    persistence.RoomRepository
	Bookings persistence.BookingRepository
	Periods  persistence.UnavailabilityRepository

	tb      testing.TB
	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness using a temporary file that is
// migrated automatically. Callers may optionally invoke Close, but the helper
// will also register a cleanup callback with the provided testing.TB.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "roombooking.db")
	store, err := sqlite.Open(migration.TempFileTestSQLiteConfig(path), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Halls:    store.Halls,
		Rooms:    store.Rooms,
		Bookings: store.Bookings,
		Periods:  store.Periods,
		tb:       tb,
		cleanup: func() {
			_ = store.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}

// SeedHall stores the hall fixture.
func (h *SQLiteHarness) SeedHall(f HallFixture) HallFixture {
	h.tb.Helper()
	if err := h.Halls.CreateHall(context.Background(), f.Domain()); err != nil {
		h.tb.Fatalf("seed hall %s: %v", f.ID, err)
	}
	return f
}

// SeedRoom stores the room fixture. Its hall must already exist.
func (h *SQLiteHarness) SeedRoom(f RoomFixture) RoomFixture {
	h.tb.Helper()
	if err := h.Rooms.CreateRoom(context.Background(), f.Domain()); err != nil {
		h.tb.Fatalf("seed room %s: %v", f.ID, err)
	}
	return f
}

// SeedBooking stores the booking fixture.
func (h *SQLiteHarness) SeedBooking(f BookingFixture) BookingFixture {
	h.tb.Helper()
	if err := h.Bookings.CreateBooking(context.Background(), f.Domain()); err != nil {
		h.tb.Fatalf("seed booking %s: %v", f.ID, err)
	}
	return f
}

// SeedPeriod stores the unavailability fixture.
func (h *SQLiteHarness) SeedPeriod(f PeriodFixture) PeriodFixture {
	h.tb.Helper()
	if err := h.Periods.CreatePeriod(context.Background(), f.Domain()); err != nil {
		h.tb.Fatalf("seed period %s: %v", f.ID, err)
	}
	return f
}
