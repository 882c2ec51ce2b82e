// Package jobs holds the background maintenance tasks.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/lecture-room-booking/internal/persistence"
)

// SweepResult counts the records cleaned by one sweep.
type SweepResult struct {
	DeactivatedBookings int
	DeletedPeriods      int
}

// OrphanSweeper deactivates bookings and deletes unavailability periods whose
// room no longer exists.
type OrphanSweeper struct {
	rooms    persistence.RoomRepository
	bookings persistence.BookingRepository
	periods  persistence.UnavailabilityRepository
	now      func() time.Time
	logger   *slog.Logger
}

// NewOrphanSweeper creates a sweeper. A nil clock uses time.Now.
func NewOrphanSweeper(rooms persistence.RoomRepository, bookings persistence.BookingRepository, periods persistence.UnavailabilityRepository, now func() time.Time, logger *slog.Logger) *OrphanSweeper {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OrphanSweeper{
		rooms:    rooms,
		bookings: bookings,
		periods:  periods,
		now:      now,
		logger:   logger.With("job", "orphan_sweep"),
	}
}

// Sweep runs one pass. Records that fail to update are skipped and reported
// in the returned error; the remaining records are still processed.
//
// Bookings and periods are read before rooms, and a room missing from the
// listing is confirmed with GetRoom, so a room created during the sweep is
// never treated as deleted.
func (s *OrphanSweeper) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult

	bookings, err := s.bookings.ListBookings(ctx, persistence.BookingFilter{})
	if err != nil {
		return result, fmt.Errorf("list bookings: %w", err)
	}
	periods, err := s.periods.ListPeriods(ctx, persistence.UnavailabilityFilter{})
	if err != nil {
		return result, fmt.Errorf("list unavailability periods: %w", err)
	}

	rooms, err := s.rooms.ListRooms(ctx)
	if err != nil {
		return result, fmt.Errorf("list rooms: %w", err)
	}
	exists := make(map[string]bool, len(rooms))
	for _, room := range rooms {
		exists[room.ID] = true
	}

	var errs []error
	roomGone := func(roomID string) bool {
		if found, checked := exists[roomID]; checked {
			return !found
		}
		_, err := s.rooms.GetRoom(ctx, roomID)
		switch {
		case err == nil:
			exists[roomID] = true
		case errors.Is(err, persistence.ErrNotFound):
			exists[roomID] = false
		default:
			errs = append(errs, fmt.Errorf("look up room %s: %w", roomID, err))
			return false
		}
		return !exists[roomID]
	}

	now := s.now().UTC()
	for _, b := range bookings {
		if !roomGone(b.RoomID) {
			continue
		}
		if err := s.bookings.DeactivateBooking(ctx, b.ID, now); err != nil && !errors.Is(err, persistence.ErrNotFound) {
			errs = append(errs, fmt.Errorf("deactivate booking %s: %w", b.ID, err))
			continue
		}
		result.DeactivatedBookings++
	}
	for _, p := range periods {
		if !roomGone(p.RoomID) {
			continue
		}
		if err := s.periods.DeletePeriod(ctx, p.ID); err != nil && !errors.Is(err, persistence.ErrNotFound) {
			errs = append(errs, fmt.Errorf("delete period %s: %w", p.ID, err))
			continue
		}
		result.DeletedPeriods++
	}
	return result, errors.Join(errs...)
}

// Run sweeps and logs the outcome. It is the cron entry point.
func (s *OrphanSweeper) Run(ctx context.Context) {
	started := s.now()
	result, err := s.Sweep(ctx)
	logger := s.logger.With(
		"deactivated_bookings", result.DeactivatedBookings,
		"deleted_periods", result.DeletedPeriods,
		"duration", s.now().Sub(started),
	)
	if err != nil {
		logger.ErrorContext(ctx, "orphan sweep failed", "error", err)
		return
	}
	logger.InfoContext(ctx, "orphan sweep completed")
}
