package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/lecture-room-booking/internal/availability"
	"github.com/example/lecture-room-booking/internal/domain"
	"github.com/example/lecture-room-booking/internal/persistence"
	"github.com/example/lecture-room-booking/internal/recurrence"
)

// DefaultFreeRoomsLimit is the display cap used when callers pass no limit.
const DefaultFreeRoomsLimit = 12

// AvailabilityService renders schedule grids and answers which rooms are free.
type AvailabilityService struct {
	halls          persistence.HallRepository
	rooms          persistence.RoomRepository
	bookings       persistence.BookingRepository
	periods        persistence.UnavailabilityRepository
	resolver       *recurrence.Resolver
	projector      *availability.Projector
	freeRoomsLimit int
	now            func() time.Time
	logger         *slog.Logger
}

// AvailabilityOptions tunes grid rendering and free room lookups.
type AvailabilityOptions struct {
	Resolver       *recurrence.Resolver
	Window         availability.Window
	FreeRoomsLimit int
}

// NewAvailabilityService constructs an availability service.
func NewAvailabilityService(halls persistence.HallRepository, rooms persistence.RoomRepository, bookings persistence.BookingRepository, periods persistence.UnavailabilityRepository, opts AvailabilityOptions, now func() time.Time) *AvailabilityService {
	return NewAvailabilityServiceWithLogger(halls, rooms, bookings, periods, opts, now, nil)
}

// NewAvailabilityServiceWithLogger constructs an availability service with a specified logger.
func NewAvailabilityServiceWithLogger(halls persistence.HallRepository, rooms persistence.RoomRepository, bookings persistence.BookingRepository, periods persistence.UnavailabilityRepository, opts AvailabilityOptions, now func() time.Time, logger *slog.Logger) *AvailabilityService {
	if now == nil {
		now = time.Now
	}
	resolver := opts.Resolver
	if resolver == nil {
		resolver = recurrence.NewResolver(time.UTC)
	}
	limit := opts.FreeRoomsLimit
	if limit <= 0 {
		limit = DefaultFreeRoomsLimit
	}
	return &AvailabilityService{
		halls:          halls,
		rooms:          rooms,
		bookings:       bookings,
		periods:        periods,
		resolver:       resolver,
		projector:      availability.NewProjector(opts.Window),
		freeRoomsLimit: limit,
		now:            now,
		logger:         defaultLogger(logger),
	}
}

func (s *AvailabilityService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AvailabilityService", operation, attrs...)
}

// Window returns the grid window in use.
func (s *AvailabilityService) Window() availability.Window {
	return s.projector.Window()
}

// DaySchedule projects every room of a hall on date. An empty date means
// today in the campus timezone.
func (s *AvailabilityService) DaySchedule(ctx context.Context, hallID, date string) (grid availability.DayGrid, err error) {
	ctx, span := startSpan(ctx, "AvailabilityService", "DaySchedule")
	logger := s.loggerWith(ctx, "DaySchedule", "hall_id", hallID, "date", date)
	defer func() {
		endSpan(span, err)
		if err != nil {
			logger.ErrorContext(ctx, "failed to build day schedule", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("room_count", len(grid.Rooms)).DebugContext(ctx, "day schedule built")
	}()

	var day recurrence.Day
	if day, err = s.resolveDay(date, "date"); err != nil {
		return
	}
	var sources hallSources
	if sources, err = s.loadHall(ctx, hallID); err != nil {
		return
	}
	grid = s.projector.Day(hallID, day, sources.rooms, sources.bookings, sources.periods)
	return
}

// WeekSchedule projects the Monday-start week containing anchorDate. An
// empty anchor means the current week.
func (s *AvailabilityService) WeekSchedule(ctx context.Context, hallID, anchorDate string) (grid availability.WeekGrid, err error) {
	ctx, span := startSpan(ctx, "AvailabilityService", "WeekSchedule")
	logger := s.loggerWith(ctx, "WeekSchedule", "hall_id", hallID, "anchor", anchorDate)
	defer func() {
		endSpan(span, err)
		if err != nil {
			logger.ErrorContext(ctx, "failed to build week schedule", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("week_start", grid.WeekStart).DebugContext(ctx, "week schedule built")
	}()

	var anchor recurrence.Day
	if anchor, err = s.resolveDay(anchorDate, "week"); err != nil {
		return
	}
	var sources hallSources
	if sources, err = s.loadHall(ctx, hallID); err != nil {
		return
	}
	grid = s.projector.Week(hallID, anchor, sources.rooms, sources.bookings, sources.periods)
	return
}

// FreeRoomsAt lists the rooms free at the instant, capped to limit. A limit
// of zero or less uses the configured default.
func (s *AvailabilityService) FreeRoomsAt(ctx context.Context, at time.Time, limit int) (result FreeRooms, err error) {
	ctx, span := startSpan(ctx, "AvailabilityService", "FreeRoomsAt")
	logger := s.loggerWith(ctx, "FreeRoomsAt", "limit", limit)
	defer func() {
		endSpan(span, err)
		if err != nil {
			logger.ErrorContext(ctx, "failed to find free rooms", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("free_count", result.Total, "date", result.Day.Date).DebugContext(ctx, "free rooms found")
	}()

	if at.IsZero() {
		at = s.now()
	}
	if limit <= 0 {
		limit = s.freeRoomsLimit
	}
	day := s.resolver.DayOf(at)
	minute := s.resolver.MinuteOf(at)

	var rooms []domain.Room
	if rooms, err = s.rooms.ListRooms(ctx); err != nil {
		return
	}
	var bookings []domain.Booking
	if bookings, err = s.bookings.ListBookingsForDate(ctx, day.Date, day.Weekday); err != nil {
		return
	}
	var periods []domain.UnavailabilityPeriod
	if periods, err = s.periods.ListPeriods(ctx, persistence.UnavailabilityFilter{}); err != nil {
		return
	}

	sortRooms(rooms)
	free := availability.FreeRooms(rooms, day, minute, bookings, periods)
	shown, total := availability.Cap(free, limit)
	result = FreeRooms{Day: day, Minute: minute, Rooms: shown, Total: total}
	return
}

// AlternativeRooms lists the other rooms where the draft slot has no
// conflicts, sorted by hall then number.
func (s *AvailabilityService) AlternativeRooms(ctx context.Context, query AlternativesQuery) (rooms []domain.Room, err error) {
	ctx, span := startSpan(ctx, "AvailabilityService", "AlternativeRooms")
	logger := s.loggerWith(ctx, "AlternativeRooms",
		"room_id", query.Draft.RoomID,
		"same_hall", query.SameHall,
	)
	defer func() {
		endSpan(span, err)
		if err != nil {
			logger.ErrorContext(ctx, "failed to find alternative rooms", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(rooms)).DebugContext(ctx, "alternative rooms found")
	}()

	if query.MinCapacity < 0 {
		vErr := &ValidationError{}
		vErr.add("minCapacity", "minCapacity cannot be negative")
		err = vErr
		return
	}

	var origin domain.Room
	origin, err = s.rooms.GetRoom(ctx, strings.TrimSpace(query.Draft.RoomID))
	switch {
	case errors.Is(err, persistence.ErrNotFound):
		vErr := &ValidationError{}
		vErr.add("roomId", "room does not exist")
		err = vErr
		return
	case err != nil:
		return
	}

	var candidates []domain.Room
	if query.SameHall {
		candidates, err = s.rooms.ListRoomsByHall(ctx, origin.HallID)
	} else {
		candidates, err = s.rooms.ListRooms(ctx)
	}
	if err != nil {
		return
	}
	candidates = availability.RoomCriteria{MinCapacity: query.MinCapacity}.Filter(candidates)

	var bookings []domain.Booking
	if bookings, err = s.bookings.ListBookings(ctx, persistence.BookingFilter{}); err != nil {
		return
	}
	var periods []domain.UnavailabilityPeriod
	if periods, err = s.periods.ListPeriods(ctx, persistence.UnavailabilityFilter{}); err != nil {
		return
	}

	if rooms, err = availability.AlternativeRooms(query.Draft, candidates, bookings, periods); err != nil {
		err = shapeValidation(err)
		return
	}
	sortRooms(rooms)
	return
}

type hallSources struct {
	rooms    []domain.Room
	bookings []domain.Booking
	periods  []domain.UnavailabilityPeriod
}

// loadHall reads the hall's rooms with their active bookings and periods,
// one query per collection. Records are selected by room so a room moved
// between halls keeps its bookings.
func (s *AvailabilityService) loadHall(ctx context.Context, hallID string) (hallSources, error) {
	if _, err := s.halls.GetHall(ctx, hallID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return hallSources{}, ErrNotFound
		}
		return hallSources{}, err
	}

	rooms, err := s.rooms.ListRoomsByHall(ctx, hallID)
	if err != nil {
		return hallSources{}, fmt.Errorf("list rooms of hall %s: %w", hallID, err)
	}
	out := hallSources{rooms: rooms}
	if len(rooms) == 0 {
		return out, nil
	}
	roomIDs := make([]string, len(rooms))
	for i, room := range rooms {
		roomIDs[i] = room.ID
	}
	if out.bookings, err = s.bookings.ListBookings(ctx, persistence.BookingFilter{RoomIDs: roomIDs}); err != nil {
		return hallSources{}, fmt.Errorf("list bookings of hall %s: %w", hallID, err)
	}
	if out.periods, err = s.periods.ListPeriods(ctx, persistence.UnavailabilityFilter{RoomIDs: roomIDs}); err != nil {
		return hallSources{}, fmt.Errorf("list unavailability of hall %s: %w", hallID, err)
	}
	return out, nil
}

func (s *AvailabilityService) resolveDay(date, field string) (recurrence.Day, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return s.resolver.Today(s.now), nil
	}
	day, err := recurrence.NewDay(date)
	if err != nil {
		vErr := &ValidationError{}
		vErr.add(field, "must be a YYYY-MM-DD date")
		return recurrence.Day{}, vErr
	}
	return day, nil
}
