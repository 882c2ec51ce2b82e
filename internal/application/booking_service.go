package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/example/lecture-room-booking/internal/domain"
	"github.com/example/lecture-room-booking/internal/events"
	"github.com/example/lecture-room-booking/internal/persistence"
	"github.com/example/lecture-room-booking/internal/scheduler"
)

var indexPrefixPattern = regexp.MustCompile(`^[A-Z]{2}/[A-Z]{3}/\d{2}$`)

// BookingService creates, edits and retires bookings after checking them
// against the room's existing bookings and unavailability.
type BookingService struct {
	bookings    persistence.BookingRepository
	periods     persistence.UnavailabilityRepository
	rooms       persistence.RoomRepository
	halls       persistence.HallRepository
	publisher   events.Publisher
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
	locks       roomLocks
}

// BookingServiceDeps groups the repositories used by BookingService.
type BookingServiceDeps struct {
	Bookings  persistence.BookingRepository
	Periods   persistence.UnavailabilityRepository
	Rooms     persistence.RoomRepository
	Halls     persistence.HallRepository
	Publisher events.Publisher
}

// NewBookingService constructs a booking service with the provided dependencies.
func NewBookingService(deps BookingServiceDeps, idGenerator func() string, now func() time.Time) *BookingService {
	return NewBookingServiceWithLogger(deps, idGenerator, now, nil)
}

// NewBookingServiceWithLogger constructs a booking service with a specified logger.
func NewBookingServiceWithLogger(deps BookingServiceDeps, idGenerator func() string, now func() time.Time, logger *slog.Logger) *BookingService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	publisher := deps.Publisher
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &BookingService{
		bookings:    deps.Bookings,
		periods:     deps.Periods,
		rooms:       deps.Rooms,
		halls:       deps.Halls,
		publisher:   publisher,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *BookingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BookingService", operation, attrs...)
}

// CreateBooking validates input, rejects it with a ConflictError when it
// collides with the room's schedule, and persists it otherwise.
func (s *BookingService) CreateBooking(ctx context.Context, input BookingInput) (booking domain.Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	ctx, span := startSpan(ctx, "BookingService", "CreateBooking")
	logger := s.loggerWith(ctx, "CreateBooking",
		"room_id", input.RoomID,
		"booking_type", string(input.Type),
	)
	defer func() {
		endSpan(span, err)
		if err != nil {
			logger.ErrorContext(ctx, "failed to create booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("booking_id", booking.ID).InfoContext(ctx, "booking created")
	}()

	input = normalizeBookingInput(input)
	if vErr := validateBookingInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	var room domain.Room
	if room, err = s.lookupRoom(ctx, input.RoomID); err != nil {
		return
	}
	unlock := s.locks.lock(input.RoomID)
	defer unlock()
	if err = s.ensureNoConflicts(ctx, input.Draft(), ""); err != nil {
		return
	}

	booking = domain.Booking{
		ID:          s.idGenerator(),
		Type:        input.Type,
		IsActive:    true,
		StaffID:     input.StaffID,
		StaffName:   input.StaffName,
		CreatedAt:   s.now(),
		CourseName:  input.CourseName,
		Title:       input.Title,
		CourseCode:  input.CourseCode,
		IndexPrefix: input.IndexPrefix,
	}
	booking.UpdatedAt = booking.CreatedAt
	applySlot(&booking, input)
	s.applyNames(ctx, &booking, room)

	if err = s.bookings.CreateBooking(ctx, booking); err != nil {
		err = mapBookingRepoError(err)
		return
	}
	s.publish(ctx, logger, events.BookingCreated, booking)
	return
}

// UpdateBooking re-checks conflicts, ignoring the booking itself, and saves
// the new values. The booking type cannot change.
func (s *BookingService) UpdateBooking(ctx context.Context, bookingID string, input BookingInput) (booking domain.Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	ctx, span := startSpan(ctx, "BookingService", "UpdateBooking")
	logger := s.loggerWith(ctx, "UpdateBooking", "booking_id", bookingID)
	defer func() {
		endSpan(span, err)
		if err != nil {
			logger.ErrorContext(ctx, "failed to update booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "booking updated")
	}()

	input = normalizeBookingInput(input)
	var unlock func()
	if booking, unlock, err = s.lockBooking(ctx, bookingID, input.RoomID); err != nil {
		return
	}
	defer unlock()

	vErr := validateBookingInput(input)
	if input.Type != booking.Type {
		vErr.add("type", "booking type cannot change")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var room domain.Room
	if room, err = s.lookupRoom(ctx, input.RoomID); err != nil {
		return
	}
	if err = s.ensureNoConflicts(ctx, input.Draft(), booking.ID); err != nil {
		return
	}

	previousDay := booking.DayOfWeek
	applySlot(&booking, input)
	if booking.DayOfWeek != previousDay {
		booking.TemporaryFreeDates = nil
	}
	booking.CourseName = input.CourseName
	booking.Title = input.Title
	booking.CourseCode = input.CourseCode
	booking.IndexPrefix = input.IndexPrefix
	booking.StaffID = input.StaffID
	booking.StaffName = input.StaffName
	booking.UpdatedAt = s.now()
	s.applyNames(ctx, &booking, room)

	if err = s.bookings.UpdateBooking(ctx, booking); err != nil {
		err = mapBookingRepoError(err)
		return
	}
	s.publish(ctx, logger, events.BookingUpdated, booking)
	return
}

// CheckConflicts reports every conflict for draft without writing anything.
func (s *BookingService) CheckConflicts(ctx context.Context, draft domain.BookingDraft, excludeBookingID string) (conflicts []scheduler.Conflict, err error) {
	ctx, span := startSpan(ctx, "BookingService", "CheckConflicts")
	logger := s.loggerWith(ctx, "CheckConflicts", "room_id", draft.RoomID)
	defer func() {
		endSpan(span, err)
		if err != nil {
			logger.ErrorContext(ctx, "failed to check conflicts", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("conflict_count", len(conflicts)).DebugContext(ctx, "conflicts checked")
	}()

	if err = scheduler.ValidateDraft(draft); err != nil {
		err = shapeValidation(err)
		return
	}
	conflicts, err = s.findConflicts(ctx, draft, excludeBookingID)
	return
}

// GetBooking returns an active booking.
func (s *BookingService) GetBooking(ctx context.Context, bookingID string) (domain.Booking, error) {
	return s.activeBooking(ctx, bookingID)
}

// ListBookings returns the active bookings matching query ordered by start time.
func (s *BookingService) ListBookings(ctx context.Context, query BookingQuery) (bookings []domain.Booking, err error) {
	logger := s.loggerWith(ctx, "ListBookings",
		"room_id", query.RoomID,
		"staff_id", query.StaffID,
		"date", query.Date,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list bookings", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(bookings)).DebugContext(ctx, "bookings listed")
	}()

	filter := persistence.BookingFilter{
		RoomID:  strings.TrimSpace(query.RoomID),
		HallID:  strings.TrimSpace(query.HallID),
		StaffID: strings.TrimSpace(query.StaffID),
	}
	vErr := &ValidationError{}
	if prefix := strings.ToUpper(strings.TrimSpace(query.IndexPrefix)); prefix != "" {
		if !indexPrefixPattern.MatchString(prefix) {
			vErr.add("indexPrefix", "indexPrefix must look like XX/XXX/NN")
		}
		filter.IndexPrefix = prefix
	}
	var weekday domain.Weekday
	if query.Date != "" {
		if weekday, err = domain.WeekdayOfDate(query.Date); err != nil {
			vErr.add("date", "date must be YYYY-MM-DD")
			err = nil
		}
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if query.Date == "" {
		bookings, err = s.bookings.ListBookings(ctx, filter)
		return
	}

	var onDay []domain.Booking
	if onDay, err = s.bookings.ListBookingsForDate(ctx, query.Date, weekday); err != nil {
		return
	}
	bookings = make([]domain.Booking, 0, len(onDay))
	for _, b := range onDay {
		if b.IsTemporarilyFree(query.Date) || !matchesFilter(b, filter) {
			continue
		}
		bookings = append(bookings, b)
	}
	return
}

// DeleteBooking deactivates a booking. Inactive bookings stay in storage but
// are ignored everywhere else.
func (s *BookingService) DeleteBooking(ctx context.Context, bookingID string) (err error) {
	if s == nil {
		return fmt.Errorf("BookingService is nil")
	}
	ctx, span := startSpan(ctx, "BookingService", "DeleteBooking")
	logger := s.loggerWith(ctx, "DeleteBooking", "booking_id", bookingID)
	defer func() {
		endSpan(span, err)
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "booking deleted")
	}()

	booking, unlock, err := s.lockBooking(ctx, bookingID)
	if err != nil {
		return
	}
	defer unlock()
	at := s.now()
	if err = s.bookings.DeactivateBooking(ctx, bookingID, at); err != nil {
		err = mapBookingRepoError(err)
		return
	}
	booking.IsActive = false
	booking.UpdatedAt = at
	s.publish(ctx, logger, events.BookingDeleted, booking)
	return
}

// MarkTemporarilyFree suspends a permanent class on the given dates. Dates
// already marked are ignored and the stored list stays sorted.
func (s *BookingService) MarkTemporarilyFree(ctx context.Context, bookingID string, dates []string) (domain.Booking, error) {
	return s.changeFreeDates(ctx, "MarkTemporarilyFree", bookingID, dates, true)
}

// RemoveTemporarilyFree restores a permanent class on the given dates.
func (s *BookingService) RemoveTemporarilyFree(ctx context.Context, bookingID string, dates []string) (domain.Booking, error) {
	return s.changeFreeDates(ctx, "RemoveTemporarilyFree", bookingID, dates, false)
}

func (s *BookingService) changeFreeDates(ctx context.Context, operation, bookingID string, dates []string, mark bool) (booking domain.Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	ctx, span := startSpan(ctx, "BookingService", operation)
	logger := s.loggerWith(ctx, operation, "booking_id", bookingID, "date_count", len(dates))
	defer func() {
		endSpan(span, err)
		if err != nil {
			logger.ErrorContext(ctx, "failed to change temporarily free dates", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("free_date_count", len(booking.TemporaryFreeDates)).InfoContext(ctx, "temporarily free dates changed")
	}()

	var unlock func()
	if booking, unlock, err = s.lockBooking(ctx, bookingID); err != nil {
		return
	}
	defer unlock()

	vErr := &ValidationError{}
	if booking.Type != domain.BookingPermanent {
		vErr.add("type", "temporarily free dates apply to permanent bookings only")
	}
	if len(dates) == 0 {
		vErr.add("dates", "at least one date is required")
	}
	for _, date := range dates {
		weekday, parseErr := domain.WeekdayOfDate(date)
		if parseErr != nil {
			vErr.add("dates", fmt.Sprintf("%q is not a YYYY-MM-DD date", date))
			continue
		}
		if mark && weekday != booking.DayOfWeek {
			vErr.add("dates", fmt.Sprintf("%s is not a %s", date, booking.DayOfWeek))
		}
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if mark {
		booking.TemporaryFreeDates = unionDates(booking.TemporaryFreeDates, dates)
	} else {
		booking.TemporaryFreeDates = subtractDates(booking.TemporaryFreeDates, dates)
	}
	booking.UpdatedAt = s.now()

	if err = s.bookings.UpdateBooking(ctx, booking); err != nil {
		err = mapBookingRepoError(err)
		return
	}
	s.publish(ctx, logger, events.BookingTempFreeChanged, booking)
	return
}

func (s *BookingService) activeBooking(ctx context.Context, bookingID string) (domain.Booking, error) {
	booking, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return domain.Booking{}, mapBookingRepoError(err)
	}
	if !booking.IsActive {
		return domain.Booking{}, ErrNotFound
	}
	return booking, nil
}

func (s *BookingService) lookupRoom(ctx context.Context, roomID string) (domain.Room, error) {
	room, err := s.rooms.GetRoom(ctx, roomID)
	if errors.Is(err, persistence.ErrNotFound) {
		vErr := &ValidationError{}
		vErr.add("roomId", "room does not exist")
		return domain.Room{}, vErr
	}
	return room, err
}

func (s *BookingService) findConflicts(ctx context.Context, draft domain.BookingDraft, excludeBookingID string) ([]scheduler.Conflict, error) {
	bookings, err := s.bookings.ListBookings(ctx, persistence.BookingFilter{RoomID: draft.RoomID})
	if err != nil {
		return nil, fmt.Errorf("load bookings for room %s: %w", draft.RoomID, err)
	}
	periods, err := s.periods.ListPeriods(ctx, persistence.UnavailabilityFilter{RoomID: draft.RoomID})
	if err != nil {
		return nil, fmt.Errorf("load unavailability for room %s: %w", draft.RoomID, err)
	}
	conflicts, err := scheduler.FindConflicts(draft, bookings, periods, excludeBookingID)
	if err != nil {
		return nil, shapeValidation(err)
	}
	return conflicts, nil
}

func (s *BookingService) ensureNoConflicts(ctx context.Context, draft domain.BookingDraft, excludeBookingID string) error {
	conflicts, err := s.findConflicts(ctx, draft, excludeBookingID)
	if err != nil {
		return err
	}
	if len(conflicts) > 0 {
		return &ConflictError{Conflicts: conflicts}
	}
	return nil
}

// applyNames copies display names from the catalog. A missing hall leaves
// the hall name empty.
func (s *BookingService) applyNames(ctx context.Context, booking *domain.Booking, room domain.Room) {
	booking.RoomID = room.ID
	booking.HallID = room.HallID
	booking.RoomName = room.Number
	booking.HallName = ""
	if s.halls == nil {
		return
	}
	if hall, err := s.halls.GetHall(ctx, room.HallID); err == nil {
		booking.HallName = hall.Name
	}
}

func (s *BookingService) publish(ctx context.Context, logger *slog.Logger, eventType events.Type, booking domain.Booking) {
	event := events.BookingEvent{
		ID:         s.idGenerator(),
		Type:       eventType,
		BookingID:  booking.ID,
		RoomID:     booking.RoomID,
		OccurredAt: s.now(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		logger.WarnContext(ctx, "failed to publish booking event", "event_type", string(eventType), "error", err)
	}
}

func applySlot(booking *domain.Booking, input BookingInput) {
	booking.RoomID = input.RoomID
	booking.StartTime = input.StartTime
	booking.EndTime = input.EndTime
	switch input.Type {
	case domain.BookingPermanent:
		booking.DayOfWeek = input.DayOfWeek
		booking.Date = ""
	case domain.BookingEvent:
		booking.DayOfWeek = 0
		booking.Date = input.Date
		booking.TemporaryFreeDates = nil
	}
}

func normalizeBookingInput(input BookingInput) BookingInput {
	input.RoomID = strings.TrimSpace(input.RoomID)
	input.Date = strings.TrimSpace(input.Date)
	input.StartTime = strings.TrimSpace(input.StartTime)
	input.EndTime = strings.TrimSpace(input.EndTime)
	input.CourseName = strings.TrimSpace(input.CourseName)
	input.Title = strings.TrimSpace(input.Title)
	input.CourseCode = strings.ToUpper(strings.TrimSpace(input.CourseCode))
	input.IndexPrefix = strings.ToUpper(strings.TrimSpace(input.IndexPrefix))
	input.StaffID = strings.TrimSpace(input.StaffID)
	input.StaffName = strings.TrimSpace(input.StaffName)
	return input
}

func validateBookingInput(input BookingInput) *ValidationError {
	vErr := &ValidationError{}
	if err := scheduler.ValidateDraft(input.Draft()); err != nil {
		if shapeErr, ok := shapeValidation(err).(*ValidationError); ok {
			vErr.merge(shapeErr)
		}
	}

	switch input.Type {
	case domain.BookingPermanent:
		if input.CourseName == "" {
			vErr.add("courseName", "courseName is required for permanent bookings")
		}
		if input.IndexPrefix == "" {
			vErr.add("indexPrefix", "indexPrefix is required for permanent bookings")
		} else if !indexPrefixPattern.MatchString(input.IndexPrefix) {
			vErr.add("indexPrefix", "indexPrefix must look like XX/XXX/NN")
		}
	case domain.BookingEvent:
		if input.Title == "" {
			vErr.add("title", "title is required for event bookings")
		}
		if input.IndexPrefix != "" && !indexPrefixPattern.MatchString(input.IndexPrefix) {
			vErr.add("indexPrefix", "indexPrefix must look like XX/XXX/NN")
		}
	}
	return vErr
}

func matchesFilter(b domain.Booking, filter persistence.BookingFilter) bool {
	if filter.RoomID != "" && b.RoomID != filter.RoomID {
		return false
	}
	if len(filter.RoomIDs) > 0 && !slices.Contains(filter.RoomIDs, b.RoomID) {
		return false
	}
	if filter.HallID != "" && b.HallID != filter.HallID {
		return false
	}
	if filter.StaffID != "" && b.StaffID != filter.StaffID {
		return false
	}
	if filter.IndexPrefix != "" && b.IndexPrefix != filter.IndexPrefix {
		return false
	}
	return true
}

func unionDates(existing, added []string) []string {
	out := slices.Clone(existing)
	for _, d := range added {
		if !slices.Contains(out, d) {
			out = append(out, d)
		}
	}
	slices.Sort(out)
	return out
}

func subtractDates(existing, removed []string) []string {
	out := make([]string, 0, len(existing))
	for _, d := range existing {
		if !slices.Contains(removed, d) {
			out = append(out, d)
		}
	}
	slices.Sort(out)
	return out
}

func mapBookingRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrConstraintViolation):
		vErr := &ValidationError{}
		vErr.add("booking", "booking violates a storage constraint")
		return vErr
	}
	return err
}
