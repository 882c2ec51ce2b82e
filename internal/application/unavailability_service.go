package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/lecture-room-booking/internal/domain"
	"github.com/example/lecture-room-booking/internal/interval"
	"github.com/example/lecture-room-booking/internal/persistence"
)

// UnavailabilityService records the periods in which a room cannot be booked.
type UnavailabilityService struct {
	periods     persistence.UnavailabilityRepository
	rooms       persistence.RoomRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewUnavailabilityService constructs an unavailability service.
func NewUnavailabilityService(periods persistence.UnavailabilityRepository, rooms persistence.RoomRepository, idGenerator func() string, now func() time.Time) *UnavailabilityService {
	return NewUnavailabilityServiceWithLogger(periods, rooms, idGenerator, now, nil)
}

// NewUnavailabilityServiceWithLogger constructs an unavailability service with a specified logger.
func NewUnavailabilityServiceWithLogger(periods persistence.UnavailabilityRepository, rooms persistence.RoomRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *UnavailabilityService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &UnavailabilityService{
		periods:     periods,
		rooms:       rooms,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *UnavailabilityService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "UnavailabilityService", operation, attrs...)
}

// CreatePeriod validates input and stores a dated or weekly closure. The hall
// is taken from the room.
func (s *UnavailabilityService) CreatePeriod(ctx context.Context, input PeriodInput) (period domain.UnavailabilityPeriod, err error) {
	if s == nil {
		err = fmt.Errorf("UnavailabilityService is nil")
		return
	}
	ctx, span := startSpan(ctx, "UnavailabilityService", "CreatePeriod")
	logger := s.loggerWith(ctx, "CreatePeriod",
		"room_id", input.RoomID,
		"period_type", string(input.Type),
	)
	defer func() {
		endSpan(span, err)
		if err != nil {
			logger.ErrorContext(ctx, "failed to create unavailability period", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("period_id", period.ID).InfoContext(ctx, "unavailability period created")
	}()

	input.RoomID = strings.TrimSpace(input.RoomID)
	input.Date = strings.TrimSpace(input.Date)
	input.StartTime = strings.TrimSpace(input.StartTime)
	input.EndTime = strings.TrimSpace(input.EndTime)
	input.CustomMessage = strings.TrimSpace(input.CustomMessage)

	vErr := validatePeriodInput(input)
	var room domain.Room
	if input.RoomID != "" {
		room, err = s.rooms.GetRoom(ctx, input.RoomID)
		switch {
		case errors.Is(err, persistence.ErrNotFound):
			vErr.add("roomId", "room does not exist")
			err = nil
		case err != nil:
			return
		}
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	period = domain.UnavailabilityPeriod{
		ID:            s.idGenerator(),
		HallID:        room.HallID,
		RoomID:        room.ID,
		Type:          input.Type,
		StartTime:     input.StartTime,
		EndTime:       input.EndTime,
		Reason:        input.Reason,
		CustomMessage: input.CustomMessage,
		CreatedAt:     s.now(),
	}
	if input.Type == domain.UnavailabilityDate {
		period.Date = input.Date
	} else {
		period.DayOfWeek = input.DayOfWeek
	}

	if err = s.periods.CreatePeriod(ctx, period); err != nil {
		err = mapPeriodRepoError(err)
	}
	return
}

// GetPeriod returns a period by ID.
func (s *UnavailabilityService) GetPeriod(ctx context.Context, periodID string) (domain.UnavailabilityPeriod, error) {
	period, err := s.periods.GetPeriod(ctx, periodID)
	if err != nil {
		return domain.UnavailabilityPeriod{}, mapPeriodRepoError(err)
	}
	return period, nil
}

// ListPeriods returns the periods of a room or a hall. Empty filters list all.
func (s *UnavailabilityService) ListPeriods(ctx context.Context, roomID, hallID string) (periods []domain.UnavailabilityPeriod, err error) {
	logger := s.loggerWith(ctx, "ListPeriods", "room_id", roomID, "hall_id", hallID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list unavailability periods", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(periods)).DebugContext(ctx, "unavailability periods listed")
	}()

	periods, err = s.periods.ListPeriods(ctx, persistence.UnavailabilityFilter{
		RoomID: strings.TrimSpace(roomID),
		HallID: strings.TrimSpace(hallID),
	})
	return
}

// DeletePeriod removes a period.
func (s *UnavailabilityService) DeletePeriod(ctx context.Context, periodID string) (err error) {
	if s == nil {
		return fmt.Errorf("UnavailabilityService is nil")
	}
	ctx, span := startSpan(ctx, "UnavailabilityService", "DeletePeriod")
	logger := s.loggerWith(ctx, "DeletePeriod", "period_id", periodID)
	defer func() {
		endSpan(span, err)
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete unavailability period", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "unavailability period deleted")
	}()

	err = mapPeriodRepoError(s.periods.DeletePeriod(ctx, periodID))
	return
}

func validatePeriodInput(input PeriodInput) *ValidationError {
	vErr := &ValidationError{}
	if input.RoomID == "" {
		vErr.add("roomId", "room is required")
	}

	switch input.Type {
	case domain.UnavailabilityDate:
		if input.DayOfWeek != 0 {
			vErr.add("dayOfWeek", "dated periods must not set dayOfWeek")
		}
		if input.Date == "" {
			vErr.add("date", "date is required for dated periods")
		} else if _, err := domain.ParseDate(input.Date); err != nil {
			vErr.add("date", "date must be YYYY-MM-DD")
		}
	case domain.UnavailabilityRecurring:
		if input.Date != "" {
			vErr.add("date", "recurring periods must not set date")
		}
		if !input.DayOfWeek.Valid() {
			vErr.add("dayOfWeek", "dayOfWeek must be between 1 and 7")
		}
	default:
		vErr.add("type", "type must be date or recurring")
	}

	start, startErr := interval.ToMinutes(input.StartTime)
	if startErr != nil {
		vErr.add("startTime", "startTime must be HH:MM")
	}
	end, endErr := interval.ToMinutes(input.EndTime)
	if endErr != nil {
		vErr.add("endTime", "endTime must be HH:MM")
	}
	if startErr == nil && endErr == nil && start >= end {
		vErr.add("endTime", "startTime must be before endTime")
	}

	if input.Reason != "" && !input.Reason.Valid() {
		vErr.add("reason", "reason must be maintenance, cleaning, student_study or closed")
	}
	return vErr
}

func mapPeriodRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrConstraintViolation):
		vErr := &ValidationError{}
		vErr.add("period", "period violates a storage constraint")
		return vErr
	}
	return err
}
