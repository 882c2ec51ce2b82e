package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/lecture-room-booking/internal/domain"
	"github.com/example/lecture-room-booking/internal/persistence"
)

// CatalogService manages lecture halls and their rooms.
type CatalogService struct {
	halls       persistence.HallRepository
	rooms       persistence.RoomRepository
	bookings    persistence.BookingRepository
	periods     persistence.UnavailabilityRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewCatalogService constructs a catalog service with the provided dependencies.
func NewCatalogService(halls persistence.HallRepository, rooms persistence.RoomRepository, bookings persistence.BookingRepository, periods persistence.UnavailabilityRepository, idGenerator func() string, now func() time.Time) *CatalogService {
	return NewCatalogServiceWithLogger(halls, rooms, bookings, periods, idGenerator, now, nil)
}

// NewCatalogServiceWithLogger constructs a catalog service with a specified logger.
func NewCatalogServiceWithLogger(halls persistence.HallRepository, rooms persistence.RoomRepository, bookings persistence.BookingRepository, periods persistence.UnavailabilityRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *CatalogService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &CatalogService{
		halls:       halls,
		rooms:       rooms,
		bookings:    bookings,
		periods:     periods,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *CatalogService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "CatalogService", operation, attrs...)
}

// CreateHall validates input and persists a new hall.
func (s *CatalogService) CreateHall(ctx context.Context, input HallInput) (hall domain.LectureHall, err error) {
	if s == nil {
		err = fmt.Errorf("CatalogService is nil")
		return
	}
	ctx, span := startSpan(ctx, "CatalogService", "CreateHall")
	logger := s.loggerWith(ctx, "CreateHall")
	defer func() {
		endSpan(span, err)
		if err != nil {
			logger.ErrorContext(ctx, "failed to create hall", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("hall_id", hall.ID).InfoContext(ctx, "hall created")
	}()

	if vErr := validateHallInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	hall = domain.LectureHall{
		ID:        s.idGenerator(),
		Name:      strings.TrimSpace(input.Name),
		Location:  strings.TrimSpace(input.Location),
		CreatedAt: s.now(),
	}
	hall.UpdatedAt = hall.CreatedAt

	if err = s.halls.CreateHall(ctx, hall); err != nil {
		err = mapHallRepoError(err)
	}
	return
}

// UpdateHall replaces the name and location of an existing hall.
func (s *CatalogService) UpdateHall(ctx context.Context, hallID string, input HallInput) (hall domain.LectureHall, err error) {
	if s == nil {
		err = fmt.Errorf("CatalogService is nil")
		return
	}
	ctx, span := startSpan(ctx, "CatalogService", "UpdateHall")
	logger := s.loggerWith(ctx, "UpdateHall", "hall_id", hallID)
	defer func() {
		endSpan(span, err)
		if err != nil {
			logger.ErrorContext(ctx, "failed to update hall", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "hall updated")
	}()

	hall, err = s.halls.GetHall(ctx, hallID)
	if err != nil {
		err = mapHallRepoError(err)
		return
	}
	if vErr := validateHallInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	hall.Name = strings.TrimSpace(input.Name)
	hall.Location = strings.TrimSpace(input.Location)
	hall.UpdatedAt = s.now()
	if err = s.halls.UpdateHall(ctx, hall); err != nil {
		err = mapHallRepoError(err)
	}
	return
}

// GetHall returns one hall.
func (s *CatalogService) GetHall(ctx context.Context, hallID string) (domain.LectureHall, error) {
	hall, err := s.halls.GetHall(ctx, hallID)
	if err != nil {
		return domain.LectureHall{}, mapHallRepoError(err)
	}
	return hall, nil
}

// ListHalls returns every hall sorted by name.
func (s *CatalogService) ListHalls(ctx context.Context) (halls []domain.LectureHall, err error) {
	logger := s.loggerWith(ctx, "ListHalls")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list halls", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(halls)).DebugContext(ctx, "halls listed")
	}()

	var raw []domain.LectureHall
	if raw, err = s.halls.ListHalls(ctx); err != nil {
		return
	}
	halls = make([]domain.LectureHall, len(raw))
	copy(halls, raw)
	sort.SliceStable(halls, func(i, j int) bool {
		if strings.EqualFold(halls[i].Name, halls[j].Name) {
			return halls[i].ID < halls[j].ID
		}
		return strings.ToLower(halls[i].Name) < strings.ToLower(halls[j].Name)
	})
	return
}

// DeleteHall removes a hall that no longer has rooms.
func (s *CatalogService) DeleteHall(ctx context.Context, hallID string) (err error) {
	if s == nil {
		return fmt.Errorf("CatalogService is nil")
	}
	ctx, span := startSpan(ctx, "CatalogService", "DeleteHall")
	logger := s.loggerWith(ctx, "DeleteHall", "hall_id", hallID)
	defer func() {
		endSpan(span, err)
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete hall", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "hall deleted")
	}()

	if _, err = s.halls.GetHall(ctx, hallID); err != nil {
		err = mapHallRepoError(err)
		return
	}
	var rooms []domain.Room
	if rooms, err = s.rooms.ListRoomsByHall(ctx, hallID); err != nil {
		return
	}
	if len(rooms) > 0 {
		err = fmt.Errorf("%w: hall has %d rooms", ErrInUse, len(rooms))
		return
	}
	if err = s.halls.DeleteHall(ctx, hallID); err != nil {
		err = mapHallRepoError(err)
	}
	return
}

func validateHallInput(input HallInput) *ValidationError {
	vErr := &ValidationError{}
	if strings.TrimSpace(input.Name) == "" {
		vErr.add("name", "name is required")
	}
	return vErr
}

func mapHallRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return fmt.Errorf("%w: %v", ErrInUse, err)
	case errors.Is(err, persistence.ErrConstraintViolation):
		vErr := &ValidationError{}
		vErr.add("name", "name is required")
		return vErr
	}
	return err
}
