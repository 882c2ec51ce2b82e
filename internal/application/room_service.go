package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/example/lecture-room-booking/internal/domain"
	"github.com/example/lecture-room-booking/internal/persistence"
)

// CreateRoom validates input and persists a new room in an existing hall.
func (s *CatalogService) CreateRoom(ctx context.Context, input RoomInput) (room domain.Room, err error) {
	if s == nil {
		err = fmt.Errorf("CatalogService is nil")
		return
	}
	ctx, span := startSpan(ctx, "CatalogService", "CreateRoom")
	logger := s.loggerWith(ctx, "CreateRoom", "hall_id", input.HallID)
	defer func() {
		endSpan(span, err)
		if err != nil {
			logger.ErrorContext(ctx, "failed to create room", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("room_id", room.ID).InfoContext(ctx, "room created")
	}()

	if err = s.validateRoomInput(ctx, input); err != nil {
		return
	}

	room = domain.Room{
		ID:             s.idGenerator(),
		HallID:         strings.TrimSpace(input.HallID),
		Number:         strings.TrimSpace(input.Number),
		Capacity:       input.Capacity,
		WorkingSockets: input.WorkingSockets,
		HasProjector:   input.HasProjector,
		HasMicSpeaker:  input.HasMicSpeaker,
		CreatedAt:      s.now(),
	}
	room.UpdatedAt = room.CreatedAt

	if err = s.rooms.CreateRoom(ctx, room); err != nil {
		err = mapRoomRepoError(err)
	}
	return
}

// UpdateRoom validates input and updates an existing room.
func (s *CatalogService) UpdateRoom(ctx context.Context, roomID string, input RoomInput) (room domain.Room, err error) {
	if s == nil {
		err = fmt.Errorf("CatalogService is nil")
		return
	}
	ctx, span := startSpan(ctx, "CatalogService", "UpdateRoom")
	logger := s.loggerWith(ctx, "UpdateRoom", "room_id", roomID)
	defer func() {
		endSpan(span, err)
		if err != nil {
			logger.ErrorContext(ctx, "failed to update room", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "room updated")
	}()

	room, err = s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		err = mapRoomRepoError(err)
		return
	}
	if err = s.validateRoomInput(ctx, input); err != nil {
		return
	}

	room.HallID = strings.TrimSpace(input.HallID)
	room.Number = strings.TrimSpace(input.Number)
	room.Capacity = input.Capacity
	room.WorkingSockets = input.WorkingSockets
	room.HasProjector = input.HasProjector
	room.HasMicSpeaker = input.HasMicSpeaker
	room.UpdatedAt = s.now()

	if err = s.rooms.UpdateRoom(ctx, room); err != nil {
		err = mapRoomRepoError(err)
	}
	return
}

// GetRoom returns one room.
func (s *CatalogService) GetRoom(ctx context.Context, roomID string) (domain.Room, error) {
	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return domain.Room{}, mapRoomRepoError(err)
	}
	return room, nil
}

// SearchRooms returns the rooms matching criteria sorted by hall then number.
func (s *CatalogService) SearchRooms(ctx context.Context, criteria RoomSearch) (rooms []domain.Room, err error) {
	logger := s.loggerWith(ctx, "SearchRooms", "hall_id", criteria.HallID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to search rooms", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(rooms)).DebugContext(ctx, "rooms searched")
	}()

	if criteria.MinCapacity < 0 || criteria.MinSockets < 0 {
		vErr := &ValidationError{}
		if criteria.MinCapacity < 0 {
			vErr.add("minCapacity", "minCapacity cannot be negative")
		}
		if criteria.MinSockets < 0 {
			vErr.add("minSockets", "minSockets cannot be negative")
		}
		err = vErr
		return
	}

	var raw []domain.Room
	if criteria.HallID != "" {
		raw, err = s.rooms.ListRoomsByHall(ctx, criteria.HallID)
	} else {
		raw, err = s.rooms.ListRooms(ctx)
	}
	if err != nil {
		return
	}

	rooms = criteria.Filter(raw)
	sortRooms(rooms)
	return
}

// DeleteRoom removes a room that no active booking or unavailability period
// references.
func (s *CatalogService) DeleteRoom(ctx context.Context, roomID string) (err error) {
	if s == nil {
		return fmt.Errorf("CatalogService is nil")
	}
	ctx, span := startSpan(ctx, "CatalogService", "DeleteRoom")
	logger := s.loggerWith(ctx, "DeleteRoom", "room_id", roomID)
	defer func() {
		endSpan(span, err)
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete room", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "room deleted")
	}()

	if _, err = s.rooms.GetRoom(ctx, roomID); err != nil {
		err = mapRoomRepoError(err)
		return
	}

	var bookings []domain.Booking
	if bookings, err = s.bookings.ListBookings(ctx, persistence.BookingFilter{RoomID: roomID}); err != nil {
		return
	}
	var periods []domain.UnavailabilityPeriod
	if periods, err = s.periods.ListPeriods(ctx, persistence.UnavailabilityFilter{RoomID: roomID}); err != nil {
		return
	}
	if len(bookings) > 0 || len(periods) > 0 {
		err = fmt.Errorf("%w: room has %d active bookings and %d unavailability periods", ErrInUse, len(bookings), len(periods))
		return
	}

	if err = s.rooms.DeleteRoom(ctx, roomID); err != nil {
		err = mapRoomRepoError(err)
	}
	return
}

func (s *CatalogService) validateRoomInput(ctx context.Context, input RoomInput) error {
	vErr := &ValidationError{}
	if strings.TrimSpace(input.HallID) == "" {
		vErr.add("hallId", "hallId is required")
	}
	if strings.TrimSpace(input.Number) == "" {
		vErr.add("number", "number is required")
	}
	if input.Capacity < 0 {
		vErr.add("capacity", "capacity cannot be negative")
	}
	if input.WorkingSockets < 0 {
		vErr.add("workingSockets", "workingSockets cannot be negative")
	}
	if vErr.HasErrors() {
		return vErr
	}

	if _, err := s.halls.GetHall(ctx, strings.TrimSpace(input.HallID)); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			vErr.add("hallId", "hall does not exist")
			return vErr
		}
		return err
	}
	return nil
}

func sortRooms(rooms []domain.Room) {
	sort.SliceStable(rooms, func(i, j int) bool {
		if rooms[i].HallID != rooms[j].HallID {
			return rooms[i].HallID < rooms[j].HallID
		}
		if rooms[i].Number != rooms[j].Number {
			return rooms[i].Number < rooms[j].Number
		}
		return rooms[i].ID < rooms[j].ID
	})
}

func mapRoomRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		vErr := &ValidationError{}
		vErr.add("hallId", "hall does not exist")
		return vErr
	case errors.Is(err, persistence.ErrConstraintViolation):
		vErr := &ValidationError{}
		vErr.add("room", "room violates a storage constraint")
		return vErr
	}
	return err
}
