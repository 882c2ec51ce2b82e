package persistence

import (
	"context"
	"time"

	"github.com/example/lecture-room-booking/internal/domain"
)

// HallRepository exposes CRUD operations for lecture halls.
type HallRepository interface {
	CreateHall(ctx context.Context, hall domain.LectureHall) error
	UpdateHall(ctx context.Context, hall domain.LectureHall) error
	GetHall(ctx context.Context, id string) (domain.LectureHall, error)
	ListHalls(ctx context.Context) ([]domain.LectureHall, error)
	DeleteHall(ctx context.Context, id string) error
}

// RoomRepository exposes CRUD operations for rooms.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room domain.Room) error
	UpdateRoom(ctx context.Context, room domain.Room) error
	GetRoom(ctx context.Context, id string) (domain.Room, error)
	ListRooms(ctx context.Context) ([]domain.Room, error)
	ListRoomsByHall(ctx context.Context, hallID string) ([]domain.Room, error)
	DeleteRoom(ctx context.Context, id string) error
}

// BookingFilter narrows booking listings. Empty fields do not filter.
// Inactive bookings are excluded unless IncludeInactive is set.
type BookingFilter struct {
	RoomID string
	// RoomIDs matches bookings in any of the listed rooms.
	RoomIDs         []string
	HallID          string
	StaffID         string
	IndexPrefix     string
	IncludeInactive bool
}

// BookingRepository stores permanent and event bookings.
type BookingRepository interface {
	CreateBooking(ctx context.Context, booking domain.Booking) error
	UpdateBooking(ctx context.Context, booking domain.Booking) error
	GetBooking(ctx context.Context, id string) (domain.Booking, error)
	ListBookings(ctx context.Context, filter BookingFilter) ([]domain.Booking, error)
	// ListBookingsForDate returns active permanent bookings on weekday and
	// active events on date. Temporarily free dates are not applied.
	ListBookingsForDate(ctx context.Context, date string, weekday domain.Weekday) ([]domain.Booking, error)
	DeactivateBooking(ctx context.Context, id string, at time.Time) error
}

// UnavailabilityFilter narrows unavailability listings.
type UnavailabilityFilter struct {
	RoomID  string
	RoomIDs []string
	HallID  string
}

// UnavailabilityRepository stores administrator declared closures.
type UnavailabilityRepository interface {
	CreatePeriod(ctx context.Context, period domain.UnavailabilityPeriod) error
	GetPeriod(ctx context.Context, id string) (domain.UnavailabilityPeriod, error)
	ListPeriods(ctx context.Context, filter UnavailabilityFilter) ([]domain.UnavailabilityPeriod, error)
	DeletePeriod(ctx context.Context, id string) error
}
