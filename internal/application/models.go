package application

import (
	"github.com/example/lecture-room-booking/internal/availability"
	"github.com/example/lecture-room-booking/internal/domain"
	"github.com/example/lecture-room-booking/internal/recurrence"
)

// HallInput captures caller provided hall fields.
type HallInput struct {
	Name     string
	Location string
}

// RoomInput captures caller provided room fields.
type RoomInput struct {
	HallID         string
	Number         string
	Capacity       int
	WorkingSockets int
	HasProjector   bool
	HasMicSpeaker  bool
}

// BookingInput captures caller provided booking fields.
type BookingInput struct {
	Type        domain.BookingType
	RoomID      string
	DayOfWeek   domain.Weekday
	Date        string
	StartTime   string
	EndTime     string
	CourseName  string
	Title       string
	CourseCode  string
	IndexPrefix string
	StaffID     string
	StaffName   string
}

// Draft returns the scheduling fields of the input.
func (in BookingInput) Draft() domain.BookingDraft {
	return domain.BookingDraft{
		Type:      in.Type,
		RoomID:    in.RoomID,
		DayOfWeek: in.DayOfWeek,
		Date:      in.Date,
		StartTime: in.StartTime,
		EndTime:   in.EndTime,
	}
}

// BookingQuery narrows ListBookings. Date returns the bookings that occur on
// that day, with temporarily free classes removed.
type BookingQuery struct {
	RoomID      string
	HallID      string
	StaffID     string
	IndexPrefix string
	Date        string
}

// PeriodInput captures caller provided unavailability fields.
type PeriodInput struct {
	RoomID        string
	Type          domain.UnavailabilityType
	Date          string
	DayOfWeek     domain.Weekday
	StartTime     string
	EndTime       string
	Reason        domain.UnavailabilityReason
	CustomMessage string
}

// FreeRooms is the result of a free rooms lookup.
type FreeRooms struct {
	Day    recurrence.Day
	Minute int
	Rooms  []domain.Room
	Total  int
}

// AlternativesQuery asks for rooms that could host Draft instead.
type AlternativesQuery struct {
	Draft       domain.BookingDraft
	SameHall    bool
	MinCapacity int
}

// RoomSearch is the criteria accepted by SearchRooms.
type RoomSearch = availability.RoomCriteria
