package availability

import (
	"time"

	"github.com/example/lecture-room-booking/internal/domain"
	"github.com/example/lecture-room-booking/internal/recurrence"
	"github.com/example/lecture-room-booking/internal/scheduler"
)

// FreeRooms returns the rooms with no booking or unavailability occurrence
// covering minute on day. Input order is preserved and no cap is applied.
func FreeRooms(rooms []domain.Room, day recurrence.Day, minute int, bookings []domain.Booking, periods []domain.UnavailabilityPeriod) []domain.Room {
	bookingsByRoom := make(map[string][]domain.Booking)
	for _, b := range bookings {
		bookingsByRoom[b.RoomID] = append(bookingsByRoom[b.RoomID], b)
	}
	periodsByRoom := make(map[string][]domain.UnavailabilityPeriod)
	for _, p := range periods {
		periodsByRoom[p.RoomID] = append(periodsByRoom[p.RoomID], p)
	}

	free := make([]domain.Room, 0, len(rooms))
	for _, room := range rooms {
		busy := false
		for _, occ := range recurrence.ForRoom(room.ID, day, bookingsByRoom[room.ID], periodsByRoom[room.ID]) {
			if occ.Covers(minute) {
				busy = true
				break
			}
		}
		if !busy {
			free = append(free, room)
		}
	}
	return free
}

// FreeRoomsAt resolves instant in the resolver's campus timezone and calls
// FreeRooms.
func FreeRoomsAt(resolver *recurrence.Resolver, instant time.Time, rooms []domain.Room, bookings []domain.Booking, periods []domain.UnavailabilityPeriod) []domain.Room {
	return FreeRooms(rooms, resolver.DayOf(instant), resolver.MinuteOf(instant), bookings, periods)
}

// Cap trims rooms for display and reports the full count.
func Cap(rooms []domain.Room, limit int) (shown []domain.Room, total int) {
	total = len(rooms)
	if limit <= 0 || limit >= total {
		return rooms, total
	}
	return rooms[:limit], total
}

// AlternativeRooms lists the rooms other than draft.RoomID on which the draft
// slot has no conflicts. Bookings and periods may span every room.
func AlternativeRooms(draft domain.BookingDraft, rooms []domain.Room, bookings []domain.Booking, periods []domain.UnavailabilityPeriod) ([]domain.Room, error) {
	if err := scheduler.ValidateDraft(draft); err != nil {
		return nil, err
	}

	bookingsByRoom := make(map[string][]domain.Booking)
	for _, b := range bookings {
		bookingsByRoom[b.RoomID] = append(bookingsByRoom[b.RoomID], b)
	}
	periodsByRoom := make(map[string][]domain.UnavailabilityPeriod)
	for _, p := range periods {
		periodsByRoom[p.RoomID] = append(periodsByRoom[p.RoomID], p)
	}

	var out []domain.Room
	for _, room := range rooms {
		if room.ID == draft.RoomID {
			continue
		}
		candidate := draft
		candidate.RoomID = room.ID
		conflicts, err := scheduler.FindConflicts(candidate, bookingsByRoom[room.ID], periodsByRoom[room.ID], "")
		if err != nil {
			return nil, err
		}
		if len(conflicts) == 0 {
			out = append(out, room)
		}
	}
	return out, nil
}
