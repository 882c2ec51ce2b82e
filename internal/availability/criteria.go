package availability

import "github.com/example/lecture-room-booking/internal/domain"

// RoomCriteria filters rooms by hall and features. Zero values do not filter;
// the boolean flags require the feature when true.
type RoomCriteria struct {
	HallID        string
	MinCapacity   int
	HasProjector  bool
	HasMicSpeaker bool
	MinSockets    int
}

// Match reports whether room satisfies every criterion.
func (c RoomCriteria) Match(room domain.Room) bool {
	if c.HallID != "" && room.HallID != c.HallID {
		return false
	}
	if c.MinCapacity > 0 && room.Capacity < c.MinCapacity {
		return false
	}
	if c.HasProjector && !room.HasProjector {
		return false
	}
	if c.HasMicSpeaker && !room.HasMicSpeaker {
		return false
	}
	if c.MinSockets > 0 && room.WorkingSockets < c.MinSockets {
		return false
	}
	return true
}

// Filter returns the matching rooms in input order.
func (c RoomCriteria) Filter(rooms []domain.Room) []domain.Room {
	out := make([]domain.Room, 0, len(rooms))
	for _, room := range rooms {
		if c.Match(room) {
			out = append(out, room)
		}
	}
	return out
}
