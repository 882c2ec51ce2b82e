// Package availability projects resolved occurrences onto day and week grids
// and answers which rooms are free.
package availability

import (
	"strings"

	"github.com/example/lecture-room-booking/internal/domain"
	"github.com/example/lecture-room-booking/internal/recurrence"
)

// Kind is the visual category of a block.
type Kind string

const (
	KindPermanent   Kind = "permanent"
	KindEvent       Kind = "event"
	KindTempFree    Kind = "tempfree"
	KindUnavailable Kind = "unavailable"
)

// TempFreeLabel is the title of blocks marking a cancelled weekly class.
const TempFreeLabel = "Temporarily Free"

// Block is one positioned item on a room's day track.
//
// StartMinute and DurationMinutes are clipped to the window. StartTime,
// EndTime and TimeText always carry the record's true times.
type Block struct {
	RoomID          string
	Date            string
	StartMinute     int
	DurationMinutes int
	Lane            int
	Kind            Kind
	Label           string
	Detail          string
	StartTime       string
	EndTime         string
	TimeText        string
	Booking         *domain.Booking
	Period          *domain.UnavailabilityPeriod
}

// RoomDay is the lane-assigned track of one room on one date.
type RoomDay struct {
	Room   domain.Room
	Date   string
	Blocks []Block
	Lanes  int
}

// DayGrid is every room of a hall on one date.
type DayGrid struct {
	HallID  string
	Date    string
	Weekday domain.Weekday
	Window  Window
	Rooms   []RoomDay
}

// WeekGrid is seven Monday-start day grids.
type WeekGrid struct {
	HallID    string
	WeekStart string
	Window    Window
	Days      []DayGrid
}

// Projector builds grids for a fixed window. It holds no other state and is
// safe for concurrent use.
type Projector struct {
	window Window
}

// NewProjector returns a projector for w. A zero or inverted window falls
// back to DefaultWindow.
func NewProjector(w Window) *Projector {
	if w.End <= w.Start {
		w = DefaultWindow()
	}
	return &Projector{window: w}
}

// Window returns the projector window.
func (p *Projector) Window() Window {
	return p.window
}

// RoomDay projects the room's bookings and periods for day. Periods that name
// a different hall than the room's are ignored.
func (p *Projector) RoomDay(room domain.Room, day recurrence.Day, bookings []domain.Booking, periods []domain.UnavailabilityPeriod) RoomDay {
	var blocks []Block

	for _, b := range bookings {
		if b.RoomID != room.ID {
			continue
		}
		if occ, ok := recurrence.BookingOn(b, day); ok {
			kind := KindEvent
			if occ.Source == recurrence.SourcePermanent {
				kind = KindPermanent
			}
			if block, ok := p.block(occ, kind); ok {
				blocks = append(blocks, block)
			}
			continue
		}
		if occ, ok := recurrence.SuppressedOn(b, day); ok {
			if block, ok := p.block(occ, KindTempFree); ok {
				blocks = append(blocks, block)
			}
		}
	}

	for _, period := range periods {
		if period.RoomID != room.ID {
			continue
		}
		if period.HallID != "" && room.HallID != "" && period.HallID != room.HallID {
			continue
		}
		if occ, ok := recurrence.PeriodOn(period, day); ok {
			if block, ok := p.block(occ, KindUnavailable); ok {
				blocks = append(blocks, block)
			}
		}
	}

	laned, lanes := AssignLanes(blocks)
	return RoomDay{Room: room, Date: day.Date, Blocks: laned, Lanes: lanes}
}

// Day projects every room of hallID for day, in the order rooms are given.
func (p *Projector) Day(hallID string, day recurrence.Day, rooms []domain.Room, bookings []domain.Booking, periods []domain.UnavailabilityPeriod) DayGrid {
	grid := DayGrid{HallID: hallID, Date: day.Date, Weekday: day.Weekday, Window: p.window}
	for _, room := range rooms {
		if hallID != "" && room.HallID != hallID {
			continue
		}
		grid.Rooms = append(grid.Rooms, p.RoomDay(room, day, bookings, periods))
	}
	return grid
}

// Week projects the Monday-start week containing anchor.
func (p *Projector) Week(hallID string, anchor recurrence.Day, rooms []domain.Room, bookings []domain.Booking, periods []domain.UnavailabilityPeriod) WeekGrid {
	days := recurrence.WeekOf(anchor)
	grid := WeekGrid{HallID: hallID, WeekStart: days[0].Date, Window: p.window}
	for _, day := range days {
		grid.Days = append(grid.Days, p.Day(hallID, day, rooms, bookings, periods))
	}
	return grid
}

func (p *Projector) block(occ recurrence.Occurrence, kind Kind) (Block, bool) {
	offset, duration, ok := p.window.clip(occ.Start, occ.End)
	if !ok {
		return Block{}, false
	}
	b := Block{
		RoomID:          occ.RoomID,
		Date:            occ.Date,
		StartMinute:     offset,
		DurationMinutes: duration,
		Kind:            kind,
		StartTime:       occ.StartTime,
		EndTime:         occ.EndTime,
		TimeText:        occ.StartTime + "-" + occ.EndTime,
		Booking:         occ.Booking,
		Period:          occ.Period,
	}

	switch kind {
	case KindPermanent:
		b.Label = classLabel(*occ.Booking)
		b.Detail = occ.Booking.IndexPrefix
	case KindEvent:
		b.Label = occ.Booking.Title
		if strings.TrimSpace(b.Label) == "" {
			b.Label = occ.Booking.DisplayName()
		}
		b.Detail = occ.Booking.StaffName
	case KindTempFree:
		b.Label = TempFreeLabel
		b.Detail = classLabel(*occ.Booking)
	case KindUnavailable:
		b.Label = occ.Period.Label()
		if strings.TrimSpace(occ.Period.CustomMessage) != "" {
			b.Detail = occ.Period.Reason.Label()
		}
	}
	return b, true
}

func classLabel(b domain.Booking) string {
	return strings.TrimSpace(strings.TrimSpace(b.CourseCode) + " " + b.DisplayName())
}
