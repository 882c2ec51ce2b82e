package recurrence

import (
	"errors"
	"fmt"
	"time"

	"github.com/example/lecture-room-booking/internal/domain"
	"github.com/example/lecture-room-booking/internal/interval"
)

// ErrInvalidDate indicates a calendar date is not in YYYY-MM-DD form.
var ErrInvalidDate = errors.New("recurrence: invalid date")

// Source identifies the record kind an occurrence was resolved from.
type Source string

const (
	SourcePermanent   Source = "permanent"
	SourceEvent       Source = "event"
	SourceUnavailable Source = "unavailable"
)

// Day is a calendar date paired with its Monday=1..Sunday=7 weekday.
type Day struct {
	Date    string
	Weekday domain.Weekday
}

// NewDay parses an ISO date.
func NewDay(date string) (Day, error) {
	t, err := domain.ParseDate(date)
	if err != nil {
		return Day{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return dayFromTime(t), nil
}

func dayFromTime(t time.Time) Day {
	return Day{Date: t.Format(domain.DateLayout), Weekday: domain.WeekdayOf(t)}
}

// AddDays returns the day n days later (or earlier for negative n).
func (d Day) AddDays(n int) Day {
	t, err := domain.ParseDate(d.Date)
	if err != nil {
		return d
	}
	return dayFromTime(t.AddDate(0, 0, n))
}

// WeekOf returns the seven days of the Monday-start week containing d.
func WeekOf(d Day) []Day {
	monday := d.AddDays(-(int(d.Weekday) - 1))
	days := make([]Day, 0, 7)
	for i := 0; i < 7; i++ {
		days = append(days, monday.AddDays(i))
	}
	return days
}

// Occurrence is a booking or unavailability period resolved onto one date.
type Occurrence struct {
	RoomID    string
	HallID    string
	Date      string
	Start     int
	End       int
	StartTime string
	EndTime   string
	Source    Source
	// Suppressed marks a permanent occurrence cancelled by a temporarily free
	// date. Only SuppressedOn returns such occurrences.
	Suppressed bool
	Booking    *domain.Booking
	Period     *domain.UnavailabilityPeriod
}

// Range returns the occurrence time range.
func (o Occurrence) Range() interval.Range {
	return interval.Range{Start: o.Start, End: o.End}
}

// Covers reports whether the minute of day falls inside the occurrence.
func (o Occurrence) Covers(minute int) bool {
	return interval.Contains(o.Start, o.End, minute)
}

// Resolver resolves records onto concrete dates in the campus timezone.
type Resolver struct {
	location *time.Location
}

// NewResolver constructs a Resolver for the provided campus location.
// If loc is nil, UTC is used.
func NewResolver(loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	return &Resolver{location: loc}
}

// Location returns the campus timezone.
func (r *Resolver) Location() *time.Location {
	if r == nil || r.location == nil {
		return time.UTC
	}
	return r.location
}

// DayOf returns the campus calendar day of the instant.
func (r *Resolver) DayOf(t time.Time) Day {
	return dayFromTime(t.In(r.Location()))
}

// Today returns the campus calendar day for the clock reading now.
func (r *Resolver) Today(now func() time.Time) Day {
	if now == nil {
		now = time.Now
	}
	return r.DayOf(now())
}

// MinuteOf returns the campus minute of day of the instant.
func (r *Resolver) MinuteOf(t time.Time) int {
	local := t.In(r.Location())
	return local.Hour()*60 + local.Minute()
}

// BookingOn resolves an active booking onto day. Permanent bookings that are
// temporarily free on day, and records with malformed times, yield nothing.
func BookingOn(b domain.Booking, day Day) (Occurrence, bool) {
	occ, ok := matchBooking(b, day)
	if !ok || occ.Suppressed {
		return Occurrence{}, false
	}
	return occ, true
}

// SuppressedOn returns the occurrence a permanent booking would have on day
// when day is one of its temporarily free dates.
func SuppressedOn(b domain.Booking, day Day) (Occurrence, bool) {
	occ, ok := matchBooking(b, day)
	if !ok || !occ.Suppressed {
		return Occurrence{}, false
	}
	return occ, true
}

func matchBooking(b domain.Booking, day Day) (Occurrence, bool) {
	if !b.IsActive {
		return Occurrence{}, false
	}
	switch b.Type {
	case domain.BookingEvent:
		if b.Date == "" || b.Date != day.Date {
			return Occurrence{}, false
		}
	case domain.BookingPermanent:
		if !b.DayOfWeek.Valid() || b.DayOfWeek != day.Weekday {
			return Occurrence{}, false
		}
	default:
		return Occurrence{}, false
	}

	r, ok := wellFormed(b.StartTime, b.EndTime)
	if !ok {
		return Occurrence{}, false
	}

	source := SourceEvent
	if b.Type == domain.BookingPermanent {
		source = SourcePermanent
	}
	booking := b
	return Occurrence{
		RoomID:     b.RoomID,
		HallID:     b.HallID,
		Date:       day.Date,
		Start:      r.Start,
		End:        r.End,
		StartTime:  b.StartTime,
		EndTime:    b.EndTime,
		Source:     source,
		Suppressed: b.IsTemporarilyFree(day.Date),
		Booking:    &booking,
	}, true
}

// PeriodOn resolves an unavailability period onto day.
func PeriodOn(p domain.UnavailabilityPeriod, day Day) (Occurrence, bool) {
	switch p.Type {
	case domain.UnavailabilityDate:
		if p.Date == "" || p.Date != day.Date {
			return Occurrence{}, false
		}
	case domain.UnavailabilityRecurring:
		if !p.DayOfWeek.Valid() || p.DayOfWeek != day.Weekday {
			return Occurrence{}, false
		}
	default:
		return Occurrence{}, false
	}

	r, ok := wellFormed(p.StartTime, p.EndTime)
	if !ok {
		return Occurrence{}, false
	}
	period := p
	return Occurrence{
		RoomID:    p.RoomID,
		HallID:    p.HallID,
		Date:      day.Date,
		Start:     r.Start,
		End:       r.End,
		StartTime: p.StartTime,
		EndTime:   p.EndTime,
		Source:    SourceUnavailable,
		Period:    &period,
	}, true
}

// ForRoom resolves every booking and period for roomID on day, bookings
// first, each in input order.
func ForRoom(roomID string, day Day, bookings []domain.Booking, periods []domain.UnavailabilityPeriod) []Occurrence {
	var out []Occurrence
	for _, b := range bookings {
		if b.RoomID != roomID {
			continue
		}
		if occ, ok := BookingOn(b, day); ok {
			out = append(out, occ)
		}
	}
	for _, p := range periods {
		if p.RoomID != roomID {
			continue
		}
		if occ, ok := PeriodOn(p, day); ok {
			out = append(out, occ)
		}
	}
	return out
}

func wellFormed(start, end string) (interval.Range, bool) {
	r, err := interval.ParseRange(start, end)
	if err != nil || !r.Ordered() {
		return interval.Range{}, false
	}
	return r, true
}
