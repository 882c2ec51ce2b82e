// Package scheduler decides whether a proposed booking collides with existing
// bookings or with administrator declared unavailability.
package scheduler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/example/lecture-room-booking/internal/domain"
	"github.com/example/lecture-room-booking/internal/interval"
)

// ErrInvalidBookingShape is returned for drafts that mix or omit the
// weekday/date fields, or whose start is not before their end.
var ErrInvalidBookingShape = errors.New("scheduler: invalid booking shape")

// ShapeError pins a draft rejection to a field.
type ShapeError struct {
	Field   string
	Message string
	Err     error
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ShapeError) Unwrap() error {
	return e.Err
}

// ConflictKind tags the source of a conflict.
type ConflictKind string

const (
	ConflictUnavailable ConflictKind = "unavailable"
	ConflictBooking     ConflictKind = "booking"
)

// Conflict describes one reason a draft cannot be booked. Exactly one of
// Booking or Period is set.
type Conflict struct {
	Kind    ConflictKind
	Reason  string
	Booking *domain.Booking
	Period  *domain.UnavailabilityPeriod
}

// ValidateDraft checks the draft before any conflict evaluation.
func ValidateDraft(d domain.BookingDraft) error {
	if strings.TrimSpace(d.RoomID) == "" {
		return &ShapeError{Field: "roomId", Message: "room is required", Err: ErrInvalidBookingShape}
	}

	hasDay := d.DayOfWeek != 0
	hasDate := strings.TrimSpace(d.Date) != ""
	switch {
	case hasDay && hasDate:
		return &ShapeError{Field: "date", Message: "dayOfWeek and date are mutually exclusive", Err: ErrInvalidBookingShape}
	case !hasDay && !hasDate:
		return &ShapeError{Field: "date", Message: "one of dayOfWeek or date is required", Err: ErrInvalidBookingShape}
	}

	switch d.Type {
	case domain.BookingPermanent:
		if !hasDay {
			return &ShapeError{Field: "dayOfWeek", Message: "permanent bookings require dayOfWeek", Err: ErrInvalidBookingShape}
		}
		if !d.DayOfWeek.Valid() {
			return &ShapeError{Field: "dayOfWeek", Message: "dayOfWeek must be between 1 and 7", Err: ErrInvalidBookingShape}
		}
	case domain.BookingEvent:
		if !hasDate {
			return &ShapeError{Field: "date", Message: "event bookings require date", Err: ErrInvalidBookingShape}
		}
		if _, err := domain.ParseDate(d.Date); err != nil {
			return &ShapeError{Field: "date", Message: "date must be YYYY-MM-DD", Err: ErrInvalidBookingShape}
		}
	default:
		return &ShapeError{Field: "type", Message: "type must be permanent or event", Err: ErrInvalidBookingShape}
	}

	start, err := interval.ToMinutes(d.StartTime)
	if err != nil {
		return &ShapeError{Field: "startTime", Message: "startTime must be HH:MM", Err: err}
	}
	end, err := interval.ToMinutes(d.EndTime)
	if err != nil {
		return &ShapeError{Field: "endTime", Message: "endTime must be HH:MM", Err: err}
	}
	if start >= end {
		return &ShapeError{Field: "endTime", Message: "startTime must be before endTime", Err: ErrInvalidBookingShape}
	}
	return nil
}

// FindConflicts evaluates draft against the room's bookings and periods.
//
// Unavailability conflicts are listed before booking conflicts, each in input
// order. Every conflict is reported. Existing records with malformed times or
// that are inactive are ignored, as is the booking whose ID equals
// excludeBookingID. Callers pass records for the draft's room only.
func FindConflicts(draft domain.BookingDraft, bookings []domain.Booking, periods []domain.UnavailabilityPeriod, excludeBookingID string) ([]Conflict, error) {
	if err := ValidateDraft(draft); err != nil {
		return nil, err
	}
	proposed, _ := interval.ParseRange(draft.StartTime, draft.EndTime)

	var conflicts []Conflict
	conflicts = append(conflicts, unavailabilityConflicts(draft, proposed, periods)...)
	conflicts = append(conflicts, bookingConflicts(draft, proposed, bookings, excludeBookingID)...)
	return conflicts, nil
}

// First returns the conflict to surface to a user, which is the first
// unavailability conflict, else the first booking conflict.
func First(conflicts []Conflict) (Conflict, bool) {
	if len(conflicts) == 0 {
		return Conflict{}, false
	}
	return conflicts[0], true
}

func unavailabilityConflicts(draft domain.BookingDraft, proposed interval.Range, periods []domain.UnavailabilityPeriod) []Conflict {
	var out []Conflict
	switch draft.Type {
	case domain.BookingEvent:
		dow, _ := domain.WeekdayOfDate(draft.Date)
		for i := range periods {
			p := periods[i]
			var matches bool
			switch p.Type {
			case domain.UnavailabilityDate:
				matches = p.Date == draft.Date
			case domain.UnavailabilityRecurring:
				matches = p.DayOfWeek == dow
			}
			if !matches || !overlapsRecord(p.StartTime, p.EndTime, proposed) {
				continue
			}
			reason := p.CustomMessage
			if strings.TrimSpace(reason) == "" {
				reason = fmt.Sprintf("Room is unavailable (%s) at this time.", reasonOrBlocked(p.Reason))
			}
			out = append(out, Conflict{Kind: ConflictUnavailable, Reason: reason, Period: &p})
		}
	case domain.BookingPermanent:
		for i := range periods {
			p := periods[i]
			// A single dated closure does not block a standing weekly booking.
			if p.Type != domain.UnavailabilityRecurring {
				continue
			}
			if p.DayOfWeek != draft.DayOfWeek || !overlapsRecord(p.StartTime, p.EndTime, proposed) {
				continue
			}
			reason := p.CustomMessage
			if strings.TrimSpace(reason) == "" {
				reason = fmt.Sprintf("Room is unavailable every %s (%s).", draft.DayOfWeek, reasonOrBlocked(p.Reason))
			}
			out = append(out, Conflict{Kind: ConflictUnavailable, Reason: reason, Period: &p})
		}
	}
	return out
}

func bookingConflicts(draft domain.BookingDraft, proposed interval.Range, bookings []domain.Booking, excludeBookingID string) []Conflict {
	var out []Conflict
	for i := range bookings {
		existing := bookings[i]
		if excludeBookingID != "" && existing.ID == excludeBookingID {
			continue
		}
		if !existing.IsActive || !overlapsRecord(existing.StartTime, existing.EndTime, proposed) {
			continue
		}

		var reason string
		switch {
		case draft.Type == domain.BookingEvent && existing.Type == domain.BookingEvent:
			if existing.Date != draft.Date {
				continue
			}
			reason = fmt.Sprintf("Overlaps with another event booking (%s-%s).", existing.StartTime, existing.EndTime)

		case draft.Type == domain.BookingPermanent && existing.Type == domain.BookingPermanent:
			if existing.DayOfWeek != draft.DayOfWeek {
				continue
			}
			reason = fmt.Sprintf("Overlaps with an existing permanent booking (%s %s-%s).", existing.DayOfWeek, existing.StartTime, existing.EndTime)

		case draft.Type == domain.BookingEvent && existing.Type == domain.BookingPermanent:
			dow, _ := domain.WeekdayOfDate(draft.Date)
			if existing.DayOfWeek != dow || existing.IsTemporarilyFree(draft.Date) {
				continue
			}
			reason = fmt.Sprintf("Overlaps with a permanent class (%s %s-%s).", existing.DayOfWeek, existing.StartTime, existing.EndTime)

		case draft.Type == domain.BookingPermanent && existing.Type == domain.BookingEvent:
			// Free dates are not consulted here: a new weekly booking has none yet.
			dow, err := domain.WeekdayOfDate(existing.Date)
			if err != nil || dow != draft.DayOfWeek {
				continue
			}
			reason = fmt.Sprintf("Conflicts with an event on %s (%s-%s).", existing.Date, existing.StartTime, existing.EndTime)

		default:
			continue
		}

		out = append(out, Conflict{Kind: ConflictBooking, Reason: reason, Booking: &existing})
	}
	return out
}

func overlapsRecord(start, end string, proposed interval.Range) bool {
	r, err := interval.ParseRange(start, end)
	if err != nil || !r.Ordered() {
		return false
	}
	return r.Overlaps(proposed)
}

func reasonOrBlocked(r domain.UnavailabilityReason) string {
	if r == "" {
		return "blocked"
	}
	return string(r)
}
