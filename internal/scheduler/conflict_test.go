package scheduler

import (
	"errors"
	"testing"

	"github.com/example/lecture-room-booking/internal/domain"
	"github.com/example/lecture-room-booking/internal/interval"
)

func permanent(id string, day domain.Weekday, start, end string) domain.Booking {
	return domain.Booking{ID: id, Type: domain.BookingPermanent, RoomID: "room-1", DayOfWeek: day, StartTime: start, EndTime: end, IsActive: true}
}

func event(id, date, start, end string) domain.Booking {
	return domain.Booking{ID: id, Type: domain.BookingEvent, RoomID: "room-1", Date: date, StartTime: start, EndTime: end, IsActive: true}
}

func permanentDraft(day domain.Weekday, start, end string) domain.BookingDraft {
	return domain.BookingDraft{Type: domain.BookingPermanent, RoomID: "room-1", DayOfWeek: day, StartTime: start, EndTime: end}
}

func eventDraft(date, start, end string) domain.BookingDraft {
	return domain.BookingDraft{Type: domain.BookingEvent, RoomID: "room-1", Date: date, StartTime: start, EndTime: end}
}

func TestFindConflicts_Bookings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		draft    domain.BookingDraft
		existing []domain.Booking
		exclude  string
		want     []string
	}{
		{
			name:     "permanent overlaps permanent on same day",
			draft:    permanentDraft(domain.Monday, "09:00", "11:00"),
			existing: []domain.Booking{permanent("p1", domain.Monday, "10:00", "12:00")},
			want:     []string{"Overlaps with an existing permanent booking (Monday 10:00-12:00)."},
		},
		{
			name:     "permanent touching permanent is fine",
			draft:    permanentDraft(domain.Monday, "08:00", "10:00"),
			existing: []domain.Booking{permanent("p1", domain.Monday, "10:00", "12:00")},
		},
		{
			name:     "permanent on another day is fine",
			draft:    permanentDraft(domain.Tuesday, "10:00", "12:00"),
			existing: []domain.Booking{permanent("p1", domain.Monday, "10:00", "12:00")},
		},
		{
			name:     "event overlaps event on same date",
			draft:    eventDraft("2024-05-15", "13:00", "15:00"),
			existing: []domain.Booking{event("e1", "2024-05-15", "14:00", "16:00"), event("e2", "2024-05-16", "14:00", "16:00")},
			want:     []string{"Overlaps with another event booking (14:00-16:00)."},
		},
		{
			name:     "event overlaps weekly class",
			draft:    eventDraft("2024-05-15", "09:30", "10:30"),
			existing: []domain.Booking{permanent("p1", domain.Wednesday, "09:00", "11:00")},
			want:     []string{"Overlaps with a permanent class (Wednesday 09:00-11:00)."},
		},
		{
			name:  "event on temporarily free date passes",
			draft: eventDraft("2024-05-15", "09:30", "10:30"),
			existing: []domain.Booking{func() domain.Booking {
				b := permanent("p1", domain.Wednesday, "09:00", "11:00")
				b.TemporaryFreeDates = []string{"2024-05-15"}
				return b
			}()},
		},
		{
			name:     "permanent blocked by an existing event on that weekday",
			draft:    permanentDraft(domain.Wednesday, "09:00", "11:00"),
			existing: []domain.Booking{event("e1", "2024-05-15", "10:00", "12:00")},
			want:     []string{"Conflicts with an event on 2024-05-15 (10:00-12:00)."},
		},
		{
			name:     "excluded booking is ignored",
			draft:    permanentDraft(domain.Monday, "09:00", "11:00"),
			existing: []domain.Booking{permanent("p1", domain.Monday, "09:00", "11:00")},
			exclude:  "p1",
		},
		{
			name:  "inactive and malformed bookings are ignored",
			draft: permanentDraft(domain.Monday, "09:00", "11:00"),
			existing: []domain.Booking{
				func() domain.Booking {
					b := permanent("p1", domain.Monday, "09:00", "11:00")
					b.IsActive = false
					return b
				}(),
				permanent("p2", domain.Monday, "9am", "11:00"),
			},
		},
		{
			name:  "every conflict is reported in input order",
			draft: eventDraft("2024-05-15", "09:00", "12:00"),
			existing: []domain.Booking{
				event("e1", "2024-05-15", "11:00", "13:00"),
				permanent("p1", domain.Wednesday, "08:00", "10:00"),
			},
			want: []string{
				"Overlaps with another event booking (11:00-13:00).",
				"Overlaps with a permanent class (Wednesday 08:00-10:00).",
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := FindConflicts(tt.draft, tt.existing, nil, tt.exclude)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d conflicts, got %d: %+v", len(tt.want), len(got), got)
			}
			for i, c := range got {
				if c.Kind != ConflictBooking {
					t.Fatalf("conflict %d: expected booking kind, got %q", i, c.Kind)
				}
				if c.Reason != tt.want[i] {
					t.Fatalf("conflict %d: reason %q, want %q", i, c.Reason, tt.want[i])
				}
				if c.Booking == nil {
					t.Fatalf("conflict %d: missing booking reference", i)
				}
			}
		})
	}
}

func TestFindConflicts_EventPermanentAsymmetry(t *testing.T) {
	t.Parallel()

	// The weekly class is free on the event's date, so the event may be booked.
	weekly := permanent("p1", domain.Wednesday, "09:00", "11:00")
	weekly.TemporaryFreeDates = []string{"2024-05-15"}
	got, err := FindConflicts(eventDraft("2024-05-15", "09:00", "11:00"), []domain.Booking{weekly}, nil, "")
	if err != nil || len(got) != 0 {
		t.Fatalf("event should pass on a free date, got %+v err=%v", got, err)
	}

	// The reverse direction never consults free dates.
	got, err = FindConflicts(permanentDraft(domain.Wednesday, "09:00", "11:00"), []domain.Booking{event("e1", "2024-05-15", "09:00", "11:00")}, nil, "")
	if err != nil || len(got) != 1 {
		t.Fatalf("permanent should be blocked by the event, got %+v err=%v", got, err)
	}
}

func TestFindConflicts_Unavailability(t *testing.T) {
	t.Parallel()

	dated := domain.UnavailabilityPeriod{ID: "u1", Type: domain.UnavailabilityDate, Date: "2024-05-15", StartTime: "08:00", EndTime: "12:00", Reason: domain.ReasonMaintenance}
	weekly := domain.UnavailabilityPeriod{ID: "u2", Type: domain.UnavailabilityRecurring, DayOfWeek: domain.Wednesday, StartTime: "08:00", EndTime: "12:00", Reason: domain.ReasonCleaning}

	t.Run("dated closure does not block a weekly booking", func(t *testing.T) {
		t.Parallel()
		got, err := FindConflicts(permanentDraft(domain.Wednesday, "09:00", "10:00"), nil, []domain.UnavailabilityPeriod{dated}, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 0 {
			t.Fatalf("expected no conflicts, got %+v", got)
		}
	})

	t.Run("recurring closure blocks a weekly booking", func(t *testing.T) {
		t.Parallel()
		got, err := FindConflicts(permanentDraft(domain.Wednesday, "09:00", "10:00"), nil, []domain.UnavailabilityPeriod{weekly}, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 1 || got[0].Kind != ConflictUnavailable {
			t.Fatalf("expected one unavailable conflict, got %+v", got)
		}
		if got[0].Reason != "Room is unavailable every Wednesday (cleaning)." {
			t.Fatalf("unexpected reason %q", got[0].Reason)
		}
		if got[0].Period == nil || got[0].Period.ID != "u2" {
			t.Fatalf("conflict must reference the period")
		}
	})

	t.Run("event checks both dated and recurring closures", func(t *testing.T) {
		t.Parallel()
		got, err := FindConflicts(eventDraft("2024-05-15", "09:00", "10:00"), nil, []domain.UnavailabilityPeriod{dated, weekly}, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected two conflicts, got %+v", got)
		}
		if got[0].Reason != "Room is unavailable (maintenance) at this time." {
			t.Fatalf("unexpected reason %q", got[0].Reason)
		}
	})

	t.Run("custom message wins", func(t *testing.T) {
		t.Parallel()
		p := weekly
		p.CustomMessage = "Reserved for exams"
		got, _ := FindConflicts(eventDraft("2024-05-22", "09:00", "10:00"), nil, []domain.UnavailabilityPeriod{p}, "")
		if len(got) != 1 || got[0].Reason != "Reserved for exams" {
			t.Fatalf("expected custom message, got %+v", got)
		}
	})

	t.Run("periods of unknown type are skipped", func(t *testing.T) {
		t.Parallel()
		unknown := weekly
		unknown.ID = "u3"
		unknown.Type = domain.UnavailabilityType("monthly")
		for _, draft := range []domain.BookingDraft{
			eventDraft("2024-05-15", "09:00", "10:00"),
			permanentDraft(domain.Wednesday, "09:00", "10:00"),
		} {
			got, err := FindConflicts(draft, nil, []domain.UnavailabilityPeriod{unknown}, "")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != 0 {
				t.Fatalf("expected %s draft to ignore the unknown period, got %+v", draft.Type, got)
			}
		}
	})

	t.Run("unavailability is listed before bookings", func(t *testing.T) {
		t.Parallel()
		got, err := FindConflicts(
			eventDraft("2024-05-15", "09:00", "10:00"),
			[]domain.Booking{event("e1", "2024-05-15", "09:00", "10:00")},
			[]domain.UnavailabilityPeriod{dated},
			"",
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 2 || got[0].Kind != ConflictUnavailable || got[1].Kind != ConflictBooking {
			t.Fatalf("unexpected ordering %+v", got)
		}
		first, ok := First(got)
		if !ok || first.Kind != ConflictUnavailable {
			t.Fatalf("First should return the unavailability conflict")
		}
	})
}

func TestValidateDraft(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		draft   domain.BookingDraft
		field   string
		wantErr error
	}{
		{name: "both day and date", draft: domain.BookingDraft{Type: domain.BookingPermanent, RoomID: "r", DayOfWeek: 1, Date: "2024-05-15", StartTime: "09:00", EndTime: "10:00"}, field: "date", wantErr: ErrInvalidBookingShape},
		{name: "neither day nor date", draft: domain.BookingDraft{Type: domain.BookingEvent, RoomID: "r", StartTime: "09:00", EndTime: "10:00"}, field: "date", wantErr: ErrInvalidBookingShape},
		{name: "event with weekday", draft: domain.BookingDraft{Type: domain.BookingEvent, RoomID: "r", DayOfWeek: 3, StartTime: "09:00", EndTime: "10:00"}, field: "date", wantErr: ErrInvalidBookingShape},
		{name: "weekday out of range", draft: permanentDraft(8, "09:00", "10:00"), field: "dayOfWeek", wantErr: ErrInvalidBookingShape},
		{name: "start equals end", draft: permanentDraft(1, "10:00", "10:00"), field: "endTime", wantErr: ErrInvalidBookingShape},
		{name: "malformed start", draft: permanentDraft(1, "9:00", "10:00"), field: "startTime", wantErr: interval.ErrInvalidTimeFormat},
		{name: "missing room", draft: domain.BookingDraft{Type: domain.BookingPermanent, DayOfWeek: 1, StartTime: "09:00", EndTime: "10:00"}, field: "roomId", wantErr: ErrInvalidBookingShape},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateDraft(tt.draft)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			var shapeErr *ShapeError
			if !errors.As(err, &shapeErr) || shapeErr.Field != tt.field {
				t.Fatalf("expected field %q, got %v", tt.field, err)
			}
			if _, ferr := FindConflicts(tt.draft, nil, nil, ""); ferr == nil {
				t.Fatalf("FindConflicts must reject the draft")
			}
		})
	}
}
