package recurrence

import (
	"errors"
	"testing"
	"time"

	"github.com/example/lecture-room-booking/internal/domain"
)

func mustDay(t *testing.T, date string) Day {
	t.Helper()
	day, err := NewDay(date)
	if err != nil {
		t.Fatalf("NewDay(%q): %v", date, err)
	}
	return day
}

func TestBookingOn(t *testing.T) {
	t.Parallel()

	weekly := domain.Booking{
		ID:                 "b-1",
		Type:               domain.BookingPermanent,
		RoomID:             "room-1",
		DayOfWeek:          domain.Wednesday,
		StartTime:          "09:00",
		EndTime:            "11:00",
		IsActive:           true,
		TemporaryFreeDates: []string{"2024-05-15"},
	}

	t.Run("temporarily free date yields no occurrence", func(t *testing.T) {
		t.Parallel()
		if _, ok := BookingOn(weekly, mustDay(t, "2024-05-15")); ok {
			t.Fatalf("expected suppression on 2024-05-15")
		}
	})

	t.Run("following week still occurs", func(t *testing.T) {
		t.Parallel()
		occ, ok := BookingOn(weekly, mustDay(t, "2024-05-22"))
		if !ok {
			t.Fatalf("expected occurrence on 2024-05-22")
		}
		if occ.Start != 540 || occ.End != 660 || occ.Source != SourcePermanent {
			t.Fatalf("unexpected occurrence %+v", occ)
		}
		if occ.Booking == nil || occ.Booking.ID != "b-1" {
			t.Fatalf("occurrence must reference its booking")
		}
	})

	t.Run("suppressed occurrence is reported separately", func(t *testing.T) {
		t.Parallel()
		occ, ok := SuppressedOn(weekly, mustDay(t, "2024-05-15"))
		if !ok || !occ.Suppressed {
			t.Fatalf("expected suppressed occurrence, got %+v ok=%v", occ, ok)
		}
		if _, ok := SuppressedOn(weekly, mustDay(t, "2024-05-22")); ok {
			t.Fatalf("2024-05-22 is not suppressed")
		}
	})

	t.Run("other weekday does not match", func(t *testing.T) {
		t.Parallel()
		if _, ok := BookingOn(weekly, mustDay(t, "2024-05-16")); ok {
			t.Fatalf("Thursday must not match a Wednesday class")
		}
	})

	t.Run("events match only their date", func(t *testing.T) {
		t.Parallel()
		ev := domain.Booking{Type: domain.BookingEvent, Date: "2024-05-15", StartTime: "13:00", EndTime: "14:00", IsActive: true}
		if _, ok := BookingOn(ev, mustDay(t, "2024-05-15")); !ok {
			t.Fatalf("expected event occurrence")
		}
		if _, ok := BookingOn(ev, mustDay(t, "2024-05-22")); ok {
			t.Fatalf("event must not recur")
		}
	})

	t.Run("inactive and malformed records are skipped", func(t *testing.T) {
		t.Parallel()
		inactive := weekly
		inactive.IsActive = false
		if _, ok := BookingOn(inactive, mustDay(t, "2024-05-22")); ok {
			t.Fatalf("inactive booking must be skipped")
		}
		broken := weekly
		broken.EndTime = "25:00"
		if _, ok := BookingOn(broken, mustDay(t, "2024-05-22")); ok {
			t.Fatalf("malformed booking must be skipped")
		}
		reversed := weekly
		reversed.StartTime, reversed.EndTime = "11:00", "09:00"
		if _, ok := BookingOn(reversed, mustDay(t, "2024-05-22")); ok {
			t.Fatalf("reversed booking must be skipped")
		}
	})
}

func TestPeriodOn(t *testing.T) {
	t.Parallel()

	dated := domain.UnavailabilityPeriod{Type: domain.UnavailabilityDate, Date: "2024-05-15", StartTime: "08:00", EndTime: "12:00"}
	weekly := domain.UnavailabilityPeriod{Type: domain.UnavailabilityRecurring, DayOfWeek: domain.Wednesday, StartTime: "08:00", EndTime: "12:00"}

	if _, ok := PeriodOn(dated, mustDay(t, "2024-05-15")); !ok {
		t.Fatalf("dated period should match its date")
	}
	if _, ok := PeriodOn(dated, mustDay(t, "2024-05-22")); ok {
		t.Fatalf("dated period must not recur")
	}
	if occ, ok := PeriodOn(weekly, mustDay(t, "2024-05-22")); !ok || occ.Source != SourceUnavailable {
		t.Fatalf("recurring period should match every Wednesday")
	}
}

func TestForRoom_CSC101(t *testing.T) {
	t.Parallel()

	csc101 := domain.Booking{
		ID: "csc101", Type: domain.BookingPermanent, RoomID: "R101", CourseCode: "CSC101",
		DayOfWeek: domain.Monday, StartTime: "08:00", EndTime: "10:00", IsActive: true,
	}
	other := domain.Booking{ID: "x", Type: domain.BookingPermanent, RoomID: "R102", DayOfWeek: domain.Monday, StartTime: "08:00", EndTime: "10:00", IsActive: true}

	occs := ForRoom("R101", mustDay(t, "2024-05-27"), []domain.Booking{csc101, other}, nil)
	if len(occs) != 1 || occs[0].StartTime != "08:00" || occs[0].EndTime != "10:00" {
		t.Fatalf("expected one 08:00-10:00 occurrence, got %+v", occs)
	}

	csc101.TemporaryFreeDates = []string{"2024-06-03"}
	if occs := ForRoom("R101", mustDay(t, "2024-06-03"), []domain.Booking{csc101}, nil); len(occs) != 0 {
		t.Fatalf("expected no occurrences on the free date, got %+v", occs)
	}
}

func TestWeekOf(t *testing.T) {
	t.Parallel()

	days := WeekOf(mustDay(t, "2024-06-09"))
	if len(days) != 7 {
		t.Fatalf("expected 7 days, got %d", len(days))
	}
	if days[0].Date != "2024-06-03" || days[0].Weekday != domain.Monday {
		t.Fatalf("week must start on Monday 2024-06-03, got %+v", days[0])
	}
	if days[6].Date != "2024-06-09" || days[6].Weekday != domain.Sunday {
		t.Fatalf("week must end on Sunday 2024-06-09, got %+v", days[6])
	}
}

func TestResolver_DayOf(t *testing.T) {
	t.Parallel()

	tokyo := time.FixedZone("JST", 9*60*60)
	r := NewResolver(tokyo)
	instant := time.Date(2024, time.June, 2, 23, 30, 0, 0, time.UTC)

	day := r.DayOf(instant)
	if day.Date != "2024-06-03" || day.Weekday != domain.Monday {
		t.Fatalf("expected campus Monday 2024-06-03, got %+v", day)
	}
	if got := r.MinuteOf(instant); got != 8*60+30 {
		t.Fatalf("expected 08:30 campus time, got %d", got)
	}

	if _, err := NewDay("2024-13-01"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}
