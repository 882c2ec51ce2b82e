package testfixtures

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/example/lecture-room-booking/internal/application"
	"github.com/example/lecture-room-booking/internal/availability"
	"github.com/example/lecture-room-booking/internal/domain"
	"github.com/example/lecture-room-booking/internal/persistence"
	"github.com/example/lecture-room-booking/internal/scheduler"
)

func TestServiceFactoryAgainstSQLite(t *testing.T) {
	ctx := context.Background()
	factory := NewServiceFactory(WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	harness := NewSQLiteHarness(t)
	repos := harness.Repositories()

	catalog := factory.NewCatalogService(repos)
	bookings := factory.NewBookingService(repos, nil)
	schedules := factory.NewAvailabilityService(repos, application.AvailabilityOptions{})

	hall, err := catalog.CreateHall(ctx, NewHallFixture(WithHallName("Science Block")).Input())
	if err != nil {
		t.Fatalf("CreateHall returned error: %v", err)
	}
	if hall.ID != "id-1" {
		t.Fatalf("expected generated ID id-1, got %q", hall.ID)
	}
	if !hall.CreatedAt.Equal(factory.Clock.Current()) {
		t.Fatalf("expected timestamp %v, got %v", factory.Clock.Current(), hall.CreatedAt)
	}

	busy, err := catalog.CreateRoom(ctx, NewRoomFixture(WithRoomHall(hall.ID), WithRoomNumber("R101")).Input())
	if err != nil {
		t.Fatalf("CreateRoom returned error: %v", err)
	}
	free, err := catalog.CreateRoom(ctx, NewRoomFixture(WithRoomHall(hall.ID), WithRoomNumber("R102")).Input())
	if err != nil {
		t.Fatalf("CreateRoom returned error: %v", err)
	}

	class, err := bookings.CreateBooking(ctx, NewBookingFixture(
		WithBookingRoom(busy.ID, hall.ID),
		WithBookingDay(1),
		WithBookingTimes("09:00", "10:00"),
	).Input())
	if err != nil {
		t.Fatalf("CreateBooking returned error: %v", err)
	}
	if class.HallName != "Science Block" || class.RoomName != "R101" {
		t.Fatalf("expected display names to be copied, got %q / %q", class.HallName, class.RoomName)
	}

	event := NewBookingFixture(
		WithBookingRoom(busy.ID, hall.ID),
		WithBookingEventDate("2024-03-11"),
		WithBookingTimes("09:30", "10:30"),
	)
	_, err = bookings.CreateBooking(ctx, event.Input())
	var cErr *application.ConflictError
	if !errors.As(err, &cErr) {
		t.Fatalf("expected conflict error, got %v", err)
	}
	if len(cErr.Conflicts) != 1 || cErr.Conflicts[0].Kind != scheduler.ConflictBooking {
		t.Fatalf("unexpected conflicts %+v", cErr.Conflicts)
	}

	if _, err := bookings.MarkTemporarilyFree(ctx, class.ID, []string{"2024-03-11"}); err != nil {
		t.Fatalf("MarkTemporarilyFree returned error: %v", err)
	}
	if _, err := bookings.CreateBooking(ctx, event.Input()); err != nil {
		t.Fatalf("expected event to fit the freed slot, got %v", err)
	}

	grid, err := schedules.DaySchedule(ctx, hall.ID, "2024-03-11")
	if err != nil {
		t.Fatalf("DaySchedule returned error: %v", err)
	}
	kinds := map[availability.Kind]bool{}
	for _, rd := range grid.Rooms {
		if rd.Room.ID != busy.ID {
			continue
		}
		for _, b := range rd.Blocks {
			kinds[b.Kind] = true
		}
	}
	if !kinds[availability.KindTempFree] || !kinds[availability.KindEvent] || kinds[availability.KindPermanent] {
		t.Fatalf("unexpected block kinds %v", kinds)
	}

	result, err := schedules.FreeRoomsAt(ctx, factory.Clock.Now(), 0)
	if err != nil {
		t.Fatalf("FreeRoomsAt returned error: %v", err)
	}
	if len(result.Rooms) != 1 || result.Rooms[0].ID != free.ID {
		t.Fatalf("expected only %s to be free, got %+v", free.ID, result.Rooms)
	}
}

// slowBookings delays reads so that concurrent requests overlap between the
// conflict check and the write.
type slowBookings struct {
	persistence.BookingRepository
	delay time.Duration
}

func (s slowBookings) ListBookings(ctx context.Context, filter persistence.BookingFilter) ([]domain.Booking, error) {
	out, err := s.BookingRepository.ListBookings(ctx, filter)
	time.Sleep(s.delay)
	return out, err
}

func (s slowBookings) GetBooking(ctx context.Context, id string) (domain.Booking, error) {
	out, err := s.BookingRepository.GetBooking(ctx, id)
	time.Sleep(s.delay)
	return out, err
}

func TestBookingServiceSerializesWritesPerRoom(t *testing.T) {
	ctx := context.Background()
	factory := NewServiceFactory(WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	harness := NewSQLiteHarness(t)
	repos := harness.Repositories()
	repos.Bookings = slowBookings{BookingRepository: harness.Bookings, delay: 20 * time.Millisecond}

	catalog := factory.NewCatalogService(repos)
	bookings := factory.NewBookingService(repos, nil)

	hall, err := catalog.CreateHall(ctx, NewHallFixture().Input())
	if err != nil {
		t.Fatalf("CreateHall returned error: %v", err)
	}
	room, err := catalog.CreateRoom(ctx, NewRoomFixture(WithRoomHall(hall.ID), WithRoomNumber("R101")).Input())
	if err != nil {
		t.Fatalf("CreateRoom returned error: %v", err)
	}

	t.Run("concurrent creates for one slot", func(t *testing.T) {
		const workers = 4
		input := NewBookingFixture(
			WithBookingRoom(room.ID, hall.ID),
			WithBookingDay(1),
			WithBookingTimes("09:00", "11:00"),
		).Input()

		errs := make([]error, workers)
		var wg sync.WaitGroup
		for i := range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, errs[i] = bookings.CreateBooking(ctx, input)
			}()
		}
		wg.Wait()

		created, conflicts := 0, 0
		for _, err := range errs {
			var cErr *application.ConflictError
			switch {
			case err == nil:
				created++
			case errors.As(err, &cErr):
				conflicts++
			default:
				t.Fatalf("unexpected error %v", err)
			}
		}
		if created != 1 || conflicts != workers-1 {
			t.Fatalf("expected 1 success and %d conflicts, got %d and %d", workers-1, created, conflicts)
		}
		stored, err := harness.Bookings.ListBookings(ctx, persistence.BookingFilter{RoomID: room.ID})
		if err != nil {
			t.Fatalf("ListBookings returned error: %v", err)
		}
		if len(stored) != 1 {
			t.Fatalf("expected one stored booking, got %d", len(stored))
		}
	})

	t.Run("concurrent free date changes are all kept", func(t *testing.T) {
		class, err := bookings.CreateBooking(ctx, NewBookingFixture(
			WithBookingRoom(room.ID, hall.ID),
			WithBookingDay(1),
			WithBookingTimes("14:00", "15:00"),
		).Input())
		if err != nil {
			t.Fatalf("CreateBooking returned error: %v", err)
		}

		dates := []string{"2024-03-11", "2024-03-18", "2024-03-25", "2024-04-01"}
		errs := make([]error, len(dates))
		var wg sync.WaitGroup
		for i, date := range dates {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, errs[i] = bookings.MarkTemporarilyFree(ctx, class.ID, []string{date})
			}()
		}
		wg.Wait()
		for _, err := range errs {
			if err != nil {
				t.Fatalf("MarkTemporarilyFree returned error: %v", err)
			}
		}

		got, err := harness.Bookings.GetBooking(ctx, class.ID)
		if err != nil {
			t.Fatalf("GetBooking returned error: %v", err)
		}
		for _, date := range dates {
			if !got.IsTemporarilyFree(date) {
				t.Fatalf("expected %s to be kept, got %v", date, got.TemporaryFreeDates)
			}
		}
	})
}

func TestFixtureOptions(t *testing.T) {
	b := NewBookingFixture(WithBookingDay(3), WithBookingFreeDates("2024-03-13"))
	if b.Domain().DayOfWeek != 3 || !b.Domain().IsTemporarilyFree("2024-03-13") {
		t.Fatalf("unexpected booking fixture %+v", b)
	}

	e := NewBookingFixture(WithBookingEventDate("2024-03-12"))
	if e.Draft().Date != "2024-03-12" || e.Draft().DayOfWeek != 0 || e.Input().Title == "" {
		t.Fatalf("unexpected event fixture %+v", e)
	}

	p := NewPeriodFixture(WithPeriodRecurring(2), WithPeriodReason("", "Exams"))
	if p.Domain().Date != "" || p.Domain().Label() != "Exams" {
		t.Fatalf("unexpected period fixture %+v", p)
	}
}
