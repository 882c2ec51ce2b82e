package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/lecture-room-booking/internal/application"
	"github.com/example/lecture-room-booking/internal/availability"
	"github.com/example/lecture-room-booking/internal/domain"
	"github.com/example/lecture-room-booking/internal/scheduler"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubHallService struct {
	halls     []domain.LectureHall
	createErr error
	deleteErr error
}

func (s *stubHallService) CreateHall(_ context.Context, input application.HallInput) (domain.LectureHall, error) {
	if s.createErr != nil {
		return domain.LectureHall{}, s.createErr
	}
	return domain.LectureHall{ID: "hall-new", Name: input.Name, Location: input.Location}, nil
}

func (s *stubHallService) UpdateHall(_ context.Context, hallID string, input application.HallInput) (domain.LectureHall, error) {
	return domain.LectureHall{ID: hallID, Name: input.Name}, nil
}

func (s *stubHallService) GetHall(_ context.Context, hallID string) (domain.LectureHall, error) {
	for _, h := range s.halls {
		if h.ID == hallID {
			return h, nil
		}
	}
	return domain.LectureHall{}, application.ErrNotFound
}

func (s *stubHallService) ListHalls(context.Context) ([]domain.LectureHall, error) {
	return s.halls, nil
}

func (s *stubHallService) DeleteHall(context.Context, string) error {
	return s.deleteErr
}

type stubBookingService struct {
	createErr   error
	conflicts   []scheduler.Conflict
	lastInput   application.BookingInput
	lastQuery   application.BookingQuery
	lastExclude string
	lastDates   []string
	booking     domain.Booking
}

func (s *stubBookingService) CreateBooking(_ context.Context, input application.BookingInput) (domain.Booking, error) {
	s.lastInput = input
	if s.createErr != nil {
		return domain.Booking{}, s.createErr
	}
	return domain.Booking{ID: "booking-1", Type: input.Type, RoomID: input.RoomID, DayOfWeek: input.DayOfWeek, StartTime: input.StartTime, EndTime: input.EndTime, IsActive: true}, nil
}

func (s *stubBookingService) UpdateBooking(_ context.Context, id string, input application.BookingInput) (domain.Booking, error) {
	s.lastInput = input
	return domain.Booking{ID: id, Type: input.Type, IsActive: true}, nil
}

func (s *stubBookingService) GetBooking(_ context.Context, id string) (domain.Booking, error) {
	if s.booking.ID != id {
		return domain.Booking{}, application.ErrNotFound
	}
	return s.booking, nil
}

func (s *stubBookingService) ListBookings(_ context.Context, query application.BookingQuery) ([]domain.Booking, error) {
	s.lastQuery = query
	return []domain.Booking{s.booking}, nil
}

func (s *stubBookingService) DeleteBooking(context.Context, string) error {
	return nil
}

func (s *stubBookingService) MarkTemporarilyFree(_ context.Context, id string, dates []string) (domain.Booking, error) {
	s.lastDates = dates
	b := s.booking
	b.TemporaryFreeDates = append(append([]string(nil), b.TemporaryFreeDates...), dates...)
	return b, nil
}

func (s *stubBookingService) RemoveTemporarilyFree(_ context.Context, id string, dates []string) (domain.Booking, error) {
	s.lastDates = dates
	return s.booking, nil
}

func (s *stubBookingService) CheckConflicts(_ context.Context, _ domain.BookingDraft, exclude string) ([]scheduler.Conflict, error) {
	s.lastExclude = exclude
	return s.conflicts, nil
}

type stubScheduleService struct {
	day       availability.DayGrid
	lastAt    time.Time
	lastLimit int
	lastQuery application.AlternativesQuery
}

func (s *stubScheduleService) DaySchedule(_ context.Context, hallID, date string) (availability.DayGrid, error) {
	if hallID != s.day.HallID {
		return availability.DayGrid{}, application.ErrNotFound
	}
	return s.day, nil
}

func (s *stubScheduleService) WeekSchedule(_ context.Context, hallID, _ string) (availability.WeekGrid, error) {
	return availability.WeekGrid{HallID: hallID, WeekStart: "2024-03-11", Window: availability.DefaultWindow(), Days: []availability.DayGrid{s.day}}, nil
}

func (s *stubScheduleService) FreeRoomsAt(_ context.Context, at time.Time, limit int) (application.FreeRooms, error) {
	s.lastAt, s.lastLimit = at, limit
	return application.FreeRooms{Minute: 9*60 + 30, Rooms: []domain.Room{{ID: "room-101", Number: "R101"}}, Total: 3}, nil
}

func (s *stubScheduleService) AlternativeRooms(_ context.Context, query application.AlternativesQuery) ([]domain.Room, error) {
	s.lastQuery = query
	return []domain.Room{{ID: "room-102", Number: "R102"}}, nil
}

func newTestRouter(halls hallService, bookings bookingService, schedules scheduleService) http.Handler {
	logger := discardLogger()
	cfg := RouterConfig{Logger: logger}
	if halls != nil {
		cfg.Halls = NewHallHandler(halls, logger)
	}
	if bookings != nil {
		cfg.Bookings = NewBookingHandler(bookings, logger)
	}
	if schedules != nil {
		cfg.Schedules = NewScheduleHandler(schedules, logger)
	}
	return NewRouter(cfg)
}

func doRequest(t *testing.T, h http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestHallHandlers(t *testing.T) {
	t.Parallel()

	t.Run("get resolves the path parameter", func(t *testing.T) {
		t.Parallel()
		h := newTestRouter(&stubHallService{halls: []domain.LectureHall{{ID: "hall-a", Name: "Science Block"}}}, nil, nil)

		rec := doRequest(t, h, http.MethodGet, "/halls/hall-a", nil, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
		}
		var resp hallResponse
		decodeBody(t, rec, &resp)
		if resp.Hall.Name != "Science Block" {
			t.Fatalf("hall name = %q", resp.Hall.Name)
		}
	})

	t.Run("missing hall maps to 404", func(t *testing.T) {
		t.Parallel()
		h := newTestRouter(&stubHallService{}, nil, nil)

		rec := doRequest(t, h, http.MethodGet, "/halls/nope", nil, nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
		var resp errorResponse
		decodeBody(t, rec, &resp)
		if resp.ErrorCode != "NOT_FOUND" {
			t.Fatalf("error_code = %q", resp.ErrorCode)
		}
	})

	t.Run("malformed body maps to 400", func(t *testing.T) {
		t.Parallel()
		h := newTestRouter(&stubHallService{}, nil, nil)

		rec := doRequest(t, h, http.MethodPost, "/halls", "{not json", nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("missing name maps to 422 with field errors", func(t *testing.T) {
		t.Parallel()
		h := newTestRouter(&stubHallService{}, nil, nil)

		rec := doRequest(t, h, http.MethodPost, "/halls", map[string]string{"location": "North"}, nil)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status = %d, want 422", rec.Code)
		}
		var resp errorResponse
		decodeBody(t, rec, &resp)
		if resp.Errors["name"] == "" {
			t.Fatalf("expected name field error, got %v", resp.Errors)
		}
	})

	t.Run("delete blocked by rooms maps to 409", func(t *testing.T) {
		t.Parallel()
		h := newTestRouter(&stubHallService{deleteErr: application.ErrInUse}, nil, nil)

		rec := doRequest(t, h, http.MethodDelete, "/halls/hall-a", nil, nil)
		if rec.Code != http.StatusConflict {
			t.Fatalf("status = %d, want 409", rec.Code)
		}
		var resp errorResponse
		decodeBody(t, rec, &resp)
		if resp.ErrorCode != "RESOURCE_IN_USE" {
			t.Fatalf("error_code = %q", resp.ErrorCode)
		}
	})

	t.Run("unknown route and method answer JSON errors", func(t *testing.T) {
		t.Parallel()
		h := newTestRouter(&stubHallService{}, nil, nil)

		if rec := doRequest(t, h, http.MethodGet, "/nowhere", nil, nil); rec.Code != http.StatusNotFound {
			t.Fatalf("unknown route status = %d", rec.Code)
		}
		rec := doRequest(t, h, http.MethodPatch, "/halls", nil, nil)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("method status = %d", rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
			t.Fatalf("content type = %q", ct)
		}
	})
}

func TestBookingHandlers(t *testing.T) {
	t.Parallel()

	validBooking := map[string]any{
		"type":        "permanent",
		"roomId":      "room-101",
		"dayOfWeek":   2,
		"startTime":   "09:00",
		"endTime":     "10:00",
		"courseName":  "Algorithms",
		"indexPrefix": "CS/ALG/01",
	}

	t.Run("create returns 201 with the stored booking", func(t *testing.T) {
		t.Parallel()
		svc := &stubBookingService{}
		h := newTestRouter(nil, svc, nil)

		rec := doRequest(t, h, http.MethodPost, "/bookings", validBooking, nil)
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
		}
		if svc.lastInput.DayOfWeek != domain.Tuesday || svc.lastInput.Type != domain.BookingPermanent {
			t.Fatalf("unexpected input %+v", svc.lastInput)
		}
		var resp bookingResponse
		decodeBody(t, rec, &resp)
		if resp.Booking.ID != "booking-1" || resp.Booking.TemporaryFreeDates == nil {
			t.Fatalf("unexpected booking %+v", resp.Booking)
		}
	})

	t.Run("conflict maps to 409 with every reason", func(t *testing.T) {
		t.Parallel()
		svc := &stubBookingService{createErr: &application.ConflictError{Conflicts: []scheduler.Conflict{
			{Kind: scheduler.ConflictUnavailable, Reason: "Room unavailable: Maintenance (09:00-12:00).", Period: &domain.UnavailabilityPeriod{ID: "period-1"}},
			{Kind: scheduler.ConflictBooking, Reason: "Overlaps with a permanent class (Tuesday 09:00-10:00).", Booking: &domain.Booking{ID: "booking-9"}},
		}}}
		h := newTestRouter(nil, svc, nil)

		rec := doRequest(t, h, http.MethodPost, "/bookings", validBooking, nil)
		if rec.Code != http.StatusConflict {
			t.Fatalf("status = %d, want 409", rec.Code)
		}
		var resp errorResponse
		decodeBody(t, rec, &resp)
		if resp.ErrorCode != "BOOKING_CONFLICT" {
			t.Fatalf("error_code = %q", resp.ErrorCode)
		}
		if resp.Message != "Room unavailable: Maintenance (09:00-12:00)." {
			t.Fatalf("message = %q", resp.Message)
		}
		if len(resp.Conflicts) != 2 || resp.Conflicts[0].PeriodID != "period-1" || resp.Conflicts[1].BookingID != "booking-9" {
			t.Fatalf("unexpected conflicts %+v", resp.Conflicts)
		}
	})

	t.Run("malformed clock values are rejected before the service", func(t *testing.T) {
		t.Parallel()
		svc := &stubBookingService{}
		h := newTestRouter(nil, svc, nil)

		body := map[string]any{"type": "event", "roomId": "room-101", "date": "2024-3-1", "startTime": "9:00", "endTime": "10:00"}
		rec := doRequest(t, h, http.MethodPost, "/bookings", body, nil)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status = %d, want 422", rec.Code)
		}
		var resp errorResponse
		decodeBody(t, rec, &resp)
		if resp.Errors["startTime"] == "" || resp.Errors["date"] == "" {
			t.Fatalf("expected startTime and date errors, got %v", resp.Errors)
		}
		if svc.lastInput.RoomID != "" {
			t.Fatal("service should not be called")
		}
	})

	t.Run("list forwards query filters", func(t *testing.T) {
		t.Parallel()
		svc := &stubBookingService{booking: domain.Booking{ID: "booking-1"}}
		h := newTestRouter(nil, svc, nil)

		rec := doRequest(t, h, http.MethodGet, "/bookings?roomId=room-101&indexPrefix=CS/ALG/01&date=2024-03-12", nil, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		want := application.BookingQuery{RoomID: "room-101", IndexPrefix: "CS/ALG/01", Date: "2024-03-12"}
		if svc.lastQuery != want {
			t.Fatalf("query = %+v, want %+v", svc.lastQuery, want)
		}
	})

	t.Run("free dates require at least one ISO date", func(t *testing.T) {
		t.Parallel()
		svc := &stubBookingService{booking: domain.Booking{ID: "booking-1"}}
		h := newTestRouter(nil, svc, nil)

		rec := doRequest(t, h, http.MethodPost, "/bookings/booking-1/free-dates", map[string]any{"dates": []string{}}, nil)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("empty dates status = %d", rec.Code)
		}

		rec = doRequest(t, h, http.MethodPost, "/bookings/booking-1/free-dates", map[string]any{"dates": []string{"2024-03-12"}}, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
		}
		var resp bookingResponse
		decodeBody(t, rec, &resp)
		if len(resp.Booking.TemporaryFreeDates) != 1 || resp.Booking.TemporaryFreeDates[0] != "2024-03-12" {
			t.Fatalf("free dates = %v", resp.Booking.TemporaryFreeDates)
		}
	})

	t.Run("conflict check reports availability", func(t *testing.T) {
		t.Parallel()
		svc := &stubBookingService{}
		h := newTestRouter(nil, svc, nil)

		body := map[string]any{"type": "event", "roomId": "room-101", "date": "2024-03-12", "startTime": "09:00", "endTime": "10:00", "excludeBookingId": "booking-3"}
		rec := doRequest(t, h, http.MethodPost, "/conflicts/check", body, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
		}
		var resp conflictCheckResponse
		decodeBody(t, rec, &resp)
		if !resp.Available || resp.Conflicts == nil {
			t.Fatalf("unexpected response %+v", resp)
		}
		if svc.lastExclude != "booking-3" {
			t.Fatalf("exclude = %q", svc.lastExclude)
		}
	})
}

func TestScheduleHandlers(t *testing.T) {
	t.Parallel()

	booking := &domain.Booking{ID: "booking-1"}
	day := availability.DayGrid{
		HallID:  "hall-a",
		Date:    "2024-03-12",
		Weekday: domain.Tuesday,
		Window:  availability.DefaultWindow(),
		Rooms: []availability.RoomDay{{
			Room:  domain.Room{ID: "room-101", Number: "R101"},
			Lanes: 1,
			Blocks: []availability.Block{{
				StartMinute: 180, DurationMinutes: 60, Kind: availability.KindPermanent,
				Label: "CS101 Algorithms", StartTime: "09:00", EndTime: "10:00", TimeText: "09:00-10:00", Booking: booking,
			}},
		}},
	}

	t.Run("day grid carries an ETag and honours If-None-Match", func(t *testing.T) {
		t.Parallel()
		h := newTestRouter(nil, nil, &stubScheduleService{day: day})

		rec := doRequest(t, h, http.MethodGet, "/halls/hall-a/schedule?date=2024-03-12", nil, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
		}
		tag := rec.Header().Get("ETag")
		if tag == "" {
			t.Fatal("expected ETag header")
		}
		var resp dayGridDTO
		decodeBody(t, rec, &resp)
		if resp.Weekday != "Tuesday" || resp.Window.Start != "06:00" || resp.Window.End != "20:00" {
			t.Fatalf("unexpected grid header %+v", resp)
		}
		if len(resp.Rooms) != 1 || resp.Rooms[0].Blocks[0].BookingID != "booking-1" {
			t.Fatalf("unexpected rooms %+v", resp.Rooms)
		}

		rec = doRequest(t, h, http.MethodGet, "/halls/hall-a/schedule?date=2024-03-12", nil, map[string]string{"If-None-Match": tag})
		if rec.Code != http.StatusNotModified {
			t.Fatalf("status = %d, want 304", rec.Code)
		}
		if rec.Body.Len() != 0 {
			t.Fatalf("304 must not carry a body, got %q", rec.Body.String())
		}
	})

	t.Run("unknown hall maps to 404", func(t *testing.T) {
		t.Parallel()
		h := newTestRouter(nil, nil, &stubScheduleService{day: day})

		rec := doRequest(t, h, http.MethodGet, "/halls/hall-z/schedule", nil, nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("week grid lists days", func(t *testing.T) {
		t.Parallel()
		h := newTestRouter(nil, nil, &stubScheduleService{day: day})

		rec := doRequest(t, h, http.MethodGet, "/halls/hall-a/timetable?week=2024-03-12", nil, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var resp weekGridDTO
		decodeBody(t, rec, &resp)
		if resp.WeekStart != "2024-03-11" || len(resp.Days) != 1 {
			t.Fatalf("unexpected week %+v", resp)
		}
	})

	t.Run("free rooms parses the instant and limit", func(t *testing.T) {
		t.Parallel()
		svc := &stubScheduleService{day: day}
		h := newTestRouter(nil, nil, svc)

		rec := doRequest(t, h, http.MethodGet, "/rooms-free?at=2024-03-12T09:30:00Z&limit=5", nil, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
		}
		if svc.lastLimit != 5 || !svc.lastAt.Equal(time.Date(2024, 3, 12, 9, 30, 0, 0, time.UTC)) {
			t.Fatalf("at=%v limit=%d", svc.lastAt, svc.lastLimit)
		}
		var resp freeRoomsResponse
		decodeBody(t, rec, &resp)
		if resp.Time != "09:30" || resp.Total != 3 || len(resp.Rooms) != 1 {
			t.Fatalf("unexpected response %+v", resp)
		}
	})

	t.Run("free rooms rejects a malformed instant", func(t *testing.T) {
		t.Parallel()
		h := newTestRouter(nil, nil, &stubScheduleService{day: day})

		rec := doRequest(t, h, http.MethodGet, "/rooms-free?at=tomorrow", nil, nil)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("alternatives forwards the draft", func(t *testing.T) {
		t.Parallel()
		svc := &stubScheduleService{day: day}
		h := newTestRouter(nil, nil, svc)

		body := map[string]any{"type": "permanent", "roomId": "room-101", "dayOfWeek": 2, "startTime": "09:00", "endTime": "10:00", "sameHall": true, "minCapacity": 50}
		rec := doRequest(t, h, http.MethodPost, "/rooms-alternatives", body, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
		}
		if !svc.lastQuery.SameHall || svc.lastQuery.MinCapacity != 50 || svc.lastQuery.Draft.DayOfWeek != domain.Tuesday {
			t.Fatalf("query = %+v", svc.lastQuery)
		}
	})
}

func TestHandleServiceErrorFallsBackTo500(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	newResponder(discardLogger()).handleServiceError(context.Background(), rec, errors.New("disk on fire"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp errorResponse
	decodeBody(t, rec, &resp)
	if resp.ErrorCode != "INTERNAL_ERROR" {
		t.Fatalf("error_code = %q", resp.ErrorCode)
	}
}
