package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/julienschmidt/httprouter"
)

type RouterConfig struct {
	Halls          *HallHandler
	Rooms          *RoomHandler
	Bookings       *BookingHandler
	Unavailability *UnavailabilityHandler
	Schedules      *ScheduleHandler
	Logger         *slog.Logger
	Middleware     []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	resp := newResponder(defaultLogger(cfg.Logger))
	router := httprouter.New()
	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp.writeError(r.Context(), w, http.StatusNotFound, nil)
	})
	router.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp.writeError(r.Context(), w, http.StatusMethodNotAllowed, nil)
	})
	router.PanicHandler = func(w http.ResponseWriter, r *http.Request, recovered interface{}) {
		resp.loggerFor(r.Context()).ErrorContext(r.Context(), "handler panicked", "panic", fmt.Sprint(recovered))
		resp.writeError(r.Context(), w, http.StatusInternalServerError, nil)
	}

	handle := func(method, path string, fn http.HandlerFunc) {
		router.Handler(method, path, fn)
	}

	handle(http.MethodGet, "/healthz", func(w http.ResponseWriter, r *http.Request) {
		resp.writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if cfg.Halls != nil {
		handle(http.MethodGet, "/halls", cfg.Halls.List)
		handle(http.MethodPost, "/halls", cfg.Halls.Create)
		handle(http.MethodGet, "/halls/:id", cfg.Halls.Get)
		handle(http.MethodPut, "/halls/:id", cfg.Halls.Update)
		handle(http.MethodDelete, "/halls/:id", cfg.Halls.Delete)
	}

	if cfg.Rooms != nil {
		handle(http.MethodGet, "/rooms", cfg.Rooms.List)
		handle(http.MethodPost, "/rooms", cfg.Rooms.Create)
		handle(http.MethodGet, "/rooms/:id", cfg.Rooms.Get)
		handle(http.MethodPut, "/rooms/:id", cfg.Rooms.Update)
		handle(http.MethodDelete, "/rooms/:id", cfg.Rooms.Delete)
	}

	if cfg.Bookings != nil {
		handle(http.MethodGet, "/bookings", cfg.Bookings.List)
		handle(http.MethodPost, "/bookings", cfg.Bookings.Create)
		handle(http.MethodGet, "/bookings/:id", cfg.Bookings.Get)
		handle(http.MethodPut, "/bookings/:id", cfg.Bookings.Update)
		handle(http.MethodDelete, "/bookings/:id", cfg.Bookings.Delete)
		handle(http.MethodPost, "/bookings/:id/free-dates", cfg.Bookings.MarkFree)
		handle(http.MethodDelete, "/bookings/:id/free-dates", cfg.Bookings.UnmarkFree)
		handle(http.MethodPost, "/conflicts/check", cfg.Bookings.CheckConflicts)
	}

	if cfg.Unavailability != nil {
		handle(http.MethodGet, "/unavailability", cfg.Unavailability.List)
		handle(http.MethodPost, "/unavailability", cfg.Unavailability.Create)
		handle(http.MethodGet, "/unavailability/:id", cfg.Unavailability.Get)
		handle(http.MethodDelete, "/unavailability/:id", cfg.Unavailability.Delete)
	}

	if cfg.Schedules != nil {
		handle(http.MethodGet, "/halls/:id/schedule", cfg.Schedules.Day)
		handle(http.MethodGet, "/halls/:id/timetable", cfg.Schedules.Week)
		handle(http.MethodGet, "/rooms-free", cfg.Schedules.FreeRooms)
		handle(http.MethodPost, "/rooms-alternatives", cfg.Schedules.Alternatives)
	}

	var handler http.Handler = router
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}
