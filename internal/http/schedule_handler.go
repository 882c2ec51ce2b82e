package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/lecture-room-booking/internal/application"
	"github.com/example/lecture-room-booking/internal/availability"
	"github.com/example/lecture-room-booking/internal/domain"
	"github.com/example/lecture-room-booking/internal/interval"
)

type scheduleService interface {
	DaySchedule(ctx context.Context, hallID, date string) (availability.DayGrid, error)
	WeekSchedule(ctx context.Context, hallID, anchorDate string) (availability.WeekGrid, error)
	FreeRoomsAt(ctx context.Context, at time.Time, limit int) (application.FreeRooms, error)
	AlternativeRooms(ctx context.Context, query application.AlternativesQuery) ([]domain.Room, error)
}

// ScheduleHandler serves the read-only grid and free room views.
type ScheduleHandler struct {
	service   scheduleService
	responder responder
	logger    *slog.Logger
}

func NewScheduleHandler(service scheduleService, logger *slog.Logger) *ScheduleHandler {
	base := defaultLogger(logger)
	return &ScheduleHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ScheduleHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "ScheduleHandler", operation, attrs...)
}

func (h *ScheduleHandler) Day(w http.ResponseWriter, r *http.Request) {
	hallID := pathParam(r, "id")
	date := strings.TrimSpace(r.URL.Query().Get("date"))

	logger := h.log(r.Context(), "Day", "hall_id", hallID, "date", date)
	grid, err := h.service.DaySchedule(r.Context(), hallID, date)
	if err != nil {
		logger.ErrorContext(r.Context(), "day schedule failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("room_count", len(grid.Rooms)).InfoContext(r.Context(), "day schedule rendered")
	h.responder.writeTaggedJSON(r.Context(), w, r, toDayGridDTO(grid))
}

func (h *ScheduleHandler) Week(w http.ResponseWriter, r *http.Request) {
	hallID := pathParam(r, "id")
	week := strings.TrimSpace(r.URL.Query().Get("week"))

	logger := h.log(r.Context(), "Week", "hall_id", hallID, "week", week)
	grid, err := h.service.WeekSchedule(r.Context(), hallID, week)
	if err != nil {
		logger.ErrorContext(r.Context(), "week schedule failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("week_start", grid.WeekStart).InfoContext(r.Context(), "week schedule rendered")
	h.responder.writeTaggedJSON(r.Context(), w, r, toWeekGridDTO(grid))
}

// FreeRooms lists rooms with nothing scheduled at the given instant.
func (h *ScheduleHandler) FreeRooms(w http.ResponseWriter, r *http.Request) {
	at, limit, err := parseFreeRoomsQuery(r)
	if err != nil {
		rejectBody(r.Context(), h.responder, h.log(r.Context(), "FreeRooms"), w, err)
		return
	}

	logger := h.log(r.Context(), "FreeRooms", "limit", limit)
	result, err := h.service.FreeRoomsAt(r.Context(), at, limit)
	if err != nil {
		logger.ErrorContext(r.Context(), "free rooms lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(result.Rooms), "total", result.Total).InfoContext(r.Context(), "free rooms listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, freeRoomsResponse{
		Date:  result.Day.Date,
		Time:  interval.Format(result.Minute),
		Rooms: toRoomDTOs(result.Rooms),
		Total: result.Total,
	})
}

// Alternatives suggests rooms where the draft slot would not conflict.
func (h *ScheduleHandler) Alternatives(w http.ResponseWriter, r *http.Request) {
	var req alternativesRequest
	if err := decodeJSON(r, &req); err != nil {
		rejectBody(r.Context(), h.responder, h.log(r.Context(), "Alternatives"), w, err)
		return
	}

	logger := h.log(r.Context(), "Alternatives", "room_id", req.RoomID, "same_hall", req.SameHall)
	rooms, err := h.service.AlternativeRooms(r.Context(), application.AlternativesQuery{
		Draft:       req.draft(),
		SameHall:    req.SameHall,
		MinCapacity: req.MinCapacity,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "alternative rooms lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(rooms)).InfoContext(r.Context(), "alternative rooms listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listRoomsResponse{Rooms: toRoomDTOs(rooms)})
}

func parseFreeRoomsQuery(r *http.Request) (time.Time, int, error) {
	q := r.URL.Query()
	vErr := &application.ValidationError{FieldErrors: map[string]string{}}

	var at time.Time
	if raw := strings.TrimSpace(q.Get("at")); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			vErr.FieldErrors["at"] = "at must be an RFC 3339 timestamp"
		}
		at = parsed
	}

	var limit int
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			vErr.FieldErrors["limit"] = "limit must be a non-negative integer"
		}
		limit = n
	}

	if vErr.HasErrors() {
		return time.Time{}, 0, vErr
	}
	return at, limit, nil
}

type alternativesRequest struct {
	draftRequest
	SameHall    bool `json:"sameHall"`
	MinCapacity int  `json:"minCapacity" validate:"min=0"`
}

type freeRoomsResponse struct {
	Date  string    `json:"date"`
	Time  string    `json:"time"`
	Rooms []roomDTO `json:"rooms"`
	Total int       `json:"total"`
}

type windowDTO struct {
	Start   string `json:"start"`
	End     string `json:"end"`
	Minutes int    `json:"minutes"`
}

type blockDTO struct {
	StartMinute     int    `json:"startMinute"`
	DurationMinutes int    `json:"durationMinutes"`
	Lane            int    `json:"lane"`
	Kind            string `json:"kind"`
	Label           string `json:"label"`
	Detail          string `json:"detail,omitempty"`
	StartTime       string `json:"startTime"`
	EndTime         string `json:"endTime"`
	TimeText        string `json:"timeText"`
	BookingID       string `json:"bookingId,omitempty"`
	PeriodID        string `json:"periodId,omitempty"`
}

type roomDayDTO struct {
	RoomID     string     `json:"roomId"`
	RoomNumber string     `json:"roomNumber"`
	Capacity   int        `json:"capacity"`
	Lanes      int        `json:"lanes"`
	Blocks     []blockDTO `json:"blocks"`
}

type dayGridDTO struct {
	HallID  string       `json:"hallId"`
	Date    string       `json:"date"`
	Weekday string       `json:"weekday"`
	Window  windowDTO    `json:"window"`
	Rooms   []roomDayDTO `json:"rooms"`
}

type weekGridDTO struct {
	HallID    string       `json:"hallId"`
	WeekStart string       `json:"weekStart"`
	Window    windowDTO    `json:"window"`
	Days      []dayGridDTO `json:"days"`
}

func toWindowDTO(w availability.Window) windowDTO {
	return windowDTO{Start: interval.Format(w.Start), End: interval.Format(w.End), Minutes: w.Minutes()}
}

func toDayGridDTO(grid availability.DayGrid) dayGridDTO {
	out := dayGridDTO{
		HallID:  grid.HallID,
		Date:    grid.Date,
		Weekday: grid.Weekday.String(),
		Window:  toWindowDTO(grid.Window),
		Rooms:   make([]roomDayDTO, 0, len(grid.Rooms)),
	}
	for _, rd := range grid.Rooms {
		room := roomDayDTO{
			RoomID:     rd.Room.ID,
			RoomNumber: rd.Room.Number,
			Capacity:   rd.Room.Capacity,
			Lanes:      rd.Lanes,
			Blocks:     make([]blockDTO, 0, len(rd.Blocks)),
		}
		for _, b := range rd.Blocks {
			room.Blocks = append(room.Blocks, toBlockDTO(b))
		}
		out.Rooms = append(out.Rooms, room)
	}
	return out
}

func toWeekGridDTO(grid availability.WeekGrid) weekGridDTO {
	out := weekGridDTO{
		HallID:    grid.HallID,
		WeekStart: grid.WeekStart,
		Window:    toWindowDTO(grid.Window),
		Days:      make([]dayGridDTO, 0, len(grid.Days)),
	}
	for _, day := range grid.Days {
		out.Days = append(out.Days, toDayGridDTO(day))
	}
	return out
}

func toBlockDTO(b availability.Block) blockDTO {
	dto := blockDTO{
		StartMinute:     b.StartMinute,
		DurationMinutes: b.DurationMinutes,
		Lane:            b.Lane,
		Kind:            string(b.Kind),
		Label:           b.Label,
		Detail:          b.Detail,
		StartTime:       b.StartTime,
		EndTime:         b.EndTime,
		TimeText:        b.TimeText,
	}
	if b.Booking != nil {
		dto.BookingID = b.Booking.ID
	}
	if b.Period != nil {
		dto.PeriodID = b.Period.ID
	}
	return dto
}
