package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/lecture-room-booking/internal/application"
	"github.com/example/lecture-room-booking/internal/domain"
	"github.com/example/lecture-room-booking/internal/scheduler"
)

type bookingService interface {
	CreateBooking(ctx context.Context, input application.BookingInput) (domain.Booking, error)
	UpdateBooking(ctx context.Context, bookingID string, input application.BookingInput) (domain.Booking, error)
	GetBooking(ctx context.Context, bookingID string) (domain.Booking, error)
	ListBookings(ctx context.Context, query application.BookingQuery) ([]domain.Booking, error)
	DeleteBooking(ctx context.Context, bookingID string) error
	MarkTemporarilyFree(ctx context.Context, bookingID string, dates []string) (domain.Booking, error)
	RemoveTemporarilyFree(ctx context.Context, bookingID string, dates []string) (domain.Booking, error)
	CheckConflicts(ctx context.Context, draft domain.BookingDraft, excludeBookingID string) ([]scheduler.Conflict, error)
}

type BookingHandler struct {
	service   bookingService
	responder responder
	logger    *slog.Logger
}

func NewBookingHandler(service bookingService, logger *slog.Logger) *BookingHandler {
	base := defaultLogger(logger)
	return &BookingHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *BookingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "BookingHandler", operation, attrs...)
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req bookingRequest
	if err := decodeJSON(r, &req); err != nil {
		rejectBody(r.Context(), h.responder, h.log(r.Context(), "Create"), w, err)
		return
	}

	logger := h.log(r.Context(), "Create", "room_id", req.RoomID, "booking_type", req.Type)
	booking, err := h.service.CreateBooking(r.Context(), req.toInput())
	if err != nil {
		logger.ErrorContext(r.Context(), "booking creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("booking_id", booking.ID).InfoContext(r.Context(), "booking created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, bookingResponse{Booking: toBookingDTO(booking)})
}

func (h *BookingHandler) Update(w http.ResponseWriter, r *http.Request) {
	bookingID := pathParam(r, "id")
	var req bookingRequest
	if err := decodeJSON(r, &req); err != nil {
		rejectBody(r.Context(), h.responder, h.log(r.Context(), "Update", "booking_id", bookingID), w, err)
		return
	}

	logger := h.log(r.Context(), "Update", "booking_id", bookingID)
	booking, err := h.service.UpdateBooking(r.Context(), bookingID, req.toInput())
	if err != nil {
		logger.ErrorContext(r.Context(), "booking update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "booking updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, bookingResponse{Booking: toBookingDTO(booking)})
}

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	bookingID := pathParam(r, "id")
	booking, err := h.service.GetBooking(r.Context(), bookingID)
	if err != nil {
		h.log(r.Context(), "Get", "booking_id", bookingID).ErrorContext(r.Context(), "booking lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, bookingResponse{Booking: toBookingDTO(booking)})
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := application.BookingQuery{
		RoomID:      strings.TrimSpace(q.Get("roomId")),
		HallID:      strings.TrimSpace(q.Get("hallId")),
		StaffID:     strings.TrimSpace(q.Get("staffId")),
		IndexPrefix: strings.TrimSpace(q.Get("indexPrefix")),
		Date:        strings.TrimSpace(q.Get("date")),
	}

	logger := h.log(r.Context(), "List", "room_id", query.RoomID, "date", query.Date)
	bookings, err := h.service.ListBookings(r.Context(), query)
	if err != nil {
		logger.ErrorContext(r.Context(), "booking list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(bookings)).InfoContext(r.Context(), "bookings listed")
	out := make([]bookingDTO, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, toBookingDTO(b))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listBookingsResponse{Bookings: out})
}

func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	bookingID := pathParam(r, "id")
	logger := h.log(r.Context(), "Delete", "booking_id", bookingID)
	if err := h.service.DeleteBooking(r.Context(), bookingID); err != nil {
		logger.ErrorContext(r.Context(), "booking delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "booking deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// MarkFree adds temporarily free dates to a permanent booking.
func (h *BookingHandler) MarkFree(w http.ResponseWriter, r *http.Request) {
	h.changeFreeDates(w, r, "MarkFree", h.service.MarkTemporarilyFree)
}

// UnmarkFree removes temporarily free dates from a permanent booking.
func (h *BookingHandler) UnmarkFree(w http.ResponseWriter, r *http.Request) {
	h.changeFreeDates(w, r, "UnmarkFree", h.service.RemoveTemporarilyFree)
}

func (h *BookingHandler) changeFreeDates(w http.ResponseWriter, r *http.Request, operation string, apply func(context.Context, string, []string) (domain.Booking, error)) {
	bookingID := pathParam(r, "id")
	logger := h.log(r.Context(), operation, "booking_id", bookingID)

	var req freeDatesRequest
	if err := decodeJSON(r, &req); err != nil {
		rejectBody(r.Context(), h.responder, logger, w, err)
		return
	}

	booking, err := apply(r.Context(), bookingID, req.Dates)
	if err != nil {
		logger.ErrorContext(r.Context(), "free dates change failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("free_date_count", len(booking.TemporaryFreeDates)).InfoContext(r.Context(), "free dates changed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, bookingResponse{Booking: toBookingDTO(booking)})
}

// CheckConflicts reports the conflicts of a draft without storing it.
func (h *BookingHandler) CheckConflicts(w http.ResponseWriter, r *http.Request) {
	var req conflictCheckRequest
	if err := decodeJSON(r, &req); err != nil {
		rejectBody(r.Context(), h.responder, h.log(r.Context(), "CheckConflicts"), w, err)
		return
	}

	logger := h.log(r.Context(), "CheckConflicts", "room_id", req.RoomID)
	conflicts, err := h.service.CheckConflicts(r.Context(), req.draft(), strings.TrimSpace(req.ExcludeBookingID))
	if err != nil {
		logger.ErrorContext(r.Context(), "conflict check failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("conflict_count", len(conflicts)).InfoContext(r.Context(), "conflicts checked")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, conflictCheckResponse{
		Available: len(conflicts) == 0,
		Conflicts: toConflictDTOs(conflicts),
	})
}

// draftRequest carries the scheduling fields shared by bookings and drafts.
type draftRequest struct {
	Type      string `json:"type" validate:"required,oneof=permanent event"`
	RoomID    string `json:"roomId" validate:"required"`
	DayOfWeek int    `json:"dayOfWeek" validate:"omitempty,min=1,max=7"`
	Date      string `json:"date" validate:"omitempty,isodate"`
	StartTime string `json:"startTime" validate:"required,clock"`
	EndTime   string `json:"endTime" validate:"required,clock"`
}

func (d draftRequest) draft() domain.BookingDraft {
	return domain.BookingDraft{
		Type:      domain.BookingType(d.Type),
		RoomID:    strings.TrimSpace(d.RoomID),
		DayOfWeek: domain.Weekday(d.DayOfWeek),
		Date:      strings.TrimSpace(d.Date),
		StartTime: d.StartTime,
		EndTime:   d.EndTime,
	}
}

type bookingRequest struct {
	draftRequest
	CourseName  string `json:"courseName"`
	Title       string `json:"title"`
	CourseCode  string `json:"courseCode"`
	IndexPrefix string `json:"indexPrefix"`
	StaffID     string `json:"staffId"`
	StaffName   string `json:"staffName"`
}

func (r bookingRequest) toInput() application.BookingInput {
	d := r.draft()
	return application.BookingInput{
		Type:        d.Type,
		RoomID:      d.RoomID,
		DayOfWeek:   d.DayOfWeek,
		Date:        d.Date,
		StartTime:   d.StartTime,
		EndTime:     d.EndTime,
		CourseName:  r.CourseName,
		Title:       r.Title,
		CourseCode:  r.CourseCode,
		IndexPrefix: r.IndexPrefix,
		StaffID:     r.StaffID,
		StaffName:   r.StaffName,
	}
}

type conflictCheckRequest struct {
	draftRequest
	ExcludeBookingID string `json:"excludeBookingId"`
}

type freeDatesRequest struct {
	Dates []string `json:"dates" validate:"required,min=1,dive,isodate"`
}

type bookingResponse struct {
	Booking bookingDTO `json:"booking"`
}

type listBookingsResponse struct {
	Bookings []bookingDTO `json:"bookings"`
}

type conflictCheckResponse struct {
	Available bool          `json:"available"`
	Conflicts []conflictDTO `json:"conflicts"`
}

type bookingDTO struct {
	ID                 string   `json:"id"`
	Type               string   `json:"type"`
	RoomID             string   `json:"roomId"`
	HallID             string   `json:"hallId"`
	RoomName           string   `json:"roomName,omitempty"`
	HallName           string   `json:"hallName,omitempty"`
	DayOfWeek          int      `json:"dayOfWeek,omitempty"`
	Date               string   `json:"date,omitempty"`
	StartTime          string   `json:"startTime"`
	EndTime            string   `json:"endTime"`
	CourseName         string   `json:"courseName,omitempty"`
	Title              string   `json:"title,omitempty"`
	CourseCode         string   `json:"courseCode,omitempty"`
	IndexPrefix        string   `json:"indexPrefix,omitempty"`
	StaffID            string   `json:"staffId,omitempty"`
	StaffName          string   `json:"staffName,omitempty"`
	IsActive           bool     `json:"isActive"`
	TemporaryFreeDates []string `json:"temporaryFreeDates"`
	CreatedAt          string   `json:"createdAt,omitempty"`
	UpdatedAt          string   `json:"updatedAt,omitempty"`
}

func toBookingDTO(b domain.Booking) bookingDTO {
	free := b.TemporaryFreeDates
	if free == nil {
		free = []string{}
	}
	return bookingDTO{
		ID:                 b.ID,
		Type:               string(b.Type),
		RoomID:             b.RoomID,
		HallID:             b.HallID,
		RoomName:           b.RoomName,
		HallName:           b.HallName,
		DayOfWeek:          int(b.DayOfWeek),
		Date:               b.Date,
		StartTime:          b.StartTime,
		EndTime:            b.EndTime,
		CourseName:         b.CourseName,
		Title:              b.Title,
		CourseCode:         b.CourseCode,
		IndexPrefix:        b.IndexPrefix,
		StaffID:            b.StaffID,
		StaffName:          b.StaffName,
		IsActive:           b.IsActive,
		TemporaryFreeDates: free,
		CreatedAt:          formatTimestamp(b.CreatedAt),
		UpdatedAt:          formatTimestamp(b.UpdatedAt),
	}
}

type conflictDTO struct {
	Kind      string `json:"kind"`
	Reason    string `json:"reason"`
	BookingID string `json:"bookingId,omitempty"`
	PeriodID  string `json:"periodId,omitempty"`
}

func toConflictDTOs(conflicts []scheduler.Conflict) []conflictDTO {
	out := make([]conflictDTO, 0, len(conflicts))
	for _, c := range conflicts {
		dto := conflictDTO{Kind: string(c.Kind), Reason: c.Reason}
		if c.Booking != nil {
			dto.BookingID = c.Booking.ID
		}
		if c.Period != nil {
			dto.PeriodID = c.Period.ID
		}
		out = append(out, dto)
	}
	return out
}
