package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/lecture-room-booking/internal/application"
	"github.com/example/lecture-room-booking/internal/domain"
)

type unavailabilityService interface {
	CreatePeriod(ctx context.Context, input application.PeriodInput) (domain.UnavailabilityPeriod, error)
	GetPeriod(ctx context.Context, periodID string) (domain.UnavailabilityPeriod, error)
	ListPeriods(ctx context.Context, roomID, hallID string) ([]domain.UnavailabilityPeriod, error)
	DeletePeriod(ctx context.Context, periodID string) error
}

type UnavailabilityHandler struct {
	service   unavailabilityService
	responder responder
	logger    *slog.Logger
}

func NewUnavailabilityHandler(service unavailabilityService, logger *slog.Logger) *UnavailabilityHandler {
	base := defaultLogger(logger)
	return &UnavailabilityHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *UnavailabilityHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "UnavailabilityHandler", operation, attrs...)
}

func (h *UnavailabilityHandler) List(w http.ResponseWriter, r *http.Request) {
	roomID := strings.TrimSpace(r.URL.Query().Get("roomId"))
	hallID := strings.TrimSpace(r.URL.Query().Get("hallId"))

	logger := h.log(r.Context(), "List", "room_id", roomID, "hall_id", hallID)
	periods, err := h.service.ListPeriods(r.Context(), roomID, hallID)
	if err != nil {
		logger.ErrorContext(r.Context(), "period list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(periods)).InfoContext(r.Context(), "periods listed")
	out := make([]periodDTO, 0, len(periods))
	for _, p := range periods {
		out = append(out, toPeriodDTO(p))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listPeriodsResponse{Periods: out})
}

func (h *UnavailabilityHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req periodRequest
	if err := decodeJSON(r, &req); err != nil {
		rejectBody(r.Context(), h.responder, h.log(r.Context(), "Create"), w, err)
		return
	}

	logger := h.log(r.Context(), "Create", "room_id", req.RoomID, "period_type", req.Type)
	period, err := h.service.CreatePeriod(r.Context(), req.toInput())
	if err != nil {
		logger.ErrorContext(r.Context(), "period creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("period_id", period.ID).InfoContext(r.Context(), "period created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, periodResponse{Period: toPeriodDTO(period)})
}

func (h *UnavailabilityHandler) Get(w http.ResponseWriter, r *http.Request) {
	periodID := pathParam(r, "id")
	period, err := h.service.GetPeriod(r.Context(), periodID)
	if err != nil {
		h.log(r.Context(), "Get", "period_id", periodID).ErrorContext(r.Context(), "period lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, periodResponse{Period: toPeriodDTO(period)})
}

func (h *UnavailabilityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	periodID := pathParam(r, "id")
	logger := h.log(r.Context(), "Delete", "period_id", periodID)
	if err := h.service.DeletePeriod(r.Context(), periodID); err != nil {
		logger.ErrorContext(r.Context(), "period delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "period deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type periodRequest struct {
	RoomID        string `json:"roomId" validate:"required"`
	Type          string `json:"type" validate:"required,oneof=date recurring"`
	Date          string `json:"date" validate:"omitempty,isodate"`
	DayOfWeek     int    `json:"dayOfWeek" validate:"omitempty,min=1,max=7"`
	StartTime     string `json:"startTime" validate:"required,clock"`
	EndTime       string `json:"endTime" validate:"required,clock"`
	Reason        string `json:"reason" validate:"omitempty,oneof=maintenance cleaning student_study closed"`
	CustomMessage string `json:"customMessage"`
}

func (r periodRequest) toInput() application.PeriodInput {
	return application.PeriodInput{
		RoomID:        r.RoomID,
		Type:          domain.UnavailabilityType(r.Type),
		Date:          r.Date,
		DayOfWeek:     domain.Weekday(r.DayOfWeek),
		StartTime:     r.StartTime,
		EndTime:       r.EndTime,
		Reason:        domain.UnavailabilityReason(r.Reason),
		CustomMessage: r.CustomMessage,
	}
}

type periodResponse struct {
	Period periodDTO `json:"period"`
}

type listPeriodsResponse struct {
	Periods []periodDTO `json:"periods"`
}

type periodDTO struct {
	ID            string `json:"id"`
	HallID        string `json:"hallId"`
	RoomID        string `json:"roomId"`
	Type          string `json:"type"`
	Date          string `json:"date,omitempty"`
	DayOfWeek     int    `json:"dayOfWeek,omitempty"`
	StartTime     string `json:"startTime"`
	EndTime       string `json:"endTime"`
	Reason        string `json:"reason,omitempty"`
	CustomMessage string `json:"customMessage,omitempty"`
	Label         string `json:"label"`
	CreatedAt     string `json:"createdAt,omitempty"`
}

func toPeriodDTO(p domain.UnavailabilityPeriod) periodDTO {
	return periodDTO{
		ID:            p.ID,
		HallID:        p.HallID,
		RoomID:        p.RoomID,
		Type:          string(p.Type),
		Date:          p.Date,
		DayOfWeek:     int(p.DayOfWeek),
		StartTime:     p.StartTime,
		EndTime:       p.EndTime,
		Reason:        string(p.Reason),
		CustomMessage: p.CustomMessage,
		Label:         p.Label(),
		CreatedAt:     formatTimestamp(p.CreatedAt),
	}
}
