package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/lecture-room-booking/internal/application"
	"github.com/example/lecture-room-booking/internal/domain"
)

type hallService interface {
	CreateHall(ctx context.Context, input application.HallInput) (domain.LectureHall, error)
	UpdateHall(ctx context.Context, hallID string, input application.HallInput) (domain.LectureHall, error)
	GetHall(ctx context.Context, hallID string) (domain.LectureHall, error)
	ListHalls(ctx context.Context) ([]domain.LectureHall, error)
	DeleteHall(ctx context.Context, hallID string) error
}

type HallHandler struct {
	service   hallService
	responder responder
	logger    *slog.Logger
}

func NewHallHandler(service hallService, logger *slog.Logger) *HallHandler {
	base := defaultLogger(logger)
	return &HallHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *HallHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "HallHandler", operation, attrs...)
}

func (h *HallHandler) List(w http.ResponseWriter, r *http.Request) {
	logger := h.log(r.Context(), "List")
	halls, err := h.service.ListHalls(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "hall list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(halls)).InfoContext(r.Context(), "halls listed")
	out := make([]hallDTO, 0, len(halls))
	for _, hall := range halls {
		out = append(out, toHallDTO(hall))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listHallsResponse{Halls: out})
}

func (h *HallHandler) Get(w http.ResponseWriter, r *http.Request) {
	hallID := pathParam(r, "id")
	hall, err := h.service.GetHall(r.Context(), hallID)
	if err != nil {
		h.log(r.Context(), "Get", "hall_id", hallID).ErrorContext(r.Context(), "hall lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, hallResponse{Hall: toHallDTO(hall)})
}

func (h *HallHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req hallRequest
	if err := decodeJSON(r, &req); err != nil {
		rejectBody(r.Context(), h.responder, h.log(r.Context(), "Create"), w, err)
		return
	}

	logger := h.log(r.Context(), "Create")
	hall, err := h.service.CreateHall(r.Context(), req.toInput())
	if err != nil {
		logger.ErrorContext(r.Context(), "hall creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("hall_id", hall.ID).InfoContext(r.Context(), "hall created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, hallResponse{Hall: toHallDTO(hall)})
}

func (h *HallHandler) Update(w http.ResponseWriter, r *http.Request) {
	hallID := pathParam(r, "id")
	var req hallRequest
	if err := decodeJSON(r, &req); err != nil {
		rejectBody(r.Context(), h.responder, h.log(r.Context(), "Update", "hall_id", hallID), w, err)
		return
	}

	logger := h.log(r.Context(), "Update", "hall_id", hallID)
	hall, err := h.service.UpdateHall(r.Context(), hallID, req.toInput())
	if err != nil {
		logger.ErrorContext(r.Context(), "hall update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "hall updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, hallResponse{Hall: toHallDTO(hall)})
}

func (h *HallHandler) Delete(w http.ResponseWriter, r *http.Request) {
	hallID := pathParam(r, "id")
	logger := h.log(r.Context(), "Delete", "hall_id", hallID)
	if err := h.service.DeleteHall(r.Context(), hallID); err != nil {
		logger.ErrorContext(r.Context(), "hall delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "hall deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// rejectBody answers 400 for undecodable bodies and 422 for tag failures.
func rejectBody(ctx context.Context, resp responder, logger *slog.Logger, w http.ResponseWriter, err error) {
	if errors.Is(err, errBadRequestBody) {
		logger.With("error_kind", "bad_request").ErrorContext(ctx, "failed to decode request", "error", err)
		resp.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	logger.With("error_kind", application.ErrorKind(err)).InfoContext(ctx, "request rejected", "error", err)
	resp.handleServiceError(ctx, w, err)
}

type hallRequest struct {
	Name     string `json:"name" validate:"required"`
	Location string `json:"location"`
}

func (r hallRequest) toInput() application.HallInput {
	return application.HallInput{Name: r.Name, Location: r.Location}
}

type hallResponse struct {
	Hall hallDTO `json:"hall"`
}

type listHallsResponse struct {
	Halls []hallDTO `json:"halls"`
}

type hallDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Location  string `json:"location,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

func toHallDTO(hall domain.LectureHall) hallDTO {
	return hallDTO{
		ID:        hall.ID,
		Name:      hall.Name,
		Location:  hall.Location,
		CreatedAt: formatTimestamp(hall.CreatedAt),
		UpdatedAt: formatTimestamp(hall.UpdatedAt),
	}
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
