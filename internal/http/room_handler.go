package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/example/lecture-room-booking/internal/application"
	"github.com/example/lecture-room-booking/internal/domain"
)

type roomService interface {
	CreateRoom(ctx context.Context, input application.RoomInput) (domain.Room, error)
	UpdateRoom(ctx context.Context, roomID string, input application.RoomInput) (domain.Room, error)
	GetRoom(ctx context.Context, roomID string) (domain.Room, error)
	SearchRooms(ctx context.Context, criteria application.RoomSearch) ([]domain.Room, error)
	DeleteRoom(ctx context.Context, roomID string) error
}

type RoomHandler struct {
	service   roomService
	responder responder
	logger    *slog.Logger
}

func NewRoomHandler(service roomService, logger *slog.Logger) *RoomHandler {
	base := defaultLogger(logger)
	return &RoomHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *RoomHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "RoomHandler", operation, attrs...)
}

func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req roomRequest
	if err := decodeJSON(r, &req); err != nil {
		rejectBody(r.Context(), h.responder, h.log(r.Context(), "Create"), w, err)
		return
	}

	logger := h.log(r.Context(), "Create", "hall_id", req.HallID)
	room, err := h.service.CreateRoom(r.Context(), req.toInput())
	if err != nil {
		logger.ErrorContext(r.Context(), "room creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("room_id", room.ID).InfoContext(r.Context(), "room created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, roomResponse{Room: toRoomDTO(room)})
}

func (h *RoomHandler) Update(w http.ResponseWriter, r *http.Request) {
	roomID := pathParam(r, "id")
	var req roomRequest
	if err := decodeJSON(r, &req); err != nil {
		rejectBody(r.Context(), h.responder, h.log(r.Context(), "Update", "room_id", roomID), w, err)
		return
	}

	logger := h.log(r.Context(), "Update", "room_id", roomID)
	room, err := h.service.UpdateRoom(r.Context(), roomID, req.toInput())
	if err != nil {
		logger.ErrorContext(r.Context(), "room update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "room updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, roomResponse{Room: toRoomDTO(room)})
}

func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	roomID := pathParam(r, "id")
	room, err := h.service.GetRoom(r.Context(), roomID)
	if err != nil {
		h.log(r.Context(), "Get", "room_id", roomID).ErrorContext(r.Context(), "room lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, roomResponse{Room: toRoomDTO(room)})
}

func (h *RoomHandler) Delete(w http.ResponseWriter, r *http.Request) {
	roomID := pathParam(r, "id")
	logger := h.log(r.Context(), "Delete", "room_id", roomID)
	if err := h.service.DeleteRoom(r.Context(), roomID); err != nil {
		logger.ErrorContext(r.Context(), "room delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "room deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// List searches rooms using the query string as criteria.
func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	criteria, err := parseRoomSearch(r)
	if err != nil {
		rejectBody(r.Context(), h.responder, h.log(r.Context(), "List"), w, err)
		return
	}

	logger := h.log(r.Context(), "List", "hall_id", criteria.HallID)
	rooms, err := h.service.SearchRooms(r.Context(), criteria)
	if err != nil {
		logger.ErrorContext(r.Context(), "room search failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(rooms)).InfoContext(r.Context(), "rooms listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listRoomsResponse{Rooms: toRoomDTOs(rooms)})
}

func parseRoomSearch(r *http.Request) (application.RoomSearch, error) {
	q := r.URL.Query()
	criteria := application.RoomSearch{HallID: strings.TrimSpace(q.Get("hallId"))}
	vErr := &application.ValidationError{FieldErrors: map[string]string{}}

	intParam := func(name string, dst *int) {
		raw := strings.TrimSpace(q.Get(name))
		if raw == "" {
			return
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			vErr.FieldErrors[name] = name + " must be an integer"
			return
		}
		*dst = n
	}
	boolParam := func(name string, dst *bool) {
		raw := strings.TrimSpace(q.Get(name))
		if raw == "" {
			return
		}
		b, err := strconv.ParseBool(raw)
		if err != nil {
			vErr.FieldErrors[name] = name + " must be true or false"
			return
		}
		*dst = b
	}

	intParam("minCapacity", &criteria.MinCapacity)
	intParam("minSockets", &criteria.MinSockets)
	boolParam("hasProjector", &criteria.HasProjector)
	boolParam("hasMicSpeaker", &criteria.HasMicSpeaker)
	if vErr.HasErrors() {
		return application.RoomSearch{}, vErr
	}
	return criteria, nil
}

type roomRequest struct {
	HallID         string `json:"hallId" validate:"required"`
	Number         string `json:"number" validate:"required"`
	Capacity       int    `json:"capacity" validate:"min=0"`
	WorkingSockets int    `json:"workingSockets" validate:"min=0"`
	HasProjector   bool   `json:"hasProjector"`
	HasMicSpeaker  bool   `json:"hasMicSpeaker"`
}

func (r roomRequest) toInput() application.RoomInput {
	return application.RoomInput{
		HallID:         r.HallID,
		Number:         r.Number,
		Capacity:       r.Capacity,
		WorkingSockets: r.WorkingSockets,
		HasProjector:   r.HasProjector,
		HasMicSpeaker:  r.HasMicSpeaker,
	}
}

type roomResponse struct {
	Room roomDTO `json:"room"`
}

type listRoomsResponse struct {
	Rooms []roomDTO `json:"rooms"`
}

type roomDTO struct {
	ID             string `json:"id"`
	HallID         string `json:"hallId"`
	Number         string `json:"number"`
	Capacity       int    `json:"capacity"`
	WorkingSockets int    `json:"workingSockets"`
	HasProjector   bool   `json:"hasProjector"`
	HasMicSpeaker  bool   `json:"hasMicSpeaker"`
	CreatedAt      string `json:"createdAt,omitempty"`
	UpdatedAt      string `json:"updatedAt,omitempty"`
}

func toRoomDTO(room domain.Room) roomDTO {
	return roomDTO{
		ID:             room.ID,
		HallID:         room.HallID,
		Number:         room.Number,
		Capacity:       room.Capacity,
		WorkingSockets: room.WorkingSockets,
		HasProjector:   room.HasProjector,
		HasMicSpeaker:  room.HasMicSpeaker,
		CreatedAt:      formatTimestamp(room.CreatedAt),
		UpdatedAt:      formatTimestamp(room.UpdatedAt),
	}
}

func toRoomDTOs(rooms []domain.Room) []roomDTO {
	out := make([]roomDTO, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, toRoomDTO(room))
	}
	return out
}
