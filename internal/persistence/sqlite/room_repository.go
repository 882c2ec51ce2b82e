package sqlite

import (
	"context"
	"time"

	"github.com/example/lecture-room-booking/internal/domain"
	"github.com/example/lecture-room-booking/internal/persistence"
)

const roomColumns = `id, hall_id, number, capacity, working_sockets, has_projector, has_mic_speaker, created_at, updated_at`

// RoomRepository implements persistence.RoomRepository using SQLite
type RoomRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	now    func() time.Time
}

// NewRoomRepository creates a new SQLite room repository
func NewRoomRepository(pool *ConnectionPool) *RoomRepository {
	return &RoomRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		now:    time.Now,
	}
}

// CreateRoom inserts a new room. The hall must exist.
func (r *RoomRepository) CreateRoom(ctx context.Context, room domain.Room) error {
	if room.ID == "" || room.HallID == "" || room.Number == "" {
		return persistence.ErrConstraintViolation
	}
	if room.Capacity < 0 || room.WorkingSockets < 0 {
		return persistence.ErrConstraintViolation
	}
	if room.CreatedAt.IsZero() {
		room.CreatedAt = r.now().UTC()
	}
	if room.UpdatedAt.IsZero() {
		room.UpdatedAt = room.CreatedAt
	}

	query := `INSERT INTO rooms (` + roomColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.helper.Exec(ctx, query,
		room.ID,
		room.HallID,
		room.Number,
		room.Capacity,
		room.WorkingSockets,
		boolToInt(room.HasProjector),
		boolToInt(room.HasMicSpeaker),
		formatTime(room.CreatedAt),
		formatTime(room.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// UpdateRoom updates an existing room
func (r *RoomRepository) UpdateRoom(ctx context.Context, room domain.Room) error {
	if room.ID == "" || room.HallID == "" || room.Number == "" {
		return persistence.ErrConstraintViolation
	}
	if room.Capacity < 0 || room.WorkingSockets < 0 {
		return persistence.ErrConstraintViolation
	}
	if room.UpdatedAt.IsZero() {
		room.UpdatedAt = r.now().UTC()
	}

	query := `
		UPDATE rooms
		SET hall_id = ?, number = ?, capacity = ?, working_sockets = ?,
			has_projector = ?, has_mic_speaker = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.helper.Exec(ctx, query,
		room.HallID,
		room.Number,
		room.Capacity,
		room.WorkingSockets,
		boolToInt(room.HasProjector),
		boolToInt(room.HasMicSpeaker),
		formatTime(room.UpdatedAt),
		room.ID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

// GetRoom retrieves a room by ID
func (r *RoomRepository) GetRoom(ctx context.Context, id string) (domain.Room, error) {
	if id == "" {
		return domain.Room{}, persistence.ErrNotFound
	}
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE id = ?`
	room, err := scanRoom(r.helper.QueryRow(ctx, query, id))
	if err != nil {
		return domain.Room{}, r.mapper.MapError(err)
	}
	return room, nil
}

// ListRooms returns all rooms ordered by hall then number
func (r *RoomRepository) ListRooms(ctx context.Context) ([]domain.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms ORDER BY hall_id ASC, number ASC, id ASC`
	return r.list(ctx, query)
}

// ListRoomsByHall returns the rooms of one hall ordered by number
func (r *RoomRepository) ListRoomsByHall(ctx context.Context, hallID string) ([]domain.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE hall_id = ? ORDER BY number ASC, id ASC`
	return r.list(ctx, query, hallID)
}

// DeleteRoom removes a room by ID. Bookings and periods referencing the room
// are left untouched.
func (r *RoomRepository) DeleteRoom(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	result, err := r.helper.Exec(ctx, `DELETE FROM rooms WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

func (r *RoomRepository) list(ctx context.Context, query string, args ...any) ([]domain.Room, error) {
	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	rooms := make([]domain.Room, 0)
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return rooms, nil
}

func scanRoom(row rowScanner) (domain.Room, error) {
	var (
		room                 domain.Room
		projector, mic       int
		createdAt, updatedAt string
	)
	err := row.Scan(
		&room.ID,
		&room.HallID,
		&room.Number,
		&room.Capacity,
		&room.WorkingSockets,
		&projector,
		&mic,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return domain.Room{}, err
	}
	room.HasProjector = projector != 0
	room.HasMicSpeaker = mic != 0
	if room.CreatedAt, room.UpdatedAt, err = parseTimes(createdAt, updatedAt); err != nil {
		return domain.Room{}, err
	}
	return room, nil
}
