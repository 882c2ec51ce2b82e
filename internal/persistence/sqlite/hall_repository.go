package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/lecture-room-booking/internal/domain"
	"github.com/example/lecture-room-booking/internal/persistence"
)

const hallColumns = `id, name, location, created_at, updated_at`

// HallRepository implements persistence.HallRepository using SQLite
type HallRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	now    func() time.Time
}

// NewHallRepository creates a new SQLite hall repository
func NewHallRepository(pool *ConnectionPool) *HallRepository {
	return &HallRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		now:    time.Now,
	}
}

// CreateHall inserts a new hall
func (r *HallRepository) CreateHall(ctx context.Context, hall domain.LectureHall) error {
	if hall.ID == "" || hall.Name == "" {
		return persistence.ErrConstraintViolation
	}
	if hall.CreatedAt.IsZero() {
		hall.CreatedAt = r.now().UTC()
	}
	if hall.UpdatedAt.IsZero() {
		hall.UpdatedAt = hall.CreatedAt
	}

	query := `INSERT INTO lecture_halls (` + hallColumns + `) VALUES (?, ?, ?, ?, ?)`
	_, err := r.helper.Exec(ctx, query,
		hall.ID,
		hall.Name,
		hall.Location,
		formatTime(hall.CreatedAt),
		formatTime(hall.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// UpdateHall updates name and location
func (r *HallRepository) UpdateHall(ctx context.Context, hall domain.LectureHall) error {
	if hall.ID == "" || hall.Name == "" {
		return persistence.ErrConstraintViolation
	}
	if hall.UpdatedAt.IsZero() {
		hall.UpdatedAt = r.now().UTC()
	}

	query := `UPDATE lecture_halls SET name = ?, location = ?, updated_at = ? WHERE id = ?`
	result, err := r.helper.Exec(ctx, query, hall.Name, hall.Location, formatTime(hall.UpdatedAt), hall.ID)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

// GetHall retrieves a hall by ID
func (r *HallRepository) GetHall(ctx context.Context, id string) (domain.LectureHall, error) {
	if id == "" {
		return domain.LectureHall{}, persistence.ErrNotFound
	}
	query := `SELECT ` + hallColumns + ` FROM lecture_halls WHERE id = ?`
	hall, err := scanHall(r.helper.QueryRow(ctx, query, id))
	if err != nil {
		return domain.LectureHall{}, r.mapper.MapError(err)
	}
	return hall, nil
}

// ListHalls returns all halls ordered by name then ID
func (r *HallRepository) ListHalls(ctx context.Context) ([]domain.LectureHall, error) {
	query := `SELECT ` + hallColumns + ` FROM lecture_halls ORDER BY name ASC, id ASC`
	rows, err := r.helper.Query(ctx, query)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	halls := make([]domain.LectureHall, 0)
	for rows.Next() {
		hall, err := scanHall(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		halls = append(halls, hall)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return halls, nil
}

// DeleteHall removes a hall. Rooms still referencing it make the delete fail
// with persistence.ErrForeignKeyViolation.
func (r *HallRepository) DeleteHall(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var rooms int
		if err := r.helper.QueryRowTx(ctx, tx, `SELECT COUNT(*) FROM rooms WHERE hall_id = ?`, id).Scan(&rooms); err != nil {
			return r.mapper.MapError(err)
		}
		if rooms > 0 {
			return fmt.Errorf("%w: hall %s has %d rooms", persistence.ErrForeignKeyViolation, id, rooms)
		}

		result, err := r.helper.ExecTx(ctx, tx, `DELETE FROM lecture_halls WHERE id = ?`, id)
		if err != nil {
			return r.mapper.MapError(err)
		}
		return requireAffected(result)
	})
}

func scanHall(row rowScanner) (domain.LectureHall, error) {
	var (
		hall                 domain.LectureHall
		createdAt, updatedAt string
	)
	if err := row.Scan(&hall.ID, &hall.Name, &hall.Location, &createdAt, &updatedAt); err != nil {
		return domain.LectureHall{}, err
	}
	var err error
	if hall.CreatedAt, hall.UpdatedAt, err = parseTimes(createdAt, updatedAt); err != nil {
		return domain.LectureHall{}, err
	}
	return hall, nil
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}
