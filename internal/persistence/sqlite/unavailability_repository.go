package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/example/lecture-room-booking/internal/domain"
	"github.com/example/lecture-room-booking/internal/persistence"
)

const periodColumns = `id, hall_id, room_id, type, date, day_of_week, start_time, end_time, reason, custom_message, created_at`

// UnavailabilityRepository implements persistence.UnavailabilityRepository using SQLite
type UnavailabilityRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	now    func() time.Time
	logger *slog.Logger
}

// NewUnavailabilityRepository creates a new SQLite unavailability repository
func NewUnavailabilityRepository(pool *ConnectionPool) *UnavailabilityRepository {
	return NewUnavailabilityRepositoryWithLogger(pool, nil)
}

// NewUnavailabilityRepositoryWithLogger creates an unavailability repository
// that logs the rows it skips while listing.
func NewUnavailabilityRepositoryWithLogger(pool *ConnectionPool, logger *slog.Logger) *UnavailabilityRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &UnavailabilityRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		now:    time.Now,
		logger: logger.With("repository", "unavailability_periods"),
	}
}

// CreatePeriod inserts an unavailability period
func (r *UnavailabilityRepository) CreatePeriod(ctx context.Context, period domain.UnavailabilityPeriod) error {
	if period.ID == "" || period.RoomID == "" {
		return persistence.ErrConstraintViolation
	}
	if period.CreatedAt.IsZero() {
		period.CreatedAt = r.now().UTC()
	}

	query := `INSERT INTO unavailability_periods (` + periodColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.helper.Exec(ctx, query,
		period.ID,
		period.HallID,
		period.RoomID,
		string(period.Type),
		nullString(period.Date),
		nullWeekday(int(period.DayOfWeek)),
		period.StartTime,
		period.EndTime,
		string(period.Reason),
		period.CustomMessage,
		formatTime(period.CreatedAt),
	)
	return r.mapper.MapError(err)
}

// GetPeriod retrieves a period by ID
func (r *UnavailabilityRepository) GetPeriod(ctx context.Context, id string) (domain.UnavailabilityPeriod, error) {
	if id == "" {
		return domain.UnavailabilityPeriod{}, persistence.ErrNotFound
	}
	query := `SELECT ` + periodColumns + ` FROM unavailability_periods WHERE id = ?`
	period, err := scanPeriod(r.helper.QueryRow(ctx, query, id))
	if err != nil {
		return domain.UnavailabilityPeriod{}, r.mapper.MapError(err)
	}
	return period, nil
}

// ListPeriods returns periods matching filter ordered by start time
func (r *UnavailabilityRepository) ListPeriods(ctx context.Context, filter persistence.UnavailabilityFilter) ([]domain.UnavailabilityPeriod, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.RoomID != "" {
		clauses = append(clauses, "room_id = ?")
		args = append(args, filter.RoomID)
	}
	if len(filter.RoomIDs) > 0 {
		clause, inArgs := inClause("room_id", filter.RoomIDs)
		clauses = append(clauses, clause)
		args = append(args, inArgs...)
	}
	if filter.HallID != "" {
		clauses = append(clauses, "hall_id = ?")
		args = append(args, filter.HallID)
	}

	query := `SELECT ` + periodColumns + ` FROM unavailability_periods`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY start_time ASC, id ASC`

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	periods := make([]domain.UnavailabilityPeriod, 0)
	for rows.Next() {
		period, err := scanPeriod(rows)
		if errors.Is(err, errMalformedRow) {
			r.logger.WarnContext(ctx, "skipping malformed unavailability row", "error", err)
			continue
		}
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		periods = append(periods, period)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return periods, nil
}

// DeletePeriod removes a period by ID
func (r *UnavailabilityRepository) DeletePeriod(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	result, err := r.helper.Exec(ctx, `DELETE FROM unavailability_periods WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

func scanPeriod(row rowScanner) (domain.UnavailabilityPeriod, error) {
	var (
		p                  domain.UnavailabilityPeriod
		periodType, reason string
		date               sql.NullString
		dayOfWeek          sql.NullInt64
		createdAt          string
	)
	err := row.Scan(
		&p.ID,
		&p.HallID,
		&p.RoomID,
		&periodType,
		&date,
		&dayOfWeek,
		&p.StartTime,
		&p.EndTime,
		&reason,
		&p.CustomMessage,
		&createdAt,
	)
	if err != nil {
		return domain.UnavailabilityPeriod{}, err
	}
	p.Type = domain.UnavailabilityType(periodType)
	p.Reason = domain.UnavailabilityReason(reason)
	if date.Valid {
		p.Date = date.String
	}
	if dayOfWeek.Valid {
		p.DayOfWeek = domain.Weekday(dayOfWeek.Int64)
	}
	if p.CreatedAt, _, err = parseTimes(createdAt, ""); err != nil {
		return domain.UnavailabilityPeriod{}, malformedRow("unavailability period", p.ID, err)
	}
	return p, nil
}
