package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/lecture-room-booking/internal/domain"
	"github.com/example/lecture-room-booking/internal/persistence"
)

const bookingColumns = `id, type, room_id, hall_id, room_name, hall_name, start_time, end_time,
	course_name, title, course_code, index_prefix, staff_id, staff_name, is_active,
	day_of_week, date, temporary_free_dates, created_at, updated_at`

// BookingRepository implements persistence.BookingRepository using SQLite
type BookingRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
	now    func() time.Time
	logger *slog.Logger
}

// NewBookingRepository creates a new SQLite booking repository
func NewBookingRepository(pool *ConnectionPool) *BookingRepository {
	return NewBookingRepositoryWithLogger(pool, nil)
}

// NewBookingRepositoryWithLogger creates a booking repository that logs the
// rows it skips while listing.
func NewBookingRepositoryWithLogger(pool *ConnectionPool, logger *slog.Logger) *BookingRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &BookingRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
		now:    time.Now,
		logger: logger.With("repository", "bookings"),
	}
}

// CreateBooking inserts a booking
func (r *BookingRepository) CreateBooking(ctx context.Context, booking domain.Booking) error {
	if booking.ID == "" || booking.RoomID == "" {
		return persistence.ErrConstraintViolation
	}
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = r.now().UTC()
	}
	if booking.UpdatedAt.IsZero() {
		booking.UpdatedAt = booking.CreatedAt
	}
	freeDates, err := encodeDates(booking.TemporaryFreeDates)
	if err != nil {
		return err
	}

	query := `INSERT INTO bookings (` + bookingColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	return r.retry.WithRetry(ctx, func() error {
		_, err := r.helper.Exec(ctx, query,
			booking.ID,
			string(booking.Type),
			booking.RoomID,
			booking.HallID,
			booking.RoomName,
			booking.HallName,
			booking.StartTime,
			booking.EndTime,
			booking.CourseName,
			booking.Title,
			booking.CourseCode,
			booking.IndexPrefix,
			booking.StaffID,
			booking.StaffName,
			boolToInt(booking.IsActive),
			nullWeekday(int(booking.DayOfWeek)),
			nullString(booking.Date),
			freeDates,
			formatTime(booking.CreatedAt),
			formatTime(booking.UpdatedAt),
		)
		return err
	})
}

// UpdateBooking replaces every mutable column of the booking
func (r *BookingRepository) UpdateBooking(ctx context.Context, booking domain.Booking) error {
	if booking.ID == "" || booking.RoomID == "" {
		return persistence.ErrConstraintViolation
	}
	if booking.UpdatedAt.IsZero() {
		booking.UpdatedAt = r.now().UTC()
	}
	freeDates, err := encodeDates(booking.TemporaryFreeDates)
	if err != nil {
		return err
	}

	query := `
		UPDATE bookings
		SET type = ?, room_id = ?, hall_id = ?, room_name = ?, hall_name = ?,
			start_time = ?, end_time = ?, course_name = ?, title = ?, course_code = ?,
			index_prefix = ?, staff_id = ?, staff_name = ?, is_active = ?,
			day_of_week = ?, date = ?, temporary_free_dates = ?, updated_at = ?
		WHERE id = ?
	`
	return r.retry.WithRetry(ctx, func() error {
		result, err := r.helper.Exec(ctx, query,
			string(booking.Type),
			booking.RoomID,
			booking.HallID,
			booking.RoomName,
			booking.HallName,
			booking.StartTime,
			booking.EndTime,
			booking.CourseName,
			booking.Title,
			booking.CourseCode,
			booking.IndexPrefix,
			booking.StaffID,
			booking.StaffName,
			boolToInt(booking.IsActive),
			nullWeekday(int(booking.DayOfWeek)),
			nullString(booking.Date),
			freeDates,
			formatTime(booking.UpdatedAt),
			booking.ID,
		)
		if err != nil {
			return err
		}
		return requireAffected(result)
	})
}

// GetBooking retrieves a booking by ID, active or not
func (r *BookingRepository) GetBooking(ctx context.Context, id string) (domain.Booking, error) {
	if id == "" {
		return domain.Booking{}, persistence.ErrNotFound
	}
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	booking, err := scanBooking(r.helper.QueryRow(ctx, query, id))
	if err != nil {
		return domain.Booking{}, r.mapper.MapError(err)
	}
	return booking, nil
}

// ListBookings returns bookings matching filter ordered by start time.
func (r *BookingRepository) ListBookings(ctx context.Context, filter persistence.BookingFilter) ([]domain.Booking, error) {
	var (
		clauses []string
		args    []any
	)
	if !filter.IncludeInactive {
		clauses = append(clauses, "is_active = 1")
	}
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
	if filter.StaffID != "" {
		clauses = append(clauses, "staff_id = ?")
		args = append(args, filter.StaffID)
	}
	if filter.IndexPrefix != "" {
		clauses = append(clauses, "index_prefix = ?")
		args = append(args, filter.IndexPrefix)
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY start_time ASC, id ASC`
	return r.list(ctx, query, args...)
}

// ListBookingsForDate returns active permanent bookings on weekday and active
// events on date.
func (r *BookingRepository) ListBookingsForDate(ctx context.Context, date string, weekday domain.Weekday) ([]domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
		WHERE is_active = 1
			AND ((type = 'permanent' AND day_of_week = ?) OR (type = 'event' AND date = ?))
		ORDER BY start_time ASC, id ASC`
	return r.list(ctx, query, int(weekday), date)
}

// DeactivateBooking soft deletes a booking
func (r *BookingRepository) DeactivateBooking(ctx context.Context, id string, at time.Time) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	return r.retry.WithRetry(ctx, func() error {
		result, err := r.helper.Exec(ctx,
			`UPDATE bookings SET is_active = 0, updated_at = ? WHERE id = ?`,
			formatTime(at), id)
		if err != nil {
			return err
		}
		return requireAffected(result)
	})
}

func (r *BookingRepository) list(ctx context.Context, query string, args ...any) ([]domain.Booking, error) {
	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		booking, err := scanBooking(rows)
		if errors.Is(err, errMalformedRow) {
			r.logger.WarnContext(ctx, "skipping malformed booking row", "error", err)
			continue
		}
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return bookings, nil
}

func scanBooking(row rowScanner) (domain.Booking, error) {
	var (
		b                    domain.Booking
		bookingType          string
		active               int
		dayOfWeek            sql.NullInt64
		date                 sql.NullString
		freeDates            string
		createdAt, updatedAt string
	)
	err := row.Scan(
		&b.ID,
		&bookingType,
		&b.RoomID,
		&b.HallID,
		&b.RoomName,
		&b.HallName,
		&b.StartTime,
		&b.EndTime,
		&b.CourseName,
		&b.Title,
		&b.CourseCode,
		&b.IndexPrefix,
		&b.StaffID,
		&b.StaffName,
		&active,
		&dayOfWeek,
		&date,
		&freeDates,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return domain.Booking{}, err
	}

	b.Type = domain.BookingType(bookingType)
	b.IsActive = active != 0
	if dayOfWeek.Valid {
		b.DayOfWeek = domain.Weekday(dayOfWeek.Int64)
	}
	if date.Valid {
		b.Date = date.String
	}
	if b.TemporaryFreeDates, err = decodeDates(freeDates); err != nil {
		return domain.Booking{}, malformedRow("booking", b.ID, err)
	}
	if b.CreatedAt, b.UpdatedAt, err = parseTimes(createdAt, updatedAt); err != nil {
		return domain.Booking{}, malformedRow("booking", b.ID, err)
	}
	return b, nil
}

func encodeDates(dates []string) (string, error) {
	if len(dates) == 0 {
		return "[]", nil
	}
	raw, err := json.Marshal(dates)
	if err != nil {
		return "", fmt.Errorf("encode temporary_free_dates: %w", err)
	}
	return string(raw), nil
}

func decodeDates(raw string) ([]string, error) {
	if raw == "" || raw == "[]" {
		return nil, nil
	}
	var dates []string
	if err := json.Unmarshal([]byte(raw), &dates); err != nil {
		return nil, fmt.Errorf("decode temporary_free_dates: %w", err)
	}
	return dates, nil
}
