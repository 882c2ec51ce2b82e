package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLiteExecutor applies migrations and maintains schema_migrations.
type SQLiteExecutor struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteExecutor creates a SQLite migration executor.
func NewSQLiteExecutor(db *sql.DB) *SQLiteExecutor {
	return &SQLiteExecutor{db: db, now: time.Now}
}

// InitializeVersionTable creates schema_migrations if it does not exist.
func (e *SQLiteExecutor) InitializeVersionTable(ctx context.Context) error {
	const createTableSQL = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL,
			checksum TEXT NOT NULL DEFAULT '',
			execution_time_ms INTEGER NOT NULL DEFAULT 0
		)`
	if _, err := e.db.ExecContext(ctx, createTableSQL); err != nil {
		return NewDatabaseError("", createTableSQL, "create schema_migrations table", err)
	}
	return nil
}

// Apply runs every statement of m and records it, all in one transaction.
func (e *SQLiteExecutor) Apply(ctx context.Context, m Migration) (err error) {
	statements := splitStatements(m.SQL)
	if len(statements) == 0 {
		return NewMigrationError(m.Version, m.FilePath, "parse SQL", fmt.Errorf("%w: no SQL statements", ErrInvalidMigrationFile))
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return NewDatabaseError(m.Version, "", "begin transaction", err)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, ignoreDone(tx.Rollback()))
		}
	}()

	started := e.now()
	for i, stmt := range statements {
		if _, execErr := tx.ExecContext(ctx, stmt); execErr != nil {
			return NewDatabaseError(m.Version, stmt, fmt.Sprintf("execute statement %d", i+1), execErr)
		}
	}

	const insertSQL = `INSERT INTO schema_migrations (version, applied_at, checksum, execution_time_ms) VALUES (?, ?, ?, ?)`
	elapsed := e.now().Sub(started)
	if _, execErr := tx.ExecContext(ctx, insertSQL, m.Version, e.now().UTC().Format(time.RFC3339), m.Checksum, elapsed.Milliseconds()); execErr != nil {
		return NewDatabaseError(m.Version, insertSQL, "record migration", execErr)
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return NewDatabaseError(m.Version, "", "commit transaction", commitErr)
	}
	return nil
}

// Applied returns the applied migrations ordered by version.
func (e *SQLiteExecutor) Applied(ctx context.Context) ([]AppliedMigration, error) {
	const querySQL = `
		SELECT version, applied_at, checksum, execution_time_ms
		FROM schema_migrations
		ORDER BY CAST(version AS INTEGER) ASC`

	rows, err := e.db.QueryContext(ctx, querySQL)
	if err != nil {
		return nil, NewDatabaseError("", querySQL, "list applied migrations", err)
	}
	defer rows.Close()

	var applied []AppliedMigration
	for rows.Next() {
		var (
			row       AppliedMigration
			appliedAt string
			elapsedMS int64
		)
		if err := rows.Scan(&row.Version, &appliedAt, &row.Checksum, &elapsedMS); err != nil {
			return nil, NewDatabaseError("", querySQL, "scan applied migration", err)
		}
		if row.AppliedAt, err = time.Parse(time.RFC3339, appliedAt); err != nil {
			return nil, NewDatabaseError(row.Version, querySQL, "parse applied_at", err)
		}
		row.ExecutionTime = time.Duration(elapsedMS) * time.Millisecond
		applied = append(applied, row)
	}
	if err := rows.Err(); err != nil {
		return nil, NewDatabaseError("", querySQL, "iterate applied migrations", err)
	}
	return applied, nil
}

func ignoreDone(err error) error {
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}
