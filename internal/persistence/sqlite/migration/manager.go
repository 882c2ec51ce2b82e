package migration

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Manager runs pending migrations in version order.
type Manager struct {
	scanner  *Scanner
	executor *SQLiteExecutor
	logger   *slog.Logger
}

// NewManager creates a migration manager. A nil logger uses slog.Default.
func NewManager(scanner *Scanner, executor *SQLiteExecutor, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{scanner: scanner, executor: executor, logger: logger.With("component", "migration")}
}

// Run applies every pending migration. Applied files whose checksum changed
// abort the run before anything is executed.
func (m *Manager) Run(ctx context.Context) error {
	started := time.Now()

	status, err := m.Status(ctx)
	if err != nil {
		return err
	}
	m.logger.InfoContext(ctx, "schema version checked",
		"current_version", status.CurrentVersion,
		"applied_count", len(status.Applied),
		"pending_count", len(status.Pending),
	)
	if len(status.Pending) == 0 {
		return nil
	}

	for i, mig := range status.Pending {
		m.logger.InfoContext(ctx, "applying migration",
			"version", mig.Version,
			"description", mig.Description,
			"position", fmt.Sprintf("%d/%d", i+1, len(status.Pending)),
		)
		if err := m.executor.Apply(ctx, mig); err != nil {
			m.logger.ErrorContext(ctx, "migration failed", "version", mig.Version, "error", err)
			return NewMigrationError(mig.Version, mig.FilePath, "apply", fmt.Errorf("%w: %w", ErrMigrationFailed, err))
		}
	}

	m.logger.InfoContext(ctx, "migrations applied", "count", len(status.Pending), "duration", time.Since(started))
	return nil
}

// Status reports applied and pending migrations.
func (m *Manager) Status(ctx context.Context) (Status, error) {
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return Status{}, err
	}
	available, err := m.scanner.Scan()
	if err != nil {
		return Status{}, err
	}
	applied, err := m.executor.Applied(ctx)
	if err != nil {
		return Status{}, err
	}

	checksums := make(map[string]string, len(applied))
	for _, a := range applied {
		checksums[a.Version] = a.Checksum
	}

	status := Status{Applied: applied}
	if len(applied) > 0 {
		status.CurrentVersion = applied[len(applied)-1].Version
	}
	for _, mig := range available {
		sum, ok := checksums[mig.Version]
		if !ok {
			status.Pending = append(status.Pending, mig)
			continue
		}
		if sum != "" && sum != mig.Checksum {
			return Status{}, NewMigrationError(mig.Version, mig.FilePath, "verify checksum", ErrChecksumMismatch)
		}
	}
	return status, nil
}
