package migration

import "time"

// Migration is a parsed migration file.
type Migration struct {
	Version     string // numeric prefix, e.g. "001"
	Description string
	SQL         string
	FilePath    string
	Checksum    string // sha256 of SQL, hex encoded
}

// AppliedMigration is a row of the schema_migrations table.
type AppliedMigration struct {
	Version       string
	AppliedAt     time.Time
	ExecutionTime time.Duration
	Checksum      string
}

// Status summarises the applied and pending migrations.
type Status struct {
	CurrentVersion string
	Applied        []AppliedMigration
	Pending        []Migration
}
