package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

const (
	// CurrentSchemaVersion tracks the database schema version
	CurrentSchemaVersion = "1.1.0"
)

// Migration represents a database schema migration
type Migration struct {
	Version string
	Up      string
	Down    string
}

// AllMigrations contains all database migrations in order
var AllMigrations = []Migration{
	{
		Version: "1.0.0",
		Up:      migrationV1Up,
		Down:    migrationV1Down,
	},
	{
		Version: "1.1.0",
		Up:      migrationV11Up,
		Down:    migrationV11Down,
	},
}

const migrationV1Up = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
    version TEXT PRIMARY KEY,
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- One row per unique content hash
CREATE TABLE IF NOT EXISTS extractions (
    id TEXT PRIMARY KEY,
    project_id TEXT NOT NULL,
    file_name TEXT NOT NULL,
    file_path TEXT NOT NULL,
    content TEXT NOT NULL,
    code_hash TEXT NOT NULL,
    language TEXT NOT NULL,
    extracted_context TEXT NOT NULL,
    extractor_version TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_extractions_hash ON extractions(code_hash);
CREATE INDEX IF NOT EXISTS idx_extractions_project ON extractions(project_id);
CREATE INDEX IF NOT EXISTS idx_extractions_language ON extractions(language);

-- Functions, methods and classes, denormalized for name search
CREATE TABLE IF NOT EXISTS extraction_symbols (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    extraction_id TEXT NOT NULL,
    name TEXT NOT NULL,
    kind TEXT NOT NULL,
    line INTEGER NOT NULL,
    parent TEXT,
    FOREIGN KEY (extraction_id) REFERENCES extractions(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_symbols_extraction ON extraction_symbols(extraction_id);
CREATE INDEX IF NOT EXISTS idx_symbols_name ON extraction_symbols(name);
CREATE INDEX IF NOT EXISTS idx_symbols_kind ON extraction_symbols(kind);
`

const migrationV1Down = `
DROP TABLE IF EXISTS extraction_symbols;
DROP TABLE IF EXISTS extractions;
DROP TABLE IF EXISTS schema_version;
`

const migrationV11Up = `
-- Module specifiers for reverse import lookups
CREATE TABLE IF NOT EXISTS extraction_imports (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    extraction_id TEXT NOT NULL,
    module TEXT NOT NULL,
    FOREIGN KEY (extraction_id) REFERENCES extractions(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_imports_extraction ON extraction_imports(extraction_id);
CREATE INDEX IF NOT EXISTS idx_imports_module ON extraction_imports(module);
CREATE INDEX IF NOT EXISTS idx_extractions_updated ON extractions(updated_at);
`

const migrationV11Down = `
DROP INDEX IF EXISTS idx_extractions_updated;
DROP TABLE IF EXISTS extraction_imports;
`

// currentSchemaVersion returns the highest applied version, 0.0.0 when none
func currentSchemaVersion(ctx context.Context, db querier) (*semver.Version, error) {
	var tableName string
	err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableName)
	if errors.Is(err, sql.ErrNoRows) {
		return semver.MustParse("0.0.0"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check schema_version table: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_version")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema_version: %w", err)
	}
	defer func() { _ = rows.Close() }()

	current := semver.MustParse("0.0.0")
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		parsed, err := semver.NewVersion(v)
		if err != nil {
			return nil, fmt.Errorf("invalid schema version %s: %w", v, err)
		}
		if parsed.GreaterThan(current) {
			current = parsed
		}
	}
	return current, rows.Err()
}

// ApplyMigrations runs all pending migrations
func ApplyMigrations(ctx context.Context, db *sql.DB) error {
	currentVersion, err := currentSchemaVersion(ctx, db)
	if err != nil {
		return err
	}

	for _, migration := range AllMigrations {
		migrationVersion, err := semver.NewVersion(migration.Version)
		if err != nil {
			return fmt.Errorf("invalid migration version %s: %w", migration.Version, err)
		}

		if !currentVersion.LessThan(migrationVersion) {
			continue // Already applied
		}

		if _, err := db.ExecContext(ctx, migration.Up); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", migration.Version, err)
		}

		if _, err := db.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", migration.Version); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", migration.Version, err)
		}

		currentVersion = migrationVersion
	}

	return nil
}

// RollbackMigration rolls back the most recent migration
func RollbackMigration(ctx context.Context, db *sql.DB) error {
	current, err := currentSchemaVersion(ctx, db)
	if err != nil {
		return err
	}
	if current.Equal(semver.MustParse("0.0.0")) {
		return errors.New("no migrations to rollback")
	}

	var migration *Migration
	for i := range AllMigrations {
		if semver.MustParse(AllMigrations[i].Version).Equal(current) {
			migration = &AllMigrations[i]
			break
		}
	}
	if migration == nil {
		return fmt.Errorf("migration %s not found", current)
	}

	if _, err := db.ExecContext(ctx, migration.Down); err != nil {
		return fmt.Errorf("failed to rollback migration %s: %w", migration.Version, err)
	}

	// The 1.0.0 down migration drops schema_version itself
	if migration.Version == AllMigrations[0].Version {
		return nil
	}

	if _, err := db.ExecContext(ctx, "DELETE FROM schema_version WHERE version = ?", migration.Version); err != nil {
		return fmt.Errorf("failed to remove migration record %s: %w", migration.Version, err)
	}

	return nil
}

// schemaVersion reports the schema version applied to db
func schemaVersion(ctx context.Context, db querier) (string, error) {
	v, err := currentSchemaVersion(ctx, db)
	if err != nil {
		return "", err
	}
	return v.String(), nil
}
