package db

import (
	"database/sql"
	"fmt"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	Up      func(*sql.Tx) error
}

// migrations is the list of all migrations in order
var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_sheets",
		Up:      migrationV1,
	},
	{
		Version: 2,
		Name:    "add_sheet_timestamps",
		Up:      migrationV2,
	},
}

func createVersionTable(database *sql.DB) error {
	_, err := database.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

// RunMigrations applies every migration newer than the recorded version,
// each in its own transaction.
func RunMigrations(database *sql.DB) error {
	if err := createVersionTable(database); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	var currentVersion int
	err := database.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, err := database.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
		}

		if err := migration.Up(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Name, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", migration.Version); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

// migrationV1 creates the sheet tables without timestamps.
func migrationV1(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS sheets (
			name TEXT PRIMARY KEY,
			header TEXT NOT NULL DEFAULT '[]'
		);
		CREATE TABLE IF NOT EXISTS sheet_rows (
			sheet TEXT NOT NULL,
			position INTEGER NOT NULL,
			cells TEXT NOT NULL,
			PRIMARY KEY (sheet, position),
			FOREIGN KEY (sheet) REFERENCES sheets(name) ON DELETE CASCADE
		);
	`)
	return err
}

// migrationV2 adds created_at/updated_at to sheets.
func migrationV2(tx *sql.Tx) error {
	var count int
	err := tx.QueryRow("SELECT COUNT(*) FROM pragma_table_info('sheets') WHERE name = 'updated_at'").Scan(&count)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	// SQLite rejects non-constant defaults in ALTER TABLE ADD COLUMN.
	for _, stmt := range []string{
		"ALTER TABLE sheets ADD COLUMN created_at DATETIME",
		"ALTER TABLE sheets ADD COLUMN updated_at DATETIME",
		"UPDATE sheets SET created_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP",
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
