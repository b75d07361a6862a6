package db

import "database/sql"

// SchemaSQL is the complete schema for fresh installs.
//
// Each labbook table (prep, usage) is stored as a "sheet": a header row kept
// as a JSON array plus data rows ordered by position, mirroring how the CSV
// and spreadsheet bindings see the same data. Tests use GetSchemaSQL() instead
// of their own CREATE TABLE statements.
const SchemaSQL = `
CREATE TABLE IF NOT EXISTS sheets (
	name TEXT PRIMARY KEY,
	header TEXT NOT NULL DEFAULT '[]',
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS sheet_rows (
	sheet TEXT NOT NULL,
	position INTEGER NOT NULL,
	cells TEXT NOT NULL,
	PRIMARY KEY (sheet, position),
	FOREIGN KEY (sheet) REFERENCES sheets(name) ON DELETE CASCADE
);
`

// InitSchema creates the schema on a fresh database and applies pending
// migrations on an existing one.
func InitSchema(database *sql.DB) error {
	var tableCount int
	err := database.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableCount)
	if err != nil {
		return err
	}

	if tableCount == 0 {
		if _, err := database.Exec(SchemaSQL); err != nil {
			return err
		}
		if err := createVersionTable(database); err != nil {
			return err
		}
		// Fresh install - mark all migrations as applied
		for _, m := range migrations {
			if _, err := database.Exec("INSERT INTO schema_version (version) VALUES (?)", m.Version); err != nil {
				return err
			}
		}
		return nil
	}

	return RunMigrations(database)
}

// GetSchemaSQL returns the authoritative schema SQL for use by tests.
func GetSchemaSQL() string {
	return SchemaSQL
}
