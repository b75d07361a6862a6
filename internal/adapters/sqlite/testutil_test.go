// Package sqlite_test contains integration tests for the SQLite row store.
//
// Tests load the schema through db.GetSchemaSQL() so they run against the
// same tables as production.
package sqlite_test

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/example/labbook/internal/db"
)

// setupTestDB creates an in-memory database with the authoritative schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	testDB, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	testDB.SetMaxOpenConns(1)

	if _, err := testDB.Exec(db.GetSchemaSQL()); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		testDB.Close()
	})

	return testDB
}

// seedSheet inserts a sheet with the given header and rows.
func seedSheet(t *testing.T, database *sql.DB, name, header string, rows ...string) {
	t.Helper()
	if _, err := database.Exec("INSERT INTO sheets (name, header) VALUES (?, ?)", name, header); err != nil {
		t.Fatalf("failed to seed sheet: %v", err)
	}
	for i, r := range rows {
		if _, err := database.Exec("INSERT INTO sheet_rows (sheet, position, cells) VALUES (?, ?, ?)", name, i+1, r); err != nil {
			t.Fatalf("failed to seed row: %v", err)
		}
	}
}
