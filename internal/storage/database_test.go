package storage

import (
	"database/sql"
	"testing"
)

// testDB opens a migrated throwaway database for a test.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := New(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

func TestNew(t *testing.T) {
	db := testDB(t)
	if err := db.Ping(); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db := testDB(t)

	// Running migrations again must not error.
	if err := Migrate(db); err != nil {
		t.Errorf("second Migrate() error = %v", err)
	}
}

func TestMigrate_ForeignKeysEnforced(t *testing.T) {
	db := testDB(t)

	_, err := db.Exec(
		"INSERT INTO child_chunks (id, parent_id, document_id, child_index, text) VALUES (?, ?, ?, ?, ?)",
		"orphan", "no-such-parent", "no-such-document", 0, "text",
	)
	if err == nil {
		t.Error("inserting an orphan chunk should violate a foreign key")
	}
}
