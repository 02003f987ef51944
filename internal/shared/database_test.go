package shared

import (
	"database/sql"
	"errors"
	"testing"
)

func newMemoryDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewDatabase(t *testing.T) {
	t.Run("In Memory", func(t *testing.T) {
		db := newMemoryDB(t)
		if err := db.Ping(); err != nil {
			t.Errorf("expected reachable database, got %v", err)
		}
	})

	t.Run("File Backed", func(t *testing.T) {
		path := t.TempDir() + "/insights.db"
		db, err := NewDatabase(path)
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := db.Exec("CREATE TABLE probe (id INTEGER)"); err != nil {
			t.Errorf("expected writable database, got %v", err)
		}
	})
}

func TestInitDatabase(t *testing.T) {
	db := newMemoryDB(t)

	if err := InitDatabase(db); err != nil {
		t.Fatalf("failed to initialize database: %v", err)
	}

	var enabled int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&enabled); err != nil {
		t.Fatalf("failed to read pragma: %v", err)
	}
	if enabled != 1 {
		t.Error("expected foreign key enforcement to be on")
	}

	// Second call must be a no-op
	if err := InitDatabase(db); err != nil {
		t.Errorf("expected repeated init to succeed, got %v", err)
	}
}

func TestWithTx(t *testing.T) {
	setup := func(t *testing.T) *sql.DB {
		db := newMemoryDB(t)
		if _, err := db.Exec("CREATE TABLE items (id INTEGER PRIMARY KEY)"); err != nil {
			t.Fatalf("failed to create table: %v", err)
		}
		return db
	}

	count := func(t *testing.T, db *sql.DB) int {
		var n int
		if err := db.QueryRow("SELECT COUNT(*) FROM items").Scan(&n); err != nil {
			t.Fatalf("failed to count: %v", err)
		}
		return n
	}

	t.Run("Commits On Nil", func(t *testing.T) {
		db := setup(t)

		err := WithTx(db, func(tx *sql.Tx) error {
			_, err := tx.Exec("INSERT INTO items (id) VALUES (1)")
			return err
		})
		if err != nil {
			t.Fatalf("expected commit, got %v", err)
		}
		if count(t, db) != 1 {
			t.Error("expected committed row")
		}
	})

	t.Run("Rolls Back On Error", func(t *testing.T) {
		db := setup(t)
		boom := errors.New("boom")

		err := WithTx(db, func(tx *sql.Tx) error {
			if _, err := tx.Exec("INSERT INTO items (id) VALUES (1)"); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("expected wrapped error, got %v", err)
		}
		if count(t, db) != 0 {
			t.Error("expected rollback to discard the insert")
		}
	})
}
