package db

import (
	"testing"
)

func TestInitDB_InMemorySchema(t *testing.T) {
	conn, err := InitDB("")
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	defer conn.Close()

	var name string
	err = conn.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='activity_events'`).Scan(&name)
	if err != nil {
		t.Fatalf("activity_events table missing: %v", err)
	}

	// schema application is idempotent
	if err := ensureSchema(conn); err != nil {
		t.Fatalf("ensureSchema twice: %v", err)
	}
}

func TestInitDB_FileCreatesDatabase(t *testing.T) {
	path := t.TempDir() + "/activity.db"
	conn, err := InitDB(path)
	if err != nil {
		t.Fatalf("InitDB(%q): %v", path, err)
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
