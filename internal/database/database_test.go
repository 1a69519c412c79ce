package database

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/robalobadob/letterpop/assets"
)

func TestMigrateIsIdempotent(t *testing.T) {
	db, err := Open(MemoryDSN)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := Migrate(ctx, db, assets.Migrations()); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM _migrations`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("recorded migrations = %d, want 1", n)
	}
	if _, err := db.Exec(`INSERT INTO settings (owner_id, key, value, updated_at) VALUES ('o','k','{}','now')`); err != nil {
		t.Errorf("settings table missing: %v", err)
	}
}

// Every query must see the migrated in-memory database, not a fresh one
// opened by another pooled connection.
func TestMemoryDatabaseSurvivesConcurrentUse(t *testing.T) {
	db, err := Open(MemoryDSN)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if err := Migrate(context.Background(), db, assets.Migrations()); err != nil {
		t.Fatal(err)
	}
	if got := db.Stats().MaxOpenConnections; got != 1 {
		t.Fatalf("max open conns = %d, want 1", got)
	}

	rows, err := db.Query(`SELECT name FROM _migrations`)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			t.Fatal(err)
		}
		names = append(names, n)
	}
	rows.Close()
	if len(names) != 1 {
		t.Errorf("migrations = %v", names)
	}
	for i := 0; i < 4; i++ {
		if _, err := db.Exec(`INSERT INTO settings (owner_id, key, value, updated_at) VALUES (?, 'k', '{}', 'now')`, i); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
}

func TestMigrateOrderAndFailure(t *testing.T) {
	db, err := Open(MemoryDSN)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	fsys := fstest.MapFS{
		"002_more.sql": {Data: []byte(`ALTER TABLE a ADD COLUMN b TEXT;`)},
		"001_base.sql": {Data: []byte(`CREATE TABLE a (id TEXT);`)},
		"notes.txt":    {Data: []byte(`ignored`)},
	}
	if err := Migrate(context.Background(), db, fsys); err != nil {
		t.Fatal(err)
	}

	bad := fstest.MapFS{"003_bad.sql": {Data: []byte(`CREATE TABLE;`)}}
	if err := Migrate(context.Background(), db, bad); err == nil {
		t.Fatal("broken migration applied")
	}
	var n int
	_ = db.QueryRow(`SELECT COUNT(*) FROM _migrations WHERE name='003_bad.sql'`).Scan(&n)
	if n != 0 {
		t.Error("failed migration was recorded")
	}
}
