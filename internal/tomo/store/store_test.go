package store

import (
	"path/filepath"
	"testing"
)

func TestNewCreatesSchema(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "tomo.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.Close()

	if _, err := s.DB().Exec(`
		INSERT INTO matrix_sync_state (user_id, key, value) VALUES (?, ?, ?)
	`, "@tomo:hs", "next_batch", "s123"); err != nil {
		t.Fatalf("insert into sync-state table: %v", err)
	}

	var value string
	err = s.DB().QueryRow(`
		SELECT value FROM matrix_sync_state WHERE user_id = ? AND key = ?
	`, "@tomo:hs", "next_batch").Scan(&value)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if value != "s123" {
		t.Errorf("value = %q, want %q", value, "s123")
	}
}

func TestNewUpsertsOnConflict(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "tomo.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.Close()

	for _, v := range []string{"s1", "s2"} {
		if _, err := s.DB().Exec(`
			INSERT INTO matrix_sync_state (user_id, key, value) VALUES (?, ?, ?)
			ON CONFLICT(user_id, key) DO UPDATE SET value = excluded.value
		`, "@tomo:hs", "next_batch", v); err != nil {
			t.Fatalf("upsert %q: %v", v, err)
		}
	}

	var value string
	if err := s.DB().QueryRow(`
		SELECT value FROM matrix_sync_state WHERE user_id = ? AND key = ?
	`, "@tomo:hs", "next_batch").Scan(&value); err != nil {
		t.Fatal(err)
	}
	if value != "s2" {
		t.Errorf("value = %q, want %q", value, "s2")
	}
}
