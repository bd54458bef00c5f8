package storage

import (
	"errors"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestMigrationsIdempotent runs Open twice on the same database and verifies
// the schema_version count stays correct (migration not re-applied).
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	if len(v1) == 0 || len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
}

func TestIndexExists(t *testing.T) {
	s := openTestStore(t)

	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?", "idx_local_store_updated").Scan(&count)
	if err != nil {
		t.Fatalf("querying sqlite_master: %v", err)
	}
	if count != 1 {
		t.Error("index idx_local_store_updated not found")
	}
}

func TestScope_SetGetRemove(t *testing.T) {
	sc := openTestStore(t).Scope("default")

	if _, err := sc.Get("profile"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get missing: err = %v, want ErrNotFound", err)
	}

	if err := sc.Set("profile", `{"name":"Ada"}`); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := sc.Set("profile", `{"name":"Grace"}`); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	got, err := sc.Get("profile")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != `{"name":"Grace"}` {
		t.Errorf("Get = %q, want last write", got)
	}

	if err := sc.Remove("profile"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := sc.Get("profile"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after Remove: err = %v", err)
	}
	if err := sc.Remove("profile"); err != nil {
		t.Errorf("Remove missing key: %v", err)
	}
}

func TestScope_Isolation(t *testing.T) {
	s := openTestStore(t)
	a, b := s.Scope("a"), s.Scope("b")

	if err := a.Set("links", "[]"); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Get("links"); !errors.Is(err, ErrNotFound) {
		t.Errorf("scope b sees scope a key: err = %v", err)
	}

	if err := b.Set("avatar", "preview:x"); err != nil {
		t.Fatal(err)
	}
	if err := a.Clear(); err != nil {
		t.Fatal(err)
	}
	if entries, _ := a.Entries(); len(entries) != 0 {
		t.Errorf("scope a entries after Clear = %v", entries)
	}
	if v, err := b.Get("avatar"); err != nil || v != "preview:x" {
		t.Errorf("Clear leaked into scope b: %q, %v", v, err)
	}
}

func TestScope_Entries(t *testing.T) {
	sc := openTestStore(t).Scope("default")
	sc.Set("profile", "{}")
	sc.Set("avatar", "preview:1")

	entries, err := sc.Entries()
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2", len(entries))
	}
	if entries[0].Key != "avatar" || entries[1].Key != "profile" {
		t.Errorf("entries not ordered by key: %+v", entries)
	}
	if entries[0].UpdatedAt.IsZero() {
		t.Error("UpdatedAt not parsed")
	}
}
