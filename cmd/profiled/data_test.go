package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/kalambet/profiled/internal/profile"
	"github.com/kalambet/profiled/internal/storage"
)

func newTestScope(t *testing.T) *storage.Scope {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store.Scope("test")
}

func TestExportScope(t *testing.T) {
	sc := newTestScope(t)
	sc.Set(profile.KeyInterests, `["AI","Go"]`)
	sc.Set(profile.KeyAvatar, "preview:abc")

	var buf bytes.Buffer
	n, err := exportScope(&buf, sc)
	if err != nil {
		t.Fatalf("exportScope: %v", err)
	}
	if n != 2 {
		t.Fatalf("exported %d entries, want 2", n)
	}

	var out []struct {
		Key   string          `json:"key"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("export is not valid JSON: %v\n%s", err, buf.String())
	}
	// Ordered by key.
	if out[0].Key != profile.KeyAvatar || string(out[0].Value) != `"preview:abc"` {
		t.Errorf("avatar entry = %s %s", out[0].Key, out[0].Value)
	}
	if out[1].Key != profile.KeyInterests {
		t.Errorf("second key = %s", out[1].Key)
	}
}

func TestResetScope(t *testing.T) {
	sc := newTestScope(t)
	for _, k := range profile.StoredKeys {
		sc.Set(k, `"x"`)
	}
	sc.Set("theme", `"dark"`)

	if err := resetScope(sc, false); err != nil {
		t.Fatal(err)
	}
	entries, _ := sc.Entries()
	if len(entries) != 1 || entries[0].Key != "theme" {
		t.Errorf("entries after reset = %+v, want only theme", entries)
	}

	if err := resetScope(sc, true); err != nil {
		t.Fatal(err)
	}
	if entries, _ := sc.Entries(); len(entries) != 0 {
		t.Errorf("entries after reset --all = %+v", entries)
	}
}
