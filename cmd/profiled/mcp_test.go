package main

import (
	"context"
	"testing"

	"github.com/kalambet/profiled/internal/profile"
	"github.com/kalambet/profiled/internal/storage"
)

func TestServeWithWriter_DrainsBeforeReturn(t *testing.T) {
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()
	scope := store.Scope("default")
	w := profile.NewAsyncWriter(scope)

	err = serveWithWriter(context.Background(), w, func(ctx context.Context) error {
		w.WriteSlice(profile.KeyLinks, "[]")
		return nil
	})
	if err != nil {
		t.Fatalf("serveWithWriter: %v", err)
	}
	if w.Pending() != 0 {
		t.Errorf("Pending = %d after return", w.Pending())
	}
	if v, err := scope.Get(profile.KeyLinks); err != nil || v != "[]" {
		t.Errorf("links = %q, %v; want queued value stored", v, err)
	}
}
