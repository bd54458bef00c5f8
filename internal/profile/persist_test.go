package profile

import (
	"context"
	"sync"
	"testing"
	"time"
)

// blockingStore holds its first Set until release is closed.
type blockingStore struct {
	*mockStore
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (b *blockingStore) Set(key, value string) error {
	b.once.Do(func() {
		close(b.entered)
		<-b.release
	})
	return b.mockStore.Set(key, value)
}

func TestAsyncWriter_Coalesces(t *testing.T) {
	store := newMockStore()
	w := NewAsyncWriter(store)

	w.WriteSlice(KeyLinks, "[1]")
	w.WriteSlice(KeyAvatar, "preview:a")
	w.WriteSlice(KeyLinks, "[2]")
	if w.Pending() != 2 {
		t.Fatalf("Pending = %d, want 2", w.Pending())
	}

	w.Flush()
	if v, _ := store.get(KeyLinks); v != "[2]" {
		t.Errorf("links = %q, want latest value", v)
	}
	if len(store.sets) != 2 || store.sets[0] != KeyLinks || store.sets[1] != KeyAvatar {
		t.Errorf("writes = %v, want one per key in first-queued order", store.sets)
	}
}

func TestAsyncWriter_RunFlushesOnCancel(t *testing.T) {
	store := newMockStore()
	w := NewAsyncWriter(store)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	w.WriteSlice(KeyInterests, `["Go"]`)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if v, _ := store.get(KeyInterests); v != `["Go"]` {
		t.Errorf("interests = %q, want flushed value", v)
	}
}

func TestAsyncWriter_FailureIsSwallowed(t *testing.T) {
	store := newMockStore()
	store.setFailing(true)
	w := NewAsyncWriter(store)
	w.WriteSlice(KeyLinks, "[]")
	w.Flush()
	if w.Pending() != 0 {
		t.Error("failed write left in queue")
	}
}

func TestAggregatorWithAsyncWriter(t *testing.T) {
	store := newMockStore()
	w := NewAsyncWriter(store)
	a := NewAggregator(store, WithSliceWriter(w))
	defer a.Close()

	a.AddCatalogInterest("AI")
	if _, ok := store.get(KeyInterests); ok {
		t.Fatal("async writer wrote inline")
	}
	w.Flush()
	if v, _ := store.get(KeyInterests); v != `["AI"]` {
		t.Errorf("interests = %q", v)
	}
}

func TestAsyncWriter_OverlappingFlushKeepsLatest(t *testing.T) {
	store := &blockingStore{
		mockStore: newMockStore(),
		entered:   make(chan struct{}),
		release:   make(chan struct{}),
	}
	w := NewAsyncWriter(store)

	w.WriteSlice(KeyLinks, "v1")
	first := make(chan struct{})
	go func() {
		w.Flush()
		close(first)
	}()
	<-store.entered

	w.WriteSlice(KeyLinks, "v2")
	second := make(chan struct{})
	go func() {
		w.Flush()
		close(second)
	}()

	select {
	case <-second:
		t.Fatal("second Flush finished while the first was still writing")
	case <-time.After(50 * time.Millisecond):
	}
	close(store.release)

	for _, ch := range []chan struct{}{first, second} {
		select {
		case <-ch:
		case <-time.After(2 * time.Second):
			t.Fatal("Flush did not return")
		}
	}
	if v, _ := store.get(KeyLinks); v != "v2" {
		t.Errorf("links = %q, want v2", v)
	}
}
