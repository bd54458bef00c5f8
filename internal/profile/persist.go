package profile

import (
	"context"
	"log/slog"
	"sync"
)

// LocalStore is the scoped key/value collaborator the aggregator persists to.
// Get returns storage.ErrNotFound for a missing key. Implemented by
// storage.Scope.
type LocalStore interface {
	Get(key string) (string, error)
	Set(key, value string) error
}

// SliceWriter performs best-effort slice persists. WriteSlice never reports
// failure to the caller.
type SliceWriter interface {
	WriteSlice(key, value string)
}

// syncWriter writes inline and logs failures.
type syncWriter struct {
	store  LocalStore
	logger *slog.Logger
}

func (w syncWriter) WriteSlice(key, value string) {
	if err := w.store.Set(key, value); err != nil {
		w.logger.Warn("slice persist failed", "key", key, "error", err)
	}
}

// AsyncWriter queues slice persists and writes them from Run. Writes to the
// same key are coalesced so only the latest value is stored.
type AsyncWriter struct {
	store  LocalStore
	logger *slog.Logger

	// flushMu serializes drains so an older value never lands after a newer one.
	flushMu sync.Mutex

	mu      sync.Mutex
	pending map[string]string
	order   []string
	notify  chan struct{}
}

func NewAsyncWriter(store LocalStore) *AsyncWriter {
	return &AsyncWriter{
		store:   store,
		logger:  slog.Default(),
		pending: make(map[string]string),
		notify:  make(chan struct{}, 1),
	}
}

// WriteSlice queues value for key and returns immediately.
func (w *AsyncWriter) WriteSlice(key, value string) {
	w.mu.Lock()
	if _, ok := w.pending[key]; !ok {
		w.order = append(w.order, key)
	}
	w.pending[key] = value
	w.mu.Unlock()

	select {
	case w.notify <- struct{}{}:
	default:
	}
}

// Run writes queued slices until ctx is cancelled, then flushes what is left.
func (w *AsyncWriter) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.Flush()
			return nil
		case <-w.notify:
			w.Flush()
		}
	}
}

// Flush writes every queued slice now. It returns once an earlier Flush still
// in progress has finished too.
func (w *AsyncWriter) Flush() {
	w.flushMu.Lock()
	defer w.flushMu.Unlock()

	w.mu.Lock()
	pending, order := w.pending, w.order
	w.pending = make(map[string]string)
	w.order = nil
	w.mu.Unlock()

	for _, key := range order {
		if err := w.store.Set(key, pending[key]); err != nil {
			w.logger.Warn("slice persist failed", "key", key, "error", err)
		}
	}
}

// Pending returns the number of keys waiting to be written.
func (w *AsyncWriter) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}
