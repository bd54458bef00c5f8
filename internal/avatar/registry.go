package avatar

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

const refPrefix = "preview:"

// Handle is an opaque, revocable reference to a previewed image.
type Handle struct {
	ID string
}

// Ref returns the storable identifier for h.
func (h Handle) Ref() string { return refPrefix + h.ID }

// ParseRef extracts the handle ID from a storable identifier.
func ParseRef(ref string) (string, bool) {
	id, ok := strings.CutPrefix(ref, refPrefix)
	return id, ok && id != ""
}

// Registry creates and revokes preview handles.
type Registry interface {
	Create(c Candidate) (Handle, error)
	Revoke(h Handle) error
}

// Blob is the content behind a live handle.
type Blob struct {
	MediaType string
	Data      []byte
}

// MemoryRegistry keeps preview bytes in memory until revoked.
type MemoryRegistry struct {
	mu    sync.RWMutex
	blobs map[string]Blob
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{blobs: make(map[string]Blob)}
}

func (m *MemoryRegistry) Create(c Candidate) (Handle, error) {
	h := Handle{ID: uuid.NewString()}
	data := make([]byte, len(c.Data))
	copy(data, c.Data)

	m.mu.Lock()
	m.blobs[h.ID] = Blob{MediaType: c.MediaType, Data: data}
	m.mu.Unlock()
	return h, nil
}

func (m *MemoryRegistry) Revoke(h Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blobs[h.ID]; !ok {
		return fmt.Errorf("preview handle %s not found", h.ID)
	}
	delete(m.blobs, h.ID)
	return nil
}

// Open returns the content behind a live handle ID.
func (m *MemoryRegistry) Open(id string) (Blob, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.blobs[id]
	return b, ok
}

// Len returns the number of live handles.
func (m *MemoryRegistry) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}
