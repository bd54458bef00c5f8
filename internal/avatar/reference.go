// Package avatar gates candidate avatar images and tracks the single live
// preview handle for the editor session.
package avatar

import (
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"slices"
	"strings"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrFileTooLarge      = errors.New("file too large")
)

// MaxSize is the largest accepted candidate, in bytes.
const MaxSize = 5 << 20

// SupportedTypes lists the accepted declared media types.
var SupportedTypes = []string{"image/jpeg", "image/png", "image/jpg"}

// Candidate is an image the user picked. Size is the declared size; when it is
// zero the length of Data is used.
type Candidate struct {
	Name      string
	MediaType string
	Size      int64
	Data      []byte
}

func (c Candidate) size() int64 {
	if c.Size > 0 {
		return c.Size
	}
	return int64(len(c.Data))
}

// Check reports whether c may become the avatar.
func Check(c Candidate) error {
	mt, _, err := mime.ParseMediaType(c.MediaType)
	if err != nil || !slices.Contains(SupportedTypes, strings.ToLower(mt)) {
		return fmt.Errorf("%w: %q (only .jpg, .jpeg, and .png files are supported)", ErrUnsupportedFormat, c.MediaType)
	}
	if n := c.size(); n > MaxSize {
		return fmt.Errorf("%w: %d bytes (file size should not exceed 5MB)", ErrFileTooLarge, n)
	}
	return nil
}

// Reference owns at most one live preview handle at a time. Ref is the
// storable identifier of the current avatar; after a restore it may name a
// handle from an earlier session that is no longer live.
type Reference struct {
	registry Registry
	live     *Handle
	ref      string
	logger   *slog.Logger
}

// NewReference creates a Reference backed by registry. restoredRef is the
// identifier persisted by a previous session, or "".
func NewReference(registry Registry, restoredRef string) *Reference {
	return &Reference{
		registry: registry,
		ref:      restoredRef,
		logger:   slog.Default(),
	}
}

// Accept validates c and, on success, makes a new preview handle current and
// releases the previous one. On failure nothing changes.
func (r *Reference) Accept(c Candidate) (Handle, error) {
	if err := Check(c); err != nil {
		return Handle{}, err
	}
	h, err := r.registry.Create(c)
	if err != nil {
		return Handle{}, fmt.Errorf("creating preview handle: %w", err)
	}
	r.release()
	r.live = &h
	r.ref = h.Ref()
	return h, nil
}

// Restore releases any live handle and points the reference at a stored
// identifier. Restoring the current identifier changes nothing.
func (r *Reference) Restore(ref string) {
	if ref == r.ref {
		return
	}
	r.release()
	r.ref = ref
}

// Ref returns the storable identifier of the current avatar.
func (r *Reference) Ref() string { return r.ref }

// Live returns the handle created in this session, if any.
func (r *Reference) Live() (Handle, bool) {
	if r.live == nil {
		return Handle{}, false
	}
	return *r.live, true
}

// Close releases the live handle. The storable Ref is kept.
func (r *Reference) Close() {
	r.release()
}

func (r *Reference) release() {
	if r.live == nil {
		return
	}
	if err := r.registry.Revoke(*r.live); err != nil {
		r.logger.Warn("releasing avatar preview", "handle", r.live.ID, "error", err)
	}
	r.live = nil
}
