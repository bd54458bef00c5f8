package profile

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

var (
	// ErrStorageUnavailable wraps a local store failure during submit.
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrUnknownSlice       = errors.New("unknown slice")
	ErrClosed             = errors.New("editor closed")
)

// ValidationError reports per-field violations from a rejected submit.
// Keys are scalar field IDs, "visibility", "interests", or "links[i]".
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	keys := slices.Sorted(maps.Keys(e.Fields))
	return fmt.Sprintf("profile has %d invalid field(s): %s", len(keys), strings.Join(keys, ", "))
}

func cloneViolations(in map[string][]string) map[string][]string {
	if in == nil {
		return nil
	}
	out := make(map[string][]string, len(in))
	for k, v := range in {
		out[k] = slices.Clone(v)
	}
	return out
}
