package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Entry is one stored key/value pair.
type Entry struct {
	Scope     string
	Key       string
	Value     string
	UpdatedAt time.Time
}
