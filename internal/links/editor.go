// Package links implements the external-links widget: an ordered list of
// (site name, URL) rows validated as a whole on every edit.
package links

import (
	"errors"
	"fmt"
	"regexp"
	"slices"

	"github.com/google/uuid"
)

var (
	ErrIndexOutOfRange = errors.New("link index out of range")
	ErrUnknownField    = errors.New("unknown link field")
)

// Editable fields of an Entry.
const (
	FieldSiteName = "siteName"
	FieldLink     = "link"
)

const (
	MsgSiteNameRequired = "Site name is required."
	MsgLinkScheme       = "Link must start with http:// or https://"
)

var schemeRe = regexp.MustCompile(`^https?://`)

// Entry is one link row. ID is generated when the row is created and does
// not change when earlier rows are removed.
type Entry struct {
	ID       string `json:"id,omitempty"`
	SiteName string `json:"siteName"`
	Link     string `json:"link"`
}

// Change is emitted after every mutation. Violations is parallel to Entries.
type Change struct {
	Entries    []Entry
	Violations [][]string
}

// Editor holds the rows and their current violations. It is not safe for
// concurrent use.
type Editor struct {
	entries    []Entry
	violations [][]string
	onChange   func(Change)
}

// NewEditor seeds the editor with initial rows. Rows without an ID get one.
// Initial rows start with no violations shown.
func NewEditor(initial []Entry, onChange func(Change)) *Editor {
	e := &Editor{onChange: onChange}
	e.Reset(initial)
	return e
}

// Reset replaces the rows without emitting a change and clears violations.
func (e *Editor) Reset(entries []Entry) {
	e.entries = make([]Entry, len(entries))
	for i, en := range entries {
		if en.ID == "" {
			en.ID = uuid.NewString()
		}
		e.entries[i] = en
	}
	e.violations = make([][]string, len(entries))
}

// Revalidate recomputes violations for every row without emitting a change.
func (e *Editor) Revalidate() [][]string {
	e.violations = ValidateAll(e.entries)
	return e.Violations()
}

func (e *Editor) Len() int { return len(e.entries) }

// Entries returns a copy of the rows.
func (e *Editor) Entries() []Entry { return slices.Clone(e.entries) }

// Violations returns a copy of the per-row violation lists.
func (e *Editor) Violations() [][]string { return cloneViolations(e.violations) }

// IndexOf returns the current position of the row with id, or -1.
func (e *Editor) IndexOf(id string) int {
	return slices.IndexFunc(e.entries, func(en Entry) bool { return en.ID == id })
}

// AddRow appends an empty row. The new row shows no violations until it is
// edited or the list is revalidated.
func (e *Editor) AddRow() Entry {
	en := Entry{ID: uuid.NewString()}
	e.entries = append(e.entries, en)
	e.violations = append(e.violations, nil)
	e.emit()
	return en
}

// RemoveRow deletes the row at index; later rows shift down by one.
func (e *Editor) RemoveRow(index int) error {
	if err := e.checkIndex(index); err != nil {
		return err
	}
	e.entries = slices.Delete(e.entries, index, index+1)
	e.violations = slices.Delete(e.violations, index, index+1)
	e.emit()
	return nil
}

// SetField updates one field of the row at index and revalidates every row.
// Invalid values are still stored; violations are advisory.
func (e *Editor) SetField(index int, field, value string) error {
	if err := e.checkIndex(index); err != nil {
		return err
	}
	switch field {
	case FieldSiteName:
		e.entries[index].SiteName = value
	case FieldLink:
		e.entries[index].Link = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	e.violations = ValidateAll(e.entries)
	e.emit()
	return nil
}

func (e *Editor) checkIndex(index int) error {
	if index < 0 || index >= len(e.entries) {
		return fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, index, len(e.entries))
	}
	return nil
}

func (e *Editor) emit() {
	if e.onChange != nil {
		e.onChange(Change{Entries: e.Entries(), Violations: e.Violations()})
	}
}

// ValidateEntry checks a single row.
func ValidateEntry(en Entry) []string {
	var v []string
	if en.SiteName == "" {
		v = append(v, MsgSiteNameRequired)
	}
	if en.Link != "" && !schemeRe.MatchString(en.Link) {
		v = append(v, MsgLinkScheme)
	}
	return v
}

// ValidateAll checks every row. The result is parallel to entries.
func ValidateAll(entries []Entry) [][]string {
	out := make([][]string, len(entries))
	for i, en := range entries {
		out[i] = ValidateEntry(en)
	}
	return out
}

func cloneViolations(in [][]string) [][]string {
	out := make([][]string, len(in))
	for i, v := range in {
		out[i] = slices.Clone(v)
	}
	return out
}
