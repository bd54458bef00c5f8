// Package tags implements the interests widget: a bounded, duplicate-free,
// insertion-ordered list of string tags.
package tags

import (
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// MaxTags caps the number of tags a list may hold.
const MaxTags = 10

// Catalog is the fixed list of suggested interests.
var Catalog = []string{
	"React", "Product", "Web3", "JavaScript", "Node.js", "Python", "Machine Learning",
	"Design", "Blockchain", "UI/UX", "Data Science", "Marketing", "Cloud Computing", "AI", "DevOps",
}

// Editor holds the interests widget state. It is not safe for concurrent use;
// callers serialize access.
type Editor struct {
	tags         []string
	input        string
	inputVisible bool
	dropdownOpen bool
	bounds       Rect

	onChange    func([]string)
	unsubscribe func()
}

// NewEditor seeds an editor with initial tags. onChange receives a fresh copy
// of the list after every mutation; it may be nil.
func NewEditor(initial []string, onChange func([]string)) *Editor {
	return &Editor{
		tags:     Normalize(initial),
		onChange: onChange,
	}
}

// Mount subscribes to src so a pointer event outside the editor's bounds
// closes the dropdown. Close releases the subscription.
func (e *Editor) Mount(src PointerSource) {
	if e.unsubscribe != nil {
		return
	}
	e.unsubscribe = src.Subscribe(e.handlePointer)
}

// Close releases the pointer subscription acquired by Mount.
func (e *Editor) Close() {
	if e.unsubscribe != nil {
		e.unsubscribe()
		e.unsubscribe = nil
	}
}

func (e *Editor) handlePointer(ev PointerEvent) {
	if !e.bounds.Contains(ev) {
		e.dropdownOpen = false
	}
}

// SetBounds records the region the editor occupies on screen.
func (e *Editor) SetBounds(r Rect) { e.bounds = r }

// Tags returns a copy of the current list.
func (e *Editor) Tags() []string { return slices.Clone(e.tags) }

func (e *Editor) DropdownOpen() bool { return e.dropdownOpen }

// ToggleDropdown flips the suggestion dropdown.
func (e *Editor) ToggleDropdown() { e.dropdownOpen = !e.dropdownOpen }

func (e *Editor) InputVisible() bool { return e.inputVisible }

// ShowInput reveals the custom-tag input.
func (e *Editor) ShowInput() { e.inputVisible = true }

func (e *Editor) Input() string { return e.input }

// SetInput replaces the custom-tag input buffer.
func (e *Editor) SetInput(s string) { e.input = s }

// AddFromCatalog appends tag unless it is already present or the list is
// full. The dropdown is closed either way.
func (e *Editor) AddFromCatalog(tag string) bool {
	defer func() { e.dropdownOpen = false }()
	return e.add(tag)
}

// AddCustom appends a user-defined tag. On success the input buffer is
// cleared and hidden; on a no-op both are left as they were.
func (e *Editor) AddCustom(tag string) bool {
	if !e.add(tag) {
		return false
	}
	e.input = ""
	e.inputVisible = false
	return true
}

// SubmitInput adds the current input buffer as a custom tag.
func (e *Editor) SubmitInput() bool {
	return e.AddCustom(e.input)
}

// Reset replaces the list without emitting a change.
func (e *Editor) Reset(tags []string) {
	e.tags = Normalize(tags)
}

// Remove deletes tag if present.
func (e *Editor) Remove(tag string) bool {
	tag = normalizeTag(tag)
	i := slices.Index(e.tags, tag)
	if i < 0 {
		return false
	}
	e.tags = slices.Delete(e.tags, i, i+1)
	e.emit()
	return true
}

func (e *Editor) add(tag string) bool {
	tag = normalizeTag(tag)
	if tag == "" || len(e.tags) >= MaxTags || slices.Contains(e.tags, tag) {
		return false
	}
	e.tags = append(e.tags, tag)
	e.emit()
	return true
}

func (e *Editor) emit() {
	if e.onChange != nil {
		e.onChange(slices.Clone(e.tags))
	}
}

// Normalize trims and NFC-normalizes each tag, drops empties and duplicates
// keeping first occurrence, and caps the result at MaxTags.
func Normalize(in []string) []string {
	out := make([]string, 0, len(in))
	for _, t := range in {
		t = normalizeTag(t)
		if t == "" || slices.Contains(out, t) {
			continue
		}
		out = append(out, t)
		if len(out) == MaxTags {
			break
		}
	}
	return out
}

func normalizeTag(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
