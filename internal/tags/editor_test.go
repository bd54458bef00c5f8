package tags

import (
	"slices"
	"strings"
	"testing"
)

type recorder struct {
	calls [][]string
}

func (r *recorder) onChange(tags []string) { r.calls = append(r.calls, tags) }

func (r *recorder) last() []string {
	if len(r.calls) == 0 {
		return nil
	}
	return r.calls[len(r.calls)-1]
}

func TestAddFromCatalog_ThenRemove(t *testing.T) {
	rec := &recorder{}
	e := NewEditor([]string{"React", "Python"}, rec.onChange)

	if !e.AddFromCatalog("AI") {
		t.Fatal("AddFromCatalog(AI) = false")
	}
	if got := strings.Join(rec.last(), " "); got != "React Python AI" {
		t.Errorf("after add = %q, want %q", got, "React Python AI")
	}

	if !e.Remove("Python") {
		t.Fatal("Remove(Python) = false")
	}
	if got := strings.Join(rec.last(), " "); got != "React AI" {
		t.Errorf("after remove = %q, want %q", got, "React AI")
	}
}

func TestAddFromCatalog_Idempotent(t *testing.T) {
	rec := &recorder{}
	e := NewEditor(nil, rec.onChange)

	e.AddFromCatalog("Go")
	e.AddFromCatalog("Go")

	if got := e.Tags(); len(got) != 1 || got[0] != "Go" {
		t.Errorf("tags = %v, want [Go]", got)
	}
	if len(rec.calls) != 1 {
		t.Errorf("onChange called %d times, want 1", len(rec.calls))
	}
}

func TestAddFromCatalog_CapClosesDropdown(t *testing.T) {
	initial := make([]string, MaxTags)
	for i := range initial {
		initial[i] = string(rune('a' + i))
	}
	rec := &recorder{}
	e := NewEditor(initial, rec.onChange)
	e.ToggleDropdown()
	if !e.DropdownOpen() {
		t.Fatal("dropdown should be open")
	}

	if e.AddFromCatalog("AI") {
		t.Error("11th tag should be rejected")
	}
	if n := len(e.Tags()); n != MaxTags {
		t.Errorf("len = %d, want %d", n, MaxTags)
	}
	if e.DropdownOpen() {
		t.Error("dropdown should close even on a no-op add")
	}
	if len(rec.calls) != 0 {
		t.Errorf("onChange called on no-op: %v", rec.calls)
	}
}

func TestAddCustom(t *testing.T) {
	rec := &recorder{}
	e := NewEditor([]string{"React"}, rec.onChange)
	e.ShowInput()
	e.SetInput("  Rust ")

	if !e.SubmitInput() {
		t.Fatal("SubmitInput = false")
	}
	if got := e.Tags(); !slices.Equal(got, []string{"React", "Rust"}) {
		t.Errorf("tags = %v", got)
	}
	if e.Input() != "" || e.InputVisible() {
		t.Errorf("input should be cleared and hidden, got %q visible=%v", e.Input(), e.InputVisible())
	}

	e.ShowInput()
	e.SetInput("React")
	if e.SubmitInput() {
		t.Error("duplicate custom tag should be rejected")
	}
	if e.Input() != "React" || !e.InputVisible() {
		t.Error("input should be kept on a rejected custom tag")
	}

	if e.AddCustom("   ") {
		t.Error("empty custom tag should be rejected")
	}
}

func TestAddCustom_SharesCap(t *testing.T) {
	e := NewEditor(Catalog[:MaxTags], nil)
	if e.AddCustom("Rust") {
		t.Error("custom tag accepted past the cap")
	}
}

func TestRemove_Missing(t *testing.T) {
	rec := &recorder{}
	e := NewEditor([]string{"React"}, rec.onChange)
	if e.Remove("Vue") {
		t.Error("Remove of missing tag returned true")
	}
	if len(rec.calls) != 0 {
		t.Error("onChange called for a missing tag")
	}
}

func TestCaseSensitive(t *testing.T) {
	e := NewEditor([]string{"ai"}, nil)
	if !e.AddFromCatalog("AI") {
		t.Error("tags differing in case should both be kept")
	}
}

func TestNormalize(t *testing.T) {
	in := []string{" Go ", "", "Go", "caf\u00e9", "cafe\u0301"}
	got := Normalize(in)
	want := []string{"Go", "caf\u00e9"}
	if !slices.Equal(got, want) {
		t.Errorf("Normalize = %q, want %q", got, want)
	}
}

func TestEmittedCopyIsIndependent(t *testing.T) {
	rec := &recorder{}
	e := NewEditor(nil, rec.onChange)
	e.AddFromCatalog("Go")
	rec.last()[0] = "mutated"
	if e.Tags()[0] != "Go" {
		t.Error("editor state shares memory with emitted slice")
	}
}

func TestOutsidePointerClosesDropdown(t *testing.T) {
	bus := NewBus()
	e := NewEditor(nil, nil)
	e.SetBounds(Rect{X: 0, Y: 0, W: 100, H: 50})
	e.Mount(bus)
	if bus.Len() != 1 {
		t.Fatalf("subscriptions = %d, want 1", bus.Len())
	}

	e.ToggleDropdown()
	bus.Publish(PointerEvent{X: 10, Y: 10})
	if !e.DropdownOpen() {
		t.Error("inside click should keep dropdown open")
	}

	bus.Publish(PointerEvent{X: 150, Y: 10})
	if e.DropdownOpen() {
		t.Error("outside click should close dropdown")
	}

	e.Close()
	if bus.Len() != 0 {
		t.Errorf("subscriptions after Close = %d, want 0", bus.Len())
	}

	e.ToggleDropdown()
	bus.Publish(PointerEvent{X: 150, Y: 10})
	if !e.DropdownOpen() {
		t.Error("closed editor still receives pointer events")
	}
}
