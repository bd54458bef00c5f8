package links

import (
	"errors"
	"slices"
	"testing"
)

type recorder struct {
	changes []Change
}

func (r *recorder) onChange(c Change) { r.changes = append(r.changes, c) }

func (r *recorder) last(t *testing.T) Change {
	t.Helper()
	if len(r.changes) == 0 {
		t.Fatal("no change emitted")
	}
	return r.changes[len(r.changes)-1]
}

func TestAddRowAndValidateLink(t *testing.T) {
	rec := &recorder{}
	e := NewEditor(nil, rec.onChange)

	e.AddRow()
	c := rec.last(t)
	if len(c.Entries) != 1 || c.Entries[0].SiteName != "" || c.Entries[0].Link != "" {
		t.Fatalf("after AddRow entries = %+v", c.Entries)
	}
	if len(c.Violations[0]) != 0 {
		t.Errorf("new row should show no violations, got %v", c.Violations[0])
	}

	if err := e.SetField(0, FieldLink, "ftp://x"); err != nil {
		t.Fatal(err)
	}
	c = rec.last(t)
	if !slices.Contains(c.Violations[0], MsgLinkScheme) {
		t.Errorf("violations = %v, want scheme violation", c.Violations[0])
	}
	if c.Entries[0].Link != "ftp://x" {
		t.Error("invalid value must still be stored")
	}

	if err := e.SetField(0, FieldLink, "https://x.com"); err != nil {
		t.Fatal(err)
	}
	c = rec.last(t)
	if slices.Contains(c.Violations[0], MsgLinkScheme) {
		t.Errorf("violations = %v, scheme violation should be gone", c.Violations[0])
	}

	if err := e.SetField(0, FieldSiteName, "Example"); err != nil {
		t.Fatal(err)
	}
	if v := rec.last(t).Violations[0]; len(v) != 0 {
		t.Errorf("complete row still has violations %v", v)
	}
}

func TestRemoveRowShifts(t *testing.T) {
	initial := []Entry{
		{SiteName: "a", Link: "https://a"},
		{SiteName: "b", Link: "https://b"},
		{SiteName: "c", Link: "https://c"},
		{SiteName: "d", Link: "https://d"},
	}
	rec := &recorder{}
	e := NewEditor(initial, rec.onChange)
	before := e.Entries()

	if err := e.RemoveRow(1); err != nil {
		t.Fatal(err)
	}
	after := rec.last(t).Entries
	if len(after) != len(before)-1 {
		t.Fatalf("len = %d, want %d", len(after), len(before)-1)
	}
	if after[0] != before[0] {
		t.Errorf("entry 0 changed: %+v", after[0])
	}
	for i := 1; i < len(after); i++ {
		if after[i] != before[i+1] {
			t.Errorf("entry %d = %+v, want %+v", i, after[i], before[i+1])
		}
	}
	if got := e.IndexOf(before[3].ID); got != 2 {
		t.Errorf("IndexOf(d) = %d, want 2", got)
	}
}

func TestRemoveRowKeepsViolationsAligned(t *testing.T) {
	e := NewEditor([]Entry{{SiteName: "a"}, {SiteName: ""}}, nil)
	if err := e.SetField(0, FieldLink, "bad"); err != nil {
		t.Fatal(err)
	}
	if err := e.RemoveRow(0); err != nil {
		t.Fatal(err)
	}
	v := e.Violations()
	if len(v) != 1 || !slices.Equal(v[0], []string{MsgSiteNameRequired}) {
		t.Errorf("violations = %v, want the former row 1 violations", v)
	}
}

func TestSetFieldRevalidatesAllRows(t *testing.T) {
	e := NewEditor([]Entry{{SiteName: "", Link: "x"}, {SiteName: "b"}}, nil)
	if err := e.SetField(1, FieldLink, "https://b"); err != nil {
		t.Fatal(err)
	}
	v := e.Violations()
	want := []string{MsgSiteNameRequired, MsgLinkScheme}
	if !slices.Equal(v[0], want) {
		t.Errorf("row 0 violations = %v, want %v", v[0], want)
	}
	if len(v[1]) != 0 {
		t.Errorf("row 1 violations = %v", v[1])
	}
}

func TestErrors(t *testing.T) {
	e := NewEditor(nil, nil)
	if err := e.RemoveRow(0); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("RemoveRow err = %v", err)
	}
	e.AddRow()
	if err := e.SetField(0, "url", "x"); !errors.Is(err, ErrUnknownField) {
		t.Errorf("SetField err = %v", err)
	}
	if err := e.SetField(-1, FieldLink, "x"); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("SetField err = %v", err)
	}
}

func TestStableIDs(t *testing.T) {
	e := NewEditor([]Entry{{ID: "keep", SiteName: "a"}, {SiteName: "b"}}, nil)
	entries := e.Entries()
	if entries[0].ID != "keep" {
		t.Errorf("existing ID replaced: %q", entries[0].ID)
	}
	if entries[1].ID == "" {
		t.Error("missing ID not generated")
	}
	added := e.AddRow()
	if added.ID == "" || added.ID == entries[1].ID {
		t.Errorf("AddRow ID = %q", added.ID)
	}
}
