package avatar

import (
	"errors"
	"testing"
)

func png(size int64) Candidate {
	return Candidate{Name: "me.png", MediaType: "image/png", Size: size, Data: []byte("png-bytes")}
}

func TestAccept_Supersedes(t *testing.T) {
	reg := NewMemoryRegistry()
	ref := NewReference(reg, "")

	h1, err := ref.Accept(png(1024))
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if ref.Ref() != h1.Ref() {
		t.Errorf("Ref = %q, want %q", ref.Ref(), h1.Ref())
	}

	h2, err := ref.Accept(Candidate{MediaType: "image/jpeg", Data: []byte("jpg")})
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if _, ok := reg.Open(h1.ID); ok {
		t.Error("previous handle was not released")
	}
	if _, ok := reg.Open(h2.ID); !ok {
		t.Error("new handle is not live")
	}
	if reg.Len() != 1 {
		t.Errorf("live handles = %d, want 1", reg.Len())
	}
}

func TestAccept_TooLargeKeepsPrevious(t *testing.T) {
	reg := NewMemoryRegistry()
	ref := NewReference(reg, "")
	h, err := ref.Accept(png(1024))
	if err != nil {
		t.Fatal(err)
	}

	_, err = ref.Accept(png(6 << 20))
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("err = %v, want ErrFileTooLarge", err)
	}
	live, ok := ref.Live()
	if !ok || live != h {
		t.Errorf("live handle = %+v (%v), want %+v", live, ok, h)
	}
	if _, ok := reg.Open(h.ID); !ok {
		t.Error("previous handle was released by a rejected attempt")
	}
	if ref.Ref() != h.Ref() {
		t.Errorf("Ref changed to %q", ref.Ref())
	}
}

func TestAccept_ExactlyMaxSize(t *testing.T) {
	ref := NewReference(NewMemoryRegistry(), "")
	if _, err := ref.Accept(png(MaxSize)); err != nil {
		t.Errorf("5 MiB candidate rejected: %v", err)
	}
}

func TestAccept_UnsupportedFormat(t *testing.T) {
	ref := NewReference(NewMemoryRegistry(), "preview:old")
	for _, mt := range []string{"image/gif", "application/pdf", "", "not a type"} {
		_, err := ref.Accept(Candidate{MediaType: mt, Size: 10})
		if !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("%q: err = %v, want ErrUnsupportedFormat", mt, err)
		}
	}
	if ref.Ref() != "preview:old" {
		t.Errorf("restored ref changed to %q", ref.Ref())
	}
	if _, ok := ref.Live(); ok {
		t.Error("restored ref should not be live")
	}
}

func TestCheck_MediaTypeParams(t *testing.T) {
	if err := Check(Candidate{MediaType: "IMAGE/JPG", Size: 1}); err != nil {
		t.Errorf("upper-case type rejected: %v", err)
	}
	if err := Check(Candidate{MediaType: "image/png; charset=binary", Size: 1}); err != nil {
		t.Errorf("type with params rejected: %v", err)
	}
}

func TestClose_Releases(t *testing.T) {
	reg := NewMemoryRegistry()
	ref := NewReference(reg, "")
	h, _ := ref.Accept(png(1))
	ref.Close()
	if reg.Len() != 0 {
		t.Error("Close did not release the live handle")
	}
	if ref.Ref() != h.Ref() {
		t.Error("Close should keep the storable ref")
	}
	ref.Close()
}

func TestParseRef(t *testing.T) {
	if id, ok := ParseRef("preview:abc"); !ok || id != "abc" {
		t.Errorf("ParseRef = %q, %v", id, ok)
	}
	if _, ok := ParseRef("blob:abc"); ok {
		t.Error("foreign ref parsed")
	}
	if _, ok := ParseRef("preview:"); ok {
		t.Error("empty id parsed")
	}
}

func TestRestore_SameRefKeepsLiveHandle(t *testing.T) {
	reg := NewMemoryRegistry()
	ref := NewReference(reg, "")
	h, err := ref.Accept(png(1024))
	if err != nil {
		t.Fatal(err)
	}

	ref.Restore(h.Ref())
	if _, ok := reg.Open(h.ID); !ok {
		t.Error("restoring the current ref released the live handle")
	}
	if live, ok := ref.Live(); !ok || live != h {
		t.Errorf("live handle = %+v (%v), want %+v", live, ok, h)
	}
}
