package status

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodeValues(t *testing.T) {
	// Values are part of the boundary contract and must never drift.
	want := map[Code]int32{
		OK:              0,
		InvalidArgument: 1,
		OutOfMemory:     2,
		ModelLoadFailed: 3,
		InferenceFailed: 4,
		InvalidState:    5,
		Unsupported:     6,
		IOError:         7,
		Internal:        99,
	}
	for code, v := range want {
		if int32(code) != v {
			t.Errorf("%s = %d, want %d", code, int32(code), v)
		}
	}
}

func TestNewIsOK(t *testing.T) {
	s := New()
	if !s.OK() {
		t.Fatal("New() should be OK")
	}
	if s.Message != "" || s.Origin != "" {
		t.Errorf("OK status must carry no message/origin, got %q/%q", s.Message, s.Origin)
	}
	if s.Err() != nil {
		t.Error("Err() on OK status should be nil")
	}
}

func TestNilStatusIsOK(t *testing.T) {
	var s *Status
	if !s.OK() {
		t.Error("nil status should report OK")
	}
	if s.Err() != nil {
		t.Error("nil status Err() should be nil")
	}
}

func TestErrorf(t *testing.T) {
	s := Errorf(InvalidArgument, "tensor_create", "expected %d bytes, got %d", 12, 8)
	if s.OK() {
		t.Fatal("error status reported OK")
	}
	if s.Code != InvalidArgument {
		t.Errorf("code = %v", s.Code)
	}
	if s.Message != "expected 12 bytes, got 8" {
		t.Errorf("message = %q", s.Message)
	}
	if s.Origin != "tensor_create" {
		t.Errorf("origin = %q", s.Origin)
	}
}

func TestWrapPreservesStatus(t *testing.T) {
	inner := Errorf(ModelLoadFailed, "", "compile failed")
	wrapped := Wrap(Internal, "module_load", fmt.Errorf("loading: %w", inner))
	if wrapped.Code != ModelLoadFailed {
		t.Errorf("code = %v, want ModelLoadFailed", wrapped.Code)
	}
	if wrapped.Origin != "module_load" {
		t.Errorf("origin = %q", wrapped.Origin)
	}
}

func TestWrapNil(t *testing.T) {
	if !Wrap(Internal, "x", nil).OK() {
		t.Error("wrapping nil should be OK")
	}
}

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", InvalidStatef("module_forward", "module not loaded"))
	if !errors.Is(err, &Status{Code: InvalidState}) {
		t.Error("errors.Is should match by code")
	}
	if errors.Is(err, &Status{Code: InferenceFailed}) {
		t.Error("errors.Is matched the wrong code")
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(nil); got != OK {
		t.Errorf("CodeOf(nil) = %v", got)
	}
	if got := CodeOf(errors.New("plain")); got != Internal {
		t.Errorf("CodeOf(plain) = %v", got)
	}
	if got := CodeOf(Inference("module_forward", errors.New("trap"))); got != InferenceFailed {
		t.Errorf("CodeOf(inference) = %v", got)
	}
}

func TestErrorString(t *testing.T) {
	s := IOErrorf("module_load_file", "open /tmp/missing.tbp")
	want := "module_load_file: io_error: open /tmp/missing.tbp"
	if s.Error() != want {
		t.Errorf("Error() = %q, want %q", s.Error(), want)
	}
}
