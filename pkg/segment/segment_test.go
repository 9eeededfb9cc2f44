package segment

import (
	"errors"
	"strings"
	"testing"
)

func TestNewNamespace_Boundary(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{"empty", "", true},
		{"one byte", "a", false},
		{"255 bytes", strings.Repeat("a", 255), false},
		{"256 bytes", strings.Repeat("a", 256), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewNamespace(tc.in)
			if tc.wantErr && !errors.Is(err, ErrBadNamespace) {
				t.Fatalf("NewNamespace(%q) = %v, want ErrBadNamespace", tc.in, err)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("NewNamespace(%q) = %v, want nil", tc.in, err)
			}
		})
	}
}

func TestNewID_Empty(t *testing.T) {
	if _, err := NewID(""); !errors.Is(err, ErrEmptyID) {
		t.Fatalf("NewID(\"\") = %v, want ErrEmptyID", err)
	}
	id, err := NewID("seg-1")
	if err != nil {
		t.Fatalf("NewID(seg-1) = %v, want nil", err)
	}
	if id.Topic() != "seg-1" {
		t.Errorf("Topic() = %q, want %q", id.Topic(), "seg-1")
	}
}

func TestValidatePayload(t *testing.T) {
	if err := ValidatePayload(make([]byte, MaxSize)); err != nil {
		t.Errorf("ValidatePayload(MaxSize) = %v, want nil", err)
	}
	if err := ValidatePayload(make([]byte, MaxSize+1)); !errors.Is(err, ErrTooLarge) {
		t.Errorf("ValidatePayload(MaxSize+1) = %v, want ErrTooLarge", err)
	}
}
