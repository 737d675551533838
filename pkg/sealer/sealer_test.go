package sealer

import (
	"errors"
	"testing"
)

const testKey = "lfQVRuulcL2iOhOJ2r8BYTweoSKwVAJnIF9U+AL+M60="

func TestSealer_RoundTrip(t *testing.T) {
	s, err := New(testKey)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	sealed, err := s.Seal("1//0refresh-token")
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}
	if sealed == "1//0refresh-token" {
		t.Fatal("sealed value must not equal plaintext")
	}

	got, err := s.Open(sealed)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if got != "1//0refresh-token" {
		t.Errorf("Open() = %q, want original", got)
	}
}

func TestSealer_NonceIsRandom(t *testing.T) {
	s, _ := New(testKey)
	a, _ := s.Seal("same")
	b, _ := s.Seal("same")
	if a == b {
		t.Error("two seals of the same plaintext should differ")
	}
}

func TestSealer_Tampered(t *testing.T) {
	s, _ := New(testKey)
	sealed, _ := s.Seal("secret")

	tampered := []byte(sealed)
	if tampered[0] == 'A' {
		tampered[0] = 'B'
	} else {
		tampered[0] = 'A'
	}

	if _, err := s.Open(string(tampered)); err == nil {
		t.Error("expected error for tampered value")
	}
}

func TestSealer_Malformed(t *testing.T) {
	s, _ := New(testKey)

	if _, err := s.Open("%%%"); !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed for bad base64, got %v", err)
	}
	if _, err := s.Open("AAAA"); !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed for short value, got %v", err)
	}
}

func TestNew_InvalidKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{name: "not base64", key: "***"},
		{name: "too short", key: "c2hvcnQ="},
		{name: "empty", key: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.key); err == nil {
				t.Errorf("New(%q) expected error", tt.key)
			}
		})
	}
}
