package sanitizer

import "testing"

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"E.164", "+12125551234", "+12125551234"},
		{"international with spaces", "+44 20 7946 0958", "+442079460958"},
		{"US national with punctuation", "(212) 555-1234", "+12125551234"},
		{"US national with dashes", "212-555-1234", "+12125551234"},
		{"surrounding whitespace", "  +1 212 555 1234  ", "+12125551234"},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
		{"too short", "+1", ""},
		{"local without area code", "555-1234", ""},
		{"letters", "not-a-phone", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizePhone(tt.input); got != tt.want {
				t.Errorf("NormalizePhone(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizePhone_Idempotent(t *testing.T) {
	for _, in := range []string{"(212) 555-1234", "+44 20 7946 0958"} {
		once := NormalizePhone(in)
		if twice := NormalizePhone(once); once != twice {
			t.Errorf("NormalizePhone not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}
