package chapters

import (
	"strings"
	"testing"
)

func TestNewJoinCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := NewJoinCode()
		if err != nil {
			t.Fatalf("NewJoinCode: %v", err)
		}
		if len(code) != 8 {
			t.Fatalf("code %q: want 8 chars", code)
		}
		for _, ch := range code {
			if !strings.ContainsRune(joinCodeAlphabet, ch) {
				t.Fatalf("code %q contains %q outside the alphabet", code, ch)
			}
		}
		seen[code] = true
	}
	if len(seen) < 45 {
		t.Fatalf("expected mostly unique codes, got %d unique of 50", len(seen))
	}
}

func TestSlugRegex(t *testing.T) {
	valid := []string{"sigma", "alpha-beta", "chapter-42", "ab"}
	invalid := []string{"", "a", "-leading", "UPPER", "with space", "a_b", strings.Repeat("x", 65)}

	for _, s := range valid {
		if !slugRegex.MatchString(s) {
			t.Errorf("%q should be a valid slug", s)
		}
	}
	for _, s := range invalid {
		if slugRegex.MatchString(s) {
			t.Errorf("%q should be rejected", s)
		}
	}
}
