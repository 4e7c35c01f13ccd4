package util

import (
	"regexp"
	"testing"
)

var (
	hexPattern   = regexp.MustCompile(`^[0-9a-f]*$`)
	digitPattern = regexp.MustCompile(`^[0-9]*$`)
)

func TestGenerateRandomID(t *testing.T) {
	tests := []struct {
		name    string
		prefix  string
		hexLen  int
		wantLen int
	}{
		{"place id", "place_", 12, 18},
		{"no prefix", "", 8, 8},
		{"empty hex part", "v_", 0, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GenerateRandomID(tt.prefix, tt.hexLen)
			if len(got) != tt.wantLen {
				t.Fatalf("GenerateRandomID(%q, %d) = %q, want length %d", tt.prefix, tt.hexLen, got, tt.wantLen)
			}
			if got[:len(tt.prefix)] != tt.prefix {
				t.Errorf("GenerateRandomID(%q, %d) = %q, missing prefix", tt.prefix, tt.hexLen, got)
			}
			if !hexPattern.MatchString(got[len(tt.prefix):]) {
				t.Errorf("GenerateRandomID(%q, %d) = %q, suffix is not lowercase hex", tt.prefix, tt.hexLen, got)
			}
		})
	}
}

func TestGenerateRandomHexNonPositive(t *testing.T) {
	for _, n := range []int{0, -4} {
		if got := GenerateRandomHex(n); got != "" {
			t.Errorf("GenerateRandomHex(%d) = %q, want empty", n, got)
		}
	}
}

func TestGeneratePublishableKey(t *testing.T) {
	key := GeneratePublishableKey()
	if !regexp.MustCompile(`^pk_[0-9a-f]{24}$`).MatchString(key) {
		t.Errorf("GeneratePublishableKey() = %q, want pk_ and 24 hex digits", key)
	}
	if other := GeneratePublishableKey(); other == key {
		t.Errorf("two publishable keys collided: %q", key)
	}
}

func TestGenerateVerificationCode(t *testing.T) {
	for _, n := range []int{-1, 0, 6} {
		code := GenerateVerificationCode(n)
		want := max(n, 0)
		if len(code) != want || !digitPattern.MatchString(code) {
			t.Errorf("GenerateVerificationCode(%d) = %q, want %d digits", n, code, want)
		}
	}
}

func TestRandomIDsDoNotRepeat(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := GenerateRandomID("o_", 16)
		if seen[id] {
			t.Fatalf("GenerateRandomID repeated %q after %d draws", id, i)
		}
		seen[id] = true
	}
}
