package util

import (
	"testing"
	"time"
)

func TestParseBoolEnv(t *testing.T) {
	tests := []struct {
		value string
		def   bool
		want  bool
	}{
		{"", true, true},
		{"yes", false, true},
		{"OFF", true, false},
		{"maybe", true, true},
	}

	for _, tt := range tests {
		t.Setenv("FIELDOPS_TEST_BOOL", tt.value)
		if got := ParseBoolEnv("FIELDOPS_TEST_BOOL", tt.def); got != tt.want {
			t.Errorf("ParseBoolEnv(%q, %v) = %v, want %v", tt.value, tt.def, got, tt.want)
		}
	}
}

func TestParseDurationEnv(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"", 5 * time.Second},
		{"250ms", 250 * time.Millisecond},
		{"-1s", 5 * time.Second},
		{"soon", 5 * time.Second},
	}

	for _, tt := range tests {
		t.Setenv("FIELDOPS_TEST_DURATION", tt.value)
		if got := ParseDurationEnv("FIELDOPS_TEST_DURATION", 5*time.Second); got != tt.want {
			t.Errorf("ParseDurationEnv(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}
