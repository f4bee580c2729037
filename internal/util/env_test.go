package util

import (
	"testing"
	"time"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("FLOWKIT_TEST_STR", "value")
	if got := GetEnv("FLOWKIT_TEST_STR", "fallback"); got != "value" {
		t.Errorf("GetEnv = %q, want value", got)
	}
	if got := GetEnv("FLOWKIT_TEST_UNSET", "fallback"); got != "fallback" {
		t.Errorf("GetEnv = %q, want fallback", got)
	}
}

func TestParseBoolEnv(t *testing.T) {
	cases := []struct {
		val  string
		def  bool
		want bool
	}{
		{"true", false, true},
		{"1", false, true},
		{"YES", false, true},
		{"off", true, false},
		{"garbage", true, true},
		{"", false, false},
	}
	for _, tc := range cases {
		t.Setenv("FLOWKIT_TEST_BOOL", tc.val)
		if got := ParseBoolEnv("FLOWKIT_TEST_BOOL", tc.def); got != tc.want {
			t.Errorf("ParseBoolEnv(%q, %v) = %v, want %v", tc.val, tc.def, got, tc.want)
		}
	}
}

func TestParseDurationEnv(t *testing.T) {
	t.Setenv("FLOWKIT_TEST_DUR", "250ms")
	if got := ParseDurationEnv("FLOWKIT_TEST_DUR", time.Second); got != 250*time.Millisecond {
		t.Errorf("ParseDurationEnv = %v, want 250ms", got)
	}
	t.Setenv("FLOWKIT_TEST_DUR", "nope")
	if got := ParseDurationEnv("FLOWKIT_TEST_DUR", time.Second); got != time.Second {
		t.Errorf("ParseDurationEnv = %v, want default", got)
	}
}
