package util

import "testing"

func TestParseIntDefault(t *testing.T) {
	if got := ParseIntDefault("42", 7); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
	if got := ParseIntDefault("", 7); got != 7 {
		t.Fatalf("expected default, got %d", got)
	}
	if got := ParseIntDefault("nope", 7); got != 7 {
		t.Fatalf("expected default on invalid, got %d", got)
	}
}

func TestParseBoolDefault(t *testing.T) {
	if !ParseBoolDefault("true", false) {
		t.Fatal("expected true")
	}
	if ParseBoolDefault("", false) {
		t.Fatal("expected default false")
	}
	if !ParseBoolDefault("nope", true) {
		t.Fatal("expected default true on invalid")
	}
}
