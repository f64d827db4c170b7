package textutil

import (
	"strings"
	"testing"
)

func TestDisplayLabel(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"THE_MATRIX", "The Matrix"},
		{"THE_MATRIX_DISC_1", "The Matrix"},
		{"01_BLADE_RUNNER", "Blade Runner"},
		{"SHOW_S1_DISC_2", "Show"},
		{"SEINFELD_TV", "Seinfeld"},
		{"12345", ""},
		{"", ""},
		{"  alien.director's  ", "Alien Directors"},
	}
	for _, tt := range tests {
		if got := DisplayLabel(tt.label); got != tt.want {
			t.Errorf("DisplayLabel(%q) = %q, want %q", tt.label, got, tt.want)
		}
	}
}

func TestDiscNameFallbacks(t *testing.T) {
	if got := DiscName("THE_MATRIX", "drive0"); got != "The Matrix" {
		t.Fatalf("expected display label, got %q", got)
	}
	if got := DiscName("12345", "drive0"); got != "12345" {
		t.Fatalf("expected raw label for numeric volume id, got %q", got)
	}
	if got := DiscName("", "drive:0"); got != "drive-0" {
		t.Fatalf("expected sanitized fallback, got %q", got)
	}
	if got := DiscName("", ""); got != "disc" {
		t.Fatalf("expected default name, got %q", got)
	}
}

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{` Movie: Part 1/2 "Cut"? `, "Movie- Part 1-2 Cut"},
		{"THE_MATRIX", "THE_MATRIX"},
		{"..", ""},
		{"../etc", "-etc"},
		{".hidden disc", "hidden disc"},
		{"tab\there\x00", "tabhere"},
		{"many    spaces", "many spaces"},
		{"   ", ""},
		{strings.Repeat("é", 150), strings.Repeat("é", 100)},
	}
	for _, tc := range tests {
		if got := SanitizeFileName(tc.in); got != tc.want {
			t.Fatalf("SanitizeFileName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
