package normalize

import (
	"testing"
)

func TestName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "strips neighbourhood and parenthetical",
			input: "Violet's Soho (Georgian Cuisine)",
			want:  "violets",
		},
		{
			name:  "strips apostrophe only",
			input: "Violet's",
			want:  "violets",
		},
		{
			name:  "venue type words removed",
			input: "The Blue Posts Bar & Kitchen",
			want:  "blue posts &",
		},
		{
			name:  "hyphens and periods removed",
			input: "Bar-B-Q. Express",
			want:  "barbq express",
		},
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
		{
			name:  "whitespace collapsed",
			input: "  Patty   &  Bun  ",
			want:  "patty & bun",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Name(tt.input)
			if got != tt.want {
				t.Errorf("Name(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// Normalization must be stable under re-application.
func TestNameIdempotent(t *testing.T) {
	inputs := []string{
		"Violet's Soho (Georgian Cuisine)",
		"Patty & Bun",
		"Señor Ceviche Peruvian Restaurant Soho",
		"Rudy's Neapolitan Pizza",
		"",
		"   ",
		"The The The",
	}

	for _, in := range inputs {
		once := Name(in)
		twice := Name(once)
		if once != twice {
			t.Errorf("Name not idempotent for %q: first %q, second %q", in, once, twice)
		}
	}
}

func TestStreet(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Wardour St.", "wardour st"},
		{"Kingly Street", "kingly street"},
		{"", ""},
		{"  Old   Compton  Street ", "old compton street"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := Street(tt.input)
			if got != tt.want {
				t.Errorf("Street(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
