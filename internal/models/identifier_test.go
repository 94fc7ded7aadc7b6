package models

import "testing"

// TestStripTag tests the StripTag function
func TestStripTag(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"gemma3:1b", "gemma3:1b"},
		{"nomic-embed-text:latest", "nomic-embed-text"},
		{"nomic-embed-text", "nomic-embed-text"},
		{"gpt-4:latest:latest", "gpt-4"},
		{"openai/gpt-4o", "openai/gpt-4o"},
		{"", ""},
		{":latest", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := StripTag(tt.input)
			if result != tt.expected {
				t.Errorf("StripTag(%s) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

// TestMatches tests the symmetric, tag-insensitive comparison
func TestMatches(t *testing.T) {
	names := []string{
		"SmolLM2:135m",
		"nomic-embed-text",
		"nomic-embed-text:latest",
		"gemma3:1b",
		"deepseek-r1:1.5b",
		"gpt-4",
		"",
	}

	for _, a := range names {
		for _, b := range names {
			want := StripTag(a) == StripTag(b)
			if got := Matches(a, b); got != want {
				t.Errorf("Matches(%q, %q) = %v, want %v", a, b, got, want)
			}
			if Matches(a, b) != Matches(b, a) {
				t.Errorf("Matches(%q, %q) is not symmetric", a, b)
			}
			if Matches(a+LatestTag, b) != Matches(a, b) {
				t.Errorf("Matches(%q, %q) changes when the left side is tagged", a, b)
			}
			if Matches(a, b+LatestTag) != Matches(a, b) {
				t.Errorf("Matches(%q, %q) changes when the right side is tagged", a, b)
			}
		}
	}
}

func TestContains(t *testing.T) {
	list := []string{"nomic-embed-text:latest", "SmolLM2:135m"}

	if !Contains(list, "nomic-embed-text") {
		t.Error("Expected untagged name to match tagged entry")
	}
	if !Contains(list, "SmolLM2:135m:latest") {
		t.Error("Expected tagged name to match untagged entry")
	}
	if Contains(list, "SmolLM2") {
		t.Error("Size tag is part of the name and must not be ignored")
	}
	if Contains(nil, "gpt-4") {
		t.Error("Empty list should never match")
	}
}
