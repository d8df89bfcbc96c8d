package sanitize_test

import (
	"testing"

	"vodgrab/pkg/sanitize"
)

func TestFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain title untouched", in: "Dark Winds", want: "Dark Winds"},
		{name: "slashes replaced", in: "Season 1/Episode 2", want: "Season 1_Episode 2"},
		{name: "windows reserved chars", in: `What? A "Title": <Part 1>`, want: "What_ A _Title__ _Part 1_"},
		{name: "pipe and backslash", in: `a|b\c`, want: "a_b_c"},
		{name: "surrounding spaces trimmed", in: "  Breaking News  ", want: "Breaking News"},
		{name: "empty falls back", in: "", want: "untitled"},
		{name: "only unsafe chars fall back to underscores", in: "???", want: "___"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := sanitize.Filename(tt.in); got != tt.want {
				t.Fatalf("Filename(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
