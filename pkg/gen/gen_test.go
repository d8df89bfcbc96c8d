package gen_test

import (
	"testing"

	"vodgrab/pkg/gen"
)

func TestKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		parts []string
		want  string
	}{
		{name: "single part", parts: []string{"Pilot"}, want: "Pilot"},
		{name: "two parts", parts: []string{"Season 1", "Pilot"}, want: "Season 1|Pilot"},
		{name: "no parts", parts: nil, want: ""},
		{name: "empty part kept", parts: []string{"", "x"}, want: "|x"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := gen.Key(tt.parts...); got != tt.want {
				t.Errorf("Key(%v) = %q, want %q", tt.parts, got, tt.want)
			}
		})
	}
}
