package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "full release title",
			in:   "Tom Holt - Blonde Bombshell (Dystop; SFX; Humour) ePUB+MOBI",
			want: "Tom Holt Blonde Bombshell Dystop SFX Humour ePUB MOBI",
		},
		{
			name: "digits stripped",
			in:   "Discworld 41 - Raising Steam",
			want: "Discworld Raising Steam",
		},
		{
			name: "dots become spaces",
			in:   "The.Economist.2024",
			want: "The Economist",
		},
		{
			name: "ellipsis removed before dot handling",
			in:   "Waiting... For Godot",
			want: "Waiting For Godot",
		},
		{
			name: "dollar to s",
			in:   "Ca$h",
			want: "Cash",
		},
		{
			name: "brackets quotes and separators",
			in:   `"Dune" [Retail] #1: Part_One`,
			want: "Dune Retail Part One",
		},
		{
			name: "whitespace collapsed",
			in:   "  a   b\t c  ",
			want: "a b c",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"Tom Holt - Blonde Bombshell (Dystop; SFX; Humour) ePUB+MOBI",
		"Some.Release-2020_Retail[v2]",
		"plain words",
		"",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestNormalizeKeepDigits(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Discworld 41 Raising Steam", NormalizeKeepDigits("Discworld 41 - Raising Steam"))
	assert.Equal(t, "Album MP3 320", NormalizeKeepDigits("Album.MP3.320"))
}
