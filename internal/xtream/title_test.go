package xtream

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanTitle(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain title untouched", input: "Some Movie", want: "Some Movie"},
		{name: "bracket tag prefix", input: "[FR] Some Movie", want: "Some Movie"},
		{name: "pipe tag prefix", input: "|EN| Some Movie", want: "Some Movie"},
		{name: "country code prefix", input: "US: Some Movie", want: "Some Movie"},
		{name: "stacked prefixes", input: "[4K] VIP: Some Movie", want: "Some Movie"},
		{name: "filesystem unsafe characters", input: `Movie: The "Sequel" <Part 2>`, want: "Movie The Sequel Part 2"},
		{name: "path separators", input: "AC/DC: Live", want: "AC DC Live"},
		{name: "collapses whitespace", input: "  Some    Movie  ", want: "Some Movie"},
		{name: "trailing dots stripped", input: "Some Movie...", want: "Some Movie"},
		{name: "empty input", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanTitle(tt.input))
		})
	}
}

func TestFormatEpisodeTitle(t *testing.T) {
	assert.Equal(t, "Show - Pilot", FormatEpisodeTitle("[EN] Show", "Pilot"))
	assert.Equal(t, "Show", FormatEpisodeTitle("Show", ""))
	assert.Equal(t, "Pilot", FormatEpisodeTitle("", "Pilot"))
}
