package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenizeAndFilter(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "lowercases and trims punctuation",
			text: `"Reef survey finds recovery," officials said.`,
			want: []string{"reef", "survey", "finds", "recovery", "officials"},
		},
		{
			name: "drops attribution verbs",
			text: "The mayor says the plan will pass",
			want: []string{"mayor", "plan", "pass"},
		},
		{
			name: "all stop words",
			text: "the a an is was",
			want: []string{},
		},
		{
			name: "empty input",
			text: "",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tokenizeAndFilter(tt.text))
		})
	}
}

func TestContainsAllQueryWords(t *testing.T) {
	document := "Central bank cuts rates, citing cooling inflation and a softening labor market."

	tests := []struct {
		name  string
		query string
		want  bool
	}{
		{"all words present", "inflation rates", true},
		{"stop words ignored", "the inflation and the rates", true},
		{"missing word", "inflation forecast", false},
		{"query reduces to nothing", "the and was", false},
		{"empty query", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, containsAllQueryWords(document, tt.query))
		})
	}
}
