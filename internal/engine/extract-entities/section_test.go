// internal/engine/extract-entities/section_test.go
package extractentities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractSection(t *testing.T) {
	tests := []struct {
		name     string
		question string
		expected string
	}{
		{"in with two token name", "who is absent in ECE A today", "ECE A"},
		{"in at end of question", "list students in ECE A", "ECE A"},
		{"in before question mark", "how many students in ECE A?", "ECE A"},
		{"for with session word", "attendance for ECE morning", "ECE"},
		{"single token before date word", "students in AIML yesterday", "AIML"},
		{"single token before today", "who came in ECE today", "ECE"},
		{"before class word", "attendance in 5B class", "5B"},
		{"leading section form", "ECE A today attendance", "ECE A"},
		{"leading single token", "AIML yesterday", "AIML"},
		{"no section", "who is absent", ""},
		{"date word alone is not a section", "attendance for today", ""},
		{"stacked date and session words", "attendance in today morning", ""},
		{"which section question", "which section is Saketh in?", ""},
		{"empty question", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractSection(tt.question))
		})
	}
}
