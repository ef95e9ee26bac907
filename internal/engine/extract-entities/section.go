// internal/engine/extract-entities/section.go
package extractentities

import (
	"regexp"
	"strings"
)

var (
	sectionAfterPrepRe = regexp.MustCompile(`(?i)\b(?:in|for)\s+([A-Za-z0-9]+(?:\s+[A-Za-z0-9]+)?)\s*(?:today|yesterday|morning|afternoon|class|attendance|$|\?)`)
	sectionLeadingRe   = regexp.MustCompile(`(?i)^([A-Za-z0-9]+(?:\s+[A-Za-z0-9]+)?)\s+(?:today|yesterday|morning|afternoon)`)
)

var sectionTerminators = map[string]bool{
	"today":      true,
	"yesterday":  true,
	"morning":    true,
	"afternoon":  true,
	"class":      true,
	"attendance": true,
}

// ExtractSection pulls a candidate section name out of phrases like
// "in ECE A today", "for ECE morning", or a leading "ECE A today". The name
// is one or two alphanumeric tokens; date/session words the greedy capture
// swallowed are stripped, so "in AIML yesterday" yields "AIML" and a bare
// "for today" yields nothing. Returns "" when no candidate is found.
func ExtractSection(question string) string {
	q := strings.TrimSpace(question)
	if q == "" {
		return ""
	}
	if m := sectionAfterPrepRe.FindStringSubmatch(q); m != nil {
		return trimTerminators(m[1])
	}
	if m := sectionLeadingRe.FindStringSubmatch(q); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func trimTerminators(name string) string {
	fields := strings.Fields(name)
	for len(fields) > 0 && sectionTerminators[strings.ToLower(fields[len(fields)-1])] {
		fields = fields[:len(fields)-1]
	}
	return strings.Join(fields, " ")
}
