// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// LoadCatalog reads an intent catalog from a JSON file.
func LoadCatalog(path string) (*IntentCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cat IntentCatalog
	if err := json.Unmarshal(data, &cat); err != nil {
		return nil, err
	}
	return &cat, nil
}

// LoadCatalogOrDefault reads the catalog at path, falling back to the
// built-in catalog when the file is missing or unreadable.
func LoadCatalogOrDefault(path string) *IntentCatalog {
	if path != "" {
		if cat, err := LoadCatalog(path); err == nil && len(cat.Intents) > 0 {
			return cat
		}
	}
	return DefaultCatalog()
}

// IDs returns the catalog's intent identifiers in order.
func (c *IntentCatalog) IDs() []string {
	out := make([]string, 0, len(c.Intents))
	for _, it := range c.Intents {
		out = append(out, it.ID)
	}
	return out
}

// PromptSection renders the catalog as the "Supported intents" block of the
// remote classifier's instruction text, one line per intent with its
// examples quoted.
func (c *IntentCatalog) PromptSection() string {
	var b strings.Builder
	b.WriteString("Supported intents:\n")
	for _, it := range c.Intents {
		b.WriteString("- ")
		b.WriteString(it.ID)
		b.WriteString(": ")
		b.WriteString(it.Description)
		if len(it.Examples) > 0 {
			quoted := make([]string, 0, len(it.Examples))
			for _, ex := range it.Examples {
				quoted = append(quoted, fmt.Sprintf("%q", ex))
			}
			b.WriteString(" (e.g. ")
			b.WriteString(strings.Join(quoted, ", "))
			b.WriteString(")")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// DefaultCatalog returns the built-in intent catalog used when no catalog
// file is configured.
func DefaultCatalog() *IntentCatalog {
	return &IntentCatalog{
		Version:     "1.0.0",
		LastUpdated: "2026-02-22",
		Intents: []IntentEntry{
			{
				ID:          "attendance_list",
				DisplayName: "Attendance List",
				Description: "who is present/absent",
				Examples:    []string{"who is absent today", "who didn't come", "who skipped", "missing students", "list absent", "who attended morning", "show attendance for today"},
				Parameters:  []string{"date", "section", "session", "status"},
			},
			{
				ID:          "attendance_summary",
				DisplayName: "Attendance Summary",
				Description: "overall counts and rates",
				Examples:    []string{"attendance summary", "overall attendance", "whole school today", "how many students absent today", "attendance rate for ECE A today", "how many came today"},
				Parameters:  []string{"date", "section", "session"},
			},
			{
				ID:          "student_lookup",
				DisplayName: "Student Lookup",
				Description: "find student by roll or name",
				Examples:    []string{"find student Rahul", "details of roll number 12", "show student X"},
				Parameters:  []string{"roll_no", "student_name"},
			},
			{
				ID:          "student_list",
				DisplayName: "Student List",
				Description: "list students",
				Examples:    []string{"list of all students", "list students in ECE A", "students in ECE A"},
				Parameters:  []string{"section"},
			},
			{
				ID:          "count_students",
				DisplayName: "Count Students",
				Description: "how many students",
				Examples:    []string{"how many students in ECE A", "total students in system", "number of students in CSE"},
				Parameters:  []string{"section"},
			},
			{
				ID:          "section_lookup",
				DisplayName: "Section Lookup",
				Description: "which section is a student in",
				Examples:    []string{"which section is Saketh in?"},
				Parameters:  []string{"student_name"},
			},
			{
				ID:          "low_attendance",
				DisplayName: "Low Attendance",
				Description: "students below 75% attendance",
			},
			{
				ID:          "absent_more_than",
				DisplayName: "Absent More Than",
				Description: "students absent more than X days",
				Parameters:  []string{"days"},
			},
			{
				ID:          "section_most_absent",
				DisplayName: "Section Most Absent",
				Description: "which section has most absentees today",
				Parameters:  []string{"date"},
			},
			{
				ID:          "attendance_week",
				DisplayName: "Attendance Week",
				Description: "total attendance for this week (last 7 days)",
			},
			{
				ID:          "general_question",
				DisplayName: "General Question",
				Description: "only if clearly not about attendance/students/school",
			},
		},
	}
}
