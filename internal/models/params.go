// internal/models/params.go
package models

import "strings"

// Scope and literal values shared by the classifier, normalizer, and handlers.
const (
	ScopeAll         = "ALL"
	SessionMorning   = "morning"
	SessionAfternoon = "afternoon"
	StatusPresent    = "present"
	StatusAbsent     = "absent"
)

// ParameterSet is the structured interpretation of one question: the intent
// plus every parameter the handlers accept. Empty strings mean "not given";
// Days zero means "not given". Values are always validated literals or
// section/student text matched against stored data, never raw user input.
type ParameterSet struct {
	Intent      Intent `json:"intent"`
	Date        string `json:"date,omitempty"`
	Section     string `json:"section,omitempty"`
	Session     string `json:"session,omitempty"`
	Status      string `json:"status,omitempty"`
	RollNo      string `json:"roll_no,omitempty"`
	StudentName string `json:"student_name,omitempty"`
	Days        int    `json:"days,omitempty"`
}

// IsNullish reports whether a parameter value should be treated as absent:
// empty, whitespace, or the literal "null" a remote classifier may emit.
func IsNullish(v string) bool {
	s := strings.ToLower(strings.TrimSpace(v))
	return s == "" || s == "null"
}

// Fields returns the parameter set as a flat map for structured logging.
func (p ParameterSet) Fields() map[string]interface{} {
	return map[string]interface{}{
		"intent":       string(p.Intent),
		"date":         p.Date,
		"section":      p.Section,
		"session":      p.Session,
		"status":       p.Status,
		"roll_no":      p.RollNo,
		"student_name": p.StudentName,
		"days":         p.Days,
	}
}
