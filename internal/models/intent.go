// internal/models/intent.go
package models

import "strings"

// Intent names one of the closed set of question intents the engine answers.
type Intent string

const (
	IntentAttendanceList    Intent = "attendance_list"
	IntentAttendanceSummary Intent = "attendance_summary"
	IntentStudentLookup     Intent = "student_lookup"
	IntentStudentList       Intent = "student_list"
	IntentCountStudents     Intent = "count_students"
	IntentSectionLookup     Intent = "section_lookup"
	IntentLowAttendance     Intent = "low_attendance"
	IntentAbsentMoreThan    Intent = "absent_more_than"
	IntentSectionMostAbsent Intent = "section_most_absent"
	IntentAttendanceWeek    Intent = "attendance_week"
	IntentGeneralQuestion   Intent = "general_question"
)

var allIntents = []Intent{
	IntentAttendanceList,
	IntentAttendanceSummary,
	IntentStudentLookup,
	IntentStudentList,
	IntentCountStudents,
	IntentSectionLookup,
	IntentLowAttendance,
	IntentAbsentMoreThan,
	IntentSectionMostAbsent,
	IntentAttendanceWeek,
	IntentGeneralQuestion,
}

var validIntents = func() map[Intent]bool {
	m := make(map[Intent]bool, len(allIntents))
	for _, it := range allIntents {
		m[it] = true
	}
	return m
}()

// AllIntents returns every supported intent in catalog order.
func AllIntents() []Intent {
	out := make([]Intent, len(allIntents))
	copy(out, allIntents)
	return out
}

// ValidIntent reports whether raw names a supported intent exactly.
func ValidIntent(raw string) bool {
	return validIntents[Intent(raw)]
}

// ParseIntent maps a raw intent string onto the closed set. Unknown or
// empty values become general_question so a request always has a route.
func ParseIntent(raw string) Intent {
	it := Intent(strings.ToLower(strings.TrimSpace(raw)))
	if validIntents[it] {
		return it
	}
	return IntentGeneralQuestion
}

func (i Intent) String() string {
	return string(i)
}
