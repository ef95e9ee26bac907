// internal/engine/classify-intent/handler_test.go
package classifyintent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"attendance-chat/internal/models"
)

var fixedNow = time.Date(2026, 2, 22, 10, 30, 0, 0, time.UTC)

const (
	today     = "2026-02-22"
	yesterday = "2026-02-21"
)

// ==========================
// Cascade Tests
// ==========================

func TestClassify_Cascade(t *testing.T) {
	tests := []struct {
		name     string
		question string
		expected models.ParameterSet
	}{
		{
			name:     "section most absent",
			question: "which section has most absent students today",
			expected: models.ParameterSet{
				Intent: models.IntentSectionMostAbsent, Date: today,
				Section: models.ScopeAll, Session: models.ScopeAll,
			},
		},
		{
			name:     "attendance week by phrase",
			question: "attendance this week",
			expected: models.ParameterSet{
				Intent: models.IntentAttendanceWeek, Date: today,
				Section: models.ScopeAll, Session: models.ScopeAll,
			},
		},
		{
			name:     "section lookup takes first content word",
			question: "which section is Saketh in?",
			expected: models.ParameterSet{
				Intent: models.IntentSectionLookup, Date: today,
				Section: models.ScopeAll, Session: models.ScopeAll,
				StudentName: "saketh",
			},
		},
		{
			name:     "find student by name keeps case",
			question: "find student Rahul",
			expected: models.ParameterSet{
				Intent: models.IntentStudentLookup, Date: today,
				Section: models.ScopeAll, Session: models.ScopeAll,
				StudentName: "Rahul",
			},
		},
		{
			name:     "roll extraction takes first short token",
			question: "details of roll number 12",
			expected: models.ParameterSet{
				Intent: models.IntentStudentLookup, Date: today,
				Section: models.ScopeAll, Session: models.ScopeAll,
				RollNo: "details",
			},
		},
		{
			name:     "count students in named section",
			question: "how many students in CSE",
			expected: models.ParameterSet{
				Intent: models.IntentCountStudents, Date: today,
				Section: "CSE", Session: models.ScopeAll,
			},
		},
		{
			name:     "total students",
			question: "total students",
			expected: models.ParameterSet{
				Intent: models.IntentCountStudents, Date: today,
				Section: models.ScopeAll, Session: models.ScopeAll,
			},
		},
		{
			name:     "absent more than with explicit days",
			question: "students absent more than 5 days",
			expected: models.ParameterSet{
				Intent: models.IntentAbsentMoreThan, Date: today,
				Section: models.ScopeAll, Session: models.ScopeAll,
				Days: 5,
			},
		},
		{
			name:     "absent days without threshold defaults to three",
			question: "who was absent 3 days",
			expected: models.ParameterSet{
				Intent: models.IntentAbsentMoreThan, Date: today,
				Section: models.ScopeAll, Session: models.ScopeAll,
				Days: 3,
			},
		},
		{
			name:     "low attendance",
			question: "low attendance students",
			expected: models.ParameterSet{
				Intent: models.IntentLowAttendance, Date: today,
				Section: models.ScopeAll, Session: models.ScopeAll,
			},
		},
		{
			name:     "below threshold phrasing",
			question: "students below 75 percent",
			expected: models.ParameterSet{
				Intent: models.IntentLowAttendance, Date: today,
				Section: models.ScopeAll, Session: models.ScopeAll,
			},
		},
		{
			name:     "summary",
			question: "attendance summary",
			expected: models.ParameterSet{
				Intent: models.IntentAttendanceSummary, Date: today,
				Section: models.ScopeAll, Session: models.ScopeAll,
			},
		},
		{
			name:     "summary with morning session",
			question: "how many absent this morning",
			expected: models.ParameterSet{
				Intent: models.IntentAttendanceSummary, Date: today,
				Section: models.ScopeAll, Session: models.SessionMorning,
			},
		},
		{
			name:     "how many came folds to summary",
			question: "how many came today",
			expected: models.ParameterSet{
				Intent: models.IntentAttendanceSummary, Date: today,
				Section: models.ScopeAll, Session: models.ScopeAll,
			},
		},
		{
			name:     "student list",
			question: "list all students",
			expected: models.ParameterSet{
				Intent: models.IntentStudentList, Date: today,
				Section: models.ScopeAll, Session: models.ScopeAll,
			},
		},
		{
			name:     "students in section without list word",
			question: "students in ECE A",
			expected: models.ParameterSet{
				Intent: models.IntentStudentList, Date: today,
				Section: "ECE A", Session: models.ScopeAll,
			},
		},
		{
			name:     "attendance list with section and session",
			question: "who is absent today in ECE A morning",
			expected: models.ParameterSet{
				Intent: models.IntentAttendanceList, Date: today,
				Section: "ECE A", Session: models.SessionMorning,
				Status: models.StatusAbsent,
			},
		},
		{
			name:     "present list via came synonym",
			question: "who came to class",
			expected: models.ParameterSet{
				Intent: models.IntentAttendanceList, Date: today,
				Section: models.ScopeAll, Session: models.ScopeAll,
				Status: models.StatusPresent,
			},
		},
		{
			name:     "abscent typo folds to absent",
			question: "who is abscent today",
			expected: models.ParameterSet{
				Intent: models.IntentAttendanceList, Date: today,
				Section: models.ScopeAll, Session: models.ScopeAll,
				Status: models.StatusAbsent,
			},
		},
		{
			name:     "skipped folds to absent",
			question: "who skipped the morning",
			expected: models.ParameterSet{
				Intent: models.IntentAttendanceList, Date: today,
				Section: models.ScopeAll, Session: models.SessionMorning,
				Status: models.StatusAbsent,
			},
		},
		{
			name:     "missing folds to absent with yesterday date",
			question: "who was missing yesterday",
			expected: models.ParameterSet{
				Intent: models.IntentAttendanceList, Date: yesterday,
				Section: models.ScopeAll, Session: models.ScopeAll,
				Status: models.StatusAbsent,
			},
		},
		{
			name:     "unrelated question",
			question: "what is the weather like",
			expected: models.ParameterSet{
				Intent: models.IntentGeneralQuestion, Date: today,
				Section: models.ScopeAll, Session: models.ScopeAll,
			},
		},
		{
			name:     "empty question",
			question: "",
			expected: models.ParameterSet{
				Intent: models.IntentGeneralQuestion, Date: today,
				Section: models.ScopeAll, Session: models.ScopeAll,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.question, fixedNow))
		})
	}
}

func TestClassify_ClosedIntentSet(t *testing.T) {
	questions := []string{
		"", "???", "tell me a joke", "absent", "present yesterday",
		"how many students", "roll no details", "summary for ECE",
	}
	for _, q := range questions {
		got := Classify(q, fixedNow)
		assert.True(t, models.ValidIntent(string(got.Intent)), "question %q produced intent %q", q, got.Intent)
	}
}

func TestClassify_Idempotent(t *testing.T) {
	questions := []string{
		"who is absent today in ECE A morning",
		"attendance summary",
		"how many students in CSE",
	}
	for _, q := range questions {
		first := Classify(q, fixedNow)
		second := Classify(q, fixedNow)
		assert.Equal(t, first, second)
	}
}

func TestNormalize_TypoFolding(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"abscent list", "absent list"},
		{"absente list", "absent list"},
		{"absentees list", "absent list"},
		{"who skipped", "who absent"},
		{"missing students", "absent students"},
		{"who came", "who present"},
		{"who attended", "who present"},
		{"ABSENT TODAY", "absent today"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, Normalize(tt.in))
	}
}
