// internal/engine/normalize-params/handler_test.go
package normalizeparams

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

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		params   models.ParameterSet
		question string
		expected models.ParameterSet
	}{
		{
			name: "stale classifier date cleared for list intent without cue",
			params: models.ParameterSet{
				Intent: models.IntentAttendanceList,
				Date:   "2023-10-04",
			},
			question: "who is absent",
			expected: models.ParameterSet{
				Intent:  models.IntentAttendanceList,
				Date:    today,
				Section: models.ScopeAll,
				Session: models.ScopeAll,
				Status:  models.StatusAbsent,
			},
		},
		{
			name: "yesterday in text overrides classifier date",
			params: models.ParameterSet{
				Intent: models.IntentAttendanceList,
				Date:   "2026-02-10",
				Status: models.StatusAbsent,
			},
			question: "who was absent yesterday",
			expected: models.ParameterSet{
				Intent:  models.IntentAttendanceList,
				Date:    yesterday,
				Section: models.ScopeAll,
				Session: models.ScopeAll,
				Status:  models.StatusAbsent,
			},
		},
		{
			name: "explicit month cue wins over classifier date",
			params: models.ParameterSet{
				Intent: models.IntentAttendanceSummary,
				Date:   "2026-02-20",
			},
			question: "attendance summary for 23 feb",
			expected: models.ParameterSet{
				Intent:  models.IntentAttendanceSummary,
				Date:    "2026-02-23",
				Section: models.ScopeAll,
				Session: models.ScopeAll,
			},
		},
		{
			name: "today in text clears date for non-list intent",
			params: models.ParameterSet{
				Intent:      models.IntentStudentLookup,
				Date:        "2026-02-18",
				StudentName: "Rahul",
			},
			question: "find student Rahul today",
			expected: models.ParameterSet{
				Intent:      models.IntentStudentLookup,
				Date:        today,
				Section:     models.ScopeAll,
				Session:     models.ScopeAll,
				StudentName: "Rahul",
			},
		},
		{
			name: "stale year discarded for non-list intent without cue",
			params: models.ParameterSet{
				Intent:      models.IntentStudentLookup,
				Date:        "2023-01-01",
				StudentName: "Rahul",
			},
			question: "find student Rahul",
			expected: models.ParameterSet{
				Intent:      models.IntentStudentLookup,
				Date:        today,
				Section:     models.ScopeAll,
				Session:     models.ScopeAll,
				StudentName: "Rahul",
			},
		},
		{
			name: "historical numeric date in text is honored",
			params: models.ParameterSet{
				Intent: models.IntentAbsentMoreThan,
				Date:   today,
				Days:   3,
			},
			question: "who was absent more than 3 days around 01-02-2023",
			expected: models.ParameterSet{
				Intent:  models.IntentAbsentMoreThan,
				Date:    "2023-02-01",
				Section: models.ScopeAll,
				Session: models.ScopeAll,
				Days:    3,
			},
		},
		{
			name: "month-word false positive keeps classifier date",
			params: models.ParameterSet{
				Intent: models.IntentAttendanceList,
				Date:   "",
				Status: models.StatusAbsent,
			},
			question: "may i see the absent list",
			expected: models.ParameterSet{
				Intent:  models.IntentAttendanceList,
				Date:    today,
				Section: models.ScopeAll,
				Session: models.ScopeAll,
				Status:  models.StatusAbsent,
			},
		},
		{
			name: "placeholder words resolved and scope defaults applied",
			params: models.ParameterSet{
				Intent:  models.IntentStudentList,
				Date:    "Today",
				Section: "null",
				Session: "",
			},
			question: "list students",
			expected: models.ParameterSet{
				Intent:  models.IntentStudentList,
				Date:    today,
				Section: models.ScopeAll,
				Session: models.ScopeAll,
			},
		},
		{
			name: "set parameters pass through untouched",
			params: models.ParameterSet{
				Intent:  models.IntentAttendanceSummary,
				Date:    yesterday,
				Section: "ECE A",
				Session: models.SessionMorning,
			},
			question: "attendance rate for ECE A yesterday morning",
			expected: models.ParameterSet{
				Intent:  models.IntentAttendanceSummary,
				Date:    yesterday,
				Section: "ECE A",
				Session: models.SessionMorning,
			},
		},
		{
			name:     "empty intent becomes general question",
			params:   models.ParameterSet{},
			question: "hello there",
			expected: models.ParameterSet{
				Intent:  models.IntentGeneralQuestion,
				Date:    today,
				Section: models.ScopeAll,
				Session: models.ScopeAll,
			},
		},
		{
			name: "explicit present status survives defaulting",
			params: models.ParameterSet{
				Intent: models.IntentAttendanceList,
				Status: models.StatusPresent,
			},
			question: "who came today",
			expected: models.ParameterSet{
				Intent:  models.IntentAttendanceList,
				Date:    today,
				Section: models.ScopeAll,
				Session: models.ScopeAll,
				Status:  models.StatusPresent,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.params, tt.question, fixedNow)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	params := models.ParameterSet{
		Intent: models.IntentAttendanceList,
		Status: models.StatusAbsent,
	}
	question := "who is absent today in ECE A"

	once := Normalize(params, question, fixedNow)
	twice := Normalize(once, question, fixedNow)

	assert.Equal(t, once, twice)
}
