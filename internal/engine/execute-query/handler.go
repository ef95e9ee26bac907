// internal/engine/execute-query/handler.go
package executequery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	extractentities "attendance-chat/internal/engine/extract-entities"
	"attendance-chat/internal/models"
)

const (
	StageName = "execute-query"
)

var (
	ErrUnsupportedIntent = errors.New("QUERY_UNSUPPORTED_INTENT")
)

// sessions in marking order; "both sessions" paths iterate these.
var sessions = []string{models.SessionMorning, models.SessionAfternoon}

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// Directory is the read capability over sections, students and attendance
// that the query handlers run against. Implementations must keep the
// default-present rule: a student with no stored attendance row counts as
// present for that date and session.
type Directory interface {
	ListSections(ctx context.Context) ([]models.Section, error)
	// SectionByName returns nil when no section matches.
	SectionByName(ctx context.Context, name string, caseInsensitive bool) (*models.Section, error)
	// CountStudents counts students in a section, or all students when
	// sectionID is zero.
	CountStudents(ctx context.Context, sectionID int64) (int, error)
	// ListStudents returns one page of students with section names joined,
	// plus the total row count before paging.
	ListStudents(ctx context.Context, query models.StudentQuery) ([]models.Student, int, error)
	// FindStudents searches by roll prefix (case-insensitive, or exact) when
	// rollPrefix is set, otherwise by name substring. Rows carry the section
	// name and are capped server-side.
	FindStudents(ctx context.Context, rollPrefix, namePattern string) ([]models.Student, error)
	GetAttendance(ctx context.Context, date string, sectionID int64, session string) ([]models.AttendanceEntry, error)
	AbsenteesAllSections(ctx context.Context, date string) ([]models.AbsenteeRow, error)
	PresentAllSections(ctx context.Context, date string) ([]models.AbsenteeRow, error)
	AttendanceRates(ctx context.Context, dateStart, dateEnd string) ([]models.StudentRate, error)
	AbsentMoreThanDays(ctx context.Context, minDays int, dateStart, dateEnd string) ([]models.StudentAbsence, error)
}

type Handler struct {
	config *Config
	dir    Directory
	logger Logger
}

func NewHandler(config *Config, dir Directory, log Logger) *Handler {
	return &Handler{
		config: config,
		dir:    dir,
		logger: log.With(map[string]interface{}{
			"stage": StageName,
		}),
	}
}

// Execute dispatches a normalized ParameterSet to its query handler. Missing
// sections and missing required parameters come back as structured error
// results; only storage failures surface as errors.
func (h *Handler) Execute(ctx context.Context, params models.ParameterSet, now time.Time) (models.QueryResult, error) {
	h.logger.Info("executing query", params.Fields())

	switch params.Intent {
	case models.IntentAttendanceList:
		return h.attendanceList(ctx, params, now)
	case models.IntentAttendanceSummary:
		return h.attendanceSummary(ctx, params, now)
	case models.IntentStudentLookup:
		return h.studentLookup(ctx, params)
	case models.IntentStudentList:
		return h.studentList(ctx, params, now)
	case models.IntentCountStudents:
		return h.countStudents(ctx, params)
	case models.IntentSectionLookup:
		return h.sectionLookup(ctx, params)
	case models.IntentLowAttendance:
		return h.lowAttendance(ctx, now)
	case models.IntentAbsentMoreThan:
		return h.absentMoreThan(ctx, params, now)
	case models.IntentSectionMostAbsent:
		return h.sectionMostAbsent(ctx, params, now)
	case models.IntentAttendanceWeek:
		return h.attendanceWeek(ctx, now)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedIntent, params.Intent)
	}
}

// resolveDate turns a parameter date into a concrete YYYY-MM-DD string,
// mapping placeholder values to the current date.
func resolveDate(raw string, now time.Time) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "null", "today":
		return now.Format(extractentities.DateLayout)
	}
	s := raw
	if len(s) > 10 {
		s = s[:10]
	}
	return s
}

// scopeAll reports whether a section parameter means every section.
func scopeAll(section string) bool {
	return strings.EqualFold(section, models.ScopeAll)
}

// viewByDate tallies present/absent per section and session for one date,
// sections in name order, morning before afternoon.
func (h *Handler) viewByDate(ctx context.Context, date string) ([]models.SectionSessionCount, error) {
	secs, err := h.dir.ListSections(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}

	out := make([]models.SectionSessionCount, 0, len(secs)*len(sessions))
	for _, sec := range secs {
		for _, sess := range sessions {
			entries, err := h.dir.GetAttendance(ctx, date, sec.ID, sess)
			if err != nil {
				return nil, fmt.Errorf("attendance for %s %s: %w", sec.Name, sess, err)
			}
			present, absent := 0, 0
			for _, e := range entries {
				switch e.Status {
				case models.StatusPresent:
					present++
				case models.StatusAbsent:
					absent++
				}
			}
			out = append(out, models.SectionSessionCount{
				Section: sec.Name,
				Session: sess,
				Present: present,
				Absent:  absent,
			})
		}
	}
	return out, nil
}
