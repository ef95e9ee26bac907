// internal/engine/execute-query/students.go
package executequery

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	extractentities "attendance-chat/internal/engine/extract-entities"
	"attendance-chat/internal/models"
)

// studentLookup searches by roll number and/or name across all sections.
// Roll takes precedence when both are given.
func (h *Handler) studentLookup(ctx context.Context, params models.ParameterSet) (models.QueryResult, error) {
	if params.RollNo == "" && params.StudentName == "" {
		return models.ErrorResult("Please provide a roll number or student name."), nil
	}

	students, err := h.dir.FindStudents(ctx, strings.TrimSpace(params.RollNo), strings.TrimSpace(params.StudentName))
	if err != nil {
		return nil, fmt.Errorf("find students: %w", err)
	}

	out := make([]map[string]interface{}, 0, len(students))
	for _, s := range students {
		out = append(out, map[string]interface{}{
			"id": s.ID, "roll_no": s.RollNo, "name": s.Name,
			"section_id": s.SectionID, "section_name": s.SectionName,
		})
	}

	return models.QueryResult{
		"query":    map[string]interface{}{"roll_no": params.RollNo, "student_name": params.StudentName},
		"count":    len(out),
		"students": out,
	}, nil
}

// studentList lists students for a section (or all sections), each row
// carrying today's attendance status.
func (h *Handler) studentList(ctx context.Context, params models.ParameterSet, now time.Time) (models.QueryResult, error) {
	section := strings.TrimSpace(params.Section)
	if section == "" {
		section = models.ScopeAll
	}

	var (
		students []models.Student
		total    int
		scope    string
	)
	if !scopeAll(section) {
		sec, err := h.dir.SectionByName(ctx, section, true)
		if err != nil {
			return nil, fmt.Errorf("section by name: %w", err)
		}
		if sec == nil {
			return models.QueryResult{
				"error": "Section not found: " + section, "students": []map[string]interface{}{}, "count": 0,
			}, nil
		}
		students, total, err = h.dir.ListStudents(ctx, models.StudentQuery{
			SectionID: sec.ID, Page: 1, PerPage: h.config.StudentListCap,
		})
		if err != nil {
			return nil, fmt.Errorf("list students: %w", err)
		}
		scope = sec.Name
	} else {
		var err error
		students, total, err = h.dir.ListStudents(ctx, models.StudentQuery{
			Page: 1, PerPage: h.config.StudentListCap,
		})
		if err != nil {
			return nil, fmt.Errorf("list students: %w", err)
		}
		scope = "all sections"
	}

	today := now.Format(extractentities.DateLayout)
	absentToday, err := h.dir.AbsenteesAllSections(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("absentees all sections: %w", err)
	}
	type key struct{ roll, section string }
	absentSet := make(map[key]struct{}, len(absentToday))
	for _, a := range absentToday {
		absentSet[key{a.RollNo, a.SectionName}] = struct{}{}
	}

	out := make([]map[string]interface{}, 0, len(students))
	for _, s := range students {
		statusToday := models.StatusPresent
		if _, absent := absentSet[key{s.RollNo, s.SectionName}]; absent {
			statusToday = models.StatusAbsent
		}
		out = append(out, map[string]interface{}{
			"roll_no": s.RollNo, "name": s.Name, "section_name": s.SectionName,
			"status_today": statusToday,
		})
	}

	return models.QueryResult{
		"date": today, "scope": scope, "count": len(out), "students": out,
		"truncated": total > h.config.StudentListCap,
	}, nil
}

// countStudents counts students overall or within one section. The result
// echoes the section name as the caller wrote it.
func (h *Handler) countStudents(ctx context.Context, params models.ParameterSet) (models.QueryResult, error) {
	section := strings.TrimSpace(params.Section)
	if scopeAll(section) || section == "" {
		n, err := h.dir.CountStudents(ctx, 0)
		if err != nil {
			return nil, fmt.Errorf("count students: %w", err)
		}
		return models.QueryResult{"scope": "all sections", "count": n}, nil
	}

	sec, err := h.dir.SectionByName(ctx, section, true)
	if err != nil {
		return nil, fmt.Errorf("section by name: %w", err)
	}
	if sec == nil {
		return models.QueryResult{"error": "Section not found: " + section, "count": 0}, nil
	}
	n, err := h.dir.CountStudents(ctx, sec.ID)
	if err != nil {
		return nil, fmt.Errorf("count students: %w", err)
	}
	return models.QueryResult{"section": section, "count": n}, nil
}

// sectionLookup answers "which section is this student in" by name search.
func (h *Handler) sectionLookup(ctx context.Context, params models.ParameterSet) (models.QueryResult, error) {
	name := strings.TrimSpace(params.StudentName)
	if name == "" {
		return models.ErrorResult("Please provide a student name."), nil
	}

	students, err := h.dir.FindStudents(ctx, "", name)
	if err != nil {
		return nil, fmt.Errorf("find students: %w", err)
	}
	if len(students) == 0 {
		return models.QueryResult{"query": name, "found": false, "message": "No student found with that name."}, nil
	}

	out := make([]map[string]interface{}, 0, len(students))
	for _, s := range students {
		out = append(out, map[string]interface{}{"name": s.Name, "roll_no": s.RollNo, "section": s.SectionName})
	}
	return models.QueryResult{"query": name, "found": true, "students": out}, nil
}

// lowAttendance lists students under the attendance-rate threshold over the
// trailing window ending today.
func (h *Handler) lowAttendance(ctx context.Context, now time.Time) (models.QueryResult, error) {
	end := now.Format(extractentities.DateLayout)
	start := now.AddDate(0, 0, -h.config.LowAttendanceWindowDays).Format(extractentities.DateLayout)

	rates, err := h.dir.AttendanceRates(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("attendance rates: %w", err)
	}

	low := make([]map[string]interface{}, 0)
	for _, r := range rates {
		if r.Rate >= h.config.LowAttendanceThreshold {
			continue
		}
		low = append(low, map[string]interface{}{
			"student_id": r.StudentID, "roll_no": r.RollNo, "name": r.Name,
			"section_name": r.SectionName, "present": r.Present, "total": r.Total, "rate": r.Rate,
		})
	}

	capped := low[:min(len(low), h.config.LowAttendanceCap)]
	return models.QueryResult{
		"period":            start + " to " + end,
		"threshold_percent": int(math.Round(h.config.LowAttendanceThreshold * 100)),
		"count":             len(low),
		"students":          capped,
		"truncated":         len(low) > h.config.LowAttendanceCap,
	}, nil
}

// absentMoreThan lists students with at least the given number of distinct
// absent days since the first of the current month.
func (h *Handler) absentMoreThan(ctx context.Context, params models.ParameterSet, now time.Time) (models.QueryResult, error) {
	days := params.Days
	if days < 1 {
		days = h.config.DefaultAbsentDays
	}

	end := now.Format(extractentities.DateLayout)
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).Format(extractentities.DateLayout)

	students, err := h.dir.AbsentMoreThanDays(ctx, days, start, end)
	if err != nil {
		return nil, fmt.Errorf("absent more than days: %w", err)
	}

	out := make([]map[string]interface{}, 0, len(students))
	for _, s := range students {
		out = append(out, map[string]interface{}{
			"student_id": s.StudentID, "roll_no": s.RollNo, "name": s.Name,
			"section_name": s.SectionName, "absent_days": s.AbsentDays,
		})
	}

	capped := out[:min(len(out), h.config.AbsentCap)]
	return models.QueryResult{
		"period":          start + " to " + end,
		"min_absent_days": days,
		"count":           len(out),
		"students":        capped,
		"truncated":       len(out) > h.config.AbsentCap,
	}, nil
}
