// internal/engine/execute-query/attendance.go
package executequery

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	extractentities "attendance-chat/internal/engine/extract-entities"
	"attendance-chat/internal/models"
)

// attendanceList resolves section and session scope and returns the matching
// present/absent rows. "ALL" sections with "ALL" sessions de-duplicates a
// student absent in both sessions into one row whose session field joins the
// sessions; a named section with a concrete session returns plain roll/name
// rows without a cap.
func (h *Handler) attendanceList(ctx context.Context, params models.ParameterSet, now time.Time) (models.QueryResult, error) {
	date := resolveDate(params.Date, now)
	section := strings.TrimSpace(params.Section)
	if section == "" {
		section = models.ScopeAll
	}
	session := strings.ToLower(strings.TrimSpace(params.Session))
	if session == "" {
		session = "all"
	}
	status := strings.ToLower(strings.TrimSpace(params.Status))
	if status == "" {
		status = models.StatusAbsent
	}

	if scopeAll(section) && session == "all" {
		if status == models.StatusAbsent {
			rows, err := h.dir.AbsenteesAllSections(ctx, date)
			if err != nil {
				return nil, fmt.Errorf("absentees all sections: %w", err)
			}
			listOut, total := dedupeBySections(rows)
			if len(listOut) > h.config.ListCap {
				listOut = listOut[:h.config.ListCap]
			}
			return models.QueryResult{
				"date": date, "scope": "all sections, both sessions", "status": status,
				"count": len(listOut), "list": listOut, "truncated": total > h.config.ListCap,
			}, nil
		}
		rows, err := h.dir.PresentAllSections(ctx, date)
		if err != nil {
			return nil, fmt.Errorf("present all sections: %w", err)
		}
		listOut := make([]map[string]interface{}, 0, min(len(rows), h.config.ListCap))
		for _, r := range rows[:min(len(rows), h.config.ListCap)] {
			listOut = append(listOut, map[string]interface{}{
				"section_name": r.SectionName, "session": r.Session, "roll_no": r.RollNo, "name": r.Name,
			})
		}
		return models.QueryResult{
			"date": date, "scope": "all sections, both sessions", "status": status,
			"count": len(listOut), "list": listOut, "truncated": len(rows) > h.config.ListCap,
		}, nil
	}

	if scopeAll(section) && (session == models.SessionMorning || session == models.SessionAfternoon) {
		secs, err := h.dir.ListSections(ctx)
		if err != nil {
			return nil, fmt.Errorf("list sections: %w", err)
		}
		rows := make([]map[string]interface{}, 0)
		for _, sec := range secs {
			entries, err := h.dir.GetAttendance(ctx, date, sec.ID, session)
			if err != nil {
				return nil, fmt.Errorf("attendance for %s %s: %w", sec.Name, session, err)
			}
			for _, e := range entries {
				if e.Status != status {
					continue
				}
				rows = append(rows, map[string]interface{}{
					"section_name": sec.Name, "session": session, "roll_no": e.RollNo, "name": e.Name,
				})
			}
		}
		listOut := rows[:min(len(rows), h.config.ListCap)]
		return models.QueryResult{
			"date": date, "scope": "all sections, " + session, "status": status,
			"count": len(listOut), "list": listOut, "truncated": len(rows) > h.config.ListCap,
		}, nil
	}

	var sec *models.Section
	if !scopeAll(section) {
		var err error
		sec, err = h.dir.SectionByName(ctx, section, true)
		if err != nil {
			return nil, fmt.Errorf("section by name: %w", err)
		}
		if sec == nil {
			return models.ErrorResult("Section not found: " + section), nil
		}
	}

	if sec != nil && session == "all" {
		out := make([]models.AbsenteeRow, 0)
		for _, sess := range sessions {
			entries, err := h.dir.GetAttendance(ctx, date, sec.ID, sess)
			if err != nil {
				return nil, fmt.Errorf("attendance for %s %s: %w", sec.Name, sess, err)
			}
			for _, e := range entries {
				if e.Status != status {
					continue
				}
				out = append(out, models.AbsenteeRow{SectionName: sec.Name, Session: sess, RollNo: e.RollNo, Name: e.Name})
			}
		}
		if status == models.StatusAbsent {
			listOut, total := dedupeByStudent(out, sec.Name)
			if len(listOut) > h.config.ListCap {
				listOut = listOut[:h.config.ListCap]
			}
			return models.QueryResult{
				"date": date, "scope": sec.Name + ", both sessions", "status": status,
				"count": len(listOut), "list": listOut, "truncated": total > h.config.ListCap,
			}, nil
		}
		listOut := make([]map[string]interface{}, 0, min(len(out), h.config.ListCap))
		for _, r := range out[:min(len(out), h.config.ListCap)] {
			listOut = append(listOut, map[string]interface{}{
				"section_name": r.SectionName, "session": r.Session, "roll_no": r.RollNo, "name": r.Name,
			})
		}
		return models.QueryResult{
			"date": date, "scope": sec.Name + ", both sessions", "status": status,
			"count": len(listOut), "list": listOut, "truncated": len(out) > h.config.ListCap,
		}, nil
	}

	if sec != nil && (session == models.SessionMorning || session == models.SessionAfternoon) {
		entries, err := h.dir.GetAttendance(ctx, date, sec.ID, session)
		if err != nil {
			return nil, fmt.Errorf("attendance for %s %s: %w", sec.Name, session, err)
		}
		listOut := make([]map[string]interface{}, 0)
		for _, e := range entries {
			if e.Status != status {
				continue
			}
			listOut = append(listOut, map[string]interface{}{"roll_no": e.RollNo, "name": e.Name})
		}
		return models.QueryResult{
			"date": date, "scope": sec.Name + ", " + session, "status": status,
			"count": len(listOut), "list": listOut,
		}, nil
	}

	return models.QueryResult{"date": date, "status": status, "count": 0, "list": []map[string]interface{}{}}, nil
}

// dedupeBySections merges duplicate (section, roll, name) rows, joining the
// sessions each student appears in. Returns the merged rows in first-seen
// order plus the pre-cap total.
func dedupeBySections(rows []models.AbsenteeRow) ([]map[string]interface{}, int) {
	type key struct{ section, roll, name string }
	order := make([]key, 0, len(rows))
	grouped := make(map[key][]string, len(rows))
	for _, r := range rows {
		k := key{r.SectionName, r.RollNo, r.Name}
		if _, seen := grouped[k]; !seen {
			order = append(order, k)
		}
		grouped[k] = append(grouped[k], r.Session)
	}

	out := make([]map[string]interface{}, 0, len(order))
	for _, k := range order {
		out = append(out, map[string]interface{}{
			"section_name": k.section, "roll_no": k.roll, "name": k.name,
			"session": joinSessions(grouped[k]),
		})
	}
	return out, len(order)
}

// dedupeByStudent merges duplicate (roll, name) rows within one section.
func dedupeByStudent(rows []models.AbsenteeRow, sectionName string) ([]map[string]interface{}, int) {
	type key struct{ roll, name string }
	order := make([]key, 0, len(rows))
	grouped := make(map[key][]string, len(rows))
	for _, r := range rows {
		k := key{r.RollNo, r.Name}
		if _, seen := grouped[k]; !seen {
			order = append(order, k)
		}
		grouped[k] = append(grouped[k], r.Session)
	}

	out := make([]map[string]interface{}, 0, len(order))
	for _, k := range order {
		out = append(out, map[string]interface{}{
			"section_name": sectionName, "roll_no": k.roll, "name": k.name,
			"session": joinSessions(grouped[k]),
		})
	}
	return out, len(order)
}

func joinSessions(list []string) string {
	kept := make([]string, 0, len(list))
	for _, s := range list {
		if s != "" {
			kept = append(kept, s)
		}
	}
	sort.Strings(kept)
	return strings.Join(kept, ", ")
}

// attendanceSummary aggregates present/absent counts for a date, optionally
// filtered to a section (exact case-insensitive match, falling back to a
// name-prefix match) and session.
func (h *Handler) attendanceSummary(ctx context.Context, params models.ParameterSet, now time.Time) (models.QueryResult, error) {
	date := params.Date
	if date == "" {
		date = now.Format(extractentities.DateLayout)
	}
	section := strings.TrimSpace(params.Section)
	if section == "" {
		section = models.ScopeAll
	}
	session := strings.ToLower(strings.TrimSpace(params.Session))
	if session == "" {
		session = "all"
	}

	view, err := h.viewByDate(ctx, date)
	if err != nil {
		return nil, err
	}

	sectionMatch := ""
	if !scopeAll(section) {
		sec, err := h.dir.SectionByName(ctx, section, true)
		if err != nil {
			return nil, fmt.Errorf("section by name: %w", err)
		}
		if sec != nil {
			sectionMatch = sec.Name
		}
	}

	totalPresent, totalAbsent := 0, 0
	bySection := make([]map[string]interface{}, 0)
	for _, row := range view {
		if !scopeAll(section) {
			if sectionMatch != "" {
				if row.Section != sectionMatch {
					continue
				}
			} else if !strings.HasPrefix(strings.ToUpper(row.Section), strings.ToUpper(section)) {
				continue
			}
		}
		if session != "all" && row.Session != session {
			continue
		}
		totalPresent += row.Present
		totalAbsent += row.Absent
		bySection = append(bySection, map[string]interface{}{
			"section": row.Section, "session": row.Session, "present": row.Present, "absent": row.Absent,
		})
	}

	totalStudents := totalPresent + totalAbsent
	rate := 0.0
	if totalStudents > 0 {
		rate = float64(totalPresent) / float64(totalStudents) * 100
	}
	if len(bySection) > h.config.SummaryBreakdownCap {
		bySection = bySection[:h.config.SummaryBreakdownCap]
	}

	return models.QueryResult{
		"date":                    date,
		"total_students":          totalStudents,
		"present":                 totalPresent,
		"absent":                  totalAbsent,
		"attendance_rate_percent": math.Round(rate*10) / 10,
		"by_section_session":      bySection,
	}, nil
}

// sectionMostAbsent sums absences per section across both sessions for the
// date and names the section with the highest count. Ties go to the section
// first in name order.
func (h *Handler) sectionMostAbsent(ctx context.Context, params models.ParameterSet, now time.Time) (models.QueryResult, error) {
	date := params.Date
	if date == "" {
		date = now.Format(extractentities.DateLayout)
	}

	view, err := h.viewByDate(ctx, date)
	if err != nil {
		return nil, err
	}

	order := make([]string, 0)
	counts := make(map[string]int)
	for _, row := range view {
		if _, seen := counts[row.Section]; !seen {
			order = append(order, row.Section)
		}
		counts[row.Section] += row.Absent
	}

	if len(order) == 0 {
		return models.QueryResult{
			"date": date, "section_most_absent": nil, "absent_count": 0,
			"by_section": []map[string]interface{}{},
		}, nil
	}

	best := order[0]
	for _, name := range order[1:] {
		if counts[name] > counts[best] {
			best = name
		}
	}

	ranked := make([]string, len(order))
	copy(ranked, order)
	sort.SliceStable(ranked, func(i, j int) bool {
		return counts[ranked[i]] > counts[ranked[j]]
	})
	if len(ranked) > h.config.TopSectionsCap {
		ranked = ranked[:h.config.TopSectionsCap]
	}
	bySection := make([]map[string]interface{}, 0, len(ranked))
	for _, name := range ranked {
		bySection = append(bySection, map[string]interface{}{"section": name, "absent": counts[name]})
	}

	return models.QueryResult{
		"date":                date,
		"section_most_absent": best,
		"absent_count":        counts[best],
		"by_section":          bySection,
	}, nil
}

// attendanceWeek totals present/absent per day for the trailing seven days,
// today first.
func (h *Handler) attendanceWeek(ctx context.Context, now time.Time) (models.QueryResult, error) {
	totalPresent, totalAbsent := 0, 0
	byDay := make([]map[string]interface{}, 0, 7)

	for i := 0; i < 7; i++ {
		date := now.AddDate(0, 0, -i).Format(extractentities.DateLayout)
		view, err := h.viewByDate(ctx, date)
		if err != nil {
			return nil, err
		}
		dayPresent, dayAbsent := 0, 0
		for _, row := range view {
			dayPresent += row.Present
			dayAbsent += row.Absent
		}
		totalPresent += dayPresent
		totalAbsent += dayAbsent
		byDay = append(byDay, map[string]interface{}{"date": date, "present": dayPresent, "absent": dayAbsent})
	}

	return models.QueryResult{
		"period":         "last 7 days",
		"total_present":  totalPresent,
		"total_absent":   totalAbsent,
		"total_students": totalPresent + totalAbsent,
		"by_day":         byDay,
	}, nil
}
