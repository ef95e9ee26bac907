// test/e2e/e2e_test.go
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendance-chat/internal/common/errors"
	"attendance-chat/internal/common/genai"
	"attendance-chat/internal/common/logger"
	"attendance-chat/internal/engine"
	executequery "attendance-chat/internal/engine/execute-query"
	polishresponse "attendance-chat/internal/engine/polish-response"
	remoteintent "attendance-chat/internal/engine/remote-intent"
	"attendance-chat/internal/models"
	"attendance-chat/internal/server"
	"attendance-chat/pkg/registry"
)

// testNow anchors every relative date in the pipeline: "today" is Friday
// 2026-02-20 for all questions below.
var testNow = time.Date(2026, time.February, 20, 9, 30, 0, 0, time.UTC)

// Logger adapters to bridge logger.Logger to stage-specific Logger interfaces
type engineLoggerAdapter struct {
	logger.Logger
}

func (a *engineLoggerAdapter) With(fields map[string]interface{}) engine.Logger {
	return &engineLoggerAdapter{a.Logger.With(fields)}
}

type remoteIntentLoggerAdapter struct {
	logger.Logger
}

func (a *remoteIntentLoggerAdapter) With(fields map[string]interface{}) remoteintent.Logger {
	return &remoteIntentLoggerAdapter{a.Logger.With(fields)}
}

type executeQueryLoggerAdapter struct {
	logger.Logger
}

func (a *executeQueryLoggerAdapter) With(fields map[string]interface{}) executequery.Logger {
	return &executeQueryLoggerAdapter{a.Logger.With(fields)}
}

type polishResponseLoggerAdapter struct {
	logger.Logger
}

func (a *polishResponseLoggerAdapter) With(fields map[string]interface{}) polishresponse.Logger {
	return &polishResponseLoggerAdapter{a.Logger.With(fields)}
}

type serverLoggerAdapter struct {
	logger.Logger
}

func (a *serverLoggerAdapter) With(fields map[string]interface{}) server.Logger {
	return &serverLoggerAdapter{a.Logger.With(fields)}
}

// ==========================
// In-Memory Directory
// ==========================

type mark struct {
	studentID int64
	date      string
	session   string
	status    string
}

// fakeDirectory keeps sections, students and attendance marks in memory and
// answers every Directory call with the same ordering and default-present
// rule as the SQL store.
type fakeDirectory struct {
	sections []models.Section
	students []models.Student
	marks    []mark
}

// newFakeDirectory builds the fixed roster the tests run against: two
// sections, five students, and three marked school days ending at testNow.
// Rahul misses most of the window; Sneha misses one morning.
func newFakeDirectory() *fakeDirectory {
	d := &fakeDirectory{
		sections: []models.Section{
			{ID: 1, Name: "ECE A"},
			{ID: 2, Name: "ECE B"},
		},
		students: []models.Student{
			{ID: 1, RollNo: "R101", Name: "Rahul Verma", SectionID: 1, SectionName: "ECE A"},
			{ID: 2, RollNo: "R102", Name: "Priya Singh", SectionID: 1, SectionName: "ECE A"},
			{ID: 3, RollNo: "R103", Name: "Amit Kumar", SectionID: 1, SectionName: "ECE A"},
			{ID: 4, RollNo: "R201", Name: "Sneha Patel", SectionID: 2, SectionName: "ECE B"},
			{ID: 5, RollNo: "R202", Name: "Vikram Rao", SectionID: 2, SectionName: "ECE B"},
		},
	}

	d.markDay("2026-02-18", map[int64][]string{
		1: {models.SessionMorning, models.SessionAfternoon},
	})
	d.markDay("2026-02-19", map[int64][]string{
		1: {models.SessionMorning},
	})
	d.markDay("2026-02-20", map[int64][]string{
		1: {models.SessionMorning, models.SessionAfternoon},
		4: {models.SessionMorning},
	})
	return d
}

// markDay writes one row per student per session the way the marking flow
// does: absent for the listed sessions, present for everyone else.
func (d *fakeDirectory) markDay(date string, absences map[int64][]string) {
	for _, s := range d.students {
		for _, sess := range []string{models.SessionMorning, models.SessionAfternoon} {
			status := models.StatusPresent
			for _, a := range absences[s.ID] {
				if a == sess {
					status = models.StatusAbsent
				}
			}
			d.marks = append(d.marks, mark{studentID: s.ID, date: date, session: sess, status: status})
		}
	}
}

func (d *fakeDirectory) statusOf(studentID int64, date, session string) string {
	for _, m := range d.marks {
		if m.studentID == studentID && m.date == date && m.session == session {
			return m.status
		}
	}
	return models.StatusPresent
}

func (d *fakeDirectory) studentsBySection(sectionID int64) []models.Student {
	out := make([]models.Student, 0, len(d.students))
	for _, s := range d.students {
		if sectionID == 0 || s.SectionID == sectionID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RollNo < out[j].RollNo })
	return out
}

func (d *fakeDirectory) ListSections(ctx context.Context) ([]models.Section, error) {
	out := make([]models.Section, len(d.sections))
	copy(out, d.sections)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (d *fakeDirectory) SectionByName(ctx context.Context, name string, caseInsensitive bool) (*models.Section, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, nil
	}
	for _, sec := range d.sections {
		if sec.Name == trimmed || (caseInsensitive && strings.EqualFold(sec.Name, trimmed)) {
			found := sec
			return &found, nil
		}
	}
	return nil, nil
}

func (d *fakeDirectory) CountStudents(ctx context.Context, sectionID int64) (int, error) {
	return len(d.studentsBySection(sectionID)), nil
}

func (d *fakeDirectory) ListStudents(ctx context.Context, query models.StudentQuery) ([]models.Student, int, error) {
	rows := make([]models.Student, 0, len(d.students))
	needle := strings.ToLower(strings.TrimSpace(query.Search))
	for _, s := range d.studentsBySection(query.SectionID) {
		if needle != "" &&
			!strings.Contains(strings.ToLower(s.RollNo), needle) &&
			!strings.Contains(strings.ToLower(s.Name), needle) {
			continue
		}
		rows = append(rows, s)
	}
	if strings.EqualFold(strings.TrimSpace(query.SortBy), "name") {
		sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	}

	total := len(rows)
	page := query.Page
	if page < 1 {
		page = 1
	}
	perPage := query.PerPage
	if perPage < 1 {
		perPage = 50
	}
	from := (page - 1) * perPage
	if from >= total {
		return []models.Student{}, total, nil
	}
	return rows[from:min(from+perPage, total)], total, nil
}

func (d *fakeDirectory) FindStudents(ctx context.Context, rollPrefix, namePattern string) ([]models.Student, error) {
	out := make([]models.Student, 0)
	switch {
	case strings.TrimSpace(rollPrefix) != "":
		roll := strings.TrimSpace(rollPrefix)
		for _, s := range d.students {
			if strings.HasPrefix(strings.ToLower(s.RollNo), strings.ToLower(roll)) || s.RollNo == roll {
				out = append(out, s)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].RollNo < out[j].RollNo })
	case strings.TrimSpace(namePattern) != "":
		name := strings.ToLower(strings.TrimSpace(namePattern))
		for _, s := range d.students {
			if strings.Contains(strings.ToLower(s.Name), name) {
				out = append(out, s)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	}
	return out, nil
}

func (d *fakeDirectory) GetAttendance(ctx context.Context, date string, sectionID int64, session string) ([]models.AttendanceEntry, error) {
	rows := make([]models.AttendanceEntry, 0)
	for _, s := range d.studentsBySection(sectionID) {
		rows = append(rows, models.AttendanceEntry{
			StudentID: s.ID,
			RollNo:    s.RollNo,
			Name:      s.Name,
			Status:    d.statusOf(s.ID, date, session),
		})
	}
	return rows, nil
}

// rowsByStatus walks sections in name order, morning before afternoon,
// students in roll order, matching the store's result ordering.
func (d *fakeDirectory) rowsByStatus(date, status string) []models.AbsenteeRow {
	sections, _ := d.ListSections(context.Background())
	out := make([]models.AbsenteeRow, 0)
	for _, sec := range sections {
		for _, sess := range []string{models.SessionMorning, models.SessionAfternoon} {
			for _, s := range d.studentsBySection(sec.ID) {
				if d.statusOf(s.ID, date, sess) == status {
					out = append(out, models.AbsenteeRow{
						SectionName: sec.Name, Session: sess, RollNo: s.RollNo, Name: s.Name,
					})
				}
			}
		}
	}
	return out
}

func (d *fakeDirectory) AbsenteesAllSections(ctx context.Context, date string) ([]models.AbsenteeRow, error) {
	return d.rowsByStatus(date, models.StatusAbsent), nil
}

func (d *fakeDirectory) PresentAllSections(ctx context.Context, date string) ([]models.AbsenteeRow, error) {
	return d.rowsByStatus(date, models.StatusPresent), nil
}

func (d *fakeDirectory) AttendanceRates(ctx context.Context, dateStart, dateEnd string) ([]models.StudentRate, error) {
	start, errStart := time.Parse("2006-01-02", dateStart)
	end, errEnd := time.Parse("2006-01-02", dateEnd)
	if errStart != nil || errEnd != nil {
		return []models.StudentRate{}, nil
	}
	days := int(end.Sub(start).Hours()/24) + 1
	if days <= 0 {
		return []models.StudentRate{}, nil
	}
	total := days * 2

	out := make([]models.StudentRate, 0, len(d.students))
	for _, s := range d.studentsBySection(0) {
		present := 0
		for _, m := range d.marks {
			if m.studentID == s.ID && m.status == models.StatusPresent && m.date >= dateStart && m.date <= dateEnd {
				present++
			}
		}
		out = append(out, models.StudentRate{
			StudentID: s.ID, RollNo: s.RollNo, Name: s.Name, SectionName: s.SectionName,
			Present: present, Total: total,
			Rate: math.Round(float64(present)/float64(total)*100) / 100,
		})
	}
	return out, nil
}

func (d *fakeDirectory) AbsentMoreThanDays(ctx context.Context, minDays int, dateStart, dateEnd string) ([]models.StudentAbsence, error) {
	out := make([]models.StudentAbsence, 0)
	for _, s := range d.studentsBySection(0) {
		seen := make(map[string]struct{})
		for _, m := range d.marks {
			if m.studentID == s.ID && m.status == models.StatusAbsent && m.date >= dateStart && m.date <= dateEnd {
				seen[m.date] = struct{}{}
			}
		}
		if len(seen) >= minDays {
			out = append(out, models.StudentAbsence{
				StudentID: s.ID, RollNo: s.RollNo, Name: s.Name,
				SectionName: s.SectionName, AbsentDays: len(seen),
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AbsentDays != out[j].AbsentDays {
			return out[i].AbsentDays > out[j].AbsentDays
		}
		return out[i].RollNo < out[j].RollNo
	})
	return out, nil
}

// ==========================
// Server Setup
// ==========================

type okPinger struct{}

func (okPinger) Ping(ctx context.Context) error { return nil }

func setupRedis(t *testing.T) *redis.Client {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}

// newChatServer wires the whole stack the way cmd/chat-server does, with the
// in-memory directory behind the query stage and no assistant API key, so
// every answer exercises the deterministic path.
func newChatServer(t *testing.T, dir executequery.Directory, perMinute, dailyCap int) *httptest.Server {
	t.Helper()

	log := logger.NewNoOpLogger()
	assistant := genai.NewClient(genai.Config{Timeout: time.Second}, log)
	catalog := registry.DefaultCatalog()

	remote := remoteintent.NewHandler(remoteintent.LoadConfig(), assistant, catalog, &remoteIntentLoggerAdapter{log})
	query := executequery.NewHandler(executequery.LoadConfig(), dir, &executeQueryLoggerAdapter{log})
	polish := polishresponse.NewHandler(polishresponse.LoadConfig(), assistant, &polishResponseLoggerAdapter{log})
	eng := engine.New(engine.LoadConfig(), remote, query, polish, assistant, &engineLoggerAdapter{log})

	limiter := server.NewRateLimiter(setupRedis(t), perMinute, dailyCap, &serverLoggerAdapter{log})

	srv := server.New(server.Options{
		Engine:   eng,
		Limiter:  limiter,
		Catalog:  catalog,
		Postgres: okPinger{},
		Redis:    okPinger{},
		Errors:   errors.NewErrorHandler(log),
		Logger:   &serverLoggerAdapter{log},
		Clock:    func() time.Time { return testNow },
	})

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func ask(t *testing.T, ts *httptest.Server, question string) (int, map[string]interface{}) {
	t.Helper()

	payload, err := json.Marshal(map[string]string{"question": question})
	require.NoError(t, err)

	resp, err := http.Post(ts.URL+"/api/chat", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

// ==========================
// Full Pipeline
// ==========================

func TestChatPipeline(t *testing.T) {
	ts := newChatServer(t, newFakeDirectory(), 1000, 0)

	t.Log("🚀 Driving questions through the full chat pipeline...")

	tests := []struct {
		name     string
		question string
		intent   string
		contains []string
	}{
		{
			name:     "absentees today across sections",
			question: "Who is absent today?",
			intent:   "attendance_list",
			contains: []string{
				"**Date:** 2026-02-20",
				"**Scope:** all sections, both sessions",
				"**Count:** 2",
				"| Rahul Verma | R101 | afternoon, morning |",
				"| Sneha Patel | R201 | morning |",
			},
		},
		{
			name:     "typo folds into absent",
			question: "Who was abscent today?",
			intent:   "attendance_list",
			contains: []string{"**Count:** 2", "Rahul Verma"},
		},
		{
			name:     "section and session scoped list",
			question: "Who is absent in ECE A morning?",
			intent:   "attendance_list",
			contains: []string{
				"**Scope:** ECE A, morning",
				"**Count:** 1",
				"  1. Rahul Verma (R101)",
			},
		},
		{
			name:     "summary across the school",
			question: "Attendance summary for today",
			intent:   "attendance_summary",
			contains: []string{
				"**Total Students:** 10",
				"**Present:** 7",
				"**Absent:** 3",
				"**Attendance rate (%):** 70.0",
				"• ECE A — morning: Present 2, Absent 1",
				"• ECE B — afternoon: Present 2, Absent 0",
			},
		},
		{
			name:     "summary scoped to one section",
			question: "Attendance summary for ECE B today",
			intent:   "attendance_summary",
			contains: []string{
				"**Total Students:** 4",
				"**Attendance rate (%):** 75.0",
				"• ECE B — morning: Present 1, Absent 1",
			},
		},
		{
			name:     "count all students",
			question: "How many students are there?",
			intent:   "count_students",
			contains: []string{"**Scope:** all sections", "**Count:** 5"},
		},
		{
			name:     "count one section",
			question: "How many students in ECE A?",
			intent:   "count_students",
			contains: []string{"**Section:** ECE A", "**Count:** 3"},
		},
		{
			name:     "find student by name",
			question: "Find student Rahul",
			intent:   "student_lookup",
			contains: []string{"**Count:** 1", "| Rahul Verma | R101 |"},
		},
		{
			name:     "section lookup by student name",
			question: "Which section is Priya in?",
			intent:   "section_lookup",
			contains: []string{
				"**Query:** priya | **Found:** Yes",
				"  1. Priya Singh (R102)",
			},
		},
		{
			name:     "section with most absences",
			question: "Which section has most absent students today?",
			intent:   "section_most_absent",
			contains: []string{
				"**Section Most Absent:** ECE A",
				"**Absent Count:** 2",
				"| ECE A | 2 |",
				"| ECE B | 1 |",
			},
		},
		{
			name:     "weekly totals",
			question: "Show attendance for this week",
			intent:   "attendance_week",
			contains: []string{
				"**Period:** last 7 days",
				"**Total Students:** 70",
				"**Total Present:** 64",
				"**Total Absent:** 6",
				"| 2026-02-20 | 7 | 3 |",
				"| 2026-02-17 | 10 | 0 |",
			},
		},
		{
			name:     "student roster with today's status",
			question: "List all students in ECE A",
			intent:   "student_list",
			contains: []string{
				"**Scope:** ECE A",
				"| R101 | Rahul Verma | ECE A | absent |",
				"| R102 | Priya Singh | ECE A | present |",
			},
		},
		{
			name:     "repeat absentees this month",
			question: "Who was absent more than 2 days this month?",
			intent:   "absent_more_than",
			contains: []string{
				"**Period:** 2026-02-01 to 2026-02-20",
				"**Min Absent Days:** 2",
				"**Count:** 1",
				"| Rahul Verma | R101 |",
			},
		},
		{
			name:     "low attendance window",
			question: "List students with low attendance",
			intent:   "low_attendance",
			contains: []string{
				"**Period:** 2026-01-21 to 2026-02-20",
				"**Threshold Percent:** 75",
				"**Count:** 5",
				"| Rahul Verma | R101 |",
				"| Vikram Rao | R202 |",
			},
		},
		{
			name:     "general question without an assistant key",
			question: "What is machine learning?",
			intent:   "general_question",
			contains: []string{"AI assistant is currently offline"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := ask(t, ts, tt.question)
			require.Equal(t, http.StatusOK, status)

			assert.Equal(t, tt.intent, body["intent"])
			assert.NotEmpty(t, body["request_id"])

			text, _ := body["response"].(string)
			for _, want := range tt.contains {
				assert.Contains(t, text, want)
			}
		})
	}

	t.Log("✅ All intents answered deterministically")
}

func TestChatPipeline_UnknownSection(t *testing.T) {
	ts := newChatServer(t, newFakeDirectory(), 1000, 0)

	status, body := ask(t, ts, "Who is absent in CSE Z morning?")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "attendance_list", body["intent"])

	text, _ := body["response"].(string)
	assert.Contains(t, text, "**Error:** Section not found: CSE Z")
}

func TestChatPipeline_EmptyQuestion(t *testing.T) {
	ts := newChatServer(t, newFakeDirectory(), 1000, 0)

	status, body := ask(t, ts, "   ")
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Please enter a question.", body["response"])
	assert.Equal(t, "empty", body["error"])
}

func TestChatPipeline_RateLimited(t *testing.T) {
	ts := newChatServer(t, newFakeDirectory(), 2, 0)

	for i := 0; i < 2; i++ {
		status, _ := ask(t, ts, "Who is absent today?")
		require.Equal(t, http.StatusOK, status)
	}

	status, body := ask(t, ts, "Who is absent today?")
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "AI usage limit reached. Please try later.", body["response"])
	assert.Equal(t, "AI usage limit reached. Please try later.", body["error"])
}

func TestHealthAndIntents(t *testing.T) {
	ts := newChatServer(t, newFakeDirectory(), 1000, 0)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, "up", health["database"])
	assert.Equal(t, "up", health["redis"])

	resp, err = http.Get(ts.URL + "/api/intents")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var catalog registry.IntentCatalog
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&catalog))
	assert.Len(t, catalog.Intents, 11)
	assert.Equal(t, "attendance_list", catalog.Intents[0].ID)
}
