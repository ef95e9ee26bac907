// internal/store/postgres.go
package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"attendance-chat/internal/common/metrics"
	"attendance-chat/internal/models"
)

const (
	// findLimit caps roll/name searches server-side.
	findLimit = 20

	// maxPerPage bounds one page of the student roster.
	maxPerPage = 200

	dateLayout = "2006-01-02"
)

// Store implements the read capabilities the query handlers need on top of
// PostgreSQL. Reads follow the default-present rule: a student with no
// attendance row for a date and session counts as present there.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// observeQuery times one capability call for the store duration histogram.
func observeQuery(capability string) func() {
	start := time.Now()
	return func() {
		metrics.StoreQueryDuration.WithLabelValues(capability).Observe(time.Since(start).Seconds())
	}
}

// ListSections returns all sections ordered by name.
func (s *Store) ListSections(ctx context.Context) ([]models.Section, error) {
	defer observeQuery("list_sections")()

	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM sections ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	defer rows.Close()

	out := make([]models.Section, 0)
	for rows.Next() {
		var sec models.Section
		if err := rows.Scan(&sec.ID, &sec.Name); err != nil {
			return nil, fmt.Errorf("scan section: %w", err)
		}
		out = append(out, sec)
	}
	return out, rows.Err()
}

// SectionByName finds one section by name, trimmed. Returns nil when no
// section matches or the name is blank.
func (s *Store) SectionByName(ctx context.Context, name string, caseInsensitive bool) (*models.Section, error) {
	defer observeQuery("section_by_name")()

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	query := "SELECT id, name FROM sections WHERE name = $1 LIMIT 1"
	if caseInsensitive {
		query = "SELECT id, name FROM sections WHERE LOWER(TRIM(name)) = LOWER($1) LIMIT 1"
	}

	var sec models.Section
	err := s.db.QueryRowContext(ctx, query, name).Scan(&sec.ID, &sec.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("section by name: %w", err)
	}
	return &sec, nil
}

// CountStudents counts students in one section, or overall when sectionID
// is zero.
func (s *Store) CountStudents(ctx context.Context, sectionID int64) (int, error) {
	defer observeQuery("count_students")()

	var (
		n   int
		err error
	)
	if sectionID != 0 {
		err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM students WHERE section_id = $1", sectionID).Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM students").Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return n, nil
}

// ListStudents returns one page of students with section names joined, plus
// the total row count before paging. Search filters roll number and name.
func (s *Store) ListStudents(ctx context.Context, query models.StudentQuery) ([]models.Student, int, error) {
	defer observeQuery("list_students")()

	page := max(1, query.Page)
	perPage := min(maxPerPage, max(1, query.PerPage))
	offset := (page - 1) * perPage

	sortCol := "s.roll_no"
	if strings.EqualFold(strings.TrimSpace(query.SortBy), "name") {
		sortCol = "s.name"
	}

	where := make([]string, 0, 2)
	args := make([]interface{}, 0, 4)
	if query.SectionID != 0 {
		args = append(args, query.SectionID)
		where = append(where, fmt.Sprintf("s.section_id = $%d", len(args)))
	}
	if search := strings.TrimSpace(query.Search); search != "" {
		args = append(args, "%"+search+"%")
		where = append(where, fmt.Sprintf("(s.roll_no ILIKE $%d OR s.name ILIKE $%d)", len(args), len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM students s"+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count students page: %w", err)
	}

	listQuery := `SELECT s.id, s.roll_no, s.name, s.section_id, sec.name
	              FROM students s
	              JOIN sections sec ON s.section_id = sec.id` + clause +
		fmt.Sprintf(" ORDER BY %s LIMIT $%d OFFSET $%d", sortCol, len(args)+1, len(args)+2)
	args = append(args, perPage, offset)

	rows, err := s.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()

	out := make([]models.Student, 0, perPage)
	for rows.Next() {
		var st models.Student
		if err := rows.Scan(&st.ID, &st.RollNo, &st.Name, &st.SectionID, &st.SectionName); err != nil {
			return nil, 0, fmt.Errorf("scan student: %w", err)
		}
		out = append(out, st)
	}
	return out, total, rows.Err()
}

// FindStudents searches across all sections. A roll prefix takes precedence
// over a name pattern; the roll also matches exactly so numeric-looking and
// alphanumeric roll numbers both resolve. Name search matches substrings
// case-insensitively.
func (s *Store) FindStudents(ctx context.Context, rollPrefix, namePattern string) ([]models.Student, error) {
	defer observeQuery("find_students")()

	roll := strings.TrimSpace(rollPrefix)
	name := strings.TrimSpace(namePattern)

	var (
		rows *sql.Rows
		err  error
	)
	switch {
	case roll != "":
		rows, err = s.db.QueryContext(ctx, `SELECT s.id, s.roll_no, s.name, s.section_id, sec.name
		                                    FROM students s
		                                    JOIN sections sec ON s.section_id = sec.id
		                                    WHERE LOWER(s.roll_no) LIKE $1 OR s.roll_no = $2
		                                    ORDER BY s.roll_no LIMIT $3`,
			strings.ToLower(roll)+"%", roll, findLimit)
	case name != "":
		rows, err = s.db.QueryContext(ctx, `SELECT s.id, s.roll_no, s.name, s.section_id, sec.name
		                                    FROM students s
		                                    JOIN sections sec ON s.section_id = sec.id
		                                    WHERE s.name ILIKE $1
		                                    ORDER BY s.name LIMIT $2`,
			"%"+name+"%", findLimit)
	default:
		return []models.Student{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find students: %w", err)
	}
	defer rows.Close()

	out := make([]models.Student, 0)
	for rows.Next() {
		var st models.Student
		if err := rows.Scan(&st.ID, &st.RollNo, &st.Name, &st.SectionID, &st.SectionName); err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// GetAttendance returns every student of the section with their status for
// the date and session, defaulting to present when no row exists.
func (s *Store) GetAttendance(ctx context.Context, date string, sectionID int64, session string) ([]models.AttendanceEntry, error) {
	defer observeQuery("get_attendance")()

	rows, err := s.db.QueryContext(ctx, `SELECT s.id, s.roll_no, s.name, COALESCE(a.status, 'present')
	                                     FROM students s
	                                     LEFT JOIN attendance a ON a.student_id = s.id AND a.date = $2 AND a.session = $3
	                                     WHERE s.section_id = $1
	                                     ORDER BY s.roll_no`,
		sectionID, date, session)
	if err != nil {
		return nil, fmt.Errorf("get attendance: %w", err)
	}
	defer rows.Close()

	out := make([]models.AttendanceEntry, 0)
	for rows.Next() {
		var e models.AttendanceEntry
		if err := rows.Scan(&e.StudentID, &e.RollNo, &e.Name, &e.Status); err != nil {
			return nil, fmt.Errorf("scan attendance entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// AbsenteesAllSections lists explicit absences for the date across every
// section, ordered by section name, then morning before afternoon, then
// roll number.
func (s *Store) AbsenteesAllSections(ctx context.Context, date string) ([]models.AbsenteeRow, error) {
	defer observeQuery("absentees_all_sections")()

	rows, err := s.db.QueryContext(ctx, `SELECT sec.name, a.session, s.roll_no, s.name
	                                     FROM attendance a
	                                     JOIN students s ON a.student_id = s.id
	                                     JOIN sections sec ON s.section_id = sec.id
	                                     WHERE a.date = $1 AND a.status = 'absent'
	                                     ORDER BY sec.name, CASE a.session WHEN 'morning' THEN 0 ELSE 1 END, s.roll_no`,
		date)
	if err != nil {
		return nil, fmt.Errorf("absentees all sections: %w", err)
	}
	defer rows.Close()

	return scanAbsenteeRows(rows)
}

// PresentAllSections lists everyone counting as present for the date across
// every section and session, including students with no stored row.
func (s *Store) PresentAllSections(ctx context.Context, date string) ([]models.AbsenteeRow, error) {
	defer observeQuery("present_all_sections")()

	rows, err := s.db.QueryContext(ctx, `SELECT sec.name, sess.session, s.roll_no, s.name
	                                     FROM students s
	                                     JOIN sections sec ON s.section_id = sec.id
	                                     CROSS JOIN (VALUES ('morning'), ('afternoon')) AS sess(session)
	                                     LEFT JOIN attendance a ON a.student_id = s.id AND a.date = $1 AND a.session = sess.session
	                                     WHERE COALESCE(a.status, 'present') = 'present'
	                                     ORDER BY sec.name, CASE sess.session WHEN 'morning' THEN 0 ELSE 1 END, s.roll_no`,
		date)
	if err != nil {
		return nil, fmt.Errorf("present all sections: %w", err)
	}
	defer rows.Close()

	return scanAbsenteeRows(rows)
}

func scanAbsenteeRows(rows *sql.Rows) ([]models.AbsenteeRow, error) {
	out := make([]models.AbsenteeRow, 0)
	for rows.Next() {
		var r models.AbsenteeRow
		if err := rows.Scan(&r.SectionName, &r.Session, &r.RollNo, &r.Name); err != nil {
			return nil, fmt.Errorf("scan absentee row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// AttendanceRates computes each student's present-session count and rate
// over the inclusive date range. Total slots = days * 2 for the two daily
// sessions. An unparseable or empty range yields no rows.
func (s *Store) AttendanceRates(ctx context.Context, dateStart, dateEnd string) ([]models.StudentRate, error) {
	defer observeQuery("attendance_rates")()

	start, err := time.Parse(dateLayout, clipDate(dateStart))
	if err != nil {
		return []models.StudentRate{}, nil
	}
	end, err := time.Parse(dateLayout, clipDate(dateEnd))
	if err != nil {
		return []models.StudentRate{}, nil
	}
	days := int(end.Sub(start).Hours()/24) + 1
	if days <= 0 {
		return []models.StudentRate{}, nil
	}
	totalSessions := days * 2

	rows, err := s.db.QueryContext(ctx, `SELECT s.id, s.roll_no, s.name, sec.name, COALESCE(p.n, 0)
	                                     FROM students s
	                                     JOIN sections sec ON s.section_id = sec.id
	                                     LEFT JOIN (
	                                         SELECT student_id, COUNT(*) AS n
	                                         FROM attendance
	                                         WHERE date >= $1 AND date <= $2 AND status = 'present'
	                                         GROUP BY student_id
	                                     ) p ON p.student_id = s.id
	                                     ORDER BY s.section_id, s.roll_no`,
		clipDate(dateStart), clipDate(dateEnd))
	if err != nil {
		return nil, fmt.Errorf("attendance rates: %w", err)
	}
	defer rows.Close()

	out := make([]models.StudentRate, 0)
	for rows.Next() {
		var r models.StudentRate
		if err := rows.Scan(&r.StudentID, &r.RollNo, &r.Name, &r.SectionName, &r.Present); err != nil {
			return nil, fmt.Errorf("scan student rate: %w", err)
		}
		r.Total = totalSessions
		r.Rate = roundTo(float64(r.Present)/float64(totalSessions), 2)
		out = append(out, r)
	}
	return out, rows.Err()
}

// AbsentMoreThanDays returns students whose count of distinct absent dates
// in the inclusive range reaches minDays, most-absent first.
func (s *Store) AbsentMoreThanDays(ctx context.Context, minDays int, dateStart, dateEnd string) ([]models.StudentAbsence, error) {
	defer observeQuery("absent_more_than_days")()

	rows, err := s.db.QueryContext(ctx, `SELECT s.id, s.roll_no, s.name, sec.name, COUNT(DISTINCT a.date) AS absent_days
	                                     FROM attendance a
	                                     JOIN students s ON a.student_id = s.id
	                                     JOIN sections sec ON s.section_id = sec.id
	                                     WHERE a.status = 'absent' AND a.date >= $1 AND a.date <= $2
	                                     GROUP BY s.id, s.roll_no, s.name, sec.name
	                                     HAVING COUNT(DISTINCT a.date) >= $3
	                                     ORDER BY absent_days DESC, s.roll_no`,
		clipDate(dateStart), clipDate(dateEnd), minDays)
	if err != nil {
		return nil, fmt.Errorf("absent more than days: %w", err)
	}
	defer rows.Close()

	out := make([]models.StudentAbsence, 0)
	for rows.Next() {
		var r models.StudentAbsence
		if err := rows.Scan(&r.StudentID, &r.RollNo, &r.Name, &r.SectionName, &r.AbsentDays); err != nil {
			return nil, fmt.Errorf("scan student absence: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// clipDate keeps the YYYY-MM-DD prefix of a possibly longer timestamp.
func clipDate(s string) string {
	if len(s) > 10 {
		return s[:10]
	}
	return s
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}