// internal/models/records.go
package models

// Section is one class section.
type Section struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Student is one enrolled student. SectionName is filled by queries that
// join the section, and left empty otherwise.
type Student struct {
	ID          int64  `json:"id"`
	RollNo      string `json:"roll_no"`
	Name        string `json:"name"`
	SectionID   int64  `json:"section_id"`
	SectionName string `json:"section_name,omitempty"`
}

// StudentQuery selects a page of students. SectionID zero means all
// sections; Search filters roll number and name; SortBy is "roll_no"
// (default) or "name".
type StudentQuery struct {
	SectionID int64
	Page      int
	PerPage   int
	Search    string
	SortBy    string
}

// AttendanceEntry is one student's status for a date, section, and session.
// Students with no stored row default to present.
type AttendanceEntry struct {
	StudentID int64  `json:"student_id"`
	RollNo    string `json:"roll_no"`
	Name      string `json:"name"`
	Status    string `json:"status"`
}

// AbsenteeRow is one absence (or presence) record across all sections.
type AbsenteeRow struct {
	SectionName string `json:"section_name"`
	Session     string `json:"session"`
	RollNo      string `json:"roll_no"`
	Name        string `json:"name"`
}

// SectionSessionCount is the present/absent tally for one section and session.
type SectionSessionCount struct {
	Section string `json:"section"`
	Session string `json:"session"`
	Present int    `json:"present"`
	Absent  int    `json:"absent"`
}

// DayCount is the present/absent tally for one calendar date.
type DayCount struct {
	Date    string `json:"date"`
	Present int    `json:"present"`
	Absent  int    `json:"absent"`
}

// StudentRate is one student's attendance rate over a period. Total counts
// session slots (two per day), Present counts attended slots.
type StudentRate struct {
	StudentID   int64   `json:"student_id"`
	RollNo      string  `json:"roll_no"`
	Name        string  `json:"name"`
	SectionName string  `json:"section_name"`
	Present     int     `json:"present"`
	Total       int     `json:"total"`
	Rate        float64 `json:"rate"`
}

// StudentAbsence is one student's distinct absent-day count over a period.
type StudentAbsence struct {
	StudentID   int64  `json:"student_id"`
	RollNo      string `json:"roll_no"`
	Name        string `json:"name"`
	SectionName string `json:"section_name"`
	AbsentDays  int    `json:"absent_days"`
}
