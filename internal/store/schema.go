// internal/store/schema.go
package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Attendance rows are written per student, date, and session by the marking
// flow; students without a row for a slot count as present. The date column
// stays a YYYY-MM-DD string so range filters compare lexically.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS sections (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS students (
		id BIGSERIAL PRIMARY KEY,
		roll_no TEXT NOT NULL,
		name TEXT NOT NULL,
		section_id BIGINT NOT NULL REFERENCES sections(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (section_id, roll_no)
	)`,
	`CREATE TABLE IF NOT EXISTS attendance (
		id BIGSERIAL PRIMARY KEY,
		student_id BIGINT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
		date TEXT NOT NULL,
		session TEXT NOT NULL CHECK (session IN ('morning', 'afternoon')),
		status TEXT NOT NULL DEFAULT 'present' CHECK (status IN ('present', 'absent')),
		marked_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (student_id, date, session)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_attendance_date ON attendance (date)`,
	`CREATE INDEX IF NOT EXISTS idx_attendance_student ON attendance (student_id)`,
	`CREATE INDEX IF NOT EXISTS idx_students_section ON students (section_id)`,
}

// EnsureSchema creates the tables and indexes if they do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}