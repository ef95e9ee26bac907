// internal/engine/execute-query/config.go
package executequery

type Config struct {
	ListCap                 int
	SummaryBreakdownCap     int
	StudentListCap          int
	LowAttendanceCap        int
	AbsentCap               int
	TopSectionsCap          int
	LowAttendanceWindowDays int
	LowAttendanceThreshold  float64
	DefaultAbsentDays       int
}

func LoadConfig() *Config {
	return &Config{
		ListCap:                 50,
		SummaryBreakdownCap:     20,
		StudentListCap:          200,
		LowAttendanceCap:        30,
		AbsentCap:               30,
		TopSectionsCap:          10,
		LowAttendanceWindowDays: 30,
		LowAttendanceThreshold:  0.75,
		DefaultAbsentDays:       3,
	}
}
