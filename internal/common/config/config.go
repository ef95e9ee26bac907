// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Assistant AssistantConfig `mapstructure:"assistant"`
	Chat      ChatConfig      `mapstructure:"chat"`
	Query     QueryConfig     `mapstructure:"query"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Port            int `mapstructure:"port"`
	ReadTimeout     int `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int `mapstructure:"shutdown_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AssistantConfig holds settings for the optional remote text assistant.
// An empty APIKey disables the remote classify/polish/general paths; the
// deterministic pipeline answers everything on its own.
type AssistantConfig struct {
	BaseURL             string  `mapstructure:"base_url"`
	APIKey              string  `mapstructure:"api_key"`
	Model               string  `mapstructure:"model"`
	Timeout             int     `mapstructure:"timeout"`     // milliseconds
	MaxRetries          int     `mapstructure:"max_retries"` // extra attempts beyond the first
	ClassifyMaxTokens   int     `mapstructure:"classify_max_tokens"`
	ClassifyTemperature float64 `mapstructure:"classify_temperature"`
	PolishMaxTokens     int     `mapstructure:"polish_max_tokens"`
	PolishTemperature   float64 `mapstructure:"polish_temperature"`
	GeneralMaxTokens    int     `mapstructure:"general_max_tokens"`
	GeneralTemperature  float64 `mapstructure:"general_temperature"`
	MinPolishLength     int     `mapstructure:"min_polish_length"`
}

// Enabled reports whether remote assistant calls are configured.
func (a AssistantConfig) Enabled() bool {
	return a.APIKey != ""
}

// ChatConfig holds boundary settings for the chat endpoint.
type ChatConfig struct {
	RateLimitPerMinute int `mapstructure:"rate_limit_per_minute"`
	DailyCap           int `mapstructure:"daily_cap"`
	MaxQuestionLength  int `mapstructure:"max_question_length"`
}

// QueryConfig holds the result caps and period defaults for the query handlers.
type QueryConfig struct {
	AttendanceListCap      int     `mapstructure:"attendance_list_cap"`
	StudentListCap         int     `mapstructure:"student_list_cap"`
	LowAttendanceCap       int     `mapstructure:"low_attendance_cap"`
	LowAttendanceDays      int     `mapstructure:"low_attendance_days"`
	LowAttendanceThreshold float64 `mapstructure:"low_attendance_threshold"`
	AbsentMoreCap          int     `mapstructure:"absent_more_cap"`
	DefaultAbsentDays      int     `mapstructure:"default_absent_days"`
	SectionTopCap          int     `mapstructure:"section_top_cap"`
}

// CatalogConfig points at the intent catalog file.
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
