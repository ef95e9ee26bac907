// internal/server/config.go
package server

import "time"

type Config struct {
	Port               int
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	RateLimitPerMinute int
	DailyCap           int
	MaxQuestionLength  int
}

func LoadConfig() *Config {
	return &Config{
		Port:               8080,
		ReadTimeout:        15 * time.Second,
		WriteTimeout:       30 * time.Second,
		RateLimitPerMinute: 10,
		DailyCap:           200,
		MaxQuestionLength:  1000,
	}
}