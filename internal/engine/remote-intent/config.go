// internal/engine/remote-intent/config.go
package remoteintent

type Config struct {
	MaxTokens        int
	Temperature      float64
	MaxQuestionRunes int
}

func LoadConfig() *Config {
	return &Config{
		MaxTokens:        300,
		Temperature:      0.1,
		MaxQuestionRunes: 2000,
	}
}
