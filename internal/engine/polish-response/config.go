// internal/engine/polish-response/config.go
package polishresponse

type Config struct {
	MaxTokens     int
	Temperature   float64
	MaxDataRunes  int
	MinReplyRunes int
}

func LoadConfig() *Config {
	return &Config{
		MaxTokens:     400,
		Temperature:   0.1,
		MaxDataRunes:  2500,
		MinReplyRunes: 10,
	}
}
