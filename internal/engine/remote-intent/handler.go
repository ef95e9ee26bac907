// internal/engine/remote-intent/handler.go
package remoteintent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"attendance-chat/internal/common/genai"
	"attendance-chat/internal/common/metrics"
	"attendance-chat/internal/common/validation"
	"attendance-chat/internal/models"
	"attendance-chat/pkg/registry"
)

const (
	StageName = "remote-intent"
)

var (
	ErrInvalidReply = errors.New("CLASSIFIER_INVALID_REPLY")
)

// jsonBlockRe pulls the outermost JSON object out of a reply that may be
// wrapped in markdown fences or surrounding prose.
var jsonBlockRe = regexp.MustCompile(`\{[\s\S]*\}`)

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// GenAI is the slice of the completion client the classifier uses.
type GenAI interface {
	Complete(ctx context.Context, system, user string, opts genai.Options) (string, error)
	Configured() bool
}

type Handler struct {
	config       *Config
	client       GenAI
	systemPrompt string
	logger       Logger
}

func NewHandler(config *Config, client GenAI, catalog *registry.IntentCatalog, log Logger) *Handler {
	return &Handler{
		config:       config,
		client:       client,
		systemPrompt: BuildSystemPrompt(catalog),
		logger: log.With(map[string]interface{}{
			"stage": StageName,
		}),
	}
}

// Configured reports whether the remote classifier can be called at all.
func (h *Handler) Configured() bool {
	return h.client.Configured()
}

// Execute sends the question to the completion endpoint once and parses the
// reply into a ParameterSet. Any failure comes back as an error so the
// caller can fall through to the rule cascade.
func (h *Handler) Execute(ctx context.Context, question string) (models.ParameterSet, error) {
	q := strings.TrimSpace(question)
	if runes := []rune(q); len(runes) > h.config.MaxQuestionRunes {
		q = string(runes[:h.config.MaxQuestionRunes])
	}

	reply, err := h.client.Complete(ctx, h.systemPrompt, q, genai.Options{
		MaxTokens:   h.config.MaxTokens,
		Temperature: h.config.Temperature,
	})
	if err != nil {
		metrics.RemoteCalls.WithLabelValues(StageName, "error").Inc()
		h.logger.Warn("completion call failed", map[string]interface{}{
			"error": err.Error(),
		})
		return models.ParameterSet{}, err
	}

	params, err := h.parseReply(reply)
	if err != nil {
		metrics.RemoteCalls.WithLabelValues(StageName, "rejected").Inc()
		h.logger.Warn("unusable classifier reply", map[string]interface{}{
			"error": err.Error(),
		})
		return models.ParameterSet{}, err
	}

	metrics.RemoteCalls.WithLabelValues(StageName, "ok").Inc()
	h.logger.Info("classified remotely", params.Fields())
	return params, nil
}

// parseReply extracts the JSON object from the model output, validates it
// and coerces the fields into a ParameterSet.
func (h *Handler) parseReply(reply string) (models.ParameterSet, error) {
	block := jsonBlockRe.FindString(reply)
	if block == "" {
		return models.ParameterSet{}, fmt.Errorf("%w: no JSON object in reply", ErrInvalidReply)
	}

	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(block), &doc); err != nil {
		return models.ParameterSet{}, fmt.Errorf("%w: %v", ErrInvalidReply, err)
	}

	if res := validation.ValidateClassifierReply(doc); !res.Valid {
		msg := "schema violation"
		if len(res.Errors) > 0 {
			msg = res.Errors[0].Message
		}
		return models.ParameterSet{}, fmt.Errorf("%w: %s", ErrInvalidReply, msg)
	}

	rawIntent, _ := doc["intent"].(string)
	if !models.ValidIntent(rawIntent) {
		return models.ParameterSet{}, fmt.Errorf("%w: unknown intent %q", ErrInvalidReply, rawIntent)
	}

	return models.ParameterSet{
		Intent:      models.Intent(rawIntent),
		Date:        coerceString(doc["date"]),
		Section:     coerceString(doc["section"]),
		Session:     coerceString(doc["session"]),
		Status:      coerceString(doc["status"]),
		RollNo:      coerceString(doc["roll_no"]),
		StudentName: coerceString(doc["student_name"]),
		Days:        coerceDays(doc["days"]),
	}, nil
}

// coerceString renders a scalar reply field as a string. Absent, null and
// falsy values all become the empty string.
func coerceString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == 0 {
			return ""
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if !t {
			return ""
		}
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// coerceDays renders the days field as an int. Fractions truncate and
// anything unparseable falls back to zero.
func coerceDays(v interface{}) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return n
		}
	}
	return 0
}
