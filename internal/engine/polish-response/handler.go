// internal/engine/polish-response/handler.go
package polishresponse

import (
	"context"
	"encoding/json"
	"unicode/utf8"

	"attendance-chat/internal/common/genai"
	"attendance-chat/internal/common/metrics"
	"attendance-chat/internal/models"
)

const (
	StageName = "polish-response"
)

// systemPrompt forbids the model from touching facts; it may only
// restructure what it is given.
const systemPrompt = "You ONLY reformat the given attendance/student data into a clear, structured reply. " +
	"RULES: (1) Use exactly the information provided — do not add, remove, or change any fact. " +
	"(2) Use bold labels (**Label:**), bullet points (-), and tables where appropriate. " +
	"(3) No greetings, no 'Here is...', no extra commentary. " +
	"(4) Keep dates as YYYY-MM-DD; do not replace with the word 'today'. " +
	"(5) Keep the same facts and numbers. Output the structured text only."

const userPrefix = "Format this data strictly (same facts, structured only):\n\n"

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// GenAI is the slice of the completion client the polish pass uses.
type GenAI interface {
	Complete(ctx context.Context, system, user string, opts genai.Options) (string, error)
	Configured() bool
}

type Handler struct {
	config *Config
	client GenAI
	logger Logger
}

func NewHandler(config *Config, client GenAI, log Logger) *Handler {
	return &Handler{
		config: config,
		client: client,
		logger: log.With(map[string]interface{}{
			"stage": StageName,
		}),
	}
}

// Format runs the optional remote polish pass over a query result. The
// deterministic fallback text is always the answer of record: the remote
// reply replaces it only when the call succeeds and the reply is longer
// than the degenerate-reply floor.
func (h *Handler) Format(ctx context.Context, result models.QueryResult, fallback string) string {
	if h.client == nil || !h.client.Configured() {
		return fallback
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		h.logger.Warn("serializing result for polish failed", map[string]interface{}{
			"error": err.Error(),
		})
		return fallback
	}

	reply, err := h.client.Complete(ctx, systemPrompt, userPrefix+truncateRunes(string(data), h.config.MaxDataRunes), genai.Options{
		MaxTokens:   h.config.MaxTokens,
		Temperature: h.config.Temperature,
	})
	if err != nil {
		metrics.RemoteCalls.WithLabelValues(StageName, "error").Inc()
		h.logger.Warn("polish call failed, keeping deterministic text", map[string]interface{}{
			"error": err.Error(),
		})
		return fallback
	}
	if utf8.RuneCountInString(reply) <= h.config.MinReplyRunes {
		metrics.RemoteCalls.WithLabelValues(StageName, "rejected").Inc()
		h.logger.Warn("polish reply too short, keeping deterministic text", map[string]interface{}{
			"reply_length": utf8.RuneCountInString(reply),
		})
		return fallback
	}

	metrics.RemoteCalls.WithLabelValues(StageName, "ok").Inc()
	h.logger.Info("result polished", map[string]interface{}{
		"reply_length": utf8.RuneCountInString(reply),
	})
	return reply
}

func truncateRunes(s string, capRunes int) string {
	runes := []rune(s)
	if len(runes) <= capRunes {
		return s
	}
	return string(runes[:capRunes])
}
