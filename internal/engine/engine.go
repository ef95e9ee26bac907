// internal/engine/engine.go
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"attendance-chat/internal/common/genai"
	"attendance-chat/internal/common/metrics"
	classifyintent "attendance-chat/internal/engine/classify-intent"
	executequery "attendance-chat/internal/engine/execute-query"
	normalizeparams "attendance-chat/internal/engine/normalize-params"
	polishresponse "attendance-chat/internal/engine/polish-response"
	remoteintent "attendance-chat/internal/engine/remote-intent"
	renderresponse "attendance-chat/internal/engine/render-response"
	"attendance-chat/internal/models"
)

// generalSystemPrompt steers answers for questions outside the attendance
// intents.
const generalSystemPrompt = "You are a helpful assistant. Answer the user's question in a brief, friendly way. " +
	"For general questions (e.g. 'what is AI?', 'how are you?') answer normally. " +
	"For attendance, students, or sections you can mention you help with that too. Be concise. No SQL or code."

// offlineNotice is the deterministic reply for general questions when no
// remote assistant is configured or the call fails.
const offlineNotice = "**AI assistant is currently offline.**\n\n" +
	"To enable AI responses:\n" +
	"1. Open the `.env` file in your project root.\n" +
	"2. Set: `OPENAI_API_KEY=your_key`\n" +
	"3. Save the file and restart the server.\n\n" +
	"You can still ask attendance-related questions; I’ll answer from the database."

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// GenAI is the slice of the completion client used for general answers.
type GenAI interface {
	Complete(ctx context.Context, system, user string, opts genai.Options) (string, error)
	Configured() bool
}

type Config struct {
	GeneralMaxTokens   int
	GeneralTemperature float64
	MaxQuestionRunes   int
}

func LoadConfig() *Config {
	return &Config{
		GeneralMaxTokens:   400,
		GeneralTemperature: 0.2,
		MaxQuestionRunes:   2000,
	}
}

// Response is the answer produced for one question.
type Response struct {
	Intent models.Intent `json:"intent"`
	Text   string        `json:"text"`
}

// Engine chains the stages: classify, normalize, execute, render, polish.
// The rule-based classifier always runs; the remote classifier, when
// configured, replaces its draft on success. Storage failures are the only
// errors that escape, everything else degrades to a deterministic reply.
type Engine struct {
	config *Config
	remote *remoteintent.Handler
	query  *executequery.Handler
	polish *polishresponse.Handler
	client GenAI
	logger Logger
}

func New(config *Config, remote *remoteintent.Handler, query *executequery.Handler, polish *polishresponse.Handler, client GenAI, log Logger) *Engine {
	return &Engine{
		config: config,
		remote: remote,
		query:  query,
		polish: polish,
		client: client,
		logger: log.With(map[string]interface{}{
			"component": "engine",
		}),
	}
}

// Answer resolves one question end to end. now anchors every relative date
// the question or its defaults produce.
func (e *Engine) Answer(ctx context.Context, question string, now time.Time) (*Response, error) {
	params := e.classify(ctx, question, now)
	params = normalizeparams.Normalize(params, question, now)

	if params.Intent == models.IntentGeneralQuestion {
		return &Response{Intent: params.Intent, Text: e.generalAnswer(ctx, question)}, nil
	}

	result, err := e.query.Execute(ctx, params, now)
	if err != nil {
		return nil, fmt.Errorf("intent %s: %w", params.Intent, err)
	}

	text := renderresponse.Render(result, now)
	text = e.polish.Format(ctx, result, text)

	return &Response{Intent: params.Intent, Text: text}, nil
}

// classify produces the rule-based draft and lets the remote classifier
// replace it when one is configured and answers validly. Empty questions
// never reach the remote path.
func (e *Engine) classify(ctx context.Context, question string, now time.Time) models.ParameterSet {
	draft := classifyintent.Classify(question, now)

	if strings.TrimSpace(question) == "" {
		return draft
	}
	if e.remote == nil || !e.remote.Configured() {
		return draft
	}

	params, err := e.remote.Execute(ctx, question)
	if err != nil {
		e.logger.Warn("remote classification failed, using rule-based draft", map[string]interface{}{
			"error":  err.Error(),
			"intent": string(draft.Intent),
		})
		return draft
	}
	return params
}

// generalAnswer asks the remote assistant directly. Without a configured
// client, or on any failure, the fixed offline notice is returned.
func (e *Engine) generalAnswer(ctx context.Context, question string) string {
	if e.client == nil || !e.client.Configured() {
		return offlineNotice
	}

	reply, err := e.client.Complete(ctx, generalSystemPrompt, truncateRunes(question, e.config.MaxQuestionRunes), genai.Options{
		MaxTokens:   e.config.GeneralMaxTokens,
		Temperature: e.config.GeneralTemperature,
	})
	if err != nil {
		metrics.RemoteCalls.WithLabelValues("general-answer", "error").Inc()
		e.logger.Warn("general answer failed, returning offline notice", map[string]interface{}{
			"error": err.Error(),
		})
		return offlineNotice
	}
	metrics.RemoteCalls.WithLabelValues("general-answer", "ok").Inc()
	return reply
}

func truncateRunes(s string, capRunes int) string {
	if utf8.RuneCountInString(s) <= capRunes {
		return s
	}
	return string([]rune(s)[:capRunes])
}
