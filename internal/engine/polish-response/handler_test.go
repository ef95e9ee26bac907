// internal/engine/polish-response/handler_test.go
package polishresponse

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"attendance-chat/internal/common/genai"
	"attendance-chat/internal/models"
)

// ==========================
// Test Logger Implementation
// ==========================

// TestLogger implements the Logger interface for testing
type TestLogger struct {
	t      *testing.T
	fields map[string]interface{}
}

func NewTestLogger(t *testing.T) *TestLogger {
	return &TestLogger{
		t:      t,
		fields: make(map[string]interface{}),
	}
}

func (l *TestLogger) Info(msg string, fields map[string]interface{}) {
	l.t.Logf("INFO: %s %v", msg, l.mergeFields(fields))
}

func (l *TestLogger) Warn(msg string, fields map[string]interface{}) {
	l.t.Logf("WARN: %s %v", msg, l.mergeFields(fields))
}

func (l *TestLogger) Error(msg string, fields map[string]interface{}) {
	l.t.Logf("ERROR: %s %v", msg, l.mergeFields(fields))
}

func (l *TestLogger) Debug(msg string, fields map[string]interface{}) {
	l.t.Logf("DEBUG: %s %v", msg, l.mergeFields(fields))
}

func (l *TestLogger) With(fields map[string]interface{}) Logger {
	newLogger := &TestLogger{
		t:      l.t,
		fields: make(map[string]interface{}),
	}

	for k, v := range l.fields {
		newLogger.fields[k] = v
	}

	for k, v := range fields {
		newLogger.fields[k] = v
	}

	return newLogger
}

func (l *TestLogger) mergeFields(fields map[string]interface{}) map[string]interface{} {
	allFields := make(map[string]interface{})

	for k, v := range l.fields {
		allFields[k] = v
	}

	for k, v := range fields {
		allFields[k] = v
	}

	return allFields
}

// ==========================
// Test Helper Functions
// ==========================

func createChatResponse(content string) string {
	response := map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]interface{}{"role": "assistant", "content": content}},
		},
	}
	data, _ := json.Marshal(response)
	return string(data)
}

func newTestHandler(t *testing.T, serverURL, apiKey string) *Handler {
	logger := NewTestLogger(t)
	client := genai.NewClient(genai.Config{
		BaseURL: serverURL,
		APIKey:  apiKey,
		Model:   "test-model",
		Timeout: 5 * time.Second,
	}, logger)
	return NewHandler(LoadConfig(), client, logger)
}

func sampleResult() models.QueryResult {
	return models.QueryResult{
		"date":    "2026-02-22",
		"scope":   "ECE A, morning",
		"count":   1,
		"list":    []map[string]interface{}{{"roll_no": "101", "name": "Alice"}},
		"status":  "absent",
	}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Format_ReturnsPolishedReply(t *testing.T) {
	polished := "**Date:** 2026-02-22\n- Alice (101) was absent in the morning session."

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)

		var payload map[string]interface{}
		assert.NoError(t, json.Unmarshal(body, &payload))
		assert.Equal(t, float64(400), payload["max_tokens"])
		assert.InDelta(t, 0.1, payload["temperature"], 0.0001)

		messages := payload["messages"].([]interface{})
		system := messages[0].(map[string]interface{})["content"].(string)
		user := messages[1].(map[string]interface{})["content"].(string)
		assert.Contains(t, system, "You ONLY reformat")
		assert.Contains(t, system, "do not add, remove, or change any fact")
		assert.True(t, strings.HasPrefix(user, "Format this data strictly (same facts, structured only):\n\n"))
		assert.Contains(t, user, "\"scope\": \"ECE A, morning\"")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(createChatResponse(polished)))
	}))
	defer server.Close()

	handler := newTestHandler(t, server.URL, "test-key")
	text := handler.Format(context.Background(), sampleResult(), "deterministic text")

	assert.Equal(t, polished, text)
}

func TestHandler_Format_NotConfiguredSkipsCall(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	handler := newTestHandler(t, server.URL, "")
	text := handler.Format(context.Background(), sampleResult(), "deterministic text")

	assert.Equal(t, "deterministic text", text)
	assert.False(t, called)
}

func TestHandler_Format_FallsBackOnFailure(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		content string
	}{
		{name: "server error", status: http.StatusInternalServerError, content: "boom"},
		{name: "empty reply", status: http.StatusOK, content: createChatResponse("")},
		{name: "whitespace reply", status: http.StatusOK, content: createChatResponse("   \n  ")},
		{name: "reply at the length floor", status: http.StatusOK, content: createChatResponse("  short one")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.content))
			}))
			defer server.Close()

			handler := newTestHandler(t, server.URL, "test-key")
			text := handler.Format(context.Background(), sampleResult(), "deterministic text")

			assert.Equal(t, "deterministic text", text)
		})
	}
}

func TestHandler_Format_AcceptsReplyJustAboveFloor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(createChatResponse("12345678901")))
	}))
	defer server.Close()

	handler := newTestHandler(t, server.URL, "test-key")
	text := handler.Format(context.Background(), sampleResult(), "deterministic text")

	assert.Equal(t, "12345678901", text)
}

func TestHandler_Format_TruncatesSerializedData(t *testing.T) {
	big := make([]map[string]interface{}, 0, 200)
	for i := 0; i < 200; i++ {
		big = append(big, map[string]interface{}{"roll_no": "10000000001", "name": "A Student With A Long Name"})
	}
	result := models.QueryResult{"date": "2026-02-22", "list": big}

	var userLen int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var payload map[string]interface{}
		json.Unmarshal(body, &payload)
		messages := payload["messages"].([]interface{})
		user := messages[1].(map[string]interface{})["content"].(string)
		userLen = len([]rune(user))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(createChatResponse("**Date:** 2026-02-22 formatted")))
	}))
	defer server.Close()

	handler := newTestHandler(t, server.URL, "test-key")
	handler.Format(context.Background(), result, "deterministic text")

	assert.Equal(t, len([]rune(userPrefix))+2500, userLen)
}

// ==========================
// Helper Tests
// ==========================

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "abc", truncateRunes("abc", 5))
	assert.Equal(t, "abc", truncateRunes("abcde", 3))
	assert.Equal(t, "héll", truncateRunes("héllo", 4))
}
