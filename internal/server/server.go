// internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"attendance-chat/internal/common/errors"
	"attendance-chat/internal/common/metrics"
	"attendance-chat/internal/common/observability"
	"attendance-chat/internal/engine"
	"attendance-chat/pkg/registry"
)

const (
	usageLimitMessage    = "AI usage limit reached. Please try later."
	emptyQuestionMessage = "Please enter a question."
)

type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// Engine answers one sanitized question against the given current time.
type Engine interface {
	Answer(ctx context.Context, question string, now time.Time) (*engine.Response, error)
}

// Pinger is the health-check surface of a backing service.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Config   *Config
	Engine   Engine
	Limiter  *RateLimiter
	Catalog  *registry.IntentCatalog
	Postgres Pinger
	Redis    Pinger
	Errors   *errors.ErrorHandler
	Obs      *observability.Observability
	Logger   Logger
	// Clock supplies the current time for each request; nil means time.Now.
	Clock func() time.Time
}

// Server is the HTTP boundary of the chat engine: the chat endpoint, the
// intent catalog, health, and metrics.
type Server struct {
	config     *Config
	engine     Engine
	limiter    *RateLimiter
	catalog    *registry.IntentCatalog
	postgres   Pinger
	redis      Pinger
	errors     *errors.ErrorHandler
	obs        *observability.Observability
	logger     Logger
	clock      func() time.Time
	httpServer *http.Server
}

func New(opts Options) *Server {
	s := &Server{
		config:   opts.Config,
		engine:   opts.Engine,
		limiter:  opts.Limiter,
		catalog:  opts.Catalog,
		postgres: opts.Postgres,
		redis:    opts.Redis,
		errors:   opts.Errors,
		obs:      opts.Obs,
		logger:   opts.Logger.With(map[string]interface{}{"component": "server"}),
		clock:    opts.Clock,
	}
	if s.config == nil {
		s.config = LoadConfig()
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.catalog == nil {
		s.catalog = registry.DefaultCatalog()
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/intents", s.handleIntents)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	return s.withRequestLog(mux)
}

// Start blocks serving HTTP until Shutdown or a listener error.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	s.logger.Info("Chat server listening", map[string]interface{}{"port": s.config.Port})
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

type chatRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set("X-Request-ID", requestID)

	log := s.logger.With(map[string]interface{}{"requestId": requestID})

	now := s.clock()
	caller := callerIP(r)
	if s.limiter != nil && !s.limiter.Allow(r.Context(), caller, now) {
		metrics.RateLimited.Inc()
		log.Warn("Chat rate limited", map[string]interface{}{"caller": caller})
		writeJSON(w, http.StatusTooManyRequests, map[string]interface{}{
			"response":   usageLimitMessage,
			"error":      usageLimitMessage,
			"request_id": requestID,
		})
		return
	}

	// A malformed body falls through as an empty question.
	var req chatRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	question := sanitizeQuestion(req.Question, s.config.MaxQuestionLength)
	if question == "" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"response":   emptyQuestionMessage,
			"error":      "empty",
			"request_id": requestID,
		})
		return
	}

	resp, err := s.engine.Answer(r.Context(), question, now)
	if err != nil {
		code := errors.ErrCodeInternal
		if stdErr, ok := err.(*errors.StandardError); ok {
			code = stdErr.Code
		}
		metrics.QuestionsFailed.WithLabelValues(string(code)).Inc()
		s.errors.HandleRequestError(w, requestID, err)
		return
	}

	intentLabel := resp.Intent.String()
	metrics.QuestionsTotal.WithLabelValues(intentLabel).Inc()
	metrics.QuestionDuration.WithLabelValues(intentLabel).Observe(time.Since(start).Seconds())
	if s.obs != nil {
		s.obs.RecordQuestionProcessed(r.Context(), intentLabel)
		s.obs.RecordQuestionDuration(r.Context(), time.Since(start), intentLabel)
	}

	log.Info("Question answered", map[string]interface{}{
		"intent":     intentLabel,
		"durationMs": time.Since(start).Milliseconds(),
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"response":   resp.Text,
		"intent":     intentLabel,
		"request_id": requestID,
	})
}

func (s *Server) handleIntents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog)
}

// handleHealth pings the backing services. A database outage means chat
// cannot answer, so it reports 503; a Redis outage only degrades rate
// limiting, which fails open.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	body := map[string]string{
		"status": "healthy",
		"time":   s.clock().Format(time.RFC3339),
	}

	if s.postgres != nil {
		if err := s.postgres.Ping(ctx); err != nil {
			body["database"] = "down"
			body["status"] = "degraded"
			status = http.StatusServiceUnavailable
		} else {
			body["database"] = "up"
		}
	}
	if s.redis != nil {
		if err := s.redis.Ping(ctx); err != nil {
			body["redis"] = "down"
			body["status"] = "degraded"
		} else {
			body["redis"] = "up"
		}
	}

	writeJSON(w, status, body)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withRequestLog logs API requests at info and the probe endpoints at debug.
func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		fields := map[string]interface{}{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     rec.status,
			"durationMs": time.Since(start).Milliseconds(),
		}
		if strings.HasPrefix(r.URL.Path, "/api/") {
			s.logger.Info("HTTP request", fields)
			return
		}
		s.logger.Debug("HTTP request", fields)
	})
}

// sanitizeQuestion strips control characters (keeping newlines and tabs),
// caps the length, and trims surrounding whitespace.
func sanitizeQuestion(q string, maxLen int) string {
	q = strings.TrimSpace(q)
	var b strings.Builder
	b.Grow(len(q))
	for _, r := range q {
		if unicode.IsPrint(r) || r == '\n' || r == '\r' || r == '\t' {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if runes := []rune(out); len(runes) > maxLen {
		out = string(runes[:maxLen])
	}
	return strings.TrimSpace(out)
}

// callerIP picks the client address for rate limiting: the first
// X-Forwarded-For hop when present, else the connection peer.
func callerIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}