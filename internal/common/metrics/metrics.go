// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QuestionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_questions_total",
			Help: "Total number of chat questions answered, by resolved intent",
		},
		[]string{"intent"},
	)

	QuestionsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_questions_failed_total",
			Help: "Total number of chat questions that ended in an error response",
		},
		[]string{"error_code"},
	)

	QuestionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "chat_question_duration_seconds",
			Help: "Duration of the full question pipeline in seconds",
		},
		[]string{"intent"},
	)

	RemoteCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_remote_calls_total",
			Help: "Remote assistant calls by phase and outcome",
		},
		[]string{"phase", "outcome"},
	)

	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_rate_limited_total",
			Help: "Requests rejected by the per-caller rate limiter",
		},
	)

	StoreQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "chat_store_query_duration_seconds",
			Help: "Duration of attendance store capability calls in seconds",
		},
		[]string{"capability"},
	)
)
