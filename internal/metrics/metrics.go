package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QuestionsAnswered counts answered questions by retrieval source.
	QuestionsAnswered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "omni_questions_answered_total",
		Help: "Answered questions by routed source.",
	}, []string{"source"})

	// QuestionErrors counts questions that failed with a fatal pipeline error.
	QuestionErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "omni_question_errors_total",
		Help: "Questions that failed before an answer was produced.",
	})

	// ResponseSeconds observes end-to-end answer latency.
	ResponseSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "omni_response_seconds",
		Help:    "End-to-end answer latency in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	})

	// FeedbackReceived counts feedback submissions by direction.
	FeedbackReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "omni_feedback_received_total",
		Help: "Feedback submissions by direction.",
	}, []string{"direction"})
)
