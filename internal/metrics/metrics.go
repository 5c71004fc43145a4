package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Sessions started, by session type and mode
	SessionsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessment_sessions_started_total",
			Help: "Total number of assessment sessions started",
		},
		[]string{"session_type", "mode"},
	)

	// Sessions that reached a terminal status
	SessionsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessment_sessions_finished_total",
			Help: "Total number of assessment sessions that reached a terminal status",
		},
		[]string{"status", "reason"},
	)

	AnswersSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessment_answers_submitted_total",
			Help: "Total number of judged answers",
		},
		[]string{"question_type", "correct"},
	)

	SubmitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assessment_submit_answer_duration_seconds",
			Help:    "Time spent processing answer submissions",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	// Selections that had to use the relaxed fallback query
	SelectionFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assessment_selection_fallbacks_total",
			Help: "Total number of question selections that fell back to the relaxed query",
		},
	)
)

// ObserveSubmit records the latency of one submission.
func ObserveSubmit(start time.Time, outcome string) {
	SubmitDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}

// Handler exposes the default registry for gin.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
