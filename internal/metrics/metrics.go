package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"ctscan-quiz/internal/domain"
)

// Metrics exposes game counters. It satisfies game.Metrics.
type Metrics struct {
	GamesStarted         *prometheus.CounterVec
	GamesEnded           *prometheus.CounterVec
	Answers              *prometheus.CounterVec
	IgnoredFinalizations prometheus.Counter
	LeaderboardFailures  prometheus.Counter
	RequestCounter       *prometheus.CounterVec
	RequestDuration      *prometheus.HistogramVec
}

// New creates the counters and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		GamesStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiz_games_started_total",
				Help: "Total number of started games",
			},
			[]string{"mode"},
		),
		GamesEnded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiz_games_ended_total",
				Help: "Total number of finished games by end reason",
			},
			[]string{"reason"},
		),
		Answers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiz_answers_total",
				Help: "Finalized questions by result",
			},
			[]string{"result"},
		),
		IgnoredFinalizations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quiz_finalizations_ignored_total",
			Help: "Submissions or timeouts that arrived after a question was resolved",
		}),
		LeaderboardFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quiz_leaderboard_submit_failures_total",
			Help: "Failed leaderboard submissions",
		}),
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "endpoint"},
		),
	}
	reg.MustRegister(
		m.GamesStarted,
		m.GamesEnded,
		m.Answers,
		m.IgnoredFinalizations,
		m.LeaderboardFailures,
		m.RequestCounter,
		m.RequestDuration,
	)
	return m
}

func (m *Metrics) GameStarted(mode domain.GameMode) {
	m.GamesStarted.WithLabelValues(string(mode)).Inc()
}

func (m *Metrics) GameEnded(reason domain.EndReason) {
	m.GamesEnded.WithLabelValues(string(reason)).Inc()
}

func (m *Metrics) Answered(result string) {
	m.Answers.WithLabelValues(result).Inc()
}

func (m *Metrics) FinalizationIgnored() {
	m.IgnoredFinalizations.Inc()
}

func (m *Metrics) LeaderboardFailed() {
	m.LeaderboardFailures.Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Instrument counts and times requests served by next under endpoint.
// Websocket routes are not wrapped: the upgrade needs the raw writer.
func (m *Metrics) Instrument(endpoint string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		m.RequestCounter.WithLabelValues(r.Method, endpoint, strconv.Itoa(rec.status)).Inc()
		m.RequestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
	})
}
