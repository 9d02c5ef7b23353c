package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	RequestCounter  *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	QuizzesStarted   *prometheus.CounterVec
	QuizzesSubmitted *prometheus.CounterVec
	ScorePercentage  *prometheus.HistogramVec
	QuestionsChanged prometheus.Counter
	ImportedRows     *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers every collector on reg. Passing a fresh
// prometheus.NewRegistry keeps tests isolated.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
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
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "endpoint"},
		),
		QuizzesStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgerquiz_quizzes_started_total",
				Help: "Quizzes started, by module and whether the bank ran short",
			},
			[]string{"module", "under_supply"},
		),
		QuizzesSubmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgerquiz_quizzes_submitted_total",
				Help: "Quizzes graded, by module and whether they were late",
			},
			[]string{"module", "over_time"},
		),
		ScorePercentage: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledgerquiz_score_percentage",
				Help:    "Distribution of graded quiz percentages",
				Buckets: prometheus.LinearBuckets(0, 10, 11),
			},
			[]string{"module"},
		),
		QuestionsChanged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledgerquiz_submissions_rejected_bank_changed_total",
			Help: "Submissions discarded because quiz questions changed mid-session",
		}),
		ImportedRows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgerquiz_import_rows_total",
				Help: "Question-bank import rows by outcome",
			},
			[]string{"outcome"},
		),
		gatherer: reg,
	}
	reg.MustRegister(
		m.RequestCounter, m.RequestDuration,
		m.QuizzesStarted, m.QuizzesSubmitted, m.ScorePercentage,
		m.QuestionsChanged, m.ImportedRows,
	)
	return m
}

// Middleware records per-route counts and latency. The route pattern is
// used as the endpoint label so ids don't explode cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		endpoint := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			endpoint = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.RequestCounter.WithLabelValues(r.Method, endpoint, strconv.Itoa(status)).Inc()
		m.RequestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
