package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	questionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "askdb_questions_total",
			Help: "Total number of questions accepted by the agent.",
		},
	)
	answersTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "askdb_answers_total",
			Help: "Total number of questions answered end to end.",
		},
	)
	rejectedStatementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdb_rejected_statements_total",
			Help: "Generated statements refused by the validator, by reason code.",
		},
		[]string{"code"},
	)
	unanswerableTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "askdb_unanswerable_total",
			Help: "Questions the provider declared unanswerable for the schema.",
		},
	)
	providerFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdb_provider_failures_total",
			Help: "Failed generation provider calls, by provider name.",
		},
		[]string{"provider"},
	)
	translateDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "askdb_translate_duration_seconds",
			Help:    "Latency of SQL generation provider calls.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30},
		},
		[]string{"provider"},
	)
	queryDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "askdb_query_duration_seconds",
			Help:    "Latency of validated query execution.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
	)
	resultRows = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "askdb_result_rows",
			Help:    "Row counts of executed result sets.",
			Buckets: []float64{0, 1, 10, 50, 100, 500, 1000},
		},
	)
)

func init() {
	prometheus.MustRegister(
		questionsTotal,
		answersTotal,
		rejectedStatementsTotal,
		unanswerableTotal,
		providerFailuresTotal,
		translateDurationSeconds,
		queryDurationSeconds,
		resultRows,
	)
}

func IncrementQuestion() {
	questionsTotal.Inc()
}

func IncrementAnswer() {
	answersTotal.Inc()
}

func IncrementRejectedStatement(code string) {
	rejectedStatementsTotal.WithLabelValues(code).Inc()
}

func IncrementUnanswerable() {
	unanswerableTotal.Inc()
}

func IncrementProviderFailure(provider string) {
	providerFailuresTotal.WithLabelValues(provider).Inc()
}

func ObserveTranslate(provider string, elapsed time.Duration) {
	translateDurationSeconds.WithLabelValues(provider).Observe(elapsed.Seconds())
}

func ObserveQuery(elapsed time.Duration, rows int) {
	queryDurationSeconds.Observe(elapsed.Seconds())
	resultRows.Observe(float64(rows))
}
