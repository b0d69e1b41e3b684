package recommend

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request outcomes.
const (
	outcomeOK       = "ok"
	outcomeNoMatch  = "no_match"
	outcomeFallback = "fallback"
	outcomeInvalid  = "invalid_input"
	outcomeUpstream = "upstream_error"
	outcomeInternal = "internal_error"
	outcomeCanceled = "canceled"
)

// Pipeline stages.
const (
	stageExtract  = "extract"
	stageIntent   = "intent"
	stageSearch   = "search"
	stageRerank   = "rerank"
	stageGenerate = "generate"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fabmatch",
		Subsystem: "recommend",
		Name:      "requests_total",
		Help:      "Recommendation requests by outcome.",
	}, []string{"outcome", "mode"})

	stageLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fabmatch",
		Subsystem: "recommend",
		Name:      "stage_latency_seconds",
		Help:      "Latency of each pipeline stage.",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"stage"})

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fabmatch",
		Subsystem: "recommend",
		Name:      "cache_lookups_total",
		Help:      "Recommendation cache lookups by result.",
	}, []string{"result"})
)

// observe records the time elapsed since start for stage.
func observe(stage string, start time.Time) {
	stageLatency.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

func outcomeOf(err error) string {
	switch Code(err) {
	case ErrorInvalidInput:
		return outcomeInvalid
	case ErrorUpstream:
		return outcomeUpstream
	case ErrorInternal:
		return outcomeInternal
	}
	return outcomeCanceled
}
