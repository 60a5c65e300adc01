package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	framesDecoded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "farcall",
			Subsystem: "codec",
			Name:      "frames_decoded_total",
			Help:      "Structured call body decodes.",
		},
		[]string{"type"},
	)
	decodeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "farcall",
			Subsystem: "codec",
			Name:      "decode_errors_total",
			Help:      "Structured decode failures.",
		},
		[]string{"type"},
	)
	lazyFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "farcall",
			Subsystem: "codec",
			Name:      "lazy_read_failures_total",
			Help:      "Lazy accessors that returned unavailable.",
		},
		[]string{"field"},
	)
	rateLimitVerdicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "farcall",
			Subsystem: "ratelimit",
			Name:      "verdicts_total",
			Help:      "Rate limiter allow/throttle decisions.",
		},
		[]string{"verdict"},
	)
	rateLimitDrops = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "farcall",
			Subsystem: "ratelimit",
			Name:      "observations_dropped_total",
			Help:      "Observations dropped on a full backlog.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(framesDecoded, decodeErrors, lazyFailures, rateLimitVerdicts, rateLimitDrops)
	})
}

func RecordDecode(frameType string, err error) {
	RegisterMetrics()
	if err != nil {
		decodeErrors.WithLabelValues(frameType).Inc()
		return
	}
	framesDecoded.WithLabelValues(frameType).Inc()
}

func RecordLazyFailure(field string) {
	RegisterMetrics()
	lazyFailures.WithLabelValues(field).Inc()
}

func RecordRateLimitVerdict(allowed bool) {
	RegisterMetrics()
	verdict := "allowed"
	if !allowed {
		verdict = "throttled"
	}
	rateLimitVerdicts.WithLabelValues(verdict).Inc()
}

func RecordRateLimitDrop() {
	RegisterMetrics()
	rateLimitDrops.Inc()
}
