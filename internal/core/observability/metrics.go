package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
		},
		[]string{"method", "route", "status"},
	)

	validationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ringguard_validations_total",
			Help: "Ring validations by outcome.",
		},
		[]string{"outcome"},
	)

	validationDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ringguard_validation_duration_seconds",
			Help:    "Time spent validating one ring.",
			Buckets: prometheus.ExponentialBuckets(0.00005, 2, 14),
		},
	)

	issuesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ringguard_issues_total",
			Help: "Validation issues by code and severity.",
		},
		[]string{"code", "severity"},
	)

	detectorTierTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ringguard_detector_tier_total",
			Help: "Self-intersection detections by the tier that answered (none when the ring is simple).",
		},
		[]string{"tier"},
	)

	overlapDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ringguard_overlap_decisions_total",
			Help: "Overlap candidate decisions by strategy and whether the candidate was dropped.",
		},
		[]string{"strategy", "filtered"},
	)

	staleRequestsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ringguard_stale_requests_total",
			Help: "Overlap checks rejected because a newer request was already seen for the session.",
		},
	)

	cacheOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ringguard_cache_ops_total",
			Help: "Cache operations by cache, operation and result.",
		},
		[]string{"cache", "op", "result"},
	)

	detectMemoEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ringguard_detect_memo_entries",
			Help: "Rings held in the self-intersection memo.",
		},
	)

	auditEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ringguard_audit_events_total",
			Help: "Overlap audit events by result (queued, dropped, sent, error).",
		},
		[]string{"result"},
	)
)

// Collectors returns the domain collectors so a dedicated registry can
// serve them next to the runtime collectors.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		httpRequestsTotal,
		httpRequestDurationSeconds,
		validationsTotal,
		validationDurationSeconds,
		issuesTotal,
		detectorTierTotal,
		overlapDecisionsTotal,
		staleRequestsTotal,
		cacheOpsTotal,
		detectMemoEntries,
		auditEventsTotal,
	}
}

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func ObserveValidation(valid bool, durationSeconds float64) {
	outcome := "invalid"
	if valid {
		outcome = "valid"
	}
	validationsTotal.WithLabelValues(outcome).Inc()
	validationDurationSeconds.Observe(durationSeconds)
}

func IncIssue(code, severity string) {
	issuesTotal.WithLabelValues(code, severity).Inc()
}

func IncDetectorTier(tier string) {
	if tier == "" {
		tier = "none"
	}
	detectorTierTotal.WithLabelValues(tier).Inc()
}

func IncOverlapDecision(strategy string, filtered bool) {
	if strategy == "" {
		strategy = "none"
	}
	overlapDecisionsTotal.WithLabelValues(strategy, strconv.FormatBool(filtered)).Inc()
}

func IncStaleRequest() { staleRequestsTotal.Inc() }

func ObserveCacheOp(cache, op, result string) {
	cacheOpsTotal.WithLabelValues(cache, op, result).Inc()
}

func SetDetectMemoEntries(n int) { detectMemoEntries.Set(float64(n)) }

func IncAudit(result string) {
	auditEventsTotal.WithLabelValues(result).Inc()
}
