package observability

import "github.com/prometheus/client_golang/prometheus"

// Cache pool (C1) metrics.
var (
	CacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "cache_hits_total", Help: "Cache hits by namespace"},
		[]string{"namespace"},
	)
	CacheMissesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "cache_misses_total", Help: "Cache misses by namespace"},
		[]string{"namespace"},
	)
	CacheSetsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "cache_sets_total", Help: "Cache sets by namespace"},
		[]string{"namespace"},
	)
	CacheDeletesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "cache_deletes_total", Help: "Cache deletes by namespace"},
		[]string{"namespace"},
	)
	CacheErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "cache_errors_total", Help: "Cache transport errors by namespace"},
		[]string{"namespace"},
	)
	CacheCompressionSavesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "cache_compression_saves_total", Help: "Sets that were stored compressed"},
		[]string{"namespace"},
	)
	CacheBytesSavedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "cache_bytes_saved_total", Help: "Bytes saved by compression"},
		[]string{"namespace"},
	)
	CacheResponseTime = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cache_operation_duration_seconds",
			Help:    "Cache operation duration",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
		[]string{"op"},
	)
)

// Router (C7) metrics.
var (
	RouterTurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "router_turns_total", Help: "Turns routed, by handler kind and outcome"},
		[]string{"handler_kind", "outcome"},
	)
	RouterTurnDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "router_turn_duration_seconds",
			Help:    "Turn processing duration",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"handler_kind"},
	)
	RouterResponseTokens = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "router_response_tokens",
			Help:    "Approximate token count of produced AgentResponse text",
			Buckets: []float64{8, 16, 32, 64, 128, 256, 512},
		},
		[]string{"handler_kind"},
	)
)

// Rate limiter (C3) metrics.
var (
	RateLimitAllowedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "rate_limit_allowed_total", Help: "Rate-limit checks allowed"},
		[]string{"scope"},
	)
	RateLimitDeniedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "rate_limit_denied_total", Help: "Rate-limit checks denied"},
		[]string{"scope"},
	)
)

// Scheduler (C8) metrics.
var (
	JobRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "job_runs_total", Help: "Job runs by kind and outcome"},
		[]string{"kind", "outcome"},
	)
	JobRunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "job_run_duration_seconds",
			Help:    "Job run duration",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 10, 30, 60},
		},
		[]string{"kind"},
	)
	JobRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "job_retries_total", Help: "Job retry attempts by kind"},
		[]string{"kind"},
	)
)

// Event bus (C9) metrics.
var (
	EventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "eventbus_published_total", Help: "Events published by type"},
		[]string{"type"},
	)
	EventsDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "eventbus_dropped_total", Help: "Events dropped due to overflow, by type"},
		[]string{"type"},
	)
	EventHandlerErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "eventbus_handler_errors_total", Help: "Subscriber handler errors by type"},
		[]string{"type"},
	)
)

// Conflict resolver (C10) metrics.
var (
	ConflictsDetectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "conflicts_detected_total", Help: "Conflicts detected by type"},
		[]string{"type"},
	)
	ConflictsResolvedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "conflicts_resolved_total", Help: "Conflicts resolved by strategy"},
		[]string{"strategy"},
	)
)

// Abandoned-cart coordinator (C11) metrics.
var (
	CartsAbandonedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "carts_abandoned_total", Help: "Carts marked abandoned"},
	)
	CartFollowUpsSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "cart_followups_sent_total", Help: "Follow-up messages sent by channel"},
		[]string{"channel"},
	)
)

// Audit logger (C12) metrics.
var (
	AuditRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "audit_records_total", Help: "Audit records written by severity"},
		[]string{"severity"},
	)
	AuditDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "audit_dropped_total", Help: "Audit records dropped due to buffer overflow"},
	)
)

// InitMetrics registers every metric above with the default Prometheus
// registry. Safe to call once at process start; a second call in the same
// process (e.g. from tests importing multiple packages) is tolerated.
func InitMetrics() {
	collectors := []prometheus.Collector{
		CacheHitsTotal, CacheMissesTotal, CacheSetsTotal, CacheDeletesTotal,
		CacheErrorsTotal, CacheCompressionSavesTotal, CacheBytesSavedTotal, CacheResponseTime,
		RouterTurnsTotal, RouterTurnDuration, RouterResponseTokens,
		RateLimitAllowedTotal, RateLimitDeniedTotal,
		JobRunsTotal, JobRunDuration, JobRetriesTotal,
		EventsPublishedTotal, EventsDroppedTotal, EventHandlerErrorsTotal,
		ConflictsDetectedTotal, ConflictsResolvedTotal,
		CartsAbandonedTotal, CartFollowUpsSentTotal,
		AuditRecordsTotal, AuditDroppedTotal,
	}
	for _, c := range collectors {
		if err := prometheus.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				panic(err)
			}
		}
	}
}
