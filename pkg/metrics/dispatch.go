package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Cache resolution outcomes.
const (
	CacheHit     = "hit"
	CacheMiss    = "miss"
	CacheStale   = "stale_refresh"
	CacheEvicted = "evicted"
)

// Update drop reasons.
const (
	DropUnsupported        = "unsupported_event"
	DropRegistrationClosed = "registration_closed"
	DropUserDisabled       = "user_disabled"
	DropDuplicate          = "duplicate_callback"
	DropUserDeleted        = "user_deleted"
)

// DispatchMetrics records conversation dispatch behavior. All methods
// are nil-safe so tests can pass a zero collector.
type DispatchMetrics struct {
	turnDuration    *prometheus.HistogramVec
	cacheOutcomes   *prometheus.CounterVec
	commands        *prometheus.CounterVec
	drops           *prometheus.CounterVec
	handlerFailures prometheus.Counter
}

// NewDispatchMetrics registers the dispatch metrics on the provided
// registerer.
func NewDispatchMetrics(reg prometheus.Registerer) *DispatchMetrics {
	if reg == nil {
		return &DispatchMetrics{}
	}
	turnDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dispatch_turn_duration_seconds",
		Help:    "Duration of conversation turns in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	cacheOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_cache_outcomes",
		Help: "User session cache resolutions by outcome.",
	}, []string{"outcome"})
	commands := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_commands",
		Help: "Commands routed, by match result.",
	}, []string{"result"})
	drops := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_dropped_updates",
		Help: "Inbound updates dropped before dispatch, by reason.",
	}, []string{"reason"})
	handlerFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_handler_failures",
		Help: "Handler invocations converted into fallback responses.",
	})
	reg.MustRegister(turnDuration, cacheOutcomes, commands, drops, handlerFailures)
	return &DispatchMetrics{
		turnDuration:    turnDuration,
		cacheOutcomes:   cacheOutcomes,
		commands:        commands,
		drops:           drops,
		handlerFailures: handlerFailures,
	}
}

// ObserveTurn records the duration of one turn for the given outcome.
func (d *DispatchMetrics) ObserveTurn(outcome string, duration time.Duration) {
	if d == nil || d.turnDuration == nil {
		return
	}
	d.turnDuration.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
}

// IncCache counts a cache resolution outcome.
func (d *DispatchMetrics) IncCache(outcome string) {
	if d == nil || d.cacheOutcomes == nil {
		return
	}
	d.cacheOutcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncCommand counts a routed command by match result.
func (d *DispatchMetrics) IncCommand(result string) {
	if d == nil || d.commands == nil {
		return
	}
	d.commands.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncDrop counts a dropped update by reason.
func (d *DispatchMetrics) IncDrop(reason string) {
	if d == nil || d.drops == nil {
		return
	}
	d.drops.WithLabelValues(normalizeLabel(reason)).Inc()
}

// IncHandlerFailure counts a handler error converted to a fallback.
func (d *DispatchMetrics) IncHandlerFailure() {
	if d == nil || d.handlerFailures == nil {
		return
	}
	d.handlerFailures.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
