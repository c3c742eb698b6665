// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	SessionEvents      *prometheus.CounterVec
	GroupFetches       prometheus.Counter
	GroupFetchFailures prometheus.Counter
	ThrottleRejections prometheus.Counter

	// Gauges
	GroupsCachedGauge prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		SessionEvents = promauto.NewCounterVec(prometheus.CounterOpts{Name: "wa_session_events_total", Help: "Session lifecycle events applied, by event kind"}, []string{"event"})
		GroupFetches = promauto.NewCounter(prometheus.CounterOpts{Name: "wa_group_fetches_total", Help: "Number of successful group synchronization passes"})
		GroupFetchFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "wa_group_fetch_failures_total", Help: "Number of failed group synchronization passes"})
		ThrottleRejections = promauto.NewCounter(prometheus.CounterOpts{Name: "wa_throttle_rejections_total", Help: "Requests rejected by the rate limiter"})
		GroupsCachedGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "wa_groups_cached", Help: "Current number of cached groups"})
	})
}

// CountSessionEvent increments the lifecycle event counter for kind.
func CountSessionEvent(kind string) {
	if SessionEvents != nil {
		SessionEvents.WithLabelValues(kind).Inc()
	}
}

// CountGroupFetch records the outcome of one synchronization pass.
func CountGroupFetch(ok bool) {
	if ok {
		if GroupFetches != nil {
			GroupFetches.Inc()
		}
	} else if GroupFetchFailures != nil {
		GroupFetchFailures.Inc()
	}
}

// CountThrottleRejection increments the 429 counter.
func CountThrottleRejection() {
	if ThrottleRejections != nil {
		ThrottleRejections.Inc()
	}
}

// SetGroupsCached records the current cache size.
func SetGroupsCached(n int) {
	if GroupsCachedGauge != nil {
		GroupsCachedGauge.Set(float64(n))
	}
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding correlation id (if absent) and the id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
