package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PollerMetrics records per-channel outcomes of poll cycles.
type PollerMetrics struct {
	duration *prometheus.HistogramVec
	awards   *prometheus.CounterVec
	reverts  *prometheus.CounterVec
	failures *prometheus.CounterVec
}

// NewPollerMetrics registers the poller metrics on the provided registerer.
func NewPollerMetrics(reg prometheus.Registerer) *PollerMetrics {
	if reg == nil {
		return &PollerMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "poll_channel_duration_seconds",
		Help:    "Duration of one channel's poll pass in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"channel"})
	awards := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "points_awards_total",
		Help: "Point awards written to the ledger.",
	}, []string{"channel"})
	reverts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "points_reverts_total",
		Help: "Awards reverted after the source message was deleted.",
	}, []string{"channel"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "poll_channel_failures_total",
		Help: "Channel poll passes that ended in an error.",
	}, []string{"channel"})
	reg.MustRegister(duration, awards, reverts, failures)
	return &PollerMetrics{
		duration: duration,
		awards:   awards,
		reverts:  reverts,
		failures: failures,
	}
}

// ObserveDuration records the duration of one channel pass.
func (p *PollerMetrics) ObserveDuration(channel string, duration time.Duration) {
	if p == nil || p.duration == nil {
		return
	}
	p.duration.WithLabelValues(normalizeLabel(channel)).Observe(duration.Seconds())
}

// IncAwards adds written awards for the channel.
func (p *PollerMetrics) IncAwards(channel string, count int) {
	if p == nil || p.awards == nil || count <= 0 {
		return
	}
	p.awards.WithLabelValues(normalizeLabel(channel)).Add(float64(count))
}

// IncReverts adds reverted awards for the channel.
func (p *PollerMetrics) IncReverts(channel string, count int) {
	if p == nil || p.reverts == nil || count <= 0 {
		return
	}
	p.reverts.WithLabelValues(normalizeLabel(channel)).Add(float64(count))
}

// IncFailure increments the failure counter for the channel.
func (p *PollerMetrics) IncFailure(channel string) {
	if p == nil || p.failures == nil {
		return
	}
	p.failures.WithLabelValues(normalizeLabel(channel)).Inc()
}

func normalizeLabel(channel string) string {
	if channel == "" {
		return "unknown"
	}
	return channel
}
