package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ent0n29/matchwork/internal/reliability"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	RetryAttempts     *prometheus.CounterVec
	RetriesGivenUp    *prometheus.CounterVec
	DegradedReads     *prometheus.CounterVec
	MarketplaceEvents *prometheus.CounterVec
	FeedDrops         prometheus.Counter
	ActiveFeedSubs    prometheus.Gauge

	// Latency is the dashboard's rolling per-route latency window. It
	// lives beside the Prometheus instruments because its snapshot is
	// served as JSON, not scraped.
	Latency *LatencyWindow
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		RetryAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retry_attempts_total",
			Help:      "Backoff waits before another attempt, by policy.",
		}, []string{"policy"}),
		RetriesGivenUp: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_given_up_total",
			Help:      "Calls whose final failure left the retry layer, by policy and class.",
		}, []string{"policy", "class"}),
		DegradedReads: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degraded_reads_total",
			Help:      "Read calls that fell back to a safe default, by policy.",
		}, []string{"policy"}),
		MarketplaceEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "marketplace_events_total",
			Help:      "Published feed events by type.",
		}, []string{"event"}),
		FeedDrops: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_drops_total",
			Help:      "Feed events dropped because a subscriber was slow.",
		}),
		ActiveFeedSubs: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_feed_subscriptions",
			Help:      "Number of live feed subscriptions.",
		}),
		Latency: NewLatencyWindow(256),
	}
}

// InstrumentRead wires retry and degradation counters into a read policy.
// Every give-up on a read policy is a degraded read: ReadOr substitutes
// the fallback whenever the orchestrator gives up.
func (m *Metrics) InstrumentRead(p reliability.Policy) reliability.Policy {
	p = m.instrument(p)
	prevGiveUp := p.OnGiveUp
	p.OnGiveUp = func(err error) {
		prevGiveUp(err)
		m.DegradedReads.WithLabelValues(p.Name).Inc()
	}
	return p
}

// InstrumentWrite wires retry counters into a write policy.
func (m *Metrics) InstrumentWrite(p reliability.Policy) reliability.Policy {
	return m.instrument(p)
}

func (m *Metrics) instrument(p reliability.Policy) reliability.Policy {
	name := p.Name
	p.OnRetry = func(attempt int, delay time.Duration, err error) {
		m.RetryAttempts.WithLabelValues(name).Inc()
	}
	p.OnGiveUp = func(err error) {
		m.RetriesGivenUp.WithLabelValues(name, reliability.Classify(err).String()).Inc()
	}
	return p
}

func (m *Metrics) ObserveMarketplaceEvent(event string) {
	m.MarketplaceEvents.WithLabelValues(event).Inc()
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
