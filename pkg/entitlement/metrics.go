package entitlement

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "quotakit"

// Metrics are the Prometheus collectors of the engine. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	decisions *prometheus.CounterVec
	commits   *prometheus.CounterVec
	degraded  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
}

// NewMetrics registers the collectors with reg. Collectors that are already
// registered are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entitlement_decisions_total",
			Help:      "Entitlement decisions by feature, tier, verdict and reason.",
		}, []string{"feature", "tier", "verdict", "reason"}),
		commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "usage_commits_total",
			Help:      "Usage commits by feature and result.",
		}, []string{"feature", "result"}),
		degraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_degraded_total",
			Help:      "Store calls that failed and were degraded.",
		}, []string{"component", "op"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "entitlement_check_duration_seconds",
			Help:      "Duration of CheckAndReserve.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"feature"}),
	}

	var err error
	if m.decisions, err = register(reg, m.decisions); err != nil {
		return nil, err
	}
	if m.commits, err = register(reg, m.commits); err != nil {
		return nil, err
	}
	if m.degraded, err = register(reg, m.degraded); err != nil {
		return nil, err
	}
	if m.latency, err = register(reg, m.latency); err != nil {
		return nil, err
	}
	return m, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// Decisions returns the decision counter for inspection in tests and
// dashboards.
func (m *Metrics) Decisions() *prometheus.CounterVec {
	return m.decisions
}

func (m *Metrics) Commits() *prometheus.CounterVec {
	return m.commits
}

func (m *Metrics) DegradedCalls() *prometheus.CounterVec {
	return m.degraded
}

func (m *Metrics) observeDecision(res *Reservation, took time.Duration) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(res.Feature, res.Status.String(), res.Verdict.String(), string(res.Verdict.Reason)).Inc()
	m.latency.WithLabelValues(res.Feature).Observe(took.Seconds())
}

func (m *Metrics) observeCommit(feature, result string) {
	if m == nil {
		return
	}
	m.commits.WithLabelValues(feature, result).Inc()
}

// StatusUnavailableHook counts subscription status outages, see
// subscription.WithUnavailableHook.
func (m *Metrics) StatusUnavailableHook() func(ctx context.Context, accountID string, err error) {
	return func(context.Context, string, error) {
		if m != nil {
			m.degraded.WithLabelValues("subscription", "read").Inc()
		}
	}
}

// UsageDegradedHook counts usage store outages, see usage.WithDegradedHook.
func (m *Metrics) UsageDegradedHook() func(ctx context.Context, op string, err error) {
	return func(_ context.Context, op string, _ error) {
		if m != nil {
			m.degraded.WithLabelValues("usage", op).Inc()
		}
	}
}
