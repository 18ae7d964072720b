package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics implements the core.Metrics port with prometheus counters
type PrometheusMetrics struct {
	// Failed best-effort writes to the legacy store by operation
	mirrorFailures *prometheus.CounterVec

	// Reads served from the legacy store after an authoritative miss
	secondaryReads *prometheus.CounterVec

	// Resave pipeline writes and no-ops by resource type
	resourcesResaved   *prometheus.CounterVec
	resourcesUnchanged *prometheus.CounterVec

	// Lock workflow results by action and outcome
	lockOutcomes *prometheus.CounterVec
}

// New registers all registry-core metrics on the given registerer. Pass
// prometheus.DefaultRegisterer outside tests
func New(reg prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(reg)
	return &PrometheusMetrics{
		mirrorFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "registry_mirror_failures_total",
			Help: "Total failed best-effort writes to the legacy store by operation",
		}, []string{"operation"}),

		secondaryReads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "registry_secondary_reads_total",
			Help: "Total reads served by the legacy store after an authoritative miss",
		}, []string{"kind"}),

		resourcesResaved: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "registry_resources_resaved_total",
			Help: "Total resources rewritten by the resave pipeline",
		}, []string{"resource_type"}),

		resourcesUnchanged: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "registry_resources_unchanged_total",
			Help: "Total resources the resave pipeline inspected and left untouched",
		}, []string{"resource_type"}),

		lockOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "registry_lock_outcomes_total",
			Help: "Total lock workflow actions by outcome",
		}, []string{"action", "outcome"}),
	}
}

// RecordMirrorFailure counts a failed best-effort write to the secondary store
func (m *PrometheusMetrics) RecordMirrorFailure(operation string) {
	if m != nil {
		m.mirrorFailures.WithLabelValues(operation).Inc()
	}
}

// RecordSecondaryRead counts a read served by the secondary store
func (m *PrometheusMetrics) RecordSecondaryRead(kind string) {
	if m != nil {
		m.secondaryReads.WithLabelValues(kind).Inc()
	}
}

// RecordResourceResaved counts a resource rewritten by the resave pipeline
func (m *PrometheusMetrics) RecordResourceResaved(resourceType string) {
	if m != nil {
		m.resourcesResaved.WithLabelValues(resourceType).Inc()
	}
}

// RecordResourceUnchanged counts a resource left untouched by the resave pipeline
func (m *PrometheusMetrics) RecordResourceUnchanged(resourceType string) {
	if m != nil {
		m.resourcesUnchanged.WithLabelValues(resourceType).Inc()
	}
}

// RecordLockOutcome counts a lock workflow action by its outcome
func (m *PrometheusMetrics) RecordLockOutcome(action, outcome string) {
	if m != nil {
		m.lockOutcomes.WithLabelValues(action, outcome).Inc()
	}
}
