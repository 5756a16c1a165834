package observer

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/smilemakc/flowgraph/pkg/engine"
)

// MetricsObserver exports execution metrics to Prometheus.
type MetricsObserver struct {
	executionsTotal *prometheus.CounterVec
	nodesTotal      *prometheus.CounterVec
	nodeDuration    *prometheus.HistogramVec
	activeRuns      prometheus.Gauge
}

// NewMetricsObserver creates a metrics observer and registers its
// collectors with the given registerer (prometheus.DefaultRegisterer when
// nil).
func NewMetricsObserver(reg prometheus.Registerer) *MetricsObserver {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	o := &MetricsObserver{
		executionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowgraph",
			Name:      "executions_total",
			Help:      "Workflow executions by terminal status.",
		}, []string{"status"}),
		nodesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowgraph",
			Name:      "nodes_total",
			Help:      "Node executions by type and result.",
		}, []string{"node_type", "result"}),
		nodeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "flowgraph",
			Name:      "node_duration_seconds",
			Help:      "Node execution duration.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"node_type"}),
		activeRuns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "flowgraph",
			Name:      "active_executions",
			Help:      "Executions currently running.",
		}),
	}

	reg.MustRegister(o.executionsTotal, o.nodesTotal, o.nodeDuration, o.activeRuns)
	return o
}

// Name identifies the observer.
func (o *MetricsObserver) Name() string { return "metrics" }

// Filter returns nil; the observer consumes all events.
func (o *MetricsObserver) Filter() EventFilter { return nil }

// OnEvent updates counters from one event.
func (o *MetricsObserver) OnEvent(_ context.Context, event engine.ExecutionEvent) error {
	switch event.Type {
	case engine.EventTypeExecutionStarted:
		o.activeRuns.Inc()

	case engine.EventTypeExecutionCompleted,
		engine.EventTypeExecutionFailed,
		engine.EventTypeExecutionCanceled:
		o.activeRuns.Dec()
		o.executionsTotal.WithLabelValues(string(event.Status)).Inc()

	case engine.EventTypeExecutionPaused:
		o.activeRuns.Dec()

	case engine.EventTypeExecutionResumed:
		o.activeRuns.Inc()

	case engine.EventTypeNodeCompleted:
		o.nodesTotal.WithLabelValues(event.NodeType, "completed").Inc()
		o.nodeDuration.WithLabelValues(event.NodeType).Observe(float64(event.DurationMs) / 1000)

	case engine.EventTypeNodeFailed:
		o.nodesTotal.WithLabelValues(event.NodeType, "failed").Inc()
		o.nodeDuration.WithLabelValues(event.NodeType).Observe(float64(event.DurationMs) / 1000)

	case engine.EventTypeNodeSkipped:
		o.nodesTotal.WithLabelValues(event.NodeType, "skipped").Inc()
	}
	return nil
}
