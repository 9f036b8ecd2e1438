package prometheus

import (
	"errors"
	"fmt"
	"time"

	"github.com/Swind/go-threading/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	LifetimeBuckets []float64
}

// MetricsExporter adapts core.Metrics to Prometheus collectors.
type MetricsExporter struct {
	threadsStarted        *prom.CounterVec
	threadLifetimeSeconds *prom.HistogramVec
	launchFailures        *prom.CounterVec
	syncAllocations       *prom.CounterVec
	syncFrees             *prom.CounterVec
	syncLive              *prom.GaugeVec
}

var _ core.Metrics = (*MetricsExporter)(nil)

// NewMetricsExporter creates and registers Prometheus collectors for core.Metrics.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = "threading"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	buckets := opts.LifetimeBuckets
	if len(buckets) == 0 {
		buckets = prom.DefBuckets
	}

	startedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "threads_started_total",
		Help:      "Total number of threads launched.",
	}, []string{"spawner"})
	lifetimeVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "thread_lifetime_seconds",
		Help:      "Time from launch to entry function exit in seconds.",
		Buckets:   buckets,
	}, []string{"spawner", "outcome"})
	failuresVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "thread_launch_failures_total",
		Help:      "Total number of failed thread launches.",
	}, []string{"spawner", "reason"})
	allocVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "sync_allocations_total",
		Help:      "Total number of heap-allocated synchronization objects.",
	}, []string{"kind"})
	freeVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "sync_frees_total",
		Help:      "Total number of freed synchronization objects.",
	}, []string{"kind"})
	liveVec := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "sync_live_objects",
		Help:      "Current number of live heap-allocated synchronization objects.",
	}, []string{"kind"})

	var err error
	if startedVec, err = registerCollector(reg, startedVec); err != nil {
		return nil, err
	}
	if lifetimeVec, err = registerCollector(reg, lifetimeVec); err != nil {
		return nil, err
	}
	if failuresVec, err = registerCollector(reg, failuresVec); err != nil {
		return nil, err
	}
	if allocVec, err = registerCollector(reg, allocVec); err != nil {
		return nil, err
	}
	if freeVec, err = registerCollector(reg, freeVec); err != nil {
		return nil, err
	}
	if liveVec, err = registerCollector(reg, liveVec); err != nil {
		return nil, err
	}

	return &MetricsExporter{
		threadsStarted:        startedVec,
		threadLifetimeSeconds: lifetimeVec,
		launchFailures:        failuresVec,
		syncAllocations:       allocVec,
		syncFrees:             freeVec,
		syncLive:              liveVec,
	}, nil
}

// RecordThreadStarted counts a launched thread.
func (m *MetricsExporter) RecordThreadStarted(spawner string) {
	if m == nil {
		return
	}
	m.threadsStarted.WithLabelValues(normalizeLabel(spawner, "unknown")).Inc()
}

// RecordThreadExited observes a thread's lifetime under its exit outcome.
func (m *MetricsExporter) RecordThreadExited(spawner string, outcome string, lifetime time.Duration) {
	if m == nil {
		return
	}
	m.threadLifetimeSeconds.WithLabelValues(normalizeLabel(spawner, "unknown"), outcomeLabel(outcome)).Observe(lifetime.Seconds())
}

// RecordLaunchFailure counts a failed launch.
func (m *MetricsExporter) RecordLaunchFailure(spawner string, reason string) {
	if m == nil {
		return
	}
	m.launchFailures.WithLabelValues(normalizeLabel(spawner, "unknown"), normalizeLabel(reason, "unknown")).Inc()
}

// RecordAllocation counts an allocation and updates the live gauge.
func (m *MetricsExporter) RecordAllocation(kind string, live int) {
	if m == nil {
		return
	}
	kind = normalizeLabel(kind, "unknown")
	m.syncAllocations.WithLabelValues(kind).Inc()
	m.syncLive.WithLabelValues(kind).Set(float64(live))
}

// RecordFree counts a free and updates the live gauge.
func (m *MetricsExporter) RecordFree(kind string, live int) {
	if m == nil {
		return
	}
	kind = normalizeLabel(kind, "unknown")
	m.syncFrees.WithLabelValues(kind).Inc()
	m.syncLive.WithLabelValues(kind).Set(float64(live))
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func outcomeLabel(outcome string) string {
	switch outcome {
	case core.OutcomeCompleted, core.OutcomePanicked, core.OutcomeAbandoned:
		return outcome
	default:
		return "unknown"
	}
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
