package prometheus

import (
	"context"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// TrackerSnapshotProvider provides allocation tracker snapshots.
// *core.Tracker satisfies it.
type TrackerSnapshotProvider interface {
	LiveByKind() map[string]int
	Totals() (allocated, freed uint64)
}

// SnapshotPoller periodically exports tracker snapshots into Prometheus gauges.
// Use it for trackers whose Metrics hook is not wired to a MetricsExporter.
type SnapshotPoller struct {
	interval time.Duration

	trackersMu sync.RWMutex
	trackers   map[string]TrackerSnapshotProvider

	trackerLive      *prom.GaugeVec
	trackerAllocated *prom.GaugeVec
	trackerFreed     *prom.GaugeVec

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	trackerLive := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "threading",
		Name:      "tracker_live",
		Help:      "Live tracked allocations per tracker and kind.",
	}, []string{"tracker", "kind"})
	trackerAllocated := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "threading",
		Name:      "tracker_allocated",
		Help:      "Allocations made since tracker creation.",
	}, []string{"tracker"})
	trackerFreed := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "threading",
		Name:      "tracker_freed",
		Help:      "Allocations freed since tracker creation.",
	}, []string{"tracker"})

	var err error
	if trackerLive, err = registerCollector(reg, trackerLive); err != nil {
		return nil, err
	}
	if trackerAllocated, err = registerCollector(reg, trackerAllocated); err != nil {
		return nil, err
	}
	if trackerFreed, err = registerCollector(reg, trackerFreed); err != nil {
		return nil, err
	}

	return &SnapshotPoller{
		interval:         interval,
		trackers:         make(map[string]TrackerSnapshotProvider),
		trackerLive:      trackerLive,
		trackerAllocated: trackerAllocated,
		trackerFreed:     trackerFreed,
	}, nil
}

// AddTracker adds or replaces a tracker snapshot provider by name.
func (p *SnapshotPoller) AddTracker(name string, provider TrackerSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "tracker")
	p.trackersMu.Lock()
	p.trackers[name] = provider
	p.trackersMu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.running {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	done := p.done
	p.stateMu.Unlock()

	go p.loop(pollCtx, done)
}

// Stop stops periodic polling and takes a final snapshot; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.running {
		p.stateMu.Unlock()
		return
	}
	cancel, done := p.cancel, p.done
	p.running = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()

	cancel()
	<-done
	p.CollectOnce()
}

func (p *SnapshotPoller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.CollectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.CollectOnce()
		}
	}
}

// CollectOnce takes one snapshot of every registered tracker.
func (p *SnapshotPoller) CollectOnce() {
	p.trackersMu.RLock()
	defer p.trackersMu.RUnlock()

	for name, provider := range p.trackers {
		for kind, n := range provider.LiveByKind() {
			p.trackerLive.WithLabelValues(name, normalizeLabel(kind, "unknown")).Set(float64(n))
		}
		allocated, freed := provider.Totals()
		p.trackerAllocated.WithLabelValues(name).Set(float64(allocated))
		p.trackerFreed.WithLabelValues(name).Set(float64(freed))
	}
}
