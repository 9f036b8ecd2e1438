package core

import (
	"sync"
	"time"
)

// recordingMetrics is a Metrics implementation that keeps every call.
type recordingMetrics struct {
	mu       sync.Mutex
	started  map[string]int
	exited   map[string]int
	failures map[string]int
	allocs   map[string]int
	frees    map[string]int
	lastLive map[string]int
	events   []string
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		started:  make(map[string]int),
		exited:   make(map[string]int),
		failures: make(map[string]int),
		allocs:   make(map[string]int),
		frees:    make(map[string]int),
		lastLive: make(map[string]int),
	}
}

func (m *recordingMetrics) RecordThreadStarted(spawner string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started[spawner]++
	m.events = append(m.events, "started")
}

func (m *recordingMetrics) RecordThreadExited(spawner string, outcome string, lifetime time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exited[outcome]++
	m.events = append(m.events, "exited")
}

func (m *recordingMetrics) RecordLaunchFailure(spawner string, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[reason]++
}

func (m *recordingMetrics) RecordAllocation(kind string, live int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allocs[kind]++
	m.lastLive[kind] = live
}

func (m *recordingMetrics) RecordFree(kind string, live int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frees[kind]++
	m.lastLive[kind] = live
}

func (m *recordingMetrics) get(table map[string]int, key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return table[key]
}

func (m *recordingMetrics) eventLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.events...)
}

// recordingPanicHandler counts HandlePanic calls.
type recordingPanicHandler struct {
	mu     sync.Mutex
	values []any
}

func (h *recordingPanicHandler) HandlePanic(spawner string, thread *Thread, panicInfo any, stackTrace []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.values = append(h.values, panicInfo)
}

func (h *recordingPanicHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.values)
}

// failingAllocator refuses every allocation.
type failingAllocator struct{}

func (failingAllocator) Alloc(kind string) (AllocID, error) { return AllocID{}, ErrAllocationFailure }
func (failingAllocator) Free(id AllocID) error              { return ErrDoubleFree }

// spawners returns one instance of each spawner for table-driven tests.
func spawners(opts SpawnerOptions) map[string]Spawner {
	return map[string]Spawner{
		"goroutine": NewGoroutineSpawner(opts),
		"native":    NewNativeThreadSpawner(opts),
	}
}
