package core

import (
	"errors"
	"fmt"
	"runtime"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AllocID identifies one tracked allocation.
type AllocID = uuid.UUID

// Allocation kinds recorded by the heap-backed primitives.
const (
	KindMutex = "mutex"
	KindCond  = "cond"
)

// Allocator hands out tracked storage for synchronization objects.
type Allocator interface {
	// Alloc registers a new allocation of the given kind.
	// It returns ErrAllocationFailure when no storage is available.
	Alloc(kind string) (AllocID, error)

	// Free releases an allocation. Freeing an unknown or already freed ID
	// returns ErrDoubleFree.
	Free(id AllocID) error
}

// AllocRecord describes one live allocation.
type AllocRecord struct {
	ID        AllocID
	Seq       uint64
	Kind      string
	Site      string
	Allocated time.Time
}

// TrackerConfig configures a Tracker.
type TrackerConfig struct {
	// Limit caps the number of live allocations. Zero means unlimited.
	Limit int

	Logger  Logger
	Metrics Metrics
}

// DefaultTrackerConfig returns an unlimited, silent configuration.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{Logger: NewNoOpLogger()}
}

// Tracker is an Allocator that remembers every live allocation so that
// leaks and double frees can be attributed to the call site that made them.
type Tracker struct {
	mu     sync.Mutex
	cfg    TrackerConfig
	live   map[AllocID]AllocRecord
	byKind map[string]int
	total  uint64
	freed  uint64
}

var _ Allocator = (*Tracker)(nil)

// NewTracker creates a Tracker.
func NewTracker(cfg TrackerConfig) *Tracker {
	if cfg.Logger == nil {
		cfg.Logger = NewNoOpLogger()
	}
	return &Tracker{
		cfg:    cfg,
		live:   make(map[AllocID]AllocRecord),
		byKind: make(map[string]int),
	}
}

var defaultTracker = NewTracker(DefaultTrackerConfig())

// DefaultTracker returns the process-wide tracker used by heap-backed
// primitives whose attributes name no allocator. It stands in for the
// process allocator and is the only shared mutable state in this package;
// pass a Tracker of your own in MutexAttr or CondAttr to keep allocations
// isolated.
func DefaultTracker() *Tracker {
	return defaultTracker
}

func (tr *Tracker) Alloc(kind string) (AllocID, error) {
	site := callSite()

	tr.mu.Lock()
	if tr.cfg.Limit > 0 && len(tr.live) >= tr.cfg.Limit {
		tr.mu.Unlock()
		tr.cfg.Logger.Debug("allocation refused", F("kind", kind), F("limit", tr.cfg.Limit))
		return uuid.Nil, ErrAllocationFailure
	}
	id := uuid.New()
	tr.total++
	tr.live[id] = AllocRecord{ID: id, Seq: tr.total, Kind: kind, Site: site, Allocated: time.Now()}
	tr.byKind[kind]++
	n := tr.byKind[kind]
	tr.mu.Unlock()

	if tr.cfg.Metrics != nil {
		tr.cfg.Metrics.RecordAllocation(kind, n)
	}
	return id, nil
}

func (tr *Tracker) Free(id AllocID) error {
	tr.mu.Lock()
	rec, ok := tr.live[id]
	if !ok {
		tr.mu.Unlock()
		tr.cfg.Logger.Error("free of untracked allocation", F("id", id))
		return fmt.Errorf("free %s: %w", id, ErrDoubleFree)
	}
	delete(tr.live, id)
	tr.byKind[rec.Kind]--
	tr.freed++
	n := tr.byKind[rec.Kind]
	tr.mu.Unlock()

	if tr.cfg.Metrics != nil {
		tr.cfg.Metrics.RecordFree(rec.Kind, n)
	}
	return nil
}

// Live returns the number of live allocations.
func (tr *Tracker) Live() int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return len(tr.live)
}

// LiveByKind returns live allocation counts keyed by kind.
func (tr *Tracker) LiveByKind() map[string]int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	out := make(map[string]int, len(tr.byKind))
	for k, n := range tr.byKind {
		out[k] = n
	}
	return out
}

// Totals returns the number of allocations and frees since creation.
func (tr *Tracker) Totals() (allocated, freed uint64) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.total, tr.freed
}

// Records returns the live allocations, oldest first.
func (tr *Tracker) Records() []AllocRecord {
	tr.mu.Lock()
	out := make([]AllocRecord, 0, len(tr.live))
	for _, rec := range tr.live {
		out = append(out, rec)
	}
	tr.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Seq < out[j].Seq
	})
	return out
}

// CheckLeaks returns one joined error per live allocation, or nil.
func (tr *Tracker) CheckLeaks() error {
	var errs []error
	for _, rec := range tr.Records() {
		tr.cfg.Logger.Warn("leaked allocation",
			F("id", rec.ID), F("kind", rec.Kind), F("site", rec.Site))
		errs = append(errs, fmt.Errorf("leaked %s %s allocated at %s", rec.Kind, rec.ID, rec.Site))
	}
	return errors.Join(errs...)
}

var pkgPrefix = reflect.TypeOf(Tracker{}).PkgPath() + "."

// callSite returns file:line of the first caller outside this package, so
// Init and the MutexInit/CondInit forms both report the user's line. Test
// files of this package count as callers.
func callSite() string {
	var pcs [32]uintptr
	n := runtime.Callers(2, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])
	for {
		f, more := frames.Next()
		if !strings.HasPrefix(f.Function, pkgPrefix) || strings.HasSuffix(f.File, "_test.go") {
			return fmt.Sprintf("%s:%d", f.File, f.Line)
		}
		if !more {
			return "unknown"
		}
	}
}
