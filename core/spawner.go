package core

import (
	"runtime"
	"syscall"

	"golang.org/x/sync/semaphore"
)

// Spawner launches threads for Create. Exactly one implementation is the
// platform default; both are available for explicit use.
type Spawner interface {
	// Name identifies the spawner in metrics and panic reports.
	Name() string

	spawn(t *Thread) error
}

// SpawnerOptions configures a spawner.
type SpawnerOptions struct {
	// Name overrides the spawner's default name.
	Name string

	// MaxThreads bounds the number of live threads started by this spawner.
	// Zero means unbounded. Launching past the bound fails with EAGAIN.
	MaxThreads int64

	Metrics      Metrics
	PanicHandler PanicHandler
}

// DefaultSpawnerOptions returns options with no thread bound and no hooks.
func DefaultSpawnerOptions() SpawnerOptions {
	return SpawnerOptions{}
}

type baseSpawner struct {
	name string
	opts SpawnerOptions
	sem  *semaphore.Weighted
}

func newBaseSpawner(defaultName string, opts SpawnerOptions) baseSpawner {
	b := baseSpawner{name: defaultName, opts: opts}
	if opts.Name != "" {
		b.name = opts.Name
	}
	if opts.MaxThreads > 0 {
		b.sem = semaphore.NewWeighted(opts.MaxThreads)
	}
	return b
}

func (b *baseSpawner) Name() string {
	return b.name
}

// acquire reserves a thread slot and returns its release func.
func (b *baseSpawner) acquire() (func(), error) {
	if b.sem == nil {
		return nil, nil
	}
	if !b.sem.TryAcquire(1) {
		if b.opts.Metrics != nil {
			b.opts.Metrics.RecordLaunchFailure(b.name, "thread_limit")
		}
		return nil, launchErr(syscall.EAGAIN)
	}
	return func() { b.sem.Release(1) }, nil
}

func (b *baseSpawner) started() {
	if b.opts.Metrics != nil {
		b.opts.Metrics.RecordThreadStarted(b.name)
	}
}

// GoroutineSpawner runs each thread as a goroutine scheduled by the Go
// runtime. The entry's return value is the thread result directly.
type GoroutineSpawner struct {
	baseSpawner
}

// NewGoroutineSpawner creates a GoroutineSpawner.
func NewGoroutineSpawner(opts SpawnerOptions) *GoroutineSpawner {
	return &GoroutineSpawner{baseSpawner: newBaseSpawner("goroutine", opts)}
}

func (s *GoroutineSpawner) spawn(t *Thread) error {
	release, err := s.acquire()
	if err != nil {
		return err
	}
	s.started()
	go t.run(s.name, &s.opts, release)
	return nil
}

// NativeThreadSpawner runs each thread on its own OS thread. The trampoline
// locks itself to the thread and never unlocks, so the OS thread is torn
// down when the entry function returns.
type NativeThreadSpawner struct {
	baseSpawner
}

// NewNativeThreadSpawner creates a NativeThreadSpawner.
func NewNativeThreadSpawner(opts SpawnerOptions) *NativeThreadSpawner {
	return &NativeThreadSpawner{baseSpawner: newBaseSpawner("native", opts)}
}

func (s *NativeThreadSpawner) spawn(t *Thread) error {
	release, err := s.acquire()
	if err != nil {
		return err
	}

	s.started()
	locked := make(chan struct{})
	go func() {
		runtime.LockOSThread()
		close(locked)
		t.run(s.name, &s.opts, release)
	}()
	<-locked
	return nil
}
