package threading

import "github.com/Swind/go-threading/core"

// Re-export commonly used types from core package for convenience.
// This allows users to import only the threading package for most use cases.

// Thread is a handle to one unit of execution
type Thread = core.Thread

// EntryFunc is a thread entry point
type EntryFunc = core.EntryFunc

// ThreadAttr is accepted by Create and ignored
type ThreadAttr = core.ThreadAttr

// Spawner launches threads
type Spawner = core.Spawner

// SpawnerOptions configures a spawner
type SpawnerOptions = core.SpawnerOptions

// Mutex is the build-selected mutex handle
type Mutex = core.Mutex

// Cond is the build-selected condition variable handle
type Cond = core.Cond

// MutexAttr and CondAttr are initialization attributes
type (
	MutexAttr = core.MutexAttr
	CondAttr  = core.CondAttr
)

// Tracker records heap-allocated synchronization objects
type Tracker = core.Tracker

// Errors
var (
	ErrLaunchFailure      = core.ErrLaunchFailure
	ErrAllocationFailure  = core.ErrAllocationFailure
	ErrInvalidWaitState   = core.ErrInvalidWaitState
	ErrInvalidHandleState = core.ErrInvalidHandleState
)

// Instrumented reports whether this is a threaddebug build.
const Instrumented = core.Instrumented

// Thread operations
var (
	Create         = core.Create
	CreateWith     = core.CreateWith
	Join           = core.Join
	DefaultSpawner = core.DefaultSpawner
	ResultCode     = core.ResultCode
)

// Synchronization handle operations
var (
	MutexInit    = core.MutexInit
	MutexDestroy = core.MutexDestroy
	CondInit     = core.CondInit
	CondDestroy  = core.CondDestroy
)

// NewGoroutineSpawner creates a spawner that runs threads as goroutines.
func NewGoroutineSpawner(opts SpawnerOptions) *core.GoroutineSpawner {
	return core.NewGoroutineSpawner(opts)
}

// NewNativeThreadSpawner creates a spawner that runs each thread on its own OS thread.
func NewNativeThreadSpawner(opts SpawnerOptions) *core.NativeThreadSpawner {
	return core.NewNativeThreadSpawner(opts)
}

// Go starts entry(arg) on a new thread and returns its handle.
func Go(entry EntryFunc, arg any) (*Thread, error) {
	th := &Thread{}
	if err := core.Create(th, nil, entry, arg); err != nil {
		return nil, err
	}
	return th, nil
}
