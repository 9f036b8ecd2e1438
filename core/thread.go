package core

import (
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
)

// EntryFunc is a thread entry point. Its return value becomes the result
// reported by Join.
type EntryFunc func(arg any) any

// ThreadAttr is accepted by Create for interface compatibility.
// None of its fields are honored.
type ThreadAttr struct {
	Name      string
	StackSize int
}

// ThreadState is the lifecycle state of a Thread handle.
type ThreadState int32

const (
	ThreadUnstarted ThreadState = iota
	threadLaunching
	ThreadRunning
	threadJoining
	ThreadJoined
)

func (s ThreadState) String() string {
	switch s {
	case ThreadUnstarted:
		return "unstarted"
	case threadLaunching:
		return "launching"
	case ThreadRunning:
		return "running"
	case threadJoining:
		return "joining"
	case ThreadJoined:
		return "joined"
	default:
		return fmt.Sprintf("ThreadState(%d)", int32(s))
	}
}

// Thread is a handle to one unit of execution.
//
// The zero value is an unstarted handle; joining it is a no-op. A handle is
// owned by its creator and is dead once joined.
type Thread struct {
	id    uuid.UUID
	entry EntryFunc
	arg   any

	// written by the thread before done is closed
	result any
	err    error

	started time.Time
	done    chan struct{}
	state   atomic.Int32
}

// ID returns the identifier assigned at Create, or uuid.Nil.
func (t *Thread) ID() uuid.UUID {
	return t.id
}

// State returns the current lifecycle state.
func (t *Thread) State() ThreadState {
	return ThreadState(t.state.Load())
}

// Done returns a channel closed when the entry function has returned.
// It is nil for a handle that was never started.
func (t *Thread) Done() <-chan struct{} {
	return t.done
}

// Create launches entry(arg) on a new thread using DefaultSpawner.
func Create(t *Thread, attr *ThreadAttr, entry EntryFunc, arg any) error {
	return CreateWith(DefaultSpawner(), t, attr, entry, arg)
}

// CreateWith launches entry(arg) on a new thread started by sp. It returns as
// soon as the thread is running. On failure the handle stays unstarted.
func CreateWith(sp Spawner, t *Thread, _ *ThreadAttr, entry EntryFunc, arg any) error {
	if t == nil || entry == nil {
		return launchErr(syscall.EINVAL)
	}
	if !t.state.CompareAndSwap(int32(ThreadUnstarted), int32(threadLaunching)) {
		return fmt.Errorf("create on %s handle: %w", t.State(), ErrInvalidHandleState)
	}

	t.id = uuid.New()
	t.entry = entry
	t.arg = arg
	t.result = nil
	t.err = nil
	t.started = time.Now()
	t.done = make(chan struct{})

	if err := sp.spawn(t); err != nil {
		t.id = uuid.Nil
		t.entry = nil
		t.arg = nil
		t.done = nil
		t.state.Store(int32(ThreadUnstarted))
		return err
	}
	t.state.Store(int32(ThreadRunning))
	return nil
}

// Join blocks until the thread's entry function returns and, if out is not
// nil, stores its result there.
//
// Joining a nil or never-started handle returns nil immediately. A thread
// that exited through runtime.Goexit yields ErrInvalidWaitState and a thread
// whose entry panicked yields a *PanicError. Joining a handle twice, or from
// two goroutines, yields ErrInvalidHandleState.
func Join(t *Thread, out *any) error {
	if t == nil {
		return nil
	}
	if !t.state.CompareAndSwap(int32(ThreadRunning), int32(threadJoining)) {
		s := t.State()
		if s == ThreadUnstarted {
			return nil
		}
		return fmt.Errorf("join on %s handle: %w", s, ErrInvalidHandleState)
	}

	<-t.done
	t.state.Store(int32(ThreadJoined))

	if t.err != nil {
		return t.err
	}
	if out != nil {
		*out = t.result
	}
	return nil
}

// run is the trampoline executed on the new thread. It calls the entry,
// records how it left, runs onExit and then releases joiners.
func (t *Thread) run(spawner string, opts *SpawnerOptions, onExit func()) {
	completed := false
	defer func() {
		outcome := OutcomeCompleted
		if r := recover(); r != nil {
			stack := debug.Stack()
			t.err = &PanicError{Value: r, Stack: stack}
			outcome = OutcomePanicked
			if opts.PanicHandler != nil {
				opts.PanicHandler.HandlePanic(spawner, t, r, stack)
			}
		} else if !completed {
			t.err = fmt.Errorf("thread %s: %w: %w", t.id, ErrInvalidWaitState, syscall.EINVAL)
			outcome = OutcomeAbandoned
		}
		if opts.Metrics != nil {
			opts.Metrics.RecordThreadExited(spawner, outcome, time.Since(t.started))
		}
		if onExit != nil {
			onExit()
		}
		close(t.done)
	}()

	t.result = t.entry(t.arg)
	completed = true
}

func launchErr(errno syscall.Errno) error {
	return fmt.Errorf("%w: %w", ErrLaunchFailure, errno)
}
