package core

import (
	"fmt"
	"time"
)

// =============================================================================
// PanicHandler: Interface for handling entry function panics
// =============================================================================

// PanicHandler is called when a thread's entry function panics.
// The panic is still reported to the joiner as a *PanicError.
//
// Implementations should be thread-safe as they may be called concurrently.
type PanicHandler interface {
	// HandlePanic is called on the panicking thread before it exits.
	//
	// Parameters:
	// - spawner: The name of the spawner that launched the thread
	// - thread: The handle of the panicking thread
	// - panicInfo: The panic value recovered from the entry function
	// - stackTrace: The stack trace at the time of panic
	HandlePanic(spawner string, thread *Thread, panicInfo any, stackTrace []byte)
}

// DefaultPanicHandler provides a basic panic handler that logs to stdout.
type DefaultPanicHandler struct{}

// HandlePanic prints panic information to stdout.
func (h *DefaultPanicHandler) HandlePanic(spawner string, thread *Thread, panicInfo any, stackTrace []byte) {
	fmt.Printf("[Thread %s @ %s] Panic: %v\nStack trace:\n%s",
		thread.ID(), spawner, panicInfo, stackTrace)
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Thread exit outcomes reported to Metrics.
const (
	OutcomeCompleted = "completed"
	OutcomePanicked  = "panicked"
	OutcomeAbandoned = "abandoned"
)

// Metrics defines the interface for collecting thread and sync object metrics.
// Implementations can send metrics to monitoring systems (Prometheus, StatsD, etc.).
//
// A nil Metrics is never called.
type Metrics interface {
	// RecordThreadStarted records a successful launch.
	RecordThreadStarted(spawner string)

	// RecordThreadExited records a thread leaving its entry function.
	//
	// Parameters:
	// - spawner: The name of the spawner that launched the thread
	// - outcome: One of OutcomeCompleted, OutcomePanicked, OutcomeAbandoned
	// - lifetime: Time between launch and exit
	RecordThreadExited(spawner string, outcome string, lifetime time.Duration)

	// RecordLaunchFailure records a failed Create.
	RecordLaunchFailure(spawner string, reason string)

	// RecordAllocation records a synchronization object allocation and the
	// resulting number of live objects of that kind.
	RecordAllocation(kind string, live int)

	// RecordFree records a synchronization object release and the resulting
	// number of live objects of that kind.
	RecordFree(kind string, live int)
}
