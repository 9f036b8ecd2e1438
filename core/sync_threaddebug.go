//go:build threaddebug

package core

// Instrumented reports whether this is a threaddebug build.
const Instrumented = true

// Mutex is the mutex handle used throughout a program. In threaddebug builds
// each one is a separate allocation registered with an Allocator.
type Mutex = HeapMutex

// Cond is the condition variable handle used throughout a program.
type Cond = HeapCond
