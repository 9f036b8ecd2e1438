//go:build !threaddebug

package core

// Instrumented reports whether this is a threaddebug build.
const Instrumented = false

// Mutex is the mutex handle used throughout a program. Ordinary builds store
// it inline; build with -tags threaddebug for heap-allocated, tracked handles.
type Mutex = InlineMutex

// Cond is the condition variable handle used throughout a program.
type Cond = InlineCond
