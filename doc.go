// Package threading provides portable thread and lock primitives with a
// POSIX-style contract.
//
// Threads are started with Create and collected with Join. Mutexes and
// condition variables are initialized with MutexInit/CondInit and released
// with MutexDestroy/CondDestroy.
//
// # Quick Start
//
//	var th threading.Thread
//	if err := threading.Create(&th, nil, func(arg any) any {
//		return arg.(int) * 2
//	}, 21); err != nil {
//		return err
//	}
//
//	var result any
//	if err := threading.Join(&th, &result); err != nil {
//		return err
//	}
//	// result == 42
//
// # Spawners
//
// Create uses the platform's DefaultSpawner. On Windows every thread runs on
// a dedicated OS thread through a trampoline (NativeThreadSpawner); elsewhere
// threads are goroutines (GoroutineSpawner). Both are available explicitly
// through CreateWith.
//
// # Instrumented Builds
//
// Building with -tags threaddebug switches Mutex and Cond from inline
// storage to individually allocated handles registered with an allocation
// Tracker, so leaks and double frees are attributed to the call site that
// created them:
//
//	go test -tags threaddebug ./...
//
// Join on a handle that was never started, and Destroy on a handle that was
// never initialized, are defined no-ops.
//
// For more details, see https://github.com/Swind/go-threading
package threading
