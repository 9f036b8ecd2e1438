//go:build windows

package core

// Windows threads are launched through the OS-thread trampoline.
var defaultSpawner Spawner = NewNativeThreadSpawner(DefaultSpawnerOptions())

// DefaultSpawner returns the spawner used by Create on this platform.
func DefaultSpawner() Spawner {
	return defaultSpawner
}
