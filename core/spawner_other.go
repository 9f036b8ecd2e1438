//go:build !windows

package core

var defaultSpawner Spawner = NewGoroutineSpawner(DefaultSpawnerOptions())

// DefaultSpawner returns the spawner used by Create on this platform.
func DefaultSpawner() Spawner {
	return defaultSpawner
}
