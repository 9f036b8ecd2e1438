package core

import "sync"

// MutexAttr holds mutex initialization attributes.
type MutexAttr struct {
	// Allocator backs heap-allocated mutexes. Nil selects DefaultTracker.
	// Inline mutexes ignore it.
	Allocator Allocator
}

// CondAttr holds condition variable initialization attributes.
type CondAttr struct {
	// Allocator backs heap-allocated condition variables. Nil selects
	// DefaultTracker. Inline condition variables ignore it.
	Allocator Allocator
}

func (a *MutexAttr) allocator() Allocator {
	if a == nil || a.Allocator == nil {
		return DefaultTracker()
	}
	return a.Allocator
}

func (a *CondAttr) allocator() Allocator {
	if a == nil || a.Allocator == nil {
		return DefaultTracker()
	}
	return a.Allocator
}

// MutexHandle is the mutex capability shared by the inline and the
// heap-allocated implementations.
//
// Destroy on a handle that was never initialized, or whose Init failed,
// returns nil.
type MutexHandle interface {
	Init(attr *MutexAttr) error
	Destroy() error
	sync.Locker
	TryLock() bool
}

// CondHandle is the condition variable capability shared by the inline and
// the heap-allocated implementations. Wait must be called with l held.
type CondHandle interface {
	Init(attr *CondAttr) error
	Destroy() error
	Wait(l sync.Locker)
	Signal()
	Broadcast()
}

var (
	_ MutexHandle = (*InlineMutex)(nil)
	_ MutexHandle = (*HeapMutex)(nil)
	_ CondHandle  = (*InlineCond)(nil)
	_ CondHandle  = (*HeapCond)(nil)
)

// MutexInit initializes m.
func MutexInit(m *Mutex, attr *MutexAttr) error {
	return m.Init(attr)
}

// MutexDestroy destroys m. A nil m is a no-op.
func MutexDestroy(m *Mutex) error {
	if m == nil {
		return nil
	}
	return m.Destroy()
}

// CondInit initializes c.
func CondInit(c *Cond, attr *CondAttr) error {
	return c.Init(attr)
}

// CondDestroy destroys c. A nil c is a no-op.
func CondDestroy(c *Cond) error {
	if c == nil {
		return nil
	}
	return c.Destroy()
}
