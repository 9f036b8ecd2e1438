package core

import (
	"sync"
	"sync/atomic"
	"syscall"
)

// mutexState is the primitive mutex object wrapped by both handle kinds.
type mutexState struct {
	mu   sync.Mutex
	live atomic.Bool
}

func (s *mutexState) init() error {
	if !s.live.CompareAndSwap(false, true) {
		return primitiveErr("mutex_init", syscall.EBUSY)
	}
	return nil
}

// destroy fails with EBUSY while the mutex is held. The probe takes the
// lock itself, so a holder is seen from the moment Lock returns until
// Unlock runs.
func (s *mutexState) destroy() error {
	if !s.live.Load() {
		return nil
	}
	if !s.mu.TryLock() {
		return primitiveErr("mutex_destroy", syscall.EBUSY)
	}
	s.live.Store(false)
	s.mu.Unlock()
	return nil
}

func (s *mutexState) lock()         { s.mu.Lock() }
func (s *mutexState) tryLock() bool { return s.mu.TryLock() }
func (s *mutexState) unlock()       { s.mu.Unlock() }

// condState is the primitive condition variable object. Waiters queue in
// FIFO order; each wait parks on its own channel so any sync.Locker can be
// paired with it.
type condState struct {
	mu      sync.Mutex
	waiters []chan struct{}
	live    atomic.Bool
}

func (c *condState) init() error {
	if !c.live.CompareAndSwap(false, true) {
		return primitiveErr("cond_init", syscall.EBUSY)
	}
	return nil
}

// destroy fails with EBUSY while goroutines are waiting.
func (c *condState) destroy() error {
	if !c.live.Load() {
		return nil
	}
	c.mu.Lock()
	n := len(c.waiters)
	c.mu.Unlock()
	if n > 0 {
		return primitiveErr("cond_destroy", syscall.EBUSY)
	}
	c.live.Store(false)
	return nil
}

// wait must be called with l held. It is queued before l is released so a
// signal sent by the next holder of l is never lost.
func (c *condState) wait(l sync.Locker) {
	ch := make(chan struct{})
	c.mu.Lock()
	c.waiters = append(c.waiters, ch)
	c.mu.Unlock()

	l.Unlock()
	<-ch
	l.Lock()
}

func (c *condState) signal() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.waiters) == 0 {
		return
	}
	close(c.waiters[0])
	c.waiters[0] = nil
	c.waiters = c.waiters[1:]
}

func (c *condState) broadcast() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.waiters {
		close(ch)
	}
	c.waiters = nil
}

func (c *condState) waiting() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}
