package core

import (
	"errors"
	"fmt"
	"sync"
	"syscall"

	"github.com/google/uuid"
)

// HeapMutex owns an individually allocated mutex. Each allocation is
// registered with an Allocator so its lifetime can be checked.
//
// The zero value is a nil handle: Destroy is a no-op, Lock panics.
type HeapMutex struct {
	s     *mutexState
	id    AllocID
	alloc Allocator
}

// Init allocates and initializes the mutex. If allocation fails the handle
// stays nil and ErrAllocationFailure is returned.
func (m *HeapMutex) Init(attr *MutexAttr) error {
	if m.s != nil {
		return primitiveErr("mutex_init", syscall.EBUSY)
	}
	a := attr.allocator()
	id, err := a.Alloc(KindMutex)
	if err != nil {
		return fmt.Errorf("mutex_init: %w", err)
	}
	m.s, m.id, m.alloc = &mutexState{}, id, a
	return m.s.init()
}

// Destroy destroys the mutex and frees its storage, returning the destroy
// result. The storage is freed even when destroy reports EBUSY.
func (m *HeapMutex) Destroy() error {
	if m.s == nil {
		return nil
	}
	err := m.s.destroy()
	ferr := m.alloc.Free(m.id)
	m.s, m.id, m.alloc = nil, uuid.Nil, nil
	return errors.Join(err, ferr)
}

func (m *HeapMutex) Lock()         { m.state().lock() }
func (m *HeapMutex) Unlock()       { m.state().unlock() }
func (m *HeapMutex) TryLock() bool { return m.state().tryLock() }

func (m *HeapMutex) state() *mutexState {
	if m.s == nil {
		panic("core: use of uninitialized HeapMutex")
	}
	return m.s
}

// HeapCond owns an individually allocated condition variable.
//
// The zero value is a nil handle: Destroy is a no-op, Wait panics.
type HeapCond struct {
	c     *condState
	id    AllocID
	alloc Allocator
}

// Init allocates and initializes the condition variable. If allocation
// fails the handle stays nil and ErrAllocationFailure is returned.
func (c *HeapCond) Init(attr *CondAttr) error {
	if c.c != nil {
		return primitiveErr("cond_init", syscall.EBUSY)
	}
	a := attr.allocator()
	id, err := a.Alloc(KindCond)
	if err != nil {
		return fmt.Errorf("cond_init: %w", err)
	}
	c.c, c.id, c.alloc = &condState{}, id, a
	return c.c.init()
}

// Destroy destroys the condition variable and frees its storage.
func (c *HeapCond) Destroy() error {
	if c.c == nil {
		return nil
	}
	err := c.c.destroy()
	ferr := c.alloc.Free(c.id)
	c.c, c.id, c.alloc = nil, uuid.Nil, nil
	return errors.Join(err, ferr)
}

func (c *HeapCond) Wait(l sync.Locker) { c.state().wait(l) }
func (c *HeapCond) Signal()            { c.state().signal() }
func (c *HeapCond) Broadcast()         { c.state().broadcast() }

func (c *HeapCond) state() *condState {
	if c.c == nil {
		panic("core: use of uninitialized HeapCond")
	}
	return c.c
}
