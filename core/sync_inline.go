package core

import "sync"

// InlineMutex stores its primitive state inline. Init and Destroy never
// allocate.
type InlineMutex struct {
	s mutexState
}

func (m *InlineMutex) Init(*MutexAttr) error { return m.s.init() }
func (m *InlineMutex) Destroy() error        { return m.s.destroy() }
func (m *InlineMutex) Lock()                 { m.s.lock() }
func (m *InlineMutex) Unlock()               { m.s.unlock() }
func (m *InlineMutex) TryLock() bool         { return m.s.tryLock() }

// InlineCond stores its primitive state inline.
type InlineCond struct {
	c condState
}

func (c *InlineCond) Init(*CondAttr) error { return c.c.init() }
func (c *InlineCond) Destroy() error       { return c.c.destroy() }
func (c *InlineCond) Wait(l sync.Locker)   { c.c.wait(l) }
func (c *InlineCond) Signal()              { c.c.signal() }
func (c *InlineCond) Broadcast()           { c.c.broadcast() }
