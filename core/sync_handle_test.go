package core

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/containerd/errdefs"
)

// =============================================================================
// Mutex Tests
// =============================================================================

// TestMutex_DestroyUninitialized tests destroy of a zero handle
// Given: mutex and cond handles of both kinds left in their zero state
// When: Destroy is called
// Then: it returns nil, and a later Init/Destroy pair still succeeds
func TestMutex_DestroyUninitialized(t *testing.T) {
	tracker := NewTracker(DefaultTrackerConfig())
	handles := map[string]MutexHandle{
		"inline": &InlineMutex{},
		"heap":   &HeapMutex{},
	}
	for name, m := range handles {
		t.Run(name, func(t *testing.T) {
			if err := m.Destroy(); err != nil {
				t.Fatalf("Destroy on zero handle: got = %v, want nil", err)
			}
			if err := m.Init(&MutexAttr{Allocator: tracker}); err != nil {
				t.Fatalf("Init failed: %v", err)
			}
			if err := m.Destroy(); err != nil {
				t.Fatalf("Destroy failed: %v", err)
			}
			if err := m.Destroy(); err != nil {
				t.Fatalf("second Destroy: got = %v, want nil", err)
			}
		})
	}
	if err := tracker.CheckLeaks(); err != nil {
		t.Errorf("leaks: %v", err)
	}
	if allocated, freed := tracker.Totals(); allocated != 1 || freed != 1 {
		t.Errorf("totals: got = %d/%d, want 1/1", allocated, freed)
	}
}

// TestMutexDestroy_Nil tests the nil function-form no-op
func TestMutexDestroy_Nil(t *testing.T) {
	if err := MutexDestroy(nil); err != nil {
		t.Errorf("MutexDestroy(nil): got = %v, want nil", err)
	}
	if err := CondDestroy(nil); err != nil {
		t.Errorf("CondDestroy(nil): got = %v, want nil", err)
	}
}

// TestHeapMutex_AllocationFailure tests the failed allocation path
// Given: an allocator that refuses every allocation
// When: Init is called and then Destroy
// Then: Init returns ErrAllocationFailure, the handle stays nil, Destroy returns nil
func TestHeapMutex_AllocationFailure(t *testing.T) {
	var m HeapMutex

	err := m.Init(&MutexAttr{Allocator: failingAllocator{}})

	if !errors.Is(err, ErrAllocationFailure) {
		t.Fatalf("Init: got = %v, want ErrAllocationFailure", err)
	}
	if !errdefs.IsResourceExhausted(err) {
		t.Errorf("error should classify as resource exhausted: %v", err)
	}
	if got := ResultCode(err); got != 1 {
		t.Errorf("result code: got = %d, want 1", got)
	}
	if m.s != nil {
		t.Error("handle should stay nil after failed allocation")
	}
	if err := m.Destroy(); err != nil {
		t.Errorf("Destroy after failed Init: got = %v, want nil", err)
	}
}

// TestHeapMutex_TrackerLimit tests allocation failure from a bounded tracker
// Given: a tracker limited to one live allocation, already used
// When: a second mutex is initialized, then the first is destroyed
// Then: the second Init fails, and succeeds once storage is freed
func TestHeapMutex_TrackerLimit(t *testing.T) {
	tracker := NewTracker(TrackerConfig{Limit: 1})
	attr := &MutexAttr{Allocator: tracker}
	var first, second HeapMutex

	if err := first.Init(attr); err != nil {
		t.Fatalf("first Init failed: %v", err)
	}
	if err := second.Init(attr); !errors.Is(err, ErrAllocationFailure) {
		t.Fatalf("second Init: got = %v, want ErrAllocationFailure", err)
	}
	if err := second.Destroy(); err != nil {
		t.Fatalf("Destroy after failed Init: got = %v, want nil", err)
	}
	if err := first.Destroy(); err != nil {
		t.Fatalf("first Destroy failed: %v", err)
	}
	if err := second.Init(attr); err != nil {
		t.Fatalf("second Init after free failed: %v", err)
	}
	if err := second.Destroy(); err != nil {
		t.Fatalf("second Destroy failed: %v", err)
	}
	if tracker.Live() != 0 {
		t.Errorf("live: got = %d, want 0", tracker.Live())
	}
}

// TestHeapMutex_InitDestroyLoop tests that repeated pairs leak nothing
// Given: a fresh tracker
// When: 1000 Init/Destroy pairs run on mutexes and condition variables
// Then: no allocation is live and every allocation was freed
func TestHeapMutex_InitDestroyLoop(t *testing.T) {
	const n = 1000
	tracker := NewTracker(DefaultTrackerConfig())

	for i := 0; i < n; i++ {
		var m HeapMutex
		var c HeapCond
		if err := m.Init(&MutexAttr{Allocator: tracker}); err != nil {
			t.Fatalf("mutex Init %d failed: %v", i, err)
		}
		if err := c.Init(&CondAttr{Allocator: tracker}); err != nil {
			t.Fatalf("cond Init %d failed: %v", i, err)
		}
		if err := m.Destroy(); err != nil {
			t.Fatalf("mutex Destroy %d failed: %v", i, err)
		}
		if err := c.Destroy(); err != nil {
			t.Fatalf("cond Destroy %d failed: %v", i, err)
		}
	}

	if err := tracker.CheckLeaks(); err != nil {
		t.Fatalf("leaks: %v", err)
	}
	allocated, freed := tracker.Totals()
	if allocated != 2*n || freed != 2*n {
		t.Errorf("totals: got = %d/%d, want %d/%d", allocated, freed, 2*n, 2*n)
	}
}

// TestMutex_DestroyWhileHeld tests the EBUSY pass-through
// Given: an initialized mutex that is currently locked
// When: Destroy is called
// Then: a PrimitiveError with EBUSY is returned; heap storage is still freed
func TestMutex_DestroyWhileHeld(t *testing.T) {
	tracker := NewTracker(DefaultTrackerConfig())
	handles := map[string]MutexHandle{
		"inline": &InlineMutex{},
		"heap":   &HeapMutex{},
	}
	for name, m := range handles {
		t.Run(name, func(t *testing.T) {
			if err := m.Init(&MutexAttr{Allocator: tracker}); err != nil {
				t.Fatalf("Init failed: %v", err)
			}
			m.Lock()

			err := m.Destroy()

			var pe *PrimitiveError
			if !errors.As(err, &pe) {
				t.Fatalf("Destroy: got = %v, want *PrimitiveError", err)
			}
			if pe.Errno != syscall.EBUSY {
				t.Errorf("errno: got = %v, want EBUSY", pe.Errno)
			}
			if got := ResultCode(err); got != int(syscall.EBUSY) {
				t.Errorf("result code: got = %d, want %d", got, int(syscall.EBUSY))
			}
		})
	}
	if tracker.Live() != 0 {
		t.Errorf("live: got = %d, want 0", tracker.Live())
	}
}

// TestMutex_DestroyWhileHeldElsewhere tests EBUSY against a holder on another thread
// Given: a mutex locked by a running thread
// When: Destroy is called from the test goroutine
// Then: EBUSY is returned until the holder unlocks
func TestMutex_DestroyWhileHeldElsewhere(t *testing.T) {
	var m InlineMutex
	if err := m.Init(nil); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	locked := make(chan struct{})
	release := make(chan struct{})
	var th Thread
	if err := Create(&th, nil, func(any) any {
		m.Lock()
		close(locked)
		<-release
		m.Unlock()
		return nil
	}, nil); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	<-locked

	err := m.Destroy()
	close(release)
	if jerr := Join(&th, nil); jerr != nil {
		t.Fatalf("Join failed: %v", jerr)
	}

	if ResultCode(err) != int(syscall.EBUSY) {
		t.Fatalf("Destroy while held: got = %v, want EBUSY", err)
	}
	if err := m.Destroy(); err != nil {
		t.Errorf("Destroy after unlock: got = %v, want nil", err)
	}
}

// TestHeapInit_RecordsCallerSite tests call-site attribution
// Given: heap handles initialized directly from this file
// When: the tracker records are read
// Then: each Site names this file and the line of the Init call
func TestHeapInit_RecordsCallerSite(t *testing.T) {
	tracker := NewTracker(DefaultTrackerConfig())

	var m HeapMutex
	err := m.Init(&MutexAttr{Allocator: tracker})
	_, file, line, _ := runtime.Caller(0)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	mutexSite := fmt.Sprintf("%s:%d", file, line-1)

	var c HeapCond
	err = c.Init(&CondAttr{Allocator: tracker})
	_, _, line, _ = runtime.Caller(0)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	condSite := fmt.Sprintf("%s:%d", file, line-1)

	recs := tracker.Records()
	if len(recs) != 2 {
		t.Fatalf("records: got = %d, want 2", len(recs))
	}
	if recs[0].Site != mutexSite {
		t.Errorf("mutex site: got = %s, want %s", recs[0].Site, mutexSite)
	}
	if recs[1].Site != condSite {
		t.Errorf("cond site: got = %s, want %s", recs[1].Site, condSite)
	}
	_ = c.Destroy()
	_ = m.Destroy()
}

// TestMutex_InitTwice tests re-initialization of a live handle
func TestMutex_InitTwice(t *testing.T) {
	handles := map[string]MutexHandle{
		"inline": &InlineMutex{},
		"heap":   &HeapMutex{},
	}
	for name, m := range handles {
		t.Run(name, func(t *testing.T) {
			attr := &MutexAttr{Allocator: NewTracker(DefaultTrackerConfig())}
			if err := m.Init(attr); err != nil {
				t.Fatalf("Init failed: %v", err)
			}
			defer m.Destroy()

			if err := m.Init(attr); !errors.Is(err, syscall.EBUSY) {
				t.Errorf("second Init: got = %v, want EBUSY", err)
			}
		})
	}
}

// TestMutex_TryLock tests TryLock against a held mutex
func TestMutex_TryLock(t *testing.T) {
	var m Mutex
	if err := MutexInit(&m, &MutexAttr{Allocator: NewTracker(DefaultTrackerConfig())}); err != nil {
		t.Fatalf("MutexInit failed: %v", err)
	}
	defer MutexDestroy(&m)

	if !m.TryLock() {
		t.Fatal("TryLock on free mutex should succeed")
	}
	if m.TryLock() {
		t.Fatal("TryLock on held mutex should fail")
	}
	m.Unlock()
}

// TestHeapMutex_LockUninitialized tests use of a nil heap handle
func TestHeapMutex_LockUninitialized(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Lock on nil HeapMutex should panic")
		}
	}()
	var m HeapMutex
	m.Lock()
}

// TestDefaultTracker_UsedWithoutAttr tests the nil attribute path
func TestDefaultTracker_UsedWithoutAttr(t *testing.T) {
	before := DefaultTracker().Live()
	var m HeapMutex
	if err := m.Init(nil); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if got := DefaultTracker().Live(); got != before+1 {
		t.Errorf("default tracker live: got = %d, want %d", got, before+1)
	}
	if err := m.Destroy(); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}
	if got := DefaultTracker().Live(); got != before {
		t.Errorf("default tracker live: got = %d, want %d", got, before)
	}
}

// =============================================================================
// Condition Variable Tests
// =============================================================================

func condHandles() map[string]CondHandle {
	return map[string]CondHandle{
		"inline": &InlineCond{},
		"heap":   &HeapCond{},
	}
}

// waitForWaiters polls until c has n queued waiters.
func waitForWaiters(t *testing.T, c CondHandle, n int) {
	t.Helper()
	var state *condState
	switch h := c.(type) {
	case *InlineCond:
		state = &h.c
	case *HeapCond:
		state = h.c
	}
	deadline := time.Now().Add(2 * time.Second)
	for state.waiting() != n {
		if time.Now().After(deadline) {
			t.Fatalf("waiters: got = %d, want %d", state.waiting(), n)
		}
		time.Sleep(time.Millisecond)
	}
}

// TestCond_SignalWakesOne tests Signal
// Given: two goroutines waiting on a condition variable
// When: Signal is called once
// Then: exactly one waiter wakes; a second Signal wakes the other
func TestCond_SignalWakesOne(t *testing.T) {
	for name, c := range condHandles() {
		t.Run(name, func(t *testing.T) {
			tracker := NewTracker(DefaultTrackerConfig())
			var mu InlineMutex
			_ = mu.Init(nil)
			if err := c.Init(&CondAttr{Allocator: tracker}); err != nil {
				t.Fatalf("Init failed: %v", err)
			}

			woken := make(chan int, 2)
			for i := 0; i < 2; i++ {
				go func(i int) {
					mu.Lock()
					c.Wait(&mu)
					mu.Unlock()
					woken <- i
				}(i)
			}
			waitForWaiters(t, c, 2)

			mu.Lock()
			c.Signal()
			mu.Unlock()

			select {
			case <-woken:
			case <-time.After(2 * time.Second):
				t.Fatal("Signal did not wake a waiter")
			}
			select {
			case <-woken:
				t.Fatal("Signal woke more than one waiter")
			case <-time.After(20 * time.Millisecond):
			}

			c.Signal()
			<-woken

			if err := c.Destroy(); err != nil {
				t.Fatalf("Destroy failed: %v", err)
			}
			if err := tracker.CheckLeaks(); err != nil {
				t.Errorf("leaks: %v", err)
			}
		})
	}
}

// TestCond_BroadcastWakesAll tests Broadcast with a predicate loop
// Given: five goroutines waiting for a ready flag
// When: the flag is set and Broadcast is called
// Then: all five return
func TestCond_BroadcastWakesAll(t *testing.T) {
	for name, c := range condHandles() {
		t.Run(name, func(t *testing.T) {
			var mu Mutex
			if err := MutexInit(&mu, &MutexAttr{Allocator: NewTracker(DefaultTrackerConfig())}); err != nil {
				t.Fatalf("MutexInit failed: %v", err)
			}
			defer MutexDestroy(&mu)
			if err := c.Init(&CondAttr{Allocator: NewTracker(DefaultTrackerConfig())}); err != nil {
				t.Fatalf("Init failed: %v", err)
			}
			defer c.Destroy()

			ready := false
			var wg sync.WaitGroup
			for i := 0; i < 5; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					mu.Lock()
					for !ready {
						c.Wait(&mu)
					}
					mu.Unlock()
				}()
			}
			waitForWaiters(t, c, 5)

			mu.Lock()
			ready = true
			c.Broadcast()
			mu.Unlock()

			done := make(chan struct{})
			go func() { wg.Wait(); close(done) }()
			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatal("Broadcast did not wake all waiters")
			}
		})
	}
}

// TestCond_DestroyWithWaiters tests the EBUSY pass-through
// Given: a condition variable with one waiter
// When: Destroy is called
// Then: EBUSY is returned
func TestCond_DestroyWithWaiters(t *testing.T) {
	var mu InlineMutex
	var c InlineCond
	_ = mu.Init(nil)
	if err := c.Init(nil); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	returned := make(chan struct{})
	go func() {
		mu.Lock()
		c.Wait(&mu)
		mu.Unlock()
		close(returned)
	}()
	waitForWaiters(t, &c, 1)

	err := c.Destroy()
	if got := ResultCode(err); got != int(syscall.EBUSY) {
		t.Errorf("Destroy with waiter: got = %v, want EBUSY", err)
	}

	c.Signal()
	<-returned
	if err := c.Destroy(); err != nil {
		t.Errorf("Destroy after waiter left: got = %v", err)
	}
}

// TestHeapCond_AllocationFailure tests the failed allocation path for conds
func TestHeapCond_AllocationFailure(t *testing.T) {
	var c HeapCond
	if err := c.Init(&CondAttr{Allocator: failingAllocator{}}); !errors.Is(err, ErrAllocationFailure) {
		t.Fatalf("Init: got = %v, want ErrAllocationFailure", err)
	}
	if err := c.Destroy(); err != nil {
		t.Errorf("Destroy after failed Init: got = %v, want nil", err)
	}
}
