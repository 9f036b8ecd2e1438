package core

import (
	"errors"
	"fmt"
	"syscall"

	"github.com/containerd/errdefs"
)

// Sentinel errors. Each wraps a containerd/errdefs category so callers can
// classify results with errdefs.IsUnavailable and friends.
var (
	// ErrLaunchFailure is returned by Create when the thread could not be started.
	ErrLaunchFailure = fmt.Errorf("thread launch failed: %w", errdefs.ErrUnavailable)

	// ErrAllocationFailure is returned when backing storage for a
	// synchronization object could not be allocated.
	ErrAllocationFailure = fmt.Errorf("allocation failed: %w", errdefs.ErrResourceExhausted)

	// ErrInvalidWaitState is returned by Join when the thread terminated
	// without its entry function completing.
	ErrInvalidWaitState = fmt.Errorf("wait abandoned: %w", errdefs.ErrAborted)

	// ErrInvalidHandleState is returned when a handle is used outside its
	// lifecycle, e.g. joined twice or created twice.
	ErrInvalidHandleState = fmt.Errorf("invalid handle state: %w", errdefs.ErrFailedPrecondition)

	// ErrDoubleFree is returned by an Allocator asked to free an allocation
	// it does not hold.
	ErrDoubleFree = fmt.Errorf("double free: %w", errdefs.ErrNotFound)
)

// genericFailure is the single code reported for failures that carry no errno.
const genericFailure = 1

// PrimitiveError reports a failure of the wrapped primitive itself.
// The errno is passed through unchanged.
type PrimitiveError struct {
	Op    string
	Errno syscall.Errno
	Err   error
}

func (e *PrimitiveError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Errno, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Errno)
}

func (e *PrimitiveError) Unwrap() []error {
	errs := []error{e.Errno}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func primitiveErr(op string, errno syscall.Errno) error {
	return &PrimitiveError{Op: op, Errno: errno}
}

// PanicError carries a value recovered from a panicking entry function.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("thread entry panicked: %v", e.Value)
}

// ResultCode returns the discrete result code for err: 0 for nil, the
// carried errno when there is one, and 1 otherwise.
func ResultCode(err error) int {
	if err == nil {
		return 0
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return int(errno)
	}
	return genericFailure
}
