package pkernel

import (
	"errors"
	"fmt"
)

// Sentinel errors for the error kinds pkernel reports. All other
// error values returned by this package wrap one of these; callers should
// match with [errors.Is] rather than on error strings.
var (
	// ErrOutOfMemory is returned when the arena allocator has no gap large
	// enough to satisfy a request.
	ErrOutOfMemory = errors.New("pkernel: out of memory")

	// ErrOutOfSlots is returned when the process table has no free slot.
	ErrOutOfSlots = errors.New("pkernel: out of process slots")

	// ErrInvalidArgument is returned for a nil entry point, an
	// out-of-range nice/fit value, an invalid Boot frequency or option, or
	// an invalid ServiceAdd/CronAdd registration. A zero-size allocation is
	// reported only by Arena.Alloc's false result, and an unknown
	// kernel-call command is ignored.
	ErrInvalidArgument = errors.New("pkernel: invalid argument")

	// ErrNotBooted is returned by Run when the kernel is not in the Booted
	// state: Run has already been called, or Shutdown has run.
	ErrNotBooted = errors.New("pkernel: kernel not running")
)

// AllocError reports an out-of-memory failure from the arena allocator,
// with the request that failed attached for logging. Boot returns it when
// the kernel or idle stack does not fit in the arena.
type AllocError struct {
	Cause error
	Size  uint64
	Kind  AllocKind
}

func (e *AllocError) Error() string {
	return fmt.Sprintf("pkernel: alloc %d bytes (%s): %s", e.Size, e.Kind, e.Cause)
}

func (e *AllocError) Unwrap() error {
	return e.Cause
}

// ProcessError reports an out-of-slots, out-of-memory or invalid-argument
// failure from process creation.
type ProcessError struct {
	Cause error
	Nice  int
	Fit   int
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("pkernel: new_process(nice=%d, fit=%d): %s", e.Nice, e.Fit, e.Cause)
}

func (e *ProcessError) Unwrap() error {
	return e.Cause
}

// WrapError wraps an error with a message, preserving the cause chain for
// [errors.Is] and [errors.As].
func WrapError(message string, cause error) error {
	return fmt.Errorf("%s: %w", message, cause)
}
