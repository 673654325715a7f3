package pkernel

import (
	"sync/atomic"
)

// KernelState represents the lifecycle state of a Kernel.
//
// State Machine:
//
//	StateBooted (0) → StateRunning (1)       [Run()]
//	StateRunning (1) → StateShuttingDown (2) [Shutdown()]
//	StateShuttingDown (2) → StateTerminated (3)
//	StateTerminated (3) → (terminal)
//
// Use TryTransition (CAS) for every transition; there is no valid reason
// to Store a KernelState directly outside of initialization.
type KernelState uint64

const (
	// StateBooted indicates Boot has completed but Run has not been called.
	StateBooted KernelState = 0
	// StateRunning indicates the tick source is active and the kernel
	// goroutine is processing ticks and kernel calls.
	StateRunning KernelState = 1
	// StateShuttingDown indicates Shutdown has been requested but the
	// kernel goroutine has not yet observed it.
	StateShuttingDown KernelState = 2
	// StateTerminated indicates the kernel goroutine has exited.
	StateTerminated KernelState = 3
)

func (s KernelState) String() string {
	switch s {
	case StateBooted:
		return "Booted"
	case StateRunning:
		return "Running"
	case StateShuttingDown:
		return "ShuttingDown"
	case StateTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// FastState is a lock-free state machine with cache-line padding, used for
// the kernel's run state, which is read by State, Run and Shutdown and
// written at most four times over a kernel's lifetime.
type FastState struct { // betteralign:ignore
	_ [64]byte      // cache line padding (before value) //nolint:unused
	v atomic.Uint64 // state value
	_ [56]byte      // pad to complete cache line (64 - 8 = 56) //nolint:unused
}

// NewFastState creates a new state machine in the Booted state.
func NewFastState() *FastState {
	s := &FastState{}
	s.v.Store(uint64(StateBooted))
	return s
}

// Load returns the current state atomically.
func (s *FastState) Load() KernelState {
	return KernelState(s.v.Load())
}

// Store atomically stores a new state, bypassing transition validation.
// The kernel itself never calls it; NewFastState sets the initial value
// directly.
func (s *FastState) Store(state KernelState) {
	s.v.Store(uint64(state))
}

// TryTransition attempts to atomically transition from one state to
// another. Returns true if the transition was successful.
func (s *FastState) TryTransition(from, to KernelState) bool {
	return s.v.CompareAndSwap(uint64(from), uint64(to))
}

// IsRunning returns true if the kernel is currently processing ticks.
func (s *FastState) IsRunning() bool {
	return s.Load() == StateRunning
}

// IsTerminal returns true if the kernel goroutine has exited.
func (s *FastState) IsTerminal() bool {
	return s.Load() == StateTerminated
}
