package pkernel

import "sync/atomic"

// Semaphore is a counting semaphore; a mutex is a Semaphore opened at 1
// with mutex semantics for Close (spec.md §3, §4.7).
type Semaphore struct {
	val   atomic.Int64
	mutex bool
}

// NewSemaphore creates a counting semaphore with the given initial value.
func NewSemaphore(initial int) *Semaphore {
	s := &Semaphore{}
	s.val.Store(int64(initial))
	return s
}

// NewMutex creates a binary semaphore, initially unlocked (value 1).
func NewMutex() *Semaphore {
	s := &Semaphore{mutex: true}
	s.val.Store(1)
	return s
}

// Value returns the semaphore's current value.
func (s *Semaphore) Value() int64 {
	return s.val.Load()
}

// post implements post(sem): sem.val++. Only post ever increases the
// value, which is what rules out a lost wake-up once a waiter is on the
// wait queue (spec.md §5).
func (s *Semaphore) post() {
	s.val.Add(1)
}

// wake decrements the semaphore's value by one. Called only from the
// kernel goroutine, exactly once per satisfied wait, whether the wait
// resolved immediately (kcall fast path) or after a suspend (findWakeable).
func (s *Semaphore) wake() {
	s.val.Add(-1)
}

// unlock implements unlock(mutex): mutex.val = 1, binary semantics
// (spec.md §4.7), distinct from Close's fuller reset.
func (s *Semaphore) unlock() {
	s.val.Store(1)
}

// Close resets the semaphore's value: 0 for a counting semaphore, 1 for a
// mutex. Storage lifetime is managed externally by the Go runtime, so
// unlike the three variants in the original source, this never frees
// anything (spec.md §9 "Semaphore close semantics").
func (s *Semaphore) Close() {
	if s.mutex {
		s.val.Store(1)
	} else {
		s.val.Store(0)
	}
}
