package pkernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSemaphore_NewSemaphoreInitialValue(t *testing.T) {
	s := NewSemaphore(3)
	assert.EqualValues(t, 3, s.Value())
}

func TestSemaphore_NewMutexStartsUnlocked(t *testing.T) {
	m := NewMutex()
	assert.EqualValues(t, 1, m.Value())
}

func TestSemaphore_PostIncrements(t *testing.T) {
	s := NewSemaphore(0)
	s.post()
	assert.EqualValues(t, 1, s.Value())
	s.post()
	assert.EqualValues(t, 2, s.Value())
}

func TestSemaphore_WakeDecrements(t *testing.T) {
	s := NewSemaphore(2)
	s.wake()
	assert.EqualValues(t, 1, s.Value())
}

func TestSemaphore_UnlockResetsToOne(t *testing.T) {
	m := NewMutex()
	m.wake() // simulate a lock: value drops to 0
	assert.EqualValues(t, 0, m.Value())
	m.unlock()
	assert.EqualValues(t, 1, m.Value())
}

func TestSemaphore_CloseCounting(t *testing.T) {
	s := NewSemaphore(5)
	s.Close()
	assert.EqualValues(t, 0, s.Value())
}

func TestSemaphore_CloseMutex(t *testing.T) {
	m := NewMutex()
	m.wake()
	m.Close()
	assert.EqualValues(t, 1, m.Value())
}
