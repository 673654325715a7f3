package pkernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitSlice_ZeroFitIsBaseline(t *testing.T) {
	assert.Equal(t, baseSliceTicks, fitSlice(0))
}

func TestFitSlice_PositiveFitStretchesSlice(t *testing.T) {
	assert.Greater(t, fitSlice(5), fitSlice(0))
}

func TestFitSlice_NegativeFitShrinksSlice(t *testing.T) {
	assert.Less(t, fitSlice(-5), fitSlice(0))
}

func TestFitSlice_NeverBelowOne(t *testing.T) {
	assert.GreaterOrEqual(t, fitSlice(-10), 1)
}

func TestQueue_InsBackAndRemove(t *testing.T) {
	table := newProcessTable(4)
	q := newProcQueue()

	table.queueInsBack(&q, 1)
	table.queueInsBack(&q, 2)
	table.queueInsBack(&q, 3)

	require.Equal(t, 1, q.head)
	require.Equal(t, 3, q.tail)

	table.queueRemove(&q, 2)

	assert.Equal(t, 3, table.procs[1].next)
	assert.Equal(t, 1, table.procs[3].prev)
}

func TestQueue_InsFront(t *testing.T) {
	table := newProcessTable(4)
	q := newProcQueue()

	table.queueInsBack(&q, 1)
	table.queueInsFront(&q, 2)

	assert.Equal(t, 2, q.head)
	assert.Equal(t, 1, q.tail)
}

func TestQueue_InsBeforeMiddle(t *testing.T) {
	table := newProcessTable(4)
	q := newProcQueue()

	table.queueInsBack(&q, 1)
	table.queueInsBack(&q, 3)
	table.queueInsBefore(&q, 3, 2)

	var order []int
	for pid := q.head; pid >= 0; pid = table.procs[pid].next {
		order = append(order, pid)
	}
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestInsertByPriorityLocked_LowerNiceGoesFirst(t *testing.T) {
	k := &Kernel{table: newProcessTable(4), ready: newProcQueue()}
	k.table.procs[1] = Process{pid: 1, nice: 5, timeSlice: baseSliceTicks, next: -1, prev: -1}
	k.table.procs[2] = Process{pid: 2, nice: 0, timeSlice: baseSliceTicks, next: -1, prev: -1}

	k.insertByPriorityLocked(1)
	k.insertByPriorityLocked(2)

	assert.Equal(t, 2, k.ready.head) // lower nice is higher priority, dispatched first
}

func TestInsertByPriorityLocked_SkipsEntriesWithExhaustedSlice(t *testing.T) {
	k := &Kernel{table: newProcessTable(4), ready: newProcQueue()}
	k.table.procs[1] = Process{pid: 1, nice: 5, timeSlice: 0, next: -1, prev: -1}
	k.table.procs[2] = Process{pid: 2, nice: 0, timeSlice: baseSliceTicks, next: -1, prev: -1}

	k.insertByPriorityLocked(1)
	k.insertByPriorityLocked(2)

	// pid 1's slice is already exhausted, so it is not a valid insertion
	// point even though its nice is higher; pid 2 falls in behind it.
	assert.Equal(t, 1, k.ready.head)
	assert.Equal(t, 2, k.table.procs[1].next)
}

func TestFindWakeable_AlarmExpired(t *testing.T) {
	k := &Kernel{table: newProcessTable(4), wait: newProcQueue()}
	k.ticks.Store(100)
	k.table.procs[1] = Process{pid: 1, alarm: 50, next: -1, prev: -1}
	k.table.queueInsBack(&k.wait, 1)

	assert.Equal(t, 1, k.findWakeable())
}

func TestFindWakeable_AlarmNotYetExpired(t *testing.T) {
	k := &Kernel{table: newProcessTable(4), wait: newProcQueue()}
	k.ticks.Store(10)
	k.table.procs[1] = Process{pid: 1, alarm: 50, next: -1, prev: -1}
	k.table.queueInsBack(&k.wait, 1)

	assert.Equal(t, -1, k.findWakeable())
}

func TestFindWakeable_SemaphoreReady(t *testing.T) {
	k := &Kernel{table: newProcessTable(4), wait: newProcQueue()}
	sem := NewSemaphore(1)
	k.table.procs[1] = Process{pid: 1, sem: sem, next: -1, prev: -1}
	k.table.queueInsBack(&k.wait, 1)

	pid := k.findWakeable()
	require.Equal(t, 1, pid)
	assert.EqualValues(t, 0, sem.Value()) // consumed exactly once
}
