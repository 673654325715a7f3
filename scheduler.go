package pkernel

// procQueue is a doubly-linked list of pids threaded through the owning
// processTable's next/prev fields. -1 terminates either end. Kept as plain
// head/tail indices rather than a container/list, since list membership is
// already carried inline on each Process slot (spec.md §3, §9).
type procQueue struct {
	head, tail int
}

func newProcQueue() procQueue {
	return procQueue{head: -1, tail: -1}
}

func (q *procQueue) empty() bool {
	return q.head < 0
}

func (t *processTable) queueInsBack(q *procQueue, pid int) {
	p := &t.procs[pid]
	p.next, p.prev = -1, q.tail
	if q.tail >= 0 {
		t.procs[q.tail].next = pid
	} else {
		q.head = pid
	}
	q.tail = pid
}

func (t *processTable) queueInsFront(q *procQueue, pid int) {
	p := &t.procs[pid]
	p.prev, p.next = -1, q.head
	if q.head >= 0 {
		t.procs[q.head].prev = pid
	} else {
		q.tail = pid
	}
	q.head = pid
}

// queueInsBefore inserts pid immediately before at, implementing the
// priority-ordered insertion spec.md §4.4 describes for schedule()'s wake
// pass.
func (t *processTable) queueInsBefore(q *procQueue, at, pid int) {
	if at < 0 {
		t.queueInsBack(q, pid)
		return
	}
	p := &t.procs[pid]
	prev := t.procs[at].prev
	p.next, p.prev = at, prev
	t.procs[at].prev = pid
	if prev >= 0 {
		t.procs[prev].next = pid
	} else {
		q.head = pid
	}
}

func (t *processTable) queueRemove(q *procQueue, pid int) {
	p := &t.procs[pid]
	if p.prev >= 0 {
		t.procs[p.prev].next = p.next
	} else {
		q.head = p.next
	}
	if p.next >= 0 {
		t.procs[p.next].prev = p.prev
	} else {
		q.tail = p.prev
	}
	p.next, p.prev = -1, -1
}

// baseSliceTicks is the time slice, in ticks, a process with fit == 0
// receives (spec.md §4.4).
const baseSliceTicks = 10

// fitSlice derives a process's time-slice length from its fit value.
// Positive fit stretches the slice (more ticks per dispatch, coarser
// fairness, better for cooperative/bulk work); negative fit shrinks it
// (shorter dispatches, better responsiveness). The factor is linear at
// 10% per fit point above zero and 5% per fit point below zero, per
// spec.md §4.4's asymmetric fit curve.
func fitSlice(fit int) int {
	var factor float64
	if fit >= 0 {
		factor = 1 + 0.10*float64(fit)
	} else {
		factor = 1 + 0.05*float64(fit)
	}
	slice := int(factor*baseSliceTicks + 0.5)
	if slice < 1 {
		slice = 1
	}
	return slice
}

// wakeConditionLocked reports whether p's alarm and semaphore conditions
// are both satisfied right now, decrementing its semaphore (exactly once,
// from the kernel goroutine) if so. Called from the kcall suspend path to
// fast-path a wait that need not actually suspend.
func (k *Kernel) wakeConditionLocked(p *Process) bool {
	alarmReady := p.alarm == 0 || p.alarm <= k.ticks.Load()
	semReady := p.sem == nil || p.sem.Value() > 0
	if !alarmReady || !semReady {
		return false
	}
	if p.sem != nil {
		p.sem.wake()
	}
	return true
}

// findWakeable scans the wait queue for the first process whose wake
// conditions are already satisfied: its alarm has expired (or it has none)
// and, if waiting on a semaphore, the semaphore's value is positive. On a
// match the semaphore is decremented and the alarm/sem fields cleared so
// the process doesn't wake twice (spec.md §4.4, §4.7).
func (k *Kernel) findWakeable() int {
	ticks := k.ticks.Load()
	for pid := k.wait.head; pid >= 0; pid = k.table.procs[pid].next {
		p := &k.table.procs[pid]
		alarmReady := p.alarm == 0 || p.alarm <= ticks
		semReady := p.sem == nil || p.sem.Value() > 0
		if alarmReady && semReady {
			if p.sem != nil {
				p.sem.wake()
			}
			p.alarm = 0
			p.sem = nil
			return pid
		}
	}
	return -1
}

// scheduleLocked implements spec.md §4.4's scheduler pass: wake any
// eligible waiter, priority-insert it into the ready queue and signal its
// wake channel, then either keep running the current head (its slice
// isn't exhausted) or rotate it to the back and dispatch the new head. It
// returns the selected pid. Callers must hold k.table.mu; it is only ever
// called from reschedule.
func (k *Kernel) scheduleLocked() int {
	if pid := k.findWakeable(); pid >= 0 {
		k.table.queueRemove(&k.wait, pid)
		k.insertByPriorityLocked(pid)
		select {
		case k.table.procs[pid].wake <- struct{}{}:
		default:
		}
	}

	if k.ready.empty() {
		k.currentPID = 0
		return 0
	}

	head := k.ready.head
	if k.table.procs[head].timeSlice > 0 {
		k.currentPID = head
		return head
	}

	k.table.queueRemove(&k.ready, head)
	k.table.procs[head].timeSlice = fitSlice(k.table.procs[head].fit)
	k.table.queueInsBack(&k.ready, head)

	k.currentPID = k.ready.head
	return k.currentPID
}

// insertByPriorityLocked inserts pid into the ready queue ahead of the
// first entry with a strictly higher nice value (lower nice is higher
// priority), so a newly-woken low-nice process jumps ahead of higher-nice
// ones already queued, but only among entries still mid-slice
// (timeSlice > 0); an entry that has already exhausted its slice is due
// for rotation regardless of priority and is not a valid insertion point.
func (k *Kernel) insertByPriorityLocked(pid int) {
	nice := k.table.procs[pid].nice
	for at := k.ready.head; at >= 0; at = k.table.procs[at].next {
		if k.table.procs[at].timeSlice > 0 && k.table.procs[at].nice > nice {
			k.table.queueInsBefore(&k.ready, at, pid)
			return
		}
	}
	k.table.queueInsBack(&k.ready, pid)
}
