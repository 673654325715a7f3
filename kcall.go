package pkernel

import "runtime"

// kcallCmd identifies the kernel call a process is making (spec.md §4.7).
type kcallCmd int

const (
	cmdSuspend kcallCmd = iota
	cmdExit
)

// kcallRequest is sent by a process goroutine to the kernel goroutine over
// Kernel.kcallCh. mutate, if non-nil, is applied to the process's own slot
// under the kernel goroutine's exclusive ownership, before the suspend/exit
// decision is made; this is how Sleep and Wait communicate their alarm or
// semaphore target without touching process-table state themselves.
type kcallRequest struct {
	pid    int
	cmd    kcallCmd
	mutate func(*Process)
	// result reports, for cmdSuspend, whether the process actually moved
	// to the wait queue (true: the caller must block on its wake channel)
	// or was satisfied immediately and may proceed (false). Unused for
	// cmdExit.
	result chan bool
}

// kcall is the single gateway every blocking or terminating process
// operation funnels through (spec.md §4.7, §5). It hands a request to the
// kernel goroutine and waits for it to be applied, then, only if the
// process was actually suspended, blocks on its own wake channel until the
// scheduler chooses it again.
func (k *Kernel) kcall(pid int, cmd kcallCmd, mutate func(*Process)) {
	req := kcallRequest{pid: pid, cmd: cmd, mutate: mutate, result: make(chan bool, 1)}
	k.kcallCh <- req
	suspended := <-req.result

	switch cmd {
	case cmdExit:
		runtime.Goexit()
	case cmdSuspend:
		if suspended {
			<-k.table.procs[pid].wake
		}
	}
}

// handleKcall runs on the kernel goroutine: it is the only place a
// process's suspend/exit request is actually acted on, preserving the
// single-writer discipline spec.md §9 calls for around queue mutation.
func (k *Kernel) handleKcall(req kcallRequest) {
	var freeStack uint64
	var doFree, suspended bool

	k.table.mu.Lock()
	switch req.cmd {
	case cmdExit:
		freeStack, doFree = k.doExitLocked(req.pid)
	case cmdSuspend:
		p := &k.table.procs[req.pid]
		if req.mutate != nil {
			req.mutate(p)
		}
		if k.wakeConditionLocked(p) {
			p.sem, p.alarm = nil, 0
		} else {
			k.table.queueRemove(&k.ready, req.pid)
			k.table.queueInsBack(&k.wait, req.pid)
			suspended = true
		}
	}
	k.table.mu.Unlock()

	// Freeing the stack happens after releasing k.table.mu, since
	// NewProcess always acquires k.arena.mu before k.table.mu: taking them
	// in the opposite order here would invert the lock ordering.
	if doFree {
		k.arena.Free(freeStack)
	}

	req.result <- suspended
	k.reschedule()
}

// doExitLocked implements exit() (spec.md §4.7): the process leaves the
// ready queue and its slot is freed; it reports the stack base the caller
// must return to the arena (after releasing k.table.mu). Callers must hold
// k.table.mu.
func (k *Kernel) doExitLocked(pid int) (stackBase uint64, ok bool) {
	if pid == 0 {
		// the idle process never exits
		return 0, false
	}
	k.table.queueRemove(&k.ready, pid)
	p := &k.table.procs[pid]
	stackBase = p.spTip

	k.logger.Info().Int("pid", pid).Log("process exited")

	*p = Process{next: -1, prev: -1}

	return stackBase, true
}

// sleep implements Sleep (spec.md §4.7): suspend until at least ticks more
// ticks have elapsed.
func (k *Kernel) sleep(pid int, ticks uint64) {
	k.kcall(pid, cmdSuspend, func(p *Process) {
		p.alarm = k.ticks.Load() + ticks
		if ticks == 0 {
			p.alarm = 0
		}
	})
}

// wait implements Wait/Lock (spec.md §4.7): block until sem's value is
// positive, then consume one unit of it. The decrement always happens on
// the kernel goroutine (via wakeConditionLocked or findWakeable), never in
// the calling process's own goroutine, so concurrent waiters can never
// both observe and consume the same post.
func (k *Kernel) wait(pid int, sem *Semaphore) {
	k.kcall(pid, cmdSuspend, func(p *Process) {
		p.sem = sem
	})
}
