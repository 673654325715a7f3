package pkernel

import (
	"reflect"
	"sync"
)

const (
	// wordSize is the machine word size of the target (32-bit ARM
	// Cortex-M): allocations round up to this boundary.
	wordSize = 4

	// contextWindowBytes reserves space below the fabricated hardware
	// exception frame for the software-saved non-volatile register
	// window the context manager explicitly pushes and pops.
	contextWindowBytes = 8 * wordSize

	// thumbXPSR is the legal "thumb mode" status-register value for a
	// freshly fabricated ARMv7-M exception frame.
	thumbXPSR = 0x21000000
)

// startupFrame records the hardware exception frame a real port would
// fabricate at the top of a new process's stack (spec.md §4.2). Register
// save/restore opcodes are out of scope (spec.md §1); this is a data-only
// stand-in kept for inspection and testing of the fabrication contract,
// not something the runtime interprets to resume execution, since process
// bodies run as ordinary goroutines.
type startupFrame struct {
	pc   uintptr // address of the process entry point
	lr   uintptr // address of Proc.Exit, so a plain return becomes exit
	xpsr uint32
}

func fabricateStartupFrame(fn func(*Proc)) startupFrame {
	return startupFrame{
		pc:   reflect.ValueOf(fn).Pointer(),
		lr:   reflect.ValueOf((*Proc).Exit).Pointer(),
		xpsr: thumbXPSR,
	}
}

// Process is one process-table slot (spec.md §3's "process record").
// Queue membership is expressed as array indices into the owning
// processTable rather than raw pointers, per spec.md §9's design note.
type Process struct {
	pid        int
	fn         func(*Proc)
	inUse      bool
	privileged bool

	timeSlice int
	nice      int
	fit       int

	alarm uint64
	sem   *Semaphore

	spTip     uint64
	sp        uint64
	stackSize uint64
	frame     startupFrame

	next, prev int // -1 means "no link"; queue membership only, not in_use

	wake chan struct{}
}

// processTable is the fixed-size array of process slots. Slot 0 is always
// the idle process (spec.md §4.2).
type processTable struct {
	mu    sync.Mutex
	procs []Process
}

func newProcessTable(n int) *processTable {
	if n < 1 {
		n = 1
	}
	procs := make([]Process, n)
	for i := range procs {
		procs[i].next, procs[i].prev = -1, -1
	}
	return &processTable{procs: procs}
}

// TryLock exposes the process table's lock state to cron's contention
// probe, mirroring Arena.TryLock.
func (t *processTable) TryLock() bool { return t.mu.TryLock() }

// Unlock releases a lock taken via TryLock.
func (t *processTable) Unlock() { t.mu.Unlock() }

// findFreeLocked scans for the first unused slot, skipping slot 0 (idle).
func (t *processTable) findFreeLocked() int {
	for i := 1; i < len(t.procs); i++ {
		if !t.procs[i].inUse {
			return i
		}
	}
	return -1
}

// findByEntryLocked returns the pid of the live process whose entry point
// is fn, or -1. Go func values aren't comparable, so identity is compared
// by code pointer, matching the original C kernel's function-pointer
// comparison (src/cron.c's proc_search_pid).
func (t *processTable) findByEntryLocked(fn func(*Proc)) int {
	target := reflect.ValueOf(fn).Pointer()
	for i := range t.procs {
		if t.procs[i].inUse && reflect.ValueOf(t.procs[i].fn).Pointer() == target {
			return i
		}
	}
	return -1
}

// Proc is the handle a process body uses to call into the kernel. User
// process functions receive one of these instead of relying on an
// implicit "current process" (there is no CPU register to hold it).
type Proc struct {
	k   *Kernel
	pid int
}

// PID returns the process's identifier.
func (p *Proc) PID() int { return p.pid }

// Privileged reports whether the calling process was created with the
// privileged flag set (spec.md §3's process record). The idle process and
// any process started with the privileged flag report true.
func (p *Proc) Privileged() bool {
	p.k.table.mu.Lock()
	defer p.k.table.mu.Unlock()
	return p.k.table.procs[p.pid].privileged
}

// Sleep suspends the calling process until at least ticks more ticks
// elapse (spec.md §4.7).
func (p *Proc) Sleep(ticks uint64) {
	p.k.sleep(p.pid, ticks)
}

// Wait blocks until sem's value is positive, then decrements it.
func (p *Proc) Wait(sem *Semaphore) {
	p.k.wait(p.pid, sem)
}

// Post increments sem's value, potentially waking a waiter.
func (p *Proc) Post(sem *Semaphore) {
	sem.post()
}

// Lock is Wait applied to a binary semaphore.
func (p *Proc) Lock(mutex *Semaphore) {
	p.k.wait(p.pid, mutex)
}

// Unlock resets mutex to the unlocked (1) state.
func (p *Proc) Unlock(mutex *Semaphore) {
	mutex.unlock()
}

// Exit terminates the calling process. It never returns.
func (p *Proc) Exit() {
	p.k.exit(p.pid)
}

// createProcessLocked implements new_process (spec.md §4.2). Callers must
// already hold both k.arena's and k.table's locks (NewProcess acquires
// them; cron's spawn path acquires them via TryLock for its contention
// probe).
func (k *Kernel) createProcessLocked(fn func(*Proc), stackBytes uint64, nice, fit int, privileged bool) (int, error) {
	if fn == nil || nice < -10 || nice > 10 || fit < -10 || fit > 10 {
		return -1, &ProcessError{Cause: ErrInvalidArgument, Nice: nice, Fit: fit}
	}

	alignedSize := alignUp(stackBytes, wordSize)
	base, ok := k.arena.allocLocked(alignedSize, KindStack)
	if !ok {
		return -1, &ProcessError{Cause: ErrOutOfMemory, Nice: nice, Fit: fit}
	}

	pid := k.table.findFreeLocked()
	if pid < 0 {
		k.arena.freeLocked(base)
		return -1, &ProcessError{Cause: ErrOutOfSlots, Nice: nice, Fit: fit}
	}

	p := &k.table.procs[pid]
	*p = Process{
		pid:        pid,
		fn:         fn,
		inUse:      true,
		privileged: privileged,
		nice:       nice,
		fit:        fit,
		timeSlice:  fitSlice(fit),
		spTip:      base,
		sp:         base + alignedSize - contextWindowBytes,
		stackSize:  alignedSize,
		frame:      fabricateStartupFrame(fn),
		next:       -1,
		prev:       -1,
		wake:       make(chan struct{}, 1),
	}

	k.newProcCh <- pid
	k.wg.Add(1)
	go k.runProcess(pid)

	return pid, nil
}

// NewProcess allocates a stack, claims a process slot, and starts fn
// running as a new process. privileged marks the process's process-table
// record accordingly (spec.md §3); it returns -1 on failure (spec.md §4.2,
// §7).
func (k *Kernel) NewProcess(fn func(*Proc), stackBytes uint64, nice, fit int, privileged bool) (int, error) {
	k.arena.mu.Lock()
	k.table.mu.Lock()
	pid, err := k.createProcessLocked(fn, stackBytes, nice, fit, privileged)
	k.table.mu.Unlock()
	k.arena.mu.Unlock()
	if err != nil {
		k.logger.Err().Err(err).Log("new_process failed")
	} else {
		k.logger.Info().Int("pid", pid).Int("nice", nice).Int("fit", fit).Bool("privileged", privileged).Log("process created")
	}
	return pid, err
}

func (k *Kernel) runProcess(pid int) {
	defer k.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			k.logger.Crit().Int("pid", pid).Log("process panicked")
		}
	}()

	k.table.mu.Lock()
	fn := k.table.procs[pid].fn
	k.table.mu.Unlock()

	proc := &Proc{k: k, pid: pid}
	fn(proc)
	proc.Exit()
}

func (k *Kernel) exit(pid int) {
	k.kcall(pid, cmdExit, nil)
}
