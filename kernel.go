package pkernel

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeycumines/logiface"
)

// idleStackBytes is the stack reserved for the always-present idle
// process, slot 0 (spec.md §4.2).
const idleStackBytes = 256

// Kernel is a booted pkernel instance: one arena, one process table, one
// scheduler, one tick handler, one cron/service registry, all driven by a
// single kernel goroutine (spec.md §3, §9).
type Kernel struct {
	arena *Arena
	table *processTable

	ready, wait procQueue
	currentPID  int

	ticks      atomic.Uint64
	nowSeconds atomic.Int64

	cfg    *bootConfig
	state  *FastState
	logger *logiface.Logger[logiface.Event]

	services *serviceList
	cron     *cronList

	kcallCh   chan kcallRequest
	newProcCh chan int

	stopCh chan struct{}
	doneCh chan struct{}
	wg     sync.WaitGroup
}

func idleBody(p *Proc) {
	// The idle process never does anything and never exits; it exists so
	// the ready queue is never empty and the scheduler always has
	// something to dispatch (spec.md §4.2, §4.4).
	select {}
}

// Boot constructs a Kernel: it reserves the kernel's own stack and the
// idle process's stack out of a freshly created arena, populates slot 0
// with the idle process, and applies opts over the documented defaults
// (spec.md §4.2, §7). It does not start the kernel goroutine; call Run for
// that.
func Boot(kernelStackBytes uint64, cpuHz, tickHz int, opts ...BootOption) (*Kernel, error) {
	if cpuHz <= 0 || tickHz <= 0 || tickHz > cpuHz {
		return nil, WrapError("Boot", ErrInvalidArgument)
	}

	cfg, err := resolveBootOptions(kernelStackBytes, cpuHz, tickHz, opts)
	if err != nil {
		return nil, err
	}

	arena := newArena(0, cfg.arenaBytes, cfg.allocTableSize, wordSize)

	if _, ok := arena.Alloc(alignUp(kernelStackBytes, wordSize), KindStack); !ok {
		return nil, &AllocError{Cause: ErrOutOfMemory, Size: kernelStackBytes, Kind: KindStack}
	}

	idleBase, ok := arena.Alloc(idleStackBytes, KindStack)
	if !ok {
		return nil, &AllocError{Cause: ErrOutOfMemory, Size: idleStackBytes, Kind: KindStack}
	}

	table := newProcessTable(cfg.processSlots)
	table.procs[0] = Process{
		pid:        0,
		fn:         idleBody,
		inUse:      true,
		privileged: true,
		nice:       0,
		fit:        0,
		timeSlice:  fitSlice(0),
		spTip:      idleBase,
		sp:         idleBase + idleStackBytes - contextWindowBytes,
		stackSize:  idleStackBytes,
		frame:      fabricateStartupFrame(idleBody),
		next:       -1,
		prev:       -1,
		wake:       make(chan struct{}, 1),
	}

	k := &Kernel{
		arena:      arena,
		table:      table,
		ready:      newProcQueue(),
		wait:       newProcQueue(),
		currentPID: 0,
		cfg:        cfg,
		state:      NewFastState(),
		logger:     cfg.logger,
		services:   &serviceList{},
		cron:       &cronList{},
		// kcallCh is unbuffered. newProcCh is buffered so a creator
		// (NewProcess, or cron's spawn path) never blocks handing off a new
		// pid while still holding k.table.mu: the kernel goroutine picks it
		// up once that lock is free.
		kcallCh:   make(chan kcallRequest),
		newProcCh: make(chan int, cfg.processSlots),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
	k.table.queueInsBack(&k.ready, 0)

	k.logger.Info().Int("cpu_hz", cpuHz).Int("tick_hz", tickHz).Log("kernel booted")

	return k, nil
}

// newTicker creates the tick source Run drives the kernel with. It is a
// package variable so the tick source can be replaced; the package's own
// tests do not replace it and run at real 1/tickHz tick timing.
var newTicker = time.NewTicker

// Run starts the kernel goroutine and the tick driver, then blocks until
// Shutdown is called. There is no context parameter: the kernel has no
// notion of cancellation beyond Shutdown (spec.md §6).
func (k *Kernel) Run() error {
	if !k.state.TryTransition(StateBooted, StateRunning) {
		return WrapError("Run", ErrNotBooted)
	}

	interval := time.Second / time.Duration(k.cfg.tickHz)
	ticker := newTicker(interval)
	defer ticker.Stop()

	go k.loop(ticker.C)

	<-k.doneCh
	return nil
}

// loop is the single kernel goroutine: every mutation of the ready/wait
// queues and of process-table bookkeeping tied to scheduling happens here,
// which is the Go-idiomatic stand-in for the interrupt masking a real port
// would use to make the same operations atomic (spec.md §9).
func (k *Kernel) loop(tickC <-chan time.Time) {
	defer close(k.doneCh)
	for {
		select {
		case <-k.stopCh:
			k.state.TryTransition(StateShuttingDown, StateTerminated)
			return
		case <-tickC:
			k.tick()
		case req := <-k.kcallCh:
			k.handleKcall(req)
		case pid := <-k.newProcCh:
			k.table.mu.Lock()
			k.table.queueInsBack(&k.ready, pid)
			k.table.mu.Unlock()
			k.reschedule()
		}
	}
}

// reschedule re-runs the scheduler pass and records the result as
// k.currentPID. It must only be called from the kernel goroutine.
func (k *Kernel) reschedule() {
	k.table.mu.Lock()
	k.scheduleLocked()
	k.table.mu.Unlock()
}

// Shutdown stops the kernel goroutine (spec.md §6). Process bodies
// currently suspended in a kcall are left parked: with no kernel goroutine
// left to wake them, they never observe the shutdown, the same way a real
// target's processes simply stop being dispatched once the tick source is
// disabled. Only a kernel with no suspended processes can be fully
// reclaimed by the garbage collector after Shutdown returns.
func (k *Kernel) Shutdown() {
	if k.state.TryTransition(StateRunning, StateShuttingDown) {
		close(k.stopCh)
		<-k.doneCh
	}
}

// State reports the kernel's current lifecycle state.
func (k *Kernel) State() KernelState {
	return k.state.Load()
}
