// Package pkernel is a preemptive multitasking microkernel simulation for a
// single-core 32-bit target, reworked as a Go library: one process table, one
// best-fit memory allocator, one priority-aware round-robin scheduler, and a
// tick-driven timer layer with periodic services and wall-clock cron jobs.
//
// # Architecture
//
// A [Kernel] is constructed with [Boot] and started with [Run]. Internally a
// single kernel goroutine owns every mutation of the ready and wait queues
// and the scheduling-relevant fields of the process table; this is the
// Go-idiomatic stand-in for the interrupt masking a real target would use to
// make the same operations atomic. Process bodies ([Kernel.NewProcess]) run
// as ordinary goroutines, communicating with the kernel goroutine only
// through [Proc]'s methods. Sleep, Wait, Lock and Exit funnel through a
// single kernel-call gateway; Post and Unlock change the semaphore's value
// directly, and the kernel goroutine observes the change on its next
// scheduler pass.
//
// # Memory
//
// [Arena] is the single best-fit allocator serving both process stacks and
// heap blocks out of one contiguous address range: heap blocks are placed at
// the bottom of the chosen gap, stacks at the top, so that downward-growing
// stacks and upward-growing heap blocks never collide.
//
// # Scheduling
//
// The scheduler is priority-aware round robin: a process's nice value
// determines where it is inserted into the ready queue when woken, and its
// fit value determines the length of its time slice. Waiters on the wait
// queue are woken by an alarm tick or a semaphore post, whichever condition
// they were suspended on.
//
// # Timers
//
// Services ([Kernel.ServiceAdd]) run every N ticks directly on the kernel
// goroutine, with no process or stack of their own. Cron jobs
// ([Kernel.CronAdd]) are anchored at a wall-clock time and a period; once
// per second the kernel checks whether the anchor has elapsed and the
// elapsed time is a multiple of the period, and on a match spawns a full
// process the same way [Kernel.NewProcess] would, skipping the spawn if an
// instance is already running.
//
// # Usage
//
//	k, err := pkernel.Boot(1024, 48_000_000, 1000,
//	    pkernel.WithArena(64*1024, 32),
//	    pkernel.WithProcessSlots(16),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	pid, err := k.NewProcess(func(p *pkernel.Proc) {
//	    for {
//	        p.Sleep(1000)
//	    }
//	}, 512, 0, 0, false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	go func() {
//	    time.Sleep(time.Second)
//	    k.Shutdown()
//	}()
//	_ = k.Run()
//
// # Error Types
//
// [AllocError] and [ProcessError] wrap sentinel causes ([ErrOutOfMemory],
// [ErrOutOfSlots], [ErrInvalidArgument]) and support [errors.Is] and
// [errors.As] via Unwrap. Other failures ([ErrInvalidArgument] from Boot,
// its options, ServiceAdd and CronAdd, and [ErrNotBooted] from Run) are
// wrapped with [WrapError], which also preserves the sentinel for
// [errors.Is].
package pkernel
