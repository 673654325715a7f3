package pkernel

import (
	"reflect"
	"sync"
	"time"
)

// serviceEntry is one registered periodic service (spec.md §4.5): a
// function run every period ticks, from the kernel goroutine, fire-and-
// forget (it does not get its own process or stack).
type serviceEntry struct {
	fn     func()
	period uint64
	next   uint64
}

// serviceList is the registry the tick handler walks every tick. A
// TryRLock-based walk lets Tick skip the pass entirely, rather than block,
// when ServiceAdd/ServiceRemove is concurrently mutating the list (spec.md
// §4.5 "if service lock is set, skip the walk").
type serviceList struct {
	mu      sync.RWMutex
	entries []serviceEntry
}

func (s *serviceList) add(fn func(), period uint64, startTick uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, serviceEntry{fn: fn, period: period, next: startTick + period})
}

func (s *serviceList) remove(fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	target := reflect.ValueOf(fn).Pointer()
	for i, e := range s.entries {
		if reflect.ValueOf(e.fn).Pointer() == target {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return true
		}
	}
	return false
}

// walk runs due entries and reschedules them, skipping the pass entirely
// if the registry is locked for mutation.
func (s *serviceList) walk(ticks uint64) {
	if !s.mu.TryRLock() {
		return
	}
	defer s.mu.RUnlock()
	for i := range s.entries {
		e := &s.entries[i]
		if e.next <= ticks {
			e.next = ticks + e.period
			e.fn()
		}
	}
}

// Ticks returns the number of timer ticks the kernel has processed since
// boot.
func (k *Kernel) Ticks() uint64 {
	return k.ticks.Load()
}

// Now returns the kernel's internal notion of wall-clock time, advanced
// purely by tick counting at cfg.tickHz (spec.md §4.5, §6), and set by
// SetTime when no RTC hook is installed. It never reflects WithRTC's
// external hook; use Time for that.
func (k *Kernel) Now() time.Time {
	return time.Unix(k.nowSeconds.Load(), 0).UTC()
}

// Time returns the kernel's current time: the external RTC hook's value if
// WithRTC was supplied at Boot, otherwise Now (spec.md §6).
func (k *Kernel) Time() time.Time {
	if k.cfg.getTime != nil {
		return k.cfg.getTime()
	}
	return k.Now()
}

// SetTime sets the kernel's current time via the external RTC hook, if
// WithRTC was supplied. Otherwise it sets the internal Now to t, truncated
// to whole seconds (spec.md §6).
func (k *Kernel) SetTime(t time.Time) {
	if k.cfg.setTime != nil {
		k.cfg.setTime(t)
		return
	}
	k.nowSeconds.Store(t.Unix())
}

// tick implements the tick handler (spec.md §4.5): advance the tick
// counter, walk services, roll Now and evaluate cron once per tickHz
// ticks (re-running cron if it set stretch last time), charge the running
// process one tick of its slice, then reschedule. It runs entirely on the
// kernel goroutine.
func (k *Kernel) tick() {
	ticks := k.ticks.Add(1)

	k.services.walk(ticks)

	if k.cfg.tickHz > 0 && ticks%uint64(k.cfg.tickHz) == 0 {
		k.nowSeconds.Add(1)
		k.runCron()
	} else if k.cron.stretching() {
		k.runCron()
	}

	if cur := k.currentPID; cur >= 0 {
		k.table.mu.Lock()
		if k.table.procs[cur].timeSlice > 0 {
			k.table.procs[cur].timeSlice--
		}
		k.table.mu.Unlock()
	}

	k.reschedule()
}
