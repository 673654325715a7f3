package pkernel

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronEntry_MatchesNotBeforeAnchor(t *testing.T) {
	e := &cronEntry{at: time.Unix(100, 0), every: time.Second}
	assert.False(t, e.matches(time.Unix(99, 0)))
	assert.True(t, e.matches(time.Unix(100, 0)))
}

func TestCronEntry_MatchesArbitraryPhaseOffset(t *testing.T) {
	// Anchor at an instant with no relation to an epoch-aligned boundary,
	// firing every 10s: this must fire at anchor+10, anchor+20, ... even
	// though the anchor itself isn't a multiple of 10 since the epoch.
	anchor := time.Unix(1_000_000_003, 0)
	e := &cronEntry{at: anchor, every: 10 * time.Second}

	assert.True(t, e.matches(anchor))
	assert.True(t, e.matches(anchor.Add(10*time.Second)))
	assert.True(t, e.matches(anchor.Add(20*time.Second)))
	assert.False(t, e.matches(anchor.Add(5*time.Second)))
	assert.False(t, e.matches(anchor.Add(15*time.Second)))
}

func TestCronEntry_SubSecondPeriodFloorsToOneSecond(t *testing.T) {
	e := &cronEntry{at: time.Unix(0, 0), every: 100 * time.Millisecond}
	assert.True(t, e.matches(time.Unix(1, 0)))
	assert.True(t, e.matches(time.Unix(2, 0)))
}

func TestCronList_AddRemoveByIdentity(t *testing.T) {
	c := &cronList{}
	fnA := func(p *Proc) {}
	fnB := func(p *Proc) {}

	c.add(cronEntry{fn: fnA, every: time.Second})
	c.add(cronEntry{fn: fnB, every: time.Second})

	assert.True(t, c.remove(fnA))
	require.Len(t, c.entries, 1)
	assert.False(t, c.remove(fnA)) // already gone
}

func TestKernel_CronAddSpawnsOnMatch(t *testing.T) {
	k := runTestKernel(t)

	var runs atomic.Int64
	fn := func(p *Proc) {
		runs.Add(1)
	}

	// Anchored at "now plus a few seconds", firing every second. The
	// kernel's clock rolls forward once per tickHz ticks and the ticker
	// fires every 1/tickHz seconds, so kernel seconds pass at real-time
	// speed: the first firing comes about 3 real seconds after CronAdd.
	require.NoError(t, k.CronAdd(fn, 512, 0, 0, false, k.Time().Add(3*time.Second), time.Second))

	assert.Eventually(t, func() bool {
		return runs.Load() >= 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestKernel_CronAddPrivilegedPropagatesToProcess(t *testing.T) {
	k := runTestKernel(t)

	privileged := make(chan bool, 1)
	fn := func(p *Proc) {
		privileged <- p.Privileged()
	}

	require.NoError(t, k.CronAdd(fn, 512, 0, 0, true, k.Time(), time.Second))

	select {
	case got := <-privileged:
		assert.True(t, got)
	case <-time.After(2 * time.Second):
		t.Fatal("cron job did not run")
	}
}

func TestKernel_CronDoesNotDoubleSpawnWhileRunning(t *testing.T) {
	k := runTestKernel(t)

	release := make(chan struct{})
	var starts atomic.Int64
	fn := func(p *Proc) {
		starts.Add(1)
		<-release
	}

	require.NoError(t, k.CronAdd(fn, 512, 0, 0, false, k.Time(), time.Second))

	assert.Eventually(t, func() bool {
		return starts.Load() >= 1
	}, 2*time.Second, 10*time.Millisecond)

	// Hold for two more potential firing windows (one per kernel second,
	// which passes at real-time speed); since an instance is still live, no
	// second one should spawn.
	time.Sleep(2500 * time.Millisecond)
	assert.EqualValues(t, 1, starts.Load())

	close(release)
}

func TestKernel_CronRemove(t *testing.T) {
	k := runTestKernel(t)
	fn := func(p *Proc) {}
	require.NoError(t, k.CronAdd(fn, 512, 0, 0, false, k.Time(), time.Second))
	assert.True(t, k.CronRemove(fn))
	assert.False(t, k.CronRemove(fn))
}

func TestKernel_CronAddRejectsInvalidArgs(t *testing.T) {
	k := newTestKernel(t)
	now := k.Time()

	err := k.CronAdd(nil, 512, 0, 0, false, now, time.Second)
	assert.Error(t, err)

	err = k.CronAdd(func(p *Proc) {}, 512, 0, 0, false, now, 0)
	assert.Error(t, err)

	err = k.CronAdd(func(p *Proc) {}, 512, 99, 0, false, now, time.Second)
	assert.Error(t, err)
}
