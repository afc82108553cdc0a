package bench

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/kolkov/locklab/internal/lock/clhlock"
	"github.com/kolkov/locklab/internal/lock/hapax"
	"github.com/kolkov/locklab/internal/lock/locker"
	"github.com/kolkov/locklab/internal/lock/mcslock"
	"github.com/kolkov/locklab/internal/lock/mutexlock"
	"github.com/kolkov/locklab/internal/lock/reciprocating"
	"github.com/kolkov/locklab/internal/lock/twalock"
)

// Report is everything cmd/locklab prints for one run: the output table
// from spec.md §6 plus the cpu_* diagnostics from sysinfo.go.
type Report struct {
	Config Config
	Sys    SysInfo

	TotalOperations        uint64
	ProtectedCounter       uint64
	ElapsedSeconds         float64
	ThroughputOpsPerSec    float64
	AvgLockHoldNs          float64
	AvgUnlockToNextLockW0  float64
	AvgUnlockToNextLockGt0 float64
	AvgWaitersBeforeLock   float64

	// WarmupElapsedSeconds is the wall-clock time from just before the
	// first goroutine was spawned to when every goroutine finished warm-up
	// and reached the measurement barrier. It normally tracks
	// cfg.WarmupDurationMs closely; a large overrun is the property-9
	// convoy-recovery symptom cmd/locklab's logging.ConvoyWarning reports.
	WarmupElapsedSeconds float64
}

// Run dispatches to the lock implementation named by cfg.LockKind and
// executes the full warm-up/measurement benchmark against it.
//
// Grounded on the original locks_bench harness's DispatchByLockKind, which
// switches on a LockKind enum to select which template instantiation of a
// generic benchmark driver to run; Go generics play the same role here,
// with the switch selecting a type argument for run instead of a template
// parameter.
func Run(cfg Config) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sys := DetectSysInfo()

	var rep *Report
	switch cfg.LockKind {
	case LockKindMutex:
		rep = run(cfg, &mutexlock.Lock{})
	case LockKindReciprocating:
		rep = run(cfg, &reciprocating.Lock{})
	case LockKindHapax:
		rep = run(cfg, &hapax.Lock{})
	case LockKindMCS:
		rep = run(cfg, &mcslock.Lock{})
	case LockKindTWA:
		rep = run(cfg, &twalock.Lock{})
	case LockKindCLH:
		rep = run(cfg, &clhlock.Lock{})
	default:
		panic("unreachable: cfg.Validate accepted an unknown lock kind")
	}

	rep.Config = cfg
	rep.Sys = sys
	return rep, nil
}

// workerResult is one goroutine's contribution to the run's aggregate
// statistics, folded into the shared totals after it finishes rather than
// through per-iteration atomic adds — the same local-then-fold-at-join
// structure mutex_bench.cpp uses for its own per-thread counters.
type workerResult struct {
	ops         uint64
	lockHold    uint64 // ticks
	holdSamples uint64
	w0Ticks     uint64
	w0Samples   uint64
	gt0Ticks    uint64
	gt0Samples  uint64
	waitersSum  uint64
	waitersN    uint64
}

// run executes the warm-up phase, the measurement phase, and reduces every
// worker's results into a Report. H is the lock kind's handle type,
// inferred from l.
func run[H any](cfg Config, l locker.Locker[H]) *Report {
	var protectedCounter uint64
	var sink atomic.Uint64 // keeps BurnIters from being optimized away

	var warmupDone atomic.Int32
	var measureStart atomic.Bool
	var measureDeadline time.Time // published by the Store below

	// inFlight counts sampled iterations currently between having decided
	// to acquire the lock and having acquired it (unsampled iterations do
	// not touch it, so with a stride above 1 it undercounts the goroutines
	// actually waiting); a sampled worker reads its
	// value (minus its own increment) as avg_waiters_before_lock's
	// per-call sample and as the w0/w_gt0 classifier.
	var inFlight atomic.Int64

	results := make([]workerResult, cfg.Threads)
	warmupWallStart := time.Now()

	var wg sync.WaitGroup
	wg.Add(cfg.Threads)
	for t := 0; t < cfg.Threads; t++ {
		res := &results[t]
		go func() {
			defer wg.Done()

			warmupDeadline := time.Now().Add(time.Duration(cfg.WarmupDurationMs) * time.Millisecond)
			for time.Now().Before(warmupDeadline) {
				h := l.Acquire()
				sink.Add(BurnIters(cfg.CriticalIters))
				l.Release(h)
				sink.Add(BurnIters(cfg.OutsideIters))
			}

			warmupDone.Add(1)
			for !measureStart.Load() {
			}

			var lastReleaseTick uint64
			hasLastRelease := false
			var i uint64

			for time.Now().Before(measureDeadline) {
				sample := i%cfg.TimingSampleStride == 0
				i++

				var waitersBefore int64
				var tAfterLock uint64
				if sample {
					waitersBefore = inFlight.Add(1) - 1
				}

				h := l.Acquire()

				if sample {
					tAfterLock = tick()
					inFlight.Add(-1)
				}

				protectedCounter++
				sink.Add(BurnIters(cfg.CriticalIters))

				var tBeforeUnlock uint64
				if sample {
					tBeforeUnlock = tick()
					res.lockHold += tBeforeUnlock - tAfterLock
					res.holdSamples++
				}

				l.Release(h)

				if sample {
					if hasLastRelease {
						delta := tAfterLock - lastReleaseTick
						if waitersBefore == 0 {
							res.w0Ticks += delta
							res.w0Samples++
						} else {
							res.gt0Ticks += delta
							res.gt0Samples++
						}
					}
					lastReleaseTick = tBeforeUnlock
					hasLastRelease = true

					res.waitersSum += uint64(waitersBefore)
					res.waitersN++
				}

				sink.Add(BurnIters(cfg.OutsideIters))
				res.ops++
			}
		}()
	}

	for int(warmupDone.Load()) < cfg.Threads {
	}
	warmupElapsed := time.Since(warmupWallStart)

	clock := NewClock()
	measureStartWall := time.Now()
	measureDeadline = measureStartWall.Add(time.Duration(cfg.DurationMs) * time.Millisecond)
	measureStart.Store(true)

	wg.Wait()
	clock.Calibrate()
	elapsed := time.Since(measureStartWall)

	var totalOps, lockHold, holdSamples, w0Ticks, w0Samples, gt0Ticks, gt0Samples, waitersSum, waitersN uint64
	for _, res := range results {
		totalOps += res.ops
		lockHold += res.lockHold
		holdSamples += res.holdSamples
		w0Ticks += res.w0Ticks
		w0Samples += res.w0Samples
		gt0Ticks += res.gt0Ticks
		gt0Samples += res.gt0Samples
		waitersSum += res.waitersSum
		waitersN += res.waitersN
	}

	avg := func(ticks, n uint64) float64 {
		if n == 0 {
			return 0
		}
		return clock.AvgNanos(ticks, n)
	}

	rep := &Report{
		TotalOperations:        totalOps,
		ProtectedCounter:       protectedCounter,
		ElapsedSeconds:         elapsed.Seconds(),
		AvgLockHoldNs:          avg(lockHold, holdSamples),
		AvgUnlockToNextLockW0:  avg(w0Ticks, w0Samples),
		AvgUnlockToNextLockGt0: avg(gt0Ticks, gt0Samples),
		WarmupElapsedSeconds:   warmupElapsed.Seconds(),
	}
	if elapsed.Seconds() > 0 {
		rep.ThroughputOpsPerSec = float64(totalOps) / elapsed.Seconds()
	}
	if waitersN > 0 {
		rep.AvgWaitersBeforeLock = float64(waitersSum) / float64(waitersN)
	}
	return rep
}
