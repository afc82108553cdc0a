package clhlock

import (
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/kolkov/locklab/internal/lock/locktest"
)

func TestMutualExclusion(t *testing.T) {
	tests := []struct {
		name       string
		goroutines int
		iters      int
	}{
		{"S1 single thread", 1, 1_000_000},
		{"S2 two threads", 2, 100_000},
		{"S3 NCPU threads", runtime.NumCPU(), 100_000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &Lock{}
			locktest.MutualExclusion(t, l, tt.goroutines, tt.iters)
		})
	}
}

func TestHandleHygiene(t *testing.T) {
	locktest.HandleHygiene(t, &Lock{})
}

func TestNoDeadlockSingleThread(t *testing.T) {
	locktest.NoDeadlockSingleThread(t, &Lock{}, 10_000)
}

func TestConvoyRecovery(t *testing.T) {
	locktest.ConvoyRecovery(t, &Lock{}, 8, time.Second)
}

func TestOrdering(t *testing.T) {
	l := &Lock{}
	h0 := l.Acquire()

	const n = 5
	order := make(chan int, n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			h := l.Acquire()
			order <- i
			l.Release(h)
		}()
		time.Sleep(20 * time.Millisecond)
	}

	time.Sleep(20 * time.Millisecond)
	l.Release(h0)

	for i := 0; i < n; i++ {
		select {
		case got := <-order:
			if got != i {
				t.Fatalf("acquire order[%d] = %d, want %d", i, got, i)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for acquire order[%d]", i)
		}
	}
}

// TestCellPoolInvariant is scenario S6: every cell recycled through the
// free list must be owned by exactly one goroutine at a time, with none
// leaked or double-handed-out across many rounds of contention. Reusing
// the same *Lock across many rounds and checking mutual exclusion held
// throughout is the closest an external test can get to that invariant
// without instrumenting the pool directly, since a leaked or double-used
// cell would surface as a torn counter under contention.
func TestCellPoolInvariant(t *testing.T) {
	l := &Lock{}
	const goroutines = 16
	const rounds = 500

	var wg sync.WaitGroup
	wg.Add(goroutines)
	counter := 0
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				h := l.Acquire()
				counter++
				l.Release(h)
			}
		}()
	}
	wg.Wait()

	if want := goroutines * rounds; counter != want {
		t.Fatalf("counter = %d, want %d (cell pool corruption would surface as a torn count)", counter, want)
	}
}
