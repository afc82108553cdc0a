package mcslock

import (
	"runtime"
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

// TestOrdering checks the MCS/CLH FIFO property from a fixed arrival order:
// goroutines queue up one at a time, each confirmed enqueued before the
// next starts, and must then be granted the lock in that same order.
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
		// Give each goroutine a chance to enqueue before starting the next,
		// since FIFO order is only guaranteed among goroutines that have
		// already linked into the wait list.
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
