package reciprocating

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

// TestLIFOWithinSegment is scenario/property 6: if holder H releases and
// waiters X then Y arrived during H's tenure, in that order, Y must
// acquire before X.
func TestLIFOWithinSegment(t *testing.T) {
	l := &Lock{}
	h0 := l.Acquire()

	order := make(chan string, 2)
	xArrived := make(chan struct{})
	yArrived := make(chan struct{})

	go func() {
		close(xArrived)
		h := l.Acquire()
		order <- "X"
		time.Sleep(10 * time.Millisecond) // widen X's critical section
		l.Release(h)
	}()
	<-xArrived
	time.Sleep(30 * time.Millisecond) // let X link into the arrival stack

	go func() {
		close(yArrived)
		h := l.Acquire()
		order <- "Y"
		l.Release(h)
	}()
	<-yArrived
	time.Sleep(30 * time.Millisecond) // let Y link into the arrival stack

	l.Release(h0)

	first := waitOrder(t, order)
	second := waitOrder(t, order)

	if first != "Y" || second != "X" {
		t.Fatalf("acquire order = %s, %s; want Y, X", first, second)
	}
}

func waitOrder(t *testing.T, order chan string) string {
	t.Helper()
	select {
	case v := <-order:
		return v
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for acquire order")
		return ""
	}
}
