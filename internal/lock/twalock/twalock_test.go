package twalock

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

// TestTicketOrdering is property 4: tickets are drawn in a single global
// order, so goroutines confirmed to have drawn their ticket before the next
// one starts must be granted the lock in that same order.
func TestTicketOrdering(t *testing.T) {
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

// TestGrantMonotonicity is scenario S5: an external sampler polling grant
// while many goroutines contend must never observe it decrease, and it
// must never exceed the number of tickets drawn so far.
func TestGrantMonotonicity(t *testing.T) {
	l := &Lock{}
	const goroutines = 8
	const itersPerGoroutine = 20_000

	stop := make(chan struct{})
	violations := make(chan string, 1)

	go func() {
		var lastGrant uint64
		for {
			select {
			case <-stop:
				return
			default:
			}
			grant := l.grant.Load()
			nextTicket := l.nextTicket.Load()
			if grant < lastGrant {
				select {
				case violations <- "grant decreased":
				default:
				}
				return
			}
			if grant > nextTicket {
				select {
				case violations <- "grant exceeded next_ticket":
				default:
				}
				return
			}
			lastGrant = grant
		}
	}()

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < itersPerGoroutine; j++ {
				h := l.Acquire()
				l.Release(h)
			}
		}()
	}
	wg.Wait()
	close(stop)

	select {
	case msg := <-violations:
		t.Fatal(msg)
	default:
	}
}
