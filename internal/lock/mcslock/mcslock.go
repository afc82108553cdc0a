// Package mcslock implements the Mellor-Crummey & Scott queue lock: a
// predecessor-linked FIFO where each waiter spins on a flag in its own
// cache line instead of on shared state, so contention only ever touches
// the lock's single tail pointer (one atomic exchange per Acquire).
//
// Node storage comes from internal/lock/cellpool's free list rather than
// any per-goroutine cache: a node is exclusively the calling goroutine's
// from Acquire until the moment Release has signaled a successor (or
// confirmed there isn't one), and is never touched by anyone after that,
// so it goes straight back into the pool for whichever goroutine calls
// Acquire next. Grounded on ahrav-go-locks' mcs.go and lrita-spinlock's
// spinlock.go for the exchange/link/spin shape of Acquire and Release.
package mcslock

import (
	"sync/atomic"

	"github.com/kolkov/locklab/internal/lock/assert"
	"github.com/kolkov/locklab/internal/lock/cellpool"
	"github.com/kolkov/locklab/internal/lock/pause"
)

// node is one goroutine's queue cell. next and locked are each written by
// at most one other goroutine at a time (a successor writes next, a
// predecessor writes locked), but both are read by the owning goroutine's
// spin loop, so the struct is padded to a cache line to keep those writes
// from bouncing the line a neighboring node's fields live on.
type node struct {
	next    atomic.Pointer[node]
	locked  atomic.Bool
	_       [64 - 8 - 4]byte // pad to a cache line alongside next/locked
}

// Handle is the per-acquisition token MCS hands back: a pointer to the
// calling goroutine's own node, valid until the paired Release.
type Handle struct {
	n *node
}

// Lock is an MCS lock. The zero value is unlocked.
type Lock struct {
	tail  atomic.Pointer[node]
	nodes cellpool.Pool[node]
}

// Acquire enqueues the calling goroutine at the tail of the wait list and
// blocks until it becomes the head.
func (l *Lock) Acquire() Handle {
	n := l.nodes.Get(func() *node { return &node{} })
	n.next.Store(nil)
	n.locked.Store(true)

	prev := l.tail.Swap(n)
	if prev == nil {
		// No predecessor: the lock was free, enter immediately.
		return Handle{n: n}
	}

	prev.next.Store(n)
	for n.locked.Load() {
		pause.Once()
	}
	return Handle{n: n}
}

// Release hands the lock to the calling goroutine's successor, or frees it
// if none has linked in yet, then returns the now-unreachable node to the
// free list.
func (l *Lock) Release(h Handle) {
	n := h.n
	assert.Check(n != nil, "mcslock: Release called with a zero Handle")

	succ := n.next.Load()
	if succ == nil {
		if l.tail.CompareAndSwap(n, nil) {
			l.nodes.Put(n)
			return
		}
		// A successor is mid-enqueue: it already swapped itself into tail
		// but hasn't yet published n.next. Spin for that narrow window.
		for {
			succ = n.next.Load()
			if succ != nil {
				break
			}
			pause.Once()
		}
	}
	succ.locked.Store(false)
	l.nodes.Put(n)
}
