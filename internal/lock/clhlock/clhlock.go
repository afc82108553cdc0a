// Package clhlock implements the Craig, Landin & Hwang queue lock: like
// MCS, a FIFO built on a single tail pointer, but each waiter spins on its
// predecessor's cell instead of its own.
//
// A goroutine's cell comes from internal/lock/cellpool's free list, not any
// per-goroutine cache: once a goroutine has spun its predecessor's locked
// flag down to false, that predecessor cell is done forever (no other
// goroutine retains a pointer to it — tail has already moved past it), so
// it goes straight back into the pool rather than being kept around for
// this goroutine's own next Acquire the way the C++ original's thread_local
// Node* rebinding does. Go's free list achieves the same O(goroutines) cell
// bound as that rebinding without needing any notion of "this goroutine's
// current cell" to carry across calls.
package clhlock

import (
	"sync/atomic"

	"github.com/kolkov/locklab/internal/lock/assert"
	"github.com/kolkov/locklab/internal/lock/cellpool"
	"github.com/kolkov/locklab/internal/lock/pause"
)

// node is a single CLH cell. Only locked is ever written by more than one
// goroutine (the owner sets it true on Acquire and false on Release; the
// successor only reads it), so padding it to a cache line keeps that flag
// off any neighboring cell's line.
type node struct {
	locked atomic.Bool
	_      [64 - 4]byte
}

// Handle carries the cell a goroutine acquired the lock with, needed by
// Release to clear its locked flag for whichever goroutine is spinning on
// it next.
type Handle struct {
	mine *node
}

// Lock is a CLH lock. The zero value is unlocked: tail starts nil and is
// lazily pointed at a fresh, unlocked sentinel on first use.
type Lock struct {
	tail  atomic.Pointer[node]
	nodes cellpool.Pool[node]
}

// sentinel installs and returns the lock's initial unlocked cell the first
// time any goroutine calls Acquire. The install is a single CompareAndSwap
// on tail itself, so there is no window where "a sentinel exists" is true
// but "tail points at it" is not: any goroutine that loses the CAS reads
// the winner's value straight back out of tail, never out of a separate
// flag that could be observed ahead of the pointer it guards.
func (l *Lock) sentinel() *node {
	if s := l.tail.Load(); s != nil {
		return s
	}
	s := &node{}
	if l.tail.CompareAndSwap(nil, s) {
		return s
	}
	return l.tail.Load()
}

// Acquire publishes a fresh (or pooled) cell as the new tail and spins on
// its predecessor's locked flag, recycling the predecessor the moment it
// frees up.
func (l *Lock) Acquire() Handle {
	l.sentinel()
	my := l.nodes.Get(func() *node { return &node{} })
	my.locked.Store(true)

	pred := l.tail.Swap(my)
	for pred.locked.Load() {
		pause.Once()
	}
	l.nodes.Put(pred)
	return Handle{mine: my}
}

// Release frees the calling goroutine's cell for its successor.
func (l *Lock) Release(h Handle) {
	assert.Check(h.mine != nil, "clhlock: Release called with a zero Handle")
	assert.Check(h.mine.locked.Load(), "clhlock: Release called on an already-released Handle")
	h.mine.locked.Store(false)
}
