// Package cellpool implements a lock-free free list for the per-acquisition
// cells MCS and CLH need.
//
// Both algorithms need a cell that is exclusively owned by the calling
// goroutine for some bounded span — MCS for a single Acquire/Release pair,
// CLH from Acquire until its successor has seen the cell released. Neither
// needs that cell to be *the same* cell across calls, and
// once a cell's owner is done with it (confirmed by the protocol itself:
// MCS after signaling its successor, CLH after observing a predecessor's
// locked flag go false) no goroutine will ever touch it again, so any
// goroutine's next Acquire can reuse it. That turns cell storage into an
// ordinary object pool rather than anything resembling C++'s
// thread_local: a Treiber stack (the same CAS-linked-list shape this
// module's own reciprocating lock uses for its arrival stack) pushes a
// cell back once it is free (in MCS's Release, in CLH's successor's
// Acquire) and pops one on Acquire, falling back to a fresh
// allocation only when the stack is empty. No goroutine identity is
// involved anywhere in this package.
package cellpool

import "sync/atomic"

type poolNode[C any] struct {
	next *poolNode[C]
	cell *C
}

// Pool is a lock-free free list of *C. The zero value is an empty pool
// ready to use.
type Pool[C any] struct {
	head atomic.Pointer[poolNode[C]]
}

// Get pops a cell off the free list, or calls newFn to allocate one if the
// list is empty. The returned cell is exclusively the caller's until it is
// handed back via Put.
func (p *Pool[C]) Get(newFn func() *C) *C {
	for {
		n := p.head.Load()
		if n == nil {
			return newFn()
		}
		if p.head.CompareAndSwap(n, n.next) {
			return n.cell
		}
	}
}

// Put returns a cell to the free list for a future Get to reuse. The
// caller must not touch cell again after this call.
func (p *Pool[C]) Put(cell *C) {
	n := &poolNode[C]{cell: cell}
	for {
		head := p.head.Load()
		n.next = head
		if p.head.CompareAndSwap(head, n) {
			return
		}
	}
}
