// Package reciprocating implements an unfair LIFO-within-segment stack
// lock: arriving goroutines push themselves onto a single atomic stack head,
// and a releasing goroutine drains its own segment of that stack by handing
// each arrival the "end of segment" token it captured when it pushed, so a
// goroutine knows when it has reached the boundary between its own arrival
// batch and the next one.
//
// The stack head packs three states into one word: unlocked, locked with an
// empty arrival list, and locked with a populated list (head = newest
// arrival's address). Go's new(WaitElement) addresses are always at least
// 8-byte aligned on every architecture this module targets, so the low bit
// of any real address is free; this package uses it the same way the
// original algorithm does, storing the word in an atomic.Uintptr instead of
// atomic.Pointer specifically because one of the three states (locked,
// empty) is the bit pattern 1, which is not a valid *WaitElement and cannot
// be held in a typed atomic pointer.
package reciprocating

import (
	"sync/atomic"
	"unsafe"

	"github.com/kolkov/locklab/internal/lock/assert"
	"github.com/kolkov/locklab/internal/lock/pause"
)

// WaitElement is one goroutine's stack cell. gate is written once by the
// goroutine that releases this element's segment and read in a spin loop by
// the element's owner, so it is padded to avoid sharing a cache line with
// neighboring cells.
type WaitElement struct {
	gate atomic.Uintptr
	_    [128 - 8]byte
}

// lockedEmpty is the sentinel word meaning "locked, no arrivals queued". It
// is never dereferenced as a pointer, only compared against, so its value
// (1) needing to collide with no real address is the only property that
// matters — guaranteed by alignment.
const lockedEmpty = uintptr(1)

func addr(e *WaitElement) uintptr {
	if e == nil {
		return 0
	}
	return uintptr(unsafe.Pointer(e))
}

// deref recovers a *WaitElement from a word that is known not to be the
// lockedEmpty sentinel or zero. Every WaitElement this package hands out is
// heap-allocated in Acquire. arrivals and a Handle's succ hold only its
// address as a uintptr, which the garbage collector does not trace; what
// keeps it alive is its owning goroutine, which holds the *WaitElement
// while it spins on gate. Every element deref is applied to is one whose
// owner is still spinning there, so Go's garbage collector — unlike the
// thread_local storage the original relies on — keeps it alive without
// this package needing to track its lifetime explicitly.
func deref(v uintptr) *WaitElement {
	return (*WaitElement)(unsafe.Pointer(v)) //nolint:govet
}

// Handle is the acquisition state Acquire threads through to the paired
// Release: which predecessor (if any) to hand the lock to, and the
// end-of-segment token to hand it along with.
type Handle struct {
	succ uintptr
	eos  uintptr
	self *WaitElement
}

// Lock is a reciprocating lock. The zero value is unlocked.
type Lock struct {
	arrivals atomic.Uintptr
}

// Acquire pushes the calling goroutine's element onto the arrival stack and,
// if it was not the only arrival, waits for its predecessor to hand it a
// segment boundary token.
//
// Unlike the original's thread_local WaitElement, e is a fresh allocation
// on every call: nothing here needs it to be the same object across a
// goroutine's successive Acquire calls, only that it stay valid while
// another goroutine may still write its gate, which happens only while this
// call is spinning on it and so holds e live for Go's garbage collector.
func (l *Lock) Acquire() Handle {
	e := &WaitElement{}

	h := Handle{self: e, eos: addr(e)}

	tail := l.arrivals.Swap(addr(e))
	assert.Check(tail != addr(e), "reciprocating: Arrivals already held this Acquire's own element")
	if tail == 0 {
		return h
	}

	h.succ = tail &^ 1
	assert.Check(h.succ != addr(e), "reciprocating: predecessor element is this Acquire's own element")
	for {
		eos := e.gate.Load()
		if eos != 0 {
			h.eos = eos
			break
		}
		pause.Once()
	}
	assert.Check(h.eos != addr(e), "reciprocating: end-of-segment token is this Acquire's own element")

	if h.succ == h.eos {
		// The predecessor closed its segment here: this goroutine is the
		// new segment boundary.
		h.succ = 0
		h.eos = lockedEmpty
	}
	assert.Check(l.arrivals.Load() != 0, "reciprocating: Arrivals went unlocked during a pending Acquire")
	return h
}

// Release hands the lock to the calling goroutine's predecessor if it has
// one, or otherwise tries to close out the arrival stack, racing any
// goroutine that arrives in the interim.
func (l *Lock) Release(h Handle) {
	assert.Check(h.self != nil, "reciprocating: Release called with a zero Handle")
	assert.Check(h.eos != 0, "reciprocating: Release called with no end-of-segment token")
	assert.Check(l.arrivals.Load() != 0, "reciprocating: Arrivals unlocked on entry to Release")

	if h.succ != 0 {
		assert.Check(h.eos != addr(h.self), "reciprocating: handing the lock to ourselves")
		assert.Check(deref(h.succ).gate.Load() == 0, "reciprocating: successor's gate already set")
		deref(h.succ).gate.Store(h.eos)
		return
	}

	if l.arrivals.CompareAndSwap(h.eos, 0) {
		return
	}

	// Something arrived since this goroutine read the stack as just itself.
	// Claim the whole arrival segment atomically and hand its head the
	// boundary token this goroutine was carrying.
	w := l.arrivals.Swap(lockedEmpty)
	assert.Check(w != 0 && w != lockedEmpty && w != addr(h.self), "reciprocating: claimed segment head is invalid")
	assert.Check(deref(w&^1).gate.Load() == 0, "reciprocating: claimed segment head's gate already set")
	deref(w &^ 1).gate.Store(h.eos)
}
