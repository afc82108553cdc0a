// Package hapax implements a visible-waiter handoff lock keyed by
// process-unique 64-bit tokens ("hapax legomena": each token is used
// exactly once, by exactly one goroutine, for exactly one critical
// section). There is no queue and no per-waiter node: a goroutine
// publishes its token as the new arrival, and either finds the lock free
// (its predecessor's token already departed) or makes itself visible in a
// shared slot table so the departing holder can find and wake it.
//
// Tokens are allocated from a private range backed by a single global
// atomic counter, the same zone-based allocation idea as the original's
// thread_local PrivateHapax next to a static atomic HapaxAllocator — but
// striped per-P rather than per-goroutine: minting a token pins the
// calling goroutine to its current P (internal/lock/pause.Pin, the same
// runtime.procPin primitive lrita-spinlock's spinlock.go uses for its
// per-P queue-node array) and consumes that P's private sub-range. Nothing
// about a token's uniqueness depends on which goroutine ran on a given P
// when, only that the P's own sub-range is never handed to two callers at
// once, which Pin already guarantees without any goroutine-identity lookup
// at all.
package hapax

import (
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/kolkov/locklab/internal/lock/assert"
	"github.com/kolkov/locklab/internal/lock/pause"
)

// slotCount is the size of the shared visible-waiter table every Lock
// hashes into. It is process-wide rather than per-Lock, the same way the
// algorithm's reference table is a function-local static shared by every
// lock instance: a dedicated per-lock table would cost 256KiB per Lock for
// no reduction in the actual collision probability that matters (two
// *different* locks colliding on a slot is harmless, since the token values
// they store are themselves globally unique).
const slotCount = 4096

type slot struct {
	visibleWaiter atomic.Uint64
	_             [64 - 8]byte
}

var waitingTable [slotCount]slot

// toSlot hashes a token into the shared table, salted by the Lock's own
// address so that distinct locks spread their traffic across different
// regions of the table instead of all hashing the same token the same way.
func (l *Lock) toSlot(hapax uint64) *slot {
	salt := uint32(uintptr(unsafe.Pointer(l)))
	ix := (salt + uint32(hapax>>16)) * 17
	return &waitingTable[ix&(slotCount-1)]
}

// hapaxAllocator hands out 48-bit "zones" to P-stripes as they exhaust
// their private 16-bit sub-sequence of token values.
var hapaxAllocator atomic.Uint64

// counterStripe is one P's private token cursor: the next value it can
// hand out without touching hapaxAllocator, and (implicitly, via the
// reprovisioning in nextToken) the zone prefix those values are drawn from.
// next is read and written only while the calling goroutine holds this P's
// pin, so it needs no atomic of its own — the same non-atomic safety
// property the original's non-shared thread_local counter had, just scoped
// to a P instead of a goroutine.
type counterStripe struct {
	next uint64
	_    [64 - 8]byte
}

var (
	stripesMu sync.Mutex
	stripes   atomic.Pointer[[]counterStripe]
)

// stripeFor returns the counter stripe for P pid, growing the backing array
// if pid is outside its current bounds (GOMAXPROCS can increase at
// runtime, though rarely). Growth discards in-flight sub-ranges in the
// stripes it reallocates; nextToken's zero-value handling below makes that
// safe — a fresh stripe simply reprovisions on its first use — at the cost
// of wasting whatever partial zone an existing stripe had not yet
// exhausted, the same tradeoff lrita-spinlock's own qnode array growth
// accepts for its per-P nodes.
func stripeFor(pid int) *counterStripe {
	s := stripes.Load()
	if s == nil || pid >= len(*s) {
		stripesMu.Lock()
		s = stripes.Load()
		if s == nil || pid >= len(*s) {
			n := make([]counterStripe, runtime.GOMAXPROCS(0))
			if pid >= len(n) {
				n = make([]counterStripe, pid+1)
			}
			stripes.Store(&n)
			s = &n
		}
		stripesMu.Unlock()
	}
	return &(*s)[pid]
}

// nextToken returns a token that no goroutine has ever returned from this
// function before and never will again: zero is reserved as "no token", so
// the first call for every P stripe (and every 65536th call after) while
// that stripe is pinned reprovisions from hapaxAllocator.
func nextToken() uint64 {
	pid := pause.Pin()
	c := stripeFor(pid)
	hapax := c.next
	c.next++
	if hapax&0xFFFF == 0 {
		hapax = hapaxAllocator.Add(1)
		hapax <<= 16
		c.next = hapax + 1
	}
	pause.Unpin()
	return hapax
}

// Handle is the token an Acquire call minted for its critical section,
// consumed by the paired Release.
type Handle struct {
	hapax uint64
}

// Lock is a hapax lock. The zero value is unlocked.
type Lock struct {
	arrive atomic.Uint64
	depart atomic.Uint64
}

// Acquire mints a fresh token, publishes it as the new arrival, and — if a
// predecessor token hasn't yet departed — waits to be handed over either
// through the shared slot table or, on a slot collision, by polling depart.
func (l *Lock) Acquire() Handle {
	hapax := nextToken()
	pred := l.arrive.Swap(hapax)

	if l.depart.Load() != pred {
		s := l.toSlot(pred)
		if s.visibleWaiter.CompareAndSwap(0, pred) {
			if l.depart.Load() == pred {
				// Raced with the predecessor's Release between the depart
				// check above and this CAS: it already departed, so undo
				// the slot claim and proceed without waiting.
				s.visibleWaiter.CompareAndSwap(pred, 0)
			} else {
				for s.visibleWaiter.Load() == pred {
					pause.Once()
				}
			}
		} else {
			// Another token already occupies this slot; fall back to
			// polling the lock's own depart counter.
			for l.depart.Load() != pred {
				pause.Once()
			}
		}
	}

	return Handle{hapax: hapax}
}

// Release publishes the calling goroutine's token as departed, waking
// whichever goroutine made itself visible in the token's slot, if any.
func (l *Lock) Release(h Handle) {
	assert.Check(h.hapax != 0, "hapax: Release called with a zero Handle")

	s := l.toSlot(h.hapax)
	if s.visibleWaiter.CompareAndSwap(h.hapax, 0) {
		// A successor installed our token here and is spinning on it (see
		// Acquire's CAS(0, pred)); zeroing it out ourselves is the wake.
		return
	}
	l.depart.Store(h.hapax)
	s.visibleWaiter.CompareAndSwap(h.hapax, 0)
}
