// Package twalock implements a ticket lock with a waiting array: tickets
// give strict FIFO ordering and a single shared "grant" counter to poll,
// but a goroutine far from the front backs off to spinning on a hashed
// slot in a shared array instead of hammering grant, so only goroutines
// near the front of the line ever poll the contended counter directly.
//
// Grounded on ahrav-go-locks' ticket.go for the fetch-and-increment ticket
// shape, generalized with the waiting-array backoff the plain ticket lock
// there doesn't have.
package twalock

import (
	"sync/atomic"

	"github.com/kolkov/locklab/internal/lock/assert"
	"github.com/kolkov/locklab/internal/lock/pause"
)

const (
	waitingArraySize  = 4096
	longTermThreshold = 1
)

// waitSlot is one entry in the shared backoff array. sequence is bumped by
// whichever Release happens to hash to this slot; goroutines spinning on it
// are not necessarily waiting on the ticket that bumped it, only using the
// bump as a signal to re-check their own distance from the front.
type waitSlot struct {
	sequence atomic.Uint32
	_        [64 - 4]byte
}

func hashTicket(ticket uint64) uint64 {
	ticket ^= ticket >> 33
	ticket *= 0xff51afd7ed558ccd
	ticket ^= ticket >> 33
	ticket *= 0xc4ceb9fe1a85ec53
	ticket ^= ticket >> 33
	return ticket & (waitingArraySize - 1)
}

// Handle carries the ticket Acquire drew, needed by Release to compute the
// next ticket to grant.
type Handle struct {
	ticket uint64
}

// Lock is a ticket lock with waiting-array backoff. The zero value is
// unlocked, with ticket 0 next to be granted.
type Lock struct {
	nextTicket atomic.Uint64
	grant      atomic.Uint64
	waiting    [waitingArraySize]waitSlot
}

// Acquire draws the next ticket and waits for grant to reach it, backing
// off onto a hashed waiting-array slot while far from the front and
// switching to direct polling once close.
func (l *Lock) Acquire() Handle {
	myTicket := l.nextTicket.Add(1) - 1

	observedGrant := l.grant.Load()
	if observedGrant != myTicket {
		idx := hashTicket(myTicket)
		slot := &l.waiting[idx]
		observedSeq := slot.sequence.Load()

		for myTicket-observedGrant > longTermThreshold {
			for slot.sequence.Load() == observedSeq {
				pause.Once()
				observedGrant = l.grant.Load()
				if myTicket-observedGrant <= longTermThreshold {
					break
				}
			}
			observedSeq = slot.sequence.Load()
			observedGrant = l.grant.Load()
		}

		for observedGrant != myTicket {
			pause.Once()
			observedGrant = l.grant.Load()
		}
	}

	return Handle{ticket: myTicket}
}

// Release grants the next ticket and bumps the waiting-array slot of ticket
// nextToGrant+longTermThreshold, the ticket that has just come within
// longTermThreshold of the front, waking any goroutine backed off there to
// re-check its distance from the front.
func (l *Lock) Release(h Handle) {
	assert.Check(l.grant.Load() == h.ticket, "twalock: Release called with a ticket that is not currently granted")

	nextToGrant := h.ticket + 1
	l.grant.Store(nextToGrant)

	wakeupTicket := nextToGrant + longTermThreshold
	l.waiting[hashTicket(wakeupTicket)].sequence.Add(1)
}
