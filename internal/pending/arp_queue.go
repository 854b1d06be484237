// Package pending implements the two blocked-packet bookkeeping
// structures of spec.md §4.D: a keyed, timeout-bound table of
// PDUs waiting on an ARP reply, and a strict FIFO of PDUs waiting on a
// routing-daemon response.
package pending

import (
	"sync"
	"time"

	"github.com/multiib/mipd/internal/wire"
)

// Pending is one PDU parked on an unresolved next hop, either an
// unknown MAC (ARPQueue) or an unknown route (ForwardFIFO).
// LocalOrigin marks a PDU built directly from a local ping endpoint
// message, as opposed to one received off the link for transit: only
// transit PDUs have their TTL decremented when the next hop resolves.
type Pending struct {
	PDU         wire.PDU
	Interface   int
	LocalOrigin bool
}

// ARPQueue is the keyed table of PDUs blocked on an ARP reply. At most
// one entry exists per next-hop MIP; a new Put for an occupied key
// replaces the old entry and cancels its timer. The queue does not
// enforce a capacity itself; the router stops adding entries once Len
// reaches config.MaxQueueSize.
type ARPQueue struct {
	mu      sync.Mutex
	timeout time.Duration
	entries map[byte]*entry
}

type entry struct {
	pending Pending
	timer   *time.Timer
}

// New creates an ARPQueue whose entries are dropped after timeout if
// never resolved.
func New(timeout time.Duration) *ARPQueue {
	return &ARPQueue{
		timeout: timeout,
		entries: make(map[byte]*entry),
	}
}

// Put parks p under key mip. If mip already has a pending entry, it is
// replaced and its timer cancelled. onTimeout is invoked (without the
// queue's lock held) if the entry is still present when the timeout
// fires.
func (q *ARPQueue) Put(mip byte, p Pending, onTimeout func()) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if old, ok := q.entries[mip]; ok {
		old.timer.Stop()
	}

	e := &entry{pending: p}
	e.timer = time.AfterFunc(q.timeout, func() {
		q.mu.Lock()
		cur, ok := q.entries[mip]
		if ok && cur == e {
			delete(q.entries, mip)
		}
		q.mu.Unlock()
		if ok && cur == e && onTimeout != nil {
			onTimeout()
		}
	})
	q.entries[mip] = e
}

// Take removes and returns the entry for mip, if any, cancelling its
// timeout timer. The router calls this on receiving an ARP reply or
// resolving the next hop by some other means.
func (q *ARPQueue) Take(mip byte) (Pending, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	e, ok := q.entries[mip]
	if !ok {
		return Pending{}, false
	}
	e.timer.Stop()
	delete(q.entries, mip)
	return e.pending, true
}

// Len returns the number of pending entries, for diagnostics.
func (q *ARPQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}
