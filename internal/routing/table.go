// Package routing implements the distance-vector routing engine of
// spec.md §4.G: a routing table keyed by destination MIP, a neighbour
// liveness table, and the HELLO/UPD/REQ/RES state machine that keeps
// them converged.
package routing

import (
	"sync"
	"time"

	"github.com/multiib/mipd/internal/wire"
)

// Route is one entry in the routing table. Routes are held in a map
// keyed by destination MIP; the table is not sized or bounded by
// config.MaxNodes.
type Route struct {
	NextHop  byte
	Distance byte // wire.InfiniteDistance means unreachable
}

// known reports whether the entry currently names a usable route.
func (r Route) known() bool {
	return r.Distance != wire.InfiniteDistance
}

// neighbour tracks liveness for one directly-attached node.
type neighbour struct {
	lastHello time.Time
	reachable bool
}

// Table is the routing daemon's shared state: the routing table, the
// neighbour liveness table, and the table_changed flag, all guarded by
// one mutex with O(MaxNodes) hold times.
type Table struct {
	mu sync.Mutex

	self byte

	routes     map[byte]Route
	neighbours map[byte]*neighbour
	changed    bool
}

// NewTable creates a Table for a node whose own MIP address is self,
// seeded with the required self-entry of distance 0.
func NewTable(self byte) *Table {
	return &Table{
		self:       self,
		routes:     map[byte]Route{self: {NextHop: self, Distance: 0}},
		neighbours: make(map[byte]*neighbour),
	}
}

// HandleHello processes a HELLO from sender: marks it reachable and,
// if no route exists yet, installs a direct route of distance 1.
func (t *Table) HandleHello(sender byte, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n, ok := t.neighbours[sender]
	if !ok {
		n = &neighbour{}
		t.neighbours[sender] = n
	}
	n.lastHello = now
	n.reachable = true

	if r, ok := t.routes[sender]; !ok || !r.known() {
		t.routes[sender] = Route{NextHop: sender, Distance: 1}
		t.changed = true
	}
}

// HandleUpdate processes one UPD entry received from a neighbour,
// applying the poison-reverse receive check and the monotone-update
// rule: an entry about ourselves, or one whose next hop is ourselves
// (the sender poisoned it back to us), is ignored; otherwise the new
// distance is installed only if strictly better than the current one.
func (t *Table) HandleUpdate(from byte, entry wire.RouteEntry) {
	if entry.Dest == t.self || entry.NextHop == t.self {
		return
	}

	var newDistance byte = wire.InfiniteDistance
	if entry.Distance != wire.InfiniteDistance {
		newDistance = entry.Distance + 1
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	cur, ok := t.routes[entry.Dest]
	if !ok {
		cur = Route{Distance: wire.InfiniteDistance}
	}

	if newDistance < cur.Distance {
		t.routes[entry.Dest] = Route{NextHop: from, Distance: newDistance}
		t.changed = true
	}
}

// Lookup answers a REQ: the next hop towards dest, or
// wire.Broadcast (0xFF) if unreachable.
func (t *Table) Lookup(dest byte) byte {
	t.mu.Lock()
	defer t.mu.Unlock()

	r, ok := t.routes[dest]
	if !ok || !r.known() {
		return wire.Broadcast
	}
	return r.NextHop
}

// CheckTimeouts invalidates every route whose next hop has gone silent
// for longer than timeout, marking the neighbour unreachable. If any
// route was invalidated it raises table_changed itself and returns true.
func (t *Table) CheckTimeouts(now time.Time, timeout time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	changed := false
	for mip, n := range t.neighbours {
		if !n.reachable {
			continue
		}
		if now.Sub(n.lastHello) <= timeout {
			continue
		}
		n.reachable = false
		for dest, r := range t.routes {
			if r.NextHop == mip && r.known() {
				t.routes[dest] = Route{Distance: wire.InfiniteDistance}
				changed = true
			}
		}
	}
	if changed {
		t.changed = true
	}
	return changed
}

// TakeChanged reports whether the table changed since the last call
// and clears the flag, mirroring the emit loop's
// "if changed, emit; then clear" sequence.
func (t *Table) TakeChanged() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	changed := t.changed
	t.changed = false
	return changed
}

// Entries returns every known route as a UPD trailer. The update is a
// single broadcast seen by every neighbour at once, so poison reverse
// cannot be applied per-recipient by the sender here; each neighbour
// instead applies it on receipt, discarding any entry whose next hop
// names itself (see HandleUpdate). This resolves spec.md's
// self-contradictory wording ("the source applies poison reverse" vs.
// "poison reverse is applied by the neighbour on receipt") in favour
// of the receive-side rule, the only one a single broadcast message
// can actually realize.
func (t *Table) Entries() []wire.RouteEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	entries := make([]wire.RouteEntry, 0, len(t.routes))
	for dest, r := range t.routes {
		if !r.known() {
			continue
		}
		entries = append(entries, wire.RouteEntry{Dest: dest, NextHop: r.NextHop, Distance: r.Distance})
	}
	return entries
}
