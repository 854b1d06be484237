package routing

import (
	"testing"
	"time"

	"github.com/multiib/mipd/internal/wire"
)

func TestHandleHelloInstallsDirectRoute(t *testing.T) {
	t.Parallel()

	tbl := NewTable(1)
	tbl.HandleHello(2, time.Now())

	if got := tbl.Lookup(2); got != 2 {
		t.Errorf("Lookup(2) = %d, want 2 (direct)", got)
	}
	if !tbl.TakeChanged() {
		t.Error("expected table_changed after first HELLO")
	}
}

func TestHandleHelloDoesNotOverwriteExistingRoute(t *testing.T) {
	t.Parallel()

	tbl := NewTable(1)
	tbl.HandleUpdate(2, wire.RouteEntry{Dest: 3, NextHop: 2, Distance: 1})
	tbl.TakeChanged()

	tbl.HandleHello(3, time.Now())

	if got := tbl.Lookup(3); got != 2 {
		t.Errorf("Lookup(3) = %d, want 2 (existing route kept)", got)
	}
}

func TestHandleUpdateInstallsBetterRoute(t *testing.T) {
	t.Parallel()

	tbl := NewTable(1)
	tbl.HandleUpdate(2, wire.RouteEntry{Dest: 3, NextHop: 2, Distance: 1})

	if got := tbl.Lookup(3); got != 2 {
		t.Errorf("Lookup(3) = %d, want 2", got)
	}
	if !tbl.TakeChanged() {
		t.Error("expected table_changed after install")
	}
}

func TestHandleUpdateIgnoresWorseRoute(t *testing.T) {
	t.Parallel()

	tbl := NewTable(1)
	tbl.HandleUpdate(2, wire.RouteEntry{Dest: 9, NextHop: 2, Distance: 1})
	tbl.TakeChanged()

	tbl.HandleUpdate(4, wire.RouteEntry{Dest: 9, NextHop: 4, Distance: 5})

	if got := tbl.Lookup(9); got != 2 {
		t.Errorf("Lookup(9) = %d, want 2 (better route kept)", got)
	}
	if tbl.TakeChanged() {
		t.Error("expected no change, worse route was ignored")
	}
}

func TestHandleUpdateIgnoresSelfDestination(t *testing.T) {
	t.Parallel()

	tbl := NewTable(1)
	tbl.HandleUpdate(2, wire.RouteEntry{Dest: 1, NextHop: 2, Distance: 1})

	// The table always carries a self-entry of distance 0; an UPD
	// claiming a route to us must not overwrite it.
	if got := tbl.Lookup(1); got != 1 {
		t.Errorf("Lookup(self) = %d, want 1 (self-entry, never overwritten)", got)
	}
}

func TestNewTableSeedsSelfEntry(t *testing.T) {
	t.Parallel()

	tbl := NewTable(5)
	if got := tbl.Lookup(5); got != 5 {
		t.Errorf("Lookup(self) = %d, want 5 (self-entry)", got)
	}
	if tbl.TakeChanged() {
		t.Error("expected no table_changed from the initial self-entry")
	}
}

func TestHandleUpdatePoisonReverseReceiveCheck(t *testing.T) {
	t.Parallel()

	tbl := NewTable(1)
	// A neighbour advertises a route whose next hop is us: this is the
	// poison-reverse loop we sent them, and must be ignored.
	tbl.HandleUpdate(2, wire.RouteEntry{Dest: 9, NextHop: 1, Distance: 3})

	if got := tbl.Lookup(9); got != wire.Broadcast {
		t.Errorf("Lookup(9) = %d, want unreachable (poisoned entry ignored)", got)
	}
}

func TestLookupUnknownReturnsBroadcast(t *testing.T) {
	t.Parallel()

	tbl := NewTable(1)
	if got := tbl.Lookup(77); got != wire.Broadcast {
		t.Errorf("Lookup(unknown) = %d, want %d", got, wire.Broadcast)
	}
}

func TestCheckTimeoutsInvalidatesStaleNeighbourRoutes(t *testing.T) {
	t.Parallel()

	tbl := NewTable(1)
	past := time.Now().Add(-time.Hour)
	tbl.HandleHello(2, past)
	tbl.HandleUpdate(2, wire.RouteEntry{Dest: 9, NextHop: 2, Distance: 1})
	tbl.TakeChanged()

	changed := tbl.CheckTimeouts(time.Now(), 30*time.Second)
	if !changed {
		t.Fatal("expected CheckTimeouts to report a change")
	}
	if got := tbl.Lookup(2); got != wire.Broadcast {
		t.Errorf("Lookup(2) = %d, want unreachable after timeout", got)
	}
	if got := tbl.Lookup(9); got != wire.Broadcast {
		t.Errorf("Lookup(9) = %d, want unreachable after timeout (via 2)", got)
	}
	if !tbl.TakeChanged() {
		t.Error("expected table_changed to be set by CheckTimeouts")
	}
}

func TestCheckTimeoutsLeavesFreshNeighboursAlone(t *testing.T) {
	t.Parallel()

	tbl := NewTable(1)
	tbl.HandleHello(2, time.Now())
	tbl.TakeChanged()

	if tbl.CheckTimeouts(time.Now(), 30*time.Second) {
		t.Error("expected no change, neighbour still fresh")
	}
	if got := tbl.Lookup(2); got != 2 {
		t.Errorf("Lookup(2) = %d, want 2 (still direct)", got)
	}
}

func TestEntriesOmitsUnreachableRoutes(t *testing.T) {
	t.Parallel()

	tbl := NewTable(1)
	tbl.HandleHello(2, time.Now())
	tbl.HandleUpdate(2, wire.RouteEntry{Dest: 9, NextHop: 2, Distance: 1})

	past := time.Now().Add(-time.Hour)
	tbl.HandleHello(3, past)
	tbl.CheckTimeouts(time.Now(), 30*time.Second)

	entries := tbl.Entries()
	for _, e := range entries {
		if e.Dest == 3 {
			t.Errorf("unreachable dest 3 should not appear in Entries(), got %+v", e)
		}
	}

	found := false
	for _, e := range entries {
		if e.Dest == 9 && e.NextHop == 2 && e.Distance == 2 {
			found = true
		}
	}
	if !found {
		t.Errorf("expected entry for dest 9 via 2 distance 2, got %+v", entries)
	}
}
