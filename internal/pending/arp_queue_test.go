package pending

import (
	"testing"
	"time"

	"github.com/multiib/mipd/internal/wire"
)

func samplePending() Pending {
	return Pending{
		PDU:       wire.PDU{Header: wire.Header{Dst: 20, Src: 10, TTL: 15}},
		Interface: 0,
	}
}

func TestARPQueuePutTake(t *testing.T) {
	t.Parallel()

	q := New(time.Second)
	q.Put(20, samplePending(), nil)

	if q.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", q.Len())
	}

	p, ok := q.Take(20)
	if !ok {
		t.Fatal("expected Take to find entry for 20")
	}
	if p.PDU.Header.Dst != 20 {
		t.Errorf("PDU dst = %d, want 20", p.PDU.Header.Dst)
	}
	if q.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after Take", q.Len())
	}
}

func TestARPQueueTakeMiss(t *testing.T) {
	t.Parallel()

	q := New(time.Second)
	if _, ok := q.Take(99); ok {
		t.Fatal("expected miss on empty queue")
	}
}

func TestARPQueuePutReplacesAndCancelsOldTimer(t *testing.T) {
	t.Parallel()

	q := New(30 * time.Millisecond)
	fired := make(chan struct{}, 1)

	first := samplePending()
	first.Interface = 1
	q.Put(20, first, func() { fired <- struct{}{} })

	second := samplePending()
	second.Interface = 2
	q.Put(20, second, func() { t.Error("replaced entry's onTimeout must not fire") })

	p, ok := q.Take(20)
	if !ok {
		t.Fatal("expected the replacement entry to still be present")
	}
	if p.Interface != 2 {
		t.Errorf("Interface = %d, want 2 (the replacement)", p.Interface)
	}

	select {
	case <-fired:
		t.Error("original entry's timer fired after being replaced")
	case <-time.After(60 * time.Millisecond):
	}
}

func TestARPQueueTimeoutInvokesCallback(t *testing.T) {
	t.Parallel()

	q := New(10 * time.Millisecond)
	done := make(chan struct{})
	q.Put(20, samplePending(), func() { close(done) })

	select {
	case <-done:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timed out waiting for onTimeout callback")
	}

	if q.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after timeout eviction", q.Len())
	}
	if _, ok := q.Take(20); ok {
		t.Error("expected entry to be gone after timeout")
	}
}

func TestARPQueueTakeCancelsTimerBeforeFiring(t *testing.T) {
	t.Parallel()

	q := New(30 * time.Millisecond)
	q.Put(20, samplePending(), func() { t.Error("onTimeout must not fire after Take") })

	if _, ok := q.Take(20); !ok {
		t.Fatal("expected Take to succeed")
	}

	time.Sleep(60 * time.Millisecond)
}
