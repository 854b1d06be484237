package pending

import (
	"container/list"
	"sync"
)

// ForwardFIFO is a strict insertion-order queue of PDUs blocked on a
// routing-daemon lookup. Unlike ARPQueue it is not keyed: a router may
// have several forwarding decisions outstanding against routingd at
// once, and REQ order must match RES consumption order, so entries
// leave in exactly the order they arrived.
type ForwardFIFO struct {
	mu sync.Mutex
	l  *list.List
}

// NewForwardFIFO creates an empty forwarding queue.
func NewForwardFIFO() *ForwardFIFO {
	return &ForwardFIFO{l: list.New()}
}

// Push appends p to the back of the queue.
func (f *ForwardFIFO) Push(p Pending) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.l.PushBack(p)
}

// Pop removes and returns the entry at the front of the queue, in the
// same order its matching REQ was issued.
func (f *ForwardFIFO) Pop() (Pending, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	e := f.l.Front()
	if e == nil {
		return Pending{}, false
	}
	f.l.Remove(e)
	return e.Value.(Pending), true
}

// Len returns the number of PDUs currently queued.
func (f *ForwardFIFO) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.l.Len()
}
