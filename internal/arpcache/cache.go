// Package arpcache implements the MIP-ARP cache: a bounded table of
// MIP->MAC->interface bindings. spec.md's design notes call for LRU
// eviction in place of the source's eviction-free table; this is
// realized directly on top of hashicorp/golang-lru rather than a
// hand-rolled ring buffer.
package arpcache

import (
	"net"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/multiib/mipd/internal/wire"
)

// Binding is one MIP->MAC->interface entry.
type Binding struct {
	MAC       net.HardwareAddr
	Interface int
}

// Cache is the bounded MIP-ARP cache. The zero value is not usable;
// construct with New.
type Cache struct {
	lru *lru.Cache[byte, Binding]
}

// New creates a cache holding at most size bindings, evicting the
// least recently used entry once full.
func New(size int) (*Cache, error) {
	l, err := lru.New[byte, Binding](size)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: l}, nil
}

// Lookup returns the binding for mip, if any. A lookup counts as a use
// for recency purposes, so the most recently consulted binding is the
// least likely to be evicted.
func (c *Cache) Lookup(mip byte) (Binding, bool) {
	return c.lru.Get(mip)
}

// Insert records or updates the binding for mip. The broadcast address
// is never stored. Re-inserting a known MIP with a different MAC or
// interface overwrites the old binding and refreshes its recency, so
// that when multiple interfaces report a binding for the same MIP, the
// most recently learned one wins.
func (c *Cache) Insert(mip byte, mac net.HardwareAddr, iface int) {
	if mip == wire.Broadcast {
		return
	}
	c.lru.Add(mip, Binding{MAC: append(net.HardwareAddr(nil), mac...), Interface: iface})
}

// Count returns the number of bindings currently cached.
func (c *Cache) Count() int {
	return c.lru.Len()
}

// Mips returns the MIP addresses currently cached, for diagnostics.
func (c *Cache) Mips() []byte {
	return c.lru.Keys()
}
