package router

import "net"

// identifiedEvent carries a peer connection once its identifier byte
// has been read, still off the single fan-in channel so that wiring it
// into router state happens only on Run's goroutine.
type identifiedEvent struct {
	conn net.Conn
	id   byte
}

func (identifiedEvent) isRouterEvent() {}
