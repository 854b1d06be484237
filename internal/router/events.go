package router

import "net"

// event is the sum type carried on Router's single fan-in channel.
// Every goroutine that talks to the outside world (the link socket
// reader, the local-socket accept loop, each accepted peer's frame
// reader) only ever parses its input and sends an event; only Run's
// goroutine ever acts on one, which is what keeps router state
// single-owner despite I/O happening concurrently.
type event interface{ isRouterEvent() }

// linkFrameEvent carries one raw Ethernet frame read off the link
// socket, tagged with the interface it arrived on.
type linkFrameEvent struct {
	frame   []byte
	ifIndex int
}

func (linkFrameEvent) isRouterEvent() {}

// acceptEvent carries a newly accepted local-socket connection, before
// its identifier byte has been read.
type acceptEvent struct {
	conn net.Conn
}

func (acceptEvent) isRouterEvent() {}

// pingFrameEvent carries one frame read from the accepted ping
// endpoint connection.
type pingFrameEvent struct {
	frame []byte
}

func (pingFrameEvent) isRouterEvent() {}

// pingClosedEvent signals that the ping endpoint connection is gone.
type pingClosedEvent struct{}

func (pingClosedEvent) isRouterEvent() {}

// routingFrameEvent carries one frame read from the accepted routing
// daemon connection, already identifier-stripped.
type routingFrameEvent struct {
	frame []byte
}

func (routingFrameEvent) isRouterEvent() {}

// routingClosedEvent signals that the routing daemon connection is
// gone; the router must reject transit forwarding from this point on.
type routingClosedEvent struct{}

func (routingClosedEvent) isRouterEvent() {}
