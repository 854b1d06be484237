package router

import (
	"fmt"

	"github.com/multiib/mipd/internal/ipc"
	"github.com/multiib/mipd/internal/pending"
	"github.com/multiib/mipd/internal/wire"
)

// encodeRouteSDU frames a route message for transit across the MIP
// link: a 1-byte explicit content length followed by the message
// itself, word-padded for the PDU codec. The explicit length lets the
// receiving router recover the exact message bytes regardless of how
// much zero padding PadWords added, which a bare word-count can't do
// for UPD's 3-byte-aligned trailer.
func encodeRouteSDU(msg wire.RouteMsg) (sdu []byte, words uint16) {
	body := wire.EncodeRoute(msg)
	framed := make([]byte, 1+len(body))
	framed[0] = byte(len(body))
	copy(framed[1:], body)
	return wire.PadWords(framed)
}

// decodeRouteSDU inverts encodeRouteSDU.
func decodeRouteSDU(sdu []byte) (wire.RouteMsg, error) {
	if len(sdu) < 1 {
		return wire.RouteMsg{}, fmt.Errorf("route SDU empty")
	}
	n := int(sdu[0])
	if 1+n > len(sdu) {
		return wire.RouteMsg{}, fmt.Errorf("route SDU declares %d bytes, only %d available", n, len(sdu)-1)
	}
	return wire.DecodeRoute(sdu[1 : 1+n])
}

// handlePingFrame processes one message from the accepted ping
// endpoint: build a PDU, then ask the routing daemon for a next hop
// exactly as transit PDUs do, since the router keeps no routing state
// of its own.
func (r *Router) handlePingFrame(frame []byte) {
	f, err := ipc.DecodePingFrame(frame)
	if err != nil {
		r.log.Debug("dropping malformed ping endpoint frame", "error", err)
		return
	}

	var dst, ttl byte
	switch f.Kind {
	case ipc.Ping:
		dst, ttl = f.Dst, f.TTL
	case ipc.Pong:
		if r.returnCtx == nil {
			r.log.Debug("dropping PONG, no return context set")
			return
		}
		if r.returnCtx.TTL == 0 {
			r.log.Debug("dropping PONG, return context TTL exhausted")
			r.returnCtx = nil
			return
		}
		dst, ttl = r.returnCtx.SrcMIP, r.returnCtx.TTL-1
		r.returnCtx = nil
	}

	sdu := wire.StringToWords(string(f.Payload))
	pdu := wire.PDU{
		Header: wire.Header{
			Dst:     dst,
			Src:     r.mip,
			TTL:     ttl,
			SduType: wire.SduPing,
			SduLen:  uint16(len(sdu) / 4),
		},
		SDU: sdu,
	}

	r.requestNextHop(pending.Pending{PDU: pdu, LocalOrigin: true})
}

func (r *Router) handlePingClosed() {
	r.log.Info("ping endpoint disconnected")
	r.pingConn = nil
	r.returnCtx = nil
}

// handleRoutingFrame dispatches one message read from the routing
// daemon connection.
func (r *Router) handleRoutingFrame(frame []byte) {
	msg, err := wire.DecodeRoute(frame)
	if err != nil {
		r.log.Debug("dropping malformed routing daemon message", "error", err)
		return
	}

	switch msg.Kind {
	case wire.RouteHello, wire.RouteUpdate:
		r.broadcastRoute(msg)
	case wire.RouteResponse:
		r.handleRouteResponse(msg)
	default:
		r.log.Debug("dropping unexpected message kind from routing daemon", "kind", msg.Kind)
	}
}

func (r *Router) handleRoutingClosed() {
	r.log.Info("routing daemon disconnected")
	r.routingConn = nil
}

// broadcastRoute rebroadcasts a HELLO or UPD message from the local
// routing daemon as a MIP PDU, TTL=1, on every bound interface.
func (r *Router) broadcastRoute(msg wire.RouteMsg) {
	sdu, words := encodeRouteSDU(msg)
	pdu := wire.PDU{
		Header: wire.Header{
			Dst:     wire.Broadcast,
			Src:     r.mip,
			TTL:     1,
			SduType: wire.SduRoute,
			SduLen:  words,
		},
		SDU: sdu,
	}
	r.broadcastOnAllInterfaces(pdu)
}

// handleRouteResponse pops the oldest forward-FIFO entry and transmits
// it via the next hop the routing daemon answered with. A next hop of
// the broadcast address means "no route"; the packet is dropped.
// TTL is decremented only for transit packets, never for packets this
// node originated itself.
func (r *Router) handleRouteResponse(msg wire.RouteMsg) {
	p, ok := r.fifo.Pop()
	if !ok {
		r.log.Debug("ROUTE_RESPONSE with no matching pending request")
		return
	}

	if msg.NextHop == wire.Broadcast {
		r.log.Debug("dropping packet, no route", "dst", p.PDU.Header.Dst)
		return
	}

	if !p.LocalOrigin {
		if p.PDU.Header.TTL == 0 {
			return
		}
		p.PDU.Header.TTL--
		if p.PDU.Header.TTL == 0 {
			r.log.Debug("dropping transit packet, TTL exhausted")
			return
		}
	}

	r.forwardToNextHop(p, msg.NextHop)
}
