package router

import (
	"github.com/multiib/mipd/internal/ipc"
	"github.com/multiib/mipd/internal/link"
	"github.com/multiib/mipd/internal/pending"
	"github.com/multiib/mipd/internal/wire"
)

// handleLinkFrame classifies one frame received off the link socket by
// (dst MIP, sdu type) and dispatches it.
func (r *Router) handleLinkFrame(frame []byte, ifIndex int) {
	pdu, err := wire.Deserialize(frame)
	if err != nil {
		r.log.Debug("dropping unparseable frame", "error", err)
		return
	}

	if pdu.Header.Dst != r.mip && pdu.Header.Dst != wire.Broadcast {
		r.handleTransit(pdu)
		return
	}

	switch pdu.Header.SduType {
	case wire.SduARP:
		r.handleARP(pdu, ifIndex)
	case wire.SduPing:
		r.handlePingDeliver(pdu)
	case wire.SduRoute:
		r.handleRouteDeliver(pdu)
	default:
		r.log.Debug("dropping frame with unknown SDU type", "type", pdu.Header.SduType)
	}
}

// handleTransit is reached when this node is not the destination: the
// PDU is parked on the forward FIFO and a next-hop lookup is requested
// from the routing daemon. Without a routing daemon connected there is
// nowhere to ask, so the PDU is dropped.
func (r *Router) handleTransit(pdu wire.PDU) {
	r.requestNextHop(pending.Pending{PDU: pdu, LocalOrigin: false})
}

// requestNextHop parks p on the forward FIFO and asks the routing
// daemon for a next hop. Used both for transit PDUs received off the
// link and for PDUs originated by the local ping endpoint, since the
// router never keeps routing state of its own.
func (r *Router) requestNextHop(p pending.Pending) {
	if r.routingConn == nil {
		r.log.Debug("dropping PDU, no routing daemon connected", "dst", p.PDU.Header.Dst)
		return
	}
	r.fifo.Push(p)
	req := wire.RouteMsg{Src: r.mip, Kind: wire.RouteRequest, Dest: p.PDU.Header.Dst}
	if err := ipc.WriteRoute(r.routingConn, req); err != nil {
		r.log.Warn("writing ROUTE_REQ to routing daemon", "error", err)
	}
}

// handleARP processes a MIP-ARP SDU addressed to us or broadcast.
func (r *Router) handleARP(pdu wire.PDU, ifIndex int) {
	arp, err := wire.DecodeARP(pdu.SDU)
	if err != nil {
		r.log.Debug("dropping malformed ARP SDU", "error", err)
		return
	}

	r.arp.Insert(pdu.Header.Src, pdu.SrcMAC[:], ifIndex)

	if arp.Reply {
		if p, ok := r.arpQ.Take(pdu.Header.Src); ok {
			r.sendResolved(p, pdu.SrcMAC[:], ifIndex)
		}
		return
	}

	if arp.Subject != r.mip {
		return
	}
	if pdu.Header.TTL == 0 {
		return
	}
	ttl := pdu.Header.TTL - 1

	ifi, ok := link.ByIndex(r.ifs, ifIndex)
	if !ok {
		return
	}

	reply := wire.PDU{
		DstMAC: pdu.SrcMAC,
		SrcMAC: macArray(ifi.HardwareAddr),
		Header: wire.Header{Dst: pdu.Header.Src, Src: r.mip, TTL: ttl, SduType: wire.SduARP},
	}
	sdu := wire.EncodeARP(wire.ARP{Reply: true, Subject: r.mip})
	reply.SDU = sdu
	reply.Header.SduLen = uint16(len(sdu) / 4)

	r.transmit(reply, ifi, pdu.SrcMAC[:])
}

// handlePingDeliver writes a PING/PONG payload to the ping endpoint, if
// one is connected, and remembers the return context for a forthcoming
// reply.
func (r *Router) handlePingDeliver(pdu wire.PDU) {
	payload, err := wire.WordsToString(pdu.SDU)
	if err != nil {
		r.log.Debug("dropping malformed ping SDU", "error", err)
		return
	}

	r.returnCtx = &returnContext{SrcMIP: pdu.Header.Src, TTL: pdu.Header.TTL}

	if r.pingConn == nil {
		r.log.Debug("dropping delivered ping, no ping endpoint connected")
		return
	}
	if _, err := r.pingConn.Write([]byte(payload)); err != nil {
		r.log.Warn("writing payload to ping endpoint", "error", err)
	}
}

// handleRouteDeliver passes a ROUTE SDU's payload up to the routing
// daemon, re-encoded in the daemon's own local-socket framing (the
// link-layer framing carries an extra length prefix and word padding
// the daemon doesn't expect; see encodeRouteSDU/decodeRouteSDU).
func (r *Router) handleRouteDeliver(pdu wire.PDU) {
	if r.routingConn == nil {
		r.log.Debug("dropping ROUTE frame, no routing daemon connected")
		return
	}
	msg, err := decodeRouteSDU(pdu.SDU)
	if err != nil {
		r.log.Debug("dropping malformed ROUTE SDU", "error", err)
		return
	}
	if err := ipc.WriteRoute(r.routingConn, msg); err != nil {
		r.log.Warn("writing ROUTE payload to routing daemon", "error", err)
	}
}

// sendResolved finishes a PDU blocked on an unresolved next hop, now
// that its MAC and arrival interface are known, and transmits it.
func (r *Router) sendResolved(p pending.Pending, mac []byte, ifIndex int) {
	ifi, ok := link.ByIndex(r.ifs, ifIndex)
	if !ok {
		r.log.Debug("dropping resolved PDU, unknown interface", "ifIndex", ifIndex)
		return
	}
	r.transmit(p.PDU, ifi, mac)
}

func macArray(hw []byte) [6]byte {
	var m [6]byte
	copy(m[:], hw)
	return m
}
