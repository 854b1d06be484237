package router

import (
	"github.com/multiib/mipd/internal/link"
	"github.com/multiib/mipd/internal/pending"
	"github.com/multiib/mipd/internal/wire"
)

// transmit addresses pdu at dstMAC over ifi and sends it, filling in
// the link-header MAC fields from ifi and dstMAC.
func (r *Router) transmit(pdu wire.PDU, ifi link.Interface, dstMAC []byte) {
	pdu.SrcMAC = macArray(ifi.HardwareAddr)
	pdu.DstMAC = macArray(dstMAC)

	frame, err := wire.Serialize(pdu)
	if err != nil {
		r.log.Warn("serializing outgoing PDU", "error", err)
		return
	}
	if err := r.sock.Send(frame, ifi, pdu.DstMAC); err != nil {
		r.log.Warn("sending frame", "interface", ifi.Name, "error", err)
	}
}

// broadcastOnAllInterfaces sends pdu with dst MAC
// ff:ff:ff:ff:ff:ff on every bound interface, once each, as spec.md's
// broadcast addressing rule requires for ARP requests and routing-plane
// messages.
func (r *Router) broadcastOnAllInterfaces(pdu wire.PDU) {
	for _, ifi := range r.ifs {
		r.transmit(pdu, ifi, wire.BroadcastMAC[:])
	}
}

// forwardToNextHop resolves nextHop's MAC via the ARP cache and either
// transmits p immediately or parks it on the pending-ARP table and
// broadcasts a MIP-ARP request. If the pending-ARP table already holds
// cfg.MaxQueueSize entries, p is dropped.
func (r *Router) forwardToNextHop(p pending.Pending, nextHop byte) {
	if b, ok := r.arp.Lookup(nextHop); ok {
		ifi, ok := link.ByIndex(r.ifs, b.Interface)
		if !ok {
			r.log.Debug("dropping PDU, cached interface no longer bound", "nextHop", nextHop)
			return
		}
		r.transmit(p.PDU, ifi, b.MAC)
		return
	}

	if r.arpQ.Len() >= r.cfg.MaxQueueSize {
		r.log.Debug("dropping PDU, pending-ARP table full", "nextHop", nextHop)
		return
	}
	r.arpQ.Put(nextHop, p, func() {
		r.log.Debug("pending-ARP entry timed out", "nextHop", nextHop)
	})
	r.sendARPRequest(nextHop)
}

// sendARPRequest broadcasts a MIP-ARP request for subject on every
// bound interface, TTL=1, per spec.md §4.E/§6.
func (r *Router) sendARPRequest(subject byte) {
	sdu := wire.EncodeARP(wire.ARP{Reply: false, Subject: subject})
	pdu := wire.PDU{
		Header: wire.Header{
			Dst:     wire.Broadcast,
			Src:     r.mip,
			TTL:     1,
			SduType: wire.SduARP,
			SduLen:  uint16(len(sdu) / 4),
		},
		SDU: sdu,
	}
	r.broadcastOnAllInterfaces(pdu)
}
