package router

import (
	"io"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/multiib/mipd/internal/arpcache"
	"github.com/multiib/mipd/internal/config"
	"github.com/multiib/mipd/internal/ipc"
	"github.com/multiib/mipd/internal/link"
	"github.com/multiib/mipd/internal/pending"
	"github.com/multiib/mipd/internal/wire"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// readRouteFromDaemon reads one ROUTE_REQ-shaped message off the
// daemon side of a routingConn net.Pipe, as the router would have
// written it via ipc.WriteRoute.
func readRouteFromDaemon(t *testing.T, conn net.Conn) (wire.RouteMsg, error) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	return ipc.ReadRoute(conn)
}

func ipcEncodePingFrame(t *testing.T, dst, ttl byte, payload string) []byte {
	t.Helper()
	return ipc.EncodePingFrame(ipc.PingFrame{Dst: dst, TTL: ttl, Kind: ipc.Ping, Payload: []byte(payload)})
}

func ipcEncodePongFrame(t *testing.T, payload string) []byte {
	t.Helper()
	return ipc.EncodePingFrame(ipc.PingFrame{Kind: ipc.Pong, Payload: []byte(payload)})
}

// fakeSocket records every Send call in place of a real raw socket.
type fakeSocket struct {
	mu   sync.Mutex
	sent []sentFrame
}

type sentFrame struct {
	frame []byte
	ifi   link.Interface
	dst   [6]byte
}

func (f *fakeSocket) Send(frame []byte, ifi link.Interface, dst [6]byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := append([]byte(nil), frame...)
	f.sent = append(f.sent, sentFrame{frame: cp, ifi: ifi, dst: dst})
	return nil
}

func (f *fakeSocket) Recv(buf []byte) (int, int, error) {
	select {}
}

func (f *fakeSocket) Close() error { return nil }

func (f *fakeSocket) frames() []sentFrame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentFrame(nil), f.sent...)
}

func newTestRouter(t *testing.T) (*Router, *fakeSocket) {
	t.Helper()
	cache, err := arpcache.New(16)
	if err != nil {
		t.Fatalf("arpcache.New: %v", err)
	}

	sock := &fakeSocket{}
	r := &Router{
		cfg:    config.Config{},
		mip:    1,
		log:    testLogger(),
		sock:   sock,
		ifs:    []link.Interface{{Name: "eth0", Index: 2, HardwareAddr: net.HardwareAddr{0xaa, 0xaa, 0xaa, 0xaa, 0xaa, 0xaa}}},
		arp:    cache,
		arpQ:   pending.New(50 * time.Millisecond),
		fifo:   pending.NewForwardFIFO(),
		events: make(chan event, 16),
	}
	return r, sock
}

// netConnPair returns an in-memory connected pair of net.Conn.
func netConnPair(t *testing.T) (a, b net.Conn) {
	t.Helper()
	a, b = net.Pipe()
	t.Cleanup(func() {
		a.Close()
		b.Close()
	})
	return a, b
}

func TestHandleTransitForwardsViaResolvedNextHop(t *testing.T) {
	t.Parallel()

	r, sock := newTestRouter(t)
	routingSide, daemonSide := netConnPair(t)
	r.routingConn = routingSide

	// Pre-populate the ARP cache so the resolved forward sends immediately.
	r.arp.Insert(3, net.HardwareAddr{1, 2, 3, 4, 5, 6}, 2)

	pdu := wire.PDU{Header: wire.Header{Dst: 9, Src: 5, TTL: 4, SduType: wire.SduPing}}
	go r.handleTransit(pdu)

	req, err := readRouteFromDaemon(t, daemonSide)
	if err != nil {
		t.Fatalf("reading ROUTE_REQ: %v", err)
	}
	if req.Kind != wire.RouteRequest || req.Dest != 9 {
		t.Fatalf("got %+v, want REQUEST for dest 9", req)
	}

	resp := wire.RouteMsg{Kind: wire.RouteResponse, Dest: 9, NextHop: 3}
	r.handleRouteResponse(resp)

	frames := sock.frames()
	if len(frames) != 1 {
		t.Fatalf("got %d sent frames, want 1", len(frames))
	}
	got, err := wire.Deserialize(frames[0].frame)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if got.Header.TTL != 3 {
		t.Errorf("TTL = %d, want 3 (decremented once for transit)", got.Header.TTL)
	}
}

func TestHandleRouteResponseDropsOnNoRoute(t *testing.T) {
	t.Parallel()

	r, sock := newTestRouter(t)
	r.fifo.Push(pending.Pending{PDU: wire.PDU{Header: wire.Header{Dst: 9, TTL: 4}}})

	r.handleRouteResponse(wire.RouteMsg{NextHop: wire.Broadcast})

	if len(sock.frames()) != 0 {
		t.Fatalf("expected no frames sent when next hop is broadcast")
	}
}

func TestHandlePingFrameLocalOriginSkipsTTLDecrement(t *testing.T) {
	t.Parallel()

	r, sock := newTestRouter(t)
	routingSide, daemonSide := netConnPair(t)
	r.routingConn = routingSide
	r.arp.Insert(9, net.HardwareAddr{1, 2, 3, 4, 5, 6}, 2)

	frame := ipcEncodePingFrame(t, 9, 5, "hello")
	go r.handlePingFrame(frame)

	if _, err := readRouteFromDaemon(t, daemonSide); err != nil {
		t.Fatalf("reading ROUTE_REQ: %v", err)
	}

	r.handleRouteResponse(wire.RouteMsg{NextHop: 9})

	frames := sock.frames()
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	got, _ := wire.Deserialize(frames[0].frame)
	if got.Header.TTL != 5 {
		t.Errorf("TTL = %d, want 5 (unchanged, locally originated)", got.Header.TTL)
	}
}

func TestHandlePingFramePongUsesReturnContext(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)
	routingSide, daemonSide := netConnPair(t)
	r.routingConn = routingSide
	r.returnCtx = &returnContext{SrcMIP: 7, TTL: 5}

	frame := ipcEncodePongFrame(t, "pong")
	go r.handlePingFrame(frame)

	if _, err := readRouteFromDaemon(t, daemonSide); err != nil {
		t.Fatalf("reading ROUTE_REQ: %v", err)
	}

	if r.returnCtx != nil {
		t.Fatal("expected return context to be consumed")
	}
	if got := r.fifo.Len(); got != 1 {
		t.Fatalf("fifo.Len() = %d, want 1", got)
	}
	p, _ := r.fifo.Pop()
	if p.PDU.Header.Dst != 7 || p.PDU.Header.TTL != 4 {
		t.Errorf("got dst=%d ttl=%d, want dst=7 ttl=4", p.PDU.Header.Dst, p.PDU.Header.TTL)
	}
}

func TestHandleARPReplyResolvesPendingEntry(t *testing.T) {
	t.Parallel()

	r, sock := newTestRouter(t)
	pdu := wire.PDU{Header: wire.Header{Dst: 1, Src: 3, TTL: 4}}
	r.arpQ.Put(3, pending.Pending{PDU: pdu}, nil)

	srcMAC := [6]byte{9, 9, 9, 9, 9, 9}
	replySDU := wire.EncodeARP(wire.ARP{Reply: true, Subject: 1})
	reply := wire.PDU{
		SrcMAC: srcMAC,
		Header: wire.Header{Dst: 1, Src: 3, TTL: 1, SduType: wire.SduARP, SduLen: uint16(len(replySDU) / 4)},
		SDU:    replySDU,
	}

	r.handleARP(reply, 2)

	frames := sock.frames()
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	if frames[0].dst != srcMAC {
		t.Errorf("dst MAC = %v, want %v", frames[0].dst, srcMAC)
	}
}

func TestHandleARPRequestForUsRepliesWithDecrementedTTL(t *testing.T) {
	t.Parallel()

	r, sock := newTestRouter(t)
	srcMAC := [6]byte{9, 9, 9, 9, 9, 9}
	reqSDU := wire.EncodeARP(wire.ARP{Reply: false, Subject: r.mip})
	req := wire.PDU{
		SrcMAC: srcMAC,
		Header: wire.Header{Dst: wire.Broadcast, Src: 3, TTL: 2, SduType: wire.SduARP, SduLen: uint16(len(reqSDU) / 4)},
		SDU:    reqSDU,
	}

	r.handleARP(req, 2)

	frames := sock.frames()
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	got, err := wire.Deserialize(frames[0].frame)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if got.Header.TTL != 1 {
		t.Errorf("TTL = %d, want 1", got.Header.TTL)
	}
	reply, err := wire.DecodeARP(got.SDU)
	if err != nil {
		t.Fatalf("DecodeARP: %v", err)
	}
	if !reply.Reply || reply.Subject != r.mip {
		t.Errorf("got %+v, want a reply for subject %d", reply, r.mip)
	}
}

// Every ARP request this router itself sends (sendARPRequest) carries
// TTL=1, so the reply's decremented TTL is 0 here in the overwhelming
// common case. A reply must still go out: the original source only
// drops on a received TTL of 0, never on the decremented value.
func TestHandleARPRequestForUsRepliesEvenAtTTLOne(t *testing.T) {
	t.Parallel()

	r, sock := newTestRouter(t)
	srcMAC := [6]byte{9, 9, 9, 9, 9, 9}
	reqSDU := wire.EncodeARP(wire.ARP{Reply: false, Subject: r.mip})
	req := wire.PDU{
		SrcMAC: srcMAC,
		Header: wire.Header{Dst: wire.Broadcast, Src: 3, TTL: 1, SduType: wire.SduARP, SduLen: uint16(len(reqSDU) / 4)},
		SDU:    reqSDU,
	}

	r.handleARP(req, 2)

	frames := sock.frames()
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	got, err := wire.Deserialize(frames[0].frame)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if got.Header.TTL != 0 {
		t.Errorf("TTL = %d, want 0", got.Header.TTL)
	}
	reply, err := wire.DecodeARP(got.SDU)
	if err != nil {
		t.Fatalf("DecodeARP: %v", err)
	}
	if !reply.Reply || reply.Subject != r.mip {
		t.Errorf("got %+v, want a reply for subject %d", reply, r.mip)
	}
}
