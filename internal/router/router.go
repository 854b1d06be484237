// Package router implements the MIP router: the single-threaded-core
// event loop that owns the raw link socket, the local listening
// socket, and the two peers it accepts (a ping endpoint and a routing
// daemon).
package router

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"github.com/multiib/mipd/internal/arpcache"
	"github.com/multiib/mipd/internal/config"
	"github.com/multiib/mipd/internal/ipc"
	"github.com/multiib/mipd/internal/link"
	"github.com/multiib/mipd/internal/pending"
	"github.com/multiib/mipd/internal/status"
)

// returnContext is the (source MIP, TTL) pair remembered after
// delivering a PING to the local ping endpoint, so a later PONG from
// that endpoint knows where to go.
type returnContext struct {
	SrcMIP byte
	TTL    byte
}

// linkSocket is the subset of *link.Socket the router depends on.
// Satisfied by the real raw socket; tests substitute a fake to drive
// the event handlers without root or a real NIC.
type linkSocket interface {
	Send(frame []byte, ifi link.Interface, dstMAC [6]byte) error
	Recv(buf []byte) (n int, ifIndex int, err error)
	Close() error
}

// Router owns all router state. Only the goroutine running Run ever
// reads or writes the fields below; every other goroutine started by
// Run only ever sends fully-parsed events on r.events.
type Router struct {
	cfg config.Config
	mip byte
	log *slog.Logger

	sock linkSocket
	ifs  []link.Interface

	listener net.Listener

	arp  *arpcache.Cache
	arpQ *pending.ARPQueue
	fifo *pending.ForwardFIFO

	events chan event

	pingConn    net.Conn
	routingConn net.Conn
	returnCtx   *returnContext

	status *status.Server

	runCtx context.Context
}

// New constructs a Router bound to localMIP. Open must be called
// before Run.
func New(cfg config.Config, localMIP byte, log *slog.Logger) (*Router, error) {
	if log == nil {
		log = slog.Default()
	}

	cache, err := arpcache.New(cfg.ARPCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating ARP cache: %w", err)
	}

	return &Router{
		cfg:    cfg,
		mip:    localMIP,
		log:    log.With("component", "router"),
		arp:    cache,
		arpQ:   pending.New(cfg.PendingARPTimeout),
		fifo:   pending.NewForwardFIFO(),
		events: make(chan event, cfg.MaxQueueSize),
	}, nil
}

// Open binds the raw link socket, enumerates interfaces, and opens the
// local listening socket. Any failure here is fatal to the caller.
func (r *Router) Open(socketPath string) error {
	sock, err := link.Open()
	if err != nil {
		return err
	}
	r.sock = sock

	ifs, err := link.Interfaces(r.cfg.MaxIf)
	if err != nil {
		r.sock.Close()
		return err
	}
	r.ifs = ifs
	r.log.Info("bound interfaces", "count", len(ifs))

	l, err := ipc.Listen(socketPath)
	if err != nil {
		r.sock.Close()
		return err
	}
	r.listener = l

	return nil
}

// WithStatusServer attaches an optional status server, started and
// stopped alongside the router.
func (r *Router) WithStatusServer(s *status.Server) *Router {
	r.status = s
	return r
}

// InterfaceNames returns the names of the interfaces bound by Open,
// for callers that need to act on them (e.g. hostfw hardening).
func (r *Router) InterfaceNames() []string {
	names := make([]string, len(r.ifs))
	for i, ifi := range r.ifs {
		names[i] = ifi.Name
	}
	return names
}

// Close releases the raw socket and the local listening socket.
func (r *Router) Close() {
	if r.sock != nil {
		r.sock.Close()
	}
	if r.listener != nil {
		r.listener.Close()
	}
	if r.status != nil {
		r.status.Close()
	}
}

// Run starts the I/O goroutines and processes events until ctx is
// cancelled, then returns ctx.Err(). I/O errors are logged by the
// reader goroutines and never end Run.
func (r *Router) Run(ctx context.Context) error {
	r.runCtx = ctx

	go r.readLinkLoop(ctx)
	go r.acceptLoop(ctx)

	if r.status != nil {
		r.status.SetSnapshotFunc(r.snapshot)
		go func() {
			if err := r.status.Run(ctx); err != nil {
				r.log.Warn("status server stopped", "error", err)
			}
		}()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-r.events:
			r.handle(ev)
			r.publishStatus()
		}
	}
}

func (r *Router) handle(ev event) {
	switch e := ev.(type) {
	case linkFrameEvent:
		r.handleLinkFrame(e.frame, e.ifIndex)
	case acceptEvent:
		r.handleAccept(e.conn)
	case identifiedEvent:
		r.handleIdentified(e.conn, e.id)
	case pingFrameEvent:
		r.handlePingFrame(e.frame)
	case pingClosedEvent:
		r.handlePingClosed()
	case routingFrameEvent:
		r.handleRoutingFrame(e.frame)
	case routingClosedEvent:
		r.handleRoutingClosed()
	default:
		r.log.Warn("unhandled router event", "type", fmt.Sprintf("%T", ev))
	}
}

func (r *Router) publishStatus() {
	if r.status != nil {
		r.status.Publish(r.snapshot())
	}
}

func (r *Router) snapshot() status.Snapshot {
	ifNames := make([]string, len(r.ifs))
	for i, ifi := range r.ifs {
		ifNames[i] = ifi.Name
	}
	return status.Snapshot{
		MIP:              r.mip,
		Interfaces:       ifNames,
		ARPCacheSize:     r.arp.Count(),
		PendingARPCount:  r.arpQ.Len(),
		ForwardFIFOLen:   r.fifo.Len(),
		PingConnected:    r.pingConn != nil,
		RoutingConnected: r.routingConn != nil,
	}
}
