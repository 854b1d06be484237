package routing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/multiib/mipd/internal/config"
	"github.com/multiib/mipd/internal/ipc"
	"github.com/multiib/mipd/internal/wire"
)

// Daemon is the routing process: it connects to the router's local
// socket as the routing identity, then runs the emit loop and the
// receive loop side by side over a shared Table.
type Daemon struct {
	cfg  config.Config
	conn net.Conn
	mip  byte
	log  *slog.Logger

	table *Table
}

// Connect dials the router's local socket, identifies as the routing
// daemon, and reads back the local MIP address the router assigns.
func Connect(socketPath string, cfg config.Config, log *slog.Logger) (*Daemon, error) {
	if log == nil {
		log = slog.Default()
	}

	conn, err := ipc.Dial(socketPath, ipc.IdentifierRouting)
	if err != nil {
		return nil, fmt.Errorf("connecting to router: %w", err)
	}

	mip, err := ipc.ReadMIPAddress(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("reading local MIP address: %w", err)
	}

	return &Daemon{
		cfg:   cfg,
		conn:  conn,
		mip:   mip,
		log:   log.With("component", "routingd", "mip", mip),
		table: NewTable(mip),
	}, nil
}

// Close closes the router connection.
func (d *Daemon) Close() error {
	return d.conn.Close()
}

// Run starts the emit loop and the receive loop and blocks until ctx
// is cancelled or the router connection drops.
func (d *Daemon) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	go func() {
		errCh <- d.emitLoop(ctx)
	}()
	go func() {
		errCh <- d.receiveLoop(ctx)
	}()

	select {
	case <-ctx.Done():
		d.conn.Close()
		<-errCh
		<-errCh
		return ctx.Err()
	case err := <-errCh:
		d.conn.Close()
		return err
	}
}

// emitLoop sends a HELLO every HelloInterval and, if the table changed
// since the last tick, a full UPD; it then runs the neighbour-timeout
// sweep.
func (d *Daemon) emitLoop(ctx context.Context) error {
	ticker := time.NewTicker(d.cfg.HelloInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := d.sendHello(); err != nil {
				d.log.Warn("sending HELLO", "error", err)
			}

			if d.table.TakeChanged() {
				if err := d.sendUpdate(); err != nil {
					d.log.Warn("sending UPD", "error", err)
				}
			}

			if d.table.CheckTimeouts(time.Now(), d.cfg.TimeoutInterval) {
				d.log.Info("neighbour timeout, table invalidated")
			}
		}
	}
}

func (d *Daemon) sendHello() error {
	return ipc.WriteRoute(d.conn, wire.RouteMsg{Src: d.mip, Kind: wire.RouteHello})
}

func (d *Daemon) sendUpdate() error {
	entries := d.table.Entries()
	return ipc.WriteRoute(d.conn, wire.RouteMsg{Src: d.mip, Kind: wire.RouteUpdate, Entries: entries})
}

// receiveLoop reads one message at a time from the router connection
// and dispatches it. Malformed messages are logged and dropped; the
// connection is never closed because of one.
func (d *Daemon) receiveLoop(ctx context.Context) error {
	buf := make([]byte, 5+255*3)
	for {
		n, err := d.conn.Read(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("reading from router: %w", err)
		}
		msg, err := wire.DecodeRoute(buf[:n])
		if err != nil {
			d.log.Warn("dropping malformed route message", "error", err)
			continue
		}
		d.handle(msg)
	}
}

func (d *Daemon) handle(msg wire.RouteMsg) {
	switch msg.Kind {
	case wire.RouteHello:
		d.table.HandleHello(msg.Src, time.Now())

	case wire.RouteUpdate:
		for _, e := range msg.Entries {
			d.table.HandleUpdate(msg.Src, e)
		}

	case wire.RouteRequest:
		nextHop := d.table.Lookup(msg.Dest)
		resp := wire.RouteMsg{Src: d.mip, Kind: wire.RouteResponse, NextHop: nextHop}
		if err := ipc.WriteRoute(d.conn, resp); err != nil {
			d.log.Warn("sending RES", "error", err)
		}

	default:
		d.log.Debug("dropping unexpected message kind", "kind", msg.Kind)
	}
}
