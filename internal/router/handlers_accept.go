package router

import (
	"net"

	"github.com/multiib/mipd/internal/ipc"
)

// handleAccept spawns a goroutine that reads a newly accepted
// connection's identifier byte and reports it back as an event. Only
// one ping endpoint and one routing daemon are allowed; a connection
// identifying as either role while one is already bound is rejected.
func (r *Router) handleAccept(conn net.Conn) {
	go func() {
		id, err := ipc.ReadIdentifier(conn)
		if err != nil {
			r.log.Debug("peer identification failed", "error", err)
			conn.Close()
			return
		}
		select {
		case r.events <- identifiedEvent{conn: conn, id: byte(id)}:
		case <-r.runCtx.Done():
			conn.Close()
		}
	}()
}

func (r *Router) handleIdentified(conn net.Conn, id byte) {
	switch ipc.Identifier(id) {
	case ipc.IdentifierPing:
		if r.pingConn != nil {
			r.log.Warn("rejecting second ping endpoint connection")
			conn.Close()
			return
		}
		r.pingConn = conn
		r.returnCtx = nil
		go r.readPingLoop(r.runCtx, conn)
		r.log.Info("ping endpoint connected")

	case ipc.IdentifierRouting:
		if r.routingConn != nil {
			r.log.Warn("rejecting second routing daemon connection")
			conn.Close()
			return
		}
		r.routingConn = conn
		if err := ipc.WriteMIPAddress(conn, r.mip); err != nil {
			r.log.Warn("writing local MIP address to routing daemon", "error", err)
			conn.Close()
			r.routingConn = nil
			return
		}
		go r.readRoutingLoop(r.runCtx, conn)
		r.log.Info("routing daemon connected")

	default:
		r.log.Warn("unknown peer identifier, closing", "id", id)
		conn.Close()
	}
}
