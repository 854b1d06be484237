package router

import (
	"context"
	"errors"
	"net"
)

// maxFrame bounds one Ethernet frame read off the raw socket: standard
// MTU plus the 14-byte link header, rounded up generously.
const maxFrame = 2048

// readLinkLoop reads frames off the raw link socket and forwards them
// as events. It never touches router state directly.
func (r *Router) readLinkLoop(ctx context.Context) {
	buf := make([]byte, maxFrame)
	for {
		if ctx.Err() != nil {
			return
		}
		n, ifIndex, err := r.sock.Recv(buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			r.log.Debug("link recv error", "error", err)
			continue
		}
		frame := make([]byte, n)
		copy(frame, buf[:n])
		select {
		case r.events <- linkFrameEvent{frame: frame, ifIndex: ifIndex}:
		case <-ctx.Done():
			return
		}
	}
}

// acceptLoop accepts local-socket connections and hands each off to a
// reader goroutine once its identifier byte is known.
func (r *Router) acceptLoop(ctx context.Context) {
	for {
		conn, err := r.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			r.log.Debug("accept error", "error", err)
			continue
		}
		select {
		case r.events <- acceptEvent{conn: conn}:
		case <-ctx.Done():
			conn.Close()
			return
		}
	}
}

// readPingLoop forwards frames from the accepted ping endpoint
// connection until it closes or ctx is cancelled.
func (r *Router) readPingLoop(ctx context.Context, conn net.Conn) {
	buf := make([]byte, maxFrame)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			select {
			case r.events <- pingClosedEvent{}:
			case <-ctx.Done():
			}
			return
		}
		frame := make([]byte, n)
		copy(frame, buf[:n])
		select {
		case r.events <- pingFrameEvent{frame: frame}:
		case <-ctx.Done():
			return
		}
	}
}

// readRoutingLoop forwards route messages from the accepted routing
// daemon connection until it closes or ctx is cancelled.
func (r *Router) readRoutingLoop(ctx context.Context, conn net.Conn) {
	buf := make([]byte, maxFrame)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			select {
			case r.events <- routingClosedEvent{}:
			case <-ctx.Done():
			}
			return
		}
		frame := make([]byte, n)
		copy(frame, buf[:n])
		select {
		case r.events <- routingFrameEvent{frame: frame}:
		case <-ctx.Done():
			return
		}
	}
}
