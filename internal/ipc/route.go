package ipc

import (
	"fmt"
	"net"

	"github.com/multiib/mipd/internal/wire"
)

// maxRouteFrame bounds a routing-daemon datagram: 5-byte header plus a
// full-table UPD trailer for the largest configured node count.
const maxRouteFrame = 5 + 255*3

// WriteRoute encodes msg and writes it as one datagram on conn.
func WriteRoute(conn net.Conn, msg wire.RouteMsg) error {
	if _, err := conn.Write(wire.EncodeRoute(msg)); err != nil {
		return fmt.Errorf("writing route message: %w", err)
	}
	return nil
}

// ReadRoute blocks for the next datagram on conn and decodes it as a
// route message.
func ReadRoute(conn net.Conn) (wire.RouteMsg, error) {
	buf := make([]byte, maxRouteFrame)
	n, err := conn.Read(buf)
	if err != nil {
		return wire.RouteMsg{}, fmt.Errorf("reading route message: %w", err)
	}
	msg, err := wire.DecodeRoute(buf[:n])
	if err != nil {
		return wire.RouteMsg{}, fmt.Errorf("decoding route message: %w", err)
	}
	return msg, nil
}

// WriteMIPAddress sends the router's local MIP address as the single
// reply byte a routing daemon reads right after identifying itself.
func WriteMIPAddress(conn net.Conn, mip byte) error {
	if _, err := conn.Write([]byte{mip}); err != nil {
		return fmt.Errorf("writing local MIP address: %w", err)
	}
	return nil
}

// ReadMIPAddress reads the router's local MIP address, the first thing
// a routing daemon reads after sending its identifier byte.
func ReadMIPAddress(conn net.Conn) (byte, error) {
	buf := make([]byte, 1)
	n, err := conn.Read(buf)
	if err != nil {
		return 0, fmt.Errorf("reading local MIP address: %w", err)
	}
	if n != 1 {
		return 0, fmt.Errorf("local MIP address message had length %d, want 1", n)
	}
	return buf[0], nil
}
