//go:build linux

package link

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Socket is one AF_PACKET/SOCK_RAW descriptor bound to EtherType,
// shared by every interface this node sends and receives on. The
// kernel demultiplexes by interface on Recvfrom and the caller
// addresses Send explicitly, so one descriptor is enough regardless of
// how many interfaces are bound.
type Socket struct {
	fd int
}

// Open creates and binds the raw socket. Requires CAP_NET_RAW (or
// root); the caller is expected to fail startup on error.
func Open() (*Socket, error) {
	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, int(htons(EtherType)))
	if err != nil {
		return nil, fmt.Errorf("opening raw socket (requires CAP_NET_RAW): %w", err)
	}

	addr := &unix.SockaddrLinklayer{
		Protocol: htons(EtherType),
	}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("binding raw socket: %w", err)
	}

	return &Socket{fd: fd}, nil
}

// Close releases the raw socket.
func (s *Socket) Close() error {
	return unix.Close(s.fd)
}

// Send addresses frame at dstMAC out ifi, via Sendto on the shared raw
// socket.
func (s *Socket) Send(frame []byte, ifi Interface, dstMAC [6]byte) error {
	addr := ifi.sendAddr
	addr.Halen = 6
	addr.Addr = [8]byte{dstMAC[0], dstMAC[1], dstMAC[2], dstMAC[3], dstMAC[4], dstMAC[5]}

	if err := unix.Sendto(s.fd, frame, 0, &addr); err != nil {
		return fmt.Errorf("sendto interface %s: %w", ifi.Name, err)
	}
	return nil
}

// Recv blocks for the next frame on any bound interface and returns it
// along with the kernel index of the interface it arrived on.
func (s *Socket) Recv(buf []byte) (n int, ifIndex int, err error) {
	n, from, err := unix.Recvfrom(s.fd, buf, 0)
	if err != nil {
		return 0, 0, fmt.Errorf("recvfrom: %w", err)
	}
	ll, ok := from.(*unix.SockaddrLinklayer)
	if !ok {
		return 0, 0, fmt.Errorf("recvfrom: unexpected address type %T", from)
	}
	return n, ll.Ifindex, nil
}
