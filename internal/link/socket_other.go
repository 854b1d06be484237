//go:build !linux

package link

import "fmt"

// Socket is the non-Linux stand-in: AF_PACKET raw sockets are a Linux
// facility, so mipd's link layer does not run elsewhere.
type Socket struct{}

// Open always fails outside Linux.
func Open() (*Socket, error) {
	return nil, fmt.Errorf("raw link-layer sockets are only supported on linux")
}

func (s *Socket) Close() error { return nil }

func (s *Socket) Send(frame []byte, ifi Interface, dstMAC [6]byte) error {
	return fmt.Errorf("raw link-layer sockets are only supported on linux")
}

func (s *Socket) Recv(buf []byte) (n int, ifIndex int, err error) {
	return 0, 0, fmt.Errorf("raw link-layer sockets are only supported on linux")
}
