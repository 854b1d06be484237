// Package link owns the raw Ethernet I/O that everything else in mipd
// sits on top of: interface enumeration and one AF_PACKET/SOCK_RAW
// descriptor, shared by every bound interface, filtered to frames
// carrying the MIP Ethertype.
package link

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// EtherType is the MIP Ethertype, used both to bind the raw socket and
// to fill SockaddrLinklayer.Protocol on send.
const EtherType = 0x88B5

// Interface is one bound link-layer interface: its kernel index, MAC,
// and a pre-built send address so Socket.Send never has to reconstruct
// one per packet.
type Interface struct {
	Name         string
	Index        int
	HardwareAddr net.HardwareAddr

	sendAddr unix.SockaddrLinklayer
}

// htons converts a uint16 from host to network byte order.
func htons(v uint16) uint16 { return (v << 8) | (v >> 8) }

// Interfaces enumerates up to maxIF non-loopback, up, link-layer
// interfaces, in the order net.Interfaces() returns them. It returns an
// error if none survive the filter, since a router bound to zero
// interfaces can never forward anything.
func Interfaces(maxIF int) ([]Interface, error) {
	all, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("listing interfaces: %w", err)
	}

	var out []Interface
	for _, ifi := range all {
		if len(out) >= maxIF {
			break
		}
		if ifi.Flags&net.FlagLoopback != 0 {
			continue
		}
		if ifi.Flags&net.FlagUp == 0 {
			continue
		}
		if len(ifi.HardwareAddr) != 6 {
			continue
		}

		out = append(out, Interface{
			Name:         ifi.Name,
			Index:        ifi.Index,
			HardwareAddr: append(net.HardwareAddr(nil), ifi.HardwareAddr...),
			sendAddr: unix.SockaddrLinklayer{
				Protocol: htons(EtherType),
				Ifindex:  ifi.Index,
				Halen:    6,
			},
		})
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("no usable link-layer interfaces found (want up, non-loopback, with a hardware address)")
	}
	return out, nil
}

// ByIndex returns the interface in ifs with the given kernel index.
func ByIndex(ifs []Interface, index int) (Interface, bool) {
	for _, ifi := range ifs {
		if ifi.Index == index {
			return ifi, true
		}
	}
	return Interface{}, false
}

// ByName returns the interface in ifs with the given name.
func ByName(ifs []Interface, name string) (Interface, bool) {
	for _, ifi := range ifs {
		if ifi.Name == name {
			return ifi, true
		}
	}
	return Interface{}, false
}
