package wire

import "fmt"

// InfiniteDistance is the wire-level sentinel for "no route", carried
// in UPD triplets and RES next-hop bytes.
const InfiniteDistance byte = 0xFF

// RouteKind identifies the routing-daemon local-socket message kind.
type RouteKind byte

const (
	RouteHello RouteKind = iota
	RouteUpdate
	RouteRequest
	RouteResponse
)

func (k RouteKind) tag() [3]byte {
	switch k {
	case RouteHello:
		return [3]byte{'H', 'E', 'L'}
	case RouteUpdate:
		return [3]byte{'U', 'P', 'D'}
	case RouteRequest:
		return [3]byte{'R', 'E', 'Q'}
	case RouteResponse:
		return [3]byte{'R', 'E', 'S'}
	default:
		return [3]byte{}
	}
}

func tagToKind(tag [3]byte) (RouteKind, error) {
	switch tag {
	case [3]byte{'H', 'E', 'L'}:
		return RouteHello, nil
	case [3]byte{'U', 'P', 'D'}:
		return RouteUpdate, nil
	case [3]byte{'R', 'E', 'Q'}:
		return RouteRequest, nil
	case [3]byte{'R', 'E', 'S'}:
		return RouteResponse, nil
	default:
		return 0, fmt.Errorf("decode route: unknown tag %q", tag)
	}
}

// RouteEntry is one {destination, next_hop, distance} triplet of a UPD
// message.
type RouteEntry struct {
	Dest     byte
	NextHop  byte
	Distance byte // InfiniteDistance means unreachable
}

// RouteMsg is a routing-daemon local-socket message: the 5-byte header
// plus the trailer appropriate to Kind (triplets for UPD, a single
// next-hop byte for RES, a single destination byte for REQ, nothing for
// HELLO).
type RouteMsg struct {
	Src     byte
	TTL     byte
	Kind    RouteKind
	Entries []RouteEntry // RouteUpdate
	NextHop byte         // RouteResponse
	Dest    byte         // RouteRequest
}

// EncodeRoute serializes msg to its local-socket wire form.
func EncodeRoute(msg RouteMsg) []byte {
	tag := msg.Kind.tag()
	head := []byte{msg.Src, msg.TTL, tag[0], tag[1], tag[2]}

	switch msg.Kind {
	case RouteUpdate:
		trailer := make([]byte, 0, 3*len(msg.Entries))
		for _, e := range msg.Entries {
			trailer = append(trailer, e.Dest, e.NextHop, e.Distance)
		}
		return append(head, trailer...)
	case RouteResponse:
		return append(head, msg.NextHop)
	case RouteRequest:
		return append(head, msg.Dest)
	default: // RouteHello
		return head
	}
}

// DecodeRoute parses a local-socket routing message.
func DecodeRoute(buf []byte) (RouteMsg, error) {
	if len(buf) < 5 {
		return RouteMsg{}, fmt.Errorf("decode route: need at least 5 bytes, got %d", len(buf))
	}

	kind, err := tagToKind([3]byte{buf[2], buf[3], buf[4]})
	if err != nil {
		return RouteMsg{}, err
	}

	msg := RouteMsg{Src: buf[0], TTL: buf[1], Kind: kind}
	trailer := buf[5:]

	switch kind {
	case RouteUpdate:
		if len(trailer)%3 != 0 {
			return RouteMsg{}, fmt.Errorf("decode route: UPD trailer length %d not a multiple of 3", len(trailer))
		}
		for i := 0; i < len(trailer); i += 3 {
			msg.Entries = append(msg.Entries, RouteEntry{
				Dest:     trailer[i],
				NextHop:  trailer[i+1],
				Distance: trailer[i+2],
			})
		}
	case RouteResponse:
		if len(trailer) < 1 {
			return RouteMsg{}, fmt.Errorf("decode route: RES missing next-hop byte")
		}
		msg.NextHop = trailer[0]
	case RouteRequest:
		if len(trailer) < 1 {
			return RouteMsg{}, fmt.Errorf("decode route: REQ missing destination byte")
		}
		msg.Dest = trailer[0]
	case RouteHello:
		// no trailer
	}

	return msg, nil
}
