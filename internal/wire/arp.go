package wire

import (
	"encoding/binary"
	"fmt"
)

// ARP is the single 32-bit word MIP-ARP SDU: bit 31 is the request/reply
// flag, bits 30..23 carry the subject MIP address, and the remaining
// bits are reserved zero.
type ARP struct {
	Reply   bool
	Subject byte
}

// EncodeARP packs an ARP SDU into its one-word wire representation.
func EncodeARP(a ARP) []byte {
	var word uint32
	if a.Reply {
		word |= 1 << 31
	}
	word |= uint32(a.Subject) << 23

	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, word)
	return buf
}

// DecodeARP unpacks a one-word MIP-ARP SDU.
func DecodeARP(sdu []byte) (ARP, error) {
	if len(sdu) < 4 {
		return ARP{}, fmt.Errorf("decode arp: need 4 bytes, got %d", len(sdu))
	}
	word := binary.BigEndian.Uint32(sdu[:4])
	return ARP{
		Reply:   word&(1<<31) != 0,
		Subject: byte((word >> 23) & 0xFF),
	}, nil
}
