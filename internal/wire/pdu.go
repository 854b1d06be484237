package wire

import (
	"encoding/binary"
	"fmt"
)

// LinkLen is the size, in bytes, of the Ethernet header carried by a PDU
// (destination MAC + source MAC + Ethertype). The payload-length field
// of a captured frame on the wire excludes this prefix.
const LinkLen = 14

// PDU is a full MIP protocol data unit: the Ethernet link header, the
// 32-bit MIP header, and the SDU payload. SDU is always a whole number
// of 32-bit words (Header.SduLen*4 bytes). Serialize never pads it —
// callers build it already word-aligned — and Deserialize keeps exactly
// SduLen*4 bytes, dropping any trailing bytes of the frame.
type PDU struct {
	DstMAC [6]byte
	SrcMAC [6]byte
	Header Header
	SDU    []byte
}

// PadWords rounds payload up to a whole number of 32-bit words, zero
// padding the tail, and returns the padded bytes along with the word
// count for Header.SduLen.
func PadWords(payload []byte) (padded []byte, words uint16) {
	n := len(payload)
	rem := n % 4
	if rem == 0 {
		padded = make([]byte, n)
		copy(padded, payload)
		return padded, uint16(n / 4)
	}
	padLen := n + (4 - rem)
	padded = make([]byte, padLen)
	copy(padded, payload)
	return padded, uint16(padLen / 4)
}

// Serialize writes the Ethernet frame for p: 6-byte destination MAC,
// 6-byte source MAC, 2-byte Ethertype 0x88B5, the 4-byte MIP header,
// then len(p.SDU) bytes of SDU, all in network byte order.
func Serialize(p PDU) ([]byte, error) {
	if int(p.Header.SduLen)*4 != len(p.SDU) {
		return nil, fmt.Errorf("serialize: sdu_len=%d words but SDU is %d bytes", p.Header.SduLen, len(p.SDU))
	}

	out := make([]byte, LinkLen+HeaderLen+len(p.SDU))
	copy(out[0:6], p.DstMAC[:])
	copy(out[6:12], p.SrcMAC[:])
	binary.BigEndian.PutUint16(out[12:14], EtherType)

	hdr := EncodeHeader(p.Header)
	copy(out[14:18], hdr[:])
	copy(out[18:], p.SDU)

	return out, nil
}

// Deserialize parses a received Ethernet frame into a PDU, validating
// the Ethertype, the declared SDU length against the bytes actually
// present, and that the SDU type is one this stack understands.
// Malformed frames return an error; the caller (the router) drops them.
func Deserialize(frame []byte) (PDU, error) {
	if len(frame) < LinkLen+HeaderLen {
		return PDU{}, fmt.Errorf("deserialize: frame too short (%d bytes)", len(frame))
	}

	ethertype := binary.BigEndian.Uint16(frame[12:14])
	if ethertype != EtherType {
		return PDU{}, fmt.Errorf("deserialize: ethertype %#04x is not MIP", ethertype)
	}

	hdr, err := DecodeHeader(frame[14:18])
	if err != nil {
		return PDU{}, err
	}

	switch hdr.SduType {
	case SduARP, SduPing, SduRoute:
	default:
		return PDU{}, fmt.Errorf("deserialize: unknown sdu_type %#x", byte(hdr.SduType))
	}

	sduBytes := int(hdr.SduLen) * 4
	available := frame[18:]
	if sduBytes > len(available) {
		return PDU{}, fmt.Errorf("deserialize: sdu_len declares %d bytes, only %d received", sduBytes, len(available))
	}

	p := PDU{Header: hdr}
	copy(p.DstMAC[:], frame[0:6])
	copy(p.SrcMAC[:], frame[6:12])
	p.SDU = append([]byte(nil), available[:sduBytes]...)

	return p, nil
}
