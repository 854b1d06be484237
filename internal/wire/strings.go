package wire

import (
	"encoding/binary"
	"fmt"
)

// StringToWords packs s into the MIP string encoding used by PING/PONG
// payloads: the first 32-bit word holds the byte length of s, and the
// following words hold s packed 4 bytes per word in big-endian order,
// the final word zero-padded if s's length isn't a multiple of 4.
func StringToWords(s string) []byte {
	n := len(s)
	wordCount := 1 + (n+3)/4 // length word + ceil(n/4) payload words
	buf := make([]byte, wordCount*4)

	binary.BigEndian.PutUint32(buf[0:4], uint32(n))
	copy(buf[4:], s)

	return buf
}

// WordsToString is the inverse of StringToWords: it reads the length
// from the first word and returns exactly that many bytes of the
// packed string that follows.
func WordsToString(sdu []byte) (string, error) {
	if len(sdu) < 4 {
		return "", fmt.Errorf("words to string: need at least 4 bytes, got %d", len(sdu))
	}

	n := binary.BigEndian.Uint32(sdu[0:4])
	rest := sdu[4:]
	if uint32(len(rest)) < n {
		return "", fmt.Errorf("words to string: declared length %d exceeds %d available bytes", n, len(rest))
	}

	return string(rest[:n]), nil
}
