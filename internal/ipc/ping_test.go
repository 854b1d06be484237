package ipc

import (
	"bytes"
	"testing"
)

func TestPingFrameRoundTrip(t *testing.T) {
	t.Parallel()

	f := PingFrame{Dst: 20, TTL: 5, Kind: Ping, Payload: []byte("hello")}
	buf := EncodePingFrame(f)

	got, err := DecodePingFrame(buf)
	if err != nil {
		t.Fatalf("DecodePingFrame: %v", err)
	}
	if got.Dst != f.Dst || got.TTL != f.TTL || got.Kind != f.Kind {
		t.Errorf("round trip = %+v, want %+v", got, f)
	}
	if !bytes.Equal(got.Payload, f.Payload) {
		t.Errorf("Payload = %q, want %q", got.Payload, f.Payload)
	}
}

func TestPongFrameRoundTrip(t *testing.T) {
	t.Parallel()

	f := PingFrame{Dst: 10, TTL: 4, Kind: Pong, Payload: []byte("hello")}
	buf := EncodePingFrame(f)

	got, err := DecodePingFrame(buf)
	if err != nil {
		t.Fatalf("DecodePingFrame: %v", err)
	}
	if got.Kind != Pong {
		t.Errorf("Kind = %v, want Pong", got.Kind)
	}
}

func TestDecodePingFrameRejectsShort(t *testing.T) {
	t.Parallel()

	if _, err := DecodePingFrame([]byte{1, 2}); err == nil {
		t.Fatal("expected error for short frame")
	}
}

func TestDecodePingFrameRejectsUnknownTag(t *testing.T) {
	t.Parallel()

	buf := append([]byte{20, 5}, "XXXXXhello"...)
	if _, err := DecodePingFrame(buf); err == nil {
		t.Fatal("expected error for unrecognized tag")
	}
}

func TestEncodePingFrameEmptyPayload(t *testing.T) {
	t.Parallel()

	buf := EncodePingFrame(PingFrame{Dst: 1, TTL: 1, Kind: Ping})
	got, err := DecodePingFrame(buf)
	if err != nil {
		t.Fatalf("DecodePingFrame: %v", err)
	}
	if len(got.Payload) != 0 {
		t.Errorf("Payload = %q, want empty", got.Payload)
	}
}
