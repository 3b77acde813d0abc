package collate

import (
	"bytes"
	"testing"

	"github.com/tes-go/tesproto/pkg/wire"
)

func buildPacket(t *testing.T, routingID, messageID uint16, n byte) []byte {
	t.Helper()
	w := wire.NewWriter(0)
	w.Begin(routingID, messageID, false)
	for i := byte(0); i < n; i++ {
		if err := w.WriteU8(i); err != nil {
			t.Fatalf("WriteU8: %v", err)
		}
	}
	pkt, err := w.Finalise()
	if err != nil {
		t.Fatalf("Finalise: %v", err)
	}
	return pkt
}

func TestCollateRoundTripUncompressed(t *testing.T) {
	packets := [][]byte{
		buildPacket(t, 64, 1, 3),
		buildPacket(t, 65, 1, 10),
		buildPacket(t, 64, 3, 0),
	}

	var cw Writer
	cw.Open(64*1024, false, LevelNone)
	for _, p := range packets {
		if err := cw.Append(p); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	pw := wire.NewWriter(0)
	envelope, err := cw.Finalise(pw, false)
	if err != nil {
		t.Fatalf("Finalise: %v", err)
	}

	var dec Decoder
	if err := dec.SetPacket(envelope); err != nil {
		t.Fatalf("SetPacket: %v", err)
	}
	var got [][]byte
	for {
		p, ok, err := dec.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
		got = append(got, append([]byte(nil), p...))
	}
	if len(got) != len(packets) {
		t.Fatalf("got %d packets, want %d", len(got), len(packets))
	}
	for i := range packets {
		if !bytes.Equal(got[i], packets[i]) {
			t.Errorf("packet %d mismatch", i)
		}
	}
}

func TestCollateRoundTripCompressed(t *testing.T) {
	var packets [][]byte
	for i := 0; i < 100; i++ {
		packets = append(packets, buildPacket(t, 71, 1, 16))
	}

	var cw Writer
	cw.Open(16*1024, true, LevelMedium)
	for _, p := range packets {
		if err := cw.Append(p); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	pw := wire.NewWriter(0)
	envelope, err := cw.Finalise(pw, false)
	if err != nil {
		t.Fatalf("Finalise: %v", err)
	}
	if len(envelope) >= 16*1024 {
		t.Fatalf("expected compressed envelope under 16KiB, got %d", len(envelope))
	}

	var dec Decoder
	if err := dec.SetPacket(envelope); err != nil {
		t.Fatalf("SetPacket: %v", err)
	}
	count := 0
	for {
		p, ok, err := dec.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
		if !bytes.Equal(p, packets[count]) {
			t.Fatalf("packet %d mismatch", count)
		}
		count++
	}
	if count != len(packets) {
		t.Fatalf("got %d packets, want %d", count, len(packets))
	}
}

func TestCollateNonCollatedPassthrough(t *testing.T) {
	p := buildPacket(t, 64, 1, 5)
	var dec Decoder
	if err := dec.SetPacket(p); err != nil {
		t.Fatalf("SetPacket: %v", err)
	}
	got, ok, err := dec.Next()
	if err != nil || !ok {
		t.Fatalf("Next: %v, %v", ok, err)
	}
	if !bytes.Equal(got, p) {
		t.Fatalf("non-collated packet not returned verbatim")
	}
	if _, ok, _ := dec.Next(); ok {
		t.Fatalf("expected exhaustion after single passthrough packet")
	}
}

func TestCollateWouldOverflow(t *testing.T) {
	var cw Writer
	cw.Open(wire.HeaderSize+envelopeHeaderSize+wire.CRCSize+4, false, LevelNone)
	big := buildPacket(t, 64, 1, 200)
	if err := cw.Append(big); err != ErrWouldOverflow {
		t.Fatalf("expected ErrWouldOverflow, got %v", err)
	}
}
