// Package collate implements the collated-packet envelope: a normal
// packet whose payload is a concatenation of zero or more complete
// inner packets, optionally deflate-compressed. See spec §4.4.
package collate

import (
	"bytes"
	"compress/flate"
	"errors"
	"io"

	"github.com/tes-go/tesproto/pkg/wire"
)

// RoutingID is the routing id used for collated-packet envelopes.
const RoutingID uint16 = 3

// Flag bits for the collated-packet header.
type Flag uint16

const (
	// FlagCompress indicates the envelope payload is deflate-compressed.
	FlagCompress Flag = 1 << 0
)

// CompressionLevel mirrors the original CollatedPacketZip's level
// table (None, Low, Medium, High, VeryHigh), mapped onto
// compress/flate's level range.
type CompressionLevel int

const (
	LevelNone CompressionLevel = iota
	LevelLow
	LevelMedium
	LevelHigh
	LevelVeryHigh

	// LevelDefault matches the original's CompressionLevel::Default.
	LevelDefault = LevelMedium
)

// flateLevel converts a CompressionLevel into the level compress/flate
// expects, following kTesToGZipCompressionLevel from the original
// implementation.
func flateLevel(level CompressionLevel) int {
	switch level {
	case LevelNone:
		return flate.NoCompression
	case LevelLow:
		return 3
	case LevelMedium:
		return 5
	case LevelHigh:
		return 7
	case LevelVeryHigh:
		return flate.BestCompression
	default:
		return 5
	}
}

// ErrWouldOverflow is returned by Append when adding a packet would
// exceed the envelope's byte budget.
var ErrWouldOverflow = errors.New("collate: would overflow budget")

// envelopeHeaderSize is the size of the CollatedPacketMessage header
// (flags uint16, reserved uint16, uncompressedBytes uint32).
const envelopeHeaderSize = 8

// Writer accumulates complete inner packets into one collated
// envelope, optionally compressing the concatenation on Finalise.
type Writer struct {
	budget       int
	level        CompressionLevel
	compress     bool
	uncompressed bytes.Buffer
}

// Open resets the writer for a new envelope with the given byte
// budget (the maximum total size of the finalised envelope packet,
// including its own header and CRC) and compression settings.
func (w *Writer) Open(budget int, compress bool, level CompressionLevel) {
	w.budget = budget
	w.compress = compress
	w.level = level
	w.uncompressed.Reset()
}

// Len returns the number of uncompressed bytes buffered so far.
func (w *Writer) Len() int {
	return w.uncompressed.Len()
}

// WouldOverflow reports whether appending n more raw bytes risks
// exceeding the byte budget. It is conservative: it assumes no
// compression benefit, since compression ratio is unknown until
// Finalise.
func (w *Writer) WouldOverflow(n int) bool {
	overhead := wire.HeaderSize + envelopeHeaderSize + wire.CRCSize
	return w.uncompressed.Len()+n+overhead > w.budget
}

// Append adds a complete inner packet to the pending envelope. It
// fails with ErrWouldOverflow without mutating the writer if adding
// packet would overflow the configured budget.
func (w *Writer) Append(packet []byte) error {
	if w.WouldOverflow(len(packet)) {
		return ErrWouldOverflow
	}
	w.uncompressed.Write(packet)
	return nil
}

// Finalise emits the collated envelope packet: a normal packet with
// RoutingID whose payload is the CollatedPacketMessage header
// followed by the (optionally deflated) concatenation of appended
// packets.
func (w *Writer) Finalise(pw *wire.Writer, noCRC bool) ([]byte, error) {
	uncompressedBytes := w.uncompressed.Bytes()

	var body []byte
	flags := Flag(0)
	if w.compress && len(uncompressedBytes) > 0 {
		var buf bytes.Buffer
		fw, err := flate.NewWriter(&buf, flateLevel(w.level))
		if err != nil {
			return nil, err
		}
		if _, err := fw.Write(uncompressedBytes); err != nil {
			return nil, err
		}
		if err := fw.Close(); err != nil {
			return nil, err
		}
		body = buf.Bytes()
		flags |= FlagCompress
	} else {
		body = uncompressedBytes
	}

	pw.Begin(RoutingID, 0, noCRC)
	if err := pw.WriteU16(uint16(flags)); err != nil {
		return nil, err
	}
	if err := pw.WriteU16(0); err != nil { // reserved
		return nil, err
	}
	if err := pw.WriteU32(uint32(len(uncompressedBytes))); err != nil {
		return nil, err
	}
	if err := pw.WriteRaw(body); err != nil {
		return nil, err
	}
	return pw.Finalise()
}

// Decoder reassembles the inner packets out of a collated envelope
// (or passes a non-collated packet through verbatim, so callers can
// treat all incoming packets uniformly).
type Decoder struct {
	inner  []byte
	offset int
}

// SetPacket loads a new packet (which may or may not be collated) for
// iteration via Next.
func (d *Decoder) SetPacket(packet []byte) error {
	r := wire.NewReader(packet)
	h, err := r.Header()
	if err != nil {
		return err
	}
	if h.RoutingID != RoutingID {
		d.inner = packet
		d.offset = 0
		return nil
	}

	flagsRaw, err := r.ReadU16()
	if err != nil {
		return err
	}
	if _, err := r.ReadU16(); err != nil { // reserved
		return err
	}
	uncompressedBytes, err := r.ReadU32()
	if err != nil {
		return err
	}
	body, err := r.Peek(int(h.PayloadSize) - envelopeHeaderSize)
	if err != nil {
		return err
	}

	if Flag(flagsRaw)&FlagCompress != 0 {
		fr := flate.NewReader(bytes.NewReader(body))
		defer fr.Close()
		out := make([]byte, 0, uncompressedBytes)
		buf := make([]byte, 4096)
		for {
			n, err := fr.Read(buf)
			if n > 0 {
				out = append(out, buf[:n]...)
			}
			if err == io.EOF {
				break
			}
			if err != nil {
				return err
			}
		}
		d.inner = out
	} else {
		d.inner = append([]byte(nil), body...)
	}
	d.offset = 0
	return nil
}

// Next returns the next inner packet, or (nil, false) when the
// envelope is exhausted.
func (d *Decoder) Next() ([]byte, bool, error) {
	if d.offset >= len(d.inner) {
		return nil, false, nil
	}
	remaining := d.inner[d.offset:]
	if len(remaining) < wire.HeaderSize {
		return nil, false, wire.ErrTruncated
	}
	r := wire.NewReader(remaining)
	h, err := r.Header()
	if err != nil {
		return nil, false, err
	}
	total := h.TotalSize()
	if total > len(remaining) {
		return nil, false, wire.ErrTruncated
	}
	packet := remaining[:total]
	d.offset += total
	return packet, true, nil
}
