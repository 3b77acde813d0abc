// Package pstream implements the packet-stream reader: it consumes an
// arbitrary byte stream and yields whole, CRC-validated packets,
// resynchronising on corruption rather than failing permanently. See
// spec §4.8.
package pstream

import (
	"bytes"
	"encoding/binary"

	"github.com/tes-go/tesproto/pkg/wire"
)

// Reader accumulates fed bytes and yields validated packets one at a
// time. It is not safe for concurrent use.
type Reader struct {
	buf []byte
}

// NewReader constructs an empty Reader.
func NewReader() *Reader {
	return &Reader{}
}

// Feed appends newly received bytes to the internal scratch buffer.
func (r *Reader) Feed(b []byte) {
	r.buf = append(r.buf, b...)
}

// Buffered returns the number of bytes currently held, pending either
// a complete packet or more data.
func (r *Reader) Buffered() int {
	return len(r.buf)
}

var markerBytes = func() []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, wire.Marker)
	return b
}()

// Next scans for the next validated packet. It returns (packet, true,
// nil) when one is ready, (nil, false, nil) when more data is needed
// (wire.ErrTruncated internally, never surfaced as an error — the
// caller simply feeds more and calls Next again), or a non-nil error
// only for conditions Feed cannot recover from by itself.
//
// On a CRC mismatch the scan advances one byte past the found marker
// and continues searching, so a corrupted stream resynchronises
// instead of stalling forever.
func (r *Reader) Next() ([]byte, bool, error) {
	for {
		idx := bytes.Index(r.buf, markerBytes)
		if idx < 0 {
			// No marker found; keep only enough trailing bytes to catch a
			// marker split across Feed calls.
			if len(r.buf) > len(markerBytes)-1 {
				r.buf = r.buf[len(r.buf)-(len(markerBytes)-1):]
			}
			return nil, false, nil
		}
		if idx > 0 {
			r.buf = r.buf[idx:]
		}
		if len(r.buf) < wire.HeaderSize {
			return nil, false, nil
		}

		rdr := wire.NewReader(r.buf)
		h, err := rdr.Header()
		if err != nil {
			// Marker matched by coincidence inside non-header bytes; skip it.
			r.buf = r.buf[1:]
			continue
		}
		total := h.TotalSize()
		if len(r.buf) < total {
			return nil, false, nil
		}

		packet := r.buf[:total]
		if h.HasCRC() {
			if err := rdr.VerifyCRC(); err != nil {
				// Resync: advance past this marker and keep scanning.
				r.buf = r.buf[1:]
				continue
			}
		}
		r.buf = r.buf[total:]
		return packet, true, nil
	}
}
