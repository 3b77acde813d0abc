// Package wire implements the 3es packet framing primitives: little-endian
// read/write of fixed width values, the CRC-16 used to guard a packet, and
// the PacketWriter/PacketReader pair that build and parse a single framed
// packet.
package wire

import "errors"

// Sentinel errors returned by the codec and framer. Callers should use
// errors.Is against these rather than comparing strings.
var (
	// ErrShortRead is returned when a read would consume more bytes than
	// remain in the source buffer.
	ErrShortRead = errors.New("wire: short read")
	// ErrBufferFull is returned when a write would exceed the destination
	// buffer's capacity.
	ErrBufferFull = errors.New("wire: buffer full")
	// ErrTruncated is returned when a packet's declared payload size is
	// larger than the bytes actually available.
	ErrTruncated = errors.New("wire: truncated packet")
	// ErrBadCRC is returned when a packet's trailing CRC does not match
	// the CRC computed over the header and payload.
	ErrBadCRC = errors.New("wire: bad crc")
	// ErrBadMarker is returned when a buffer does not begin with the
	// protocol's magic marker.
	ErrBadMarker = errors.New("wire: bad marker")
	// ErrPayloadTooLarge is returned when a payload would push the total
	// packet size past 65535 bytes.
	ErrPayloadTooLarge = errors.New("wire: payload too large")
)
