package wire

import (
	"encoding/binary"
	"math"
)

// All values on the 3es wire are little-endian; no alignment is assumed
// or produced. These helpers mirror the read/writeElement pairs of the
// original C++ PacketReader/PacketWriter, but operate on plain byte
// slices so the framer (packet.go) can build on top of them without a
// cyclic dependency.

func readU8(buf []byte, offset int) (uint8, error) {
	if offset+1 > len(buf) {
		return 0, ErrShortRead
	}
	return buf[offset], nil
}

func writeU8(buf []byte, offset int, v uint8) error {
	if offset+1 > len(buf) {
		return ErrBufferFull
	}
	buf[offset] = v
	return nil
}

func readU16(buf []byte, offset int) (uint16, error) {
	if offset+2 > len(buf) {
		return 0, ErrShortRead
	}
	return binary.LittleEndian.Uint16(buf[offset:]), nil
}

func writeU16(buf []byte, offset int, v uint16) error {
	if offset+2 > len(buf) {
		return ErrBufferFull
	}
	binary.LittleEndian.PutUint16(buf[offset:], v)
	return nil
}

func readU32(buf []byte, offset int) (uint32, error) {
	if offset+4 > len(buf) {
		return 0, ErrShortRead
	}
	return binary.LittleEndian.Uint32(buf[offset:]), nil
}

func writeU32(buf []byte, offset int, v uint32) error {
	if offset+4 > len(buf) {
		return ErrBufferFull
	}
	binary.LittleEndian.PutUint32(buf[offset:], v)
	return nil
}

func readU64(buf []byte, offset int) (uint64, error) {
	if offset+8 > len(buf) {
		return 0, ErrShortRead
	}
	return binary.LittleEndian.Uint64(buf[offset:]), nil
}

func writeU64(buf []byte, offset int, v uint64) error {
	if offset+8 > len(buf) {
		return ErrBufferFull
	}
	binary.LittleEndian.PutUint64(buf[offset:], v)
	return nil
}

func readF32(buf []byte, offset int) (float32, error) {
	v, err := readU32(buf, offset)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

func writeF32(buf []byte, offset int, v float32) error {
	return writeU32(buf, offset, math.Float32bits(v))
}

func readF64(buf []byte, offset int) (float64, error) {
	v, err := readU64(buf, offset)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

func writeF64(buf []byte, offset int, v float64) error {
	return writeU64(buf, offset, math.Float64bits(v))
}
