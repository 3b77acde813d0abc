package resource

import "github.com/tes-go/tesproto/pkg/wire"

// elementBytes returns the wire size of one vector component as
// writeComponent encodes it for dst (8 bytes for DSTFloat64, 4 for
// every other type), used to decide how many elements fit in
// byteBudget.
func elementBytes(dst DataStreamType) int {
	switch dst {
	case DSTFloat64:
		return 8
	default:
		return 4
	}
}

// chunkHeaderSize is the DataMessage id plus the per-chunk element
// count and starting offset that precede each data payload.
const chunkHeaderSize = 4 + 4 + 4 // id + offset + count, written by the caller's DataMessage + these two fields

// writeVec3Chunk writes as many remaining [3]float64 elements starting
// at offset as fit within byteBudget, each component written as
// float64 when dst is DSTFloat64 and as float32 for every other dst
// (vectors are always written unpacked per spec.md §4.7/§9: scale-free
// coordinates stay exact at the requested precision). It returns
// whether the stream is now fully sent and the new offset.
func writeVec3Chunk(w *wire.Writer, values [][3]float64, offset, byteBudget int, dst DataStreamType) (done bool, newOffset int, err error) {
	total := len(values)
	if offset >= total {
		return true, offset, nil
	}
	elemSize := elementBytes(dst) * 3
	budget := byteBudget - chunkHeaderSize
	count := budget / elemSize
	if count <= 0 {
		count = 1
	}
	end := offset + count
	if end > total {
		end = total
	}
	if err := w.WriteU32(uint32(offset)); err != nil {
		return false, offset, err
	}
	if err := w.WriteU32(uint32(end - offset)); err != nil {
		return false, offset, err
	}
	for _, v := range values[offset:end] {
		if err := writeComponent(w, v[0], dst); err != nil {
			return false, offset, err
		}
		if err := writeComponent(w, v[1], dst); err != nil {
			return false, offset, err
		}
		if err := writeComponent(w, v[2], dst); err != nil {
			return false, offset, err
		}
	}
	return end >= total, end, nil
}

// writeVec2Chunk is writeVec3Chunk's analogue for [2]float64 streams
// (UV coordinates), always at float32 precision.
func writeVec2Chunk(w *wire.Writer, values [][2]float64, offset, byteBudget int) (done bool, newOffset int, err error) {
	total := len(values)
	if offset >= total {
		return true, offset, nil
	}
	elemSize := 4 * 2
	budget := byteBudget - chunkHeaderSize
	count := budget / elemSize
	if count <= 0 {
		count = 1
	}
	end := offset + count
	if end > total {
		end = total
	}
	if err := w.WriteU32(uint32(offset)); err != nil {
		return false, offset, err
	}
	if err := w.WriteU32(uint32(end - offset)); err != nil {
		return false, offset, err
	}
	for _, v := range values[offset:end] {
		if err := w.WriteF32(float32(v[0])); err != nil {
			return false, offset, err
		}
		if err := w.WriteF32(float32(v[1])); err != nil {
			return false, offset, err
		}
	}
	return end >= total, end, nil
}

// writeU32Chunk writes as many remaining uint32 elements (indices or
// packed colours) starting at offset as fit within byteBudget.
func writeU32Chunk(w *wire.Writer, values []uint32, offset, byteBudget int) (done bool, newOffset int, err error) {
	total := len(values)
	if offset >= total {
		return true, offset, nil
	}
	budget := byteBudget - chunkHeaderSize
	count := budget / 4
	if count <= 0 {
		count = 1
	}
	end := offset + count
	if end > total {
		end = total
	}
	if err := w.WriteU32(uint32(offset)); err != nil {
		return false, offset, err
	}
	if err := w.WriteU32(uint32(end - offset)); err != nil {
		return false, offset, err
	}
	for _, v := range values[offset:end] {
		if err := w.WriteU32(v); err != nil {
			return false, offset, err
		}
	}
	return end >= total, end, nil
}

func writeComponent(w *wire.Writer, v float64, dst DataStreamType) error {
	if dst == DSTFloat64 {
		return w.WriteF64(v)
	}
	return w.WriteF32(float32(v))
}
