package resource

import (
	"github.com/x448/float16"

	"github.com/tes-go/tesproto/pkg/wire"
)

// DataStreamType tags the element encoding of a mesh or point-cloud
// vertex/normal/uv/colour stream.
type DataStreamType uint8

const (
	DSTNone DataStreamType = iota
	DSTInt8
	DSTUInt8
	DSTInt16
	DSTUInt16
	DSTInt32
	DSTUInt32
	DSTFloat32
	DSTFloat64
	// DSTPackedFloat16 precedes the element array with a float32 scale;
	// each element is value/scale stored as an IEEE-754 half-precision
	// float.
	DSTPackedFloat16
	// DSTPackedFloat32 precedes the int32 array with a float64 scale.
	DSTPackedFloat32
)

// WriteFloatStream writes values as the given DataStreamType: a header
// (type uint8, count uint32 = len(values), then, for packed types, the
// scale) followed by the per-element array. For PackedFloat16/32 a
// scale of 0 triggers auto-selection of the scale that exactly spans
// the data's peak magnitude. Only DSTNone, DSTFloat32, DSTFloat64 and
// the two packed types are supported; the integer types return
// wire.ErrBadMarker after the header has been written.
func WriteFloatStream(w *wire.Writer, dst DataStreamType, values []float64, scale float64) error {
	if err := w.WriteU8(uint8(dst)); err != nil {
		return err
	}
	if err := w.WriteU32(uint32(len(values))); err != nil {
		return err
	}
	switch dst {
	case DSTFloat32:
		for _, v := range values {
			if err := w.WriteF32(float32(v)); err != nil {
				return err
			}
		}
	case DSTFloat64:
		for _, v := range values {
			if err := w.WriteF64(v); err != nil {
				return err
			}
		}
	case DSTPackedFloat16:
		if scale == 0 {
			scale = peakMagnitude(values) / float16MaxMagnitude
			if scale == 0 {
				scale = 1
			}
		}
		if err := w.WriteF32(float32(scale)); err != nil {
			return err
		}
		for _, v := range values {
			packed := float16.Fromfloat32(float32(v / scale))
			if err := w.WriteU16(uint16(packed)); err != nil {
				return err
			}
		}
	case DSTPackedFloat32:
		if scale == 0 {
			scale = peakMagnitude(values) / float32MaxMagnitude
			if scale == 0 {
				scale = 1
			}
		}
		if err := w.WriteF64(scale); err != nil {
			return err
		}
		for _, v := range values {
			if err := w.WriteI32(int32(v / scale)); err != nil {
				return err
			}
		}
	case DSTNone:
		// no payload
	default:
		return wire.ErrBadMarker
	}
	return nil
}

// ReadFloatStream is the symmetric decoder for WriteFloatStream. It
// returns the decoded type tag and values.
func ReadFloatStream(r *wire.Reader) (DataStreamType, []float64, error) {
	typeRaw, err := r.ReadU8()
	if err != nil {
		return 0, nil, err
	}
	dst := DataStreamType(typeRaw)
	count, err := r.ReadU32()
	if err != nil {
		return 0, nil, err
	}
	values := make([]float64, count)
	switch dst {
	case DSTFloat32:
		for i := range values {
			f, err := r.ReadF32()
			if err != nil {
				return dst, nil, err
			}
			values[i] = float64(f)
		}
	case DSTFloat64:
		for i := range values {
			f, err := r.ReadF64()
			if err != nil {
				return dst, nil, err
			}
			values[i] = f
		}
	case DSTPackedFloat16:
		scale, err := r.ReadF32()
		if err != nil {
			return dst, nil, err
		}
		for i := range values {
			packed, err := r.ReadU16()
			if err != nil {
				return dst, nil, err
			}
			values[i] = float64(float16.Float16(packed).Float32() * scale)
		}
	case DSTPackedFloat32:
		scale, err := r.ReadF64()
		if err != nil {
			return dst, nil, err
		}
		for i := range values {
			v, err := r.ReadI32()
			if err != nil {
				return dst, nil, err
			}
			values[i] = float64(v) * scale
		}
	case DSTNone:
		// no payload
	default:
		return dst, nil, wire.ErrBadMarker
	}
	return dst, values, nil
}

const (
	float16MaxMagnitude = 65504.0
	float32MaxMagnitude = 2147483647.0
)

func peakMagnitude(values []float64) float64 {
	var peak float64
	for _, v := range values {
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	return peak
}
