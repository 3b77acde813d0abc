package tesmsg

import "github.com/tes-go/tesproto/pkg/wire"

// ObjectAttributes carries a shape instance's transform and colour.
// The original implementation duplicates this as two template
// instantiations over float and double; here a single type carries
// float64 fields in memory and chooses single- or double-precision
// encoding on the wire from the shape's DoublePrecision flag, so the
// precision split is purely a serialisation concern.
type ObjectAttributes struct {
	Colour   uint32
	Position [3]float64
	Rotation [4]float64 // x, y, z, w
	Scale    [3]float64
}

// DefaultObjectAttributes returns the attributes a newly constructed
// shape carries before any fluent setter runs: opaque white, identity
// transform, unit scale.
func DefaultObjectAttributes() ObjectAttributes {
	return ObjectAttributes{
		Colour:   0xffffffff,
		Rotation: [4]float64{0, 0, 0, 1},
		Scale:    [3]float64{1, 1, 1},
	}
}

// Write encodes a onto w at single or double precision depending on
// double.
func (a ObjectAttributes) Write(w *wire.Writer, double bool) error {
	if err := w.WriteU32(a.Colour); err != nil {
		return err
	}
	if double {
		return writeVecs64(w, a.Position[:], a.Rotation[:], a.Scale[:])
	}
	return writeVecs32(w, a.Position[:], a.Rotation[:], a.Scale[:])
}

// Read decodes an ObjectAttributes from r at single or double
// precision depending on double.
func (a *ObjectAttributes) Read(r *wire.Reader, double bool) error {
	colour, err := r.ReadU32()
	if err != nil {
		return err
	}
	a.Colour = colour
	if double {
		return readVecs64(r, a.Position[:], a.Rotation[:], a.Scale[:])
	}
	return readVecs32(r, a.Position[:], a.Rotation[:], a.Scale[:])
}

func writeVecs32(w *wire.Writer, vecs ...[]float64) error {
	for _, v := range vecs {
		for _, f := range v {
			if err := w.WriteF32(float32(f)); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeVecs64(w *wire.Writer, vecs ...[]float64) error {
	for _, v := range vecs {
		for _, f := range v {
			if err := w.WriteF64(f); err != nil {
				return err
			}
		}
	}
	return nil
}

func readVecs32(r *wire.Reader, vecs ...[]float64) error {
	for _, v := range vecs {
		for i := range v {
			f, err := r.ReadF32()
			if err != nil {
				return err
			}
			v[i] = float64(f)
		}
	}
	return nil
}

func readVecs64(r *wire.Reader, vecs ...[]float64) error {
	for _, v := range vecs {
		for i := range v {
			f, err := r.ReadF64()
			if err != nil {
				return err
			}
			v[i] = f
		}
	}
	return nil
}
