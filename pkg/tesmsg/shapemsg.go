package tesmsg

import "github.com/tes-go/tesproto/pkg/wire"

// CreateMessage is the fixed header every shape's OIDCreate payload
// begins with: id, category, flags, reserved, then attributes whose
// precision is selected by Flags&OFDoublePrecision. Shape-specific
// create payloads append their own fields after ObjectAttributes.
type CreateMessage struct {
	ID         uint32
	Category   uint16
	Flags      ObjectFlag
	Reserved   uint16
	Attributes ObjectAttributes
}

// Write encodes the header and attributes. The caller writes any
// shape-specific tail after this returns.
func (m CreateMessage) Write(w *wire.Writer) error {
	if err := w.WriteU32(m.ID); err != nil {
		return err
	}
	if err := w.WriteU16(m.Category); err != nil {
		return err
	}
	if err := w.WriteU16(uint16(m.Flags)); err != nil {
		return err
	}
	if err := w.WriteU16(m.Reserved); err != nil {
		return err
	}
	return m.Attributes.Write(w, m.Flags&OFDoublePrecision != 0)
}

// Read decodes the header and attributes. The caller reads any
// shape-specific tail after this returns.
func (m *CreateMessage) Read(r *wire.Reader) error {
	var err error
	if m.ID, err = r.ReadU32(); err != nil {
		return err
	}
	if m.Category, err = r.ReadU16(); err != nil {
		return err
	}
	flags, err := r.ReadU16()
	if err != nil {
		return err
	}
	m.Flags = ObjectFlag(flags)
	if m.Reserved, err = r.ReadU16(); err != nil {
		return err
	}
	return m.Attributes.Read(r, m.Flags&OFDoublePrecision != 0)
}

// UpdateMessage is a shape's OIDUpdate payload: id, flags, then
// attributes at the precision Flags selects. UFUpdateMode set means
// only the attribute groups named by UFPosition/UFRotation/UFScale/
// UFColour replace the cached instance; unset means all attributes do.
type UpdateMessage struct {
	ID         uint32
	Flags      ObjectFlag
	Attributes ObjectAttributes
}

// Write encodes m onto w.
func (m UpdateMessage) Write(w *wire.Writer) error {
	if err := w.WriteU32(m.ID); err != nil {
		return err
	}
	if err := w.WriteU16(uint16(m.Flags)); err != nil {
		return err
	}
	return m.Attributes.Write(w, m.Flags&OFDoublePrecision != 0)
}

// Read decodes an UpdateMessage from r.
func (m *UpdateMessage) Read(r *wire.Reader) error {
	var err error
	if m.ID, err = r.ReadU32(); err != nil {
		return err
	}
	flags, err := r.ReadU16()
	if err != nil {
		return err
	}
	m.Flags = ObjectFlag(flags)
	return m.Attributes.Read(r, m.Flags&OFDoublePrecision != 0)
}

// HasAttributeGroup reports whether update-mode selects the given
// attribute group bit (one of UFPosition, UFRotation, UFScale,
// UFColour). When UFUpdateMode is unset every group is implicitly
// selected.
func (m UpdateMessage) HasAttributeGroup(group ObjectFlag) bool {
	if m.Flags&UFUpdateMode == 0 {
		return true
	}
	return m.Flags&group != 0
}

// DestroyMessage is a shape's OIDDestroy payload: just the id.
type DestroyMessage struct {
	ID uint32
}

// Write encodes m onto w.
func (m DestroyMessage) Write(w *wire.Writer) error {
	return w.WriteU32(m.ID)
}

// Read decodes a DestroyMessage from r.
func (m *DestroyMessage) Read(r *wire.Reader) error {
	var err error
	m.ID, err = r.ReadU32()
	return err
}

// DataMessage is the fixed header a complex shape's OIDData payload
// begins with: just the id. The shape-specific payload (e.g. a mesh
// resource transfer chunk) follows, written by the caller.
type DataMessage struct {
	ID uint32
}

// Write encodes m onto w.
func (m DataMessage) Write(w *wire.Writer) error {
	return w.WriteU32(m.ID)
}

// Read decodes a DataMessage from r.
func (m *DataMessage) Read(r *wire.Reader) error {
	var err error
	m.ID, err = r.ReadU32()
	return err
}
