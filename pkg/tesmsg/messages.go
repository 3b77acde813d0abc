package tesmsg

import "github.com/tes-go/tesproto/pkg/wire"

// serverInfoReservedBytes pads ServerInfoMessage to a fixed 48 byte
// wire size (8-byte time unit, 4-byte default frame time, 1-byte
// coordinate frame, 35 reserved bytes), leaving room for future fields
// without a version bump.
const serverInfoReservedBytes = 35

// ServerInfoMessage is sent once, immediately after a client connects,
// on RIDServerInfo. It carries the units a recording's time deltas and
// coordinate frame are expressed in.
type ServerInfoMessage struct {
	// TimeUnit is the duration, in microseconds, of one frame time
	// unit. CIDFrame's Value32 delta is expressed in these units.
	TimeUnit uint64
	// DefaultFrameTime is the frame delta, in time units, a client
	// should assume until the first CIDFrame message arrives.
	DefaultFrameTime uint32
	CoordinateFrame  CoordinateFrame
}

// Write encodes m onto w, which must already have Begin(RIDServerInfo, 0, ...) called.
func (m ServerInfoMessage) Write(w *wire.Writer) error {
	if err := w.WriteU64(m.TimeUnit); err != nil {
		return err
	}
	if err := w.WriteU32(m.DefaultFrameTime); err != nil {
		return err
	}
	if err := w.WriteU8(uint8(m.CoordinateFrame)); err != nil {
		return err
	}
	var reserved [serverInfoReservedBytes]byte
	return w.WriteRaw(reserved[:])
}

// Read decodes a ServerInfoMessage from r.
func (m *ServerInfoMessage) Read(r *wire.Reader) error {
	var err error
	if m.TimeUnit, err = r.ReadU64(); err != nil {
		return err
	}
	if m.DefaultFrameTime, err = r.ReadU32(); err != nil {
		return err
	}
	frame, err := r.ReadU8()
	if err != nil {
		return err
	}
	m.CoordinateFrame = CoordinateFrame(frame)
	var reserved [serverInfoReservedBytes]byte
	return r.ReadRaw(reserved[:])
}

// ControlMessage carries one of the CIDxxx control ids on RIDControl.
// The meaning of Value32 and Value64 depends on the control id: for
// CIDFrame, Value32 is the frame delta time in server time units; for
// CIDFrameCount and CIDKeyframe, Value32 is a frame number.
type ControlMessage struct {
	ControlFlags ControlFlag
	Value32      uint32
	Value64      uint64
}

// Write encodes m onto w, which must already have Begin(RIDControl, controlID, ...) called.
func (m ControlMessage) Write(w *wire.Writer) error {
	if err := w.WriteU32(uint32(m.ControlFlags)); err != nil {
		return err
	}
	if err := w.WriteU32(m.Value32); err != nil {
		return err
	}
	return w.WriteU64(m.Value64)
}

// Read decodes a ControlMessage from r.
func (m *ControlMessage) Read(r *wire.Reader) error {
	flags, err := r.ReadU32()
	if err != nil {
		return err
	}
	m.ControlFlags = ControlFlag(flags)
	if m.Value32, err = r.ReadU32(); err != nil {
		return err
	}
	m.Value64, err = r.ReadU64()
	return err
}

// CategoryNameMessage names a category, optionally nesting it under a
// parent category, on RIDCategory/CMIDName. Categories let a viewer
// toggle groups of shapes on or off together.
type CategoryNameMessage struct {
	CategoryID    uint16
	ParentID      uint16
	DefaultActive uint16
	Name          string
}

// Write encodes m onto w. The name is written as its declared byte
// length followed by its raw bytes; it is not null-terminated on the
// wire.
func (m CategoryNameMessage) Write(w *wire.Writer) error {
	if err := w.WriteU16(m.CategoryID); err != nil {
		return err
	}
	if err := w.WriteU16(m.ParentID); err != nil {
		return err
	}
	if err := w.WriteU16(m.DefaultActive); err != nil {
		return err
	}
	name := []byte(m.Name)
	if err := w.WriteU16(uint16(len(name))); err != nil {
		return err
	}
	return w.WriteRaw(name)
}

// Read decodes a CategoryNameMessage from r.
func (m *CategoryNameMessage) Read(r *wire.Reader) error {
	var err error
	if m.CategoryID, err = r.ReadU16(); err != nil {
		return err
	}
	if m.ParentID, err = r.ReadU16(); err != nil {
		return err
	}
	if m.DefaultActive, err = r.ReadU16(); err != nil {
		return err
	}
	nameLen, err := r.ReadU16()
	if err != nil {
		return err
	}
	raw := make([]byte, nameLen)
	if err := r.ReadRaw(raw); err != nil {
		return err
	}
	m.Name = string(raw)
	return nil
}
