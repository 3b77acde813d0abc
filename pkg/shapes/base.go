// Package shapes implements the in-memory shape model: the fourteen
// built-in shape kinds, their fluent construction API and their
// write_create/write_update/write_destroy/write_data wire contract.
// See spec §4.6 and the original implementation's 3esshape.h.
package shapes

import (
	"github.com/tes-go/tesproto/pkg/tesmsg"
	"github.com/tes-go/tesproto/pkg/wire"
)

// TransferResult is the outcome of one WriteData call on a Complex
// shape.
type TransferResult int

const (
	// TransferDone indicates the shape has no more data to stream.
	TransferDone TransferResult = iota
	// TransferMore indicates at least one more WriteData call is needed.
	TransferMore
	// TransferError indicates the transfer failed; see the returned error.
	TransferError
)

// Shape is satisfied by every shape kind. Simple shapes are fully
// described by Create alone; Complex shapes additionally implement
// the Complex interface below. ID, Transient and WriteDestroy are
// promoted from each concrete type's embedded Base.
type Shape interface {
	RoutingID() tesmsg.RoutingID
	ID() uint32
	Transient() bool
	Flags() tesmsg.ObjectFlag
	WriteCreate(w *wire.Writer) error
	WriteDestroy(w *wire.Writer) error
}

// Complex is implemented by shape kinds that stream one or more data
// packets after their create packet (MeshShape, MeshSet, PointCloud).
type Complex interface {
	Shape
	// WriteData serialises the next chunk of data into w, constrained
	// to byteBudget payload bytes, advancing progress. It returns
	// TransferDone once no further chunks remain.
	WriteData(w *wire.Writer, progress *uint64, byteBudget int) (TransferResult, error)
}

// Base holds the identity, flags and transform every shape kind
// embeds. Zero value is not useful; construct via NewBase.
type Base struct {
	id         uint32
	category   uint16
	flags      tesmsg.ObjectFlag
	attributes tesmsg.ObjectAttributes
}

// NewBase constructs a Base with the given persistent id (0 for
// transient) and opaque-white identity-transform defaults.
func NewBase(id uint32) Base {
	return Base{
		id:         id,
		attributes: tesmsg.DefaultObjectAttributes(),
	}
}

// ID returns the shape instance id. 0 means transient.
func (b *Base) ID() uint32 { return b.id }

// Transient reports whether the shape is auto-destroyed at the next
// frame boundary rather than living until an explicit destroy.
func (b *Base) Transient() bool { return b.id == 0 }

// Category returns the shape's viewer-filtering category.
func (b *Base) Category() uint16 { return b.category }

// WithCategory sets the category and returns b for chaining.
func (b *Base) WithCategory(category uint16) *Base {
	b.category = category
	return b
}

// Flags returns the current ObjectFlag bitset.
func (b *Base) Flags() tesmsg.ObjectFlag { return b.flags }

// WithFlags ORs extra bits into the flag set and returns b for chaining.
func (b *Base) WithFlags(flags tesmsg.ObjectFlag) *Base {
	b.flags |= flags
	return b
}

// clearFlags clears the given bits and returns b for chaining.
func (b *Base) clearFlags(flags tesmsg.ObjectFlag) *Base {
	b.flags &^= flags
	return b
}

// WithDoublePrecision sets or clears OFDoublePrecision.
func (b *Base) WithDoublePrecision(double bool) *Base {
	if double {
		b.flags |= tesmsg.OFDoublePrecision
	} else {
		b.flags &^= tesmsg.OFDoublePrecision
	}
	return b
}

// DoublePrecision reports whether attributes serialise at double
// precision.
func (b *Base) DoublePrecision() bool {
	return b.flags&tesmsg.OFDoublePrecision != 0
}

// Colour returns the packed RGBA colour.
func (b *Base) Colour() uint32 { return b.attributes.Colour }

// WithColour sets the packed RGBA colour and returns b for chaining.
func (b *Base) WithColour(rgba uint32) *Base {
	b.attributes.Colour = rgba
	return b
}

// Position returns the shape's position.
func (b *Base) Position() [3]float64 { return b.attributes.Position }

// WithPosition sets the position and returns b for chaining.
func (b *Base) WithPosition(x, y, z float64) *Base {
	b.attributes.Position = [3]float64{x, y, z}
	return b
}

// Rotation returns the shape's rotation quaternion in xyzw order.
func (b *Base) Rotation() [4]float64 { return b.attributes.Rotation }

// WithRotation sets the rotation quaternion (xyzw order) and returns b
// for chaining.
func (b *Base) WithRotation(x, y, z, w float64) *Base {
	b.attributes.Rotation = [4]float64{x, y, z, w}
	return b
}

// Scale returns the shape's scale vector. Its interpretation is
// shape-kind specific; see each kind's doc comment.
func (b *Base) Scale() [3]float64 { return b.attributes.Scale }

// WithScale sets the scale vector and returns b for chaining.
func (b *Base) WithScale(x, y, z float64) *Base {
	b.attributes.Scale = [3]float64{x, y, z}
	return b
}

// writeCreate serialises the common create header (id, category,
// flags, reserved, attributes) shared by every shape kind.
func (b *Base) writeCreate(w *wire.Writer) error {
	msg := tesmsg.CreateMessage{
		ID:         b.id,
		Category:   b.category,
		Flags:      b.flags,
		Attributes: b.attributes,
	}
	return msg.Write(w)
}

// WriteUpdate serialises id + flags + attributes for an update
// message replacing every attribute group.
func (b *Base) WriteUpdate(w *wire.Writer) error {
	msg := tesmsg.UpdateMessage{
		ID:         b.id,
		Flags:      b.flags &^ tesmsg.UFUpdateMode,
		Attributes: b.attributes,
	}
	return msg.Write(w)
}

// WriteDestroy serialises the shape's id alone.
func (b *Base) WriteDestroy(w *wire.Writer) error {
	msg := tesmsg.DestroyMessage{ID: b.id}
	return msg.Write(w)
}
