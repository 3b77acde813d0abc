package shapes

import (
	"github.com/tes-go/tesproto/pkg/tesmsg"
	"github.com/tes-go/tesproto/pkg/wire"
)

// Text2D is a screen- or world-space text label. scale.x is a size
// hint; scale.y/z are unused.
type Text2D struct {
	Base
	text string
}

// NewText2D constructs a Text2D with the given label text.
func NewText2D(id uint32, text string) *Text2D {
	t := &Text2D{Base: NewBase(id), text: text}
	t.WithScale(1, 1, 1)
	return t
}

// Text returns the label text.
func (t *Text2D) Text() string { return t.text }

// WithWorldSpace sets or clears Text2DFWorldSpace and returns t for chaining.
func (t *Text2D) WithWorldSpace(worldSpace bool) *Text2D {
	if worldSpace {
		t.WithFlags(tesmsg.Text2DFWorldSpace)
	} else {
		t.clearFlags(tesmsg.Text2DFWorldSpace)
	}
	return t
}

// RoutingID implements Shape.
func (t *Text2D) RoutingID() tesmsg.RoutingID { return tesmsg.RIDText2D }

// WriteCreate implements Shape: the common header followed by the
// text's declared UTF-8 byte length and raw bytes.
func (t *Text2D) WriteCreate(w *wire.Writer) error {
	if err := t.writeCreate(w); err != nil {
		return err
	}
	return writeText(w, t.text)
}

// Text3D is a world- or screen-facing 3D text label. scale.x is a
// size hint; scale.y/z are unused.
type Text3D struct {
	Base
	text string
}

// NewText3D constructs a Text3D with the given label text.
func NewText3D(id uint32, text string) *Text3D {
	t := &Text3D{Base: NewBase(id), text: text}
	t.WithScale(1, 1, 1)
	return t
}

// Text returns the label text.
func (t *Text3D) Text() string { return t.text }

// WithScreenFacing sets or clears Text3DFScreenFacing and returns t
// for chaining.
func (t *Text3D) WithScreenFacing(screenFacing bool) *Text3D {
	if screenFacing {
		t.WithFlags(tesmsg.Text3DFScreenFacing)
	} else {
		t.clearFlags(tesmsg.Text3DFScreenFacing)
	}
	return t
}

// RoutingID implements Shape.
func (t *Text3D) RoutingID() tesmsg.RoutingID { return tesmsg.RIDText3D }

// WriteCreate implements Shape: the common header followed by the
// text's declared UTF-8 byte length and raw bytes.
func (t *Text3D) WriteCreate(w *wire.Writer) error {
	if err := t.writeCreate(w); err != nil {
		return err
	}
	return writeText(w, t.text)
}

// writeText appends a 16-bit declared length followed by raw UTF-8
// bytes, matching CategoryNameMessage's inline-string convention.
func writeText(w *wire.Writer, text string) error {
	raw := []byte(text)
	if err := w.WriteU16(uint16(len(raw))); err != nil {
		return err
	}
	return w.WriteRaw(raw)
}

// readText reads a 16-bit declared length followed by raw UTF-8
// bytes.
func readText(r *wire.Reader) (string, error) {
	n, err := r.ReadU16()
	if err != nil {
		return "", err
	}
	raw := make([]byte, n)
	if err := r.ReadRaw(raw); err != nil {
		return "", err
	}
	return string(raw), nil
}
