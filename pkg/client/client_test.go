package client

import (
	"bytes"
	"io"
	"testing"

	"github.com/tes-go/tesproto/pkg/tesmsg"
	"github.com/tes-go/tesproto/pkg/wire"
)

// recordingHandler counts calls and remembers the last create id seen.
type recordingHandler struct {
	creates, updates, destroys, data int
	frames                           []bool
	resets                           int
	lastCreateID                     uint32
}

func (h *recordingHandler) HandleCreate(r *wire.Reader) error {
	h.creates++
	var msg tesmsg.CreateMessage
	if err := msg.Read(r); err != nil {
		return err
	}
	h.lastCreateID = msg.ID
	return nil
}

func (h *recordingHandler) HandleUpdate(r *wire.Reader) error  { h.updates++; return nil }
func (h *recordingHandler) HandleDestroy(r *wire.Reader) error { h.destroys++; return nil }
func (h *recordingHandler) HandleData(r *wire.Reader) error    { h.data++; return nil }
func (h *recordingHandler) Reset()                             { h.resets++ }
func (h *recordingHandler) FinaliseFrame(persist bool)         { h.frames = append(h.frames, persist) }

type chunkSource struct {
	buf *bytes.Buffer
}

func (s *chunkSource) Read(p []byte) (int, error) {
	if s.buf.Len() == 0 {
		return 0, io.EOF
	}
	return s.buf.Read(p)
}

func buildServerInfoPacket(t *testing.T) []byte {
	t.Helper()
	w := wire.NewWriter(0)
	w.Begin(tesmsg.RIDServerInfo, 0, false)
	info := tesmsg.ServerInfoMessage{TimeUnit: 1000, DefaultFrameTime: 33}
	if err := info.Write(w); err != nil {
		t.Fatalf("write server info: %v", err)
	}
	packet, err := w.Finalise()
	if err != nil {
		t.Fatalf("finalise: %v", err)
	}
	return append([]byte(nil), packet...)
}

func buildCreatePacket(t *testing.T, id uint32) []byte {
	t.Helper()
	w := wire.NewWriter(0)
	w.Begin(tesmsg.RIDSphere, tesmsg.OIDCreate, false)
	msg := tesmsg.CreateMessage{ID: id, Attributes: tesmsg.DefaultObjectAttributes()}
	if err := msg.Write(w); err != nil {
		t.Fatalf("write create: %v", err)
	}
	packet, err := w.Finalise()
	if err != nil {
		t.Fatalf("finalise: %v", err)
	}
	return append([]byte(nil), packet...)
}

func buildFramePacket(t *testing.T, deltaTicks uint32) []byte {
	t.Helper()
	w := wire.NewWriter(0)
	w.Begin(tesmsg.RIDControl, tesmsg.CIDFrame, false)
	msg := tesmsg.ControlMessage{Value32: deltaTicks}
	if err := msg.Write(w); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	packet, err := w.Finalise()
	if err != nil {
		t.Fatalf("finalise: %v", err)
	}
	return append([]byte(nil), packet...)
}

func TestStreamThreadDispatchesCreateAndFrame(t *testing.T) {
	var stream bytes.Buffer
	stream.Write(buildServerInfoPacket(t))
	stream.Write(buildCreatePacket(t, 7))
	stream.Write(buildFramePacket(t, 0))

	thread := New(&chunkSource{buf: &stream})
	h := &recordingHandler{}
	thread.Register(tesmsg.RIDSphere, h)

	if err := thread.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if h.creates != 1 || h.lastCreateID != 7 {
		t.Fatalf("got creates=%d lastID=%d, want 1/7", h.creates, h.lastCreateID)
	}
	if len(h.frames) != 1 || h.frames[0] != false {
		t.Fatalf("got frames=%v, want one non-persistent frame", h.frames)
	}
	if thread.FrameNumber() != 1 {
		t.Fatalf("got frame number %d, want 1", thread.FrameNumber())
	}
}

func TestStreamThreadResetClearsHandlers(t *testing.T) {
	var stream bytes.Buffer
	stream.Write(buildServerInfoPacket(t))
	stream.Write(buildCreatePacket(t, 1))

	w := wire.NewWriter(0)
	w.Begin(tesmsg.RIDControl, tesmsg.CIDReset, false)
	if err := (tesmsg.ControlMessage{}).Write(w); err != nil {
		t.Fatalf("write reset: %v", err)
	}
	resetPacket, err := w.Finalise()
	if err != nil {
		t.Fatalf("finalise: %v", err)
	}
	stream.Write(resetPacket)

	w2 := wire.NewWriter(0)
	w2.Begin(tesmsg.RIDControl, tesmsg.CIDEnd, false)
	if err := (tesmsg.ControlMessage{}).Write(w2); err != nil {
		t.Fatalf("write end: %v", err)
	}
	endPacket, err := w2.Finalise()
	if err != nil {
		t.Fatalf("finalise: %v", err)
	}
	stream.Write(endPacket)

	thread := New(&chunkSource{buf: &stream})
	h := &recordingHandler{}
	thread.Register(tesmsg.RIDSphere, h)

	if err := thread.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Reset fires once from CIDReset, plus once from the initial
	// ServerInfo packet.
	if h.resets != 2 {
		t.Fatalf("got %d resets, want 2", h.resets)
	}
	if !thread.Ended() {
		t.Fatalf("expected stream to report ended after Control/End")
	}
}
