package server

import (
	"fmt"
	"os"

	"github.com/tes-go/tesproto/pkg/connection"
	"github.com/tes-go/tesproto/pkg/tesmsg"
	"github.com/tes-go/tesproto/pkg/wire"
)

// countingFileSink is a fileSink that additionally tracks the current
// write offset so Recorder can remember exactly where the frame-count
// placeholder packet landed.
type countingFileSink struct {
	f      *os.File
	offset int64
}

func (s *countingFileSink) Write(b []byte) error {
	n, err := s.f.Write(b)
	s.offset += int64(n)
	return err
}

func (s *countingFileSink) Close() error { return s.f.Close() }

// Recorder is a file-backed Connection that implements the full
// replay file format of spec §4.12: a server-info preamble, a
// frame-count placeholder patched with the real count on Close, a
// trailing Control/End packet, and a CBOR manifest sidecar written
// next to the recording.
type Recorder struct {
	*connection.Connection
	f                *os.File
	sink             *countingFileSink
	path             string
	frameCountOffset int64
	frames           uint32
}

// OpenRecorder creates a recording connection at path: it truncates
// (or creates) the file, writes the ServerInfo preamble followed by a
// zeroed frame-count control packet whose offset is remembered for
// Close to patch, and registers the connection so the shape API
// broadcasts to it alongside any socket or serial connections.
func (s *Server) OpenRecorder(path string) (*Recorder, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("server: open recorder %s: %w", path, err)
	}
	sink := &countingFileSink{f: f}
	c := connection.New(sink, true, s.settings.Compress, s.settings.CompressLevel, s.settings.ByteBudget)
	if err := c.SendServerInfo(s.settings.ServerInfo); err != nil {
		f.Close()
		return nil, err
	}
	// SendServerInfo only queues the packet for collation; flush it so
	// sink.offset is where the placeholder lands.
	if err := c.Flush(); err != nil {
		f.Close()
		return nil, err
	}

	offset := sink.offset
	packet, err := FrameCountPacket(0)
	if err != nil {
		f.Close()
		return nil, err
	}
	if err := c.WriteStandalone(packet); err != nil {
		f.Close()
		return nil, err
	}

	r := &Recorder{Connection: c, f: f, sink: sink, path: path, frameCountOffset: offset}
	s.mu.Lock()
	s.conns = append(s.conns, c)
	s.mu.Unlock()
	return r, nil
}

// UpdateFrame advances the recording by one frame, in addition to the
// embedded Connection's wire behaviour, so Close can patch the true
// frame count.
func (r *Recorder) UpdateFrame(deltaTime uint32, flush bool) error {
	if err := r.Connection.UpdateFrame(deltaTime, flush); err != nil {
		return err
	}
	r.frames++
	return nil
}

// Close writes the Control/End packet, patches the frame-count packet
// in place with the real frame count (recomputing its CRC so the
// patched bytes remain self-consistent, per spec §4.12), writes the
// CBOR manifest sidecar, then closes the underlying file.
func (r *Recorder) Close() error {
	endPkt, err := EndPacket()
	if err == nil {
		_ = r.Connection.WriteStandalone(endPkt)
	}

	// Frames emitted through Server.UpdateFrame advance the embedded
	// Connection too, so its count covers both routes.
	r.frames = r.Connection.FrameNumber()
	patched, perr := FrameCountPacket(r.frames)
	if perr == nil {
		if _, werr := r.f.WriteAt(patched, r.frameCountOffset); werr != nil && err == nil {
			err = fmt.Errorf("server: patch frame count: %w", werr)
		}
	} else if err == nil {
		err = perr
	}

	manifest := Manifest{FrameCount: r.frames}
	if merr := WriteManifest(r.path+".manifest", manifest); merr != nil && err == nil {
		err = merr
	}

	if cerr := r.Connection.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// FrameCountPacket builds a standalone Control/FrameCount packet
// reporting frames. Exported so other recording tools (cmd/tes-record)
// that manage their own file offsets can patch the same way Recorder
// does.
func FrameCountPacket(frames uint32) ([]byte, error) {
	pw := wire.NewWriter(wire.HeaderSize + 16 + wire.CRCSize)
	pw.Begin(tesmsg.RIDControl, tesmsg.CIDFrameCount, false)
	if err := (tesmsg.ControlMessage{Value32: frames}).Write(pw); err != nil {
		return nil, err
	}
	return pw.Finalise()
}

// EndPacket builds a standalone Control/End packet marking the end of
// a recorded stream.
func EndPacket() ([]byte, error) {
	pw := wire.NewWriter(wire.HeaderSize + 16 + wire.CRCSize)
	pw.Begin(tesmsg.RIDControl, tesmsg.CIDEnd, false)
	if err := (tesmsg.ControlMessage{}).Write(pw); err != nil {
		return nil, err
	}
	return pw.Finalise()
}
