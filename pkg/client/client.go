// Package client implements the client-side stream thread: it reads
// an arbitrary byte source, decodes packets and collated envelopes,
// and dispatches each inner packet to a routing-id-keyed handler
// table, tracking frame boundaries and playback pacing. See spec
// §4.11.
package client

import (
	"errors"
	"io"
	"time"

	"github.com/tes-go/tesproto/pkg/collate"
	"github.com/tes-go/tesproto/pkg/pstream"
	"github.com/tes-go/tesproto/pkg/tesmsg"
	"github.com/tes-go/tesproto/pkg/wire"
)

// ErrStreamEnded is returned once Control/End has been observed; the
// stream thread should stop reading.
var ErrStreamEnded = errors.New("client: stream ended")

// Handler processes one inner packet routed to a particular routing
// id. Implementations are typically per-shape-kind caches that track
// live instances so a later snapshot can re-emit equivalent creates.
type Handler interface {
	// HandleCreate, HandleUpdate, HandleDestroy and HandleData receive
	// the already-positioned reader for a routing id's OIDCreate/
	// OIDUpdate/OIDDestroy/OIDData message respectively.
	HandleCreate(r *wire.Reader) error
	HandleUpdate(r *wire.Reader) error
	HandleDestroy(r *wire.Reader) error
	HandleData(r *wire.Reader) error
	// Reset clears all cached state for Control/Reset.
	Reset()
	// FinaliseFrame is called once per frame boundary so the handler
	// can flush transient shapes (those with id 0) unless persist is
	// set.
	FinaliseFrame(persist bool)
}

// Source is an arbitrary byte source: a socket, a file, a serial
// port.
type Source interface {
	Read(p []byte) (int, error)
}

// StreamThread owns a Source, decodes it into dispatched packets, and
// paces frame-driven playback. Playback mode (IsPlayback true) sleeps
// delta_ticks*TimeUnit between frames to recreate original timing;
// network mode dispatches as fast as data arrives.
type StreamThread struct {
	source     Source
	reader     *pstream.Reader
	decoder    collate.Decoder
	handlers   map[tesmsg.RoutingID]Handler
	IsPlayback bool

	timeUnit         uint64
	defaultFrameTime uint32
	frameNumber      uint32
	ended            bool

	readBuf [64 * 1024]byte
}

// New constructs a StreamThread over source with no handlers
// registered; call Register for each routing id of interest.
func New(source Source) *StreamThread {
	return &StreamThread{
		source:           source,
		reader:           pstream.NewReader(),
		handlers:         make(map[tesmsg.RoutingID]Handler),
		defaultFrameTime: 33,
		timeUnit:         1000,
	}
}

// Register associates handler with routingID. Replaces any previous
// registration.
func (s *StreamThread) Register(routingID tesmsg.RoutingID, handler Handler) {
	s.handlers[routingID] = handler
}

// FrameNumber returns the most recently completed frame number.
func (s *StreamThread) FrameNumber() uint32 { return s.frameNumber }

// Ended reports whether Control/End has been observed.
func (s *StreamThread) Ended() bool { return s.ended }

// Run pumps the source until EOF, ErrStreamEnded, or an
// unrecoverable error. It is the blocking entry point a caller
// typically runs on its own goroutine.
func (s *StreamThread) Run() error {
	for {
		if s.ended {
			return nil
		}
		if err := s.pump(); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// pump reads one chunk from the source, feeds it to the packet-stream
// reader, and dispatches every whole packet it yields.
func (s *StreamThread) pump() error {
	n, err := s.source.Read(s.readBuf[:])
	if n > 0 {
		s.reader.Feed(s.readBuf[:n])
		for {
			packet, ok, perr := s.reader.Next()
			if perr != nil {
				return perr
			}
			if !ok {
				break
			}
			if derr := s.dispatchPacket(packet); derr != nil {
				return derr
			}
			if s.ended {
				return nil
			}
		}
	}
	if err != nil {
		return err
	}
	return nil
}

// dispatchPacket unwraps a (possibly collated) packet into its inner
// packets and routes each to its handler.
func (s *StreamThread) dispatchPacket(packet []byte) error {
	if err := s.decoder.SetPacket(packet); err != nil {
		return err
	}
	for {
		inner, ok, err := s.decoder.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if err := s.dispatchInner(inner); err != nil {
			return err
		}
	}
	return nil
}

// dispatchInner routes a single inner packet by routing id.
func (s *StreamThread) dispatchInner(packet []byte) error {
	r := wire.NewReader(packet)
	h, err := r.Header()
	if err != nil {
		return err
	}
	if !wire.IsVersionCompatible(h.VersionMajor, h.VersionMinor,
		wire.CurrentVersionMajor, wire.CurrentVersionMinor,
		wire.CompatibilityVersionMajor, wire.CompatibilityVersionMinor) {
		return nil
	}
	if h.HasCRC() {
		if err := r.VerifyCRC(); err != nil {
			return nil
		}
	}

	switch h.RoutingID {
	case tesmsg.RIDServerInfo:
		return s.handleServerInfo(r)
	case tesmsg.RIDControl:
		return s.handleControl(r, h.MessageID)
	default:
		handler, ok := s.handlers[h.RoutingID]
		if !ok {
			return nil
		}
		return s.dispatchShapeMessage(handler, r, h.MessageID)
	}
}

func (s *StreamThread) dispatchShapeMessage(handler Handler, r *wire.Reader, messageID tesmsg.MessageID) error {
	switch messageID {
	case tesmsg.OIDCreate:
		return handler.HandleCreate(r)
	case tesmsg.OIDUpdate:
		return handler.HandleUpdate(r)
	case tesmsg.OIDDestroy:
		return handler.HandleDestroy(r)
	case tesmsg.OIDData:
		return handler.HandleData(r)
	default:
		return nil
	}
}

func (s *StreamThread) handleServerInfo(r *wire.Reader) error {
	var info tesmsg.ServerInfoMessage
	if err := info.Read(r); err != nil {
		return err
	}
	s.timeUnit = info.TimeUnit
	s.defaultFrameTime = info.DefaultFrameTime
	for _, h := range s.handlers {
		h.Reset()
	}
	return nil
}

func (s *StreamThread) handleControl(r *wire.Reader, controlID tesmsg.MessageID) error {
	var msg tesmsg.ControlMessage
	if err := msg.Read(r); err != nil {
		return err
	}
	switch controlID {
	case tesmsg.CIDFrame:
		s.frameNumber++
		persist := msg.ControlFlags&tesmsg.CFFramePersist != 0
		for _, h := range s.handlers {
			h.FinaliseFrame(persist)
		}
		if s.IsPlayback {
			s.pace(msg.Value32)
		}
	case tesmsg.CIDReset:
		for _, h := range s.handlers {
			h.Reset()
		}
		s.frameNumber = 0
	case tesmsg.CIDEnd:
		s.ended = true
	default:
		// CIDCoordinateFrame, CIDFrameCount, CIDForceFrameFlush, CIDKeyframe
		// carry no further client-side bookkeeping in this implementation.
	}
	return nil
}

// pace sleeps deltaTicks server time units, converting to wall-clock
// time via the time unit reported by ServerInfo (microseconds per
// unit), matching the original playback throttle.
func (s *StreamThread) pace(deltaTicks uint32) {
	if deltaTicks == 0 || s.timeUnit == 0 {
		return
	}
	micros := uint64(deltaTicks) * s.timeUnit
	time.Sleep(time.Duration(micros) * time.Microsecond)
}
