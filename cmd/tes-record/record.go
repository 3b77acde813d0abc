package main

import (
	"compress/gzip"
	"io"
	"os"

	"github.com/tes-go/tesproto/pkg/collate"
	"github.com/tes-go/tesproto/pkg/connection"
	"github.com/tes-go/tesproto/pkg/pstream"
	"github.com/tes-go/tesproto/pkg/server"
	"github.com/tes-go/tesproto/pkg/telemetry"
	"github.com/tes-go/tesproto/pkg/tesmsg"
	"github.com/tes-go/tesproto/pkg/wire"
)

// countingSink is a connection.Sink over a plain file that tracks the
// current write offset, the same trick pkg/server.Recorder uses
// internally, so this tool can patch its own frame-count placeholder
// on a clean finish.
type countingSink struct {
	f      *os.File
	offset int64
}

func (s *countingSink) Write(b []byte) error {
	n, err := s.f.Write(b)
	s.offset += int64(n)
	return err
}

func (s *countingSink) Close() error { return s.f.Close() }

// record reads whole (possibly collated) packets from source and
// writes them to path according to mode, tracking the frame count
// for the manifest sidecar. It returns nil on a clean Control/End or
// EOF, or the first unrecoverable read/write error.
func record(source io.Reader, path string, mode byte, pub *telemetry.Publisher, verbose bool) error {
	if mode == '-' {
		return recordPassthrough(source, path, pub)
	}
	return recordReframed(source, path, mode, pub)
}

// recordPassthrough tees the source's raw bytes to path unmodified —
// no reframing, no owned frame-count placeholder — while scanning the
// same bytes for bookkeeping (frame count for the manifest sidecar).
// Because nothing is added or removed from the stream, this is the
// only mode guaranteed to be byte-identical to what the server sent.
func recordPassthrough(source io.Reader, path string, pub *telemetry.Publisher) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	reader := pstream.NewReader()
	var decoder collate.Decoder
	var frames uint32
	buf := make([]byte, 64*1024)
	for {
		n, rerr := source.Read(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				return werr
			}
			reader.Feed(buf[:n])
			ended, serr := scanFrames(reader, &decoder, &frames, pub)
			if serr != nil {
				return serr
			}
			if ended {
				return writeManifestSidecar(path, frames)
			}
		}
		if rerr != nil {
			merr := writeManifestSidecar(path, frames)
			if rerr == io.EOF {
				return merr
			}
			return rerr
		}
	}
}

// scanFrames drains every packet pstream.Reader currently has
// buffered, updating *frames on each Control/Frame and reporting
// whether a Control/End was observed.
func scanFrames(reader *pstream.Reader, decoder *collate.Decoder, frames *uint32, pub *telemetry.Publisher) (ended bool, err error) {
	for {
		packet, ok, perr := reader.Next()
		if perr != nil {
			return false, perr
		}
		if !ok {
			return false, nil
		}
		if err := decoder.SetPacket(packet); err != nil {
			continue
		}
		for {
			inner, ok, derr := decoder.Next()
			if derr != nil || !ok {
				break
			}
			r := wire.NewReader(inner)
			h, herr := r.Header()
			if herr != nil || h.RoutingID != tesmsg.RIDControl {
				continue
			}
			switch h.MessageID {
			case tesmsg.CIDFrame:
				*frames++
				pub.PublishFrame(*frames)
			case tesmsg.CIDEnd:
				return true, nil
			}
		}
	}
}

// recordReframed decodes every inner packet out of the source stream
// and re-emits it through a Connection configured per mode: 'u' writes
// every packet standalone (no collation envelope at all); 'C' collates
// uncompressed; 'c' and 'z' collate with default compression (z
// additionally gzips the finished file as a whole on close). Because
// this tool owns the output framing, it can forward the source's real
// ServerInfo packet, then write and later patch its own standalone
// frame-count placeholder exactly as pkg/server.Recorder does for a
// server's local recording.
func recordReframed(source io.Reader, path string, mode byte, pub *telemetry.Publisher) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	sink := &countingSink{f: f}
	compress := mode == 'c' || mode == 'z'
	conn := connection.New(sink, true, compress, collate.LevelDefault, wire.MaxPacketSize)

	reader := pstream.NewReader()
	var decoder collate.Decoder
	buf := make([]byte, 64*1024)

	frameCountOffset := int64(-1)
	var frames uint32
	sawServerInfo := false

	finish := func(clean bool) error {
		if clean {
			if endPkt, eerr := server.EndPacket(); eerr == nil {
				_ = conn.WriteStandalone(endPkt)
			}
		}
		if frameCountOffset >= 0 {
			if patched, perr := server.FrameCountPacket(frames); perr == nil {
				_, _ = f.WriteAt(patched, frameCountOffset)
			}
		}
		_ = conn.Close()
		if mode == 'z' {
			if gzerr := gzipFile(path); gzerr != nil {
				return gzerr
			}
		}
		return writeManifestSidecar(path, frames)
	}

	for {
		n, rerr := source.Read(buf)
		if n > 0 {
			reader.Feed(buf[:n])
			for {
				packet, ok, perr := reader.Next()
				if perr != nil {
					return perr
				}
				if !ok {
					break
				}
				if derr := decoder.SetPacket(packet); derr != nil {
					continue
				}
				for {
					inner, ok, derr := decoder.Next()
					if derr != nil || !ok {
						break
					}

					r := wire.NewReader(inner)
					h, herr := r.Header()
					if herr != nil {
						continue
					}

					if !sawServerInfo && h.RoutingID == tesmsg.RIDServerInfo {
						sawServerInfo = true
						if werr := writeInner(conn, mode, inner); werr != nil {
							return werr
						}
						// Modes other than 'u' only queue the packet for
						// collation; flush it so sink.offset is where the
						// placeholder lands.
						if ferr := conn.Flush(); ferr != nil {
							return ferr
						}
						frameCountOffset = sink.offset
						placeholder, perr := server.FrameCountPacket(0)
						if perr != nil {
							return perr
						}
						if werr := conn.WriteStandalone(placeholder); werr != nil {
							return werr
						}
						continue
					}

					if h.RoutingID == tesmsg.RIDControl {
						switch h.MessageID {
						case tesmsg.CIDFrame:
							frames++
							pub.PublishFrame(frames)
						case tesmsg.CIDFrameCount:
							// Superseded by our own placeholder.
							continue
						case tesmsg.CIDEnd:
							if werr := writeInner(conn, mode, inner); werr != nil {
								return werr
							}
							return finish(false)
						}
					}

					if werr := writeInner(conn, mode, inner); werr != nil {
						return werr
					}
				}
			}
		}
		if rerr != nil {
			ferr := finish(true)
			if rerr == io.EOF {
				return ferr
			}
			return rerr
		}
	}
}

// writeInner appends packet through conn, bypassing the collation
// buffer entirely for mode 'u' so every packet lands standalone.
func writeInner(conn *connection.Connection, mode byte, packet []byte) error {
	if mode == 'u' {
		return conn.WriteStandalone(packet)
	}
	return conn.Append(packet)
}

// gzipFile compresses path as a whole into path+".gz", leaving the
// original uncompressed recording in place — a file-level compression
// layer distinct from the in-stream collation compression that modes c
// and z apply.
func gzipFile(path string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(path + ".gz")
	if err != nil {
		return err
	}
	defer out.Close()
	gw := gzip.NewWriter(out)
	if _, err := io.Copy(gw, in); err != nil {
		return err
	}
	return gw.Close()
}

func writeManifestSidecar(path string, frames uint32) error {
	return server.WriteManifest(path+".manifest", server.Manifest{FrameCount: frames})
}
