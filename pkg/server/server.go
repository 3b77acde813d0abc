// Package server implements the server-side shape API, the
// connection monitor (none/synchronous/asynchronous accept modes) and
// the file/serial sinks every connection broadcasts through. See
// spec §4.10 and the original implementation's TcpConnectionMonitor.
package server

import (
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/tes-go/tesproto/pkg/collate"
	"github.com/tes-go/tesproto/pkg/connection"
	"github.com/tes-go/tesproto/pkg/resource"
	"github.com/tes-go/tesproto/pkg/shapes"
	"github.com/tes-go/tesproto/pkg/telemetry"
	"github.com/tes-go/tesproto/pkg/tesmsg"
	"github.com/tes-go/tesproto/pkg/wire"
)

// Settings configures a Server's wire behaviour and monitor.
type Settings struct {
	ListenPort      int
	PortRange       int
	AsyncTimeout    time.Duration
	ByteBudget      int
	Compress        bool
	CompressLevel   collate.CompressionLevel
	ServerInfo      tesmsg.ServerInfoMessage
	OnNewConnection func(*connection.Connection)
}

// DefaultSettings returns settings matching the original's defaults:
// 1ms time unit, 33ms default frame time, a 50-port fallback range, a
// 1000ms async-start timeout.
func DefaultSettings() Settings {
	return Settings{
		ListenPort:    33500,
		PortRange:     50,
		AsyncTimeout:  time.Second,
		ByteBudget:    wire.MaxPacketSize,
		CompressLevel: collate.LevelDefault,
		ServerInfo: tesmsg.ServerInfoMessage{
			TimeUnit:         1000,
			DefaultFrameTime: 33,
		},
	}
}

// Server offers the shape API (spec §4.10): it fans every Create,
// Destroy, UpdateFrame and resource reference out to every attached
// connection, whether socket, file or serial.
type Server struct {
	mu        sync.Mutex
	settings  Settings
	monitor   *monitor
	conns     []*connection.Connection
	telemetry *telemetry.Publisher
}

// New constructs a Server that has not yet started accepting
// connections; call Start to begin listening.
func New(settings Settings) *Server {
	return &Server{settings: settings, monitor: newMonitor()}
}

// WithTelemetry attaches an optional Redis telemetry publisher: every
// CommitConnections reports the live connection count, and every
// UpdateFrame reports the current frame number and each in-flight
// resource transfer's progress. A nil pub detaches telemetry. Returns
// s for chaining, mirroring the shape model's fluent setters.
func (s *Server) WithTelemetry(pub *telemetry.Publisher) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.telemetry = pub
	return s
}

// Start begins accepting connections per mode. ModeNone is always
// valid (file/serial-only operation); ModeSynchronous requires the
// caller to call CommitConnections periodically; ModeAsynchronous
// spawns its own accept-loop goroutine.
func (s *Server) Start(mode ConnectionMode) error {
	return s.monitor.Start(mode, s.settings.ListenPort, s.settings.PortRange, s.settings.AsyncTimeout)
}

// ListenPort returns the bound listen port, or 0 if not listening.
func (s *Server) ListenPort() int { return s.monitor.Port() }

// CommitConnections drains newly-accepted sockets into live
// connections, invoking Settings.OnNewConnection for each, and
// forgets connections culled since the last call. It is the caller's
// responsibility to invoke this on the server's own goroutine — no
// other Server method may run concurrently with it.
func (s *Server) CommitConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.monitor.commitConnections(func(conn net.Conn) {
		c := connection.New(newSocketSink(conn), false, s.settings.Compress, s.settings.CompressLevel, s.settings.ByteBudget)
		s.conns = append(s.conns, c)
		if err := s.sendServerInfo(c); err != nil {
			return
		}
		if s.settings.OnNewConnection != nil {
			s.settings.OnNewConnection(c)
		}
	})
	s.cullDisconnected()
	if s.telemetry != nil {
		_ = s.telemetry.PublishConnectionCount(len(s.conns))
	}
}

// WaitForConnection blocks (busy-polling, in either listening mode) until
// at least one connection exists or timeout elapses, returning the
// live connection count.
func (s *Server) WaitForConnection(timeout time.Duration) int {
	return s.monitor.waitForConnection(timeout, func(conn net.Conn) {
		s.mu.Lock()
		c := connection.New(newSocketSink(conn), false, s.settings.Compress, s.settings.CompressLevel, s.settings.ByteBudget)
		s.conns = append(s.conns, c)
		s.mu.Unlock()
		_ = s.sendServerInfo(c)
	})
}

// ConnectionCount returns the number of live connections, including
// file and serial sinks.
func (s *Server) ConnectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// OpenFileStream creates a file-backed connection at path (truncating
// any existing file), writes the server-info header, and registers it
// alongside socket connections so the shape API broadcasts to it
// uniformly.
func (s *Server) OpenFileStream(path string) (*connection.Connection, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("server: open file stream %s: %w", path, err)
	}
	c := connection.New(newFileSink(f), true, s.settings.Compress, s.settings.CompressLevel, s.settings.ByteBudget)
	if err := s.sendServerInfo(c); err != nil {
		_ = c.Close()
		return nil, err
	}
	s.mu.Lock()
	s.conns = append(s.conns, c)
	s.mu.Unlock()
	return c, nil
}

// OpenSerialStream creates a serial-backed connection over device at
// baud, writes the server-info header, and registers it alongside
// other connections.
func (s *Server) OpenSerialStream(device string, baud int) (*connection.Connection, error) {
	sink, err := OpenSerialSink(device, baud)
	if err != nil {
		return nil, fmt.Errorf("server: open serial stream %s: %w", device, err)
	}
	c := connection.New(sink, true, s.settings.Compress, s.settings.CompressLevel, s.settings.ByteBudget)
	if err := s.sendServerInfo(c); err != nil {
		_ = c.Close()
		return nil, err
	}
	s.mu.Lock()
	s.conns = append(s.conns, c)
	s.mu.Unlock()
	return c, nil
}

func (s *Server) sendServerInfo(c *connection.Connection) error {
	return c.SendServerInfo(s.settings.ServerInfo)
}

// Create broadcasts shape's create packet to every connection.
func (s *Server) Create(shape shapes.Shape) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.forEachConn(func(c *connection.Connection) error { return c.Create(shape) })
}

// Destroy broadcasts shape's destroy packet to every connection.
func (s *Server) Destroy(shape shapes.Shape) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.forEachConn(func(c *connection.Connection) error { return c.Destroy(shape) })
}

// ReferenceResource broadcasts a reference to r to every connection.
func (s *Server) ReferenceResource(r resource.Resource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conns {
		c.ReferenceResource(r)
	}
}

// ReleaseResource broadcasts a release of the resource identified by
// routingID/key to every connection.
func (s *Server) ReleaseResource(routingID uint16, key resource.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.forEachConn(func(c *connection.Connection) error { return c.ReleaseResource(routingID, key) })
}

// UpdateFrame broadcasts a frame boundary to every connection,
// advancing deltaTime server time units and, if flush is true,
// flushing each connection's pending collation envelope.
func (s *Server) UpdateFrame(deltaTime uint32, flush bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.forEachConn(func(c *connection.Connection) error { return c.UpdateFrame(deltaTime, flush) })
	s.publishTelemetry()
	return err
}

// publishTelemetry reports the lead connection's frame number and
// every connection's in-flight transfer progress to the attached
// telemetry publisher, a no-op when none is attached.
func (s *Server) publishTelemetry() {
	if s.telemetry == nil || len(s.conns) == 0 {
		return
	}
	_ = s.telemetry.PublishFrame(s.conns[0].FrameNumber())
	for _, c := range s.conns {
		for key, progress := range c.TransferProgress() {
			_ = s.telemetry.PublishTransferProgress(uint64(key), progress)
		}
	}
}

// UpdateTransfers emits one packet from each in-flight resource on
// every connection, independent of frame boundaries.
func (s *Server) UpdateTransfers() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.forEachConn(func(c *connection.Connection) error { return c.DrainTransfers() })
}

// Close flushes and closes every connection and stops the monitor.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for _, c := range s.conns {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.conns = nil
	s.monitor.Stop()
	return firstErr
}

// forEachConn applies fn to every live connection, dropping (without
// treating as a fatal Server error) any that report Disconnected —
// one dead client must not block delivery to the rest.
func (s *Server) forEachConn(fn func(*connection.Connection) error) error {
	s.cullDisconnected()
	for _, c := range s.conns {
		_ = fn(c)
	}
	return nil
}

func (s *Server) cullDisconnected() {
	live := s.conns[:0]
	for _, c := range s.conns {
		if c.State() != connection.StateDisconnected {
			live = append(live, c)
		}
	}
	s.conns = live
}
