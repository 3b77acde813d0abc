package server

import (
	"net"
	"os"

	"go.bug.st/serial"
	"golang.org/x/sys/unix"
)

// socketSink adapts a net.Conn to connection.Sink. Write is a plain
// net.Conn write with no deadline: a full OS send buffer blocks the
// calling goroutine until the peer drains it; the sink does not fail
// fast or drop the connection in that case.
type socketSink struct {
	conn net.Conn
}

func newSocketSink(conn net.Conn) *socketSink {
	return &socketSink{conn: conn}
}

func (s *socketSink) Write(b []byte) error {
	_, err := s.conn.Write(b)
	return err
}

func (s *socketSink) Close() error { return s.conn.Close() }

// fileSink is a blocking Sink that writes a recording to disk, used
// by Server.OpenFileStream.
type fileSink struct {
	f *os.File
}

func newFileSink(f *os.File) *fileSink {
	return &fileSink{f: f}
}

func (s *fileSink) Write(b []byte) error {
	_, err := s.f.Write(b)
	return err
}

func (s *fileSink) Close() error { return s.f.Close() }

// serialSink is a blocking Sink over a UART, used for embedded
// targets that stream 3es data over a serial link instead of TCP.
// Before handing the device to go.bug.st/serial, a termios ioctl
// discards any unread input and unsent output left queued by a
// previous owner of the port, matching the teacher's usock
// framer's expectation of a clean byte stream at open.
type serialSink struct {
	port serial.Port
}

// OpenSerialSink opens device at baud and returns a ready blocking
// Sink.
func OpenSerialSink(device string, baud int) (*serialSink, error) {
	flushStaleLineState(device)

	mode := &serial.Mode{BaudRate: baud}
	port, err := serial.Open(device, mode)
	if err != nil {
		return nil, err
	}
	return &serialSink{port: port}, nil
}

func (s *serialSink) Write(b []byte) error {
	_, err := s.port.Write(b)
	return err
}

func (s *serialSink) Close() error { return s.port.Close() }

// flushStaleLineState opens device just long enough to issue a
// TCIOFLUSH ioctl, discarding any unread input and unsent output
// queued by a previous owner of the port. Best-effort: failure here
// is not fatal, since go.bug.st/serial's own open will surface a
// clearer error if the device is genuinely unusable.
func flushStaleLineState(device string) {
	f, err := os.OpenFile(device, os.O_RDWR, 0)
	if err != nil {
		return
	}
	defer f.Close()
	_ = unix.IoctlSetInt(int(f.Fd()), unix.TCFLSH, unix.TCIOFLUSH)
}
