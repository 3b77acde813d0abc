package server

import (
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/tes-go/tesproto/pkg/shapes"
)

func TestServerAsyncAcceptsConnection(t *testing.T) {
	settings := DefaultSettings()
	settings.ListenPort = freePort(t)
	s := New(settings)
	if err := s.Start(ModeAsynchronous); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Close()

	conn, err := net.DialTimeout("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(s.ListenPort())), time.Second)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	n := s.WaitForConnection(2 * time.Second)
	if n != 1 {
		t.Fatalf("got %d connections, want 1", n)
	}
}

func TestServerFileStreamBroadcast(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rec.3es")

	settings := DefaultSettings()
	s := New(settings)
	if err := s.Start(ModeNone); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Close()

	if _, err := s.OpenFileStream(path); err != nil {
		t.Fatalf("OpenFileStream: %v", err)
	}
	if s.ConnectionCount() != 1 {
		t.Fatalf("got %d connections, want 1", s.ConnectionCount())
	}

	sphere := shapes.NewSphere(1).WithRadius(1)
	if err := s.Create(sphere); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.UpdateFrame(33, true); err != nil {
		t.Fatalf("UpdateFrame: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size() == 0 {
		t.Fatalf("expected non-empty recording file")
	}
}

func TestManifestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rec.3es.manifest")

	want := Manifest{
		FrameCount:     42,
		DurationMicros: 1_000_000,
		ResourceCounts: map[string]uint32{"mesh": 2},
		PacketCounts:   map[string]uint64{"sphere": 10},
	}
	if err := WriteManifest(path, want); err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}
	got, err := ReadManifest(path)
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if got.FrameCount != want.FrameCount || got.DurationMicros != want.DurationMicros {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()
	return port
}
