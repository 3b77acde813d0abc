package client

import (
	"bytes"
	"testing"

	"github.com/tes-go/tesproto/pkg/tesmsg"
	"github.com/tes-go/tesproto/pkg/wire"
)

func buildCreatePacketWithFlags(t *testing.T, id uint32, flags tesmsg.ObjectFlag) []byte {
	t.Helper()
	w := wire.NewWriter(0)
	w.Begin(tesmsg.RIDSphere, tesmsg.OIDCreate, false)
	msg := tesmsg.CreateMessage{ID: id, Flags: flags, Attributes: tesmsg.DefaultObjectAttributes()}
	if err := msg.Write(w); err != nil {
		t.Fatalf("write create: %v", err)
	}
	packet, err := w.Finalise()
	if err != nil {
		t.Fatalf("finalise: %v", err)
	}
	return append([]byte(nil), packet...)
}

func buildDestroyPacket(t *testing.T, id uint32) []byte {
	t.Helper()
	w := wire.NewWriter(0)
	w.Begin(tesmsg.RIDSphere, tesmsg.OIDDestroy, false)
	msg := tesmsg.DestroyMessage{ID: id}
	if err := msg.Write(w); err != nil {
		t.Fatalf("write destroy: %v", err)
	}
	packet, err := w.Finalise()
	if err != nil {
		t.Fatalf("finalise: %v", err)
	}
	return append([]byte(nil), packet...)
}

func buildFramePacketPersist(t *testing.T, deltaTicks uint32, persist bool) []byte {
	t.Helper()
	w := wire.NewWriter(0)
	w.Begin(tesmsg.RIDControl, tesmsg.CIDFrame, false)
	var flags tesmsg.ControlFlag
	if persist {
		flags = tesmsg.CFFramePersist
	}
	msg := tesmsg.ControlMessage{ControlFlags: flags, Value32: deltaTicks}
	if err := msg.Write(w); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	packet, err := w.Finalise()
	if err != nil {
		t.Fatalf("finalise: %v", err)
	}
	return append([]byte(nil), packet...)
}

func TestShapeCacheTransientLifecycle(t *testing.T) {
	var stream bytes.Buffer
	stream.Write(buildServerInfoPacket(t))
	stream.Write(buildCreatePacketWithFlags(t, 0, 0))
	stream.Write(buildFramePacketPersist(t, 33, false))

	cache := NewShapeCache(nil)
	thread := New(&chunkSource{buf: &stream})
	thread.Register(tesmsg.RIDSphere, cache)

	if err := thread.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if cache.TransientCount() != 0 {
		t.Fatalf("expected transient shapes cleared after non-persisting frame, got %d", cache.TransientCount())
	}
}

func TestShapeCacheTransientSurvivesPersistingFrame(t *testing.T) {
	var stream bytes.Buffer
	stream.Write(buildServerInfoPacket(t))
	stream.Write(buildCreatePacketWithFlags(t, 0, 0))
	stream.Write(buildFramePacketPersist(t, 33, true))

	cache := NewShapeCache(nil)
	thread := New(&chunkSource{buf: &stream})
	thread.Register(tesmsg.RIDSphere, cache)

	if err := thread.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if cache.TransientCount() != 1 {
		t.Fatalf("expected transient shape to survive a persisting frame, got %d", cache.TransientCount())
	}
}

func TestShapeCachePersistentLifecycle(t *testing.T) {
	var stream bytes.Buffer
	stream.Write(buildServerInfoPacket(t))
	stream.Write(buildCreatePacketWithFlags(t, 5, 0))
	stream.Write(buildFramePacketPersist(t, 33, false))
	stream.Write(buildFramePacketPersist(t, 33, false))

	cache := NewShapeCache(nil)
	thread := New(&chunkSource{buf: &stream})
	thread.Register(tesmsg.RIDSphere, cache)

	if err := thread.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if cache.Count() != 1 {
		t.Fatalf("expected persistent shape to survive frame boundaries, got count %d", cache.Count())
	}
	if _, ok := cache.Get(5); !ok {
		t.Fatalf("expected id 5 still cached")
	}
}

func TestShapeCachePersistentDestroyed(t *testing.T) {
	var stream bytes.Buffer
	stream.Write(buildServerInfoPacket(t))
	stream.Write(buildCreatePacketWithFlags(t, 5, 0))
	stream.Write(buildDestroyPacket(t, 5))

	cache := NewShapeCache(nil)
	thread := New(&chunkSource{buf: &stream})
	thread.Register(tesmsg.RIDSphere, cache)

	if err := thread.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if cache.Count() != 0 {
		t.Fatalf("expected destroyed shape removed from cache, got count %d", cache.Count())
	}
}

func TestShapeCacheReplaceFlagOverwrites(t *testing.T) {
	var stream bytes.Buffer
	stream.Write(buildServerInfoPacket(t))
	stream.Write(buildCreatePacketWithFlags(t, 5, 0))
	stream.Write(buildCreatePacketWithFlags(t, 5, tesmsg.OFReplace))

	cache := NewShapeCache(nil)
	thread := New(&chunkSource{buf: &stream})
	thread.Register(tesmsg.RIDSphere, cache)

	if err := thread.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if cache.Count() != 1 {
		t.Fatalf("expected exactly one live instance after replace, got %d", cache.Count())
	}
	entry, ok := cache.Get(5)
	if !ok {
		t.Fatalf("expected id 5 to still be cached")
	}
	if entry.Colour != tesmsg.DefaultObjectAttributes().Colour {
		t.Fatalf("unexpected attributes on replaced instance: %+v", entry)
	}
}

func TestShapeCacheDuplicatePersistentWithoutReplaceDiscarded(t *testing.T) {
	var stream bytes.Buffer
	stream.Write(buildServerInfoPacket(t))
	stream.Write(buildCreatePacketWithFlags(t, 5, 0))
	stream.Write(buildCreatePacketWithFlags(t, 5, 0))

	cache := NewShapeCache(nil)
	thread := New(&chunkSource{buf: &stream})
	thread.Register(tesmsg.RIDSphere, cache)

	if err := thread.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if cache.Count() != 1 {
		t.Fatalf("expected the duplicate create to be discarded, not erroring or replacing, got count %d", cache.Count())
	}
}
