package connection

import (
	"errors"
	"testing"

	"github.com/tes-go/tesproto/pkg/collate"
	"github.com/tes-go/tesproto/pkg/resource"
	"github.com/tes-go/tesproto/pkg/shapes"
	"github.com/tes-go/tesproto/pkg/tesmsg"
	"github.com/tes-go/tesproto/pkg/wire"
)

type fakeSink struct {
	writes  [][]byte
	failing bool
	closed  bool
}

func (f *fakeSink) Write(b []byte) error {
	if f.failing {
		return errors.New("fake sink failure")
	}
	f.writes = append(f.writes, append([]byte(nil), b...))
	return nil
}

func (f *fakeSink) Close() error {
	f.closed = true
	return nil
}

func TestCreateAndFlushWritesEnvelope(t *testing.T) {
	sink := &fakeSink{}
	conn := New(sink, false, false, collate.LevelNone, 4096)

	sphere := shapes.NewSphere(1).WithRadius(2)
	if err := conn.Create(sphere); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := conn.UpdateFrame(33, true); err != nil {
		t.Fatalf("UpdateFrame: %v", err)
	}
	if len(sink.writes) != 1 {
		t.Fatalf("got %d writes, want 1", len(sink.writes))
	}
}

func TestSinkFailureDisconnects(t *testing.T) {
	sink := &fakeSink{failing: true}
	conn := New(sink, false, false, collate.LevelNone, 4096)

	sphere := shapes.NewSphere(1)
	if err := conn.Create(sphere); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := conn.UpdateFrame(33, true); err == nil {
		t.Fatalf("expected UpdateFrame to surface sink failure")
	}
	if conn.State() != StateDisconnected {
		t.Fatalf("expected Disconnected after sink failure")
	}
	if err := conn.Create(sphere); err != ErrDisconnected {
		t.Fatalf("expected ErrDisconnected after disconnect, got %v", err)
	}
}

func TestResourceDrainsBeforeFrameFlush(t *testing.T) {
	sink := &fakeSink{}
	conn := New(sink, false, false, collate.LevelNone, 4096)

	mesh := resource.NewMeshResource("floor", resource.DrawTriangles)
	mesh.Vertices = [][3]float64{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}}
	conn.ReferenceResource(mesh)

	if err := conn.UpdateFrame(33, true); err != nil {
		t.Fatalf("UpdateFrame: %v", err)
	}
	if len(sink.writes) != 1 {
		t.Fatalf("got %d writes, want 1", len(sink.writes))
	}
}

// decodeHeaders unwraps a collated envelope and returns the header of
// every inner packet, in wire order.
func decodeHeaders(t *testing.T, envelope []byte) []wire.PacketHeader {
	t.Helper()
	var decoder collate.Decoder
	if err := decoder.SetPacket(envelope); err != nil {
		t.Fatalf("SetPacket: %v", err)
	}
	var headers []wire.PacketHeader
	for {
		inner, ok, err := decoder.Next()
		if err != nil {
			t.Fatalf("Decoder.Next: %v", err)
		}
		if !ok {
			break
		}
		r := wire.NewReader(inner)
		h, err := r.Header()
		if err != nil {
			t.Fatalf("Header: %v", err)
		}
		headers = append(headers, h)
	}
	return headers
}

func TestCreateAutoReferencesAndOrdersResourceBeforeShape(t *testing.T) {
	sink := &fakeSink{}
	conn := New(sink, false, false, collate.LevelNone, 4096)

	res := resource.NewPointCloudResource("cloud")
	res.Points = [][3]float64{{0, 0, 0}, {1, 0, 0}}
	pc := shapes.NewPointCloud(1, res)

	if err := conn.Create(pc); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := conn.UpdateFrame(33, true); err != nil {
		t.Fatalf("UpdateFrame: %v", err)
	}
	if len(sink.writes) != 1 {
		t.Fatalf("got %d writes, want 1", len(sink.writes))
	}

	headers := decodeHeaders(t, sink.writes[0])
	if len(headers) < 3 {
		t.Fatalf("expected at least resource-create, resource-data and shape-create packets, got %d", len(headers))
	}

	// The resource's create/data packets must precede the shape's own
	// create packet, per spec §4.7's "every resource packet precedes
	// the first shape that references it".
	shapeCreateIdx := -1
	for i, h := range headers {
		if h.RoutingID == tesmsg.RIDPointCloud && h.MessageID == tesmsg.OIDCreate {
			shapeCreateIdx = i
			break
		}
	}
	if shapeCreateIdx == -1 {
		t.Fatalf("shape create packet not found among %+v", headers)
	}
	for i := 0; i < shapeCreateIdx; i++ {
		if headers[i].RoutingID != tesmsg.RIDMesh {
			t.Fatalf("packet %d before shape create was not a resource packet: %+v", i, headers[i])
		}
	}
	if shapeCreateIdx == 0 {
		t.Fatalf("expected at least one resource packet before the shape create")
	}

	if conn.ledger.Count(res.Key()) != 1 {
		t.Fatalf("expected Create to auto-reference the shape's resource")
	}
}

func TestCreateSkipsResourcesWhenFlagSet(t *testing.T) {
	sink := &fakeSink{}
	conn := New(sink, false, false, collate.LevelNone, 4096)

	res := resource.NewPointCloudResource("skip-me")
	pc := shapes.NewPointCloud(1, res)
	pc.WithFlags(tesmsg.OFSkipResources)

	if err := conn.Create(pc); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if conn.ledger.Count(res.Key()) != 0 {
		t.Fatalf("expected OFSkipResources to suppress auto-reference")
	}
}

func TestCreateStreamsComplexShapeData(t *testing.T) {
	sink := &fakeSink{}
	conn := New(sink, false, false, collate.LevelNone, 64)

	mesh := shapes.NewMeshShape(1, "inline", resource.DrawTriangles)
	verts := make([][3]float64, 20)
	for i := range verts {
		verts[i] = [3]float64{float64(i), 0, 0}
	}
	mesh.Mesh().Vertices = verts

	if err := conn.Create(mesh); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := conn.UpdateFrame(33, true); err != nil {
		t.Fatalf("UpdateFrame: %v", err)
	}

	var dataPackets int
	for _, envelope := range sink.writes {
		for _, h := range decodeHeaders(t, envelope) {
			if h.RoutingID == tesmsg.RIDMeshShape && h.MessageID == tesmsg.OIDData {
				dataPackets++
			}
		}
	}
	if dataPackets < 2 {
		t.Fatalf("expected the mesh's vertex stream to span multiple data packets under a small byte budget, got %d", dataPackets)
	}
}

func TestReleaseResourceOnlyOnLastReference(t *testing.T) {
	sink := &fakeSink{}
	conn := New(sink, false, false, collate.LevelNone, 4096)

	mesh := resource.NewMeshResource("wall", resource.DrawTriangles)
	conn.ReferenceResource(mesh)
	conn.ReferenceResource(mesh)

	if err := conn.ReleaseResource(4, mesh.Key()); err != nil {
		t.Fatalf("ReleaseResource: %v", err)
	}
	if conn.ledger.Count(mesh.Key()) != 1 {
		t.Fatalf("expected one remaining reference")
	}
	if err := conn.ReleaseResource(4, mesh.Key()); err != nil {
		t.Fatalf("ReleaseResource: %v", err)
	}
	if conn.ledger.Count(mesh.Key()) != 0 {
		t.Fatalf("expected zero references after last release")
	}
}
