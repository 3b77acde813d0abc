package shapes

import (
	"testing"

	"github.com/tes-go/tesproto/pkg/resource"
	"github.com/tes-go/tesproto/pkg/tesmsg"
	"github.com/tes-go/tesproto/pkg/wire"
)

func TestSphereScaleConvention(t *testing.T) {
	s := NewSphere(1).WithRadius(2.5)
	scale := s.Scale()
	if scale[0] != 2.5 || scale[1] != 2.5 || scale[2] != 2.5 {
		t.Fatalf("got scale %v, want radius in all three components", scale)
	}
}

func TestBoxScaleConvention(t *testing.T) {
	b := NewBox(1).WithDimensions(1, 2, 3)
	scale := b.Scale()
	if scale != [3]float64{1, 2, 3} {
		t.Fatalf("got scale %v, want width/depth/height", scale)
	}
}

func TestConeIndependentSetters(t *testing.T) {
	c := NewCone(1).WithBaseRadius(0.5).WithLength(4)
	scale := c.Scale()
	if scale != [3]float64{0.5, 0.5, 4} {
		t.Fatalf("got scale %v, want base-radius, base-radius, length", scale)
	}
}

func TestSimpleShapeWriteCreateRoundTrip(t *testing.T) {
	s := NewSphere(5).WithRadius(3).WithColour(0x00ff00ff)
	s.WithPosition(1, 2, 3)

	w := wire.NewWriter(0)
	w.Begin(s.RoutingID(), tesmsg.OIDCreate, false)
	if err := s.WriteCreate(w); err != nil {
		t.Fatalf("WriteCreate: %v", err)
	}
	packet, err := w.Finalise()
	if err != nil {
		t.Fatalf("Finalise: %v", err)
	}

	r := wire.NewReader(packet)
	h, err := r.Header()
	if err != nil {
		t.Fatalf("Header: %v", err)
	}
	if h.RoutingID != tesmsg.RIDSphere {
		t.Fatalf("got routing id %d, want RIDSphere", h.RoutingID)
	}
	var create tesmsg.CreateMessage
	if err := create.Read(r); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if create.ID != 5 || create.Attributes.Colour != 0x00ff00ff {
		t.Fatalf("got %+v", create)
	}
	if create.Attributes.Position != [3]float64{1, 2, 3} {
		t.Fatalf("got position %v", create.Attributes.Position)
	}
}

func TestUpdateModeDefaultsToReplaceAll(t *testing.T) {
	s := NewBox(9)
	w := wire.NewWriter(0)
	w.Begin(s.RoutingID(), tesmsg.OIDUpdate, false)
	if err := s.WriteUpdate(w); err != nil {
		t.Fatalf("WriteUpdate: %v", err)
	}
	packet, err := w.Finalise()
	if err != nil {
		t.Fatalf("Finalise: %v", err)
	}
	r := wire.NewReader(packet)
	if _, err := r.Header(); err != nil {
		t.Fatalf("Header: %v", err)
	}
	var update tesmsg.UpdateMessage
	if err := update.Read(r); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !update.HasAttributeGroup(tesmsg.UFPosition) {
		t.Fatalf("expected all groups selected when UFUpdateMode is unset")
	}
}

func TestMeshShapeTransferContract(t *testing.T) {
	ms := NewMeshShape(3, "cube", resource.DrawTriangles)
	ms.Mesh().Vertices = [][3]float64{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}}

	w := wire.NewWriter(0)
	w.Begin(ms.RoutingID(), tesmsg.OIDCreate, false)
	if err := ms.WriteCreate(w); err != nil {
		t.Fatalf("WriteCreate: %v", err)
	}
	if _, err := w.Finalise(); err != nil {
		t.Fatalf("Finalise: %v", err)
	}

	var progress uint64
	iterations := 0
	for {
		w.Begin(ms.RoutingID(), tesmsg.OIDData, false)
		result, err := ms.WriteData(w, &progress, 64)
		if err != nil {
			t.Fatalf("WriteData: %v", err)
		}
		if _, err := w.Finalise(); err != nil {
			t.Fatalf("Finalise: %v", err)
		}
		iterations++
		if result == TransferDone {
			break
		}
		if iterations > 100 {
			t.Fatalf("transfer did not complete")
		}
	}
}
