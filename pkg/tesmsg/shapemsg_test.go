package tesmsg

import (
	"math"
	"testing"

	"github.com/tes-go/tesproto/pkg/wire"
)

func TestObjectAttributesRoundTripSingle(t *testing.T) {
	want := ObjectAttributes{
		Colour:   0x112233ff,
		Position: [3]float64{1.5, -2.25, 3},
		Rotation: [4]float64{0, 0, 0, 1},
		Scale:    [3]float64{1, 1, 1},
	}
	w := wire.NewWriter(0)
	w.Begin(RIDSphere, OIDCreate, false)
	if err := want.Write(w, false); err != nil {
		t.Fatalf("Write: %v", err)
	}
	packet, err := w.Finalise()
	if err != nil {
		t.Fatalf("Finalise: %v", err)
	}
	r := wire.NewReader(packet)
	if _, err := r.Header(); err != nil {
		t.Fatalf("Header: %v", err)
	}
	var got ObjectAttributes
	if err := got.Read(r, false); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestObjectAttributesRoundTripDouble(t *testing.T) {
	want := ObjectAttributes{
		Colour:   0xaabbccdd,
		Position: [3]float64{math.Pi, -1.0 / 3.0, 1e10},
		Rotation: [4]float64{0.1, 0.2, 0.3, 0.92736},
		Scale:    [3]float64{2, 2, 2},
	}
	w := wire.NewWriter(0)
	w.Begin(RIDBox, OIDCreate, false)
	if err := want.Write(w, true); err != nil {
		t.Fatalf("Write: %v", err)
	}
	packet, err := w.Finalise()
	if err != nil {
		t.Fatalf("Finalise: %v", err)
	}
	r := wire.NewReader(packet)
	if _, err := r.Header(); err != nil {
		t.Fatalf("Header: %v", err)
	}
	var got ObjectAttributes
	if err := got.Read(r, true); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestCreateMessageRoundTrip(t *testing.T) {
	want := CreateMessage{
		ID:         7,
		Category:   2,
		Flags:      OFDoublePrecision | OFTransparent,
		Attributes: DefaultObjectAttributes(),
	}
	w := wire.NewWriter(0)
	w.Begin(RIDSphere, OIDCreate, false)
	if err := want.Write(w); err != nil {
		t.Fatalf("Write: %v", err)
	}
	packet, err := w.Finalise()
	if err != nil {
		t.Fatalf("Finalise: %v", err)
	}
	r := wire.NewReader(packet)
	if _, err := r.Header(); err != nil {
		t.Fatalf("Header: %v", err)
	}
	var got CreateMessage
	if err := got.Read(r); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestUpdateMessageHasAttributeGroup(t *testing.T) {
	allReplaced := UpdateMessage{Flags: 0}
	if !allReplaced.HasAttributeGroup(UFPosition) {
		t.Fatalf("expected all groups selected without UFUpdateMode")
	}

	selective := UpdateMessage{Flags: UFUpdateMode | UFPosition}
	if !selective.HasAttributeGroup(UFPosition) {
		t.Fatalf("expected UFPosition selected")
	}
	if selective.HasAttributeGroup(UFColour) {
		t.Fatalf("expected UFColour not selected")
	}
}

func TestDestroyAndDataMessageRoundTrip(t *testing.T) {
	w := wire.NewWriter(0)
	w.Begin(RIDSphere, OIDDestroy, false)
	want := DestroyMessage{ID: 99}
	if err := want.Write(w); err != nil {
		t.Fatalf("Write: %v", err)
	}
	packet, err := w.Finalise()
	if err != nil {
		t.Fatalf("Finalise: %v", err)
	}
	r := wire.NewReader(packet)
	if _, err := r.Header(); err != nil {
		t.Fatalf("Header: %v", err)
	}
	var got DestroyMessage
	if err := got.Read(r); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}

	dw := wire.NewWriter(0)
	dw.Begin(RIDMeshShape, OIDData, false)
	wantData := DataMessage{ID: 99}
	if err := wantData.Write(dw); err != nil {
		t.Fatalf("Write data: %v", err)
	}
	dataPacket, err := dw.Finalise()
	if err != nil {
		t.Fatalf("Finalise data: %v", err)
	}
	dr := wire.NewReader(dataPacket)
	if _, err := dr.Header(); err != nil {
		t.Fatalf("Header data: %v", err)
	}
	var gotData DataMessage
	if err := gotData.Read(dr); err != nil {
		t.Fatalf("Read data: %v", err)
	}
	if gotData != wantData {
		t.Fatalf("got %+v, want %+v", gotData, wantData)
	}
}
