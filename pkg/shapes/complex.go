package shapes

import (
	"github.com/tes-go/tesproto/pkg/resource"
	"github.com/tes-go/tesproto/pkg/tesmsg"
	"github.com/tes-go/tesproto/pkg/wire"
)

// MeshShape is a complex shape whose vertex data is streamed inline
// (unlike MeshSet/PointCloud, it does not reference a shared
// resource): scale is always 1,1,1, and its create packet is followed
// by one or more data packets carrying the vertex/index/normal/colour
// streams.
type MeshShape struct {
	Base
	mesh *resource.MeshResource
}

// NewMeshShape constructs a MeshShape around an inline mesh payload.
// name need only be unique enough to seed the mesh's internal key; it
// is not transmitted.
func NewMeshShape(id uint32, name string, draw resource.DrawType) *MeshShape {
	m := &MeshShape{Base: NewBase(id), mesh: resource.NewMeshResource(name, draw)}
	m.WithScale(1, 1, 1)
	return m
}

// Mesh returns the shape's backing mesh payload for population.
func (m *MeshShape) Mesh() *resource.MeshResource { return m.mesh }

// WithCalculateNormals sets the MeshShapeCalculateNormals flag,
// requesting the viewer derive normals rather than receiving them.
func (m *MeshShape) WithCalculateNormals() *MeshShape {
	m.WithFlags(tesmsg.MeshShapeCalculateNormals)
	return m
}

// RoutingID implements Shape.
func (m *MeshShape) RoutingID() tesmsg.RoutingID { return tesmsg.RIDMeshShape }

// WriteCreate implements Shape: the common header followed by the
// mesh's own create fields (draw type, counts).
func (m *MeshShape) WriteCreate(w *wire.Writer) error {
	if err := m.writeCreate(w); err != nil {
		return err
	}
	return m.mesh.WriteCreate(w)
}

// WriteData implements Complex: the common data-message id header
// followed by the backing mesh's chunked transfer.
func (m *MeshShape) WriteData(w *wire.Writer, progress *uint64, byteBudget int) (TransferResult, error) {
	if err := (tesmsg.DataMessage{ID: m.ID()}).Write(w); err != nil {
		return TransferError, err
	}
	done, err := m.mesh.WriteData(w, progress, byteBudget)
	if err != nil {
		return TransferError, err
	}
	if done {
		return TransferDone, nil
	}
	return TransferMore, nil
}

// ResourceReferencer is implemented by shape kinds that reference one
// or more externally shared resources (MeshSet, PointCloud) rather
// than streaming their own inline data (MeshShape). A Connection uses
// this to auto-reference every resource a newly-created instance
// depends on, per spec §4.7's "the connection increments its local
// ref-count" rule.
type ResourceReferencer interface {
	Shape
	ReferencedResources() []resource.Resource
}

// MeshSetPart is one (resource, transform, tint) triple referenced by
// a MeshSet.
type MeshSetPart struct {
	Resource resource.Resource
	Position [3]float64
	Rotation [4]float64
	Scale    [3]float64
	Tint     uint32
}

// MeshSet is a complex shape referencing one or more mesh resources,
// each placed and tinted independently. Its own scale is always
// 1,1,1; per-part transforms carry the actual placement.
type MeshSet struct {
	Base
	Parts []MeshSetPart
}

// NewMeshSet constructs an empty MeshSet.
func NewMeshSet(id uint32) *MeshSet {
	m := &MeshSet{Base: NewBase(id)}
	m.WithScale(1, 1, 1)
	return m
}

// RoutingID implements Shape.
func (m *MeshSet) RoutingID() tesmsg.RoutingID { return tesmsg.RIDMeshSet }

// ReferencedResources implements ResourceReferencer: one entry per
// part, in part order (duplicates collapse naturally via the
// connection's per-key reference count).
func (m *MeshSet) ReferencedResources() []resource.Resource {
	out := make([]resource.Resource, len(m.Parts))
	for i, part := range m.Parts {
		out[i] = part.Resource
	}
	return out
}

// WriteCreate implements Shape: the common header followed by the
// part count. Part details are streamed via WriteData so a MeshSet
// with many parts still respects the packet byte budget.
func (m *MeshSet) WriteCreate(w *wire.Writer) error {
	if err := m.writeCreate(w); err != nil {
		return err
	}
	return w.WriteU32(uint32(len(m.Parts)))
}

// WriteData implements Complex, streaming parts in bounded chunks:
// resource id, position, rotation, scale (all float32), tint.
func (m *MeshSet) WriteData(w *wire.Writer, progress *uint64, byteBudget int) (TransferResult, error) {
	if err := (tesmsg.DataMessage{ID: m.ID()}).Write(w); err != nil {
		return TransferError, err
	}
	offset := int(*progress)
	total := len(m.Parts)
	if offset >= total {
		return TransferDone, nil
	}
	const partSize = 8 + (3+4+3)*4 + 4 // resource id (u64) + 10 float32 + tint (u32)
	const headerSize = 4 + 4 + 4       // id + offset + count
	count := (byteBudget - headerSize) / partSize
	if count <= 0 {
		count = 1
	}
	end := offset + count
	if end > total {
		end = total
	}
	if err := w.WriteU32(uint32(offset)); err != nil {
		return TransferError, err
	}
	if err := w.WriteU32(uint32(end - offset)); err != nil {
		return TransferError, err
	}
	for _, part := range m.Parts[offset:end] {
		if err := writeMeshSetPart(w, part); err != nil {
			return TransferError, err
		}
	}
	*progress = uint64(end)
	if end >= total {
		return TransferDone, nil
	}
	return TransferMore, nil
}

func writeMeshSetPart(w *wire.Writer, part MeshSetPart) error {
	if err := w.WriteU64(uint64(part.Resource.Key())); err != nil {
		return err
	}
	for _, v := range part.Position {
		if err := w.WriteF32(float32(v)); err != nil {
			return err
		}
	}
	for _, v := range part.Rotation {
		if err := w.WriteF32(float32(v)); err != nil {
			return err
		}
	}
	for _, v := range part.Scale {
		if err := w.WriteF32(float32(v)); err != nil {
			return err
		}
	}
	return w.WriteU32(part.Tint)
}

// PointCloud is a complex shape referencing a backing point-cloud
// resource plus an index list selecting which of the resource's
// points this instance displays.
type PointCloud struct {
	Base
	Resource resource.Resource
	Indices  []uint32
}

// NewPointCloud constructs a PointCloud referencing res.
func NewPointCloud(id uint32, res resource.Resource) *PointCloud {
	p := &PointCloud{Base: NewBase(id), Resource: res}
	p.WithScale(1, 1, 1)
	return p
}

// RoutingID implements Shape.
func (p *PointCloud) RoutingID() tesmsg.RoutingID { return tesmsg.RIDPointCloud }

// ReferencedResources implements ResourceReferencer.
func (p *PointCloud) ReferencedResources() []resource.Resource {
	return []resource.Resource{p.Resource}
}

// WriteCreate implements Shape: the common header, the backing
// resource id and the index count.
func (p *PointCloud) WriteCreate(w *wire.Writer) error {
	if err := p.writeCreate(w); err != nil {
		return err
	}
	if err := w.WriteU64(uint64(p.Resource.Key())); err != nil {
		return err
	}
	return w.WriteU32(uint32(len(p.Indices)))
}

// WriteData implements Complex, streaming the index list in bounded
// chunks.
func (p *PointCloud) WriteData(w *wire.Writer, progress *uint64, byteBudget int) (TransferResult, error) {
	if err := (tesmsg.DataMessage{ID: p.ID()}).Write(w); err != nil {
		return TransferError, err
	}
	offset := int(*progress)
	total := len(p.Indices)
	if offset >= total {
		return TransferDone, nil
	}
	const headerSize = 4 + 4 + 4 // id + offset + count
	count := (byteBudget - headerSize) / 4
	if count <= 0 {
		count = 1
	}
	end := offset + count
	if end > total {
		end = total
	}
	if err := w.WriteU32(uint32(offset)); err != nil {
		return TransferError, err
	}
	if err := w.WriteU32(uint32(end - offset)); err != nil {
		return TransferError, err
	}
	for _, idx := range p.Indices[offset:end] {
		if err := w.WriteU32(idx); err != nil {
			return TransferError, err
		}
	}
	*progress = uint64(end)
	if end >= total {
		return TransferDone, nil
	}
	return TransferMore, nil
}
