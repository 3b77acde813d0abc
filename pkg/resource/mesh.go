package resource

import "github.com/tes-go/tesproto/pkg/wire"

// DrawType selects how a MeshResource's vertices are assembled into
// primitives by a viewer.
type DrawType uint8

const (
	DrawPoints DrawType = iota
	DrawLines
	DrawTriangles
)

// MeshResource is a vertex-indexed mesh payload referenced by
// MeshSet shapes (and, inline, by MeshShape create+data). Vertices,
// normals, colours and UVs are each independently optional. Vertices
// are written as float64 when VertexDST is DSTFloat64 and as float32
// otherwise; normals and UVs are always float32 and colours uint32.
// The packed and integer DataStreamType forms are not applied to mesh
// streams.
type MeshResource struct {
	key       ID
	Draw      DrawType
	Vertices  [][3]float64
	Indices   []uint32
	Normals   [][3]float64
	Colours   []uint32
	UVs       [][2]float64
	VertexDST DataStreamType
}

// NewMeshResource constructs a MeshResource keyed by name (see
// KeyFromName); passing a unique name per logical mesh asset lets
// identical meshes loaded from different call sites collapse to one
// transfer.
func NewMeshResource(name string, draw DrawType) *MeshResource {
	return &MeshResource{key: KeyFromName(KindMesh, name), Draw: draw, VertexDST: DSTFloat32}
}

// Kind implements Resource.
func (m *MeshResource) Kind() Kind { return KindMesh }

// Key implements Resource.
func (m *MeshResource) Key() ID { return m.key }

// WriteCreate implements Resource: draw type and element counts only.
func (m *MeshResource) WriteCreate(w *wire.Writer) error {
	if err := w.WriteU8(uint8(m.Draw)); err != nil {
		return err
	}
	if err := w.WriteU32(uint32(len(m.Vertices))); err != nil {
		return err
	}
	if err := w.WriteU32(uint32(len(m.Indices))); err != nil {
		return err
	}
	if err := w.WriteU8(boolByte(len(m.Normals) > 0)); err != nil {
		return err
	}
	if err := w.WriteU8(boolByte(len(m.Colours) > 0)); err != nil {
		return err
	}
	return w.WriteU8(boolByte(len(m.UVs) > 0))
}

// meshStage enumerates the data transfer phases WriteData walks
// through in order: vertices, indices, normals, colours, uvs.
type meshStage uint64

const (
	stageVertices meshStage = iota
	stageIndices
	stageNormals
	stageColours
	stageUVs
	stageDone
)

// meshProgressShift packs the current stage into the high bits of the
// opaque uint64 progress counter and the per-stage element offset into
// the low bits, so ResourcePacker can treat progress as a single
// opaque value per spec §9's "opaque counters" design note.
const meshProgressShift = 40

func decodeMeshProgress(progress uint64) (meshStage, uint64) {
	return meshStage(progress >> meshProgressShift), progress & (1<<meshProgressShift - 1)
}

func encodeMeshProgress(stage meshStage, offset uint64) uint64 {
	return uint64(stage)<<meshProgressShift | offset
}

// WriteData implements Resource, streaming vertices then indices then
// optional normals/colours/uvs, each stage bounded independently by
// byteBudget so a single call never exceeds the connection's packet
// budget.
func (m *MeshResource) WriteData(w *wire.Writer, progress *uint64, byteBudget int) (bool, error) {
	stage, offset := decodeMeshProgress(*progress)

	switch stage {
	case stageVertices:
		done, n, err := writeVec3Chunk(w, m.Vertices, int(offset), byteBudget, m.VertexDST)
		if err != nil {
			return false, err
		}
		if done {
			*progress = encodeMeshProgress(stageIndices, 0)
			return false, nil
		}
		*progress = encodeMeshProgress(stageVertices, uint64(n))
		return false, nil
	case stageIndices:
		done, n, err := writeU32Chunk(w, m.Indices, int(offset), byteBudget)
		if err != nil {
			return false, err
		}
		if done {
			*progress = encodeMeshProgress(stageNormals, 0)
			return false, nil
		}
		*progress = encodeMeshProgress(stageIndices, uint64(n))
		return false, nil
	case stageNormals:
		done, n, err := writeVec3Chunk(w, m.Normals, int(offset), byteBudget, DSTFloat32)
		if err != nil {
			return false, err
		}
		if done {
			*progress = encodeMeshProgress(stageColours, 0)
			return false, nil
		}
		*progress = encodeMeshProgress(stageNormals, uint64(n))
		return false, nil
	case stageColours:
		done, n, err := writeU32Chunk(w, m.Colours, int(offset), byteBudget)
		if err != nil {
			return false, err
		}
		if done {
			*progress = encodeMeshProgress(stageUVs, 0)
			return false, nil
		}
		*progress = encodeMeshProgress(stageColours, uint64(n))
		return false, nil
	case stageUVs:
		done, n, err := writeVec2Chunk(w, m.UVs, int(offset), byteBudget)
		if err != nil {
			return false, err
		}
		if done {
			*progress = encodeMeshProgress(stageDone, 0)
			return true, nil
		}
		*progress = encodeMeshProgress(stageUVs, uint64(n))
		return false, nil
	default:
		return true, nil
	}
}

// PointCloudResource is a point cloud payload referenced by
// PointCloud shapes. Points carry optional per-point normals and
// colours, identical in shape to a MeshResource's corresponding
// streams.
type PointCloudResource struct {
	key     ID
	Points  [][3]float64
	Normals [][3]float64
	Colours []uint32
}

// NewPointCloudResource constructs a PointCloudResource keyed by name.
func NewPointCloudResource(name string) *PointCloudResource {
	return &PointCloudResource{key: KeyFromName(KindPointCloud, name)}
}

// Kind implements Resource.
func (p *PointCloudResource) Kind() Kind { return KindPointCloud }

// Key implements Resource.
func (p *PointCloudResource) Key() ID { return p.key }

// WriteCreate implements Resource: element counts only.
func (p *PointCloudResource) WriteCreate(w *wire.Writer) error {
	if err := w.WriteU32(uint32(len(p.Points))); err != nil {
		return err
	}
	if err := w.WriteU8(boolByte(len(p.Normals) > 0)); err != nil {
		return err
	}
	return w.WriteU8(boolByte(len(p.Colours) > 0))
}

const (
	pcStagePoints meshStage = iota
	pcStageNormals
	pcStageColours
	pcStageDone
)

// WriteData implements Resource, streaming points then optional
// normals then optional colours.
func (p *PointCloudResource) WriteData(w *wire.Writer, progress *uint64, byteBudget int) (bool, error) {
	stage, offset := decodeMeshProgress(*progress)

	switch stage {
	case pcStagePoints:
		done, n, err := writeVec3Chunk(w, p.Points, int(offset), byteBudget, DSTFloat32)
		if err != nil {
			return false, err
		}
		if done {
			*progress = encodeMeshProgress(pcStageNormals, 0)
			return false, nil
		}
		*progress = encodeMeshProgress(pcStagePoints, uint64(n))
		return false, nil
	case pcStageNormals:
		done, n, err := writeVec3Chunk(w, p.Normals, int(offset), byteBudget, DSTFloat32)
		if err != nil {
			return false, err
		}
		if done {
			*progress = encodeMeshProgress(pcStageColours, 0)
			return false, nil
		}
		*progress = encodeMeshProgress(pcStageNormals, uint64(n))
		return false, nil
	case pcStageColours:
		done, n, err := writeU32Chunk(w, p.Colours, int(offset), byteBudget)
		if err != nil {
			return false, err
		}
		if done {
			*progress = encodeMeshProgress(pcStageDone, 0)
			return true, nil
		}
		*progress = encodeMeshProgress(pcStageColours, uint64(n))
		return false, nil
	default:
		return true, nil
	}
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
