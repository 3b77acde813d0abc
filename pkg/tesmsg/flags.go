package tesmsg

// ObjectFlag bits control shape creation and appearance.
type ObjectFlag uint16

const (
	OFNone            ObjectFlag = 0
	OFWire            ObjectFlag = 1 << 0
	OFTransparent     ObjectFlag = 1 << 1
	OFTwoSided        ObjectFlag = 1 << 2
	OFReplace         ObjectFlag = 1 << 3
	OFMultiShape      ObjectFlag = 1 << 4
	OFSkipResources   ObjectFlag = 1 << 5
	OFDoublePrecision ObjectFlag = 1 << 6

	// OFUser is the first bit available to per-shape-type flag
	// extensions (Text2D, Text3D, MeshShape) and to UpdateFlag.
	OFUser ObjectFlag = 1 << 8
)

// UpdateFlag bits select which attribute groups an update message
// replaces. Without UFUpdateMode all attributes are replaced; with it
// only the groups whose bits are set are touched.
const (
	UFUpdateMode ObjectFlag = OFUser << 1
	UFPosition   ObjectFlag = OFUser << 2
	UFRotation   ObjectFlag = OFUser << 3
	UFScale      ObjectFlag = OFUser << 4
	UFColour     ObjectFlag = OFUser << 5
)

// Text2DFlag extends ObjectFlag for RIDText2D shapes.
const (
	Text2DFWorldSpace = OFUser
)

// Text3DFlag extends ObjectFlag for RIDText3D shapes.
const (
	Text3DFScreenFacing = OFUser
)

// MeshShapeFlag extends ObjectFlag for RIDMeshShape shapes.
const (
	MeshShapeCalculateNormals = OFUser
)

// ControlFlag bits apply to particular ControlID messages.
type ControlFlag uint32

const (
	// CFFramePersist, set on a CIDFrame message, keeps transient shapes
	// alive instead of flushing them for that frame.
	CFFramePersist ControlFlag = 1 << 0
)

// PointsAttributeFlag bits describe which optional per-point streams
// a point cloud resource carries.
type PointsAttributeFlag uint16

const (
	PAFNone    PointsAttributeFlag = 0
	PAFNormals PointsAttributeFlag = 1 << 0
	PAFColours PointsAttributeFlag = 1 << 1
)

// CoordinateFrame enumerates the right- and left-handed axis
// conventions a server may report in its ServerInfoMessage.
type CoordinateFrame uint8

const (
	XYZ CoordinateFrame = iota
	XZYNeg
	YXZNeg
	YZX
	ZXY
	ZYXNeg

	// LeftHanded is added to a right-handed CoordinateFrame constant to
	// select its left-handed counterpart.
	LeftHanded CoordinateFrame = 6
)
