// Package tesmsg defines the routing ids, message ids, flag bit
// layouts and the fixed-format control/server-info/category messages
// of the 3es wire protocol. See spec §3–§4.5 and the original
// implementation's 3esmessages.h.
package tesmsg

// RoutingID identifies which handler processes a packet.
type RoutingID = uint16

// Reserved, core routing ids.
const (
	RIDNull RoutingID = iota
	RIDServerInfo
	RIDControl
	RIDCollatedPacket
	RIDMesh
	RIDCamera
	RIDCategory
	// RIDMaterial is reserved; no message type is defined for it and it
	// is never emitted (spec §9 Open Question (b)).
	RIDMaterial
)

// ShapeHandlersIDStart is the first routing id assigned to a shape
// kind.
const ShapeHandlersIDStart RoutingID = 64

// Shape routing ids, in declaration order starting at
// ShapeHandlersIDStart.
const (
	RIDSphere RoutingID = ShapeHandlersIDStart + iota
	RIDBox
	RIDCone
	RIDCylinder
	RIDCapsule
	RIDPlane
	RIDStar
	RIDArrow
	RIDMeshShape
	RIDMeshSet
	RIDPointCloud
	RIDText3D
	RIDText2D
	RIDPose

	RIDBuiltInLast = RIDPose
)

// UserIDStart is the first routing id available to user-defined
// handlers.
const UserIDStart RoutingID = 2048

// MessageID is interpreted relative to the packet's routing id.
type MessageID = uint16

// Shape object message ids (routed to any shape routing id).
const (
	OIDNull MessageID = iota
	OIDCreate
	OIDUpdate
	OIDDestroy
	OIDData
)

// ControlID values for RIDControl packets.
const (
	CIDNull MessageID = iota
	// CIDFrame defines a new frame; Value32 is the delta time in time
	// units.
	CIDFrame
	// CIDCoordinateFrame specifies a change in coordinate frame.
	CIDCoordinateFrame
	// CIDFrameCount sets the total expected frame count (Value32); used
	// for finite recordings.
	CIDFrameCount
	// CIDForceFrameFlush forces a flush without advancing time.
	CIDForceFrameFlush
	// CIDReset clears all scene state.
	CIDReset
	// CIDKeyframe requests a keyframe; Value32 is the frame number. A
	// no-op outside of playback (spec §9 Open Question (a)).
	CIDKeyframe
	// CIDEnd marks the end of the server stream.
	CIDEnd
)

// CategoryMessageID values for RIDCategory packets.
const (
	CMIDName MessageID = iota
)
