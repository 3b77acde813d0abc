package shapes

import (
	"github.com/tes-go/tesproto/pkg/tesmsg"
	"github.com/tes-go/tesproto/pkg/wire"
)

// Sphere is fully described by its create packet: scale.x/y/z all
// equal the radius.
type Sphere struct{ Base }

// NewSphere constructs a unit-radius sphere at the origin.
func NewSphere(id uint32) *Sphere {
	s := &Sphere{Base: NewBase(id)}
	s.WithScale(1, 1, 1)
	return s
}

// WithRadius sets scale.x/y/z to radius and returns s for chaining.
func (s *Sphere) WithRadius(radius float64) *Sphere {
	s.WithScale(radius, radius, radius)
	return s
}

// RoutingID implements Shape.
func (s *Sphere) RoutingID() tesmsg.RoutingID { return tesmsg.RIDSphere }

// WriteCreate implements Shape.
func (s *Sphere) WriteCreate(w *wire.Writer) error { return s.writeCreate(w) }

// Box is fully described by its create packet: scale.x = width,
// scale.y = depth, scale.z = height.
type Box struct{ Base }

// NewBox constructs a unit box at the origin.
func NewBox(id uint32) *Box {
	b := &Box{Base: NewBase(id)}
	b.WithScale(1, 1, 1)
	return b
}

// WithDimensions sets the box's width/depth/height and returns b for chaining.
func (b *Box) WithDimensions(width, depth, height float64) *Box {
	b.WithScale(width, depth, height)
	return b
}

// RoutingID implements Shape.
func (b *Box) RoutingID() tesmsg.RoutingID { return tesmsg.RIDBox }

// WriteCreate implements Shape.
func (b *Box) WriteCreate(w *wire.Writer) error { return b.writeCreate(w) }

// Cone is fully described by its create packet: scale.x/y = base
// radius, scale.z = length; its axis direction comes from rotation.
type Cone struct{ Base }

// NewCone constructs a unit-length, unit-radius cone at the origin.
func NewCone(id uint32) *Cone {
	c := &Cone{Base: NewBase(id)}
	c.WithScale(1, 1, 1)
	return c
}

// WithBaseRadius sets scale.x/y and returns c for chaining.
func (c *Cone) WithBaseRadius(radius float64) *Cone {
	scale := c.Scale()
	c.WithScale(radius, radius, scale[2])
	return c
}

// WithLength sets scale.z and returns c for chaining.
func (c *Cone) WithLength(length float64) *Cone {
	scale := c.Scale()
	c.WithScale(scale[0], scale[1], length)
	return c
}

// RoutingID implements Shape.
func (c *Cone) RoutingID() tesmsg.RoutingID { return tesmsg.RIDCone }

// WriteCreate implements Shape.
func (c *Cone) WriteCreate(w *wire.Writer) error { return c.writeCreate(w) }

// Cylinder is fully described by its create packet: scale.x/y =
// radius, scale.z = length.
type Cylinder struct{ Base }

// NewCylinder constructs a unit-radius, unit-length cylinder at the origin.
func NewCylinder(id uint32) *Cylinder {
	c := &Cylinder{Base: NewBase(id)}
	c.WithScale(1, 1, 1)
	return c
}

// WithRadius sets scale.x/y and returns c for chaining.
func (c *Cylinder) WithRadius(radius float64) *Cylinder {
	scale := c.Scale()
	c.WithScale(radius, radius, scale[2])
	return c
}

// WithLength sets scale.z and returns c for chaining.
func (c *Cylinder) WithLength(length float64) *Cylinder {
	scale := c.Scale()
	c.WithScale(scale[0], scale[1], length)
	return c
}

// RoutingID implements Shape.
func (c *Cylinder) RoutingID() tesmsg.RoutingID { return tesmsg.RIDCylinder }

// WriteCreate implements Shape.
func (c *Cylinder) WriteCreate(w *wire.Writer) error { return c.writeCreate(w) }

// Capsule is fully described by its create packet: scale.x/y =
// radius, scale.z = cylindrical length (excluding end caps).
type Capsule struct{ Base }

// NewCapsule constructs a unit-radius, unit-length capsule at the origin.
func NewCapsule(id uint32) *Capsule {
	c := &Capsule{Base: NewBase(id)}
	c.WithScale(1, 1, 1)
	return c
}

// WithRadius sets scale.x/y and returns c for chaining.
func (c *Capsule) WithRadius(radius float64) *Capsule {
	scale := c.Scale()
	c.WithScale(radius, radius, scale[2])
	return c
}

// WithLength sets scale.z and returns c for chaining.
func (c *Capsule) WithLength(length float64) *Capsule {
	scale := c.Scale()
	c.WithScale(scale[0], scale[1], length)
	return c
}

// RoutingID implements Shape.
func (c *Capsule) RoutingID() tesmsg.RoutingID { return tesmsg.RIDCapsule }

// WriteCreate implements Shape.
func (c *Capsule) WriteCreate(w *wire.Writer) error { return c.writeCreate(w) }

// Plane is fully described by its create packet: scale.x/z = the
// length of the normal indicator drawn by a viewer, scale.y = the
// extent of the plane's visualised square; its normal comes from
// rotation.
type Plane struct{ Base }

// NewPlane constructs a unit plane at the origin.
func NewPlane(id uint32) *Plane {
	p := &Plane{Base: NewBase(id)}
	p.WithScale(1, 1, 1)
	return p
}

// WithNormalLength sets scale.x/z and returns p for chaining.
func (p *Plane) WithNormalLength(length float64) *Plane {
	scale := p.Scale()
	p.WithScale(length, scale[1], length)
	return p
}

// WithExtent sets scale.y and returns p for chaining.
func (p *Plane) WithExtent(extent float64) *Plane {
	scale := p.Scale()
	p.WithScale(scale[0], extent, scale[2])
	return p
}

// RoutingID implements Shape.
func (p *Plane) RoutingID() tesmsg.RoutingID { return tesmsg.RIDPlane }

// WriteCreate implements Shape.
func (p *Plane) WriteCreate(w *wire.Writer) error { return p.writeCreate(w) }

// Star is fully described by its create packet: scale.x/y/z all equal
// the radius.
type Star struct{ Base }

// NewStar constructs a unit-radius star at the origin.
func NewStar(id uint32) *Star {
	s := &Star{Base: NewBase(id)}
	s.WithScale(1, 1, 1)
	return s
}

// WithRadius sets scale.x/y/z to radius and returns s for chaining.
func (s *Star) WithRadius(radius float64) *Star {
	s.WithScale(radius, radius, radius)
	return s
}

// RoutingID implements Shape.
func (s *Star) RoutingID() tesmsg.RoutingID { return tesmsg.RIDStar }

// WriteCreate implements Shape.
func (s *Star) WriteCreate(w *wire.Writer) error { return s.writeCreate(w) }

// Arrow is fully described by its create packet: scale.x/y = shaft
// radius, scale.z = length; its direction comes from rotation.
type Arrow struct{ Base }

// NewArrow constructs a unit-radius, unit-length arrow at the origin.
func NewArrow(id uint32) *Arrow {
	a := &Arrow{Base: NewBase(id)}
	a.WithScale(1, 1, 1)
	return a
}

// WithRadius sets scale.x/y and returns a for chaining.
func (a *Arrow) WithRadius(radius float64) *Arrow {
	scale := a.Scale()
	a.WithScale(radius, radius, scale[2])
	return a
}

// WithLength sets scale.z and returns a for chaining.
func (a *Arrow) WithLength(length float64) *Arrow {
	scale := a.Scale()
	a.WithScale(scale[0], scale[1], length)
	return a
}

// RoutingID implements Shape.
func (a *Arrow) RoutingID() tesmsg.RoutingID { return tesmsg.RIDArrow }

// WriteCreate implements Shape.
func (a *Arrow) WriteCreate(w *wire.Writer) error { return a.writeCreate(w) }

// Pose draws a coordinate-axis triad; scale.x/y/z all equal the axis
// length.
type Pose struct{ Base }

// NewPose constructs a unit-axis-length pose at the origin.
func NewPose(id uint32) *Pose {
	p := &Pose{Base: NewBase(id)}
	p.WithScale(1, 1, 1)
	return p
}

// WithAxisLength sets scale.x/y/z and returns p for chaining.
func (p *Pose) WithAxisLength(length float64) *Pose {
	p.WithScale(length, length, length)
	return p
}

// RoutingID implements Shape.
func (p *Pose) RoutingID() tesmsg.RoutingID { return tesmsg.RIDPose }

// WriteCreate implements Shape.
func (p *Pose) WriteCreate(w *wire.Writer) error { return p.writeCreate(w) }
