package gsdfvm

import (
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/gsdfvm/sdfbuild"
)

type shape struct{}

func (shape) Category() sdfbuild.Category { return sdfbuild.CategoryShape }

func (shape) ForEachChild(userData any, fn func(userData any, n *sdfbuild.Node) error) error {
	return nil
}

type sphere struct {
	shape
	center ms3.Vec
	r      float32
}

// NewSphere creates a sphere of radius r centered at center.
func (bld *Builder) NewSphere(center ms3.Vec, r float32) sdfbuild.Node {
	if r <= 0 {
		bld.shapeErrorf("zero or negative sphere radius")
	}
	return &sphere{center: center, r: r}
}

func (s *sphere) Instruction() sdfbuild.Instruction {
	return sdfbuild.MakeSphere(s.center, s.r)
}

func (s *sphere) AppendNodeName(b []byte) []byte {
	b = append(b, "sphere("...)
	b = appendVec(b, s.center)
	b = append(b, ';')
	b = sdfbuild.AppendFloat(b, s.r)
	return append(b, ')')
}

type box struct {
	shape
	toLocal ms3.Mat4
	extents ms3.Vec
}

// NewBox creates a box with the given half-size extents. toLocal transforms
// world positions into the box's frame, where the box is centered at the origin.
func (bld *Builder) NewBox(toLocal ms3.Mat4, extents ms3.Vec) sdfbuild.Node {
	if extents.X <= 0 || extents.Y <= 0 || extents.Z <= 0 {
		bld.shapeErrorf("zero or negative box dimension")
	}
	bld.checkTransform("box", toLocal)
	return &box{toLocal: toLocal, extents: extents}
}

func (s *box) Instruction() sdfbuild.Instruction {
	return sdfbuild.MakeBox(s.toLocal, s.extents)
}

func (s *box) AppendNodeName(b []byte) []byte {
	b = append(b, "box("...)
	b = appendVec(b, s.extents)
	return append(b, ')')
}

type capsule struct {
	shape
	a, b ms3.Vec
	r    float32
}

// NewCapsule creates a capsule of radius r around the segment from a to b.
func (bld *Builder) NewCapsule(a, b ms3.Vec, r float32) sdfbuild.Node {
	if r <= 0 {
		bld.shapeErrorf("zero or negative capsule radius")
	}
	if ms3.Norm(ms3.Sub(b, a)) < epstol {
		bld.shapeErrorf("degenerate capsule segment")
	}
	return &capsule{a: a, b: b, r: r}
}

func (s *capsule) Instruction() sdfbuild.Instruction {
	return sdfbuild.MakeCapsule(s.a, s.b, s.r)
}

func (s *capsule) AppendNodeName(b []byte) []byte {
	b = append(b, "capsule("...)
	b = appendVec(b, s.a)
	b = append(b, ';')
	b = appendVec(b, s.b)
	b = append(b, ';')
	b = sdfbuild.AppendFloat(b, s.r)
	return append(b, ')')
}

type cone struct {
	shape
	toLocal ms3.Mat4
	r, h    float32
}

// NewCone creates a cone with base radius r lying on the local XZ plane and
// apex at local height h.
func (bld *Builder) NewCone(toLocal ms3.Mat4, r, h float32) sdfbuild.Node {
	if r <= 0 || h <= 0 {
		bld.shapeErrorf("bad cone dimension")
	}
	bld.checkTransform("cone", toLocal)
	return &cone{toLocal: toLocal, r: r, h: h}
}

func (s *cone) Instruction() sdfbuild.Instruction {
	return sdfbuild.MakeTransformed(sdfbuild.KindCone, s.toLocal, s.r, s.h)
}

func (s *cone) AppendNodeName(b []byte) []byte {
	b = append(b, "cone("...)
	b = sdfbuild.AppendFloats(b, ';', s.r, s.h)
	return append(b, ')')
}

type cylinder struct {
	shape
	toLocal ms3.Mat4
	r, h    float32
}

// NewCylinder creates a cylinder of radius r along the local Y axis. h is
// the half height, the cylinder spans local Y from -h to h.
func (bld *Builder) NewCylinder(toLocal ms3.Mat4, r, h float32) sdfbuild.Node {
	if r <= 0 || h <= 0 {
		bld.shapeErrorf("bad cylinder dimension")
	}
	bld.checkTransform("cylinder", toLocal)
	return &cylinder{toLocal: toLocal, r: r, h: h}
}

func (s *cylinder) Instruction() sdfbuild.Instruction {
	return sdfbuild.MakeTransformed(sdfbuild.KindCylinder, s.toLocal, s.r, s.h)
}

func (s *cylinder) AppendNodeName(b []byte) []byte {
	b = append(b, "cylinder("...)
	b = sdfbuild.AppendFloats(b, ';', s.r, s.h)
	return append(b, ')')
}

type plane struct {
	shape
	normal ms3.Vec
	d      float32
}

// NewPlane creates a half space bounded by the plane with the given normal.
// The normal is normalized and points outside. distFromOrigin offsets the plane
// along the normal opposite direction.
func (bld *Builder) NewPlane(normal ms3.Vec, distFromOrigin float32) sdfbuild.Node {
	n := ms3.Norm(normal)
	if n < epstol {
		bld.shapeErrorf("zero length plane normal")
	} else {
		normal = ms3.Scale(1/n, normal)
	}
	return &plane{normal: normal, d: distFromOrigin}
}

func (s *plane) Instruction() sdfbuild.Instruction {
	return sdfbuild.MakePlane(s.normal, s.d)
}

func (s *plane) AppendNodeName(b []byte) []byte {
	b = append(b, "plane("...)
	b = appendVec(b, s.normal)
	b = append(b, ';')
	b = sdfbuild.AppendFloat(b, s.d)
	return append(b, ')')
}

type torus struct {
	shape
	toLocal      ms3.Mat4
	small, large float32
}

// NewTorus creates a torus lying on the local XZ plane. large is the radius
// of the ring's center line and small the radius of the tube.
func (bld *Builder) NewTorus(toLocal ms3.Mat4, small, large float32) sdfbuild.Node {
	if small <= 0 || large <= 0 {
		bld.shapeErrorf("bad torus dimension")
	}
	bld.checkTransform("torus", toLocal)
	return &torus{toLocal: toLocal, small: small, large: large}
}

func (s *torus) Instruction() sdfbuild.Instruction {
	return sdfbuild.MakeTransformed(sdfbuild.KindTorus, s.toLocal, s.small, s.large)
}

func (s *torus) AppendNodeName(b []byte) []byte {
	b = append(b, "torus("...)
	b = sdfbuild.AppendFloats(b, ';', s.small, s.large)
	return append(b, ')')
}
