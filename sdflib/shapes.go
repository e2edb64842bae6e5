// Package sdflib implements the closed-form distance functions and blends
// that make up the operator catalog. All functions are pure and operate on
// single float32 values so they can be shared by the bytecode interpreter and
// the reference tree evaluator.
package sdflib

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms1"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
)

const (
	sqrt2   = math32.Sqrt2
	sqrthlf = math32.Sqrt2 / 2 // sqrt(0.5)
)

// Affine is a read-only view of a row-major transform as it is laid out in
// instruction payloads, see [ms3.Mat4.Array]. The last row is ignored.
type Affine = [16]float32

// MulPosition transforms position p by affine matrix m.
func MulPosition(m *Affine, p ms3.Vec) ms3.Vec {
	return ms3.Vec{
		X: m[0]*p.X + m[1]*p.Y + m[2]*p.Z + m[3],
		Y: m[4]*p.X + m[5]*p.Y + m[6]*p.Z + m[7],
		Z: m[8]*p.X + m[9]*p.Y + m[10]*p.Z + m[11],
	}
}

// Sphere is the distance from p to a sphere of radius r centered at center.
func Sphere(p, center ms3.Vec, r float32) float32 {
	return ms3.Norm(ms3.Sub(center, p)) - r
}

// Box is the distance to an axis aligned box with half-size extents after
// moving p into the box's local frame with toLocal.
func Box(p ms3.Vec, toLocal *Affine, extents ms3.Vec) float32 {
	p = MulPosition(toLocal, p)
	d := ms3.Sub(ms3.AbsElem(p), extents)
	return ms3.Norm(ms3.MaxElem(d, ms3.Vec{})) + math32.Min(math32.Max(d.X, math32.Max(d.Y, d.Z)), 0)
}

// Capsule is the distance to the segment ab inflated by radius r.
func Capsule(p, a, b ms3.Vec, r float32) float32 {
	ab := ms3.Sub(b, a)
	t := ms1.Clamp(ms3.Dot(ms3.Sub(p, a), ab)/ms3.Dot(ab, ab), 0, 1)
	return ms3.Norm(ms3.Sub(ms3.Add(ms3.Scale(t, ab), a), p)) - r
}

// Cone is the distance to a cone whose base disk of radius r lies on the local
// XZ plane and whose apex is at local height h.
func Cone(p ms3.Vec, toLocal *Affine, r, h float32) float32 {
	p = MulPosition(toLocal, p)
	q := ms2.Vec{X: math32.Hypot(p.X, p.Z), Y: p.Y}
	tip := ms2.Sub(q, ms2.Vec{Y: h})
	slant := math32.Hypot(h, r)
	mantleDir := ms2.Scale(1/slant, ms2.Vec{X: h, Y: r})
	mantle := ms2.Dot(tip, mantleDir)
	d := math32.Max(mantle, -q.Y)
	projected := ms2.Dot(tip, ms2.Vec{X: mantleDir.Y, Y: -mantleDir.X})
	// Distance to the tip.
	if q.Y > h && projected < 0 {
		d = math32.Max(d, ms2.Norm(tip))
	}
	// Distance to the base ring.
	if q.X > r && projected > slant {
		d = math32.Max(d, ms2.Norm(ms2.Sub(q, ms2.Vec{X: r})))
	}
	return d
}

// Cylinder is the distance to a capped cylinder of radius r along the local Y
// axis spanning [-h, h].
func Cylinder(p ms3.Vec, toLocal *Affine, r, h float32) float32 {
	p = MulPosition(toLocal, p)
	return math32.Max(math32.Hypot(p.X, p.Z)-r, math32.Abs(p.Y)-h)
}

// Plane is the signed distance to the plane with the given normal
// offset distFromOrigin along it. normal is expected to be of unit length.
func Plane(p, normal ms3.Vec, distFromOrigin float32) float32 {
	return ms3.Dot(p, normal) + distFromOrigin
}

// Torus is the distance to a torus lying on the local XZ plane.
func Torus(p ms3.Vec, toLocal *Affine, small, large float32) float32 {
	p = MulPosition(toLocal, p)
	return math32.Hypot(math32.Hypot(p.X, p.Z)-large, p.Y) - small
}
