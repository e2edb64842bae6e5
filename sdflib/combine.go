package sdflib

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms1"
	"github.com/soypat/geometry/ms2"
)

// Inverse flips inside and outside of a distance.
func Inverse(d float32) float32 { return -d }

// Offset grows (positive k) or shrinks a surface by k.
func Offset(d, k float32) float32 { return d + k }

// Union keeps the closest of both surfaces.
func Union(a, b float32) float32 { return math32.Min(a, b) }

// Intersection keeps the region inside both surfaces.
func Intersection(a, b float32) float32 { return math32.Max(a, b) }

// Difference removes b from a.
func Difference(a, b float32) float32 { return Intersection(a, -b) }

// SmoothUnion blends both surfaces with a polynomial smooth minimum of width k.
func SmoothUnion(a, b, k float32) float32 {
	h := ms1.Clamp(0.5+0.5*(a-b)/k, 0, 1)
	return a*(1-h) + b*h - k*h*(1-h)
}

// UnionChamfer is a union with a 45 degree chamfer of size r at the seam.
func UnionChamfer(a, b, r float32) float32 {
	return math32.Min(math32.Min(a, b), (a-r+b)*sqrthlf)
}

// IntersectionChamfer is an intersection with a 45 degree chamfer of size r at the seam.
func IntersectionChamfer(a, b, r float32) float32 {
	return math32.Max(math32.Max(a, b), (a+r+b)*sqrthlf)
}

func DifferenceChamfer(a, b, r float32) float32 {
	return IntersectionChamfer(a, -b, r)
}

// UnionRound is a union with a quarter circle fillet of radius r.
func UnionRound(a, b, r float32) float32 {
	u := ms2.Vec{X: math32.Max(r-a, 0), Y: math32.Max(r-b, 0)}
	return math32.Max(r, math32.Min(a, b)) - ms2.Norm(u)
}

// IntersectionRound is an intersection with a quarter circle fillet of radius r.
func IntersectionRound(a, b, r float32) float32 {
	u := ms2.Vec{X: math32.Max(r+a, 0), Y: math32.Max(r+b, 0)}
	return math32.Min(-r, math32.Max(a, b)) + ms2.Norm(u)
}

func DifferenceRound(a, b, r float32) float32 {
	return IntersectionRound(a, -b, r)
}

// UnionStairs is a union whose seam is cut into n steps over a distance r.
func UnionStairs(a, b, r float32, n int) float32 {
	s := r / float32(n)
	u := b - r
	return math32.Min(math32.Min(a, b), 0.5*(u+a+math32.Abs(math32.Mod(u-a+s, 2*s)-s)))
}

func IntersectionStairs(a, b, r float32, n int) float32 {
	return -UnionStairs(-a, -b, r, n)
}

func DifferenceStairs(a, b, r float32, n int) float32 {
	return -UnionStairs(-a, b, r, n)
}

// UnionColumns is a union whose seam is filled with n cylindrical columns
// spread over a distance r.
func UnionColumns(a, b, r float32, n int) float32 {
	if a >= r || b >= r {
		return math32.Min(a, b)
	}
	p := Rotate45v2(ms2.Vec{X: a, Y: b})
	colRadius := r * sqrt2 / (float32(n-1)*2 + sqrt2)
	p.X -= sqrthlf * r
	p.X += colRadius * sqrt2
	if n%2 == 1 {
		p.Y += colRadius
	}
	// Rotated onto the seam diagonal, repeat along it and place circles.
	p.Y = Mod1(p.Y, colRadius*2)
	result := ms2.Norm(p) - colRadius
	result = math32.Min(result, p.X)
	result = math32.Min(result, a)
	return math32.Min(result, b)
}

// DifferenceColumns removes b from a leaving n column shaped grooves along the seam.
func DifferenceColumns(a, b, r float32, n int) float32 {
	a = -a
	m := math32.Min(a, b)
	if a >= r || b >= r {
		return -m
	}
	p := Rotate45v2(ms2.Vec{X: a, Y: b})
	colRadius := r * sqrt2 / (float32(n-1)*2 + sqrt2)
	p.Y += colRadius
	p.X -= sqrthlf * r
	p.X += -colRadius * sqrthlf
	if n%2 == 1 {
		p.Y += colRadius
	}
	p.Y = Mod1(p.Y, colRadius*2)
	result := -ms2.Norm(p) + colRadius
	result = math32.Max(result, p.X)
	result = math32.Min(result, a)
	return -math32.Min(result, b)
}

func IntersectionColumns(a, b, r float32, n int) float32 {
	return DifferenceColumns(a, -b, r, n)
}

// Engrave cuts a V shaped groove of depth r into a along the surface of b.
func Engrave(a, b, r float32) float32 {
	return math32.Max(a, (a+r-math32.Abs(b))*sqrthlf)
}

// Groove cuts a rectangular channel of depth ra and width rb into a along b.
func Groove(a, b, ra, rb float32) float32 {
	return math32.Max(a, math32.Min(a+ra, rb-math32.Abs(b)))
}

// Pipe is a tube of radius r along the intersection curve of both surfaces.
func Pipe(a, b, r float32) float32 {
	return math32.Hypot(a, b) - r
}

// Tongue adds a rectangular ridge of height ra and width rb onto a along b.
func Tongue(a, b, ra, rb float32) float32 {
	return math32.Min(a, math32.Max(a-ra, math32.Abs(b)-rb))
}
