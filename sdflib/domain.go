package sdflib

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
)

// Frac returns the fractional part of x, x-floor(x). Result is always in [0,1).
func Frac(x float32) float32 {
	return x - math32.Floor(x)
}

// Mod1 wraps x into a cell of the given size centered at zero.
// Uses truncated modulo so negative inputs fold the same way as C's fmod.
func Mod1(x, size float32) float32 {
	half := size / 2
	return math32.Mod(x+half, size) - half
}

// Repeat tiles space with cells of size cell along every axis.
func Repeat(p ms3.Vec, cell float32) ms3.Vec {
	return ms3.Vec{
		X: Frac(p.X/cell) * cell,
		Y: Frac(p.Y/cell) * cell,
		Z: Frac(p.Z/cell) * cell,
	}
}

// ModSimple tiles space with cells of size cell only along the axes enabled by the mask.
func ModSimple(p ms3.Vec, cell float32, modX, modY, modZ bool) ms3.Vec {
	if modX {
		p.X = Frac(p.X/cell) * cell
	}
	if modY {
		p.Y = Frac(p.Y/cell) * cell
	}
	if modZ {
		p.Z = Frac(p.Z/cell) * cell
	}
	return p
}

// Rotate45 mixes the two components perpendicular to axis (0=X, 1=Y, 2=Z)
// with a 45 degree rotation. The axis component is scaled by sqrt(2).
func Rotate45(p ms3.Vec, axis int) ms3.Vec {
	arr := p.Array()
	delta := arr
	n0 := (axis + 1) % 3
	n1 := (axis + 2) % 3
	delta[n0] = -arr[n1]
	delta[n1] = arr[n0]
	return ms3.Scale(sqrthlf, ms3.Add(p, ms3.Vec{X: delta[0], Y: delta[1], Z: delta[2]}))
}

// Rotate45v2 rotates a 2D vector by 45 degrees clockwise.
func Rotate45v2(p ms2.Vec) ms2.Vec {
	return ms2.Scale(sqrthlf, ms2.Add(p, ms2.Vec{X: p.Y, Y: -p.X}))
}
