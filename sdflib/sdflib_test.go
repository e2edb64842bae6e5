package sdflib

import (
	"math/rand"
	"testing"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
)

const tol = 1e-5

var identity = ms3.IdentityMat4().Array()

func TestShapes(t *testing.T) {
	translateX := ms3.TranslatingMat4(ms3.Vec{X: -2}).Array() // Moves shape to x=+2.
	for _, test := range []struct {
		name string
		got  float32
		want float32
	}{
		{"sphere center", Sphere(ms3.Vec{}, ms3.Vec{}, 1), -1},
		{"sphere outside", Sphere(ms3.Vec{X: 3}, ms3.Vec{}, 1), 2},
		{"sphere offcenter", Sphere(ms3.Vec{X: 1}, ms3.Vec{X: 1}, 0.5), -0.5},
		{"box center", Box(ms3.Vec{}, &identity, ms3.Vec{X: 1, Y: 1, Z: 1}), -1},
		{"box face", Box(ms3.Vec{X: 3}, &identity, ms3.Vec{X: 1, Y: 2, Z: 2}), 2},
		{"box corner", Box(ms3.Vec{X: 2, Y: 2}, &identity, ms3.Vec{X: 1, Y: 1, Z: 1}), math32.Sqrt2},
		{"box translated", Box(ms3.Vec{X: 2}, &translateX, ms3.Vec{X: 1, Y: 1, Z: 1}), -1},
		{"capsule mid", Capsule(ms3.Vec{X: 1, Y: 1}, ms3.Vec{}, ms3.Vec{X: 2}, 0.5), 0.5},
		{"capsule cap", Capsule(ms3.Vec{X: -1}, ms3.Vec{}, ms3.Vec{X: 2}, 0.5), 0.5},
		{"cylinder side", Cylinder(ms3.Vec{X: 2}, &identity, 1, 1), 1},
		{"cylinder top", Cylinder(ms3.Vec{Y: 3}, &identity, 1, 1), 2},
		{"plane", Plane(ms3.Vec{Y: 3}, ms3.Vec{Y: 1}, -1), 2},
		{"torus ring", Torus(ms3.Vec{X: 2}, &identity, 0.5, 2), -0.5},
		{"torus hole", Torus(ms3.Vec{}, &identity, 0.5, 2), 1.5},
		{"cone base center", Cone(ms3.Vec{}, &identity, 1, 2), 0},
		{"cone below", Cone(ms3.Vec{Y: -1}, &identity, 1, 2), 1},
		{"cone above tip", Cone(ms3.Vec{Y: 3}, &identity, 1, 2), 1},
	} {
		if math32.Abs(test.got-test.want) > tol {
			t.Errorf("%s: got %f, want %f", test.name, test.got, test.want)
		}
	}
}

func TestCombine(t *testing.T) {
	for _, test := range []struct {
		name string
		got  float32
		want float32
	}{
		{"union", Union(-1, 2), -1},
		{"intersection", Intersection(-1, 2), 2},
		{"difference", Difference(-1, 2), -1},
		{"difference inside both", Difference(-1, -0.5), 0.5},
		{"inverse", Inverse(3), -3},
		{"offset", Offset(3, -1), 2},
		{"smooth union far", SmoothUnion(-3, 3, 0.5), -3},
		{"smooth union equal", SmoothUnion(1, 1, 0.5), 0.875},
		{"chamfer far", UnionChamfer(5, -1, 0.1), -1},
		{"round far", UnionRound(5, -1, 0.1), -1},
		{"round seam", UnionRound(0, 0, 1), 1 - math32.Sqrt2},
		{"pipe", Pipe(3, 4, 1), 4},
		{"engrave outside", Engrave(1, 5, 0.1), 1},
		{"groove far", Groove(-1, 5, 0.2, 0.1), -1},
		{"tongue far", Tongue(1, 5, 0.2, 0.1), 1},
		{"columns far", UnionColumns(5, -1, 0.5, 3), -1},
		{"difference columns far", DifferenceColumns(-1, 5, 0.5, 3), -1},
		{"stairs far", UnionStairs(5, -2, 0.5, 4), -2},
	} {
		if math32.Abs(test.got-test.want) > tol {
			t.Errorf("%s: got %f, want %f", test.name, test.got, test.want)
		}
	}
}

func TestCombineSymmetry(t *testing.T) {
	// Seam blends never make the result further out than a plain union.
	vals := []float32{-2, -0.3, -0.01, 0, 0.02, 0.25, 0.7, 3}
	for _, a := range vals {
		for _, b := range vals {
			u := Union(a, b)
			if got := UnionChamfer(a, b, 0.3); got > u+tol {
				t.Errorf("chamfer(%v,%v)=%v exceeds union %v", a, b, got, u)
			}
			if got := UnionRound(a, b, 0.3); got > u+tol {
				t.Errorf("round(%v,%v)=%v exceeds union %v", a, b, got, u)
			}
			if got := UnionStairs(a, b, 0.3, 3); got > u+tol {
				t.Errorf("stairs(%v,%v)=%v exceeds union %v", a, b, got, u)
			}
			if got := UnionColumns(a, b, 0.3, 3); got > u+tol {
				t.Errorf("columns(%v,%v)=%v exceeds union %v", a, b, got, u)
			}
			in := Intersection(a, b)
			if got := IntersectionChamfer(a, b, 0.3); got < in-tol {
				t.Errorf("intersection chamfer(%v,%v)=%v below intersection %v", a, b, got, in)
			}
			if got := IntersectionRound(a, b, 0.3); got < in-tol {
				t.Errorf("intersection round(%v,%v)=%v below intersection %v", a, b, got, in)
			}
		}
	}
}

func TestDomain(t *testing.T) {
	got := Repeat(ms3.Vec{X: 2.5, Y: -0.5, Z: 1}, 2)
	want := ms3.Vec{X: 0.5, Y: 1.5, Z: 1}
	if ms3.Norm(ms3.Sub(got, want)) > tol {
		t.Errorf("repeat: got %v, want %v", got, want)
	}
	got = ModSimple(ms3.Vec{X: 2.5, Y: -0.5, Z: 3}, 2, true, false, true)
	want = ms3.Vec{X: 0.5, Y: -0.5, Z: 1}
	if ms3.Norm(ms3.Sub(got, want)) > tol {
		t.Errorf("modsimple: got %v, want %v", got, want)
	}
	// Rotating about Z mixes X and Y.
	got = Rotate45(ms3.Vec{X: 1}, 2)
	want = ms3.Vec{X: sqrthlf, Y: sqrthlf}
	if ms3.Norm(ms3.Sub(got, want)) > tol {
		t.Errorf("rotate45: got %v, want %v", got, want)
	}
	if f := Frac(-0.25); math32.Abs(f-0.75) > tol {
		t.Errorf("frac: got %v", f)
	}
}

func TestMulPosition(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		axis := ms3.Vec{X: rnd.Float32() - 0.5, Y: rnd.Float32() - 0.5, Z: rnd.Float32() + 0.1}
		m := ms3.MulMat4(
			ms3.TranslatingMat4(ms3.Vec{X: rnd.Float32(), Y: -rnd.Float32(), Z: 2}),
			ms3.RotationMat4(rnd.Float32()*math32.Pi, axis),
		)
		p := ms3.Vec{X: 4*rnd.Float32() - 2, Y: 4*rnd.Float32() - 2, Z: 4*rnd.Float32() - 2}
		payload := m.Array()
		want := m.MulPosition(p)
		got := MulPosition(&payload, p)
		if ms3.Norm(ms3.Sub(got, want)) > tol {
			t.Fatalf("payload view differs from matrix: got %v, want %v", got, want)
		}
	}
}
