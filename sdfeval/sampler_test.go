package sdfeval_test

import (
	"bytes"
	"encoding/binary"
	"math/rand"
	"sync"
	"testing"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/gsdfvm"
	"github.com/soypat/gsdfvm/sdfbuild"
	"github.com/soypat/gsdfvm/sdfeval"
)

func compile(t *testing.T, n sdfbuild.Node) *sdfeval.Sampler {
	t.Helper()
	prog, err := sdfbuild.Compile(n)
	if err != nil {
		t.Fatal(err)
	}
	return sdfeval.NewSampler(prog)
}

func testScene(bld *gsdfvm.Builder) sdfbuild.Node {
	body := bld.UnionRound(
		bld.NewBox(ms3.RotationMat4(0.4, ms3.Vec{Y: 1}), ms3.Vec{X: 1, Y: 0.5, Z: 0.7}),
		bld.NewCylinder(ms3.TranslatingMat4(ms3.Vec{Y: -0.5}), 0.3, 1.2),
		0.1,
	)
	holes := bld.Repeat(bld.NewSphere(ms3.Vec{X: 0.25, Y: 0.25, Z: 0.25}, 0.15), 0.5)
	return bld.Union(
		bld.Difference(body, holes),
		bld.Rotate45(bld.NewTorus(ms3.TranslatingMat4(ms3.Vec{Y: 1}), 0.1, 0.6), 0),
		bld.Offset(bld.NewCapsule(ms3.Vec{X: -2}, ms3.Vec{X: -2, Y: 1}, 0.2), -0.05),
	)
}

func TestSampleSphere(t *testing.T) {
	var bld gsdfvm.Builder
	s := compile(t, bld.NewSphere(ms3.Vec{}, 1))
	if d := s.Sample(ms3.Vec{}); d != -1 {
		t.Errorf("center distance %f, want -1", d)
	}
	got := s.Sample4(ms3.Vec{}, ms3.Vec{X: 3}, ms3.Vec{Y: -2}, ms3.Vec{Z: 1})
	want := [4]float32{-1, 2, 1, 0}
	if got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if s.Evaluations() != 5 {
		t.Errorf("got %d evaluations, want 5", s.Evaluations())
	}
}

func TestSample4MatchesSample(t *testing.T) {
	var bld gsdfvm.Builder
	s := compile(t, testScene(&bld))
	rng := rand.New(rand.NewSource(1))
	rnd := func() ms3.Vec {
		return ms3.Vec{X: 6*rng.Float32() - 3, Y: 6*rng.Float32() - 3, Z: 6*rng.Float32() - 3}
	}
	for i := 0; i < 200; i++ {
		p := [4]ms3.Vec{rnd(), rnd(), rnd(), rnd()}
		got := s.Sample4(p[0], p[1], p[2], p[3])
		for j := range p {
			want := s.Sample(p[j])
			if math32.Abs(got[j]-want) > 1e-6 {
				t.Fatalf("lane %d at %v: 4-wide %f, single %f", j, p[j], got[j], want)
			}
		}
	}
}

func TestSamplerMatchesTree(t *testing.T) {
	var bld gsdfvm.Builder
	root := testScene(&bld)
	s := compile(t, root)
	tree, err := sdfeval.NewTreeSDF3(root)
	if err != nil {
		t.Fatal(err)
	}
	pos := make([]ms3.Vec, 1023)
	rng := rand.New(rand.NewSource(2))
	for i := range pos {
		pos[i] = ms3.Vec{X: 5*rng.Float32() - 2.5, Y: 5*rng.Float32() - 2.5, Z: 5*rng.Float32() - 2.5}
	}
	got := make([]float32, len(pos))
	want := make([]float32, len(pos))
	if err = s.Evaluate(pos, got, nil); err != nil {
		t.Fatal(err)
	}
	if err = tree.Evaluate(pos, want, nil); err != nil {
		t.Fatal(err)
	}
	for i := range got {
		if math32.Abs(got[i]-want[i]) > 1e-5 {
			t.Fatalf("at %v: sampler %f, tree %f", pos[i], got[i], want[i])
		}
	}
	if s.Evaluations() != uint64(len(pos)) || tree.Evaluations() != uint64(len(pos)) {
		t.Errorf("evaluation counts %d and %d, want %d", s.Evaluations(), tree.Evaluations(), len(pos))
	}
	if err = tree.VecPool().AssertAllReleased(); err != nil {
		t.Error(err)
	}
}

func TestSamplerClone(t *testing.T) {
	var bld gsdfvm.Builder
	s := compile(t, testScene(&bld))
	const workers = 4
	pos := make([]ms3.Vec, 64)
	for i := range pos {
		pos[i] = ms3.Vec{X: float32(i)/16 - 2, Y: 0.3, Z: -0.1}
	}
	want := make([]float32, len(pos))
	if err := s.Evaluate(pos, want, nil); err != nil {
		t.Fatal(err)
	}
	results := make([][]float32, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			clone := s.Clone()
			results[w] = make([]float32, len(pos))
			clone.Evaluate(pos, results[w], nil)
		}(w)
	}
	wg.Wait()
	for w := range results {
		for i := range want {
			if results[w][i] != want[i] {
				t.Fatalf("worker %d differs at %d: %f != %f", w, i, results[w][i], want[i])
			}
		}
	}
}

func TestEvaluateBuffers(t *testing.T) {
	var bld gsdfvm.Builder
	s := compile(t, bld.NewSphere(ms3.Vec{}, 1))
	err := s.Evaluate(make([]ms3.Vec, 3), make([]float32, 2), nil)
	if err == nil {
		t.Error("expected length mismatch error")
	}
	err = s.Evaluate(nil, nil, nil)
	if err == nil {
		t.Error("expected empty buffer error")
	}
}

func TestNormalsCentralDiff(t *testing.T) {
	var bld gsdfvm.Builder
	s := compile(t, bld.NewSphere(ms3.Vec{}, 1))
	pos := []ms3.Vec{{X: 2}, {Y: -1}, {Z: 1.5}}
	normals := make([]ms3.Vec, len(pos))
	var vp sdfeval.VecPool
	err := sdfeval.NormalsCentralDiff(s, pos, normals, 1e-3, &vp)
	if err != nil {
		t.Fatal(err)
	}
	for i := range normals {
		got := ms3.Unit(normals[i])
		want := ms3.Unit(pos[i])
		if ms3.Norm(ms3.Sub(got, want)) > 1e-2 {
			t.Errorf("normal at %v: got %v, want %v", pos[i], got, want)
		}
	}
	if err = vp.AssertAllReleased(); err != nil {
		t.Error(err)
	}
	err = sdfeval.NormalsCentralDiff(s, pos, normals, 1e-3, nil)
	if err == nil {
		t.Error("expected missing VecPool error")
	}
}

func TestDomainFolding(t *testing.T) {
	const cell = 1.5
	var bld gsdfvm.Builder
	child := bld.Union(
		bld.NewSphere(ms3.Vec{X: 0.5, Y: 0.7, Z: 0.6}, 0.4),
		bld.NewCapsule(ms3.Vec{X: 0.2, Y: 0.2, Z: 0.3}, ms3.Vec{X: 1.1, Y: 0.9, Z: 0.4}, 0.15),
	)
	ref, err := gsdfvm.NewEvaluator(child)
	if err != nil {
		t.Fatal(err)
	}
	fold := func(v float32) float32 { return v - cell*math32.Floor(v/cell) }
	for _, test := range []struct {
		name string
		node sdfbuild.Node
		fold func(ms3.Vec) ms3.Vec
	}{
		{
			name: "repeat",
			node: bld.Repeat(child, cell),
			fold: func(p ms3.Vec) ms3.Vec { return ms3.Vec{X: fold(p.X), Y: fold(p.Y), Z: fold(p.Z)} },
		},
		{
			name: "mod xz",
			node: bld.ModSimple(child, cell, sdfbuild.NewXYZBits(true, false, true)),
			fold: func(p ms3.Vec) ms3.Vec { return ms3.Vec{X: fold(p.X), Y: p.Y, Z: fold(p.Z)} },
		},
		{
			name: "mod y",
			node: bld.ModSimple(child, cell, sdfbuild.NewXYZBits(false, true, false)),
			fold: func(p ms3.Vec) ms3.Vec { return ms3.Vec{X: p.X, Y: fold(p.Y), Z: p.Z} },
		},
		{
			name: "rotate45 y",
			node: bld.Rotate45(child, 1),
			fold: func(p ms3.Vec) ms3.Vec {
				return ms3.Vec{X: (p.X + p.Z) / math32.Sqrt2, Y: math32.Sqrt2 * p.Y, Z: (p.Z - p.X) / math32.Sqrt2}
			},
		},
		{
			name: "rotate45 z",
			node: bld.Rotate45(child, 2),
			fold: func(p ms3.Vec) ms3.Vec {
				return ms3.Vec{X: (p.X - p.Y) / math32.Sqrt2, Y: (p.Y + p.X) / math32.Sqrt2, Z: math32.Sqrt2 * p.Z}
			},
		},
	} {
		s := compile(t, test.node)
		rng := rand.New(rand.NewSource(5))
		pos := make([]ms3.Vec, 256)
		folded := make([]ms3.Vec, len(pos))
		for i := range pos {
			pos[i] = ms3.Vec{X: 10*rng.Float32() - 5, Y: 10*rng.Float32() - 5, Z: 10*rng.Float32() - 5}
			folded[i] = test.fold(pos[i])
		}
		want := make([]float32, len(pos))
		err := ref.Evaluate(folded, want, nil)
		if err != nil {
			t.Fatal(test.name, err)
		}
		for i, p := range pos {
			if got := s.Sample(p); math32.Abs(got-want[i]) > 1e-4 {
				t.Errorf("%s: at %v got %f, folded child gives %f", test.name, p, got, want[i])
				break
			}
		}
	}
}

func TestReadProgramRejectsBadAxis(t *testing.T) {
	var bld gsdfvm.Builder
	prog, err := sdfbuild.Compile(bld.Rotate45(bld.NewSphere(ms3.Vec{X: 1}, 0.5), 1))
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	_, err = prog.WriteTo(&buf)
	if err != nil {
		t.Fatal(err)
	}
	data := buf.Bytes()
	// Header, then the Rotate45 record tag, then its axis.
	const axisOffset = 16 + 4
	binary.NativeEndian.PutUint32(data[axisOffset:], math32.Float32bits(-2))
	_, err = sdfbuild.ReadProgram(bytes.NewReader(data))
	if err == nil {
		t.Fatal("expected out of range axis to be rejected")
	}
}
