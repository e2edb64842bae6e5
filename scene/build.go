package scene

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/gsdfvm"
	"github.com/soypat/gsdfvm/sdfbuild"
)

type arity int

const (
	arityShape arity = iota
	arityUnary
	arityBinary
	arityCommutative
)

func (a arity) check(got int) bool {
	switch a {
	case arityShape:
		return got == 0
	case arityUnary:
		return got == 1
	case arityBinary:
		return got == 2
	}
	return got >= 2
}

func (a arity) String() string {
	switch a {
	case arityShape:
		return "no"
	case arityUnary:
		return "exactly 1"
	case arityBinary:
		return "exactly 2"
	}
	return "2 or more"
}

type opBuilder struct {
	arity arity
	build func(bld *gsdfvm.Builder, n *Node, c []sdfbuild.Node) (sdfbuild.Node, error)
}

func seam(fn func(bld *gsdfvm.Builder, a, b sdfbuild.Node, r float32) sdfbuild.Node) opBuilder {
	return opBuilder{arity: arityBinary, build: func(bld *gsdfvm.Builder, n *Node, c []sdfbuild.Node) (sdfbuild.Node, error) {
		return fn(bld, c[0], c[1], n.Radius), nil
	}}
}

func seamCount(fn func(bld *gsdfvm.Builder, a, b sdfbuild.Node, r float32, count int) sdfbuild.Node) opBuilder {
	return opBuilder{arity: arityBinary, build: func(bld *gsdfvm.Builder, n *Node, c []sdfbuild.Node) (sdfbuild.Node, error) {
		return fn(bld, c[0], c[1], n.Radius, n.Count), nil
	}}
}

func seam2(fn func(bld *gsdfvm.Builder, a, b sdfbuild.Node, ra, rb float32) sdfbuild.Node) opBuilder {
	return opBuilder{arity: arityBinary, build: func(bld *gsdfvm.Builder, n *Node, c []sdfbuild.Node) (sdfbuild.Node, error) {
		return fn(bld, c[0], c[1], n.Radius, n.RadiusB), nil
	}}
}

var ops = map[string]opBuilder{
	"sphere": {arityShape, func(bld *gsdfvm.Builder, n *Node, _ []sdfbuild.Node) (sdfbuild.Node, error) {
		return bld.NewSphere(n.Center.Vec(), n.Radius), nil
	}},
	"box": {arityShape, func(bld *gsdfvm.Builder, n *Node, _ []sdfbuild.Node) (sdfbuild.Node, error) {
		m, err := n.Transform.toLocal()
		return bld.NewBox(m, n.Extents.Vec()), err
	}},
	"capsule": {arityShape, func(bld *gsdfvm.Builder, n *Node, _ []sdfbuild.Node) (sdfbuild.Node, error) {
		return bld.NewCapsule(n.From.Vec(), n.To.Vec(), n.Radius), nil
	}},
	"cone": {arityShape, func(bld *gsdfvm.Builder, n *Node, _ []sdfbuild.Node) (sdfbuild.Node, error) {
		m, err := n.Transform.toLocal()
		return bld.NewCone(m, n.Radius, n.Height), err
	}},
	"cylinder": {arityShape, func(bld *gsdfvm.Builder, n *Node, _ []sdfbuild.Node) (sdfbuild.Node, error) {
		m, err := n.Transform.toLocal()
		return bld.NewCylinder(m, n.Radius, n.Height), err
	}},
	"plane": {arityShape, func(bld *gsdfvm.Builder, n *Node, _ []sdfbuild.Node) (sdfbuild.Node, error) {
		return bld.NewPlane(n.Normal.Vec(), n.Distance), nil
	}},
	"torus": {arityShape, func(bld *gsdfvm.Builder, n *Node, _ []sdfbuild.Node) (sdfbuild.Node, error) {
		m, err := n.Transform.toLocal()
		return bld.NewTorus(m, n.Minor, n.Major), err
	}},
	"inverse": {arityUnary, func(bld *gsdfvm.Builder, _ *Node, c []sdfbuild.Node) (sdfbuild.Node, error) {
		return bld.Inverse(c[0]), nil
	}},
	"offset": {arityUnary, func(bld *gsdfvm.Builder, n *Node, c []sdfbuild.Node) (sdfbuild.Node, error) {
		return bld.Offset(c[0], n.Amount), nil
	}},
	"union": {arityCommutative, func(bld *gsdfvm.Builder, _ *Node, c []sdfbuild.Node) (sdfbuild.Node, error) {
		return bld.Union(c[0], c[1], c[2:]...), nil
	}},
	"intersection": {arityCommutative, func(bld *gsdfvm.Builder, _ *Node, c []sdfbuild.Node) (sdfbuild.Node, error) {
		return bld.Intersection(c[0], c[1], c[2:]...), nil
	}},
	"smooth_union": {arityCommutative, func(bld *gsdfvm.Builder, n *Node, c []sdfbuild.Node) (sdfbuild.Node, error) {
		return bld.SmoothUnion(n.Amount, c[0], c[1], c[2:]...), nil
	}},
	"difference": {arityBinary, func(bld *gsdfvm.Builder, _ *Node, c []sdfbuild.Node) (sdfbuild.Node, error) {
		return bld.Difference(c[0], c[1]), nil
	}},
	"union_chamfer":        seam((*gsdfvm.Builder).UnionChamfer),
	"intersection_chamfer": seam((*gsdfvm.Builder).IntersectionChamfer),
	"difference_chamfer":   seam((*gsdfvm.Builder).DifferenceChamfer),
	"union_round":          seam((*gsdfvm.Builder).UnionRound),
	"intersection_round":   seam((*gsdfvm.Builder).IntersectionRound),
	"difference_round":     seam((*gsdfvm.Builder).DifferenceRound),
	"union_columns":        seamCount((*gsdfvm.Builder).UnionColumns),
	"intersection_columns": seamCount((*gsdfvm.Builder).IntersectionColumns),
	"difference_columns":   seamCount((*gsdfvm.Builder).DifferenceColumns),
	"union_stairs":         seamCount((*gsdfvm.Builder).UnionStairs),
	"intersection_stairs":  seamCount((*gsdfvm.Builder).IntersectionStairs),
	"difference_stairs":    seamCount((*gsdfvm.Builder).DifferenceStairs),
	"engrave":              seam((*gsdfvm.Builder).Engrave),
	"pipe":                 seam((*gsdfvm.Builder).Pipe),
	"groove":               seam2((*gsdfvm.Builder).Groove),
	"tongue":               seam2((*gsdfvm.Builder).Tongue),
	"repeat": {arityUnary, func(bld *gsdfvm.Builder, n *Node, c []sdfbuild.Node) (sdfbuild.Node, error) {
		return bld.Repeat(c[0], n.Cell), nil
	}},
	"mod": {arityUnary, func(bld *gsdfvm.Builder, n *Node, c []sdfbuild.Node) (sdfbuild.Node, error) {
		mask, err := parseAxes(n.Axes)
		if err != nil {
			return nil, err
		}
		return bld.ModSimple(c[0], n.Cell, mask), nil
	}},
	"rotate45": {arityUnary, func(bld *gsdfvm.Builder, n *Node, c []sdfbuild.Node) (sdfbuild.Node, error) {
		mask, err := parseAxes(n.Axes)
		if err != nil {
			return nil, err
		}
		switch mask {
		case sdfbuild.NewXYZBits(true, false, false):
			return bld.Rotate45(c[0], 0), nil
		case sdfbuild.NewXYZBits(false, true, false):
			return bld.Rotate45(c[0], 1), nil
		case sdfbuild.NewXYZBits(false, false, true):
			return bld.Rotate45(c[0], 2), nil
		}
		return nil, fmt.Errorf("rotate45 requires a single axis, got %q", n.Axes)
	}},
}

// Ops returns the sorted names of all operators a scene may use.
func Ops() []string {
	names := make([]string, 0, len(ops))
	for name := range ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build turns the scene operator tree into nodes created with bld.
// Parameter errors are collected instead of panicking regardless of bld's flags.
func (s *Scene) Build(bld *gsdfvm.Builder) (sdfbuild.Node, error) {
	flags := bld.Flags()
	bld.SetFlags(flags | gsdfvm.FlagNoDimensionPanic)
	defer bld.SetFlags(flags)
	bld.ClearErrors()
	root, err := buildNode(bld, "root", &s.Root)
	if err != nil {
		return nil, err
	}
	if err = bld.Err(); err != nil {
		return nil, fmt.Errorf("scene %q: %w", s.Name, err)
	}
	return root, nil
}

func buildNode(bld *gsdfvm.Builder, path string, n *Node) (sdfbuild.Node, error) {
	op, ok := ops[n.Op]
	if !ok {
		return nil, fmt.Errorf("%s: unknown operator %q", path, n.Op)
	}
	if !op.arity.check(len(n.Children)) {
		return nil, fmt.Errorf("%s: %s takes %s children, got %d", path, n.Op, op.arity, len(n.Children))
	}
	if n.Transform != nil && op.arity == arityShape && n.Op != "box" && n.Op != "cone" && n.Op != "cylinder" && n.Op != "torus" {
		return nil, fmt.Errorf("%s: %s does not accept a transform", path, n.Op)
	}
	children := make([]sdfbuild.Node, len(n.Children))
	for i := range n.Children {
		child, err := buildNode(bld, path+".children["+strconv.Itoa(i)+"]", &n.Children[i])
		if err != nil {
			return nil, err
		}
		children[i] = child
	}
	node, err := op.build(bld, n, children)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return node, nil
}

var errZeroRotationAxis = errors.New("rotation requires a non-zero axis")

func (t *Transform) toLocal() (ms3.Mat4, error) {
	if t == nil {
		return ms3.IdentityMat4(), nil
	}
	tr := t.Translate.Vec()
	m := ms3.TranslatingMat4(ms3.Sub(ms3.Vec{}, tr))
	if t.RotateDegrees != 0 {
		if t.RotateAxis.IsZero() {
			return m, errZeroRotationAxis
		}
		rot := ms3.RotationMat4(-t.RotateDegrees*math32.Pi/180, t.RotateAxis.Vec())
		m = ms3.MulMat4(rot, m)
	}
	return m, nil
}

func parseAxes(s string) (sdfbuild.XYZBits, error) {
	var x, y, z bool
	for _, c := range strings.ToLower(s) {
		switch c {
		case 'x':
			x = true
		case 'y':
			y = true
		case 'z':
			z = true
		default:
			return 0, fmt.Errorf("invalid axis %q in %q", c, s)
		}
	}
	if !x && !y && !z {
		return 0, errors.New("at least one axis is required")
	}
	return sdfbuild.NewXYZBits(x, y, z), nil
}
