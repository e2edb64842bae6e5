package gsdfvm

import (
	"errors"

	"github.com/soypat/geometry/ms3"
	"github.com/soypat/gsdfvm/sdfbuild"
	"github.com/soypat/gsdfvm/sdfeval"
	"github.com/soypat/gsdfvm/sdflib"
)

var errNotCombine = errors.New("node kind is not a binary combination")

func (u *sphere) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	for i, p := range pos {
		dist[i] = sdflib.Sphere(p, u.center, u.r)
	}
	return nil
}

func (b *box) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	m := b.toLocal.Array()
	for i, p := range pos {
		dist[i] = sdflib.Box(p, &m, b.extents)
	}
	return nil
}

func (c *capsule) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	for i, p := range pos {
		dist[i] = sdflib.Capsule(p, c.a, c.b, c.r)
	}
	return nil
}

func (c *cone) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	m := c.toLocal.Array()
	for i, p := range pos {
		dist[i] = sdflib.Cone(p, &m, c.r, c.h)
	}
	return nil
}

func (c *cylinder) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	m := c.toLocal.Array()
	for i, p := range pos {
		dist[i] = sdflib.Cylinder(p, &m, c.r, c.h)
	}
	return nil
}

func (pl *plane) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	for i, p := range pos {
		dist[i] = sdflib.Plane(p, pl.normal, pl.d)
	}
	return nil
}

func (t *torus) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	m := t.toLocal.Array()
	for i, p := range pos {
		dist[i] = sdflib.Torus(p, &m, t.small, t.large)
	}
	return nil
}

func (u *inverse) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	err := sdfeval.EvaluateNode(u.s, pos, dist, userData)
	if err != nil {
		return err
	}
	for i := range dist {
		dist[i] = sdflib.Inverse(dist[i])
	}
	return nil
}

func (u *offset) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	err := sdfeval.EvaluateNode(u.s, pos, dist, userData)
	if err != nil {
		return err
	}
	for i := range dist {
		dist[i] = sdflib.Offset(dist[i], u.k)
	}
	return nil
}

// Evaluate folds children the way the compiled program does: all children are
// evaluated and the last two are combined first.
func (u *OpUnion) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	vp, err := sdfeval.GetVecPool(userData)
	if err != nil {
		return err
	}
	combine, err := combineFunc(u.kind, [2]float32{u.k})
	if err != nil {
		return err
	}
	last := len(u.joined) - 1
	err = sdfeval.EvaluateNode(u.joined[last], pos, dist, userData)
	if err != nil {
		return err
	}
	d1 := vp.Float.Acquire(len(dist))
	defer vp.Float.Release(d1)
	for i := last - 1; i >= 0; i-- {
		err = sdfeval.EvaluateNode(u.joined[i], pos, d1, userData)
		if err != nil {
			return err
		}
		for j := range dist {
			dist[j] = combine(d1[j], dist[j])
		}
	}
	return nil
}

func (op *binop) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	vp, err := sdfeval.GetVecPool(userData)
	if err != nil {
		return err
	}
	combine, err := combineFunc(op.kind, op.params)
	if err != nil {
		return err
	}
	err = sdfeval.EvaluateNode(op.a, pos, dist, userData)
	if err != nil {
		return err
	}
	d2 := vp.Float.Acquire(len(dist))
	defer vp.Float.Release(d2)
	err = sdfeval.EvaluateNode(op.b, pos, d2, userData)
	if err != nil {
		return err
	}
	for i := range dist {
		dist[i] = combine(dist[i], d2[i])
	}
	return nil
}

func (d *domain) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	vp, err := sdfeval.GetVecPool(userData)
	if err != nil {
		return err
	}
	transformed := vp.V3.Acquire(len(pos))
	defer vp.V3.Release(transformed)
	switch d.kind {
	case sdfbuild.KindRepeat:
		cell := d.params[0]
		for i, p := range pos {
			transformed[i] = sdflib.Repeat(p, cell)
		}
	case sdfbuild.KindModSimple:
		cell, mask := d.params[0], sdfbuild.XYZBits(d.params[1])
		mx, my, mz := mask.X(), mask.Y(), mask.Z()
		for i, p := range pos {
			transformed[i] = sdflib.ModSimple(p, cell, mx, my, mz)
		}
	case sdfbuild.KindRotate45:
		axis := int(d.params[0])
		for i, p := range pos {
			transformed[i] = sdflib.Rotate45(p, axis)
		}
	default:
		return errors.New("unknown domain operation " + d.kind.String())
	}
	return sdfeval.EvaluateNode(d.s, transformed, dist, userData)
}

// combineFunc returns the distance combination of a binary node kind.
func combineFunc(kind sdfbuild.Kind, params [2]float32) (func(a, b float32) float32, error) {
	r, n := params[0], int(params[1])
	switch kind {
	case sdfbuild.KindUnion:
		return sdflib.Union, nil
	case sdfbuild.KindIntersection:
		return sdflib.Intersection, nil
	case sdfbuild.KindDifference:
		return sdflib.Difference, nil
	case sdfbuild.KindUnionSmooth:
		return func(a, b float32) float32 { return sdflib.SmoothUnion(a, b, r) }, nil
	case sdfbuild.KindUnionChamfer:
		return func(a, b float32) float32 { return sdflib.UnionChamfer(a, b, r) }, nil
	case sdfbuild.KindIntersectionChamfer:
		return func(a, b float32) float32 { return sdflib.IntersectionChamfer(a, b, r) }, nil
	case sdfbuild.KindDifferenceChamfer:
		return func(a, b float32) float32 { return sdflib.DifferenceChamfer(a, b, r) }, nil
	case sdfbuild.KindUnionRound:
		return func(a, b float32) float32 { return sdflib.UnionRound(a, b, r) }, nil
	case sdfbuild.KindIntersectionRound:
		return func(a, b float32) float32 { return sdflib.IntersectionRound(a, b, r) }, nil
	case sdfbuild.KindDifferenceRound:
		return func(a, b float32) float32 { return sdflib.DifferenceRound(a, b, r) }, nil
	case sdfbuild.KindUnionColumns:
		return func(a, b float32) float32 { return sdflib.UnionColumns(a, b, r, n) }, nil
	case sdfbuild.KindIntersectionColumns:
		return func(a, b float32) float32 { return sdflib.IntersectionColumns(a, b, r, n) }, nil
	case sdfbuild.KindDifferenceColumns:
		return func(a, b float32) float32 { return sdflib.DifferenceColumns(a, b, r, n) }, nil
	case sdfbuild.KindUnionStairs:
		return func(a, b float32) float32 { return sdflib.UnionStairs(a, b, r, n) }, nil
	case sdfbuild.KindIntersectionStairs:
		return func(a, b float32) float32 { return sdflib.IntersectionStairs(a, b, r, n) }, nil
	case sdfbuild.KindDifferenceStairs:
		return func(a, b float32) float32 { return sdflib.DifferenceStairs(a, b, r, n) }, nil
	case sdfbuild.KindEngrave:
		return func(a, b float32) float32 { return sdflib.Engrave(a, b, r) }, nil
	case sdfbuild.KindGroove:
		rb := params[1]
		return func(a, b float32) float32 { return sdflib.Groove(a, b, r, rb) }, nil
	case sdfbuild.KindPipe:
		return func(a, b float32) float32 { return sdflib.Pipe(a, b, r) }, nil
	case sdfbuild.KindTongue:
		rb := params[1]
		return func(a, b float32) float32 { return sdflib.Tongue(a, b, r, rb) }, nil
	}
	return nil, errNotCombine
}
