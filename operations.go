package gsdfvm

import (
	"strings"

	"github.com/soypat/gsdfvm/sdfbuild"
)

type inverse struct {
	s sdfbuild.Node
}

// Inverse flips the inside and outside of s.
func (bld *Builder) Inverse(s sdfbuild.Node) sdfbuild.Node {
	if s == nil {
		bld.nilsdf("Inverse", 0)
	}
	return &inverse{s: s}
}

func (u *inverse) Category() sdfbuild.Category { return sdfbuild.CategoryUnary }

func (u *inverse) ForEachChild(userData any, fn func(userData any, n *sdfbuild.Node) error) error {
	return fn(userData, &u.s)
}

func (u *inverse) Instruction() sdfbuild.Instruction {
	return sdfbuild.MakeOp(sdfbuild.KindInverse)
}

func (u *inverse) AppendNodeName(b []byte) []byte {
	return append(b, "inverse"...)
}

type offset struct {
	s sdfbuild.Node
	k float32
}

// Offset adds k to the distance of s. Positive k shrinks the shape, negative k grows it.
func (bld *Builder) Offset(s sdfbuild.Node, k float32) sdfbuild.Node {
	if s == nil {
		bld.nilsdf("Offset", 0)
	}
	return &offset{s: s, k: k}
}

func (u *offset) Category() sdfbuild.Category { return sdfbuild.CategoryUnary }

func (u *offset) ForEachChild(userData any, fn func(userData any, n *sdfbuild.Node) error) error {
	return fn(userData, &u.s)
}

func (u *offset) Instruction() sdfbuild.Instruction {
	return sdfbuild.MakeOp(sdfbuild.KindOffset, u.k)
}

func (u *offset) AppendNodeName(b []byte) []byte {
	b = append(b, "offset("...)
	b = sdfbuild.AppendFloat(b, u.k)
	return append(b, ')')
}

// OpUnion is the result of the [Builder.Union], [Builder.Intersection] and
// [Builder.SmoothUnion] operations: a commutative combination of two or more nodes.
//
// OpUnion is exported so users can traverse a tree looking for wide
// combinations and inspect or rebalance them.
type OpUnion struct {
	kind sdfbuild.Kind
	k    float32 // Smoothing width of smooth unions.
	// joined contains 2 or more nodes.
	joined []sdfbuild.Node
}

// Union joins the shapes of several nodes into one. Is exact.
// Union aggregates nested Union results into its own.
func (bld *Builder) Union(a, b sdfbuild.Node, more ...sdfbuild.Node) sdfbuild.Node {
	return bld.commutative("Union", sdfbuild.KindUnion, 0, a, b, more)
}

// Intersection keeps the region common to all nodes.
// Intersection aggregates nested Intersection results into its own.
func (bld *Builder) Intersection(a, b sdfbuild.Node, more ...sdfbuild.Node) sdfbuild.Node {
	return bld.commutative("Intersection", sdfbuild.KindIntersection, 0, a, b, more)
}

// SmoothUnion joins nodes blending their seams with a smooth minimum of width k.
// Nested smooth unions are kept as they are since the blend is not associative.
func (bld *Builder) SmoothUnion(k float32, a, b sdfbuild.Node, more ...sdfbuild.Node) sdfbuild.Node {
	if k <= 0 {
		bld.shapeErrorf("zero or negative smooth union width")
	}
	return bld.commutative("SmoothUnion", sdfbuild.KindUnionSmooth, k, a, b, more)
}

func (bld *Builder) commutative(name string, kind sdfbuild.Kind, k float32, a, b sdfbuild.Node, more []sdfbuild.Node) *OpUnion {
	U := OpUnion{kind: kind, k: k, joined: make([]sdfbuild.Node, 0, 2+len(more))}
	add := func(i int, s sdfbuild.Node) {
		if s == nil {
			bld.nilsdf(name, i)
		}
		if sub, ok := s.(*OpUnion); ok && kind != sdfbuild.KindUnionSmooth && sub.kind == kind {
			// Discard nested elements and join their children.
			U.joined = append(U.joined, sub.joined...)
		} else {
			U.joined = append(U.joined, s)
		}
	}
	add(0, a)
	add(1, b)
	for i, s := range more {
		add(i+2, s)
	}
	return &U
}

// Kind returns the instruction kind of the combination.
func (u *OpUnion) Kind() sdfbuild.Kind { return u.kind }

// Len returns the number of joined nodes.
func (u *OpUnion) Len() int { return len(u.joined) }

func (u *OpUnion) Category() sdfbuild.Category { return sdfbuild.CategoryCommutative }

func (u *OpUnion) ForEachChild(userData any, fn func(userData any, n *sdfbuild.Node) error) error {
	for i := range u.joined {
		err := fn(userData, &u.joined[i])
		if err != nil {
			return err
		}
	}
	return nil
}

func (u *OpUnion) Instruction() sdfbuild.Instruction {
	if u.kind == sdfbuild.KindUnionSmooth {
		return sdfbuild.MakeOp(u.kind, u.k)
	}
	return sdfbuild.MakeOp(u.kind)
}

func (u *OpUnion) AppendNodeName(b []byte) []byte {
	b = append(b, strings.ToLower(u.kind.String())...)
	b = append(b, '[')
	b = sdfbuild.AppendFloat(b, float32(len(u.joined)))
	return append(b, ']')
}

// binop is a strictly two child combination.
type binop struct {
	kind   sdfbuild.Kind
	a, b   sdfbuild.Node
	params [2]float32
}

func (bld *Builder) binop(name string, kind sdfbuild.Kind, a, b sdfbuild.Node, params ...float32) *binop {
	if a == nil {
		bld.nilsdf(name, 0)
	}
	if b == nil {
		bld.nilsdf(name, 1)
	}
	op := &binop{kind: kind, a: a, b: b}
	copy(op.params[:], params)
	return op
}

func (bld *Builder) checkRadius(name string, r float32) {
	if r <= 0 {
		bld.shapeErrorf("zero or negative %s radius", name)
	}
}

func (bld *Builder) checkCount(name string, n int) {
	if n < 1 {
		bld.shapeErrorf("%s needs at least 1 step, got %d", name, n)
	}
}

// Difference removes b from a.
func (bld *Builder) Difference(a, b sdfbuild.Node) sdfbuild.Node {
	return bld.binop("Difference", sdfbuild.KindDifference, a, b)
}

// UnionChamfer is a union of a and b with a 45 degree chamfer of size r at the seam.
func (bld *Builder) UnionChamfer(a, b sdfbuild.Node, r float32) sdfbuild.Node {
	bld.checkRadius("chamfer", r)
	return bld.binop("UnionChamfer", sdfbuild.KindUnionChamfer, a, b, r)
}

func (bld *Builder) IntersectionChamfer(a, b sdfbuild.Node, r float32) sdfbuild.Node {
	bld.checkRadius("chamfer", r)
	return bld.binop("IntersectionChamfer", sdfbuild.KindIntersectionChamfer, a, b, r)
}

func (bld *Builder) DifferenceChamfer(a, b sdfbuild.Node, r float32) sdfbuild.Node {
	bld.checkRadius("chamfer", r)
	return bld.binop("DifferenceChamfer", sdfbuild.KindDifferenceChamfer, a, b, r)
}

// UnionRound is a union of a and b with a fillet of radius r at the seam.
func (bld *Builder) UnionRound(a, b sdfbuild.Node, r float32) sdfbuild.Node {
	bld.checkRadius("round", r)
	return bld.binop("UnionRound", sdfbuild.KindUnionRound, a, b, r)
}

func (bld *Builder) IntersectionRound(a, b sdfbuild.Node, r float32) sdfbuild.Node {
	bld.checkRadius("round", r)
	return bld.binop("IntersectionRound", sdfbuild.KindIntersectionRound, a, b, r)
}

func (bld *Builder) DifferenceRound(a, b sdfbuild.Node, r float32) sdfbuild.Node {
	bld.checkRadius("round", r)
	return bld.binop("DifferenceRound", sdfbuild.KindDifferenceRound, a, b, r)
}

// UnionColumns is a union of a and b whose seam is filled with n columns spread over r.
func (bld *Builder) UnionColumns(a, b sdfbuild.Node, r float32, n int) sdfbuild.Node {
	bld.checkRadius("columns", r)
	bld.checkCount("UnionColumns", n)
	return bld.binop("UnionColumns", sdfbuild.KindUnionColumns, a, b, r, float32(n))
}

func (bld *Builder) IntersectionColumns(a, b sdfbuild.Node, r float32, n int) sdfbuild.Node {
	bld.checkRadius("columns", r)
	bld.checkCount("IntersectionColumns", n)
	return bld.binop("IntersectionColumns", sdfbuild.KindIntersectionColumns, a, b, r, float32(n))
}

func (bld *Builder) DifferenceColumns(a, b sdfbuild.Node, r float32, n int) sdfbuild.Node {
	bld.checkRadius("columns", r)
	bld.checkCount("DifferenceColumns", n)
	return bld.binop("DifferenceColumns", sdfbuild.KindDifferenceColumns, a, b, r, float32(n))
}

// UnionStairs is a union of a and b whose seam is cut into n steps over r.
func (bld *Builder) UnionStairs(a, b sdfbuild.Node, r float32, n int) sdfbuild.Node {
	bld.checkRadius("stairs", r)
	bld.checkCount("UnionStairs", n)
	return bld.binop("UnionStairs", sdfbuild.KindUnionStairs, a, b, r, float32(n))
}

func (bld *Builder) IntersectionStairs(a, b sdfbuild.Node, r float32, n int) sdfbuild.Node {
	bld.checkRadius("stairs", r)
	bld.checkCount("IntersectionStairs", n)
	return bld.binop("IntersectionStairs", sdfbuild.KindIntersectionStairs, a, b, r, float32(n))
}

func (bld *Builder) DifferenceStairs(a, b sdfbuild.Node, r float32, n int) sdfbuild.Node {
	bld.checkRadius("stairs", r)
	bld.checkCount("DifferenceStairs", n)
	return bld.binop("DifferenceStairs", sdfbuild.KindDifferenceStairs, a, b, r, float32(n))
}

// Engrave cuts a V groove of depth r into a along the surface of b.
func (bld *Builder) Engrave(a, b sdfbuild.Node, r float32) sdfbuild.Node {
	bld.checkRadius("engrave", r)
	return bld.binop("Engrave", sdfbuild.KindEngrave, a, b, r)
}

// Groove cuts a channel of depth ra and width rb into a along the surface of b.
func (bld *Builder) Groove(a, b sdfbuild.Node, ra, rb float32) sdfbuild.Node {
	bld.checkRadius("groove depth", ra)
	bld.checkRadius("groove width", rb)
	return bld.binop("Groove", sdfbuild.KindGroove, a, b, ra, rb)
}

// Pipe creates a tube of radius r along the intersection curve of a and b.
func (bld *Builder) Pipe(a, b sdfbuild.Node, r float32) sdfbuild.Node {
	bld.checkRadius("pipe", r)
	return bld.binop("Pipe", sdfbuild.KindPipe, a, b, r)
}

// Tongue adds a ridge of height ra and width rb onto a along the surface of b.
func (bld *Builder) Tongue(a, b sdfbuild.Node, ra, rb float32) sdfbuild.Node {
	bld.checkRadius("tongue height", ra)
	bld.checkRadius("tongue width", rb)
	return bld.binop("Tongue", sdfbuild.KindTongue, a, b, ra, rb)
}

func (op *binop) Category() sdfbuild.Category { return sdfbuild.CategoryBinary }

func (op *binop) ForEachChild(userData any, fn func(userData any, n *sdfbuild.Node) error) error {
	err := fn(userData, &op.a)
	if err != nil {
		return err
	}
	return fn(userData, &op.b)
}

func (op *binop) Instruction() sdfbuild.Instruction {
	return sdfbuild.MakeOp(op.kind, op.params[:]...)
}

func (op *binop) AppendNodeName(b []byte) []byte {
	b = append(b, strings.ToLower(op.kind.String())...)
	if n := op.kind.NumArgs(); n > 0 {
		b = append(b, '(')
		b = sdfbuild.AppendFloats(b, ';', op.params[:n]...)
		b = append(b, ')')
	}
	return b
}

// domain remaps positions before evaluating its child.
type domain struct {
	kind   sdfbuild.Kind
	s      sdfbuild.Node
	params [2]float32
}

// Repeat tiles space into cubic cells of size cell and evaluates s in each of them.
func (bld *Builder) Repeat(s sdfbuild.Node, cell float32) sdfbuild.Node {
	if cell <= 0 {
		bld.shapeErrorf("zero or negative repeat cell size")
	}
	if s == nil {
		bld.nilsdf("Repeat", 0)
	}
	return &domain{kind: sdfbuild.KindRepeat, s: s, params: [2]float32{cell}}
}

// ModSimple tiles space into cells of size cell along the axes selected by mask.
func (bld *Builder) ModSimple(s sdfbuild.Node, cell float32, mask sdfbuild.XYZBits) sdfbuild.Node {
	if cell <= 0 {
		bld.shapeErrorf("zero or negative mod cell size")
	}
	if mask == 0 || mask > sdfbuild.NewXYZBits(true, true, true) {
		bld.shapeErrorf("invalid mod axis mask %d", mask)
	}
	if s == nil {
		bld.nilsdf("ModSimple", 0)
	}
	return &domain{kind: sdfbuild.KindModSimple, s: s, params: [2]float32{cell, float32(mask)}}
}

// Rotate45 rotates space 45 degrees about axis (0=X, 1=Y, 2=Z) before evaluating s.
func (bld *Builder) Rotate45(s sdfbuild.Node, axis int) sdfbuild.Node {
	if axis < 0 || axis > 2 {
		bld.shapeErrorf("invalid rotation axis %d", axis)
	}
	if s == nil {
		bld.nilsdf("Rotate45", 0)
	}
	return &domain{kind: sdfbuild.KindRotate45, s: s, params: [2]float32{float32(axis)}}
}

func (d *domain) Category() sdfbuild.Category { return sdfbuild.CategoryDomain }

func (d *domain) ForEachChild(userData any, fn func(userData any, n *sdfbuild.Node) error) error {
	return fn(userData, &d.s)
}

func (d *domain) Instruction() sdfbuild.Instruction {
	return sdfbuild.MakeOp(d.kind, d.params[:d.kind.NumArgs()]...)
}

func (d *domain) AppendNodeName(b []byte) []byte {
	b = append(b, strings.ToLower(d.kind.String())...)
	b = append(b, '(')
	switch d.kind {
	case sdfbuild.KindModSimple:
		b = sdfbuild.AppendFloat(b, d.params[0])
		b = append(b, ';')
		b = sdfbuild.XYZBits(d.params[1]).AppendMapped_xyz(b)
	default:
		b = sdfbuild.AppendFloat(b, d.params[0])
	}
	return append(b, ')')
}
