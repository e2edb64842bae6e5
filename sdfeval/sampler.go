package sdfeval

import (
	"fmt"

	"github.com/soypat/geometry/ms3"
	"github.com/soypat/gsdfvm/sdfbuild"
	"github.com/soypat/gsdfvm/sdflib"
	"honnef.co/go/safeish"
)

// Sampler runs a compiled [sdfbuild.Program] on a stack machine. The Program is
// shared read-only; the operand stacks and position registers belong to the Sampler.
// A Sampler is not safe for concurrent use, use [Sampler.Clone] to get one per goroutine.
type Sampler struct {
	prog   *sdfbuild.Program
	code   []byte
	ninstr int
	// Operand stack for single position sampling. Saved positions take 3 entries.
	stack []float32
	// Operand stack for 4-wide sampling. Saved positions take 3 slots, one per axis.
	stack4 [][4]float32
	evals  uint64
}

// NewSampler returns a Sampler with stacks sized to run prog.
func NewSampler(prog *sdfbuild.Program) *Sampler {
	peak := prog.PeakStackDepth()
	return &Sampler{
		prog:   prog,
		code:   prog.Bytes(),
		ninstr: prog.InstructionCount(),
		stack:  make([]float32, peak),
		stack4: make([][4]float32, peak),
	}
}

// Clone returns a new Sampler for the same Program with its own stacks.
func (s *Sampler) Clone() *Sampler { return NewSampler(s.prog) }

// Program returns the program run by the sampler.
func (s *Sampler) Program() *sdfbuild.Program { return s.prog }

// Evaluations returns the number of positions sampled so far.
func (s *Sampler) Evaluations() uint64 { return s.evals }

// Evaluate implements [SDF3]. Positions are sampled four at a time.
func (s *Sampler) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	if len(pos) != len(dist) {
		return errMismatchBufferLength
	} else if len(pos) == 0 {
		return errEmptyBuffers
	}
	i := 0
	for ; i+4 <= len(pos); i += 4 {
		d := s.Sample4(pos[i], pos[i+1], pos[i+2], pos[i+3])
		copy(dist[i:i+4], d[:])
	}
	for ; i < len(pos); i++ {
		dist[i] = s.Sample(pos[i])
	}
	return nil
}

func payload(code []byte, pc, nargs int) []float32 {
	if nargs == 0 {
		return nil
	}
	return safeish.SliceCast[[]float32](code[pc+4 : pc+4+4*nargs])
}

func vec(args []float32) ms3.Vec { return ms3.Vec{X: args[0], Y: args[1], Z: args[2]} }

func mat(args []float32) *sdflib.Affine { return (*sdflib.Affine)(args[:16]) }

func decodeAt(code []byte, pc int) (sdfbuild.Kind, []float32, int) {
	k, ok := sdfbuild.DecodeOpcode(sdfbuild.Opcode(code[pc]))
	if !ok {
		panic(fmt.Sprintf("invalid opcode %d at offset %d", code[pc], pc))
	}
	n := k.NumArgs()
	return k, payload(code, pc, n), pc + 4 + 4*n
}

// Sample returns the signed distance at p.
func (s *Sampler) Sample(p ms3.Vec) float32 {
	code := s.code
	stack := s.stack
	top := 0 // Number of stack entries in use.
	pc := 0
	for n := 0; n < s.ninstr; n++ {
		var k sdfbuild.Kind
		var args []float32
		k, args, pc = decodeAt(code, pc)
		switch k {
		// Shapes.
		case sdfbuild.KindSphere:
			stack[top] = sdflib.Sphere(p, vec(args), args[3])
			top++
		case sdfbuild.KindBox:
			stack[top] = sdflib.Box(p, mat(args), vec(args[16:]))
			top++
		case sdfbuild.KindCapsule:
			stack[top] = sdflib.Capsule(p, vec(args), vec(args[3:]), args[6])
			top++
		case sdfbuild.KindCone:
			stack[top] = sdflib.Cone(p, mat(args), args[16], args[17])
			top++
		case sdfbuild.KindCylinder:
			stack[top] = sdflib.Cylinder(p, mat(args), args[16], args[17])
			top++
		case sdfbuild.KindPlane:
			stack[top] = sdflib.Plane(p, vec(args), args[3])
			top++
		case sdfbuild.KindTorus:
			stack[top] = sdflib.Torus(p, mat(args), args[16], args[17])
			top++

		// Unary.
		case sdfbuild.KindInverse:
			stack[top-1] = sdflib.Inverse(stack[top-1])
		case sdfbuild.KindOffset:
			stack[top-1] = sdflib.Offset(stack[top-1], args[0])

		// Binary: deeper entry is the left operand.
		case sdfbuild.KindUnion, sdfbuild.KindUnionChamfer, sdfbuild.KindUnionColumns, sdfbuild.KindUnionRound,
			sdfbuild.KindUnionStairs, sdfbuild.KindUnionSmooth, sdfbuild.KindIntersection, sdfbuild.KindIntersectionChamfer,
			sdfbuild.KindIntersectionColumns, sdfbuild.KindIntersectionRound, sdfbuild.KindIntersectionStairs,
			sdfbuild.KindDifference, sdfbuild.KindDifferenceChamfer, sdfbuild.KindDifferenceColumns,
			sdfbuild.KindDifferenceRound, sdfbuild.KindDifferenceStairs, sdfbuild.KindEngrave, sdfbuild.KindGroove,
			sdfbuild.KindPipe, sdfbuild.KindTongue:
			top--
			stack[top-1] = combine(k, args, stack[top-1], stack[top])

		// Domain.
		case sdfbuild.KindModSimple, sdfbuild.KindRepeat, sdfbuild.KindRotate45:
			stack[top], stack[top+1], stack[top+2] = p.X, p.Y, p.Z
			top += 3
			p = remap(k, args, p)
		case sdfbuild.KindPopPosition:
			d := stack[top-1]
			p = ms3.Vec{X: stack[top-4], Y: stack[top-3], Z: stack[top-2]}
			top -= 3
			stack[top-1] = d

		default:
			panic("unhandled instruction kind " + k.String())
		}
	}
	if top != 1 {
		panic(fmt.Sprintf("program ended with %d stack entries", top))
	}
	s.evals++
	return stack[0]
}

// Sample4 returns the signed distances at four positions at once.
func (s *Sampler) Sample4(p0, p1, p2, p3 ms3.Vec) [4]float32 {
	code := s.code
	stack := s.stack4
	p := [4]ms3.Vec{p0, p1, p2, p3}
	top := 0 // Number of stack slots in use.
	pc := 0
	for n := 0; n < s.ninstr; n++ {
		var k sdfbuild.Kind
		var args []float32
		k, args, pc = decodeAt(code, pc)
		switch k {
		// Shapes.
		case sdfbuild.KindSphere:
			c, r := vec(args), args[3]
			for i := range p {
				stack[top][i] = sdflib.Sphere(p[i], c, r)
			}
			top++
		case sdfbuild.KindBox:
			m, ext := mat(args), vec(args[16:])
			for i := range p {
				stack[top][i] = sdflib.Box(p[i], m, ext)
			}
			top++
		case sdfbuild.KindCapsule:
			a, b, r := vec(args), vec(args[3:]), args[6]
			for i := range p {
				stack[top][i] = sdflib.Capsule(p[i], a, b, r)
			}
			top++
		case sdfbuild.KindCone:
			m := mat(args)
			for i := range p {
				stack[top][i] = sdflib.Cone(p[i], m, args[16], args[17])
			}
			top++
		case sdfbuild.KindCylinder:
			m := mat(args)
			for i := range p {
				stack[top][i] = sdflib.Cylinder(p[i], m, args[16], args[17])
			}
			top++
		case sdfbuild.KindPlane:
			n, d := vec(args), args[3]
			for i := range p {
				stack[top][i] = sdflib.Plane(p[i], n, d)
			}
			top++
		case sdfbuild.KindTorus:
			m := mat(args)
			for i := range p {
				stack[top][i] = sdflib.Torus(p[i], m, args[16], args[17])
			}
			top++

		// Unary.
		case sdfbuild.KindInverse:
			for i := range p {
				stack[top-1][i] = sdflib.Inverse(stack[top-1][i])
			}
		case sdfbuild.KindOffset:
			for i := range p {
				stack[top-1][i] = sdflib.Offset(stack[top-1][i], args[0])
			}

		// Binary: deeper slot is the left operand.
		case sdfbuild.KindUnion, sdfbuild.KindUnionChamfer, sdfbuild.KindUnionColumns, sdfbuild.KindUnionRound,
			sdfbuild.KindUnionStairs, sdfbuild.KindUnionSmooth, sdfbuild.KindIntersection, sdfbuild.KindIntersectionChamfer,
			sdfbuild.KindIntersectionColumns, sdfbuild.KindIntersectionRound, sdfbuild.KindIntersectionStairs,
			sdfbuild.KindDifference, sdfbuild.KindDifferenceChamfer, sdfbuild.KindDifferenceColumns,
			sdfbuild.KindDifferenceRound, sdfbuild.KindDifferenceStairs, sdfbuild.KindEngrave, sdfbuild.KindGroove,
			sdfbuild.KindPipe, sdfbuild.KindTongue:
			top--
			left, right := &stack[top-1], &stack[top]
			for i := range p {
				left[i] = combine(k, args, left[i], right[i])
			}

		// Domain.
		case sdfbuild.KindModSimple, sdfbuild.KindRepeat, sdfbuild.KindRotate45:
			for i := range p {
				stack[top][i] = p[i].X
				stack[top+1][i] = p[i].Y
				stack[top+2][i] = p[i].Z
				p[i] = remap(k, args, p[i])
			}
			top += 3
		case sdfbuild.KindPopPosition:
			d := stack[top-1]
			for i := range p {
				p[i] = ms3.Vec{X: stack[top-4][i], Y: stack[top-3][i], Z: stack[top-2][i]}
			}
			top -= 3
			stack[top-1] = d

		default:
			panic("unhandled instruction kind " + k.String())
		}
	}
	if top != 1 {
		panic(fmt.Sprintf("program ended with %d stack slots", top))
	}
	s.evals += 4
	return stack[0]
}

// combine applies binary operation k to distances a (left) and b (right).
func combine(k sdfbuild.Kind, args []float32, a, b float32) float32 {
	switch k {
	case sdfbuild.KindUnion:
		return sdflib.Union(a, b)
	case sdfbuild.KindUnionChamfer:
		return sdflib.UnionChamfer(a, b, args[0])
	case sdfbuild.KindUnionColumns:
		return sdflib.UnionColumns(a, b, args[0], int(args[1]))
	case sdfbuild.KindUnionRound:
		return sdflib.UnionRound(a, b, args[0])
	case sdfbuild.KindUnionStairs:
		return sdflib.UnionStairs(a, b, args[0], int(args[1]))
	case sdfbuild.KindUnionSmooth:
		return sdflib.SmoothUnion(a, b, args[0])
	case sdfbuild.KindIntersection:
		return sdflib.Intersection(a, b)
	case sdfbuild.KindIntersectionChamfer:
		return sdflib.IntersectionChamfer(a, b, args[0])
	case sdfbuild.KindIntersectionColumns:
		return sdflib.IntersectionColumns(a, b, args[0], int(args[1]))
	case sdfbuild.KindIntersectionRound:
		return sdflib.IntersectionRound(a, b, args[0])
	case sdfbuild.KindIntersectionStairs:
		return sdflib.IntersectionStairs(a, b, args[0], int(args[1]))
	case sdfbuild.KindDifference:
		return sdflib.Difference(a, b)
	case sdfbuild.KindDifferenceChamfer:
		return sdflib.DifferenceChamfer(a, b, args[0])
	case sdfbuild.KindDifferenceColumns:
		return sdflib.DifferenceColumns(a, b, args[0], int(args[1]))
	case sdfbuild.KindDifferenceRound:
		return sdflib.DifferenceRound(a, b, args[0])
	case sdfbuild.KindDifferenceStairs:
		return sdflib.DifferenceStairs(a, b, args[0], int(args[1]))
	case sdfbuild.KindEngrave:
		return sdflib.Engrave(a, b, args[0])
	case sdfbuild.KindGroove:
		return sdflib.Groove(a, b, args[0], args[1])
	case sdfbuild.KindPipe:
		return sdflib.Pipe(a, b, args[0])
	case sdfbuild.KindTongue:
		return sdflib.Tongue(a, b, args[0], args[1])
	}
	panic("not a binary instruction: " + k.String())
}

// remap applies domain operation k to position p.
func remap(k sdfbuild.Kind, args []float32, p ms3.Vec) ms3.Vec {
	switch k {
	case sdfbuild.KindModSimple:
		mask := sdfbuild.XYZBits(args[1])
		return sdflib.ModSimple(p, args[0], mask.X(), mask.Y(), mask.Z())
	case sdfbuild.KindRepeat:
		return sdflib.Repeat(p, args[0])
	case sdfbuild.KindRotate45:
		return sdflib.Rotate45(p, int(args[0]))
	}
	panic("not a domain instruction: " + k.String())
}
