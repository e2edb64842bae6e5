package sdfbuild

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
)

// MaxArgs is the largest payload of any instruction, in float32 words.
const MaxArgs = 19

// recordHeader is the size of the opcode tag plus padding that keeps payloads 4-byte aligned.
const recordHeader = 4

// Instruction is a decoded bytecode instruction: a kind and its payload.
// Integer parameters such as column counts or axis indices are stored as
// float32 values holding whole numbers.
type Instruction struct {
	Kind Kind
	Args [MaxArgs]float32
}

// NumArgs returns the payload size of the instruction in float32 words.
func (ins Instruction) NumArgs() int { return ins.Kind.NumArgs() }

// Payload returns the instruction's meaningful arguments.
func (ins *Instruction) Payload() []float32 { return ins.Args[:ins.Kind.NumArgs()] }

// EncodedSize returns the number of bytes the instruction occupies in a program.
func (ins Instruction) EncodedSize() int { return recordHeader + 4*ins.Kind.NumArgs() }

// StackDelta returns the change in operand stack height, in float32 words,
// after executing the instruction on a single position.
func (ins Instruction) StackDelta() int {
	switch ins.Kind.Category() {
	case CategoryShape:
		return 1
	case CategoryBinary, CategoryCommutative:
		return -1
	case CategoryDomain:
		// Saved position is 3 words.
		if ins.Kind == KindPopPosition {
			return -3
		}
		return 3
	}
	return 0
}

// StackDelta4x returns the change in operand stack height, in float32 words,
// after executing the instruction on four positions at once.
func (ins Instruction) StackDelta4x() int { return 4 * ins.StackDelta() }

// Instruction constructors used by node implementations. They take care of
// laying out the payload in the order the interpreter reads it.

func MakeSphere(center ms3.Vec, r float32) Instruction {
	return Instruction{Kind: KindSphere, Args: [MaxArgs]float32{center.X, center.Y, center.Z, r}}
}

func MakeBox(toLocal ms3.Mat4, extents ms3.Vec) Instruction {
	ins := Instruction{Kind: KindBox}
	toLocal.Put(ins.Args[:16])
	ins.Args[16], ins.Args[17], ins.Args[18] = extents.X, extents.Y, extents.Z
	return ins
}

func MakeCapsule(a, b ms3.Vec, r float32) Instruction {
	return Instruction{Kind: KindCapsule, Args: [MaxArgs]float32{a.X, a.Y, a.Z, b.X, b.Y, b.Z, r}}
}

// MakeTransformed creates a Cone, Cylinder or Torus instruction whose payload
// is a local transform followed by two scalar parameters.
func MakeTransformed(kind Kind, toLocal ms3.Mat4, s0, s1 float32) Instruction {
	ins := Instruction{Kind: kind}
	toLocal.Put(ins.Args[:16])
	ins.Args[16], ins.Args[17] = s0, s1
	return ins
}

func MakePlane(normal ms3.Vec, distFromOrigin float32) Instruction {
	return Instruction{Kind: KindPlane, Args: [MaxArgs]float32{normal.X, normal.Y, normal.Z, distFromOrigin}}
}

// MakeOp creates an instruction with up to two scalar parameters.
// Used for unary, binary and domain operations.
func MakeOp(kind Kind, params ...float32) Instruction {
	ins := Instruction{Kind: kind}
	copy(ins.Args[:], params)
	return ins
}

// Validate reports integer or cell size parameters the interpreter cannot run
// with. Programs built by [Compile] from nodes that passed their builder's
// checks always validate.
func (ins *Instruction) Validate() error {
	args := ins.Payload()
	switch ins.Kind {
	case KindRotate45:
		if !isWhole(args[0], 0, 2) {
			return fmt.Errorf("%s axis %v not in 0..2", ins.Kind, args[0])
		}
	case KindRepeat:
		if !(args[0] > 0) || math32.IsInf(args[0], 1) {
			return fmt.Errorf("%s cell size %v must be positive", ins.Kind, args[0])
		}
	case KindModSimple:
		if !(args[0] > 0) || math32.IsInf(args[0], 1) {
			return fmt.Errorf("%s cell size %v must be positive", ins.Kind, args[0])
		} else if !isWhole(args[1], 1, 7) {
			return fmt.Errorf("%s axis mask %v not in 1..7", ins.Kind, args[1])
		}
	case KindUnionColumns, KindUnionStairs, KindIntersectionColumns, KindIntersectionStairs,
		KindDifferenceColumns, KindDifferenceStairs:
		if !isWhole(args[1], 1, math32.MaxInt32) {
			return fmt.Errorf("%s count %v must be a positive integer", ins.Kind, args[1])
		}
	}
	return nil
}

func isWhole(v, lo, hi float32) bool {
	return v >= lo && v <= hi && v == math32.Trunc(v)
}
