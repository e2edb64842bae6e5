package sdfbuild

import (
	"errors"
	"fmt"
	"strconv"
)

// Kind identifies an instruction's semantics. The set of kinds is closed:
// every kind has exactly one opcode and a fixed payload size.
type Kind uint8

const (
	KindInvalid Kind = iota
	// Shapes push one distance.
	KindSphere
	KindBox
	KindCapsule
	KindCone
	KindCylinder
	KindPlane
	KindTorus
	// Unary operations replace the distance on top of the stack.
	KindInverse
	KindOffset
	// Binary operations pop two distances and push their combination.
	KindUnion
	KindUnionChamfer
	KindUnionColumns
	KindUnionRound
	KindUnionStairs
	KindUnionSmooth
	KindIntersection
	KindIntersectionChamfer
	KindIntersectionColumns
	KindIntersectionRound
	KindIntersectionStairs
	KindDifference
	KindDifferenceChamfer
	KindDifferenceColumns
	KindDifferenceRound
	KindDifferenceStairs
	KindEngrave
	KindGroove
	KindPipe
	KindTongue
	// Domain push operations save the position and remap it.
	KindModSimple
	KindRepeat
	KindRotate45
	// KindPopPosition restores the position saved by the matching domain push.
	KindPopPosition
	numKinds
)

// Opcode is the byte tag that starts every encoded instruction record.
type Opcode uint8

// opcodeTable assigns opcodes to kinds. Unlisted opcodes are invalid.
var opcodeTable = [256]Kind{
	0:  KindInverse,
	1:  KindUnion,
	2:  KindUnionChamfer,
	3:  KindUnionColumns,
	4:  KindUnionRound,
	5:  KindUnionStairs,
	6:  KindIntersection,
	7:  KindIntersectionChamfer,
	8:  KindIntersectionColumns,
	9:  KindIntersectionRound,
	10: KindIntersectionStairs,
	11: KindDifference,
	12: KindDifferenceChamfer,
	13: KindDifferenceColumns,
	14: KindDifferenceRound,
	15: KindDifferenceStairs,
	16: KindEngrave,
	17: KindGroove,
	18: KindPipe,
	19: KindTongue,
	20: KindBox,
	21: KindCapsule,
	22: KindCone,
	23: KindCylinder,
	24: KindPlane,
	25: KindSphere,
	26: KindTorus,
	27: KindOffset,
	28: KindPopPosition,
	29: KindModSimple,
	30: KindRotate45,
	31: KindUnionSmooth,
	32: KindRepeat,
}

// kindOpcodes is the inverse of opcodeTable, built and checked at init.
var kindOpcodes [numKinds]Opcode

var ErrUnregisteredKind = errors.New("unregistered instruction kind")

func init() {
	ops, err := checkRegistry(&opcodeTable)
	if err != nil {
		panic("sdfbuild: bad opcode registry: " + err.Error())
	}
	kindOpcodes = ops
}

// checkRegistry verifies every valid kind is assigned exactly one opcode and
// returns the kind to opcode mapping.
func checkRegistry(table *[256]Kind) (ops [numKinds]Opcode, err error) {
	var seen [numKinds]bool
	for op, k := range table {
		if k == KindInvalid {
			continue
		} else if k >= numKinds {
			return ops, fmt.Errorf("opcode %d maps to out of range kind %d", op, k)
		} else if seen[k] {
			return ops, fmt.Errorf("%s registered at opcode %d and %d", k, ops[k], op)
		}
		seen[k] = true
		ops[k] = Opcode(op)
	}
	for k := KindInvalid + 1; k < numKinds; k++ {
		if !seen[k] {
			return ops, fmt.Errorf("%s has no opcode", k)
		}
	}
	return ops, nil
}

// EncodeOpcode returns the opcode of kind k.
func EncodeOpcode(k Kind) (Opcode, error) {
	if k == KindInvalid || k >= numKinds {
		return 0, fmt.Errorf("%w: %d", ErrUnregisteredKind, uint8(k))
	}
	return kindOpcodes[k], nil
}

// DecodeOpcode returns the kind encoded by op. ok is false for unassigned opcodes.
func DecodeOpcode(op Opcode) (k Kind, ok bool) {
	k = opcodeTable[op]
	return k, k != KindInvalid
}

// Category classifies nodes and the instructions they emit.
type Category uint8

const (
	CategoryInvalid Category = iota
	CategoryShape
	CategoryUnary
	CategoryBinary
	// CategoryCommutative binary operations accept two or more children.
	CategoryCommutative
	CategoryDomain
)

// Arity returns the required child count of the category. atLeast is true
// when arity is a lower bound.
func (c Category) Arity() (n int, atLeast bool) {
	switch c {
	case CategoryShape:
		return 0, false
	case CategoryUnary, CategoryDomain:
		return 1, false
	case CategoryBinary:
		return 2, false
	case CategoryCommutative:
		return 2, true
	}
	return -1, false
}

func (c Category) String() string {
	switch c {
	case CategoryShape:
		return "shape"
	case CategoryUnary:
		return "unary"
	case CategoryBinary:
		return "binary"
	case CategoryCommutative:
		return "commutative"
	case CategoryDomain:
		return "domain"
	}
	return "Category(" + strconv.Itoa(int(c)) + ")"
}

// Category returns the node category that emits instructions of kind k.
// KindPopPosition is reported as a domain kind.
func (k Kind) Category() Category {
	switch {
	case k >= KindSphere && k <= KindTorus:
		return CategoryShape
	case k == KindInverse || k == KindOffset:
		return CategoryUnary
	case k == KindUnion || k == KindIntersection || k == KindUnionSmooth:
		return CategoryCommutative
	case k >= KindUnionChamfer && k <= KindTongue:
		return CategoryBinary
	case k >= KindModSimple && k <= KindPopPosition:
		return CategoryDomain
	}
	return CategoryInvalid
}

// NumArgs returns the fixed number of float32 payload words of an instruction of kind k.
func (k Kind) NumArgs() int {
	switch k {
	case KindInverse, KindUnion, KindIntersection, KindDifference, KindPopPosition:
		return 0
	case KindOffset, KindUnionSmooth, KindUnionChamfer, KindUnionRound, KindIntersectionChamfer,
		KindIntersectionRound, KindDifferenceChamfer, KindDifferenceRound, KindEngrave, KindPipe,
		KindRepeat, KindRotate45:
		return 1
	case KindUnionColumns, KindUnionStairs, KindIntersectionColumns, KindIntersectionStairs,
		KindDifferenceColumns, KindDifferenceStairs, KindGroove, KindTongue, KindModSimple:
		return 2
	case KindSphere, KindPlane:
		return 4 // Vector and scalar.
	case KindCapsule:
		return 7 // Two endpoints and radius.
	case KindCone, KindCylinder, KindTorus:
		return 18 // Transform and two scalars.
	case KindBox:
		return 19 // Transform and extents.
	}
	return 0
}

var kindNames = [numKinds]string{
	KindInvalid:             "Invalid",
	KindSphere:              "Sphere",
	KindBox:                 "Box",
	KindCapsule:             "Capsule",
	KindCone:                "Cone",
	KindCylinder:            "Cylinder",
	KindPlane:               "Plane",
	KindTorus:               "Torus",
	KindInverse:             "Inverse",
	KindOffset:              "Offset",
	KindUnion:               "Union",
	KindUnionChamfer:        "UnionChamfer",
	KindUnionColumns:        "UnionColumns",
	KindUnionRound:          "UnionRound",
	KindUnionStairs:         "UnionStairs",
	KindUnionSmooth:         "UnionSmooth",
	KindIntersection:        "Intersection",
	KindIntersectionChamfer: "IntersectionChamfer",
	KindIntersectionColumns: "IntersectionColumns",
	KindIntersectionRound:   "IntersectionRound",
	KindIntersectionStairs:  "IntersectionStairs",
	KindDifference:          "Difference",
	KindDifferenceChamfer:   "DifferenceChamfer",
	KindDifferenceColumns:   "DifferenceColumns",
	KindDifferenceRound:     "DifferenceRound",
	KindDifferenceStairs:    "DifferenceStairs",
	KindEngrave:             "Engrave",
	KindGroove:              "Groove",
	KindPipe:                "Pipe",
	KindTongue:              "Tongue",
	KindModSimple:           "ModSimple",
	KindRepeat:              "Repeat",
	KindRotate45:            "Rotate45",
	KindPopPosition:         "PopPosition",
}

func (k Kind) String() string {
	if k < numKinds {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}
